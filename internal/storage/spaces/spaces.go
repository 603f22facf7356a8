package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/DMarby/bluromatic/internal/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// Provider implements a digitalocean spaces (or any other s3 compatible) based image storage
type Provider struct {
	spaces s3iface.S3API
	space  string
}

// New returns a new Provider instance
func New(ctx context.Context, space, endpoint, accessKey, secretKey string, forcePathStyle bool) (*Provider, error) {
	spacesSession, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String("us-east-1"), // Needs to be us-east-1 for Spaces, or it'll fail
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})
	if err != nil {
		return nil, err
	}

	spaces := s3.New(spacesSession)

	// Make sure that the space exists and that we can access it
	_, err = spaces.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(space),
	})
	if err != nil {
		return nil, fmt.Errorf("error accessing space %s: %w", space, err)
	}

	return NewWithClient(spaces, space), nil
}

// NewWithClient returns a new Provider instance using an existing client
func NewWithClient(client s3iface.S3API, space string) *Provider {
	return &Provider{
		spaces: client,
		space:  space,
	}
}

// Get returns the image data stored at key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	output, err := p.spaces.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.space),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}
	defer output.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, output.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Put uploads the image data to key
func (p *Provider) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.spaces.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.space),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})

	return err
}

// Delete removes the object stored at key
func (p *Provider) Delete(ctx context.Context, key string) error {
	// S3 doesn't report deletes of missing objects, so check first
	_, err := p.spaces.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.space),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return storage.ErrNotFound
		}

		return err
	}

	_, err = p.spaces.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.space),
		Key:    aws.String(key),
	})

	return err
}

// List returns the keys of the objects directly inside of dir
func (p *Provider) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.Trim(dir, "/")
	if prefix != "" {
		prefix += "/"
	}

	var keys []string
	err := p.spaces.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.space),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			keys = append(keys, aws.StringValue(object.Key))
		}

		return true
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// URI returns the s3:// reference for a key
func (p *Provider) URI(key string) string {
	u := url.URL{
		Scheme: "s3",
		Host:   p.space,
		Path:   "/" + strings.TrimPrefix(key, "/"),
	}

	return u.String()
}

// Key returns the key for s3:// references to objects in the space
func (p *Provider) Key(ref *url.URL) (string, bool) {
	if ref.Scheme != "s3" || ref.Host != p.space {
		return "", false
	}

	key := strings.TrimPrefix(path.Clean("/"+ref.Path), "/")
	if key == "" {
		return "", false
	}

	return key, true
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}

	return false
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
