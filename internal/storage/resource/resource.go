// Package resource provides the sample images bundled with the binary, addressed as resource://<name>
package resource

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/DMarby/bluromatic/internal/storage"
)

// Sample is the reference of the bundled sample image
const Sample = "resource://cupcake.png"

//go:embed images
var images embed.FS

// Provider implements a read-only image storage backed by the bundled images
type Provider struct {
	fs fs.FS
}

// New returns a new Provider instance
func New() *Provider {
	sub, _ := fs.Sub(images, "images")
	return &Provider{
		fs: sub,
	}
}

// Get returns the bundled image with the given name
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := fs.ReadFile(p.fs, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

// Key returns the name of the image for resource:// references
func (p *Provider) Key(ref *url.URL) (string, bool) {
	if ref.Scheme != "resource" {
		return "", false
	}

	key := strings.TrimPrefix(path.Clean("/"+ref.Host+ref.Path), "/")
	if key == "" {
		return "", false
	}

	return key, true
}
