package storage

import (
	"context"
	"errors"
	"net/url"
)

// Provider is an interface for retrieving images
type Provider interface {
	// Get returns the data stored at key
	Get(ctx context.Context, key string) ([]byte, error)
	// Key maps an image reference to a key within the provider, or returns false if the reference points elsewhere
	Key(ref *url.URL) (key string, ok bool)
}

// Bucket is a Provider that images can also be written to
type Bucket interface {
	Provider

	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys directly inside of dir
	List(ctx context.Context, dir string) ([]string, error)
	// URI returns the image reference for a key
	URI(key string) string
}

// Errors
var (
	ErrNotFound   = errors.New("Image does not exist")
	ErrInvalidKey = errors.New("Invalid key")
)
