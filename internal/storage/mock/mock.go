package mock

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Provider implements a mock image storage that returns undecodable data for every mock:// reference
type Provider struct {
}

// Get returns the image data for a key
func (p *Provider) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "error" {
		return nil, fmt.Errorf("storage error")
	}

	return []byte("foo"), nil
}

// Key returns the key for mock:// references
func (p *Provider) Key(ref *url.URL) (string, bool) {
	if ref.Scheme != "mock" {
		return "", false
	}

	return strings.TrimPrefix(ref.Host+ref.Path, "/"), true
}

// Bucket implements a mock writable image storage where every operation fails
type Bucket struct {
	Provider
}

// Put fails
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	return fmt.Errorf("storage error")
}

// Delete fails
func (b *Bucket) Delete(ctx context.Context, key string) error {
	return fmt.Errorf("storage error")
}

// List fails
func (b *Bucket) List(ctx context.Context, dir string) ([]string, error) {
	return nil, fmt.Errorf("storage error")
}

// URI returns the mock:// reference for a key
func (b *Bucket) URI(key string) string {
	return "mock://" + key
}
