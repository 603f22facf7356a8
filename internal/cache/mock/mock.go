package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/bluromatic/internal/cache"
)

// Provider is a mock cache.
// The keys "notfound", "notfounderr" and "seterror" are cache misses, "seterror" fails to be stored, and "error" fails to be read.
type Provider struct{}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	switch key {
	case "notfound", "notfounderr", "seterror", "healthcheck":
		return nil, cache.ErrNotFound
	case "error":
		return nil, fmt.Errorf("error")
	}

	return []byte(key), nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}

// Broken is a cache where every operation fails
type Broken struct{}

// Get always fails
func (b *Broken) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("broken cache")
}

// Set always fails
func (b *Broken) Set(ctx context.Context, key string, data []byte) error {
	return fmt.Errorf("broken cache")
}

// Shutdown shuts down the cache
func (b *Broken) Shutdown() {}
