package memory

import (
	"context"
	"sync"

	"github.com/DMarby/bluromatic/internal/cache"
)

// Provider implements a simple in-memory cache, bounded by the total size of the cached objects
type Provider struct {
	cache    map[string][]byte
	order    []string
	size     int
	maxBytes int
	mutex    sync.RWMutex
}

// New returns a new Provider instance that never evicts
func New() *Provider {
	return NewWithLimit(0)
}

// NewWithLimit returns a new Provider instance that evicts the oldest objects once maxBytes is exceeded.
// A limit of 0 disables eviction.
func NewWithLimit(maxBytes int) *Provider {
	return &Provider{
		cache:    make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	p.mutex.RLock()
	data, exists := p.cache[key]
	p.mutex.RUnlock()

	if !exists {
		return nil, cache.ErrNotFound
	}

	return data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if existing, exists := p.cache[key]; exists {
		p.size -= len(existing)
	} else {
		p.order = append(p.order, key)
	}

	p.cache[key] = data
	p.size += len(data)

	for p.maxBytes > 0 && p.size > p.maxBytes && len(p.order) > 1 {
		oldest := p.order[0]
		p.order = p.order[1:]
		p.size -= len(p.cache[oldest])
		delete(p.cache, oldest)
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
