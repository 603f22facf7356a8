// Package content resolves image references to image data.
//
// References are URIs. Each mounted storage provider claims the references it can serve,
// and the first provider to claim a reference is used to read it. Image references are
// immutable, so the data is cached under a hash of the reference.
package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/DMarby/bluromatic/internal/cache"
	"github.com/DMarby/bluromatic/internal/storage"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/twmb/murmur3"
	"go.opentelemetry.io/otel/attribute"
)

// Errors
var (
	ErrInvalidReference = errors.New("invalid image reference")
	ErrUnresolvable     = errors.New("no storage can resolve the image reference")
)

// Resolver resolves image references through the mounted storage providers
type Resolver struct {
	tracer    *tracing.Tracer
	providers []storage.Provider
	cache     *cache.Auto
	volatile  []string
}

// New returns a new Resolver that caches resolved images in cacheProvider
func New(tracer *tracing.Tracer, cacheProvider cache.Provider, providers ...storage.Provider) *Resolver {
	r := &Resolver{
		tracer:    tracer,
		providers: providers,
	}

	r.cache = &cache.Auto{
		Tracer:   tracer,
		Provider: cacheProvider,
		Loader: func(ctx context.Context, key string) ([]byte, error) {
			ref, ok := refFromContext(ctx)
			if !ok {
				return nil, fmt.Errorf("missing reference for cache key %s", key)
			}

			return r.load(ctx, ref)
		},
	}

	return r
}

// Volatile marks a directory whose images may be deleted or replaced, such as temporary outputs.
// Images inside of it, in any provider, are read without being cached.
func (r *Resolver) Volatile(dir string) {
	r.volatile = append(r.volatile, strings.Trim(dir, "/")+"/")
}

// Parse validates an image reference
func Parse(ref string) (*url.URL, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrInvalidReference
	}

	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReference, err)
	}

	return u, nil
}

// Resolves returns whether any mounted provider claims the reference
func (r *Resolver) Resolves(ref string) bool {
	u, err := Parse(ref)
	if err != nil {
		return false
	}

	_, _, ok := r.provider(u)
	return ok
}

// Open returns the image data for an image reference
func (r *Resolver) Open(ctx context.Context, ref string) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "content.Resolver.Open")
	defer span.End()
	span.SetAttributes(attribute.String("image.uri", ref))

	u, err := Parse(ref)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	var data []byte
	if r.isVolatile(u) {
		data, err = r.load(ctx, u)
	} else {
		data, err = r.cache.Get(withRef(ctx, u), CacheKey(u.String()))
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	return data, nil
}

func (r *Resolver) load(ctx context.Context, ref *url.URL) ([]byte, error) {
	provider, key, ok := r.provider(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvable, ref)
	}

	data, err := provider.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", ref, err)
	}

	return data, nil
}

func (r *Resolver) isVolatile(ref *url.URL) bool {
	_, key, ok := r.provider(ref)
	if !ok {
		return false
	}

	for _, dir := range r.volatile {
		if strings.HasPrefix(key, dir) {
			return true
		}
	}

	return false
}

func (r *Resolver) provider(ref *url.URL) (storage.Provider, string, bool) {
	for _, provider := range r.providers {
		if key, ok := provider.Key(ref); ok {
			return provider, key, true
		}
	}

	return nil, "", false
}

// CacheKey returns the cache key for an image reference
func CacheKey(ref string) string {
	h1, h2 := murmur3.StringSum128(ref)
	return fmt.Sprintf("image:%016x%016x", h1, h2)
}

type refKey struct{}

func withRef(ctx context.Context, ref *url.URL) context.Context {
	return context.WithValue(ctx, refKey{}, ref)
}

func refFromContext(ctx context.Context) (*url.URL, bool) {
	ref, ok := ctx.Value(refKey{}).(*url.URL)
	return ref, ok
}
