package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/DMarby/bluromatic/internal/cache"
	"github.com/DMarby/bluromatic/internal/cache/memory"
	"github.com/DMarby/bluromatic/internal/cache/redis"
	"github.com/DMarby/bluromatic/internal/content"
	"github.com/DMarby/bluromatic/internal/logger"
	"github.com/DMarby/bluromatic/internal/notify"
	redisNotify "github.com/DMarby/bluromatic/internal/notify/redis"
	"github.com/DMarby/bluromatic/internal/storage"
	fileStorage "github.com/DMarby/bluromatic/internal/storage/file"
	"github.com/DMarby/bluromatic/internal/storage/resource"
	"github.com/DMarby/bluromatic/internal/storage/spaces"
	"github.com/DMarby/bluromatic/internal/tracing"
	"github.com/DMarby/bluromatic/internal/work"
)

// BackendFlags are the commandline flags selecting the storage, cache and notification backends
type BackendFlags struct {
	// Storage
	Storage string

	// Storage - File
	StorageFilePath string

	// Storage - Spaces
	StorageSpacesSpace          string
	StorageSpacesEndpoint       string
	StorageSpacesAccessKey      string
	StorageSpacesSecretKey      string
	StorageSpacesForcePathStyle bool

	// Content
	ContentFileRoot string

	// Cache
	Cache string

	// Cache - Memory
	CacheMemoryMaxBytes int

	// Cache - Redis
	CacheRedisAddress  string
	CacheRedisPoolSize int

	// Notify
	Notify string

	// Notify - Redis
	NotifyRedisAddress  string
	NotifyRedisPoolSize int
}

// RegisterBackendFlags registers the backend flags on the default flag set
func RegisterBackendFlags(defaults BackendFlags) *BackendFlags {
	f := &BackendFlags{}

	flag.StringVar(&f.Storage, "storage", defaults.Storage, "which storage backend to use for outputs and the gallery (file, spaces)")
	flag.StringVar(&f.StorageFilePath, "storage-file-path", defaults.StorageFilePath, "path to the file storage")
	flag.StringVar(&f.StorageSpacesSpace, "storage-spaces-space", "", "digitalocean space to use")
	flag.StringVar(&f.StorageSpacesEndpoint, "storage-spaces-endpoint", "", "spaces endpoint, such as https://ams3.digitaloceanspaces.com")
	flag.StringVar(&f.StorageSpacesAccessKey, "storage-spaces-access-key", "", "spaces access key")
	flag.StringVar(&f.StorageSpacesSecretKey, "storage-spaces-secret-key", "", "spaces secret key")
	flag.BoolVar(&f.StorageSpacesForcePathStyle, "storage-spaces-force-path-style", false, "use path style addressing, for s3 compatible servers such as minio")

	flag.StringVar(&f.ContentFileRoot, "content-file-root", defaults.ContentFileRoot, "directory that file:// image references may be read from, disabled if empty")

	flag.StringVar(&f.Cache, "cache", defaults.Cache, "which cache backend to use for source images (memory, redis)")
	flag.IntVar(&f.CacheMemoryMaxBytes, "cache-memory-max-bytes", 256<<20, "maximum size of the memory cache, unbounded if 0")
	flag.StringVar(&f.CacheRedisAddress, "cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	flag.IntVar(&f.CacheRedisPoolSize, "cache-redis-pool-size", 10, "redis connection pool size")

	flag.StringVar(&f.Notify, "notify", defaults.Notify, "where to send status notifications (log, redis, none)")
	flag.StringVar(&f.NotifyRedisAddress, "notify-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	flag.IntVar(&f.NotifyRedisPoolSize, "notify-redis-pool-size", 2, "redis connection pool size")

	return f
}

// Backends are the initialized storage, cache and notification backends
type Backends struct {
	Bucket   storage.Bucket
	Cache    cache.Provider
	Resolver *content.Resolver
	Notifier notify.Notifier

	shutdown []func()
}

// Shutdown closes the connections of the backends
func (b *Backends) Shutdown() {
	for _, fn := range b.shutdown {
		fn()
	}
}

// SetupBackends initializes the backends selected by the flags
func SetupBackends(ctx context.Context, log *logger.Logger, tracer *tracing.Tracer, f *BackendFlags) (*Backends, error) {
	b := &Backends{}

	bucket, err := setupStorage(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	b.Bucket = bucket

	// Cache
	switch f.Cache {
	case "memory":
		b.Cache = memory.NewWithLimit(f.CacheMemoryMaxBytes)
	case "redis":
		b.Cache, err = redis.New(ctx, tracer, f.CacheRedisAddress, f.CacheRedisPoolSize, 0)
	default:
		err = fmt.Errorf("invalid cache backend %q", f.Cache)
	}
	if err != nil {
		return nil, fmt.Errorf("error initializing cache: %w", err)
	}
	b.shutdown = append(b.shutdown, b.Cache.Shutdown)

	// Content resolution, through the bucket, the bundled images, and optionally the local filesystem
	providers := []storage.Provider{bucket, resource.New()}
	if f.ContentFileRoot != "" {
		files, err := fileStorage.New(f.ContentFileRoot)
		if err != nil {
			b.Shutdown()
			return nil, fmt.Errorf("error initializing content file root: %w", err)
		}
		providers = append(providers, files)
	}
	b.Resolver = content.New(tracer, b.Cache, providers...)
	b.Resolver.Volatile(work.OutputDir)

	// Notifications
	switch f.Notify {
	case "log":
		b.Notifier = &notify.Log{Log: log}
	case "none":
		b.Notifier = notify.Discard{}
	case "redis":
		notifier, err := redisNotify.New(ctx, tracer, f.NotifyRedisAddress, f.NotifyRedisPoolSize)
		if err != nil {
			b.Shutdown()
			return nil, fmt.Errorf("error initializing notifier: %w", err)
		}
		b.Notifier = notifier
		b.shutdown = append(b.shutdown, notifier.Shutdown)
	default:
		b.Shutdown()
		return nil, fmt.Errorf("invalid notify backend %q", f.Notify)
	}

	return b, nil
}

func setupStorage(ctx context.Context, f *BackendFlags) (storage.Bucket, error) {
	switch f.Storage {
	case "file":
		return fileStorage.New(f.StorageFilePath)
	case "spaces":
		return spaces.New(ctx, f.StorageSpacesSpace, f.StorageSpacesEndpoint, f.StorageSpacesAccessKey, f.StorageSpacesSecretKey, f.StorageSpacesForcePathStyle)
	default:
		return nil, fmt.Errorf("invalid storage backend %q", f.Storage)
	}
}
