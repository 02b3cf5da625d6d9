package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the production result-cache backend: a shared Redis
// instance lets every izruna replica serve a cached transcription
// without recomputing it, and the override store (internal/store)
// reuses the same client for exception data.
type RedisCache struct {
	client *redis.Client
	config CacheConfig
}

// RedisConfig holds Redis connection settings plus the shared
// CacheConfig (TTL, key prefix) applied to every entry.
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// CacheConfig holds common cache configuration
	CacheConfig CacheConfig
}

// DefaultRedisConfig returns the default Redis connection (localhost,
// DB 0) paired with izruna's default cache settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		Password:    "",
		DB:          0,
		CacheConfig: DefaultCacheConfig(),
	}
}

// NewRedisCache dials Redis at the default address and fails fast if
// it's unreachable, rather than deferring the error to the first
// transcription request.
func NewRedisCache() (*RedisCache, error) {
	return NewRedisCacheWithConfig(DefaultRedisConfig())
}

// NewRedisCacheWithConfig dials Redis with a custom configuration,
// verifying the connection with a bounded PING before returning.
func NewRedisCacheWithConfig(config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		config: config.CacheConfig,
	}, nil
}

// NewRedisCacheWithClient wraps an already-configured client — used by
// cmd/izruna/serve.go, which shares one *redis.Client between the
// result cache and the exception override store.
func NewRedisCacheWithClient(client *redis.Client, config CacheConfig) *RedisCache {
	return &RedisCache{
		client: client,
		config: config,
	}
}

// Get retrieves a cached transcription result.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := r.config.Prefix + key

	value, err := r.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, err
	}

	return value, nil
}

// Set stores a transcription result with a TTL, falling back to the
// cache's configured default when ttl is zero.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fullKey := r.config.Prefix + key

	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}

	return r.client.Set(ctx, fullKey, value, ttl).Err()
}

// Delete evicts a single cached result.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	fullKey := r.config.Prefix + key
	return r.client.Del(ctx, fullKey).Err()
}

// Clear evicts every cached result under this cache's prefix. It
// never touches keys outside the "izruna:" (or configured) namespace,
// so a shared Redis instance's other data is untouched.
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Exists checks if a key is cached without transferring its value.
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := r.config.Prefix + key

	count, err := r.client.Exists(ctx, fullKey).Result()
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Count scans the prefix and reports how many entries are currently
// cached, mirroring MemoryCache.Len for parity between backends.
func (r *RedisCache) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	return n, iter.Err()
}

// Close closes the underlying Redis connection. Registered as a
// server.ShutdownHook so a graceful shutdown doesn't leave the
// connection pool open.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
