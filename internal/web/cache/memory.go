package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process transcription result cache: a map with
// per-entry TTLs, used by `izruna serve` when izruna.yml's
// cache.enabled is false.
type MemoryCache struct {
	data   sync.Map
	config CacheConfig
	cancel context.CancelFunc
}

// cacheItem is a single cached transcription result plus its expiry.
type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache creates an in-memory cache using izruna's default
// configuration (one-hour TTL, "izruna:" key prefix).
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultCacheConfig())
}

// NewMemoryCacheWithConfig creates an in-memory cache with a custom
// configuration and starts its background expiry sweep.
func NewMemoryCacheWithConfig(config CacheConfig) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		config: config,
		cancel: cancel,
	}

	go mc.cleanupExpired(ctx)

	return mc
}

// Get retrieves a cached transcription result, returning ErrCacheMiss
// if key is absent or has expired.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key

	value, ok := m.data.Load(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	item := value.(cacheItem)

	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		m.data.Delete(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}

	return item.value, nil
}

// Set stores a transcription result under key. A zero ttl falls back
// to the cache's configured default TTL.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := cacheItem{
		value: value,
	}

	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.data.Store(fullKey, item)
	return nil
}

// Delete evicts a single cached result.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key
	m.data.Delete(fullKey)
	return nil
}

// Clear evicts every cached result.
func (m *MemoryCache) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.data.Range(func(key, value interface{}) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

// Exists checks if a key is cached without returning its value.
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	fullKey := m.config.Prefix + key

	value, ok := m.data.Load(fullKey)
	if !ok {
		return false, nil
	}

	item := value.(cacheItem)

	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		m.data.Delete(fullKey)
		return false, nil
	}

	return true, nil
}

// Len reports the number of entries currently held, expired or not.
func (m *MemoryCache) Len() int {
	n := 0
	m.data.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Close stops the background expiry sweep. Registered as a
// server.ShutdownHook so a graceful shutdown doesn't leak the
// goroutine.
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

// cleanupExpired periodically sweeps expired entries so a
// high-churn word list doesn't grow the map unbounded between reads.
func (m *MemoryCache) cleanupExpired(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.data.Range(func(key, value interface{}) bool {
				item := value.(cacheItem)
				if !item.expiration.IsZero() && now.After(item.expiration) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
