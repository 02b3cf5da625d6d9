package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/conduit-lang/izruna/internal/web/cache"
)

// CachingOrchestrator decorates an Orchestrator with a result cache
// keyed by word + separator, so repeat lookups of the same word skip
// the rule engine entirely.
type CachingOrchestrator struct {
	*Orchestrator
	cache cache.Cache
	ttl   time.Duration
}

// NewCaching wraps o with c, caching Transcribe results for ttl.
func NewCaching(o *Orchestrator, c cache.Cache, ttl time.Duration) *CachingOrchestrator {
	return &CachingOrchestrator{Orchestrator: o, cache: c, ttl: ttl}
}

// Transcribe checks the cache before falling through to the wrapped
// Orchestrator, and populates the cache on a miss. Cache errors other
// than a miss are treated the same as a miss: the engine still runs
// and the result still reaches the caller, it's just not memoized.
func (c *CachingOrchestrator) Transcribe(ctx context.Context, word, sep string) (string, error) {
	key := word + "\x00" + sep

	if cached, err := c.cache.Get(ctx, key); err == nil {
		return string(cached), nil
	} else if !cache.IsCacheMiss(err) {
		_ = err // degrade to a live lookup below
	}

	result, err := c.Orchestrator.Transcribe(word, sep)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, []byte(result), c.ttl); err != nil && !errors.Is(err, context.Canceled) {
		// best effort; a failed write just means the next lookup misses too
	}

	return result, nil
}
