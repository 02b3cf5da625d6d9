// Package ratelimit caps how many transcription requests a single
// client (identified by IP by default, see
// internal/web/middleware.RateLimit) can make per minute, protecting
// the rule engine from an unbounded batch client.
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter is satisfied by both TokenBucket (single-process) and
// RedisRateLimiter (shared across replicas); cmd/izruna/serve.go picks
// one based on RateLimitConfig.Distributed.
type RateLimiter interface {
	// Allow reports whether the request identified by key (the
	// client's IP by default, as produced by the middleware's KeyFunc)
	// should proceed.
	Allow(ctx context.Context, key string) (*RateLimitInfo, error)
}

// RateLimitInfo carries the state the middleware renders into
// X-RateLimit-* response headers.
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the rate limit window resets
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}
