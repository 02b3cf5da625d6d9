// Package store holds the Redis-backed exception override store
// (component M): admin-submitted word → engine-alphabet transcription
// pairs that take precedence over the file-loaded exception
// dictionary without requiring a file edit and process restart.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "izruna:exception:"

// OverrideStore is the Redis-backed exception override store.
// Grounded on internal/web/cache's RedisCache shape, trimmed to the
// two operations the exception workflow needs.
type OverrideStore struct {
	client *redis.Client
	prefix string
}

// NewOverrideStore wraps an existing Redis client. The client's
// lifecycle (Close) stays with whoever constructed it.
func NewOverrideStore(client *redis.Client) *OverrideStore {
	return &OverrideStore{client: client, prefix: defaultKeyPrefix}
}

func (s *OverrideStore) key(word string) string {
	return s.prefix + word
}

// Lookup implements orchestrator.ExceptionOverrides. It uses a short
// internal timeout rather than the caller's context because exception
// lookup sits on the hot path of every transcription request and must
// not let a slow Redis round-trip stall the whole pipeline; a failed
// or slow lookup degrades to "no override" rather than an error.
func (s *OverrideStore) Lookup(word string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	v, err := s.client.Get(ctx, s.key(word)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

// Set persists an admin-submitted override. Call sites are expected
// to have already validated transcription against the active rule
// charset before calling Set.
func (s *OverrideStore) Set(ctx context.Context, word, transcription string) error {
	if word == "" {
		return fmt.Errorf("override word must not be empty")
	}
	return s.client.Set(ctx, s.key(word), transcription, 0).Err()
}

// Delete removes a previously submitted override, reverting lookups
// for word back to the file-loaded exceptions map (or the rule
// engine, if word isn't in it either).
func (s *OverrideStore) Delete(ctx context.Context, word string) error {
	return s.client.Del(ctx, s.key(word)).Err()
}
