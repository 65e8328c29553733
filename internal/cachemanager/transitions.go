package cachemanager

import (
	"context"
	"time"
)

// Transitions remembers the last value reported per key so callers only act
// on changes. Entries expire after ttl, after which the next value counts as
// a change again.
type Transitions[K ~string] struct {
	cache CacheManager[K, string]
	ttl   time.Duration
}

func NewTransitions[K ~string](cache CacheManager[K, string], ttl time.Duration) *Transitions[K] {
	return &Transitions[K]{cache: cache, ttl: ttl}
}

// Changed records value for key and reports whether it differs from the
// previously recorded one.
func (t *Transitions[K]) Changed(ctx context.Context, key K, value string) bool {
	prev, ok := t.cache.GetWithRefresh(ctx, key, t.ttl)
	if ok && prev == value {
		return false
	}
	t.cache.Set(ctx, key, value, t.ttl)
	return true
}

// Forget drops every recorded value.
func (t *Transitions[K]) Forget(ctx context.Context) {
	_ = t.cache.Flush(ctx)
}
