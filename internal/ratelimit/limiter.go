// Package ratelimit provides a fixed-window counter keyed by arbitrary
// strings, over a pluggable Store. Counters expire lazily: a hit after
// the window has passed starts a fresh window rather than relying on
// active eviction.
package ratelimit

import (
	"context"
	"time"
)

// Store holds windowed counters. Increment is the only mutating hit
// path and MUST be atomic at the storage level, since concurrent
// requests may target the same key.
type Store interface {
	// Increment adds one hit for key and returns the post-increment
	// count together with the moment the current window resets. A hit
	// against an expired or absent key starts a new window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
	// Peek returns the current count and reset time without recording a
	// hit. An absent or expired key reports a zero count.
	Peek(ctx context.Context, key string) (int64, time.Time, error)
	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error
	// Clear removes all counters.
	Clear(ctx context.Context) error
}

// Limiter answers allow/deny for a key against a limit and window.
type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow records a hit for key and reports whether the post-increment
// count is still within limit. The hit is recorded even when the answer
// is false.
func (l *Limiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	count, _, err := l.store.Increment(ctx, key, window)
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

// RemainingAttempts returns how many hits key has left in its current
// window, never below zero.
func (l *Limiter) RemainingAttempts(ctx context.Context, key string, limit int64) (int64, error) {
	count, _, err := l.store.Peek(ctx, key)
	if err != nil {
		return 0, err
	}
	if count >= limit {
		return 0, nil
	}
	return limit - count, nil
}

// ResetTime returns when the window for key resets. For a key with no
// active window the reset time is now plus one full window.
func (l *Limiter) ResetTime(ctx context.Context, key string, window time.Duration) (time.Time, error) {
	count, resetAt, err := l.store.Peek(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	if count == 0 {
		return l.now().Add(window), nil
	}
	return resetAt, nil
}

// Reset drops the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}

// Clear drops all counters.
func (l *Limiter) Clear(ctx context.Context) error {
	return l.store.Clear(ctx)
}
