package cache

import (
	"context"
	"time"
)

// Cache is the subset of Redis the dispatcher relies on: plain keys and counters,
// the status hash, the pending-job list and short-lived locks.
type Cache interface {
	BasicOps
	HashOps
	ListOps
	LockOps

	// Ping verifies the cache connection is alive
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// BasicOps defines key-value and counter operations
type BasicOps interface {
	// Get returns "" with a nil error when the key does not exist
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair; a zero ttl means no expiration
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys
	Del(ctx context.Context, keys ...string) error

	// Expire sets a timeout on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Incr increments the integer value of a key by 1 and returns the new value
	Incr(ctx context.Context, key string) (int64, error)
}

// HashOps defines hash operations
type HashOps interface {
	HSet(ctx context.Context, key, field string, value interface{}) error

	// HGet returns "" with a nil error when the field does not exist
	HGet(ctx context.Context, key, field string) (string, error)

	HDel(ctx context.Context, key string, fields ...string) error
}

// ListOps defines list operations
type ListOps interface {
	LPush(ctx context.Context, key string, values ...interface{}) error
	RPush(ctx context.Context, key string, values ...interface{}) error

	// RPop returns "" with a nil error when the list is empty
	RPop(ctx context.Context, key string) (string, error)

	LLen(ctx context.Context, key string) (int64, error)
}

// LockOps defines best-effort distributed lock operations
type LockOps interface {
	// TryLock acquires the lock if it is free; it never blocks
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	Unlock(ctx context.Context, key string) error
}
