package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a key does not exist in the store.
var ErrKeyNotFound = errors.New("key not found")

// ErrConflict is returned when an optimistic update keeps losing the race
// after the adapter's retry budget is exhausted.
var ErrConflict = errors.New("concurrent update conflict")

// Tx is the view of the store inside an optimistic transaction.
// Reads execute immediately on the watched connection; writes are queued
// and committed atomically when the transaction function returns.
type Tx interface {
	// GetJSON reads a JSON document into dest.
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// Get reads a plain string value (index keys).
	Get(ctx context.Context, key string) (string, error)

	// SetJSON queues a JSON document write.
	SetJSON(key string, value interface{}) error

	// Set queues a plain string write.
	Set(key, value string)

	// HIncrBy queues a hash field increment (inventory counters).
	HIncrBy(key, field string, delta int64)

	// Delete queues a key removal.
	Delete(key string)
}

// Store is the document store port backing every repository.
// Orders, payments and return requests are JSON documents; secondary
// lookups are plain index keys; inventory is a hash of stock counters.
type Store interface {
	// GetJSON reads a JSON document into dest. Returns ErrKeyNotFound
	// when the key does not exist.
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON writes a JSON document.
	SetJSON(ctx context.Context, key string, value interface{}) error

	// Get reads a plain string value. Returns ErrKeyNotFound when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set writes a plain string value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// HIncrBy increments a hash field and returns the new value.
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	// HGet reads a hash field. Returns ErrKeyNotFound when absent.
	HGet(ctx context.Context, key, field string) (string, error)

	// Update runs fn under optimistic concurrency control on the given
	// keys: fn reads the current state through the Tx and queues its
	// writes; if any watched key changes before commit, fn is retried.
	// All queued writes land atomically or not at all.
	Update(ctx context.Context, fn func(tx Tx) error, keys ...string) error

	// Ping checks if the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
