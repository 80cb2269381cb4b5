package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// maxConflictRetries bounds how often an optimistic update is retried when
// a watched key changes underneath it.
const maxConflictRetries = 5

// RedisStore implements the Store interface using Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store adapter.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &RedisStore{client: client}, nil
}

// GetJSON reads a JSON document into dest.
func (r *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

// SetJSON writes a JSON document.
func (r *RedisStore) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal key %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Get reads a plain string value.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set writes a plain string value.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// HIncrBy increments a hash field and returns the new value.
func (r *RedisStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	val, err := r.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s.%s: %w", key, field, err)
	}
	return val, nil
}

// HGet reads a hash field.
func (r *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	val, err := r.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: %s.%s", ErrKeyNotFound, key, field)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s.%s: %w", key, field, err)
	}
	return val, nil
}

// Update runs fn under WATCH on the given keys and commits its queued
// writes in a single MULTI/EXEC. On a lost race it retries with fresh reads.
func (r *RedisStore) Update(ctx context.Context, fn func(tx Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := r.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &redisTx{tx: rtx}
			if err := fn(t); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, write := range t.writes {
					write(ctx, pipe)
				}
				return nil
			})
			return err
		}, keys...)

		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return ErrConflict
}

// Ping checks if Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// redisTx implements Tx on a watched connection. Reads hit the watched
// connection immediately; writes are queued for the MULTI/EXEC commit.
type redisTx struct {
	tx     *redis.Tx
	writes []func(ctx context.Context, pipe redis.Pipeliner)
}

func (t *redisTx) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := t.tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

func (t *redisTx) Get(ctx context.Context, key string) (string, error) {
	val, err := t.tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (t *redisTx) SetJSON(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal key %s: %w", key, err)
	}
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Set(ctx, key, data, 0)
	})
	return nil
}

func (t *redisTx) Set(key, value string) {
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Set(ctx, key, value, 0)
	})
}

func (t *redisTx) HIncrBy(key, field string, delta int64) {
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, key, field, delta)
	})
}

func (t *redisTx) Delete(key string) {
	t.writes = append(t.writes, func(ctx context.Context, pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
	})
}
