package adapters

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"fulfillment-core/internal/core/store"
)

// RedisInventory implements ports.Inventory on per-shop stock hashes.
// It shares key layout with the order repository so cancellation can
// restore stock inside the order's own commit.
type RedisInventory struct {
	store store.Store
}

// NewRedisInventory creates a new RedisInventory.
func NewRedisInventory(s store.Store) *RedisInventory {
	return &RedisInventory{store: s}
}

// Reserve decrements stock for a line item.
func (r *RedisInventory) Reserve(ctx context.Context, shopID, sku string, quantity int) error {
	if _, err := r.store.HIncrBy(ctx, stockKey(shopID), sku, -int64(quantity)); err != nil {
		return fmt.Errorf("failed to reserve stock for %s/%s: %w", shopID, sku, err)
	}
	return nil
}

// Restore increments stock for a line item.
func (r *RedisInventory) Restore(ctx context.Context, shopID, sku string, quantity int) error {
	if _, err := r.store.HIncrBy(ctx, stockKey(shopID), sku, int64(quantity)); err != nil {
		return fmt.Errorf("failed to restore stock for %s/%s: %w", shopID, sku, err)
	}
	return nil
}

// Stock returns the current counter for a line item. A missing field
// counts as zero stock.
func (r *RedisInventory) Stock(ctx context.Context, shopID, sku string) (int64, error) {
	raw, err := r.store.HGet(ctx, stockKey(shopID), sku)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt stock counter for %s/%s: %w", shopID, sku, err)
	}
	return val, nil
}
