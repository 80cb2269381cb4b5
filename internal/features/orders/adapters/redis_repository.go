package adapters

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/orders/ports"
)

const (
	orderKeyPrefix    = "order:"
	trackingKeyPrefix = "tracking:"
)

func orderKey(id string) string     { return orderKeyPrefix + id }
func trackingKey(id string) string  { return trackingKeyPrefix + id }
func stockKey(shopID string) string { return "stock:" + shopID }

// RedisOrderRepository implements ports.OrderRepository on the document store.
// Orders are JSON documents embedding their shipment array; tracking ids
// resolve through plain index keys written in the same commit that books
// the shipment.
type RedisOrderRepository struct {
	store store.Store
}

// NewRedisOrderRepository creates a new RedisOrderRepository.
func NewRedisOrderRepository(s store.Store) *RedisOrderRepository {
	return &RedisOrderRepository{store: s}
}

// Create stores a new order and reserves stock for every line item in the
// same commit.
func (r *RedisOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	err := r.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.SetJSON(orderKey(order.ID), order); err != nil {
			return err
		}
		for _, item := range order.Items {
			tx.HIncrBy(stockKey(item.ShopID), item.SKU, -int64(item.Quantity))
		}
		return nil
	}, orderKey(order.ID))
	if err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}
	return nil
}

// Get loads an order by id.
func (r *RedisOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := r.store.GetJSON(ctx, orderKey(id), &order); err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return &order, nil
}

// FindIDByTracking resolves a carrier tracking id to an order id.
func (r *RedisOrderRepository) FindIDByTracking(ctx context.Context, trackingID string) (string, error) {
	id, err := r.store.Get(ctx, trackingKey(trackingID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", fmt.Errorf("tracking %s: %w", trackingID, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to resolve tracking %s: %w", trackingID, err)
	}
	return id, nil
}

// Update mutates an order under optimistic concurrency. Queued effects
// (tracking indexes, inventory restores) land in the same MULTI/EXEC as
// the order document, or not at all.
func (r *RedisOrderRepository) Update(ctx context.Context, id string, mutate func(order *domain.Order, fx *ports.UpdateEffects) error) error {
	key := orderKey(id)
	err := r.store.Update(ctx, func(tx store.Tx) error {
		var order domain.Order
		if err := tx.GetJSON(ctx, key, &order); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return fmt.Errorf("order %s: %w", id, apperrors.ErrNotFound)
			}
			return err
		}

		var fx ports.UpdateEffects
		if err := mutate(&order, &fx); err != nil {
			return err
		}

		if err := tx.SetJSON(key, &order); err != nil {
			return err
		}
		for _, trackingID := range fx.TrackingIndexes {
			tx.Set(trackingKey(trackingID), order.ID)
		}
		for _, restock := range fx.Restocks {
			tx.HIncrBy(stockKey(restock.ShopID), restock.SKU, int64(restock.Quantity))
		}
		return nil
	}, key)
	if err != nil {
		return err
	}
	return nil
}
