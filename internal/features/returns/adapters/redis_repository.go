package adapters

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	orderdomain "fulfillment-core/internal/features/orders/domain"
	orderports "fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/returns/domain"
)

func returnKey(id string) string { return "return:" + id }

// openKey guards the one-open-request-per-(order, product) rule.
func openKey(orderID, sku string) string { return "return:open:" + orderID + ":" + sku }

// Shared key layout with the order repository, so Decide can commit the
// return and the order in one transaction.
func orderKey(id string) string     { return "order:" + id }
func stockKey(shopID string) string { return "stock:" + shopID }
func trackingKey(id string) string  { return "tracking:" + id }

// RedisReturnRepository implements ports.ReturnRepository.
type RedisReturnRepository struct {
	store store.Store
}

// NewRedisReturnRepository creates a new RedisReturnRepository.
func NewRedisReturnRepository(s store.Store) *RedisReturnRepository {
	return &RedisReturnRepository{store: s}
}

// Create stores a new request and claims the open-request slot for its
// (order, product) pair in the same commit.
func (r *RedisReturnRepository) Create(ctx context.Context, req *domain.ReturnRequest) error {
	open := openKey(req.OrderID, req.SKU)
	err := r.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Get(ctx, open); err == nil {
			return fmt.Errorf("open return request already exists for %s/%s: %w",
				req.OrderID, req.SKU, apperrors.ErrValidation)
		} else if !errors.Is(err, store.ErrKeyNotFound) {
			return err
		}

		if err := tx.SetJSON(returnKey(req.ID), req); err != nil {
			return err
		}
		tx.Set(open, req.ID)
		return nil
	}, open)
	if err != nil {
		return err
	}
	return nil
}

// Get loads a return request by id.
func (r *RedisReturnRepository) Get(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	var req domain.ReturnRequest
	if err := r.store.GetJSON(ctx, returnKey(id), &req); err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("return request %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load return request %s: %w", id, err)
	}
	return &req, nil
}

// Update mutates a return request under optimistic concurrency. Reaching
// a terminal status releases the open-request slot in the same commit.
func (r *RedisReturnRepository) Update(ctx context.Context, id string, mutate func(req *domain.ReturnRequest) error) error {
	key := returnKey(id)
	return r.store.Update(ctx, func(tx store.Tx) error {
		var req domain.ReturnRequest
		if err := tx.GetJSON(ctx, key, &req); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return fmt.Errorf("return request %s: %w", id, apperrors.ErrNotFound)
			}
			return err
		}

		wasTerminal := req.IsTerminal()
		if err := mutate(&req); err != nil {
			return err
		}

		if err := tx.SetJSON(key, &req); err != nil {
			return err
		}
		if req.IsTerminal() && !wasTerminal {
			tx.Delete(openKey(req.OrderID, req.SKU))
		}
		return nil
	}, key)
}

// Decide loads the return request and its order under one watch and
// commits both documents, plus any queued effects, atomically.
func (r *RedisReturnRepository) Decide(ctx context.Context, returnID, orderID string, mutate func(req *domain.ReturnRequest, order *orderdomain.Order, fx *orderports.UpdateEffects) error) error {
	retKey := returnKey(returnID)
	ordKey := orderKey(orderID)
	return r.store.Update(ctx, func(tx store.Tx) error {
		var req domain.ReturnRequest
		if err := tx.GetJSON(ctx, retKey, &req); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return fmt.Errorf("return request %s: %w", returnID, apperrors.ErrNotFound)
			}
			return err
		}
		var order orderdomain.Order
		if err := tx.GetJSON(ctx, ordKey, &order); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return fmt.Errorf("order %s: %w", orderID, apperrors.ErrNotFound)
			}
			return err
		}

		wasTerminal := req.IsTerminal()
		var fx orderports.UpdateEffects
		if err := mutate(&req, &order, &fx); err != nil {
			return err
		}

		if err := tx.SetJSON(retKey, &req); err != nil {
			return err
		}
		if err := tx.SetJSON(ordKey, &order); err != nil {
			return err
		}
		for _, trackingID := range fx.TrackingIndexes {
			tx.Set(trackingKey(trackingID), order.ID)
		}
		for _, restock := range fx.Restocks {
			tx.HIncrBy(stockKey(restock.ShopID), restock.SKU, int64(restock.Quantity))
		}
		if req.IsTerminal() && !wasTerminal {
			tx.Delete(openKey(req.OrderID, req.SKU))
		}
		return nil
	}, retKey, ordKey)
}
