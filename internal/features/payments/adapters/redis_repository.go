package adapters

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	"fulfillment-core/internal/features/payments/domain"
)

func paymentKey(id string) string { return "payment:" + id }

func intentKey(gatewayName, gatewayOrderID string) string {
	return "payment:intent:" + gatewayName + ":" + gatewayOrderID
}

// RedisPaymentRepository implements ports.PaymentRepository. Payments are
// JSON documents; the gateway order id resolves through an index key
// written in the same commit as the document.
type RedisPaymentRepository struct {
	store store.Store
}

// NewRedisPaymentRepository creates a new RedisPaymentRepository.
func NewRedisPaymentRepository(s store.Store) *RedisPaymentRepository {
	return &RedisPaymentRepository{store: s}
}

// Create stores a new payment and its gateway order index atomically.
func (r *RedisPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	key := paymentKey(payment.ID)
	err := r.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.SetJSON(key, payment); err != nil {
			return err
		}
		if payment.GatewayOrderID != "" {
			tx.Set(intentKey(payment.GatewayName, payment.GatewayOrderID), payment.ID)
		}
		return nil
	}, key)
	if err != nil {
		return fmt.Errorf("failed to create payment %s: %w", payment.ID, err)
	}
	return nil
}

// Get loads a payment by id.
func (r *RedisPaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := r.store.GetJSON(ctx, paymentKey(id), &payment); err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load payment %s: %w", id, err)
	}
	return &payment, nil
}

// FindIDByGatewayOrder resolves a gateway order/intent id to a payment id.
func (r *RedisPaymentRepository) FindIDByGatewayOrder(ctx context.Context, gatewayName, gatewayOrderID string) (string, error) {
	id, err := r.store.Get(ctx, intentKey(gatewayName, gatewayOrderID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", fmt.Errorf("gateway order %s/%s: %w", gatewayName, gatewayOrderID, apperrors.ErrNotFound)
		}
		return "", fmt.Errorf("failed to resolve gateway order %s/%s: %w", gatewayName, gatewayOrderID, err)
	}
	return id, nil
}

// Update mutates a payment under optimistic concurrency. Racing webhook
// redeliveries serialize on the payment key.
func (r *RedisPaymentRepository) Update(ctx context.Context, id string, mutate func(payment *domain.Payment) error) error {
	key := paymentKey(id)
	return r.store.Update(ctx, func(tx store.Tx) error {
		var payment domain.Payment
		if err := tx.GetJSON(ctx, key, &payment); err != nil {
			if errors.Is(err, store.ErrKeyNotFound) {
				return fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
			}
			return err
		}

		if err := mutate(&payment); err != nil {
			return err
		}

		return tx.SetJSON(key, &payment)
	}, key)
}
