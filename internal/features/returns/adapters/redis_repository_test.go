package adapters

import (
	"context"
	"testing"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	orderdomain "fulfillment-core/internal/features/orders/domain"
	orderports "fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/returns/domain"
	"fulfillment-core/internal/features/status"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := store.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openRequest(orderID string) *domain.ReturnRequest {
	return domain.NewReturnRequest(orderID, "shop-a", "sku-1", "cust-1", 1,
		"damaged", domain.RemedyRefund, carrierdomain.Address{City: "Pune"})
}

func TestRedisReturnRepository_CreateAndGet(t *testing.T) {
	repo := NewRedisReturnRepository(newStore(t))
	ctx := context.Background()

	req := openRequest("order-1")
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, domain.ReverseNone, got.ReverseShipmentStatus)
}

func TestRedisReturnRepository_Create_OneOpenPerOrderProduct(t *testing.T) {
	repo := NewRedisReturnRepository(newStore(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, openRequest("order-1")))

	err := repo.Create(ctx, openRequest("order-1"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// A different product on the same order is fine.
	other := openRequest("order-1")
	other.SKU = "sku-2"
	assert.NoError(t, repo.Create(ctx, other))
}

func TestRedisReturnRepository_Update_TerminalReleasesSlot(t *testing.T) {
	repo := NewRedisReturnRepository(newStore(t))
	ctx := context.Background()

	req := openRequest("order-1")
	require.NoError(t, repo.Create(ctx, req))

	err := repo.Update(ctx, req.ID, func(r *domain.ReturnRequest) error {
		return r.Reject("shop-a", "no", time.Now().UTC())
	})
	require.NoError(t, err)

	// Slot is free again.
	assert.NoError(t, repo.Create(ctx, openRequest("order-1")))
}

func TestRedisReturnRepository_Decide_CommitsBothDocuments(t *testing.T) {
	s := newStore(t)
	repo := NewRedisReturnRepository(s)
	ctx := context.Background()

	order := orderdomain.NewOrder("cust-1", []orderdomain.LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Quantity: 1, UnitPrice: 500},
	}, orderdomain.PricingSummary{}, "pay-1")
	order.Shipments[0].TrackingID = "TRK-1"
	order.ApplyShipmentStatus(&order.Shipments[0], status.Delivered, "", time.Now().UTC(), "")
	require.NoError(t, s.SetJSON(ctx, orderKey(order.ID), order))

	req := openRequest(order.ID)
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now().UTC()
	err := repo.Decide(ctx, req.ID, order.ID, func(r *domain.ReturnRequest, o *orderdomain.Order, fx *orderports.UpdateEffects) error {
		if err := r.Complete("shop-a", "ok", now); err != nil {
			return err
		}
		o.ApplyShipmentStatus(&o.Shipments[0], status.Refunded, "", now, "")
		fx.Restock("shop-a", "sku-1", 1)
		return nil
	})
	require.NoError(t, err)

	gotReq, err := repo.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, gotReq.Status)

	var gotOrder orderdomain.Order
	require.NoError(t, s.GetJSON(ctx, orderKey(order.ID), &gotOrder))
	assert.Equal(t, status.Refunded, gotOrder.Shipments[0].Status)

	stock, err := s.HGet(ctx, stockKey("shop-a"), "sku-1")
	require.NoError(t, err)
	assert.Equal(t, "1", stock)
}

func TestRedisReturnRepository_Decide_MutateErrorWritesNothing(t *testing.T) {
	s := newStore(t)
	repo := NewRedisReturnRepository(s)
	ctx := context.Background()

	order := orderdomain.NewOrder("cust-1", []orderdomain.LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Quantity: 1, UnitPrice: 500},
	}, orderdomain.PricingSummary{}, "pay-1")
	require.NoError(t, s.SetJSON(ctx, orderKey(order.ID), order))

	req := openRequest(order.ID)
	require.NoError(t, repo.Create(ctx, req))

	err := repo.Decide(ctx, req.ID, order.ID, func(r *domain.ReturnRequest, o *orderdomain.Order, fx *orderports.UpdateEffects) error {
		r.Status = domain.StatusCompleted
		o.Status = status.Returned
		return apperrors.ErrValidation
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	gotReq, err := repo.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, gotReq.Status)

	var gotOrder orderdomain.Order
	require.NoError(t, s.GetJSON(ctx, orderKey(order.ID), &gotOrder))
	assert.NotEqual(t, status.Returned, gotOrder.Status)
}
