package adapters

import (
	"context"
	"testing"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/status"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*RedisOrderRepository, *RedisInventory) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := store.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewRedisOrderRepository(s), NewRedisInventory(s)
}

func sampleOrder() *domain.Order {
	return domain.NewOrder("cust-1", []domain.LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Quantity: 2, UnitPrice: 500},
		{ShopID: "shop-b", SKU: "sku-2", Quantity: 1, UnitPrice: 900},
	}, domain.PricingSummary{Subtotal: 1900, Total: 1900, Currency: "INR"}, "pay-1")
}

func TestRedisOrderRepository_CreateReservesStock(t *testing.T) {
	repo, inv := newRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Shipments, 2)

	stock, err := inv.Stock(ctx, "shop-a", "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), stock)
}

func TestRedisOrderRepository_Get_NotFound(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRedisOrderRepository_Update_TrackingIndex(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.Create(ctx, order))

	err := repo.Update(ctx, order.ID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		s, err := o.ShipmentByShop("shop-a")
		if err != nil {
			return err
		}
		s.Carrier = "fedex"
		s.TrackingID = "TRK-1"
		fx.IndexTracking("TRK-1")
		return nil
	})
	require.NoError(t, err)

	id, err := repo.FindIDByTracking(ctx, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, id)

	_, err = repo.FindIDByTracking(ctx, "TRK-unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRedisOrderRepository_Update_RestockCommitsWithOrder(t *testing.T) {
	repo, inv := newRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.Create(ctx, order))

	err := repo.Update(ctx, order.ID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		o.MarkCancelled(o.UpdatedAt)
		for _, item := range o.Items {
			fx.Restock(item.ShopID, item.SKU, item.Quantity)
		}
		return nil
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Cancelled, got.Status)

	// Reservation from Create plus the restock nets to zero.
	stock, err := inv.Stock(ctx, "shop-a", "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestRedisOrderRepository_Update_MutateErrorWritesNothing(t *testing.T) {
	repo, inv := newRepo(t)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, repo.Create(ctx, order))

	err := repo.Update(ctx, order.ID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		o.Status = status.Cancelled
		fx.Restock("shop-a", "sku-1", 2)
		return domain.ErrNotCancellable
	})
	assert.ErrorIs(t, err, domain.ErrNotCancellable)

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Pending, got.Status)

	stock, err := inv.Stock(ctx, "shop-a", "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), stock)
}

func TestRedisInventory_ReserveRestore(t *testing.T) {
	_, inv := newRepo(t)
	ctx := context.Background()

	require.NoError(t, inv.Restore(ctx, "shop-x", "sku-9", 10))
	require.NoError(t, inv.Reserve(ctx, "shop-x", "sku-9", 4))

	stock, err := inv.Stock(ctx, "shop-x", "sku-9")
	require.NoError(t, err)
	assert.Equal(t, int64(6), stock)

	// Unknown items read as zero.
	stock, err = inv.Stock(ctx, "shop-x", "sku-unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}
