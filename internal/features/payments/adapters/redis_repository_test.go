package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	"fulfillment-core/internal/features/payments/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *RedisPaymentRepository {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := store.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return NewRedisPaymentRepository(s)
}

func testPayment() *domain.Payment {
	return domain.NewPayment("cust-1", "razorpay", "order_rzp_1", "INR", domain.PurposeNewOrder,
		[]domain.CheckoutItem{{ShopID: "shop-a", SKU: "sku-1", Quantity: 1, UnitPrice: 1900}}, 1900)
}

func TestRedisPaymentRepository_CreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	payment := testPayment()

	require.NoError(t, repo.Create(ctx, payment))

	got, err := repo.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, payment.Amount, got.Amount)

	// The intent index lands in the same commit.
	id, err := repo.FindIDByGatewayOrder(ctx, "razorpay", "order_rzp_1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, id)
}

func TestRedisPaymentRepository_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.FindIDByGatewayOrder(context.Background(), "stripe", "pi_missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRedisPaymentRepository_Update(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	payment := testPayment()
	require.NoError(t, repo.Create(ctx, payment))

	err := repo.Update(ctx, payment.ID, func(p *domain.Payment) error {
		require.True(t, p.MarkPaid("rzp_pay_1", time.Now().UTC()))
		return nil
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Equal(t, "rzp_pay_1", got.GatewayPaymentID)
}

func TestRedisPaymentRepository_Update_MutateErrorWritesNothing(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	payment := testPayment()
	require.NoError(t, repo.Create(ctx, payment))

	boom := errors.New("boom")
	err := repo.Update(ctx, payment.ID, func(p *domain.Payment) error {
		p.Status = domain.StatusFailed
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}
