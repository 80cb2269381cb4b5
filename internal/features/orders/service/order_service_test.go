package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/store"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	"fulfillment-core/internal/features/orders/adapters"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/status"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCarrier is a scriptable Carrier implementation for service tests.
type fakeCarrier struct {
	name         string
	booking      *carrierdomain.Booking
	bookingErr   error
	cancelErr    error
	cancelCalls  []string
	returnResult *carrierdomain.Booking
	returnErr    error
	trackResult  *carrierdomain.TrackingHistory
	trackErr     error
}

func (f *fakeCarrier) Name() string { return f.name }

func (f *fakeCarrier) VerifyWebhook(rawBody []byte, headers carrierdomain.Headers) error {
	return nil
}

func (f *fakeCarrier) ParseWebhook(rawBody []byte, headers carrierdomain.Headers) (*carrierdomain.ShipmentEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCarrier) Translate(vendorStatus string) (status.Status, bool) {
	return status.Pending, false
}

func (f *fakeCarrier) CreateShipment(ctx context.Context, req *carrierdomain.BookingRequest) (*carrierdomain.Booking, error) {
	if f.bookingErr != nil {
		return nil, f.bookingErr
	}
	return f.booking, nil
}

func (f *fakeCarrier) CancelShipment(ctx context.Context, carrierShipmentID string) error {
	f.cancelCalls = append(f.cancelCalls, carrierShipmentID)
	return f.cancelErr
}

func (f *fakeCarrier) CreateReturnShipment(ctx context.Context, req *carrierdomain.ReturnBookingRequest) (*carrierdomain.Booking, error) {
	if f.returnErr != nil {
		return nil, f.returnErr
	}
	return f.returnResult, nil
}

func (f *fakeCarrier) Track(ctx context.Context, trackingID string) (*carrierdomain.TrackingHistory, error) {
	if f.trackErr != nil {
		return nil, f.trackErr
	}
	return f.trackResult, nil
}

func newService(t *testing.T, carriers ...carrierports.Carrier) (*OrderService, *adapters.RedisOrderRepository, *adapters.RedisInventory) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := store.NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repo := adapters.NewRedisOrderRepository(s)
	inv := adapters.NewRedisInventory(s)
	return NewOrderService(repo, carriers), repo, inv
}

func testItems() []domain.LineItem {
	return []domain.LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Name: "Widget", Quantity: 2, UnitPrice: 500},
		{ShopID: "shop-b", SKU: "sku-2", Name: "Gadget", Quantity: 1, UnitPrice: 900},
	}
}

func testPricing() domain.PricingSummary {
	return domain.PricingSummary{Subtotal: 1900, Total: 1900, Currency: "INR"}
}

func TestCreateOrder(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", testItems(), testPricing(), "pay-1")
	require.NoError(t, err)

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, status.Pending, got.Status)
	assert.Len(t, got.Shipments, 2)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.CreateOrder(context.Background(), "", testItems(), testPricing(), "pay-1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateOrder(context.Background(), "cust-1", nil, testPricing(), "pay-1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBookShipment(t *testing.T) {
	carrier := &fakeCarrier{
		name:    "fedex",
		booking: &carrierdomain.Booking{TrackingID: "TRK-1", CarrierShipmentID: "SH-1"},
	}
	svc, repo, _ := newService(t, carrier)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", testItems(), testPricing(), "pay-1")
	require.NoError(t, err)

	require.NoError(t, svc.BookShipment(ctx, order.ID, "shop-a", "fedex", carrierdomain.Address{City: "Pune"}))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)

	shipment, err := got.ShipmentByShop("shop-a")
	require.NoError(t, err)
	assert.Equal(t, "fedex", shipment.Carrier)
	assert.Equal(t, "TRK-1", shipment.TrackingID)
	assert.Equal(t, status.Confirmed, shipment.Status)

	// Tracking index resolves back to the order.
	id, err := repo.FindIDByTracking(ctx, "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, id)

	// Double booking rejected.
	err = svc.BookShipment(ctx, order.ID, "shop-a", "fedex", carrierdomain.Address{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBookShipment_UnsupportedCarrier(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.BookShipment(context.Background(), "order-x", "shop-a", "pigeon", carrierdomain.Address{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestApplyShipmentUpdate_ReaggregatesOrder(t *testing.T) {
	carrier := &fakeCarrier{
		name:    "fedex",
		booking: &carrierdomain.Booking{TrackingID: "TRK-1", CarrierShipmentID: "SH-1"},
	}
	svc, repo, _ := newService(t, carrier)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", []domain.LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Quantity: 1, UnitPrice: 500},
	}, testPricing(), "pay-1")
	require.NoError(t, err)
	require.NoError(t, svc.BookShipment(ctx, order.ID, "shop-a", "fedex", carrierdomain.Address{}))

	require.NoError(t, svc.ApplyShipmentUpdate(ctx, "TRK-1", status.Shipped, "", time.Now().UTC()))
	require.NoError(t, svc.ApplyShipmentUpdate(ctx, "TRK-1", status.Delivered, "", time.Now().UTC()))

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	// The only shipment is delivered, so the order is delivered.
	assert.Equal(t, status.Delivered, got.Status)
}

func TestApplyShipmentUpdate_DuplicateEvent(t *testing.T) {
	carrier := &fakeCarrier{
		name:    "ups",
		booking: &carrierdomain.Booking{TrackingID: "1Z1", CarrierShipmentID: "SH-1"},
	}
	svc, repo, _ := newService(t, carrier)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", testItems(), testPricing(), "pay-1")
	require.NoError(t, err)
	require.NoError(t, svc.BookShipment(ctx, order.ID, "shop-a", "ups", carrierdomain.Address{}))

	require.NoError(t, svc.ApplyShipmentUpdate(ctx, "1Z1", status.InTransit, "evt-1", time.Now().UTC()))

	before, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)

	// Literal redelivery: same event id, same status.
	err = svc.ApplyShipmentUpdate(ctx, "1Z1", status.InTransit, "evt-1", time.Now().UTC())
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEvent)

	after, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	shipBefore, _ := before.ShipmentByTracking("1Z1")
	shipAfter, _ := after.ShipmentByTracking("1Z1")
	assert.Equal(t, shipBefore.History, shipAfter.History)

	// Same status under a new event id is applied.
	require.NoError(t, svc.ApplyShipmentUpdate(ctx, "1Z1", status.InTransit, "evt-2", time.Now().UTC()))

	final, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	shipFinal, _ := final.ShipmentByTracking("1Z1")
	assert.Equal(t, "evt-2", shipFinal.LastEventID)
	assert.Len(t, shipFinal.History, len(shipBefore.History)+1)
}

func TestApplyShipmentUpdate_UnknownTracking(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.ApplyShipmentUpdate(context.Background(), "TRK-missing", status.Delivered, "", time.Time{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTrackShipment(t *testing.T) {
	carrier := &fakeCarrier{
		name:        "fedex",
		trackResult: &carrierdomain.TrackingHistory{CurrentStatus: status.InTransit},
	}
	svc, _, _ := newService(t, carrier)

	history, err := svc.TrackShipment(context.Background(), "fedex", "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, status.InTransit, history.CurrentStatus)

	_, err = svc.TrackShipment(context.Background(), "pigeon", "TRK-1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
