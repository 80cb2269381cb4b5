package domain

import (
	"testing"
	"time"

	"fulfillment-core/internal/features/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoShopOrder() *Order {
	return NewOrder("cust-1", []LineItem{
		{ShopID: "shop-a", SKU: "sku-1", Name: "Widget", Quantity: 2, UnitPrice: 500},
		{ShopID: "shop-b", SKU: "sku-2", Name: "Gadget", Quantity: 1, UnitPrice: 1500},
		{ShopID: "shop-a", SKU: "sku-3", Name: "Gizmo", Quantity: 1, UnitPrice: 300},
	}, PricingSummary{Subtotal: 2800, Total: 2800, Currency: "INR"}, "pay-1")
}

func TestNewOrder_OneShipmentPerShop(t *testing.T) {
	order := twoShopOrder()

	require.Len(t, order.Shipments, 2)
	assert.Equal(t, "shop-a", order.Shipments[0].ShopID)
	assert.Equal(t, "shop-b", order.Shipments[1].ShopID)
	assert.Equal(t, status.Pending, order.Status)
	assert.NotEmpty(t, order.ID)

	for _, s := range order.Shipments {
		assert.Equal(t, status.Pending, s.Status)
		assert.False(t, s.IsBooked())
	}
}

func TestApplyShipmentStatus_ReaggregatesOrder(t *testing.T) {
	order := twoShopOrder()
	shipment, err := order.ShipmentByShop("shop-a")
	require.NoError(t, err)

	at := time.Now().UTC()
	order.ApplyShipmentStatus(shipment, status.Shipped, "evt-1", at, "")

	assert.Equal(t, status.Shipped, shipment.Status)
	assert.Equal(t, "evt-1", shipment.LastEventID)
	assert.Equal(t, status.Shipped, shipment.LastStatus)
	require.Len(t, shipment.History, 1)
	assert.Equal(t, status.Shipped, shipment.History[0].Status)

	// shop-b is still pending, shipped wins via precedence.
	assert.Equal(t, status.Shipped, order.Status)
}

func TestApplyShipmentStatus_AllDelivered(t *testing.T) {
	order := twoShopOrder()
	at := time.Now().UTC()

	for i := range order.Shipments {
		order.ApplyShipmentStatus(&order.Shipments[i], status.Delivered, "", at, "")
	}

	assert.Equal(t, status.Delivered, order.Status)
}

func TestIsDuplicateEvent(t *testing.T) {
	s := &Shipment{LastEventID: "evt-9", LastStatus: status.InTransit}

	// Same event id and same resulting status: literal redelivery.
	assert.True(t, s.IsDuplicateEvent("evt-9", status.InTransit))

	// Same status under a new event id is a legitimate resend.
	assert.False(t, s.IsDuplicateEvent("evt-10", status.InTransit))

	// Same event id with a different status is not a duplicate.
	assert.False(t, s.IsDuplicateEvent("evt-9", status.Delivered))

	// No event id: advisory only.
	assert.False(t, s.IsDuplicateEvent("", status.InTransit))
}

func TestShipmentByTracking(t *testing.T) {
	order := twoShopOrder()
	order.Shipments[1].TrackingID = "TRK-42"

	s, err := order.ShipmentByTracking("TRK-42")
	require.NoError(t, err)
	assert.Equal(t, "shop-b", s.ShopID)

	_, err = order.ShipmentByTracking("TRK-missing")
	assert.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestCanCancel(t *testing.T) {
	order := twoShopOrder()
	assert.True(t, order.CanCancel())

	order.Status = status.Delivered
	assert.False(t, order.CanCancel())

	order.Status = status.Cancelled
	assert.False(t, order.CanCancel())

	order.Status = status.Returned
	assert.False(t, order.CanCancel())

	order.Status = status.InTransit
	assert.True(t, order.CanCancel())
}

func TestMarkCancelled(t *testing.T) {
	order := twoShopOrder()
	at := time.Now().UTC()

	order.MarkCancelled(at)

	assert.Equal(t, status.Cancelled, order.Status)
	for _, s := range order.Shipments {
		assert.Equal(t, status.Cancelled, s.Status)
		require.NotEmpty(t, s.History)
	}
}
