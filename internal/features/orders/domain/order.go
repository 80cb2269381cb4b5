package domain

import (
	"errors"
	"time"

	"fulfillment-core/internal/features/status"

	"github.com/google/uuid"
)

var (
	// ErrShipmentNotFound is returned when no shipment matches the lookup.
	ErrShipmentNotFound = errors.New("shipment not found on order")
	// ErrNotCancellable is returned when the order is already in a state
	// that forbids cancellation.
	ErrNotCancellable = errors.New("order cannot be cancelled in its current state")
	// ErrNotReturnable is returned when the order is not in a returnable state.
	ErrNotReturnable = errors.New("order is not in a returnable state")
)

// LineItem is a single purchased product, referencing the shop that sells it.
type LineItem struct {
	ShopID    string `json:"shop_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"` // minor currency units
}

// PricingSummary captures the totals computed at checkout.
// Amounts are minor currency units; pricing itself is computed elsewhere.
type PricingSummary struct {
	Subtotal    int64  `json:"subtotal"`
	ShippingFee int64  `json:"shipping_fee"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

// StatusChange is one entry in a shipment's status history.
type StatusChange struct {
	Status status.Status `json:"status"`
	At     time.Time     `json:"at"`
	Note   string        `json:"note,omitempty"`
}

// Shipment is one carrier booking covering the items of a single shop
// within an order. It has no identity outside its owning order; all
// mutation goes through the Order so the aggregate invariant holds.
type Shipment struct {
	ShopID            string        `json:"shop_id"`
	Carrier           string        `json:"carrier,omitempty"`
	TrackingID        string        `json:"tracking_id,omitempty"`
	CarrierShipmentID string        `json:"carrier_shipment_id,omitempty"`
	Status            status.Status `json:"status"`
	LastUpdated       time.Time     `json:"last_updated"`

	// Idempotency fingerprint: the last (event id, status) pair applied.
	LastEventID string        `json:"last_event_id,omitempty"`
	LastStatus  status.Status `json:"last_status,omitempty"`

	History []StatusChange `json:"history,omitempty"`
}

// IsBooked reports whether a carrier booking exists for this shipment.
func (s *Shipment) IsBooked() bool {
	return s.TrackingID != ""
}

// IsDuplicateEvent reports whether applying (eventID, st) would be a
// literal redelivery. Only providers that supply an event id get strict
// dedupe: the same status under a new event id is a legitimate resend.
// Without an event id the guard is advisory; setting X to X is harmless.
func (s *Shipment) IsDuplicateEvent(eventID string, st status.Status) bool {
	if eventID == "" {
		return false
	}
	return s.LastEventID == eventID && s.LastStatus == st
}

// Order is the aggregate root. Its Status is always derived from the
// shipment list, except for the pre-fulfillment cancellation path which
// sets the terminal status directly.
type Order struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	Items      []LineItem     `json:"items"`
	Shipments  []Shipment     `json:"shipments"`
	Pricing    PricingSummary `json:"pricing"`
	PaymentID  string         `json:"payment_id,omitempty"`
	Status     status.Status  `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewOrder creates an order from captured checkout items: one pending
// shipment per contributing shop, in item order.
func NewOrder(customerID string, items []LineItem, pricing PricingSummary, paymentID string) *Order {
	now := time.Now().UTC()

	var shipments []Shipment
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.ShopID] {
			continue
		}
		seen[item.ShopID] = true
		shipments = append(shipments, Shipment{
			ShopID:      item.ShopID,
			Status:      status.Pending,
			LastUpdated: now,
		})
	}

	return &Order{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Items:      items,
		Shipments:  shipments,
		Pricing:    pricing,
		PaymentID:  paymentID,
		Status:     status.Pending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ShipmentByTracking returns the shipment carrying the given tracking id.
func (o *Order) ShipmentByTracking(trackingID string) (*Shipment, error) {
	for i := range o.Shipments {
		if o.Shipments[i].TrackingID == trackingID {
			return &o.Shipments[i], nil
		}
	}
	return nil, ErrShipmentNotFound
}

// ShipmentByShop returns the shipment owned by the given shop.
func (o *Order) ShipmentByShop(shopID string) (*Shipment, error) {
	for i := range o.Shipments {
		if o.Shipments[i].ShopID == shopID {
			return &o.Shipments[i], nil
		}
	}
	return nil, ErrShipmentNotFound
}

// ShipmentStatuses returns the current status of every shipment.
func (o *Order) ShipmentStatuses() []status.Status {
	statuses := make([]status.Status, len(o.Shipments))
	for i := range o.Shipments {
		statuses[i] = o.Shipments[i].Status
	}
	return statuses
}

// ApplyShipmentStatus is the single update path for a shipment status
// change, used by both the inbound webhook pipeline and the outbound
// compensating workflows: it sets the status, records the idempotency
// fingerprint and history entry, and re-derives the order status.
func (o *Order) ApplyShipmentStatus(shipment *Shipment, st status.Status, eventID string, at time.Time, note string) {
	shipment.Status = st
	shipment.LastUpdated = at
	shipment.LastEventID = eventID
	shipment.LastStatus = st
	shipment.History = append(shipment.History, StatusChange{
		Status: st,
		At:     at,
		Note:   note,
	})

	o.Recalculate()
	o.UpdatedAt = at
}

// Recalculate re-derives the order status from its shipments.
func (o *Order) Recalculate() {
	o.Status = status.Aggregate(o.ShipmentStatuses())
}

// HasBookedShipments reports whether any shipment has a carrier booking.
func (o *Order) HasBookedShipments() bool {
	for i := range o.Shipments {
		if o.Shipments[i].IsBooked() {
			return true
		}
	}
	return false
}

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() bool {
	switch o.Status {
	case status.Cancelled, status.Delivered, status.Returned:
		return false
	default:
		return true
	}
}

// IsReturnable reports whether a return request may be opened.
func (o *Order) IsReturnable() bool {
	return o.Status == status.Delivered
}

// MarkCancelled sets the terminal cancelled status directly. Used only by
// the pre-fulfillment cancellation branch, where no shipments are booked.
func (o *Order) MarkCancelled(at time.Time) {
	for i := range o.Shipments {
		o.Shipments[i].Status = status.Cancelled
		o.Shipments[i].LastUpdated = at
		o.Shipments[i].History = append(o.Shipments[i].History, StatusChange{
			Status: status.Cancelled,
			At:     at,
			Note:   "order cancelled before fulfillment",
		})
	}
	o.Status = status.Cancelled
	o.UpdatedAt = at
}
