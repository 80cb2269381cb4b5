package domain

import (
	"strings"
	"time"

	"fulfillment-core/internal/features/status"
)

// Headers is a case-insensitive view of the inbound webhook headers.
type Headers map[string]string

// NewHeaders builds Headers from a raw multi-value header map, keeping the
// first value of each key.
func NewHeaders(raw map[string][]string) Headers {
	h := make(Headers, len(raw))
	for k, v := range raw {
		if len(v) > 0 {
			h[strings.ToLower(k)] = v[0]
		}
	}
	return h
}

// Get returns the header value for key, case-insensitively.
func (h Headers) Get(key string) string {
	return h[strings.ToLower(key)]
}

// ShipmentEvent is a carrier webhook payload reduced to provider-neutral
// form. VendorStatus is still in the carrier's vocabulary; translation to
// the canonical enum happens in the pipeline.
type ShipmentEvent struct {
	// TrackingID correlates the event with a booked shipment.
	TrackingID string
	// EventID is the provider's delivery id. Empty for carriers that do
	// not supply one; those get advisory idempotency only.
	EventID string
	// VendorStatus is the carrier's own status code.
	VendorStatus string
	// OccurredAt is the provider-reported event time; zero when absent.
	OccurredAt time.Time
}

// Address is a delivery or pickup location.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// BookingItem is one item inside a carrier booking.
type BookingItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// BookingRequest asks a carrier to create a forward shipment.
type BookingRequest struct {
	OrderID  string
	ShopID   string
	Items    []BookingItem
	Delivery Address
}

// ReturnBookingRequest asks a carrier to create a reverse shipment
// (customer back to seller).
type ReturnBookingRequest struct {
	OrderID  string
	ShopID   string
	ReturnID string
	Items    []BookingItem
	Pickup   Address
}

// Booking is the carrier-side result of a shipment creation call.
type Booking struct {
	TrackingID        string
	CarrierShipmentID string
}

// TrackingEvent is one scan in a carrier's tracking feed.
type TrackingEvent struct {
	At          time.Time `json:"at"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	VendorCode  string    `json:"vendor_code"`
}

// TrackingHistory is the outbound track-shipment result, with the current
// leg status already translated onto the canonical enum.
type TrackingHistory struct {
	CurrentStatus status.Status   `json:"current_status"`
	Events        []TrackingEvent `json:"events"`
}
