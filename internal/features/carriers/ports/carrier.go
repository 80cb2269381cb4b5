package ports

import (
	"context"

	"fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/status"
)

// Carrier is the closed per-provider variant set: one implementation per
// supported shipping provider, dispatched by name. Adding a carrier means
// adding one adapter; the pipeline never changes.
type Carrier interface {
	// Name returns the carrier identifier used in routes and shipment records.
	Name() string

	// VerifyWebhook authenticates a webhook against the raw, unparsed
	// body. Returns apperrors.ErrAuthentication (wrapped) on failure;
	// the payload is never interpreted before this passes.
	VerifyWebhook(rawBody []byte, headers domain.Headers) error

	// ParseWebhook extracts the provider-neutral event from the raw body
	// and headers (some carriers carry the event id in a header).
	ParseWebhook(rawBody []byte, headers domain.Headers) (*domain.ShipmentEvent, error)

	// Translate maps a vendor status code onto the canonical enum.
	// ok is false for codes outside the carrier's table; those events are
	// acknowledged and ignored.
	Translate(vendorStatus string) (st status.Status, ok bool)

	// CreateShipment books a forward shipment.
	CreateShipment(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error)

	// CancelShipment cancels a carrier-side booking.
	CancelShipment(ctx context.Context, carrierShipmentID string) error

	// CreateReturnShipment books a reverse shipment for a return.
	CreateReturnShipment(ctx context.Context, req *domain.ReturnBookingRequest) (*domain.Booking, error)

	// Track fetches the carrier's current view of a shipment.
	Track(ctx context.Context, trackingID string) (*domain.TrackingHistory, error)
}

// ForName selects the carrier matching name from the closed set.
func ForName(carriers []Carrier, name string) (Carrier, bool) {
	for _, c := range carriers {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
