package ports

import (
	"context"
	"time"

	"fulfillment-core/internal/features/status"
)

// ShipmentUpdater applies a translated carrier event to the owning order.
type ShipmentUpdater interface {
	ApplyShipmentUpdate(ctx context.Context, trackingID string, st status.Status, eventID string, occurredAt time.Time) error
}
