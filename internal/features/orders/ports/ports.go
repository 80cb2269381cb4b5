package ports

import (
	"context"

	"fulfillment-core/internal/features/orders/domain"
)

// Restock is an inventory restoration for one line item.
type Restock struct {
	ShopID   string
	SKU      string
	Quantity int
}

// UpdateEffects collects side writes that must land in the same atomic
// commit as the order document: tracking-id index entries and inventory
// restores. Outbound carrier calls are explicitly not part of this unit.
type UpdateEffects struct {
	TrackingIndexes []string
	Restocks        []Restock
}

// IndexTracking registers a new tracking id for the order being updated.
func (fx *UpdateEffects) IndexTracking(trackingID string) {
	fx.TrackingIndexes = append(fx.TrackingIndexes, trackingID)
}

// Restock queues an inventory restoration.
func (fx *UpdateEffects) Restock(shopID, sku string, quantity int) {
	fx.Restocks = append(fx.Restocks, Restock{ShopID: shopID, SKU: sku, Quantity: quantity})
}

// OrderRepository persists the Order aggregate.
type OrderRepository interface {
	// Create stores a new order and reserves inventory for its items
	// in the same commit.
	Create(ctx context.Context, order *domain.Order) error

	// Get loads an order by id.
	Get(ctx context.Context, id string) (*domain.Order, error)

	// FindIDByTracking resolves a carrier tracking id to an order id.
	FindIDByTracking(ctx context.Context, trackingID string) (string, error)

	// Update mutates an order under optimistic concurrency. The order
	// document and every effect queued on fx commit atomically; on a
	// lost race mutate is re-run against fresh state.
	Update(ctx context.Context, id string, mutate func(order *domain.Order, fx *UpdateEffects) error) error
}

// Inventory tracks per-shop stock counters. Reservation happens at order
// creation; restoration at cancellation and return approval.
type Inventory interface {
	// Reserve decrements stock for a line item.
	Reserve(ctx context.Context, shopID, sku string, quantity int) error

	// Restore increments stock for a line item.
	Restore(ctx context.Context, shopID, sku string, quantity int) error

	// Stock returns the current counter for a line item.
	Stock(ctx context.Context, shopID, sku string) (int64, error)
}
