package service

import (
	"context"
	"time"

	"fulfillment-core/internal/core/logger"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/status"

	"go.uber.org/zap"
)

// CancelOrder runs the compensating cancellation workflow.
//
// Pre-fulfillment orders (no carrier bookings) are cancelled directly.
// Orders with booked shipments get a best-effort outbound cancel per
// shipment first: one carrier failing must not stop the cancellation of
// the remaining shipments, and the local status becomes cancelled either
// way. The marketplace's view of the order is authoritative even when
// carrier-side cancellation needs manual follow-up.
//
// The inventory restoration and the status change commit as one atomic
// unit. The outbound carrier calls are outside it; external network calls
// cannot be transactional with local storage.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.CanCancel() {
		return domain.ErrNotCancellable
	}

	now := time.Now().UTC()

	if order.HasBookedShipments() {
		s.cancelCarrierBookings(ctx, order)
	}

	return s.repo.Update(ctx, orderID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		// Revalidate under the watch: a racing webhook may have moved
		// the order to a terminal state since the precondition check.
		if !o.CanCancel() {
			return domain.ErrNotCancellable
		}

		if !o.HasBookedShipments() {
			o.MarkCancelled(now)
		} else {
			for i := range o.Shipments {
				o.ApplyShipmentStatus(&o.Shipments[i], status.Cancelled, "", now, "order cancellation")
			}
		}

		for _, item := range o.Items {
			fx.Restock(item.ShopID, item.SKU, item.Quantity)
		}
		return nil
	})
}

// cancelCarrierBookings issues the outbound cancel call for every booked
// shipment. Failures are logged and isolated per shipment.
func (s *OrderService) cancelCarrierBookings(ctx context.Context, order *domain.Order) {
	for i := range order.Shipments {
		shipment := &order.Shipments[i]
		if !shipment.IsBooked() {
			continue
		}

		carrier, ok := carrierports.ForName(s.carriers, shipment.Carrier)
		if !ok {
			logger.Get().Warn("No carrier adapter for booked shipment",
				zap.String("order_id", order.ID),
				zap.String("carrier", shipment.Carrier),
			)
			continue
		}

		if err := carrier.CancelShipment(ctx, shipment.CarrierShipmentID); err != nil {
			logger.Get().Error("Outbound shipment cancel failed",
				zap.String("order_id", order.ID),
				zap.String("carrier", shipment.Carrier),
				zap.String("tracking_id", shipment.TrackingID),
				zap.Error(err),
			)
		}
	}
}
