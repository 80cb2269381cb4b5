package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/logger"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/status"

	"go.uber.org/zap"
)

// OrderService owns the order lifecycle: finalization, carrier booking,
// status application and cancellation. It is the only writer of the Order
// aggregate besides the returns workflow, which goes through the same
// domain methods.
type OrderService struct {
	repo     ports.OrderRepository
	carriers []carrierports.Carrier
}

// NewOrderService creates a new OrderService.
func NewOrderService(repo ports.OrderRepository, carriers []carrierports.Carrier) *OrderService {
	return &OrderService{
		repo:     repo,
		carriers: carriers,
	}
}

// CreateOrder finalizes a paid (or cash-on-delivery) checkout into a
// persisted order: one pending shipment per contributing shop, inventory
// reserved in the same commit.
func (s *OrderService) CreateOrder(ctx context.Context, customerID string, items []domain.LineItem, pricing domain.PricingSummary, paymentID string) (*domain.Order, error) {
	if customerID == "" || len(items) == 0 {
		return nil, fmt.Errorf("order requires a customer and at least one item: %w", apperrors.ErrValidation)
	}

	order := domain.NewOrder(customerID, items, pricing, paymentID)
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	logger.Get().Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.Int("shipments", len(order.Shipments)),
	)
	return order, nil
}

// GetOrder loads an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// BookShipment books the given shop's shipment with a carrier. The
// outbound call runs first (it yields the tracking id); the tracking index
// and shipment fields then commit atomically.
func (s *OrderService) BookShipment(ctx context.Context, orderID, shopID, carrierName string, delivery carrierdomain.Address) error {
	carrier, ok := carrierports.ForName(s.carriers, carrierName)
	if !ok {
		return fmt.Errorf("unsupported carrier %q: %w", carrierName, apperrors.ErrValidation)
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	shipment, err := order.ShipmentByShop(shopID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, apperrors.ErrNotFound)
	}
	if shipment.IsBooked() {
		return fmt.Errorf("shipment for shop %s already booked: %w", shopID, apperrors.ErrValidation)
	}

	booking, err := carrier.CreateShipment(ctx, &carrierdomain.BookingRequest{
		OrderID:  orderID,
		ShopID:   shopID,
		Items:    bookingItems(order, shopID),
		Delivery: delivery,
	})
	if err != nil {
		return err
	}

	return s.repo.Update(ctx, orderID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		sh, err := o.ShipmentByShop(shopID)
		if err != nil {
			return err
		}
		sh.Carrier = carrierName
		sh.TrackingID = booking.TrackingID
		sh.CarrierShipmentID = booking.CarrierShipmentID
		o.ApplyShipmentStatus(sh, status.Confirmed, "", time.Now().UTC(), "carrier booking created")
		fx.IndexTracking(booking.TrackingID)
		return nil
	})
}

// ApplyShipmentUpdate is the update applier: the single code path through
// which any shipment status change lands, whether it came from an inbound
// webhook or an outbound compensating workflow. It persists the new status
// and fingerprint and re-derives the aggregate order status atomically.
//
// A duplicate redelivery returns apperrors.ErrDuplicateEvent; callers
// acknowledge it as success.
func (s *OrderService) ApplyShipmentUpdate(ctx context.Context, trackingID string, st status.Status, eventID string, occurredAt time.Time) error {
	orderID, err := s.repo.FindIDByTracking(ctx, trackingID)
	if err != nil {
		return err
	}

	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return s.repo.Update(ctx, orderID, func(o *domain.Order, fx *ports.UpdateEffects) error {
		shipment, err := o.ShipmentByTracking(trackingID)
		if err != nil {
			return fmt.Errorf("%v: %w", err, apperrors.ErrNotFound)
		}
		if shipment.IsDuplicateEvent(eventID, st) {
			return apperrors.ErrDuplicateEvent
		}
		o.ApplyShipmentStatus(shipment, st, eventID, occurredAt, "")
		return nil
	})
}

// TrackShipment fetches the carrier's live view of a shipment.
func (s *OrderService) TrackShipment(ctx context.Context, carrierName, trackingID string) (*carrierdomain.TrackingHistory, error) {
	carrier, ok := carrierports.ForName(s.carriers, carrierName)
	if !ok {
		return nil, fmt.Errorf("unsupported carrier %q: %w", carrierName, apperrors.ErrValidation)
	}
	return carrier.Track(ctx, trackingID)
}

// bookingItems collects the order's line items belonging to one shop.
func bookingItems(order *domain.Order, shopID string) []carrierdomain.BookingItem {
	var items []carrierdomain.BookingItem
	for _, item := range order.Items {
		if item.ShopID != shopID {
			continue
		}
		items = append(items, carrierdomain.BookingItem{
			SKU:      item.SKU,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}
	return items
}
