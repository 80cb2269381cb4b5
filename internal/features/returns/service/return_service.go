package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/logger"
	"fulfillment-core/internal/core/tasks"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	orderdomain "fulfillment-core/internal/features/orders/domain"
	orderports "fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/returns/domain"
	"fulfillment-core/internal/features/returns/ports"
	"fulfillment-core/internal/features/status"

	"go.uber.org/zap"
)

// ReturnService owns the return/refund workflow: customer-opened
// requests, shopkeeper decisions, and the best-effort reverse shipment
// that follows an approval.
type ReturnService struct {
	repo     ports.ReturnRepository
	orders   orderports.OrderRepository
	carriers []carrierports.Carrier
	runner   tasks.Runner
}

// NewReturnService creates a new ReturnService.
func NewReturnService(repo ports.ReturnRepository, orders orderports.OrderRepository, carriers []carrierports.Carrier, runner tasks.Runner) *ReturnService {
	return &ReturnService{
		repo:     repo,
		orders:   orders,
		carriers: carriers,
		runner:   runner,
	}
}

// CreateRequest is a customer's ask to return one product.
type CreateRequest struct {
	OrderID    string
	CustomerID string
	SKU        string
	Reason     string
	Remedy     domain.Remedy
	Pickup     carrierdomain.Address
}

// Create opens a return request. The requester must own the order, the
// order must be in a returnable state, and at most one open request may
// exist per (order, product).
func (s *ReturnService) Create(ctx context.Context, req CreateRequest) (*domain.ReturnRequest, error) {
	if req.Remedy != domain.RemedyReplacement && req.Remedy != domain.RemedyRefund {
		return nil, fmt.Errorf("remedy must be replacement or refund: %w", apperrors.ErrValidation)
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != req.CustomerID {
		return nil, fmt.Errorf("requester does not own order %s: %w", req.OrderID, apperrors.ErrValidation)
	}
	if !order.IsReturnable() {
		return nil, orderdomain.ErrNotReturnable
	}

	item, ok := lineItem(order, req.SKU)
	if !ok {
		return nil, fmt.Errorf("order %s has no item %s: %w", req.OrderID, req.SKU, apperrors.ErrNotFound)
	}

	ret := domain.NewReturnRequest(req.OrderID, item.ShopID, item.SKU, req.CustomerID, item.Quantity, req.Reason, req.Remedy, req.Pickup)
	if err := s.repo.Create(ctx, ret); err != nil {
		return nil, err
	}

	logger.Get().Info("Return request opened",
		zap.String("return_id", ret.ID),
		zap.String("order_id", ret.OrderID),
		zap.String("sku", ret.SKU),
		zap.String("remedy", string(ret.Remedy)),
	)
	return ret, nil
}

// Get loads a return request by id.
func (s *ReturnService) Get(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	return s.repo.Get(ctx, id)
}

// Decide applies the shopkeeper's decision. An approval commits the
// decision, the shipment transition and the inventory restore as one
// unit before any carrier call; the reverse shipment booking then runs
// off the request path.
func (s *ReturnService) Decide(ctx context.Context, returnID, shopkeeperID string, approve bool, note string) (*domain.ReturnRequest, error) {
	ret, err := s.repo.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.ShopID != shopkeeperID {
		return nil, fmt.Errorf("decider does not own return %s: %w", returnID, apperrors.ErrValidation)
	}
	if ret.IsTerminal() {
		return nil, domain.ErrNotDecidable
	}

	now := time.Now().UTC()

	if !approve {
		err = s.repo.Update(ctx, returnID, func(r *domain.ReturnRequest) error {
			return r.Reject(shopkeeperID, note, now)
		})
		if err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, returnID)
	}

	err = s.repo.Decide(ctx, returnID, ret.OrderID, func(r *domain.ReturnRequest, order *orderdomain.Order, fx *orderports.UpdateEffects) error {
		if err := r.Complete(shopkeeperID, note, now); err != nil {
			return err
		}

		shipment, err := order.ShipmentByShop(r.ShopID)
		if err != nil {
			return fmt.Errorf("%v: %w", err, apperrors.ErrNotFound)
		}
		target := status.ReturnRequested
		if r.Remedy == domain.RemedyRefund {
			target = status.Refunded
		}
		order.ApplyShipmentStatus(shipment, target, "", now, "return approved")

		fx.Restock(r.ShopID, r.SKU, r.Quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("Return approved",
		zap.String("return_id", returnID),
		zap.String("order_id", ret.OrderID),
	)

	s.runner.Go("return-reverse-shipment", func(taskCtx context.Context) {
		s.bookReverseShipment(taskCtx, returnID)
	})

	return s.repo.Get(ctx, returnID)
}

// RetryReverseShipment re-runs only the outbound reverse booking for a
// return whose previous attempt failed.
func (s *ReturnService) RetryReverseShipment(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	ret, err := s.repo.Get(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret.ReverseShipmentStatus != domain.ReverseFailed {
		return nil, fmt.Errorf("return %s has no failed reverse shipment: %w", returnID, apperrors.ErrValidation)
	}

	s.bookReverseShipment(ctx, returnID)
	return s.repo.Get(ctx, returnID)
}

// bookReverseShipment books the customer-to-seller pickup with the same
// carrier that delivered the shipment, then records the outcome. The
// committed decision is never touched; a failure only flags the return
// for operator retry.
func (s *ReturnService) bookReverseShipment(ctx context.Context, returnID string) {
	ret, err := s.repo.Get(ctx, returnID)
	if err != nil {
		logger.Get().Error("Reverse shipment: return lookup failed",
			zap.String("return_id", returnID),
			zap.Error(err),
		)
		return
	}

	booking, carrierName, err := s.createReverseBooking(ctx, ret)
	now := time.Now().UTC()
	if err != nil {
		logger.Get().Error("Reverse shipment booking failed",
			zap.String("return_id", ret.ID),
			zap.String("order_id", ret.OrderID),
			zap.Error(err),
		)
		if updateErr := s.repo.Update(ctx, ret.ID, func(r *domain.ReturnRequest) error {
			r.RecordReverseFailure(now)
			return nil
		}); updateErr != nil {
			logger.Get().Error("Failed to record reverse shipment failure",
				zap.String("return_id", ret.ID),
				zap.Error(updateErr),
			)
		}
		return
	}

	err = s.repo.Update(ctx, ret.ID, func(r *domain.ReturnRequest) error {
		r.RecordReverseBooking(carrierName, booking.TrackingID, booking.CarrierShipmentID, now)
		return nil
	})
	if err != nil {
		logger.Get().Error("Failed to record reverse shipment booking",
			zap.String("return_id", ret.ID),
			zap.Error(err),
		)
		return
	}

	logger.Get().Info("Reverse shipment booked",
		zap.String("return_id", ret.ID),
		zap.String("carrier", carrierName),
		zap.String("reverse_tracking_id", booking.TrackingID),
	)
}

// createReverseBooking resolves the delivering carrier and issues the
// outbound reverse booking call.
func (s *ReturnService) createReverseBooking(ctx context.Context, ret *domain.ReturnRequest) (*carrierdomain.Booking, string, error) {
	order, err := s.orders.Get(ctx, ret.OrderID)
	if err != nil {
		return nil, "", err
	}
	shipment, err := order.ShipmentByShop(ret.ShopID)
	if err != nil {
		return nil, "", err
	}
	carrier, ok := carrierports.ForName(s.carriers, shipment.Carrier)
	if !ok {
		return nil, "", fmt.Errorf("no carrier adapter for %q: %w", shipment.Carrier, apperrors.ErrValidation)
	}

	item, _ := lineItem(order, ret.SKU)
	booking, err := carrier.CreateReturnShipment(ctx, &carrierdomain.ReturnBookingRequest{
		OrderID:  ret.OrderID,
		ShopID:   ret.ShopID,
		ReturnID: ret.ID,
		Items: []carrierdomain.BookingItem{{
			SKU:      ret.SKU,
			Name:     item.Name,
			Quantity: ret.Quantity,
		}},
		Pickup: ret.Pickup,
	})
	if err != nil {
		return nil, "", err
	}
	return booking, carrier.Name(), nil
}

// lineItem finds the order item with the given SKU.
func lineItem(order *orderdomain.Order, sku string) (orderdomain.LineItem, bool) {
	for _, item := range order.Items {
		if item.SKU == sku {
			return item, true
		}
	}
	return orderdomain.LineItem{}, false
}
