package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/logger"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/domain"
	"fulfillment-core/internal/features/payments/ports"

	"go.uber.org/zap"
)

// codGateway is the pseudo-gateway for cash on delivery. COD checkouts
// finalize their order immediately; no webhook ever arrives for them.
const codGateway = "cod"

// PaymentService owns the payment lifecycle: checkout capture and the
// gateway webhook reconciliation pipeline.
type PaymentService struct {
	repo      ports.PaymentRepository
	gateways  []ports.Gateway
	finalizer ports.OrderFinalizer
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(repo ports.PaymentRepository, gateways []ports.Gateway, finalizer ports.OrderFinalizer) *PaymentService {
	return &PaymentService{
		repo:      repo,
		gateways:  gateways,
		finalizer: finalizer,
	}
}

// CheckoutRequest begins a checkout attempt.
type CheckoutRequest struct {
	CustomerID     string
	GatewayName    string
	GatewayOrderID string
	Currency       string
	Amount         int64
	Items          []domain.CheckoutItem
}

// Checkout captures a checkout into a pending payment. The item snapshot
// taken here is what finalization will use; the live cart is never read
// again. COD finalizes the order immediately.
func (s *PaymentService) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Payment, error) {
	if req.CustomerID == "" || len(req.Items) == 0 || req.Amount <= 0 {
		return nil, fmt.Errorf("checkout requires a customer, items and a positive amount: %w", apperrors.ErrValidation)
	}
	if req.GatewayName != codGateway {
		if _, ok := ports.ForName(s.gateways, req.GatewayName); !ok {
			return nil, fmt.Errorf("unsupported gateway %q: %w", req.GatewayName, apperrors.ErrValidation)
		}
	}

	payment := domain.NewPayment(req.CustomerID, req.GatewayName, req.GatewayOrderID, req.Currency, domain.PurposeNewOrder, req.Items, req.Amount)

	if req.GatewayName == codGateway {
		orderID, err := s.finalizer.FinalizeOrder(ctx, payment)
		if err != nil {
			return nil, err
		}
		payment.AttachOrder(orderID, time.Now().UTC())
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	logger.Get().Info("Checkout captured",
		zap.String("payment_id", payment.ID),
		zap.String("gateway", payment.GatewayName),
		zap.Int64("amount", payment.Amount),
	)
	return payment, nil
}

// GetPayment loads a payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return s.repo.Get(ctx, id)
}

// ProcessGatewayEvent runs the reconciliation pipeline for one gateway
// webhook delivery: authenticate, parse, correlate, check the amount,
// apply the transition, and finalize the order when the payment's
// purpose calls for one.
func (s *PaymentService) ProcessGatewayEvent(ctx context.Context, gatewayName string, rawBody []byte, headers carrierdomain.Headers) error {
	gateway, ok := ports.ForName(s.gateways, gatewayName)
	if !ok {
		return fmt.Errorf("unknown gateway %q: %w", gatewayName, apperrors.ErrNotFound)
	}

	if err := gateway.VerifyWebhook(rawBody, headers); err != nil {
		logger.Get().Warn("Gateway webhook verification failed",
			zap.String("gateway", gatewayName),
			zap.Error(err),
		)
		return err
	}

	event, err := gateway.ParseEvent(rawBody)
	if err != nil {
		return err
	}

	payment, err := s.locatePayment(ctx, gatewayName, event)
	if err != nil {
		return err
	}

	switch event.Type {
	case ports.EventPaid:
		return s.applyPaid(ctx, payment, event)
	case ports.EventVerifying:
		return s.applyTransition(ctx, payment.ID, func(p *domain.Payment) bool {
			return p.MarkVerifying(time.Now().UTC())
		})
	case ports.EventFailed:
		return s.applyTransition(ctx, payment.ID, func(p *domain.Payment) bool {
			return p.MarkFailed(time.Now().UTC())
		})
	case ports.EventCancelled:
		return s.applyTransition(ctx, payment.ID, func(p *domain.Payment) bool {
			return p.MarkCancelled(time.Now().UTC())
		})
	default:
		return fmt.Errorf("unhandled event type %q: %w", event.Type, apperrors.ErrValidation)
	}
}

// locatePayment resolves the event to a payment, trying the correlation
// keys in priority order: gateway order id index, the custom payment id
// echoed back by the gateway, then a metadata lookup.
func (s *PaymentService) locatePayment(ctx context.Context, gatewayName string, event *ports.PaymentEvent) (*domain.Payment, error) {
	if event.GatewayOrderID != "" {
		id, err := s.repo.FindIDByGatewayOrder(ctx, gatewayName, event.GatewayOrderID)
		if err == nil {
			return s.repo.Get(ctx, id)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	if event.PaymentRef != "" {
		payment, err := s.repo.Get(ctx, event.PaymentRef)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	if ref := event.Metadata["payment_id"]; ref != "" {
		return s.repo.Get(ctx, ref)
	}

	return nil, fmt.Errorf("no payment matches gateway event: %w", apperrors.ErrNotFound)
}

// applyPaid marks a payment paid and, for new-order payments, finalizes
// the order from the captured checkout items. Finalization failure is an
// operational concern, not a webhook failure: the payment is already
// durably paid, so the gateway must not redeliver.
func (s *PaymentService) applyPaid(ctx context.Context, payment *domain.Payment, event *ports.PaymentEvent) error {
	if event.Amount != payment.Amount {
		return fmt.Errorf("expected %d got %d for payment %s: %w",
			payment.Amount, event.Amount, payment.ID, apperrors.ErrAmountMismatch)
	}

	if payment.IsPaid() {
		logger.Get().Info("Duplicate paid webhook acknowledged",
			zap.String("payment_id", payment.ID),
			zap.String("gateway", payment.GatewayName),
		)
		return nil
	}

	now := time.Now().UTC()
	alreadyPaid := false
	err := s.repo.Update(ctx, payment.ID, func(p *domain.Payment) error {
		if p.IsPaid() {
			// A racing delivery won; nothing left to do.
			alreadyPaid = true
			return nil
		}
		if !p.MarkPaid(event.GatewayPaymentID, now) {
			return fmt.Errorf("payment %s is %s, cannot mark paid: %w", p.ID, p.Status, apperrors.ErrValidation)
		}
		*payment = *p
		return nil
	})
	if err != nil || alreadyPaid {
		return err
	}

	logger.Get().Info("Payment marked paid",
		zap.String("payment_id", payment.ID),
		zap.String("gateway", payment.GatewayName),
		zap.String("gateway_payment_id", event.GatewayPaymentID),
	)

	if payment.Purpose != domain.PurposeNewOrder || payment.OrderID != "" {
		return nil
	}

	orderID, err := s.finalizer.FinalizeOrder(ctx, payment)
	if err != nil {
		logger.Get().Error("Order finalization failed after payment",
			zap.String("payment_id", payment.ID),
			zap.Error(err),
		)
		return nil
	}

	return s.repo.Update(ctx, payment.ID, func(p *domain.Payment) error {
		p.AttachOrder(orderID, time.Now().UTC())
		return nil
	})
}

// applyTransition runs a guarded status transition; a refused transition
// is acknowledged as a no-op.
func (s *PaymentService) applyTransition(ctx context.Context, paymentID string, transition func(p *domain.Payment) bool) error {
	return s.repo.Update(ctx, paymentID, func(p *domain.Payment) error {
		if !transition(p) {
			logger.Get().Info("Payment transition ignored",
				zap.String("payment_id", p.ID),
				zap.String("status", string(p.Status)),
			)
		}
		return nil
	})
}
