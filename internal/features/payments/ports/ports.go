package ports

import (
	"context"

	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/domain"
)

// EventType classifies a parsed gateway webhook.
type EventType string

const (
	// EventPaid reports a successful capture.
	EventPaid EventType = "paid"
	// EventFailed reports a terminal gateway-side failure.
	EventFailed EventType = "failed"
	// EventCancelled reports a gateway-side cancellation.
	EventCancelled EventType = "cancelled"
	// EventVerifying reports an unsettled outcome (customer dropped off).
	EventVerifying EventType = "verifying"
)

// PaymentEvent is a gateway webhook reduced to provider-neutral form.
// The three correlation fields are tried in priority order: gateway order
// id index, then the custom payment id echoed back, then metadata.
type PaymentEvent struct {
	Type             EventType
	GatewayOrderID   string
	GatewayPaymentID string
	// PaymentRef is our payment id when the gateway echoes it back in a
	// first-class field.
	PaymentRef string
	Amount     int64
	Metadata   map[string]string
}

// Gateway is one payment provider integration.
type Gateway interface {
	Name() string
	// VerifyWebhook authenticates the raw request before any parse.
	VerifyWebhook(rawBody []byte, headers carrierdomain.Headers) error
	// ParseEvent reduces a verified payload to a PaymentEvent.
	ParseEvent(rawBody []byte) (*PaymentEvent, error)
}

// ForName finds a gateway by name.
func ForName(gateways []Gateway, name string) (Gateway, bool) {
	for _, g := range gateways {
		if g.Name() == name {
			return g, true
		}
	}
	return nil, false
}

// PaymentRepository persists payments and the gateway order id index.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Get(ctx context.Context, id string) (*domain.Payment, error)
	// FindIDByGatewayOrder resolves a gateway order/intent id to our
	// payment id via the index written at checkout.
	FindIDByGatewayOrder(ctx context.Context, gatewayName, gatewayOrderID string) (string, error)
	// Update applies mutate to the payment under optimistic concurrency.
	Update(ctx context.Context, id string, mutate func(payment *domain.Payment) error) error
}

// OrderFinalizer converts a paid payment into a persisted order.
type OrderFinalizer interface {
	FinalizeOrder(ctx context.Context, payment *domain.Payment) (orderID string, err error)
}
