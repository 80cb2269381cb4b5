package adapters

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/ports"
)

// RazorpayAdapter implements ports.Gateway for Razorpay webhooks.
// The signature is a hex HMAC-SHA256 of the raw body.
type RazorpayAdapter struct {
	webhookSecret string
}

// NewRazorpayAdapter creates a new RazorpayAdapter.
func NewRazorpayAdapter(webhookSecret string) *RazorpayAdapter {
	return &RazorpayAdapter{webhookSecret: webhookSecret}
}

// Name implements ports.Gateway.
func (a *RazorpayAdapter) Name() string { return "razorpay" }

// VerifyWebhook implements ports.Gateway.
func (a *RazorpayAdapter) VerifyWebhook(rawBody []byte, headers carrierdomain.Headers) error {
	signature := headers.Get("X-Razorpay-Signature")
	if signature == "" {
		return fmt.Errorf("missing X-Razorpay-Signature header: %w", apperrors.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("razorpay signature mismatch: %w", apperrors.ErrAuthentication)
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Amount  int64             `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseEvent implements ports.Gateway.
func (a *RazorpayAdapter) ParseEvent(rawBody []byte) (*ports.PaymentEvent, error) {
	var payload razorpayWebhook
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed razorpay payload: %w", apperrors.ErrValidation)
	}

	var eventType ports.EventType
	switch payload.Event {
	case "payment.captured":
		eventType = ports.EventPaid
	case "payment.failed":
		eventType = ports.EventFailed
	default:
		return nil, fmt.Errorf("unhandled razorpay event %q: %w", payload.Event, apperrors.ErrValidation)
	}

	entity := payload.Payload.Payment.Entity
	if entity.OrderID == "" && entity.Notes["payment_id"] == "" {
		return nil, fmt.Errorf("razorpay event missing correlation key: %w", apperrors.ErrValidation)
	}

	return &ports.PaymentEvent{
		Type:             eventType,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		Amount:           entity.Amount,
		Metadata:         entity.Notes,
	}, nil
}
