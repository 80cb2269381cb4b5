package adapters

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/ports"
)

// StripeAdapter implements ports.Gateway for Stripe webhooks. The
// Stripe-Signature header carries `t=<ts>,v1=<hex hmac>` pairs; the
// signed payload is "<ts>.<raw body>".
type StripeAdapter struct {
	webhookSecret string
}

// NewStripeAdapter creates a new StripeAdapter.
func NewStripeAdapter(webhookSecret string) *StripeAdapter {
	return &StripeAdapter{webhookSecret: webhookSecret}
}

// Name implements ports.Gateway.
func (a *StripeAdapter) Name() string { return "stripe" }

// VerifyWebhook implements ports.Gateway.
func (a *StripeAdapter) VerifyWebhook(rawBody []byte, headers carrierdomain.Headers) error {
	header := headers.Get("Stripe-Signature")
	if header == "" {
		return fmt.Errorf("missing Stripe-Signature header: %w", apperrors.ErrAuthentication)
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			candidates = append(candidates, v)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return fmt.Errorf("incomplete Stripe-Signature header: %w", apperrors.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("stripe signature mismatch: %w", apperrors.ErrAuthentication)
}

type stripeWebhook struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Amount   int64             `json:"amount"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent implements ports.Gateway.
func (a *StripeAdapter) ParseEvent(rawBody []byte) (*ports.PaymentEvent, error) {
	var payload stripeWebhook
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed stripe payload: %w", apperrors.ErrValidation)
	}

	var eventType ports.EventType
	switch payload.Type {
	case "payment_intent.succeeded":
		eventType = ports.EventPaid
	case "payment_intent.payment_failed":
		eventType = ports.EventFailed
	case "payment_intent.canceled":
		eventType = ports.EventCancelled
	default:
		return nil, fmt.Errorf("unhandled stripe event %q: %w", payload.Type, apperrors.ErrValidation)
	}

	object := payload.Data.Object
	if object.ID == "" && object.Metadata["payment_id"] == "" {
		return nil, fmt.Errorf("stripe event missing correlation key: %w", apperrors.ErrValidation)
	}

	return &ports.PaymentEvent{
		Type:             eventType,
		GatewayOrderID:   object.ID,
		GatewayPaymentID: object.ID,
		Amount:           object.Amount,
		Metadata:         object.Metadata,
	}, nil
}
