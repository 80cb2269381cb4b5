package adapters

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/ports"
)

// CashfreeAdapter implements ports.Gateway for Cashfree webhooks. The
// signature is a base64 HMAC-SHA256 of timestamp+body, with the
// timestamp carried in its own header.
type CashfreeAdapter struct {
	webhookSecret string
}

// NewCashfreeAdapter creates a new CashfreeAdapter.
func NewCashfreeAdapter(webhookSecret string) *CashfreeAdapter {
	return &CashfreeAdapter{webhookSecret: webhookSecret}
}

// Name implements ports.Gateway.
func (a *CashfreeAdapter) Name() string { return "cashfree" }

// VerifyWebhook implements ports.Gateway.
func (a *CashfreeAdapter) VerifyWebhook(rawBody []byte, headers carrierdomain.Headers) error {
	signature := headers.Get("x-webhook-signature")
	timestamp := headers.Get("x-webhook-timestamp")
	if signature == "" || timestamp == "" {
		return fmt.Errorf("missing cashfree signature headers: %w", apperrors.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("cashfree signature mismatch: %w", apperrors.ErrAuthentication)
	}
	return nil
}

type cashfreeWebhook struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID     string            `json:"order_id"`
			OrderAmount float64           `json:"order_amount"`
			OrderTags   map[string]string `json:"order_tags"`
		} `json:"order"`
		Payment struct {
			CfPaymentID json.Number `json:"cf_payment_id"`
		} `json:"payment"`
	} `json:"data"`
}

// ParseEvent implements ports.Gateway.
func (a *CashfreeAdapter) ParseEvent(rawBody []byte) (*ports.PaymentEvent, error) {
	var payload cashfreeWebhook
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed cashfree payload: %w", apperrors.ErrValidation)
	}

	var eventType ports.EventType
	switch payload.Type {
	case "PAYMENT_SUCCESS_WEBHOOK":
		eventType = ports.EventPaid
	case "PAYMENT_FAILED_WEBHOOK":
		eventType = ports.EventFailed
	case "PAYMENT_USER_DROPPED_WEBHOOK":
		// The customer abandoned the gateway flow; the outcome is not
		// settled until a later success/failure webhook.
		eventType = ports.EventVerifying
	default:
		return nil, fmt.Errorf("unhandled cashfree event %q: %w", payload.Type, apperrors.ErrValidation)
	}

	data := payload.Data
	if data.Order.OrderID == "" && data.Order.OrderTags["payment_id"] == "" {
		return nil, fmt.Errorf("cashfree event missing correlation key: %w", apperrors.ErrValidation)
	}

	// Cashfree reports amounts in rupees; convert to minor units.
	amount := int64(math.Round(data.Order.OrderAmount * 100))

	return &ports.PaymentEvent{
		Type:             eventType,
		GatewayOrderID:   data.Order.OrderID,
		GatewayPaymentID: data.Payment.CfPaymentID.String(),
		Amount:           amount,
		Metadata:         data.Order.OrderTags,
	}, nil
}
