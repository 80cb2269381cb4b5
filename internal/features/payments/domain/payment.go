package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	// StatusPending is the initial state set at checkout.
	StatusPending PaymentStatus = "pending"
	// StatusVerifying marks a payment whose outcome the gateway has not
	// settled yet (e.g. the customer dropped off mid-flow).
	StatusVerifying PaymentStatus = "verifying"
	// StatusPaid is terminal success. It is never reverted.
	StatusPaid PaymentStatus = "paid"
	// StatusFailed is a terminal failure reported by the gateway.
	StatusFailed PaymentStatus = "failed"
	// StatusCancelled is a terminal cancellation reported by the gateway.
	StatusCancelled PaymentStatus = "cancelled"
)

// PurposeNewOrder marks payments whose success finalizes a new order.
const PurposeNewOrder = "new_order"

// CheckoutItem is a line item captured at checkout time. Finalization
// always works from this snapshot, never from a live cart.
type CheckoutItem struct {
	ShopID    string `json:"shop_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Payment is one checkout attempt against a payment gateway. Amounts are
// integer minor units (paise, cents).
type Payment struct {
	ID               string         `json:"id"`
	CustomerID       string         `json:"customer_id"`
	GatewayName      string         `json:"gateway_name"`
	GatewayOrderID   string         `json:"gateway_order_id"`
	GatewayPaymentID string         `json:"gateway_payment_id,omitempty"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Status           PaymentStatus  `json:"status"`
	Purpose          string         `json:"purpose"`
	Items            []CheckoutItem `json:"items"`
	OrderID          string         `json:"order_id,omitempty"`
	PaidAt           time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewPayment captures a checkout into a pending payment.
func NewPayment(customerID, gatewayName, gatewayOrderID, currency, purpose string, items []CheckoutItem, amount int64) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		GatewayName:    gatewayName,
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         StatusPending,
		Purpose:        purpose,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsPaid reports whether the payment already reached terminal success.
func (p *Payment) IsPaid() bool {
	return p.Status == StatusPaid
}

// isOpen reports whether the payment can still change outcome.
func (p *Payment) isOpen() bool {
	return p.Status == StatusPending || p.Status == StatusVerifying
}

// MarkPaid transitions the payment to paid. Returns false if the payment
// is not in an open state; paid in particular stays paid.
func (p *Payment) MarkPaid(gatewayPaymentID string, at time.Time) bool {
	if !p.isOpen() {
		return false
	}
	p.Status = StatusPaid
	p.GatewayPaymentID = gatewayPaymentID
	p.PaidAt = at
	p.UpdatedAt = at
	return true
}

// MarkVerifying moves a pending payment into the verifying state.
func (p *Payment) MarkVerifying(at time.Time) bool {
	if p.Status != StatusPending {
		return false
	}
	p.Status = StatusVerifying
	p.UpdatedAt = at
	return true
}

// MarkFailed transitions an open payment to failed.
func (p *Payment) MarkFailed(at time.Time) bool {
	if !p.isOpen() {
		return false
	}
	p.Status = StatusFailed
	p.UpdatedAt = at
	return true
}

// MarkCancelled transitions an open payment to cancelled.
func (p *Payment) MarkCancelled(at time.Time) bool {
	if !p.isOpen() {
		return false
	}
	p.Status = StatusCancelled
	p.UpdatedAt = at
	return true
}

// AttachOrder records the order this payment finalized.
func (p *Payment) AttachOrder(orderID string, at time.Time) {
	p.OrderID = orderID
	p.UpdatedAt = at
}
