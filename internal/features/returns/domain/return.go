package domain

import (
	"errors"
	"time"

	carrierdomain "fulfillment-core/internal/features/carriers/domain"

	"github.com/google/uuid"
)

// Remedy is what the customer wants out of the return.
type Remedy string

const (
	// RemedyReplacement sends a replacement item.
	RemedyReplacement Remedy = "replacement"
	// RemedyRefund refunds the item.
	RemedyRefund Remedy = "refund"
)

// ReturnStatus is the lifecycle state of a return request.
type ReturnStatus string

const (
	// StatusProcessing is the initial state, awaiting the shop's decision.
	StatusProcessing ReturnStatus = "processing"
	// StatusCompleted means the shop approved the return.
	StatusCompleted ReturnStatus = "completed"
	// StatusRejected means the shop declined the return.
	StatusRejected ReturnStatus = "rejected"
)

// ReverseShipmentStatus tracks the carrier-side reverse pickup, which is
// a best-effort follow-up to the committed decision.
type ReverseShipmentStatus string

const (
	// ReverseNone means no reverse shipment has been attempted.
	ReverseNone ReverseShipmentStatus = "none"
	// ReverseSuccess means the carrier accepted the reverse booking.
	ReverseSuccess ReverseShipmentStatus = "success"
	// ReverseFailed means the booking failed; an operator can retry it.
	ReverseFailed ReverseShipmentStatus = "failed"
)

// ErrNotDecidable rejects decisions on already-decided returns.
var ErrNotDecidable = errors.New("return request is already decided")

// ReturnRequest is one customer's request to return one product from a
// delivered order.
type ReturnRequest struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ShopID     string `json:"shop_id"`
	SKU        string `json:"sku"`
	CustomerID string `json:"customer_id"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
	Remedy     Remedy `json:"remedy"`

	Status ReturnStatus `json:"status"`

	// Pickup is the customer address captured at request time, used for
	// the reverse shipment booking.
	Pickup carrierdomain.Address `json:"pickup"`

	ReverseCarrier           string                `json:"reverse_carrier,omitempty"`
	ReverseTrackingID        string                `json:"reverse_tracking_id,omitempty"`
	ReverseCarrierShipmentID string                `json:"reverse_carrier_shipment_id,omitempty"`
	ReverseShipmentStatus    ReverseShipmentStatus `json:"reverse_shipment_status"`

	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at,omitempty"`
	Note      string    `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReturnRequest opens a return request in the processing state.
func NewReturnRequest(orderID, shopID, sku, customerID string, quantity int, reason string, remedy Remedy, pickup carrierdomain.Address) *ReturnRequest {
	now := time.Now().UTC()
	return &ReturnRequest{
		ID:                    uuid.NewString(),
		OrderID:               orderID,
		ShopID:                shopID,
		SKU:                   sku,
		CustomerID:            customerID,
		Quantity:              quantity,
		Reason:                reason,
		Remedy:                remedy,
		Status:                StatusProcessing,
		Pickup:                pickup,
		ReverseShipmentStatus: ReverseNone,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// IsTerminal reports whether the request has been decided.
func (r *ReturnRequest) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusRejected
}

// Complete applies an approval decision with its audit fields.
func (r *ReturnRequest) Complete(decidedBy, note string, at time.Time) error {
	if r.IsTerminal() {
		return ErrNotDecidable
	}
	r.Status = StatusCompleted
	r.DecidedBy = decidedBy
	r.DecidedAt = at
	r.Note = note
	r.UpdatedAt = at
	return nil
}

// Reject applies a rejection decision with its audit fields.
func (r *ReturnRequest) Reject(decidedBy, note string, at time.Time) error {
	if r.IsTerminal() {
		return ErrNotDecidable
	}
	r.Status = StatusRejected
	r.DecidedBy = decidedBy
	r.DecidedAt = at
	r.Note = note
	r.UpdatedAt = at
	return nil
}

// RecordReverseBooking stores a successful carrier reverse booking.
func (r *ReturnRequest) RecordReverseBooking(carrier, trackingID, carrierShipmentID string, at time.Time) {
	r.ReverseCarrier = carrier
	r.ReverseTrackingID = trackingID
	r.ReverseCarrierShipmentID = carrierShipmentID
	r.ReverseShipmentStatus = ReverseSuccess
	r.UpdatedAt = at
}

// RecordReverseFailure flags the reverse booking for operator retry.
func (r *ReturnRequest) RecordReverseFailure(at time.Time) {
	r.ReverseShipmentStatus = ReverseFailed
	r.UpdatedAt = at
}
