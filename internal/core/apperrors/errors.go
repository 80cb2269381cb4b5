package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the webhook and reconciliation pipelines.
// Handlers map them onto HTTP status codes; services wrap them with %w.
var (
	// ErrAuthentication indicates a missing or invalid webhook signature.
	// Always fatal to the request, never retried internally.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation indicates a malformed payload or missing correlation key.
	ErrValidation = errors.New("invalid payload")

	// ErrNotFound indicates no matching order, shipment or payment.
	// Webhook handlers acknowledge it as a terminal no-op.
	ErrNotFound = errors.New("record not found")

	// ErrUnmappedStatus indicates a vendor status code outside the carrier's
	// translation table. Acknowledged successfully and applied as a no-op.
	ErrUnmappedStatus = errors.New("unmapped vendor status")

	// ErrDuplicateEvent indicates the event fingerprint was already applied.
	// Acknowledged successfully; the second application is a no-op.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrAmountMismatch indicates a payment webhook reported an amount that
	// differs from the expected one. The payment is never marked paid.
	ErrAmountMismatch = errors.New("amount mismatch")
)

// OutboundError wraps a failed compensating call to a carrier or gateway.
// It is logged and isolated to its shipment/return, never propagated as a
// failure of the enclosing committed transaction.
type OutboundError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *OutboundError) Error() string {
	return fmt.Sprintf("outbound %s call to %s failed: %v", e.Operation, e.Provider, e.Err)
}

func (e *OutboundError) Unwrap() error {
	return e.Err
}

// NewOutboundError wraps err as an OutboundError for the given provider call.
func NewOutboundError(provider, operation string, err error) *OutboundError {
	return &OutboundError{Provider: provider, Operation: operation, Err: err}
}
