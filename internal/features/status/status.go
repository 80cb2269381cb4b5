// Package status defines the canonical shipment/order status vocabulary
// shared by every carrier and by the order aggregation rule. Carrier
// vocabularies are translated onto this enum at the webhook boundary.
package status

// Status is the marketplace's unified shipment/order status.
type Status string

const (
	Pending          Status = "pending"
	Confirmed        Status = "confirmed"
	Packed           Status = "packed"
	Shipped          Status = "shipped"
	InTransit        Status = "in_transit"
	OutForDelivery   Status = "out_for_delivery"
	Delivered        Status = "delivered"
	Cancelled        Status = "cancelled"
	ReturnRequested  Status = "return_requested"
	Returned         Status = "returned"
	RefundProcessing Status = "refund_processing"
	Refunded         Status = "refunded"
	Failed           Status = "failed"
)

// all lists every canonical status. No transition graph is enforced on
// shipments: a carrier may report any status at any time and is trusted
// once authenticated. Idempotency, not graph validation, is the defense
// against nonsensical transitions.
var all = map[Status]bool{
	Pending:          true,
	Confirmed:        true,
	Packed:           true,
	Shipped:          true,
	InTransit:        true,
	OutForDelivery:   true,
	Delivered:        true,
	Cancelled:        true,
	ReturnRequested:  true,
	Returned:         true,
	RefundProcessing: true,
	Refunded:         true,
	Failed:           true,
}

// IsValid reports whether s is a canonical status.
func IsValid(s Status) bool {
	return all[s]
}
