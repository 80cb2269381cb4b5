package status

// AggregationPrecedence is the ordered list consulted when an order's
// shipments are neither all delivered nor all cancelled. The first status
// present in any shipment wins: the most advanced exceptional state
// dominates the order-level view even if other shipments are still moving.
// The order of this list is a business decision; do not reorder it as a
// refactor.
var AggregationPrecedence = []Status{
	RefundProcessing,
	Returned,
	ReturnRequested,
	OutForDelivery,
	InTransit,
	Shipped,
	Packed,
	Confirmed,
}

// Aggregate derives a single order status from the statuses of all its
// shipments:
//  1. every shipment delivered: delivered
//  2. every shipment cancelled: cancelled
//  3. first precedence-list status present in any shipment
//  4. otherwise pending
//
// It is total: any multiset of statuses (including an empty one) yields a
// result.
func Aggregate(shipments []Status) Status {
	if len(shipments) == 0 {
		return Pending
	}

	present := make(map[Status]bool, len(shipments))
	allDelivered := true
	allCancelled := true
	for _, s := range shipments {
		present[s] = true
		if s != Delivered {
			allDelivered = false
		}
		if s != Cancelled {
			allCancelled = false
		}
	}

	if allDelivered {
		return Delivered
	}
	if allCancelled {
		return Cancelled
	}

	for _, s := range AggregationPrecedence {
		if present[s] {
			return s
		}
	}

	return Pending
}
