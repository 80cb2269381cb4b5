package adapters

import (
	"context"

	orderdomain "fulfillment-core/internal/features/orders/domain"
	orderservice "fulfillment-core/internal/features/orders/service"
	"fulfillment-core/internal/features/payments/domain"
	"fulfillment-core/internal/features/payments/ports"
)

// OrderServiceFinalizer implements ports.OrderFinalizer by creating the
// order through the order service, from the items captured at checkout.
type OrderServiceFinalizer struct {
	orders *orderservice.OrderService
}

// NewOrderServiceFinalizer creates a new OrderServiceFinalizer.
func NewOrderServiceFinalizer(orders *orderservice.OrderService) *OrderServiceFinalizer {
	return &OrderServiceFinalizer{orders: orders}
}

var _ ports.OrderFinalizer = (*OrderServiceFinalizer)(nil)

// FinalizeOrder implements ports.OrderFinalizer.
func (f *OrderServiceFinalizer) FinalizeOrder(ctx context.Context, payment *domain.Payment) (string, error) {
	items := make([]orderdomain.LineItem, 0, len(payment.Items))
	var subtotal int64
	for _, item := range payment.Items {
		items = append(items, orderdomain.LineItem{
			ShopID:    item.ShopID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	pricing := orderdomain.PricingSummary{
		Subtotal: subtotal,
		Total:    payment.Amount,
		Currency: payment.Currency,
	}

	order, err := f.orders.CreateOrder(ctx, payment.CustomerID, items, pricing, payment.ID)
	if err != nil {
		return "", err
	}
	return order.ID, nil
}
