package ports

import (
	"context"

	orderdomain "fulfillment-core/internal/features/orders/domain"
	orderports "fulfillment-core/internal/features/orders/ports"
	"fulfillment-core/internal/features/returns/domain"
)

// ReturnRepository persists return requests. The one-open-request-per
// (order, product) rule is the repository's to enforce: the open-request
// index is written and cleared in the same commits as the documents.
type ReturnRepository interface {
	// Create stores a new request. Fails with apperrors.ErrValidation if
	// an open request already exists for the same order and product.
	Create(ctx context.Context, req *domain.ReturnRequest) error

	Get(ctx context.Context, id string) (*domain.ReturnRequest, error)

	// Update mutates the request under optimistic concurrency.
	Update(ctx context.Context, id string, mutate func(req *domain.ReturnRequest) error) error

	// Decide mutates the return request and its order in one atomic
	// commit: the approval's shipment transition and inventory restore
	// either land together with the decision or not at all.
	Decide(ctx context.Context, returnID, orderID string, mutate func(req *domain.ReturnRequest, order *orderdomain.Order, fx *orderports.UpdateEffects) error) error
}
