package handler

import (
	"errors"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	orderdomain "fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/returns/domain"
	"fulfillment-core/internal/features/returns/service"

	"github.com/gofiber/fiber/v2"
)

// ReturnHandler handles HTTP requests for the return workflow.
type ReturnHandler struct {
	returnService *service.ReturnService
}

// NewReturnHandler creates a new ReturnHandler.
func NewReturnHandler(returnService *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{
		returnService: returnService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// CreateReturnRequest is the body for opening a return.
type CreateReturnRequest struct {
	OrderID    string                `json:"order_id"`
	CustomerID string                `json:"customer_id"`
	SKU        string                `json:"sku"`
	Reason     string                `json:"reason"`
	Remedy     domain.Remedy         `json:"remedy"`
	Pickup     carrierdomain.Address `json:"pickup"`
}

// DecisionRequest is the body for a shopkeeper decision.
type DecisionRequest struct {
	ShopkeeperID string `json:"shopkeeper_id"`
	Approve      bool   `json:"approve"`
	Note         string `json:"note"`
}

// CreateReturn godoc
// @Summary Open a return request
// @Description Creates a return request for one product of a delivered order
// @Tags returns
// @Accept json
// @Produce json
// @Param request body CreateReturnRequest true "Return details"
// @Success 201 {object} domain.ReturnRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /returns [post]
func (h *ReturnHandler) CreateReturn(c *fiber.Ctx) error {
	var req CreateReturnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}
	if req.OrderID == "" || req.CustomerID == "" || req.SKU == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "order_id, customer_id and sku are required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	ret, err := h.returnService.Create(c.UserContext(), service.CreateRequest{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		SKU:        req.SKU,
		Reason:     req.Reason,
		Remedy:     req.Remedy,
		Pickup:     req.Pickup,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ret)
}

// DecideReturn godoc
// @Summary Decide a return request
// @Description Approves or rejects a return; approval transitions the shipment, restores inventory and schedules the reverse pickup
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param request body DecisionRequest true "Decision"
// @Success 200 {object} domain.ReturnRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /returns/{id}/decision [post]
func (h *ReturnHandler) DecideReturn(c *fiber.Ctx) error {
	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}
	if req.ShopkeeperID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "shopkeeper_id is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	ret, err := h.returnService.Decide(c.UserContext(), c.Params("id"), req.ShopkeeperID, req.Approve, req.Note)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(ret)
}

// RetryReverseShipment godoc
// @Summary Retry a failed reverse shipment
// @Description Re-runs only the carrier reverse booking for a return whose previous attempt failed
// @Tags returns
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} domain.ReturnRequest
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /returns/{id}/reverse-shipment/retry [post]
func (h *ReturnHandler) RetryReverseShipment(c *fiber.Ctx) error {
	ret, err := h.returnService.RetryReverseShipment(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(ret)
}

// errorResponse maps service errors onto HTTP statuses.
func (h *ReturnHandler) errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		code = fiber.StatusBadRequest
	case errors.Is(err, orderdomain.ErrNotReturnable), errors.Is(err, domain.ErrNotDecidable):
		code = fiber.StatusConflict
	}

	return c.Status(code).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   c.Locals("requestid").(string),
	})
}
