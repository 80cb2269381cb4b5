package handler

import (
	"errors"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/orders/domain"
	"fulfillment-core/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// BookShipmentRequest is the body for booking a shop's shipment.
type BookShipmentRequest struct {
	ShopID   string                `json:"shop_id"`
	Carrier  string                `json:"carrier"`
	Delivery carrierdomain.Address `json:"delivery"`
}

// GetOrder godoc
// @Summary Get an order
// @Description Retrieves an order with its shipments and derived status
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orderService.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(order)
}

// BookShipment godoc
// @Summary Book a shipment with a carrier
// @Description Books the given shop's shipment with the named carrier and records the tracking number
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body BookShipmentRequest true "Booking details"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/book [post]
func (h *OrderHandler) BookShipment(c *fiber.Ctx) error {
	var req BookShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}
	if req.ShopID == "" || req.Carrier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "shop_id and carrier are required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	orderID := c.Params("id")
	if err := h.orderService.BookShipment(c.UserContext(), orderID, req.ShopID, req.Carrier, req.Delivery); err != nil {
		return h.errorResponse(c, err)
	}

	order, err := h.orderService.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(order)
}

// CancelOrder godoc
// @Summary Cancel an order
// @Description Cancels the order, requests carrier-side cancellation for booked shipments and restores inventory
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	if err := h.orderService.CancelOrder(c.UserContext(), orderID); err != nil {
		return h.errorResponse(c, err)
	}

	order, err := h.orderService.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(order)
}

// GetTrackingHistory godoc
// @Summary Get tracking history for a shipment
// @Description Fetches the carrier's live tracking history for a tracking number
// @Tags tracking
// @Produce json
// @Param number path string true "Tracking Number"
// @Param carrier query string true "Carrier name (e.g., fedex, shiprocket, ups)"
// @Success 200 {object} carrierdomain.TrackingHistory
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /tracking/{number} [get]
func (h *OrderHandler) GetTrackingHistory(c *fiber.Ctx) error {
	trackingNumber := c.Params("number")
	if trackingNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "tracking number is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	carrier := c.Query("carrier")
	if carrier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "carrier query parameter is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	history, err := h.orderService.TrackShipment(c.UserContext(), carrier, trackingNumber)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(history)
}

// errorResponse maps service errors onto HTTP statuses.
func (h *OrderHandler) errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var outbound *apperrors.OutboundError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotCancellable):
		code = fiber.StatusConflict
	case errors.As(err, &outbound):
		code = fiber.StatusBadGateway
	}

	return c.Status(code).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   c.Locals("requestid").(string),
	})
}
