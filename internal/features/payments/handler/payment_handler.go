package handler

import (
	"errors"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/payments/domain"
	"fulfillment-core/internal/features/payments/service"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles checkout and payment gateway webhooks.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// AckResponse is the success acknowledgement sent back to a gateway.
type AckResponse struct {
	Status string `json:"status"`
}

// CheckoutRequest is the body for beginning a checkout.
type CheckoutRequest struct {
	CustomerID     string                `json:"customer_id"`
	Gateway        string                `json:"gateway"`
	GatewayOrderID string                `json:"gateway_order_id"`
	Currency       string                `json:"currency"`
	Amount         int64                 `json:"amount"`
	Items          []domain.CheckoutItem `json:"items"`
}

// Checkout godoc
// @Summary Begin a checkout
// @Description Captures the cart into a pending payment; cash on delivery finalizes the order immediately
// @Tags payments
// @Accept json
// @Produce json
// @Param request body CheckoutRequest true "Checkout details"
// @Success 201 {object} domain.Payment
// @Failure 400 {object} ErrorResponse
// @Router /checkout [post]
func (h *PaymentHandler) Checkout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}

	payment, err := h.paymentService.Checkout(c.UserContext(), service.CheckoutRequest{
		CustomerID:     req.CustomerID,
		GatewayName:    req.Gateway,
		GatewayOrderID: req.GatewayOrderID,
		Currency:       req.Currency,
		Amount:         req.Amount,
		Items:          req.Items,
	})
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

// GetPayment godoc
// @Summary Get a payment
// @Description Retrieves a payment with its reconciliation state
// @Tags payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.Payment
// @Failure 404 {object} ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	payment, err := h.paymentService.GetPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(payment)
}

// HandleGatewayWebhook godoc
// @Summary Ingest a payment gateway webhook
// @Description Verifies and reconciles a gateway payment event
// @Tags webhooks
// @Accept json
// @Produce json
// @Param gateway path string true "Gateway name (razorpay, stripe, cashfree)"
// @Success 200 {object} AckResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /webhooks/payments/{gateway} [post]
func (h *PaymentHandler) HandleGatewayWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()
	headers := carrierdomain.NewHeaders(c.GetReqHeaders())

	err := h.paymentService.ProcessGatewayEvent(c.UserContext(), c.Params("gateway"), rawBody, headers)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(AckResponse{Status: "ok"})
}

// errorResponse maps service errors onto HTTP statuses.
func (h *PaymentHandler) errorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrAuthentication):
		code = fiber.StatusUnauthorized
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrAmountMismatch):
		code = fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		code = fiber.StatusNotFound
	}

	return c.Status(code).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   c.Locals("requestid").(string),
	})
}
