package handler

import (
	"errors"

	"fulfillment-core/internal/core/apperrors"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/webhooks/service"

	"github.com/gofiber/fiber/v2"
)

// WebhookHandler handles inbound carrier webhook deliveries.
type WebhookHandler struct {
	webhookService *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// AckResponse is the success acknowledgement sent back to a provider.
type AckResponse struct {
	Status string `json:"status"`
}

// HandleShippingWebhook godoc
// @Summary Ingest a carrier status webhook
// @Description Verifies, parses and applies a carrier shipment status event
// @Tags webhooks
// @Accept json
// @Produce json
// @Param carrier path string true "Carrier name (fedex, shiprocket, ups)"
// @Success 200 {object} AckResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /webhooks/shipping/{carrier} [post]
func (h *WebhookHandler) HandleShippingWebhook(c *fiber.Ctx) error {
	// The raw body bytes are what the provider signed; verification must
	// see them untouched.
	rawBody := c.Body()
	headers := carrierdomain.NewHeaders(c.GetReqHeaders())

	err := h.webhookService.ProcessShipmentEvent(c.UserContext(), c.Params("carrier"), rawBody, headers)
	if err != nil {
		code := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, apperrors.ErrAuthentication):
			code = fiber.StatusUnauthorized
		case errors.Is(err, apperrors.ErrValidation):
			code = fiber.StatusBadRequest
		case errors.Is(err, apperrors.ErrNotFound):
			code = fiber.StatusNotFound
		}
		return c.Status(code).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	return c.JSON(AckResponse{Status: "ok"})
}
