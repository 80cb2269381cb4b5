package adapters

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/status"
)

const shiprocketTokenHeader = "x-api-key"

// shiprocketStatusMap translates Shiprocket status codes onto the
// canonical enum. OUT_FOR_DELIVERY maps to in_transit, not
// out_for_delivery: Shiprocket fires it at hub departure, before the
// last-mile scan.
var shiprocketStatusMap = map[string]status.Status{
	"PICKUP_SCHEDULED": status.Confirmed,
	"PICKUP_GENERATED": status.Packed,
	"OUT_FOR_DELIVERY": status.InTransit,
	"IN_TRANSIT":       status.InTransit,
	"SHIPPED":          status.Shipped,
	"DELIVERED":        status.Delivered,
	"RETURNED":         status.Returned,
	"CANCELLED":        status.Cancelled,
}

// ShiprocketAdapter implements the Carrier port for Shiprocket.
// Shiprocket does not sign webhook bodies and sends no event id; it
// authenticates with a static shared token and gets advisory idempotency.
type ShiprocketAdapter struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewShiprocketAdapter creates a new ShiprocketAdapter.
func NewShiprocketAdapter(baseURL, token string, client *http.Client) *ShiprocketAdapter {
	return &ShiprocketAdapter{
		baseURL: baseURL,
		token:   token,
		client:  client,
	}
}

// Name returns the carrier identifier.
func (a *ShiprocketAdapter) Name() string {
	return "shiprocket"
}

// VerifyWebhook compares the shared token in x-api-key in constant time.
func (a *ShiprocketAdapter) VerifyWebhook(rawBody []byte, headers domain.Headers) error {
	token := headers.Get(shiprocketTokenHeader)
	if token == "" {
		return fmt.Errorf("missing %s header: %w", shiprocketTokenHeader, apperrors.ErrAuthentication)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return fmt.Errorf("invalid shiprocket token: %w", apperrors.ErrAuthentication)
	}
	return nil
}

// shiprocketWebhookPayload is the JSON body Shiprocket posts on scans.
type shiprocketWebhookPayload struct {
	AWB              string `json:"awb"`
	ShipmentID       int64  `json:"shipment_id"`
	CurrentStatus    string `json:"current_status"`
	CurrentTimestamp string `json:"current_timestamp"`
}

// ParseWebhook extracts the provider-neutral event.
func (a *ShiprocketAdapter) ParseWebhook(rawBody []byte, _ domain.Headers) (*domain.ShipmentEvent, error) {
	var payload shiprocketWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed shiprocket payload: %w", apperrors.ErrValidation)
	}
	if payload.AWB == "" || payload.CurrentStatus == "" {
		return nil, fmt.Errorf("shiprocket payload missing awb or current_status: %w", apperrors.ErrValidation)
	}

	occurredAt, _ := time.Parse("2006-01-02 15:04:05", payload.CurrentTimestamp)

	return &domain.ShipmentEvent{
		TrackingID:   payload.AWB,
		VendorStatus: payload.CurrentStatus,
		OccurredAt:   occurredAt,
	}, nil
}

// Translate maps a Shiprocket status code onto the canonical enum.
func (a *ShiprocketAdapter) Translate(vendorStatus string) (status.Status, bool) {
	st, ok := shiprocketStatusMap[vendorStatus]
	return st, ok
}

type shiprocketShipmentRequest struct {
	OrderID  string               `json:"order_id"`
	Items    []domain.BookingItem `json:"order_items"`
	Shipping domain.Address       `json:"shipping_address"`
}

type shiprocketShipmentResponse struct {
	AWBCode    string `json:"awb_code"`
	ShipmentID int64  `json:"shipment_id"`
}

// authorized executes an outbound call with the Shiprocket bearer token.
func (a *ShiprocketAdapter) authorized(ctx context.Context, method, url string, body, out interface{}) error {
	return doJSONWithHeader(ctx, a.client, method, url, body, out, "Authorization", "Bearer "+a.token)
}

// CreateShipment books a forward shipment with Shiprocket.
func (a *ShiprocketAdapter) CreateShipment(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	var resp shiprocketShipmentResponse
	err := a.authorized(ctx, http.MethodPost, a.baseURL+"/v1/external/shipments/create/adhoc", shiprocketShipmentRequest{
		OrderID:  req.OrderID,
		Items:    req.Items,
		Shipping: req.Delivery,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.AWBCode,
		CarrierShipmentID: strconv.FormatInt(resp.ShipmentID, 10),
	}, nil
}

// CancelShipment cancels a Shiprocket booking by shipment id.
func (a *ShiprocketAdapter) CancelShipment(ctx context.Context, carrierShipmentID string) error {
	body := map[string]interface{}{"ids": []string{carrierShipmentID}}
	err := a.authorized(ctx, http.MethodPost, a.baseURL+"/v1/external/orders/cancel/shipment", body, nil)
	if err != nil {
		return apperrors.NewOutboundError(a.Name(), "cancelShipment", err)
	}
	return nil
}

// CreateReturnShipment books a reverse pickup with Shiprocket.
func (a *ShiprocketAdapter) CreateReturnShipment(ctx context.Context, req *domain.ReturnBookingRequest) (*domain.Booking, error) {
	var resp shiprocketShipmentResponse
	err := a.authorized(ctx, http.MethodPost, a.baseURL+"/v1/external/orders/create/return", shiprocketShipmentRequest{
		OrderID:  req.OrderID,
		Items:    req.Items,
		Shipping: req.Pickup,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createReturnShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.AWBCode,
		CarrierShipmentID: strconv.FormatInt(resp.ShipmentID, 10),
	}, nil
}

type shiprocketTrackResponse struct {
	TrackingData struct {
		CurrentStatus string `json:"current_status"`
		ShipmentTrack []struct {
			Date     string `json:"date"`
			Activity string `json:"activity"`
			Location string `json:"location"`
			Status   string `json:"status"`
		} `json:"shipment_track"`
	} `json:"tracking_data"`
}

// Track fetches Shiprocket's current view of a shipment by AWB.
func (a *ShiprocketAdapter) Track(ctx context.Context, trackingID string) (*domain.TrackingHistory, error) {
	var resp shiprocketTrackResponse
	url := fmt.Sprintf("%s/v1/external/courier/track/awb/%s", a.baseURL, trackingID)
	if err := a.authorized(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "trackShipment", err)
	}

	current, ok := a.Translate(resp.TrackingData.CurrentStatus)
	if !ok {
		current = status.Pending
	}

	history := &domain.TrackingHistory{CurrentStatus: current}
	for _, scan := range resp.TrackingData.ShipmentTrack {
		at, _ := time.Parse("2006-01-02 15:04:05", scan.Date)
		history.Events = append(history.Events, domain.TrackingEvent{
			At:          at,
			Description: scan.Activity,
			Location:    scan.Location,
			VendorCode:  scan.Status,
		})
	}
	return history, nil
}
