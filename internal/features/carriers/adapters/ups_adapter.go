package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/status"
)

const (
	upsSignatureHeader = "X-UPS-Signature"
	upsEventIDHeader   = "X-UPS-Event-Id"
)

// upsStatusMap translates UPS status codes onto the canonical enum.
var upsStatusMap = map[string]status.Status{
	"label_created":      status.Confirmed,
	"shipped":            status.Shipped,
	"in_transit":         status.InTransit,
	"out_for_delivery":   status.OutForDelivery,
	"delivered":          status.Delivered,
	"exception":          status.Failed,
	"return_initiated":   status.ReturnRequested,
	"returned_to_seller": status.Returned,
	"refund_processed":   status.Refunded,
}

// UPSAdapter implements the Carrier port for UPS. UPS signs the raw body
// with a hex HMAC digest and supplies a per-delivery event id, which gives
// this carrier strict idempotency.
type UPSAdapter struct {
	baseURL       string
	webhookSecret string
	client        *http.Client
}

// NewUPSAdapter creates a new UPSAdapter.
func NewUPSAdapter(baseURL, webhookSecret string, client *http.Client) *UPSAdapter {
	return &UPSAdapter{
		baseURL:       baseURL,
		webhookSecret: webhookSecret,
		client:        client,
	}
}

// Name returns the carrier identifier.
func (a *UPSAdapter) Name() string {
	return "ups"
}

// VerifyWebhook checks the hex HMAC-SHA256 digest over the raw body.
func (a *UPSAdapter) VerifyWebhook(rawBody []byte, headers domain.Headers) error {
	signature := headers.Get(upsSignatureHeader)
	if signature == "" {
		return fmt.Errorf("missing %s header: %w", upsSignatureHeader, apperrors.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid ups signature: %w", apperrors.ErrAuthentication)
	}
	return nil
}

// upsWebhookPayload is the JSON body UPS posts for tracking updates.
type upsWebhookPayload struct {
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	OccurredAt     string `json:"occurred_at"`
}

// ParseWebhook extracts the provider-neutral event. The event id rides in
// a header rather than the body.
func (a *UPSAdapter) ParseWebhook(rawBody []byte, headers domain.Headers) (*domain.ShipmentEvent, error) {
	var payload upsWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed ups payload: %w", apperrors.ErrValidation)
	}
	if payload.TrackingNumber == "" || payload.Status == "" {
		return nil, fmt.Errorf("ups payload missing tracking_number or status: %w", apperrors.ErrValidation)
	}

	occurredAt, _ := time.Parse(time.RFC3339, payload.OccurredAt)

	return &domain.ShipmentEvent{
		TrackingID:   payload.TrackingNumber,
		EventID:      headers.Get(upsEventIDHeader),
		VendorStatus: payload.Status,
		OccurredAt:   occurredAt,
	}, nil
}

// Translate maps a UPS status code onto the canonical enum.
func (a *UPSAdapter) Translate(vendorStatus string) (status.Status, bool) {
	st, ok := upsStatusMap[vendorStatus]
	return st, ok
}

type upsShipmentRequest struct {
	OrderReference string               `json:"order_reference"`
	ShipTo         domain.Address       `json:"ship_to"`
	Packages       []domain.BookingItem `json:"packages"`
}

type upsShipmentResponse struct {
	TrackingNumber string `json:"tracking_number"`
	ShipmentID     string `json:"shipment_id"`
}

// CreateShipment books a forward shipment with UPS.
func (a *UPSAdapter) CreateShipment(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	var resp upsShipmentResponse
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/api/shipments/v2/ship", upsShipmentRequest{
		OrderReference: req.OrderID,
		ShipTo:         req.Delivery,
		Packages:       req.Items,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.TrackingNumber,
		CarrierShipmentID: resp.ShipmentID,
	}, nil
}

// CancelShipment voids a UPS booking.
func (a *UPSAdapter) CancelShipment(ctx context.Context, carrierShipmentID string) error {
	url := fmt.Sprintf("%s/api/shipments/v2/%s", a.baseURL, carrierShipmentID)
	if err := doJSON(ctx, a.client, http.MethodDelete, url, nil, nil); err != nil {
		return apperrors.NewOutboundError(a.Name(), "cancelShipment", err)
	}
	return nil
}

// CreateReturnShipment books a reverse shipment with UPS.
func (a *UPSAdapter) CreateReturnShipment(ctx context.Context, req *domain.ReturnBookingRequest) (*domain.Booking, error) {
	var resp upsShipmentResponse
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/api/returns/v2", upsShipmentRequest{
		OrderReference: req.OrderID,
		ShipTo:         req.Pickup,
		Packages:       req.Items,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createReturnShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.TrackingNumber,
		CarrierShipmentID: resp.ShipmentID,
	}, nil
}

type upsTrackResponse struct {
	Status   string `json:"status"`
	Activity []struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Location    string `json:"location"`
		Code        string `json:"code"`
	} `json:"activity"`
}

// Track fetches UPS's current view of a shipment.
func (a *UPSAdapter) Track(ctx context.Context, trackingID string) (*domain.TrackingHistory, error) {
	var resp upsTrackResponse
	url := fmt.Sprintf("%s/api/track/v2/details/%s", a.baseURL, trackingID)
	if err := doJSON(ctx, a.client, http.MethodGet, url, nil, &resp); err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "trackShipment", err)
	}

	current, ok := a.Translate(resp.Status)
	if !ok {
		current = status.Pending
	}

	history := &domain.TrackingHistory{CurrentStatus: current}
	for _, act := range resp.Activity {
		at, _ := time.Parse(time.RFC3339, act.Date)
		history.Events = append(history.Events, domain.TrackingEvent{
			At:          at,
			Description: act.Description,
			Location:    act.Location,
			VendorCode:  act.Code,
		})
	}
	return history, nil
}
