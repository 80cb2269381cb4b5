package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/status"
)

const fedexSignatureHeader = "X-Fedex-Signature"

// fedexStatusMap translates FedEx status codes onto the canonical enum.
var fedexStatusMap = map[string]status.Status{
	"label_created":    status.Packed,
	"picked_up":        status.Shipped,
	"in_transit":       status.InTransit,
	"out_for_delivery": status.OutForDelivery,
	"delivered":        status.Delivered,
	"cancelled":        status.Cancelled,
	"return_initiated": status.ReturnRequested,
	"returned":         status.Returned,
	"exception":        status.Failed,
	"failed":           status.Failed,
}

// FedexAdapter implements the Carrier port for FedEx.
type FedexAdapter struct {
	baseURL       string
	webhookSecret string
	client        *http.Client
}

// NewFedexAdapter creates a new FedexAdapter.
func NewFedexAdapter(baseURL, webhookSecret string, client *http.Client) *FedexAdapter {
	return &FedexAdapter{
		baseURL:       baseURL,
		webhookSecret: webhookSecret,
		client:        client,
	}
}

// Name returns the carrier identifier.
func (a *FedexAdapter) Name() string {
	return "fedex"
}

// VerifyWebhook checks the HMAC-SHA256 signature over the raw body.
// Older FedEx integrations send the digest base64-encoded, newer ones hex;
// both encodings are attempted before rejecting.
func (a *FedexAdapter) VerifyWebhook(rawBody []byte, headers domain.Headers) error {
	signature := headers.Get(fedexSignatureHeader)
	if signature == "" {
		return fmt.Errorf("missing %s header: %w", fedexSignatureHeader, apperrors.ErrAuthentication)
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	mac.Write(rawBody)
	digest := mac.Sum(nil)

	if hmac.Equal([]byte(signature), []byte(base64.StdEncoding.EncodeToString(digest))) {
		return nil
	}
	if hmac.Equal([]byte(signature), []byte(hex.EncodeToString(digest))) {
		return nil
	}

	return fmt.Errorf("invalid fedex signature: %w", apperrors.ErrAuthentication)
}

// fedexWebhookPayload is the JSON body FedEx posts for tracking updates.
type fedexWebhookPayload struct {
	TrackingNumber string `json:"tracking_number"`
	ShipmentID     string `json:"shipment_id"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
}

// ParseWebhook extracts the provider-neutral event. FedEx does not send a
// delivery event id, so idempotency stays advisory for this carrier.
func (a *FedexAdapter) ParseWebhook(rawBody []byte, _ domain.Headers) (*domain.ShipmentEvent, error) {
	var payload fedexWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("malformed fedex payload: %w", apperrors.ErrValidation)
	}
	if payload.TrackingNumber == "" || payload.Status == "" {
		return nil, fmt.Errorf("fedex payload missing tracking_number or status: %w", apperrors.ErrValidation)
	}

	occurredAt, _ := time.Parse(time.RFC3339, payload.Timestamp)

	return &domain.ShipmentEvent{
		TrackingID:   payload.TrackingNumber,
		VendorStatus: payload.Status,
		OccurredAt:   occurredAt,
	}, nil
}

// Translate maps a FedEx status code onto the canonical enum.
func (a *FedexAdapter) Translate(vendorStatus string) (status.Status, bool) {
	st, ok := fedexStatusMap[vendorStatus]
	return st, ok
}

type fedexShipmentRequest struct {
	OrderReference string               `json:"order_reference"`
	Recipient      domain.Address       `json:"recipient"`
	Items          []domain.BookingItem `json:"items"`
}

type fedexShipmentResponse struct {
	TrackingNumber string `json:"tracking_number"`
	ShipmentID     string `json:"shipment_id"`
}

// CreateShipment books a forward shipment with FedEx.
func (a *FedexAdapter) CreateShipment(ctx context.Context, req *domain.BookingRequest) (*domain.Booking, error) {
	var resp fedexShipmentResponse
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/ship/v1/shipments", fedexShipmentRequest{
		OrderReference: req.OrderID,
		Recipient:      req.Delivery,
		Items:          req.Items,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.TrackingNumber,
		CarrierShipmentID: resp.ShipmentID,
	}, nil
}

// CancelShipment cancels a FedEx booking.
func (a *FedexAdapter) CancelShipment(ctx context.Context, carrierShipmentID string) error {
	url := fmt.Sprintf("%s/ship/v1/shipments/%s/cancel", a.baseURL, carrierShipmentID)
	if err := doJSON(ctx, a.client, http.MethodPut, url, nil, nil); err != nil {
		return apperrors.NewOutboundError(a.Name(), "cancelShipment", err)
	}
	return nil
}

// CreateReturnShipment books a reverse shipment with FedEx.
func (a *FedexAdapter) CreateReturnShipment(ctx context.Context, req *domain.ReturnBookingRequest) (*domain.Booking, error) {
	var resp fedexShipmentResponse
	err := doJSON(ctx, a.client, http.MethodPost, a.baseURL+"/ship/v1/returns", fedexShipmentRequest{
		OrderReference: req.OrderID,
		Recipient:      req.Pickup,
		Items:          req.Items,
	}, &resp)
	if err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "createReturnShipment", err)
	}

	return &domain.Booking{
		TrackingID:        resp.TrackingNumber,
		CarrierShipmentID: resp.ShipmentID,
	}, nil
}

type fedexTrackResponse struct {
	Status string `json:"status"`
	Scans  []struct {
		Timestamp   string `json:"timestamp"`
		Description string `json:"description"`
		Location    string `json:"location"`
		Code        string `json:"code"`
	} `json:"scans"`
}

// Track fetches FedEx's current view of a shipment.
func (a *FedexAdapter) Track(ctx context.Context, trackingID string) (*domain.TrackingHistory, error) {
	var resp fedexTrackResponse
	url := fmt.Sprintf("%s/track/v1/shipments/%s", a.baseURL, trackingID)
	if err := doJSON(ctx, a.client, http.MethodGet, url, nil, &resp); err != nil {
		return nil, apperrors.NewOutboundError(a.Name(), "trackShipment", err)
	}

	current, ok := a.Translate(resp.Status)
	if !ok {
		current = status.Pending
	}

	history := &domain.TrackingHistory{CurrentStatus: current}
	for _, scan := range resp.Scans {
		at, _ := time.Parse(time.RFC3339, scan.Timestamp)
		history.Events = append(history.Events, domain.TrackingEvent{
			At:          at,
			Description: scan.Description,
			Location:    scan.Location,
			VendorCode:  scan.Code,
		})
	}
	return history, nil
}
