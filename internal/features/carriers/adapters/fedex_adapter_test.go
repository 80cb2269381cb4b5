package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/features/carriers/domain"
	"fulfillment-core/internal/features/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fedexSecret = "fedex-test-secret"

func fedexSign(body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(fedexSecret))
	mac.Write(body)
	return mac.Sum(nil)
}

func TestFedexAdapter_VerifyWebhook_Base64(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)

	body := []byte(`{"tracking_number":"TRK1","status":"delivered"}`)
	headers := domain.Headers{"x-fedex-signature": base64.StdEncoding.EncodeToString(fedexSign(body))}

	assert.NoError(t, a.VerifyWebhook(body, headers))
}

func TestFedexAdapter_VerifyWebhook_Hex(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)

	body := []byte(`{"tracking_number":"TRK1","status":"delivered"}`)
	headers := domain.Headers{"x-fedex-signature": hex.EncodeToString(fedexSign(body))}

	assert.NoError(t, a.VerifyWebhook(body, headers))
}

func TestFedexAdapter_VerifyWebhook_Rejections(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)
	body := []byte(`{"tracking_number":"TRK1"}`)

	// Missing header.
	err := a.VerifyWebhook(body, domain.Headers{})
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)

	// Wrong signature.
	err = a.VerifyWebhook(body, domain.Headers{"x-fedex-signature": "deadbeef"})
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)

	// Signature over a different body.
	headers := domain.Headers{"x-fedex-signature": hex.EncodeToString(fedexSign([]byte("tampered")))}
	err = a.VerifyWebhook(body, headers)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestFedexAdapter_ParseWebhook(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)

	body := []byte(`{"tracking_number":"TRK1","shipment_id":"SH1","status":"picked_up","timestamp":"2026-03-01T10:00:00Z"}`)
	event, err := a.ParseWebhook(body, domain.Headers{})
	require.NoError(t, err)

	assert.Equal(t, "TRK1", event.TrackingID)
	assert.Equal(t, "picked_up", event.VendorStatus)
	assert.Empty(t, event.EventID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), event.OccurredAt)
}

func TestFedexAdapter_ParseWebhook_Malformed(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)

	_, err := a.ParseWebhook([]byte(`not-json`), domain.Headers{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = a.ParseWebhook([]byte(`{"status":"delivered"}`), domain.Headers{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestFedexAdapter_Translate(t *testing.T) {
	a := NewFedexAdapter("http://unused", fedexSecret, http.DefaultClient)

	cases := map[string]status.Status{
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
	for vendor, want := range cases {
		got, ok := a.Translate(vendor)
		require.True(t, ok, vendor)
		assert.Equal(t, want, got, vendor)
	}

	_, ok := a.Translate("teleported")
	assert.False(t, ok)
}

func TestFedexAdapter_CreateShipment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ship/v1/shipments", r.URL.Path)

		var req fedexShipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "order-1", req.OrderReference)

		json.NewEncoder(w).Encode(fedexShipmentResponse{TrackingNumber: "TRK-9", ShipmentID: "SH-9"})
	}))
	defer ts.Close()

	a := NewFedexAdapter(ts.URL, fedexSecret, ts.Client())

	booking, err := a.CreateShipment(context.Background(), &domain.BookingRequest{
		OrderID: "order-1",
		ShopID:  "shop-a",
		Items:   []domain.BookingItem{{SKU: "sku-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "TRK-9", booking.TrackingID)
	assert.Equal(t, "SH-9", booking.CarrierShipmentID)
}

func TestFedexAdapter_CancelShipment_Error(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "shipment already in transit", http.StatusConflict)
	}))
	defer ts.Close()

	a := NewFedexAdapter(ts.URL, fedexSecret, ts.Client())

	err := a.CancelShipment(context.Background(), "SH-9")
	require.Error(t, err)

	var outbound *apperrors.OutboundError
	require.ErrorAs(t, err, &outbound)
	assert.Equal(t, "fedex", outbound.Provider)
	assert.Equal(t, "cancelShipment", outbound.Operation)
}

func TestFedexAdapter_Track(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/track/v1/shipments/TRK-9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "in_transit",
			"scans": []map[string]string{
				{"timestamp": "2026-03-01T08:00:00Z", "description": "Departed facility", "location": "Memphis", "code": "DP"},
			},
		})
	}))
	defer ts.Close()

	a := NewFedexAdapter(ts.URL, fedexSecret, ts.Client())

	history, err := a.Track(context.Background(), "TRK-9")
	require.NoError(t, err)
	assert.Equal(t, status.InTransit, history.CurrentStatus)
	require.Len(t, history.Events, 1)
	assert.Equal(t, "Departed facility", history.Events[0].Description)
}
