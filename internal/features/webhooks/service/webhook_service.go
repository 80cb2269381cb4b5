package service

import (
	"context"
	"errors"
	"fmt"

	"fulfillment-core/internal/core/apperrors"
	"fulfillment-core/internal/core/logger"
	carrierdomain "fulfillment-core/internal/features/carriers/domain"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	"fulfillment-core/internal/features/webhooks/ports"

	"go.uber.org/zap"
)

// WebhookService runs the carrier webhook pipeline: authenticate, parse,
// translate, apply. Authentication always comes first; nothing from an
// unverified payload is parsed or logged back to the caller.
type WebhookService struct {
	carriers []carrierports.Carrier
	orders   ports.ShipmentUpdater
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(carriers []carrierports.Carrier, orders ports.ShipmentUpdater) *WebhookService {
	return &WebhookService{
		carriers: carriers,
		orders:   orders,
	}
}

// ProcessShipmentEvent handles one inbound carrier webhook delivery.
//
// Unmapped vendor statuses and duplicate redeliveries are acknowledged as
// success: the carrier already did its job, retrying the delivery would
// change nothing.
func (s *WebhookService) ProcessShipmentEvent(ctx context.Context, carrierName string, rawBody []byte, headers carrierdomain.Headers) error {
	carrier, ok := carrierports.ForName(s.carriers, carrierName)
	if !ok {
		return fmt.Errorf("unknown carrier %q: %w", carrierName, apperrors.ErrNotFound)
	}

	if err := carrier.VerifyWebhook(rawBody, headers); err != nil {
		logger.Get().Warn("Webhook signature verification failed",
			zap.String("carrier", carrierName),
			zap.Error(err),
		)
		return err
	}

	event, err := carrier.ParseWebhook(rawBody, headers)
	if err != nil {
		return err
	}

	st, ok := carrier.Translate(event.VendorStatus)
	if !ok {
		// Verified but unmappable: acknowledge and keep a trace for the
		// status-map follow-up.
		logger.Get().Warn("Unmapped vendor status acknowledged",
			zap.String("carrier", carrierName),
			zap.String("vendor_status", event.VendorStatus),
			zap.String("tracking_id", event.TrackingID),
		)
		return nil
	}

	err = s.orders.ApplyShipmentUpdate(ctx, event.TrackingID, st, event.EventID, event.OccurredAt)
	if errors.Is(err, apperrors.ErrDuplicateEvent) {
		logger.Get().Info("Duplicate webhook delivery acknowledged",
			zap.String("carrier", carrierName),
			zap.String("tracking_id", event.TrackingID),
			zap.String("event_id", event.EventID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	logger.Get().Info("Shipment status applied",
		zap.String("carrier", carrierName),
		zap.String("tracking_id", event.TrackingID),
		zap.String("status", string(st)),
	)
	return nil
}
