package main

import (
	"context"
	"log"
	"time"

	"fulfillment-core/internal/core/config"
	"fulfillment-core/internal/core/httpclient"
	"fulfillment-core/internal/core/logger"
	"fulfillment-core/internal/core/server"
	"fulfillment-core/internal/core/store"
	"fulfillment-core/internal/core/tasks"
	carrieradapter "fulfillment-core/internal/features/carriers/adapters"
	carrierports "fulfillment-core/internal/features/carriers/ports"
	orderadapter "fulfillment-core/internal/features/orders/adapters"
	orderhandler "fulfillment-core/internal/features/orders/handler"
	orderservice "fulfillment-core/internal/features/orders/service"
	paymentadapter "fulfillment-core/internal/features/payments/adapters"
	paymenthandler "fulfillment-core/internal/features/payments/handler"
	paymentports "fulfillment-core/internal/features/payments/ports"
	paymentservice "fulfillment-core/internal/features/payments/service"
	returnadapter "fulfillment-core/internal/features/returns/adapters"
	returnhandler "fulfillment-core/internal/features/returns/handler"
	returnservice "fulfillment-core/internal/features/returns/service"
	webhookhandler "fulfillment-core/internal/features/webhooks/handler"
	webhookservice "fulfillment-core/internal/features/webhooks/service"

	"go.uber.org/zap"
)

// @title Fulfillment Core API
// @version 1.0
// @description Marketplace fulfillment and payment reconciliation core: carrier and gateway webhooks, order lifecycle, returns.
// @contact.name API Support
// @contact.email support@fulfillmentcore.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Initialize the document store and verify connectivity.
	docStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		l.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer docStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := docStore.Ping(ctx); err != nil {
		cancel()
		l.Fatal("Redis health check failed", zap.Error(err))
	}
	cancel()
	l.Info("Redis connection verified")

	outboundClient := httpclient.NewClient(time.Duration(cfg.OutboundTimeoutSeconds) * time.Second)

	// Initialize carrier adapters.
	carriers := []carrierports.Carrier{
		carrieradapter.NewFedexAdapter(cfg.Carriers.FedexURL, cfg.Carriers.FedexWebhookSecret, outboundClient),
		carrieradapter.NewShiprocketAdapter(cfg.Carriers.ShiprocketURL, cfg.Carriers.ShiprocketToken, outboundClient),
		carrieradapter.NewUPSAdapter(cfg.Carriers.UPSURL, cfg.Carriers.UPSWebhookSecret, outboundClient),
	}

	// Initialize payment gateway adapters.
	gateways := []paymentports.Gateway{
		paymentadapter.NewRazorpayAdapter(cfg.Gateways.RazorpayWebhookSecret),
		paymentadapter.NewStripeAdapter(cfg.Gateways.StripeWebhookSecret),
		paymentadapter.NewCashfreeAdapter(cfg.Gateways.CashfreeWebhookSecret),
	}

	// Initialize repositories.
	orderRepo := orderadapter.NewRedisOrderRepository(docStore)
	paymentRepo := paymentadapter.NewRedisPaymentRepository(docStore)
	returnRepo := returnadapter.NewRedisReturnRepository(docStore)

	// Initialize services and handlers.
	orderService := orderservice.NewOrderService(orderRepo, carriers)
	orderHandler := orderhandler.NewOrderHandler(orderService)

	webhookSvc := webhookservice.NewWebhookService(carriers, orderService)
	webhookHdl := webhookhandler.NewWebhookHandler(webhookSvc)

	finalizer := paymentadapter.NewOrderServiceFinalizer(orderService)
	paymentSvc := paymentservice.NewPaymentService(paymentRepo, gateways, finalizer)
	paymentHdl := paymenthandler.NewPaymentHandler(paymentSvc)

	returnSvc := returnservice.NewReturnService(returnRepo, orderRepo, carriers, tasks.NewGoroutineRunner())
	returnHdl := returnhandler.NewReturnHandler(returnSvc)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/webhooks/shipping/:carrier", webhookHdl.HandleShippingWebhook)
	srv.App.Post("/webhooks/payments/:gateway", paymentHdl.HandleGatewayWebhook)
	srv.App.Post("/checkout", paymentHdl.Checkout)
	srv.App.Get("/payments/:id", paymentHdl.GetPayment)
	srv.App.Get("/orders/:id", orderHandler.GetOrder)
	srv.App.Post("/orders/:id/book", orderHandler.BookShipment)
	srv.App.Post("/orders/:id/cancel", orderHandler.CancelOrder)
	srv.App.Get("/tracking/:number", orderHandler.GetTrackingHistory)
	srv.App.Post("/returns", returnHdl.CreateReturn)
	srv.App.Post("/returns/:id/decision", returnHdl.DecideReturn)
	srv.App.Post("/returns/:id/reverse-shipment/retry", returnHdl.RetryReverseShipment)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
