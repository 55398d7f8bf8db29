package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/portalakashico/portal-backend/api/routes"
	"github.com/portalakashico/portal-backend/internal/checkout"
	"github.com/portalakashico/portal-backend/internal/fulfillment"
	"github.com/portalakashico/portal-backend/internal/generation"
	"github.com/portalakashico/portal-backend/internal/notify"
	"github.com/portalakashico/portal-backend/internal/payments"
	"github.com/portalakashico/portal-backend/internal/pending"
	squarewebhook "github.com/portalakashico/portal-backend/internal/webhooks/square"
	stripewebhook "github.com/portalakashico/portal-backend/internal/webhooks/stripe"
	"github.com/portalakashico/portal-backend/pkg/config"
	"github.com/portalakashico/portal-backend/pkg/email"
	"github.com/portalakashico/portal-backend/pkg/env"
	"github.com/portalakashico/portal-backend/pkg/instance"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/metrics"
	"github.com/portalakashico/portal-backend/pkg/openai"
	"github.com/portalakashico/portal-backend/pkg/paypal"
	"github.com/portalakashico/portal-backend/pkg/redis"
	"github.com/portalakashico/portal-backend/pkg/square"
	"github.com/portalakashico/portal-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured, using in-process rate limiting and no webhook dedupe")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	product, err := payments.ProductFromConfig(cfg.Pricing)
	if err != nil {
		logg.Error(ctx, "invalid pricing configuration", err)
		os.Exit(1)
	}

	completer, err := openai.NewClient(cfg.OpenAI)
	if err != nil {
		logg.Error(ctx, "failed to create openai client", err)
		os.Exit(1)
	}
	generator, err := generation.NewService(generation.ServiceParams{
		Completer: completer,
		Options: generation.Options{
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Timeout:     cfg.Timeouts.Generation,
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create generation service", err)
		os.Exit(1)
	}

	sender, err := email.NewClient(cfg.Resend)
	if err != nil {
		logg.Error(ctx, "failed to create email client", err)
		os.Exit(1)
	}
	notifier, err := notify.NewService(notify.ServiceParams{
		Sender:  sender,
		Logger:  logg,
		Timeout: cfg.Timeouts.Delivery,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notify service", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Generator: generator,
		Notifier:  notifier,
		Metrics:   fulfillmentMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create fulfillment service", err)
		os.Exit(1)
	}

	baseURL := cfg.App.PublicBaseURL()
	var (
		adapters     []payments.Adapter
		stripeClient *stripe.Client
		squareClient *square.Client
	)

	if cfg.Stripe.Enabled() {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "failed to create stripe client", err)
			os.Exit(1)
		}
		adapter, err := payments.NewStripeAdapter(payments.StripeAdapterParams{
			Sessions: stripeClient,
			Product:  product,
			PriceID:  cfg.Stripe.PriceID,
			BaseURL:  baseURL,
		})
		if err != nil {
			logg.Error(ctx, "failed to create stripe adapter", err)
			os.Exit(1)
		}
		adapters = append(adapters, adapter)
	}

	if cfg.PayPal.Enabled() {
		paypalClient, err := paypal.NewClient(cfg.PayPal, paypal.WithHTTPClient(&http.Client{Timeout: cfg.Timeouts.Payment}))
		if err != nil {
			logg.Error(ctx, "failed to create paypal client", err)
			os.Exit(1)
		}
		adapter, err := payments.NewPayPalAdapter(payments.PayPalAdapterParams{
			Orders:  paypalClient,
			Product: product,
			BaseURL: baseURL,
		})
		if err != nil {
			logg.Error(ctx, "failed to create paypal adapter", err)
			os.Exit(1)
		}
		adapters = append(adapters, adapter)
		logg.Info(logg.WithField(ctx, "paypal_mode", paypalClient.Mode()), "paypal enabled")
	}

	if cfg.Square.Enabled() {
		squareCfg := cfg.Square
		if squareCfg.WebhookURL == "" {
			squareCfg.WebhookURL = baseURL + "/api/webhooks/square"
		}
		squareClient, err = square.NewClient(ctx, squareCfg, logg)
		if err != nil {
			logg.Error(ctx, "failed to create square client", err)
			os.Exit(1)
		}
		adapter, err := payments.NewSquareAdapter(payments.SquareAdapterParams{
			Checkout:   squareClient,
			Product:    product,
			LocationID: squareClient.LocationID(),
			BaseURL:    baseURL,
		})
		if err != nil {
			logg.Error(ctx, "failed to create square adapter", err)
			os.Exit(1)
		}
		adapters = append(adapters, adapter)
	}

	paymentRegistry := payments.NewRegistry(adapters...)
	store := pending.NewMemoryStore()
	metrics.RegisterPendingGauge(registry, store.Len)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Registry:       paymentRegistry,
		Store:          store,
		Fulfiller:      fulfillmentService,
		Metrics:        fulfillmentMetrics,
		Logger:         logg,
		PaymentTimeout: cfg.Timeouts.Payment,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	var (
		webhookService *stripewebhook.Service
		webhookGuard   *stripewebhook.IdempotencyGuard
	)
	if stripeClient != nil && stripeClient.SigningSecret() != "" {
		webhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			Completer: checkoutService,
			Logger:    logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create stripe webhook service", err)
			os.Exit(1)
		}
		if redisClient != nil {
			webhookGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.RateLimit.WebhookDedupTTL, stripewebhook.DefaultScope)
			if err != nil {
				logg.Error(ctx, "failed to create stripe webhook guard", err)
				os.Exit(1)
			}
		}
	}

	var (
		squareWebhookService *squarewebhook.Service
		squareWebhookGuard   *squarewebhook.IdempotencyGuard
	)
	if squareClient.WebhookEnabled() {
		squareWebhookService, err = squarewebhook.NewService(squarewebhook.ServiceParams{
			Completer: checkoutService,
			Logger:    logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create square webhook service", err)
			os.Exit(1)
		}
		if redisClient != nil {
			squareWebhookGuard, err = squarewebhook.NewIdempotencyGuard(redisClient, cfg.RateLimit.WebhookDedupTTL, squarewebhook.DefaultScope)
			if err != nil {
				logg.Error(ctx, "failed to create square webhook guard", err)
				os.Exit(1)
			}
		}
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	serverCtx := logg.WithFields(ctx, map[string]any{
		"addr":      addr,
		"instance":  instance.GetID(),
		"base_url":  baseURL,
		"providers": paymentRegistry.Providers(),
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			registry,
			fulfillmentService,
			checkoutService,
			paymentRegistry.Providers(),
			stripeClient,
			webhookService,
			webhookGuard,
			squareClient,
			squareWebhookService,
			squareWebhookGuard,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			_ = redisClient.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()
	if err := multierr.Combine(
		server.Shutdown(shutdownCtx),
		checkoutService.Wait(shutdownCtx),
		redisClient.Close(),
	); err != nil {
		logg.Error(serverCtx, "error during shutdown", err)
		os.Exit(1)
	}
	if pendingOrders := store.Len(); pendingOrders > 0 {
		logg.Warn(logg.WithField(serverCtx, "pending_orders", pendingOrders), "unconfirmed orders dropped on shutdown")
	}
}
