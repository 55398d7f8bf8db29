package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portalakashico/portal-backend/api/controllers"
	webhookcontrollers "github.com/portalakashico/portal-backend/api/controllers/webhooks"
	"github.com/portalakashico/portal-backend/api/middleware"
	squarewebhook "github.com/portalakashico/portal-backend/internal/webhooks/square"
	stripewebhook "github.com/portalakashico/portal-backend/internal/webhooks/stripe"
	"github.com/portalakashico/portal-backend/pkg/config"
	"github.com/portalakashico/portal-backend/pkg/enums"
	"github.com/portalakashico/portal-backend/pkg/logger"
	"github.com/portalakashico/portal-backend/pkg/redis"
	"github.com/portalakashico/portal-backend/pkg/square"
	"github.com/portalakashico/portal-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	fulfillmentService controllers.ReadingFulfiller,
	checkoutService controllers.CheckoutService,
	providers []enums.PaymentProvider,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	squareClient *square.Client,
	squareWebhookService *squarewebhook.Service,
	squareWebhookGuard *squarewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	if stripeClient != nil && logg != nil {
		ctx := logg.WithField(context.Background(), "stripe_env", stripeClient.Environment())
		logg.Info(ctx, "stripe client wired to API routes")
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(cfg.App.TrustedProxyHops),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// typed nils must not leak into the optional interfaces below
	var (
		pinger        redis.Pinger
		limiter       middleware.RateLimiter
		responseStore redis.ResponseStore
	)
	if redisClient != nil {
		pinger, limiter, responseStore = redisClient, redisClient, redisClient
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	orderPolicy := middleware.NewRateLimitPolicy(
		"orders",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.EmailLimit,
	)

	enabled := make(map[enums.PaymentProvider]bool, len(providers))
	for _, provider := range providers {
		enabled[provider] = true
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pinger, logg))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", controllers.Ping())

		if stripeClient != nil && stripeWebhookService != nil {
			r.Post("/webhooks/stripe", stripeWebhookHandler(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
		}
		if squareClient.WebhookEnabled() && squareWebhookService != nil {
			r.Post("/webhooks/square", squareWebhookHandler(squareWebhookService, squareClient, squareWebhookGuard, logg))
		}

		// routes that start a generation or open a payment order
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(orderPolicy, limiter, logg))
			r.Use(middleware.Idempotency(responseStore, logg))

			r.Post("/lectura", controllers.Lectura(fulfillmentService, logg))
			if enabled[enums.PaymentProviderStripe] {
				r.Post("/create-checkout-session", controllers.CreateCheckoutSession(checkoutService, logg))
			}
			if enabled[enums.PaymentProviderPayPal] {
				r.Post("/paypal/create-order", controllers.CreateOrder(checkoutService, enums.PaymentProviderPayPal, controllers.MessagePayPalOrderFailed, logg))
			}
			if enabled[enums.PaymentProviderSquare] {
				r.Post("/square/create-payment-link", controllers.CreateOrder(checkoutService, enums.PaymentProviderSquare, controllers.MessageSquareLinkFailed, logg))
			}
		})

		if enabled[enums.PaymentProviderStripe] {
			r.Post("/finalizar-lectura", controllers.FinalizeReading(checkoutService, logg))
		}
		if enabled[enums.PaymentProviderPayPal] {
			r.Post("/paypal/capture-order", controllers.ConfirmOrder(checkoutService, enums.PaymentProviderPayPal, controllers.MessagePayPalOrderMissing, controllers.MessagePayPalCaptureFailed, logg))
		}
		if enabled[enums.PaymentProviderSquare] {
			r.Post("/square/confirm-order", controllers.ConfirmOrder(checkoutService, enums.PaymentProviderSquare, controllers.MessageSquareOrderMissing, controllers.MessageSquareConfirmFailed, logg))
		}
	})

	return r
}

func stripeWebhookHandler(svc *stripewebhook.Service, client *stripe.Client, guard *stripewebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	if guard == nil {
		return webhookcontrollers.StripeWebhook(svc, client, nil, logg)
	}
	return webhookcontrollers.StripeWebhook(svc, client, guard, logg)
}

func squareWebhookHandler(svc *squarewebhook.Service, client *square.Client, guard *squarewebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	if guard == nil {
		return webhookcontrollers.SquareWebhook(svc, client, nil, logg)
	}
	return webhookcontrollers.SquareWebhook(svc, client, guard, logg)
}
