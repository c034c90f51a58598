package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-checkout/api/controllers"
	"github.com/angelmondragon/storefront-checkout/api/middleware"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	zoneService controllers.ZoneService,
	pricingService controllers.PricingService,
	demandRecorder controllers.DemandRecorder,
	pickupDirectory pickup.Directory,
	addressService controllers.AddressService,
	paymentStore paymentmethods.Store,
	sessionStore controllers.SessionStore,
	orderLookup controllers.OrderLookup,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must reach the middleware as a nil interface.
	var (
		readyRedis controllers.Pinger
		idemStore  redis.IdempotencyStore
		rateStore  redis.CounterStore
		readyDB    controllers.Pinger
	)
	if redisClient != nil {
		readyRedis, idemStore, rateStore = redisClient, redisClient, redisClient
	}
	if dbP != nil {
		readyDB = dbP
	}

	suggestPolicy := middleware.NewRateLimitPolicy(
		"address_suggest",
		cfg.RateLimit.SuggestWindow,
		cfg.RateLimit.SuggestIPLimit,
		0,
	)
	sessionPolicy := middleware.NewRateLimitPolicy(
		"checkout_session",
		cfg.RateLimit.SessionWindow,
		cfg.RateLimit.SessionIPLimit,
		cfg.RateLimit.SessionCustomerLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDB, readyRedis))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/zones", func(r chi.Router) {
			r.Get("/resolve", controllers.ResolveZones(zoneService, logg))
			r.Get("/{zoneId}/price", controllers.ZonePrice(zoneService, pricingService, logg))
			r.Post("/{zoneId}/price/refresh", controllers.RefreshZonePrice(pricingService, logg))
		})
		r.Post("/demand/{zoneId}/dispatches", controllers.RecordDispatch(zoneService, demandRecorder, logg))

		r.Get("/pickup-locations", controllers.PickupLocations(pickupDirectory, logg))

		r.Route("/addresses", func(r chi.Router) {
			r.With(middleware.RateLimit(suggestPolicy, rateStore, logg)).Get("/suggest", controllers.AddressSuggest(addressService, logg))
			r.Post("/resolve", controllers.AddressResolve(addressService, logg))
		})

		r.Route("/customers/{customerId}", func(r chi.Router) {
			r.Get("/addresses", controllers.CustomerAddresses(addressService, logg))
			r.Post("/addresses", controllers.AddCustomerAddress(addressService, logg))
			r.Get("/payment-methods", controllers.CustomerPaymentMethods(paymentStore, logg))
			r.Post("/payment-methods", controllers.AddCustomerPaymentMethod(paymentStore, logg))
		})

		r.Get("/orders/{reference}", controllers.GetOrder(orderLookup, logg))

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.With(middleware.RateLimit(sessionPolicy, rateStore, logg)).Post("/", controllers.CreateCheckoutSession(sessionStore, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.GetCheckoutSession(sessionStore, logg))
				r.Delete("/", controllers.DiscardCheckoutSession(sessionStore, logg))
				r.Get("/view", controllers.ViewCheckoutSession(sessionStore, logg))
				r.Post("/fulfillment", controllers.SelectFulfillment(sessionStore, logg))
				r.Post("/pickup-location", controllers.SelectPickupLocation(sessionStore, logg))
				r.Post("/address", controllers.SetSessionAddress(sessionStore, logg))
				r.Post("/zone", controllers.SelectZone(sessionStore, logg))
				r.Post("/pricing/refresh", controllers.RefreshSessionPricing(sessionStore, logg))
				r.Post("/acknowledge-fee", controllers.AcknowledgeFee(sessionStore, logg))
				r.Post("/payment-method", controllers.SelectPaymentMethod(sessionStore, logg))
				r.Post("/instructions", controllers.SetInstructions(sessionStore, logg))
				r.Post("/cart/reload", controllers.ReloadCart(sessionStore, logg))
				r.Post("/next", controllers.NextStep(sessionStore, logg))
				r.Post("/back", controllers.PreviousStep(sessionStore, logg))
				r.Post("/submit", controllers.SubmitCheckout(sessionStore, logg))
			})
		})
	})

	return r
}
