package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-checkout/api/routes"
	"github.com/angelmondragon/storefront-checkout/internal/addressbook"
	"github.com/angelmondragon/storefront-checkout/internal/cart"
	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/cron"
	"github.com/angelmondragon/storefront-checkout/internal/demand"
	"github.com/angelmondragon/storefront-checkout/internal/orders"
	"github.com/angelmondragon/storefront-checkout/internal/paymentmethods"
	"github.com/angelmondragon/storefront-checkout/internal/pickup"
	"github.com/angelmondragon/storefront-checkout/internal/surge"
	"github.com/angelmondragon/storefront-checkout/internal/zones"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/instance"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/maps"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/migrate"
	"github.com/angelmondragon/storefront-checkout/pkg/money"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := openDatabase(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := dbClient.RegisterStats(registry, "storefront"); err != nil {
		logg.Error(context.Background(), "failed to register database stats", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	resolver, err := zones.NewResolver(
		zones.NewCachedCatalog(zones.NewRepository(dbClient.DB()), cfg.Checkout.ZoneCatalogTTL),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create zone resolver", err)
		os.Exit(1)
	}

	counter, err := demand.NewCounter(redisClient, cfg.Pricing.DemandWindow)
	if err != nil {
		logg.Error(context.Background(), "failed to create demand counter", err)
		os.Exit(1)
	}

	settings, err := surge.SettingsFromConfig(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "invalid surge settings", err)
		os.Exit(1)
	}
	engine, err := surge.NewEngine(surge.EngineParams{
		Source:   counter,
		Settings: settings,
		Logger:   logg,
		Metrics:  metrics.NewSurgeMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create surge engine", err)
		os.Exit(1)
	}

	var places addressbook.Places
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			logg.Error(context.Background(), "failed to create maps client", err)
			os.Exit(1)
		}
		places = mapsClient
	} else {
		logg.Warn(context.Background(), "google maps api key not set, address autocomplete disabled")
	}

	addressService, err := addressbook.NewService(addressbook.NewRepository(dbClient.DB()), places, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repository:        orders.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	taxRate, err := money.ParseRate(cfg.Checkout.TaxRate)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout tax rate", err)
		os.Exit(1)
	}

	pickupDirectory := pickup.NewRepository(dbClient.DB())
	paymentStore := paymentmethods.NewRepository(dbClient.DB())

	sessions, err := checkout.NewManager(checkout.Dependencies{
		Cart:      cart.NewRepository(dbClient.DB()),
		Zones:     resolver,
		Pricing:   engine,
		Addresses: addressService,
		Pickup:    pickupDirectory,
		Payments:  paymentStore,
		Orders:    orderService,
		Logger:    logg,
		Metrics:   metrics.NewCheckoutMetrics(registry),
	}, checkout.Options{
		TaxRate:             &taxRate,
		SubmitTimeout:       cfg.Checkout.SubmitTimeout,
		CollaboratorTimeout: cfg.Checkout.CollaboratorTimeout,
	}, cfg.Checkout.SessionIdleTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout session manager", err)
		os.Exit(1)
	}

	schedulers, err := buildSchedulers(cfg, logg, registry, engine, sessions)
	if err != nil {
		logg.Error(context.Background(), "failed to create schedulers", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	var wg sync.WaitGroup
	for _, svc := range schedulers {
		wg.Add(1)
		go func(svc *cron.Service) {
			defer wg.Done()
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "scheduler stopped unexpectedly", err)
			}
		}(svc)
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			resolver,
			engine,
			counter,
			pickupDirectory,
			addressService,
			paymentStore,
			sessions,
			orderService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			stop()
			wg.Wait()
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	wg.Wait()
	logg.Info(ctx, "api server stopped gracefully")
}

func openDatabase(cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(context.Background(), cfg.DB.SQLitePath, logg)
	}
	return db.New(context.Background(), cfg.DB, logg)
}

// buildSchedulers returns one scheduler per cadence: surge refresh and the
// idle session sweep.
func buildSchedulers(
	cfg *config.Config,
	logg *logger.Logger,
	reg prometheus.Registerer,
	engine *surge.Engine,
	sessions *checkout.Manager,
) ([]*cron.Service, error) {
	jobMetrics := metrics.NewJobMetrics(reg)

	refreshJob, err := surge.NewRefreshJob(engine, logg)
	if err != nil {
		return nil, err
	}
	refresh, err := cron.NewService(cron.ServiceParams{
		Name:       "surge-refresh",
		Logger:     logg,
		Registry:   cron.NewRegistry(cron.WithTimeout(refreshJob, cfg.Pricing.RefreshInterval)),
		Metrics:    jobMetrics,
		Interval:   cfg.Pricing.RefreshInterval,
		RunOnStart: true,
	})
	if err != nil {
		return nil, err
	}

	sweepJob, err := checkout.NewSweepJob(sessions, logg)
	if err != nil {
		return nil, err
	}
	sweep, err := cron.NewService(cron.ServiceParams{
		Name:     "session-sweep",
		Logger:   logg,
		Registry: cron.NewRegistry(cron.WithTimeout(sweepJob, cfg.Checkout.SweepInterval)),
		Metrics:  jobMetrics,
		Interval: cfg.Checkout.SweepInterval,
	})
	if err != nil {
		return nil, err
	}

	return []*cron.Service{refresh, sweep}, nil
}
