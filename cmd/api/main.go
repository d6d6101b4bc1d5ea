package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bowenSteve/kipsunya-biz/api/routes"
	cartsvc "github.com/bowenSteve/kipsunya-biz/internal/cart"
	"github.com/bowenSteve/kipsunya-biz/internal/catalog"
	checkoutsvc "github.com/bowenSteve/kipsunya-biz/internal/checkout"
	"github.com/bowenSteve/kipsunya-biz/internal/identity"
	"github.com/bowenSteve/kipsunya-biz/internal/notify"
	ordersvc "github.com/bowenSteve/kipsunya-biz/internal/orders"
	refundsvc "github.com/bowenSteve/kipsunya-biz/internal/refunds"
	"github.com/bowenSteve/kipsunya-biz/pkg/config"
	"github.com/bowenSteve/kipsunya-biz/pkg/db"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/metrics"
	"github.com/bowenSteve/kipsunya-biz/pkg/migrate"
	"github.com/bowenSteve/kipsunya-biz/pkg/outbox"
	"github.com/bowenSteve/kipsunya-biz/pkg/redis"
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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	identitySvc, err := identity.NewService(identity.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	cartService, err := cartsvc.NewService(cartRepo, catalogRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	notifySvc, err := notify.NewService(notify.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	ordersService, err := ordersvc.NewService(ordersRepo, dbClient, outboxSvc, notifySvc, commerceMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(cartRepo, catalogRepo, ordersRepo, dbClient, outboxSvc, notifySvc, cfg.Commerce, commerceMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	refundsService, err := refundsvc.NewService(refundsvc.NewRepository(dbClient.DB()), ordersService, dbClient, outboxSvc, notifySvc, commerceMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Registry: registry,
			Identity: identitySvc,
			Catalog:  catalogSvc,
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   ordersService,
			Refunds:  refundsService,
			Notify:   notifySvc,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
