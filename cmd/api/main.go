package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lightbikeshop/storefront-backend/api/controllers"
	"github.com/lightbikeshop/storefront-backend/api/routes"
	"github.com/lightbikeshop/storefront-backend/internal/cart"
	"github.com/lightbikeshop/storefront-backend/internal/catalog"
	"github.com/lightbikeshop/storefront-backend/internal/checkout"
	"github.com/lightbikeshop/storefront-backend/internal/orders"
	"github.com/lightbikeshop/storefront-backend/internal/promo"
	"github.com/lightbikeshop/storefront-backend/internal/shipping"
	"github.com/lightbikeshop/storefront-backend/internal/users"
	"github.com/lightbikeshop/storefront-backend/pkg/config"
	"github.com/lightbikeshop/storefront-backend/pkg/db"
	"github.com/lightbikeshop/storefront-backend/pkg/env"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/metrics"
	"github.com/lightbikeshop/storefront-backend/pkg/migrate"
	"github.com/lightbikeshop/storefront-backend/pkg/money"
	"github.com/lightbikeshop/storefront-backend/pkg/redis"
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
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	cartRepo := cart.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	promoRepo := promo.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()), cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	flatRate, err := money.FromString(cfg.Shipping.FlatRate)
	if err != nil {
		logg.Error(context.Background(), "invalid shipping flat rate", err)
		os.Exit(1)
	}
	quoter, err := shipping.NewFlatRate(flatRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping quoter", err)
		os.Exit(1)
	}

	minTotal, err := money.FromString(cfg.Checkout.MinPayableTotal)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout minimum total", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, orderRepo, promoRepo, quoter, minTotal, checkoutMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	resolver := &controllers.CartResolver{
		DB:         dbClient,
		Carts:      cartRepo,
		Variants:   catalogRepo,
		Usage:      promoRepo,
		Promos:     promoRepo,
		Redis:      redisClient,
		SessionTTL: cfg.Session.CartTTL,
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			Gatherer:        registry,
			CartResolver:    resolver,
			CatalogRepo:     catalogRepo,
			PromoRepo:       promoRepo,
			UsersService:    usersService,
			OrdersService:   ordersService,
			CheckoutService: checkoutService,
			CheckoutMetrics: checkoutMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
