package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/domain/banner"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/category"
	"github.com/example/storefront/internal/domain/checkout"
	"github.com/example/storefront/internal/domain/dashboard"
	"github.com/example/storefront/internal/domain/discount"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/redislock"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/notification"
	"github.com/example/storefront/internal/payment"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Storefront API")
	log.Println("[API] ========================================")
	log.Printf("[API] Kafka: %v", cfg.KafkaBrokers)
	log.Printf("[API] Topic: %s", cfg.KafkaTopic)
	log.Printf("[API] Public URL: %s", cfg.PublicBaseURL)

	appMetrics, shutdownMetrics, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to initialize metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("[API] Metrics shutdown error: %v", err)
		}
	}()

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("[API] Connected to PostgreSQL")

	st := store.NewPostgresStore(db, appMetrics)
	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("[API] Failed to initialize schema: %v", err)
	}

	locker := newLocker(ctx, cfg)

	if cfg.StripeSecretKey == "" {
		log.Println("[API] WARNING: STRIPE_SECRET_KEY is not set, checkout will fail")
	}
	processor := payment.NewStripeProcessor(cfg.StripeSecretKey)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	dispatcher := notification.NewDispatcher(producer)

	userSvc := user.NewService(st)
	cartSvc := cart.NewService(st, st, locker, appMetrics)
	discountSvc := discount.NewService(st, st)
	if err := discountSvc.Reconcile(ctx); err != nil {
		log.Printf("[API] Initial discount reconcile failed: %v", err)
	}
	go discountSvc.Run(ctx, time.Minute)

	services := api.Services{
		Products:   product.NewService(st, st),
		Categories: category.NewService(st),
		Banners:    banner.NewService(st),
		Discounts:  discountSvc,
		Cart:       cartSvc,
		Checkout: checkout.NewService(st, st, cartSvc, processor, dispatcher, appMetrics, checkout.Options{
			PublicBaseURL: cfg.PublicBaseURL,
			Currency:      cfg.Currency,
		}),
		Orders:    order.NewService(st),
		Dashboard: dashboard.NewService(st, st, st),
	}

	seedAdmin(ctx, cfg, userSvc)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	router := api.NewRouter(api.NewHandlers(services), api.NewAuthHandlers(userSvc, jwtService), api.RouterDeps{
		JWT:           jwtService,
		Profiles:      st,
		Metrics:       appMetrics,
		AllowedOrigin: cfg.PublicBaseURL,
	})

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[API] Server started on :%s", cfg.AppPort)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Graceful shutdown failed: %v", err)
	}
}

// newLocker uses Redis when configured and reachable, otherwise an in-process
// locker that only serializes requests within this replica.
func newLocker(ctx context.Context, cfg *config.Config) cart.Locker {
	if cfg.RedisAddr == "" {
		log.Println("[API] REDIS_ADDR not set, using in-process cart locks")
		return redislock.NewLocalLocker()
	}
	client, err := redislock.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Printf("[API] WARNING: %v, using in-process cart locks", err)
		return redislock.NewLocalLocker()
	}
	log.Printf("[API] Connected to Redis at %s", cfg.RedisAddr)
	return redislock.NewRedisLocker(client)
}

func seedAdmin(ctx context.Context, cfg *config.Config, users *user.Service) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	p, err := users.RegisterAdmin(ctx, user.RegisterInput{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Name:     "Administrator",
	})
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		log.Printf("[API] Admin %s already exists", cfg.AdminEmail)
	case err != nil:
		log.Printf("[API] Failed to seed admin %s: %v", cfg.AdminEmail, err)
	default:
		log.Printf("[API] Seeded admin %s", p.Email)
	}
}
