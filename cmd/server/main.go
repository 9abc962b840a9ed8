package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/internal/app/controller"
	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/app/service"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/internal/middleware"
	"github.com/garka/garka-backend/internal/router"
	"github.com/garka/garka-backend/internal/scheduler"
	"github.com/garka/garka-backend/internal/websocket"
	"github.com/garka/garka-backend/pkg/logger"
	"github.com/garka/garka-backend/pkg/payment/monnify"
	"github.com/garka/garka-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := cfg.Log.Level
	if logLevel == "" && cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Server.Environment == "development",
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
	})

	logger.Info("Starting Garka Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(model.Amount(cfg.Commission.MinimumVerificationFee)); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; without it idempotency keys and logout revocation are off
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Continuing without Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	gateway, err := monnify.NewClient(monnify.Config{
		APIKey:       cfg.Payment.Monnify.APIKey,
		APISecret:    cfg.Payment.Monnify.APISecret,
		ContractCode: cfg.Payment.Monnify.ContractCode,
		BaseURL:      cfg.Payment.Monnify.BaseURL,
		RedirectURL:  cfg.Payment.Monnify.RedirectURL,
	}, cfg.Payment.Monnify.Timeout)
	if err != nil {
		logger.Fatal("Failed to initialize Monnify client", err)
	}

	// Initialize repositories
	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	profileRepo := repository.NewProfileRepository(database)
	propertyRepo := repository.NewPropertyRepository(database)
	verificationRepo := repository.NewVerificationRepository(database)
	transactionRepo := repository.NewTransactionRepository(database)
	configRepo := repository.NewCommissionConfigRepository(database)
	webhookRepo := repository.NewWebhookEventRepository(database)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	notificationService := service.NewNotificationService(userRepo, profileRepo, hub)
	payoutService := service.NewPayoutService(transactionRepo, cfg.Payout.DefaultProvider)
	commissionService := service.NewCommissionService(database, configRepo, verificationRepo, transactionRepo, payoutService,
		service.AutoPayoutSettings{
			Enabled:  cfg.Payout.AutoPayout,
			Provider: cfg.Payout.DefaultProvider,
		})
	verificationService := service.NewVerificationService(verificationRepo, propertyRepo, profileRepo, commissionService, notificationService,
		service.VerificationSettings{
			MinimumFee:     model.Amount(cfg.Commission.MinimumVerificationFee),
			ReservationTTL: cfg.Reservation.TTL,
		})
	paymentService := service.NewPaymentService(gateway, verificationService, verificationRepo, transactionRepo, userRepo)
	webhookService := service.NewWebhookService(webhookRepo, transactionRepo, verificationService,
		service.WebhookSettings{
			Secret:    cfg.Webhook.Secret,
			Algorithm: cfg.Webhook.Algorithm,
			MaxAge:    cfg.Webhook.MaxAge,
		})
	reservationService := service.NewReservationService(verificationRepo, propertyRepo, notificationService)
	opsService := service.NewOpsService(verificationRepo, transactionRepo)

	if cfg.Webhook.Secret == "" {
		logger.Warn("MONNIFY_WEBHOOK_SECRET is not set; webhook signatures are not verified")
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	verificationController := controller.NewVerificationController(verificationService)
	paymentController := controller.NewPaymentController(paymentService, webhookService, cfg.Webhook.MaxBodyBytes)
	adminController := controller.NewAdminController(payoutService, commissionService, opsService)
	notificationController := controller.NewNotificationController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		verificationController,
		paymentController,
		adminController,
		notificationController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Background jobs
	sweeper := scheduler.NewReservationSweeper(reservationService, cfg.Reservation.SweepInterval)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("Failed to start reservation sweeper", err)
	}
	retention := scheduler.NewWebhookRetentionJob(webhookRepo, cfg.Webhook.Retention)
	if err := retention.Start(); err != nil {
		logger.Fatal("Failed to start webhook retention job", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	sweeper.Stop()
	retention.Stop()

	logger.Info("Server stopped successfully")
}
