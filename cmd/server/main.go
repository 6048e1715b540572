package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jobdam/service-billing/internal/adapter"
	"github.com/jobdam/service-billing/internal/application"
	"github.com/jobdam/service-billing/internal/config"
	"github.com/jobdam/service-billing/internal/domain/coupon"
	"github.com/jobdam/service-billing/internal/events"
	"github.com/jobdam/service-billing/internal/handler"
	"github.com/jobdam/service-billing/internal/logger"
	"github.com/jobdam/service-billing/internal/middleware"
	"github.com/jobdam/service-billing/internal/repository"
	"github.com/jobdam/service-billing/internal/sweeper"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.Server.AppEnv, "service-billing")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-billing",
		zap.String("port", cfg.Server.Port),
	)

	// Connect to database. TranslateError maps the partial unique index
	// violation on open subscriptions to gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.Server.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.UserModel{}, &repository.SubscriptionModel{}); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	}

	// Initialize Kafka publisher
	publisher := events.NewPublisher(cfg.Kafka.Brokers, zapLogger)
	defer publisher.Close()

	// Initialize payment gateway adapter (mock when no admin key is set in
	// development)
	var gateway adapter.KakaoPayAdapter
	if cfg.Server.AppEnv == "development" && cfg.KakaoPay.AdminKey == "" {
		gateway = adapter.NewMockKakaoPayAdapter(zapLogger)
		zapLogger.Info("using mock KakaoPay adapter")
	} else {
		gateway = adapter.NewHTTPKakaoPayAdapter(nil, cfg.KakaoPay, zapLogger)
	}

	// Initialize repositories and coupon book
	subRepo := repository.NewGormSubscriptionRepository(db)
	userDir := repository.NewGormUserDirectory(db)
	coupons := coupon.NewBook(cfg.Coupons)

	// Initialize application service
	billingService := application.NewBillingService(subRepo, userDir, gateway, coupons, publisher, zapLogger)

	// Start reconciliation sweeper in a goroutine
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	sweep := sweeper.New(subRepo, publisher, cfg.Sweep, zapLogger)
	go sweep.Run(sweepCtx)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health and metrics routes
	healthHandler := handler.NewHealthHandler(db)
	healthHandler.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register API routes
	apiV1 := router.Group("/api/v1")
	billingHandler := handler.NewBillingHandler(billingService)
	billingHandler.RegisterRoutes(apiV1, cfg.JWT.Secret, userDir)
	adminHandler := handler.NewAdminHandler(billingService)
	adminHandler.RegisterRoutes(apiV1, cfg.JWT.Secret, userDir)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-billing...")

	// Stop the sweeper
	sweepCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-billing stopped")
}
