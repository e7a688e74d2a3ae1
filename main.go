package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Talent-1/cbt-service/internal/access"
	"github.com/Talent-1/cbt-service/internal/auth"
	"github.com/Talent-1/cbt-service/internal/cache"
	"github.com/Talent-1/cbt-service/internal/config"
	"github.com/Talent-1/cbt-service/internal/events"
	"github.com/Talent-1/cbt-service/internal/gateway"
	"github.com/Talent-1/cbt-service/internal/handlers"
	"github.com/Talent-1/cbt-service/internal/metrics"
	"github.com/Talent-1/cbt-service/internal/repositories/postgres"
	"github.com/Talent-1/cbt-service/internal/services"
	"github.com/Talent-1/cbt-service/internal/storage"
	"github.com/Talent-1/cbt-service/internal/utils"
	"github.com/Talent-1/cbt-service/internal/validator"
	"github.com/Talent-1/cbt-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		AutoMigrate: cfg.AutoMigrate,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Event bus: Kafka when brokers are configured, otherwise in-process
	var publisher events.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, slogLogger)
		if err != nil {
			log.Fatalf("Failed to initialize Kafka publisher: %v", err)
		}
		publisher = kafkaPublisher
	} else {
		inProcess, channel := events.NewInProcessPublisher(cfg.Kafka.Topic, slogLogger)
		err := events.Listen(ctx, channel, cfg.Kafka.Topic, slogLogger, func(ctx context.Context, event *events.Event) error {
			switch event.Type {
			case events.AccountCreated, events.ResultSubmitted, events.PaymentStatusChanged:
				cache.InvalidateStats(ctx, cacheManager)
			}
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to subscribe to events: %v", err)
		}
		publisher = inProcess
	}

	var paymentGateway gateway.PaymentGateway = gateway.NoopGateway{}
	if cfg.Midtrans.Enabled() {
		paymentGateway = gateway.NewMidtransGateway(cfg.Midtrans.ServerKey, cfg.Midtrans.Production)
	}

	images, err := storage.NewLocalImageStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	appMetrics := metrics.New()
	policy := access.DefaultPolicy()

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repoManager.GetRepository(),
		Cache:     cacheManager,
		Logger:    slogLogger,
		Validator: validator.New(),
		Policy:    policy,
		Tokens:    tokens,
		Publisher: publisher,
		Gateway:   paymentGateway,
		Images:    images,
		Metrics:   appMetrics,
	}, services.ServiceManagerConfig{
		IdentityPrefix:       cfg.Exam.IdentityPrefix,
		SubmissionGrace:      cfg.Exam.SubmissionGrace,
		PaymentGatingEnabled: cfg.Payment.GatingEnabled,
		PaymentGatingWindow:  cfg.Payment.GatingWindow,
		DefaultCurrency:      cfg.Payment.DefaultCurrency,
	})
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	authMiddleware := handlers.NewAuthMiddleware(tokens, handlers.NewCasdoorClient(cfg.Casdoor), serviceManager.Account(), policy, logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, authMiddleware, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins, appMetrics.Middleware())
	handlerManager.SetupRoutes(router, appMetrics.Handler(), cfg.UploadDir)

	// Create HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown services, then close database and Redis
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if err := repoManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
