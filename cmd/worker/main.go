package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resobyte/ambar-hub-sub004/internal/application"
	"github.com/resobyte/ambar-hub-sub004/internal/infrastructure/marketplace"
	mongoRepo "github.com/resobyte/ambar-hub-sub004/internal/infrastructure/mongodb"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/kafka"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/metrics"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/middleware"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/mongodb"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox"
	outboxMongo "github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox/mongodb"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/resilience"
)

const serviceName = "ambar-hub-worker"

// The worker drains the stock update queue on an interval, recomputes
// product rollups, pushes them to marketplace providers, and relays
// outbox events to Kafka.
func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting ambar-hub worker")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	db := mongoClient.Database()
	shelfRepo := mongoRepo.NewShelfStockRepository(db)
	productStockRepo := mongoRepo.NewProductStockRepository(db)
	productRepo := mongoRepo.NewProductRepository(db)
	queueRepo := mongoRepo.NewStockUpdateQueueRepository(db)
	syncLogRepo := mongoRepo.NewStockSyncLogRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)

	outboxPublisher := outbox.NewPublisher(outboxRepo, kafkaProducer, logger, m, outbox.DefaultPublisherConfig())
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	marketplaceClient := marketplace.NewClient(config.Marketplace, logger.Logger)
	resolver := marketplace.NewStaticResolver(config.StoreProviders)
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("marketplace-push"), logger.Logger)

	batcherConfig := application.DefaultSyncBatcherConfig()
	batcherConfig.Interval = config.DrainInterval
	syncBatcher := application.NewSyncBatcher(
		queueRepo, shelfRepo, productStockRepo, productRepo, syncLogRepo,
		resolver, marketplaceClient, outboxRepo, breaker, batcherConfig, logger, m,
	)
	if err := syncBatcher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start sync batcher")
		os.Exit(1)
	}
	defer syncBatcher.Stop()
	logger.Info("Sync batcher started", "interval", config.DrainInterval)

	// health and metrics only; the API serves the business surface
	router := gin.New()
	router.Use(middleware.Recovery(logger.Logger))
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Worker started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	ServerAddr     string
	DrainInterval  time.Duration
	MongoDB        *mongodb.Config
	Kafka          *kafka.Config
	Marketplace    *marketplace.Config
	StoreProviders map[string]string
}

func loadConfig() *Config {
	drainInterval := 5 * time.Second
	if raw := os.Getenv("DRAIN_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			drainInterval = parsed
		}
	}

	marketplaceConfig := marketplace.DefaultConfig()
	marketplaceConfig.Providers = []marketplace.ProviderConfig{
		{
			Name:       "trendyol",
			BaseURL:    getEnv("TRENDYOL_BASE_URL", "https://api.trendyol.com/sapigw"),
			APIKey:     getEnv("TRENDYOL_API_KEY", ""),
			APISecret:  getEnv("TRENDYOL_API_SECRET", ""),
			SupplierID: getEnv("TRENDYOL_SUPPLIER_ID", ""),
			BatchSize:  100,
		},
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8081"),
		DrainInterval: drainInterval,
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "ambar_hub"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
		Marketplace:    marketplaceConfig,
		StoreProviders: parseStoreProviders(getEnv("STORE_PROVIDERS", "")),
	}
}

// parseStoreProviders parses "storeId:provider,storeId:provider" pairs
func parseStoreProviders(raw string) map[string]string {
	providers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			providers[parts[0]] = parts[1]
		}
	}
	return providers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
