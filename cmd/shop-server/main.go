package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/pamankwah2405/ecommerce-api/internal/cache"
	"github.com/pamankwah2405/ecommerce-api/internal/health"
	shophttp "github.com/pamankwah2405/ecommerce-api/internal/http"
	"github.com/pamankwah2405/ecommerce-api/internal/metrics"
	"github.com/pamankwah2405/ecommerce-api/internal/publisher"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
	"github.com/pamankwah2405/ecommerce-api/internal/service"
)

type Config struct {
	HTTPPort           string
	MongoURI           string
	MongoDBName        string
	MongoMaxPoolSize   uint64
	MongoMinPoolSize   uint64
	RedisAddr          string
	KafkaBrokers       string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "ecommerce"),
		MongoMaxPoolSize:   getEnvUint("MONGO_MAX_POOL_SIZE", 100),
		MongoMinPoolSize:   getEnvUint("MONGO_MIN_POOL_SIZE", 10),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		KafkaBrokers:       getEnv("KAFKA_BROKERS", ""),
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.WithField("key", key).WithError(err).Warnf("invalid value, using default %d", defaultValue)
		return defaultValue
	}
	return parsed
}

func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

func main() {
	setupLogger()
	cfg := loadConfig()
	logger := log.WithField("component", "main")

	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		MinPoolSize: cfg.MongoMinPoolSize,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to MongoDB")
	}
	logger.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")

	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		logger.WithError(err).Fatal("failed to create indexes")
	}

	cartRepo := repository.NewCartRepository(mongoDB)
	productRepo := repository.NewProductRepository(mongoDB)
	orderRepo := repository.NewOrderRepository(mongoDB)
	userRepo := repository.NewUserRepository(mongoDB)

	healthHandler := health.NewHandler()
	healthHandler.RegisterChecker("mongodb", health.NewPingChecker("mongodb", func(ctx context.Context) error {
		return mongoDB.Client().Ping(ctx, nil)
	}))

	// Redis is optional: without it every cart read goes to MongoDB.
	var cartCache cache.CartCache = cache.NewNoopCache()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, continuing anyway")
		}
		cartCache = cache.NewBreakerCache(cache.NewRedisCache(redisClient))
		healthHandler.RegisterChecker("redis", health.NewPingChecker("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
		logger.WithField("addr", cfg.RedisAddr).Info("cart cache enabled")
	}

	// Kafka is optional: without it checkout simply skips event publishing.
	var orderEvents service.OrderEventPublisher
	var kafkaPublisher *publisher.OrderEventPublisher
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		kafkaPublisher = publisher.NewOrderEventPublisher(brokers)
		orderEvents = kafkaPublisher
		logger.WithField("brokers", brokers).Info("order event publisher enabled")
	}

	checkoutMetrics := metrics.NewCheckoutMetrics()

	cartService := service.NewCartService(cartRepo, productRepo, cartCache, log.WithField("component", "cart-service"))
	checkoutService := service.NewCheckoutService(cartRepo, productRepo, orderRepo, cartCache,
		orderEvents, checkoutMetrics, log.WithField("component", "checkout-service"))
	userService := service.NewUserService(userRepo, log.WithField("component", "user-service"))
	catalogService := service.NewCatalogService(productRepo, log.WithField("component", "catalog-service"))

	router := shophttp.NewRouter(shophttp.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodySize:    cfg.MaxRequestBodySize,
	}, cartService, checkoutService, userService, catalogService, healthHandler)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("shop server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.WithError(err).Warn("failed to close kafka publisher")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		logger.WithError(err).Warn("failed to disconnect from MongoDB")
	}

	logger.Info("server exited")
}
