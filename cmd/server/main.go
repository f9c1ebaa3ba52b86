package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/converta/converta-server/internal/api"
	"github.com/converta/converta-server/internal/config"
	"github.com/converta/converta-server/internal/currency"
	"github.com/converta/converta-server/internal/fetcher"
	"github.com/converta/converta-server/internal/handler"
	"github.com/converta/converta-server/internal/metadata"
	"github.com/converta/converta-server/internal/metrics"
	"github.com/converta/converta-server/internal/repository"
	"github.com/converta/converta-server/internal/service"
	"github.com/converta/converta-server/internal/session"
	"github.com/converta/converta-server/internal/tracing"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load .env if present; environment variables win either way
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file loaded")
	}

	cfg := config.Load()

	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting converta server",
		zap.String("environment", cfg.Environment),
		zap.Int("httpPort", cfg.HTTPPort),
	)

	if cfg.APIKey == "" {
		logger.Warn("CURRENCY_API_KEY is empty, provider requests will be rejected upstream")
	}

	// Tracing
	tp, err := tracing.Setup("converta-server", cfg.JaegerURL, cfg.Environment)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	// Redis snapshot cache
	redisClient := setupRedis(cfg, logger)
	defer redisClient.Close()

	// Provider client and engine components
	client := api.NewClient(cfg.APIBaseURL, cfg.APIKey, time.Duration(cfg.HTTPTimeoutSec)*time.Second, logger)
	rateFetcher := fetcher.New(client, logger)
	snapshotRepo := repository.NewRedisRepository(redisClient)
	metadataStore := metadata.NewStore(client, logger)
	appMetrics := metrics.New("converta", prometheus.DefaultRegisterer)

	rateService := service.NewRateService(cfg, rateFetcher, snapshotRepo, metadataStore, appMetrics, logger)

	sessions := session.NewManager(
		rateService,
		metadataStore,
		currency.Code(cfg.DefaultBaseCurrency),
		cfg.DefaultBaseAmount,
		logger,
	)

	router := setupRouter(cfg, logger, rateService, sessions)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.Int("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("redis close error", zap.Error(err))
	}

	logger.Info("stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		panic(err)
	}

	return logger
}

func setupRedis(cfg *config.Config, logger *zap.Logger) *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn("redis connection failed, snapshot caching degraded", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	return redisClient
}

func setupRouter(cfg *config.Config, logger *zap.Logger, rateService *service.RateService, sessions *session.Manager) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	httpHandler := handler.NewHTTPHandler(rateService, sessions, logger)
	httpHandler.SetupRoutes(router)

	if cfg.MetricsEnabled {
		router.GET(cfg.MetricsEndpoint, gin.WrapH(promhttp.Handler()))
	}

	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
