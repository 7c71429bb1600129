package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sofialabs/legalaid-ai-platform/internal/api/router"
	appconfig "github.com/sofialabs/legalaid-ai-platform/internal/config"
	"github.com/sofialabs/legalaid-ai-platform/internal/conversation"
	"github.com/sofialabs/legalaid-ai-platform/internal/convservice"
	"github.com/sofialabs/legalaid-ai-platform/internal/observability/metrics"
	"github.com/sofialabs/legalaid-ai-platform/internal/orchestrator"
	"github.com/sofialabs/legalaid-ai-platform/internal/rag"
	"github.com/sofialabs/legalaid-ai-platform/internal/scheduling"
	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting legalaid-ai-platform orchestrator",
		"env", cfg.Env,
		"port", cfg.Port,
		"flow_mode", cfg.FlowMode,
	)

	// Flow state store: Redis when configured, in-process otherwise.
	var stateStore conversation.StateStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		stateStore = conversation.NewRedisStateStore(redisClient, cfg.ConversationTTL)
		logger.Info("using redis state store", "addr", cfg.RedisAddr)
	} else {
		stateStore = conversation.NewMemoryStateStore(cfg.ConversationTTL)
		logger.Info("using in-memory state store", "ttl", cfg.ConversationTTL.String())
	}

	var answerClient conversation.AnswerClient
	if cfg.RAGEnabled {
		answerClient = rag.NewClient(rag.Options{
			BaseURL:  cfg.RAGBaseURL,
			Endpoint: cfg.RAGEndpoint,
			Timeout:  cfg.RAGTimeout,
			Logger:   logger,
		})
	}

	schedulingClient := scheduling.NewClient(scheduling.Options{
		BaseURL:       cfg.AuthServiceURL,
		InternalToken: cfg.InternalServiceToken,
		Logger:        logger,
	})

	convClient := convservice.NewClient(convservice.Options{
		BaseURL: cfg.ConversationServiceURL,
		Logger:  logger,
	})

	engine := conversation.NewEngine(stateStore, answerClient, schedulingClient, cfg.RAGEnabled, logger)

	orchestratorMetrics := metrics.NewOrchestratorMetrics(nil)
	service := orchestrator.NewService(orchestrator.ServiceConfig{
		Engine:        engine,
		ConvService:   convClient,
		DefaultTenant: cfg.DefaultTenant,
		FlowMode:      cfg.FlowMode,
		Logger:        logger,
		Metrics:       orchestratorMetrics,
	})
	handler := orchestrator.NewHandler(service, logger)

	r := router.New(&router.Config{
		Logger:              logger,
		OrchestratorHandler: handler,
		MetricsHandler:      promhttp.Handler(),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		InternalToken:       cfg.InternalServiceToken,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
