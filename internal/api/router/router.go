package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/sofialabs/legalaid-ai-platform/internal/http/middleware"
	"github.com/sofialabs/legalaid-ai-platform/internal/orchestrator"
	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	OrchestratorHandler *orchestrator.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	InternalToken       string
	RateLimitRPS        float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Get("/health", cfg.OrchestratorHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Service-to-service endpoints
	r.Route("/v1/orchestrator", func(r chi.Router) {
		r.Use(httpmiddleware.RequireInternalToken(cfg.InternalToken))
		if cfg.RateLimitRPS > 0 {
			r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Post("/messages", cfg.OrchestratorHandler.HandleMessage)
	})

	return r
}
