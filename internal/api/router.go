// Package api provides the HTTP API for SkyShield.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/api/handler"
	"github.com/skyshield/skyshield/internal/api/middleware"
	"github.com/skyshield/skyshield/internal/source/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger

	Scheduler handler.Scheduler
	Registry  *resilience.Registry
	Metrics   handler.CycleMetrics

	// HTTPMetrics enables per-request OpenTelemetry metrics when set.
	HTTPMetrics *middleware.Metrics
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "skyshield-monitor"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Scheduler: cfg.Scheduler,
		Registry:  cfg.Registry,
		Metrics:   cfg.Metrics,
	})
	airQualityHandler := handler.NewAirQualityHandler(cfg.Scheduler)
	alertHandler := handler.NewAlertHandler(cfg.Scheduler)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	refreshRateLimit := middleware.RateLimitByIP(middleware.RefreshRateLimit)

	// Probes stay outside /v1 and outside rate limiting.
	r.Get("/healthz", opsHandler.HealthCheck)
	r.Get("/readyz", opsHandler.ReadinessCheck)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/airquality", airQualityHandler.GetSnapshot)
			r.Get("/airquality/{city}", airQualityHandler.GetCity)
			r.Get("/alerts", alertHandler.ListAlerts)
			r.Get("/sources", opsHandler.ListSources)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Manual refresh hits every upstream vendor; rate limit hard.
		r.With(refreshRateLimit).Post("/refresh", opsHandler.Refresh)
	})

	return r
}
