// Package main provides the entrypoint for the SkyShield monitor: the
// collection scheduler and its HTTP API in one process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/aggregate"
	"github.com/skyshield/skyshield/internal/api"
	"github.com/skyshield/skyshield/internal/api/middleware"
	"github.com/skyshield/skyshield/internal/config"
	"github.com/skyshield/skyshield/internal/database"
	"github.com/skyshield/skyshield/internal/resolve"
	"github.com/skyshield/skyshield/internal/schedule"
	"github.com/skyshield/skyshield/internal/sink"
	pgsink "github.com/skyshield/skyshield/internal/sink/postgres"
	pssink "github.com/skyshield/skyshield/internal/sink/pubsub"
	"github.com/skyshield/skyshield/internal/source"
	"github.com/skyshield/skyshield/internal/source/iqair"
	"github.com/skyshield/skyshield/internal/source/openweathermap"
	"github.com/skyshield/skyshield/internal/source/resilience"
	"github.com/skyshield/skyshield/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "skyshield-monitor"

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatalLog := zerolog.New(os.Stderr)
		fatalLog.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Int("cities", len(cfg.Cities)).
		Dur("interval", cfg.Interval).
		Msg("starting SkyShield monitor")

	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	fetchMetrics, err := source.NewFetchMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize fetch metrics")
	}

	// Upstream adapters share one registry so the ops API can report
	// circuit breaker state per source.
	registry := resilience.NewRegistry()
	pacer := source.NewPacer(cfg.SourceSpacing, nil)

	var airSources []source.AirQualitySource
	if cfg.IQAirAPIKey != "" {
		client := resilience.NewClient(resilience.ClientConfig{
			Name:    iqair.SourceName,
			Timeout: cfg.SourceFetchTimeout,
		})
		registry.Register(iqair.SourceName, client)
		adapter := iqair.NewClient(iqair.ClientConfig{
			APIKey:     cfg.IQAirAPIKey,
			HTTPClient: client,
		})
		airSources = append(airSources,
			source.PacedAirQuality(pacer, source.ObservedAirQuality(adapter, fetchMetrics, registry)))
	} else {
		log.Warn().Msg("IQAIR_API_KEY not set, air quality values will be estimated")
	}

	var weatherSources []source.WeatherSource
	if cfg.OpenWeatherAPIKey != "" {
		client := resilience.NewClient(resilience.ClientConfig{
			Name:    openweathermap.SourceName,
			Timeout: cfg.SourceFetchTimeout,
		})
		registry.Register(openweathermap.SourceName, client)
		adapter := openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.OpenWeatherAPIKey,
			HTTPClient: client,
		})
		weatherSources = append(weatherSources,
			source.PacedWeather(pacer, source.ObservedWeather(adapter, fetchMetrics, registry)))
	} else {
		log.Warn().Msg("OPENWEATHER_API_KEY not set, weather will be estimated")
	}

	resolver := resolve.New(resolve.Config{
		AirSources:     airSources,
		WeatherSources: weatherSources,
		Thresholds:     cfg.Thresholds,
		Logger:         log,
	})

	job := aggregate.NewJob(aggregate.JobConfig{
		Config: aggregate.Config{
			Cities:      cfg.Cities,
			Concurrency: cfg.Concurrency,
			Timeout:     cfg.CycleTimeout,
		},
		Resolver: resolver,
		Logger:   log,
	})

	var sinks []sink.Sink

	if cfg.PostgresEnabled {
		dbConfig := database.ConfigFromEnv()
		pool, connErr := database.Connect(ctx, dbConfig)
		if connErr != nil {
			log.Fatal().Err(connErr).Msg("failed to connect to database")
		}
		defer pool.Close()

		pg := pgsink.New(pool, log)
		if schemaErr := pg.EnsureSchema(ctx); schemaErr != nil {
			log.Fatal().Err(schemaErr).Msg("failed to ensure snapshot schema")
		}
		sinks = append(sinks, pg)
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("postgres sink enabled")
	}

	if cfg.PubSubProjectID != "" {
		ps, psErr := pssink.New(ctx, pssink.Config{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    log,
		})
		if psErr != nil {
			log.Fatal().Err(psErr).Msg("failed to create pubsub sink")
		}
		defer func() {
			if closeErr := ps.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub sink")
			}
		}()
		sinks = append(sinks, ps)
		log.Info().
			Str("project", cfg.PubSubProjectID).
			Str("topic", cfg.PubSubTopic).
			Msg("pubsub sink enabled")
	}

	scheduler := schedule.New(schedule.Config{
		Interval: cfg.Interval,
		Runner:   job,
		Sinks:    sinks,
		Logger:   log,
	})

	schedulerCtx, cancelScheduler := context.WithCancel(ctx)
	defer cancelScheduler()
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(schedulerCtx)
	}()

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		ServiceName: serviceName,
		Logger:      log,
		Scheduler:   scheduler,
		Registry:    registry,
		Metrics:     job,
		HTTPMetrics: httpMetrics,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatal().Err(serveErr).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	// Let an in-flight cycle finish and publish before the context is
	// torn down: Stop, wait for the scheduler loop to return, then cancel.
	scheduler.Stop()
	<-schedulerDone
	cancelScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("monitor stopped")
}
