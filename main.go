package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	appLogger "github.com/FACorreiaa/go-alternative-pois/app/logger"
	"github.com/FACorreiaa/go-alternative-pois/app/observability/metrics"
	"github.com/FACorreiaa/go-alternative-pois/app/tracer"
	"github.com/FACorreiaa/go-alternative-pois/config"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/features"
	generativeAI "github.com/FACorreiaa/go-alternative-pois/internal/api/generative_ai"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/geodata"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/resolver"
	"github.com/FACorreiaa/go-alternative-pois/internal/api/similarity"
	"github.com/FACorreiaa/go-alternative-pois/internal/cache"
	"github.com/FACorreiaa/go-alternative-pois/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsHandler, err := tracer.InitTracingAndMetrics("go-alternative-pois")
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	// --- Cache Store ---
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore := cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB, logger)
		if err := redisStore.Ping(ctx); err != nil {
			logger.Error("Redis unreachable", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		store = cache.NewMemoryStore(cfg.Cache.TTL)
	}

	// --- Geodata Collaborators ---
	geoClient := geodata.NewClient(geodata.ClientConfig{
		UserAgent:    cfg.Geodata.UserAgent,
		RequestDelay: cfg.Geodata.RequestDelay,
		Timeout:      cfg.Geodata.Timeout,
		MaxRetries:   cfg.Geodata.MaxRetries,
		CacheTTL:     cfg.Cache.TTL,
	}, store, logger)
	nominatim := geodata.NewNominatimClient(geoClient, cfg.Geodata.NominatimURL, logger)
	overpass := geodata.NewOverpassClient(geoClient, cfg.Geodata.OverpassURL, logger)
	wikidata := geodata.NewWikidataClient(geoClient, cfg.Geodata.WikidataURL, logger)

	// --- Embedding Collaborator ---
	// The embedding collaborator is the only hard dependency; without it the
	// similarity half of the pipeline cannot run at all.
	embedder, err := generativeAI.NewEmbeddingService(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize embedding service", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Feature Estimator ---
	estimator := features.NewEstimator(features.Config{
		DEMEndpoint:       cfg.Features.DEMEndpoint,
		NDWIEndpoint:      cfg.Features.NDWIEndpoint,
		NDVIEndpoint:      cfg.Features.NDVIEndpoint,
		LandcoverEndpoint: cfg.Features.LandcoverEndpoint,
		Token:             os.Getenv("FEATURE_TILE_TOKEN"),
		ProbeTimeout:      cfg.Features.ProbeTimeout,
		CacheTTL:          cfg.Cache.TTL,
	}, geoClient, store, logger)

	// --- Services & Handlers ---
	resolverService := resolver.NewServiceImpl(nominatim, overpass, wikidata, estimator, store, cfg.Resolver.Concurrency, cfg.Resolver.CacheTTL, logger)
	resolverHandler := resolver.NewHandler(resolverService, logger)

	finderService := similarity.NewServiceImpl(resolverService, embedder, estimator, store, similarity.Defaults{
		Alpha:    cfg.Similarity.Alpha,
		RadiusKm: cfg.Similarity.RadiusKM,
		TopK:     cfg.Similarity.TopK,
	}, logger)
	finderHandler := similarity.NewHandler(finderService, logger)

	mainRouter := router.SetupRouter(&router.Config{
		ResolverHandler: resolverHandler,
		FinderHandler:   finderHandler,
		MetricsHandler:  metricsHandler,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	srv := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
