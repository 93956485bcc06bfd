package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/config"
	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/handler"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/cache"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/client"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/memory"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/margin-guard-bfa-go/internal/port"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int64("default_target_margin_bps", cfg.DefaultTargetMarginBps),
		zap.Int64("default_min_margin_bps", cfg.DefaultMinMarginBps),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "margin-guard-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	taxCache := cache.New[*domain.TaxProfile](cfg.CacheTTL)
	defer taxCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var taxProfiles port.TaxProfileFetcher
	var journal port.EventJournal

	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase as journal and tax profile backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		taxProfiles = supabaseClient
		journal = supabaseClient
	} else {
		logger.Warn("Supabase not configured, journaling to memory")
		journal = memory.NewJournal()
		if cfg.TaxProfileAPIURL != "" {
			taxProfiles = client.NewTaxProfileClient(httpClient, cfg.TaxProfileAPIURL, cb, resilienceCfg)
		} else {
			logger.Warn("no tax profile source configured, VAT will not be applied to store listings")
		}
	}

	// --- Services ---
	decisions := service.NewDecisionService(
		cfg.FunnelThresholds(),
		cfg.PricingThresholds(),
		cfg.MaxConcurrency,
		metrics,
		logger,
	)

	var pipeline *service.ListingPipeline
	var verifier *service.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = service.NewTokenVerifier(cfg.JWTSecret)
		pipeline = service.NewListingPipeline(
			decisions,
			taxProfiles,
			taxCache,
			journal,
			resilience.NewBulkhead(cfg.MaxConcurrency),
			service.MarginDefaults{
				TargetBps: cfg.DefaultTargetMarginBps,
				MinBps:    cfg.DefaultMinMarginBps,
			},
			metrics,
			logger,
		)
		logger.Info("seller listing pipeline enabled")
	} else {
		logger.Warn("JWT_SECRET not set, seller routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Options{
		Decisions:   decisions,
		Pipeline:    pipeline,
		Verifier:    verifier,
		Metrics:     metrics,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
