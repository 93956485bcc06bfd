// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string

	// External services
	TaxProfileAPIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	UseSupabase        bool

	// Seller tokens are HS256 JWTs signed with this secret.
	JWTSecret string

	// Engine thresholds (percent unless noted)
	FunnelCTRThresholdPct    float64
	FunnelCartThresholdPct   float64
	FunnelOrderThresholdPct  float64
	PricingLowConversionPct  float64
	PricingInventoryPressure float64 // utilization ratio
	DefaultTargetMarginBps   int64
	DefaultMinMarginBps      int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("TAX_PROFILE_API_URL", "")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)

	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("INITIAL_BACKOFF", 100*time.Millisecond)
	v.SetDefault("MAX_CONCURRENCY", 50)
	v.SetDefault("CACHE_TTL", 5*time.Minute)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_SERVICE_ROLE_KEY", "")
	v.SetDefault("USE_SUPABASE", true)

	v.SetDefault("JWT_SECRET", "marginguard-default-dev-secret-change-me")

	funnel := engine.DefaultFunnelThresholds()
	pricing := engine.DefaultPricingThresholds()
	v.SetDefault("FUNNEL_CTR_THRESHOLD_PCT", funnel.ClickThroughPct)
	v.SetDefault("FUNNEL_CART_THRESHOLD_PCT", funnel.ClickToCartPct)
	v.SetDefault("FUNNEL_ORDER_THRESHOLD_PCT", funnel.CartToOrderPct)
	v.SetDefault("PRICING_LOW_CONVERSION_PCT", pricing.LowConversionPct)
	v.SetDefault("PRICING_INVENTORY_PRESSURE", pricing.InventoryPressure)
	v.SetDefault("DEFAULT_TARGET_MARGIN_BPS", 3000)
	v.SetDefault("DEFAULT_MIN_MARGIN_BPS", 1000)
}

// Load reads configuration from environment variables, falling back to
// the .env file at envFile (if it exists) and then to defaults.
// Environment variables always win over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:               v.GetInt("PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		TaxProfileAPIURL: v.GetString("TAX_PROFILE_API_URL"),
		HTTPTimeout:      v.GetDuration("HTTP_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		SupabaseURL:        v.GetString("SUPABASE_URL"),
		SupabaseAnonKey:    v.GetString("SUPABASE_ANON_KEY"),
		SupabaseServiceKey: v.GetString("SUPABASE_SERVICE_ROLE_KEY"),
		UseSupabase:        v.GetBool("USE_SUPABASE"),

		JWTSecret: v.GetString("JWT_SECRET"),

		FunnelCTRThresholdPct:    v.GetFloat64("FUNNEL_CTR_THRESHOLD_PCT"),
		FunnelCartThresholdPct:   v.GetFloat64("FUNNEL_CART_THRESHOLD_PCT"),
		FunnelOrderThresholdPct:  v.GetFloat64("FUNNEL_ORDER_THRESHOLD_PCT"),
		PricingLowConversionPct:  v.GetFloat64("PRICING_LOW_CONVERSION_PCT"),
		PricingInventoryPressure: v.GetFloat64("PRICING_INVENTORY_PRESSURE"),
		DefaultTargetMarginBps:   v.GetInt64("DEFAULT_TARGET_MARGIN_BPS"),
		DefaultMinMarginBps:      v.GetInt64("DEFAULT_MIN_MARGIN_BPS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.PricingInventoryPressure <= 0 || c.PricingInventoryPressure > 1 {
		return fmt.Errorf("PRICING_INVENTORY_PRESSURE must be in (0, 1], got %v", c.PricingInventoryPressure)
	}
	if c.DefaultMinMarginBps > c.DefaultTargetMarginBps {
		return fmt.Errorf("DEFAULT_MIN_MARGIN_BPS (%d) exceeds DEFAULT_TARGET_MARGIN_BPS (%d)", c.DefaultMinMarginBps, c.DefaultTargetMarginBps)
	}
	if c.UseSupabase && c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return errors.New("SUPABASE_SERVICE_ROLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// FunnelThresholds returns the configured funnel bottleneck thresholds.
func (c *Config) FunnelThresholds() engine.FunnelThresholds {
	return engine.FunnelThresholds{
		ClickThroughPct: c.FunnelCTRThresholdPct,
		ClickToCartPct:  c.FunnelCartThresholdPct,
		CartToOrderPct:  c.FunnelOrderThresholdPct,
	}
}

// PricingThresholds returns the default pricing thresholds with the
// configured low-conversion and inventory cutoffs.
func (c *Config) PricingThresholds() engine.PricingThresholds {
	t := engine.DefaultPricingThresholds()
	t.LowConversionPct = c.PricingLowConversionPct
	t.InventoryPressure = c.PricingInventoryPressure
	return t
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
