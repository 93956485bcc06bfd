package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.MaxConcurrency != 50 {
		t.Errorf("expected concurrency 50, got %d", cfg.MaxConcurrency)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache TTL 5m, got %s", cfg.CacheTTL)
	}

	f := cfg.FunnelThresholds()
	if f.ClickThroughPct != 2 || f.ClickToCartPct != 10 || f.CartToOrderPct != 25 {
		t.Errorf("unexpected funnel thresholds %+v", f)
	}
	p := cfg.PricingThresholds()
	if p.LowConversionPct != 1 || p.InventoryPressure != 0.8 {
		t.Errorf("unexpected pricing thresholds %+v", p)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("FUNNEL_CTR_THRESHOLD_PCT", "1.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.FunnelCTRThresholdPct != 1.5 {
		t.Errorf("expected CTR threshold 1.5, got %v", cfg.FunnelCTRThresholdPct)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nLOG_LEVEL=debug\nMAX_RETRIES=7\nPORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7100")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("expected retries from file, got %d", cfg.MaxRetries)
	}
	if cfg.Port != 7100 {
		t.Errorf("expected environment to win over file, got %d", cfg.Port)
	}
}

func TestLoad_MissingDotEnvIsFine(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"MAX_CONCURRENCY":            "0",
		"PRICING_INVENTORY_PRESSURE": "1.5",
		"DEFAULT_MIN_MARGIN_BPS":     "5000",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := config.Load(""); err == nil {
				t.Errorf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}
