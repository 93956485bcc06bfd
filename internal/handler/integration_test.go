package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"
	"github.com/boddenberg/margin-guard-bfa-go/internal/handler"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/cache"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"go.uber.org/zap"
)

// fakeSupabase serves store_tax_profiles and records journal inserts.
type fakeSupabase struct {
	mu              sync.Mutex
	events          []domain.OnboardingEvent
	recommendations []domain.PricingRecommendation
}

func (f *fakeSupabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rest/v1/store_tax_profiles":
		if r.URL.Query().Get("store_id") != "eq.store-ge" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"store_id":"store-ge","vat_enabled":true,"vat_rate_bps":1800,"home_country":"GE"}]`))
	case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/onboarding_events":
		var batch []domain.OnboardingEvent
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.events = append(f.events, batch...)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/pricing_recommendations":
		var rec domain.PricingRecommendation
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.recommendations = append(f.recommendations, rec)
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// TestIntegration_FullFlow evaluates a listing through the router, the
// pipeline and the Supabase adapter against a fake PostgREST backend.
func TestIntegration_FullFlow(t *testing.T) {
	backend := &fakeSupabase{}
	supabaseServer := httptest.NewServer(backend)
	defer supabaseServer.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("integration")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}

	sb := supabase.NewClient(&http.Client{Timeout: 5 * time.Second}, supabaseServer.URL, "anon", "service", cb, cfg, logger)
	taxCache := cache.New[*domain.TaxProfile](5 * time.Minute)
	defer taxCache.Close()

	decisions := service.NewDecisionService(engine.DefaultFunnelThresholds(), engine.DefaultPricingThresholds(), 4, metrics, logger)
	pipeline := service.NewListingPipeline(decisions, sb, taxCache, sb, resilience.NewBulkhead(4),
		service.MarginDefaults{TargetBps: 3000, MinBps: 1000}, metrics, logger)
	verifier := service.NewTokenVerifier(testSecret)

	router := handler.NewRouter(handler.Options{
		Decisions: decisions,
		Pipeline:  pipeline,
		Verifier:  verifier,
		Metrics:   metrics,
		Logger:    logger,
	})

	token, _ := verifier.Sign("seller-int", time.Hour)
	body := listingBody()
	body["storeId"] = "store-ge"
	body["buyerCountry"] = "GE"
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/v1/sellers/me/listings/evaluate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var eval domain.ListingEvaluation
	if err := json.NewDecoder(rec.Body).Decode(&eval); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !eval.VATApplied {
		t.Error("expected VAT from the store tax profile")
	}
	if !eval.Approved {
		t.Fatalf("expected approval, got %s: %s", eval.Stage, eval.Reason)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.events) != 6 {
		t.Errorf("expected 6 journaled events, got %d", len(backend.events))
	}
	for _, e := range backend.events {
		if e.RunID != eval.RunID || e.SellerID != "seller-int" {
			t.Errorf("unexpected event %+v", e)
		}
	}
	if len(backend.recommendations) != 1 || backend.recommendations[0].FinalPriceCents != eval.FinalPriceCents {
		t.Errorf("unexpected recommendations %+v", backend.recommendations)
	}
}

// TestIntegration_UnknownStoreSkipsVAT covers the not-found path of the
// tax profile lookup.
func TestIntegration_UnknownStoreSkipsVAT(t *testing.T) {
	supabaseServer := httptest.NewServer(&fakeSupabase{})
	defer supabaseServer.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4}
	sb := supabase.NewClient(&http.Client{Timeout: 5 * time.Second}, supabaseServer.URL, "anon", "service",
		resilience.NewCircuitBreaker("integration-404"), cfg, logger)

	decisions := service.NewDecisionService(engine.DefaultFunnelThresholds(), engine.DefaultPricingThresholds(), 4, metrics, logger)
	pipeline := service.NewListingPipeline(decisions, sb, cache.New[*domain.TaxProfile](time.Minute), sb, resilience.NewBulkhead(4),
		service.MarginDefaults{TargetBps: 3000, MinBps: 1000}, metrics, logger)
	verifier := service.NewTokenVerifier(testSecret)
	router := handler.NewRouter(handler.Options{Decisions: decisions, Pipeline: pipeline, Verifier: verifier, Metrics: metrics, Logger: logger})

	token, _ := verifier.Sign("seller-int", time.Hour)
	body := listingBody()
	body["storeId"] = "store-unknown"
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/v1/sellers/me/listings/evaluate", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var eval domain.ListingEvaluation
	json.NewDecoder(rec.Body).Decode(&eval)
	if rec.Code != http.StatusOK || eval.VATApplied {
		t.Errorf("expected 200 without VAT, got %d vat=%v", rec.Code, eval.VATApplied)
	}
}
