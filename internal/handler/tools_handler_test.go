package handler_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

var toolGuardrails = domain.WorstCaseGuardrails{
	MaxRefundRatePct:           10,
	MaxShippingDelayDays:       10,
	MaxReturnShippingCostCents: 500,
	MaxPlatformFeeIncreaseBps:  500,
	CompetitorPriceCutPct:      10,
}

func decode[T any](t *testing.T, body *strings.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestMarginCalculator(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/margin-calculator", map[string]any{
		"retailPriceCents":  10000,
		"supplierCostCents": 3000,
		"shippingCostCents": 500,
		"vatEnabled":        true,
		"platformFeeBps":    1000,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	res := decode[domain.MarginResult](t, strings.NewReader(rec.Body.String()))
	if res.VATAmountCents != 1525 || res.NetProfitCents != 3957 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestMarginCalculator_RequireProfit(t *testing.T) {
	srv := newTestServer(t, false)

	body := map[string]any{
		"retailPriceCents":  1000,
		"supplierCostCents": 2000,
		"requireProfit":     true,
	}
	if rec := srv.do(http.MethodPost, "/api/tools/margin-calculator", body, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}

	body["requireProfit"] = false
	if rec := srv.do(http.MethodPost, "/api/tools/margin-calculator", body, nil); rec.Code != http.StatusOK {
		t.Errorf("expected 200 without requireProfit, got %d", rec.Code)
	}
}

func TestMalformedJSON(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{
		"/api/tools/margin-calculator",
		"/api/tools/worst-case",
		"/api/tools/funnel",
		"/api/tools/shipping-strategy",
	} {
		if rec := srv.do(http.MethodPost, path, "{not json", nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestWorstCase(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/worst-case", domain.SimulationInput{
		RetailPriceCents:   10000,
		SupplierCostCents:  2000,
		ShippingCostCents:  500,
		PlatformFeeBps:     500,
		AffiliateBps:       1000,
		RefundReserveCents: 200,
		Guardrails:         toolGuardrails,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	res := decode[domain.SimulationResult](t, strings.NewReader(rec.Body.String()))
	if !res.IsApproved || res.WorstCaseMarginBps != 3344 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestWorstCaseRejectionIsNotAnError(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/worst-case", domain.SimulationInput{
		RetailPriceCents:  5000,
		SupplierCostCents: 4000,
		ShippingCostCents: 500,
		PlatformFeeBps:    500,
		AffiliateBps:      1000,
		Guardrails:        toolGuardrails,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	res := decode[domain.SimulationResult](t, strings.NewReader(rec.Body.String()))
	if res.IsApproved || res.RejectionReason == "" {
		t.Errorf("expected rejection with reason, got %+v", res)
	}
}

func TestWorstCaseBatch(t *testing.T) {
	srv := newTestServer(t, false)

	items := []domain.SimulationInput{
		{RetailPriceCents: 10000, SupplierCostCents: 2000},
		{RetailPriceCents: 1000, SupplierCostCents: 2000},
		{RetailPriceCents: 5000, SupplierCostCents: 1000},
	}
	rec := srv.do(http.MethodPost, "/api/tools/worst-case/batch", map[string]any{"items": items}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode[domain.BatchSimulationResponse](t, strings.NewReader(rec.Body.String()))
	if len(resp.Results) != 3 || resp.Approved != 2 || resp.Rejected != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[1].IsApproved {
		t.Error("expected the second item to be rejected")
	}
}

func TestWorstCaseBatch_Empty(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/worst-case/batch", map[string]any{"items": []any{}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMinPrice(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/min-price", map[string]any{
		"supplierCostCents": 4000,
		"shippingCostCents": 500,
		"platformFeeBps":    500,
		"affiliateBps":      1000,
		"guardrails":        toolGuardrails,
		"minMarginBps":      1500,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		MinPriceCents int64 `json:"minPriceCents"`
		Reachable     bool  `json:"reachable"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Reachable || resp.MinPriceCents <= 0 || resp.MinPriceCents%50 != 0 {
		t.Errorf("unexpected response %+v", resp)
	}

	rec = srv.do(http.MethodPost, "/api/tools/min-price", map[string]any{"minMarginBps": 10000}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an impossible margin, got %d", rec.Code)
	}
}

func TestDynamicPrice(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/dynamic-price", map[string]any{
		"currentPriceCents": 10000,
		"context": map[string]any{
			"currentMarginBps": 3000,
			"targetMarginBps":  3000,
			"conversionRate":   0.5,
		},
		"minMarginBps": 1000,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	d := decode[domain.PricingDecision](t, strings.NewReader(rec.Body.String()))
	if d.RecommendedAction != domain.ActionDecrease || d.NewPriceCents != 9500 {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestFunnel(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/funnel", domain.FunnelMetrics{
		Impressions: 1000, Clicks: 10, CartAdds: 5, Purchases: 2,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Bottleneck  domain.FunnelStage      `json:"bottleneck"`
		Suggestions []domain.Suggestion     `json:"suggestions"`
		Health      domain.ConversionHealth `json:"health"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Bottleneck != domain.StageAwareness {
		t.Errorf("expected awareness bottleneck, got %s", resp.Bottleneck)
	}
	if len(resp.Suggestions) == 0 || resp.Health == "" {
		t.Errorf("expected suggestions and health, got %+v", resp)
	}
}

func TestShippingTools(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/tools/carrier-reliability", map[string]any{"onTimeRate": 1}, nil)
	var rel struct {
		Score float64 `json:"score"`
	}
	json.NewDecoder(rec.Body).Decode(&rel)
	if rel.Score != 100 {
		t.Errorf("expected score 100, got %v", rel.Score)
	}

	rec = srv.do(http.MethodPost, "/api/tools/shipping-strategy", map[string]any{
		"carrierId":          "express",
		"productValueCents":  10000,
		"targetDeliveryDays": 0,
	}, nil)
	strategy := decode[domain.ShippingStrategy](t, strings.NewReader(rec.Body.String()))
	if strategy.RecommendedCarrier != "budget_post" {
		t.Errorf("expected budget_post, got %s", strategy.RecommendedCarrier)
	}

	rec = srv.do(http.MethodGet, "/api/tools/carriers", nil, nil)
	carriers := decode[[]domain.Carrier](t, strings.NewReader(rec.Body.String()))
	if len(carriers) != 4 {
		t.Errorf("expected 4 carriers, got %d", len(carriers))
	}
}
