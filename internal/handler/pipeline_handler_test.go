package handler_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

func listingBody() map[string]any {
	return map[string]any{
		"productId":          "sku-42",
		"priceCents":         10000,
		"supplierCostCents":  2000,
		"shippingCostCents":  500,
		"platformFeeBps":     500,
		"affiliateBps":       1000,
		"refundReserveCents": 200,
		"guardrails":         toolGuardrails,
		"shipping": map[string]any{
			"deliveryDaysAvg":  3,
			"delayProbability": 0.1,
			"refundRatePct":    2,
			"carrierId":        "express",
		},
	}
}

func bearer(t *testing.T, srv *testServer, sellerID string) map[string]string {
	t.Helper()
	token, err := srv.tokens.Sign(sellerID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestEvaluateListing(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodPost, "/v1/sellers/me/listings/evaluate", listingBody(), bearer(t, srv, "seller-9"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	eval := decode[domain.ListingEvaluation](t, strings.NewReader(rec.Body.String()))
	if !eval.Approved || eval.FinalPriceCents != 10000 {
		t.Errorf("unexpected evaluation %+v", eval)
	}

	events := srv.journal.Events(eval.RunID)
	if len(events) == 0 || events[0].SellerID != "seller-9" {
		t.Errorf("expected events journaled for seller-9, got %+v", events)
	}
}

func TestEvaluateListing_SellerIDComesFromToken(t *testing.T) {
	srv := newTestServer(t, true)

	body := listingBody()
	body["sellerId"] = "someone-else"
	rec := srv.do(http.MethodPost, "/v1/sellers/me/listings/evaluate", body, bearer(t, srv, "seller-9"))
	eval := decode[domain.ListingEvaluation](t, strings.NewReader(rec.Body.String()))

	for _, e := range srv.journal.Events(eval.RunID) {
		if e.SellerID != "seller-9" {
			t.Fatalf("expected seller-9, got %s", e.SellerID)
		}
	}
}

func TestEvaluateListing_Unauthorized(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"missing header", nil},
		{"wrong scheme", map[string]string{"Authorization": "Basic abc"}},
		{"bad token", map[string]string{"Authorization": "Bearer nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/v1/sellers/me/listings/evaluate", listingBody(), tt.headers)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestEvaluateListing_ValidationError(t *testing.T) {
	srv := newTestServer(t, true)

	body := listingBody()
	body["priceCents"] = 0
	rec := srv.do(http.MethodPost, "/v1/sellers/me/listings/evaluate", body, bearer(t, srv, "seller-9"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEvaluateListing_RejectionIsOK(t *testing.T) {
	srv := newTestServer(t, true)

	body := listingBody()
	body["priceCents"] = 5000
	body["supplierCostCents"] = 4000
	rec := srv.do(http.MethodPost, "/v1/sellers/me/listings/evaluate", body, bearer(t, srv, "seller-9"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	eval := decode[domain.ListingEvaluation](t, strings.NewReader(rec.Body.String()))
	if eval.Approved || eval.Stage != domain.StageMarginGuard || eval.SuggestedPriceCents == 0 {
		t.Errorf("unexpected evaluation %+v", eval)
	}
}
