// Package supabase provides a client for Supabase (PostgREST).
// Used as the real backend for store tax profiles and the onboarding
// journal.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
}

// doGet executes an authenticated GET against PostgREST. A 404 or 204
// yields a nil body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("supabase: request OK",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

// call runs fn behind the circuit breaker with retries. Not-found errors
// pass through untouched; everything else is an external service error.
func (c *Client) call(ctx context.Context, service string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	if err == nil {
		return nil
	}
	var notFound *domain.ErrNotFound
	if errors.As(err, &notFound) {
		return notFound
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// --- Tax profiles (implements port.TaxProfileFetcher) ---

// supabaseTaxProfile maps the store_tax_profiles table.
type supabaseTaxProfile struct {
	StoreID      string `json:"store_id"`
	VATEnabled   bool   `json:"vat_enabled"`
	VATRateBps   *int64 `json:"vat_rate_bps"`
	HomeCountry  string `json:"home_country"`
	RegisteredAs string `json:"registered_as"`
}

// GetTaxProfile fetches the VAT registration of a store.
func (c *Client) GetTaxProfile(ctx context.Context, storeID string) (*domain.TaxProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTaxProfile")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	var profile *domain.TaxProfile

	err := c.call(ctx, "supabase/tax_profile", func() error {
		path := fmt.Sprintf("store_tax_profiles?store_id=eq.%s&limit=1", url.QueryEscape(storeID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil {
			return &domain.ErrNotFound{Resource: "tax_profile", ID: storeID}
		}

		var rows []supabaseTaxProfile
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode tax profile: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "tax_profile", ID: storeID}
		}

		r := rows[0]
		profile = &domain.TaxProfile{
			StoreID:      r.StoreID,
			VATEnabled:   r.VATEnabled,
			HomeCountry:  r.HomeCountry,
			RegisteredAs: r.RegisteredAs,
		}
		if r.VATRateBps != nil {
			profile.VATRateBps = *r.VATRateBps
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return profile, nil
}
