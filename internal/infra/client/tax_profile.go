// Package client holds HTTP adapters for collaborating services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// TaxProfileClient fetches store tax registrations from the tax profile API.
type TaxProfileClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewTaxProfileClient creates a new TaxProfileClient.
func NewTaxProfileClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TaxProfileClient {
	return &TaxProfileClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// GetTaxProfile fetches a store tax profile with retry, circuit breaker, and tracing.
func (c *TaxProfileClient) GetTaxProfile(ctx context.Context, storeID string) (*domain.TaxProfile, error) {
	ctx, span := tracer.Start(ctx, "TaxProfileClient.GetTaxProfile")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", storeID))

	result, err := c.cb.Execute(func() (any, error) {
		var profile domain.TaxProfile
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			endpoint := fmt.Sprintf("%s/v1/stores/%s/tax-profile", c.baseURL, url.PathEscape(storeID))
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "tax_profile", ID: storeID}
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("tax profile API returned status %d", resp.StatusCode)
			}

			return json.NewDecoder(resp.Body).Decode(&profile)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &profile, nil
	})

	if err != nil {
		span.RecordError(err)
		if resilience.IsPermanent(err) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "tax_profile", Err: err}
	}

	return result.(*domain.TaxProfile), nil
}
