// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete persistence and lookup adapters.
package port

import (
	"context"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

// TaxProfileFetcher retrieves the VAT registration of a store.
type TaxProfileFetcher interface {
	GetTaxProfile(ctx context.Context, storeID string) (*domain.TaxProfile, error)
}

// EventJournal records onboarding events and pricing recommendations.
// Implemented by the Supabase adapter and by the in-memory fallback.
type EventJournal interface {
	Append(ctx context.Context, events []domain.OnboardingEvent) error
	SaveRecommendation(ctx context.Context, rec *domain.PricingRecommendation) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
