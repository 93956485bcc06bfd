// Package memory provides in-process adapters used when no database is
// configured.
package memory

import (
	"context"
	"sync"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

// Journal is an in-memory port.EventJournal.
type Journal struct {
	mu              sync.RWMutex
	events          []domain.OnboardingEvent
	recommendations []domain.PricingRecommendation
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append stores events in order.
func (j *Journal) Append(ctx context.Context, events []domain.OnboardingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, events...)
	return nil
}

// SaveRecommendation stores a copy of rec.
func (j *Journal) SaveRecommendation(ctx context.Context, rec *domain.PricingRecommendation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.recommendations = append(j.recommendations, *rec)
	return nil
}

// Events returns the events recorded for runID, or all events when runID
// is empty.
func (j *Journal) Events(runID string) []domain.OnboardingEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.OnboardingEvent, 0, len(j.events))
	for _, e := range j.events {
		if runID == "" || e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

// Recommendations returns every stored recommendation.
func (j *Journal) Recommendations() []domain.PricingRecommendation {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]domain.PricingRecommendation(nil), j.recommendations...)
}
