package supabase

import (
	"context"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Onboarding journal (implements port.EventJournal) ---

// Append inserts events into onboarding_events in a single request.
func (c *Client) Append(ctx context.Context, events []domain.OnboardingEvent) error {
	if len(events) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "Supabase.AppendEvents")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", events[0].RunID),
		attribute.Int("events.count", len(events)),
	)

	err := c.call(ctx, "supabase/onboarding_events", func() error {
		return c.doPost(ctx, "onboarding_events", events)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// SaveRecommendation inserts rec into pricing_recommendations.
func (c *Client) SaveRecommendation(ctx context.Context, rec *domain.PricingRecommendation) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveRecommendation")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", rec.RunID))

	err := c.call(ctx, "supabase/pricing_recommendations", func() error {
		return c.doPost(ctx, "pricing_recommendations", rec)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}
