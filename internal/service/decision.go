// Package service composes the decision engine with the collaborators the
// engine itself never touches: tracing, metrics, tax profiles and the
// onboarding journal.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/decision")

// MaxBatchSize bounds a single batch simulation request.
const MaxBatchSize = 500

// DecisionService is the traced and metered entry point to every engine
// calculator. It carries the configured thresholds so callers never pass
// them explicitly.
type DecisionService struct {
	funnel         engine.FunnelThresholds
	pricing        engine.PricingThresholds
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewDecisionService creates the decision service.
func NewDecisionService(
	funnel engine.FunnelThresholds,
	pricing engine.PricingThresholds,
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DecisionService {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &DecisionService{
		funnel:         funnel,
		pricing:        pricing,
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger,
	}
}

// start opens a span for op and returns a func that ends it and records
// the operation duration.
func (s *DecisionService) start(ctx context.Context, op string) (context.Context, trace.Span, func()) {
	ctx, span := tracer.Start(ctx, "DecisionService."+op)
	begin := time.Now()
	return ctx, span, func() {
		s.metrics.RecordRequestDuration(op, time.Since(begin))
		span.End()
	}
}

// ============================================================
// Margin
// ============================================================

// ComputeMargin computes the margin breakdown. With requireProfit set it
// returns *domain.ErrUnprofitable alongside the result when net profit is
// not positive.
func (s *DecisionService) ComputeMargin(ctx context.Context, in domain.MarginInput, requireProfit bool) (domain.MarginResult, error) {
	_, span, done := s.start(ctx, "ComputeMargin")
	defer done()

	res := engine.ComputeMargin(in)
	span.SetAttributes(attribute.Int64("margin.net_profit_cents", res.NetProfitCents))
	if requireProfit {
		if err := engine.AssertPositiveMargin(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// ============================================================
// Worst-case simulation
// ============================================================

// Simulate runs the worst-case simulator and records its verdict.
func (s *DecisionService) Simulate(ctx context.Context, in domain.SimulationInput) domain.SimulationResult {
	_, span, done := s.start(ctx, "Simulate")
	defer done()

	res := engine.Simulate(in)
	s.metrics.RecordSimulation(res)
	span.SetAttributes(
		attribute.Int64("simulation.retail_cents", in.RetailPriceCents),
		attribute.Int64("simulation.worst_case_bps", res.WorstCaseMarginBps),
		attribute.Bool("simulation.approved", res.IsApproved),
	)

	if !res.IsApproved {
		s.logger.Info("price rejected by margin guard",
			zap.Int64("retail_cents", in.RetailPriceCents),
			zap.Int64("worst_case_bps", res.WorstCaseMarginBps),
			zap.String("reason", res.RejectionReason),
		)
	}
	return res
}

// SimulateBatch simulates every input concurrently, at most maxConcurrency
// at a time. Results keep input order.
func (s *DecisionService) SimulateBatch(ctx context.Context, inputs []domain.SimulationInput) (*domain.BatchSimulationResponse, error) {
	if len(inputs) == 0 {
		return nil, &domain.ErrValidation{Field: "items", Message: "at least one simulation is required"}
	}
	if len(inputs) > MaxBatchSize {
		return nil, &domain.ErrValidation{Field: "items", Message: fmt.Sprintf("at most %d simulations per batch", MaxBatchSize)}
	}

	ctx, span, done := s.start(ctx, "SimulateBatch")
	defer done()
	span.SetAttributes(attribute.Int("batch.size", len(inputs)))

	results := make([]domain.SimulationResult, len(inputs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i := range inputs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.Simulate(gCtx, inputs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch simulation: %w", err)
	}

	resp := &domain.BatchSimulationResponse{Results: results}
	for _, r := range results {
		if r.IsApproved {
			resp.Approved++
		} else {
			resp.Rejected++
		}
	}
	return resp, nil
}

// MinViablePrice returns the smallest 50-cent price whose worst case
// reaches minMarginBps, and whether one exists.
func (s *DecisionService) MinViablePrice(ctx context.Context, in domain.SimulationInput, minMarginBps int64) (int64, bool) {
	_, span, done := s.start(ctx, "MinViablePrice")
	defer done()

	price, ok := engine.MinViablePrice(in, minMarginBps)
	span.SetAttributes(attribute.Int64("price.min_cents", price), attribute.Bool("price.reachable", ok))
	return price, ok
}

// Sensitivity reports the per-factor margin sensitivity.
func (s *DecisionService) Sensitivity(ctx context.Context, retail, supplier, shipping, platformFeeBps int64) domain.MarginSensitivity {
	_, _, done := s.start(ctx, "Sensitivity")
	defer done()
	return engine.MarginSensitivity(retail, supplier, shipping, platformFeeBps)
}

// ============================================================
// Pricing
// ============================================================

// DynamicPrice recommends a price adjustment with the configured thresholds.
func (s *DecisionService) DynamicPrice(ctx context.Context, currentPriceCents int64, pctx domain.DynamicPricingContext, minMarginBps int64) domain.PricingDecision {
	_, span, done := s.start(ctx, "DynamicPrice")
	defer done()

	d := engine.ComputeDynamicPriceWith(currentPriceCents, pctx, minMarginBps, s.pricing)
	s.metrics.RecordDecision(d.RecommendedAction)
	span.SetAttributes(
		attribute.String("pricing.action", string(d.RecommendedAction)),
		attribute.Int64("pricing.new_price_cents", d.NewPriceCents),
	)
	return d
}

// CompetitivePrice prices against a competitor without breaking the floor.
func (s *DecisionService) CompetitivePrice(ctx context.Context, current, competitor, minMarginBps, unitCost int64) int64 {
	_, _, done := s.start(ctx, "CompetitivePrice")
	defer done()
	return engine.CompetitivePrice(current, competitor, minMarginBps, unitCost)
}

// EstimateConversion applies the price elasticity to a conversion rate.
func (s *DecisionService) EstimateConversion(ctx context.Context, rate, priceChangePct float64) float64 {
	_, _, done := s.start(ctx, "EstimateConversion")
	defer done()
	return engine.EstimateConversionAfterPriceChange(rate, priceChangePct)
}

// ============================================================
// Funnel
// ============================================================

// AnalyzeFunnel diagnoses the funnel with the configured thresholds and
// buckets its overall health.
func (s *DecisionService) AnalyzeFunnel(ctx context.Context, m domain.FunnelMetrics) (domain.FunnelAnalysis, domain.ConversionHealth) {
	_, span, done := s.start(ctx, "AnalyzeFunnel")
	defer done()

	a := engine.AnalyzeConversionFunnelWith(m, s.funnel)
	span.SetAttributes(attribute.String("funnel.bottleneck", string(a.Bottleneck)))
	return a, engine.DiagnoseConversionHealth(m)
}

// RevenueImpact projects revenue after applying a suggestion.
func (s *DecisionService) RevenueImpact(ctx context.Context, baseRevenueCents int64, m domain.FunnelMetrics, sug domain.Suggestion) int64 {
	_, _, done := s.start(ctx, "RevenueImpact")
	defer done()
	return engine.EstimateRevenueImpact(baseRevenueCents, m, sug)
}

// ============================================================
// Shipping
// ============================================================

// ShippingRisk scores a shipping profile.
func (s *DecisionService) ShippingRisk(ctx context.Context, p domain.ShippingProfile) domain.ShippingRiskScore {
	_, span, done := s.start(ctx, "ShippingRisk")
	defer done()

	r := engine.ComputeShippingRiskScore(p)
	span.SetAttributes(attribute.Int64("shipping.risk_score", r.RiskScore))
	return r
}

// CarrierReliability scores a carrier's delivery record.
func (s *DecisionService) CarrierReliability(ctx context.Context, onTime, damage, loss float64) float64 {
	_, _, done := s.start(ctx, "CarrierReliability")
	defer done()
	return engine.CarrierReliabilityScore(onTime, damage, loss)
}

// ShippingStrategy picks a carrier for a delivery target.
func (s *DecisionService) ShippingStrategy(ctx context.Context, carrierID string, productValueCents, targetDays int64) domain.ShippingStrategy {
	_, _, done := s.start(ctx, "ShippingStrategy")
	defer done()
	return engine.OptimizeShippingStrategy(carrierID, productValueCents, targetDays)
}
