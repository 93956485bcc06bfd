package engine

import (
	"math"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Overall conversion buckets used by DiagnoseConversionHealth.
const (
	ExcellentConversionPct = 10.0
	GoodConversionPct      = 3.0
)

// FunnelThresholds are the healthy lower bounds, in percent, of each stage.
type FunnelThresholds struct {
	ClickThroughPct float64
	ClickToCartPct  float64
	CartToOrderPct  float64
}

// DefaultFunnelThresholds returns CTR 2%, click-to-cart 10%, cart-to-order 25%.
func DefaultFunnelThresholds() FunnelThresholds {
	return FunnelThresholds{
		ClickThroughPct: 2,
		ClickToCartPct:  10,
		CartToOrderPct:  25,
	}
}

// AnalyzeConversionFunnel diagnoses the funnel with the default thresholds.
func AnalyzeConversionFunnel(m domain.FunnelMetrics) domain.FunnelAnalysis {
	return AnalyzeConversionFunnelWith(m, DefaultFunnelThresholds())
}

// AnalyzeConversionFunnelWith finds the bottleneck stage and returns up to
// three ranked suggestions for it.
//
// The earliest stage under its threshold is the bottleneck, since upstream
// fixes compound downstream. When every stage is healthy the stage with the
// least headroom is reported with a single low-priority suggestion.
func AnalyzeConversionFunnelWith(m domain.FunnelMetrics, t FunnelThresholds) domain.FunnelAnalysis {
	m = normalizeFunnel(m)

	// Thresholds are compared against exact ratios; only the reported
	// rates are rounded.
	stages := []struct {
		stage     domain.FunnelStage
		rate      decimal.Decimal
		threshold float64
	}{
		{domain.StageAwareness, exactPercent(m.Clicks, m.Impressions), t.ClickThroughPct},
		{domain.StageInterest, exactPercent(m.CartAdds, m.Clicks), t.ClickToCartPct},
		{domain.StageDecision, exactPercent(m.Purchases, m.CartAdds), t.CartToOrderPct},
	}
	rates := domain.StageRates{
		ClickThroughPct: round2(stages[0].rate),
		ClickToCartPct:  round2(stages[1].rate),
		CartToOrderPct:  round2(stages[2].rate),
	}

	var suggestions []domain.Suggestion
	bottleneck := domain.FunnelStage("")
	for _, s := range stages {
		if s.rate.LessThan(decFloat(s.threshold)) {
			bottleneck = s.stage
			suggestions = playbook(s.stage)
			break
		}
	}

	if bottleneck == "" {
		headroom := math.Inf(1)
		for _, s := range stages {
			if s.threshold <= 0 {
				continue
			}
			if h := s.rate.InexactFloat64() / s.threshold; h < headroom {
				headroom = h
				bottleneck = s.stage
			}
		}
		if bottleneck == "" {
			bottleneck = domain.StageDecision
		}
		suggestions = []domain.Suggestion{maintenanceSuggestion(bottleneck)}
	}

	return domain.FunnelAnalysis{
		ConversionRate: percentOf2(m.Purchases, m.Impressions),
		Bottleneck:     bottleneck,
		StageRates:     rates,
		Suggestions:    suggestions,
	}
}

func normalizeFunnel(m domain.FunnelMetrics) domain.FunnelMetrics {
	return domain.FunnelMetrics{
		Impressions: clampCents(m.Impressions),
		Clicks:      clampCents(m.Clicks),
		CartAdds:    clampCents(m.CartAdds),
		Purchases:   clampCents(m.Purchases),
	}
}

// playbook returns the ranked fixes for a failing stage.
func playbook(stage domain.FunnelStage) []domain.Suggestion {
	switch stage {
	case domain.StageAwareness:
		return []domain.Suggestion{
			{Type: "title", Priority: domain.PriorityHigh, ExpectedImpact: 25, Action: "Rewrite the product title around the top search keywords"},
			{Type: "thumbnail", Priority: domain.PriorityHigh, ExpectedImpact: 20, Action: "Replace the main thumbnail with a clean, high-contrast product shot"},
			{Type: "keywords", Priority: domain.PriorityMedium, ExpectedImpact: 10, Action: "Add missing search keywords and tags to the listing"},
		}
	case domain.StageInterest:
		return []domain.Suggestion{
			{Type: "images", Priority: domain.PriorityHigh, ExpectedImpact: 20, Action: "Add lifestyle images and a short product video"},
			{Type: "price", Priority: domain.PriorityHigh, ExpectedImpact: 15, Action: "Test a lower price point or a visible discount against competitors"},
			{Type: "description", Priority: domain.PriorityMedium, ExpectedImpact: 10, Action: "Lead the description with benefits, sizing and materials"},
		}
	default:
		return []domain.Suggestion{
			{Type: "trust_signals", Priority: domain.PriorityHigh, ExpectedImpact: 18, Action: "Show secure-checkout badges and a clear return policy"},
			{Type: "shipping", Priority: domain.PriorityHigh, ExpectedImpact: 15, Action: "State delivery times and shipping costs before checkout"},
			{Type: "reviews", Priority: domain.PriorityMedium, ExpectedImpact: 12, Action: "Collect and display verified customer reviews"},
		}
	}
}

func maintenanceSuggestion(stage domain.FunnelStage) domain.Suggestion {
	switch stage {
	case domain.StageAwareness:
		return domain.Suggestion{Type: "ab_test", Priority: domain.PriorityLow, ExpectedImpact: 5, Action: "A/B test title and thumbnail variants to keep click-through above target"}
	case domain.StageInterest:
		return domain.Suggestion{Type: "bundles", Priority: domain.PriorityLow, ExpectedImpact: 5, Action: "Offer bundles or variants to lift add-to-cart"}
	default:
		return domain.Suggestion{Type: "checkout", Priority: domain.PriorityLow, ExpectedImpact: 5, Action: "Trim checkout steps and add express payment options"}
	}
}

// DiagnoseConversionHealth buckets purchases/impressions: >=10% excellent,
// >=3% good, anything else poor.
func DiagnoseConversionHealth(m domain.FunnelMetrics) domain.ConversionHealth {
	m = normalizeFunnel(m)
	rate := exactPercent(m.Purchases, m.Impressions)
	switch {
	case rate.GreaterThanOrEqual(decimal.NewFromFloat(ExcellentConversionPct)):
		return domain.HealthExcellent
	case rate.GreaterThanOrEqual(decimal.NewFromFloat(GoodConversionPct)):
		return domain.HealthGood
	default:
		return domain.HealthPoor
	}
}

// EstimateRevenueImpact projects revenue after applying a suggestion's
// expected conversion lift. Revenue scales in proportion to conversion, so
// the projection depends on the lift alone and the funnel metrics only
// describe the listing it applies to. Positive impacts round up so any
// positive lift on positive revenue yields strictly more revenue.
func EstimateRevenueImpact(baseRevenueCents int64, _ domain.FunnelMetrics, s domain.Suggestion) int64 {
	base := decimal.NewFromInt(clampCents(baseRevenueCents))
	impact := decFloat(s.ExpectedImpact)
	if impact.IsZero() {
		return base.IntPart()
	}

	projected := base.Mul(decOne.Add(impact.Div(decHundred)))
	if impact.IsPositive() {
		return projected.Ceil().IntPart()
	}
	if projected.IsNegative() {
		return 0
	}
	return projected.Floor().IntPart()
}
