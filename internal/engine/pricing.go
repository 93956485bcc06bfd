package engine

import (
	"fmt"
	"math"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// PriceElasticity is the fixed demand elasticity: a 1% price change
	// moves conversion by -1.5%.
	PriceElasticity = -1.5
	// CompetitorUndercutBps is how far below a competitor we price.
	CompetitorUndercutBps = 100
)

// PricingThresholds tune the dynamic pricing rules. Percentages are in
// percent, InventoryPressure is a utilization ratio.
type PricingThresholds struct {
	LowConversionPct    float64
	InventoryPressure   float64
	GapCaptureFraction  float64
	MaxIncreasePct      float64
	LowConversionCutPct float64
	InventoryCutPct     float64
	MaxDecreasePct      float64
}

// DefaultPricingThresholds returns the thresholds used by ComputeDynamicPrice.
func DefaultPricingThresholds() PricingThresholds {
	return PricingThresholds{
		LowConversionPct:    1.0,
		InventoryPressure:   0.8,
		GapCaptureFraction:  0.5,
		MaxIncreasePct:      15,
		LowConversionCutPct: 5,
		InventoryCutPct:     3,
		MaxDecreasePct:      20,
	}
}

// ComputeDynamicPrice recommends a price adjustment using the default
// thresholds. Pass 0 for minMarginBps when there is no floor.
func ComputeDynamicPrice(currentPriceCents int64, ctx domain.DynamicPricingContext, minMarginBps int64) domain.PricingDecision {
	return ComputeDynamicPriceWith(currentPriceCents, ctx, minMarginBps, DefaultPricingThresholds())
}

// ComputeDynamicPriceWith evaluates the pricing rules in priority order,
// first match wins:
//
//  1. margin under the floor: maintain
//  2. margin under target and conversion not critically low: increase
//  3. conversion critically low: decrease
//  4. inventory pressure without high demand: decrease
//  5. otherwise maintain
//
// Demand trend and seasonality scale the size of any move. Decreases never
// push the expected margin under minMarginBps.
func ComputeDynamicPriceWith(currentPriceCents int64, ctx domain.DynamicPricingContext, minMarginBps int64, t PricingThresholds) domain.PricingDecision {
	price := clampCents(currentPriceCents)
	hold := func(reason string) domain.PricingDecision {
		return domain.PricingDecision{
			RecommendedAction: domain.ActionMaintain,
			NewPriceCents:     price,
			Reason:            reason,
			ExpectedMarginBps: ctx.CurrentMarginBps,
		}
	}

	if ctx.CurrentMarginBps < minMarginBps {
		return hold(fmt.Sprintf("Current margin %d bps is under the %d bps margin floor; holding price", ctx.CurrentMarginBps, minMarginBps))
	}
	if price == 0 {
		return hold("No current price to adjust")
	}

	conversion := clampPct(ctx.ConversionRate, 100)
	season := seasonalityFactor(ctx.Seasonality)
	lowConversion := conversion < t.LowConversionPct

	if ctx.CurrentMarginBps < ctx.TargetMarginBps && !lowConversion {
		pct := gapClosingPct(ctx.CurrentMarginBps, ctx.TargetMarginBps, t.MaxIncreasePct)
		pct = math.Min(pct*t.GapCaptureFraction*increaseWeight(ctx.DemandTrend)*season, t.MaxIncreasePct)
		newPrice := scalePrice(price, pct)
		if newPrice <= price {
			newPrice = price + 1
		}
		return domain.PricingDecision{
			RecommendedAction: domain.ActionIncrease,
			NewPriceCents:     newPrice,
			Reason: fmt.Sprintf("Margin %d bps is below target %d bps; raising price %.1f%% to close part of the gap",
				ctx.CurrentMarginBps, ctx.TargetMarginBps, pct),
			ExpectedMarginBps: expectedMarginBps(price, newPrice, ctx.CurrentMarginBps),
		}
	}

	if lowConversion {
		pct := math.Min(t.LowConversionCutPct*decreaseWeight(ctx.DemandTrend)*season, t.MaxDecreasePct)
		reason := fmt.Sprintf("Low conversion rate (%.2f%%) is suppressing demand; lowering price %.1f%%", conversion, pct)
		return decrease(price, pct, ctx.CurrentMarginBps, minMarginBps, reason, hold)
	}

	if util := utilization(ctx.InventoryLevel, ctx.MaxInventory); util > t.InventoryPressure && ctx.DemandTrend != domain.DemandHigh {
		pct := math.Min(t.InventoryCutPct*decreaseWeight(ctx.DemandTrend)*season, t.MaxDecreasePct)
		reason := fmt.Sprintf("Inventory at %.0f%% of capacity with %s demand; lowering price %.1f%% to clear stock",
			util*100, demandLabel(ctx.DemandTrend), pct)
		return decrease(price, pct, ctx.CurrentMarginBps, minMarginBps, reason, hold)
	}

	return hold("Margin at or above target and demand signals stable; maintaining price")
}

func decrease(price int64, pct float64, currentMarginBps, minMarginBps int64, reason string, hold func(string) domain.PricingDecision) domain.PricingDecision {
	newPrice := scalePrice(price, -pct)
	expected := expectedMarginBps(price, newPrice, currentMarginBps)

	if expected < minMarginBps {
		floor, ok := floorPrice(unitCost(price, currentMarginBps), minMarginBps)
		if !ok || floor >= price {
			return hold(fmt.Sprintf("Lowering price would breach the %d bps margin floor; holding price", minMarginBps))
		}
		newPrice = floor
		expected = expectedMarginBps(price, newPrice, currentMarginBps)
		reason += " (limited by margin floor)"
	}

	return domain.PricingDecision{
		RecommendedAction: domain.ActionDecrease,
		NewPriceCents:     newPrice,
		Reason:            reason,
		ExpectedMarginBps: expected,
	}
}

// gapClosingPct is the price change, in percent, that would move the margin
// from current to target with unit costs unchanged.
func gapClosingPct(currentBps, targetBps int64, maxPct float64) float64 {
	costShare := float64(bpsScale-currentBps) / bpsScale
	targetShare := float64(bpsScale-targetBps) / bpsScale
	if targetShare <= 0 || costShare <= 0 {
		return maxPct
	}
	return (costShare/targetShare - 1) * 100
}

// unitCost is the cost implied by a price and its margin.
func unitCost(price, marginBps int64) decimal.Decimal {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(bpsScale - marginBps)).
		Div(decBps)
}

func expectedMarginBps(oldPrice, newPrice, currentMarginBps int64) int64 {
	cost := unitCost(oldPrice, currentMarginBps)
	np := decimal.NewFromInt(newPrice)
	return ratioBps(np.Sub(cost), np)
}

// floorPrice is the lowest price that keeps the given margin on cost.
func floorPrice(cost decimal.Decimal, minMarginBps int64) (int64, bool) {
	if minMarginBps >= bpsScale {
		return 0, false
	}
	if !cost.IsPositive() {
		return 0, true
	}
	return cost.Mul(decBps).Div(decimal.NewFromInt(bpsScale - minMarginBps)).Ceil().IntPart(), true
}

func scalePrice(price int64, pct float64) int64 {
	return decimal.NewFromInt(price).
		Mul(decOne.Add(decFloat(pct).Div(decHundred))).
		Round(0).
		IntPart()
}

func utilization(level, capacity int64) float64 {
	if capacity <= 0 || level <= 0 {
		return 0
	}
	return float64(level) / float64(capacity)
}

func seasonalityFactor(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Min(s, 3)
}

func increaseWeight(trend domain.DemandTrend) float64 {
	switch trend {
	case domain.DemandHigh:
		return 1.25
	case domain.DemandLow:
		return 0.75
	default:
		return 1
	}
}

func decreaseWeight(trend domain.DemandTrend) float64 {
	switch trend {
	case domain.DemandHigh:
		return 0.5
	case domain.DemandLow:
		return 1.25
	default:
		return 1
	}
}

func demandLabel(trend domain.DemandTrend) string {
	if trend == "" {
		return string(domain.DemandMedium)
	}
	return string(trend)
}

// EstimateConversionAfterPriceChange applies PriceElasticity to a
// conversion rate (percent) for a price change in percent. The estimate
// is clamped to [0, 100], so a price cut strictly raises any positive rate
// below 100 and leaves a saturated rate of 100 unchanged.
func EstimateConversionAfterPriceChange(currentConversionRate, priceChangePct float64) float64 {
	rate := clampPct(currentConversionRate, 100)
	if rate == 0 || math.IsNaN(priceChangePct) {
		return rate
	}
	est := rate * (1 + PriceElasticity*priceChangePct/100)
	return clampPct(est, 100)
}

// CompetitivePrice undercuts a cheaper competitor by CompetitorUndercutBps,
// falls back to matching it, and otherwise holds at the margin floor: the
// lowest price that keeps minMarginReqBps on unitCostCents, since that is
// the closest the margin floor allows to the competitor. The unit cost is
// an explicit argument because the floor cannot be derived from prices
// alone. It never raises the price.
func CompetitivePrice(currentPriceCents, competitorPriceCents, minMarginReqBps, unitCostCents int64) int64 {
	current := clampCents(currentPriceCents)
	competitor := clampCents(competitorPriceCents)
	if competitor == 0 || competitor >= current {
		return current
	}

	floor, ok := floorPrice(decimal.NewFromInt(clampCents(unitCostCents)), minMarginReqBps)
	if !ok {
		return current
	}

	undercut := competitor - PercentageOf(competitor, CompetitorUndercutBps)
	switch {
	case undercut >= floor:
		return undercut
	case competitor >= floor:
		return competitor
	case floor <= current:
		return floor
	default:
		return current
	}
}
