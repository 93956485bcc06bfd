package engine_test

import (
	"strings"
	"testing"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"
)

func TestComputeDynamicPrice_FloorTakesPrecedence(t *testing.T) {
	contexts := []domain.DynamicPricingContext{
		{CurrentMarginBps: 500, TargetMarginBps: 3000, ConversionRate: 5},
		{CurrentMarginBps: 500, TargetMarginBps: 3000, ConversionRate: 0.1},
		{CurrentMarginBps: 500, TargetMarginBps: 100, InventoryLevel: 99, MaxInventory: 100},
	}
	for i, ctx := range contexts {
		d := engine.ComputeDynamicPrice(10000, ctx, 1000)
		if d.RecommendedAction != domain.ActionMaintain {
			t.Errorf("case %d: expected maintain, got %s", i, d.RecommendedAction)
		}
		if d.NewPriceCents != 10000 {
			t.Errorf("case %d: expected price unchanged, got %d", i, d.NewPriceCents)
		}
	}
}

func TestComputeDynamicPrice_IncreaseBelowTarget(t *testing.T) {
	ctx := domain.DynamicPricingContext{
		CurrentMarginBps: 2000,
		TargetMarginBps:  3000,
		ConversionRate:   3.5,
		DemandTrend:      domain.DemandMedium,
		Seasonality:      1,
	}
	d := engine.ComputeDynamicPrice(10000, ctx, 1500)

	if d.RecommendedAction != domain.ActionIncrease {
		t.Fatalf("expected increase, got %s (%s)", d.RecommendedAction, d.Reason)
	}
	if d.NewPriceCents != 10714 {
		t.Errorf("expected 10714, got %d", d.NewPriceCents)
	}
	if !strings.Contains(d.Reason, "below target") {
		t.Errorf("expected reason to mention 'below target', got %q", d.Reason)
	}
	if d.ExpectedMarginBps <= ctx.CurrentMarginBps {
		t.Errorf("expected margin to improve, got %d", d.ExpectedMarginBps)
	}
}

func TestComputeDynamicPrice_DemandAndSeasonalityScaleIncrease(t *testing.T) {
	base := domain.DynamicPricingContext{CurrentMarginBps: 2000, TargetMarginBps: 3000, ConversionRate: 3}

	low, high := base, base
	low.DemandTrend = domain.DemandLow
	high.DemandTrend = domain.DemandHigh
	lowPrice := engine.ComputeDynamicPrice(10000, low, 0).NewPriceCents
	highPrice := engine.ComputeDynamicPrice(10000, high, 0).NewPriceCents
	if highPrice <= lowPrice {
		t.Errorf("expected high demand to raise more: high=%d low=%d", highPrice, lowPrice)
	}

	peak := base
	peak.Seasonality = 1.5
	if p := engine.ComputeDynamicPrice(10000, peak, 0).NewPriceCents; p <= engine.ComputeDynamicPrice(10000, base, 0).NewPriceCents {
		t.Errorf("expected peak season to raise more, got %d", p)
	}
}

func TestComputeDynamicPrice_LowConversionDecreases(t *testing.T) {
	ctx := domain.DynamicPricingContext{CurrentMarginBps: 3000, TargetMarginBps: 2500, ConversionRate: 0.5}
	d := engine.ComputeDynamicPrice(10000, ctx, 0)

	if d.RecommendedAction != domain.ActionDecrease {
		t.Fatalf("expected decrease, got %s", d.RecommendedAction)
	}
	if d.NewPriceCents != 9500 {
		t.Errorf("expected 9500, got %d", d.NewPriceCents)
	}
	if !strings.HasPrefix(d.Reason, "Low conversion") {
		t.Errorf("expected reason to start with 'Low conversion', got %q", d.Reason)
	}
}

func TestComputeDynamicPrice_DecreaseLimitedByFloor(t *testing.T) {
	ctx := domain.DynamicPricingContext{CurrentMarginBps: 1000, TargetMarginBps: 500, ConversionRate: 0.5}
	d := engine.ComputeDynamicPrice(10000, ctx, 800)

	if d.RecommendedAction != domain.ActionDecrease {
		t.Fatalf("expected decrease, got %s", d.RecommendedAction)
	}
	if d.NewPriceCents != 9783 {
		t.Errorf("expected floor price 9783, got %d", d.NewPriceCents)
	}
	if d.ExpectedMarginBps < 800 {
		t.Errorf("expected margin >= 800 bps, got %d", d.ExpectedMarginBps)
	}
	if !strings.Contains(d.Reason, "limited by margin floor") {
		t.Errorf("unexpected reason %q", d.Reason)
	}
}

func TestComputeDynamicPrice_HoldsWhenFloorBlocksDecrease(t *testing.T) {
	ctx := domain.DynamicPricingContext{CurrentMarginBps: 800, TargetMarginBps: 500, ConversionRate: 0.5}
	d := engine.ComputeDynamicPrice(10000, ctx, 800)

	if d.RecommendedAction != domain.ActionMaintain || d.NewPriceCents != 10000 {
		t.Errorf("expected maintain at 10000, got %s at %d", d.RecommendedAction, d.NewPriceCents)
	}
}

func TestComputeDynamicPrice_InventoryPressure(t *testing.T) {
	ctx := domain.DynamicPricingContext{
		CurrentMarginBps: 3000,
		TargetMarginBps:  2500,
		ConversionRate:   3,
		InventoryLevel:   90,
		MaxInventory:     100,
		DemandTrend:      domain.DemandMedium,
	}
	d := engine.ComputeDynamicPrice(10000, ctx, 0)
	if d.RecommendedAction != domain.ActionDecrease || d.NewPriceCents != 9700 {
		t.Errorf("expected decrease to 9700, got %s at %d", d.RecommendedAction, d.NewPriceCents)
	}

	ctx.DemandTrend = domain.DemandHigh
	d = engine.ComputeDynamicPrice(10000, ctx, 0)
	if d.RecommendedAction != domain.ActionMaintain {
		t.Errorf("expected maintain under high demand, got %s", d.RecommendedAction)
	}
}

func TestComputeDynamicPrice_Maintain(t *testing.T) {
	ctx := domain.DynamicPricingContext{CurrentMarginBps: 3000, TargetMarginBps: 2500, ConversionRate: 3, InventoryLevel: 10, MaxInventory: 100}
	d := engine.ComputeDynamicPrice(10000, ctx, 1000)
	if d.RecommendedAction != domain.ActionMaintain || d.NewPriceCents != 10000 || d.ExpectedMarginBps != 3000 {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestComputeDynamicPriceWith_CustomThresholds(t *testing.T) {
	th := engine.DefaultPricingThresholds()
	th.LowConversionPct = 5

	ctx := domain.DynamicPricingContext{CurrentMarginBps: 3000, TargetMarginBps: 2500, ConversionRate: 3}
	d := engine.ComputeDynamicPriceWith(10000, ctx, 0, th)
	if d.RecommendedAction != domain.ActionDecrease {
		t.Errorf("expected 3%% conversion to count as low under a 5%% threshold, got %s", d.RecommendedAction)
	}
}

func TestEstimateConversionAfterPriceChange(t *testing.T) {
	if got := engine.EstimateConversionAfterPriceChange(3, -10); got <= 3 {
		t.Errorf("expected price cut to raise conversion, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(3, 10); got >= 3 {
		t.Errorf("expected price increase to lower conversion, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(3, 0); got != 3 {
		t.Errorf("expected unchanged conversion, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(3, 500); got != 0 {
		t.Errorf("expected conversion clamped at 0, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(90, -90); got != 100 {
		t.Errorf("expected conversion clamped at 100, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(100, -10); got != 100 {
		t.Errorf("expected a saturated rate to stay at 100, got %v", got)
	}
	if got := engine.EstimateConversionAfterPriceChange(99, -10); got != 100 {
		t.Errorf("expected a cut to lift 99 to the 100 ceiling, got %v", got)
	}
}

func TestCompetitivePrice(t *testing.T) {
	tests := []struct {
		name                        string
		current, competitor, minBps int64
		unitCost, want              int64
	}{
		{"undercut", 10000, 9000, 2000, 6000, 8910},
		{"match when undercut breaks floor", 10000, 7550, 2000, 6000, 7550},
		{"floor when competitor breaks floor", 10000, 7000, 2000, 6000, 7500},
		{"hold when floor above current", 7400, 7000, 2000, 6000, 7400},
		{"competitor more expensive", 10000, 11000, 2000, 6000, 10000},
		{"no competitor", 10000, 0, 2000, 6000, 10000},
		{"impossible margin", 10000, 9000, 10000, 6000, 10000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.CompetitivePrice(tt.current, tt.competitor, tt.minBps, tt.unitCost)
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if got > tt.current {
				t.Errorf("price raised from %d to %d", tt.current, got)
			}
		})
	}
}
