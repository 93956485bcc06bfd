package engine

import (
	"math"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

// Risk score weights; they sum to 100 before the carrier penalty.
const (
	deliveryRiskWeight = 40.0
	delayRiskWeight    = 30.0
	refundRiskWeight   = 30.0

	slowDeliveryDays      = 21.0
	highRefundRatePct     = 20.0
	unknownCarrierPenalty = 5.0
	carrierPenaltyWeight  = 10.0

	// MarginBufferBpsPerRiskPoint converts a risk score into a margin buffer.
	MarginBufferBpsPerRiskPoint = 15
)

// Carriers returns the carrier catalog, cheapest first.
func Carriers() []domain.Carrier {
	return []domain.Carrier{
		{ID: "budget_post", DeliveryDays: 21, BaseCost: 250, InsuranceBps: 0, OnTimeRate: 0.78, DamageRate: 0.06, LossRate: 0.04},
		{ID: "economy", DeliveryDays: 14, BaseCost: 450, InsuranceBps: 20, OnTimeRate: 0.85, DamageRate: 0.04, LossRate: 0.02},
		{ID: "standard", DeliveryDays: 7, BaseCost: 900, InsuranceBps: 30, OnTimeRate: 0.92, DamageRate: 0.02, LossRate: 0.01},
		{ID: "express", DeliveryDays: 3, BaseCost: 1800, InsuranceBps: 50, OnTimeRate: 0.97, DamageRate: 0.005, LossRate: 0.004},
	}
}

func carrierByID(id string) (domain.Carrier, bool) {
	for _, c := range Carriers() {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Carrier{}, false
}

// ComputeShippingRiskScore turns a shipping profile into a 0-100 risk
// score, the conversion it is expected to cost, and the margin buffer a
// seller should hold against it.
func ComputeShippingRiskScore(p domain.ShippingProfile) domain.ShippingRiskScore {
	days := clampPct(p.DeliveryDaysAvg, 365)
	delay := clampPct(p.DelayProbability, 1)
	refund := clampPct(p.RefundRatePct, 100)

	score := math.Min(days/slowDeliveryDays, 1)*deliveryRiskWeight +
		delay*delayRiskWeight +
		math.Min(refund/highRefundRatePct, 1)*refundRiskWeight +
		carrierPenalty(p.CarrierID)

	risk := decFloat(clampPct(score, 100)).Round(0).IntPart()

	impact := 0.2*float64(risk) + 0.5*math.Max(0, days-7)

	return domain.ShippingRiskScore{
		RiskScore:                      risk,
		ConversionImpact:               decFloat(math.Min(impact, 50)).Round(1).InexactFloat64(),
		RecommendedMarginAdditionalBps: risk * MarginBufferBpsPerRiskPoint,
	}
}

func carrierPenalty(carrierID string) float64 {
	c, ok := carrierByID(carrierID)
	if !ok {
		return unknownCarrierPenalty
	}
	reliability := CarrierReliabilityScore(c.OnTimeRate, c.DamageRate, c.LossRate)
	return (1 - reliability/100) * carrierPenaltyWeight
}

// CarrierReliabilityScore scores a carrier 0-100. On-time delivery
// dominates; damage and loss rates are penalties.
func CarrierReliabilityScore(onTimeRate, damageRate, lossRate float64) float64 {
	score := 100*clampPct(onTimeRate, 1) -
		50*clampPct(damageRate, 1) -
		80*clampPct(lossRate, 1)
	return decFloat(clampPct(score, 100)).Round(1).InexactFloat64()
}

// OptimizeShippingStrategy picks a carrier for a delivery target. The
// requested carrier is kept when it meets the target, otherwise the
// cheapest carrier that does; when none can, the fastest one is returned
// with MeetsTarget false. A non-positive target means no deadline.
func OptimizeShippingStrategy(carrierID string, productValueCents, targetDeliveryDays int64) domain.ShippingStrategy {
	meets := func(c domain.Carrier) bool {
		return targetDeliveryDays <= 0 || c.DeliveryDays <= targetDeliveryDays
	}

	catalog := Carriers()
	chosen, ok := carrierByID(carrierID)
	if !ok || !meets(chosen) {
		ok = false
		for _, c := range catalog {
			if meets(c) {
				chosen, ok = c, true
				break
			}
		}
	}
	if !ok {
		chosen = catalog[len(catalog)-1]
	}

	risk := ComputeShippingRiskScore(domain.ShippingProfile{
		DeliveryDaysAvg:  float64(chosen.DeliveryDays),
		DelayProbability: 1 - chosen.OnTimeRate,
		RefundRatePct:    (chosen.DamageRate + chosen.LossRate) * 100,
		CarrierID:        chosen.ID,
	})

	cost := chosen.BaseCost + PercentageOf(clampCents(productValueCents), chosen.InsuranceBps)

	return domain.ShippingStrategy{
		RecommendedCarrier:         chosen.ID,
		EstimatedShippingCostCents: cost,
		EstimatedRiskScore:         risk.RiskScore,
		EstimatedDeliveryDays:      chosen.DeliveryDays,
		MeetsTarget:                ok,
	}
}
