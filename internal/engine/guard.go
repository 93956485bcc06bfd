package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// DelayCostPerDayBps is the support and goodwill cost of one day of
	// shipping delay, charged on the scenario price.
	DelayCostPerDayBps = 10
	// MaxCompetitorPriceCutPct caps the modeled competitor price cut so a
	// scenario price never reaches zero.
	MaxCompetitorPriceCutPct = 95.0

	// Fixed perturbations reported by MarginSensitivity.
	SensitivityRefundRatePct  = 5
	SensitivityDelayDays      = 1
	SensitivityPriceCutPct    = 10
	SensitivityFeeIncreaseBps = 500

	priceStepCents      = 50
	maxPriceSearchSteps = 4000
)

var (
	decOne  = decimal.NewFromInt(1)
	decHalf = decimal.NewFromFloat(0.5)
)

// simInput is a SimulationInput after boundary normalization.
type simInput struct {
	retail     decimal.Decimal
	supplier   decimal.Decimal
	shipping   decimal.Decimal
	reserve    decimal.Decimal
	platform   decimal.Decimal
	affiliate  decimal.Decimal
	vatRateBps decimal.Decimal // zero when VAT does not apply
}

// adverse is one point of the guardrail space. The zero value is the
// best case.
type adverse struct {
	priceCutPct    decimal.Decimal
	refundRatePct  decimal.Decimal
	delayDays      decimal.Decimal
	returnShipping decimal.Decimal
	feeIncreaseBps decimal.Decimal
}

func (a adverse) scale(factor decimal.Decimal) adverse {
	return adverse{
		priceCutPct:    a.priceCutPct.Mul(factor),
		refundRatePct:  a.refundRatePct.Mul(factor),
		delayDays:      a.delayDays.Mul(factor),
		returnShipping: a.returnShipping.Mul(factor),
		feeIncreaseBps: a.feeIncreaseBps.Mul(factor),
	}
}

type outcome struct {
	price decimal.Decimal
	net   decimal.Decimal
}

func (o outcome) marginBps() int64 {
	return ratioBps(o.net, o.price)
}

func normalizeInput(in domain.SimulationInput) simInput {
	si := simInput{
		retail:    decimal.NewFromInt(clampCents(in.RetailPriceCents)),
		supplier:  decimal.NewFromInt(clampCents(in.SupplierCostCents)),
		shipping:  decimal.NewFromInt(clampCents(in.ShippingCostCents)),
		reserve:   decimal.NewFromInt(clampCents(in.RefundReserveCents)),
		platform:  decimal.NewFromInt(clampBps(in.PlatformFeeBps)),
		affiliate: decimal.NewFromInt(clampBps(in.AffiliateBps)),
	}
	if rate := effectiveVATRate(in); rate > 0 {
		si.vatRateBps = decimal.NewFromInt(rate)
	}
	return si
}

func effectiveVATRate(in domain.SimulationInput) int64 {
	if !in.VATEnabled {
		return 0
	}
	if in.VATRateBps <= 0 {
		return DefaultVATRateBps
	}
	return in.VATRateBps
}

// fullAdverse converts guardrails into the worst-case adverse point.
func fullAdverse(g domain.WorstCaseGuardrails) adverse {
	return adverse{
		priceCutPct:    decFloat(clampPct(g.CompetitorPriceCutPct, MaxCompetitorPriceCutPct)),
		refundRatePct:  decFloat(clampPct(g.MaxRefundRatePct, 100)),
		delayDays:      decFloat(clampPct(g.MaxShippingDelayDays, 365)),
		returnShipping: decimal.NewFromInt(clampCents(g.MaxReturnShippingCostCents)),
		feeIncreaseBps: decimal.NewFromInt(clampBps(g.MaxPlatformFeeIncreaseBps)),
	}
}

// evaluate re-runs the margin formula under adverse conditions without
// intermediate rounding.
func evaluate(in simInput, a adverse) outcome {
	price := in.retail.Mul(decOne.Sub(a.priceCutPct.Div(decHundred)))

	vat := decimal.Zero
	if in.vatRateBps.IsPositive() {
		vat = price.Mul(in.vatRateBps).Div(decBps.Add(in.vatRateBps))
	}
	base := price.Sub(vat)

	feeBps := in.platform.Add(a.feeIncreaseBps).Add(in.affiliate)
	fees := base.Mul(feeBps).Div(decBps)
	refundLoss := base.Mul(a.refundRatePct).Div(decHundred)
	delayCost := price.Mul(a.delayDays).Mul(decimal.NewFromInt(DelayCostPerDayBps)).Div(decBps)

	net := base.
		Sub(fees).
		Sub(refundLoss).
		Sub(delayCost).
		Sub(in.supplier).
		Sub(in.shipping).
		Sub(in.reserve).
		Sub(a.returnShipping)

	return outcome{price: price, net: net}
}

// SimulateWorstCaseMargin stress-tests a price against best, average and
// worst case conditions bounded by the guardrails.
func SimulateWorstCaseMargin(
	retailPriceCents, supplierCostCents, shippingCostCents int64,
	platformFeeBps, affiliateBps, refundReserveCents int64,
	guardrails domain.WorstCaseGuardrails,
) domain.SimulationResult {
	return Simulate(domain.SimulationInput{
		RetailPriceCents:   retailPriceCents,
		SupplierCostCents:  supplierCostCents,
		ShippingCostCents:  shippingCostCents,
		PlatformFeeBps:     platformFeeBps,
		AffiliateBps:       affiliateBps,
		RefundReserveCents: refundReserveCents,
		Guardrails:         guardrails,
	})
}

// Simulate is the struct form of SimulateWorstCaseMargin with optional VAT.
//
// The best case is the plain margin calculation. The average case applies
// half of every guardrail, the worst case all of them at once. Margins are
// clamped so that best >= avg >= worst always holds. A price is approved
// only if the worst case stays strictly profitable.
func Simulate(in domain.SimulationInput) domain.SimulationResult {
	si := normalizeInput(in)
	full := fullAdverse(in.Guardrails)

	bestNet := bestCaseNet(in)
	bestBps := ratioBps(decimal.NewFromInt(bestNet), si.retail)

	avgAdverse := full.scale(decHalf)
	avgOut := evaluate(si, avgAdverse)
	avgBps := minInt64(avgOut.marginBps(), bestBps)

	worstOut := evaluate(si, full)
	worstBps := minInt64(worstOut.marginBps(), avgBps)

	res := domain.SimulationResult{
		BestCaseMarginBps:  bestBps,
		AvgCaseMarginBps:   avgBps,
		WorstCaseMarginBps: worstBps,
		Scenarios: [3]domain.Scenario{
			{
				Name:           domain.ScenarioBest,
				PriceCents:     clampCents(in.RetailPriceCents),
				PlatformFeeBps: clampBps(in.PlatformFeeBps),
				NetProfitCents: bestNet,
				MarginBps:      bestBps,
			},
			scenarioRow(domain.ScenarioAverage, si, avgAdverse, avgOut, avgBps),
			scenarioRow(domain.ScenarioWorst, si, full, worstOut, worstBps),
		},
		IsApproved: worstBps > 0,
	}
	if !res.IsApproved {
		res.RejectionReason = rejectionReason(si, full, bestBps, worstBps)
	}
	return res
}

func bestCaseNet(in domain.SimulationInput) int64 {
	rate := effectiveVATRate(in)
	noReserve := int64(0)
	m := ComputeMargin(domain.MarginInput{
		RetailPriceCents:  in.RetailPriceCents,
		SupplierCostCents: in.SupplierCostCents,
		ShippingCostCents: in.ShippingCostCents,
		VATEnabled:        rate > 0,
		VATRateBps:        &rate,
		PlatformFeeBps:    in.PlatformFeeBps,
		AffiliateBps:      in.AffiliateBps,
		RefundReserveBps:  &noReserve,
	})
	return m.NetProfitCents - clampCents(in.RefundReserveCents)
}

func scenarioRow(name domain.ScenarioName, si simInput, a adverse, out outcome, marginBps int64) domain.Scenario {
	return domain.Scenario{
		Name:                name,
		PriceCents:          out.price.Round(0).IntPart(),
		PlatformFeeBps:      si.platform.Add(a.feeIncreaseBps).Round(0).IntPart(),
		RefundRatePct:       a.refundRatePct.InexactFloat64(),
		ShippingDelayDays:   a.delayDays.InexactFloat64(),
		ReturnShippingCents: a.returnShipping.Round(0).IntPart(),
		NetProfitCents:      out.net.Round(0).IntPart(),
		MarginBps:           marginBps,
	}
}

// rejectionReason names the factors that cost the most when applied alone
// at their full guardrail value.
func rejectionReason(si simInput, full adverse, bestBps, worstBps int64) string {
	if !si.retail.IsPositive() {
		return "retail price is zero"
	}
	if bestBps <= 0 {
		return fmt.Sprintf("unprofitable even in the best case (%d bps): supplier cost, shipping and fees exceed the retail price", bestBps)
	}

	type factor struct {
		label string
		loss  decimal.Decimal
	}
	base := evaluate(si, adverse{}).net
	candidates := []struct {
		label string
		a     adverse
	}{
		{"competitor price cut", adverse{priceCutPct: full.priceCutPct}},
		{"refund rate", adverse{refundRatePct: full.refundRatePct}},
		{"platform fee increase", adverse{feeIncreaseBps: full.feeIncreaseBps}},
		{"return shipping cost", adverse{returnShipping: full.returnShipping}},
		{"shipping delay", adverse{delayDays: full.delayDays}},
	}
	factors := make([]factor, 0, len(candidates))
	for _, c := range candidates {
		loss := base.Sub(evaluate(si, c.a).net)
		if loss.IsPositive() {
			factors = append(factors, factor{label: c.label, loss: loss})
		}
	}
	slices.SortStableFunc(factors, func(a, b factor) int {
		return b.loss.Cmp(a.loss)
	})

	sign := "negative"
	if worstBps == 0 {
		sign = "zero"
	}
	if len(factors) == 0 {
		return fmt.Sprintf("worst-case margin %s (%d bps)", sign, worstBps)
	}
	if len(factors) > 2 {
		factors = factors[:2]
	}
	labels := make([]string, len(factors))
	for i, f := range factors {
		labels[i] = f.label
	}
	return fmt.Sprintf("worst-case margin %s due to %s (worst case %d bps)", sign, strings.Join(labels, " and "), worstBps)
}

// MinPriceForWorstCase returns the smallest retail price, rounded up to a
// 50 cent step, whose worst-case margin is at least minMarginBps.
// It returns 0 when no price can reach the target, e.g. when fees alone
// exceed it.
func MinPriceForWorstCase(
	supplierCostCents, shippingCostCents int64,
	platformFeeBps, affiliateBps, refundReserveCents int64,
	guardrails domain.WorstCaseGuardrails,
	minMarginBps int64,
) int64 {
	price, _ := MinViablePrice(domain.SimulationInput{
		SupplierCostCents:  supplierCostCents,
		ShippingCostCents:  shippingCostCents,
		PlatformFeeBps:     platformFeeBps,
		AffiliateBps:       affiliateBps,
		RefundReserveCents: refundReserveCents,
		Guardrails:         guardrails,
	}, minMarginBps)
	return price
}

// MinViablePrice solves the worst-case margin for price in closed form and
// then confirms the candidate with Simulate, stepping up 50 cents at a time.
// RetailPriceCents of in is ignored.
func MinViablePrice(in domain.SimulationInput, minMarginBps int64) (int64, bool) {
	full := fullAdverse(in.Guardrails)

	in.RetailPriceCents = 0
	si := normalizeInput(in)
	fixed := evaluate(si, full).net.Neg()

	// net(P) = slope*P - fixed, scenario price = keep*P.
	si.retail = decBps
	slope := evaluate(si, full).net.Add(fixed).Div(decBps)
	keep := decOne.Sub(full.priceCutPct.Div(decHundred))

	denom := slope.Sub(decimal.NewFromInt(minMarginBps).Mul(keep).Div(decBps))
	if !denom.IsPositive() {
		return 0, false
	}

	price := int64(priceStepCents)
	if fixed.IsPositive() {
		price = roundUpToStep(fixed.Div(denom).Ceil().IntPart())
	}
	for i := 0; i < maxPriceSearchSteps; i++ {
		in.RetailPriceCents = price
		if Simulate(in).WorstCaseMarginBps >= minMarginBps {
			return price, true
		}
		price += priceStepCents
	}
	return 0, false
}

func roundUpToStep(cents int64) int64 {
	if cents <= priceStepCents {
		return priceStepCents
	}
	return (cents + priceStepCents - 1) / priceStepCents * priceStepCents
}

// MarginSensitivity reports how many basis points of margin each factor
// costs for a fixed perturbation: a 5% refund rate, one day of delay, a 10%
// competitor price cut and a 500 bps platform fee increase.
func MarginSensitivity(retailPriceCents, supplierCostCents, shippingCostCents, platformFeeBps int64) domain.MarginSensitivity {
	si := normalizeInput(domain.SimulationInput{
		RetailPriceCents:  retailPriceCents,
		SupplierCostCents: supplierCostCents,
		ShippingCostCents: shippingCostCents,
		PlatformFeeBps:    platformFeeBps,
	})
	base := evaluate(si, adverse{}).marginBps()
	delta := func(a adverse) int64 {
		return minInt64(evaluate(si, a).marginBps()-base, 0)
	}

	return domain.MarginSensitivity{
		RefundRate5Pct:          delta(adverse{refundRatePct: decimal.NewFromInt(SensitivityRefundRatePct)}),
		ShippingDelayPerDay:     delta(adverse{delayDays: decimal.NewFromInt(SensitivityDelayDays)}),
		CompetitorPrice10PctCut: delta(adverse{priceCutPct: decimal.NewFromInt(SensitivityPriceCutPct)}),
		PlatformFeeIncrease5Pct: delta(adverse{feeIncreaseBps: decimal.NewFromInt(SensitivityFeeIncreaseBps)}),
	}
}
