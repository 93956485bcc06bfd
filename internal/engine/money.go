// Package engine is the revenue and margin decision engine: pure,
// deterministic calculators over integer cents and basis points.
// Nothing in this package performs I/O or holds mutable state.
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultVATRateBps is the Georgian standard VAT rate (18%).
	DefaultVATRateBps = 1800
	// DefaultRefundReserveBps is held back from every sale for refunds (2%).
	DefaultRefundReserveBps = 200

	bpsScale = 10000
)

var (
	decHundred = decimal.NewFromInt(100)
	decBps     = decimal.NewFromInt(bpsScale)
)

// ToCents converts a currency amount to cents, rounding half away from zero.
// NaN and infinities map to 0.
func ToCents(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return decimal.NewFromFloat(amount).Mul(decHundred).Round(0).IntPart()
}

// FromCents converts cents back to a currency amount.
func FromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// PercentageOf returns round(amountCents * bps / 10000), half away from zero.
func PercentageOf(amountCents, bps int64) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(bps)).
		Div(decBps).
		Round(0).
		IntPart()
}

// ExtractVAT splits a VAT-inclusive price into its VAT and net parts.
// The VAT share is floored so that vat <= price always holds.
// Negative inputs are treated as 0.
func ExtractVAT(priceCents, rateBps int64) (vatCents, netCents int64) {
	priceCents = clampCents(priceCents)
	if priceCents == 0 || rateBps <= 0 {
		return 0, priceCents
	}
	vatCents = priceCents * rateBps / (bpsScale + rateBps)
	return vatCents, priceCents - vatCents
}

func clampCents(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// clampBps tolerates values above 10000 (markups) but not negatives.
func clampBps(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// clampPct normalizes a percentage into [0, limit]. NaN becomes 0.
func clampPct(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// ratioBps returns num/den in basis points, 0 when den is not positive.
func ratioBps(num, den decimal.Decimal) int64 {
	if !den.IsPositive() {
		return 0
	}
	return num.Mul(decBps).Div(den).Round(0).IntPart()
}

// exactPercent returns num/den*100 without rounding, 0 when den is 0.
func exactPercent(num, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).Mul(decHundred).Div(decimal.NewFromInt(den))
}

// percentOf2 returns num/den*100 rounded to 2 decimals, 0 when den is 0.
func percentOf2(num, den int64) float64 {
	return round2(exactPercent(num, den))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func decFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
