package engine

import (
	"strings"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

// VATApplies reports whether an order owes VAT: the store must be a
// registered VAT payer and the buyer must be in its home jurisdiction.
// An unknown buyer country counts as domestic, which is the lower-margin
// assumption.
func VATApplies(p domain.TaxProfile, buyerCountry string) bool {
	if !p.VATEnabled {
		return false
	}
	buyer := strings.TrimSpace(buyerCountry)
	if buyer == "" || p.HomeCountry == "" {
		return true
	}
	return strings.EqualFold(buyer, strings.TrimSpace(p.HomeCountry))
}

// VATRate returns the profile's rate, or the default when unset.
func VATRate(p domain.TaxProfile) int64 {
	if p.VATRateBps <= 0 {
		return DefaultVATRateBps
	}
	return p.VATRateBps
}
