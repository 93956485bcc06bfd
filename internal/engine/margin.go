package engine

import (
	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
)

// ComputeMargin computes net profit and margin for one configuration.
//
// Fees (platform, affiliate, refund reserve) are charged on the post-VAT
// retail price since collected VAT belongs to the tax authority.
// Negative monetary inputs are clamped to 0. It never fails; use
// AssertPositiveMargin to reject unprofitable results.
func ComputeMargin(in domain.MarginInput) domain.MarginResult {
	retail := clampCents(in.RetailPriceCents)
	supplier := clampCents(in.SupplierCostCents)
	shipping := clampCents(in.ShippingCostCents)

	var vat int64
	if in.VATEnabled {
		vat, _ = ExtractVAT(retail, vatRateOrDefault(in.VATRateBps))
	}
	feeBase := retail - vat

	platformFee := PercentageOf(feeBase, clampBps(in.PlatformFeeBps))
	affiliateFee := PercentageOf(feeBase, clampBps(in.AffiliateBps))
	reserve := PercentageOf(feeBase, refundReserveOrDefault(in.RefundReserveBps))

	net := retail - vat - supplier - shipping - platformFee - affiliateFee - reserve

	return domain.MarginResult{
		VATAmountCents:     vat,
		PlatformFeeCents:   platformFee,
		AffiliateFeeCents:  affiliateFee,
		RefundReserveCents: reserve,
		NetProfitCents:     net,
		MarginPercent:      percentOf2(net, retail),
	}
}

// AssertPositiveMargin returns *domain.ErrUnprofitable when the result does
// not leave a positive net profit.
func AssertPositiveMargin(res domain.MarginResult) error {
	if res.NetProfitCents <= 0 {
		return &domain.ErrUnprofitable{
			NetProfitCents: res.NetProfitCents,
			MarginPercent:  res.MarginPercent,
		}
	}
	return nil
}

func vatRateOrDefault(rate *int64) int64 {
	if rate == nil {
		return DefaultVATRateBps
	}
	return clampBps(*rate)
}

func refundReserveOrDefault(bps *int64) int64 {
	if bps == nil {
		return DefaultRefundReserveBps
	}
	return clampBps(*bps)
}
