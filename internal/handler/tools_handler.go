package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"go.uber.org/zap"
)

// toolHandler decodes a JSON body into Req, runs fn and writes its result.
func toolHandler[Req, Resp any](route string, logger *zap.Logger, fn func(ctx context.Context, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/tools/"+route)
		defer span.End()

		var req Req
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := fn(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Margin & worst case
// ============================================================

type marginRequest struct {
	domain.MarginInput
	RequireProfit bool `json:"requireProfit,omitempty"`
}

func marginCalculatorHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("margin-calculator", logger, func(ctx context.Context, req marginRequest) (domain.MarginResult, error) {
		return d.ComputeMargin(ctx, req.MarginInput, req.RequireProfit)
	})
}

func worstCaseHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("worst-case", logger, func(ctx context.Context, req domain.SimulationInput) (domain.SimulationResult, error) {
		return d.Simulate(ctx, req), nil
	})
}

type batchRequest struct {
	Items []domain.SimulationInput `json:"items"`
}

func worstCaseBatchHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("worst-case/batch", logger, func(ctx context.Context, req batchRequest) (*domain.BatchSimulationResponse, error) {
		return d.SimulateBatch(ctx, req.Items)
	})
}

type minPriceRequest struct {
	domain.SimulationInput
	MinMarginBps int64 `json:"minMarginBps"`
}

type minPriceResponse struct {
	MinPriceCents int64 `json:"minPriceCents"`
	Reachable     bool  `json:"reachable"`
}

func minPriceHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("min-price", logger, func(ctx context.Context, req minPriceRequest) (minPriceResponse, error) {
		if req.MinMarginBps < 0 || req.MinMarginBps >= 10000 {
			return minPriceResponse{}, &domain.ErrValidation{Field: "minMarginBps", Message: "must be in [0, 10000)"}
		}
		price, ok := d.MinViablePrice(ctx, req.SimulationInput, req.MinMarginBps)
		return minPriceResponse{MinPriceCents: price, Reachable: ok}, nil
	})
}

type sensitivityRequest struct {
	RetailPriceCents  int64 `json:"retailPriceCents"`
	SupplierCostCents int64 `json:"supplierCostCents"`
	ShippingCostCents int64 `json:"shippingCostCents"`
	PlatformFeeBps    int64 `json:"platformFeeBps"`
}

func marginSensitivityHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("margin-sensitivity", logger, func(ctx context.Context, req sensitivityRequest) (domain.MarginSensitivity, error) {
		return d.Sensitivity(ctx, req.RetailPriceCents, req.SupplierCostCents, req.ShippingCostCents, req.PlatformFeeBps), nil
	})
}

// ============================================================
// Pricing
// ============================================================

type dynamicPriceRequest struct {
	CurrentPriceCents int64                        `json:"currentPriceCents"`
	Context           domain.DynamicPricingContext `json:"context"`
	MinMarginBps      int64                        `json:"minMarginBps"`
}

func dynamicPriceHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("dynamic-price", logger, func(ctx context.Context, req dynamicPriceRequest) (domain.PricingDecision, error) {
		return d.DynamicPrice(ctx, req.CurrentPriceCents, req.Context, req.MinMarginBps), nil
	})
}

type competitivePriceRequest struct {
	CurrentPriceCents    int64 `json:"currentPriceCents"`
	CompetitorPriceCents int64 `json:"competitorPriceCents"`
	MinMarginBps         int64 `json:"minMarginBps"`
	UnitCostCents        int64 `json:"unitCostCents"`
}

type priceResponse struct {
	PriceCents int64 `json:"priceCents"`
}

func competitivePriceHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("competitive-price", logger, func(ctx context.Context, req competitivePriceRequest) (priceResponse, error) {
		price := d.CompetitivePrice(ctx, req.CurrentPriceCents, req.CompetitorPriceCents, req.MinMarginBps, req.UnitCostCents)
		return priceResponse{PriceCents: price}, nil
	})
}

type conversionRequest struct {
	ConversionRate float64 `json:"conversionRate"`
	PriceChangePct float64 `json:"priceChangePct"`
}

type conversionResponse struct {
	ConversionRate float64 `json:"conversionRate"`
}

func conversionEstimateHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("conversion-estimate", logger, func(ctx context.Context, req conversionRequest) (conversionResponse, error) {
		return conversionResponse{ConversionRate: d.EstimateConversion(ctx, req.ConversionRate, req.PriceChangePct)}, nil
	})
}

// ============================================================
// Funnel
// ============================================================

type funnelResponse struct {
	domain.FunnelAnalysis
	Health domain.ConversionHealth `json:"health"`
}

func funnelHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("funnel", logger, func(ctx context.Context, req domain.FunnelMetrics) (funnelResponse, error) {
		analysis, health := d.AnalyzeFunnel(ctx, req)
		return funnelResponse{FunnelAnalysis: analysis, Health: health}, nil
	})
}

type revenueImpactRequest struct {
	BaseRevenueCents int64                `json:"baseRevenueCents"`
	Metrics          domain.FunnelMetrics `json:"metrics"`
	Suggestion       domain.Suggestion    `json:"suggestion"`
}

type revenueImpactResponse struct {
	ProjectedRevenueCents int64 `json:"projectedRevenueCents"`
}

func revenueImpactHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("revenue-impact", logger, func(ctx context.Context, req revenueImpactRequest) (revenueImpactResponse, error) {
		return revenueImpactResponse{
			ProjectedRevenueCents: d.RevenueImpact(ctx, req.BaseRevenueCents, req.Metrics, req.Suggestion),
		}, nil
	})
}

// ============================================================
// Shipping
// ============================================================

func shippingRiskHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("shipping-risk", logger, func(ctx context.Context, req domain.ShippingProfile) (domain.ShippingRiskScore, error) {
		return d.ShippingRisk(ctx, req), nil
	})
}

type reliabilityRequest struct {
	OnTimeRate float64 `json:"onTimeRate"`
	DamageRate float64 `json:"damageRate"`
	LossRate   float64 `json:"lossRate"`
}

type reliabilityResponse struct {
	Score float64 `json:"score"`
}

func carrierReliabilityHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("carrier-reliability", logger, func(ctx context.Context, req reliabilityRequest) (reliabilityResponse, error) {
		return reliabilityResponse{Score: d.CarrierReliability(ctx, req.OnTimeRate, req.DamageRate, req.LossRate)}, nil
	})
}

type shippingStrategyRequest struct {
	CarrierID          string `json:"carrierId"`
	ProductValueCents  int64  `json:"productValueCents"`
	TargetDeliveryDays int64  `json:"targetDeliveryDays"`
}

func shippingStrategyHandler(d *service.DecisionService, logger *zap.Logger) http.HandlerFunc {
	return toolHandler("shipping-strategy", logger, func(ctx context.Context, req shippingStrategyRequest) (domain.ShippingStrategy, error) {
		return d.ShippingStrategy(ctx, req.CarrierID, req.ProductValueCents, req.TargetDeliveryDays), nil
	})
}

func carriersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.Carriers())
	}
}
