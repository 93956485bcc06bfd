package handler

import (
	"net/http"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Seller listing evaluation: POST /v1/sellers/me/listings/evaluate
// ============================================================

func evaluateListingHandler(pipeline *service.ListingPipeline, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sellers/me/listings/evaluate")
		defer span.End()

		sellerID := SellerIDFromContext(ctx)
		if sellerID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		span.SetAttributes(attribute.String("seller.id", sellerID))

		var req domain.ListingEvaluationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.SellerID = sellerID

		eval, err := pipeline.Evaluate(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, eval)
	}
}
