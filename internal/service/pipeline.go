package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/engine"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/margin-guard-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const journalTimeout = 5 * time.Second

// MarginDefaults are applied when a request leaves its margins unset.
type MarginDefaults struct {
	TargetBps int64
	MinBps    int64
}

// ListingPipeline runs a seller listing through the decision engine:
// simulate, gate, shipping buffer, price and re-validate. Every run is
// journaled as onboarding events plus one pricing recommendation.
type ListingPipeline struct {
	decisions   *DecisionService
	taxProfiles port.TaxProfileFetcher
	taxCache    port.Cache[*domain.TaxProfile]
	journal     port.EventJournal
	bulkhead    *resilience.Bulkhead
	defaults    MarginDefaults
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewListingPipeline creates the pipeline. taxProfiles may be nil, in which
// case VAT never applies.
func NewListingPipeline(
	decisions *DecisionService,
	taxProfiles port.TaxProfileFetcher,
	taxCache port.Cache[*domain.TaxProfile],
	journal port.EventJournal,
	bulkhead *resilience.Bulkhead,
	defaults MarginDefaults,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ListingPipeline {
	return &ListingPipeline{
		decisions:   decisions,
		taxProfiles: taxProfiles,
		taxCache:    taxCache,
		journal:     journal,
		bulkhead:    bulkhead,
		defaults:    defaults,
		metrics:     metrics,
		logger:      logger,
	}
}

// run accumulates the journal entries of one evaluation.
type run struct {
	id       string
	sellerID string
	events   []domain.OnboardingEvent
}

func (r *run) record(t domain.OnboardingEventType, payload map[string]any) {
	r.events = append(r.events, domain.OnboardingEvent{
		ID:        uuid.NewString(),
		RunID:     r.id,
		SellerID:  r.sellerID,
		Type:      t,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
}

// Evaluate runs the listing pipeline. A rejected listing is a normal result
// with Approved false; errors are reserved for invalid input and
// cancellation. The final price of an approved listing always passes the
// worst-case simulator under the request's guardrails.
func (p *ListingPipeline) Evaluate(ctx context.Context, req domain.ListingEvaluationRequest) (*domain.ListingEvaluation, error) {
	ctx, span := tracer.Start(ctx, "ListingPipeline.Evaluate")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.RecordRequestDuration("EvaluateListing", time.Since(start)) }()

	if err := p.normalize(&req); err != nil {
		return nil, err
	}

	if err := p.bulkhead.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire evaluation slot: %w", err)
	}
	defer p.bulkhead.Release()

	r := &run{id: uuid.NewString(), sellerID: req.SellerID}
	span.SetAttributes(attribute.String("pipeline.run_id", r.id), attribute.String("seller.id", req.SellerID))
	r.record(domain.EventOnboardingStarted, map[string]any{
		"productId":  req.ProductID,
		"priceCents": req.PriceCents,
	})

	vatApplied, vatRate := p.resolveVAT(ctx, req.StoreID, req.BuyerCountry)
	r.record(domain.EventTaxStatusDetected, map[string]any{
		"storeId":    req.StoreID,
		"vatApplied": vatApplied,
		"vatRateBps": vatRate,
	})
	r.record(domain.EventMarginConfigured, map[string]any{
		"targetMarginBps": req.TargetMarginBps,
		"minMarginBps":    req.MinMarginBps,
	})

	simIn := domain.SimulationInput{
		RetailPriceCents:   req.PriceCents,
		SupplierCostCents:  req.SupplierCostCents,
		ShippingCostCents:  req.ShippingCostCents,
		PlatformFeeBps:     req.PlatformFeeBps,
		AffiliateBps:       req.AffiliateBps,
		RefundReserveCents: req.RefundReserveCents,
		VATEnabled:         vatApplied,
		VATRateBps:         vatRate,
		Guardrails:         req.Guardrails,
	}

	eval := p.evaluate(ctx, req, simIn, r)
	eval.RunID = r.id
	eval.VATApplied = vatApplied

	if eval.Approved {
		r.record(domain.EventOnboardingCompleted, map[string]any{
			"finalPriceCents": eval.FinalPriceCents,
			"stage":           eval.Stage,
		})
	} else {
		r.record(domain.EventOnboardingFailed, map[string]any{
			"stage":  eval.Stage,
			"reason": eval.Reason,
		})
		span.SetStatus(codes.Error, "listing rejected")
		p.logger.Info("listing rejected",
			zap.String("run_id", r.id),
			zap.String("seller_id", req.SellerID),
			zap.String("stage", string(eval.Stage)),
			zap.String("reason", eval.Reason),
		)
	}

	p.persist(ctx, r, req, eval)
	return eval, nil
}

func (p *ListingPipeline) normalize(req *domain.ListingEvaluationRequest) error {
	if req.SellerID == "" {
		return &domain.ErrValidation{Field: "sellerId", Message: "seller is required"}
	}
	if req.PriceCents <= 0 {
		return &domain.ErrValidation{Field: "priceCents", Message: "must be greater than zero"}
	}
	if req.SupplierCostCents < 0 || req.ShippingCostCents < 0 {
		return &domain.ErrValidation{Field: "costs", Message: "must not be negative"}
	}
	if req.TargetMarginBps == 0 {
		req.TargetMarginBps = p.defaults.TargetBps
	}
	if req.MinMarginBps == 0 {
		req.MinMarginBps = p.defaults.MinBps
	}
	if req.MinMarginBps > req.TargetMarginBps {
		return &domain.ErrValidation{Field: "minMarginBps", Message: "must not exceed targetMarginBps"}
	}
	return nil
}

func (p *ListingPipeline) evaluate(ctx context.Context, req domain.ListingEvaluationRequest, simIn domain.SimulationInput, r *run) *domain.ListingEvaluation {
	eval := &domain.ListingEvaluation{FinalPriceCents: req.PriceCents}

	// 1. Worst-case gate.
	eval.Simulation = p.decisions.Simulate(ctx, simIn)
	if !eval.Simulation.IsApproved {
		eval.Stage = domain.StageMarginGuard
		eval.Reason = eval.Simulation.RejectionReason
		if price, ok := p.decisions.MinViablePrice(ctx, simIn, max(req.MinMarginBps, 1)); ok {
			eval.SuggestedPriceCents = price
		}
		return eval
	}

	// 2. Shipping risk buffer.
	risk := p.decisions.ShippingRisk(ctx, req.Shipping)
	eval.ShippingRisk = &risk
	eval.AdjustedWorstCaseMarginBps = eval.Simulation.WorstCaseMarginBps - risk.RecommendedMarginAdditionalBps
	if eval.AdjustedWorstCaseMarginBps <= 0 {
		eval.Stage = domain.StageShippingRisk
		eval.Reason = fmt.Sprintf("worst-case margin %d bps does not cover the %d bps shipping risk buffer (risk score %d)",
			eval.Simulation.WorstCaseMarginBps, risk.RecommendedMarginAdditionalBps, risk.RiskScore)
		return eval
	}

	// 3. Dynamic pricing.
	mode := "static"
	var decision domain.PricingDecision
	if req.Signals == nil {
		decision = domain.PricingDecision{
			RecommendedAction: domain.ActionMaintain,
			NewPriceCents:     req.PriceCents,
			Reason:            "No demand signals supplied; maintaining price",
			ExpectedMarginBps: eval.Simulation.BestCaseMarginBps,
		}
	} else {
		mode = "dynamic"
		signals := *req.Signals
		signals.CurrentMarginBps = eval.Simulation.BestCaseMarginBps
		if signals.TargetMarginBps == 0 {
			signals.TargetMarginBps = req.TargetMarginBps
		}
		decision = p.decisions.DynamicPrice(ctx, req.PriceCents, signals, req.MinMarginBps)
	}
	eval.Decision = &decision
	r.record(domain.EventPricingModeSet, map[string]any{
		"mode":          mode,
		"action":        decision.RecommendedAction,
		"newPriceCents": decision.NewPriceCents,
	})

	// 4. Re-validate the recommended price.
	buffer := risk.RecommendedMarginAdditionalBps
	final, reval, ok := p.revalidate(ctx, simIn, eval.Simulation, decision.NewPriceCents, buffer)
	eval.Revalidation = &reval
	eval.AdjustedWorstCaseMarginBps = reval.WorstCaseMarginBps - buffer
	if !ok {
		eval.Stage = domain.StageRevalidation
		eval.Reason = fmt.Sprintf("no price between %d and %d cents keeps the worst case above the %d bps shipping risk buffer: %s",
			decision.NewPriceCents, req.PriceCents, buffer, revalidationFailure(reval))
		return eval
	}

	eval.FinalPriceCents = final
	eval.Approved = true
	eval.Stage = domain.StageRevalidation
	eval.Reason = decision.Reason
	if final != decision.NewPriceCents {
		eval.Reason = fmt.Sprintf("%s; raised to %d cents to stay approved under the worst case", decision.Reason, final)
	}
	r.record(domain.EventProductRecommendationGenerated, map[string]any{
		"productId":          req.ProductID,
		"finalPriceCents":    final,
		"worstCaseMarginBps": reval.WorstCaseMarginBps,
	})
	return eval
}

// revalidate simulates the recommended price, which must keep its worst-case
// margin above the shipping risk buffer. A failing decrease falls back to
// the smallest price above it that clears the buffer, capped at the current
// price, which has already passed both checks.
func (p *ListingPipeline) revalidate(ctx context.Context, simIn domain.SimulationInput, current domain.SimulationResult, price, bufferBps int64) (int64, domain.SimulationResult, bool) {
	if price == simIn.RetailPriceCents {
		return price, current, clearsBuffer(current, bufferBps)
	}

	in := simIn
	in.RetailPriceCents = price
	res := p.decisions.Simulate(ctx, in)
	if clearsBuffer(res, bufferBps) {
		return price, res, true
	}

	candidate := simIn.RetailPriceCents
	if viable, ok := p.decisions.MinViablePrice(ctx, simIn, bufferBps+1); ok && viable <= simIn.RetailPriceCents {
		candidate = max(price, viable)
	}
	in.RetailPriceCents = candidate
	res = p.decisions.Simulate(ctx, in)
	return candidate, res, clearsBuffer(res, bufferBps)
}

func clearsBuffer(res domain.SimulationResult, bufferBps int64) bool {
	return res.IsApproved && res.WorstCaseMarginBps-bufferBps > 0
}

func revalidationFailure(res domain.SimulationResult) string {
	if !res.IsApproved {
		return res.RejectionReason
	}
	return fmt.Sprintf("worst-case margin %d bps", res.WorstCaseMarginBps)
}

// resolveVAT decides whether VAT applies and at which rate. A missing store
// or profile means no VAT; a failed lookup assumes VAT at the default rate.
func (p *ListingPipeline) resolveVAT(ctx context.Context, storeID, buyerCountry string) (bool, int64) {
	if storeID == "" || p.taxProfiles == nil {
		return false, 0
	}

	profile, err := p.taxProfile(ctx, storeID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return false, 0
		}
		p.metrics.IncrExternalError("tax_profile")
		p.logger.Warn("tax profile lookup failed, assuming VAT",
			zap.String("store_id", storeID),
			zap.Error(err),
		)
		return true, engine.DefaultVATRateBps
	}

	if !engine.VATApplies(*profile, buyerCountry) {
		return false, 0
	}
	return true, engine.VATRate(*profile)
}

func (p *ListingPipeline) taxProfile(ctx context.Context, storeID string) (*domain.TaxProfile, error) {
	key := "tax:" + storeID
	if p.taxCache != nil {
		if cached, ok := p.taxCache.Get(key); ok {
			p.metrics.IncrCacheHit("tax_profile")
			return cached, nil
		}
		p.metrics.IncrCacheMiss("tax_profile")
	}

	profile, err := p.taxProfiles.GetTaxProfile(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, &domain.ErrNotFound{Resource: "tax_profile", ID: storeID}
	}
	if p.taxCache != nil {
		p.taxCache.Set(key, profile)
	}
	return profile, nil
}

// persist writes the run to the journal. Failures are logged and counted
// but never change the evaluation.
func (p *ListingPipeline) persist(ctx context.Context, r *run, req domain.ListingEvaluationRequest, eval *domain.ListingEvaluation) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	action := domain.ActionMaintain
	if eval.Decision != nil {
		action = eval.Decision.RecommendedAction
	}
	worst := eval.Simulation.WorstCaseMarginBps
	if eval.Revalidation != nil {
		worst = eval.Revalidation.WorstCaseMarginBps
	}
	rec := &domain.PricingRecommendation{
		ID:                 uuid.NewString(),
		RunID:              r.id,
		SellerID:           r.sellerID,
		ProductID:          req.ProductID,
		CurrentPriceCents:  req.PriceCents,
		FinalPriceCents:    eval.FinalPriceCents,
		Action:             action,
		WorstCaseMarginBps: worst,
		Approved:           eval.Approved,
		Reason:             eval.Reason,
		CreatedAt:          time.Now().UTC(),
	}

	if err := p.journal.Append(ctx, r.events); err != nil {
		p.journalFailed("append events", r.id, err)
		return
	}
	if err := p.journal.SaveRecommendation(ctx, rec); err != nil {
		p.journalFailed("save recommendation", r.id, err)
		return
	}
	p.metrics.IncrJournal("ok")
}

func (p *ListingPipeline) journalFailed(op, runID string, err error) {
	p.metrics.IncrJournal("error")
	p.logger.Warn("journal write failed",
		zap.String("op", op),
		zap.String("run_id", runID),
		zap.Error(err),
	)
}
