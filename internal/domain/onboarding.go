package domain

import "time"

// ============================================================
// Store tax profile & onboarding journal
// ============================================================

// TaxProfile is the store-level tax registration.
type TaxProfile struct {
	StoreID      string `json:"store_id"`
	VATEnabled   bool   `json:"vat_enabled"`
	VATRateBps   int64  `json:"vat_rate_bps"`
	HomeCountry  string `json:"home_country"`
	RegisteredAs string `json:"registered_as,omitempty"`
}

// OnboardingEventType enumerates the journaled pipeline events.
type OnboardingEventType string

const (
	EventOnboardingStarted              OnboardingEventType = "onboarding_started"
	EventTaxStatusDetected              OnboardingEventType = "tax_status_detected"
	EventPricingModeSet                 OnboardingEventType = "pricing_mode_set"
	EventMarginConfigured               OnboardingEventType = "margin_configured"
	EventProductRecommendationGenerated OnboardingEventType = "product_recommendation_generated"
	EventGTMPlanGenerated               OnboardingEventType = "gtm_plan_generated"
	EventOnboardingCompleted            OnboardingEventType = "onboarding_completed"
	EventOnboardingFailed               OnboardingEventType = "onboarding_failed"
)

// OnboardingEvent is one journal entry produced by the listing pipeline.
type OnboardingEvent struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	SellerID  string              `json:"seller_id"`
	Type      OnboardingEventType `json:"event_type"`
	Payload   map[string]any      `json:"payload,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// PricingRecommendation is the persisted outcome of a listing evaluation.
type PricingRecommendation struct {
	ID                 string        `json:"id"`
	RunID              string        `json:"run_id"`
	SellerID           string        `json:"seller_id"`
	ProductID          string        `json:"product_id,omitempty"`
	CurrentPriceCents  int64         `json:"current_price_cents"`
	FinalPriceCents    int64         `json:"final_price_cents"`
	Action             PricingAction `json:"action"`
	WorstCaseMarginBps int64         `json:"worst_case_margin_bps"`
	Approved           bool          `json:"approved"`
	Reason             string        `json:"reason"`
	CreatedAt          time.Time     `json:"created_at"`
}

// ============================================================
// Listing evaluation (simulate → gate → price → re-validate)
// ============================================================

// ListingEvaluationRequest is the input of the seller listing pipeline.
type ListingEvaluationRequest struct {
	SellerID           string                 `json:"-"`
	ProductID          string                 `json:"productId,omitempty"`
	StoreID            string                 `json:"storeId,omitempty"`
	BuyerCountry       string                 `json:"buyerCountry,omitempty"`
	PriceCents         int64                  `json:"priceCents"`
	SupplierCostCents  int64                  `json:"supplierCostCents"`
	ShippingCostCents  int64                  `json:"shippingCostCents"`
	PlatformFeeBps     int64                  `json:"platformFeeBps"`
	AffiliateBps       int64                  `json:"affiliateBps,omitempty"`
	RefundReserveCents int64                  `json:"refundReserveCents,omitempty"`
	Guardrails         WorstCaseGuardrails    `json:"guardrails"`
	Shipping           ShippingProfile        `json:"shipping"`
	Signals            *DynamicPricingContext `json:"signals,omitempty"`
	TargetMarginBps    int64                  `json:"targetMarginBps,omitempty"`
	MinMarginBps       int64                  `json:"minMarginBps,omitempty"`
}

// EvaluationStage names the pipeline stage that produced the verdict.
type EvaluationStage string

const (
	StageMarginGuard  EvaluationStage = "margin_guard"
	StageShippingRisk EvaluationStage = "shipping_risk"
	StagePricing      EvaluationStage = "pricing"
	StageRevalidation EvaluationStage = "revalidation"
)

// ListingEvaluation is the full trace of a listing pipeline run.
type ListingEvaluation struct {
	RunID                      string             `json:"runId"`
	VATApplied                 bool               `json:"vatApplied"`
	Simulation                 SimulationResult   `json:"simulation"`
	ShippingRisk               *ShippingRiskScore `json:"shippingRisk,omitempty"`
	AdjustedWorstCaseMarginBps int64              `json:"adjustedWorstCaseMarginBps"`
	Decision                   *PricingDecision   `json:"decision,omitempty"`
	Revalidation               *SimulationResult  `json:"revalidation,omitempty"`
	FinalPriceCents            int64              `json:"finalPriceCents"`
	SuggestedPriceCents        int64              `json:"suggestedPriceCents,omitempty"`
	Approved                   bool               `json:"approved"`
	Stage                      EvaluationStage    `json:"stage"`
	Reason                     string             `json:"reason"`
}
