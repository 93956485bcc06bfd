package domain

// ============================================================
// Margin & Worst-Case Simulation
// ============================================================

// MarginInput describes a single price/cost/fee configuration.
// VATRateBps and RefundReserveBps are optional; nil selects the defaults
// (1800 bps VAT, 200 bps refund reserve).
type MarginInput struct {
	RetailPriceCents  int64  `json:"retailPriceCents"`
	SupplierCostCents int64  `json:"supplierCostCents"`
	ShippingCostCents int64  `json:"shippingCostCents"`
	VATEnabled        bool   `json:"vatEnabled"`
	VATRateBps        *int64 `json:"vatRateBps,omitempty"`
	PlatformFeeBps    int64  `json:"platformFeeBps"`
	AffiliateBps      int64  `json:"affiliateBps,omitempty"`
	RefundReserveBps  *int64 `json:"refundReserveBps,omitempty"`
}

// MarginResult is the breakdown produced by the margin calculator.
type MarginResult struct {
	VATAmountCents     int64   `json:"vatAmountCents"`
	PlatformFeeCents   int64   `json:"platformFeeCents"`
	AffiliateFeeCents  int64   `json:"affiliateFeeCents"`
	RefundReserveCents int64   `json:"refundReserveCents"`
	NetProfitCents     int64   `json:"netProfitCents"`
	MarginPercent      float64 `json:"marginPercent"`
}

// WorstCaseGuardrails bound the adverse conditions of a simulation.
type WorstCaseGuardrails struct {
	MaxRefundRatePct           float64 `json:"maxRefundRatePct"`
	MaxShippingDelayDays       float64 `json:"maxShippingDelayDays"`
	MaxReturnShippingCostCents int64   `json:"maxReturnShippingCostCents"`
	MaxPlatformFeeIncreaseBps  int64   `json:"maxPlatformFeeIncreaseBps"`
	CompetitorPriceCutPct      float64 `json:"competitorPriceCutPct"`
}

// ScenarioName identifies one of the three fixed simulation scenarios.
type ScenarioName string

const (
	ScenarioBest    ScenarioName = "best"
	ScenarioAverage ScenarioName = "avg"
	ScenarioWorst   ScenarioName = "worst"
)

// Scenario is one row of the best/avg/worst stress table.
type Scenario struct {
	Name                ScenarioName `json:"name"`
	PriceCents          int64        `json:"priceCents"`
	PlatformFeeBps      int64        `json:"platformFeeBps"`
	RefundRatePct       float64      `json:"refundRatePct"`
	ShippingDelayDays   float64      `json:"shippingDelayDays"`
	ReturnShippingCents int64        `json:"returnShippingCents"`
	NetProfitCents      int64        `json:"netProfitCents"`
	MarginBps           int64        `json:"marginBps"`
}

// SimulationInput is the struct form of a worst-case simulation request.
type SimulationInput struct {
	RetailPriceCents   int64               `json:"retailPriceCents"`
	SupplierCostCents  int64               `json:"supplierCostCents"`
	ShippingCostCents  int64               `json:"shippingCostCents"`
	PlatformFeeBps     int64               `json:"platformFeeBps"`
	AffiliateBps       int64               `json:"affiliateBps"`
	RefundReserveCents int64               `json:"refundReserveCents"`
	VATEnabled         bool                `json:"vatEnabled,omitempty"`
	VATRateBps         int64               `json:"vatRateBps,omitempty"`
	Guardrails         WorstCaseGuardrails `json:"guardrails"`
}

// SimulationResult reports the three scenarios and the approval verdict.
// RejectionReason is set iff IsApproved is false.
type SimulationResult struct {
	BestCaseMarginBps  int64       `json:"bestCaseMarginBps"`
	AvgCaseMarginBps   int64       `json:"avgCaseMarginBps"`
	WorstCaseMarginBps int64       `json:"worstCaseMarginBps"`
	Scenarios          [3]Scenario `json:"scenarios"`
	IsApproved         bool        `json:"isApproved"`
	RejectionReason    string      `json:"rejectionReason,omitempty"`
}

// MarginSensitivity holds the marginal bps change (always <= 0) caused by a
// single fixed-size perturbation of each factor.
type MarginSensitivity struct {
	RefundRate5Pct          int64 `json:"refundRate5Pct"`
	ShippingDelayPerDay     int64 `json:"shippingDelayPerDay"`
	CompetitorPrice10PctCut int64 `json:"competitorPrice10PctCut"`
	PlatformFeeIncrease5Pct int64 `json:"platformFeeIncrease5Pct"`
}
