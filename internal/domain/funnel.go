package domain

// FunnelMetrics are raw stage counts. The expected ordering
// impressions >= clicks >= cartAdds >= purchases is not enforced.
type FunnelMetrics struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	CartAdds    int64 `json:"cartAdds"`
	Purchases   int64 `json:"purchases"`
}

// FunnelStage names the stage a bottleneck was found in.
type FunnelStage string

const (
	StageAwareness FunnelStage = "awareness"
	StageInterest  FunnelStage = "interest"
	StageDecision  FunnelStage = "decision"
)

// SuggestionPriority ranks an improvement suggestion.
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

// Suggestion is a single improvement action. ExpectedImpact is the
// estimated relative conversion lift in percent.
type Suggestion struct {
	Type           string             `json:"type"`
	Priority       SuggestionPriority `json:"priority"`
	ExpectedImpact float64            `json:"expectedImpact"`
	Action         string             `json:"action"`
}

// StageRates are the per-stage conversion ratios in percent.
type StageRates struct {
	ClickThroughPct float64 `json:"clickThroughPct"`
	ClickToCartPct  float64 `json:"clickToCartPct"`
	CartToOrderPct  float64 `json:"cartToOrderPct"`
}

// FunnelAnalysis is the funnel diagnosis. Suggestions are ordered highest
// priority first and hold between one and three entries.
type FunnelAnalysis struct {
	ConversionRate float64      `json:"conversionRate"`
	Bottleneck     FunnelStage  `json:"bottleneck"`
	StageRates     StageRates   `json:"stageRates"`
	Suggestions    []Suggestion `json:"suggestions"`
}

// ConversionHealth buckets the overall conversion rate.
type ConversionHealth string

const (
	HealthExcellent ConversionHealth = "excellent"
	HealthGood      ConversionHealth = "good"
	HealthPoor      ConversionHealth = "poor"
)
