package domain

// DemandTrend is the coarse demand signal fed to the pricing engine.
type DemandTrend string

const (
	DemandLow    DemandTrend = "low"
	DemandMedium DemandTrend = "medium"
	DemandHigh   DemandTrend = "high"
)

// PricingAction is the recommendation of the dynamic pricing engine.
type PricingAction string

const (
	ActionIncrease PricingAction = "increase"
	ActionDecrease PricingAction = "decrease"
	ActionMaintain PricingAction = "maintain"
)

// DynamicPricingContext carries the signals used to adjust a price.
// ConversionRate is a percentage (3.5 means 3.5%).
type DynamicPricingContext struct {
	CurrentMarginBps int64       `json:"currentMarginBps"`
	TargetMarginBps  int64       `json:"targetMarginBps"`
	ConversionRate   float64     `json:"conversionRate"`
	InventoryLevel   int64       `json:"inventoryLevel"`
	MaxInventory     int64       `json:"maxInventory"`
	DemandTrend      DemandTrend `json:"demandTrend"`
	Seasonality      float64     `json:"seasonality"`
}

// PricingDecision is the output of the dynamic pricing engine.
type PricingDecision struct {
	RecommendedAction PricingAction `json:"recommendedAction"`
	NewPriceCents     int64         `json:"newPriceCents"`
	Reason            string        `json:"reason"`
	ExpectedMarginBps int64         `json:"expectedMarginBps"`
}
