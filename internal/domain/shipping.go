package domain

// ShippingProfile describes the observed delivery behaviour for a product.
// DelayProbability is a fraction in [0,1]; RefundRatePct is a percentage.
type ShippingProfile struct {
	DeliveryDaysAvg  float64 `json:"deliveryDaysAvg"`
	DelayProbability float64 `json:"delayProbability"`
	RefundRatePct    float64 `json:"refundRatePct"`
	CarrierID        string  `json:"carrierId"`
}

// ShippingRiskScore is the scored shipping profile.
type ShippingRiskScore struct {
	RiskScore                      int64   `json:"riskScore"`
	ConversionImpact               float64 `json:"conversionImpact"`
	RecommendedMarginAdditionalBps int64   `json:"recommendedMarginAdditionalBps"`
}

// ShippingStrategy is the carrier recommendation for a delivery target.
type ShippingStrategy struct {
	RecommendedCarrier         string `json:"recommendedCarrier"`
	EstimatedShippingCostCents int64  `json:"estimatedShippingCostCents"`
	EstimatedRiskScore         int64  `json:"estimatedRiskScore"`
	EstimatedDeliveryDays      int64  `json:"estimatedDeliveryDays"`
	MeetsTarget                bool   `json:"meetsTarget"`
}

// Carrier is a catalog entry used by the shipping strategy optimizer.
type Carrier struct {
	ID           string  `json:"id"`
	DeliveryDays int64   `json:"deliveryDays"`
	BaseCost     int64   `json:"baseCostCents"`
	InsuranceBps int64   `json:"insuranceBps"`
	OnTimeRate   float64 `json:"onTimeRate"`
	DamageRate   float64 `json:"damageRate"`
	LossRate     float64 `json:"lossRate"`
}
