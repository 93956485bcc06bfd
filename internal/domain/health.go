package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual collaborator.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LastChecked string `json:"lastChecked"`
}

// EngineMetrics is returned by GET /v1/metrics/engine.
type EngineMetrics struct {
	TotalSimulations int64   `json:"totalSimulations"`
	Approved         int64   `json:"approved"`
	Rejected         int64   `json:"rejected"`
	ApprovalRate     float64 `json:"approvalRate"`
	JournalErrors    int64   `json:"journalErrors"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	Period           string  `json:"period"`
}

// BatchSimulationResponse wraps batch simulation results in input order.
type BatchSimulationResponse struct {
	Results  []SimulationResult `json:"results"`
	Approved int                `json:"approved"`
	Rejected int                `json:"rejected"`
}
