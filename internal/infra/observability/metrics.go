package observability

import (
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the decision engine service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	simulations     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	journalEvents   *prometheus.CounterVec
	worstCaseMargin prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marginguard_operation_duration_seconds",
				Help:    "Duration of engine and pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		simulations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_simulations_total",
				Help: "Worst-case simulations by verdict.",
			},
			[]string{"verdict"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_pricing_decisions_total",
				Help: "Dynamic pricing decisions by action.",
			},
			[]string{"action"},
		),
		journalEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marginguard_journal_writes_total",
				Help: "Onboarding journal writes by outcome.",
			},
			[]string{"status"},
		),
		worstCaseMargin: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marginguard_worst_case_margin_bps",
				Help:    "Distribution of simulated worst-case margins.",
				Buckets: []float64{-2000, -500, 0, 500, 1000, 1500, 2000, 3000, 5000},
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordSimulation counts a simulation verdict and observes its worst case.
func (m *Metrics) RecordSimulation(res domain.SimulationResult) {
	verdict := "rejected"
	if res.IsApproved {
		verdict = "approved"
	}
	m.simulations.WithLabelValues(verdict).Inc()
	m.worstCaseMargin.Observe(float64(res.WorstCaseMarginBps))
}

// RecordDecision counts a dynamic pricing action.
func (m *Metrics) RecordDecision(action domain.PricingAction) {
	m.decisions.WithLabelValues(string(action)).Inc()
}

// IncrJournal counts a journal write with status "ok" or "error".
func (m *Metrics) IncrJournal(status string) {
	m.journalEvents.WithLabelValues(status).Inc()
}

// GetEngineSnapshot returns a snapshot suitable for GET /v1/metrics/engine.
func (m *Metrics) GetEngineSnapshot() *domain.EngineMetrics {
	approved := getCounterValue(m.simulations, "approved")
	rejected := getCounterValue(m.simulations, "rejected")
	hits := getCounterValue(m.cacheHits, "tax_profile")
	misses := getCounterValue(m.cacheMisses, "tax_profile")

	total := approved + rejected
	approvalRate := float64(0)
	cacheHitRate := float64(0)
	if total > 0 {
		approvalRate = approved / total
	}
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.EngineMetrics{
		TotalSimulations: int64(total),
		Approved:         int64(approved),
		Rejected:         int64(rejected),
		ApprovalRate:     approvalRate,
		JournalErrors:    int64(getCounterValue(m.journalEvents, "error")),
		CacheHitRate:     cacheHitRate,
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
