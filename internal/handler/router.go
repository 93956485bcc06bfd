package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/margin-guard-bfa-go/internal/domain"
	"github.com/boddenberg/margin-guard-bfa-go/internal/infra/observability"
	"github.com/boddenberg/margin-guard-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options configures the router's collaborators. Pipeline and Verifier may
// be nil, in which case the seller routes answer 503.
type Options struct {
	Decisions   *service.DecisionService
	Pipeline    *service.ListingPipeline
	Verifier    *service.TokenVerifier
	Metrics     *observability.Metrics
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/v1/metrics/engine", engineMetricsHandler(opts.Metrics))

	// --- Decision engine tools ---
	r.Route("/api/tools", func(r chi.Router) {
		d := opts.Decisions

		// Margin & worst case
		r.Post("/margin-calculator", marginCalculatorHandler(d, logger))
		r.Post("/worst-case", worstCaseHandler(d, logger))
		r.Post("/worst-case/batch", worstCaseBatchHandler(d, logger))
		r.Post("/min-price", minPriceHandler(d, logger))
		r.Post("/margin-sensitivity", marginSensitivityHandler(d, logger))

		// Pricing
		r.Post("/dynamic-price", dynamicPriceHandler(d, logger))
		r.Post("/competitive-price", competitivePriceHandler(d, logger))
		r.Post("/conversion-estimate", conversionEstimateHandler(d, logger))

		// Funnel
		r.Post("/funnel", funnelHandler(d, logger))
		r.Post("/revenue-impact", revenueImpactHandler(d, logger))

		// Shipping
		r.Post("/shipping-risk", shippingRiskHandler(d, logger))
		r.Post("/carrier-reliability", carrierReliabilityHandler(d, logger))
		r.Post("/shipping-strategy", shippingStrategyHandler(d, logger))
		r.Get("/carriers", carriersHandler())
	})

	// --- Seller routes (protected) ---
	r.Route("/v1/sellers/me", func(r chi.Router) {
		if opts.Pipeline == nil || opts.Verifier == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "seller pipeline unavailable: JWT_SECRET not configured")
			}))
			return
		}
		r.Use(JWTAuthMiddleware(opts.Verifier, logger))
		r.Post("/listings/evaluate", evaluateListingHandler(opts.Pipeline, logger))
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "marginguard-api", Status: "healthy", LastChecked: now},
		}

		pipelineStatus := "healthy"
		if opts.Pipeline == nil || opts.Verifier == nil {
			pipelineStatus = "degraded"
		}
		services = append(services, domain.ServiceHealth{Name: "listing-pipeline", Status: pipelineStatus, LastChecked: now})

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}
