package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// httpRequestDuration tracks request latency by route pattern
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payroll_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"method", "route", "status"})

	// contributionsComputed counts engine calls by tax, side and outcome
	contributionsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_contributions_computed_total",
		Help: "Contribution computations by tax kind, side and result",
	}, []string{"kind", "side", "result"})

	// payRunEmployees counts employees per pay-run outcome
	payRunEmployees = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_payrun_employees_total",
		Help: "Employees processed by pay runs, by result",
	}, []string{"result"})

	// wageQuoteCache counts wage quote cache lookups
	wageQuoteCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_wage_quote_cache_total",
		Help: "Wage quote cache lookups by result",
	}, []string{"result"})
)

// instrument records request latency under the matched chi route pattern,
// so /api/employees/{id} is one series rather than one per employee.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
