// Package server exposes the HTTP surface: health and readiness probes, a
// status snapshot of the active sessions and ad budget, and Prometheus
// metrics. Correlation ids are injected into every request context for
// consistent logging.
package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shassen14/boneless-couch/ads"
	"github.com/shassen14/boneless-couch/telemetry"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(db *sql.DB, budget *ads.Budget) http.Handler {
	h := &Handlers{db: db, budget: budget}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.HandleFunc("/status", h.HandleStatus)

	return withCorrelation(mux)
}

// withCorrelation reuses the caller's correlation header or generates one,
// stamps it on the response, and opens a tracing span for the request.
func withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("component", "http"))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
