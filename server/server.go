// Package server exposes the HTTP API: health, status, metrics, the ranking
// read path used by display frontends, and admin room controls. It includes
// permissive CORS for development and injects correlation IDs into request
// contexts for consistent logging.
package server

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/qna-tender/checkin"
	"github.com/onnwee/qna-tender/qna"
	"github.com/onnwee/qna-tender/telemetry"
)

// NewMux returns the HTTP handler with all routes. checkins and db may be
// nil when check-in tracking is disabled.
func NewMux(engine *qna.Service, checkins *checkin.Store, db *sql.DB) http.Handler {
	authCfg := loadAuthConfig()
	corsCfg := loadCORSConfig()

	handlers := NewHandlers(engine, checkins, db)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)
	mux.HandleFunc("/status", handlers.HandleStatus)

	// Room read endpoints (never blocked by the engine's write path)
	mux.HandleFunc("/rooms/", handlers.HandleRoomsDispatcher)

	// Admin endpoints
	mux.HandleFunc("/admin/rooms/", handlers.HandleAdminRoomsDispatcher)

	// Admin endpoints carry basic-auth or token auth
	selectiveHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/") {
			adminAuth(mux, authCfg).ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		if telemetry.IsTracingEnabled() {
			var span trace.Span
			ctx, span = telemetry.StartSpan(ctx, "server", r.Method+" "+r.URL.Path,
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			)
			defer span.End()
		}

		selectiveHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	return withCORSConfig(handler, corsCfg)
}
