package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittocore/pkg/api/auth"
	"github.com/marmos91/dittocore/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/dittocore/pkg/api/middleware"
	"github.com/marmos91/dittocore/pkg/lifecycle"
	"github.com/marmos91/dittocore/pkg/metrics"
)

// requestTimeout bounds every route except the signal stream.
const requestTimeout = 30 * time.Second

// signalHeartbeat is the keep-alive interval of the signal stream.
const signalHeartbeat = 15 * time.Second

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Tracing, request logging and metrics
//   - Handle-stage accounting with panic recovery
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (503 while stopping)
//   - GET /api/v1/status - Lifecycle status (any token)
//   - GET /api/v1/log-level - Current log level (any token)
//   - GET /api/v1/signals - Signal stream as server-sent events (any token)
//   - PUT /api/v1/log-level - Change log level (admin)
//   - POST /api/v1/shutdown - Request a terminal stop (admin)
//   - POST /api/v1/reload - Request a restart in place (admin)
//
// httpMetrics may be nil.
func NewRouter(st *lifecycle.State, jwtService *auth.JWTService, httpMetrics *metrics.HTTPMetrics) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Observe(httpMetrics))
	r.Use(apiMiddleware.Accounting(st.Counters()))

	healthHandler := handlers.NewHealthHandler(st)
	lifecycleHandler := handlers.NewLifecycleHandler(st)
	levelHandler := handlers.NewLogLevelHandler(st.Levels())
	signalsHandler := handlers.NewSignalsHandler(st, signalHeartbeat)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiMiddleware.JWTAuth(jwtService))

		// Long-lived; ends by itself once the server is stopping.
		r.Get("/signals", signalsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/status", lifecycleHandler.Status)
			r.Get("/log-level", levelHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin())
				r.Put("/log-level", levelHandler.Put)
				r.Post("/shutdown", lifecycleHandler.Shutdown)
				r.Post("/reload", lifecycleHandler.Reload)
			})
		})
	})

	return r
}
