// Package httptransport assembles the HTTP surface: middleware stack,
// versioned API routes and the operational endpoints.
package httptransport

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memberd/internal/platform/metrics"
	"memberd/internal/platform/middleware"
	"memberd/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by every handler that mounts routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs. Handlers are mounted under
// /api/v1 in the order given.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	JWT         middleware.JWTValidator
	Credentials middleware.CredentialVerifier
	Authorizer  middleware.Authorizer
	DB          *sql.DB
	Cache       HealthChecker
	Handlers    []Registrar
}

// NewRouter builds the full router. Authentication runs for every API route
// but anonymous requests pass through; individual handlers decide whether a
// caller is required.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", healthHandler(deps.DB, deps.Cache))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.LatencyMiddleware(deps.Metrics))
		api.Use(middleware.Authenticate(deps.JWT, deps.Credentials, deps.Logger))
		api.Use(middleware.Authorize(deps.Authorizer, deps.Logger))

		for _, h := range deps.Handlers {
			h.Register(api)
		}
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(db *sql.DB, cache HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				resp.Checks["postgres"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["postgres"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Health(ctx); err != nil {
				resp.Checks["redis"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		httputil.WriteJSON(w, status, resp)
	}
}
