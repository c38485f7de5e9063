// Package httptransport is the thin HTTP layer. Handlers delegate to the
// domain services and own only decoding, encoding, and status mapping.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facepay/internal/platform/middleware"
	"facepay/pkg/domain"
)

// HealthChecker reports readiness of one backing resource.
type HealthChecker func(ctx context.Context) error

// Deps carries everything the router wires.
type Deps struct {
	Registry  RegistryService
	Payments  PaymentService
	Receipts  ReceiptReader
	Admin     AdminService
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	// AdminCap is the capability minted at wiring time; admin endpoints pass
	// it into the capability-gated service operations.
	AdminCap domain.AdminCap
	// AdminAPIKey gates the admin endpoints; when empty they are disabled.
	AdminAPIKey string
	// Health checks run by /healthz, keyed by resource name.
	Health map[string]HealthChecker
}

// NewRouter wires all public endpoints behind the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", handleHealth(deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	registry := &RegistryHandler{service: deps.Registry, logger: deps.Logger}
	payments := &PaymentHandler{service: deps.Payments, receipts: deps.Receipts, logger: deps.Logger}
	admin := &AdminHandler{
		registry: deps.Registry,
		service:  deps.Admin,
		logger:   deps.Logger,
		cap:      deps.AdminCap,
		apiKey:   deps.AdminAPIKey,
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		registry.Register(r)
		payments.Register(r)
	})
	admin.Register(r)

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": out})
	}
}
