package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/bkramer/bank-ledger-go/internal/infra/observability"
	"github.com/bkramer/bank-ledger-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.LedgerService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public: registration and login
		r.Post("/customers", createCustomerHandler(svc, logger))
		r.Post("/auth/login", loginHandler(authSvc, logger))

		// Ledger counters snapshot
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			r.Get("/customers/{customerId}", getCustomerHandler(svc, logger))
			r.Post("/customers/{customerId}/pin", changePINHandler(svc, logger))
			r.Post("/customers/{customerId}/accounts", openAccountHandler(svc, logger))
			r.Delete("/customers/{customerId}/accounts/{accountId}", closeAccountHandler(svc, logger))

			r.Get("/accounts/{accountId}", getAccountHandler(svc, logger))
			r.Post("/accounts/{accountId}/deposit", depositHandler(svc, logger))
			r.Post("/accounts/{accountId}/withdraw", withdrawHandler(svc, logger))
			r.Get("/accounts/{accountId}/transactions", statementHandler(svc, logger))

			r.Post("/transfers", transferHandler(svc, logger))
		})
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetLedgerSnapshot())
	}
}
