package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/keyserver/internal/api/middleware"
	"github.com/kiranshivaraju/keyserver/internal/api/response"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler  http.HandlerFunc
	VerifyHandler  http.HandlerFunc
	AddHandler     http.HandlerFunc
	TableHandler   http.HandlerFunc
	RemoveHandler  http.HandlerFunc
	BuyLinkHandler http.HandlerFunc

	// MetricsHandler defaults to the Prometheus default registry.
	MetricsHandler http.Handler
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)

	// Unknown paths and wrong methods look the same to callers.
	r.NotFound(invalidEndpoint)
	r.MethodNotAllowed(invalidEndpoint)

	r.Post("/api/verify", orNotImplemented(deps.VerifyHandler))
	r.Post("/api/add", orNotImplemented(deps.AddHandler))
	r.Post("/api/table", orNotImplemented(deps.TableHandler))
	r.Delete("/api/delete", orNotImplemented(deps.RemoveHandler))
	r.Get("/where-buy", orNotImplemented(deps.BuyLinkHandler))

	r.Get("/healthz", orNotImplemented(deps.HealthHandler))

	metrics := deps.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	return r
}

func invalidEndpoint(w http.ResponseWriter, _ *http.Request) {
	response.Error(w, http.StatusNotFound, "Invalid endpoint")
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "Endpoint not implemented")
	}
}
