package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/Genius-apple/open-alpha/internal/api/handlers"
	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	log *logger.Logger,
	health *handlers.HealthHandler,
	data *handlers.DataHandler,
	factors *handlers.FactorHandler,
	reports *handlers.ReportHandler,
) http.Handler {
	r := mux.NewRouter()

	// Middleware order: CORS first so error responses carry the headers,
	// metrics outside recovery so recovered panics still count as 500s.
	r.Use(corsMiddleware(cfg.CORSOrigin))
	r.Use(loggingMiddleware(log))
	if cfg.MetricsEnabled {
		r.Use(metricsMiddleware())
	}
	r.Use(recoveryMiddleware(log))

	// Health check
	r.HandleFunc("/health", health.Check).Methods("GET")

	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Data endpoints
	api.HandleFunc("/structure", data.Structure).Methods("GET")
	api.HandleFunc("/data", data.Candles).Methods("GET")

	// Factor evaluation is CPU bound, so a shared limiter caps how fast
	// clients can queue work.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	eval := api.NewRoute().Subrouter()
	eval.Use(rateLimitMiddleware(limiter))
	eval.HandleFunc("/evaluate", factors.Evaluate).Methods("POST")
	eval.HandleFunc("/combine", factors.Combine).Methods("POST")

	// Report endpoints
	api.HandleFunc("/reports", reports.Save).Methods("POST")
	api.HandleFunc("/reports", reports.List).Methods("GET")
	api.HandleFunc("/reports/{id}", reports.Get).Methods("GET")
	api.HandleFunc("/reports/{id}", reports.Delete).Methods("DELETE")
	api.HandleFunc("/rankings", reports.Rankings).Methods("GET")

	// Preflight requests match here so the CORS middleware can answer them.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
