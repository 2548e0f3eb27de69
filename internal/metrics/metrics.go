// Package metrics provides the centralized Prometheus registry for the
// factor platform.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "open_alpha",
		Name:      "evaluations_total",
		Help:      "Total number of factor expression evaluations by status",
	}, []string{"status"})
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "open_alpha",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by status",
	}, []string{"status"})
	ReportsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "open_alpha",
		Name:      "reports_saved_total",
		Help:      "Total number of evaluation reports saved",
	})
	DatasetLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "open_alpha",
		Name:      "dataset_loads_total",
		Help:      "Total number of dataset loads by source (cache or disk)",
	}, []string{"source"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "open_alpha",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
)

// Gauge metrics
var (
	CatalogSymbols = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "open_alpha",
		Name:      "catalog_symbols",
		Help:      "Number of symbols in the dataset catalog",
	})
)

// Histogram metrics
var (
	EvaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "open_alpha",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of factor expression evaluations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "open_alpha",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	FactorScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "open_alpha",
		Name:      "factor_score",
		Help:      "Distribution of composite factor scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "open_alpha",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method and route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(EvaluationsTotal)
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(ReportsSavedTotal)
		registry.MustRegister(DatasetLoadsTotal)
		registry.MustRegister(HTTPRequestsTotal)

		registry.MustRegister(CatalogSymbols)

		registry.MustRegister(EvaluationDuration)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(FactorScore)
		registry.MustRegister(HTTPRequestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordEvaluation records one expression evaluation.
// status should be one of: "success", "error"
func RecordEvaluation(status string, durationSeconds float64) {
	EvaluationsTotal.WithLabelValues(status).Inc()
	EvaluationDuration.Observe(durationSeconds)
}

// RecordBacktest records one backtest run.
// status should be one of: "success", "insufficient_data"
func RecordBacktest(status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordFactorScore records a composite score from a completed run.
func RecordFactorScore(score float64) {
	FactorScore.Observe(score)
}

// RecordReportSaved records a report save event.
func RecordReportSaved() {
	ReportsSavedTotal.Inc()
}

// RecordDatasetLoad records a dataset load event.
// source should be one of: "cache", "disk"
func RecordDatasetLoad(source string) {
	DatasetLoadsTotal.WithLabelValues(source).Inc()
}

// UpdateCatalogSymbols updates the catalog size gauge.
func UpdateCatalogSymbols(count float64) {
	CatalogSymbols.Set(count)
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
