package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler exposes the Prometheus scrape endpoint and a JSON summary
type MetricsHandler struct {
	scrape http.Handler
	stats  func() map[string]interface{}
}

// NewMetricsHandler creates a metrics handler. scrape serves the Prometheus
// exposition format and may be nil when the exporter is disabled.
func NewMetricsHandler(scrape http.Handler, stats func() map[string]interface{}) *MetricsHandler {
	return &MetricsHandler{scrape: scrape, stats: stats}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/summary", h.GetSummary)
	return r
}

// GetMetrics serves the Prometheus scrape output
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.scrape == nil {
		http.Error(w, "metrics exporter disabled", http.StatusNotFound)
		return
	}
	h.scrape.ServeHTTP(w, r)
}

// GetSummary returns cache and connection counters as JSON
func (h *MetricsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{"status": "ok"}
	if h.stats != nil {
		response["metrics"] = h.stats()
	}
	render.JSON(w, r, response)
}
