// Package metrics provides Prometheus metrics for the dev server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the kidreel core.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	playbackErrorsTotal prometheus.Counter
	retriesTotal        prometheus.Counter
	upgradePromptsTotal prometheus.Counter
	selectedVideos      prometheus.Gauge
}

// New creates and registers Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kidreel_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kidreel_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	playbackErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kidreel_playback_errors_total",
		Help: "Total number of per-video playback failures",
	})
	retriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kidreel_playback_retries_total",
		Help: "Total number of playback retry attempts",
	})
	upgradePromptsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kidreel_upgrade_prompts_total",
		Help: "Total number of selections denied by the free-tier gate",
	})
	selectedVideos := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kidreel_selected_videos",
		Help: "Number of currently selected videos",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		playbackErrorsTotal,
		retriesTotal,
		upgradePromptsTotal,
		selectedVideos,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		playbackErrorsTotal: playbackErrorsTotal,
		retriesTotal:        retriesTotal,
		upgradePromptsTotal: upgradePromptsTotal,
		selectedVideos:      selectedVideos,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

// IncPlaybackErrors increments the playback failure counter.
func (m *Metrics) IncPlaybackErrors() { m.playbackErrorsTotal.Inc() }

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() { m.retriesTotal.Inc() }

// IncUpgradePrompts increments the denied-selection counter.
func (m *Metrics) IncUpgradePrompts() { m.upgradePromptsTotal.Inc() }

// SetSelectedVideos sets the selected-videos gauge.
func (m *Metrics) SetSelectedVideos(n int) { m.selectedVideos.Set(float64(n)) }

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestMiddleware returns chi-compatible middleware that records
// request and error counts. m may be nil to disable recording.
func RequestMiddleware(m *Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrap, r)
			m.IncRequests()
			if wrap.status >= 400 {
				m.IncErrors()
			}
		})
	}
}
