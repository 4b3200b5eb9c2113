// Package metrics exposes Prometheus metrics for the bootstrap sequence.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for the bootstrap counter.
const (
	OutcomeAttached = "attached"
	OutcomeFailed   = "failed"
	OutcomeLookup   = "lookup_error"
)

// Recorder owns a private registry so several recorders can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	bootstraps *prometheus.CounterVec
	resolution *prometheus.HistogramVec
	phase      prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		bootstraps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migui_bootstrap_total",
				Help: "Bootstrap runs by outcome",
			},
			[]string{"outcome"},
		),
		resolution: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "migui_resolution_duration_seconds",
				Help:    "Time spent resolving remote object references",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport"},
		),
		phase: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "migui_bootstrap_phase",
				Help: "Current bootstrap phase (0 idle, 1 resolving, 2 attached, 3 failed)",
			},
		),
	}

	r.registry.MustRegister(r.bootstraps, r.resolution, r.phase)
	return r
}

// ObserveOutcome counts one finished bootstrap.
func (r *Recorder) ObserveOutcome(outcome string) {
	r.bootstraps.WithLabelValues(outcome).Inc()
}

// ObserveResolution records how long a resolution over transport took.
func (r *Recorder) ObserveResolution(transport string, elapsed time.Duration) {
	r.resolution.WithLabelValues(transport).Observe(elapsed.Seconds())
}

// SetPhase publishes the current phase.
func (r *Recorder) SetPhase(phase int) {
	r.phase.Set(float64(phase))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	router := chi.NewRouter()

	router.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return router
}
