package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thumbgen"

// Prometheus exports pipeline events on its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	handler  http.Handler

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	units       *prometheus.CounterVec
	unitLatency *prometheus.HistogramVec
	uploads     *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

// NewPrometheus registers the pipeline collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()

	p := &Prometheus{
		registry: registry,
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs.",
			},
			[]string{"mode", "status", "failure"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds.",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		units: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_units_total",
				Help:      "Total number of generation units.",
			},
			[]string{"mode", "succeeded"},
		),
		unitLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_unit_duration_seconds",
				Help:      "Duration of generation units in seconds.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"mode"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of upload units after retries.",
			},
			[]string{"path", "succeeded"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_cache_lookups_total",
				Help:      "Total number of prompt cache lookups.",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(p.runs, p.runDuration, p.units, p.unitLatency, p.uploads, p.cache)
	p.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler { return p.handler }

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// RecordRun implements Recorder.
func (p *Prometheus) RecordRun(run RunRecord) {
	p.runs.WithLabelValues(run.Mode, run.Status, run.Failure).Inc()
	p.runDuration.WithLabelValues(run.Mode).Observe(run.Duration.Seconds())
}

// RecordUnit implements Recorder.
func (p *Prometheus) RecordUnit(mode string, succeeded bool, duration time.Duration) {
	p.units.WithLabelValues(mode, strconv.FormatBool(succeeded)).Inc()
	p.unitLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordUpload implements Recorder.
func (p *Prometheus) RecordUpload(path string, succeeded bool) {
	p.uploads.WithLabelValues(path, strconv.FormatBool(succeeded)).Inc()
}

// RecordCacheLookup implements Recorder.
func (p *Prometheus) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}

var _ Recorder = (*Prometheus)(nil)
