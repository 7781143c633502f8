// Package metrics exposes memoir's Prometheus collectors.
//
// Every collector lives on a Recorder's own registry so tests and multiple
// servers in one process never collide. All methods are safe on a nil
// *Recorder, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memoir"

// Extraction outcomes.
const (
	ExtractionOK       = "ok"
	ExtractionDegraded = "degraded"
	ExtractionError    = "error"
)

// Organizer actions.
const (
	ActionMerged     = "merged"
	ActionConflict   = "conflict_resolved"
	ActionFormatted  = "formatted"
	ActionCompressed = "compressed"
)

type Recorder struct {
	registry *prometheus.Registry

	extractions        *prometheus.CounterVec
	candidatesSaved    *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	organizeRuns       *prometheus.CounterVec
	organizeChanges    *prometheus.CounterVec
	organizeDuration   prometheus.Histogram
	jobsDropped        prometheus.Counter
	jobsInFlight       prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Extraction runs by outcome",
		}, []string{"result"}),
		candidatesSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_saved_total",
			Help:      "Extracted records persisted, by category",
		}, []string{"category"}),
		generationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Structured generation failures by kind",
		}, []string{"kind"}),
		organizeRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "organize_runs_total",
			Help:      "Organization runs by outcome",
		}, []string{"result"}),
		organizeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "organize_changes_total",
			Help:      "Records changed by the organizer, by category and action",
		}, []string{"category", "action"}),
		organizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "organize_duration_seconds",
			Help:      "Wall time of organization runs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		jobsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_jobs_dropped_total",
			Help:      "Extraction jobs dropped because the queue was full",
		}),
		jobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extraction_jobs_in_flight",
			Help:      "Extraction jobs queued or running",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Extraction(result string) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(result).Inc()
}

func (r *Recorder) Saved(category string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.candidatesSaved.WithLabelValues(category).Add(float64(n))
}

func (r *Recorder) GenerationFailure(kind string) {
	if r == nil {
		return
	}
	r.generationFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) OrganizeRun(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.organizeRuns.WithLabelValues(result).Inc()
	r.organizeDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) OrganizeChange(category, action string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.organizeChanges.WithLabelValues(category, action).Add(float64(n))
}

func (r *Recorder) JobDropped() {
	if r == nil {
		return
	}
	r.jobsDropped.Inc()
}

func (r *Recorder) SetInFlight(n int64) {
	if r == nil {
		return
	}
	r.jobsInFlight.Set(float64(n))
}
