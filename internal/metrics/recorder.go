// Package metrics exposes Prometheus instrumentation for the conversion
// pipeline. The recorder registers on a private registry so tests and the
// daemon can each own their own.
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder captures pipeline metrics.
type Recorder struct {
	registry *prom.Registry

	conversionDuration *prom.HistogramVec
	notebookOutcomes   *prom.CounterVec
	buildDuration      prom.Histogram
	buildOutcomes      *prom.CounterVec
	inFlight           prom.Gauge
}

// NewRecorder constructs and registers the pipeline metrics.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{registry: reg}

	r.conversionDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "nbpublish",
		Name:      "conversion_duration_seconds",
		Help:      "Duration of single converter invocations by target form",
		Buckets:   prom.DefBuckets,
	}, []string{"target"})
	r.notebookOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "nbpublish",
		Name:      "notebook_outcomes_total",
		Help:      "Per-notebook outcomes (converted, skipped, failed)",
	}, []string{"outcome"})
	r.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "nbpublish",
		Name:      "build_duration_seconds",
		Help:      "Total pipeline run duration",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})
	r.buildOutcomes = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "nbpublish",
		Name:      "build_outcomes_total",
		Help:      "Pipeline run outcomes by final status",
	}, []string{"outcome"})
	r.inFlight = prom.NewGauge(prom.GaugeOpts{
		Namespace: "nbpublish",
		Name:      "conversions_in_flight",
		Help:      "Converter subprocesses currently running",
	})

	reg.MustRegister(r.conversionDuration, r.notebookOutcomes, r.buildDuration, r.buildOutcomes, r.inFlight)
	return r
}

// Registry returns the registry this recorder is bound to.
func (r *Recorder) Registry() *prom.Registry { return r.registry }

// ObserveConversion records one converter invocation. Nil-safe.
func (r *Recorder) ObserveConversion(target string, d time.Duration) {
	if r == nil {
		return
	}
	r.conversionDuration.WithLabelValues(target).Observe(d.Seconds())
}

// CountNotebook records a per-notebook outcome. Nil-safe.
func (r *Recorder) CountNotebook(outcome string) {
	if r == nil {
		return
	}
	r.notebookOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveBuild records a full pipeline run. Nil-safe.
func (r *Recorder) ObserveBuild(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.buildDuration.Observe(d.Seconds())
	r.buildOutcomes.WithLabelValues(outcome).Inc()
}

// ConversionStarted marks a converter subprocess as running. Nil-safe.
func (r *Recorder) ConversionStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// ConversionFinished marks a converter subprocess as done. Nil-safe.
func (r *Recorder) ConversionFinished() {
	if r == nil {
		return
	}
	r.inFlight.Dec()
}
