// Package metrics provides Prometheus counters for one pipeline run, written
// in textfile-collector format when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alnah/go-accent-corpus/internal/report"
)

const namespace = "corpus"

// Metrics holds the counters of a run on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	RowsProcessed *prometheus.CounterVec
	RowsSkipped   *prometheus.CounterVec
	StageSeconds  *prometheus.GaugeVec

	// Segment metrics
	Segments     *prometheus.CounterVec
	AudioSeconds *prometheus.CounterVec

	// Resolver metrics
	Paths *prometheus.CounterVec

	// Feature metrics
	Samples prometheus.Gauge
	Groups  prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		RowsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Rows read by a pipeline stage",
		}, []string{"stage"}),
		RowsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows skipped by a pipeline stage",
		}, []string{"stage", "reason"}),
		StageSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of a stage",
		}, []string{"stage"}),
		Segments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Segments planned by the trimmer, by trim log status",
		}, []string{"dataset", "status"}),
		AudioSeconds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_audio_seconds_total",
			Help:      "Seconds of audio written as segments",
		}, []string{"dataset"}),
		Paths: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_total",
			Help:      "Index rows by path resolution outcome",
		}, []string{"outcome"}),
		Samples: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_samples",
			Help:      "Samples in the last feature matrix",
		}),
		Groups: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feature_groups",
			Help:      "Distinct speaker groups in the last feature matrix",
		}),
	}
}

// Registry returns the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveReport adds processed rows and every skip reason of rep.
func (m *Metrics) ObserveReport(rep *report.Report, processed int) {
	stage := rep.Stage()
	m.RowsProcessed.WithLabelValues(stage).Add(float64(processed))
	for _, reason := range rep.Reasons() {
		m.RowsSkipped.WithLabelValues(stage, reason).Add(float64(rep.Count(reason)))
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
