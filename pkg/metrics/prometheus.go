package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal   *prometheus.CounterVec
	picksTotal  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	progress    *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loserlab_runs_total",
				Help: "Backtest runs by type and final status",
			},
			[]string{"type", "status"},
		),
		picksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loserlab_picks_total",
				Help: "Picks produced or delivered, by stage",
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loserlab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		progress: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loserlab_run_progress_percent",
				Help: "Progress of in-flight runs",
			},
			[]string{"run_id"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loserlab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"operation"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(kind, status string) {
	r.runsTotal.WithLabelValues(kind, status).Inc()
}

// RecordPicks adds n picks for a stage (e.g. "training", "clickhouse").
func (r *Recorder) RecordPicks(stage string, n int) {
	r.picksTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordProgress tracks a run's progress; the series is dropped once the run reaches 100.
func (r *Recorder) RecordProgress(runID string, pct float64) {
	if pct >= 100 {
		r.progress.DeleteLabelValues(runID)
		return
	}
	r.progress.WithLabelValues(runID).Set(pct)
}
