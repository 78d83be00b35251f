package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes of spreadsheet transformation jobs.
type PipelineMetrics struct {
	duration      *prometheus.HistogramVec
	success       *prometheus.CounterVec
	failure       *prometheus.CounterVec
	rowsProjected *prometheus.CounterVec
	matchOutcomes *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Duration of spreadsheet pipeline jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_success",
		Help: "Successful pipeline job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_failure",
		Help: "Failed pipeline job executions.",
	}, []string{"job"})
	rowsProjected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_rows_projected",
		Help: "Rows projected into standard schemas.",
	}, []string{"schema"})
	matchOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_product_matches",
		Help: "Product catalog match outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(duration, success, failure, rowsProjected, matchOutcomes)
	return &PipelineMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		rowsProjected: rowsProjected,
		matchOutcomes: matchOutcomes,
	}
}

// ObserveDuration records the duration for the named job.
func (p *PipelineMetrics) ObserveDuration(job string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (p *PipelineMetrics) IncSuccess(job string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (p *PipelineMetrics) IncFailure(job string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddRowsProjected counts rows written into the named standard schema.
func (p *PipelineMetrics) AddRowsProjected(schema string, count int) {
	if p == nil || p.rowsProjected == nil || count <= 0 {
		return
	}
	p.rowsProjected.WithLabelValues(normalizeLabel(schema)).Add(float64(count))
}

// IncMatchOutcome counts one catalog match attempt by outcome
// (exact, containment, token, miss).
func (p *PipelineMetrics) IncMatchOutcome(outcome string) {
	if p == nil || p.matchOutcomes == nil {
		return
	}
	p.matchOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddMatchOutcomes counts a batch of match attempts sharing one outcome.
func (p *PipelineMetrics) AddMatchOutcomes(outcome string, count int) {
	if p == nil || p.matchOutcomes == nil || count <= 0 {
		return
	}
	p.matchOutcomes.WithLabelValues(normalizeLabel(outcome)).Add(float64(count))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
