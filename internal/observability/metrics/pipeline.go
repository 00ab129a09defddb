package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/soilnorm/internal/errors"
)

// PipelineMetrics contains Prometheus metrics for normalization runs
type PipelineMetrics struct {
	registry *prometheus.Registry

	recordsTotal       *prometheus.CounterVec
	qcFlagsTotal       *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	jobDurationSeconds *prometheus.HistogramVec
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilnorm_records_total",
			Help: "Total number of records processed",
		},
		[]string{"job", "status"}, // status: written, skipped, write_error
	)

	m.qcFlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilnorm_qc_flags_total",
			Help: "Total number of wavelengths replaced by the QC sentinel",
		},
		[]string{"job", "flag"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soilnorm_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)

	m.jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soilnorm_job_duration_seconds",
			Help:    "Time taken to run a job",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount12), // 100ms to ~7min
		},
		[]string{"job"},
	)
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.recordsTotal.Describe(ch)
	m.qcFlagsTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.jobDurationSeconds.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.recordsTotal.Collect(ch)
	m.qcFlagsTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.jobDurationSeconds.Collect(ch)
}

// RecordRecord counts a record outcome
func (m *PipelineMetrics) RecordRecord(job, status string) {
	m.recordsTotal.WithLabelValues(job, status).Inc()
}

// RecordQC adds flagged wavelengths. Zero counts still create the series.
func (m *PipelineMetrics) RecordQC(job, flag string, n int) {
	m.qcFlagsTotal.WithLabelValues(job, flag).Add(float64(n))
}

// RecordError counts an error by category
func (m *PipelineMetrics) RecordError(category string) {
	m.errorsTotal.WithLabelValues(category).Inc()
}

// ObserveJobDuration records a job duration
func (m *PipelineMetrics) ObserveJobDuration(job string, seconds float64) {
	m.jobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// ErrorHook returns a hook for errors.AddErrorHook that counts every built
// error by category.
func (m *PipelineMetrics) ErrorHook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		m.RecordError(ee.GetCategory())
	}
}
