// Package metrics provides Prometheus metrics for soilnorm runs.
package metrics

// Recorder is what the pipeline reports to. PipelineMetrics implements it;
// NoOpRecorder is used when metrics are disabled.
type Recorder interface {
	// RecordRecord counts one record of job with the given outcome status.
	RecordRecord(job, status string)

	// RecordQC adds n flagged wavelengths of a QC flag.
	RecordQC(job, flag string, n int)

	// ObserveJobDuration records how long a job took in seconds.
	ObserveJobDuration(job string, seconds float64)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
type NoOpRecorder struct{}

// RecordRecord does nothing.
func (NoOpRecorder) RecordRecord(job, status string) {}

// RecordQC does nothing.
func (NoOpRecorder) RecordQC(job, flag string, n int) {}

// ObserveJobDuration does nothing.
func (NoOpRecorder) ObserveJobDuration(job string, seconds float64) {}
