// Package metrics provides constants used across metric definitions.
package metrics

// Record outcome labels.
const (
	// StatusWritten marks a record whose documents were written.
	StatusWritten = "written"
	// StatusSkipped marks a record dropped during normalization.
	StatusSkipped = "skipped"
	// StatusWriteError marks a record with at least one failed document write.
	StatusWriteError = "write_error"
)

// Histogram bucket constants.
const (
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
