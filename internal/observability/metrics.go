// Package observability owns the metrics registry of a soilnorm run and
// exports it as a node-exporter textfile.
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipelineMetrics,
	}, nil
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CountErrors registers an error hook so every built error is counted by
// category. Call once per process.
func (m *Metrics) CountErrors() {
	errors.AddErrorHook(m.Pipeline.ErrorHook())
}

// WriteTextfile writes the registry in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	start := time.Now()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(fmt.Errorf("writing metrics textfile: %w", err)).
			Component("observability").
			Category(errors.CategoryOutput).
			FileContext(path).
			Timing("write_textfile", time.Since(start)).
			Build()
	}
	log.Debug("metrics textfile written", logger.String("path", path))
	return nil
}
