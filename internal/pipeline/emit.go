package pipeline

import (
	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/observability/metrics"
	"github.com/tphakala/soilnorm/internal/ossl"
	"github.com/tphakala/soilnorm/internal/output"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/schema"
)

// emitter writes the documents of one job's records and feeds the OSSL
// exporter.
type emitter struct {
	r        *Runner
	job      *conf.Job
	js       *JobSummary
	writer   *output.Writer
	exporter *ossl.Exporter
	xopts    schema.XspectreOptions
	// grid is set for tabular spectrometer exports.
	grid *ossl.Grid
}

// emit writes both documents of rec. A failure in one schema does not stop
// the other.
func (e *emitter) emit(rec *record.Record) {
	failed := 0

	if doc, err := schema.AssembleAI4SH(rec); err != nil {
		e.r.console.Errorf("%s schema failed for sample %s: %v", schema.AI4SH, rec.SampleID, err)
		failed++
	} else if _, err := e.writer.WriteJSON(output.TreeAI4SH, rec, doc); err != nil {
		failed++
	}

	if doc, err := schema.AssembleXspectre(rec, e.xopts); err != nil {
		e.r.console.Errorf("%s schema failed for sample %s: %v", schema.Xspectre, rec.SampleID, err)
		failed++
	} else if _, err := e.writer.WriteJSON(output.TreeXspectre, rec, doc); err != nil {
		failed++
	}

	if sp := rec.Observation.Spectrum; sp != nil && sp.QC != nil {
		e.js.QC = e.js.QC.Add(*sp.QC)
	}

	if e.r.settings.Output.OSSL {
		if err := e.ossl(rec); err != nil {
			e.r.console.Errorf("%v", err)
			failed++
		}
	}

	e.js.WriteErrors += failed
	if failed > 0 {
		e.r.metrics.RecordRecord(e.job.Name, metrics.StatusWriteError)
		return
	}
	e.js.RecordsWritten++
	e.r.metrics.RecordRecord(e.job.Name, metrics.StatusWritten)
}

// ossl adds the OSSL row of rec. Device files have no OSSL export.
func (e *emitter) ossl(rec *record.Record) error {
	switch {
	case e.grid != nil && rec.Observation.Spectrum != nil:
		sp := rec.Observation.Spectrum
		return e.exporter.AddSpectrum(rec, sp.Wavelengths, sp.Value, *e.grid)
	case e.job.Format == conf.FormatAI4SHCSV:
		return e.exporter.AddWetlab(rec)
	}
	return nil
}
