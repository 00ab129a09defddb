package normalize

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/lookup"
	"github.com/tphakala/soilnorm/internal/naming"
	"github.com/tphakala/soilnorm/internal/record"
)

// SingleMethodInstruments take their instrument identity from the job
// instead of the method table.
var SingleMethodInstruments = []string{
	"digit-soil-sear",
	"slakes",
	"soil-cylinder-drying@105c",
	"microbiometer",
	"single-ring-infiltration",
}

// Tabular normalizes ai4sh-csv lab tables. Every column must be defined in
// the method table; columns with an equipment are indicators.
type Tabular struct {
	c       *Context
	methods *lookup.MethodTable
	parser  naming.NameParser
}

// NewTabular returns a Tabular normalizer. Veltia tables carry the point
// and depth in the sample name, so their site parser is resolved here.
func NewTabular(c *Context, methods *lookup.MethodTable) (*Tabular, error) {
	if methods == nil {
		return nil, errors.Newf("job %s has no method table", c.Job.Name).
			Component("normalize").
			Category(errors.CategoryJobSetup).
			Build()
	}
	t := &Tabular{c: c, methods: methods}
	if c.Job.Procedure == naming.ProcedureVeltia {
		p, err := naming.Lookup(c.Job.PilotSite, naming.ProcedureVeltia)
		if err != nil {
			return nil, err
		}
		t.parser = p
	}
	return t, nil
}

// column is one indicator column of a data file.
type column struct {
	index     int
	header    string
	parameter string
}

// Normalize reads one data file.
func (t *Tabular) Normalize(ctx context.Context, path string) (*Batch, error) {
	table, err := lookup.ReadTable(t.c.Fs, path)
	if err != nil {
		return nil, err
	}
	header := record.CleanHeader(table.Header)

	used := slices.DeleteFunc(slices.Clone(header), func(h string) bool { return h == "" })
	mt, err := t.methods.Distill(used)
	if err != nil {
		t.c.Console.Errorf("%v", err)
		t.c.Console.Errorf("Check the header definition file: %s", t.methods.Source)
		t.c.Console.Errorf("and/or the data file: %s", path)
		return nil, err
	}
	if err := mt.CheckConsistency(); err != nil {
		return nil, err
	}
	if _, err := mt.SingleEquipment(); err != nil {
		return nil, err
	}

	var cols []column
	for i, h := range header {
		if _, ok := mt.Equipment[h]; ok {
			cols = append(cols, column{index: i, header: h, parameter: mt.Parameter[h]})
		}
	}

	b := &Batch{}
	for _, row := range table.Rows {
		if err := cancelled(ctx); err != nil {
			return b, err
		}
		if rec := t.row(b, path, header, row, mt, cols); rec != nil {
			b.Records = append(b.Records, rec)
		}
	}
	return b, nil
}

func (t *Tabular) row(b *Batch, path string, header, row []string, mt *lookup.MethodTable, cols []column) *record.Record {
	f := record.FromRow(header, row)
	f["n_repetitions"] = 1
	for _, k := range []string{"pilot_country", "pilot_site"} {
		if f.Has(k) {
			f[k] = dashed(f.String(k))
		}
	}
	sample := f.String("sample_id")
	if !f.Has("point_id") && sample != "" {
		f["point_id"] = dashed(sample)
	}

	if t.parser != nil {
		in := naming.Input{Path: path, Fields: f.Clone(), Job: t.c.Job}
		if err := parseName(t.parser, in, f); err != nil {
			t.c.skip(b, path, sample, err)
			return nil
		}
	}

	rec := t.c.finish(b, path, sample, f)
	if rec == nil {
		return nil
	}
	rec.Observation = record.Observation{
		Kind:         record.IndicatorMap,
		Equipment:    t.c.Job.Procedure,
		Measurements: t.measurements(row, mt, cols),
	}
	return rec
}

func (t *Tabular) measurements(row []string, mt *lookup.MethodTable, cols []column) []record.Measurement {
	job := t.c.Job
	single := slices.Contains(SingleMethodInstruments, job.Procedure)

	out := make([]record.Measurement, 0, len(cols))
	for _, col := range cols {
		m := record.Measurement{
			Indicator: fmt.Sprintf("%s_%s", job.Procedure, record.Indicator(col.parameter)),
			Method:    mt.Method[col.header],
			Value:     parseValue(row[col.index]),
			Unit:      mt.Unit[col.header],
			Procedure: job.Procedure,
		}
		if single {
			m.AnalysisMethod = job.Procedure
			m.InstrumentBrand = t.jobValue("instrument_brand__name", "")
			m.InstrumentModel = t.jobValue("instrument_model__name", "")
			m.InstrumentID = t.jobValue("instrument_id", "")
		} else {
			method := fmt.Sprintf("%s-%s", mt.Method[col.header], col.parameter)
			m.AnalysisMethod = t.jobValue("analysis_method__name", method)
			m.InstrumentBrand = t.jobValue("instrument_brand__name", method)
			m.InstrumentModel = t.jobValue("instrument_model__name", mt.EquipmentModel[col.header])
			m.InstrumentID = t.jobValue("instrument_id", mt.EquipmentID[col.header])
		}
		out = append(out, m)
	}
	return out
}

// jobValue returns v unless it is a placeholder, in which case the job value
// for field is used. With an empty v the job value is always used.
func (t *Tabular) jobValue(field, v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v != "" && v != lookup.Unknown && v != "null" {
		return v
	}
	if s, ok := t.c.Job.StringValue(field); ok {
		return s
	}
	return v
}

// parseValue reads a lab value, accepting a decimal comma. Anything that is
// not a number is a missing value.
func parseValue(cell string) *float64 {
	s := strings.ReplaceAll(strings.TrimSpace(cell), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
