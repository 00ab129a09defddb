package ossl

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/output"
	"github.com/tphakala/soilnorm/internal/record"
)

// Fixed identity values.
const (
	License           = "only for use by AI4SH"
	DOI               = "not_yet_published"
	InstrumentSetting = "not recorded"
)

// Wet-lab rows are filed under this model with an unknown instrument id.
const (
	WetlabModel = "wetlab"
	WetlabID    = "unknown"
)

// IdentityColumns lead every OSSL row.
var IdentityColumns = []string{
	"pilot_site",
	"point_id",
	"depth",
	"sample_id",
	"sample_preparation__name",
	"subsample",
	"replicate",
	"instrument_model__name",
	"instrument_id",
	"instrument_setting",
	"sample_analysis_date",
	"license",
	"doi",
	"user_analysis__email",
}

type groupKey struct {
	site, model, invprep, date string
}

type group struct {
	key     groupKey
	columns []string
	seen    map[string]bool
	rows    []row
}

type row struct {
	identity []string
	values   map[string]string
}

// Exporter collects rows for one job and writes one CSV per site, model,
// preparation and analysis date.
type Exporter struct {
	fs     afero.Fs
	layout *output.Layout
	groups []*group
	index  map[groupKey]*group
}

// NewExporter returns an Exporter writing into the OSSL tree of layout.
func NewExporter(fs afero.Fs, layout *output.Layout) *Exporter {
	return &Exporter{fs: fs, layout: layout, index: make(map[groupKey]*group)}
}

// Rows returns the number of rows waiting to be flushed.
func (e *Exporter) Rows() int {
	n := 0
	for _, g := range e.groups {
		n += len(g.rows)
	}
	return n
}

// AddSpectrum resamples a spectrum onto grid and adds it as a row.
func (e *Exporter) AddSpectrum(rec *record.Record, wl, values []float64, grid Grid) error {
	resampled, err := grid.Resample(wl, values)
	if err != nil {
		return errors.New(fmt.Errorf("spectra interpolation failed for sample_id %s: %w", rec.SampleID, err)).
			Component("ossl").
			Category(errors.CategoryComputation).
			RecordContext(rec.PilotSite, rec.SampleID).
			Build()
	}
	model, id := rec.Instrument()
	g, err := e.group(rec, model)
	if err != nil {
		return err
	}
	cols := grid.Columns()
	vals := make(map[string]string, len(cols))
	for i, c := range cols {
		vals[c] = formatFloat(resampled[i])
	}
	g.add(identity(rec, model, id), cols, vals)
	return nil
}

// AddWetlab adds the indicator values of a tabular record as a row.
func (e *Exporter) AddWetlab(rec *record.Record) error {
	if rec.Observation.Kind != record.IndicatorMap {
		return errors.Newf("sample %s has no indicator values", rec.SampleID).
			Component("ossl").
			Category(errors.CategoryValidation).
			Build()
	}
	g, err := e.group(rec, WetlabModel)
	if err != nil {
		return err
	}
	cols := make([]string, 0, len(rec.Observation.Measurements))
	vals := make(map[string]string, len(cols))
	for _, m := range rec.Observation.Measurements {
		cols = append(cols, m.Indicator)
		if m.Value != nil {
			vals[m.Indicator] = formatFloat(*m.Value)
		}
	}
	g.add(identity(rec, WetlabModel, WetlabID), cols, vals)
	return nil
}

func (e *Exporter) group(rec *record.Record, model string) (*group, error) {
	invprep, ok := record.InversePrepCode(rec.SamplePreparation)
	if !ok {
		return nil, errors.Newf("no preparation code for %q", rec.SamplePreparation).
			Component("ossl").
			Category(errors.CategoryValidation).
			Build()
	}
	k := groupKey{site: rec.SiteID, model: strings.ReplaceAll(model, "_", "-"), invprep: invprep, date: rec.AnalysisDate}
	g, ok := e.index[k]
	if !ok {
		g = &group{key: k, seen: make(map[string]bool)}
		e.index[k] = g
		e.groups = append(e.groups, g)
	}
	return g, nil
}

func (g *group) add(ident, cols []string, vals map[string]string) {
	for _, c := range cols {
		if !g.seen[c] {
			g.seen[c] = true
			g.columns = append(g.columns, c)
		}
	}
	g.rows = append(g.rows, row{identity: ident, values: vals})
}

func identity(rec *record.Record, model, id string) []string {
	return []string{
		rec.PilotSite,
		rec.PointID,
		fmt.Sprintf("%d-%d", rec.MinDepth, rec.MaxDepth),
		rec.SampleID,
		rec.SamplePreparation,
		rec.Subsample,
		strconv.Itoa(rec.Replicate),
		model,
		id,
		InstrumentSetting,
		rec.AnalysisDate,
		License,
		DOI,
		rec.AnalysisEmail,
	}
}

// Flush writes every group to {prefix}_{site_id}_{model}_{invprep}_{date}.csv
// and clears the exporter. It returns the written paths.
func (e *Exporter) Flush(prefix string) ([]string, error) {
	if len(e.groups) == 0 {
		return nil, nil
	}
	dir, err := e.layout.Ensure(output.TreeOSSL)
	if err != nil {
		return nil, err
	}

	var paths []string
	var errs []error
	for _, g := range e.groups {
		name := fmt.Sprintf("%s_%s_%s_%s_%s.csv", prefix, g.key.site, g.key.model, g.key.invprep, g.key.date)
		path := filepath.Join(dir, name)
		if err := e.write(path, g); err != nil {
			errs = append(errs, errors.New(fmt.Errorf("write OSSL file: %w", err)).
				Component("ossl").
				Category(errors.CategoryOutput).
				FileContext(path).
				Build())
			continue
		}
		paths = append(paths, path)
	}
	e.groups = nil
	e.index = make(map[groupKey]*group)
	return paths, errors.Join(errs...)
}

func (e *Exporter) write(path string, g *group) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(IdentityColumns)+len(g.columns))
	header = append(header, IdentityColumns...)
	header = append(header, g.columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range g.rows {
		line := make([]string, 0, len(header))
		line = append(line, r.identity...)
		for _, c := range g.columns {
			line = append(line, r.values[c])
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return afero.WriteFile(e.fs, path, buf.Bytes(), 0o644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
