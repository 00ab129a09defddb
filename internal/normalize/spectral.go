package normalize

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/lookup"
	"github.com/tphakala/soilnorm/internal/naming"
	"github.com/tphakala/soilnorm/internal/ossl"
	"github.com/tphakala/soilnorm/internal/record"
)

// Instrument describes a tabular spectrometer export.
type Instrument struct {
	// Name keys the sample-name parsers.
	Name string
	// Meta is the number of leading metadata columns; the rest are spectra.
	Meta int
	// Repetitions is the number of scans averaged per row.
	Repetitions int
	// Reflectance converts an exported value to reflectance.
	Reflectance func(float64) float64
	// Grid is the OSSL resampling grid.
	Grid ossl.Grid
	// OSSLPrefix starts the OSSL file names.
	OSSLPrefix string
}

// DS2500 exports absorbance, log(1/R).
var DS2500 = Instrument{
	Name:        naming.ProcedureDS2500,
	Meta:        1,
	Repetitions: 3,
	Reflectance: func(a float64) float64 { return 1 / math.Exp(a) },
	Grid:        ossl.DS2500Grid,
	OSSLPrefix:  "ai4sh",
}

// NeoSpectra exports reflectance in percent, long wavelengths first.
var NeoSpectra = Instrument{
	Name:        naming.ProcedureNeoSpectra,
	Meta:        4,
	Repetitions: 3,
	Reflectance: func(p float64) float64 { return p / 100 },
	Grid:        ossl.NeoSpectraGrid,
	OSSLPrefix:  "ai4sh",
}

// Spectral normalizes ds2500-csv and neospectra-csv exports. Each row is
// one reflectance spectrum.
type Spectral struct {
	c      *Context
	inst   Instrument
	parser naming.NameParser
}

// NewSpectral resolves the sample-name parser of the job's site.
func NewSpectral(c *Context, inst Instrument) (*Spectral, error) {
	p, err := naming.Lookup(c.Job.PilotSite, inst.Name)
	if err != nil {
		return nil, err
	}
	return &Spectral{c: c, inst: inst, parser: p}, nil
}

// Instrument returns the export description.
func (s *Spectral) Instrument() Instrument {
	return s.inst
}

// Normalize reads one export file.
func (s *Spectral) Normalize(ctx context.Context, path string) (*Batch, error) {
	table, err := lookup.ReadTable(s.c.Fs, path)
	if err != nil {
		return nil, err
	}
	wl, err := Wavelengths(table.Header, s.inst.Meta)
	if err != nil {
		return nil, errors.New(err).
			Component("normalize").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	meta := record.CleanHeader(table.Header[:s.inst.Meta])

	b := &Batch{}
	for _, row := range table.Rows {
		if err := cancelled(ctx); err != nil {
			return b, err
		}
		if rec := s.row(b, path, meta, wl, row); rec != nil {
			b.Records = append(b.Records, rec)
		}
	}
	return b, nil
}

func (s *Spectral) row(b *Batch, path string, meta []string, wl []float64, row []string) *record.Record {
	f := record.FromRow(meta, row[:s.inst.Meta])
	f["n_repetitions"] = s.inst.Repetitions
	sample := strings.TrimSpace(row[0])

	values, err := Spectrum(row[s.inst.Meta:], s.inst.Reflectance)
	if err != nil {
		s.c.skip(b, path, sample, errors.New(fmt.Errorf("ERROR converting spectra to float for sample %s: %w", sample, err)).
			Component("normalize").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build())
		return nil
	}
	if len(values) != len(wl) {
		s.c.skip(b, path, sample, errors.Newf("ERROR - sample %s has %d spectral values for %d wavelengths", sample, len(values), len(wl)).
			Component("normalize").
			Category(errors.CategoryValidation).
			FileContext(path).
			Build())
		return nil
	}

	in := naming.Input{Path: path, Fields: f.Clone(), Job: s.c.Job}
	if err := parseName(s.parser, in, f); err != nil {
		s.c.skip(b, path, sample, err)
		return nil
	}

	rec := s.c.finish(b, path, sample, f)
	if rec == nil {
		return nil
	}
	unit := s.c.Finalize.Defaults.String("unit__name")
	if unit == "" {
		unit = "reflectance"
	}
	rec.Observation = record.Observation{
		Kind:      record.SingleAnalyte,
		Equipment: s.c.Job.Procedure,
		Spectrum: &record.Spectrum{
			Wavelengths: wl,
			Value:       values,
			Unit:        unit,
			Indicator:   "reflectance",
		},
	}
	return rec
}

// Wavelengths reads the band centres from the header columns after the
// first meta columns.
func Wavelengths(header []string, meta int) ([]float64, error) {
	if len(header) <= meta {
		return nil, fmt.Errorf("header has %d columns, no spectra after %d metadata columns", len(header), meta)
	}
	wl := make([]float64, 0, len(header)-meta)
	for _, h := range header[meta:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(lookup.NormalizeKey(h)), 64)
		if err != nil {
			return nil, fmt.Errorf("wavelength header %q is not a number", h)
		}
		wl = append(wl, v)
	}
	return wl, nil
}

// Spectrum parses exported cells, accepting a decimal comma, and converts
// them to reflectance.
func Spectrum(cells []string, convert func(float64) float64) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(c), ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %q is not a number", i, c)
		}
		out[i] = convert(v)
	}
	return out, nil
}
