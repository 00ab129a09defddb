package normalize

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tphakala/soilnorm/internal/device"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/lookup"
	"github.com/tphakala/soilnorm/internal/naming"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

// SpectraAnalysisMethod is recorded for device spectra.
const SpectraAnalysisMethod = "diffuse reflectance spectroscopy"

// ISEpHSoilModel is the ise-ph probe measuring directly in soil. Its pH
// indicator is renamed from water to soil.
const ISEpHSoilModel = "ise-ph-soil"

// ReflectanceOptions selects the white reference strategy and tunes the
// computation.
type ReflectanceOptions struct {
	Strategy string
	Compute  reflectance.Options
}

// Dependencies are the job level lookups a normalizer may need.
type Dependencies struct {
	Methods     *lookup.MethodTable
	References  *reflectance.ReferencePool
	Reflectance ReflectanceOptions
}

// fixedDeviceFields always replace job values for device records.
var fixedDeviceFields = map[string]bool{
	"sample_preservation__name": true,
	"sample_transport__name":    true,
	"sample_storage__name":      true,
	"transport_duration_h":      true,
	"replicate":                 true,
	"subsample":                 true,
}

// Device normalizes xspectre-json device files, one record per file.
type Device struct {
	c      *Context
	parser naming.NameParser
	pool   *reflectance.ReferencePool
	opts   ReflectanceOptions
}

// NewDevice resolves the file name parser of the job's site and procedure.
// Spectral jobs need a white reference pool.
func NewDevice(c *Context, pool *reflectance.ReferencePool, opts ReflectanceOptions) (*Device, error) {
	p, err := naming.Lookup(c.Job.PilotSite, c.Job.Procedure)
	if err != nil {
		return nil, err
	}
	if c.Job.Spectral() && (pool == nil || pool.Len() == 0) {
		return nil, errors.Newf("ERROR - no white reference files found for job %s in %s", c.Job.Name, c.Job.DataSrc).
			Component("normalize").
			Category(errors.CategoryJobSetup).
			Build()
	}
	if opts.Strategy == "" {
		opts.Strategy = reflectance.StrategyOverall
	}
	return &Device{c: c, parser: p, pool: pool, opts: opts}, nil
}

// LoadReferencePool reads the white reference scans at paths. A reference
// that cannot be read invalidates the job.
func LoadReferencePool(c *Context, paths []string) (*reflectance.ReferencePool, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	scans := make([]reflectance.Scan, 0, len(paths))
	for _, p := range paths {
		f, err := device.Read(c.Fs, p)
		if err != nil {
			return nil, errors.SetupError(err, "normalize")
		}
		scan, err := f.Scan()
		if err != nil {
			return nil, errors.SetupError(err, "normalize")
		}
		scans = append(scans, scan)
	}
	pool, err := reflectance.NewReferencePool(scans)
	if err != nil {
		return nil, errors.SetupError(err, "normalize")
	}
	return pool, nil
}

// Normalize reads one device file. White reference files yield nothing.
func (d *Device) Normalize(ctx context.Context, path string) (*Batch, error) {
	b := &Batch{}
	if device.IsWhiteReference(path) {
		return b, nil
	}
	if err := cancelled(ctx); err != nil {
		return b, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	dev, err := device.Read(d.c.Fs, path)
	if err != nil {
		d.c.skip(b, path, name, err)
		return b, nil
	}

	f := d.fields(dev)
	in := naming.Input{Path: path, Fields: f.Clone(), Job: d.c.Job}
	if err := parseName(d.parser, in, f); err != nil {
		d.c.skip(b, path, name, err)
		return b, nil
	}

	rec := d.c.finish(b, path, name, f)
	if rec == nil {
		return b, nil
	}
	if err := d.observe(rec, dev); err != nil {
		d.c.skip(b, path, rec.SampleID, err)
		return b, nil
	}
	b.Records = append(b.Records, rec)
	return b, nil
}

// fields merges job values, values read from the device and the fixed
// device defaults, in that order of precedence except that fixed defaults
// always win.
func (d *Device) fields(dev *device.File) record.Fields {
	f := make(record.Fields, len(record.CompulsoryFields)+8)
	for _, k := range record.CompulsoryFields {
		if v, ok := d.c.Job.Value(k); ok {
			f[k] = v
		}
	}
	for k, v := range dev.Compulsory() {
		if fixedDeviceFields[k] || !f.Present(k) {
			f[k] = v
		}
	}

	f["n_repetitions"] = dev.NRepetitions()
	f.SetDefault("instrument_id", dev.Serial())
	f.SetDefault("instrument_model__name", dev.Equipment())
	if code := dev.MuzzleCode(); code != "" {
		f["muzzle_code"] = code
	}
	if ff := dev.Formfactor(); ff != "" {
		f["muzzle_formfactor"] = ff
	}
	if d.c.Job.Spectral() {
		f.SetDefault("analysis_method__name", SpectraAnalysisMethod)
	}
	return f
}

func (d *Device) observe(rec *record.Record, dev *device.File) error {
	if d.c.Job.Spectral() {
		if !dev.HasSpectrum() {
			return d.invalid(dev, "ERROR - no spectrum in device file")
		}
		return d.spectrum(rec, dev)
	}

	sensing, err := dev.Sensing()
	if err != nil {
		return err
	}
	if len(sensing) == 0 {
		return d.invalid(dev, "ERROR - no sensing data in device file")
	}
	soil := false
	if model, ok := d.c.Job.StringValue("instrument_model__name"); ok && model == ISEpHSoilModel {
		soil = true
	}

	ms := make([]record.Measurement, 0, len(sensing))
	for _, s := range sensing {
		indicator := fmt.Sprintf("%s_%s", rec.Procedure, record.Indicator(s.Key))
		if soil {
			indicator = strings.ReplaceAll(indicator, "ph(water)", "ph(soil)")
		}
		ms = append(ms, record.Measurement{
			Indicator:       indicator,
			Value:           s.Mean,
			StdDev:          s.StdDev,
			Unit:            strings.ToLower(s.Unit),
			Procedure:       rec.Procedure,
			AnalysisMethod:  rec.AnalysisMethod,
			InstrumentBrand: rec.InstrumentBrand,
			InstrumentModel: rec.InstrumentModel,
			InstrumentID:    rec.InstrumentID,
		})
	}
	rec.Observation = record.Observation{Kind: record.IndicatorMap, Equipment: rec.Procedure, Measurements: ms}
	return nil
}

func (d *Device) spectrum(rec *record.Record, dev *device.File) error {
	scan, err := dev.Scan()
	if err != nil {
		return err
	}
	wr, err := d.pool.ForStrategy(d.opts.Strategy, dev.Epoch)
	if err != nil {
		return err
	}
	res, err := reflectance.Compute(scan, wr, d.opts.Compute)
	if err != nil {
		return err
	}
	if n := res.QC.Total(); n > 0 {
		d.c.Console.Warnf("%s: %d quality control flags raised", rec.SampleID, n)
	}

	qc := res.QC
	rec.Observation = record.Observation{
		Kind:      record.SingleAnalyte,
		Equipment: rec.Procedure,
		Spectrum: &record.Spectrum{
			Wavelengths:         dev.Wavelengths(),
			Value:               res.Value,
			StdDev:              res.StdDev,
			Unit:                "reflectance",
			Indicator:           "reflectance",
			ScanTuning:          dev.ScanTuning(),
			ScanDN:              dev.ScanDN(scan),
			WhiteReferenceFiles: wr.Files,
			QC:                  &qc,
		},
	}
	return nil
}

func (d *Device) invalid(dev *device.File, msg string) error {
	return errors.Newf("%s: %s", msg, dev.Name).
		Component("normalize").
		Category(errors.CategoryValidation).
		FileContext(dev.Path).
		Build()
}
