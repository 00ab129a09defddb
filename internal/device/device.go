// Package device reads the JSON files written by xspectre handheld devices.
// Firmware revisions disagree on where the sensor block lives, so every
// accessor tolerates the known layouts and falls back to fixed defaults.
package device

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

// Fallbacks for files that carry no sensor block.
const (
	DefaultSampleRepeats = 6
	DefaultDarkRepeats   = 2
	DefaultMaxDN         = 850
)

// WhiteReferencePrefix starts the base name of white reference scans.
const WhiteReferencePrefix = "whiteref"

// Unknown is used for identifiers the file does not carry.
const Unknown = "unknown"

// File is one parsed device file.
type File struct {
	Path string
	Name string
	// Epoch is the modification time in seconds, used to pair samples
	// with the white references scanned around them.
	Epoch float64

	obj *jason.Object

	equipment string
	nrep      int
	maxDN     float64
	block     *jason.Object
	xparams   *jason.Object
}

// IsWhiteReference reports whether a file name denotes a white reference.
func IsWhiteReference(path string) bool {
	return strings.HasPrefix(strings.ToLower(filepath.Base(path)), WhiteReferencePrefix)
}

// Read parses the device file at path.
func Read(fs afero.Fs, path string) (*File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	f.Epoch = float64(info.ModTime().Unix())
	return f, nil
}

// Parse reads device JSON. path is recorded for naming and error messages.
func Parse(data []byte, path string) (*File, error) {
	obj, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, errors.New(fmt.Errorf("parse device file: %w", err)).
			Component("device").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	f := &File{Path: path, Name: filepath.Base(path), obj: obj}
	f.xparams, _ = obj.GetObject("xparams")
	if err := f.resolveEquipment(); err != nil {
		return nil, err
	}
	return f, nil
}

// resolveEquipment finds the sensor name, repeat count and saturation
// threshold in one of four layouts: a "sensor" object keyed by sensor name,
// a "sensor" string naming a top-level block, an "xparams.sensor" string,
// or none at all.
func (f *File) resolveEquipment() error {
	if sensor, err := f.obj.GetObject("sensor"); err == nil {
		keys := sortedKeys(sensor)
		if len(keys) == 0 {
			return f.invalid("sensor block is empty")
		}
		f.equipment = keys[0]
		inner, err := sensor.GetObject(f.equipment)
		if err != nil {
			return f.invalid("sensor %s is not an object", f.equipment)
		}
		if f.nrep, err = intField(inner, "samplerepeats"); err != nil {
			return f.invalid("sensor %s: %v", f.equipment, err)
		}
		if f.maxDN, err = floatField(inner, "maxDN"); err != nil {
			return f.invalid("sensor %s: %v", f.equipment, err)
		}
		f.block = f.equipmentBlock()
		if f.block == nil {
			f.block = inner
		}
		return nil
	}

	if name, err := f.obj.GetString("sensor"); err == nil {
		f.equipment = name
		f.block = f.equipmentBlock()
		if f.block == nil {
			return f.invalid("sensor block %s is missing", name)
		}
		if f.nrep, err = intField(f.block, "samplerepeats"); err != nil {
			return f.invalid("sensor %s: %v", name, err)
		}
		if f.maxDN, err = floatField(f.block, "maxDN"); err != nil {
			return f.invalid("sensor %s: %v", name, err)
		}
		return nil
	}

	if f.xparams != nil {
		if name, err := f.xparams.GetString("sensor"); err == nil {
			f.equipment = name
			if f.nrep, err = intField(f.xparams, "samplerepeats"); err != nil {
				return f.invalid("xparams: %v", err)
			}
			if f.maxDN, err = floatField(f.xparams, "maxDN"); err != nil {
				return f.invalid("xparams: %v", err)
			}
			f.block = f.equipmentBlock()
			return nil
		}
	}

	id, err := f.obj.GetString("sensorid")
	if err != nil {
		return f.invalid("no sensor, xparams.sensor or sensorid found")
	}
	f.equipment = id
	f.nrep = DefaultSampleRepeats
	f.maxDN = DefaultMaxDN
	f.block = f.equipmentBlock()
	return nil
}

func (f *File) equipmentBlock() *jason.Object {
	b, err := f.obj.GetObject(f.equipment)
	if err != nil {
		return nil
	}
	return b
}

// Equipment is the sensor name.
func (f *File) Equipment() string { return f.equipment }

// NRepetitions is the number of sample repeats averaged per scan.
func (f *File) NRepetitions() int { return f.nrep }

// MaxDN is the saturation threshold in digital numbers.
func (f *File) MaxDN() float64 { return f.maxDN }

// DarkRepeats is the number of dark scans averaged per scan.
func (f *File) DarkRepeats() int {
	if f.block == nil {
		return DefaultDarkRepeats
	}
	n, err := intField(f.block, "darkrepeats")
	if err != nil {
		return DefaultDarkRepeats
	}
	return n
}

// Serial is the spectrometer serial number.
func (f *File) Serial() string {
	return f.stringOr(Unknown, "sensor-serialnr")
}

// MuzzleCode is the id of the fitted muzzle, or "".
func (f *File) MuzzleCode() string {
	return f.stringOr("", "muzzleid")
}

// Formfactor is the muzzle form factor, or "".
func (f *File) Formfactor() string {
	return f.stringOr("", "formfactor")
}

// ScanDate is the analysis date written by the device.
func (f *File) ScanDate() string {
	return f.stringOr("", "scandate")
}

// Compulsory returns the compulsory record fields the file itself carries,
// plus fixed defaults for logistics the device cannot know.
func (f *File) Compulsory() record.Fields {
	fields := record.Fields{
		"sample_preservation__name": nil,
		"sample_transport__name":    nil,
		"sample_storage__name":      nil,
		"transport_duration_h":      0,
		"replicate":                 0,
		"subsample":                 "a",
	}

	country, site := Unknown, Unknown
	if campaign, err := f.obj.GetString("campaignshortid"); err == nil {
		if p := strings.Split(campaign, "_"); len(p) > 2 {
			country, site = p[1], p[2]
		}
	}
	fields["pilot_country"], fields["pilot_site"] = country, site

	if v, ok := f.scalar("sampling", "sampledate"); ok {
		fields["sample_date"] = v
	}
	if v, ok := f.scalar("sampling", "prepcode"); ok {
		fields["sample_preparation__name"] = v
	}
	if d := f.ScanDate(); d != "" {
		fields["sample_analysis_date"] = d
	}
	return fields
}

// Sensing is one indicator reported directly by a wet sensor.
type Sensing struct {
	Key    string
	Unit   string
	Mean   *float64
	StdDev *float64
}

// Sensing returns the indicators of the "sensing" block in key order. A
// file without the block yields none.
func (f *File) Sensing() ([]Sensing, error) {
	block, err := f.obj.GetObject("sensing")
	if err != nil {
		return nil, nil
	}
	var out []Sensing
	for _, k := range sortedKeys(block) {
		entry, err := block.GetObject(k)
		if err != nil {
			return nil, f.invalid("sensing %s is not an object", k)
		}
		s := Sensing{Key: k}
		s.Unit, _ = entry.GetString("sensingunit")
		if v, err := floatField(entry, "mean"); err == nil {
			s.Mean = &v
		}
		if v, err := floatField(entry, "std"); err == nil {
			s.StdDev = &v
		}
		out = append(out, s)
	}
	return out, nil
}

// HasSpectrum reports whether the file carries a raw spectrum.
func (f *File) HasSpectrum() bool {
	_, err := f.obj.GetValueArray("samplemean")
	return err == nil
}

// Scan returns the raw spectrum for reflectance computation.
func (f *File) Scan() (reflectance.Scan, error) {
	value, err := floatArray(f.obj, "samplemean")
	if err != nil {
		return reflectance.Scan{}, f.invalid("samplemean: %v", err)
	}
	dark, err := floatArray(f.obj, "darkmean")
	if err != nil {
		return reflectance.Scan{}, f.invalid("darkmean: %v", err)
	}
	valueStd, _ := floatArray(f.obj, "samplestd")
	darkStd, err := floatArray(f.obj, "darkstd")
	if err != nil {
		darkStd, _ = floatArray(f.obj, "darkStd")
	}
	return reflectance.Scan{
		Name:         f.Name,
		Value:        value,
		ValueStd:     valueStd,
		Dark:         dark,
		DarkStd:      darkStd,
		NRepeats:     f.sampleRepeats(),
		NDarkRepeats: f.DarkRepeats(),
		MaxDN:        f.maxDN,
		Epoch:        f.Epoch,
	}, nil
}

func (f *File) sampleRepeats() int {
	if f.block != nil {
		if n, err := intField(f.block, "samplerepeats"); err == nil {
			return n
		}
	}
	return f.nrep
}

// Wavelengths returns the band centres when the file lists them.
func (f *File) Wavelengths() []float64 {
	for _, k := range []string{"wavelengths", "wavelength", "wl"} {
		if wl, err := floatArray(f.obj, k); err == nil {
			return wl
		}
	}
	return nil
}

// ScanDN returns the raw digital numbers behind a spectrum. The dark
// deviation is kept only when more than one dark scan was averaged.
func (f *File) ScanDN(scan reflectance.Scan) *record.ScanDN {
	dn := &record.ScanDN{SampleMean: scan.Value, SampleStd: scan.ValueStd, DarkMean: scan.Dark}
	if scan.NDarkRepeats > 1 {
		dn.DarkStd = scan.DarkStd
	}
	return dn
}

// ScanTuning returns the acquisition settings. Older firmware only writes
// xparams, with a single integration time.
func (f *File) ScanTuning() *record.ScanTuning {
	st := &record.ScanTuning{DarkRepeat: f.DarkRepeats()}
	if f.block != nil {
		st.HeadTrailRepeat, _ = intField(f.block, "headtrail")
	}

	if params := f.parameters(); params != nil {
		st.LEDmV, _ = floatField(params, "LED_mset_mV")
		st.StabilisationTimeMs, _ = floatField(params, "stabilistaiontime")
		n, _ := intField(params, "scantuning", "nIntegrationTimes")
		code := strconv.Itoa(n)
		for i := range n {
			times, err := floatArray(params, "scantuning", "integrationtimes", strconv.Itoa(i))
			if err != nil || len(times) < 3 {
				continue
			}
			code += fmt.Sprintf("_%s-%s-%s", formatNumber(times[0]), formatNumber(times[1]), formatNumber(times[2]))
		}
		st.Code = code
		return st
	}

	if f.xparams != nil {
		st.LEDmV, _ = floatField(f.xparams, "voltage")
		st.StabilisationTimeMs, _ = floatField(f.xparams, "stabilisationtime")
		integration, _ := floatField(f.xparams, "integrationtime")
		pixels := 256
		if strings.Contains(f.equipment, "c12880") {
			pixels = 288
		}
		st.Code = fmt.Sprintf("1_%s-0-%d", formatNumber(integration), pixels)
	}
	return st
}

func (f *File) parameters() *jason.Object {
	if f.block == nil {
		return nil
	}
	p, err := f.block.GetObject("parameters")
	if err != nil {
		return nil
	}
	return p
}

func (f *File) stringOr(fallback string, keys ...string) string {
	if v, ok := f.scalar(keys...); ok && v != "" {
		return v
	}
	return fallback
}

// scalar returns a string or number at keys as a string.
func (f *File) scalar(keys ...string) (string, bool) {
	v, err := f.obj.GetValue(keys...)
	if err != nil {
		return "", false
	}
	if s, err := v.String(); err == nil {
		return s, true
	}
	if n, err := v.Number(); err == nil {
		return n.String(), true
	}
	return "", false
}

func (f *File) invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("device").
		Category(errors.CategoryFileParsing).
		FileContext(f.Path).
		Build()
}

func sortedKeys(obj *jason.Object) []string {
	m := obj.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func number(v *jason.Value) (float64, error) {
	if n, err := v.Float64(); err == nil {
		return n, nil
	}
	s, err := v.String()
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
}

func floatField(obj *jason.Object, keys ...string) (float64, error) {
	v, err := obj.GetValue(keys...)
	if err != nil {
		return 0, err
	}
	n, err := number(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", strings.Join(keys, "."), err)
	}
	return n, nil
}

func intField(obj *jason.Object, keys ...string) (int, error) {
	n, err := floatField(obj, keys...)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// floatArray reads a numeric array; null entries become NaN so that QC
// counts them as missing.
func floatArray(obj *jason.Object, keys ...string) ([]float64, error) {
	values, err := obj.GetValueArray(keys...)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if v.Null() == nil {
			out[i] = math.NaN()
			continue
		}
		n, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", strings.Join(keys, "."), i, err)
		}
		out[i] = n
	}
	return out, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
