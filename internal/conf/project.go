package conf

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/soilnorm/internal/errors"
)

// Input formats a job can read.
const (
	FormatAI4SHCSV      = "ai4sh-csv"      // lab wet-chemistry tables
	FormatDS2500CSV     = "ds2500-csv"     // FOSS DS2500 absorbance exports
	FormatNeoSpectraCSV = "neospectra-csv" // NeoSpectra percent reflectance exports
	FormatXspectreJSON  = "xspectre-json"  // handheld spectrometer device files
)

// Coordinate table join modes.
const (
	CoordinateKeyLegacy = "legacy" // column index 3 holds the locus
	CoordinateKeyName   = "name"   // locus composed from named columns
)

var knownFormats = []string{FormatAI4SHCSV, FormatDS2500CSV, FormatNeoSpectraCSV, FormatXspectreJSON}

// Project is a batch of jobs read from a project YAML file.
type Project struct {
	Name string `yaml:"name"`
	Root string `yaml:"root"`
	Jobs []Job  `yaml:"jobs"`

	path string
}

// Job describes one input source and how to normalize it.
type Job struct {
	Name             string         `yaml:"name"`
	Enabled          *bool          `yaml:"enabled"`
	Format           string         `yaml:"format"`
	PilotCountry     string         `yaml:"pilot_country"`
	PilotSite        string         `yaml:"pilot_site"`
	Procedure        string         `yaml:"procedure"`
	DataSrc          string         `yaml:"data_src"`
	MethodSrc        string         `yaml:"method_src"`
	CoordinatesSrc   string         `yaml:"coordinates_src"`
	CoordinateKey    string         `yaml:"coordinate_key"`
	Dst              string         `yaml:"dst"`
	MuzzleFormfactor string         `yaml:"muzzle_formfactor"`
	UnitName         string         `yaml:"unit__name"`
	Canopy           string         `yaml:"canopy"`
	InstrumentBrand  string         `yaml:"instrument_brand__name"`
	InstrumentModel  string         `yaml:"instrument_model__name"`
	InstrumentID     string         `yaml:"instrument_id"`
	AnalysisMethod   string         `yaml:"analysis_method__name"`
	Defaults         map[string]any `yaml:"defaults"`
}

// LoadProject reads and validates a project file. Relative job paths are
// resolved against the project root, which defaults to the directory
// holding the project file.
func LoadProject(fs afero.Fs, path string) (*Project, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("reading project file: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			FileContext(path).
			Build()
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.New(fmt.Errorf("parsing project file %s: %w", path, err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			FileContext(path).
			Build()
	}
	p.path = path

	base := filepath.Dir(path)
	if p.Root == "" {
		p.Root = base
	} else {
		p.Root = ResolvePath(base, p.Root)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for i := range p.Jobs {
		p.Jobs[i].resolve(p.Root)
	}

	if len(p.Jobs) == 0 {
		return nil, errors.Newf("project %s defines no jobs", path).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &p, nil
}

// Path returns the file the project was read from.
func (p *Project) Path() string {
	return p.path
}

// Job returns the job with the given name.
func (p *Project) Job(name string) (*Job, bool) {
	for i := range p.Jobs {
		if p.Jobs[i].Name == name {
			return &p.Jobs[i], true
		}
	}
	return nil, false
}

func (j *Job) resolve(root string) {
	j.DataSrc = ResolvePath(root, j.DataSrc)
	j.MethodSrc = ResolvePath(root, j.MethodSrc)
	j.CoordinatesSrc = ResolvePath(root, j.CoordinatesSrc)
	j.Dst = ResolvePath(root, j.Dst)

	j.Format = strings.ToLower(strings.TrimSpace(j.Format))
	j.PilotCountry = strings.ToLower(strings.TrimSpace(j.PilotCountry))
	j.PilotSite = strings.ToLower(strings.TrimSpace(j.PilotSite))
	j.Procedure = strings.ToLower(strings.TrimSpace(j.Procedure))
	if j.CoordinateKey == "" {
		j.CoordinateKey = CoordinateKeyName
	}
	if j.Name == "" {
		j.Name = fmt.Sprintf("%s-%s", j.PilotSite, j.Procedure)
	}
}

// IsEnabled reports whether the job should run. Jobs are enabled unless
// explicitly disabled.
func (j *Job) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// Spectral reports whether the job produces reflectance spectra.
func (j *Job) Spectral() bool {
	switch j.Format {
	case FormatDS2500CSV, FormatNeoSpectraCSV:
		return true
	case FormatXspectreJSON:
		return strings.HasSuffix(j.Procedure, "spectra")
	}
	return false
}

// DstRoot is the directory the ai4sh, xspectre and ossl trees are created in.
func (j *Job) DstRoot() string {
	return filepath.Dir(j.Dst)
}

// Method is the subfolder name used under each output tree.
func (j *Job) Method() string {
	return filepath.Base(j.Dst)
}

// Validate checks that the job can run. Failures are job-setup errors.
func (j *Job) Validate() error {
	var problems []string

	if !slices.Contains(knownFormats, j.Format) {
		problems = append(problems, fmt.Sprintf("unknown format %q", j.Format))
	}
	if j.PilotSite == "" {
		problems = append(problems, "pilot_site is required")
	}
	if j.Procedure == "" {
		problems = append(problems, "procedure is required")
	}
	if j.DataSrc == "" {
		problems = append(problems, "data_src is required")
	}
	if j.Dst == "" {
		problems = append(problems, "dst is required")
	}
	if j.Format == FormatAI4SHCSV && j.MethodSrc == "" {
		problems = append(problems, "method_src is required for ai4sh-csv jobs")
	}
	if j.CoordinateKey != CoordinateKeyLegacy && j.CoordinateKey != CoordinateKeyName {
		problems = append(problems, fmt.Sprintf("coordinate_key must be %q or %q", CoordinateKeyLegacy, CoordinateKeyName))
	}

	if len(problems) > 0 {
		return errors.Newf("job %s: %s", j.Name, strings.Join(problems, ", ")).
			Component("configuration").
			Category(errors.CategoryJobSetup).
			Build()
	}
	return nil
}

// Value returns a job-level value for a record field. Typed job fields take
// precedence over the free-form defaults map. Strings are lower-cased.
func (j *Job) Value(field string) (any, bool) {
	typed := map[string]string{
		"pilot_country":          j.PilotCountry,
		"pilot_site":             j.PilotSite,
		"procedure":              j.Procedure,
		"instrument_brand__name": j.InstrumentBrand,
		"instrument_model__name": j.InstrumentModel,
		"instrument_id":          j.InstrumentID,
		"analysis_method__name":  j.AnalysisMethod,
		"unit__name":             j.UnitName,
		"canopy":                 j.Canopy,
		"muzzle_formfactor":      j.MuzzleFormfactor,
	}
	if v, ok := typed[field]; ok && v != "" {
		return strings.ToLower(v), true
	}

	v, ok := j.Defaults[field]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString {
		return strings.ToLower(strings.TrimSpace(s)), true
	}
	return v, true
}

// StringValue is Value coerced to a string.
func (j *Job) StringValue(field string) (string, bool) {
	v, ok := j.Value(field)
	if !ok {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}
