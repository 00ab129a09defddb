// Package naming extracts record fields from device file names and tabular
// sample names. Every pilot site encodes point, depth, subsample and
// replicate differently, so parsers are registered per (site, procedure).
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/record"
)

// Registry namespaces for tabular spectrometer exports. Device parsers are
// keyed by the job procedure itself.
const (
	ProcedureDS2500     = "ds2500"
	ProcedureNeoSpectra = "neospectra"
	ProcedureVeltia     = "veltia"
)

// Device procedures.
const (
	ProcedureISEpH        = "xspectre-ise-ph"
	ProcedureGX16EC       = "xspectre-gx16-ec"
	ProcedurePenetrometer = "xspectre-penetrometer"
	ProcedureSpectra      = "xspectre-spectra"
)

// ErrNotASample marks inputs whose name does not follow the site convention
// at all, such as reference or calibration files. Callers skip them.
var ErrNotASample = errors.NewStd("file name does not follow the sample naming convention")

// Input is what a parser gets to work with.
type Input struct {
	// Path is the device file, or the data file for tabular rows.
	Path string
	// Fields holds the tabular row or the device metadata gathered so far.
	// Parsers read it and never modify it.
	Fields record.Fields
	Job    *conf.Job
}

// Stem returns the base name of Path without its extension.
func (in Input) Stem() string {
	base := filepath.Base(in.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// JobString returns a lower-cased job value, or "".
func (in Input) JobString(field string) string {
	if in.Job == nil {
		return ""
	}
	s, _ := in.Job.StringValue(field)
	return s
}

// NameParser extracts record fields from an input name. The returned fields
// override those already collected for the record.
type NameParser interface {
	Parse(in Input) (record.Fields, error)
}

// ParserFunc adapts a function to NameParser.
type ParserFunc func(in Input) (record.Fields, error)

// Parse calls f.
func (f ParserFunc) Parse(in Input) (record.Fields, error) {
	return f(in)
}

type key struct {
	site      string
	procedure string
}

var (
	registryMu sync.RWMutex
	registry   = map[key]NameParser{}
)

// Register adds a parser for a pilot site and procedure, replacing any
// earlier registration.
func Register(site, procedure string, p NameParser) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key{strings.ToLower(site), strings.ToLower(procedure)}] = p
}

// Lookup returns the parser for a pilot site and procedure. An unknown pair
// is a job setup error.
func Lookup(site, procedure string) (NameParser, error) {
	registryMu.RLock()
	p, ok := registry[key{strings.ToLower(site), strings.ToLower(procedure)}]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf("ERROR - pilot site observation not recognised: %s, %s", site, procedure).
			Component("naming").
			Category(errors.CategoryJobSetup).
			Context("pilot_site", site).
			Context("procedure", procedure).
			Build()
	}
	return p, nil
}

// parts splits a name on "_" and checks that at least n parts exist.
func parts(name string, n int) ([]string, error) {
	p := strings.Split(name, "_")
	if len(p) < n {
		return nil, unrecognised("expected at least %d \"_\" separated parts in %q", n, name)
	}
	return p, nil
}

func unrecognised(format string, args ...any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrNotASample, fmt.Sprintf(format, args...))).
		Component("naming").
		Category(errors.CategoryValidation).
		Build()
}

func invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("naming").
		Category(errors.CategoryValidation).
		Build()
}

func startsWithDigit(s string) bool {
	return s != "" && unicode.IsDigit(rune(s[0]))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// letterSuffixPoint turns "12A" into "12-a".
func letterSuffixPoint(token string) (string, error) {
	if len(token) < 2 {
		return "", invalid("ERROR - point id too short in file name: %s", token)
	}
	return fmt.Sprintf("%s-%s", strings.ToLower(token[:len(token)-1]), strings.ToLower(token[len(token)-1:])), nil
}

// letterPrefixPoint turns "R12" into "12-r".
func letterPrefixPoint(token string) (string, error) {
	if len(token) < 2 {
		return "", invalid("ERROR - point id too short in file name: %s", token)
	}
	return fmt.Sprintf("%s-%s", strings.ToLower(token[1:]), strings.ToLower(token[:1])), nil
}

func labMethod(code, name string) (string, error) {
	m, ok := record.LabAnalysisMethod(code)
	if !ok {
		return "", invalid("ERROR - analysis method not recognised in filename: %s", name)
	}
	return m, nil
}

func setDepth(f record.Fields, token string) error {
	lo, hi, err := DepthFromCode(token)
	if err != nil {
		return err
	}
	f["min_depth"], f["max_depth"] = lo, hi
	return nil
}
