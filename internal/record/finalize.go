package record

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/lookup"
)

// ProcedureEOData marks satellite derived pseudo-samples. They have no
// physical sampling event.
const ProcedureEOData = "eo-data"

// ErrNoSubsample is returned for records whose subsample code translates to
// no subsample. Callers skip such records with a warning.
var ErrNoSubsample = errors.NewStd("subsample is set to none")

// jobFields are read from the job on top of the compulsory fields.
var jobFields = []string{"sampling_log_id", "canopy", "setting", "muzzle_formfactor", "unit__name"}

// JobDefaults collects the job-level values records fall back to. Assumed
// defaults are added, with a warning, for parameters the job leaves out.
func JobDefaults(job *conf.Job, console *logger.Console) Fields {
	d := make(Fields, len(CompulsoryFields)+len(jobFields))
	for _, k := range CompulsoryFields {
		if v, ok := job.Value(k); ok {
			d[k] = v
		}
	}
	for _, k := range jobFields {
		if v, ok := job.Value(k); ok {
			d[k] = v
		}
	}
	for _, ad := range AssumedDefaults {
		if d.Present(ad.Field) {
			continue
		}
		d[ad.Field] = ad.Value
		shown := ad.Value
		if shown == nil {
			shown = "none"
		}
		console.Warnf("WARNING - assuming default value <%v> for parameter <%s>", shown, ad.Field)
	}
	return d
}

// Options carries the job context Finalize needs.
type Options struct {
	// Defaults are the job-level values from JobDefaults.
	Defaults Fields
	// Coordinates resolves the locus of every record.
	Coordinates    *lookup.CoordinateTable
	CoordinatesSrc string
	// ProjectFile is named in remediation hints for missing fields.
	ProjectFile     string
	CheckDepthOrder bool
}

// Finalize turns a normalized field bag into a Record. It fills compulsory
// fields from the job, resolves the locus, translates the subsample,
// replicate and preparation codes, derives the storage duration and
// lower-cases every string. The Observation is left for the caller.
func Finalize(f Fields, opts Options) (*Record, error) {
	for _, k := range CompulsoryFields {
		if !f.Present(k) && opts.Defaults.Present(k) {
			f[k] = lowerString(opts.Defaults[k])
		}
	}
	for _, k := range jobFields {
		if !f.Has(k) && opts.Defaults.Has(k) {
			f[k] = lowerString(opts.Defaults[k])
		}
	}

	for _, k := range []string{"pilot_country", "pilot_site", "point_id"} {
		if !f.Has(k) {
			return nil, missingField(k, opts.ProjectFile)
		}
	}

	locus := lookup.Locus(f.String("pilot_country"), f.String("pilot_site"), f.String("point_id"))
	var (
		coord lookup.Coordinate
		found bool
	)
	if opts.Coordinates != nil {
		coord, found = opts.Coordinates.Lookup(locus)
	}
	if !found {
		return nil, errors.Newf("ERROR - locus not found in coordinate table: %s. To fix this problem make sure to add the locus to the file: %s",
			locus, opts.CoordinatesSrc).
			Component("record").
			Category(errors.CategoryNotFound).
			Context("locus", locus).
			Build()
	}
	// The coordinate table may carry sampling dates and log ids.
	for k, v := range coord.Extra {
		if !f.Has(k) && v != "" {
			f[k] = strings.ToLower(v)
		}
	}

	for _, k := range CompulsoryFields {
		if !f.Present(k) {
			return nil, missingField(k, opts.ProjectFile)
		}
	}

	subsample, ok := Subsample(f["subsample"])
	if !ok {
		return nil, invalid(errors.CategoryNotFound, "ERROR - subsample id not recognised: <%v>", f["subsample"])
	}
	if subsample == NoSubsample {
		return nil, errors.New(ErrNoSubsample).
			Component("record").
			Category(errors.CategoryValidation).
			Build()
	}
	replicate, ok := Replicate(f["replicate"])
	if !ok {
		return nil, invalid(errors.CategoryNotFound, "ERROR - replicate id not recognised: <%v>", f["replicate"])
	}
	prep, ok := PrepCode(f["sample_preparation__name"])
	if !ok {
		return nil, invalid(errors.CategoryNotFound, "ERROR - sample preparation name not recognised: %v", f["sample_preparation__name"])
	}

	minDepth, err := f.Int("min_depth")
	if err != nil {
		return nil, invalid(errors.CategoryValidation, "ERROR - min_depth <%v> is not an integer", f["min_depth"])
	}
	maxDepth, err := f.Int("max_depth")
	if err != nil {
		return nil, invalid(errors.CategoryValidation, "ERROR - max_depth <%v> is not an integer", f["max_depth"])
	}
	if opts.CheckDepthOrder && minDepth > maxDepth {
		return nil, invalid(errors.CategoryValidation, "ERROR - invalid depth interval %d-%d: min_depth exceeds max_depth", minDepth, maxDepth)
	}

	procedure := strings.ToLower(f.String("procedure"))
	sampleDate := f.String("sample_date")
	analysisDate := f.String("sample_analysis_date")
	storage := 0
	if procedure == ProcedureEOData {
		sampleDate = "0"
	} else {
		storage, err = StorageDurationH(sampleDate, analysisDate)
		if err != nil {
			return nil, invalid(errors.CategoryValidation, "ERROR - storage duration: %v", err)
		}
		if storage == 0 {
			analysisDate = sampleDate
		}
	}

	transport, err := toInt(f["transport_duration_h"])
	if err != nil {
		return nil, invalid(errors.CategoryValidation, "ERROR - transport_duration_h <%v> is not an integer", f["transport_duration_h"])
	}

	f.Lower()

	country, site, point := f.String("pilot_country"), f.String("pilot_site"), f.String("point_id")
	siteID := fmt.Sprintf("%s-%s", country, site)

	samplingLog := f.String("sampling_log_id")
	if samplingLog == "" {
		samplingLog = fmt.Sprintf("%s_%s", siteID, sampleDate)
	}

	setting := coord.Setting
	for _, k := range []string{"setting", "canopy"} {
		if setting != "" {
			break
		}
		setting = f.String(k)
	}
	if setting == "" {
		setting = "uniform"
	}

	nrep := 1
	if f.Has("n_repetitions") {
		if n, err := f.Int("n_repetitions"); err == nil && n > 0 {
			nrep = n
		}
	}

	r := &Record{
		PilotCountry:  country,
		PilotSite:     site,
		SiteID:        siteID,
		PointID:       point,
		SamplingLogID: samplingLog,
		SampleID:      fmt.Sprintf("%s_%s_%d-%d", samplingLog, point, minDepth, maxDepth),
		Locus:         locus,

		MinDepth: minDepth,
		MaxDepth: maxDepth,

		Subsample:         subsample,
		Replicate:         replicate,
		SamplePreparation: prep,
		SampleDate:        sampleDate,
		AnalysisDate:      analysisDate,
		StorageDurationH:  storage,

		Preservation:       optional(f["sample_preservation__name"]),
		Transport:          optional(f["sample_transport__name"]),
		Storage:            optional(f["sample_storage__name"]),
		TransportDurationH: transport,

		AnalysisEmail: f.String("user_analysis__email"),
		SamplingEmail: f.String("user_sampling__email"),
		LogisticEmail: f.String("user_logistic__email"),

		Procedure:       procedure,
		InstrumentBrand: f.String("instrument_brand__name"),
		InstrumentModel: f.String("instrument_model__name"),
		InstrumentID:    f.String("instrument_id"),
		AnalysisMethod:  f.String("analysis_method__name"),

		Setting:      setting,
		PositionName: coord.PositionName,
		Latitude:     coord.Latitude,
		Longitude:    coord.Longitude,

		NRepetitions: nrep,
	}
	if r.PositionName == "" {
		r.PositionName = locus
	}
	if f.Has("muzzle_code") {
		r.Muzzle = &Muzzle{Code: f.String("muzzle_code"), Formfactor: f.String("muzzle_formfactor")}
	}

	return r, nil
}

func missingField(field, projectFile string) error {
	return errors.Newf("ERROR - compulsory data not found: %s. You can add <%s> parameter to the process file: %s",
		field, field, projectFile).
		Component("record").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

func invalid(category errors.ErrorCategory, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("record").
		Category(category).
		Build()
}

func lowerString(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return v
}

// optional keeps null-like logistics values as JSON null.
func optional(v any) any {
	if v == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	if IsNullLike(s) {
		return nil
	}
	return s
}
