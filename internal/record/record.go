// Package record holds the canonical sample record and the translation
// tables every input format is normalized through.
package record

import (
	"slices"

	"github.com/tphakala/soilnorm/internal/reflectance"
)

// Kind tags the shape of an Observation.
type Kind int

const (
	// SingleAnalyte observations carry one reflectance spectrum.
	SingleAnalyte Kind = iota + 1
	// IndicatorMap observations carry one value per measured indicator.
	IndicatorMap
)

func (k Kind) String() string {
	switch k {
	case SingleAnalyte:
		return "single-analyte"
	case IndicatorMap:
		return "indicator-map"
	}
	return "unknown"
}

// Record is a finalized sample. It is built once per input row or device
// file and is read-only afterwards.
type Record struct {
	PilotCountry  string
	PilotSite     string
	SiteID        string
	PointID       string
	SampleID      string
	SamplingLogID string
	Locus         string

	MinDepth int
	MaxDepth int

	Subsample         string
	Replicate         int
	SamplePreparation string
	SampleDate        string
	AnalysisDate      string
	StorageDurationH  int

	Preservation       any
	Transport          any
	Storage            any
	TransportDurationH int

	AnalysisEmail string
	SamplingEmail string
	LogisticEmail string

	Procedure       string
	InstrumentBrand string
	InstrumentModel string
	InstrumentID    string
	AnalysisMethod  string

	Setting      string
	PositionName string
	Latitude     float64
	Longitude    float64

	NRepetitions int
	Muzzle       *Muzzle

	Observation Observation

	// Source is the input file the record was read from.
	Source string
}

// Muzzle identifies the sensor head fitted to a handheld spectrometer.
type Muzzle struct {
	Code       string `json:"code"`
	Formfactor string `json:"formfactor"`
}

// Observation is either a spectrum or a set of indicator measurements.
type Observation struct {
	Kind Kind
	// Equipment keys the observation list in the AI4SH tree.
	Equipment    string
	Spectrum     *Spectrum
	Measurements []Measurement
}

// Spectrum is a reflectance spectrum with its provenance.
type Spectrum struct {
	Wavelengths []float64
	Value       []float64
	StdDev      []float64
	Unit        string
	Indicator   string

	ScanTuning          *ScanTuning
	ScanDN              *ScanDN
	WhiteReferenceFiles []string
	QC                  *reflectance.QC
}

// ScanTuning holds the device acquisition settings.
type ScanTuning struct {
	DarkRepeat          int     `json:"dark_repeat"`
	HeadTrailRepeat     int     `json:"head_trail_repeat"`
	LEDmV               float64 `json:"led_mv"`
	StabilisationTimeMs float64 `json:"stabilisation_time_ms"`
	Code                string  `json:"scan_tuning__code"`
}

// ScanDN keeps the raw digital numbers a spectrum was computed from.
type ScanDN struct {
	SampleMean []float64 `json:"sample_mean"`
	SampleStd  []float64 `json:"sample_standard_deviation,omitempty"`
	DarkMean   []float64 `json:"dark_mean"`
	DarkStd    []float64 `json:"dark_standard_deviation,omitempty"`
}

// Measurement is one indicator value of an IndicatorMap observation.
type Measurement struct {
	Indicator string
	// Method groups measurements under an equipment in tabular AI4SH output.
	Method          string
	Value           *float64
	StdDev          *float64
	Unit            string
	Procedure       string
	AnalysisMethod  string
	InstrumentBrand string
	InstrumentModel string
	InstrumentID    string
}

// Indicators returns the indicator names of an IndicatorMap observation in
// input order.
func (o Observation) Indicators() []string {
	names := make([]string, 0, len(o.Measurements))
	for _, m := range o.Measurements {
		names = append(names, m.Indicator)
	}
	return names
}

// Instrument resolves the model and id used in output file names. Spectra
// and single-instrument indicator maps use the record's instrument. When
// indicators came from different models "multiple" is returned; a shared
// model named "0" is replaced by the procedure.
func (r *Record) Instrument() (model, id string) {
	if r.Observation.Kind != IndicatorMap || len(r.Observation.Measurements) == 0 {
		return r.InstrumentModel, r.InstrumentID
	}
	ms := r.Observation.Measurements
	if len(ms) == 1 {
		return ms[0].InstrumentModel, ms[0].InstrumentID
	}

	models := make([]string, 0, len(ms))
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		models = append(models, m.InstrumentModel)
		ids = append(ids, m.InstrumentID)
	}
	slices.Sort(models)
	slices.Sort(ids)
	models = slices.Compact(models)
	ids = slices.Compact(ids)
	if len(models) != 1 {
		return "multiple", "multiple"
	}
	model, id = models[0], ids[0]
	if model == "0" {
		model = r.Procedure
	}
	return model, id
}
