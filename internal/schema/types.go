package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

// AI4SHDocument is the nested AI4SH sample event.
type AI4SHDocument struct {
	DataSource []DataSource `json:"data_source"`
}

type DataSource struct {
	Name string `json:"name"`
	Site []Site `json:"site"`
}

type Site struct {
	Name  string  `json:"name"`
	Point []Point `json:"point"`
}

type Point struct {
	Name        string        `json:"name"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	Setting     string        `json:"setting"`
	SamplingLog []SamplingLog `json:"sampling_log"`
}

// SamplingLogInfo identifies a sampling event.
type SamplingLogInfo struct {
	Name        string `json:"name"`
	DateStamp   string `json:"date_stamp"`
	PersonEmail string `json:"person__email"`
}

type SamplingLog struct {
	SamplingLogInfo
	Sample []Sample `json:"sample"`
}

type Sample struct {
	Name        string             `json:"name"`
	MinDepth    int                `json:"min_depth"`
	MaxDepth    int                `json:"max_depth"`
	Observation []AI4SHObservation `json:"observation"`
}

type AI4SHObservation struct {
	ObservationMetadata
	AnalysisMethod Object `json:"analysis_method"`
}

// ObservationMetadata is shared by both document shapes.
type ObservationMetadata struct {
	SamplePreparation string   `json:"sample_preparation__name"`
	PersonEmail       string   `json:"person__email"`
	Subsample         string   `json:"subsample"`
	Replicate         int      `json:"replicate"`
	NRepeats          int      `json:"n_repeats"`
	DateStamp         string   `json:"date_stamp"`
	Logistic          Logistic `json:"logistic"`
}

type Logistic struct {
	Preservation       any    `json:"sample_preservation__name"`
	Transport          any    `json:"sample_transport__name"`
	TransportDurationH int    `json:"transport_duration_h"`
	Storage            any    `json:"sample_storage__name"`
	StorageDurationH   int    `json:"storage_duration_h"`
	PersonEmail        string `json:"person__email"`
}

// Entry is one observed indicator. Value holds a *float64 for indicator
// maps and Floats for spectra.
type Entry struct {
	Value             any    `json:"value"`
	StandardDeviation any    `json:"standard_deviation,omitempty"`
	Unit              string `json:"unit__name"`
	Indicator         string `json:"indicator__name"`
	Procedure         string `json:"procedure,omitempty"`
	AnalysisMethod    string `json:"analysis_method__name"`
	InstrumentBrand   string `json:"instrument_brand__name"`
	InstrumentModel   string `json:"instrument_model__name"`
	InstrumentID      string `json:"instrument_id"`
}

// XspectreDocument is the flat xspectre sample event.
type XspectreDocument struct {
	Campaign    string              `json:"campaign"`
	SamplingLog SamplingLogInfo     `json:"sampling_log"`
	Sample      string              `json:"sample"`
	Locus       Locus               `json:"locus"`
	Observation XspectreObservation `json:"observation"`
}

type Locus struct {
	PositionName string  `json:"position__name"`
	Point        string  `json:"point"`
	Setting      string  `json:"setting"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	MinDepth     int     `json:"min_depth"`
	MaxDepth     int     `json:"max_depth"`
}

type XspectreObservation struct {
	ObservationMetadata
	Metadata       *SpectraMetadata `json:"metadata,omitempty"`
	ScanDN         *ScanDN          `json:"scan_dn,omitempty"`
	WhiteReference *WhiteReference  `json:"white_reference,omitempty"`
	Analysis       Object           `json:"analysis"`
}

// SpectraMetadata is the extended acquisition metadata of a device spectrum.
type SpectraMetadata struct {
	ScanTuning *record.ScanTuning `json:"spectra_scan_tuning"`
	Error      *reflectance.QC    `json:"error"`
	Muzzle     *record.Muzzle     `json:"muzzle,omitempty"`
}

type ScanDN struct {
	SampleMean Floats `json:"sample_mean"`
	SampleStd  Floats `json:"sample_standard_deviation,omitempty"`
	DarkMean   Floats `json:"dark_mean"`
	DarkStd    Floats `json:"dark_standard_deviation,omitempty"`
}

type WhiteReference struct {
	Files []string `json:"white_reference"`
}

// Floats encodes NaN and infinities as null.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Member is one key of an Object.
type Member struct {
	Key   string
	Value any
}

// Object is a JSON object that keeps its insertion order.
type Object []Member

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key or appends a new member.
func (o *Object) Set(key string, v any) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = v
			return
		}
	}
	*o = append(*o, Member{Key: key, Value: v})
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
