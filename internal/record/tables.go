package record

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// CompulsoryFields must resolve to a value on every record, either from the
// input itself, the coordinate table or the job.
var CompulsoryFields = []string{
	"pilot_country",
	"pilot_site",
	"point_id",
	"min_depth",
	"max_depth",
	"sample_date",
	"sample_preparation__name",
	"subsample",
	"replicate",
	"sample_analysis_date",
	"sample_preservation__name",
	"sample_transport__name",
	"transport_duration_h",
	"sample_storage__name",
	"user_analysis__email",
	"user_sampling__email",
	"user_logistic__email",
	"procedure",
	"instrument_brand__name",
	"instrument_model__name",
	"instrument_id",
	"analysis_method__name",
}

// AssumedDefault is a job-level value used when the job does not set the
// parameter. A nil Value is serialized as null.
type AssumedDefault struct {
	Field string
	Value any
}

// AssumedDefaults lists the parameters a job may omit.
var AssumedDefaults = []AssumedDefault{
	{"sample_preparation__name", nil},
	{"sample_preservation__name", nil},
	{"sample_transport__name", nil},
	{"sample_storage__name", nil},
	{"transport_duration_h", 0},
	{"replicate", 0},
	{"subsample", "a"},
}

// NoSubsample is the translation of subsample codes meaning "not a
// subsample". Records carrying it are skipped by tabular jobs.
const NoSubsample = ""

// SubsampleTable maps subsample codes to the canonical single letter.
// Canonical letters map to themselves.
var SubsampleTable = map[string]string{
	"none": NoSubsample,
	"a1":   "a", "a2": "b", "a3": "c", "a4": "d",
	"b1": "e", "b2": "f", "b3": "g",
	"c1": "h", "c2": "i", "c3": "j",
	"d1": "k", "d2": "l", "d3": "m",
	"1": "a", "2": "b", "3": "c", "4": "d", "5": "e",
	"6": "f", "7": "g", "8": "h", "9": "i",
}

// ReplicateTable maps replicate codes to the canonical integer.
var ReplicateTable = map[string]int{
	"a": 0, "b": 1, "c": 2, "d": 3, "e": 4, "f": 5,
	"g": 6, "h": 7, "i": 8, "j": 9, "k": 10,
	"ab": 2, "ac": 3, "x": 9,
}

// PrepCodeTable maps sample preparation codes to canonical names.
var PrepCodeTable = map[string]string{
	"none":              "soil-undisturbed-in-situ",
	"field":             "soil-undisturbed-in-situ",
	"no":                "soil-undisturbed-in-situ",
	"n0":                "soil-undisturbed-in-situ",
	"in-situ":           "soil-undisturbed-in-situ",
	"insitu":            "soil-undisturbed-in-situ",
	"undisturbed":       "soil-undisturbed-in-situ",
	"mx":                "mixed-untreated-soil-in-lab",
	"mx-lab":            "mixed-untreated-soil-in-lab",
	"mixed":             "mixed-untreated-soil-in-lab",
	"h2o-iso":           "mixed-untreated-soil-in-lab",
	"ds":                "dried-sieved-soil-in-lab",
	"cu":                "robert-minarik-cu",
	"d10":               "xspectre-d10",
	"d20":               "xspectre-d20",
	"post-infiltration": "soaked",
	"dry-pick-soak":     "dried-aggregate-select+soaked",
	"eo-data":           "eo-data",
}

// InversePrepCodeTable maps canonical preparation names to the short code
// used in output file names.
var InversePrepCodeTable = map[string]string{
	"soil-undisturbed-in-situ":      "no-prep",
	"mixed-untreated-soil-in-lab":   "mix-wet",
	"dried-sieved-soil-in-lab":      "dried-sieved",
	"robert-minarik-cu":             "rm-cu",
	"xspectre-d10":                  "d10",
	"xspectre-d20":                  "d20",
	"soaked":                        "post-infiltration",
	"dried-aggregate-select+soaked": "dry-pick-soak",
	"eo-data":                       "eo-data",
}

// IndicatorTable maps raw indicator names from lab sheets and device
// sensing blocks to canonical indicator names.
var IndicatorTable = map[string]string{
	"tds":                          "total-dissolved-solids",
	"ec":                           "electrical-conductivity",
	"electrical conductivity":      "electrical-conductivity",
	"salinity":                     "salinity",
	"ph":                           "ph(water)",
	"ph(water)":                    "ph(water)",
	"ph(soil)":                     "ph(soil)",
	"toc":                          "total-organic-carbon",
	"soc":                          "soil-organic-carbon",
	"tot-n":                        "total-nitrogen",
	"cec":                          "cation-exchange-capacity",
	"cation exchange capacity":     "cation-exchange-capacity",
	"ca2+":                         "calcium",
	"mg2+":                         "magnesium",
	"na+":                          "sodium",
	"k+":                           "potassium",
	"olsen phosphorus":             "olsen-phosphorus",
	"available phosphorus":         "olsen-phosphorus",
	"p-olsen":                      "olsen-phosphorus",
	"clay(<0.002mm)":               "clay(<0.002mm)",
	"clay":                         "clay(<0.002mm)",
	"silt(0.002-0.05mm)":           "silt(0.002-0.05mm)",
	"silt":                         "silt(0.002-0.05mm)",
	"sand(0.05-2mm)":               "sand(0.05-2mm)",
	"sand":                         "sand(0.05-2mm)",
	"temp":                         "temperature",
	"temperature":                  "temperature",
	"sm":                           "soil-moisture-volumetric-content",
	"water content":                "soil-moisture-volumetric-content",
	"bulk density":                 "bulk-density",
	"bd":                           "bulk-density",
	"potassium":                    "potassium",
	"phosphorus":                   "phosphorus",
	"nitrogen":                     "nitrogen",
	"leu":                          "LEU",
	"microbial-c":                  "Microbial-C",
	"fungi":                        "fungi-fraction",
	"bacteria":                     "bacteria-fraction",
	"porosity":                     "porosity",
	"aggregate stability index":    "aggregate-stability-index",
	"spectra":                      "reflectance",
	"reflectance":                  "reflectance",
	"twi_edtm":                     "twi-edtm",
	"slope_edtm":                   "slope-edtm",
	"penetration resistance":       "penetration-resistance",
	"penetration-resistance":       "penetration-resistance",
	"infiltration rate":            "infiltration-rate",
}

// LabAnalysisMethodTable maps method codes found in device file names to
// analysis method names.
var LabAnalysisMethodTable = map[string]string{
	"in-situ-tf38415": "ise-ph-soil",
	"h2o-iso":         "ise-ph-5xh2o",
	"tds-iso":         "tds-bipin-5xh2o",
	"c12880ma":        "diffuse reflectance spectroscopy",
	"npkphcth-s":      "penetrometer",
	"tf38415":         "ise-ph-5xh20",
	"h2o-iso-tf38415": "ise-ph-5xh20",
}

// MethodTable maps instrument method aliases to the analysis method name.
var MethodTable = map[string]string{
	"npkphcth-s": "penetrometer",
	"ph-ise":     "ise-ph",
	"ise-ph":     "ise-ph",
	"bob":        "sear",
	"sear":       "sear",
}

func init() {
	// Translations must be idempotent on canonical values.
	for c := 'a'; c <= 'm'; c++ {
		SubsampleTable[string(c)] = string(c)
	}
	for i := range 11 {
		ReplicateTable[strconv.Itoa(i)] = i
	}
	for _, name := range PrepCodeTable {
		PrepCodeTable[name] = name
	}
	for _, name := range IndicatorTable {
		IndicatorTable[strings.ToLower(name)] = name
	}
}

// Subsample translates a subsample code. ok is false for unknown codes; a
// known code meaning no subsample translates to NoSubsample.
func Subsample(code any) (value string, ok bool) {
	if code == nil {
		return NoSubsample, true
	}
	key := strings.ToLower(strings.TrimSpace(cast.ToString(code)))
	value, ok = SubsampleTable[key]
	return value, ok
}

// Replicate translates a replicate code to its integer.
func Replicate(code any) (int, bool) {
	switch v := code.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		code = int(v)
	case float32:
		if v != float32(int(v)) {
			return 0, false
		}
		code = int(v)
	}
	key := strings.ToLower(strings.TrimSpace(cast.ToString(code)))
	n, ok := ReplicateTable[key]
	return n, ok
}

// PrepCode translates a preparation code to its canonical name. A missing
// code means the sample was analysed in situ.
func PrepCode(code any) (string, bool) {
	if code == nil {
		return PrepCodeTable["none"], true
	}
	key := strings.ToLower(strings.TrimSpace(cast.ToString(code)))
	if key == "" {
		key = "none"
	}
	name, ok := PrepCodeTable[key]
	return name, ok
}

// InversePrepCode returns the short code for a canonical preparation name.
func InversePrepCode(name string) (string, bool) {
	code, ok := InversePrepCodeTable[strings.ToLower(name)]
	return code, ok
}

// Indicator returns the canonical indicator name, or the input when the
// table has no entry.
func Indicator(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if name, ok := IndicatorTable[key]; ok {
		return name
	}
	return key
}

// LabAnalysisMethod resolves a method code taken from a file name.
func LabAnalysisMethod(code string) (string, bool) {
	name, ok := LabAnalysisMethodTable[strings.ToLower(code)]
	return name, ok
}
