package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/lookup"
)

const coordinatesCSV = `pilot_country,pilot_site,point_id,latitude,longitude,setting,sampling_log_id
DK,Foulum,12,56.49,9.57,,
DK,Foulum,13,56.50,9.58,Field,dk-foulum_log7
`

func coordinates(t *testing.T) *lookup.CoordinateTable {
	t.Helper()
	tbl, err := lookup.ParseTable([]byte(coordinatesCSV), "coordinates.csv")
	require.NoError(t, err)
	ct, err := lookup.NewCoordinateTable(tbl, lookup.KeyName)
	require.NoError(t, err)
	ct.Source = "coordinates.csv"
	return ct
}

func baseFields() Fields {
	return Fields{
		"pilot_country":             "DK",
		"pilot_site":                "Foulum",
		"point_id":                  "12",
		"min_depth":                 "0",
		"max_depth":                 "20",
		"sample_date":               "20240501",
		"sample_preparation__name":  "mx",
		"subsample":                 "a1",
		"replicate":                 "b",
		"sample_analysis_date":      "20240503",
		"sample_preservation__name": nil,
		"sample_transport__name":    "None",
		"transport_duration_h":      "4",
		"sample_storage__name":      nil,
		"user_analysis__email":      "Lab@Example.org",
		"user_sampling__email":      "field@example.org",
		"user_logistic__email":      "log@example.org",
		"procedure":                 "ISE-pH",
		"instrument_brand__name":    "Hanna",
		"instrument_model__name":    "HI-98",
		"instrument_id":             "7",
		"analysis_method__name":     "ise-ph-5xh2o",
	}
}

func TestTranslationsAreIdempotent(t *testing.T) {
	t.Parallel()

	for code := range SubsampleTable {
		v, ok := Subsample(code)
		require.True(t, ok)
		if v == NoSubsample {
			continue
		}
		again, ok := Subsample(v)
		assert.True(t, ok, "subsample %q", v)
		assert.Equal(t, v, again)
	}
	for code := range PrepCodeTable {
		v, ok := PrepCode(code)
		require.True(t, ok)
		again, ok := PrepCode(v)
		assert.True(t, ok, "prep %q", v)
		assert.Equal(t, v, again)
	}
	for code := range IndicatorTable {
		v := Indicator(code)
		assert.Equal(t, v, Indicator(v), "indicator %q", code)
	}
	for code := range ReplicateTable {
		v, ok := Replicate(code)
		require.True(t, ok)
		again, ok := Replicate(v)
		assert.True(t, ok)
		assert.Equal(t, v, again)
	}
}

func TestTranslations(t *testing.T) {
	t.Parallel()

	s, ok := Subsample("A2")
	assert.True(t, ok)
	assert.Equal(t, "b", s)

	s, ok = Subsample("none")
	assert.True(t, ok)
	assert.Equal(t, NoSubsample, s)

	_, ok = Subsample("zz")
	assert.False(t, ok)

	r, ok := Replicate(10)
	assert.True(t, ok)
	assert.Equal(t, 10, r)

	r, ok = Replicate("k")
	assert.True(t, ok)
	assert.Equal(t, 10, r)

	for _, code := range []any{57, "57", "11", -1, 2.5, nil} {
		_, ok = Replicate(code)
		assert.False(t, ok, "replicate %v", code)
	}

	r, ok = Replicate("c")
	assert.True(t, ok)
	assert.Equal(t, 2, r)

	_, ok = Replicate("nope")
	assert.False(t, ok)

	p, ok := PrepCode(nil)
	assert.True(t, ok)
	assert.Equal(t, "soil-undisturbed-in-situ", p)

	inv, ok := InversePrepCode("dried-sieved-soil-in-lab")
	assert.True(t, ok)
	assert.Equal(t, "dried-sieved", inv)

	assert.Equal(t, "ph(water)", Indicator("pH"))
	assert.Equal(t, "unmapped-indicator", Indicator("Unmapped-Indicator"))

	m, ok := LabAnalysisMethod("TDS-ISO")
	assert.True(t, ok)
	assert.Equal(t, "tds-bipin-5xh2o", m)
}

func TestStorageDurationH(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sample   string
		analysis string
		want     int
		wantErr  bool
	}{
		{name: "two days", sample: "20240501", analysis: "20240503", want: 48},
		{name: "same day", sample: "2024-05-01", analysis: "20240501", want: 0},
		{name: "analysis before sampling floors at zero", sample: "20240510", analysis: "20240501", want: 0},
		{name: "across month", sample: "20240130", analysis: "20240201", want: 48},
		{name: "bad date", sample: "May 1st", analysis: "20240501", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := StorageDurationH(tt.sample, tt.analysis)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	r, err := Finalize(baseFields(), Options{Coordinates: coordinates(t), CoordinatesSrc: "coordinates.csv", ProjectFile: "project.yaml"})
	require.NoError(t, err)

	assert.Equal(t, "dk-foulum", r.SiteID)
	assert.Equal(t, "dk-foulum_20240501", r.SamplingLogID)
	assert.Equal(t, "dk-foulum_20240501_12_0-20", r.SampleID)
	assert.Equal(t, "dk-foulum_12", r.Locus)
	assert.Equal(t, "a", r.Subsample)
	assert.Equal(t, 1, r.Replicate)
	assert.Equal(t, "mixed-untreated-soil-in-lab", r.SamplePreparation)
	assert.Equal(t, 48, r.StorageDurationH)
	assert.Equal(t, 4, r.TransportDurationH)
	assert.Equal(t, "lab@example.org", r.AnalysisEmail)
	assert.Equal(t, "ise-ph", r.Procedure)
	assert.Equal(t, "hi-98", r.InstrumentModel)
	assert.Equal(t, "uniform", r.Setting)
	assert.Equal(t, "dk-foulum_12", r.PositionName)
	assert.InDelta(t, 56.49, r.Latitude, 1e-9)
	assert.Nil(t, r.Preservation)
	assert.Nil(t, r.Transport)
	assert.Nil(t, r.Muzzle)
	assert.Equal(t, 1, r.NRepetitions)
}

func TestFinalizeUsesCoordinateExtras(t *testing.T) {
	t.Parallel()

	f := baseFields()
	f["point_id"] = "13"
	f["muzzle_code"] = "M2"
	f["muzzle_formfactor"] = "Cone"

	r, err := Finalize(f, Options{Coordinates: coordinates(t)})
	require.NoError(t, err)
	assert.Equal(t, "dk-foulum_log7", r.SamplingLogID)
	assert.Equal(t, "dk-foulum_log7_13_0-20", r.SampleID)
	assert.Equal(t, "field", r.Setting)
	require.NotNil(t, r.Muzzle)
	assert.Equal(t, Muzzle{Code: "m2", Formfactor: "cone"}, *r.Muzzle)
}

func TestFinalizeSameDayAnalysis(t *testing.T) {
	t.Parallel()

	f := baseFields()
	f["sample_analysis_date"] = "20240420"
	r, err := Finalize(f, Options{Coordinates: coordinates(t)})
	require.NoError(t, err)
	assert.Equal(t, 0, r.StorageDurationH)
	assert.Equal(t, "20240501", r.AnalysisDate)
}

func TestFinalizeEOData(t *testing.T) {
	t.Parallel()

	f := baseFields()
	f["procedure"] = ProcedureEOData
	f["sample_date"] = "not a date"
	r, err := Finalize(f, Options{Coordinates: coordinates(t)})
	require.NoError(t, err)
	assert.Equal(t, "0", r.SampleDate)
	assert.Equal(t, 0, r.StorageDurationH)
}

func TestFinalizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(Fields)
		opts     Options
		category errors.ErrorCategory
		contains string
		sentinel error
	}{
		{
			name:     "locus not in coordinates",
			mutate:   func(f Fields) { f["point_id"] = "99" },
			category: errors.CategoryNotFound,
			contains: "locus not found in coordinate table: dk-foulum_99",
		},
		{
			name:     "missing compulsory field",
			mutate:   func(f Fields) { delete(f, "user_logistic__email") },
			category: errors.CategoryValidation,
			contains: "compulsory data not found: user_logistic__email",
		},
		{
			name:     "unknown subsample",
			mutate:   func(f Fields) { f["subsample"] = "q9" },
			category: errors.CategoryNotFound,
			contains: "subsample id not recognised",
		},
		{
			name:     "no subsample",
			mutate:   func(f Fields) { f["subsample"] = "none" },
			category: errors.CategoryValidation,
			sentinel: ErrNoSubsample,
		},
		{
			name:     "unknown replicate",
			mutate:   func(f Fields) { f["replicate"] = "zz" },
			category: errors.CategoryNotFound,
			contains: "replicate id not recognised",
		},
		{
			name:     "unknown preparation",
			mutate:   func(f Fields) { f["sample_preparation__name"] = "frozen" },
			category: errors.CategoryNotFound,
			contains: "sample preparation name not recognised",
		},
		{
			name:     "depth order",
			mutate:   func(f Fields) { f["min_depth"] = "30" },
			opts:     Options{CheckDepthOrder: true},
			category: errors.CategoryValidation,
			contains: "invalid depth interval 30-20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := baseFields()
			tt.mutate(f)
			opts := tt.opts
			opts.Coordinates = coordinates(t)
			opts.ProjectFile = "project.yaml"

			_, err := Finalize(f, opts)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "category of %v", err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestFinalizeDepthOrderUnchecked(t *testing.T) {
	t.Parallel()

	f := baseFields()
	f["min_depth"] = "30"
	r, err := Finalize(f, Options{Coordinates: coordinates(t)})
	require.NoError(t, err)
	assert.Equal(t, "dk-foulum_20240501_12_30-20", r.SampleID)
}

func TestJobDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	console := logger.NewConsole(&buf, 1, nil)
	job := &conf.Job{
		PilotCountry: "DK",
		PilotSite:    "Foulum",
		Procedure:    "ISE-pH",
		Defaults: map[string]any{
			"sample_storage__name": "Fridge",
			"replicate":            2,
		},
	}

	d := JobDefaults(job, console)
	assert.Equal(t, "dk", d["pilot_country"])
	assert.Equal(t, "fridge", d["sample_storage__name"])
	assert.Equal(t, 2, d["replicate"])
	assert.Equal(t, "a", d["subsample"])
	assert.Equal(t, 0, d["transport_duration_h"])
	assert.True(t, d.Present("sample_transport__name"))
	assert.Nil(t, d["sample_transport__name"])

	out := buf.String()
	assert.Contains(t, out, "assuming default value <none> for parameter <sample_transport__name>")
	assert.Contains(t, out, "assuming default value <a> for parameter <subsample>")
	assert.NotContains(t, out, "parameter <replicate>")
	assert.NotContains(t, out, "parameter <sample_storage__name>")
}

func TestFieldsFromRow(t *testing.T) {
	t.Parallel()

	header := CleanHeader([]string{" Point_ID ", "NA", "Subsample", "Depth"})
	f := FromRow(header, []string{"P1", "ignored", "None", ""})
	assert.Equal(t, Fields{"point_id": "p1", "subsample": "none"}, f)
	assert.False(t, f.Has("subsample"))
	assert.True(t, f.Present("subsample"))
	assert.False(t, f.Present("depth"))
}

func TestInstrument(t *testing.T) {
	t.Parallel()

	spectral := &Record{InstrumentModel: "c12880", InstrumentID: "s1", Observation: Observation{Kind: SingleAnalyte}}
	model, id := spectral.Instrument()
	assert.Equal(t, "c12880", model)
	assert.Equal(t, "s1", id)

	mixed := &Record{Observation: Observation{Kind: IndicatorMap, Measurements: []Measurement{
		{Indicator: "ph(water)", InstrumentModel: "hi-98", InstrumentID: "1"},
		{Indicator: "electrical-conductivity", InstrumentModel: "gx16", InstrumentID: "2"},
	}}}
	model, id = mixed.Instrument()
	assert.Equal(t, "multiple", model)
	assert.Equal(t, "multiple", id)

	shared := &Record{Procedure: "wetlab", Observation: Observation{Kind: IndicatorMap, Measurements: []Measurement{
		{Indicator: "clay(<0.002mm)", InstrumentModel: "0", InstrumentID: "0"},
		{Indicator: "sand(0.05-2mm)", InstrumentModel: "0", InstrumentID: "0"},
	}}}
	model, id = shared.Instrument()
	assert.Equal(t, "wetlab", model)
	assert.Equal(t, "0", id)
	assert.Equal(t, []string{"clay(<0.002mm)", "sand(0.05-2mm)"}, shared.Observation.Indicators())
}
