package schema

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

func ptr(v float64) *float64 { return &v }

func baseRecord() *record.Record {
	return &record.Record{
		PilotCountry:       "dk",
		PilotSite:          "foulum",
		SiteID:             "dk-foulum",
		PointID:            "12",
		SamplingLogID:      "dk-foulum_20240610",
		SampleID:           "dk-foulum_20240610_12_0-20",
		Locus:              "dk-foulum_12",
		MinDepth:           0,
		MaxDepth:           20,
		Subsample:          "a",
		Replicate:          1,
		SamplePreparation:  "dried-sieved",
		SampleDate:         "20240610",
		AnalysisDate:       "20240612",
		StorageDurationH:   48,
		TransportDurationH: 2,
		AnalysisEmail:      "lab@example.org",
		SamplingEmail:      "field@example.org",
		LogisticEmail:      "log@example.org",
		Procedure:          "xspectre-spectra",
		InstrumentBrand:    "xspectre",
		InstrumentModel:    "spectrometer",
		InstrumentID:       "sn-0042",
		AnalysisMethod:     "diffuse reflectance spectroscopy",
		Setting:            "arable",
		PositionName:       "dk-foulum_12",
		Latitude:           56.49,
		Longitude:          9.57,
		NRepetitions:       6,
		Muzzle:             &record.Muzzle{Code: "m7", Formfactor: "cone"},
	}
}

func spectralRecord() *record.Record {
	rec := baseRecord()
	rec.Observation = record.Observation{
		Kind:      record.SingleAnalyte,
		Equipment: "c14384ma-01",
		Spectrum: &record.Spectrum{
			Value:      []float64{0.5, -9999},
			StdDev:     []float64{0.01, -9999},
			Unit:       "reflectance",
			Indicator:  "reflectance",
			ScanTuning: &record.ScanTuning{DarkRepeat: 2, Code: "1_100-0-288"},
			ScanDN: &record.ScanDN{
				SampleMean: []float64{2000, math.NaN()},
				DarkMean:   []float64{100, 100},
			},
			WhiteReferenceFiles: []string{"whiteref_1.json"},
			QC:                  &reflectance.QC{AboveUnity: 1},
		},
	}
	return rec
}

func tabularRecord() *record.Record {
	rec := baseRecord()
	rec.Procedure = "wetlab"
	rec.Muzzle = nil
	m := func(ind, method string, v *float64) record.Measurement {
		return record.Measurement{
			Indicator: ind, Method: method, Value: v, Unit: "%", Procedure: "wetlab",
			AnalysisMethod: "x", InstrumentBrand: "b", InstrumentModel: "m", InstrumentID: "i",
		}
	}
	rec.Observation = record.Observation{
		Kind:      record.IndicatorMap,
		Equipment: "lab",
		Measurements: []record.Measurement{
			m("wetlab_soc", "dumas", ptr(2.1)),
			m("wetlab_ph(water)", "ph-meter", ptr(6.5)),
			m("wetlab_n", "dumas", nil),
		},
	}
	return rec
}

// decode round trips a document through JSON into generic maps.
func decode(t *testing.T, doc any) map[string]any {
	t.Helper()
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func dig(t *testing.T, v any, path ...any) any {
	t.Helper()
	for _, p := range path {
		switch k := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			require.True(t, ok, "expected object at %v", p)
			v, ok = m[k]
			require.True(t, ok, "missing key %s", k)
		case int:
			a, ok := v.([]any)
			require.True(t, ok, "expected array at %v", p)
			require.Greater(t, len(a), k)
			v = a[k]
		}
	}
	return v
}

func TestAssembleAI4SHRecordFieldsReachTree(t *testing.T) {
	t.Parallel()

	rec := spectralRecord()
	doc, err := AssembleAI4SH(rec)
	require.NoError(t, err)
	tree := decode(t, doc)

	ds := dig(t, tree, "data_source", 0)
	assert.Equal(t, "ai4sh_dk-foulum", dig(t, ds, "name"))
	site := dig(t, ds, "site", 0)
	assert.Equal(t, "dk-foulum", dig(t, site, "name"))
	point := dig(t, site, "point", 0)
	assert.Equal(t, "12", dig(t, point, "name"))
	assert.InDelta(t, 56.49, dig(t, point, "latitude"), 1e-9)
	assert.Equal(t, "arable", dig(t, point, "setting"))
	slog := dig(t, point, "sampling_log", 0)
	assert.Equal(t, "dk-foulum_20240610", dig(t, slog, "name"))
	assert.Equal(t, "20240610", dig(t, slog, "date_stamp"))
	assert.Equal(t, "field@example.org", dig(t, slog, "person__email"))
	sample := dig(t, slog, "sample", 0)
	assert.Equal(t, rec.SampleID, dig(t, sample, "name"))
	assert.InDelta(t, 20, dig(t, sample, "max_depth"), 0)

	obs := dig(t, sample, "observation", 0)
	want := map[string]any{
		"sample_preparation__name": "dried-sieved",
		"person__email":            "lab@example.org",
		"subsample":                "a",
		"replicate":                float64(1),
		"n_repeats":                float64(6),
		"date_stamp":               "20240612",
	}
	got := map[string]any{}
	for k := range want {
		got[k] = dig(t, obs, k)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("observation metadata mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 48, dig(t, obs, "logistic", "storage_duration_h"), 0)
	assert.Nil(t, dig(t, obs, "logistic", "sample_storage__name"))

	entry := dig(t, obs, "analysis_method", "xspectre-spectra", 0).(map[string]any)
	assert.NotContains(t, entry, "procedure")
	assert.Equal(t, []any{0.5, -9999.0}, entry["value"])
	assert.Equal(t, "reflectance", entry["indicator__name"])
}

func TestAssembleAI4SHGroupsTabularByMethod(t *testing.T) {
	t.Parallel()

	doc, err := AssembleAI4SH(tabularRecord())
	require.NoError(t, err)

	methods := doc.DataSource[0].Site[0].Point[0].SamplingLog[0].Sample[0].Observation[0].AnalysisMethod
	require.Len(t, methods, 1)
	assert.Equal(t, "lab", methods[0].Key)

	groups := methods[0].Value.([]Object)
	require.Len(t, groups, 1)
	var keys []string
	for _, m := range groups[0] {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"dumas", "ph-meter"}, keys, "methods keep input order")

	dumas, _ := groups[0].Get("dumas")
	entries := dumas.([]Entry)
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0].Procedure)

	b, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"value":null`, "missing values are null")
	assert.Less(t, strings.Index(string(b), `"dumas"`), strings.Index(string(b), `"ph-meter"`))
}

func TestAssembleXspectre(t *testing.T) {
	t.Parallel()

	rec := spectralRecord()
	doc, err := AssembleXspectre(rec, XspectreOptions{})
	require.NoError(t, err)
	tree := decode(t, doc)

	assert.Equal(t, "ai4sh_dk-foulum", tree["campaign"])
	assert.Equal(t, rec.SampleID, tree["sample"])
	wantLocus := map[string]any{
		"position__name": "dk-foulum_12",
		"point":          "12",
		"setting":        "arable",
		"latitude":       56.49,
		"longitude":      9.57,
		"min_depth":      float64(0),
		"max_depth":      float64(20),
	}
	if diff := cmp.Diff(wantLocus, tree["locus"]); diff != "" {
		t.Errorf("locus mismatch (-want +got):\n%s", diff)
	}

	obs := dig(t, tree, "observation").(map[string]any)
	assert.NotContains(t, obs, "metadata")
	assert.NotContains(t, obs, "scan_dn")
	entry := dig(t, obs, "analysis", "reflectance").(map[string]any)
	assert.Equal(t, "xspectre-spectra", entry["procedure"])
}

func TestAssembleXspectreExtendedMetadata(t *testing.T) {
	t.Parallel()

	doc, err := AssembleXspectre(spectralRecord(), XspectreOptions{ExtendedMetadata: true})
	require.NoError(t, err)
	tree := decode(t, doc)

	obs := dig(t, tree, "observation")
	assert.Equal(t, "1_100-0-288", dig(t, obs, "metadata", "spectra_scan_tuning", "scan_tuning__code"))
	assert.InDelta(t, 1, dig(t, obs, "metadata", "error", "n_value_above_unity"), 0)
	assert.Equal(t, "m7", dig(t, obs, "metadata", "muzzle", "code"))
	assert.Equal(t, []any{2000.0, nil}, dig(t, obs, "scan_dn", "sample_mean"), "NaN is written as null")
	assert.Equal(t, []any{"whiteref_1.json"}, dig(t, obs, "white_reference", "white_reference"))

	m := obs.(map[string]any)
	assert.NotContains(t, m["scan_dn"], "dark_standard_deviation")
}

func TestAssembleXspectreIndicatorKeys(t *testing.T) {
	t.Parallel()

	doc, err := AssembleXspectre(tabularRecord(), XspectreOptions{ExtendedMetadata: true})
	require.NoError(t, err)
	var keys []string
	for _, m := range doc.Observation.Analysis {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"wetlab_soc", "wetlab_ph(water)", "wetlab_n"}, keys)
	assert.Nil(t, doc.Observation.Metadata)
}

func TestAssembleErrors(t *testing.T) {
	t.Parallel()

	noSpectrum := spectralRecord()
	noSpectrum.Observation.Spectrum = nil
	noSample := spectralRecord()
	noSample.SampleID = ""
	noObs := baseRecord()
	noEquipment := tabularRecord()
	noEquipment.Observation.Equipment = ""

	tests := []struct {
		name string
		rec  *record.Record
	}{
		{"nil record", nil},
		{"no spectrum", noSpectrum},
		{"no sample id", noSample},
		{"no observation", noObs},
		{"grouped without equipment", noEquipment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := AssembleAI4SH(tt.rec)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			_, err = AssembleXspectre(tt.rec, XspectreOptions{})
			require.Error(t, err)
		})
	}
}

func TestObjectSet(t *testing.T) {
	t.Parallel()

	var o Object
	o.Set("b", 1)
	o.Set("a", 2)
	o.Set("b", 3)
	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":3,"a":2}`, string(b))
	assert.Equal(t, `{"b":3,"a":2}`, string(b))
}
