package output

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/record"
)

func testRecord() *record.Record {
	return &record.Record{
		PilotSite:         "foulum",
		SampleID:          "dk-foulum_20240610_12_0-20",
		Subsample:         "a",
		Replicate:         2,
		Setting:           "arable",
		SamplePreparation: "dried-sieved-soil-in-lab",
		Procedure:         "xspectre-spectra",
		InstrumentModel:   "c14384_ma",
		InstrumentID:      "sn_42",
		AnalysisDate:      "20240612",
		Muzzle:            &record.Muzzle{Code: "m7", Formfactor: "cone"},
		Observation:       record.Observation{Kind: record.SingleAnalyte},
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	rec := testRecord()
	ms := func(models ...string) []record.Measurement {
		out := make([]record.Measurement, 0, len(models))
		for _, m := range models {
			out = append(out, record.Measurement{InstrumentModel: m, InstrumentID: "id_1"})
		}
		return out
	}

	tests := []struct {
		name  string
		tree  string
		edit  func(r *record.Record)
		wants string
	}{
		{
			name:  "ai4sh",
			tree:  TreeAI4SH,
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_c14384-ma_sn-42_20240612.json",
		},
		{
			name:  "xspectre adds the muzzle",
			tree:  TreeXspectre,
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_c14384-ma_sn-42_m7_cone_20240612.json",
		},
		{
			name:  "xspectre without muzzle",
			tree:  TreeXspectre,
			edit:  func(r *record.Record) { r.Muzzle = nil },
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_c14384-ma_sn-42_20240612.json",
		},
		{
			name: "indicator map with one shared model",
			tree: TreeAI4SH,
			edit: func(r *record.Record) {
				r.Muzzle = nil
				r.Observation = record.Observation{Kind: record.IndicatorMap, Measurements: ms("lab", "lab")}
			},
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_lab_id-1_20240612.json",
		},
		{
			name: "indicator map with mixed models",
			tree: TreeAI4SH,
			edit: func(r *record.Record) {
				r.Observation = record.Observation{Kind: record.IndicatorMap, Measurements: ms("lab", "probe")}
			},
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_multiple_multiple_20240612.json",
		},
		{
			name: "model 0 is replaced by the procedure",
			tree: TreeAI4SH,
			edit: func(r *record.Record) {
				r.Observation = record.Observation{Kind: record.IndicatorMap, Measurements: ms("0", "0")}
			},
			wants: "dk-foulum_20240610_12_0-20_a_2_arable_dried-sieved_xspectre-spectra_id-1_20240612.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := *rec
			if tt.edit != nil {
				tt.edit(&r)
			}
			got, err := FileName(&r, tt.tree)
			require.NoError(t, err)
			assert.Equal(t, tt.wants, got)
		})
	}
}

func TestFileNameUnknownPrep(t *testing.T) {
	t.Parallel()

	rec := testRecord()
	rec.SamplePreparation = "frozen"
	_, err := FileName(rec, TreeAI4SH)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestLayout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	l := NewLayout(fs, "/out/neretva-spectra")
	assert.Equal(t, filepath.Join("/out", "ai4sh", "neretva-spectra"), l.Dir(TreeAI4SH))
	assert.Equal(t, filepath.Join("/out", "ossl", "neretva-spectra"), l.Dir(TreeOSSL))

	for _, tree := range []string{TreeAI4SH, TreeXspectre, TreeOSSL} {
		dir, err := l.Ensure(tree)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "x.json"), []byte("{}"), 0o644))
	}
	require.NoError(t, afero.WriteFile(fs, "/out/ai4sh/other-job/keep.json", []byte("{}"), 0o644))

	require.NoError(t, l.Clean())
	for _, tree := range []string{TreeAI4SH, TreeXspectre, TreeOSSL} {
		exists, err := afero.DirExists(fs, l.Dir(tree))
		require.NoError(t, err)
		assert.False(t, exists, tree)
	}
	exists, err := afero.Exists(fs, "/out/ai4sh/other-job/keep.json")
	require.NoError(t, err)
	assert.True(t, exists, "other jobs are left alone")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	w := NewWriter(fs, NewLayout(fs, "/out/foulum"), logger.NewConsole(&out, 2, nil))

	path, err := w.WriteJSON(TreeXspectre, testRecord(), map[string]any{"campaign": "ai4sh_dk-foulum"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "xspectre", "foulum"), filepath.Dir(path))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"campaign\": \"ai4sh_dk-foulum\"\n}", string(data))
	assert.Contains(t, out.String(), "✅ xspectre Json post created successfully")
}

func TestWriteJSONFailure(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	var out bytes.Buffer
	w := NewWriter(fs, NewLayout(fs, "/out/foulum"), logger.NewConsole(&out, 0, nil))

	_, err := w.WriteJSON(TreeAI4SH, testRecord(), map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryOutput))
	assert.Contains(t, out.String(), "❌ ai4sh Json post creation failed")
}
