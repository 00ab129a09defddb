package normalize

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/lookup"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

const coordinatesCSV = `pilot_country,pilot_site,point_id,latitude,longitude,setting
dk,foulum,12-a,56.49,9.57,arable
dk,foulum,13-a,56.50,9.58,arable
dk,foulum,f-12,56.51,9.59,grassland
dk,foulum,366-c5,56.52,9.60,arable
rs,neretva,12-a,43.02,17.45,orchard
`

const methodsCSV = `header,parameter,unit,method,equipment,equipment_model,equipment_id
sample_id,sample_id,none,none,none,none,none
subsample,subsample,none,none,none,none,none
min_depth,min_depth,none,none,none,none,none
max_depth,max_depth,none,none,none,none,none
soc,soc,g/kg,dumas,lab,elementar_max,unknown
ph,ph,ph,ise-ph,lab,unknown,null
`

func ptr(v float64) *float64 { return &v }

func coordinates(t *testing.T) *lookup.CoordinateTable {
	t.Helper()
	table, err := lookup.ParseTable([]byte(coordinatesCSV), "coordinates.csv")
	require.NoError(t, err)
	ct, err := lookup.NewCoordinateTable(table, lookup.KeyName)
	require.NoError(t, err)
	return ct
}

func methods(t *testing.T) *lookup.MethodTable {
	t.Helper()
	table, err := lookup.ParseTable([]byte(methodsCSV), "methods.csv")
	require.NoError(t, err)
	mt, err := lookup.NewMethodTable(table)
	require.NoError(t, err)
	mt.Source = "methods.csv"
	return mt
}

func testJob(format, country, site, procedure string) *conf.Job {
	return &conf.Job{
		Name:            site + "-" + procedure,
		Format:          format,
		PilotCountry:    country,
		PilotSite:       site,
		Procedure:       procedure,
		DataSrc:         "/data",
		Dst:             "/out/" + site,
		InstrumentBrand: "lab",
		InstrumentModel: "lab-model",
		InstrumentID:    "7",
		AnalysisMethod:  "lab-analysis",
		Defaults: map[string]any{
			"sample_date":               "20240610",
			"sample_analysis_date":      "20240612",
			"sample_preparation__name":  "ds",
			"sample_preservation__name": "cooled",
			"sample_transport__name":    "car",
			"sample_storage__name":      "fridge",
			"transport_duration_h":      2,
			"user_analysis__email":      "lab@example.org",
			"user_sampling__email":      "field@example.org",
			"user_logistic__email":      "logistic@example.org",
		},
	}
}

func newContext(t *testing.T, fs afero.Fs, job *conf.Job, out *bytes.Buffer) *Context {
	t.Helper()
	return NewContext(fs, job, logger.NewConsole(out, 1, nil), record.Options{
		Coordinates:     coordinates(t),
		CoordinatesSrc:  "coordinates.csv",
		ProjectFile:     "project.yaml",
		CheckDepthOrder: true,
	})
}

func TestTabular(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/lab.csv", []byte(
		"Sample_ID,Subsample,Min_Depth,Max_Depth,SOC,pH\n"+
			"12 A,a,0,20,\"2,5\",na\n"+
			"13 A,none,0,20,3.1,6.2\n"), 0o644))

	var out bytes.Buffer
	c := newContext(t, fs, testJob(conf.FormatAI4SHCSV, "dk", "foulum", "wetlab"), &out)
	n, err := NewTabular(c, methods(t))
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/lab.csv")
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	require.Len(t, b.Skipped, 1)
	assert.Contains(t, out.String(), "Skipping sample <13 a> as subsample is set to None")

	rec := b.Records[0]
	assert.Equal(t, "12-a", rec.PointID)
	assert.Equal(t, "dk-foulum_20240610_12-a_0-20", rec.SampleID)
	assert.Equal(t, 1, rec.NRepetitions)
	assert.Equal(t, 48, rec.StorageDurationH)
	assert.Equal(t, record.IndicatorMap, rec.Observation.Kind)
	assert.Equal(t, "wetlab", rec.Observation.Equipment)

	assert.Equal(t, []record.Measurement{
		{
			Indicator:       "wetlab_soil-organic-carbon",
			Method:          "dumas",
			Value:           ptr(2.5),
			Unit:            "g/kg",
			Procedure:       "wetlab",
			AnalysisMethod:  "dumas-soc",
			InstrumentBrand: "dumas-soc",
			InstrumentModel: "elementar_max",
			InstrumentID:    "7",
		},
		{
			Indicator:       "wetlab_ph(water)",
			Method:          "ise-ph",
			Unit:            "ph",
			Procedure:       "wetlab",
			AnalysisMethod:  "ise-ph-ph",
			InstrumentBrand: "ise-ph-ph",
			InstrumentModel: "lab-model",
			InstrumentID:    "7",
		},
	}, rec.Observation.Measurements)
}

func TestTabularSingleMethodInstrument(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/slakes.csv", []byte(
		"sample_id,min_depth,max_depth,soc\n12 a,0,20,1.5\n"), 0o644))

	var out bytes.Buffer
	c := newContext(t, fs, testJob(conf.FormatAI4SHCSV, "dk", "foulum", "slakes"), &out)
	n, err := NewTabular(c, methods(t))
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/slakes.csv")
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	m := b.Records[0].Observation.Measurements[0]
	assert.Equal(t, "slakes", m.AnalysisMethod)
	assert.Equal(t, "lab", m.InstrumentBrand)
	assert.Equal(t, "lab-model", m.InstrumentModel)
	assert.Equal(t, "7", m.InstrumentID)
}

func TestTabularSetupErrors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/lab.csv", []byte(
		"sample_id,min_depth,max_depth,clay\n12 a,0,20,15\n"), 0o644))

	var out bytes.Buffer
	c := newContext(t, fs, testJob(conf.FormatAI4SHCSV, "dk", "foulum", "wetlab"), &out)

	_, err := NewTabular(c, nil)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	n, err := NewTabular(c, methods(t))
	require.NoError(t, err)
	_, err = n.Normalize(context.Background(), "/data/lab.csv")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	var missing *lookup.MissingHeaderError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "clay", missing.Header)
	assert.Contains(t, out.String(), "Check the header definition file: methods.csv")
}

func TestSpectralDS2500(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/ds2500.csv", []byte(
		"sample_id,400,402,404\n"+
			"F_12_ds_1_t,0,\"0,5\",1\n"+
			"F_12_ds_2_t,0,x,1\n"+
			"bogus,0,0,0\n"), 0o644))

	var out bytes.Buffer
	job := testJob(conf.FormatDS2500CSV, "dk", "foulum", "ds2500")
	job.InstrumentModel = "ds_2500"
	c := newContext(t, fs, job, &out)
	n, err := NewSpectral(c, DS2500)
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/ds2500.csv")
	require.NoError(t, err)
	require.Len(t, b.Records, 1)
	assert.Len(t, b.Skipped, 2)

	rec := b.Records[0]
	assert.Equal(t, "f-12", rec.PointID)
	assert.Equal(t, 1, rec.Replicate)
	assert.Equal(t, "dried-sieved-soil-in-lab", rec.SamplePreparation)
	assert.Equal(t, 3, rec.NRepetitions)
	assert.Equal(t, "grassland", rec.Setting)

	s := rec.Observation.Spectrum
	require.NotNil(t, s)
	assert.Equal(t, record.SingleAnalyte, rec.Observation.Kind)
	assert.Equal(t, []float64{400, 402, 404}, s.Wavelengths)
	assert.InDeltaSlice(t, []float64{1, math.Exp(-0.5), math.Exp(-1)}, s.Value, 1e-12)
	assert.Equal(t, "reflectance", s.Indicator)
}

func TestSpectralNeoSpectra(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/neo.csv", []byte(
		"Sample Name,Created At (UTC),Device ID,Note,2550,1950,1350\n"+
			"12-A_0-20_1,2024-06-12T09:30:00Z,NS-17,,50,40,\"30,0\"\n"+
			"12-A_0-20_1,2024-06-12T09:31:00Z,NS-17,,50,40\n"), 0o644))

	var out bytes.Buffer
	job := testJob(conf.FormatNeoSpectraCSV, "dk", "foulum", "neospectra")
	c := newContext(t, fs, job, &out)
	n, err := NewSpectral(c, NeoSpectra)
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/neo.csv")
	require.NoError(t, err)
	require.Len(t, b.Records, 1, out.String())
	require.Len(t, b.Skipped, 1, "short rows are skipped")

	rec := b.Records[0]
	assert.Equal(t, "12-a", rec.PointID)
	assert.Equal(t, 0, rec.MinDepth)
	assert.Equal(t, 20, rec.MaxDepth)
	assert.Equal(t, 1, rec.Replicate)
	assert.Equal(t, "20240612", rec.AnalysisDate)
	assert.Equal(t, "ns-17", rec.InstrumentID)
	assert.Equal(t, 3, rec.NRepetitions)

	s := rec.Observation.Spectrum
	require.NotNil(t, s)
	assert.Equal(t, []float64{2550, 1950, 1350}, s.Wavelengths)
	assert.InDeltaSlice(t, []float64{0.5, 0.4, 0.3}, s.Value, 1e-12)

	grid := n.Instrument().Grid
	resampled, err := grid.Resample(s.Wavelengths, s.Value)
	require.NoError(t, err)
	require.Len(t, resampled, len(grid.Points()))
	assert.InDelta(t, 0.3, resampled[0], 1e-12)
	assert.InDelta(t, 0.35, resampled[150], 1e-12, "1650 nm lies halfway between 1350 and 1950")
	assert.InDelta(t, 0.5, resampled[len(resampled)-1], 1e-12)
}

func TestSpectralUnknownSite(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := newContext(t, afero.NewMemMapFs(), testJob(conf.FormatNeoSpectraCSV, "xx", "nowhere", "neospectra"), &out)
	_, err := NewSpectral(c, NeoSpectra)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryJobSetup))
}

func TestWavelengths(t *testing.T) {
	t.Parallel()

	wl, err := Wavelengths([]string{"sample name", "created at (utc)", "device id", "x", "2550.5", " 2548 "}, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{2550.5, 2548}, wl)

	_, err = Wavelengths([]string{"sample_id"}, 1)
	require.Error(t, err)
	_, err = Wavelengths([]string{"sample_id", "nm"}, 1)
	require.Error(t, err)
}

const sensingJSON = `{
  "campaignshortid": "ai4sh_rs_neretva_2024",
  "scandate": "20240612",
  "sampling": {"sampledate": "20240610", "prepcode": "mx"},
  "sensorid": "gx16",
  "sensing": {"ec": {"sensingunit": "mS/m", "mean": 12.5, "std": 0.5}}
}`

func TestDeviceSensing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := "/data/12A_0-20_tds-iso_x.json"
	require.NoError(t, afero.WriteFile(fs, path, []byte(sensingJSON), 0o644))

	var out bytes.Buffer
	job := testJob(conf.FormatXspectreJSON, "rs", "neretva", "xspectre-gx16-ec")
	job.InstrumentBrand = "xspectre"
	job.InstrumentModel = "gx16"
	delete(job.Defaults, "sample_date")
	c := newContext(t, fs, job, &out)
	n, err := NewDevice(c, nil, ReflectanceOptions{})
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, b.Records, 1, out.String())

	rec := b.Records[0]
	assert.Equal(t, "12-a", rec.PointID)
	assert.Equal(t, "20240610", rec.SampleDate)
	assert.Equal(t, "dried-sieved-soil-in-lab", rec.SamplePreparation, "job value wins over the device")
	assert.Nil(t, rec.Preservation, "device logistics are fixed")
	assert.Equal(t, "tds-bipin-5xh2o", rec.AnalysisMethod)
	assert.Equal(t, "0", rec.InstrumentID)

	require.Len(t, rec.Observation.Measurements, 1)
	m := rec.Observation.Measurements[0]
	assert.Equal(t, "xspectre-gx16-ec_electrical-conductivity", m.Indicator)
	assert.Equal(t, "ms/m", m.Unit)
	assert.Equal(t, ptr(12.5), m.Value)
	assert.Equal(t, ptr(0.5), m.StdDev)
	assert.Equal(t, "gx16", m.InstrumentModel)
}

func spectrumJSON(sample string) string {
	return `{
  "campaignshortid": "ai4sh_dk_foulum_2024",
  "scandate": "20240612",
  "sampling": {"sampledate": "20240610", "prepcode": "ds"},
  "sensor-serialnr": "SN_42",
  "muzzleid": "m7",
  "formfactor": "cone",
  "sensor": {"c14384ma-01": {"samplerepeats": 8, "maxDN": 60000}},
  "samplemean": ` + sample + `,
  "samplestd": [0, 0, 0],
  "darkmean": [100, 100, 100],
  "darkstd": [0, 0, 0]
}`
}

func TestDeviceSpectrum(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	dir := "/data/DK-AI4SH-2024-DS"
	ref := dir + "/whiteref_1.json"
	sample := dir + "/366_C5_COMPTOP_A.json"
	require.NoError(t, afero.WriteFile(fs, ref, []byte(spectrumJSON("[3000, 3000, 3000]")), 0o644))
	require.NoError(t, afero.WriteFile(fs, sample, []byte(spectrumJSON("[1550, 1550, 1550]")), 0o644))
	now := time.Now()
	require.NoError(t, fs.Chtimes(ref, now, now.Add(-time.Minute)))

	var out bytes.Buffer
	job := testJob(conf.FormatXspectreJSON, "dk", "foulum", "xspectre-spectra")
	job.InstrumentModel = ""
	job.InstrumentID = ""
	job.AnalysisMethod = ""
	c := newContext(t, fs, job, &out)

	pool, err := LoadReferencePool(c, []string{ref})
	require.NoError(t, err)
	n, err := NewDevice(c, pool, ReflectanceOptions{Strategy: reflectance.StrategyNearest})
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, b.Records, "white references are not samples")

	b, err = n.Normalize(context.Background(), sample)
	require.NoError(t, err)
	require.Len(t, b.Records, 1, out.String())

	rec := b.Records[0]
	assert.Equal(t, "366-c5", rec.PointID)
	assert.Equal(t, 8, rec.NRepetitions)
	assert.Equal(t, "sn_42", rec.InstrumentID)
	assert.Equal(t, "c14384ma-01", rec.InstrumentModel)
	assert.Equal(t, SpectraAnalysisMethod, rec.AnalysisMethod)
	require.NotNil(t, rec.Muzzle)
	assert.Equal(t, record.Muzzle{Code: "m7", Formfactor: "cone"}, *rec.Muzzle)

	s := rec.Observation.Spectrum
	require.NotNil(t, s)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, s.Value, 1e-12)
	assert.Equal(t, []string{"whiteref_1.json"}, s.WhiteReferenceFiles)
	require.NotNil(t, s.QC)
	assert.Zero(t, s.QC.Total())
	require.NotNil(t, s.ScanDN)
	assert.Equal(t, []float64{1550, 1550, 1550}, s.ScanDN.SampleMean)
}

func TestDeviceSetupAndSkips(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var out bytes.Buffer
	job := testJob(conf.FormatXspectreJSON, "dk", "foulum", "xspectre-spectra")
	c := newContext(t, fs, job, &out)

	_, err := NewDevice(c, nil, ReflectanceOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err), "spectral jobs need white references")

	pool, err := LoadReferencePool(c, nil)
	require.NoError(t, err)
	assert.Nil(t, pool)
	_, err = LoadReferencePool(c, []string{"/data/whiteref_missing.json"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	// A file name outside the site convention is skipped, not fatal.
	ref := "/data/DK-AI4SH-2024-DS/whiteref_1.json"
	require.NoError(t, afero.WriteFile(fs, ref, []byte(spectrumJSON("[3000, 3000, 3000]")), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/DK-AI4SH-2024-DS/calibration.json", []byte(spectrumJSON("[1, 1, 1]")), 0o644))
	pool, err = LoadReferencePool(c, []string{ref})
	require.NoError(t, err)
	n, err := NewDevice(c, pool, ReflectanceOptions{})
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/DK-AI4SH-2024-DS/calibration.json")
	require.NoError(t, err)
	assert.Empty(t, b.Records)
	require.Len(t, b.Skipped, 1)
	assert.Contains(t, out.String(), "Skipping calibration.json")
}

func TestLocusNotFound(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/lab.csv", []byte(
		"sample_id,min_depth,max_depth,soc\n99 z,0,20,1.5\n"), 0o644))

	var out bytes.Buffer
	c := newContext(t, fs, testJob(conf.FormatAI4SHCSV, "dk", "foulum", "wetlab"), &out)
	n, err := NewTabular(c, methods(t))
	require.NoError(t, err)

	b, err := n.Normalize(context.Background(), "/data/lab.csv")
	require.NoError(t, err)
	assert.Empty(t, b.Records)
	require.Len(t, b.Skipped, 1)
	assert.True(t, errors.IsNotFound(b.Skipped[0].Err))
	assert.Contains(t, out.String(), "❌ ERROR - locus not found in coordinate table: dk-foulum_99-z")
}

func TestNormalizeCancelled(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/lab.csv", []byte(
		"sample_id,min_depth,max_depth,soc\n12 a,0,20,1.5\n"), 0o644))

	var out bytes.Buffer
	c := newContext(t, fs, testJob(conf.FormatAI4SHCSV, "dk", "foulum", "wetlab"), &out)
	n, err := New(c, Dependencies{Methods: methods(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Normalize(ctx, "/data/lab.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
