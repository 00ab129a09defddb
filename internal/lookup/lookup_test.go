package lookup

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/soilnorm/internal/errors"
)

const methodCSV = "\uFEFFheader,parameter,unit,method,equipment,equipment_model\n" +
	"Sample_ID,sample_id,none,none,none,none\n" +
	"pH,ph,ph,ph-h2o,lab-wet,WTW 3110\n" +
	"EC,ec,us/cm,ec-h2o,lab-wet,WTW 3110\n" +
	"TOC,toc,%,combustion,lab-wet,NA\n"

const coordinatesCSV = "pilot_country,pilot_site,point_id,locus,position_name,setting,latitude,longitude\n" +
	"GR,Ktima-Gerovassiliou,1,gr-ktima-gerovassiliou_1,Row A,Vineyard,40.46,22.91\n" +
	"GR,Ktima-Gerovassiliou,2,gr-ktima-gerovassiliou_2,Row B,Vineyard,40.47,22.92\n"

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestLoadMethodTable(t *testing.T) {
	t.Parallel()

	mt, err := LoadMethodTable(memFs(t, map[string]string{"m.csv": methodCSV}), "m.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"sample_id", "ph", "ec", "toc"}, mt.Headers)
	assert.Equal(t, "ph-h2o", mt.Method["ph"])
	assert.Equal(t, "wtw 3110", mt.EquipmentModel["ec"])
	assert.Equal(t, None, mt.EquipmentModel["toc"], "null-like cells become none")
	assert.Equal(t, Unknown, mt.EquipmentID["ph"], "absent optional column defaults to unknown")
}

func TestLoadMethodTableFailures(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{"bad.csv": "header,parameter,unit\nph,ph,ph\n"})

	_, err := LoadMethodTable(fs, "bad.csv")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, err = LoadMethodTable(fs, "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestDistill(t *testing.T) {
	t.Parallel()

	mt, err := LoadMethodTable(memFs(t, map[string]string{"m.csv": methodCSV}), "m.csv")
	require.NoError(t, err)

	d, err := mt.Distill([]string{"sample_id", "PH ", "ec"})
	require.NoError(t, err)

	assert.Equal(t, "sample_id", d.Parameter["sample_id"])
	assert.NotContains(t, d.Method, "sample_id", "none entries are dropped")
	assert.NotContains(t, d.Method, "toc", "columns absent from the data file are dropped")
	assert.Len(t, d.Method, 2)
	require.NoError(t, d.CheckConsistency())

	eq, err := d.SingleEquipment()
	require.NoError(t, err)
	assert.Equal(t, "lab-wet", eq)

	_, err = mt.Distill([]string{"ph", "clay"})
	require.Error(t, err)
	var mh *MissingHeaderError
	require.ErrorAs(t, err, &mh)
	assert.Equal(t, "clay", mh.Header)
	assert.True(t, errors.IsFatal(err))
}

func TestCheckConsistency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      map[string]string
		equipment   map[string]string
		unit        map[string]string
		wantKey     string
		wantMissing string
	}{
		{
			name:      "closed triangle",
			method:    map[string]string{"ph": "m"},
			equipment: map[string]string{"ph": "e"},
			unit:      map[string]string{"ph": "u"},
		},
		{
			name:        "in method and equipment but not unit",
			method:      map[string]string{"ph": "m", "ec": "m"},
			equipment:   map[string]string{"ph": "e", "ec": "e"},
			unit:        map[string]string{"ph": "u"},
			wantKey:     "ec",
			wantMissing: "unit",
		},
		{
			name:        "method key without equipment",
			method:      map[string]string{"toc": "m"},
			equipment:   map[string]string{},
			unit:        map[string]string{"toc": "u"},
			wantKey:     "toc",
			wantMissing: "equipment",
		},
		{
			name:        "unit key without method",
			method:      map[string]string{},
			equipment:   map[string]string{},
			unit:        map[string]string{"clay": "%"},
			wantKey:     "clay",
			wantMissing: "method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := CheckConsistency(tt.method, tt.equipment, tt.unit)
			if tt.wantKey == "" {
				require.NoError(t, err)
				return
			}
			var ce *ConsistencyError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantKey, ce.Key)
			assert.Equal(t, tt.wantMissing, ce.MissingFrom)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestSingleEquipmentRejectsMixed(t *testing.T) {
	t.Parallel()

	mt := &MethodTable{Equipment: map[string]string{"ph": "lab-wet", "clay": "sedigraph"}}
	_, err := mt.SingleEquipment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singular equipment")
}

func TestCoordinateTableKeyModes(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{"c.csv": coordinatesCSV})

	for _, mode := range []string{KeyLegacy, KeyName} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()
			ct, err := LoadCoordinateTable(fs, "c.csv", mode)
			require.NoError(t, err)
			assert.Equal(t, 2, ct.Len())

			c, ok := ct.Lookup(Locus("GR", "ktima-gerovassiliou", "2"))
			require.True(t, ok)
			assert.InDelta(t, 40.47, c.Latitude, 1e-9)
			assert.InDelta(t, 22.92, c.Longitude, 1e-9)
			assert.Equal(t, "vineyard", c.Setting)
			assert.Equal(t, "row b", c.PositionName)

			_, ok = ct.Lookup("gr-ktima-gerovassiliou_99")
			assert.False(t, ok)
		})
	}
}

func TestCoordinateTableFailures(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{
		"empty.csv":  "pilot_country,pilot_site,point_id,locus,latitude,longitude\n",
		"badlat.csv": "pilot_country,pilot_site,point_id,locus,latitude,longitude\ngr,k,1,gr-k_1,north,22\n",
	})

	for _, path := range []string{"empty.csv", "badlat.csv", "absent.csv"} {
		_, err := LoadCoordinateTable(fs, path, KeyName)
		require.Error(t, err, path)
		assert.True(t, errors.IsFatal(err), path)
	}
}

func TestCacheMemoises(t *testing.T) {
	t.Parallel()

	fs := memFs(t, map[string]string{"c.csv": coordinatesCSV, "m.csv": methodCSV})
	c := NewCache(fs)

	first, err := c.CoordinateTable("c.csv", KeyName)
	require.NoError(t, err)
	require.NoError(t, fs.Remove("c.csv"))

	second, err := c.CoordinateTable("c.csv", KeyName)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = c.MethodTable("m.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	c.Flush()
	_, err = c.CoordinateTable("c.csv", KeyName)
	require.Error(t, err)
}
