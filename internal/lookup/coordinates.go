package lookup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/errors"
)

// Coordinate table join modes, mirrored from conf.
const (
	KeyLegacy = "legacy"
	KeyName   = "name"
)

// legacyLocusColumn is the column holding the locus in legacy tables.
const legacyLocusColumn = 3

// Coordinate is one row of the coordinate table.
type Coordinate struct {
	Latitude     float64
	Longitude    float64
	Setting      string
	PositionName string
	// Extra holds every other column, keyed by lower-cased header.
	Extra map[string]string
}

// CoordinateTable maps a locus ("country-site_point") to its coordinate.
type CoordinateTable struct {
	entries map[string]Coordinate
	Source  string
}

// Locus composes the coordinate table key.
func Locus(country, site, point string) string {
	return strings.ToLower(fmt.Sprintf("%s-%s_%s", country, site, point))
}

// LoadCoordinateTable reads a coordinate CSV. An absent, unreadable or
// empty file is a setup error.
func LoadCoordinateTable(fs afero.Fs, path, keyMode string) (*CoordinateTable, error) {
	t, err := ReadTable(fs, path)
	if err != nil {
		return nil, errors.SetupError(err, "lookup")
	}
	ct, err := NewCoordinateTable(t, keyMode)
	if err != nil {
		return nil, err
	}
	ct.Source = path
	return ct, nil
}

// NewCoordinateTable builds a CoordinateTable from a parsed CSV.
func NewCoordinateTable(t *Table, keyMode string) (*CoordinateTable, error) {
	if len(t.Rows) == 0 {
		return nil, errors.SetupError(fmt.Errorf("coordinate table has no rows"), "lookup")
	}

	latCol, lonCol := t.Column("latitude"), t.Column("longitude")
	if latCol < 0 || lonCol < 0 {
		return nil, errors.SetupError(
			fmt.Errorf("coordinate table needs latitude and longitude columns, found %v", t.Header), "lookup")
	}

	var keyFn func(row []string) string
	switch keyMode {
	case KeyLegacy:
		if len(t.Header) <= legacyLocusColumn {
			return nil, errors.SetupError(
				fmt.Errorf("legacy coordinate table needs at least %d columns", legacyLocusColumn+1), "lookup")
		}
		keyFn = func(row []string) string { return NormalizeKey(row[legacyLocusColumn]) }
	case KeyName, "":
		cc, sc, pc := t.Column("pilot_country"), t.Column("pilot_site"), t.Column("point_id")
		if cc < 0 || sc < 0 || pc < 0 {
			return nil, errors.SetupError(
				fmt.Errorf("coordinate table needs pilot_country, pilot_site and point_id columns, found %v", t.Header), "lookup")
		}
		keyFn = func(row []string) string {
			return Locus(NormalizeKey(row[cc]), NormalizeKey(row[sc]), NormalizeKey(row[pc]))
		}
	default:
		return nil, errors.SetupError(fmt.Errorf("unknown coordinate key mode %q", keyMode), "lookup")
	}

	ct := &CoordinateTable{entries: make(map[string]Coordinate, len(t.Rows))}
	for n, row := range t.Rows {
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[latCol]), 64)
		if err != nil {
			return nil, errors.SetupError(fmt.Errorf("coordinate row %d: latitude %q: %w", n+2, row[latCol], err), "lookup")
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row[lonCol]), 64)
		if err != nil {
			return nil, errors.SetupError(fmt.Errorf("coordinate row %d: longitude %q: %w", n+2, row[lonCol], err), "lookup")
		}

		c := Coordinate{Latitude: lat, Longitude: lon, Extra: map[string]string{}}
		for i, h := range t.Header {
			key := NormalizeKey(h)
			val := strings.TrimSpace(row[i])
			switch key {
			case "latitude", "longitude":
			case "setting":
				c.Setting = strings.ToLower(val)
			case "position_name", "position__name":
				c.PositionName = strings.ToLower(val)
			default:
				c.Extra[key] = val
			}
		}
		ct.entries[keyFn(row)] = c
	}

	return ct, nil
}

// Lookup returns the coordinate for a locus.
func (ct *CoordinateTable) Lookup(locus string) (Coordinate, bool) {
	c, ok := ct.entries[strings.ToLower(locus)]
	return c, ok
}

// Len returns the number of loci.
func (ct *CoordinateTable) Len() int {
	return len(ct.entries)
}
