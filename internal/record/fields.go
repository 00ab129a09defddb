package record

import (
	"maps"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/tphakala/soilnorm/internal/lookup"
)

// Fields is the flat bag of values collected for one record before it is
// finalized. Values come from CSV cells, device JSON and the project file,
// so they are stored untyped and coerced on read.
type Fields map[string]any

// Has reports whether key holds a usable value. Nil, blank strings and
// null-like tokens count as absent.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return !lookup.IsNullLike(s)
	}
	return true
}

// Present reports whether key was set at all, even to nil. Compulsory
// fields only need to be present: a job may declare a null preservation
// method.
func (f Fields) Present(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the value at key as a trimmed string, or "" when absent.
func (f Fields) String(key string) string {
	if !f.Has(key) {
		return ""
	}
	return strings.TrimSpace(cast.ToString(f[key]))
}

// Int returns the value at key as an int. Decimal strings such as "20" or
// "20.0" are accepted; leading zeros are not read as octal.
func (f Fields) Int(key string) (int, error) {
	return toInt(f[key])
}

// Set stores v at key.
func (f Fields) Set(key string, v any) {
	f[key] = v
}

// SetDefault stores v at key when key is absent and reports whether it did.
func (f Fields) SetDefault(key string, v any) bool {
	if f.Has(key) {
		return false
	}
	f[key] = v
	return true
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	return maps.Clone(f)
}

// Lower lower-cases every string value in place.
func (f Fields) Lower() {
	for k, v := range f {
		if s, ok := v.(string); ok {
			f[k] = strings.ToLower(strings.TrimSpace(s))
		}
	}
}

// FromRow zips a cleaned header with one row of cells. Empty cells are
// left out; other null-like tokens are kept so that codes such as a "none"
// subsample stay visible to translation.
func FromRow(header, row []string) Fields {
	f := make(Fields, len(header))
	for i, h := range header {
		if h == "" || i >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			continue
		}
		f[h] = strings.ToLower(cell)
	}
	return f
}

// CleanHeader normalizes column headers. Null-like headers become "" so
// their column is ignored.
func CleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		key := lookup.NormalizeKey(h)
		if lookup.IsNullLike(key) {
			continue
		}
		out[i] = key
	}
	return out
}

// IsNullLike reports whether s is one of the tokens used for a missing value.
func IsNullLike(s string) bool {
	return lookup.IsNullLike(s)
}

func toInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}
	return cast.ToIntE(v)
}
