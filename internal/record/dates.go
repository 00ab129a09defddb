package record

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var dateLayouts = []string{"20060102", "2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// ParseDate reads a sampling or analysis date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is neither YYYYMMDD nor YYYY-MM-DD", s)
}

// DeltaDays returns the whole days from one date to another. The result is
// negative when to is before from.
func DeltaDays(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(b.Sub(a).Hours() / 24)), nil
}

// StorageDurationH is the number of hours between sampling and analysis,
// floored at zero.
func StorageDurationH(sampleDate, analysisDate string) (int, error) {
	days, err := DeltaDays(sampleDate, analysisDate)
	if err != nil {
		return 0, err
	}
	return max(0, 24*days), nil
}
