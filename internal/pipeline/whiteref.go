package pipeline

import (
	"fmt"
	"slices"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/device"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/reflectance"
)

// WhiteReferenceReport summarizes the white reference scans of a folder.
type WhiteReferenceReport struct {
	// Files are the reference file names in scan order.
	Files []string
	// MinMean and MaxMean bound the overall mean DN across wavelengths.
	MinMean float64
	MaxMean float64
	// Saturated counts wavelengths whose maximum DN reaches the device limit.
	Saturated   int
	Wavelengths int
	// FirstScan and LastScan are the YYYYMMDD scan dates the devices wrote.
	FirstScan string
	LastScan  string
}

// String renders the report for the terminal.
func (w *WhiteReferenceReport) String() string {
	s := fmt.Sprintf("%d white reference files, %d wavelengths, mean DN %.1f to %.1f, %d saturated wavelengths",
		len(w.Files), w.Wavelengths, w.MinMean, w.MaxMean, w.Saturated)
	if w.FirstScan != "" {
		s += fmt.Sprintf(", scanned %s to %s", w.FirstScan, w.LastScan)
	}
	return s
}

// InspectWhiteReferences reads every white reference under dir and combines
// them with the overall statistics.
func InspectWhiteReferences(fs afero.Fs, dir string) (*WhiteReferenceReport, error) {
	in, err := Discover(fs, dir, conf.FormatXspectreJSON)
	if err != nil {
		return nil, err
	}
	if len(in.WhiteReferences) == 0 {
		return nil, errors.Newf("no white reference files found in %s", dir).
			Component("pipeline").
			Category(errors.CategoryNotFound).
			Build()
	}

	r := &WhiteReferenceReport{}
	scans := make([]reflectance.Scan, 0, len(in.WhiteReferences))
	maxDN := 0.0
	for _, p := range in.WhiteReferences {
		f, err := device.Read(fs, p)
		if err != nil {
			return nil, err
		}
		scan, err := f.Scan()
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
		if dn := f.MaxDN(); dn > 0 && (maxDN == 0 || dn < maxDN) {
			maxDN = dn
		}
		if d := f.ScanDate(); d != "" {
			if r.FirstScan == "" || d < r.FirstScan {
				r.FirstScan = d
			}
			if d > r.LastScan {
				r.LastScan = d
			}
		}
	}

	pool, err := reflectance.NewReferencePool(scans)
	if err != nil {
		return nil, err
	}
	stats := pool.Overall()
	r.Files = pool.Files()
	r.Wavelengths = stats.Len()
	if stats.Len() > 0 {
		r.MinMean = slices.Min(stats.ValueMean)
		r.MaxMean = slices.Max(stats.ValueMean)
	}
	if maxDN > 0 {
		for _, v := range stats.Max {
			if v >= maxDN {
				r.Saturated++
			}
		}
	}
	return r, nil
}
