package reflectance

import (
	"math"

	"github.com/tphakala/soilnorm/internal/errors"
)

// DefaultSentinel replaces reflectance values that fail quality control.
const DefaultSentinel = -9999

// QC counts the wavelengths that failed each quality check. The value checks
// count a wavelength under the first one it fails; the saturation checks
// count every saturated wavelength.
type QC struct {
	BelowZero          int `json:"n_value_below_zero"`
	AboveUnity         int `json:"n_value_above_unity"`
	TooVarying         int `json:"n_value_too_varying"`
	Missing            int `json:"n_value_missing"`
	Saturated          int `json:"n_value_saturated"`
	ReferenceSaturated int `json:"n_reference_saturated"`
}

// Total is the number of triggered checks. A saturated wavelength that also
// failed a value check counts twice.
func (q QC) Total() int {
	return q.BelowZero + q.AboveUnity + q.TooVarying + q.Missing + q.Saturated + q.ReferenceSaturated
}

// Add returns the elementwise sum of q and o.
func (q QC) Add(o QC) QC {
	return QC{
		BelowZero:          q.BelowZero + o.BelowZero,
		AboveUnity:         q.AboveUnity + o.AboveUnity,
		TooVarying:         q.TooVarying + o.TooVarying,
		Missing:            q.Missing + o.Missing,
		Saturated:          q.Saturated + o.Saturated,
		ReferenceSaturated: q.ReferenceSaturated + o.ReferenceSaturated,
	}
}

// Flags returns the counters keyed by their document names, in check order.
func (q QC) Flags() []QCFlag {
	return []QCFlag{
		{"n_value_below_zero", q.BelowZero},
		{"n_value_above_unity", q.AboveUnity},
		{"n_value_too_varying", q.TooVarying},
		{"n_value_missing", q.Missing},
		{"n_value_saturated", q.Saturated},
		{"n_reference_saturated", q.ReferenceSaturated},
	}
}

// QCFlag is one named QC counter.
type QCFlag struct {
	Name  string
	Count int
}

// Options tunes Compute.
type Options struct {
	// Sentinel replaces failing values. Zero means DefaultSentinel.
	Sentinel float64
	// CheckLengths rejects scans whose length differs from the reference.
	// When false both are truncated to the shorter one.
	CheckLengths bool
}

// Result is a computed reflectance spectrum.
type Result struct {
	Value  []float64
	StdDev []float64
	QC     QC
}

// Compute divides the dark-corrected sample by the dark-corrected white
// reference. The standard deviation is propagated in quadrature:
//
//	σR = R·sqrt((σW/W)² + (σS/S)²)
//
// with σW and σS the quadrature sums of the value and dark deviations.
// Values below zero, above one, with σ above one, not a number, or at a
// saturated sample or reference DN are replaced by the sentinel in both
// value and σ.
func Compute(sample Scan, wr WhiteReferenceStatistics, opts Options) (Result, error) {
	sentinel := opts.Sentinel
	if sentinel == 0 {
		sentinel = DefaultSentinel
	}

	n := len(sample.Value)
	if opts.CheckLengths {
		if len(sample.Dark) != n || wr.Len() != n || len(wr.DarkMean) != n {
			return Result{}, errors.Newf("scan %s has %d values and %d darks, white reference has %d values and %d darks",
				sample.Name, n, len(sample.Dark), wr.Len(), len(wr.DarkMean)).
				Component("reflectance").
				Category(errors.CategoryValidation).
				Context("scan", sample.Name).
				Build()
		}
	} else {
		n = min(n, len(sample.Dark), wr.Len(), len(wr.DarkMean))
	}

	res := Result{Value: make([]float64, n), StdDev: make([]float64, n)}
	for i := range n {
		white := wr.ValueMean[i] - wr.DarkMean[i]
		signal := sample.Value[i] - sample.Dark[i]
		refl := signal / white

		whiteStd := math.Hypot(at(wr.ValueStd, i), at(wr.DarkStd, i))
		signalStd := math.Hypot(at(sample.ValueStd, i), at(sample.DarkStd, i))
		res.Value[i] = refl
		res.StdDev[i] = math.Abs(refl) * math.Hypot(ratio(whiteStd, white), ratio(signalStd, signal))
	}

	reject := func(counter *int, failed func(i int) bool) {
		for i := range n {
			if res.Value[i] == sentinel {
				continue
			}
			if failed(i) {
				res.Value[i] = sentinel
				res.StdDev[i] = sentinel
				*counter++
			}
		}
	}
	reject(&res.QC.BelowZero, func(i int) bool { return res.Value[i] < 0 })
	reject(&res.QC.AboveUnity, func(i int) bool { return res.Value[i] > 1 })
	reject(&res.QC.TooVarying, func(i int) bool { return res.StdDev[i] > 1 || math.IsNaN(res.StdDev[i]) && !math.IsNaN(res.Value[i]) })
	reject(&res.QC.Missing, func(i int) bool { return math.IsNaN(res.Value[i]) || math.IsInf(res.Value[i], 0) })
	// Saturation is judged on raw DN, so it counts wavelengths already
	// rejected by a value check.
	saturated := func(counter *int, failed func(i int) bool) {
		for i := range n {
			if failed(i) {
				res.Value[i] = sentinel
				res.StdDev[i] = sentinel
				*counter++
			}
		}
	}
	if sample.MaxDN > 0 {
		saturated(&res.QC.Saturated, func(i int) bool { return sample.Value[i] > sample.MaxDN })
		saturated(&res.QC.ReferenceSaturated, func(i int) bool { return at(wr.Max, i) > sample.MaxDN })
	}

	return res, nil
}

func ratio(std, v float64) float64 {
	if std == 0 {
		return 0
	}
	return std / v
}
