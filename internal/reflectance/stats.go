// Package reflectance computes reflectance spectra from raw spectrometer
// scans and a white reference, with standard deviation propagation and
// quality control.
package reflectance

import (
	"fmt"
	"math"

	"github.com/tphakala/soilnorm/internal/errors"
)

// defaultRepeats is assumed for scans that do not report a repeat count.
const defaultRepeats = 3

// Scan is one device scan in digital numbers (DN).
type Scan struct {
	Name         string
	Value        []float64
	ValueStd     []float64
	Dark         []float64
	DarkStd      []float64
	NRepeats     int
	NDarkRepeats int
	MaxDN        float64
	// Epoch is the file time of the scan in seconds.
	Epoch float64
}

// WhiteReferenceStatistics is the white reference a sample is divided by.
type WhiteReferenceStatistics struct {
	ValueMean []float64
	ValueStd  []float64
	DarkMean  []float64
	DarkStd   []float64
	// Max is the elementwise maximum DN across the references used, checked
	// against the saturation threshold.
	Max   []float64
	Files []string
}

// Len returns the number of wavelengths.
func (w WhiteReferenceStatistics) Len() int {
	return len(w.ValueMean)
}

// FromScan uses a single reference scan as the white reference.
func FromScan(s Scan) WhiteReferenceStatistics {
	return WhiteReferenceStatistics{
		ValueMean: clone(s.Value),
		ValueStd:  zeroFill(s.ValueStd, len(s.Value)),
		DarkMean:  clone(s.Dark),
		DarkStd:   zeroFill(s.DarkStd, len(s.Dark)),
		Max:       clone(s.Value),
		Files:     []string{s.Name},
	}
}

// OverallStatistics combines every reference scan. Means are plain means
// across references. When the scans carry repeat counts the standard
// deviation is recovered from the per-scan moments,
// sqrt(Σ nᵢ(σᵢ²+μᵢ²)/Σn − μ²); otherwise it is the population standard
// deviation of the scan means.
func OverallStatistics(refs []Scan) (WhiteReferenceStatistics, error) {
	if err := checkRefs(refs); err != nil {
		return WhiteReferenceStatistics{}, err
	}

	values := make([][]float64, len(refs))
	valueStds := make([][]float64, len(refs))
	darks := make([][]float64, len(refs))
	darkStds := make([][]float64, len(refs))
	valueN := make([]int, len(refs))
	darkN := make([]int, len(refs))
	files := make([]string, len(refs))
	for i, r := range refs {
		values[i] = r.Value
		valueStds[i] = zeroFill(r.ValueStd, len(r.Value))
		darks[i] = r.Dark
		darkStds[i] = zeroFill(r.DarkStd, len(r.Dark))
		valueN[i] = r.NRepeats
		darkN[i] = r.NDarkRepeats
		files[i] = r.Name
	}

	vm, vs := momentStats(values, valueStds, valueN)
	dm, ds := momentStats(darks, darkStds, darkN)
	return WhiteReferenceStatistics{
		ValueMean: vm,
		ValueStd:  vs,
		DarkMean:  dm,
		DarkStd:   ds,
		Max:       elementMax(values),
		Files:     files,
	}, nil
}

// Pool combines reference scans with one-way ANOVA pooling. Each scan is a
// group of nᵢ repeats; the pooled variance is
// (Σ(nᵢ−1)σᵢ² + Σnᵢ(μᵢ−μ)²) / (N−1) with N = Σnᵢ.
func Pool(refs []Scan) (WhiteReferenceStatistics, error) {
	if err := checkRefs(refs); err != nil {
		return WhiteReferenceStatistics{}, err
	}

	vm, vs := pooled(refs, func(s Scan) ([]float64, []float64, int) { return s.Value, s.ValueStd, s.NRepeats })
	dm, ds := pooled(refs, func(s Scan) ([]float64, []float64, int) { return s.Dark, s.DarkStd, s.NDarkRepeats })

	values := make([][]float64, len(refs))
	files := make([]string, len(refs))
	for i, r := range refs {
		values[i] = r.Value
		files[i] = r.Name
	}
	return WhiteReferenceStatistics{
		ValueMean: vm,
		ValueStd:  vs,
		DarkMean:  dm,
		DarkStd:   ds,
		Max:       elementMax(values),
		Files:     files,
	}, nil
}

// Average is the elementwise mean of two white references. Standard
// deviations are combined as the root mean square.
func Average(a, b WhiteReferenceStatistics) WhiteReferenceStatistics {
	n := min(a.Len(), b.Len())
	out := WhiteReferenceStatistics{
		ValueMean: make([]float64, n),
		ValueStd:  make([]float64, n),
		DarkMean:  make([]float64, n),
		DarkStd:   make([]float64, n),
		Max:       make([]float64, n),
		Files:     append(append([]string{}, a.Files...), b.Files...),
	}
	for i := range n {
		out.ValueMean[i] = (a.ValueMean[i] + b.ValueMean[i]) / 2
		out.ValueStd[i] = rms(at(a.ValueStd, i), at(b.ValueStd, i))
		out.DarkMean[i] = (at(a.DarkMean, i) + at(b.DarkMean, i)) / 2
		out.DarkStd[i] = rms(at(a.DarkStd, i), at(b.DarkStd, i))
		out.Max[i] = max(at(a.Max, i), at(b.Max, i))
	}
	return out
}

func checkRefs(refs []Scan) error {
	if len(refs) == 0 {
		return errors.Newf("no white reference scans").
			Component("reflectance").
			Category(errors.CategoryComputation).
			Build()
	}
	n := len(refs[0].Value)
	for _, r := range refs {
		if len(r.Value) != n || len(r.Dark) != n {
			return errors.New(fmt.Errorf("white reference %s has %d values and %d darks, want %d",
				r.Name, len(r.Value), len(r.Dark), n)).
				Component("reflectance").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return nil
}

func momentStats(means, stds [][]float64, counts []int) (mean, std []float64) {
	n := len(means[0])
	mean = make([]float64, n)
	std = make([]float64, n)

	total := 0
	for _, c := range counts {
		total += c
	}
	useMoments := total > len(counts)

	for j := range n {
		var sum float64
		for i := range means {
			sum += means[i][j]
		}
		mu := sum / float64(len(means))
		mean[j] = mu

		var v float64
		if useMoments {
			for i := range means {
				v += float64(counts[i]) * (stds[i][j]*stds[i][j] + means[i][j]*means[i][j])
			}
			v = v/float64(total) - mu*mu
		} else {
			for i := range means {
				d := means[i][j] - mu
				v += d * d
			}
			v /= float64(len(means))
		}
		std[j] = math.Sqrt(math.Max(v, 0))
	}
	return mean, std
}

func pooled(refs []Scan, pick func(Scan) ([]float64, []float64, int)) (mean, std []float64) {
	first, _, _ := pick(refs[0])
	n := len(first)
	mean = make([]float64, n)
	std = make([]float64, n)

	total := 0
	for _, r := range refs {
		_, _, c := pick(r)
		total += repeats(c)
	}

	for j := range n {
		var weighted float64
		for _, r := range refs {
			v, _, c := pick(r)
			weighted += float64(repeats(c)) * v[j]
		}
		mu := weighted / float64(total)
		mean[j] = mu

		var within, between float64
		for _, r := range refs {
			v, s, c := pick(r)
			nr := float64(repeats(c))
			sd := at(s, j)
			within += (nr - 1) * sd * sd
			d := v[j] - mu
			between += nr * d * d
		}
		if total > 1 {
			std[j] = math.Sqrt((within + between) / float64(total-1))
		}
	}
	return mean, std
}

func repeats(n int) int {
	if n <= 0 {
		return defaultRepeats
	}
	return n
}

func elementMax(rows [][]float64) []float64 {
	out := clone(rows[0])
	for _, r := range rows[1:] {
		for j := range out {
			if j < len(r) && r[j] > out[j] {
				out[j] = r[j]
			}
		}
	}
	return out
}

func rms(a, b float64) float64 {
	return math.Sqrt((a*a + b*b) / 2)
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}

func zeroFill(v []float64, n int) []float64 {
	if len(v) >= n {
		return clone(v[:n])
	}
	out := make([]float64, n)
	copy(out, v)
	return out
}
