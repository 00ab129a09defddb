// Package ossl flattens spectra and wet-lab values into Open Soil Spectral
// Library CSV rows.
package ossl

import (
	"fmt"
	"math"
	"slices"
)

// Grid is a regular wavelength grid in nanometres, both ends included.
type Grid struct {
	Min, Max, Step float64
	// Reverse marks instruments that store spectra from long to short
	// wavelengths.
	Reverse bool
}

var (
	DS2500Grid     = Grid{Min: 400, Max: 2500, Step: 2}
	NeoSpectraGrid = Grid{Min: 1350, Max: 2550, Step: 2, Reverse: true}
)

// Points returns the grid wavelengths.
func (g Grid) Points() []float64 {
	if g.Step <= 0 || g.Max < g.Min {
		return nil
	}
	n := int(math.Floor((g.Max-g.Min)/g.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Min + float64(i)*g.Step
	}
	return out
}

// Columns returns the "wl.<nm>" column names of the grid.
func (g Grid) Columns() []string {
	pts := g.Points()
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = fmt.Sprintf("wl.%d", int(math.Round(p)))
	}
	return out
}

// Interpolate resamples values measured at wl onto the grid min..max. It is
// piecewise linear and clamps to the first and last value outside the
// measured range. With reverse the inputs are flipped first.
func Interpolate(wl, values []float64, lo, hi, step float64, reverse bool) ([]float64, []float64, error) {
	if len(wl) == 0 || len(wl) != len(values) {
		return nil, nil, fmt.Errorf("wavelength and value vectors differ in length: %d and %d", len(wl), len(values))
	}
	x, y := slices.Clone(wl), slices.Clone(values)
	if reverse {
		slices.Reverse(x)
		slices.Reverse(y)
	}
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			return nil, nil, fmt.Errorf("wavelengths are not increasing at index %d", i)
		}
	}

	grid := Grid{Min: lo, Max: hi, Step: step}.Points()
	if grid == nil {
		return nil, nil, fmt.Errorf("invalid grid %g-%g step %g", lo, hi, step)
	}
	out := make([]float64, len(grid))
	j := 0
	for i, g := range grid {
		switch {
		case g <= x[0]:
			out[i] = y[0]
		case g >= x[len(x)-1]:
			out[i] = y[len(y)-1]
		default:
			for x[j+1] < g {
				j++
			}
			x0, x1 := x[j], x[j+1]
			if x1 == x0 {
				out[i] = y[j+1]
				continue
			}
			out[i] = y[j] + (y[j+1]-y[j])*(g-x0)/(x1-x0)
		}
	}
	return out, grid, nil
}

// Resample interpolates onto g.
func (g Grid) Resample(wl, values []float64) ([]float64, error) {
	out, _, err := Interpolate(wl, values, g.Min, g.Max, g.Step, g.Reverse)
	return out, err
}
