package reflectance

import (
	"cmp"
	"slices"

	"github.com/tphakala/soilnorm/internal/errors"
)

// Selection strategies for the white reference of a sample.
const (
	StrategyNearest = "nearest"
	StrategyOverall = "overall"
)

// ClosestBeforeAfter finds the latest epoch strictly before t and the
// earliest epoch strictly after t.
func ClosestBeforeAfter(epochs []float64, t float64) (before, after float64, okBefore, okAfter bool) {
	for _, e := range epochs {
		if e < t && (!okBefore || e > before) {
			before, okBefore = e, true
		}
		if e > t && (!okAfter || e < after) {
			after, okAfter = e, true
		}
	}
	return before, after, okBefore, okAfter
}

// ReferencePool holds the white reference scans of a job. It is built
// before any sample is processed and is read-only afterwards.
type ReferencePool struct {
	refs    []Scan
	overall WhiteReferenceStatistics
	pooled  WhiteReferenceStatistics
}

// NewReferencePool builds a pool from reference scans.
func NewReferencePool(refs []Scan) (*ReferencePool, error) {
	overall, err := OverallStatistics(refs)
	if err != nil {
		return nil, err
	}
	pooled, err := Pool(refs)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(refs)
	slices.SortStableFunc(sorted, func(a, b Scan) int { return cmp.Compare(a.Epoch, b.Epoch) })

	return &ReferencePool{refs: sorted, overall: overall, pooled: pooled}, nil
}

// Len returns the number of reference scans.
func (p *ReferencePool) Len() int {
	return len(p.refs)
}

// Files returns the reference scan names in epoch order.
func (p *ReferencePool) Files() []string {
	names := make([]string, len(p.refs))
	for i, r := range p.refs {
		names[i] = r.Name
	}
	return names
}

// Overall returns the statistics across every reference.
func (p *ReferencePool) Overall() WhiteReferenceStatistics {
	return p.overall
}

// Select returns the white reference for a sample scanned at epoch t. With
// references on both sides the two are averaged; with several references
// but no bracketing pair the pooled statistics are used; otherwise the one
// reference on either side.
func (p *ReferencePool) Select(t float64) (WhiteReferenceStatistics, error) {
	epochs := make([]float64, len(p.refs))
	for i, r := range p.refs {
		epochs[i] = r.Epoch
	}
	before, after, okBefore, okAfter := ClosestBeforeAfter(epochs, t)

	switch {
	case okBefore && okAfter:
		return Average(p.at(before), p.at(after)), nil
	case len(p.refs) > 1:
		return p.pooled, nil
	case okBefore:
		return p.at(before), nil
	case okAfter:
		return p.at(after), nil
	}
	return WhiteReferenceStatistics{}, errors.Newf("no white reference available for scan at epoch %.0f", t).
		Component("reflectance").
		Category(errors.CategoryComputation).
		Build()
}

// ForStrategy returns the white reference for a sample under the named
// strategy.
func (p *ReferencePool) ForStrategy(strategy string, t float64) (WhiteReferenceStatistics, error) {
	if strategy == StrategyNearest {
		return p.Select(t)
	}
	return p.overall, nil
}

// at returns the reference scanned at epoch. References sharing a
// modification time are combined with OverallStatistics.
func (p *ReferencePool) at(epoch float64) WhiteReferenceStatistics {
	var same []Scan
	for _, r := range p.refs {
		if r.Epoch == epoch {
			same = append(same, r)
		}
	}
	if len(same) == 1 {
		return FromScan(same[0])
	}
	st, err := OverallStatistics(same)
	if err != nil {
		// NewReferencePool already checked these scans
		return WhiteReferenceStatistics{}
	}
	return st
}
