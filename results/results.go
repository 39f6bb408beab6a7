// Package results holds the annotated peak table the pipeline produces and
// the index-set machinery the outlier pass filters it with. Tables are
// value types: filtering builds a new table and never mutates the source.
package results

import (
	"sort"

	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/zircon"
)

// PeakRecord is one fitted peak annotated with provenance, region and
// damage classification.
type PeakRecord struct {
	Sample   string
	Grain    string
	Location string
	Column   string // spectrum column the peak came from

	// PeakIndex is the sequential number of the peak within its spectrum.
	PeakIndex int

	Fit peakfit.FittedPeak

	Region zircon.Region
	Damage zircon.DamageCategory
	Dose   float64 // 10¹⁸ α-events/g
}

// Table is an ordered collection of peak records.
type Table struct {
	Records []PeakRecord
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Records) }

// Add appends records in order.
func (t *Table) Add(records ...PeakRecord) {
	t.Records = append(t.Records, records...)
}

// Remove builds a new table without the rows named by drop. Row order is
// preserved; the receiver is left untouched.
func (t Table) Remove(drop IndexSet) Table {
	kept := make([]PeakRecord, 0, t.Len()-drop.Len())

	for i, rec := range t.Records {
		if drop.Has(i) {
			continue
		}

		kept = append(kept, rec)
	}

	return Table{Records: kept}
}

// RegionIndices groups row indices by region, each group in row order.
func (t Table) RegionIndices() map[zircon.Region][]int {
	out := make(map[zircon.Region][]int)

	for i, rec := range t.Records {
		out[rec.Region] = append(out[rec.Region], i)
	}

	return out
}

// FWHMs extracts the fitted widths of the given rows.
func (t Table) FWHMs(indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = t.Records[idx].Fit.FWHM
	}

	return out
}

// R2s extracts the fit quality of the given rows.
func (t Table) R2s(indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = t.Records[idx].Fit.R2
	}

	return out
}

// Centers extracts the fitted centers of the given rows.
func (t Table) Centers(indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = t.Records[idx].Fit.Center
	}

	return out
}

// Areas extracts the analytic areas of the given rows.
func (t Table) Areas(indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = t.Records[idx].Fit.AnalyticArea
	}

	return out
}

// IndexSet is a set of row indices into a Table.
type IndexSet map[int]struct{}

// NewIndexSet builds a set from the given indices.
func NewIndexSet(indices ...int) IndexSet {
	s := make(IndexSet, len(indices))
	for _, i := range indices {
		s.Add(i)
	}

	return s
}

// Add inserts an index.
func (s IndexSet) Add(i int) { s[i] = struct{}{} }

// Has reports membership.
func (s IndexSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Len returns the set size.
func (s IndexSet) Len() int { return len(s) }

// Union returns a new set with the members of both operands; neither
// operand is modified.
func (s IndexSet) Union(other IndexSet) IndexSet {
	out := make(IndexSet, len(s)+len(other))

	for i := range s {
		out.Add(i)
	}

	for i := range other {
		out.Add(i)
	}

	return out
}

// Sorted returns the members in ascending order.
func (s IndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}

	sort.Ints(out)

	return out
}
