// Package peaks locates vibrational band candidates in a processed spectrum
// and estimates their widths at half maximum. Detection runs four filters in
// order: local maxima above a height threshold, above a prominence
// threshold, thinned by a minimum sample distance (higher prominence wins),
// and finally wide enough at half maximum.
package peaks

import (
	"errors"
	"math"
	"sort"

	"github.com/cwbudde/algo-raman/spectrum"
)

var (
	ErrInvalidHeight     = errors.New("peaks: height percent must be in [0, 100]")
	ErrInvalidProminence = errors.New("peaks: prominence percent must be in [0, 100]")
	ErrInvalidDistance   = errors.New("peaks: min distance must be >= 0")
	ErrInvalidWidth      = errors.New("peaks: min width must be >= 0")
)

// Detector holds the detection thresholds. Height and prominence are
// percentages of the maximum intensity; distance and width are sample
// counts.
type Detector struct {
	HeightPercent     float64
	ProminencePercent float64
	MinDistance       int
	MinWidth          int
}

// DefaultDetector returns the documented detection defaults.
func DefaultDetector() Detector {
	return Detector{
		HeightPercent:     5,
		ProminencePercent: 5,
		MinDistance:       10,
		MinWidth:          3,
	}
}

// Validate checks the thresholds.
func (d Detector) Validate() error {
	if d.HeightPercent < 0 || d.HeightPercent > 100 {
		return ErrInvalidHeight
	}

	if d.ProminencePercent < 0 || d.ProminencePercent > 100 {
		return ErrInvalidProminence
	}

	if d.MinDistance < 0 {
		return ErrInvalidDistance
	}

	if d.MinWidth < 0 {
		return ErrInvalidWidth
	}

	return nil
}

// Peak is one detected candidate with its half-maximum geometry. LeftIP and
// RightIP are fractional sample positions of the half-maximum crossings;
// Width is the full width at half maximum converted to wavenumber units via
// the mean sample spacing.
type Peak struct {
	Index      int
	Wavenumber float64
	Intensity  float64
	Prominence float64

	LeftIP       float64
	RightIP      float64
	WidthSamples float64
	Width        float64

	// NegativeWidth records that the raw interpolated width came out
	// inverted and was corrected by taking its absolute value.
	NegativeWidth bool
}

type candidate struct {
	idx  int
	prom float64
}

// Find detects peaks in the spectrum and returns them ordered by index.
func (d Detector) Find(s spectrum.Spectrum) ([]Peak, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	y := s.Intensities
	if len(y) < 3 {
		return nil, nil
	}

	maxI := y[0]
	for _, v := range y[1:] {
		if v > maxI {
			maxI = v
		}
	}

	if maxI <= 0 || math.IsNaN(maxI) {
		return nil, nil
	}

	minHeight := d.HeightPercent / 100 * maxI
	minProm := d.ProminencePercent / 100 * maxI

	var cands []candidate

	for i := 1; i < len(y)-1; i++ {
		if !isLocalMax(y, i) || y[i] <= minHeight {
			continue
		}

		prom := prominence(y, i)
		if prom <= minProm {
			continue
		}

		cands = append(cands, candidate{idx: i, prom: prom})
	}

	cands = thinByDistance(cands, d.MinDistance)

	spacing := s.MeanSpacing()
	out := make([]Peak, 0, len(cands))

	for _, c := range cands {
		p := measureWidth(y, c.idx, c.prom)
		if p.WidthSamples < float64(d.MinWidth) {
			continue
		}

		p.Wavenumber = s.Wavenumbers[c.idx]
		p.Width = p.WidthSamples * spacing
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out, nil
}

// isLocalMax reports whether index i is a local maximum. A plateau counts at
// its left edge.
func isLocalMax(y []float64, i int) bool {
	if y[i] < y[i-1] || y[i] < y[i+1] {
		return false
	}

	if y[i] > y[i-1] && y[i] > y[i+1] {
		return true
	}

	return y[i] > y[i-1] && y[i] == y[i+1]
}

// prominence walks outward from the maximum at i to the first taller sample
// on each side, tracking the lowest valley passed; the peak stands on the
// higher of the two valleys.
func prominence(y []float64, i int) float64 {
	leftMin := y[i]

	for j := i - 1; j >= 0; j-- {
		if y[j] > y[i] {
			break
		}

		if y[j] < leftMin {
			leftMin = y[j]
		}
	}

	rightMin := y[i]

	for j := i + 1; j < len(y); j++ {
		if y[j] > y[i] {
			break
		}

		if y[j] < rightMin {
			rightMin = y[j]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}

	return y[i] - base
}

// thinByDistance drops candidates closer than minDistance samples to an
// already accepted one. Acceptance order is prominence descending with
// index ascending as the tie-break, which makes thinning deterministic.
func thinByDistance(cands []candidate, minDistance int) []candidate {
	if minDistance <= 1 || len(cands) < 2 {
		return cands
	}

	byProm := make([]candidate, len(cands))
	copy(byProm, cands)

	sort.Slice(byProm, func(i, j int) bool {
		if byProm[i].prom != byProm[j].prom {
			return byProm[i].prom > byProm[j].prom
		}

		return byProm[i].idx < byProm[j].idx
	})

	var kept []candidate

	for _, c := range byProm {
		ok := true

		for _, k := range kept {
			if abs(c.idx-k.idx) < minDistance {
				ok = false
				break
			}
		}

		if ok {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].idx < kept[j].idx })

	return kept
}

// measureWidth finds the half-maximum crossings around the peak by linear
// interpolation at the evaluation height intensity − prominence/2. Bounds
// that leave the peak outside [left, right] are replaced by a symmetric
// window of the same width around the true position; an inverted raw width
// is flagged and folded positive.
func measureWidth(y []float64, idx int, prom float64) Peak {
	evalHeight := y[idx] - 0.5*prom

	left := float64(0)

	for j := idx - 1; j >= 0; j-- {
		if y[j] < evalHeight {
			left = float64(j) + (evalHeight-y[j])/(y[j+1]-y[j])
			break
		}
	}

	right := float64(len(y) - 1)

	for j := idx + 1; j < len(y); j++ {
		if y[j] < evalHeight {
			right = float64(j-1) + (y[j-1]-evalHeight)/(y[j-1]-y[j])
			break
		}
	}

	width := right - left
	negative := width < 0

	if negative {
		width = -width
	}

	center := float64(idx)
	if center < left || center > right {
		left = center - width/2
		right = center + width/2
	}

	return Peak{
		Index:         idx,
		Intensity:     y[idx],
		Prominence:    prom,
		LeftIP:        left,
		RightIP:       right,
		WidthSamples:  width,
		NegativeWidth: negative,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
