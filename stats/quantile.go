package stats

import (
	"math"
	"sort"
)

// QuantileSorted returns the q-quantile of already-sorted data using linear
// interpolation between the ranks at position q·(n−1). Returns 0 for empty
// input; q outside [0, 1] clamps to the extremes.
func QuantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if q <= 0 {
		return sorted[0]
	}

	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))

	if lo == hi {
		return sorted[lo]
	}

	w := pos - float64(lo)

	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Quartiles returns the first and third quartiles of xs.
func Quartiles(xs []float64) (q1, q3 float64) {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)

	return QuantileSorted(cp, 0.25), QuantileSorted(cp, 0.75)
}

// Median returns the median of xs.
func Median(xs []float64) float64 {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)

	return QuantileSorted(cp, 0.5)
}

// Fences returns the Tukey outlier fences q1−k·IQR and q3+k·IQR.
func Fences(xs []float64, k float64) (lo, hi float64) {
	q1, q3 := Quartiles(xs)
	iqr := q3 - q1

	return q1 - k*iqr, q3 + k*iqr
}
