package baseline

import "math"

// peakMask marks the samples that belong to prominent local maxima so the
// polynomial and spline estimators fit only background points. Around every
// maximum whose prominence exceeds the configured percentage of the intensity
// range, a window of maskWindowFraction of the spectrum length is excluded on
// each side.
func peakMask(y []float64, prominencePercent float64) []bool {
	n := len(y)
	mask := make([]bool, n)

	if n < 3 {
		return mask
	}

	minVal, maxVal := y[0], y[0]
	for _, v := range y[1:] {
		if v < minVal {
			minVal = v
		}

		if v > maxVal {
			maxVal = v
		}
	}

	span := maxVal - minVal
	if span <= 0 {
		return mask
	}

	minProminence := prominencePercent / 100 * span
	half := maskHalfWidth(n)

	for _, idx := range prominentMaxima(y, minProminence) {
		lo := idx - half
		if lo < 0 {
			lo = 0
		}

		hi := idx + half
		if hi > n-1 {
			hi = n - 1
		}

		for i := lo; i <= hi; i++ {
			mask[i] = true
		}
	}

	return mask
}

// maskHalfWidth is the per-side exclusion radius in samples, at least one.
func maskHalfWidth(n int) int {
	half := int(math.Round(maskWindowFraction * float64(n)))
	if half < 1 {
		half = 1
	}

	return half
}

// prominentMaxima returns the indices of local maxima whose prominence
// exceeds minProminence. The prominence of a maximum is its height above the
// higher of the two lowest valleys separating it from taller terrain (or
// from the signal edge).
func prominentMaxima(y []float64, minProminence float64) []int {
	var out []int

	for i := 1; i < len(y)-1; i++ {
		if !isLocalMax(y, i) {
			continue
		}

		if prominenceAt(y, i) > minProminence {
			out = append(out, i)
		}
	}

	return out
}

// isLocalMax reports whether index i is a strict local maximum. Plateaus
// count at their left edge.
func isLocalMax(y []float64, i int) bool {
	if y[i] < y[i-1] || y[i] < y[i+1] {
		return false
	}

	if y[i] > y[i-1] && y[i] > y[i+1] {
		return true
	}

	return y[i] > y[i-1] && y[i] == y[i+1]
}

// prominenceAt measures the prominence of the maximum at index i by walking
// outward on both sides to the first sample taller than y[i], tracking the
// lowest valley on the way. The prominence is y[i] minus the higher valley.
func prominenceAt(y []float64, i int) float64 {
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

// unmaskedCount returns the number of background samples left by a mask.
func unmaskedCount(mask []bool) int {
	n := 0

	for _, m := range mask {
		if !m {
			n++
		}
	}

	return n
}
