package peakfit

import "math"

// nParams is the size of the model parameter vector (A, μ, σ, c).
const nParams = 4

// box holds per-parameter lower and upper bounds.
type box struct {
	lo [nParams]float64
	hi [nParams]float64
}

// interiorMargin keeps transformed start values strictly inside the box so
// the logit stays finite.
const interiorMargin = 1e-6

// toFree maps bounded parameters to unconstrained solver space via the
// logit. Values on or outside a bound are pulled just inside first.
func (b box) toFree(params []float64) []float64 {
	out := make([]float64, nParams)

	for j := 0; j < nParams; j++ {
		span := b.hi[j] - b.lo[j]
		if span <= 0 {
			out[j] = 0
			continue
		}

		frac := (params[j] - b.lo[j]) / span
		if frac < interiorMargin {
			frac = interiorMargin
		}

		if frac > 1-interiorMargin {
			frac = 1 - interiorMargin
		}

		out[j] = math.Log(frac / (1 - frac))
	}

	return out
}

// toBounded maps unconstrained solver space back into the box via the
// logistic function.
func (b box) toBounded(free []float64) []float64 {
	out := make([]float64, nParams)

	for j := 0; j < nParams; j++ {
		span := b.hi[j] - b.lo[j]
		if span <= 0 {
			out[j] = b.lo[j]
			continue
		}

		out[j] = b.lo[j] + span/(1+math.Exp(-free[j]))
	}

	return out
}
