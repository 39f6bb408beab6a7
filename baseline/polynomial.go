package baseline

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// polynomialBaseline masks prominent maxima, fits a polynomial of the
// configured degree to the remaining background samples and evaluates it
// over the full axis. When fewer than degree+2 background samples survive
// the mask the degree drops to one; when fewer than two survive the mask is
// abandoned. The result is clipped to the raw intensities so the baseline
// never exceeds the signal.
func polynomialBaseline(x, y []float64, p Params) []float64 {
	mask := peakMask(y, p.MaskProminencePercent)
	xs, ys := selectUnmasked(x, y, mask)

	degree := p.PolyDegree
	if len(xs) < degree+2 {
		degree = 1
	}

	if len(xs) < 2 {
		xs, ys = x, y
		degree = 1
	}

	model, err := fitPoly(xs, ys, degree)
	if err != nil && degree > 1 {
		model, err = fitPoly(xs, ys, 1)
	}

	if err != nil {
		return flatBaseline(y)
	}

	base := make([]float64, len(y))

	for i := range base {
		v := model.eval(x[i])
		if v > y[i] {
			v = y[i]
		}

		base[i] = v
	}

	return base
}

// selectUnmasked copies the samples not covered by the mask.
func selectUnmasked(x, y []float64, mask []bool) (xs, ys []float64) {
	for i, masked := range mask {
		if masked {
			continue
		}

		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	return xs, ys
}

// flatBaseline is the last-resort background: constant at the minimum.
func flatBaseline(y []float64) []float64 {
	minVal := floats.Min(y)
	base := make([]float64, len(y))

	for i := range base {
		base[i] = minVal
	}

	return base
}

// polyModel is a polynomial fitted on a centered and scaled abscissa. The
// transform keeps the Vandermonde matrix well conditioned for wavenumber
// ranges in the hundreds.
type polyModel struct {
	coeffs   []float64 // ascending powers of t
	mid      float64
	halfSpan float64
}

// fitPoly solves the least-squares polynomial through (xs, ys) via a QR
// factorization of the Vandermonde matrix.
func fitPoly(xs, ys []float64, degree int) (polyModel, error) {
	if len(xs) < degree+1 {
		return polyModel{}, ErrTooFewPoints
	}

	lo, hi := floats.Min(xs), floats.Max(xs)
	mid := (lo + hi) / 2
	halfSpan := (hi - lo) / 2

	if halfSpan == 0 {
		halfSpan = 1
	}

	v := mat.NewDense(len(xs), degree+1, nil)

	for i, xv := range xs {
		t := (xv - mid) / halfSpan
		pow := 1.0

		for j := 0; j <= degree; j++ {
			v.Set(i, j, pow)
			pow *= t
		}
	}

	rhs := mat.NewDense(len(ys), 1, nil)
	for i, yv := range ys {
		rhs.Set(i, 0, yv)
	}

	var qr mat.QR
	qr.Factorize(v)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, rhs); err != nil {
		return polyModel{}, fmt.Errorf("baseline: vandermonde solve: %w", err)
	}

	coeffs := make([]float64, degree+1)
	for j := range coeffs {
		coeffs[j] = sol.At(j, 0)
	}

	return polyModel{coeffs: coeffs, mid: mid, halfSpan: halfSpan}, nil
}

// eval computes the polynomial at x by Horner's rule in transformed space.
func (m polyModel) eval(x float64) float64 {
	t := (x - m.mid) / m.halfSpan
	v := 0.0

	for j := len(m.coeffs) - 1; j >= 0; j-- {
		v = v*t + m.coeffs[j]
	}

	return v
}
