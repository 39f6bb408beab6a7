package baseline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// arpls estimates a baseline by asymmetrically reweighted penalized least
// squares. Each iteration solves
//
//	(W + λ·DᵗD)·z = W·y
//
// where W is the diagonal weight matrix and D the second-order finite
// difference operator, so the penalty term suppresses curvature in the
// baseline z. Residuals d = y − z then drive the reweighting: points above
// the baseline (d > 0, peak candidates) get weight zero, points at or below
// it get
//
//	w = exp((d − (2·σ − μ)) / σ)
//
// with μ and σ the mean and population standard deviation of the negative
// residuals. Iteration stops when the relative L2 change of the weight
// vector drops below tol, when the weights degenerate, or after maxIter
// rounds.
func arpls(y []float64, lambda, tol float64, maxIter int) ([]float64, error) {
	n := len(y)
	if n < 3 {
		// Too short for a curvature penalty; the signal is its own baseline.
		out := make([]float64, n)
		copy(out, y)

		return out, nil
	}

	diag, off1, off2 := penaltyBands(n)

	a := mat.NewSymBandDense(n, 2, nil)
	for i := 0; i < n-1; i++ {
		a.SetSymBand(i, i+1, lambda*off1[i])
	}

	for i := 0; i < n-2; i++ {
		a.SetSymBand(i, i+2, lambda*off2[i])
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}

	z := mat.NewVecDense(n, nil)
	rhs := mat.NewVecDense(n, nil)
	diff := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		for i := 0; i < n; i++ {
			a.SetSymBand(i, i, w[i]+lambda*diag[i])
			rhs.SetVec(i, w[i]*y[i])
		}

		var chol mat.BandCholesky
		if !chol.Factorize(a) {
			return nil, ErrSingularSystem
		}

		if err := chol.SolveVecTo(z, rhs); err != nil {
			return nil, fmt.Errorf("banded solve: %w", err)
		}

		wNew, ok := reweight(y, z.RawVector().Data)
		if !ok {
			break
		}

		for i := range diff {
			diff[i] = wNew[i] - w[i]
		}

		change := floats.Norm(diff, 2) / floats.Norm(w, 2)
		w = wNew

		if change < tol {
			break
		}
	}

	out := make([]float64, n)
	copy(out, z.RawVector().Data)

	return out, nil
}

// penaltyBands builds the three bands of DᵗD for the second-order
// difference operator D of size (n−2)×n. Row k of D carries the stencil
// [1, −2, 1] at columns k, k+1, k+2.
func penaltyBands(n int) (diag, off1, off2 []float64) {
	diag = make([]float64, n)
	off1 = make([]float64, n-1)
	off2 = make([]float64, n-2)

	for k := 0; k <= n-3; k++ {
		diag[k] += 1
		diag[k+1] += 4
		diag[k+2] += 1

		off1[k] += -2
		off1[k+1] += -2

		off2[k] += 1
	}

	return diag, off1, off2
}

// reweight derives the next weight vector from the residuals y − z. It
// reports false when no point lies below the baseline or the negative
// residuals have zero spread, in which case iteration cannot proceed.
func reweight(y, z []float64) ([]float64, bool) {
	d := make([]float64, len(y))

	var dn []float64

	for i := range y {
		d[i] = y[i] - z[i]
		if d[i] < 0 {
			dn = append(dn, d[i])
		}
	}

	if len(dn) == 0 {
		return nil, false
	}

	mean := stat.Mean(dn, nil)
	std := stat.PopStdDev(dn, nil)

	if std == 0 || math.IsNaN(std) {
		return nil, false
	}

	shift := 2*std - mean
	w := make([]float64, len(y))

	for i := range d {
		if d[i] > 0 {
			continue
		}

		w[i] = math.Exp((d[i] - shift) / std)
	}

	return w, true
}
