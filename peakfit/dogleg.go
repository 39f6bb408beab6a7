package peakfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errDoglegDiverged = errors.New("dogleg: objective is not finite")

// solveDogleg minimizes the residual sum of squares with Powell's dogleg:
// inside the trust region the Gauss-Newton step is taken directly, outside
// it the step follows the steepest-descent leg and then cuts over to the
// Gauss-Newton point at the region boundary. The gain ratio between actual
// and predicted reduction drives the radius.
//
//nolint:cyclop
//nolint:funlen
func (f *Fitter) solveDogleg(xs, ys, init []float64) ([]float64, error) {
	fn := residualFunc(xs, ys)
	m := len(xs)

	p := make([]float64, nParams)
	copy(p, init)

	r := make([]float64, m)
	fn(r, p)

	cost := 0.5 * dot(r, r)
	if !isFinite(cost) {
		return nil, errDoglegDiverged
	}

	radius := 1.0

	const (
		maxRadius = 1e6
		minRadius = 1e-12
	)

	pNew := make([]float64, nParams)
	rNew := make([]float64, m)

	for iter := 0; iter < f.params.MaxIterations; iter++ {
		jac := numericJacobian(fn, p, m)

		var g mat.VecDense
		g.MulVec(jac.T(), mat.NewVecDense(m, r))

		if mat.Norm(&g, math.Inf(1)) < f.params.Eps1 {
			break
		}

		step := doglegStep(jac, &g, radius)

		for j := 0; j < nParams; j++ {
			pNew[j] = p[j] + step.AtVec(j)
		}

		fn(rNew, pNew)
		costNew := 0.5 * dot(rNew, rNew)

		var jh mat.VecDense
		jh.MulVec(jac, step)

		predicted := 0.0
		for i := range r {
			v := r[i] + jh.AtVec(i)
			predicted += v * v
		}

		predicted = cost - 0.5*predicted

		gain := -1.0
		if isFinite(costNew) && predicted > 0 {
			gain = (cost - costNew) / predicted
		}

		if gain > 0 {
			copy(p, pNew)
			copy(r, rNew)
			cost = costNew

			stepNorm := mat.Norm(step, 2)
			pNorm := norm2(p)

			if stepNorm <= f.params.Eps2*(pNorm+f.params.Eps2) {
				break
			}

			if 2*cost <= f.params.ObjectiveTol {
				break
			}
		}

		switch {
		case gain > 0.75:
			if grown := 3 * mat.Norm(step, 2); grown > radius {
				radius = grown
			}

			if radius > maxRadius {
				radius = maxRadius
			}
		case gain < 0.25:
			radius /= 2
		}

		if radius < minRadius {
			break
		}
	}

	if !isFinite(cost) {
		return nil, errDoglegDiverged
	}

	return p, nil
}

// doglegStep combines the steepest-descent and Gauss-Newton directions
// within the trust radius.
func doglegStep(jac *mat.Dense, g *mat.VecDense, radius float64) *mat.VecDense {
	var jg mat.VecDense
	jg.MulVec(jac, g)

	gg := mat.Dot(g, g)
	jgjg := mat.Dot(&jg, &jg)

	sd := mat.NewVecDense(nParams, nil)
	if jgjg > 0 {
		sd.ScaleVec(-gg/jgjg, g)
	}

	gn, gnOK := gaussNewtonStep(jac, g)

	if gnOK {
		if mat.Norm(gn, 2) <= radius {
			return gn
		}
	}

	sdNorm := mat.Norm(sd, 2)
	if sdNorm >= radius || !gnOK {
		out := mat.NewVecDense(nParams, nil)

		if sdNorm > 0 {
			out.ScaleVec(radius/sdNorm, sd)
		}

		return out
	}

	// Cut over from the descent leg toward the Gauss-Newton point where
	// the path crosses the region boundary.
	var diff mat.VecDense
	diff.SubVec(gn, sd)

	a := mat.Dot(&diff, &diff)
	b := 2 * mat.Dot(sd, &diff)
	c := mat.Dot(sd, sd) - radius*radius

	beta := 0.0
	if a > 0 {
		beta = (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	}

	out := mat.NewVecDense(nParams, nil)
	out.AddScaledVec(sd, beta, &diff)

	return out
}

// gaussNewtonStep solves JᵗJ·h = −g; it reports false when the normal
// matrix is not positive definite.
func gaussNewtonStep(jac *mat.Dense, g *mat.VecDense) (*mat.VecDense, bool) {
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	sym := mat.NewSymDense(nParams, nil)
	for i := 0; i < nParams; i++ {
		for j := i; j < nParams; j++ {
			sym.SetSym(i, j, jtj.At(i, j))
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, false
	}

	var neg mat.VecDense
	neg.ScaleVec(-1, g)

	step := mat.NewVecDense(nParams, nil)
	if err := chol.SolveVecTo(step, &neg); err != nil {
		return nil, false
	}

	return step, true
}

// numericJacobian builds the m×n forward-difference Jacobian of fn at p.
func numericJacobian(fn func(dst, params []float64), p []float64, m int) *mat.Dense {
	jac := mat.NewDense(m, nParams, nil)

	base := make([]float64, m)
	fn(base, p)

	pert := make([]float64, m)
	shifted := make([]float64, nParams)

	for j := 0; j < nParams; j++ {
		copy(shifted, p)

		h := 1e-8 * math.Abs(p[j])
		if h < 1e-8 {
			h = 1e-8
		}

		shifted[j] += h
		fn(pert, shifted)

		for i := 0; i < m; i++ {
			jac.Set(i, j, (pert[i]-base[i])/h)
		}
	}

	return jac
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}

	return sum
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
