package peakfit

import (
	"fmt"

	"github.com/maorshutman/lm"
)

// residualFunc builds the model-minus-data residual closure the solvers
// minimize.
func residualFunc(xs, ys []float64) func(dst, params []float64) {
	return func(dst, params []float64) {
		a, mu, sigma, c := params[0], params[1], params[2], params[3]

		for i := range xs {
			dst[i] = gaussian(xs[i], a, mu, sigma, c) - ys[i]
		}
	}
}

// solveLM runs unconstrained Levenberg-Marquardt from the initial guess.
func (f *Fitter) solveLM(xs, ys, init []float64) ([]float64, error) {
	fn := residualFunc(xs, ys)
	jac := lm.NumJac{Func: fn}

	problem := lm.LMProblem{
		Dim:        nParams,
		Size:       len(xs),
		Func:       fn,
		Jac:        jac.Jac,
		InitParams: init,
		Tau:        f.params.Tau,
		Eps1:       f.params.Eps1,
		Eps2:       f.params.Eps2,
	}

	results, err := lm.LM(problem, &lm.Settings{
		Iterations:   f.params.MaxIterations,
		ObjectiveTol: f.params.ObjectiveTol,
	})
	if err != nil {
		return nil, fmt.Errorf("levenberg-marquardt: %w", err)
	}

	return results.X, nil
}

// solveBounded runs Levenberg-Marquardt in logistic-transformed space so the
// parameters cannot leave their box.
func (f *Fitter) solveBounded(xs, ys, init []float64, bounds box) ([]float64, error) {
	fn := residualFunc(xs, ys)

	free := func(dst, freeParams []float64) {
		fn(dst, bounds.toBounded(freeParams))
	}
	jac := lm.NumJac{Func: free}

	problem := lm.LMProblem{
		Dim:        nParams,
		Size:       len(xs),
		Func:       free,
		Jac:        jac.Jac,
		InitParams: bounds.toFree(init),
		Tau:        f.params.Tau,
		Eps1:       f.params.Eps1,
		Eps2:       f.params.Eps2,
	}

	results, err := lm.LM(problem, &lm.Settings{
		Iterations:   f.params.MaxIterations,
		ObjectiveTol: f.params.ObjectiveTol,
	})
	if err != nil {
		return nil, fmt.Errorf("bounded levenberg-marquardt: %w", err)
	}

	return bounds.toBounded(results.X), nil
}
