// Package peakfit fits a Gaussian-plus-offset model to a window around each
// detected peak and derives the quantities the damage calibration needs:
// FWHM, peak areas, R² and reduced chi-square.
//
// The model is
//
//	G(x) = A·exp(−(x−μ)²/(2σ²)) + c
//
// solved by nonlinear least squares. The default method keeps the parameters
// inside their physical box via a logistic reparameterization; the plain
// Levenberg-Marquardt and dogleg methods run unconstrained.
package peakfit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-raman/peaks"
	"github.com/cwbudde/algo-raman/spectrum"
)

var (
	ErrWindowTooSmall = errors.New("peakfit: fewer than 5 samples in fit window")
	ErrDegenerateFit  = errors.New("peakfit: fit produced degenerate parameters")

	ErrInvalidIterations = errors.New("peakfit: max iterations must be >= 1")
	ErrInvalidTau        = errors.New("peakfit: tau must be > 0")
	ErrInvalidEps        = errors.New("peakfit: tolerances must be > 0")
)

// fwhmFactor converts sigma to full width at half maximum.
const fwhmFactor = 2.355

// minWindowSamples is the smallest fit window that still leaves a degree of
// freedom for the four-parameter model.
const minWindowSamples = 5

// windowMargin widens the fit window beyond the half-maximum crossings.
const windowMargin = 0.2

// FitError reports a failed fit together with the peak it belongs to, so
// batch callers can log and continue.
type FitError struct {
	Center float64 // detected peak position, cm⁻¹
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("peakfit: peak at %.1f cm⁻¹: %v", e.Center, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// Method selects the least-squares solver.
type Method int

const (
	// MethodTrustRegion is bounded Levenberg-Marquardt under a logistic
	// box reparameterization (the default).
	MethodTrustRegion Method = iota
	// MethodDogleg is Powell's dogleg without bound support.
	MethodDogleg
	// MethodLM is plain Levenberg-Marquardt without bound support.
	MethodLM
)

// String returns the method's configuration name.
func (m Method) String() string {
	switch m {
	case MethodTrustRegion:
		return "trust-region"
	case MethodDogleg:
		return "dogleg"
	case MethodLM:
		return "lm"
	default:
		return "unknown"
	}
}

// ParseMethod maps a configuration name to a Method. Unknown names return
// (MethodTrustRegion, false); the caller surfaces the warning.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "trust-region":
		return MethodTrustRegion, true
	case "dogleg":
		return MethodDogleg, true
	case "lm":
		return MethodLM, true
	default:
		return MethodTrustRegion, false
	}
}

// Methods returns all selectable methods in declaration order.
func Methods() []Method {
	return []Method{MethodTrustRegion, MethodDogleg, MethodLM}
}

// Params holds the solver configuration.
type Params struct {
	Method        Method
	MaxIterations int
	Tau           float64 // initial damping scale
	Eps1          float64 // gradient convergence threshold
	Eps2          float64 // step convergence threshold
	ObjectiveTol  float64 // sum-of-squares floor
}

// DefaultParams returns the documented solver defaults.
func DefaultParams() Params {
	return Params{
		Method:        MethodTrustRegion,
		MaxIterations: 100,
		Tau:           1e-6,
		Eps1:          1e-8,
		Eps2:          1e-8,
		ObjectiveTol:  1e-16,
	}
}

// Validate checks the solver configuration.
func (p Params) Validate() error {
	if p.MaxIterations < 1 {
		return ErrInvalidIterations
	}

	if p.Tau <= 0 {
		return ErrInvalidTau
	}

	if p.Eps1 <= 0 || p.Eps2 <= 0 || p.ObjectiveTol <= 0 {
		return ErrInvalidEps
	}

	return nil
}

// FittedPeak carries the fitted model and its quality diagnostics.
type FittedPeak struct {
	Amplitude float64
	Center    float64 // cm⁻¹
	Sigma     float64 // cm⁻¹
	Offset    float64

	FWHM         float64 // 2.355·sigma, cm⁻¹
	AnalyticArea float64 // A·σ·√(2π)
	NumericArea  float64 // trapezoidal integral of the fit minus offset
	R2           float64
	ReducedChi2  float64

	WindowLow  float64 // fit window bounds, cm⁻¹
	WindowHigh float64
	WindowSize int
}

// Evaluate computes the fitted model at x.
func (p FittedPeak) Evaluate(x float64) float64 {
	return gaussian(x, p.Amplitude, p.Center, p.Sigma, p.Offset)
}

// Fitter fits Gaussian peaks under a fixed solver configuration.
type Fitter struct {
	params Params
}

// NewFitter validates the configuration and returns a Fitter.
func NewFitter(params Params) (*Fitter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Fitter{params: params}, nil
}

// Fit is a convenience wrapper using the default configuration.
func Fit(s spectrum.Spectrum, pk peaks.Peak) (FittedPeak, error) {
	f, err := NewFitter(DefaultParams())
	if err != nil {
		return FittedPeak{}, err
	}

	return f.Fit(s, pk)
}

// Fit fits one detected peak. A window smaller than five samples returns
// ErrWindowTooSmall; solver failures and degenerate parameters return a
// *FitError. Both are per-peak conditions the caller records and skips.
func (f *Fitter) Fit(s spectrum.Spectrum, pk peaks.Peak) (FittedPeak, error) {
	xs, ys, lo, hi := fitWindow(s, pk)
	if len(xs) < minWindowSamples {
		return FittedPeak{}, ErrWindowTooSmall
	}

	init := initialGuess(s, pk)

	var (
		params []float64
		err    error
	)

	switch f.params.Method {
	case MethodLM:
		params, err = f.solveLM(xs, ys, init)
	case MethodDogleg:
		params, err = f.solveDogleg(xs, ys, init)
	default:
		params, err = f.solveBounded(xs, ys, init, paramBounds(xs, pk, init))
	}

	if err != nil {
		return FittedPeak{}, &FitError{Center: pk.Wavenumber, Err: err}
	}

	a, mu, sigma, c := params[0], params[1], params[2], params[3]
	if sigma < 0 {
		sigma = -sigma
	}

	if a < 0 || sigma == 0 || math.IsNaN(a) || math.IsNaN(mu) || math.IsNaN(sigma) || math.IsNaN(c) {
		return FittedPeak{}, &FitError{Center: pk.Wavenumber, Err: ErrDegenerateFit}
	}

	return buildResult(xs, ys, a, mu, sigma, c, lo, hi), nil
}

// fitWindow selects the samples inside the half-maximum span widened by the
// window margin, clamped to the spectrum bounds.
func fitWindow(s spectrum.Spectrum, pk peaks.Peak) (xs, ys []float64, lo, hi float64) {
	leftX := axisAt(s, pk.LeftIP)
	rightX := axisAt(s, pk.RightIP)
	margin := windowMargin * pk.Width

	lo = leftX - margin
	hi = rightX + margin

	first := s.Wavenumbers[0]
	last := s.Wavenumbers[s.Len()-1]

	if lo < first {
		lo = first
	}

	if hi > last {
		hi = last
	}

	for i, x := range s.Wavenumbers {
		if x < lo {
			continue
		}

		if x > hi {
			break
		}

		xs = append(xs, x)
		ys = append(ys, s.Intensities[i])
	}

	return xs, ys, lo, hi
}

// axisAt evaluates the wavenumber axis at a fractional sample position.
func axisAt(s spectrum.Spectrum, pos float64) float64 {
	n := s.Len()

	if pos < 0 {
		pos = 0
	}

	if pos > float64(n-1) {
		pos = float64(n - 1)
	}

	i := int(math.Floor(pos))
	if i < 0 {
		i = 0
	}

	if i > n-2 {
		i = n - 2
	}

	frac := pos - float64(i)

	return s.Wavenumbers[i] + frac*(s.Wavenumbers[i+1]-s.Wavenumbers[i])
}

// initialGuess seeds the solver from the detected peak geometry.
func initialGuess(s spectrum.Spectrum, pk peaks.Peak) []float64 {
	sigma := pk.Width / fwhmFactor
	if sigma <= 0 {
		sigma = s.MeanSpacing()
	}

	return []float64{pk.Intensity, pk.Wavenumber, sigma, 0}
}

// paramBounds builds the box constraints for the bounded method: amplitude
// within [0, min(1, 2·A₀)], center within the window, sigma within
// (0, width], offset within ±0.1.
func paramBounds(xs []float64, pk peaks.Peak, init []float64) box {
	width := pk.Width
	if width <= 0 {
		width = init[2] * fwhmFactor
	}

	ampHigh := 2 * init[0]
	if ampHigh > 1 {
		ampHigh = 1
	}

	return box{
		lo: [nParams]float64{0, xs[0], 0, -0.1},
		hi: [nParams]float64{ampHigh, xs[len(xs)-1], width, 0.1},
	}
}

// buildResult derives the diagnostics of a converged fit.
func buildResult(xs, ys []float64, a, mu, sigma, c, lo, hi float64) FittedPeak {
	n := len(xs)

	fit := make([]float64, n)
	for i, x := range xs {
		fit[i] = gaussian(x, a, mu, sigma, c)
	}

	ssRes := 0.0
	for i := range ys {
		d := ys[i] - fit[i]
		ssRes += d * d
	}

	meanY := stat.Mean(ys, nil)

	ssTot := 0.0
	for _, y := range ys {
		d := y - meanY
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	chi2 := 0.0
	if popVar := stat.PopVariance(ys, nil); popVar > 0 {
		dof := n - 4
		if dof < 1 {
			dof = 1
		}

		chi2 = ssRes / popVar / float64(dof)
	}

	area := make([]float64, n)
	for i := range fit {
		area[i] = fit[i] - c
	}

	return FittedPeak{
		Amplitude:    a,
		Center:       mu,
		Sigma:        sigma,
		Offset:       c,
		FWHM:         fwhmFactor * sigma,
		AnalyticArea: a * sigma * math.Sqrt(2*math.Pi),
		NumericArea:  integrate.Trapezoidal(xs, area),
		R2:           r2,
		ReducedChi2:  chi2,
		WindowLow:    lo,
		WindowHigh:   hi,
		WindowSize:   n,
	}
}

// gaussian evaluates A·exp(−(x−μ)²/(2σ²)) + c, tolerating σ near zero.
func gaussian(x, a, mu, sigma, c float64) float64 {
	s2 := sigma * sigma
	if s2 == 0 {
		if x == mu {
			return a + c
		}

		return c
	}

	d := x - mu

	return a*math.Exp(-d*d/(2*s2)) + c
}
