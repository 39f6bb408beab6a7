package baseline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-raman/spectrum"
)

var (
	ErrInvalidLambda     = errors.New("baseline: lambda must be > 0")
	ErrInvalidIterations = errors.New("baseline: max iterations must be >= 1")
	ErrInvalidTolerance  = errors.New("baseline: tolerance must be > 0")
	ErrInvalidDegree     = errors.New("baseline: polynomial degree must be >= 1")
	ErrInvalidSmoothing  = errors.New("baseline: spline smoothing must be in (0, 1]")
	ErrInvalidProminence = errors.New("baseline: mask prominence percent must be in [0, 100]")
	ErrSingularSystem    = errors.New("baseline: penalized system is not positive definite")
	ErrTooFewPoints      = errors.New("baseline: not enough background samples")
)

// Method selects the baseline estimation algorithm.
type Method int

const (
	// MethodARPLS is the iteratively reweighted penalized least-squares
	// estimator.
	MethodARPLS Method = iota
	// MethodPolynomial fits a polynomial to the peak-masked spectrum.
	MethodPolynomial
	// MethodSpline fits a smoothing spline to the peak-masked spectrum.
	MethodSpline
)

// String returns the method's configuration name.
func (m Method) String() string {
	switch m {
	case MethodARPLS:
		return "arpls"
	case MethodPolynomial:
		return "polynomial"
	case MethodSpline:
		return "spline"
	default:
		return "unknown"
	}
}

// ParseMethod maps a configuration name to a Method. Unknown names return
// (MethodSpline, false); spline is the documented fallback and the caller
// surfaces the warning.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "arpls":
		return MethodARPLS, true
	case "polynomial":
		return MethodPolynomial, true
	case "spline":
		return MethodSpline, true
	default:
		return MethodSpline, false
	}
}

// Methods returns all selectable methods in declaration order.
func Methods() []Method {
	return []Method{MethodARPLS, MethodPolynomial, MethodSpline}
}

// maskWindowFraction is the half-width of the exclusion window around each
// prominent maximum, as a fraction of the spectrum length.
const maskWindowFraction = 0.02

// Params holds the tunable parameters of all three estimators.
type Params struct {
	// Reweighted least squares.
	Lambda        float64 // curvature penalty
	MaxIterations int
	Tolerance     float64 // relative weight-change convergence threshold

	// Polynomial.
	PolyDegree int

	// Spline: anchor-smoothing window as a fraction of the spectrum length.
	SplineSmoothing float64

	// Peak masking for the polynomial and spline methods: minimum
	// prominence of a masked maximum, in percent of the intensity range.
	MaskProminencePercent float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Lambda:                1e5,
		MaxIterations:         50,
		Tolerance:             1e-5,
		PolyDegree:            3,
		SplineSmoothing:       0.05,
		MaskProminencePercent: 5,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Lambda <= 0 {
		return ErrInvalidLambda
	}

	if p.MaxIterations < 1 {
		return ErrInvalidIterations
	}

	if p.Tolerance <= 0 {
		return ErrInvalidTolerance
	}

	if p.PolyDegree < 1 {
		return ErrInvalidDegree
	}

	if p.SplineSmoothing <= 0 || p.SplineSmoothing > 1 {
		return ErrInvalidSmoothing
	}

	if p.MaskProminencePercent < 0 || p.MaskProminencePercent > 100 {
		return ErrInvalidProminence
	}

	return nil
}

// Estimate computes the background curve of a spectrum under the selected
// method and returns the baseline-corrected intensities together with the
// baseline itself. The spline method additionally floor-shifts its corrected
// output to zero and scales it to [0, 1]; the other methods return the plain
// difference.
func Estimate(s spectrum.Spectrum, method Method, p Params) (corrected, base []float64, err error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	if s.Len() < 2 {
		return nil, nil, spectrum.ErrTooShort
	}

	switch method {
	case MethodPolynomial:
		base = polynomialBaseline(s.Wavenumbers, s.Intensities, p)
	case MethodSpline:
		base = splineBaseline(s.Wavenumbers, s.Intensities, p)
	default:
		base, err = arpls(s.Intensities, p.Lambda, p.Tolerance, p.MaxIterations)
		if err != nil {
			return nil, nil, fmt.Errorf("baseline: reweighted least squares: %w", err)
		}
	}

	corrected = subtract(s.Intensities, base)

	if method == MethodSpline {
		shiftScaleUnit(corrected)
	}

	return corrected, base, nil
}

// subtract returns y − base as a fresh slice.
func subtract(y, base []float64) []float64 {
	neg := make([]float64, len(base))
	vecmath.ScaleBlock(neg, base, -1)

	out := make([]float64, len(y))
	copy(out, y)
	vecmath.AddBlockInPlace(out, neg)

	return out
}

// shiftScaleUnit floor-shifts values to zero and scales the maximum to 1.
func shiftScaleUnit(values []float64) {
	if len(values) == 0 {
		return
	}

	minVal := values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
	}

	maxVal := 0.0

	for i := range values {
		values[i] -= minVal
		if values[i] > maxVal {
			maxVal = values[i]
		}
	}

	if maxVal == 0 {
		return
	}

	for i := range values {
		values[i] /= maxVal
	}
}
