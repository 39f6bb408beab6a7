// Package normalize rescales baseline-corrected spectra. All methods return
// a fresh slice and leave the input untouched; degenerate inputs (zero
// range, zero area, zero norm) yield all-zero output rather than dividing
// by zero.
package normalize

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Method selects the normalization algorithm.
type Method int

const (
	// MethodRange maps [min, max] to [0, 1].
	MethodRange Method = iota
	// MethodArea scales so the absolute trapezoidal integral is 1.
	MethodArea
	// MethodPeak scales by the maximum intensity, or by the intensity at a
	// caller-specified reference index.
	MethodPeak
	// MethodL2 scales by the Euclidean norm.
	MethodL2
	// MethodIdentity returns an unscaled copy.
	MethodIdentity
)

// String returns the method's configuration name.
func (m Method) String() string {
	switch m {
	case MethodRange:
		return "range"
	case MethodArea:
		return "area"
	case MethodPeak:
		return "peak"
	case MethodL2:
		return "l2"
	case MethodIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// ParseMethod maps a configuration name to a Method. Unknown names return
// (MethodRange, false); the caller decides how to surface the fallback.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "range":
		return MethodRange, true
	case "area":
		return MethodArea, true
	case "peak":
		return MethodPeak, true
	case "l2":
		return MethodL2, true
	case "identity":
		return MethodIdentity, true
	default:
		return MethodRange, false
	}
}

// Methods returns all selectable methods in declaration order.
func Methods() []Method {
	return []Method{MethodRange, MethodArea, MethodPeak, MethodL2, MethodIdentity}
}

type config struct {
	refIndex int
}

// Option configures a normalization call.
type Option func(*config)

// WithReferenceIndex makes MethodPeak scale by the intensity at index i
// instead of the maximum.
func WithReferenceIndex(i int) Option {
	return func(c *config) {
		c.refIndex = i
	}
}

// Normalize rescales values under the given method. wavenumbers provides
// the integration axis for MethodArea; when nil, unit spacing is assumed.
// The other methods ignore it.
func Normalize(values, wavenumbers []float64, method Method, opts ...Option) []float64 {
	cfg := config{refIndex: -1}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	switch method {
	case MethodArea:
		scaleBy(out, values, math.Abs(integral(values, wavenumbers)))
	case MethodPeak:
		scaleBy(out, values, reference(values, cfg.refIndex))
	case MethodL2:
		scaleBy(out, values, floats.Norm(values, 2))
	case MethodIdentity:
		copy(out, values)
	default:
		rangeScale(out, values)
	}

	return out
}

// rangeScale maps [min, max] onto [0, 1]; a flat signal maps to zeros.
func rangeScale(out, values []float64) {
	minVal := floats.Min(values)
	maxVal := floats.Max(values)

	span := maxVal - minVal
	if span == 0 {
		return
	}

	for i, v := range values {
		out[i] = (v - minVal) / span
	}
}

// scaleBy writes out = values/denom, or zeros when denom is 0 or NaN.
func scaleBy(out, values []float64, denom float64) {
	if denom == 0 || math.IsNaN(denom) {
		return
	}

	vecmath.ScaleBlock(out, values, 1/denom)
}

func integral(values, wavenumbers []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	xs := wavenumbers
	if xs == nil {
		xs = make([]float64, len(values))
		floats.Span(xs, 0, float64(len(values)-1))
	}

	return integrate.Trapezoidal(xs, values)
}

func reference(values []float64, refIndex int) float64 {
	if refIndex >= 0 && refIndex < len(values) {
		return values[refIndex]
	}

	return floats.Max(values)
}
