// Package smooth provides denoising filters for baseline-corrected spectra:
// a Savitzky-Golay polynomial filter and an FFT low-pass alternative. Both
// preserve the valid-intensity contract of the pipeline by clamping negative
// outputs to zero and rescaling when smoothing overshoots the pre-smoothing
// maximum.
package smooth

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEvenWindow     = errors.New("smooth: window length must be odd")
	ErrWindowTooSmall = errors.New("smooth: window length must be >= 3")
	ErrInvalidOrder   = errors.New("smooth: polynomial order must be >= 0")
	ErrOrderTooHigh   = errors.New("smooth: polynomial order must be < window length")
	ErrInvalidCutoff  = errors.New("smooth: cutoff fraction must be in (0, 1]")
)

// Defaults for the two filters.
const (
	DefaultWindow = 11
	DefaultOrder  = 3
	DefaultCutoff = 0.25
)

// Method selects the smoothing algorithm.
type Method int

const (
	// MethodSavGol is the Savitzky-Golay polynomial filter.
	MethodSavGol Method = iota
	// MethodFFT is the FFT low-pass filter.
	MethodFFT
)

// String returns the method's configuration name.
func (m Method) String() string {
	switch m {
	case MethodSavGol:
		return "savgol"
	case MethodFFT:
		return "fft"
	default:
		return "unknown"
	}
}

// ParseMethod maps a configuration name to a Method. Unknown names return
// (MethodSavGol, false); the caller surfaces the warning.
func ParseMethod(name string) (Method, bool) {
	switch name {
	case "savgol":
		return MethodSavGol, true
	case "fft":
		return MethodFFT, true
	default:
		return MethodSavGol, false
	}
}

// Methods returns all selectable methods in declaration order.
func Methods() []Method {
	return []Method{MethodSavGol, MethodFFT}
}

// Smoother filters an intensity series. Implementations return a fresh
// slice and leave the input untouched.
type Smoother interface {
	Smooth(values []float64) ([]float64, error)
}

// SavGol is a Savitzky-Golay filter: each output sample is the value at the
// window center of the least-squares polynomial through the window, which
// reduces to a fixed convolution kernel.
type SavGol struct {
	window int
	order  int
	kernel []float64
}

// NewSavGol derives the convolution kernel for the given odd window length
// and polynomial order.
func NewSavGol(window, order int) (*SavGol, error) {
	if window < 3 {
		return nil, ErrWindowTooSmall
	}

	if window%2 == 0 {
		return nil, ErrEvenWindow
	}

	if order < 0 {
		return nil, ErrInvalidOrder
	}

	if order >= window {
		return nil, ErrOrderTooHigh
	}

	kernel, err := savgolKernel(window, order)
	if err != nil {
		return nil, err
	}

	return &SavGol{window: window, order: order, kernel: kernel}, nil
}

// Window returns the configured window length.
func (sg *SavGol) Window() int { return sg.window }

// Order returns the configured polynomial order.
func (sg *SavGol) Order() int { return sg.order }

// Smooth convolves the values with the kernel under mirror padding.
func (sg *SavGol) Smooth(values []float64) ([]float64, error) {
	n := len(values)
	out := make([]float64, n)

	if n == 0 {
		return out, nil
	}

	half := sg.window / 2

	for i := 0; i < n; i++ {
		acc := 0.0
		for k := -half; k <= half; k++ {
			acc += sg.kernel[k+half] * values[mirrorIndex(i+k, n)]
		}

		out[i] = acc
	}

	clampRescale(out, values)

	return out, nil
}

// savgolKernel computes the center-sample row of the least-squares
// projection onto polynomials of the given order. Solving the local
// Vandermonde system against the identity yields the full coefficient
// matrix; row zero evaluated at the window center is the kernel.
func savgolKernel(window, order int) ([]float64, error) {
	half := window / 2

	design := mat.NewDense(window, order+1, nil)

	for i := 0; i < window; i++ {
		t := float64(i - half)
		pow := 1.0

		for j := 0; j <= order; j++ {
			design.Set(i, j, pow)
			pow *= t
		}
	}

	eye := mat.NewDense(window, window, nil)
	for i := 0; i < window; i++ {
		eye.Set(i, i, 1)
	}

	var qr mat.QR
	qr.Factorize(design)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, eye); err != nil {
		return nil, fmt.Errorf("smooth: kernel solve: %w", err)
	}

	kernel := make([]float64, window)
	for i := range kernel {
		kernel[i] = sol.At(0, i)
	}

	return kernel, nil
}

// mirrorIndex folds an out-of-range index back into [0, n) by reflecting
// about the edge samples without repeating them.
func mirrorIndex(i, n int) int {
	if n == 1 {
		return 0
	}

	period := 2 * (n - 1)

	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}

	return i
}

// clampRescale clamps negative outputs to zero and, when the smoothed
// maximum exceeds the pre-smoothing maximum, scales the output down so the
// maxima agree.
func clampRescale(out, before []float64) {
	if len(out) == 0 {
		return
	}

	maxBefore := before[0]
	for _, v := range before[1:] {
		if v > maxBefore {
			maxBefore = v
		}
	}

	maxOut := 0.0

	for i := range out {
		if out[i] < 0 {
			out[i] = 0
		}

		if out[i] > maxOut {
			maxOut = out[i]
		}
	}

	if maxOut > maxBefore && maxOut > 0 && maxBefore > 0 {
		vecmath.ScaleBlock(out, out, maxBefore/maxOut)
	}
}
