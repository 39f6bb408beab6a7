package smooth

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// FFTLowPass smooths by truncating the frequency spectrum: the signal is
// mirror-extended to the transform size, transformed, bins above the cutoff
// fraction of the band are zeroed and the result is transformed back.
type FFTLowPass struct {
	cutoff float64
}

// NewFFTLowPass validates the retained band fraction.
func NewFFTLowPass(cutoff float64) (*FFTLowPass, error) {
	if cutoff <= 0 || cutoff > 1 {
		return nil, ErrInvalidCutoff
	}

	return &FFTLowPass{cutoff: cutoff}, nil
}

// Cutoff returns the retained fraction of the frequency band.
func (f *FFTLowPass) Cutoff() float64 { return f.cutoff }

// Smooth low-pass filters the values. The mirror extension avoids the
// wrap-around step a plain periodic transform would see at the signal ends.
func (f *FFTLowPass) Smooth(values []float64) ([]float64, error) {
	n := len(values)
	out := make([]float64, n)

	if n < 2 {
		copy(out, values)
		return out, nil
	}

	size := nextPowerOfTwo(2 * n)

	src := make([]complex128, size)
	for i := range src {
		src[i] = complex(values[mirrorIndex(i, n)], 0)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("smooth: fft plan: %w", err)
	}

	freq := make([]complex128, size)
	if err := plan.Forward(freq, src); err != nil {
		return nil, fmt.Errorf("smooth: forward fft: %w", err)
	}

	applyGain(freq, f.bandGain(size))

	if err := plan.Inverse(src, freq); err != nil {
		return nil, fmt.Errorf("smooth: inverse fft: %w", err)
	}

	for i := range out {
		out[i] = real(src[i])
	}

	clampRescale(out, values)

	return out, nil
}

// bandGain builds the per-bin gain: one inside the retained band, zero
// above it. Bin zero (the mean) is always kept.
func (f *FFTLowPass) bandGain(size int) []float64 {
	gain := make([]float64, size)
	limit := f.cutoff * float64(size/2)

	gain[0] = 1

	for k := 1; k < size; k++ {
		dist := k
		if size-k < dist {
			dist = size - k
		}

		if float64(dist) <= limit {
			gain[k] = 1
		}
	}

	return gain
}

// applyGain multiplies the spectrum by a real gain vector on split
// real/imaginary planes.
func applyGain(freq []complex128, gain []float64) {
	re := make([]float64, len(freq))
	im := make([]float64, len(freq))

	for i, c := range freq {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.MulBlockInPlace(re, gain)
	vecmath.MulBlockInPlace(im, gain)

	for i := range freq {
		freq[i] = complex(re[i], im[i])
	}
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
