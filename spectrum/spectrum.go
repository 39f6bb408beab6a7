// Package spectrum defines the Raman spectrum data model: ordered
// (wavenumber, intensity) series, tabular file ingest, per-spectrum quality
// checks, and a deterministic synthetic generator for tests and demo data.
package spectrum

import (
	"errors"
	"math"
)

var (
	ErrLengthMismatch = errors.New("spectrum: wavenumber and intensity lengths differ")
	ErrTooShort       = errors.New("spectrum: need at least 2 samples")
	ErrNotIncreasing  = errors.New("spectrum: wavenumbers must be strictly increasing")
	ErrTooManyNaN     = errors.New("spectrum: more than allowed fraction of NaN intensities")
	ErrTooManyZeros   = errors.New("spectrum: more than allowed fraction of zero intensities")
)

// Spectrum is an ordered sequence of (wavenumber, intensity) pairs with
// strictly increasing wavenumbers. Wavenumbers are in cm⁻¹.
type Spectrum struct {
	Wavenumbers []float64
	Intensities []float64
}

// New validates the series and returns a Spectrum sharing the given slices.
func New(wavenumbers, intensities []float64) (Spectrum, error) {
	if len(wavenumbers) != len(intensities) {
		return Spectrum{}, ErrLengthMismatch
	}

	if len(wavenumbers) < 2 {
		return Spectrum{}, ErrTooShort
	}

	for i := 1; i < len(wavenumbers); i++ {
		if !(wavenumbers[i] > wavenumbers[i-1]) {
			return Spectrum{}, ErrNotIncreasing
		}
	}

	return Spectrum{Wavenumbers: wavenumbers, Intensities: intensities}, nil
}

// Len returns the number of samples.
func (s Spectrum) Len() int {
	return len(s.Wavenumbers)
}

// Copy returns a deep copy.
func (s Spectrum) Copy() Spectrum {
	w := make([]float64, len(s.Wavenumbers))
	y := make([]float64, len(s.Intensities))
	copy(w, s.Wavenumbers)
	copy(y, s.Intensities)

	return Spectrum{Wavenumbers: w, Intensities: y}
}

// WithIntensities returns a Spectrum sharing this spectrum's wavenumber axis
// but carrying the given intensity values.
func (s Spectrum) WithIntensities(y []float64) Spectrum {
	return Spectrum{Wavenumbers: s.Wavenumbers, Intensities: y}
}

// MeanSpacing returns the average wavenumber step.
func (s Spectrum) MeanSpacing() float64 {
	n := len(s.Wavenumbers)
	if n < 2 {
		return 0
	}

	return (s.Wavenumbers[n-1] - s.Wavenumbers[0]) / float64(n-1)
}

// NaNFraction returns the fraction of NaN intensity values.
func (s Spectrum) NaNFraction() float64 {
	if len(s.Intensities) == 0 {
		return 0
	}

	var count int

	for _, y := range s.Intensities {
		if math.IsNaN(y) {
			count++
		}
	}

	return float64(count) / float64(len(s.Intensities))
}

// ZeroFraction returns the fraction of exactly-zero intensity values.
func (s Spectrum) ZeroFraction() float64 {
	if len(s.Intensities) == 0 {
		return 0
	}

	var count int

	for _, y := range s.Intensities {
		if y == 0 {
			count++
		}
	}

	return float64(count) / float64(len(s.Intensities))
}

// CheckQuality returns ErrTooManyNaN or ErrTooManyZeros when the respective
// fraction exceeds the given limit. Spectra failing either check are meant
// to be skipped, not repaired.
func (s Spectrum) CheckQuality(maxNaNFraction, maxZeroFraction float64) error {
	if s.NaNFraction() > maxNaNFraction {
		return ErrTooManyNaN
	}

	if s.ZeroFraction() > maxZeroFraction {
		return ErrTooManyZeros
	}

	return nil
}

// DropNaN returns a Spectrum without the samples whose intensity or
// wavenumber is NaN. The result shares no storage with the receiver.
func (s Spectrum) DropNaN() Spectrum {
	w := make([]float64, 0, len(s.Wavenumbers))
	y := make([]float64, 0, len(s.Intensities))

	for i := range s.Wavenumbers {
		if math.IsNaN(s.Wavenumbers[i]) || math.IsNaN(s.Intensities[i]) {
			continue
		}

		w = append(w, s.Wavenumbers[i])
		y = append(y, s.Intensities[i])
	}

	return Spectrum{Wavenumbers: w, Intensities: y}
}
