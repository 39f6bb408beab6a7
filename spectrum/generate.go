package spectrum

import (
	"fmt"
	"math"
	"math/rand"
)

// PeakSpec describes one synthetic Gaussian band.
type PeakSpec struct {
	Center    float64 // cm⁻¹
	Amplitude float64
	Sigma     float64 // cm⁻¹
}

// SyntheticConfig describes a synthetic spectrum: Gaussian bands on a linear
// background with optional Gaussian noise.
type SyntheticConfig struct {
	Start   float64 // first wavenumber, cm⁻¹
	End     float64 // last wavenumber, cm⁻¹
	Samples int
	Peaks   []PeakSpec

	// Background: intercept + slope·(x − Start).
	BaselineIntercept float64
	BaselineSlope     float64

	// Standard deviation of additive Gaussian noise.
	NoiseSigma float64
}

// Generator creates deterministic synthetic spectra.
type Generator struct {
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured spectrum generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Synthetic generates one spectrum from the configuration.
func (g *Generator) Synthetic(cfg SyntheticConfig) (Spectrum, error) {
	if cfg.Samples < 2 {
		return Spectrum{}, fmt.Errorf("spectrum: synthetic samples must be >= 2: %d", cfg.Samples)
	}

	if !(cfg.End > cfg.Start) {
		return Spectrum{}, fmt.Errorf("spectrum: synthetic range must be increasing: [%g, %g]", cfg.Start, cfg.End)
	}

	if cfg.NoiseSigma < 0 {
		return Spectrum{}, fmt.Errorf("spectrum: noise sigma must be >= 0: %g", cfg.NoiseSigma)
	}

	for _, p := range cfg.Peaks {
		if p.Sigma <= 0 {
			return Spectrum{}, fmt.Errorf("spectrum: peak at %g cm⁻¹ needs sigma > 0: %g", p.Center, p.Sigma)
		}
	}

	w := make([]float64, cfg.Samples)
	y := make([]float64, cfg.Samples)
	step := (cfg.End - cfg.Start) / float64(cfg.Samples-1)
	rng := rand.New(rand.NewSource(g.seed))

	for i := range w {
		x := cfg.Start + step*float64(i)
		w[i] = x

		v := cfg.BaselineIntercept + cfg.BaselineSlope*(x-cfg.Start)
		for _, p := range cfg.Peaks {
			v += GaussianValue(x, p.Amplitude, p.Center, p.Sigma)
		}

		if cfg.NoiseSigma > 0 {
			v += rng.NormFloat64() * cfg.NoiseSigma
		}

		y[i] = v
	}

	return Spectrum{Wavenumbers: w, Intensities: y}, nil
}

// GaussianValue evaluates A·exp(−(x−μ)²/(2σ²)).
func GaussianValue(x, amplitude, center, sigma float64) float64 {
	d := x - center

	return amplitude * math.Exp(-d*d/(2*sigma*sigma))
}
