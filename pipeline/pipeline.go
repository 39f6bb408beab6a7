// Package pipeline runs the full processing chain for one configuration:
// baseline correction, normalization, smoothing, peak detection, Gaussian
// fitting, region and damage classification, and outlier cleaning. Failures
// are contained at the smallest unit: a failed fit skips one peak, a failed
// stage skips one spectrum, and every skip is recorded as a warning.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/normalize"
	"github.com/cwbudde/algo-raman/outlier"
	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/peaks"
	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/smooth"
	"github.com/cwbudde/algo-raman/spectrum"
	"github.com/cwbudde/algo-raman/zircon"
)

var (
	ErrNoInput             = errors.New("pipeline: no input spectra")
	ErrInvalidQualityLimit = errors.New("pipeline: quality fractions must be in [0, 1]")
)

// Config is the complete processing configuration. It is a plain value:
// copy it per run, never share it mutably.
type Config struct {
	BaselineMethod baseline.Method
	Baseline       baseline.Params

	Normalization normalize.Method

	SmoothMethod smooth.Method
	SmoothWindow int     // samples; <= 1 disables smoothing
	SmoothOrder  int     // Savitzky-Golay polynomial order
	SmoothCutoff float64 // FFT low-pass cutoff fraction

	Detector peaks.Detector

	Fitting peakfit.Params

	// Spectra exceeding either fraction are skipped with a warning.
	MaxNaNFraction  float64
	MaxZeroFraction float64

	Outliers outlier.Criteria
}

// DefaultConfig returns the documented defaults for every stage.
func DefaultConfig() Config {
	return Config{
		BaselineMethod: baseline.MethodARPLS,
		Baseline:       baseline.DefaultParams(),

		Normalization: normalize.MethodRange,

		SmoothMethod: smooth.MethodSavGol,
		SmoothWindow: smooth.DefaultWindow,
		SmoothOrder:  smooth.DefaultOrder,
		SmoothCutoff: smooth.DefaultCutoff,

		Detector: peaks.DefaultDetector(),

		Fitting: peakfit.DefaultParams(),

		MaxNaNFraction:  0.5,
		MaxZeroFraction: 0.5,

		Outliers: outlier.DefaultCriteria(),
	}
}

// Validate checks every stage's parameters. Smoothing parameters are
// validated by the filter constructors when smoothing is enabled.
func (c Config) Validate() error {
	if err := c.Baseline.Validate(); err != nil {
		return err
	}

	if err := c.Detector.Validate(); err != nil {
		return err
	}

	if err := c.Fitting.Validate(); err != nil {
		return err
	}

	if err := c.Outliers.Validate(); err != nil {
		return err
	}

	if c.MaxNaNFraction < 0 || c.MaxNaNFraction > 1 ||
		c.MaxZeroFraction < 0 || c.MaxZeroFraction > 1 {
		return ErrInvalidQualityLimit
	}

	return nil
}

// Warning identifies a skipped or degraded unit of work.
type Warning struct {
	Unit    string // sample/column
	Message string
}

func (w Warning) String() string {
	return w.Unit + ": " + w.Message
}

// Result is the outcome of one pipeline run.
type Result struct {
	Table    results.Table // every successfully fitted peak
	Cleaned  results.Table // after outlier removal
	Outliers outlier.Report
	Warnings []Warning

	SpectraProcessed int
	SpectraSkipped   int
	FitsFailed       int
}

func (r *Result) warn(unit, message string) {
	r.Warnings = append(r.Warnings, Warning{Unit: unit, Message: message})
}

func (r *Result) skip(unit, message string) {
	r.SpectraSkipped++
	r.warn(unit, message)
}

// Runner executes the pipeline under a fixed configuration.
type Runner struct {
	cfg      Config
	smoother smooth.Smoother // nil when the window disables smoothing
	fitter   *peakfit.Fitter
}

// NewRunner validates the configuration and builds the stage filters.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg}

	if cfg.SmoothWindow > 1 {
		var err error

		switch cfg.SmoothMethod {
		case smooth.MethodFFT:
			r.smoother, err = smooth.NewFFTLowPass(cfg.SmoothCutoff)
		default:
			r.smoother, err = smooth.NewSavGol(cfg.SmoothWindow, cfg.SmoothOrder)
		}

		if err != nil {
			return nil, err
		}
	}

	fitter, err := peakfit.NewFitter(cfg.Fitting)
	if err != nil {
		return nil, err
	}

	r.fitter = fitter

	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run processes every column of every table and returns the full and
// cleaned peak tables. Inputs are read-only; an empty input set is the only
// fatal condition.
func (r *Runner) Run(tables []spectrum.Table) (Result, error) {
	var columns int
	for _, t := range tables {
		columns += len(t.Columns)
	}

	if columns == 0 {
		return Result{}, ErrNoInput
	}

	var res Result

	for _, t := range tables {
		for _, col := range t.Columns {
			r.runColumn(&res, t.Sample, col)
		}
	}

	cleaned, report, err := outlier.Clean(res.Table, r.cfg.Outliers)
	if err != nil {
		return Result{}, err
	}

	res.Cleaned = cleaned
	res.Outliers = report

	return res, nil
}

// runColumn takes one spectrum through every stage, appending records and
// warnings to res.
func (r *Runner) runColumn(res *Result, sample string, col spectrum.Column) {
	unit := sample + "/" + col.Name
	spec := col.Spectrum

	if err := spec.CheckQuality(r.cfg.MaxNaNFraction, r.cfg.MaxZeroFraction); err != nil {
		switch {
		case errors.Is(err, spectrum.ErrTooManyNaN):
			res.skip(unit, fmt.Sprintf("skipped: %.0f%% NaN intensities", 100*spec.NaNFraction()))
		case errors.Is(err, spectrum.ErrTooManyZeros):
			res.skip(unit, fmt.Sprintf("skipped: %.0f%% zero intensities", 100*spec.ZeroFraction()))
		default:
			res.skip(unit, err.Error())
		}

		return
	}

	spec = spec.DropNaN()
	if spec.Len() < 2 {
		res.skip(unit, "skipped: fewer than 2 valid samples")
		return
	}

	corrected, _, err := baseline.Estimate(spec, r.cfg.BaselineMethod, r.cfg.Baseline)
	if err != nil {
		res.skip(unit, fmt.Sprintf("baseline estimation failed: %v", err))
		return
	}

	values := normalize.Normalize(corrected, spec.Wavenumbers, r.cfg.Normalization)

	if r.smoother != nil {
		smoothed, err := r.smoother.Smooth(values)
		if err != nil {
			res.warn(unit, fmt.Sprintf("smoothing disabled for this spectrum: %v", err))
		} else {
			values = smoothed
		}
	}

	proc := spec.WithIntensities(values)

	found, err := r.cfg.Detector.Find(proc)
	if err != nil {
		res.skip(unit, fmt.Sprintf("peak detection failed: %v", err))
		return
	}

	res.SpectraProcessed++

	seq := 0

	for _, pk := range found {
		fit, err := r.fitter.Fit(proc, pk)
		if err != nil {
			res.FitsFailed++
			res.warn(unit, fmt.Sprintf("peak at %.1f cm⁻¹ skipped: %v", pk.Wavenumber, err))

			continue
		}

		seq++

		res.Table.Add(results.PeakRecord{
			Sample:    sample,
			Grain:     col.Grain,
			Location:  col.Location,
			Column:    col.Name,
			PeakIndex: seq,
			Fit:       fit,
			Region:    zircon.Classify(fit.Center),
			Damage:    zircon.CategoryForFWHM(fit.FWHM),
			Dose:      zircon.Dose(fit.FWHM),
		})
	}
}
