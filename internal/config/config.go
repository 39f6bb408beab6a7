// Package config loads the optional TOML configuration file and overlays
// it onto the compiled pipeline defaults. Every field is optional; a value
// left out of the file keeps its default. Method names are parsed here and
// nowhere else, so unknown-name fallbacks surface as warnings exactly once.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/normalize"
	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/pipeline"
	"github.com/cwbudde/algo-raman/smooth"
)

// FileConfig mirrors the TOML file. Pointer fields distinguish "absent"
// from zero values.
type FileConfig struct {
	Baseline      BaselineConfig      `toml:"baseline"`
	Normalization NormalizationConfig `toml:"normalization"`
	Smoothing     SmoothingConfig     `toml:"smoothing"`
	Peaks         PeaksConfig         `toml:"peaks"`
	Fitting       FittingConfig       `toml:"fitting"`
	Quality       QualityConfig       `toml:"quality"`
	Outliers      OutliersConfig      `toml:"outliers"`
}

// BaselineConfig maps the [baseline] table.
type BaselineConfig struct {
	Method          *string  `toml:"method"`
	Lambda          *float64 `toml:"lambda"`
	MaxIterations   *int     `toml:"max-iterations"`
	Tolerance       *float64 `toml:"tolerance"`
	PolyDegree      *int     `toml:"poly-degree"`
	SplineSmoothing *float64 `toml:"spline-smoothing"`
	MaskProminence  *float64 `toml:"mask-prominence"`
}

// NormalizationConfig maps the [normalization] table.
type NormalizationConfig struct {
	Method *string `toml:"method"`
}

// SmoothingConfig maps the [smoothing] table. A window of 1 or less
// disables smoothing.
type SmoothingConfig struct {
	Method *string  `toml:"method"`
	Window *int     `toml:"window"`
	Order  *int     `toml:"order"`
	Cutoff *float64 `toml:"cutoff"`
}

// PeaksConfig maps the [peaks] table.
type PeaksConfig struct {
	Height      *float64 `toml:"height"`
	Prominence  *float64 `toml:"prominence"`
	MinDistance *int     `toml:"min-distance"`
	MinWidth    *int     `toml:"min-width"`
}

// FittingConfig maps the [fitting] table.
type FittingConfig struct {
	Method        *string `toml:"method"`
	MaxIterations *int    `toml:"max-iterations"`
}

// QualityConfig maps the [quality] table: per-spectrum gating fractions.
type QualityConfig struct {
	MaxNaNFraction  *float64 `toml:"max-nan-fraction"`
	MaxZeroFraction *float64 `toml:"max-zero-fraction"`
}

// OutliersConfig maps the [outliers] table.
type OutliersConfig struct {
	MinR2               *float64 `toml:"min-r2"`
	FenceK              *float64 `toml:"fence-k"`
	MaxZScore           *float64 `toml:"max-z-score"`
	MaxFWHM             *float64 `toml:"max-fwhm"`
	UnclassifiedMinR2   *float64 `toml:"unclassified-min-r2"`
	UnclassifiedMaxFWHM *float64 `toml:"unclassified-max-fwhm"`
}

// Load reads a TOML config from path. A missing file is not an error: the
// zero FileConfig overlays nothing.
func Load(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config: path is empty")
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}

		return FileConfig{}, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return fc, nil
}

// Apply overlays the file values onto base and returns the merged
// configuration. Unknown method names keep the parser's fallback and are
// reported as warnings rather than errors.
func Apply(base pipeline.Config, fc FileConfig) (pipeline.Config, []string) {
	var warnings []string

	if fc.Baseline.Method != nil {
		m, ok := baseline.ParseMethod(*fc.Baseline.Method)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown baseline method %q, using %q", *fc.Baseline.Method, m))
		}

		base.BaselineMethod = m
	}

	setFloat(&base.Baseline.Lambda, fc.Baseline.Lambda)
	setInt(&base.Baseline.MaxIterations, fc.Baseline.MaxIterations)
	setFloat(&base.Baseline.Tolerance, fc.Baseline.Tolerance)
	setInt(&base.Baseline.PolyDegree, fc.Baseline.PolyDegree)
	setFloat(&base.Baseline.SplineSmoothing, fc.Baseline.SplineSmoothing)
	setFloat(&base.Baseline.MaskProminencePercent, fc.Baseline.MaskProminence)

	if fc.Normalization.Method != nil {
		m, ok := normalize.ParseMethod(*fc.Normalization.Method)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown normalization method %q, using %q", *fc.Normalization.Method, m))
		}

		base.Normalization = m
	}

	if fc.Smoothing.Method != nil {
		m, ok := smooth.ParseMethod(*fc.Smoothing.Method)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown smoothing method %q, using %q", *fc.Smoothing.Method, m))
		}

		base.SmoothMethod = m
	}

	setInt(&base.SmoothWindow, fc.Smoothing.Window)
	setInt(&base.SmoothOrder, fc.Smoothing.Order)
	setFloat(&base.SmoothCutoff, fc.Smoothing.Cutoff)

	setFloat(&base.Detector.HeightPercent, fc.Peaks.Height)
	setFloat(&base.Detector.ProminencePercent, fc.Peaks.Prominence)
	setInt(&base.Detector.MinDistance, fc.Peaks.MinDistance)
	setInt(&base.Detector.MinWidth, fc.Peaks.MinWidth)

	if fc.Fitting.Method != nil {
		m, ok := peakfit.ParseMethod(*fc.Fitting.Method)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown fitting method %q, using %q", *fc.Fitting.Method, m))
		}

		base.Fitting.Method = m
	}

	setInt(&base.Fitting.MaxIterations, fc.Fitting.MaxIterations)

	setFloat(&base.MaxNaNFraction, fc.Quality.MaxNaNFraction)
	setFloat(&base.MaxZeroFraction, fc.Quality.MaxZeroFraction)

	setFloat(&base.Outliers.MinR2, fc.Outliers.MinR2)
	setFloat(&base.Outliers.FenceK, fc.Outliers.FenceK)
	setFloat(&base.Outliers.MaxZScore, fc.Outliers.MaxZScore)
	setFloat(&base.Outliers.MaxFWHM, fc.Outliers.MaxFWHM)
	setFloat(&base.Outliers.UnclassifiedMinR2, fc.Outliers.UnclassifiedMinR2)
	setFloat(&base.Outliers.UnclassifiedMaxFWHM, fc.Outliers.UnclassifiedMaxFWHM)

	return base, warnings
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
