// Package testutil provides shared fixtures for package tests: deterministic
// synthetic spectra and single-column input tables.
package testutil

import (
	"strings"
	"testing"

	"github.com/cwbudde/algo-raman/spectrum"
)

// MustSynthetic generates a spectrum from cfg with a fixed noise seed and
// fails t on error.
func MustSynthetic(t *testing.T, seed int64, cfg spectrum.SyntheticConfig) spectrum.Spectrum {
	t.Helper()

	s, err := spectrum.NewGenerator(spectrum.WithSeed(seed)).Synthetic(cfg)
	if err != nil {
		t.Fatalf("Synthetic() error: %v", err)
	}

	return s
}

// SingleColumnTable wraps one spectrum as a one-column input table. The
// column name splits on the first underscore into grain and location,
// matching the measurement header convention.
func SingleColumnTable(sample, column string, s spectrum.Spectrum) []spectrum.Table {
	grain, location, _ := strings.Cut(column, "_")

	return []spectrum.Table{{
		Sample: sample,
		Columns: []spectrum.Column{{
			Name:     column,
			Grain:    grain,
			Location: location,
			Spectrum: s,
		}},
	}}
}
