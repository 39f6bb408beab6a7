package sweep

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/internal/testutil"
	"github.com/cwbudde/algo-raman/normalize"
	"github.com/cwbudde/algo-raman/peakfit"
	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/spectrum"
	"github.com/cwbudde/algo-raman/stats"
	"github.com/cwbudde/algo-raman/zircon"
)

const tolerance = 1e-12

func threePeakTables(t *testing.T) []spectrum.Table {
	t.Helper()

	s := testutil.MustSynthetic(t, 11, spectrum.SyntheticConfig{
		Start:   200,
		End:     1200,
		Samples: 2001,
		Peaks: []spectrum.PeakSpec{
			{Center: 1008, Amplitude: 1.0, Sigma: 4},
			{Center: 975, Amplitude: 0.6, Sigma: 3},
			{Center: 440, Amplitude: 0.4, Sigma: 5},
		},
		BaselineIntercept: 40,
		BaselineSlope:     0.01,
		NoiseSigma:        0.005,
	})

	return testutil.SingleColumnTable("synthetic", "g1_p1", s)
}

func TestRunFullGrid(t *testing.T) {
	opts := DefaultOptions()

	summary, err := Run(threePeakTables(t), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(summary.Results) != 12 {
		t.Fatalf("got %d results, want 12", len(summary.Results))
	}

	if summary.Succeeded+summary.Failed != 12 {
		t.Errorf("Succeeded+Failed = %d+%d, want 12", summary.Succeeded, summary.Failed)
	}

	// Grid order is baseline-major, normalization-minor.
	combos := opts.Combinations()
	for i, res := range summary.Results {
		if res.Combination != combos[i] {
			t.Errorf("result %d: combination = %v, want %v", i, res.Combination, combos[i])
		}
	}

	for _, res := range summary.Results {
		if res.Failed {
			if res.Reason == "" {
				t.Errorf("%s: failed without a reason", res.Combination.Name())
			}

			continue
		}

		if res.TotalPeaks == 0 {
			t.Errorf("%s: succeeded with zero peaks", res.Combination.Name())
		}

		if len(res.Regions) != 7 {
			t.Errorf("%s: got %d region metrics, want 7", res.Combination.Name(), len(res.Regions))
		}

		if res.R2.N == 0 || res.FWHM.N == 0 {
			t.Errorf("%s: empty global statistics", res.Combination.Name())
		}
	}

	if len(summary.Rankings) != 7 {
		t.Fatalf("got %d region rankings, want 7", len(summary.Rankings))
	}

	if len(summary.Impacts) != 3 {
		t.Fatalf("got %d baseline impacts, want 3", len(summary.Impacts))
	}
}

func TestRunSplineRangeFindsAllRegions(t *testing.T) {
	opts := DefaultOptions()
	opts.Baselines = []baseline.Method{baseline.MethodSpline}
	opts.Normalizations = []normalize.Method{normalize.MethodRange}

	summary, err := Run(threePeakTables(t), opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(summary.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(summary.Results))
	}

	res := summary.Results[0]
	if res.Failed {
		t.Fatalf("combination failed: %s", res.Reason)
	}

	for _, region := range []zircon.Region{zircon.RegionNu3, zircon.RegionNu1, zircon.RegionNu2} {
		rm, ok := res.RegionMetricsFor(region)
		if !ok {
			t.Errorf("region %v not populated", region)
			continue
		}

		if rm.Count != 1 {
			t.Errorf("region %v: Count = %d, want 1", region, rm.Count)
		}

		if rm.R2.Mean <= 0.9 {
			t.Errorf("region %v: mean R² = %v, want > 0.9", region, rm.R2.Mean)
		}
	}
}

func TestRunRecordsFailedCombinations(t *testing.T) {
	// A flat spectrum has no peaks; every combination must fail explicitly.
	n := 512
	w := make([]float64, n)
	y := make([]float64, n)

	for i := range w {
		w[i] = 200 + float64(i)
		y[i] = 10
	}

	tables := []spectrum.Table{{
		Sample:  "flat",
		Columns: []spectrum.Column{{Name: "g1_p1", Spectrum: spectrum.Spectrum{Wavenumbers: w, Intensities: y}}},
	}}

	summary, err := Run(tables, DefaultOptions())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Failed != 12 || summary.Succeeded != 0 {
		t.Fatalf("Failed/Succeeded = %d/%d, want 12/0", summary.Failed, summary.Succeeded)
	}

	for _, res := range summary.Results {
		if !res.Failed || res.Reason == "" {
			t.Errorf("%s: Failed = %v, Reason = %q; want explicit failure",
				res.Combination.Name(), res.Failed, res.Reason)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	if _, err := Run(nil, DefaultOptions()); !errors.Is(err, ErrNoInput) {
		t.Errorf("Run(nil) error = %v, want %v", err, ErrNoInput)
	}

	opts := DefaultOptions()
	opts.Baselines = nil

	if _, err := Run(threePeakTables(t), opts); !errors.Is(err, ErrNoCombinations) {
		t.Errorf("Run() with empty grid error = %v, want %v", err, ErrNoCombinations)
	}
}

func TestRunWorkerCountDoesNotChangeOrder(t *testing.T) {
	tables := threePeakTables(t)

	opts := DefaultOptions()
	opts.Workers = 1

	serial, err := Run(tables, opts)
	if err != nil {
		t.Fatalf("Run(workers=1) error: %v", err)
	}

	opts.Workers = 4

	parallel, err := Run(tables, opts)
	if err != nil {
		t.Fatalf("Run(workers=4) error: %v", err)
	}

	for i := range serial.Results {
		a, b := serial.Results[i], parallel.Results[i]

		if a.Combination != b.Combination || a.Failed != b.Failed || a.TotalPeaks != b.TotalPeaks {
			t.Errorf("result %d differs across worker counts: %+v vs %+v", i, a, b)
		}

		if math.Abs(a.FWHM.Mean-b.FWHM.Mean) > tolerance {
			t.Errorf("result %d: FWHM mean %v vs %v", i, a.FWHM.Mean, b.FWHM.Mean)
		}
	}
}

func TestCompositeScore(t *testing.T) {
	tests := []struct {
		name     string
		fwhmCV   float64
		r2Mean   float64
		centerCV float64
		want     float64
	}{
		{"perfect", 0, 1, 0, 1},
		{"mixed", 10, 0.8, 5, 0.4*0.9 + 0.3*0.8 + 0.3*0.95},
		{"all zero quality", 100, 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compositeScore(tt.fwhmCV, tt.r2Mean, tt.centerCV)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("compositeScore(%v, %v, %v) = %v, want %v",
					tt.fwhmCV, tt.r2Mean, tt.centerCV, got, tt.want)
			}
		})
	}
}

func TestQualityHistogram(t *testing.T) {
	var table results.Table

	for _, r2 := range []float64{0.95, 0.92, 0.5, 0.2} {
		table.Add(results.PeakRecord{Fit: peakfit.FittedPeak{R2: r2}})
	}

	excellent, poor := qualityHistogram(table)

	if math.Abs(excellent-50) > tolerance {
		t.Errorf("excellent = %v, want 50", excellent)
	}

	if math.Abs(poor-25) > tolerance {
		t.Errorf("poor = %v, want 25", poor)
	}
}

// syntheticResult builds a successful Result with one populated region.
func syntheticResult(b baseline.Method, n normalize.Method, region zircon.Region, score, fwhmCV, r2Mean float64) Result {
	rm := RegionMetrics{
		Region: region,
		Count:  5,
		Score:  score,
		FWHM:   stats.Summary{N: 5, CV: fwhmCV},
		R2:     stats.Summary{N: 5, Mean: r2Mean},
	}

	regions := make([]RegionMetrics, 0, 7)
	for _, r := range zircon.Regions() {
		if r == region {
			regions = append(regions, rm)
		} else {
			regions = append(regions, RegionMetrics{Region: r})
		}
	}

	return Result{
		Combination: Combination{Baseline: b, Normalization: n},
		Regions:     regions,
	}
}

func TestRankRegionsOrdersAndBreaksTies(t *testing.T) {
	res := []Result{
		syntheticResult(baseline.MethodARPLS, normalize.MethodRange, zircon.RegionNu3, 0.8, 12, 0.90),
		syntheticResult(baseline.MethodARPLS, normalize.MethodArea, zircon.RegionNu3, 0.9, 8, 0.95),
		// Same score as the first entry; the name decides.
		syntheticResult(baseline.MethodSpline, normalize.MethodRange, zircon.RegionNu3, 0.8, 12, 0.90),
	}

	rankings := rankRegions(res)

	var nu3 RegionRanking

	for _, rr := range rankings {
		if rr.Region == zircon.RegionNu3 {
			nu3 = rr
		}
	}

	if len(nu3.ByScore) != 3 {
		t.Fatalf("ByScore has %d entries, want 3", len(nu3.ByScore))
	}

	wantOrder := []string{"arpls+area", "arpls+range", "spline+range"}
	for i, want := range wantOrder {
		if got := nu3.ByScore[i].Combination.Name(); got != want {
			t.Errorf("ByScore[%d] = %s, want %s", i, got, want)
		}
	}

	if got := nu3.ByPrecision[0].Combination.Name(); got != "arpls+area" {
		t.Errorf("ByPrecision[0] = %s, want arpls+area", got)
	}

	if got := nu3.ByQuality[0].Combination.Name(); got != "arpls+area" {
		t.Errorf("ByQuality[0] = %s, want arpls+area", got)
	}

	// Empty regions rank nobody.
	for _, rr := range rankings {
		if rr.Region != zircon.RegionNu3 && len(rr.ByScore) != 0 {
			t.Errorf("region %v: ByScore has %d entries, want 0", rr.Region, len(rr.ByScore))
		}
	}
}

func TestRankRegionsSkipsFailedResults(t *testing.T) {
	ok := syntheticResult(baseline.MethodARPLS, normalize.MethodRange, zircon.RegionNu3, 0.8, 12, 0.90)
	bad := syntheticResult(baseline.MethodSpline, normalize.MethodRange, zircon.RegionNu3, 0.99, 1, 0.99)
	bad.Failed = true

	rankings := rankRegions([]Result{ok, bad})

	for _, rr := range rankings {
		if rr.Region != zircon.RegionNu3 {
			continue
		}

		if len(rr.ByScore) != 1 {
			t.Fatalf("ByScore has %d entries, want 1", len(rr.ByScore))
		}

		if rr.ByScore[0].Combination.Name() != "arpls+range" {
			t.Errorf("ByScore[0] = %s, want arpls+range", rr.ByScore[0].Combination.Name())
		}
	}
}

func globalResult(b baseline.Method, n normalize.Method, fwhmMean, fwhmCV float64) Result {
	return Result{
		Combination: Combination{Baseline: b, Normalization: n},
		FWHM:        stats.Summary{N: 10, Mean: fwhmMean, CV: fwhmCV},
	}
}

func TestBaselineImpacts(t *testing.T) {
	res := []Result{
		globalResult(baseline.MethodARPLS, normalize.MethodRange, 10.0, 5.0),
		globalResult(baseline.MethodARPLS, normalize.MethodArea, 10.05, 5.5),
		globalResult(baseline.MethodARPLS, normalize.MethodPeak, 10.02, 5.2),
		globalResult(baseline.MethodARPLS, normalize.MethodL2, 10.04, 5.4),

		globalResult(baseline.MethodPolynomial, normalize.MethodRange, 10.0, 5.0),
		globalResult(baseline.MethodPolynomial, normalize.MethodArea, 12.0, 14.0),
	}

	impacts := baselineImpacts(baseline.Methods(), res)
	if len(impacts) != 3 {
		t.Fatalf("got %d impacts, want 3", len(impacts))
	}

	arpls := impacts[0]
	if arpls.Baseline != baseline.MethodARPLS || arpls.Variants != 4 {
		t.Fatalf("impacts[0] = %+v, want arpls with 4 variants", arpls)
	}

	if math.Abs(arpls.DeltaFWHM-0.05) > 1e-9 || math.Abs(arpls.DeltaCV-0.5) > 1e-9 {
		t.Errorf("arpls deltas = %v/%v, want 0.05/0.5", arpls.DeltaFWHM, arpls.DeltaCV)
	}

	if arpls.Level != ImpactMinimal {
		t.Errorf("arpls level = %v, want minimal", arpls.Level)
	}

	poly := impacts[1]
	if poly.Variants != 2 {
		t.Fatalf("polynomial variants = %d, want 2", poly.Variants)
	}

	// ΔFWHM = 2.0 grades high; ΔCV = 9.0 grades high as well.
	if poly.Level != ImpactHigh {
		t.Errorf("polynomial level = %v, want high", poly.Level)
	}

	// No successful spline variants: zero spread, minimal impact.
	spline := impacts[2]
	if spline.Variants != 0 || spline.Level != ImpactMinimal {
		t.Errorf("spline impact = %+v, want 0 variants at minimal", spline)
	}
}

func TestGradeImpactLevels(t *testing.T) {
	tests := []struct {
		name      string
		deltaFWHM float64
		deltaCV   float64
		want      ImpactLevel
	}{
		{"both minimal", 0.05, 0.5, ImpactMinimal},
		{"fwhm low", 0.3, 0.5, ImpactLow},
		{"cv low", 0.05, 2, ImpactLow},
		{"fwhm moderate", 1.0, 0.5, ImpactModerate},
		{"cv moderate", 0.05, 5, ImpactModerate},
		{"fwhm high", 2.0, 0.5, ImpactHigh},
		{"cv high", 0.05, 9, ImpactHigh},
		{"worse wins", 0.3, 9, ImpactHigh},
		{"boundary fwhm", 0.1, 0, ImpactLow},
		{"boundary cv", 0, 1, ImpactLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gradeImpact(tt.deltaFWHM, tt.deltaCV); got != tt.want {
				t.Errorf("gradeImpact(%v, %v) = %v, want %v", tt.deltaFWHM, tt.deltaCV, got, tt.want)
			}
		})
	}
}

func TestDefaultOptionsGrid(t *testing.T) {
	combos := DefaultOptions().Combinations()

	if len(combos) != 12 {
		t.Fatalf("got %d combinations, want 12", len(combos))
	}

	seen := make(map[string]bool, len(combos))
	for _, c := range combos {
		if seen[c.Name()] {
			t.Errorf("duplicate combination %s", c.Name())
		}

		seen[c.Name()] = true

		if c.Normalization == normalize.MethodIdentity {
			t.Errorf("identity normalization must not appear in the default grid")
		}
	}

	if combos[0].Name() != "arpls+range" {
		t.Errorf("combos[0] = %s, want arpls+range", combos[0].Name())
	}
}

func TestRunPropagatesPipelineCounters(t *testing.T) {
	tables := threePeakTables(t)

	// Add a junk column that gets skipped for being zero-heavy.
	n := tables[0].Columns[0].Spectrum.Len()
	zeros := make([]float64, n)
	tables[0].Columns = append(tables[0].Columns, spectrum.Column{
		Name:     "g9_p9",
		Grain:    "g9",
		Location: "p9",
		Spectrum: tables[0].Columns[0].Spectrum.WithIntensities(zeros),
	})

	opts := DefaultOptions()
	opts.Baselines = []baseline.Method{baseline.MethodSpline}
	opts.Normalizations = []normalize.Method{normalize.MethodRange}

	summary, err := Run(tables, opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	res := summary.Results[0]
	if res.Failed {
		t.Fatalf("combination failed: %s", res.Reason)
	}

	if res.SpectraProcessed != 1 || res.SpectraSkipped != 1 {
		t.Errorf("processed/skipped = %d/%d, want 1/1", res.SpectraProcessed, res.SpectraSkipped)
	}

	if len(res.Warnings) == 0 {
		t.Error("expected a skip warning for the zero-heavy column")
	}
}
