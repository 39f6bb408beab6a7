// Package sweep runs the processing pipeline under every baseline ×
// normalization combination and aggregates the outcomes into a comparative
// summary: global fit-quality metrics, per-region statistics with a
// composite score, three rankings per region, and per-baseline
// normalization-impact spreads. A combination that fails or yields no peaks
// is recorded as failed and never aborts the sweep.
package sweep

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/normalize"
	"github.com/cwbudde/algo-raman/pipeline"
	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/spectrum"
	"github.com/cwbudde/algo-raman/stats"
	"github.com/cwbudde/algo-raman/zircon"
)

var (
	ErrNoCombinations = errors.New("sweep: no baseline or normalization methods selected")
	ErrNoInput        = errors.New("sweep: no input spectra")
)

// Composite score weights: precision (inverse FWHM variability), fit
// quality, positional consistency.
const (
	scoreWeightPrecision = 0.4
	scoreWeightQuality   = 0.3
	scoreWeightPosition  = 0.3
)

// Fit-quality histogram thresholds.
const (
	excellentR2 = 0.9
	poorR2      = 0.3
)

// Combination is one ordered (baseline, normalization) pair.
type Combination struct {
	Baseline      baseline.Method
	Normalization normalize.Method
}

// Name returns the combination's identifier, e.g. "arpls+range".
func (c Combination) Name() string {
	return c.Baseline.String() + "+" + c.Normalization.String()
}

// Options configures a sweep run.
type Options struct {
	// Base supplies every stage parameter except the baseline and
	// normalization methods, which the sweep overrides per combination.
	Base pipeline.Config

	// Baselines and Normalizations span the combination grid. Empty slices
	// select the default sets: all three baseline methods and the four
	// scaling normalizations (identity is excluded from sweeps).
	Baselines      []baseline.Method
	Normalizations []normalize.Method

	// Workers bounds the number of combinations processed concurrently.
	// Zero or negative means one worker per combination.
	Workers int
}

// DefaultOptions returns the full 3×4 grid over the default pipeline
// configuration.
func DefaultOptions() Options {
	return Options{
		Base:           pipeline.DefaultConfig(),
		Baselines:      baseline.Methods(),
		Normalizations: DefaultNormalizations(),
	}
}

// DefaultNormalizations returns the four scaling methods swept by default.
func DefaultNormalizations() []normalize.Method {
	return []normalize.Method{
		normalize.MethodRange,
		normalize.MethodArea,
		normalize.MethodPeak,
		normalize.MethodL2,
	}
}

// Combinations expands the grid in baseline-major, normalization-minor
// order.
func (o Options) Combinations() []Combination {
	out := make([]Combination, 0, len(o.Baselines)*len(o.Normalizations))

	for _, b := range o.Baselines {
		for _, n := range o.Normalizations {
			out = append(out, Combination{Baseline: b, Normalization: n})
		}
	}

	return out
}

// RegionMetrics aggregates the cleaned peaks of one spectral region under
// one combination. Count is zero for regions the combination never hit; the
// score is only defined for populated regions.
type RegionMetrics struct {
	Region zircon.Region
	Count  int

	R2     stats.Summary
	FWHM   stats.Summary
	Center stats.Summary
	Area   stats.Summary

	// Score = 0.4·(1 − FWHM_CV/100) + 0.3·R²_mean + 0.3·(1 − Center_CV/100).
	Score float64
}

// Result is the aggregate outcome of one combination.
type Result struct {
	Combination Combination

	// Failed marks combinations whose pipeline errored or whose cleaned
	// table came out empty; Reason carries the diagnostic.
	Failed bool
	Reason string

	// TotalPeaks, PctExcellent and PctPoor describe every successful fit
	// before outlier cleaning; the statistics below describe the cleaned
	// table.
	TotalPeaks   int
	PctExcellent float64 // fits with R² > 0.9, percent
	PctPoor      float64 // fits with R² < 0.3, percent

	RemovedOutliers  int
	SpectraProcessed int
	SpectraSkipped   int
	FitsFailed       int

	R2   stats.Summary // cleaned, all regions
	FWHM stats.Summary // cleaned, all regions

	// Regions holds the seven classified regions in declaration order.
	Regions []RegionMetrics

	// Peaks is the combination's cleaned peak table, kept so reports can
	// write per-combination result tables.
	Peaks results.Table

	Warnings []pipeline.Warning
}

// RegionMetricsFor returns the metrics of one region and whether the
// combination populated it.
func (r Result) RegionMetricsFor(region zircon.Region) (RegionMetrics, bool) {
	for _, rm := range r.Regions {
		if rm.Region == region {
			return rm, rm.Count > 0
		}
	}

	return RegionMetrics{}, false
}

// Summary is the outcome of a full sweep: one Result per combination in
// grid order, per-region rankings over the successful results, and
// per-baseline normalization-impact spreads.
type Summary struct {
	Results  []Result
	Rankings []RegionRanking
	Impacts  []BaselineImpact

	Succeeded int
	Failed    int
}

// Run executes every combination of the grid over the input tables. Worker
// goroutines own their configuration copies and write to disjoint slots, so
// results come back in deterministic grid order regardless of scheduling.
// Per-combination failures are recorded, never fatal; only an empty grid or
// empty input aborts the sweep.
func Run(tables []spectrum.Table, opts Options) (Summary, error) {
	combos := opts.Combinations()
	if len(combos) == 0 {
		return Summary{}, ErrNoCombinations
	}

	var columns int
	for _, t := range tables {
		columns += len(t.Columns)
	}

	if columns == 0 {
		return Summary{}, ErrNoInput
	}

	workers := opts.Workers
	if workers <= 0 || workers > len(combos) {
		workers = len(combos)
	}

	summary := Summary{Results: make([]Result, len(combos))}

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				summary.Results[i] = runCombination(tables, opts.Base, combos[i])
			}
		}()
	}

	for i := range combos {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	for _, res := range summary.Results {
		if res.Failed {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	summary.Rankings = rankRegions(summary.Results)
	summary.Impacts = baselineImpacts(opts.Baselines, summary.Results)

	return summary, nil
}

// runCombination executes the pipeline for one grid cell and aggregates its
// tables. Every failure path returns a Result marked failed.
func runCombination(tables []spectrum.Table, base pipeline.Config, combo Combination) Result {
	res := Result{Combination: combo}

	cfg := base
	cfg.BaselineMethod = combo.Baseline
	cfg.Normalization = combo.Normalization

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		return failed(res, fmt.Sprintf("configuration rejected: %v", err))
	}

	out, err := runner.Run(tables)
	if err != nil {
		return failed(res, fmt.Sprintf("pipeline failed: %v", err))
	}

	res.Warnings = out.Warnings
	res.SpectraProcessed = out.SpectraProcessed
	res.SpectraSkipped = out.SpectraSkipped
	res.FitsFailed = out.FitsFailed

	if out.Table.Len() == 0 {
		return failed(res, "no peaks fitted")
	}

	res.TotalPeaks = out.Table.Len()
	res.PctExcellent, res.PctPoor = qualityHistogram(out.Table)
	res.RemovedOutliers = out.Outliers.TotalRemoved

	if out.Cleaned.Len() == 0 {
		return failed(res, "no peaks survived outlier cleaning")
	}

	res.Peaks = out.Cleaned
	aggregate(&res, out.Cleaned)

	return res
}

func failed(res Result, reason string) Result {
	res.Failed = true
	res.Reason = reason

	return res
}

// qualityHistogram computes the excellent/poor fit percentages over the
// full (pre-cleaning) table; cleaning removes the poor fits, so measuring
// afterwards would always report zero.
func qualityHistogram(t results.Table) (excellent, poor float64) {
	var nExcellent, nPoor int

	for _, rec := range t.Records {
		if rec.Fit.R2 > excellentR2 {
			nExcellent++
		}

		if rec.Fit.R2 < poorR2 {
			nPoor++
		}
	}

	total := float64(t.Len())

	return 100 * float64(nExcellent) / total, 100 * float64(nPoor) / total
}

// aggregate fills the global and per-region statistics from the cleaned
// table.
func aggregate(res *Result, cleaned results.Table) {
	r2 := stats.NewStreaming()
	fwhm := stats.NewStreaming()

	for _, rec := range cleaned.Records {
		r2.Push(rec.Fit.R2)
		fwhm.Push(rec.Fit.FWHM)
	}

	res.R2 = r2.Result()
	res.FWHM = fwhm.Result()

	groups := cleaned.RegionIndices()
	res.Regions = make([]RegionMetrics, 0, len(zircon.Regions()))

	for _, region := range zircon.Regions() {
		res.Regions = append(res.Regions, regionMetrics(cleaned, region, groups[region]))
	}
}

func regionMetrics(t results.Table, region zircon.Region, indices []int) RegionMetrics {
	rm := RegionMetrics{Region: region, Count: len(indices)}
	if len(indices) == 0 {
		return rm
	}

	rm.R2 = stats.Describe(t.R2s(indices))
	rm.FWHM = stats.Describe(t.FWHMs(indices))
	rm.Center = stats.Describe(t.Centers(indices))
	rm.Area = stats.Describe(t.Areas(indices))
	rm.Score = compositeScore(rm.FWHM.CV, rm.R2.Mean, rm.Center.CV)

	return rm
}

// compositeScore combines precision, fit quality and positional
// consistency; higher is better.
func compositeScore(fwhmCV, r2Mean, centerCV float64) float64 {
	return scoreWeightPrecision*(1-fwhmCV/100) +
		scoreWeightQuality*r2Mean +
		scoreWeightPosition*(1-centerCV/100)
}
