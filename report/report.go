// Package report renders the pipeline's result tables as CSV and as
// human-readable text. Precision is part of the output contract: R² carries
// six decimals, FWHM and coefficient-of-variation values four; counts stay
// integral.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cwbudde/algo-raman/outlier"
	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/sweep"
)

// peakHeader is the shared schema of the full and cleaned peak tables.
var peakHeader = []string{
	"sample", "grain", "location", "column", "peak_index", "region", "damage",
	"dose", "amplitude", "center", "sigma", "offset", "fwhm",
	"analytic_area", "numeric_area", "r_squared", "reduced_chi2",
	"window_low", "window_high", "window_points",
}

// WritePeakTable writes one CSV row per peak record. The full and cleaned
// tables use the identical schema.
func WritePeakTable(w io.Writer, t results.Table) error {
	cw := csv.NewWriter(w)

	rows := make([][]string, 0, t.Len()+1)
	rows = append(rows, peakHeader)

	for _, rec := range t.Records {
		rows = append(rows, []string{
			rec.Sample,
			rec.Grain,
			rec.Location,
			rec.Column,
			strconv.Itoa(rec.PeakIndex),
			rec.Region.String(),
			rec.Damage.String(),
			f4(rec.Dose),
			f4(rec.Fit.Amplitude),
			f4(rec.Fit.Center),
			f4(rec.Fit.Sigma),
			f4(rec.Fit.Offset),
			f4(rec.Fit.FWHM),
			f4(rec.Fit.AnalyticArea),
			f4(rec.Fit.NumericArea),
			f6(rec.Fit.R2),
			f6(rec.Fit.ReducedChi2),
			f4(rec.Fit.WindowLow),
			f4(rec.Fit.WindowHigh),
			strconv.Itoa(rec.Fit.WindowSize),
		})
	}

	return flush(cw, rows, "peak table")
}

// WriteOutlierSummary writes one CSV row per region of the cleaning report,
// with before/after FWHM statistics and the removed row indices.
func WriteOutlierSummary(w io.Writer, rep outlier.Report) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{
		"region", "initial", "removed", "remaining", "removed_indices",
		"fwhm_mean_before", "fwhm_std_before", "fwhm_cv_before", "r2_mean_before",
		"fwhm_mean_after", "fwhm_std_after", "fwhm_cv_after", "r2_mean_after",
	}}

	for _, rr := range rep.Regions {
		rows = append(rows, []string{
			rr.Region.String(),
			strconv.Itoa(rr.Initial),
			strconv.Itoa(rr.Removed),
			strconv.Itoa(rr.Remaining),
			joinIndices(rr.RemovedIndices),
			f4(rr.Before.FWHM.Mean),
			f4(rr.Before.FWHM.Std),
			f4(rr.Before.FWHM.CV),
			f6(rr.Before.MeanR2),
			f4(rr.After.FWHM.Mean),
			f4(rr.After.FWHM.Std),
			f4(rr.After.FWHM.CV),
			f6(rr.After.MeanR2),
		})
	}

	return flush(cw, rows, "outlier summary")
}

// WriteSweepSummary writes one CSV row per combination: status and the
// global metrics. Failed combinations appear with their reason so no grid
// cell goes silently missing.
func WriteSweepSummary(w io.Writer, s sweep.Summary) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{
		"combination", "baseline", "normalization", "status", "reason",
		"total_peaks", "removed_outliers", "spectra_processed",
		"spectra_skipped", "fits_failed", "pct_excellent", "pct_poor",
		"r2_mean", "r2_std", "fwhm_mean", "fwhm_std", "fwhm_cv",
	}}

	for _, res := range s.Results {
		status := "ok"
		if res.Failed {
			status = "failed"
		}

		rows = append(rows, []string{
			res.Combination.Name(),
			res.Combination.Baseline.String(),
			res.Combination.Normalization.String(),
			status,
			res.Reason,
			strconv.Itoa(res.TotalPeaks),
			strconv.Itoa(res.RemovedOutliers),
			strconv.Itoa(res.SpectraProcessed),
			strconv.Itoa(res.SpectraSkipped),
			strconv.Itoa(res.FitsFailed),
			f2(res.PctExcellent),
			f2(res.PctPoor),
			f6(res.R2.Mean),
			f6(res.R2.Std),
			f4(res.FWHM.Mean),
			f4(res.FWHM.Std),
			f4(res.FWHM.CV),
		})
	}

	return flush(cw, rows, "sweep summary")
}

// regionMetricsRow renders one region of one combination.
func regionMetricsRow(res sweep.Result, rm sweep.RegionMetrics) []string {
	return []string{
		res.Combination.Name(),
		res.Combination.Baseline.String(),
		res.Combination.Normalization.String(),
		rm.Region.String(),
		strconv.Itoa(rm.Count),
		f4(rm.Score),
		f6(rm.R2.Mean),
		f6(rm.R2.Std),
		f4(rm.FWHM.Mean),
		f4(rm.FWHM.Std),
		f4(rm.FWHM.CV),
		f4(rm.Center.Mean),
		f4(rm.Center.Std),
		f4(rm.Center.CV),
		f4(rm.Area.Mean),
		f4(rm.Area.Std),
	}
}

var regionMetricsHeader = []string{
	"combination", "baseline", "normalization", "region", "count", "score",
	"r2_mean", "r2_std", "fwhm_mean", "fwhm_std", "fwhm_cv",
	"center_mean", "center_std", "center_cv", "area_mean", "area_std",
}

// WriteRegionMetrics writes the seven region rows of one combination.
func WriteRegionMetrics(w io.Writer, res sweep.Result) error {
	cw := csv.NewWriter(w)

	rows := make([][]string, 0, len(res.Regions)+1)
	rows = append(rows, regionMetricsHeader)

	for _, rm := range res.Regions {
		rows = append(rows, regionMetricsRow(res, rm))
	}

	return flush(cw, rows, "region metrics")
}

// WriteComparative writes the cross-combination table: seven region rows
// for every successful combination, in grid order. With a full successful
// 3×4 grid this is 84 data rows.
func WriteComparative(w io.Writer, s sweep.Summary) error {
	cw := csv.NewWriter(w)

	rows := [][]string{regionMetricsHeader}

	for _, res := range s.Results {
		if res.Failed {
			continue
		}

		for _, rm := range res.Regions {
			rows = append(rows, regionMetricsRow(res, rm))
		}
	}

	return flush(cw, rows, "comparative table")
}

func flush(cw *csv.Writer, rows [][]string, what string) error {
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: writing %s: %w", what, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flushing %s: %w", what, err)
	}

	return nil
}

func joinIndices(indices []int) string {
	out := ""

	for i, idx := range indices {
		if i > 0 {
			out += ";"
		}

		out += strconv.Itoa(idx)
	}

	return out
}

// f2, f4 and f6 fix the documented column precisions.
func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func f6(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
