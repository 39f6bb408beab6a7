package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/algo-raman/sweep"
)

// RenderRankings prints the per-region leaderboards: for every populated
// region the combinations ordered by composite score, with the precision
// and quality ranks alongside.
func RenderRankings(w io.Writer, s sweep.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, rr := range s.Rankings {
		if len(rr.ByScore) == 0 {
			continue
		}

		precision := rankByName(rr.ByPrecision)
		quality := rankByName(rr.ByQuality)

		fmt.Fprintf(tw, "region %s\n", rr.Region)
		fmt.Fprintf(tw, "rank\tcombination\tscore\tfwhm cv [%%]\tmean r2\tpeaks\tprecision rank\tquality rank\n")

		for i, e := range rr.ByScore {
			name := e.Combination.Name()
			fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.6f\t%d\t%d\t%d\n",
				i+1, name, e.Score, e.FWHMCV, e.R2Mean, e.Count,
				precision[name], quality[name])
		}

		fmt.Fprintln(tw)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: rendering rankings: %w", err)
	}

	return nil
}

func rankByName(entries []sweep.Entry) map[string]int {
	out := make(map[string]int, len(entries))
	for i, e := range entries {
		out[e.Combination.Name()] = i + 1
	}

	return out
}

// RenderImpacts prints the per-baseline normalization-impact table.
func RenderImpacts(w io.Writer, s sweep.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "baseline\tvariants\tdelta fwhm [cm⁻¹]\tdelta cv [%%]\timpact\n")

	for _, imp := range s.Impacts {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%s\n",
			imp.Baseline, imp.Variants, imp.DeltaFWHM, imp.DeltaCV, imp.Level)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: rendering impacts: %w", err)
	}

	return nil
}

// RenderSweepSummary prints one line per combination with its status and
// headline metrics.
func RenderSweepSummary(w io.Writer, s sweep.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "combination\tstatus\tpeaks\toutliers\texcellent [%%]\tpoor [%%]\tmean r2\tmean fwhm\tfwhm cv [%%]\n")

	for _, res := range s.Results {
		if res.Failed {
			fmt.Fprintf(tw, "%s\tfailed: %s\t\t\t\t\t\t\t\n", res.Combination.Name(), res.Reason)
			continue
		}

		fmt.Fprintf(tw, "%s\tok\t%d\t%d\t%.2f\t%.2f\t%.6f\t%.4f\t%.4f\n",
			res.Combination.Name(), res.TotalPeaks, res.RemovedOutliers,
			res.PctExcellent, res.PctPoor, res.R2.Mean, res.FWHM.Mean, res.FWHM.CV)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: rendering sweep summary: %w", err)
	}

	return nil
}
