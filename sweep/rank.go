package sweep

import (
	"sort"

	"github.com/cwbudde/algo-raman/baseline"
	"github.com/cwbudde/algo-raman/zircon"
)

// Entry is one combination's standing within a region: the composite score
// and the two metrics the alternative rankings sort by.
type Entry struct {
	Combination Combination
	Count       int
	Score       float64
	FWHMCV      float64 // percent
	R2Mean      float64
}

// RegionRanking orders the populated combinations of one region three ways:
// by composite score (best first), by FWHM variability (most precise
// first), and by mean R² (best fits first). Ties break on the combination
// name so identical metrics still rank deterministically.
type RegionRanking struct {
	Region      zircon.Region
	ByScore     []Entry
	ByPrecision []Entry
	ByQuality   []Entry
}

// rankRegions builds one ranking per classified region from the successful
// results. Combinations that failed or left a region empty do not rank.
func rankRegions(res []Result) []RegionRanking {
	rankings := make([]RegionRanking, 0, len(zircon.Regions()))

	for _, region := range zircon.Regions() {
		var entries []Entry

		for _, r := range res {
			if r.Failed {
				continue
			}

			rm, ok := r.RegionMetricsFor(region)
			if !ok {
				continue
			}

			entries = append(entries, Entry{
				Combination: r.Combination,
				Count:       rm.Count,
				Score:       rm.Score,
				FWHMCV:      rm.FWHM.CV,
				R2Mean:      rm.R2.Mean,
			})
		}

		rankings = append(rankings, RegionRanking{
			Region:      region,
			ByScore:     sortEntries(entries, func(a, b Entry) bool { return a.Score > b.Score }),
			ByPrecision: sortEntries(entries, func(a, b Entry) bool { return a.FWHMCV < b.FWHMCV }),
			ByQuality:   sortEntries(entries, func(a, b Entry) bool { return a.R2Mean > b.R2Mean }),
		})
	}

	return rankings
}

// sortEntries returns a copy of entries ordered by less, with the
// combination name as the tie-break.
func sortEntries(entries []Entry, less func(a, b Entry) bool) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}

		if less(out[j], out[i]) {
			return false
		}

		return out[i].Combination.Name() < out[j].Combination.Name()
	})

	return out
}

// ImpactLevel grades how strongly the normalization choice moves a baseline
// method's results.
type ImpactLevel int

const (
	ImpactMinimal ImpactLevel = iota
	ImpactLow
	ImpactModerate
	ImpactHigh
)

// String returns the level's display name.
func (l ImpactLevel) String() string {
	switch l {
	case ImpactMinimal:
		return "minimal"
	case ImpactLow:
		return "low"
	case ImpactModerate:
		return "moderate"
	default:
		return "high"
	}
}

// Impact grading thresholds: a spread below deltaFWHMThresholds[i] (cm⁻¹)
// respectively deltaCVThresholds[i] (percentage points) grades at level i;
// anything above the last threshold is high.
var (
	deltaFWHMThresholds = [3]float64{0.1, 0.5, 1.5}
	deltaCVThresholds   = [3]float64{1, 3, 8}
)

// BaselineImpact quantifies the normalization-driven spread within one
// baseline family: max−min of the global FWHM mean and of the global FWHM
// CV across the family's successful normalization variants.
type BaselineImpact struct {
	Baseline  baseline.Method
	Variants  int     // successful normalization variants
	DeltaFWHM float64 // cm⁻¹
	DeltaCV   float64 // percentage points
	Level     ImpactLevel
}

// baselineImpacts computes one impact record per baseline method. Families
// with fewer than two successful variants report zero spread at the minimal
// level.
func baselineImpacts(baselines []baseline.Method, res []Result) []BaselineImpact {
	impacts := make([]BaselineImpact, 0, len(baselines))

	for _, b := range baselines {
		impact := BaselineImpact{Baseline: b}

		var (
			meanLo, meanHi float64
			cvLo, cvHi     float64
		)

		for _, r := range res {
			if r.Failed || r.Combination.Baseline != b {
				continue
			}

			mean := r.FWHM.Mean
			cv := r.FWHM.CV

			if impact.Variants == 0 {
				meanLo, meanHi = mean, mean
				cvLo, cvHi = cv, cv
			} else {
				meanLo = min(meanLo, mean)
				meanHi = max(meanHi, mean)
				cvLo = min(cvLo, cv)
				cvHi = max(cvHi, cv)
			}

			impact.Variants++
		}

		if impact.Variants > 1 {
			impact.DeltaFWHM = meanHi - meanLo
			impact.DeltaCV = cvHi - cvLo
		}

		impact.Level = gradeImpact(impact.DeltaFWHM, impact.DeltaCV)
		impacts = append(impacts, impact)
	}

	return impacts
}

// gradeImpact grades each spread against its thresholds and returns the
// worse of the two levels.
func gradeImpact(deltaFWHM, deltaCV float64) ImpactLevel {
	fwhmLevel := gradeAgainst(deltaFWHM, deltaFWHMThresholds)
	cvLevel := gradeAgainst(deltaCV, deltaCVThresholds)

	if cvLevel > fwhmLevel {
		return cvLevel
	}

	return fwhmLevel
}

func gradeAgainst(delta float64, thresholds [3]float64) ImpactLevel {
	switch {
	case delta < thresholds[0]:
		return ImpactMinimal
	case delta < thresholds[1]:
		return ImpactLow
	case delta < thresholds[2]:
		return ImpactModerate
	default:
		return ImpactHigh
	}
}
