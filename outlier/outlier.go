// Package outlier removes statistically or physically implausible peaks
// from a result table. Each classified region is screened independently
// with four criteria; unclassified peaks get a stricter two-rule screen.
// Flagged row indices are unioned and applied once, producing a new table.
package outlier

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-raman/results"
	"github.com/cwbudde/algo-raman/stats"
	"github.com/cwbudde/algo-raman/zircon"
)

var (
	ErrInvalidFence     = errors.New("outlier: fence multiplier must be positive")
	ErrInvalidZScore    = errors.New("outlier: z-score threshold must be positive")
	ErrInvalidWidthCap  = errors.New("outlier: width cap must be positive")
	ErrInvalidMinPoints = errors.New("outlier: minimum point counts must be positive")
)

// Criteria configures the screening rules.
type Criteria struct {
	MinR2           float64 // classified rows below this fit quality are dropped
	FenceK          float64 // Tukey fence multiplier on the FWHM quartiles
	MinFencePoints  int     // quartile rule needs at least this many rows
	MaxZScore       float64 // |FWHM − mean|/std above this is dropped
	MinZScorePoints int     // z-score rule needs at least this many rows
	MaxFWHM         float64 // cm⁻¹; wider peaks are physically implausible

	UnclassifiedMinR2   float64
	UnclassifiedMaxFWHM float64 // cm⁻¹
}

// DefaultCriteria returns the standard screening thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinR2:           0.3,
		FenceK:          1.5,
		MinFencePoints:  4,
		MaxZScore:       3,
		MinZScorePoints: 3,
		MaxFWHM:         60,

		UnclassifiedMinR2:   0.5,
		UnclassifiedMaxFWHM: 50,
	}
}

// Validate checks the criteria for consistency.
func (c Criteria) Validate() error {
	if c.FenceK <= 0 {
		return ErrInvalidFence
	}

	if c.MaxZScore <= 0 {
		return ErrInvalidZScore
	}

	if c.MaxFWHM <= 0 || c.UnclassifiedMaxFWHM <= 0 {
		return ErrInvalidWidthCap
	}

	if c.MinFencePoints < 1 || c.MinZScorePoints < 1 {
		return ErrInvalidMinPoints
	}

	return nil
}

// Snapshot is the descriptive state of one region's rows.
type Snapshot struct {
	FWHM   stats.Summary
	MeanR2 float64
}

// RegionReport describes one region's cleaning pass.
type RegionReport struct {
	Region         zircon.Region
	Initial        int
	Removed        int
	Remaining      int
	RemovedIndices []int // row indices in the original table, ascending
	Before         Snapshot
	After          Snapshot
}

// Report summarizes a full cleaning pass. Regions appear in declaration
// order, unclassified last; regions with no rows are omitted.
type Report struct {
	Regions        []RegionReport
	TotalRemoved   int
	RemovedIndices []int // unioned across regions, ascending
}

// Clean screens the table region by region and returns a new table without
// the flagged rows and a report of what was removed. The input table is not
// modified; identical input always yields identical output.
func Clean(t results.Table, c Criteria) (results.Table, Report, error) {
	if err := c.Validate(); err != nil {
		return results.Table{}, Report{}, err
	}

	groups := t.RegionIndices()
	drop := results.NewIndexSet()

	var regions []RegionReport

	order := append(zircon.Regions(), zircon.RegionUnclassified)
	for _, region := range order {
		indices := groups[region]
		if len(indices) == 0 {
			continue
		}

		var flagged results.IndexSet
		if region == zircon.RegionUnclassified {
			flagged = flagUnclassified(t, indices, c)
		} else {
			flagged = flagRegion(t, indices, c)
		}

		drop = drop.Union(flagged)

		regions = append(regions, regionReport(t, region, indices, flagged))
	}

	report := Report{
		Regions:        regions,
		TotalRemoved:   drop.Len(),
		RemovedIndices: drop.Sorted(),
	}

	return t.Remove(drop), report, nil
}

// flagRegion applies the four classified-region rules and unions their hits.
func flagRegion(t results.Table, indices []int, c Criteria) results.IndexSet {
	drop := results.NewIndexSet()
	fwhms := t.FWHMs(indices)

	for k, idx := range indices {
		if t.Records[idx].Fit.R2 < c.MinR2 {
			drop.Add(idx)
		}

		if fwhms[k] > c.MaxFWHM {
			drop.Add(idx)
		}
	}

	if len(indices) >= c.MinFencePoints {
		lo, hi := stats.Fences(fwhms, c.FenceK)

		for k, idx := range indices {
			if fwhms[k] < lo || fwhms[k] > hi {
				drop.Add(idx)
			}
		}
	}

	if len(indices) >= c.MinZScorePoints {
		sum := stats.Describe(fwhms)

		if sum.Std > 0 {
			for k, idx := range indices {
				if math.Abs(fwhms[k]-sum.Mean)/sum.Std > c.MaxZScore {
					drop.Add(idx)
				}
			}
		}
	}

	return drop
}

func flagUnclassified(t results.Table, indices []int, c Criteria) results.IndexSet {
	drop := results.NewIndexSet()

	for _, idx := range indices {
		rec := t.Records[idx]
		if rec.Fit.R2 < c.UnclassifiedMinR2 || rec.Fit.FWHM > c.UnclassifiedMaxFWHM {
			drop.Add(idx)
		}
	}

	return drop
}

func regionReport(t results.Table, region zircon.Region, indices []int, flagged results.IndexSet) RegionReport {
	kept := make([]int, 0, len(indices))

	for _, idx := range indices {
		if !flagged.Has(idx) {
			kept = append(kept, idx)
		}
	}

	return RegionReport{
		Region:         region,
		Initial:        len(indices),
		Removed:        flagged.Len(),
		Remaining:      len(kept),
		RemovedIndices: flagged.Sorted(),
		Before:         snapshot(t, indices),
		After:          snapshot(t, kept),
	}
}

func snapshot(t results.Table, indices []int) Snapshot {
	if len(indices) == 0 {
		return Snapshot{}
	}

	return Snapshot{
		FWHM:   stats.Describe(t.FWHMs(indices)),
		MeanR2: stats.Describe(t.R2s(indices)).Mean,
	}
}
