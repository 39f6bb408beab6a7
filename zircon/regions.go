// Package zircon carries the zircon-specific physics: the seven
// vibrational-band regions of the Raman spectrum and the FWHM-based
// radiation-damage calibration.
package zircon

// Region identifies one of the seven zircon band intervals, or unclassified.
type Region int

const (
	RegionUnclassified Region = iota
	RegionNu3
	RegionNu1
	RegionNu2
	RegionExternal1
	RegionExternal2
	RegionExternal3
	RegionExternal4
)

// String returns the region's display name.
func (r Region) String() string {
	switch r {
	case RegionNu3:
		return "nu3(SiO4)"
	case RegionNu1:
		return "nu1(SiO4)"
	case RegionNu2:
		return "nu2(SiO4)"
	case RegionExternal1:
		return "external1"
	case RegionExternal2:
		return "external2"
	case RegionExternal3:
		return "external3"
	case RegionExternal4:
		return "external4"
	default:
		return "unclassified"
	}
}

// Interval is a wavenumber interval [Low, High] or [Low, High) depending on
// HighInclusive. Lows are always inclusive.
type Interval struct {
	Region        Region
	Low           float64 // cm⁻¹
	High          float64 // cm⁻¹
	HighInclusive bool
}

// Contains reports whether the center lies in the interval under its
// boundary convention.
func (iv Interval) Contains(center float64) bool {
	if center < iv.Low {
		return false
	}

	if iv.HighInclusive {
		return center <= iv.High
	}

	return center < iv.High
}

// The external bands 1-3 are adjacent; their half-open upper bounds keep a
// center on a shared boundary from matching twice.
var intervals = []Interval{
	{RegionNu3, 990, 1020, true},
	{RegionNu1, 965, 985, true},
	{RegionNu2, 430, 450, true},
	{RegionExternal1, 195, 210, false},
	{RegionExternal2, 210, 220, false},
	{RegionExternal3, 220, 230, false},
	{RegionExternal4, 350, 365, true},
}

// Classify maps a fitted peak center (cm⁻¹) to its region, or
// RegionUnclassified when no interval matches.
func Classify(center float64) Region {
	for _, iv := range intervals {
		if iv.Contains(center) {
			return iv.Region
		}
	}

	return RegionUnclassified
}

// Intervals returns the seven region intervals in declaration order.
func Intervals() []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)

	return out
}

// Regions returns the seven classified regions in declaration order.
func Regions() []Region {
	out := make([]Region, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, iv.Region)
	}

	return out
}
