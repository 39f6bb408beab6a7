package zircon

// DamageCategory grades accumulated radiation damage (metamictization) from
// the broadening of the ν₃(SiO₄) band.
type DamageCategory int

const (
	DamageLow DamageCategory = iota
	DamageModerate
	DamageHigh
	DamageNearAmorphous
)

// String returns the category's display name.
func (c DamageCategory) String() string {
	switch c {
	case DamageLow:
		return "low damage"
	case DamageModerate:
		return "moderate damage"
	case DamageHigh:
		return "high damage"
	default:
		return "near-amorphous"
	}
}

// Category thresholds on FWHM in cm⁻¹. Boundaries belong to the lower
// category (FWHM = 8 is still low damage).
const (
	fwhmLowMax      = 8.0
	fwhmModerateMax = 14.5
	fwhmHighMax     = 25.0
)

// Dose calibration constants: dose = doseIntercept + doseSlope·FWHM, in
// 10¹⁸ α-decay events per gram.
const (
	doseIntercept = -0.1402
	doseSlope     = 0.07683
)

// Dose estimates the radiation dose from a fitted FWHM (cm⁻¹) via the fixed
// linear calibration.
func Dose(fwhm float64) float64 {
	return doseIntercept + doseSlope*fwhm
}

// CategoryForFWHM grades the damage from a fitted FWHM (cm⁻¹).
func CategoryForFWHM(fwhm float64) DamageCategory {
	switch {
	case fwhm <= fwhmLowMax:
		return DamageLow
	case fwhm <= fwhmModerateMax:
		return DamageModerate
	case fwhm <= fwhmHighMax:
		return DamageHigh
	default:
		return DamageNearAmorphous
	}
}
