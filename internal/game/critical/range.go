package critical

// Range bounds for the natural roll that threatens a critical hit.
const (
	MinRange = 15
	MaxRange = 20
)

// Range returns the lowest natural roll that threatens a critical hit.
// The base is 18 for the natural-18 options and 20 otherwise; the weapon's
// critical modifier is subtracted, so a positive modifier widens the range.
//
// Postcondition: MinRange <= result <= MaxRange.
func Range(opt HitOption, weaponModifier int) int {
	base := MaxRange
	if opt.Natural18() {
		base = 18
	}
	r := base - weaponModifier
	if r < MinRange {
		return MinRange
	}
	if r > MaxRange {
		return MaxRange
	}
	return r
}
