package critical

// Severity grades a confirmed critical hit.
type Severity string

const (
	SeverityUnknown Severity = "unknown"
	SeverityMinor   Severity = "minor"
	SeverityMajor   Severity = "major"
	SeveritySevere  Severity = "severe"
	SeverityMortal  Severity = "mortal"
)

// SeverityFor grades a critical by weapon size against target size, given
// as ordinal positions from the size table. Either index being negative
// yields SeverityUnknown.
func SeverityFor(weaponIdx, targetIdx int) Severity {
	if weaponIdx < 0 || targetIdx < 0 {
		return SeverityUnknown
	}
	switch diff := weaponIdx - targetIdx; {
	case diff < 0:
		return SeverityMinor
	case diff == 0:
		return SeverityMajor
	case diff == 1:
		return SeveritySevere
	default:
		return SeverityMortal
	}
}
