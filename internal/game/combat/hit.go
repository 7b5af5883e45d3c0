package combat

import (
	"regexp"
	"strconv"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	targetACPattern = regexp.MustCompile(`(?i)Target\s+AC\s+(-?\d+)`)
	hitACPattern    = regexp.MustCompile(`(?i)(?:Hit\s+AC|Critical\s+AC)\s+(-?\d+)`)
)

// Hit is the outcome of comparing the AC a roll hit against the target's AC.
type Hit struct {
	TargetAC Maybe
	HitAC    Maybe
	// HitBy is TargetAC - HitAC; unknown unless both are known.
	HitBy Maybe
	// AttackHit is true only when HitBy is known and non-negative.
	AttackHit bool
}

// ResolveHit extracts the target AC and hit AC from rendered roll text and
// compares them. HTML tags are stripped first; missing figures stay unknown.
func ResolveHit(renderedText string) Hit {
	text := tagPattern.ReplaceAllString(renderedText, "")
	return CompareAC(matchInt(targetACPattern, text), matchInt(hitACPattern, text))
}

// CompareAC derives hit-by and hit/miss from two possibly unknown AC values.
func CompareAC(targetAC, hitAC Maybe) Hit {
	h := Hit{TargetAC: targetAC, HitAC: hitAC}
	if targetAC.OK && hitAC.OK {
		h.HitBy = Known(targetAC.V - hitAC.V)
		h.AttackHit = h.HitBy.V >= 0
	}
	return h
}

func matchInt(re *regexp.Regexp, text string) Maybe {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return Unknown
	}
	return Known(v)
}
