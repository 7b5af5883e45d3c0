package combat

import "strconv"

// Maybe is an integer that may be unknown, such as an AC figure parsed from
// roll text or an actor's THAC0.
type Maybe struct {
	V  int
	OK bool
}

// Known wraps v as a known value.
func Known(v int) Maybe { return Maybe{V: v, OK: true} }

// Unknown is the absent value.
var Unknown = Maybe{}

// Ptr returns a Maybe built from p, unknown when p is nil.
func Ptr(p *int) Maybe {
	if p == nil {
		return Unknown
	}
	return Known(*p)
}

// String returns the decimal value, or "unknown".
func (m Maybe) String() string {
	if !m.OK {
		return "unknown"
	}
	return strconv.Itoa(m.V)
}
