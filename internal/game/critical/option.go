// Package critical holds the critical-hit and critical-miss house rules:
// the selectable options, the threat range, and severity by size.
package critical

import "strings"

// HitOption selects how critical hits are threatened and confirmed.
type HitOption string

const (
	HitNone            HitOption = "none"
	HitNatural20       HitOption = "natural20"
	HitNatural20Plus5  HitOption = "natural20Plus5"
	HitNatural20Reroll HitOption = "natural20Reroll"
	HitNatural18Plus5  HitOption = "natural18Plus5"
	HitNatural18Reroll HitOption = "natural18Reroll"
)

// MissOption selects how fumbles are confirmed.
type MissOption string

const (
	MissNone           MissOption = "none"
	MissNatural1       MissOption = "natural1"
	MissNatural1Minus5 MissOption = "natural1Minus5"
	MissNatural1Reroll MissOption = "natural1Reroll"
)

// HitOptions lists every valid HitOption.
var HitOptions = []HitOption{HitNone, HitNatural20, HitNatural20Plus5, HitNatural20Reroll, HitNatural18Plus5, HitNatural18Reroll}

// MissOptions lists every valid MissOption.
var MissOptions = []MissOption{MissNone, MissNatural1, MissNatural1Minus5, MissNatural1Reroll}

// ParseHitOption returns the HitOption named by s. Matching ignores case.
// ok is false for unrecognized values, in which case HitNone is returned.
func ParseHitOption(s string) (opt HitOption, ok bool) {
	for _, o := range HitOptions {
		if strings.EqualFold(string(o), strings.TrimSpace(s)) {
			return o, true
		}
	}
	return HitNone, false
}

// ParseMissOption returns the MissOption named by s. Matching ignores case.
// ok is false for unrecognized values, in which case MissNone is returned.
func ParseMissOption(s string) (opt MissOption, ok bool) {
	for _, o := range MissOptions {
		if strings.EqualFold(string(o), strings.TrimSpace(s)) {
			return o, true
		}
	}
	return MissNone, false
}

// Enabled reports whether critical hits are processed at all.
func (o HitOption) Enabled() bool { return o != HitNone && o != "" }

// Reroll reports whether a threat must be confirmed with a second attack roll.
func (o HitOption) Reroll() bool { return strings.HasSuffix(string(o), "Reroll") }

// Natural18 reports whether the option widens the base threat range to 18.
func (o HitOption) Natural18() bool { return strings.Contains(string(o), "natural18") }

// Enabled reports whether fumbles are processed at all.
func (o MissOption) Enabled() bool { return o != MissNone && o != "" }

// Reroll reports whether a fumble must be confirmed with a second attack roll.
func (o MissOption) Reroll() bool { return o == MissNatural1Reroll }

// Options bundles the two rule settings an attack is resolved under.
type Options struct {
	Hit  HitOption
	Miss MissOption
}

// Disabled reports whether both critical hits and fumbles are switched off.
func (o Options) Disabled() bool { return !o.Hit.Enabled() && !o.Miss.Enabled() }
