package combat

import (
	"github.com/cory-johannsen/tactics/internal/game/critical"
	"github.com/cory-johannsen/tactics/internal/game/knockdown"
)

// AttackResolution is the rule outcome of one attack roll. It is a value;
// Engine.Process returns a finalized copy rather than mutating one.
type AttackResolution struct {
	Context AttackContext

	HitBy     Maybe
	AttackHit bool

	CriticalRange       int
	CriticalThreat      bool
	CriticalConfirmed   bool
	CriticalNeedsReroll bool
	Severity            critical.Severity

	FumbleThreat      bool
	FumbleConfirmed   bool
	FumbleNeedsReroll bool

	KnockdownBaseDie knockdown.Step
	KnockdownDie     knockdown.Step
	KnockdownDC      Maybe
}

// Resolve derives the attack resolution from c. It performs no I/O; threats
// whose option calls for a reroll are marked NeedsReroll and left unconfirmed.
func Resolve(c AttackContext) AttackResolution {
	hit := CompareAC(c.TargetAC, c.HitAC)
	r := AttackResolution{
		Context:       c,
		HitBy:         hit.HitBy,
		AttackHit:     hit.AttackHit,
		CriticalRange: critical.MaxRange,
		Severity:      critical.SeverityFor(c.WeaponSize.Index(), c.TargetSize.Index()),
	}

	if c.Options.Hit.Enabled() {
		r.CriticalRange = critical.Range(c.Options.Hit, c.WeaponCriticalModifier)
		r.CriticalThreat = c.NaturalRoll >= r.CriticalRange && r.AttackHit
	}
	if r.CriticalThreat {
		if c.Options.Hit.Reroll() {
			r.CriticalNeedsReroll = true
		} else {
			r.CriticalConfirmed = true
		}
	}

	r.FumbleThreat = c.NaturalRoll == 1
	if r.FumbleThreat && c.Options.Miss.Enabled() {
		if c.Options.Miss.Reroll() {
			r.FumbleNeedsReroll = true
		} else {
			r.FumbleConfirmed = true
		}
	}

	kd := knockdown.Resolve(c.ActorSize, c.WeaponKnockdownDie, c.TargetSize)
	r.KnockdownBaseDie = kd.BaseDie
	r.KnockdownDie = kd.Die
	if kd.DCKnown {
		r.KnockdownDC = Known(kd.DC)
	}
	return r
}

// Knockdown returns the knockdown die and DC as a knockdown.Result.
func (r AttackResolution) Knockdown() knockdown.Result {
	return knockdown.Result{
		BaseDie: r.KnockdownBaseDie,
		Die:     r.KnockdownDie,
		DC:      r.KnockdownDC.V,
		DCKnown: r.KnockdownDC.OK,
	}
}

// confirmed returns a copy of r with the outcome of deferred confirmations.
// Values for threats that did not need a reroll are left untouched.
func (r AttackResolution) confirmed(crit, fumble bool) AttackResolution {
	if r.CriticalNeedsReroll {
		r.CriticalConfirmed = crit
	}
	if r.FumbleNeedsReroll {
		r.FumbleConfirmed = fumble
	}
	return r
}
