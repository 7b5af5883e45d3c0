package knockdown

import "github.com/cory-johannsen/tactics/internal/game/size"

// baseDie is the die a creature of each size knocks down with when its
// weapon declares none.
var baseDie = map[size.Category]Step{
	size.Tiny:       D4,
	size.Small:      D6,
	size.Medium:     D8,
	size.Large:      D10,
	size.Huge:       D12,
	size.Gargantuan: D12,
}

// actorOffset is the ladder shift applied for the attacker's size.
var actorOffset = map[size.Category]int{
	size.Tiny:       -2,
	size.Small:      -1,
	size.Medium:     0,
	size.Large:      1,
	size.Huge:       2,
	size.Gargantuan: 3,
}

// targetDC is the roll needed to knock down a target of each size.
var targetDC = map[size.Category]int{
	size.Tiny:       3,
	size.Small:      5,
	size.Medium:     7,
	size.Large:      9,
	size.Huge:       11,
	size.Gargantuan: 12,
}

// Result is the knockdown die and difficulty derived for one hit.
type Result struct {
	// BaseDie is the declared or size-derived die before the actor shift.
	BaseDie Step
	// Die is the die actually rolled.
	Die Step
	// DC is the minimum roll that knocks the target down. Only meaningful
	// when DCKnown is true.
	DC      int
	DCKnown bool
}

// BaseDieFor returns the size-derived knockdown die. Unknown sizes use the
// medium die.
func BaseDieFor(c size.Category) Step {
	if d, ok := baseDie[c]; ok {
		return d
	}
	return baseDie[size.Medium]
}

// DCFor returns the knockdown DC for a target of size c. ok is false when c
// is Unknown.
func DCFor(c size.Category) (dc int, ok bool) {
	dc, ok = targetDC[c]
	return dc, ok
}

// Resolve computes the knockdown die and DC. declared is the weapon's own
// knockdown die; pass "" when the weapon declares none. An unknown actor size
// applies no shift.
func Resolve(actor size.Category, declared Step, target size.Category) Result {
	base := declared
	if base == "" {
		base = BaseDieFor(actor)
	}
	dc, ok := DCFor(target)
	return Result{
		BaseDie: base,
		Die:     StepBy(base, actorOffset[actor]),
		DC:      dc,
		DCKnown: ok,
	}
}

// Succeeds reports whether roll knocks the target down. An unknown DC never
// succeeds.
func (r Result) Succeeds(roll int) bool {
	return r.DCKnown && roll >= r.DC
}
