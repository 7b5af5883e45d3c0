// Package dice provides dice-notation parsing, rolling, and the randomness
// abstraction used by every rule that needs a die result.
package dice

import "fmt"

// RollResult holds the full audit trail for a single evaluated formula.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // formula as given, e.g. "1d20+3"
	Sides      int    // faces on each die of the formula
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
	First      int    // face of the first die rolled, kept or not; 0 when unset
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// Natural returns the face shown by the first die rolled, or 0 when no die
// was rolled. Results built without First fall back to the first kept die.
func (r RollResult) Natural() int {
	if r.First > 0 {
		return r.First
	}
	if len(r.Dice) == 0 {
		return 0
	}
	return r.Dice[0]
}

// IsNaturalMax reports whether the first die shows its highest face.
func (r RollResult) IsNaturalMax() bool {
	return r.Sides > 0 && r.Natural() == r.Sides
}

// String returns an audit line such as "1d20+3 → [17] +3 = 20".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
