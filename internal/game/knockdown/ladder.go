// Package knockdown computes the knockdown die and difficulty for a
// successful hit.
package knockdown

// Step is one rung of the knockdown die ladder, e.g. "1d8".
type Step string

const (
	D4  Step = "1d4"
	D6  Step = "1d6"
	D8  Step = "1d8"
	D10 Step = "1d10"
	D12 Step = "1d12"
)

// Ladder holds every knockdown die in ascending order.
var Ladder = []Step{D4, D6, D8, D10, D12}

// fallback replaces a die that is not on the ladder.
const fallback = D8

// IndexOf returns the ladder position of die, or -1 when die is not a rung.
func IndexOf(die Step) int {
	for i, s := range Ladder {
		if s == die {
			return i
		}
	}
	return -1
}

// Valid reports whether die is on the ladder.
func (s Step) Valid() bool { return IndexOf(s) >= 0 }

// StepBy moves delta rungs from die, clamping to the ends of the ladder.
// A die that is not on the ladder is treated as 1d8 first.
//
// Postcondition: the result is always a rung of Ladder.
func StepBy(die Step, delta int) Step {
	idx := IndexOf(die)
	if idx < 0 {
		idx = IndexOf(fallback)
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(Ladder)-1 {
		idx = len(Ladder) - 1
	}
	return Ladder[idx]
}
