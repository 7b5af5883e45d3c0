// Package initiative assigns AD&D 2E combatants to coarse speed phases and
// computes the composite initiative value used to order them.
package initiative

import (
	"fmt"
	"math"
)

// Phase IDs, fastest first.
const (
	VeryFast = 1
	Fast     = 2
	Average  = 3
	Slow     = 4
	VerySlow = 5
)

// Phase is one initiative speed bucket.
type Phase struct {
	ID   int
	Code string
	Name string
	// Min and Max bound the initiative modifiers that fall in this phase.
	// Max is math.MaxInt for the slowest phase.
	Min int
	Max int
}

var phaseNames = [...]struct{ code, name string }{
	{"VF", "Very Fast"},
	{"FA", "Fast"},
	{"AV", "Average"},
	{"SL", "Slow"},
	{"VS", "Very Slow"},
}

// DefaultLowerBounds are the smallest modifiers of each phase: 0-2 very fast,
// 3-4 fast, 5-7 average, 8-10 slow, 11 and up very slow.
var DefaultLowerBounds = []int{0, 3, 5, 8, 11}

// PhaseTable maps initiative modifiers to phases.
type PhaseTable struct {
	phases [5]Phase
}

// NewPhaseTable builds a table from the lower bound of each of the five
// phases. Each phase runs up to one below the next phase's bound; the last is
// unbounded.
//
// Precondition: lowerBounds has exactly five strictly increasing values.
func NewPhaseTable(lowerBounds []int) (*PhaseTable, error) {
	if len(lowerBounds) != len(phaseNames) {
		return nil, fmt.Errorf("initiative phase table needs %d lower bounds, got %d", len(phaseNames), len(lowerBounds))
	}
	t := &PhaseTable{}
	for i, lo := range lowerBounds {
		hi := math.MaxInt
		if i+1 < len(lowerBounds) {
			if lowerBounds[i+1] <= lo {
				return nil, fmt.Errorf("initiative phase bounds must increase: %d then %d", lo, lowerBounds[i+1])
			}
			hi = lowerBounds[i+1] - 1
		}
		t.phases[i] = Phase{ID: i + 1, Code: phaseNames[i].code, Name: phaseNames[i].name, Min: lo, Max: hi}
	}
	return t, nil
}

// DefaultPhaseTable returns the table built from DefaultLowerBounds.
func DefaultPhaseTable() *PhaseTable {
	t, err := NewPhaseTable(DefaultLowerBounds)
	if err != nil {
		panic(err)
	}
	return t
}

// PhaseFor returns the phase containing modifier. A modifier below every band
// maps to Average.
func (t *PhaseTable) PhaseFor(modifier int) Phase {
	for _, p := range t.phases {
		if modifier >= p.Min && modifier <= p.Max {
			return p
		}
	}
	return t.phases[Average-1]
}

// ByID returns the phase with the given id, clamped to [VeryFast, VerySlow].
func (t *PhaseTable) ByID(id int) Phase {
	return t.phases[clamp(id, VeryFast, VerySlow)-1]
}

// Phases returns the five phases, fastest first.
func (t *PhaseTable) Phases() []Phase {
	out := make([]Phase, len(t.phases))
	copy(out, t.phases[:])
	return out
}

// Adjust shifts a phase for an extreme natural roll: a natural 1 moves one
// phase faster and the die's maximum face one phase slower, never leaving the
// VeryFast..VerySlow range.
func Adjust(id, natural, maxFace int) int {
	switch {
	case natural == 1:
		return max(id-1, VeryFast)
	case natural == maxFace:
		return min(id+1, VerySlow)
	}
	return id
}

// CompositeValue encodes phase and roll total as id.TT, where TT is the total
// clamped to 1..99. The result lies strictly between id and id+1.
func CompositeValue(id, total int) float64 {
	return float64(id) + float64(clamp(total, 1, 99))/100
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
