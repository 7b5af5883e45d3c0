package critical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/critical"
)

func TestParseHitOption(t *testing.T) {
	for _, o := range critical.HitOptions {
		got, ok := critical.ParseHitOption(string(o))
		assert.True(t, ok)
		assert.Equal(t, o, got)
	}
	got, ok := critical.ParseHitOption("NATURAL18REROLL")
	assert.True(t, ok)
	assert.Equal(t, critical.HitNatural18Reroll, got)

	got, ok = critical.ParseHitOption("natural19")
	assert.False(t, ok)
	assert.Equal(t, critical.HitNone, got)
}

func TestParseMissOption(t *testing.T) {
	got, ok := critical.ParseMissOption("natural1Minus5")
	assert.True(t, ok)
	assert.Equal(t, critical.MissNatural1Minus5, got)

	got, ok = critical.ParseMissOption("always")
	assert.False(t, ok)
	assert.Equal(t, critical.MissNone, got)
}

func TestHitOption_Predicates(t *testing.T) {
	assert.False(t, critical.HitNone.Enabled())
	assert.True(t, critical.HitNatural20.Enabled())
	assert.True(t, critical.HitNatural20Reroll.Reroll())
	assert.True(t, critical.HitNatural18Reroll.Reroll())
	assert.False(t, critical.HitNatural18Plus5.Reroll())
	assert.True(t, critical.HitNatural18Plus5.Natural18())
	assert.False(t, critical.HitNatural20Plus5.Natural18())
	assert.True(t, critical.MissNatural1Reroll.Reroll())
	assert.False(t, critical.MissNatural1Minus5.Reroll())
	assert.True(t, critical.Options{}.Disabled())
	assert.True(t, critical.Options{Hit: critical.HitNone, Miss: critical.MissNone}.Disabled())
	assert.False(t, critical.Options{Hit: critical.HitNone, Miss: critical.MissNatural1}.Disabled())
}

func TestRange(t *testing.T) {
	tests := []struct {
		opt  critical.HitOption
		mod  int
		want int
	}{
		{critical.HitNatural20, 0, 20},
		{critical.HitNatural20Plus5, 0, 20},
		{critical.HitNatural18Reroll, 0, 18},
		{critical.HitNatural18Plus5, 1, 17},
		{critical.HitNatural20, 2, 18},
		{critical.HitNatural20, -2, 20},
		{critical.HitNatural18Reroll, -1, 19},
		{critical.HitNatural18Reroll, 10, 15},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, critical.Range(tc.opt, tc.mod), "Range(%s, %d)", tc.opt, tc.mod)
	}
}

func TestRange_Property_Clamped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		opt := rapid.SampledFrom(critical.HitOptions).Draw(rt, "option")
		mod := rapid.IntRange(-100, 100).Draw(rt, "modifier")
		r := critical.Range(opt, mod)
		assert.GreaterOrEqual(rt, r, critical.MinRange)
		assert.LessOrEqual(rt, r, critical.MaxRange)
	})
}

func TestSeverityFor(t *testing.T) {
	assert.Equal(t, critical.SeverityMinor, critical.SeverityFor(1, 2))
	assert.Equal(t, critical.SeverityMajor, critical.SeverityFor(2, 2))
	assert.Equal(t, critical.SeveritySevere, critical.SeverityFor(3, 2))
	assert.Equal(t, critical.SeverityMortal, critical.SeverityFor(4, 2))
	assert.Equal(t, critical.SeverityMortal, critical.SeverityFor(5, 0))
	assert.Equal(t, critical.SeverityUnknown, critical.SeverityFor(-1, 2))
	assert.Equal(t, critical.SeverityUnknown, critical.SeverityFor(2, -1))
}

// Severity depends only on the difference between the two indices.
func TestSeverityFor_Property_DependsOnDifferenceOnly(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		diff := rapid.IntRange(-5, 5).Draw(rt, "diff")
		lo, hi := max(0, diff), min(5, 5+diff)
		w1 := rapid.IntRange(lo, hi).Draw(rt, "weapon1")
		w2 := rapid.IntRange(lo, hi).Draw(rt, "weapon2")
		assert.Equal(rt, critical.SeverityFor(w1, w1-diff), critical.SeverityFor(w2, w2-diff))
	})
}
