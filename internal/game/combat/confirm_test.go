package combat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/dice"
)

func newConfirmer(r combat.Roller) (*combat.Confirmer, *combat.LockTable, *recordingNotifier) {
	locks := combat.NewLockTable()
	n := &recordingNotifier{}
	return combat.NewConfirmer(locks, r, n, zap.NewNop()), locks, n
}

func critRequest(kind combat.RollKind) combat.ConfirmRequest {
	return combat.ConfirmRequest{
		ActorID:    "a1",
		ActorName:  "Bob",
		Formula:    "1d20+3",
		TargetAC:   combat.Known(5),
		Comparison: combat.Known(15),
		Kind:       kind,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		kind      combat.RollKind
		natural   int
		confirmed bool
	}{
		// THAC0 15, +3: natural 7 → total 10 → hit AC 5.
		{"critical reaches target", combat.KindCritical, 7, true},
		{"critical falls short", combat.KindCritical, 6, false},
		{"fumble misses target", combat.KindFumble, 6, true},
		{"fumble reaches target", combat.KindFumble, 7, false},
		{"natural 1 never confirms critical", combat.KindCritical, 1, false},
		{"natural 1 always confirms fumble", combat.KindFumble, 1, true},
		{"natural 20 always confirms critical", combat.KindCritical, 20, true},
		{"natural 20 never confirms fumble", combat.KindFumble, 20, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := combat.Evaluate(critRequest(tc.kind), result("1d20+3", tc.natural))
			assert.Equal(t, tc.confirmed, c.Confirmed)
		})
	}
}

func TestEvaluate_UnknownACOnlyNaturalOverrides(t *testing.T) {
	req := critRequest(combat.KindCritical)
	req.TargetAC = combat.Unknown
	assert.False(t, combat.Evaluate(req, result("1d20+3", 19)).Confirmed)
	assert.True(t, combat.Evaluate(req, result("1d20+3", 20)).Confirmed)

	req = critRequest(combat.KindFumble)
	req.Comparison = combat.Unknown
	assert.False(t, combat.Evaluate(req, result("1d20+3", 2)).Confirmed)
	assert.True(t, combat.Evaluate(req, result("1d20+3", 1)).Confirmed)
}

func TestConfirm_Scenario_SecondaryNatural1ConfirmsFumble(t *testing.T) {
	r := newScriptRoller().queue(dice.RollResult{Expression: "1d20+3", Sides: 20, Dice: []int{1}})
	c, locks, n := newConfirmer(r)

	got := c.Confirm(context.Background(), critRequest(combat.KindFumble))

	assert.True(t, got.Confirmed)
	assert.Equal(t, 1, got.Roll.Total())
	assert.False(t, locks.Held("a1", combat.KindFumble))
	require.Len(t, n.byKind(combat.MessageConfirmation), 1)
	assert.Equal(t, "Fumble Confirmed!", n.byKind(combat.MessageConfirmation)[0].Title)
}

func TestConfirm_RollerErrorReleasesLock(t *testing.T) {
	r := newScriptRoller()
	r.err = errors.New("dice tower collapsed")
	c, locks, n := newConfirmer(r)

	got := c.Confirm(context.Background(), critRequest(combat.KindCritical))

	assert.False(t, got.Confirmed)
	assert.Error(t, got.Err)
	assert.False(t, locks.Held("a1", combat.KindCritical))
	assert.Len(t, n.byKind(combat.MessageError), 1)
}

func TestConfirm_RollerPanicReleasesLock(t *testing.T) {
	r := newScriptRoller()
	r.panics = true
	c, locks, n := newConfirmer(r)

	var got combat.Confirmation
	assert.NotPanics(t, func() { got = c.Confirm(context.Background(), critRequest(combat.KindFumble)) })

	assert.False(t, got.Confirmed)
	assert.Error(t, got.Err)
	assert.False(t, locks.Held("a1", combat.KindFumble))
	assert.Len(t, n.byKind(combat.MessageError), 1)
}

func TestConfirm_OverlappingCallRollsOnce(t *testing.T) {
	r := newScriptRoller().queue(result("1d20+3", 20))
	r.started = make(chan struct{}, 1)
	r.block = make(chan struct{})
	c, locks, _ := newConfirmer(r)

	var wg sync.WaitGroup
	var first combat.Confirmation
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = c.Confirm(context.Background(), critRequest(combat.KindCritical))
	}()
	<-r.started
	require.True(t, locks.Held("a1", combat.KindCritical))

	second := c.Confirm(context.Background(), critRequest(combat.KindCritical))
	assert.True(t, second.Busy)
	assert.False(t, second.Confirmed)
	assert.Equal(t, 1, r.callCount())

	close(r.block)
	wg.Wait()
	assert.True(t, first.Confirmed)
	assert.False(t, locks.Held("a1", combat.KindCritical))
}

func TestConfirm_DifferentKindsDoNotBlock(t *testing.T) {
	locks := combat.NewLockTable()
	release, ok := locks.TryAcquire("a1", combat.KindCritical)
	require.True(t, ok)
	defer release()

	_, ok = locks.TryAcquire("a1", combat.KindFumble)
	assert.True(t, ok)
	_, ok = locks.TryAcquire("a2", combat.KindCritical)
	assert.True(t, ok)
	_, ok = locks.TryAcquire("a1", combat.KindCritical)
	assert.False(t, ok)
}

func TestLockTable_ReleaseIsIdempotent(t *testing.T) {
	locks := combat.NewLockTable()
	release, ok := locks.TryAcquire("a1", combat.KindCritical)
	require.True(t, ok)
	release()
	release()
	assert.False(t, locks.Held("a1", combat.KindCritical))

	again, ok := locks.TryAcquire("a1", combat.KindCritical)
	require.True(t, ok)
	again()
}

// After any completed confirmation the lock returns to idle.
func TestConfirm_Property_LockAlwaysReleased(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom([]combat.RollKind{combat.KindCritical, combat.KindFumble}).Draw(rt, "kind")
		mode := rapid.IntRange(0, 2).Draw(rt, "mode")
		natural := rapid.IntRange(1, 20).Draw(rt, "natural")

		r := newScriptRoller().queue(result("1d20+3", natural))
		switch mode {
		case 1:
			r.err = errors.New("fail")
		case 2:
			r.panics = true
		}
		c, locks, _ := newConfirmer(r)
		got := c.Confirm(context.Background(), critRequest(kind))

		assert.False(rt, locks.Held("a1", kind))
		assert.Equal(rt, 1, r.callCount())
		if mode != 0 {
			assert.False(rt, got.Confirmed)
		}
	})
}
