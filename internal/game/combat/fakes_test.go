package combat_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/critical"
	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// result builds a single-die roll of formula with the given natural face.
func result(formula string, natural int) dice.RollResult {
	expr := dice.MustParse(formula)
	return dice.RollResult{Expression: formula, Sides: expr.Sides, Dice: []int{natural}, Modifier: expr.Modifier}
}

// scriptRoller returns queued results per formula and records every call.
type scriptRoller struct {
	mu      sync.Mutex
	queued  map[string][]dice.RollResult
	calls   []string
	err     error
	panics  bool
	started chan struct{}
	block   chan struct{}
}

func newScriptRoller() *scriptRoller {
	return &scriptRoller{queued: make(map[string][]dice.RollResult)}
}

func (r *scriptRoller) queue(res ...dice.RollResult) *scriptRoller {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range res {
		r.queued[x.Expression] = append(r.queued[x.Expression], x)
	}
	return r
}

func (r *scriptRoller) Roll(ctx context.Context, formula string) (dice.RollResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, formula)
	started, block := r.started, r.block
	r.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return dice.RollResult{}, ctx.Err()
		}
	}
	if r.panics {
		panic("roller exploded")
	}
	if r.err != nil {
		return dice.RollResult{}, r.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.queued[formula]
	if len(q) == 0 {
		return dice.RollResult{}, fmt.Errorf("no result queued for %q", formula)
	}
	r.queued[formula] = q[1:]
	return q[0], nil
}

func (r *scriptRoller) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// recordingNotifier captures every notification.
type recordingNotifier struct {
	mu        sync.Mutex
	messages  []combat.Message
	criticals []combat.CriticalDetail
}

func (n *recordingNotifier) Post(_ context.Context, msg combat.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) OpenCriticalDialog(_ context.Context, d combat.CriticalDetail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.criticals = append(n.criticals, d)
}

func (n *recordingNotifier) byKind(kind combat.MessageKind) []combat.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []combat.Message
	for _, m := range n.messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// mapRefs resolves references from a fixed map.
type mapRefs map[string]*combat.Entity

func (m mapRefs) Lookup(_ context.Context, ref string) (*combat.Entity, error) {
	return m[ref], nil
}

type staticSettings critical.Options

func (s staticSettings) CriticalOptions() critical.Options { return critical.Options(s) }

func intp(v int) *int { return &v }
