package gameserver_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/clock"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/crittable"
	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/fatigue"
	"github.com/cory-johannsen/tactics/internal/game/fumble"
	"github.com/cory-johannsen/tactics/internal/game/initiative"
	"github.com/cory-johannsen/tactics/internal/game/spellpoints"
	"github.com/cory-johannsen/tactics/internal/gameserver"
)

const entitiesYAML = `
entities:
  - id: alice
    name: Alice
    size: medium
    thac0: 15
    caster:
      slots: {1: 2, 2: 1}
      classes: [mage]
      int: 16
    fatigue: {base: 2, bonus: 0}
  - id: longsword
    name: Long Sword
    size: medium
    damage_type: slashing
    properties: ["crit: 0"]
  - id: orc
    name: Orc
    size: medium
    creature: humanoid
`

// queueRoller returns queued results per formula.
type queueRoller struct {
	mu     sync.Mutex
	queued map[string][]dice.RollResult
	calls  []string
}

func newQueueRoller() *queueRoller {
	return &queueRoller{queued: make(map[string][]dice.RollResult)}
}

func (r *queueRoller) queue(formula string, dieFaces ...int) {
	expr := dice.MustParse(formula)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued[formula] = append(r.queued[formula], dice.RollResult{
		Expression: formula, Sides: expr.Sides, Dice: dieFaces, Modifier: expr.Modifier,
	})
}

func (r *queueRoller) Roll(_ context.Context, formula string) (dice.RollResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, formula)
	q := r.queued[formula]
	if len(q) == 0 {
		return dice.RollResult{}, fmt.Errorf("no result queued for %q", formula)
	}
	r.queued[formula] = q[1:]
	return q[0], nil
}

type fixture struct {
	dispatcher *gameserver.Dispatcher
	roller     *queueRoller
	out        *bytes.Buffer
	registry   *gameserver.Registry
	spells     *spellpoints.Ledger
	tired      *fatigue.Tracker
	clock      *clock.Clock
	store      *initiative.MemoryStore
}

func defaultRules() config.RulesConfig {
	return config.RulesConfig{
		CriticalHitOption:      "natural20",
		CriticalMissOption:     "natural1",
		EnableInitiativePhases: true,
		EnableFatigue:          true,
		Enable12SecondRounds:   true,
		Advance600EndCombat:    true,
	}
}

func writeEntities(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(entitiesYAML), 0o644))
	return path
}

func newFixture(t *testing.T, rules config.RulesConfig) *fixture {
	t.Helper()
	logger := zap.NewNop()

	reg, err := gameserver.LoadRegistry(writeEntities(t))
	require.NoError(t, err)
	crits, err := crittable.LoadDirectory("../../content/crittables")
	require.NoError(t, err)

	f := &fixture{
		roller:   newQueueRoller(),
		out:      &bytes.Buffer{},
		registry: reg,
		spells:   spellpoints.NewLedger(),
		tired:    fatigue.NewTracker(),
		clock:    clock.New(0, clock.Settings{TwelveSecondRounds: rules.Enable12SecondRounds, AdvanceOnCombatEnd: rules.Advance600EndCombat}),
		store:    initiative.NewMemoryStore(),
	}
	reg.Seed(f.spells, f.tired)

	notifier := gameserver.NewTextNotifier(f.out, crittable.NewResolver(crits, f.roller, logger), logger)
	confirmer := combat.NewConfirmer(combat.NewLockTable(), f.roller, notifier, logger)
	fumbles := fumble.NewDispatcher(fumble.DefaultTable(), f.roller, logger)
	engine := combat.NewEngine(reg, f.roller, confirmer, fumbles, notifier, combat.NewMemoryFlagStore(), rules, logger)

	f.dispatcher = gameserver.NewDispatcher(gameserver.Components{
		Attacks:    engine,
		Initiative: initiative.NewResolver(initiative.DefaultPhaseTable(), f.store, logger),
		Clock:      f.clock,
		Fatigue:    f.tired,
		Spells:     f.spells,
		Registry:   reg,
		Roller:     f.roller,
		Notifier:   notifier,
	}, rules, logger)
	return f
}
