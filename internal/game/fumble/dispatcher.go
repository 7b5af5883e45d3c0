package fumble

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// Roller is the subset of dice.Roller used by the dispatcher.
type Roller interface {
	Roll(ctx context.Context, formula string) (dice.RollResult, error)
}

// Outcome is the result of one fumble table dispatch.
type Outcome struct {
	ActorName string
	Roll      int
	Entry     Entry
	// SubTitle, SubRoll and Sub are set only when Entry delegates.
	SubTitle string
	SubRoll  int
	Sub      *Entry
}

// Delegated reports whether a sub-table was rolled.
func (o Outcome) Delegated() bool { return o.Sub != nil }

// Lines returns the primary line followed by the optional sub-table line.
// A delegating main entry without a title contributes no primary line.
func (o Outcome) Lines() []string {
	var lines []string
	if o.Entry.Title != "" || o.Entry.Text != "" {
		lines = append(lines, o.Entry.Line(o.ActorName))
	}
	if o.Sub != nil {
		lines = append(lines, o.SubTitle+": "+o.Sub.Line(o.ActorName))
	}
	return lines
}

// String joins Lines with newlines.
func (o Outcome) String() string {
	return strings.Join(o.Lines(), "\n")
}

// Dispatcher rolls on a fumble table.
type Dispatcher struct {
	table  *Table
	roller Roller
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher over table.
//
// Precondition: table must have passed Validate; roller and logger must be non-nil.
func NewDispatcher(table *Table, roller Roller, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{table: table, roller: roller, logger: logger}
}

// Dispatch rolls the main table once and, when the result delegates, the
// named sub-table exactly once.
func (d *Dispatcher) Dispatch(ctx context.Context, actorName string) (Outcome, error) {
	main, err := d.roller.Roll(ctx, d.table.Die)
	if err != nil {
		return Outcome{}, fmt.Errorf("rolling fumble table: %w", err)
	}
	entry, ok := d.table.Lookup(main.Total())
	if !ok {
		return Outcome{}, fmt.Errorf("%w: no entry for roll %d", ErrIncompleteTable, main.Total())
	}
	out := Outcome{ActorName: actorName, Roll: main.Total(), Entry: entry}

	if !entry.Terminal() {
		st, ok := d.table.SubTables[entry.SubTable]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: unknown sub-table %q", ErrIncompleteTable, entry.SubTable)
		}
		sub, err := d.roller.Roll(ctx, st.Die)
		if err != nil {
			return Outcome{}, fmt.Errorf("rolling %s: %w", st.Title, err)
		}
		subEntry, ok := d.table.LookupSub(entry.SubTable, sub.Total())
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %s has no entry for roll %d", ErrIncompleteTable, st.Title, sub.Total())
		}
		out.SubTitle = st.Title
		out.SubRoll = sub.Total()
		out.Sub = &subEntry
	}

	d.logger.Info("fumble dispatched",
		zap.String("actor", actorName),
		zap.Int("roll", out.Roll),
		zap.String("entry", entry.ID),
		zap.Int("sub_roll", out.SubRoll),
	)
	return out, nil
}
