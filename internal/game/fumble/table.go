// Package fumble implements the critical-miss mishap table: a d20 main table
// whose entries either describe a mishap directly or delegate to a d6
// sub-table.
package fumble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// ErrIncompleteTable is returned when a table does not map every face of its
// die to exactly one entry.
var ErrIncompleteTable = errors.New("fumble: incomplete table")

// actorPlaceholder is replaced with the fumbling actor's name in entry text.
const actorPlaceholder = "{actor}"

// Entry maps an inclusive roll range to a mishap, or to a sub-table.
type Entry struct {
	Min      int    `yaml:"min"`
	Max      int    `yaml:"max"`
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Text     string `yaml:"text"`
	SubTable string `yaml:"sub_table"` // empty for terminal entries
}

// Covers reports whether roll falls inside the entry's range.
func (e Entry) Covers(roll int) bool { return roll >= e.Min && roll <= e.Max }

// Terminal reports whether the entry describes a mishap without a sub-roll.
func (e Entry) Terminal() bool { return e.SubTable == "" }

// Line renders the entry for actorName as "Title: Text".
func (e Entry) Line(actorName string) string {
	text := strings.ReplaceAll(e.Text, actorPlaceholder, actorName)
	switch {
	case e.Title == "":
		return text
	case text == "":
		return e.Title
	default:
		return e.Title + ": " + text
	}
}

// SubTable is a secondary mishap table reached from a main-table entry.
type SubTable struct {
	Title   string  `yaml:"title"`
	Die     string  `yaml:"die"`
	Entries []Entry `yaml:"entries"`
}

// Table is the main fumble table.
type Table struct {
	Die       string               `yaml:"die"`
	Entries   []Entry              `yaml:"entries"`
	SubTables map[string]*SubTable `yaml:"sub_tables"`
}

// Lookup returns the main-table entry covering roll.
func (t *Table) Lookup(roll int) (Entry, bool) {
	return lookup(t.Entries, roll)
}

// LookupSub returns the entry covering roll in the named sub-table.
func (t *Table) LookupSub(name string, roll int) (Entry, bool) {
	st, ok := t.SubTables[name]
	if !ok {
		return Entry{}, false
	}
	return lookup(st.Entries, roll)
}

func lookup(entries []Entry, roll int) (Entry, bool) {
	for _, e := range entries {
		if e.Covers(roll) {
			return e, true
		}
	}
	return Entry{}, false
}

// Validate checks that the main table and every sub-table cover each face of
// their die exactly once, that delegations name existing sub-tables, and that
// sub-tables do not delegate further.
func (t *Table) Validate() error {
	if err := validateEntries("main table", t.Die, t.Entries); err != nil {
		return err
	}
	for _, e := range t.Entries {
		if e.Terminal() {
			continue
		}
		if _, ok := t.SubTables[e.SubTable]; !ok {
			return fmt.Errorf("%w: main table range %d-%d delegates to unknown sub-table %q", ErrIncompleteTable, e.Min, e.Max, e.SubTable)
		}
	}
	for name, st := range t.SubTables {
		if st == nil {
			return fmt.Errorf("%w: sub-table %q is empty", ErrIncompleteTable, name)
		}
		if err := validateEntries("sub-table "+name, st.Die, st.Entries); err != nil {
			return err
		}
		for _, e := range st.Entries {
			if !e.Terminal() {
				return fmt.Errorf("%w: sub-table %q range %d-%d delegates again", ErrIncompleteTable, name, e.Min, e.Max)
			}
		}
	}
	return nil
}

func validateEntries(what, die string, entries []Entry) error {
	expr, err := dice.Parse(die)
	if err != nil {
		return fmt.Errorf("%s die: %w", what, err)
	}
	if expr.Count != 1 || expr.Modifier != 0 {
		return fmt.Errorf("%w: %s die %q must be a single unmodified die", ErrIncompleteTable, what, die)
	}
	seen := make([]int, expr.Sides+1)
	for _, e := range entries {
		if e.Min < 1 || e.Max > expr.Sides || e.Min > e.Max {
			return fmt.Errorf("%w: %s range %d-%d outside 1-%d", ErrIncompleteTable, what, e.Min, e.Max, expr.Sides)
		}
		for r := e.Min; r <= e.Max; r++ {
			seen[r]++
		}
	}
	for r := 1; r <= expr.Sides; r++ {
		if seen[r] != 1 {
			return fmt.Errorf("%w: %s maps roll %d to %d entries", ErrIncompleteTable, what, r, seen[r])
		}
	}
	return nil
}
