package fumble_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/game/fumble"
)

// queueRoller returns the queued naturals in order and records each formula.
type queueRoller struct {
	vals     []int
	formulas []string
	err      error
}

func (q *queueRoller) Roll(_ context.Context, formula string) (dice.RollResult, error) {
	q.formulas = append(q.formulas, formula)
	if q.err != nil {
		return dice.RollResult{}, q.err
	}
	expr := dice.MustParse(formula)
	v := q.vals[0]
	q.vals = q.vals[1:]
	return dice.RollResult{Expression: formula, Sides: expr.Sides, Dice: []int{v}}, nil
}

func TestDefaultTable_Validates(t *testing.T) {
	require.NoError(t, fumble.DefaultTable().Validate())
}

func TestTable_Lookup(t *testing.T) {
	tbl := fumble.DefaultTable()
	cases := []struct {
		roll int
		id   string
	}{
		{1, "armor_trouble"}, {2, "armor_trouble"}, {4, "battlefield_damaged"},
		{5, "battlefield_shifts"}, {10, "knock_down"}, {11, "knock_down"},
		{15, "mount_trouble"}, {17, "retreat"}, {20, "weapon_trouble"},
	}
	for _, tc := range cases {
		e, ok := tbl.Lookup(tc.roll)
		require.True(t, ok, "roll %d", tc.roll)
		assert.Equal(t, tc.id, e.ID, "roll %d", tc.roll)
	}
	_, ok := tbl.Lookup(21)
	assert.False(t, ok)
}

func TestTable_Validate_Gap(t *testing.T) {
	tbl := fumble.DefaultTable()
	tbl.Entries = tbl.Entries[1:]
	assert.ErrorIs(t, tbl.Validate(), fumble.ErrIncompleteTable)
}

func TestTable_Validate_Overlap(t *testing.T) {
	tbl := fumble.DefaultTable()
	tbl.SubTables[fumble.SubMountTrouble].Entries[0].Max = 4
	assert.ErrorIs(t, tbl.Validate(), fumble.ErrIncompleteTable)
}

func TestTable_Validate_UnknownSubTable(t *testing.T) {
	tbl := fumble.DefaultTable()
	delete(tbl.SubTables, fumble.SubWeaponTrouble)
	assert.ErrorIs(t, tbl.Validate(), fumble.ErrIncompleteTable)
}

func TestDispatch_TerminalEntry_SubstitutesActor(t *testing.T) {
	r := &queueRoller{vals: []int{17}}
	d := fumble.NewDispatcher(fumble.DefaultTable(), r, zap.NewNop())

	out, err := d.Dispatch(context.Background(), "Bob")
	require.NoError(t, err)
	assert.False(t, out.Delegated())
	assert.Equal(t, "Retreat: Bob is driven back.", out.String())
	assert.Equal(t, []string{"1d20"}, r.formulas)
}

func TestDispatch_Scenario_ArmorTrouble(t *testing.T) {
	r := &queueRoller{vals: []int{2, 4}}
	d := fumble.NewDispatcher(fumble.DefaultTable(), r, zap.NewNop())

	out, err := d.Dispatch(context.Background(), "Bob")
	require.NoError(t, err)
	assert.True(t, out.Delegated())
	assert.Equal(t, 4, out.SubRoll)
	assert.Equal(t, "Armor Trouble: Shield lost", out.String())
	assert.Equal(t, []string{"1d20", "1d6"}, r.formulas)
}

func TestDispatch_WeaponStuck_SubstitutesEveryPlaceholder(t *testing.T) {
	r := &queueRoller{vals: []int{19, 6}}
	d := fumble.NewDispatcher(fumble.DefaultTable(), r, zap.NewNop())

	out, err := d.Dispatch(context.Background(), "Mara")
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "{actor}")
	assert.Contains(t, out.String(), "If Mara killed")
	assert.Contains(t, out.String(), "Mara must take one round")
}

func TestDispatch_RollError(t *testing.T) {
	r := &queueRoller{err: errors.New("boom")}
	d := fumble.NewDispatcher(fumble.DefaultTable(), r, zap.NewNop())
	_, err := d.Dispatch(context.Background(), "Bob")
	assert.Error(t, err)
}

// Every d20 result yields exactly one outcome, and delegation rolls exactly
// one d6.
func TestDispatch_Property_OneSubRollPerDelegation(t *testing.T) {
	tbl := fumble.DefaultTable()
	rapid.Check(t, func(rt *rapid.T) {
		main := rapid.IntRange(1, 20).Draw(rt, "main")
		sub := rapid.IntRange(1, 6).Draw(rt, "sub")
		r := &queueRoller{vals: []int{main, sub}}
		d := fumble.NewDispatcher(tbl, r, zap.NewNop())

		out, err := d.Dispatch(context.Background(), "Actor")
		require.NoError(rt, err)
		assert.NotEmpty(rt, out.String())

		entry, _ := tbl.Lookup(main)
		if entry.Terminal() {
			assert.Len(rt, r.formulas, 1)
			assert.Len(rt, out.Lines(), 1)
		} else {
			assert.Equal(rt, []string{"1d20", "1d6"}, r.formulas)
			assert.Equal(rt, sub, out.SubRoll)
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fumble.yaml")
	doc := `
die: 1d4
entries:
  - {min: 1, max: 3, id: trip, title: Trip, text: "{actor} trips."}
  - {min: 4, max: 4, id: gear, sub_table: gear}
sub_tables:
  gear:
    title: Gear Trouble
    die: 1d2
    entries:
      - {min: 1, max: 1, id: strap, title: Strap snaps}
      - {min: 2, max: 2, id: buckle, title: Buckle slips}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	tbl, err := fumble.LoadFile(path)
	require.NoError(t, err)
	e, ok := tbl.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "Trip: Ann trips.", e.Line("Ann"))
}

func TestLoadFile_EmptyPathUsesDefault(t *testing.T) {
	tbl, err := fumble.LoadFile("")
	require.NoError(t, err)
	assert.Len(t, tbl.Entries, len(fumble.DefaultTable().Entries))
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := fumble.Parse([]byte("die: 1d20\nbogus: true\n"))
	assert.Error(t, err)
}

func TestParse_RejectsIncompleteTable(t *testing.T) {
	_, err := fumble.Parse([]byte("die: 1d6\nentries:\n  - {min: 1, max: 5, title: X}\n"))
	assert.ErrorIs(t, err, fumble.ErrIncompleteTable)
}
