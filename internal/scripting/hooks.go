package scripting

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/fumble"
)

// Hook names looked up in the house-rule VM.
const (
	HookAttackResolved = "on_attack_resolved"
	HookKnockdown      = "on_knockdown"
	HookFumble         = "on_fumble"
)

// Hooks forwards engine output to the Lua hooks. It satisfies combat.Hooks.
type Hooks struct {
	mgr *Manager
}

// NewHooks wraps mgr.
//
// Precondition: mgr must be non-nil.
func NewHooks(mgr *Manager) *Hooks {
	return &Hooks{mgr: mgr}
}

var _ combat.Hooks = (*Hooks)(nil)

// AttackResolved calls on_attack_resolved(res).
func (h *Hooks) AttackResolved(ctx context.Context, res combat.AttackResolution) {
	L := h.lstate()
	if L == nil {
		return
	}
	h.mgr.CallHook(ctx, HookAttackResolved, resolutionTable(L, res)) //nolint:errcheck
}

// KnockdownRolled calls on_knockdown(res, kd).
func (h *Hooks) KnockdownRolled(ctx context.Context, res combat.AttackResolution, kd combat.KnockdownRoll) {
	L := h.lstate()
	if L == nil {
		return
	}
	t := L.NewTable()
	t.RawSetString("die", lua.LString(kd.Die))
	t.RawSetString("roll", lua.LNumber(kd.Roll))
	t.RawSetString("success", lua.LBool(kd.Success))
	if kd.DCKnown {
		t.RawSetString("dc", lua.LNumber(kd.DC))
	}
	h.mgr.CallHook(ctx, HookKnockdown, resolutionTable(L, res), t) //nolint:errcheck
}

// FumbleDispatched calls on_fumble(res, outcome).
func (h *Hooks) FumbleDispatched(ctx context.Context, res combat.AttackResolution, out fumble.Outcome) {
	L := h.lstate()
	if L == nil {
		return
	}
	t := L.NewTable()
	t.RawSetString("roll", lua.LNumber(out.Roll))
	t.RawSetString("id", lua.LString(out.Entry.ID))
	t.RawSetString("title", lua.LString(out.Entry.Title))
	if out.Delegated() {
		t.RawSetString("sub_title", lua.LString(out.SubTitle))
		t.RawSetString("sub_roll", lua.LNumber(out.SubRoll))
		t.RawSetString("sub_id", lua.LString(out.Sub.ID))
	}
	lines := L.NewTable()
	for _, line := range out.Lines() {
		lines.Append(lua.LString(line))
	}
	t.RawSetString("lines", lines)
	h.mgr.CallHook(ctx, HookFumble, resolutionTable(L, res), t) //nolint:errcheck
}

// lstate returns the current VM for building argument tables, or nil.
// Tables are built outside the call lock; LState.NewTable only allocates.
func (h *Hooks) lstate() *lua.LState {
	h.mgr.mu.Lock()
	defer h.mgr.mu.Unlock()
	return h.mgr.state
}

// resolutionTable flattens res into a Lua table. Unknown values are left nil.
func resolutionTable(L *lua.LState, res combat.AttackResolution) *lua.LTable {
	c := res.Context
	t := L.NewTable()
	t.RawSetString("event_id", lua.LString(c.EventID))
	t.RawSetString("actor", lua.LString(c.ActorName))
	t.RawSetString("weapon", lua.LString(c.WeaponName))
	t.RawSetString("target", lua.LString(c.TargetName))
	t.RawSetString("natural", lua.LNumber(c.NaturalRoll))
	t.RawSetString("total", lua.LNumber(c.TotalRoll))
	t.RawSetString("damage_type", lua.LString(c.WeaponDamageType))
	setMaybe(t, "target_ac", c.TargetAC)
	setMaybe(t, "hit_ac", c.HitAC)
	setMaybe(t, "hit_by", res.HitBy)
	t.RawSetString("hit", lua.LBool(res.AttackHit))
	t.RawSetString("critical_threat", lua.LBool(res.CriticalThreat))
	t.RawSetString("critical_confirmed", lua.LBool(res.CriticalConfirmed))
	t.RawSetString("severity", lua.LString(res.Severity))
	t.RawSetString("fumble_threat", lua.LBool(res.FumbleThreat))
	t.RawSetString("fumble_confirmed", lua.LBool(res.FumbleConfirmed))
	t.RawSetString("knockdown_die", lua.LString(res.KnockdownDie))
	setMaybe(t, "knockdown_dc", res.KnockdownDC)
	return t
}

func setMaybe(t *lua.LTable, key string, v combat.Maybe) {
	if v.OK {
		t.RawSetString(key, lua.LNumber(v.V))
	}
}
