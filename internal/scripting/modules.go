package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules defines the tactics global table in L:
//
//	tactics.roll(formula)       -> total, natural | nil, message
//	tactics.log(message)        -> logs at info under the "lua" field
//	tactics.post(title, ...)    -> posts a message with one line per extra arg
//
// The functions run with mu held by CallHook, so they read Manager fields
// directly.
func (m *Manager) registerModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"roll": m.luaRoll,
		"log":  m.luaLog,
		"post": m.luaPost,
	})
	L.SetGlobal("tactics", mod)
}

func (m *Manager) luaRoll(L *lua.LState) int {
	formula := L.CheckString(1)
	res, err := m.roller.Roll(m.callCtx, formula)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Total()))
	L.Push(lua.LNumber(res.Natural()))
	return 2
}

func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("script", zap.String("lua", L.CheckString(1)))
	return 0
}

func (m *Manager) luaPost(L *lua.LState) int {
	title := L.CheckString(1)
	var lines []string
	for i := 2; i <= L.GetTop(); i++ {
		lines = append(lines, L.ToStringMeta(L.Get(i)).String())
	}
	if m.post != nil {
		m.post(title, lines)
	}
	return 0
}
