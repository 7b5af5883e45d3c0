package scripting_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactics/internal/game/dice"
	"github.com/cory-johannsen/tactics/internal/scripting"
)

// fixedRoller returns the same result for every formula.
type fixedRoller struct {
	res     dice.RollResult
	err     error
	formula string
}

func (f *fixedRoller) Roll(_ context.Context, formula string) (dice.RollResult, error) {
	f.formula = formula
	return f.res, f.err
}

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	roller := dice.NewRoller(dice.NewCryptoSource(), zap.NewNop())
	return scripting.NewManager(roller, zap.New(core)), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level zapcore.Level) bool {
	for _, e := range logs.All() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load(dir, 0))
	assert.True(t, mgr.Loaded())
	ret, err := mgr.CallHook(context.Background(), "add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_NothingLoaded(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.False(t, mgr.Loaded())
	ret, err := mgr.CallHook(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "empty.lua", `-- nothing`), 0))
	ret, err := mgr.CallHook(context.Background(), "on_fumble")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_NonFunctionGlobal_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "g.lua", `on_fumble = 3`), 0))
	ret, err := mgr.CallHook(context.Background(), "on_fumble")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeError_WarnLog(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`), 0))
	ret, err := mgr.CallHook(context.Background(), "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zapcore.WarnLevel))
}

func TestManager_CallHook_CancelledContext(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mgr.CallHook(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_CallHook_BudgetIsPerCall(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "loop.lua", `
		function spin(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
	`), 2000))

	// Many short calls together exceed the limit; each one alone does not.
	for range 20 {
		ret, err := mgr.CallHook(context.Background(), "spin", lua.LNumber(100))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(5050), ret)
	}

	ret, err := mgr.CallHook(context.Background(), "spin", lua.LNumber(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zapcore.WarnLevel))

	// The VM survives a blown budget.
	ret, err = mgr.CallHook(context.Background(), "spin", lua.LNumber(3))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(6), ret)
}

func TestManager_Load_InvalidLua_KeepsPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "ok.lua", `function v() return 1 end`), 0))
	err := mgr.Load(writeTempLua(t, "bad.lua", `this is not valid lua @@@@`), 0)
	require.Error(t, err)
	ret, err := mgr.CallHook(context.Background(), "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestManager_Load_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.Load(filepath.Join(t.TempDir(), "nope"), 0))
}

func TestManager_Load_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0644))
	require.NoError(t, mgr.Load(dir, 0))
	ret, err := mgr.CallHook(context.Background(), "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_Close(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "x.lua", `function x() return 1 end`), 0))
	mgr.Close()
	assert.False(t, mgr.Loaded())
	ret, err := mgr.CallHook(context.Background(), "x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	mgr.Close()
}

func TestNewManager_PanicsOnNilArgs(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
	assert.Panics(t, func() {
		scripting.NewManager(dice.NewRoller(dice.NewCryptoSource(), zap.NewNop()), nil)
	})
}

func TestModule_Roll(t *testing.T) {
	roller := &fixedRoller{res: dice.RollResult{Expression: "1d6+2", Sides: 6, Dice: []int{4}, Modifier: 2}}
	mgr := scripting.NewManager(roller, zap.NewNop())
	require.NoError(t, mgr.Load(writeTempLua(t, "r.lua", `
		function r()
			local total, natural = tactics.roll("1d6+2")
			return total * 100 + natural
		end
	`), 0))
	ret, err := mgr.CallHook(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(604), ret)
	assert.Equal(t, "1d6+2", roller.formula)
}

func TestModule_Roll_ErrorReturnsNilAndMessage(t *testing.T) {
	roller := &fixedRoller{err: errors.New("bad formula")}
	mgr := scripting.NewManager(roller, zap.NewNop())
	require.NoError(t, mgr.Load(writeTempLua(t, "r.lua", `
		function r()
			local total, msg = tactics.roll("xyz")
			if total == nil then return msg end
			return "rolled"
		end
	`), 0))
	ret, err := mgr.CallHook(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("bad formula"), ret)
}

func TestModule_LogAndPost(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mgr := scripting.NewManager(&fixedRoller{}, zap.New(core))
	var title string
	var lines []string
	mgr.SetPost(func(ti string, l []string) { title, lines = ti, l })
	require.NoError(t, mgr.Load(writeTempLua(t, "p.lua", `
		function p()
			tactics.log("hello")
			tactics.post("House Rule", "first", 2)
		end
	`), 0))
	_, err := mgr.CallHook(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "House Rule", title)
	assert.Equal(t, []string{"first", "2"}, lines)
	assert.Equal(t, 1, logs.FilterField(zap.String("lua", "hello")).Len())
}

func TestModule_PostWithoutSink_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "p.lua", `function p() tactics.post("x") return 1 end`), 0))
	ret, err := mgr.CallHook(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestProperty_CallHookUnknownNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(t.TempDir(), 0))
	rapid.Check(t, func(rt *rapid.T) {
		hook := rapid.StringMatching(`[a-z_]{1,12}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(context.Background(), hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("hook %q: got (%v, %v)", hook, ret, err)
		}
	})
}

func TestManager_CallHook_Concurrent(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Load(writeTempLua(t, "hooks.lua", `
		function add(a, b) return a + b end
	`), 0))

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range 5 {
				ret, err := mgr.CallHook(context.Background(), "add", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}
