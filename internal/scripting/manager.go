package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// Roller rolls a dice formula. *dice.Roller satisfies it.
type Roller interface {
	Roll(ctx context.Context, formula string) (dice.RollResult, error)
}

// PostFunc publishes a script message to the table.
type PostFunc func(title string, lines []string)

// Manager owns the house-rule VM and dispatches hooks into it.
//
// A single LState is not goroutine-safe, so every hook call holds mu for its
// duration. Each call gets a fresh instruction budget.
type Manager struct {
	mu      sync.Mutex
	state   *lua.LState
	limit   int
	callCtx context.Context

	roller Roller
	logger *zap.Logger
	post   PostFunc
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{roller: roller, logger: logger, callCtx: context.Background()}
}

// SetPost installs the target of tactics.post; nil drops posted messages.
func (m *Manager) SetPost(fn PostFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.post = fn
}

// Load creates a fresh VM, registers the tactics module, then executes every
// *.lua file in scriptDir in lexicographic order. A previously loaded VM is
// replaced only when the new one loads cleanly.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState(instLimit)
	m.registerModules(L)
	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	if m.state != nil {
		m.state.Close()
	}
	m.state = L
	m.limit = normalizeLimit(instLimit)
	m.mu.Unlock()

	m.logger.Info("scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(files)))
	return nil
}

// Loaded reports whether a VM is installed.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != nil
}

// CallHook calls the Lua global function hook with args and returns its first
// result. A missing VM or undefined hook returns (LNil, nil). Lua runtime
// errors, including an exhausted instruction budget, are logged at Warn and
// also return (LNil, nil).
//
// Postcondition: the only error returned is ctx.Err() for a done ctx.
func (m *Manager) CallHook(ctx context.Context, hook string, args ...lua.LValue) (lua.LValue, error) {
	if err := ctx.Err(); err != nil {
		return lua.LNil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	L := m.state
	if L == nil {
		m.logger.Debug("no scripts loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}
	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	callCtx, cancel := newCountingContext(ctx, m.limit)
	defer cancel()
	L.SetContext(callCtx)
	m.callCtx = ctx
	defer func() { m.callCtx = context.Background() }()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("Lua runtime error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil, nil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases the VM. Later hook calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}
