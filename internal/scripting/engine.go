package scripting

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
)

// Engine wraps a single gopher-lua VM holding the dismemberment rules.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A missing directory leaves the engine with no rules, in which
// case every hook falls back to its Go default.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString creates an engine from a single chunk of Lua source.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasRule reports whether a global Lua function with the given name exists.
func (e *Engine) HasRule(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// ChooseTarget picks the part to sever among cands. The Lua function
// choose_target(candidates, roll) receives an array of candidate tables
// (id, name, kind, depth, surface) and a roll in [0,1) and returns the
// logical id of its pick, or nil to spare the body this time.
//
// Without a script, or when the script fails or names an unknown part, the
// pick is body.ChooseWeighted.
func (e *Engine) ChooseTarget(cands []body.Candidate, rng *rand.Rand) (body.Candidate, bool) {
	if len(cands) == 0 {
		return body.Candidate{}, false
	}
	fn, ok := e.vm.GetGlobal("choose_target").(*lua.LFunction)
	if !ok {
		return body.ChooseWeighted(cands, rng)
	}

	list := e.vm.NewTable()
	for _, c := range cands {
		t := e.vm.NewTable()
		t.RawSetString("id", lua.LString(c.LogicalID))
		t.RawSetString("name", lua.LString(c.Name))
		t.RawSetString("kind", lua.LString(c.Kind.String()))
		t.RawSetString("depth", lua.LNumber(c.Depth))
		t.RawSetString("surface", lua.LNumber(c.Surface))
		list.Append(t)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, list, lua.LNumber(rng.Float64())); err != nil {
		e.log.Error("lua choose_target error", zap.Error(err))
		return body.ChooseWeighted(cands, rng)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch v := result.(type) {
	case *lua.LNilType:
		return body.Candidate{}, false
	case lua.LString:
		for _, c := range cands {
			if c.LogicalID == string(v) {
				return c, true
			}
		}
		e.log.Warn("lua choose_target returned unknown part", zap.String("part", string(v)))
	default:
		e.log.Error("lua choose_target returned non-string", zap.String("type", result.Type().String()))
	}
	return body.ChooseWeighted(cands, rng)
}

// Severity asks the Lua function removal_severity(removed, pruned,
// destroyed) how bad a removal was. Returns the removed count when no
// script function exists.
func (e *Engine) Severity(r body.Removal) float64 {
	fallback := float64(len(r.Removed))
	fn, ok := e.vm.GetGlobal("removal_severity").(*lua.LFunction)
	if !ok {
		return fallback
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(len(r.Removed)), lua.LNumber(len(r.Pruned)), lua.LBool(r.BodyDestroyed)); err != nil {
		e.log.Error("lua removal_severity error", zap.Error(err))
		return fallback
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua removal_severity returned non-number")
		return fallback
	}
	return float64(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
