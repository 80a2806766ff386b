// Package luatool loads user-defined commands from Lua scripts in the
// configured tools directory. Each script runs in its own interpreter state
// and returns one or more tool definitions that register alongside the
// built-in units. A script that fails to load becomes a startup warning, not
// a fatal error, and never blocks the rest of the directory.
package luatool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/mattjoyce/stagehand/internal/command"
	"github.com/mattjoyce/stagehand/internal/log"
	"github.com/mattjoyce/stagehand/internal/registry"
)

// Script is one loaded tool file. The interpreter state is not safe for
// concurrent use; the mutex serializes handler calls.
type Script struct {
	path  string
	mu    sync.Mutex
	state *lua.LState
	regs  []registry.Registration
}

// Set is the collection of loaded scripts. It implements registry.Provider
// so user tools install like any built-in unit.
type Set struct {
	scripts []*Script
}

// Load scans dir for *.lua files and loads each one. A missing directory is
// not an error; user tools are optional. Per-script failures are returned as
// warnings so one broken file cannot take down the rest.
func Load(dir string) (*Set, []string, error) {
	set := &Set{}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return set, nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan tools directory: %w", err)
	}

	var warnings []string
	for _, path := range matches {
		script, err := loadScript(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}
		set.scripts = append(set.scripts, script)
		log.Debug("loaded tool script", "path", path, "tools", len(script.regs))
	}
	return set, warnings, nil
}

// Commands implements registry.Provider. Tools appear in file order so later
// scripts can override earlier definitions.
func (s *Set) Commands() []registry.Registration {
	var regs []registry.Registration
	for _, script := range s.scripts {
		regs = append(regs, script.regs...)
	}
	return regs
}

// Scripts returns the paths of successfully loaded files.
func (s *Set) Scripts() []string {
	paths := make([]string, 0, len(s.scripts))
	for _, script := range s.scripts {
		paths = append(paths, script.path)
	}
	return paths
}

// Close releases every interpreter state. Handlers must not be invoked
// afterward.
func (s *Set) Close() {
	for _, script := range s.scripts {
		script.mu.Lock()
		script.state.Close()
		script.mu.Unlock()
	}
}

// loadScript runs one file and collects the tool definitions it returns.
// A script returns either a single tool table or an array of them:
//
//	return {
//	  name = "greet",
//	  about = "Greets by name.",
//	  handler = function(params) return { message = "hi " .. params.name } end,
//	}
func loadScript(path string) (*Script, error) {
	L := lua.NewState()
	script := &Script{path: path, state: L}

	registerAPI(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, err
	}

	if L.GetTop() < 1 {
		L.Close()
		return nil, errors.New("script returned nothing, expected a tool table")
	}
	ret := L.Get(-1)
	L.SetTop(0)

	table, ok := ret.(*lua.LTable)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("script returned %s, expected a tool table", ret.Type())
	}

	// A table with a name field is a single tool; otherwise treat it as an
	// array of tools.
	if table.RawGetString("name") != lua.LNil {
		if err := script.addTool(table); err != nil {
			L.Close()
			return nil, err
		}
		return script, nil
	}

	n := table.MaxN()
	if n == 0 {
		L.Close()
		return nil, errors.New("script returned an empty tool table")
	}
	for i := 1; i <= n; i++ {
		entry, ok := table.RawGetInt(i).(*lua.LTable)
		if !ok {
			log.Warn("skipping non-table tool entry", "path", path, "index", i)
			continue
		}
		if err := script.addTool(entry); err != nil {
			log.Warn("skipping invalid tool entry", "path", path, "index", i, "error", err)
		}
	}
	if len(script.regs) == 0 {
		L.Close()
		return nil, errors.New("script defined no usable tools")
	}
	return script, nil
}

func (s *Script) addTool(t *lua.LTable) error {
	name, ok := t.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		return errors.New("tool has no name")
	}
	fn, ok := t.RawGetString("handler").(*lua.LFunction)
	if !ok {
		return fmt.Errorf("tool %q has no handler function", name)
	}
	about, _ := t.RawGetString("about").(lua.LString)

	s.regs = append(s.regs, registry.Registration{
		Unit:    filepath.Base(s.path),
		Name:    string(name),
		About:   string(about),
		Handler: s.invoke(fn),
	})
	return nil
}

// invoke wraps a Lua function as a command handler. The function receives the
// params table and returns a result, or nil plus an error message. A raised
// Lua error also fails the command.
func (s *Script) invoke(fn *lua.LFunction) command.Handler {
	return func(p command.Params) (command.Outcome, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		L := s.state
		top := L.GetTop()
		L.Push(fn)
		L.Push(toLua(L, map[string]any(p)))
		if err := L.PCall(1, lua.MultRet, nil); err != nil {
			L.SetTop(top)
			return command.Outcome{}, err
		}

		nret := L.GetTop() - top
		var result, failure lua.LValue = lua.LNil, lua.LNil
		if nret >= 1 {
			result = L.Get(top + 1)
		}
		if nret >= 2 {
			failure = L.Get(top + 2)
		}
		L.SetTop(top)

		if msg, ok := failure.(lua.LString); ok && msg != "" {
			return command.Outcome{}, errors.New(string(msg))
		}
		return command.Immediate(toGo(result)), nil
	}
}

// registerAPI installs the stagehand helper table available to every script.
func registerAPI(L *lua.LState) {
	api := L.NewTable()
	api.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		log.WithComponent("luatool").Info(L.CheckString(1))
		return 0
	}))
	L.SetGlobal("stagehand", api)
}

// toLua converts a JSON-shaped Go value into a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	case command.Params:
		return toLua(L, map[string]any(val))
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// toGo converts a Lua value back into a JSON-shaped Go value. Whole numbers
// come back as int64 so they encode without a fraction.
func toGo(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil
	}
}

// tableToGo maps a table to a slice when its keys are the contiguous
// integers 1..n, and to a string-keyed map otherwise.
func tableToGo(t *lua.LTable) any {
	maxN := t.MaxN()
	if maxN > 0 {
		count := 0
		t.ForEach(func(_, _ lua.LValue) { count++ })
		if count == maxN {
			arr := make([]any, maxN)
			for i := 1; i <= maxN; i++ {
				arr[i-1] = toGo(t.RawGetInt(i))
			}
			return arr
		}
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = toGo(v)
	})
	return m
}
