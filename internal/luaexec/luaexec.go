// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

// Package luaexec runs plugin functions written in Lua inside a
// sandboxed interpreter. Each invocation gets a fresh state, so scripts
// cannot leak state into each other and a crashed script never poisons
// the process.
package luaexec

import (
	"context"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/agentbridge/agentbridge/internal/dispatch"
)

// safeLibrary is one Lua library permitted in the sandbox.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// Sandbox allows base, table, string, and math. Blocked: os, io,
// debug, package.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// unsafeBaseFunctions are base-library functions that reach the
// filesystem and must be removed from the sandbox.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// StateFactory creates sandboxed Lua states.
type StateFactory struct {
	libraries []safeLibrary
}

// NewStateFactory creates a factory with the default sandbox.
func NewStateFactory() *StateFactory {
	return &StateFactory{libraries: defaultSafeLibraries()}
}

// NewState creates a fresh state with only the safe libraries loaded.
func (f *StateFactory) NewState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	L.SetContext(ctx)

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("luaexec").With("library", lib.name).
				Wrapf(err, "failed to open library")
		}
	}

	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	return L, nil
}

// Executor wraps a Lua script as a dispatch executor. The script must
// define a global function
//
//	function handle(args_json) ... end
//
// receiving the argument JSON and returning the result JSON as a
// string. Script errors are executor failures; a script that wants to
// report a domain failure returns an {"Err": ...} document itself.
func (f *StateFactory) Executor(script string) dispatch.Executor {
	return func(ctx context.Context, argsJSON string) (string, error) {
		L, err := f.NewState(ctx)
		if err != nil {
			return "", err
		}
		defer L.Close()

		if err := L.DoString(script); err != nil {
			return "", oops.In("luaexec").Wrapf(err, "script failed to load")
		}

		handle := L.GetGlobal("handle")
		if handle.Type() != lua.LTFunction {
			return "", oops.In("luaexec").New("script does not define a handle function")
		}

		if err := L.CallByParam(lua.P{
			Fn:      handle,
			NRet:    1,
			Protect: true,
		}, lua.LString(argsJSON)); err != nil {
			return "", oops.In("luaexec").Wrapf(err, "handle call failed")
		}

		ret := L.Get(-1)
		L.Pop(1)
		result, ok := ret.(lua.LString)
		if !ok {
			return "", oops.In("luaexec").With("type", ret.Type().String()).
				New("handle must return a JSON string")
		}
		return string(result), nil
	}
}
