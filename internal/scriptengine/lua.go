package scriptengine

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

const luaExitMarker = "makeflow: exit"

// runLua runs the script in a Lua state with the base, table, string and
// math libraries. Scripts see arg (the task arguments), getenv, setenv and
// exit. Env changes are local to the script.
func (d *Dispatcher) runLua(ctx context.Context, req Request) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	env := req.Env.Clone()
	exitCode := -1

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(req.Stdout, strings.Join(parts, "\t"))
		return 0
	}))
	L.SetGlobal("getenv", L.NewFunction(func(L *lua.LState) int {
		if v, ok := env.Get(L.CheckString(1)); ok {
			L.Push(lua.LString(v))
		} else {
			L.Push(lua.LNil)
		}
		return 1
	}))
	L.SetGlobal("setenv", L.NewFunction(func(L *lua.LState) int {
		env.Set(L.CheckString(1), L.CheckString(2))
		return 0
	}))
	L.SetGlobal("exit", L.NewFunction(func(L *lua.LState) int {
		exitCode = L.OptInt(1, 0)
		L.RaiseError(luaExitMarker)
		return 0
	}))

	args := L.NewTable()
	for i, a := range req.Args {
		args.RawSetInt(i+1, lua.LString(a))
	}
	L.SetGlobal("arg", args)

	err := L.DoString(strings.Join(StripShebang(req.Lines), "\n"))
	switch {
	case exitCode > 0:
		return errors.Wrap(errors.ErrCodeEngineFailed, fmt.Sprintf("lua script of task %s failed", req.Task),
			&process.ExitError{Command: "lua", Code: exitCode})
	case exitCode == 0:
		return nil
	case err != nil:
		return errors.Wrap(errors.ErrCodeEngineFailed, fmt.Sprintf("lua script of task %s failed", req.Task), err)
	}
	return nil
}
