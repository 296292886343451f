package flowscript

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/felixgeelhaar/makeflow/internal/functions"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

type builtin func(ctx context.Context, in *Interpreter, s *scope, args []string) (Value, error)

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"echo":         echo,
		"set":          set,
		"array":        array,
		"get_env":      getEnv,
		"set_env":      setEnv,
		"unset_env":    unsetEnv,
		"eq":           eq,
		"not":          not,
		"and":          and,
		"or":           or,
		"is_empty":     isEmpty,
		"concat":       concat,
		"length":       length,
		"strlen":       strlen,
		"assert":       assertTruthy,
		"assert_eq":    assertEq,
		"calc":         calc,
		"exec":         execCommand,
		"split":        viaFunction("split"),
		"getat":        viaFunction("getat"),
		"trim":         viaFunction("trim"),
		"remove_empty": viaFunction("remove-empty"),
		"run_task":     runTask,
	}
}

// Builtins returns the names of the built-in commands.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	return names
}

func arity(name string, args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		if min == max {
			return fmt.Errorf("%s expects %d arguments, got %d", name, min, len(args))
		}
		return fmt.Errorf("%s expects %d to %d arguments, got %d", name, min, max, len(args))
	}
	return nil
}

func echo(_ context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	fmt.Fprintln(in.opts.Stdout, strings.Join(args, " "))
	return str(""), nil
}

func set(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return str(strings.Join(args, " ")), nil
}

func array(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return list(append([]string{}, args...)), nil
}

func getEnv(_ context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("get_env", args, 1, 1); err != nil {
		return Value{}, err
	}
	return str(in.env.GetOr(args[0], "")), nil
}

func setEnv(_ context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("set_env", args, 2, -1); err != nil {
		return Value{}, err
	}
	value := strings.Join(args[1:], " ")
	in.env.Set(args[0], value)
	return str(value), nil
}

func unsetEnv(_ context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("unset_env", args, 1, 1); err != nil {
		return Value{}, err
	}
	in.env.Unset(args[0])
	return str(""), nil
}

func eq(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("eq", args, 2, 2); err != nil {
		return Value{}, err
	}
	return boolean(args[0] == args[1]), nil
}

func not(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return boolean(!str(strings.Join(args, " ")).Truthy()), nil
}

func and(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	if len(args) == 0 {
		return boolean(false), nil
	}
	for _, a := range args {
		if !str(a).Truthy() {
			return boolean(false), nil
		}
	}
	return boolean(true), nil
}

func or(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	for _, a := range args {
		if str(a).Truthy() {
			return boolean(true), nil
		}
	}
	return boolean(false), nil
}

func isEmpty(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return boolean(strings.Join(args, "") == ""), nil
}

func concat(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return str(strings.Join(args, "")), nil
}

// length counts its arguments, so an unquoted list reference yields the
// number of list items.
func length(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return str(strconv.Itoa(len(args))), nil
}

func strlen(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	return str(strconv.Itoa(len([]rune(strings.Join(args, " "))))), nil
}

func assertTruthy(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("assert", args, 1, 2); err != nil {
		return Value{}, err
	}
	if !str(args[0]).Truthy() {
		if len(args) == 2 {
			return Value{}, fmt.Errorf("assertion failed: %s", args[1])
		}
		return Value{}, fmt.Errorf("assertion failed")
	}
	return boolean(true), nil
}

func assertEq(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("assert_eq", args, 2, 3); err != nil {
		return Value{}, err
	}
	if args[0] != args[1] {
		if len(args) == 3 {
			return Value{}, fmt.Errorf("assertion failed: %s", args[2])
		}
		return Value{}, fmt.Errorf("assertion failed: %q != %q", args[0], args[1])
	}
	return boolean(true), nil
}

func calc(_ context.Context, _ *Interpreter, _ *scope, args []string) (Value, error) {
	source := strings.Join(args, " ")
	program, err := expr.Compile(source)
	if err != nil {
		return Value{}, fmt.Errorf("calc %q: %w", source, err)
	}
	output, err := expr.Run(program, nil)
	if err != nil {
		return Value{}, fmt.Errorf("calc %q: %w", source, err)
	}

	switch v := output.(type) {
	case int:
		return str(strconv.Itoa(v)), nil
	case float64:
		return str(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case bool:
		return boolean(v), nil
	default:
		return str(fmt.Sprint(v)), nil
	}
}

func execCommand(ctx context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("exec", args, 1, -1); err != nil {
		return Value{}, err
	}

	r := in.opts.Process
	if r == nil {
		r = process.OSRunner{}
	}
	out, res, err := process.Output(ctx, r, process.Command{
		Name:   args[0],
		Args:   args[1:],
		Env:    in.env.Environ(),
		Dir:    in.opts.Dir,
		Stderr: in.opts.Stderr,
	})
	if err != nil {
		return Value{}, err
	}
	if !res.Success() {
		return Value{}, &process.ExitError{Command: args[0], Code: res.ExitCode}
	}
	return str(strings.TrimRight(out, "\r\n")), nil
}

func runTask(ctx context.Context, in *Interpreter, _ *scope, args []string) (Value, error) {
	if err := arity("run_task", args, 1, 1); err != nil {
		return Value{}, err
	}
	if in.opts.Tasks == nil {
		return Value{}, fmt.Errorf("run_task is not available outside of a flow")
	}
	if err := in.opts.Tasks.RunTask(ctx, args[0], in.env); err != nil {
		return Value{}, err
	}
	return boolean(true), nil
}

// scopeEnv exposes script variables, then the Context, to the built-in
// functions.
type scopeEnv struct {
	in *Interpreter
	s  *scope
}

func (e scopeEnv) Get(key string) (string, bool) {
	if v, ok := e.s.get(key); ok {
		return v.String(), true
	}
	return e.in.env.Get(key)
}

func viaFunction(name string) builtin {
	return func(_ context.Context, in *Interpreter, s *scope, args []string) (Value, error) {
		values, err := functions.Call(scopeEnv{in: in, s: s}, name, args)
		if err != nil {
			return Value{}, err
		}
		if name == "split" {
			return list(values), nil
		}
		if len(values) == 0 {
			return str(""), nil
		}
		return str(values[0]), nil
	}
}
