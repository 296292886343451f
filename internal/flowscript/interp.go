package flowscript

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

// TaskRunner runs a task of the current flow on behalf of a script.
type TaskRunner interface {
	RunTask(ctx context.Context, name string, ec *envctx.Context) error
}

// Options configure a script run.
type Options struct {
	// Env is the Context the script reads and writes. Run works on a clone,
	// so the caller's Context never changes.
	Env *envctx.Context
	// Args are bound to $1..$N.
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Tasks  TaskRunner
	// Process spawns the commands of exec; nil runs them on the host.
	Process process.Runner
}

// ExitError is returned when a script ends with a non-zero exit status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("script exited with status %d", e.Code)
}

// RuntimeError reports a failing script line.
type RuntimeError struct {
	Line int
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

type returnSignal struct{ value Value }

func (returnSignal) Error() string { return "return outside of function" }

type exitSignal struct{ code int }

func (exitSignal) Error() string { return "exit" }

// Interpreter executes parsed scripts.
type Interpreter struct {
	opts      Options
	env       *envctx.Context
	global    *scope
	functions map[string]*functionNode
}

// Run parses and executes lines.
func Run(ctx context.Context, lines []string, opts Options) error {
	program, err := parse(lines)
	if err != nil {
		return err
	}

	in := New(opts)
	return in.run(ctx, program)
}

// New creates an interpreter with a fresh global scope seeded from
// opts.Args.
func New(opts Options) *Interpreter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	env := opts.Env
	if env == nil {
		env = envctx.New(nil)
	}

	in := &Interpreter{
		opts:      opts,
		env:       env.Clone(),
		global:    newScope(nil),
		functions: make(map[string]*functionNode),
	}
	bindArgs(in.global, opts.Args)
	return in
}

// Env returns the interpreter's own Context.
func (in *Interpreter) Env() *envctx.Context { return in.env }

// Lookup returns a variable of the global scope.
func (in *Interpreter) Lookup(name string) (Value, bool) {
	return in.global.get(name)
}

func (in *Interpreter) run(ctx context.Context, program []node) error {
	in.hoist(program)
	err := in.execBlock(ctx, program, in.global)

	switch sig := err.(type) {
	case nil:
		return nil
	case exitSignal:
		if sig.code == 0 {
			return nil
		}
		return &ExitError{Code: sig.code}
	case returnSignal:
		return nil
	default:
		return err
	}
}

func (in *Interpreter) hoist(program []node) {
	for _, n := range program {
		if fn, ok := n.(*functionNode); ok {
			in.functions[fn.name] = fn
		}
	}
}

func bindArgs(s *scope, args []string) {
	for i, arg := range args {
		s.set(strconv.Itoa(i+1), str(arg))
	}
	s.set("#", str(strconv.Itoa(len(args))))
}

func (in *Interpreter) execBlock(ctx context.Context, body []node, s *scope) error {
	for _, n := range body {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.exec(ctx, n, s); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) exec(ctx context.Context, n node, s *scope) error {
	switch n := n.(type) {
	case *commandNode:
		v, err := in.evalCommand(ctx, n.words, s, n.target != "")
		if err != nil {
			return wrapLine(n.line, err)
		}
		if n.target != "" {
			s.set(n.target, v)
		}
		return nil

	case *ifNode:
		for _, b := range n.branches {
			ok, err := in.evalCondition(ctx, b.cond, s)
			if err != nil {
				return wrapLine(b.line, err)
			}
			if ok {
				return in.execBlock(ctx, b.body, s)
			}
		}
		return in.execBlock(ctx, n.elseBody, s)

	case *whileNode:
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := in.evalCondition(ctx, n.cond, s)
			if err != nil {
				return wrapLine(n.line, err)
			}
			if !ok {
				return nil
			}
			if err := in.execBlock(ctx, n.body, s); err != nil {
				return err
			}
		}

	case *forNode:
		items, err := in.expandAll(n.items, s)
		if err != nil {
			return wrapLine(n.line, err)
		}
		for _, item := range items {
			s.set(n.variable, str(item))
			if err := in.execBlock(ctx, n.body, s); err != nil {
				return err
			}
		}
		return nil

	case *functionNode:
		in.functions[n.name] = n
		return nil

	case *returnNode:
		v, err := in.evalLiteral(n.words, s)
		if err != nil {
			return wrapLine(n.line, err)
		}
		return returnSignal{value: v}

	case *exitNode:
		code := 0
		if len(n.words) > 0 {
			v, err := in.evalLiteral(n.words, s)
			if err != nil {
				return wrapLine(n.line, err)
			}
			code, err = strconv.Atoi(strings.TrimSpace(v.String()))
			if err != nil {
				return wrapLine(n.line, fmt.Errorf("invalid exit code %q", v.String()))
			}
		}
		return exitSignal{code: code}
	}
	return fmt.Errorf("unknown statement at line %d", n.lineNo())
}

func wrapLine(line int, err error) error {
	switch err.(type) {
	case returnSignal, exitSignal, *RuntimeError:
		return err
	}
	return &RuntimeError{Line: line, Err: err}
}

// evalCommand runs the command of words. When lenient is set, words that do
// not name a command evaluate to their own literal value.
func (in *Interpreter) evalCommand(ctx context.Context, words []token, s *scope, lenient bool) (Value, error) {
	if len(words) == 0 {
		return str(""), nil
	}

	name := words[0]
	if !name.quoted {
		if fn, ok := in.functions[name.text]; ok {
			args, err := in.expandAll(words[1:], s)
			if err != nil {
				return Value{}, err
			}
			return in.call(ctx, fn, args)
		}
		if b, ok := builtins[name.text]; ok {
			args, err := in.expandAll(words[1:], s)
			if err != nil {
				return Value{}, err
			}
			return b(ctx, in, s, args)
		}
	}

	if !lenient {
		return Value{}, fmt.Errorf("unknown command %q", name.text)
	}
	return in.evalLiteral(words, s)
}

func (in *Interpreter) evalCondition(ctx context.Context, words []token, s *scope) (bool, error) {
	v, err := in.evalCommand(ctx, words, s, true)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func (in *Interpreter) evalLiteral(words []token, s *scope) (Value, error) {
	if len(words) == 1 {
		return in.expandToken(words[0], s)
	}
	items, err := in.expandAll(words, s)
	if err != nil {
		return Value{}, err
	}
	return str(strings.Join(items, " ")), nil
}

func (in *Interpreter) call(ctx context.Context, fn *functionNode, args []string) (Value, error) {
	local := newScope(in.global)
	bindArgs(local, args)

	err := in.execBlock(ctx, fn.body, local)
	if sig, ok := err.(returnSignal); ok {
		return sig.value, nil
	}
	if err != nil {
		return Value{}, err
	}
	return str(""), nil
}

func (in *Interpreter) expandAll(words []token, s *scope) ([]string, error) {
	var out []string
	for _, w := range words {
		v, err := in.expandToken(w, s)
		if err != nil {
			return nil, err
		}
		if v.IsList && !w.quoted {
			out = append(out, v.List...)
			continue
		}
		out = append(out, v.String())
	}
	return out, nil
}

// expandToken substitutes ${name} and $N references. An unquoted token that
// is exactly one reference keeps the referenced value's list form.
func (in *Interpreter) expandToken(t token, s *scope) (Value, error) {
	if t.literal {
		return str(t.text), nil
	}
	if name, ok := soleReference(t.text); ok {
		v := in.lookup(name, s)
		if t.quoted {
			return str(v.String()), nil
		}
		return v, nil
	}

	var b strings.Builder
	text := t.text
	for i := 0; i < len(text); {
		if text[i] != '$' || i+1 >= len(text) {
			b.WriteByte(text[i])
			i++
			continue
		}
		if text[i+1] == '{' {
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				return Value{}, fmt.Errorf("unterminated variable reference in %q", text)
			}
			b.WriteString(in.lookup(text[i+2:i+2+end], s).String())
			i += end + 3
			continue
		}
		j := i + 1
		for j < len(text) && text[j] >= '0' && text[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte('$')
			i++
			continue
		}
		b.WriteString(in.lookup(text[i+1:j], s).String())
		i = j
	}
	return str(b.String()), nil
}

func soleReference(text string) (string, bool) {
	if strings.HasPrefix(text, "${") && strings.HasSuffix(text, "}") && strings.Count(text, "$") == 1 {
		return text[2 : len(text)-1], true
	}
	if len(text) > 1 && text[0] == '$' {
		if _, err := strconv.Atoi(text[1:]); err == nil {
			return text[1:], true
		}
	}
	return "", false
}

// lookup resolves a variable from the scope chain, then from the Context.
func (in *Interpreter) lookup(name string, s *scope) Value {
	if v, ok := s.get(name); ok {
		return v
	}
	if v, ok := in.env.Get(name); ok {
		return str(v)
	}
	return str("")
}
