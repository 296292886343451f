package functions

import (
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

// Prefix marks an argument as a function call.
const Prefix = "@@"

// Parse splits a call of the form @@name(arg1,arg2) into its name and
// arguments. ok is false when s is not a function call.
// Arguments are trimmed unless they are a single character, so that a
// separator such as " " survives.
func Parse(s string) (name string, args []string, ok bool, err error) {
	if !strings.HasPrefix(s, Prefix) {
		return "", nil, false, nil
	}
	body := strings.TrimPrefix(s, Prefix)

	open := strings.IndexByte(body, '(')
	if open <= 0 || !strings.HasSuffix(body, ")") {
		return "", nil, true, errors.NewFunctionError(s, "expected @@name(arguments)")
	}

	name = body[:open]
	inner := body[open+1 : len(body)-1]
	if inner == "" {
		return name, []string{}, true, nil
	}

	for _, arg := range strings.Split(inner, ",") {
		if len(arg) > 1 {
			arg = strings.TrimSpace(arg)
		}
		args = append(args, arg)
	}
	return name, args, true, nil
}

// Expand replaces every @@ call in args with the values it yields. Other
// arguments are kept as they are.
func Expand(env Env, args []string) ([]string, error) {
	if args == nil {
		return nil, nil
	}

	out := make([]string, 0, len(args))
	for _, arg := range args {
		name, callArgs, ok, err := Parse(arg)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, arg)
			continue
		}

		values, err := Call(env, name, callArgs)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return out, nil
}
