// Package functions implements the built-in functions available to task
// arguments (as @@name(args) entries) and to flowscript.
//
// Every function receives a literal argument list and yields zero or one
// values. Absence is an empty result, never an error; only invalid arity,
// invalid separators and unknown modes are errors.
package functions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

// Env is the variable source the functions read from.
type Env interface {
	Get(key string) (string, bool)
}

// Func is a built-in function.
type Func func(env Env, args []string) ([]string, error)

var registry = map[string]Func{
	"split":        Split,
	"getat":        GetAt,
	"trim":         Trim,
	"remove-empty": RemoveEmpty,
	"decode":       Decode,
}

// Names returns the registered function names.
func Names() []string {
	return []string{"decode", "getat", "remove-empty", "split", "trim"}
}

// Call invokes the named function.
func Call(env Env, name string, args []string) ([]string, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, errors.NewFunctionError(name, "unknown function")
	}
	return fn(env, args)
}

// Split splits the value of variable args[0] on the single character args[1].
// An optional third argument "remove-empty" drops empty fields.
func Split(env Env, args []string) ([]string, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, errors.NewFunctionError("split", fmt.Sprintf("expected 2 or 3 arguments, got %d", len(args)))
	}
	separator, err := singleChar("split", args[1])
	if err != nil {
		return nil, err
	}

	removeEmpty := false
	if len(args) == 3 {
		if args[2] != "remove-empty" {
			return nil, errors.NewFunctionError("split", fmt.Sprintf("unknown split mode %q", args[2]))
		}
		removeEmpty = true
	}

	value := lookup(env, args[0])
	if value == "" {
		return []string{}, nil
	}

	out := []string{}
	for _, part := range strings.Split(value, separator) {
		if removeEmpty && part == "" {
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

// GetAt returns the field at the zero-based index args[2] of variable args[0]
// split on args[1]. An index beyond the field count yields no value.
func GetAt(env Env, args []string) ([]string, error) {
	if len(args) != 3 {
		return nil, errors.NewFunctionError("getat", fmt.Sprintf("expected 3 arguments, got %d", len(args)))
	}
	separator, err := singleChar("getat", args[1])
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(args[2])
	if err != nil || index < 0 {
		return nil, errors.NewFunctionError("getat", fmt.Sprintf("invalid index %q", args[2]))
	}

	value := lookup(env, args[0])
	if value == "" {
		return []string{}, nil
	}

	parts := strings.Split(value, separator)
	if index >= len(parts) {
		return []string{}, nil
	}
	return []string{parts[index]}, nil
}

// Trim trims whitespace from variable args[0]. The optional mode is "start"
// or "end". An all-whitespace value yields no value.
func Trim(env Env, args []string) ([]string, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, errors.NewFunctionError("trim", fmt.Sprintf("expected 1 or 2 arguments, got %d", len(args)))
	}

	value := lookup(env, args[0])
	var trimmed string
	switch {
	case len(args) == 1:
		trimmed = strings.TrimSpace(value)
	case args[1] == "start":
		trimmed = strings.TrimLeftFunc(value, isSpace)
	case args[1] == "end":
		trimmed = strings.TrimRightFunc(value, isSpace)
	default:
		return nil, errors.NewFunctionError("trim", fmt.Sprintf("unknown trim mode %q", args[1]))
	}

	if strings.TrimSpace(trimmed) == "" {
		return []string{}, nil
	}
	return []string{trimmed}, nil
}

// RemoveEmpty returns the value of variable args[0] only when it is non-empty.
func RemoveEmpty(env Env, args []string) ([]string, error) {
	if len(args) != 1 {
		return nil, errors.NewFunctionError("remove-empty", fmt.Sprintf("expected 1 argument, got %d", len(args)))
	}

	value := lookup(env, args[0])
	if value == "" {
		return []string{}, nil
	}
	return []string{value}, nil
}

// Decode maps the value of variable args[0] through key/value pairs. A trailing
// unpaired argument is the default; without one the source value is returned.
func Decode(env Env, args []string) ([]string, error) {
	if len(args) < 1 {
		return nil, errors.NewFunctionError("decode", "expected at least 1 argument")
	}

	value := lookup(env, args[0])
	mappings := args[1:]

	result := value
	if len(mappings)%2 == 1 {
		result = mappings[len(mappings)-1]
		mappings = mappings[:len(mappings)-1]
	}

	for i := 0; i < len(mappings); i += 2 {
		if mappings[i] == value {
			result = mappings[i+1]
			break
		}
	}
	return []string{result}, nil
}

func lookup(env Env, key string) string {
	if env == nil {
		return ""
	}
	v, _ := env.Get(key)
	return v
}

func singleChar(function, separator string) (string, error) {
	if len([]rune(separator)) != 1 {
		return "", errors.NewFunctionError(function, fmt.Sprintf("separator must be a single character, got %q", separator))
	}
	return separator, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
