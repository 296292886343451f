package flowscript

import (
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
)

// Value is a script value: a string or a list of strings.
type Value struct {
	Str    string
	List   []string
	IsList bool
}

func str(s string) Value { return Value{Str: s} }

func list(items []string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{List: items, IsList: true}
}

func boolean(b bool) Value {
	if b {
		return str("true")
	}
	return str("false")
}

// String renders the value; list items are joined with ";".
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, ";")
	}
	return v.Str
}

// Items returns the list items, or the string as a single item.
func (v Value) Items() []string {
	if v.IsList {
		return v.List
	}
	return []string{v.Str}
}

// Truthy reports whether the value counts as true in a condition.
func (v Value) Truthy() bool {
	if v.IsList {
		return len(v.List) > 0
	}
	return envctx.Truthy(v.Str)
}

type scope struct {
	vars   map[string]Value
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]Value), parent: parent}
}

func (s *scope) get(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func (s *scope) set(name string, v Value) {
	s.vars[name] = v
}
