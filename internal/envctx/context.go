// Package envctx holds the key/value environment threaded through a flow.
//
// A Context replaces ambient process environment access: every component reads
// and writes variables through it, and child processes receive a snapshot of it
// via Environ.
package envctx

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Context is a mutable set of environment variables.
type Context struct {
	mu   sync.RWMutex
	vars map[string]string
}

// New creates a Context seeded with a copy of vars.
func New(vars map[string]string) *Context {
	c := &Context{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		c.vars[k] = v
	}
	return c
}

// FromEnviron creates a Context from KEY=VALUE pairs as returned by os.Environ.
func FromEnviron(environ []string) *Context {
	c := &Context{vars: make(map[string]string, len(environ))}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		c.vars[key] = value
	}
	return c
}

// FromOS creates a Context from the current process environment.
func FromOS() *Context {
	return FromEnviron(os.Environ())
}

// Get returns the value of key and whether it is set.
func (c *Context) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vars[key]
	return v, ok
}

// GetOr returns the value of key or def when unset.
func (c *Context) GetOr(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key is set.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set assigns value to key.
func (c *Context) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[key] = value
}

// SetBool stores a boolean as "true" or "false".
func (c *Context) SetBool(key string, value bool) {
	c.Set(key, strconv.FormatBool(value))
}

// Unset removes key.
func (c *Context) Unset(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vars, key)
}

// IsTrue reports whether key holds a truthy value. Unset, empty, "0", "false"
// and "no" are false.
func (c *Context) IsTrue(key string) bool {
	v, ok := c.Get(key)
	return ok && Truthy(v)
}

// Truthy applies the boolean interpretation used for environment values.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

// Increment adds one to the integer stored under key and returns the new value.
// Unset or non-numeric values count as zero.
func (c *Context) Increment(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.Atoi(strings.TrimSpace(c.vars[key]))
	n++
	c.vars[key] = strconv.Itoa(n)
	return n
}

// Map returns a copy of all variables.
func (c *Context) Map() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Environ returns a sorted KEY=VALUE snapshot for child processes.
func (c *Context) Environ() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.vars))
	for k, v := range c.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy. Writes to the clone never reach c.
func (c *Context) Clone() *Context {
	return New(c.Map())
}

// Expand replaces ${NAME} references with their values. Unset variables expand
// to the empty string; a bare $ is left untouched.
func (c *Context) Expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[start+2:], '}')
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		name := s[start+2 : start+2+end]
		value, _ := c.Get(name)
		b.WriteString(value)
		s = s[start+2+end+1:]
	}
	return b.String()
}

// ExpandAll applies Expand to every element.
func (c *Context) ExpandAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = c.Expand(v)
	}
	return out
}
