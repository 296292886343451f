package envctx

import (
	"strconv"
	"strings"
)

// RecursionKey holds the nesting depth of runner invocations.
const RecursionKey = "MAKEFLOW_INTERNAL_RECURSION_LEVEL"

// RecursionLevel returns the current nesting depth. Unset or invalid values read as 0.
func (c *Context) RecursionLevel() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.GetOr(RecursionKey, "0")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// IsTop reports whether this is the top-level invocation of the runner.
func (c *Context) IsTop() bool {
	return c.RecursionLevel() == 0
}

// EnterNested increments the depth and returns it. Call it before starting a
// nested run so the child observes a strictly higher level.
func (c *Context) EnterNested() int {
	return c.Increment(RecursionKey)
}
