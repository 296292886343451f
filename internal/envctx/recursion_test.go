package envctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecursionGuard(t *testing.T) {
	c := New(nil)

	assert.True(t, c.IsTop())
	assert.Equal(t, 0, c.RecursionLevel())

	assert.Equal(t, 1, c.EnterNested())
	assert.False(t, c.IsTop())
	assert.Equal(t, 1, c.RecursionLevel())

	assert.Equal(t, 2, c.EnterNested())
	assert.Equal(t, 2, c.RecursionLevel())
}

func TestRecursionLevelVisibleToChildren(t *testing.T) {
	c := New(nil)
	c.EnterNested()

	child := FromEnviron(c.Environ())
	assert.Equal(t, 1, child.RecursionLevel())
	assert.False(t, child.IsTop())
}

func TestRecursionLevelInvalidValues(t *testing.T) {
	for _, raw := range []string{"", "0", "abc", "-4"} {
		c := New(map[string]string{RecursionKey: raw})
		assert.True(t, c.IsTop(), raw)
	}
}
