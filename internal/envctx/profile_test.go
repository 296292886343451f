package envctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileDefaults(t *testing.T) {
	c := New(nil)
	assert.Equal(t, DefaultProfile, c.Profile())

	c.Set(DefaultProfileKey, " CI ")
	assert.Equal(t, "ci", c.Profile())
}

func TestSetProfileNormalizes(t *testing.T) {
	c := New(nil)

	assert.Equal(t, "production", c.SetProfile("  PRODUCTION "))
	assert.Equal(t, "production", c.GetOr(ProfileKey, ""))

	assert.Equal(t, DefaultProfile, c.SetProfile("   "))
	assert.Equal(t, DefaultProfile, c.Profile())
}

func TestAdditionalProfiles(t *testing.T) {
	c := New(nil)
	assert.Empty(t, c.AdditionalProfiles())

	c.SetAdditionalProfiles([]string{"Docs", "", " ci "})
	assert.Equal(t, []string{"docs", "ci"}, c.AdditionalProfiles())
	assert.Equal(t, "docs;ci", c.GetOr(AdditionalProfilesKey, ""))

	c.SetProfile("release")
	assert.True(t, c.ProfileActive("RELEASE"))
	assert.True(t, c.ProfileActive("ci"))
	assert.False(t, c.ProfileActive("development"))

	c.SetAdditionalProfiles(nil)
	assert.False(t, c.Has(AdditionalProfilesKey))
}
