package envctx

import "strings"

// Profile variables.
const (
	ProfileKey            = "MAKEFLOW_PROFILE"
	DefaultProfileKey     = "MAKEFLOW_DEFAULT_PROFILE"
	AdditionalProfilesKey = "MAKEFLOW_ADDITIONAL_PROFILES"

	DefaultProfile = "development"
)

// DefaultProfileName returns the profile used when none is requested.
func (c *Context) DefaultProfileName() string {
	if name := normalizeProfile(c.GetOr(DefaultProfileKey, "")); name != "" {
		return name
	}
	return DefaultProfile
}

// Profile returns the active profile name.
func (c *Context) Profile() string {
	if name := normalizeProfile(c.GetOr(ProfileKey, "")); name != "" {
		return name
	}
	return c.DefaultProfileName()
}

// SetProfile stores the normalized profile name (lowercase, trimmed, default
// when empty) and returns it.
func (c *Context) SetProfile(name string) string {
	name = normalizeProfile(name)
	if name == "" {
		name = c.DefaultProfileName()
	}
	c.Set(ProfileKey, name)
	return name
}

// AdditionalProfiles returns the additional profile names.
func (c *Context) AdditionalProfiles() []string {
	raw := c.GetOr(AdditionalProfilesKey, "")
	var out []string
	for _, p := range strings.Split(raw, ";") {
		if p = normalizeProfile(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SetAdditionalProfiles stores the additional profile list.
func (c *Context) SetAdditionalProfiles(profiles []string) {
	var normalized []string
	for _, p := range profiles {
		if p = normalizeProfile(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	if len(normalized) == 0 {
		c.Unset(AdditionalProfilesKey)
		return
	}
	c.Set(AdditionalProfilesKey, strings.Join(normalized, ";"))
}

// ProfileActive reports whether name is the active or an additional profile.
func (c *Context) ProfileActive(name string) bool {
	name = normalizeProfile(name)
	if name == c.Profile() {
		return true
	}
	for _, p := range c.AdditionalProfiles() {
		if p == name {
			return true
		}
	}
	return false
}

func normalizeProfile(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
