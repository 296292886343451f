package task

// EnvKind identifies the form of an env entry.
type EnvKind string

const (
	EnvString      EnvKind = "string"
	EnvBool        EnvKind = "bool"
	EnvNumber      EnvKind = "number"
	EnvList        EnvKind = "list"
	EnvUnset       EnvKind = "unset"
	EnvDecode      EnvKind = "decode"
	EnvConditional EnvKind = "conditional"
	EnvScript      EnvKind = "script"
	EnvProfile     EnvKind = "profile"
)

// Env is an env section: variable name to value. Entries of kind
// EnvProfile are sub-sections applied only when the profile is active.
type Env map[string]EnvValue

// EnvValue is one entry of an env section.
type EnvValue struct {
	Kind EnvKind

	// Value holds string, bool and number entries, and the value of a
	// conditional entry.
	Value string
	List  []string

	Source       string
	DefaultValue *string
	Mapping      map[string]string

	Condition *Condition
	Script    *Script

	Profile Env
}

// StringValue returns a plain string entry.
func StringValue(v string) EnvValue {
	return EnvValue{Kind: EnvString, Value: v}
}

// Merge returns a new env with the entries of over applied on top of base.
// Profile sub-sections present in both are merged key by key.
func (base Env) Merge(over Env) Env {
	if base == nil && over == nil {
		return nil
	}
	out := make(Env, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if prev, ok := out[k]; ok && prev.Kind == EnvProfile && v.Kind == EnvProfile {
			v.Profile = prev.Profile.Merge(v.Profile)
		}
		out[k] = v
	}
	return out
}
