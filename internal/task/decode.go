package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StringList decodes from either a single string or a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected a string or a list of strings: %w", err)
	}
	*l = list
	return nil
}

// UnmarshalJSON accepts a string, a list of lines, a {file} reference or a
// {pre, main, post} split body.
func (s *Script) UnmarshalJSON(data []byte) error {
	var body string
	if err := json.Unmarshal(data, &body); err == nil {
		s.Lines = splitLines(body)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		s.Lines = nil
		for _, entry := range list {
			s.Lines = append(s.Lines, splitLines(entry)...)
		}
		return nil
	}

	var aux struct {
		File string     `json:"file"`
		Pre  StringList `json:"pre"`
		Main StringList `json:"main"`
		Post StringList `json:"post"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("invalid script: %w", err)
	}
	s.File = aux.File
	s.Lines = nil
	for _, part := range [][]string{aux.Pre, aux.Main, aux.Post} {
		for _, entry := range part {
			s.Lines = append(s.Lines, splitLines(entry)...)
		}
	}
	return nil
}

func splitLines(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimSuffix(body, "\n")
	return strings.Split(body, "\n")
}

// UnmarshalJSON accepts a task name, a list of names, a {name, fork,
// parallel, cleanup_task} table or a list of {name, condition} routes.
func (r *RunTask) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = RunTask{Names: []string{single}}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		*r = RunTask{}
		if len(raw) == 0 {
			return nil
		}
		if bytes.HasPrefix(bytes.TrimSpace(raw[0]), []byte(`"`)) {
			return json.Unmarshal(data, &r.Names)
		}
		for _, entry := range raw {
			var aux struct {
				Name            StringList `json:"name"`
				Condition       *Condition `json:"condition"`
				ConditionScript *Script    `json:"condition_script"`
			}
			if err := json.Unmarshal(entry, &aux); err != nil {
				return fmt.Errorf("invalid run_task route: %w", err)
			}
			r.Routes = append(r.Routes, Route{
				Names:           aux.Name,
				Condition:       aux.Condition,
				ConditionScript: aux.ConditionScript,
			})
		}
		return nil
	}

	var aux struct {
		Name        StringList `json:"name"`
		Fork        bool       `json:"fork"`
		Parallel    bool       `json:"parallel"`
		CleanupTask string     `json:"cleanup_task"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("invalid run_task: %w", err)
	}
	*r = RunTask{
		Names:       aux.Name,
		Fork:        aux.Fork,
		Parallel:    aux.Parallel,
		CleanupTask: aux.CleanupTask,
	}
	return nil
}

// UnmarshalJSON accepts a package name or a full requirement table.
func (p *InstallPackage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = InstallPackage{Package: name}
		return nil
	}

	var aux struct {
		Package    string     `json:"package"`
		Binary     string     `json:"binary"`
		TestArg    StringList `json:"test_arg"`
		Component  string     `json:"component"`
		MinVersion string     `json:"min_version"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("invalid install_package: %w", err)
	}
	*p = InstallPackage{
		Package:    aux.Package,
		Binary:     aux.Binary,
		TestArg:    aux.TestArg,
		Component:  aux.Component,
		MinVersion: aux.MinVersion,
	}
	return nil
}

// UnmarshalJSON accepts a boolean or a deprecation message.
func (d *Deprecation) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		*d = Deprecation{Deprecated: flag}
		return nil
	}
	var message string
	if err := json.Unmarshal(data, &message); err != nil {
		return fmt.Errorf("deprecated must be a boolean or a message: %w", err)
	}
	*d = Deprecation{Deprecated: true, Message: message}
	return nil
}

// MarshalJSON writes the message when present, the flag otherwise.
func (d Deprecation) MarshalJSON() ([]byte, error) {
	if d.Message != "" {
		return json.Marshal(d.Message)
	}
	return json.Marshal(d.Deprecated)
}

// UnmarshalJSON decodes every form an env entry may take.
func (v *EnvValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty env value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvString, Value: s}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvBool, Value: strconv.FormatBool(b)}
		return nil
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			list = append(list, scalarString(item))
		}
		*v = EnvValue{Kind: EnvList, List: list}
		return nil
	case '{':
		return v.unmarshalTable(trimmed)
	case 'n':
		*v = EnvValue{Kind: EnvUnset}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("unsupported env value %s", trimmed)
		}
		*v = EnvValue{Kind: EnvNumber, Value: n.String()}
		return nil
	}
}

func (v *EnvValue) unmarshalTable(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	switch {
	case has(keys, "unset"):
		var unset bool
		if err := json.Unmarshal(keys["unset"], &unset); err != nil {
			return fmt.Errorf("unset must be a boolean: %w", err)
		}
		if !unset {
			return fmt.Errorf("unset must be true")
		}
		*v = EnvValue{Kind: EnvUnset}
	case has(keys, "script"):
		var script Script
		if err := json.Unmarshal(keys["script"], &script); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvScript, Script: &script}
	case has(keys, "source"):
		var aux struct {
			Source       string            `json:"source"`
			DefaultValue *string           `json:"default_value"`
			Mapping      map[string]string `json:"mapping"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvDecode, Source: aux.Source, DefaultValue: aux.DefaultValue, Mapping: aux.Mapping}
	case has(keys, "value"):
		var aux struct {
			Value     EnvValue   `json:"value"`
			Condition *Condition `json:"condition"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvConditional, Value: aux.Value.Flatten(), Condition: aux.Condition}
	default:
		var profile Env
		if err := json.Unmarshal(data, &profile); err != nil {
			return err
		}
		*v = EnvValue{Kind: EnvProfile, Profile: profile}
	}
	return nil
}

// Flatten returns the literal value of a scalar or list entry. Lists are
// joined with ";".
func (v EnvValue) Flatten() string {
	if v.Kind == EnvList {
		return strings.Join(v.List, ";")
	}
	return v.Value
}

func has(keys map[string]json.RawMessage, key string) bool {
	_, ok := keys[key]
	return ok
}

func scalarString(item any) string {
	switch x := item.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
