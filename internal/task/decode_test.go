package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTask(t *testing.T, doc string) Task {
	t.Helper()
	var out Task
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}

func TestDecodeScriptForms(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Script
	}{
		{"string", `{"script": "echo a\necho b\n"}`, Script{Lines: []string{"echo a", "echo b"}}},
		{"list", `{"script": ["echo a", "echo b"]}`, Script{Lines: []string{"echo a", "echo b"}}},
		{"file", `{"script": {"file": "build.sh"}}`, Script{File: "build.sh"}},
		{"split", `{"script": {"pre": "echo pre", "main": ["echo main"], "post": "echo post"}}`,
			Script{Lines: []string{"echo pre", "echo main", "echo post"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeTask(t, tt.doc)
			require.NotNil(t, got.Script)
			assert.Equal(t, tt.want, *got.Script)
		})
	}
}

func TestDecodeRunTaskForms(t *testing.T) {
	got := decodeTask(t, `{"run_task": "build"}`)
	assert.Equal(t, []string{"build"}, got.RunTask.Names)

	got = decodeTask(t, `{"run_task": ["a", "b"]}`)
	assert.Equal(t, []string{"a", "b"}, got.RunTask.Names)

	got = decodeTask(t, `{"run_task": {"name": ["a", "b"], "fork": true, "cleanup_task": "clean"}}`)
	assert.Equal(t, []string{"a", "b"}, got.RunTask.Names)
	assert.True(t, got.RunTask.Fork)
	assert.Equal(t, "clean", got.RunTask.CleanupTask)

	got = decodeTask(t, `{"run_task": [{"name": "ci", "condition": {"env_set": ["CI"]}}, {"name": "local"}]}`)
	require.Len(t, got.RunTask.Routes, 2)
	assert.Equal(t, []string{"ci"}, got.RunTask.Routes[0].Names)
	assert.Equal(t, []string{"CI"}, got.RunTask.Routes[0].Condition.EnvSet)
	assert.Nil(t, got.RunTask.Routes[1].Condition)
}

func TestDecodeInstallPackage(t *testing.T) {
	got := decodeTask(t, `{"install_package": "cargo-audit"}`)
	assert.Equal(t, &InstallPackage{Package: "cargo-audit"}, got.InstallPackage)

	got = decodeTask(t, `{"install_package": {"package": "fmt", "binary": "rustfmt", "test_arg": "--version", "component": "rustfmt"}}`)
	assert.Equal(t, &InstallPackage{
		Package:   "fmt",
		Binary:    "rustfmt",
		TestArg:   []string{"--version"},
		Component: "rustfmt",
	}, got.InstallPackage)
}

func TestDecodeDeprecated(t *testing.T) {
	on := decodeTask(t, `{"deprecated": true}`)
	assert.True(t, on.IsDeprecated())
	off := decodeTask(t, `{"deprecated": false}`)
	assert.False(t, off.IsDeprecated())

	got := decodeTask(t, `{"deprecated": "use build instead"}`)
	assert.True(t, got.IsDeprecated())
	assert.Equal(t, "use build instead", got.Deprecated.Message)
}

func TestDecodeEnvValues(t *testing.T) {
	var env Env
	doc := `{
		"S": "text",
		"B": true,
		"N": 42,
		"L": ["a", 1, false],
		"U": {"unset": true},
		"D": {"source": "${MODE}", "default_value": "dev", "mapping": {"release": "prod"}},
		"C": {"value": "yes", "condition": {"env_set": ["CI"]}},
		"X": {"script": ["echo hi"]},
		"production": {"LEVEL": "warn"}
	}`
	require.NoError(t, json.Unmarshal([]byte(doc), &env))

	assert.Equal(t, EnvValue{Kind: EnvString, Value: "text"}, env["S"])
	assert.Equal(t, EnvValue{Kind: EnvBool, Value: "true"}, env["B"])
	assert.Equal(t, EnvValue{Kind: EnvNumber, Value: "42"}, env["N"])
	assert.Equal(t, []string{"a", "1", "false"}, env["L"].List)
	assert.Equal(t, "a;1;false", env["L"].Flatten())
	assert.Equal(t, EnvUnset, env["U"].Kind)

	assert.Equal(t, EnvDecode, env["D"].Kind)
	assert.Equal(t, "${MODE}", env["D"].Source)
	assert.Equal(t, "dev", *env["D"].DefaultValue)
	assert.Equal(t, "prod", env["D"].Mapping["release"])

	assert.Equal(t, EnvConditional, env["C"].Kind)
	assert.Equal(t, "yes", env["C"].Value)
	assert.Equal(t, []string{"CI"}, env["C"].Condition.EnvSet)

	assert.Equal(t, EnvScript, env["X"].Kind)
	assert.Equal(t, []string{"echo hi"}, env["X"].Script.Lines)

	assert.Equal(t, EnvProfile, env["production"].Kind)
	assert.Equal(t, StringValue("warn"), env["production"].Profile["LEVEL"])
}

func TestDecodeEnvRejectsUnsetFalse(t *testing.T) {
	var env Env
	assert.Error(t, json.Unmarshal([]byte(`{"U": {"unset": false}}`), &env))
}
