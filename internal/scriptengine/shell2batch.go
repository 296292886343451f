package scriptengine

import (
	"regexp"
	"strings"
)

var (
	bracedVar     = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	plainVar      = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	positionalVar = regexp.MustCompile(`\$([0-9])`)
)

// commandMap maps POSIX commands, with their flags, to batch equivalents.
// Longer prefixes are listed first.
var commandMap = []struct {
	posix string
	batch string
}{
	{"rm -rf ", "rmdir /S /Q "},
	{"rm -r ", "rmdir /S /Q "},
	{"rm -f ", "del /Q "},
	{"rm ", "del /Q "},
	{"mkdir -p ", "mkdir "},
	{"cp -r ", "xcopy /E /I /Y "},
	{"cp ", "copy /Y "},
	{"mv ", "move /Y "},
	{"ls ", "dir "},
	{"pwd ", "chdir "},
	{"clear ", "cls "},
	{"cat ", "type "},
}

// ToBatch transliterates a POSIX shell script into Windows batch, line by
// line. It covers common constructs only: comments, echo, exit, export,
// unset, variable references and a handful of file commands.
func ToBatch(lines []string) []string {
	out := []string{"@echo off"}
	for _, line := range lines {
		if converted, ok := convertLine(line); ok {
			out = append(out, converted)
		}
	}
	return out
}

func convertLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

	switch {
	case trimmed == "":
		return "", true
	case strings.HasPrefix(trimmed, "#!"):
		return "", false
	case strings.HasPrefix(trimmed, "#"):
		return indent + "@REM " + strings.TrimSpace(strings.TrimPrefix(trimmed, "#")), true
	case trimmed == "set -e" || trimmed == "set -x" || trimmed == "set -eu":
		return "", false
	}

	converted := convertCommand(trimmed)
	converted = convertVariables(converted)
	return indent + converted, true
}

func convertCommand(cmd string) string {
	switch {
	case cmd == "exit":
		return "exit /B"
	case strings.HasPrefix(cmd, "exit "):
		return "exit /B " + strings.TrimSpace(strings.TrimPrefix(cmd, "exit "))
	case strings.HasPrefix(cmd, "export "):
		return "set " + strings.TrimSpace(strings.TrimPrefix(cmd, "export "))
	case strings.HasPrefix(cmd, "unset "):
		return "set " + strings.TrimSpace(strings.TrimPrefix(cmd, "unset ")) + "="
	case cmd == "echo":
		return "echo."
	}

	for _, m := range commandMap {
		if cmd == strings.TrimSpace(m.posix) {
			return strings.TrimSpace(m.batch)
		}
		if strings.HasPrefix(cmd, m.posix) {
			rest := strings.TrimPrefix(cmd, m.posix)
			return m.batch + strings.ReplaceAll(rest, "/", `\`)
		}
	}
	return cmd
}

func convertVariables(s string) string {
	s = bracedVar.ReplaceAllString(s, "%$1%")
	s = positionalVar.ReplaceAllString(s, "%$1")
	return plainVar.ReplaceAllString(s, "%$1%")
}
