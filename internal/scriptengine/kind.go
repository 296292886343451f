// Package scriptengine runs task scripts through one of several engines.
package scriptengine

import "strings"

// Kind identifies a script engine.
type Kind string

const (
	// KindOS runs the script with the platform shell: sh, or cmd on Windows.
	KindOS Kind = "os"
	// KindShell runs POSIX shell scripts, translated to batch on Windows.
	KindShell Kind = "shell"
	// KindFlowscript runs the portable in-process script language.
	KindFlowscript Kind = "flowscript"
	// KindGo compiles the script as a Go program and runs the binary.
	KindGo Kind = "go"
	// KindLua runs the script in an embedded Lua interpreter.
	KindLua Kind = "lua"
	// KindGeneric runs the script file with a declared runner.
	KindGeneric Kind = "generic"
	// KindShebang runs the script with the interpreter of its first line.
	KindShebang Kind = "shebang"
)

var internalRunners = map[string]Kind{
	"@shell":      KindShell,
	"@flowscript": KindFlowscript,
	"@go":         KindGo,
	"@lua":        KindLua,
}

// Detect selects the engine for a script. A declared runner decides first:
// internal runners map to their engine and any other runner is generic.
// Without a runner, a shebang line decides, else the OS shell is used.
func Detect(runner string, lines []string) Kind {
	if runner != "" {
		if kind, ok := internalRunners[runner]; ok {
			return kind
		}
		return KindGeneric
	}

	if sb, ok := ParseShebang(lines); ok {
		if kind, ok := internalRunners[sb.Runner]; ok {
			return kind
		}
		return KindShebang
	}
	return KindOS
}

// Shebang is a parsed "#!runner args" first line.
type Shebang struct {
	Runner string
	Args   []string
}

// ParseShebang extracts the interpreter from the first line of lines.
func ParseShebang(lines []string) (Shebang, bool) {
	if len(lines) == 0 {
		return Shebang{}, false
	}
	first := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(first, "#!") {
		return Shebang{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(first, "#!"))
	if len(fields) == 0 {
		return Shebang{}, false
	}
	return Shebang{Runner: fields[0], Args: fields[1:]}, true
}

// StripShebang drops a leading shebang line.
func StripShebang(lines []string) []string {
	if _, ok := ParseShebang(lines); ok {
		return lines[1:]
	}
	return lines
}
