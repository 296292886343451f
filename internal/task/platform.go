package task

import "runtime"

// Platform is an operating system family a task may override fields for.
type Platform string

const (
	Linux   Platform = "linux"
	Windows Platform = "windows"
	Mac     Platform = "mac"
)

// PlatformFor maps a GOOS value to its platform family. Every non-Windows,
// non-Darwin system is treated as Linux.
func PlatformFor(goos string) Platform {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Mac
	default:
		return Linux
	}
}

// CurrentPlatform returns the platform of the running process.
func CurrentPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

// Block returns the override block of t for p, or nil.
func (t *Task) Block(p Platform) *Task {
	switch p {
	case Windows:
		return t.Windows
	case Mac:
		return t.Mac
	default:
		return t.Linux
	}
}

// AliasFor returns the alias target of t on p. A platform alias wins over
// the generic alias.
func (t *Task) AliasFor(p Platform) string {
	var alias string
	switch p {
	case Windows:
		alias = t.WindowsAlias
	case Mac:
		alias = t.MacAlias
	default:
		alias = t.LinuxAlias
	}
	if alias != "" {
		return alias
	}
	return t.Alias
}

// ApplyPlatform overlays the block of t for p onto t.
func ApplyPlatform(t Task, p Platform) Task {
	block := t.Block(p)
	if block == nil {
		return t
	}
	over := *block
	over.Name = t.Name
	return Merge(t, over)
}
