package task

// Merge overlays over onto base and returns the result.
//
// Set fields of over win. The directive (command, args, script, run_task)
// is taken as a whole from whichever side declares one, with over first.
// Env sections merge key by key and platform blocks merge recursively.
// When over sets clear, base is dropped entirely.
func Merge(base, over Task) Task {
	if isSet(over.Clear) {
		out := over
		out.Clear = nil
		if out.Name == "" {
			out.Name = base.Name
		}
		return out
	}

	out := base
	out.Clear = nil
	out.Name = pickString(base.Name, over.Name)

	out.Description = pickString(base.Description, over.Description)
	out.Category = pickString(base.Category, over.Category)
	out.Disabled = pickBool(base.Disabled, over.Disabled)
	out.Private = pickBool(base.Private, over.Private)
	if over.Deprecated != nil {
		out.Deprecated = over.Deprecated
	}

	out.Extend = pickString(base.Extend, over.Extend)
	out.Alias = pickString(base.Alias, over.Alias)
	out.LinuxAlias = pickString(base.LinuxAlias, over.LinuxAlias)
	out.WindowsAlias = pickString(base.WindowsAlias, over.WindowsAlias)
	out.MacAlias = pickString(base.MacAlias, over.MacAlias)

	out.Workspace = pickBool(base.Workspace, over.Workspace)

	if over.directives() > 0 {
		out.Command = over.Command
		out.Args = over.Args
		out.Script = over.Script
		out.RunTask = over.RunTask
	} else if over.Args != nil {
		out.Args = over.Args
	}
	out.ScriptRunner = pickString(base.ScriptRunner, over.ScriptRunner)
	out.ScriptRunnerArgs = pickStrings(base.ScriptRunnerArgs, over.ScriptRunnerArgs)
	out.ScriptExtension = pickString(base.ScriptExtension, over.ScriptExtension)

	if over.InstallPackage != nil {
		out.InstallPackage = over.InstallPackage
	}
	out.InstallPackageArgs = pickStrings(base.InstallPackageArgs, over.InstallPackageArgs)
	if over.InstallScript != nil {
		out.InstallScript = over.InstallScript
	}
	out.Toolchain = pickString(base.Toolchain, over.Toolchain)

	out.Dependencies = pickStrings(base.Dependencies, over.Dependencies)
	if over.Condition != nil {
		out.Condition = over.Condition
	}
	if over.ConditionScript != nil {
		out.ConditionScript = over.ConditionScript
	}
	out.IgnoreErrors = pickBool(base.IgnoreErrors, over.IgnoreErrors)
	out.Force = pickBool(base.Force, over.Force)
	out.Env = base.Env.Merge(over.Env)
	out.Cwd = pickString(base.Cwd, over.Cwd)
	out.Watch = pickBool(base.Watch, over.Watch)

	out.Linux = mergeBlock(base.Linux, over.Linux)
	out.Windows = mergeBlock(base.Windows, over.Windows)
	out.Mac = mergeBlock(base.Mac, over.Mac)

	return out
}

func mergeBlock(base, over *Task) *Task {
	switch {
	case over == nil:
		return base
	case base == nil:
		return over
	}
	merged := Merge(*base, *over)
	return &merged
}

func pickString(base, over string) string {
	if over != "" {
		return over
	}
	return base
}

func pickBool(base, over *bool) *bool {
	if over != nil {
		return over
	}
	return base
}

func pickStrings(base, over []string) []string {
	if over != nil {
		return over
	}
	return base
}
