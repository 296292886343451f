// Package cmd implements the makeflow command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/makeflow/internal/runner"
	"github.com/felixgeelhaar/makeflow/internal/ux"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "makeflow [flags] [task] [task-args...]",
		Short: "Declarative task runner and build flow orchestrator",
		Long: `makeflow runs the tasks declared in a Makefile.toml descriptor.

It expands the requested task and its dependencies into an ordered flow,
installs missing tools the tasks declare, and runs every task through a
command, a script engine or a nested flow.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("makefile", "", "descriptor file (default Makefile.toml)")
	pf.StringP("profile", "p", "", "profile to run with (default development)")
	pf.String("cwd", "", "directory to run in")
	pf.StringArrayP("env", "e", nil, "set an environment variable, KEY=VALUE (repeatable)")
	pf.StringP("loglevel", "l", "", "log level: verbose, info, error, off")
	pf.BoolP("verbose", "v", false, "shorthand for --loglevel verbose")
	pf.Bool("quiet", false, "shorthand for --loglevel error")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("output-format", "text", "output format for printed plans and lists: text, json, yaml")

	f := rootCmd.Flags()
	f.Bool("allow-private", false, "allow running private tasks directly")
	f.Bool("skip-init-end-tasks", false, "do not run the init and end tasks")
	f.String("skip-tasks", "", "skip tasks whose name matches the regular expression")
	f.Bool("no-on-error", false, "do not run the on error task when the flow fails")
	f.Bool("disable-check-for-updates", false, "do not check for newer releases")
	f.Bool("no-workspace", false, "run the task in the current directory instead of the workspace members")
	f.Bool("time-summary", false, "print how long every task took")
	f.Bool("watch", false, "run the flow again whenever files change")
	f.Bool("print-steps", false, "print the planned steps without running them")
	f.Bool("list-all-steps", false, "list all public tasks")
	// everything after the task name belongs to the task
	f.SetInterspersed(false)

	rootCmd.AddCommand(newListCmd(), newPlanCmd(), newVersionCmd())
	return rootCmd
}

// ExecuteContext runs the command line with ctx.
func ExecuteContext(ctx context.Context) error {
	return ux.EnhanceError(newRootCmd().ExecuteContext(ctx))
}

func runRoot(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	opts := cc.RunOptions()
	if len(args) > 0 {
		opts.Task = args[0]
		opts.TaskArgs = args[1:]
	}
	return cc.Runner(cmd).Run(cmd.Context(), opts)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all public tasks grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			opts := cc.RunOptions()
			opts.ListAllSteps = true
			return cc.Runner(cmd).Run(cmd.Context(), opts)
		},
	}
}

func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan [task]",
		Short: "Print the steps a task would run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			opts := cc.RunOptions()
			opts.PrintSteps = true
			if len(args) == 1 {
				opts.Task = args[0]
			}
			return cc.Runner(cmd).Run(cmd.Context(), opts)
		},
	}
	planCmd.Flags().Bool("allow-private", false, "allow planning private tasks")
	planCmd.Flags().Bool("skip-init-end-tasks", false, "leave out the init and end tasks")
	return planCmd
}

// Runner creates the runner for the invocation, writing to the outputs of cmd.
func (cc *CommandContext) Runner(cmd *cobra.Command) *runner.Runner {
	r := runner.New(cc.Store)
	r.Logger = cc.Logger
	r.Stdout = cmd.OutOrStdout()
	r.Stderr = cmd.ErrOrStderr()
	return r
}
