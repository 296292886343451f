package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/makeflow/internal/ux"
	"github.com/felixgeelhaar/makeflow/internal/version"
)

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: runVersion,
	}
	versionCmd.Flags().Bool("detailed", false, "show detailed version information")
	return versionCmd
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.GetInfo()
	format, _ := cmd.Flags().GetString("output-format")
	detailed, _ := cmd.Flags().GetBool("detailed")

	if format != "" && format != "text" {
		f, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		return f.Format(info)
	}

	if detailed {
		fmt.Fprintln(cmd.OutOrStdout(), info.String())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "makeflow %s\n", info.Short())
	return nil
}
