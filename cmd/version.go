package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of logscan.",
	Long: `Display the release version, commit, build time and Go runtime. With
--deps the modules compiled into the binary are listed too.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("logscan CLI\n")
		cmd.Printf("  Version: %s\n", version)
		cmd.Printf("  Commit:  %s\n", commit)
		cmd.Printf("  Built:   %s\n", date)
		cmd.Printf("  Runtime: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

		if deps, _ := cmd.Flags().GetBool("deps"); !deps {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		cmd.Printf("  Modules:\n")
		for _, m := range info.Deps {
			cmd.Printf("    %s %s\n", m.Path, m.Version)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("deps", false, "List the modules compiled into the binary")
}
