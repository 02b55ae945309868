package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const versionTemplate = `dbshift {{.Version}}

Supported databases:
  • MySQL 5.7, 8.0, 8.4 (including Percona Server and Aurora MySQL)
  • MariaDB 10.x, 11.x
  • PostgreSQL 12 and later
`

// Version is set at build time via ldflags
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print dbshift version and supported databases",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dbshift %s (commit: %s, built: %s)\n\n", Version, CommitSHA, BuildDate)
		fmt.Fprintln(out, "Supported databases:")
		fmt.Fprintln(out, "  • MySQL 5.7, 8.0, 8.4 (including Percona Server and Aurora MySQL)")
		fmt.Fprintln(out, "  • MariaDB 10.x, 11.x")
		fmt.Fprintln(out, "  • PostgreSQL 12 and later")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Column renames without a type need MySQL 8.0 or MariaDB 10.5.2.")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Enable the standard --version flag, matching the `version` subcommand output.
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, CommitSHA, BuildDate)
	rootCmd.SetVersionTemplate(versionTemplate)
}
