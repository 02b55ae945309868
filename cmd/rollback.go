package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [target version]",
	Short: "Revert applied migrations",
	Long: `Revert applied migrations, most recent first. Without arguments only the
last applied version is reverted. With a target, every applied version after
the target is reverted and the target itself stays applied; --all reverts
everything.

Rollbacks are derived from the state each entity had before the reverted
version. Raw statements (exec) cannot be reverted and abort the rollback
before anything runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := targetArg(args)
		if target != "" && rollbackAll(cmd) {
			return fmt.Errorf("--all cannot be combined with a target version")
		}
		reduce, _ := cmd.Flags().GetBool("reduce")
		return runMigrations(cmd, "rollback", target, reduce)
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.Flags().Bool("all", false, "Revert every applied version")
	rollbackCmd.Flags().Bool("reduce", false, "Fold rollback operations on the same entity before executing")
}
