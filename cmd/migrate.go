package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nethalo/dbshift/internal/handler"
	"github.com/nethalo/dbshift/internal/history"
	"github.com/nethalo/dbshift/internal/output"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [target version]",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration up to and including the target version, or
all of them when no target is given. Statements run one at a time and the
run stops at the first failure; versions that completed are recorded.

With --reduce the changes of all pending versions are folded per entity
first, so a table created and altered in the same run is created once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reduce, _ := cmd.Flags().GetBool("reduce")
		return runMigrations(cmd, "migrate", targetArg(args), reduce)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("reduce", false, "Fold operations on the same entity before executing")
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// runMigrations executes a migrate or rollback run, records the completed
// versions and renders the report.
func runMigrations(cmd *cobra.Command, direction, target string, reduce bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	h, _, err := loadMigrations()
	if err != nil {
		return err
	}
	if err := checkTarget(h, target); err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	applied, err := sess.store.Applied(ctx)
	if err != nil {
		return err
	}

	hd, err := handler.New(h, sess.conn, handler.WithLogger(newLogger(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	var (
		window  []string
		results []handler.Result
		runErr  error
		record  func(context.Context, string) error
	)
	if direction == "rollback" {
		if target == "" && !rollbackAll(cmd) {
			if last := hd.RewindVersions(applied, ""); len(last) > 0 {
				target = previousVersion(h, last[0])
			}
		}
		window = hd.RewindVersions(applied, target)
		results, runErr = hd.Rollback(ctx, applied, target, reduce)
		record = sess.store.Remove
	} else {
		window = hd.PendingVersions(applied, target)
		results, runErr = hd.Migrate(ctx, applied, target, reduce)
		record = sess.store.Record
	}
	if runErr != nil && !isInterrupted(runErr) {
		return runErr
	}

	report := &output.Report{
		Direction: direction,
		Dialect:   hd.Builder().Dialect(),
		Results:   results,
		Err:       runErr,
	}
	// Version bookkeeping must survive an interrupted run.
	for _, v := range handler.Completed(window, results, runErr, reduce) {
		if err := record(context.WithoutCancel(ctx), v); err != nil {
			report.Err = err
			break
		}
		report.Recorded = append(report.Recorded, v)
	}

	newRenderer(cmd).RenderReport(report)
	if report.Failed() {
		return errRunFailed
	}
	return nil
}

func checkTarget(h *history.History, target string) error {
	if target != "" && !h.Has(target) {
		return fmt.Errorf("unknown target version %q", target)
	}
	return nil
}

func rollbackAll(cmd *cobra.Command) bool {
	all, _ := cmd.Flags().GetBool("all")
	return all
}
