package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nethalo/dbshift/internal/analyzer"
	"github.com/nethalo/dbshift/internal/builder"
	"github.com/nethalo/dbshift/internal/database"
	"github.com/nethalo/dbshift/internal/handler"
	"github.com/nethalo/dbshift/internal/history"
	"github.com/nethalo/dbshift/internal/operation"
	"github.com/nethalo/dbshift/internal/output"
	"github.com/nethalo/dbshift/internal/parser"
)

var planCmd = &cobra.Command{
	Use:   "plan [target version]",
	Short: "Show the statements a migrate or rollback would run",
	Long: `Render the statements of a migrate (default) or rollback run without
executing them. The applied versions are read from the database unless
--offline is given, in which case nothing is considered applied for a
migrate plan and everything is considered applied for a rollback plan.

MySQL statements are checked with the Vitess SQL parser and annotated with
what it recognized. ALTER TABLE statements also carry the algorithm and lock
InnoDB is expected to use on the connected server version, or on the latest
8.0 release when planning offline.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := targetArg(args)
		rollback, _ := cmd.Flags().GetBool("rollback")
		reduce, _ := cmd.Flags().GetBool("reduce")
		offline, _ := cmd.Flags().GetBool("offline")
		if target != "" && rollbackAll(cmd) {
			return fmt.Errorf("--all cannot be combined with a target version")
		}

		h, _, err := loadMigrations()
		if err != nil {
			return err
		}
		if err := checkTarget(h, target); err != nil {
			return err
		}

		planner, applied, server, err := plannerFor(cmd, h, offline, rollback)
		if err != nil {
			return err
		}

		plan := &output.Plan{
			Direction: "migrate",
			Dialect:   planner.Builder().Dialect(),
			Target:    target,
			Reduced:   reduce,
		}
		var stmts []handler.Statement
		if rollback {
			plan.Direction = "rollback"
			if target == "" && !rollbackAll(cmd) {
				if last := planner.RewindVersions(applied, ""); len(last) > 0 {
					target = previousVersion(h, last[0])
					plan.Target = target
				}
			}
			stmts, err = planner.PlanRollback(applied, target, reduce)
		} else {
			stmts, err = planner.PlanMigrate(applied, target, reduce)
		}
		if err != nil {
			return err
		}

		for _, st := range stmts {
			plan.Steps = append(plan.Steps, output.PlanStep{
				Version: st.Version,
				Summary: describe(st.Operation),
				SQL:     st.SQL,
				Note:    annotate(plan.Dialect, server, st),
			})
		}
		newRenderer(cmd).RenderPlan(plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().Bool("rollback", false, "Plan a rollback instead of a migrate")
	planCmd.Flags().Bool("all", false, "With --rollback, plan reverting every applied version")
	planCmd.Flags().Bool("reduce", false, "Fold operations on the same entity")
	planCmd.Flags().Bool("offline", false, "Do not connect; render for --driver")
}

// plannerFor returns a planner, the applied versions it plans against and
// the server version. Offline plans report a zero version.
func plannerFor(cmd *cobra.Command, h *history.History, offline, rollback bool) (*handler.Planner, []string, database.ServerVersion, error) {
	var server database.ServerVersion
	if offline {
		driver, err := database.NormalizeDriver(viper.GetString("driver"))
		if err != nil {
			return nil, nil, server, err
		}
		b, err := builder.ForDriver(driver)
		if err != nil {
			return nil, nil, server, err
		}
		var applied []string
		if rollback {
			applied = h.Versions()
		}
		return handler.NewPlanner(h, b), applied, server, nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := openSession(ctx)
	if err != nil {
		return nil, nil, server, err
	}
	defer sess.Close()

	applied, err := sess.store.Applied(ctx)
	if err != nil {
		return nil, nil, server, err
	}
	b, err := builder.ForDriver(sess.conn.DriverName())
	if err != nil {
		return nil, nil, server, err
	}
	if sess.conn.DriverName() == database.MySQL {
		info, err := sess.conn.ServerInfo(ctx)
		if err != nil {
			return nil, nil, server, err
		}
		server = info.Version
	}
	return handler.NewPlanner(h, b), applied, server, nil
}

func describe(op operation.Operation) string {
	return fmt.Sprintf("%s %s (%s)", op.Type(), op.Entity(), op.Action())
}

// annotate classifies rendered MySQL statements. Routines and raw statements
// may use syntax the parser does not cover, so only table and view
// statements report parse failures.
func annotate(dialect string, server database.ServerVersion, st handler.Statement) string {
	if dialect != "mysql" || st.SQL == "" {
		return ""
	}
	parsed, err := parser.Classify(st.SQL)
	if err != nil {
		switch st.Operation.Type() {
		case "table", "view":
			return "parser: " + err.Error()
		}
		return ""
	}
	note := "parsed as " + parsed.Summary()
	if c := analyzer.Classify(parsed, server); c != nil {
		note += "; " + c.String()
	}
	return note
}
