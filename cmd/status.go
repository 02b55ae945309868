package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nethalo/dbshift/internal/migration"
	"github.com/nethalo/dbshift/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migration versions and whether they are applied",
	Long: `List every migration file in the migrations directory with its applied
state. Versions recorded in the database without a matching file are listed
last.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		_, defs, err := loadMigrations()
		if err != nil {
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

		newRenderer(cmd).RenderStatus(statusRows(defs, applied))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRows(defs []*migration.Definition, applied []string) []output.StatusRow {
	isApplied := make(map[string]bool, len(applied))
	for _, v := range applied {
		isApplied[v] = true
	}

	rows := make([]output.StatusRow, 0, len(defs))
	known := make(map[string]bool, len(defs))
	for _, d := range defs {
		known[d.Version] = true
		desc := d.Description
		if desc == "" {
			desc = d.Summary()
		}
		rows = append(rows, output.StatusRow{Version: d.Version, Description: desc, Applied: isApplied[d.Version]})
	}
	for _, v := range applied {
		if !known[v] {
			rows = append(rows, output.StatusRow{Version: v, Description: "(no migration file)", Applied: true})
		}
	}
	return rows
}
