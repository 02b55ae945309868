package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Test connection and show server info",
	Long:  `Connect to a MySQL or PostgreSQL server and display its version, current database and whether the session is read-only.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := connectionConfig()
		if err != nil {
			return err
		}

		conn, err := openConn(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		defer conn.Close()

		info, err := conn.ServerInfo(ctx)
		if err != nil {
			return fmt.Errorf("server info: %w", err)
		}

		newRenderer(cmd).RenderServerInfo(connectionInfo(cfg), info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
