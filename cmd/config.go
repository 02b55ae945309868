package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nethalo/dbshift/internal/database"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dbshift configuration",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create config file interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		configDir := filepath.Join(home, ".dbshift")
		configPath := filepath.Join(configDir, "config.yaml")

		out := cmd.OutOrStdout()
		reader := bufio.NewReader(cmd.InOrStdin())
		ask := func(prompt, def string) string {
			if def != "" {
				fmt.Fprintf(out, "%s [%s]: ", prompt, def)
			} else {
				fmt.Fprintf(out, "%s: ", prompt)
			}
			answer, _ := reader.ReadString('\n')
			answer = strings.TrimSpace(answer)
			if answer == "" {
				return def
			}
			return answer
		}

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Config file already exists at %s\n", configPath)
			if strings.ToLower(ask("Overwrite? [y/N]", "")) != "y" {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		// Create config directory
		if err := os.MkdirAll(configDir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		fmt.Fprintln(out, "dbshift configuration setup")
		fmt.Fprintln(out, "───────────────────────────")
		fmt.Fprintln(out)

		driver, err := database.NormalizeDriver(ask("Driver (mysql, postgres)", "mysql"))
		if err != nil {
			return err
		}
		defaultPort := "3306"
		if driver == database.Postgres {
			defaultPort = "5432"
		}
		host := ask("Host", "127.0.0.1")
		port := ask("Port", defaultPort)
		user := ask("User", "dbshift")
		dbName := ask("Database (optional)", "")
		migrations := ask("Migrations directory", "migrations")
		format := ask("Default output format", "text")

		// Build config
		var config strings.Builder
		config.WriteString("# dbshift configuration\n")
		config.WriteString("# https://github.com/nethalo/dbshift\n\n")

		config.WriteString("connections:\n")
		config.WriteString("  default:\n")
		config.WriteString(fmt.Sprintf("    driver: %s\n", driver))
		config.WriteString(fmt.Sprintf("    host: %s\n", host))
		config.WriteString(fmt.Sprintf("    port: %s\n", port))
		config.WriteString(fmt.Sprintf("    user: %s\n", user))
		config.WriteString("    # password: omitted for security, use -p or DBSHIFT_PASSWORD\n")
		if dbName != "" {
			config.WriteString(fmt.Sprintf("    database: %s\n", dbName))
		}

		config.WriteString("\ndefaults:\n")
		config.WriteString(fmt.Sprintf("  migrations: %s\n", migrations))
		config.WriteString(fmt.Sprintf("  format: %s\n", format))
		config.WriteString(fmt.Sprintf("  version_table: %s\n", database.DefaultVersionTable))

		config.WriteString("\n# Template parameters available to migration bodies as {{ .name }}.\n")
		config.WriteString("params: {}\n")

		if err := os.WriteFile(configPath, []byte(config.String()), 0600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(out, "\n✅ Config written to %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			fmt.Fprintln(out, "No config file found.")
			fmt.Fprintln(out, "Run 'dbshift config init' to create one.")
			return nil
		}

		fmt.Fprintf(out, "Config file: %s\n\n", configFile)

		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Fprintln(out, string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
