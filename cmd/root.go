package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var envKeyReplacer = strings.NewReplacer("-", "_", ".", "_")

// envVar returns the environment variable overriding key.
func envVar(key string) string {
	return "DBSHIFT_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

var rootCmd = &cobra.Command{
	Use:   "dbshift",
	Short: "Versioned schema migrations for MySQL and PostgreSQL",
	Long: `dbshift applies versioned schema changes described in YAML files.

Each file changes one table, view, function or procedure, or runs a raw
statement. dbshift folds the changes an entity went through into the net
operation, derives rollbacks from the state before each version, and renders
them as MySQL or PostgreSQL statements.

Statements run one at a time; a run stops at the first failure and reports
what was applied.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is called by main.main(). It adds all child commands to the root
// command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// A failed run has already been reported.
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// flagKeys maps persistent flags to the config file keys that provide
// their defaults.
var flagKeys = map[string]string{
	"driver":        "connections.default.driver",
	"host":          "connections.default.host",
	"port":          "connections.default.port",
	"user":          "connections.default.user",
	"password":      "connections.default.password",
	"database":      "connections.default.database",
	"socket":        "connections.default.socket",
	"sslmode":       "connections.default.sslmode",
	"tls":           "connections.default.tls",
	"tls-ca":        "connections.default.tls_ca",
	"migrations":    "defaults.migrations",
	"format":        "defaults.format",
	"version-table": "defaults.version_table",
	"log-level":     "defaults.log_level",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbshift/config.yaml)")
	flags.String("driver", "mysql", "Database driver: mysql, postgres")
	flags.StringP("host", "H", "", "Database host")
	flags.IntP("port", "P", 0, "Database port (default 3306 for mysql, 5432 for postgres)")
	flags.StringP("user", "u", "", "Database user")
	flags.StringP("password", "p", "", "Database password (will prompt if flag present without value)")
	flags.Lookup("password").NoOptDefVal = "" // Allow -p without value to trigger prompt
	flags.StringP("database", "d", "", "Target database")
	flags.StringP("socket", "S", "", "Unix socket path")
	flags.String("sslmode", "", "PostgreSQL sslmode (disable, require, verify-ca, verify-full)")
	flags.String("tls", "", "MySQL TLS mode: disabled, preferred, required, skip-verify, custom")
	flags.String("tls-ca", "", "CA certificate for --tls=custom")
	flags.StringP("migrations", "m", "migrations", "Directory holding migration files")
	flags.StringToString("param", nil, "Template parameter as key=value (repeatable, overrides params in the config file)")
	flags.String("version-table", "", "Table applied versions are recorded in (default dbshift_versions)")
	flags.StringP("format", "f", "text", "Output format: text, plain, json, markdown")
	flags.BoolP("verbose", "v", false, "Log every statement (same as --log-level debug)")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")

	bindFlags()
}

// bindFlags binds the persistent flags to viper keys of the same name.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	for name := range flagKeys {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".dbshift"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DBSHIFT")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	// The config file is optional.
	if err := viper.ReadInConfig(); err != nil {
		return
	}

	// Flags and environment variables win over the nested config keys.
	for name, key := range flagKeys {
		if f := rootCmd.PersistentFlags().Lookup(name); f != nil && f.Changed {
			continue
		}
		if _, ok := os.LookupEnv(envVar(name)); ok {
			continue
		}
		if viper.IsSet(key) {
			viper.Set(name, viper.Get(key))
		}
	}
}
