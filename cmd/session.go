package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nethalo/dbshift/internal/database"
	"github.com/nethalo/dbshift/internal/history"
	"github.com/nethalo/dbshift/internal/logging"
	"github.com/nethalo/dbshift/internal/migration"
	"github.com/nethalo/dbshift/internal/output"
)

// openConn is replaced in tests.
var openConn = database.Open

// errRunFailed is returned after a failed run was reported, so the process
// exits non-zero without repeating the report.
var errRunFailed = errors.New("run failed")

func connectionConfig() (database.Config, error) {
	driver, err := database.NormalizeDriver(viper.GetString("driver"))
	if err != nil {
		return database.Config{}, err
	}
	cfg := database.Config{
		Driver:   driver,
		Host:     viper.GetString("host"),
		Port:     viper.GetInt("port"),
		User:     viper.GetString("user"),
		Password: viper.GetString("password"),
		Database: viper.GetString("database"),
		Socket:   viper.GetString("socket"),
		SSLMode:  viper.GetString("sslmode"),
		TLSMode:  viper.GetString("tls"),
		TLSCA:    viper.GetString("tls-ca"),
	}

	if cfg.Host == "" && cfg.Socket == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.User == "" {
		cfg.User = "dbshift"
	}

	// -p without a value asks for the password.
	if f := rootCmd.PersistentFlags().Lookup("password"); f != nil && f.Changed && cfg.Password == "" {
		cfg.Password = database.PromptPassword()
	}
	return cfg, nil
}

func connectionInfo(cfg database.Config) output.Connection {
	return output.Connection{Host: cfg.Host, Port: cfg.ResolvedPort(), Socket: cfg.Socket}
}

func newLogger(w io.Writer) *slog.Logger {
	level := viper.GetString("log-level")
	if viper.GetBool("verbose") {
		level = "debug"
	}
	return logging.New(w, level, viper.GetString("format"))
}

func newRenderer(cmd *cobra.Command) output.Renderer {
	return output.NewRenderer(viper.GetString("format"), cmd.OutOrStdout())
}

// templateParams merges params from the config file with --param flags.
func templateParams() map[string]any {
	params := make(map[string]any)
	for k, v := range viper.GetStringMap("params") {
		params[k] = v
	}
	if flagParams, err := rootCmd.PersistentFlags().GetStringToString("param"); err == nil {
		for k, v := range flagParams {
			params[k] = v
		}
	}
	return params
}

func loadMigrations() (*history.History, []*migration.Definition, error) {
	dir := viper.GetString("migrations")
	h, defs, err := migration.Load(dir, templateParams())
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations from %s: %w", dir, err)
	}
	return h, defs, nil
}

// session is an open connection with its version store.
type session struct {
	cfg   database.Config
	conn  *database.Conn
	store *database.VersionStore
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := connectionConfig()
	if err != nil {
		return nil, err
	}
	conn, err := openConn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	store := database.NewVersionStore(conn, viper.GetString("version-table"))
	if err := store.EnsureTable(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return &session{cfg: cfg, conn: conn, store: store}, nil
}

func (s *session) Close() error { return s.conn.Close() }

// previousVersion returns the version registered right before v, or "" when
// v is the first one.
func previousVersion(h *history.History, v string) string {
	prev := ""
	for _, cur := range h.Versions() {
		if cur == v {
			return prev
		}
		prev = cur
	}
	return prev
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
