package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nethalo/dbshift/internal/database"
)

const createUsersYAML = `description: users table
table:
  name: users
  columns:
    - name: id
      type: integer
      primary: true
    - name: email
      type: string
      null: false
`

const addNicknameYAML = `table:
  name: users
  kind: alter
  columns:
    - name: nickname
      type: string
      length: 64
`

// resetState clears flag values, viper keys and the config file between
// command runs, and points HOME at an empty directory.
func resetState(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	bindFlags()
	cfgFile = ""
	resetFlags(rootCmd)
	openConn = database.Open
	t.Cleanup(func() { openConn = database.Open })
}

func resetFlags(c *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Value.Type() != "stringToString" {
				f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the root command with args and returns what it wrote to
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func userMigrations(t *testing.T) string {
	return writeMigrations(t, map[string]string{
		"001_create_users.yaml": createUsersYAML,
		"002_add_nickname.yaml": addNicknameYAML,
	})
}

// mockConn makes commands connect to a sqlmock database.
func mockConn(t *testing.T, driver string) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	openConn = func(context.Context, database.Config) (*database.Conn, error) {
		return database.NewConn(db, driver), nil
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
	return mock
}

func expectVersionTable(mock sqlmock.Sqlmock, applied ...string) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `dbshift_versions`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"version"})
	for _, v := range applied {
		rows.AddRow(v)
	}
	mock.ExpectQuery("SELECT version FROM `dbshift_versions`").WillReturnRows(rows)
}
