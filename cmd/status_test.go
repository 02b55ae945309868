package cmd

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatusCmd(t *testing.T) {
	resetState(t)
	dir := userMigrations(t)
	mock := mockConn(t, "mysql")

	expectVersionTable(mock, "001_create_users", "000_legacy")
	mock.ExpectClose()

	out, err := run(t, "status", "-m", dir, "-f", "plain")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{
		"applied  001_create_users  users table",
		"pending  002_add_nickname  table users (alter)",
		"applied  000_legacy  (no migration file)",
		"Applied:       2/3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConnectCmd(t *testing.T) {
	resetState(t)
	mock := mockConn(t, "mysql")

	mock.ExpectQuery(`SELECT VERSION\(\), COALESCE\(DATABASE\(\), ''\), @@global.read_only`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "database", "read_only"}).AddRow("8.0.35-27-log", "app", 0))
	mock.ExpectClose()

	out, err := run(t, "connect", "-H", "db.internal", "-P", "3307", "-f", "plain")
	if err != nil {
		t.Fatalf("connect error = %v", err)
	}
	for _, want := range []string{
		"Connected to:  db.internal:3307",
		"Version:       8.0.35 (mysql)",
		"Database:      app",
		"Read only:     false",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConnectCmd_DefaultPortPerDriver(t *testing.T) {
	resetState(t)
	mock := mockConn(t, "postgres")

	mock.ExpectQuery(`SELECT version\(\), current_database\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "database", "read_only"}).
			AddRow("PostgreSQL 16.2 on x86_64-pc-linux-gnu", "app", "on"))
	mock.ExpectClose()

	out, err := run(t, "connect", "--driver", "postgres", "-f", "plain")
	if err != nil {
		t.Fatalf("connect error = %v", err)
	}
	for _, want := range []string{"Connected to:  127.0.0.1:5432", "16.2.0 (postgres)", "Read only:     true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConnectCmd_UnsupportedDriver(t *testing.T) {
	resetState(t)

	_, err := run(t, "connect", "--driver", "oracle")
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("connect error = %v, want unsupported driver", err)
	}
}
