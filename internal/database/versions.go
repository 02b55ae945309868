package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultVersionTable is the table applied versions are kept in.
const DefaultVersionTable = "dbshift_versions"

// VersionStore records which migration versions are applied.
type VersionStore struct {
	conn  *Conn
	table string
}

// NewVersionStore returns a store over table, or DefaultVersionTable when
// table is empty.
func NewVersionStore(conn *Conn, table string) *VersionStore {
	if table == "" {
		table = DefaultVersionTable
	}
	return &VersionStore{conn: conn, table: table}
}

func (s *VersionStore) quotedTable() string {
	if s.conn.driver == Postgres {
		return `"` + strings.ReplaceAll(s.table, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(s.table, "`", "``") + "`"
}

func (s *VersionStore) placeholder(n int) string {
	if s.conn.driver == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureTable creates the version table when missing.
func (s *VersionStore) EnsureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version VARCHAR(255) NOT NULL PRIMARY KEY, applied_at TIMESTAMP NOT NULL)",
		s.quotedTable())
	if _, err := s.conn.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating version table: %w", err)
	}
	return nil
}

// Applied returns the applied versions.
func (s *VersionStore) Applied(ctx context.Context) ([]string, error) {
	rows, err := s.conn.db.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s ORDER BY applied_at, version", s.quotedTable()))
	if err != nil {
		return nil, fmt.Errorf("reading applied versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Record marks version as applied.
func (s *VersionStore) Record(ctx context.Context, version string) error {
	stmt := fmt.Sprintf("INSERT INTO %s (version, applied_at) VALUES (%s, %s)",
		s.quotedTable(), s.placeholder(1), s.placeholder(2))
	if _, err := s.conn.db.ExecContext(ctx, stmt, version, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording version %s: %w", version, err)
	}
	return nil
}

// Remove marks version as no longer applied.
func (s *VersionStore) Remove(ctx context.Context, version string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE version = %s", s.quotedTable(), s.placeholder(1))
	if _, err := s.conn.db.ExecContext(ctx, stmt, version); err != nil {
		return fmt.Errorf("removing version %s: %w", version, err)
	}
	return nil
}
