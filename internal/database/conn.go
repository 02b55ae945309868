package database

import (
	"context"
	"database/sql"
	"fmt"

	// registers the "pgx" database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Conn is a single-session connection used to run migrations.
type Conn struct {
	db     *sql.DB
	driver string
}

// Open connects using cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if driver == MySQL && cfg.TLSMode == "custom" {
		if cfg.TLSCA == "" {
			return nil, fmt.Errorf("--tls-ca is required when --tls=custom")
		}
		if err := registerCustomTLS(cfg.TLSCA); err != nil {
			return nil, fmt.Errorf("TLS setup failed: %w", err)
		}
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	sqlDriver := "mysql"
	if driver == Postgres {
		sqlDriver = "pgx"
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	// Statements of one run must share a session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return NewConn(db, driver), nil
}

// NewConn wraps an open *sql.DB.
func NewConn(db *sql.DB, driver string) *Conn {
	return &Conn{db: db, driver: driver}
}

// DriverName returns "mysql" or "postgres".
func (c *Conn) DriverName() string { return c.driver }

// DB returns the underlying pool.
func (c *Conn) DB() *sql.DB { return c.db }

// Execute runs sql and returns the number of affected rows, or 0 when the
// driver cannot report it.
func (c *Conn) Execute(ctx context.Context, sql string) (int64, error) {
	res, err := c.db.ExecContext(ctx, sql)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Close closes the pool.
func (c *Conn) Close() error { return c.db.Close() }
