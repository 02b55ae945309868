// Package database opens MySQL and PostgreSQL connections and keeps the
// table of applied migration versions.
package database

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

const customTLSName = "dbshift-custom"

var ErrUnsupportedDriver = errors.New("unsupported driver")

// Config holds connection parameters for either driver.
type Config struct {
	Driver   string // "mysql" or "postgres"
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Socket   string // unix socket path (MySQL) or socket directory (PostgreSQL)
	SSLMode  string // PostgreSQL sslmode
	TLSMode  string // MySQL: "", "disabled", "preferred", "required", "skip-verify", "custom"
	TLSCA    string // CA certificate path for TLSMode "custom" or PostgreSQL sslrootcert
}

// NormalizeDriver maps driver aliases to MySQL or Postgres.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, name)
}

// ResolvedPort returns Port, or the driver's default port when unset.
func (c Config) ResolvedPort() int {
	return c.port()
}

func (c Config) port() int {
	if c.Port != 0 {
		return c.Port
	}
	if d, _ := NormalizeDriver(c.Driver); d == Postgres {
		return 5432
	}
	return 3306
}

// DSN renders the data source name for the configured driver.
func (c Config) DSN() (string, error) {
	driver, err := NormalizeDriver(c.Driver)
	if err != nil {
		return "", err
	}
	if driver == Postgres {
		return c.postgresDSN()
	}
	return c.mysqlDSN()
}

func (c Config) mysqlDSN() (string, error) {
	mc := mysqldriver.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.DBName = c.Database
	if c.Socket != "" {
		mc.Net = "unix"
		mc.Addr = c.Socket
	} else {
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.port()))
	}
	mc.ParseTime = true
	mc.InterpolateParams = true
	// Routines and reduced plans arrive as several statements in one call.
	mc.MultiStatements = true

	switch c.TLSMode {
	case "", "disabled":
	case "preferred":
		mc.TLSConfig = "preferred"
	case "required":
		mc.TLSConfig = "true"
	case "skip-verify":
		mc.TLSConfig = "skip-verify"
	case "custom":
		mc.TLSConfig = customTLSName
	default:
		return "", fmt.Errorf("invalid TLS mode %q: valid values are disabled, preferred, required, skip-verify, custom", c.TLSMode)
	}
	return mc.FormatDSN(), nil
}

func (c Config) postgresDSN() (string, error) {
	q := url.Values{}
	switch c.SSLMode {
	case "":
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		q.Set("sslmode", c.SSLMode)
	default:
		return "", fmt.Errorf("invalid sslmode %q: valid values are disable, allow, prefer, require, verify-ca, verify-full", c.SSLMode)
	}
	if c.TLSCA != "" {
		q.Set("sslrootcert", c.TLSCA)
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Path:   "/" + c.Database,
	}
	if c.Socket != "" {
		q.Set("host", c.Socket)
	} else {
		u.Host = net.JoinHostPort(c.Host, strconv.Itoa(c.port()))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// registerCustomTLS reads a CA certificate PEM file and registers it with
// the MySQL driver.
func registerCustomTLS(caPath string) error {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return fmt.Errorf("reading CA certificate %q: %w", caPath, err)
	}

	rootCAs := x509.NewCertPool()
	if !rootCAs.AppendCertsFromPEM(pem) {
		return fmt.Errorf("no valid certificates found in %q", caPath)
	}

	return mysqldriver.RegisterTLSConfig(customTLSName, &tls.Config{
		RootCAs: rootCAs,
	})
}
