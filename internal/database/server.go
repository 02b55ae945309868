package database

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	auroraVersionRe   = regexp.MustCompile(`^(\d+)\.(\d+)\.mysql_aurora\.(\d+\.\d+\.\d+)`)
	mysqlVersionRe    = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)
	postgresVersionRe = regexp.MustCompile(`^PostgreSQL (\d+)(?:\.(\d+))?(?:\.(\d+))?`)
)

// ServerVersion is a parsed server version.
type ServerVersion struct {
	Raw    string
	Major  int
	Minor  int
	Patch  int
	Flavor string // "mysql", "percona", "mariadb", "aurora-mysql", "postgres"
}

// String returns a human-readable version string.
func (v ServerVersion) String() string {
	return fmt.Sprintf("%d.%d.%d (%s)", v.Major, v.Minor, v.Patch, v.Flavor)
}

// AtLeast reports whether the version is >= major.minor.patch.
func (v ServerVersion) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

// SupportsRenameColumn reports whether ALTER TABLE ... RENAME COLUMN is
// available. Renames without a column type rely on it.
func (v ServerVersion) SupportsRenameColumn() bool {
	switch v.Flavor {
	case "postgres":
		return true
	case "mariadb":
		return v.AtLeast(10, 5, 2)
	}
	return v.AtLeast(8, 0, 0)
}

// ParseVersion parses the version string reported by the server.
func ParseVersion(driver, raw string) (ServerVersion, error) {
	v := ServerVersion{Raw: raw}

	if driver == Postgres {
		m := postgresVersionRe.FindStringSubmatch(raw)
		if m == nil {
			return v, fmt.Errorf("could not parse version: %s", raw)
		}
		v.Flavor = "postgres"
		v.Major, _ = strconv.Atoi(m[1])
		v.Minor, _ = strconv.Atoi(m[2])
		v.Patch, _ = strconv.Atoi(m[3])
		return v, nil
	}

	if m := auroraVersionRe.FindStringSubmatch(raw); m != nil {
		v.Major, _ = strconv.Atoi(m[1])
		v.Minor, _ = strconv.Atoi(m[2])
		v.Flavor = "aurora-mysql"
		return v, nil
	}

	m := mysqlVersionRe.FindStringSubmatch(raw)
	if m == nil {
		return v, fmt.Errorf("could not parse version: %s", raw)
	}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	v.Patch, _ = strconv.Atoi(m[3])

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "percona"):
		v.Flavor = "percona"
	case strings.Contains(lower, "mariadb"):
		v.Flavor = "mariadb"
	default:
		v.Flavor = "mysql"
	}
	return v, nil
}

// ServerInfo describes the connected server.
type ServerInfo struct {
	Driver   string
	Version  ServerVersion
	Database string
	ReadOnly bool
}

// ServerInfo queries the server version, current database and whether the
// session is read-only.
func (c *Conn) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	info := &ServerInfo{Driver: c.driver}

	var raw string
	if c.driver == Postgres {
		var readOnly string
		err := c.db.QueryRowContext(ctx,
			"SELECT version(), current_database(), current_setting('transaction_read_only')",
		).Scan(&raw, &info.Database, &readOnly)
		if err != nil {
			return nil, fmt.Errorf("querying server info: %w", err)
		}
		info.ReadOnly = readOnly == "on"
	} else {
		var readOnly int64
		err := c.db.QueryRowContext(ctx,
			"SELECT VERSION(), COALESCE(DATABASE(), ''), @@global.read_only",
		).Scan(&raw, &info.Database, &readOnly)
		if err != nil {
			return nil, fmt.Errorf("querying server info: %w", err)
		}
		info.ReadOnly = readOnly != 0
	}

	v, err := ParseVersion(c.driver, raw)
	if err != nil {
		return nil, err
	}
	info.Version = v
	return info, nil
}
