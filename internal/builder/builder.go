// Package builder renders operations into dialect-specific SQL.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nethalo/dbshift/internal/operation"
)

// Builder renders operations for one SQL dialect.
type Builder interface {
	// Dialect names the target engine ("mysql", "postgres").
	Dialect() string
	// Build renders op as one or more SQL statements. An alteration with
	// nothing left to change renders as "".
	Build(op operation.Operation) (string, error)
	// BuildType maps the logical "type" option to a native column type.
	BuildType(opts operation.Options) (string, error)
	// BuildIdentifier quotes name for the dialect.
	BuildIdentifier(name string) string
}

var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrUnknownColumnType    = errors.New("unknown column type")
	ErrInvalidColumnLength  = errors.New("invalid column length")
	ErrInvalidEnumValues    = errors.New("enum requires values")
	ErrUnknownDriver        = errors.New("unknown driver")
)

// ForDriver returns the builder for a database/sql driver name.
func ForDriver(name string) (Builder, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}

func unsupported(op operation.Operation) error {
	return fmt.Errorf("%w: %T with kind %q", ErrUnsupportedOperation, op, op.Action())
}
