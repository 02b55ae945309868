package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nethalo/dbshift/internal/operation"
)

// CurrentTimestamp is rendered verbatim as a default or update value.
const CurrentTimestamp = "CURRENT_TIMESTAMP"

func quote(name, mark string) string {
	return mark + strings.ReplaceAll(name, mark, mark+mark) + mark
}

func typeName(opts operation.Options) string {
	return strings.ToLower(strings.TrimSpace(opts.String("type")))
}

// length returns the "length" option, or def when absent.
func length(opts operation.Options, def int64) (int64, error) {
	if !opts.Has("length") {
		return def, nil
	}
	n, ok := opts.Int("length")
	if !ok || n <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidColumnLength, opts["length"])
	}
	return n, nil
}

// decimal renders DECIMAL with optional precision and scale.
func decimal(opts operation.Options) (string, error) {
	if !opts.Has("precision") {
		return "DECIMAL", nil
	}
	p, ok := opts.Int("precision")
	if !ok || p <= 0 {
		return "", fmt.Errorf("%w: precision %v", ErrInvalidColumnLength, opts["precision"])
	}
	s, _ := opts.Int("scale")
	return fmt.Sprintf("DECIMAL(%d,%d)", p, s), nil
}

func sized(name string, opts operation.Options, def int64) (string, error) {
	n, err := length(opts, def)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return name, nil
	}
	return fmt.Sprintf("%s(%d)", name, n), nil
}

func unknownType(opts operation.Options) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumnType, opts.String("type"))
}

// FormatValue renders a default or update value as a SQL literal. Strings
// are quoted except for CURRENT_TIMESTAMP.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		if strings.EqualFold(v, CurrentTimestamp) {
			return CurrentTimestamp
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprint(v)
}

// nullability renders the NULL/NOT NULL clause, or "" when unspecified.
func nullability(opts operation.Options) string {
	if !opts.Has("null") {
		return ""
	}
	if opts.Bool("null") {
		return "NULL"
	}
	return "NOT NULL"
}

func identifiers(b Builder, names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, b.BuildIdentifier(n))
	}
	return strings.Join(quoted, ", ")
}

func trimStatement(body string) string {
	return strings.TrimRight(strings.TrimSpace(body), "; \t\n")
}

func terminate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" || strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}
