package builder

import (
	"fmt"
	"strings"

	"github.com/nethalo/dbshift/internal/operation"
)

// MySQL text type tiers by maximum byte length.
const (
	tinyTextMax   = 255
	textMax       = 65535
	mediumTextMax = 16777215
	longTextMax   = 4294967295
)

// MySQL renders MySQL/MariaDB statements.
type MySQL struct{}

func (MySQL) Dialect() string { return "mysql" }

func (MySQL) BuildIdentifier(name string) string { return quote(name, "`") }

func (m MySQL) BuildType(opts operation.Options) (string, error) {
	switch typeName(opts) {
	case "bool":
		return "TINYINT(1)", nil
	case "char":
		return sized("CHAR", opts, 0)
	case "date":
		return "DATE", nil
	case "datetime":
		return "DATETIME", nil
	case "timestamp":
		return "TIMESTAMP", nil
	case "decimal":
		return decimal(opts)
	case "enum":
		values := opts.Strings("values")
		if len(values) == 0 {
			return "", fmt.Errorf("%w: %v", ErrInvalidEnumValues, opts["values"])
		}
		quoted := make([]string, 0, len(values))
		for _, v := range values {
			quoted = append(quoted, FormatValue(v))
		}
		return "ENUM(" + strings.Join(quoted, ",") + ")", nil
	case "integer", "serial":
		return "INTEGER", nil
	case "json":
		return "JSON", nil
	case "string":
		return sized("VARCHAR", opts, 255)
	case "text":
		return mysqlText(opts)
	case "uuid":
		return "CHAR(36)", nil
	}
	return "", unknownType(opts)
}

func mysqlText(opts operation.Options) (string, error) {
	if !opts.Has("length") {
		return "TEXT", nil
	}
	n, err := length(opts, 0)
	if err != nil {
		return "", err
	}
	switch {
	case n <= tinyTextMax:
		return "TINYTEXT", nil
	case n <= textMax:
		return "TEXT", nil
	case n <= mediumTextMax:
		return "MEDIUMTEXT", nil
	case n <= longTextMax:
		return "LONGTEXT", nil
	}
	return "", fmt.Errorf("%w: text length %d exceeds %d", ErrInvalidColumnLength, n, int64(longTextMax))
}

func (m MySQL) Build(op operation.Operation) (string, error) {
	switch o := op.(type) {
	case operation.TableOperation:
		return m.table(o)
	case operation.ViewOperation:
		return m.view(o)
	case operation.FunctionOperation:
		return m.function(o)
	case operation.ProcedureOperation:
		return m.procedure(o)
	case operation.ExecOperation:
		return terminate(o.Body), nil
	}
	return "", unsupported(op)
}

// column renders a column definition. Positioning is only meaningful when
// altering an existing table.
func (m MySQL) column(name string, opts operation.Options, positioned bool) (string, error) {
	typ, err := m.BuildType(opts)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", name, err)
	}
	parts := []string{m.BuildIdentifier(name), typ}
	if n := nullability(opts); n != "" {
		parts = append(parts, n)
	}
	if opts.Has("default") {
		parts = append(parts, "DEFAULT "+FormatValue(opts["default"]))
	}
	if opts.Has("update") {
		parts = append(parts, "ON UPDATE "+FormatValue(opts["update"]))
	}
	if opts.Bool("auto_increment") {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if opts.Bool("unique") {
		parts = append(parts, "UNIQUE")
	}
	if opts.Bool("primary") {
		parts = append(parts, "PRIMARY KEY")
	}
	if positioned {
		if opts.Bool("first") {
			parts = append(parts, "FIRST")
		} else if after := opts.String("after"); after != "" {
			parts = append(parts, "AFTER "+m.BuildIdentifier(after))
		}
	}
	return strings.Join(parts, " "), nil
}

func (m MySQL) index(ix operation.IndexOperation) string {
	prefix := "INDEX "
	if ix.Unique() {
		prefix = "UNIQUE INDEX "
	}
	return prefix + m.BuildIdentifier(ix.Name) + " (" + identifiers(m, ix.Columns) + ")"
}

func (m MySQL) table(t operation.TableOperation) (string, error) {
	name := m.BuildIdentifier(t.Name)
	switch t.Kind {
	case operation.Create:
		defs := make([]string, 0, len(t.Columns)+len(t.Indexes))
		for _, c := range t.Columns {
			def, err := m.column(c.Name, c.Options, false)
			if err != nil {
				return "", err
			}
			defs = append(defs, def)
		}
		for _, ix := range t.Indexes {
			if ix.Kind == operation.Add {
				defs = append(defs, m.index(ix))
			}
		}
		return "CREATE TABLE " + name + " (" + strings.Join(defs, ", ") + ");", nil
	case operation.Alter:
		clauses, err := m.alterClauses(t)
		if err != nil || len(clauses) == 0 {
			return "", err
		}
		return "ALTER TABLE " + name + " " + strings.Join(clauses, ", ") + ";", nil
	case operation.Drop:
		return "DROP TABLE " + name + ";", nil
	}
	return "", unsupported(t)
}

func (m MySQL) alterClauses(t operation.TableOperation) ([]string, error) {
	var clauses []string
	for _, c := range t.Columns {
		switch c.Kind {
		case operation.Add, operation.Modify:
			def, err := m.column(c.Name, c.Options, true)
			if err != nil {
				return nil, err
			}
			verb := "ADD COLUMN "
			if c.Kind == operation.Modify {
				verb = "MODIFY COLUMN "
			}
			clauses = append(clauses, verb+def)
		case operation.Change:
			target := c.Options.String("new_name")
			if target == "" {
				target = c.Name
			}
			if !c.Options.Has("type") {
				clauses = append(clauses, "RENAME COLUMN "+m.BuildIdentifier(c.Name)+" TO "+m.BuildIdentifier(target))
				continue
			}
			def, err := m.column(target, c.Options.Without("new_name"), true)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, "CHANGE COLUMN "+m.BuildIdentifier(c.Name)+" "+def)
		case operation.Drop:
			clauses = append(clauses, "DROP COLUMN "+m.BuildIdentifier(c.Name))
		default:
			return nil, fmt.Errorf("%w: column %s with kind %q", ErrUnsupportedOperation, c.Name, c.Kind)
		}
	}
	for _, ix := range t.Indexes {
		switch ix.Kind {
		case operation.Add:
			clauses = append(clauses, "ADD "+m.index(ix))
		case operation.Drop:
			clauses = append(clauses, "DROP INDEX "+m.BuildIdentifier(ix.Name))
		default:
			return nil, fmt.Errorf("%w: index %s with kind %q", ErrUnsupportedOperation, ix.Name, ix.Kind)
		}
	}
	return clauses, nil
}

func (m MySQL) view(v operation.ViewOperation) (string, error) {
	name := m.BuildIdentifier(v.Name)
	switch v.Kind {
	case operation.Create:
		return "CREATE VIEW " + name + " AS " + trimStatement(v.Body) + ";", nil
	case operation.Alter:
		return "ALTER VIEW " + name + " AS " + trimStatement(v.Body) + ";", nil
	case operation.Drop:
		return "DROP VIEW " + name + ";", nil
	}
	return "", unsupported(v)
}

func (m MySQL) characteristics(deterministic bool, use operation.DataUse) []string {
	lines := []string{"NOT DETERMINISTIC"}
	if deterministic {
		lines[0] = "DETERMINISTIC"
	}
	switch use {
	case operation.ContainsSQL:
		lines = append(lines, "CONTAINS SQL")
	case operation.NoSQL:
		lines = append(lines, "NO SQL")
	case operation.ReadsSQLData:
		lines = append(lines, "READS SQL DATA")
	case operation.ModifiesSQLData:
		lines = append(lines, "MODIFIES SQL DATA")
	}
	return lines
}

func (m MySQL) parameters(direction string, params []operation.ParameterOperation) ([]string, error) {
	out := make([]string, 0, len(params))
	for _, p := range params {
		typ, err := m.BuildType(p.Options)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out = append(out, direction+m.BuildIdentifier(p.Name)+" "+typ)
	}
	return out, nil
}

// block wraps body in BEGIN ... END with the given local declarations.
func (m MySQL) block(vars []operation.VariableOperation, body string) (string, error) {
	var b strings.Builder
	b.WriteString("BEGIN\n")
	for _, v := range vars {
		typ, err := m.BuildType(v.Options)
		if err != nil {
			return "", fmt.Errorf("variable %s: %w", v.Name, err)
		}
		b.WriteString("DECLARE " + m.BuildIdentifier(v.Name) + " " + typ)
		if v.Options.Has("default") {
			b.WriteString(" DEFAULT " + FormatValue(v.Options["default"]))
		}
		b.WriteString(";\n")
	}
	if body = terminate(body); body != "" {
		b.WriteString(body + "\n")
	}
	b.WriteString("END;")
	return b.String(), nil
}

func (m MySQL) function(f operation.FunctionOperation) (string, error) {
	name := m.BuildIdentifier(f.Name)
	drop := "DROP FUNCTION IF EXISTS " + name + ";"
	switch f.Kind {
	case operation.Drop:
		return "DROP FUNCTION " + name + ";", nil
	case operation.Create, operation.Replace:
	default:
		return "", unsupported(f)
	}

	params, err := m.parameters("", f.Parameters)
	if err != nil {
		return "", err
	}
	returns, err := m.BuildType(f.ReturnType.TypeOptions())
	if err != nil {
		return "", fmt.Errorf("function %s returns: %w", f.Name, err)
	}
	body, err := m.block(f.Variables, f.Body)
	if err != nil {
		return "", err
	}

	lines := []string{"CREATE FUNCTION " + name + "(" + strings.Join(params, ", ") + ")", "RETURNS " + returns}
	lines = append(lines, m.characteristics(f.Deterministic, f.DataUse)...)
	lines = append(lines, body)
	create := strings.Join(lines, "\n")
	if f.Kind == operation.Replace {
		return drop + "\n" + create, nil
	}
	return create, nil
}

func (m MySQL) procedure(p operation.ProcedureOperation) (string, error) {
	name := m.BuildIdentifier(p.Name)
	switch p.Kind {
	case operation.Drop:
		return "DROP PROCEDURE " + name + ";", nil
	case operation.Create:
	default:
		return "", unsupported(p)
	}

	in, err := m.parameters("IN ", p.InParameters)
	if err != nil {
		return "", err
	}
	out, err := m.parameters("OUT ", p.OutParameters)
	if err != nil {
		return "", err
	}
	body, err := m.block(nil, p.Body)
	if err != nil {
		return "", err
	}

	lines := []string{"CREATE PROCEDURE " + name + "(" + strings.Join(append(in, out...), ", ") + ")"}
	lines = append(lines, m.characteristics(p.Deterministic, p.DataUse)...)
	lines = append(lines, body)
	return strings.Join(lines, "\n"), nil
}
