package builder

import (
	"fmt"
	"strings"

	"github.com/nethalo/dbshift/internal/operation"
)

// Postgres renders PostgreSQL statements. Index names are schema-global in
// PostgreSQL, so every index is named "{index}_{table}_idx".
type Postgres struct{}

func (Postgres) Dialect() string { return "postgres" }

func (Postgres) BuildIdentifier(name string) string { return quote(name, `"`) }

func (p Postgres) BuildType(opts operation.Options) (string, error) {
	switch typeName(opts) {
	case "bool":
		return "BOOLEAN", nil
	case "char":
		return sized("CHAR", opts, 0)
	case "date":
		return "DATE", nil
	case "datetime", "timestamp":
		return "TIMESTAMP", nil
	case "decimal":
		return decimal(opts)
	case "enum", "string":
		return sized("VARCHAR", opts, 255)
	case "integer":
		return "INTEGER", nil
	case "json":
		return "JSON", nil
	case "serial":
		return "SERIAL", nil
	case "text":
		if _, err := length(opts, 0); err != nil {
			return "", err
		}
		return "TEXT", nil
	case "uuid":
		return "UUID", nil
	}
	return "", unknownType(opts)
}

func (p Postgres) Build(op operation.Operation) (string, error) {
	var (
		stmts []string
		err   error
	)
	switch o := op.(type) {
	case operation.TableOperation:
		stmts, err = p.table(o)
	case operation.ViewOperation:
		stmts, err = p.view(o)
	case operation.FunctionOperation:
		stmts, err = p.function(o)
	case operation.ProcedureOperation:
		stmts, err = p.procedure(o)
	case operation.ExecOperation:
		stmts = []string{terminate(o.Body)}
	default:
		err = unsupported(op)
	}
	if err != nil {
		return "", err
	}
	return strings.Join(stmts, "\n"), nil
}

func (p Postgres) indexName(index, table string) string {
	return p.BuildIdentifier(index + "_" + table + "_idx")
}

func (p Postgres) createIndex(table, index string, columns []string, unique bool) string {
	verb := "CREATE INDEX "
	if unique {
		verb = "CREATE UNIQUE INDEX "
	}
	return verb + p.indexName(index, table) + " ON " + p.BuildIdentifier(table) + " (" + identifiers(p, columns) + ");"
}

// column renders a column definition. Uniqueness is expressed through a
// separate index statement.
func (p Postgres) column(name string, opts operation.Options) (string, error) {
	typ, err := p.BuildType(opts)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", name, err)
	}
	parts := []string{p.BuildIdentifier(name), typ}
	if n := nullability(opts); n != "" {
		parts = append(parts, n)
	}
	if opts.Has("default") {
		parts = append(parts, "DEFAULT "+FormatValue(opts["default"]))
	}
	if opts.Bool("primary") {
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " "), nil
}

func (p Postgres) columnIndex(table string, c operation.ColumnOperation, name string) []string {
	if c.Options.Bool("primary") || c.Options.Bool("unique") {
		return []string{p.createIndex(table, name, []string{name}, true)}
	}
	return nil
}

func (p Postgres) table(t operation.TableOperation) ([]string, error) {
	name := p.BuildIdentifier(t.Name)
	switch t.Kind {
	case operation.Create:
		defs := make([]string, 0, len(t.Columns))
		var trailing []string
		for _, c := range t.Columns {
			def, err := p.column(c.Name, c.Options)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
			trailing = append(trailing, p.columnIndex(t.Name, c, c.Name)...)
		}
		for _, ix := range t.Indexes {
			if ix.Kind == operation.Add {
				trailing = append(trailing, p.createIndex(t.Name, ix.Name, ix.Columns, ix.Unique()))
			}
		}
		return append([]string{"CREATE TABLE " + name + " (" + strings.Join(defs, ", ") + ");"}, trailing...), nil
	case operation.Alter:
		return p.alter(t)
	case operation.Drop:
		return []string{"DROP TABLE " + name + ";"}, nil
	}
	return nil, unsupported(t)
}

// modify renders the ALTER COLUMN sequence for the options present.
func (p Postgres) modify(table, column string, opts operation.Options) ([]string, error) {
	prefix := "ALTER TABLE " + p.BuildIdentifier(table) + " ALTER COLUMN " + p.BuildIdentifier(column) + " "
	var stmts []string
	if opts.Has("type") {
		typ, err := p.BuildType(opts)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		stmts = append(stmts, prefix+"TYPE "+typ+";")
	}
	if opts.Has("null") {
		if opts.Bool("null") {
			stmts = append(stmts, prefix+"DROP NOT NULL;")
		} else {
			stmts = append(stmts, prefix+"SET NOT NULL;")
		}
	}
	if opts.Has("default") {
		stmts = append(stmts, prefix+"SET DEFAULT "+FormatValue(opts["default"])+";")
	}
	return stmts, nil
}

func (p Postgres) alter(t operation.TableOperation) ([]string, error) {
	table := p.BuildIdentifier(t.Name)
	var stmts []string
	for _, c := range t.Columns {
		switch c.Kind {
		case operation.Add:
			def, err := p.column(c.Name, c.Options)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, "ALTER TABLE "+table+" ADD COLUMN "+def+";")
			stmts = append(stmts, p.columnIndex(t.Name, c, c.Name)...)
		case operation.Modify:
			modified, err := p.modify(t.Name, c.Name, c.Options)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, modified...)
			stmts = append(stmts, p.columnIndex(t.Name, c, c.Name)...)
		case operation.Change:
			target := c.Options.String("new_name")
			if target == "" {
				target = c.Name
			}
			modified, err := p.modify(t.Name, c.Name, c.Options)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, modified...)
			if target != c.Name {
				stmts = append(stmts, "ALTER TABLE "+table+" RENAME COLUMN "+p.BuildIdentifier(c.Name)+" TO "+p.BuildIdentifier(target)+";")
			}
			stmts = append(stmts, p.columnIndex(t.Name, c, target)...)
		case operation.Drop:
			stmts = append(stmts, "ALTER TABLE "+table+" DROP COLUMN "+p.BuildIdentifier(c.Name)+";")
		default:
			return nil, fmt.Errorf("%w: column %s with kind %q", ErrUnsupportedOperation, c.Name, c.Kind)
		}
	}
	for _, ix := range t.Indexes {
		switch ix.Kind {
		case operation.Add:
			stmts = append(stmts, p.createIndex(t.Name, ix.Name, ix.Columns, ix.Unique()))
		case operation.Drop:
			stmts = append(stmts, "DROP INDEX "+p.indexName(ix.Name, t.Name)+";")
		default:
			return nil, fmt.Errorf("%w: index %s with kind %q", ErrUnsupportedOperation, ix.Name, ix.Kind)
		}
	}
	return stmts, nil
}

func (p Postgres) view(v operation.ViewOperation) ([]string, error) {
	name := p.BuildIdentifier(v.Name)
	switch v.Kind {
	case operation.Create:
		return []string{"CREATE VIEW " + name + " AS " + trimStatement(v.Body) + ";"}, nil
	case operation.Alter:
		return []string{"CREATE OR REPLACE VIEW " + name + " AS " + trimStatement(v.Body) + ";"}, nil
	case operation.Drop:
		return []string{"DROP VIEW " + name + ";"}, nil
	}
	return nil, unsupported(v)
}

func (p Postgres) parameters(direction string, params []operation.ParameterOperation) ([]string, error) {
	out := make([]string, 0, len(params))
	for _, param := range params {
		typ, err := p.BuildType(param.Options)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
		}
		out = append(out, direction+p.BuildIdentifier(param.Name)+" "+typ)
	}
	return out, nil
}

func language(lang operation.Language, vars []operation.VariableOperation) operation.Language {
	if lang != "" {
		return lang
	}
	if len(vars) > 0 {
		return operation.PlPgSQL
	}
	return operation.SQL
}

// body renders the dollar-quoted routine body. PL/pgSQL bodies get a
// DECLARE section and a BEGIN ... END block.
func (p Postgres) body(lang operation.Language, vars []operation.VariableOperation, body string) (string, error) {
	var b strings.Builder
	b.WriteString("AS $$\n")
	if lang != operation.PlPgSQL {
		b.WriteString(terminate(body) + "\n$$;")
		return b.String(), nil
	}
	if len(vars) > 0 {
		b.WriteString("DECLARE\n")
		for _, v := range vars {
			typ, err := p.BuildType(v.Options)
			if err != nil {
				return "", fmt.Errorf("variable %s: %w", v.Name, err)
			}
			b.WriteString(p.BuildIdentifier(v.Name) + " " + typ)
			if v.Options.Has("default") {
				b.WriteString(" := " + FormatValue(v.Options["default"]))
			}
			b.WriteString(";\n")
		}
	}
	b.WriteString("BEGIN\n")
	if body = terminate(body); body != "" {
		b.WriteString(body + "\n")
	}
	b.WriteString("END;\n$$;")
	return b.String(), nil
}

func volatility(deterministic bool) string {
	if deterministic {
		return "IMMUTABLE"
	}
	return "VOLATILE"
}

func (p Postgres) function(f operation.FunctionOperation) ([]string, error) {
	name := p.BuildIdentifier(f.Name)
	switch f.Kind {
	case operation.Drop:
		return []string{"DROP FUNCTION " + name + ";"}, nil
	case operation.Create, operation.Replace:
	default:
		return nil, unsupported(f)
	}

	params, err := p.parameters("", f.Parameters)
	if err != nil {
		return nil, err
	}
	returns, err := p.BuildType(f.ReturnType.TypeOptions())
	if err != nil {
		return nil, fmt.Errorf("function %s returns: %w", f.Name, err)
	}
	lang := language(f.Language, f.Variables)
	body, err := p.body(lang, f.Variables, f.Body)
	if err != nil {
		return nil, err
	}

	return []string{strings.Join([]string{
		"CREATE OR REPLACE FUNCTION " + name + "(" + strings.Join(params, ", ") + ")",
		"RETURNS " + returns,
		"LANGUAGE " + string(lang),
		volatility(f.Deterministic),
		body,
	}, "\n")}, nil
}

func (p Postgres) procedure(proc operation.ProcedureOperation) ([]string, error) {
	name := p.BuildIdentifier(proc.Name)
	switch proc.Kind {
	case operation.Drop:
		return []string{"DROP PROCEDURE " + name + ";"}, nil
	case operation.Create:
	default:
		return nil, unsupported(proc)
	}

	in, err := p.parameters("IN ", proc.InParameters)
	if err != nil {
		return nil, err
	}
	out, err := p.parameters("OUT ", proc.OutParameters)
	if err != nil {
		return nil, err
	}
	lang := language(proc.Language, nil)
	body, err := p.body(lang, nil, proc.Body)
	if err != nil {
		return nil, err
	}

	return []string{strings.Join([]string{
		"CREATE OR REPLACE PROCEDURE " + name + "(" + strings.Join(append(in, out...), ", ") + ")",
		"LANGUAGE " + string(lang),
		body,
	}, "\n")}, nil
}
