package builder

import (
	"errors"
	"strings"
	"testing"

	"github.com/nethalo/dbshift/internal/operation"
	"github.com/nethalo/dbshift/internal/parser"
)

func column(name string, kind operation.Kind, opts operation.Options) operation.ColumnOperation {
	return operation.ColumnOperation{Name: name, Kind: kind, Options: opts}
}

func usersTable() operation.TableOperation {
	return operation.TableOperation{
		Name: "users",
		Kind: operation.Create,
		Columns: []operation.ColumnOperation{
			column("id", operation.Add, operation.Options{"type": "uuid", "primary": true}),
			column("username", operation.Add, operation.Options{"type": "string", "length": 64, "null": false}),
			column("password", operation.Add, operation.Options{"type": "string"}),
		},
	}
}

func TestMySQLBuild_CreateUsers(t *testing.T) {
	got, err := MySQL{}.Build(usersTable())
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	want := "CREATE TABLE `users` (`id` CHAR(36) PRIMARY KEY, `username` VARCHAR(64) NOT NULL, `password` VARCHAR(255));"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestMySQLBuildType(t *testing.T) {
	tests := []struct {
		opts operation.Options
		want string
	}{
		{operation.Options{"type": "bool"}, "TINYINT(1)"},
		{operation.Options{"type": "char", "length": 2}, "CHAR(2)"},
		{operation.Options{"type": "char"}, "CHAR"},
		{operation.Options{"type": "date"}, "DATE"},
		{operation.Options{"type": "datetime"}, "DATETIME"},
		{operation.Options{"type": "timestamp"}, "TIMESTAMP"},
		{operation.Options{"type": "decimal", "precision": 10, "scale": 2}, "DECIMAL(10,2)"},
		{operation.Options{"type": "decimal"}, "DECIMAL"},
		{operation.Options{"type": "enum", "values": []any{"on", "off"}}, "ENUM('on','off')"},
		{operation.Options{"type": "integer"}, "INTEGER"},
		{operation.Options{"type": "serial"}, "INTEGER"},
		{operation.Options{"type": "json"}, "JSON"},
		{operation.Options{"type": "string"}, "VARCHAR(255)"},
		{operation.Options{"type": "STRING", "length": "32"}, "VARCHAR(32)"},
		{operation.Options{"type": "text"}, "TEXT"},
		{operation.Options{"type": "text", "length": 255}, "TINYTEXT"},
		{operation.Options{"type": "text", "length": 256}, "TEXT"},
		{operation.Options{"type": "text", "length": 65535}, "TEXT"},
		{operation.Options{"type": "text", "length": 65536}, "MEDIUMTEXT"},
		{operation.Options{"type": "text", "length": 16777216}, "LONGTEXT"},
		{operation.Options{"type": "text", "length": int64(4294967295)}, "LONGTEXT"},
		{operation.Options{"type": "uuid"}, "CHAR(36)"},
	}

	for _, tt := range tests {
		got, err := MySQL{}.BuildType(tt.opts)
		if err != nil {
			t.Errorf("BuildType(%v) unexpected error: %v", tt.opts, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BuildType(%v) = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestMySQLBuildType_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts operation.Options
		want error
	}{
		{"text too long", operation.Options{"type": "text", "length": int64(4294967296)}, ErrInvalidColumnLength},
		{"negative length", operation.Options{"type": "string", "length": -1}, ErrInvalidColumnLength},
		{"non-numeric length", operation.Options{"type": "string", "length": "wide"}, ErrInvalidColumnLength},
		{"fractional length", operation.Options{"type": "string", "length": 64.5}, ErrInvalidColumnLength},
		{"unknown type", operation.Options{"type": "geometry"}, ErrUnknownColumnType},
		{"missing type", operation.Options{}, ErrUnknownColumnType},
		{"enum without values", operation.Options{"type": "enum"}, ErrInvalidEnumValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (MySQL{}).BuildType(tt.opts); !errors.Is(err, tt.want) {
				t.Errorf("BuildType() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMySQLBuild_Statements(t *testing.T) {
	tests := []struct {
		name string
		op   operation.Operation
		want string
	}{
		{
			name: "column clauses",
			op: operation.TableOperation{
				Name: "events",
				Kind: operation.Create,
				Columns: []operation.ColumnOperation{
					column("id", operation.Add, operation.Options{"type": "serial", "auto_increment": true, "primary": true}),
					column("code", operation.Add, operation.Options{"type": "string", "length": 16, "unique": true, "default": "it's"}),
					column("updated", operation.Add, operation.Options{"type": "timestamp", "null": true, "default": "CURRENT_TIMESTAMP", "update": "CURRENT_TIMESTAMP"}),
					column("active", operation.Add, operation.Options{"type": "bool", "default": true}),
				},
				Indexes: []operation.IndexOperation{
					{Name: "code_active", Kind: operation.Add, Columns: []string{"code", "active"}},
				},
			},
			want: "CREATE TABLE `events` (`id` INTEGER AUTO_INCREMENT PRIMARY KEY, `code` VARCHAR(16) DEFAULT 'it''s' UNIQUE, " +
				"`updated` TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP, `active` TINYINT(1) DEFAULT TRUE, " +
				"INDEX `code_active` (`code`, `active`));",
		},
		{
			name: "alter",
			op: operation.TableOperation{
				Name: "users",
				Kind: operation.Alter,
				Columns: []operation.ColumnOperation{
					column("email", operation.Add, operation.Options{"type": "string", "after": "id"}),
					column("tenant", operation.Add, operation.Options{"type": "integer", "first": true}),
					column("username", operation.Modify, operation.Options{"type": "string", "length": 128}),
					column("nick", operation.Change, operation.Options{"type": "string", "length": 32, "new_name": "nickname"}),
					column("login", operation.Change, operation.Options{"new_name": "handle"}),
					column("legacy", operation.Drop, nil),
				},
				Indexes: []operation.IndexOperation{
					{Name: "email_idx", Kind: operation.Add, Columns: []string{"email"}, Options: operation.Options{"unique": true}},
					{Name: "old_idx", Kind: operation.Drop},
				},
			},
			want: "ALTER TABLE `users` ADD COLUMN `email` VARCHAR(255) AFTER `id`, ADD COLUMN `tenant` INTEGER FIRST, " +
				"MODIFY COLUMN `username` VARCHAR(128), CHANGE COLUMN `nick` `nickname` VARCHAR(32), " +
				"RENAME COLUMN `login` TO `handle`, DROP COLUMN `legacy`, ADD UNIQUE INDEX `email_idx` (`email`), DROP INDEX `old_idx`;",
		},
		{
			name: "empty alter",
			op:   operation.TableOperation{Name: "users", Kind: operation.Alter},
			want: "",
		},
		{
			name: "drop table",
			op:   operation.TableOperation{Name: "users", Kind: operation.Drop},
			want: "DROP TABLE `users`;",
		},
		{
			name: "create view",
			op:   operation.ViewOperation{Name: "active", Kind: operation.Create, Body: "SELECT id FROM users;\n"},
			want: "CREATE VIEW `active` AS SELECT id FROM users;",
		},
		{
			name: "alter view",
			op:   operation.ViewOperation{Name: "active", Kind: operation.Alter, Body: "SELECT id, email FROM users"},
			want: "ALTER VIEW `active` AS SELECT id, email FROM users;",
		},
		{
			name: "drop view",
			op:   operation.ViewOperation{Name: "active", Kind: operation.Drop},
			want: "DROP VIEW `active`;",
		},
		{
			name: "exec",
			op:   operation.ExecOperation{Name: "seed", Body: "  INSERT INTO users (id) VALUES ('x')  "},
			want: "INSERT INTO users (id) VALUES ('x');",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MySQL{}.Build(tt.op)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Build() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestMySQLBuild_ParsesAsMySQL(t *testing.T) {
	ops := []struct {
		op     operation.Operation
		kind   parser.Kind
		object string
	}{
		{usersTable(), parser.CreateTable, "users"},
		{operation.TableOperation{
			Name: "users",
			Kind: operation.Alter,
			Columns: []operation.ColumnOperation{
				column("email", operation.Add, operation.Options{"type": "string", "null": false, "default": "", "after": "id"}),
				column("bio", operation.Modify, operation.Options{"type": "text", "length": 70000}),
				column("state", operation.Change, operation.Options{"type": "enum", "values": []string{"a", "b"}, "new_name": "status"}),
			},
			Indexes: []operation.IndexOperation{{Name: "email_idx", Kind: operation.Add, Columns: []string{"email"}}},
		}, parser.AlterTable, "users"},
		{operation.TableOperation{Name: "users", Kind: operation.Drop}, parser.DropTable, "users"},
		{operation.ViewOperation{Name: "v", Kind: operation.Create, Body: "SELECT 1"}, parser.CreateView, "v"},
		{operation.ViewOperation{Name: "v", Kind: operation.Alter, Body: "SELECT 2"}, parser.AlterView, "v"},
		{operation.ViewOperation{Name: "v", Kind: operation.Drop}, parser.DropView, "v"},
	}

	for _, tt := range ops {
		sql, err := MySQL{}.Build(tt.op)
		if err != nil {
			t.Fatalf("Build() unexpected error: %v", err)
		}
		stmt, err := parser.Classify(sql)
		if err != nil {
			t.Errorf("generated SQL does not parse: %v\n%s", err, sql)
			continue
		}
		if stmt.Kind != tt.kind || stmt.Object != tt.object {
			t.Errorf("Classify(%q) = %s, want %s %s", sql, stmt.Summary(), tt.kind, tt.object)
		}
	}
}

func TestMySQLBuild_Function(t *testing.T) {
	fn := operation.FunctionOperation{
		Name:          "add_tax",
		Kind:          operation.Create,
		ReturnType:    operation.ReturnTypeOperation{Type: "decimal", Options: operation.Options{"precision": 10, "scale": 2}},
		Deterministic: true,
		DataUse:       operation.NoSQL,
		Parameters:    []operation.ParameterOperation{{Name: "amount", Options: operation.Options{"type": "decimal", "precision": 10, "scale": 2}}},
		Variables:     []operation.VariableOperation{{Name: "rate", Options: operation.Options{"type": "decimal", "precision": 4, "scale": 2, "default": 0.2}}},
		Body:          "RETURN amount * (1 + rate)",
	}

	want := strings.Join([]string{
		"CREATE FUNCTION `add_tax`(`amount` DECIMAL(10,2))",
		"RETURNS DECIMAL(10,2)",
		"DETERMINISTIC",
		"NO SQL",
		"BEGIN",
		"DECLARE `rate` DECIMAL(4,2) DEFAULT 0.2;",
		"RETURN amount * (1 + rate);",
		"END;",
	}, "\n")

	got, err := MySQL{}.Build(fn)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}

	fn.Kind = operation.Replace
	got, err = MySQL{}.Build(fn)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if got != "DROP FUNCTION IF EXISTS `add_tax`;\n"+want {
		t.Errorf("Build(replace) =\n%s", got)
	}

	got, _ = MySQL{}.Build(operation.FunctionOperation{Name: "add_tax", Kind: operation.Drop})
	if got != "DROP FUNCTION `add_tax`;" {
		t.Errorf("Build(drop) = %q", got)
	}
}

func TestMySQLBuild_Procedure(t *testing.T) {
	proc := operation.ProcedureOperation{
		Name:          "archive",
		Kind:          operation.Create,
		DataUse:       operation.ModifiesSQLData,
		InParameters:  []operation.ParameterOperation{{Name: "before", Options: operation.Options{"type": "date"}}},
		OutParameters: []operation.ParameterOperation{{Name: "moved", Options: operation.Options{"type": "integer"}}},
		Body:          "DELETE FROM logs WHERE created < before;\nSET moved = ROW_COUNT();",
	}

	want := strings.Join([]string{
		"CREATE PROCEDURE `archive`(IN `before` DATE, OUT `moved` INTEGER)",
		"NOT DETERMINISTIC",
		"MODIFIES SQL DATA",
		"BEGIN",
		"DELETE FROM logs WHERE created < before;",
		"SET moved = ROW_COUNT();",
		"END;",
	}, "\n")

	got, err := MySQL{}.Build(proc)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Build() =\n%s\nwant\n%s", got, want)
	}
}

type unknownOperation struct{}

func (unknownOperation) Entity() string         { return "x" }
func (unknownOperation) Action() operation.Kind { return operation.Create }
func (unknownOperation) Type() string           { return "sequence" }

func TestBuild_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		op   operation.Operation
	}{
		{"unknown variant", unknownOperation{}},
		{"table replace", operation.TableOperation{Name: "t", Kind: operation.Replace}},
		{"procedure replace", operation.ProcedureOperation{Name: "p", Kind: operation.Replace}},
		{"column with table kind", operation.TableOperation{Name: "t", Kind: operation.Alter, Columns: []operation.ColumnOperation{column("c", operation.Create, nil)}}},
	}

	for _, b := range []Builder{MySQL{}, Postgres{}} {
		for _, tt := range tests {
			_, err := b.Build(tt.op)
			if !errors.Is(err, ErrUnsupportedOperation) {
				t.Errorf("%s: %s error = %v, want %v", b.Dialect(), tt.name, err, ErrUnsupportedOperation)
			}
		}
	}

	_, err := MySQL{}.Build(unknownOperation{})
	if err == nil || !strings.Contains(err.Error(), "unknownOperation") {
		t.Errorf("error %v should name the variant", err)
	}
}

func TestForDriver(t *testing.T) {
	tests := []struct {
		driver  string
		dialect string
	}{
		{"mysql", "mysql"},
		{"postgres", "postgres"},
		{"PostgreSQL", "postgres"},
		{"pgx", "postgres"},
	}
	for _, tt := range tests {
		b, err := ForDriver(tt.driver)
		if err != nil {
			t.Errorf("ForDriver(%q) unexpected error: %v", tt.driver, err)
			continue
		}
		if b.Dialect() != tt.dialect {
			t.Errorf("ForDriver(%q).Dialect() = %q, want %q", tt.driver, b.Dialect(), tt.dialect)
		}
	}

	if _, err := ForDriver("sqlite3"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("ForDriver(sqlite3) error = %v, want %v", err, ErrUnknownDriver)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{false, "FALSE"},
		{"plain", "'plain'"},
		{"O'Brien", "'O''Brien'"},
		{"current_timestamp", "CURRENT_TIMESTAMP"},
		{42, "42"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildIdentifier(t *testing.T) {
	if got := (MySQL{}).BuildIdentifier("we`ird"); got != "`we``ird`" {
		t.Errorf("MySQL identifier = %q", got)
	}
	if got := (Postgres{}).BuildIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("Postgres identifier = %q", got)
	}
}
