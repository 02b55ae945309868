// Package parser classifies rendered MySQL statements with the vitess
// parser. Plans use it to annotate each statement with what it touches and
// tests use it to check that generated DDL is valid MySQL.
package parser

import (
	"fmt"
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"
)

// Kind classifies a statement.
type Kind string

const (
	CreateTable Kind = "CREATE_TABLE"
	AlterTable  Kind = "ALTER_TABLE"
	DropTable   Kind = "DROP_TABLE"
	CreateView  Kind = "CREATE_VIEW"
	AlterView   Kind = "ALTER_VIEW"
	DropView    Kind = "DROP_VIEW"
	DML         Kind = "DML"
	Other       Kind = "OTHER"
)

// Change names one clause of an ALTER TABLE.
type Change string

const (
	AddColumn    Change = "ADD_COLUMN"
	DropColumn   Change = "DROP_COLUMN"
	ModifyColumn Change = "MODIFY_COLUMN"
	ChangeColumn Change = "CHANGE_COLUMN"
	RenameColumn Change = "RENAME_COLUMN"
	AddIndex     Change = "ADD_INDEX"
	AddUnique    Change = "ADD_UNIQUE_INDEX"
	DropIndex    Change = "DROP_INDEX"
	OtherChange  Change = "OTHER"
)

// Statement is the classification of one SQL statement.
type Statement struct {
	Kind     Kind
	Database string
	Object   string   // table or view name
	Columns  []string // column names for CREATE TABLE
	Changes  []Change // ALTER TABLE clauses in order
}

// Summary renders a short description such as "ALTER_TABLE users (ADD_COLUMN, DROP_INDEX)".
func (s *Statement) Summary() string {
	var b strings.Builder
	b.WriteString(string(s.Kind))
	if s.Object != "" {
		b.WriteString(" ")
		if s.Database != "" {
			b.WriteString(s.Database + ".")
		}
		b.WriteString(s.Object)
	}
	if len(s.Changes) > 0 {
		names := make([]string, 0, len(s.Changes))
		for _, c := range s.Changes {
			names = append(names, string(c))
		}
		b.WriteString(" (" + strings.Join(names, ", ") + ")")
	}
	return b.String()
}

var (
	parserOnce      sync.Once
	globalParser    *sqlparser.Parser
	globalParserErr error
)

func getParser() (*sqlparser.Parser, error) {
	parserOnce.Do(func() {
		globalParser, globalParserErr = sqlparser.New(sqlparser.Options{})
	})
	return globalParser, globalParserErr
}

// Classify parses a single SQL statement.
func Classify(sql string) (*Statement, error) {
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")

	p, err := getParser()
	if err != nil {
		return nil, fmt.Errorf("creating parser: %w", err)
	}
	stmt, err := p.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	result := &Statement{Kind: Other}
	switch s := stmt.(type) {
	case *sqlparser.CreateTable:
		result.Kind = CreateTable
		result.Database, result.Object = tableName(s.Table)
		if s.TableSpec != nil {
			for _, col := range s.TableSpec.Columns {
				result.Columns = append(result.Columns, col.Name.String())
			}
		}
	case *sqlparser.AlterTable:
		result.Kind = AlterTable
		result.Database, result.Object = tableName(s.Table)
		for _, opt := range s.AlterOptions {
			result.Changes = append(result.Changes, classifyAlterOption(opt))
		}
	case *sqlparser.DropTable:
		result.Kind = DropTable
		if len(s.FromTables) > 0 {
			result.Database, result.Object = tableName(s.FromTables[0])
		}
	case *sqlparser.CreateView:
		result.Kind = CreateView
		result.Database, result.Object = tableName(s.ViewName)
	case *sqlparser.AlterView:
		result.Kind = AlterView
		result.Database, result.Object = tableName(s.ViewName)
	case *sqlparser.DropView:
		result.Kind = DropView
		if len(s.FromTables) > 0 {
			result.Database, result.Object = tableName(s.FromTables[0])
		}
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		result.Kind = DML
	}
	return result, nil
}

func tableName(tn sqlparser.TableName) (string, string) {
	return tn.Qualifier.String(), tn.Name.String()
}

func classifyAlterOption(opt sqlparser.AlterOption) Change {
	switch opt := opt.(type) {
	case *sqlparser.AddColumns:
		return AddColumn
	case *sqlparser.DropColumn:
		return DropColumn
	case *sqlparser.ModifyColumn:
		return ModifyColumn
	case *sqlparser.ChangeColumn:
		return ChangeColumn
	case *sqlparser.RenameColumn:
		return RenameColumn
	case *sqlparser.AddIndexDefinition:
		if opt.IndexDefinition.Info.Type == sqlparser.IndexTypeUnique {
			return AddUnique
		}
		return AddIndex
	case *sqlparser.DropKey:
		return DropIndex
	}
	return OtherChange
}
