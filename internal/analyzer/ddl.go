// Package analyzer estimates how MySQL executes the ALTER TABLE statements a
// plan renders: which algorithm InnoDB picks, what lock it holds and whether
// the table is rebuilt.
package analyzer

import (
	"fmt"

	"github.com/nethalo/dbshift/internal/database"
	"github.com/nethalo/dbshift/internal/parser"
)

// Algorithm represents how MySQL executes an ALTER.
type Algorithm string

const (
	AlgoInstant Algorithm = "INSTANT"
	AlgoInplace Algorithm = "INPLACE"
	AlgoCopy    Algorithm = "COPY"
	AlgoDepends Algorithm = "DEPENDS" // varies by specifics
)

// LockLevel represents what lock MySQL requires during the operation.
type LockLevel string

const (
	LockNone      LockLevel = "NONE"
	LockShared    LockLevel = "SHARED"
	LockExclusive LockLevel = "EXCLUSIVE"
	LockDepends   LockLevel = "DEPENDS"
)

var (
	algorithmRank = map[Algorithm]int{AlgoInstant: 0, AlgoInplace: 1, AlgoCopy: 2, AlgoDepends: 3}
	lockRank      = map[LockLevel]int{LockNone: 0, LockShared: 1, LockExclusive: 2, LockDepends: 3}
)

// Classification is the expected execution of one ALTER TABLE.
type Classification struct {
	Algorithm     Algorithm
	Lock          LockLevel
	RebuildsTable bool
	Notes         string
}

// String renders the classification as an ALTER clause hint, e.g.
// "ALGORITHM=INSTANT, LOCK=NONE".
func (c Classification) String() string {
	s := fmt.Sprintf("ALGORITHM=%s, LOCK=%s", c.Algorithm, c.Lock)
	if c.RebuildsTable {
		s += ", rebuilds table"
	}
	return s
}

// VersionRange is a MySQL version bucket of the matrix.
type VersionRange int

const (
	V8_0_Early   VersionRange = iota // 8.0.0 – 8.0.11
	V8_0_Instant                     // 8.0.12 – 8.0.28 (INSTANT for trailing ADD COLUMN)
	V8_0_Full                        // 8.0.29+ (expanded INSTANT)
	V8_4_LTS                         // 8.4.x LTS
)

// classifyVersion maps a server version to a matrix range.
func classifyVersion(v database.ServerVersion) VersionRange {
	if v.Major == 8 && v.Minor == 4 {
		return V8_4_LTS
	}
	if v.Major == 8 && v.Minor == 0 {
		if v.Patch >= 29 {
			return V8_0_Full
		}
		if v.Patch >= 12 {
			return V8_0_Instant
		}
		return V8_0_Early
	}
	// Unknown and offline versions get the latest 8.0 behavior.
	return V8_0_Full
}

type matrixKey struct {
	Change  parser.Change
	Version VersionRange
}

var (
	addIndex = Classification{
		Algorithm: AlgoInplace, Lock: LockNone,
		Notes: "INPLACE, concurrent DML allowed. Index built in background.",
	}
	dropIndex = Classification{
		Algorithm: AlgoInplace, Lock: LockNone,
		Notes: "INPLACE, metadata-only.",
	}
	copyColumn = Classification{
		Algorithm: AlgoCopy, Lock: LockShared, RebuildsTable: true,
		Notes: "COPY with SHARED lock. Reads allowed, writes blocked during rebuild.",
	}
	inplaceRename = Classification{
		Algorithm: AlgoInplace, Lock: LockNone,
		Notes: "INPLACE rename, metadata-only.",
	}
	instantRename = Classification{
		Algorithm: AlgoInstant, Lock: LockNone,
		Notes: "INSTANT rename, metadata-only.",
	}
)

var ddlMatrix = map[matrixKey]Classification{
	{parser.AddColumn, V8_0_Early}: {
		Algorithm: AlgoInplace, Lock: LockNone,
		Notes: "INPLACE, concurrent DML allowed.",
	},
	{parser.AddColumn, V8_0_Instant}: {
		Algorithm: AlgoInstant, Lock: LockNone,
		Notes: "INSTANT for trailing columns. FIRST or AFTER falls back to INPLACE.",
	},
	{parser.AddColumn, V8_0_Full}: {Algorithm: AlgoInstant, Lock: LockNone, Notes: "INSTANT for any column position."},
	{parser.AddColumn, V8_4_LTS}:  {Algorithm: AlgoInstant, Lock: LockNone, Notes: "INSTANT for any column position."},

	{parser.DropColumn, V8_0_Early}: {
		Algorithm: AlgoInplace, Lock: LockNone, RebuildsTable: true,
		Notes: "INPLACE with table rebuild. Concurrent DML allowed.",
	},
	{parser.DropColumn, V8_0_Instant}: {
		Algorithm: AlgoInplace, Lock: LockNone, RebuildsTable: true,
		Notes: "INPLACE with table rebuild. Concurrent DML allowed.",
	},
	{parser.DropColumn, V8_0_Full}: {Algorithm: AlgoInstant, Lock: LockNone, Notes: "INSTANT, no table rebuild."},
	{parser.DropColumn, V8_4_LTS}:  {Algorithm: AlgoInstant, Lock: LockNone, Notes: "INSTANT, no table rebuild."},

	// Columns are only rendered as MODIFY or CHANGE with a full definition,
	// so both are treated as a data type change.
	{parser.ModifyColumn, V8_0_Early}:   copyColumn,
	{parser.ModifyColumn, V8_0_Instant}: copyColumn,
	{parser.ModifyColumn, V8_0_Full}:    copyColumn,
	{parser.ModifyColumn, V8_4_LTS}:     copyColumn,
	{parser.ChangeColumn, V8_0_Early}:   copyColumn,
	{parser.ChangeColumn, V8_0_Instant}: copyColumn,
	{parser.ChangeColumn, V8_0_Full}:    copyColumn,
	{parser.ChangeColumn, V8_4_LTS}:     copyColumn,

	{parser.RenameColumn, V8_0_Early}:   inplaceRename,
	{parser.RenameColumn, V8_0_Instant}: inplaceRename,
	{parser.RenameColumn, V8_0_Full}:    instantRename,
	{parser.RenameColumn, V8_4_LTS}:     instantRename,

	{parser.AddIndex, V8_0_Early}:    addIndex,
	{parser.AddIndex, V8_0_Instant}:  addIndex,
	{parser.AddIndex, V8_0_Full}:     addIndex,
	{parser.AddIndex, V8_4_LTS}:      addIndex,
	{parser.AddUnique, V8_0_Early}:   addIndex,
	{parser.AddUnique, V8_0_Instant}: addIndex,
	{parser.AddUnique, V8_0_Full}:    addIndex,
	{parser.AddUnique, V8_4_LTS}:     addIndex,

	{parser.DropIndex, V8_0_Early}:   dropIndex,
	{parser.DropIndex, V8_0_Instant}: dropIndex,
	{parser.DropIndex, V8_0_Full}:    dropIndex,
	{parser.DropIndex, V8_4_LTS}:     dropIndex,
}

// ClassifyChange looks up a single ALTER TABLE clause. Clauses outside the
// matrix are reported as DEPENDS.
func ClassifyChange(change parser.Change, v database.ServerVersion) Classification {
	if c, ok := ddlMatrix[matrixKey{change, classifyVersion(v)}]; ok {
		return c
	}
	return Classification{
		Algorithm: AlgoDepends,
		Lock:      LockDepends,
		Notes:     fmt.Sprintf("%s is not classified; check the MySQL online DDL docs.", change),
	}
}

// Classify combines the clauses of an ALTER TABLE into the most restrictive
// algorithm and lock among them. Statements other than ALTER TABLE, and
// servers that are not MySQL flavored, return nil.
func Classify(stmt *parser.Statement, v database.ServerVersion) *Classification {
	if stmt == nil || stmt.Kind != parser.AlterTable || len(stmt.Changes) == 0 {
		return nil
	}
	if v.Flavor == "postgres" || v.Flavor == "mariadb" {
		return nil
	}

	var result *Classification
	for _, change := range stmt.Changes {
		c := ClassifyChange(change, v)
		if result == nil {
			result = &c
			continue
		}
		if algorithmRank[c.Algorithm] > algorithmRank[result.Algorithm] {
			result.Algorithm = c.Algorithm
			result.Notes = c.Notes
		}
		if lockRank[c.Lock] > lockRank[result.Lock] {
			result.Lock = c.Lock
		}
		result.RebuildsTable = result.RebuildsTable || c.RebuildsTable
	}
	return result
}
