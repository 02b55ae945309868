package operation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func col(name string, kind Kind, opts Options) ColumnOperation {
	return ColumnOperation{Name: name, Kind: kind, Options: opts}
}

func usersCreate() TableOperation {
	return TableOperation{
		Name: "users",
		Kind: Create,
		Columns: []ColumnOperation{
			col("id", Add, Options{"type": "uuid", "primary": true}),
			col("username", Add, Options{"type": "string", "length": 64, "null": false}),
		},
	}
}

func mustApply(t *testing.T, current Reducible, next Operation) Operation {
	t.Helper()
	got, err := current.Apply(next)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	return got
}

func TestTableApply_CreateThenDropCancels(t *testing.T) {
	got := mustApply(t, usersCreate(), TableOperation{Name: "users", Kind: Drop})
	if got != nil {
		t.Errorf("Apply(drop) = %#v, want nil", got)
	}
}

func TestTableApply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		current TableOperation
		next    Operation
		want    error
	}{
		{
			name:    "different table",
			current: usersCreate(),
			next:    TableOperation{Name: "orders", Kind: Alter},
			want:    ErrIncompatibleEntity,
		},
		{
			name:    "different variant",
			current: usersCreate(),
			next:    ViewOperation{Name: "users", Kind: Create},
			want:    ErrIncompatibleEntity,
		},
		{
			name:    "create twice",
			current: usersCreate(),
			next:    usersCreate(),
			want:    ErrCannotRecreate,
		},
		{
			name:    "create over altered",
			current: TableOperation{Name: "users", Kind: Alter},
			next:    usersCreate(),
			want:    ErrCannotRecreate,
		},
		{
			name:    "alter after drop",
			current: TableOperation{Name: "users", Kind: Drop},
			next:    TableOperation{Name: "users", Kind: Alter},
			want:    ErrEntityAlreadyDropped,
		},
		{
			name:    "drop after drop",
			current: TableOperation{Name: "users", Kind: Drop},
			next:    TableOperation{Name: "users", Kind: Drop},
			want:    ErrEntityAlreadyDropped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.current.Apply(tt.next)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Apply() error = %v, want %v", err, tt.want)
			}
			if got != nil {
				t.Errorf("Apply() = %#v, want nil on error", got)
			}
		})
	}
}

func TestTableApply_CreateSplicesColumns(t *testing.T) {
	alter := TableOperation{
		Name: "users",
		Kind: Alter,
		Columns: []ColumnOperation{
			col("email", Add, Options{"type": "string"}),
			col("tenant", Add, Options{"type": "integer", "first": true}),
			col("nickname", Add, Options{"type": "string", "after": "id"}),
			col("username", Modify, Options{"length": 128}),
		},
		Indexes: []IndexOperation{
			{Name: "email_idx", Kind: Add, Columns: []string{"email"}, Options: Options{"unique": true}},
		},
	}

	got := mustApply(t, usersCreate(), alter)

	want := TableOperation{
		Name: "users",
		Kind: Create,
		Columns: []ColumnOperation{
			col("tenant", Add, Options{"type": "integer"}),
			col("id", Add, Options{"type": "uuid", "primary": true}),
			col("nickname", Add, Options{"type": "string"}),
			col("email", Add, Options{"type": "string"}),
			col("username", Add, Options{"type": "string", "length": 128, "null": false}),
		},
		Indexes: []IndexOperation{
			{Name: "email_idx", Kind: Add, Columns: []string{"email"}, Options: Options{"unique": true}},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_CreateDropsColumnAndPrunesIndexes(t *testing.T) {
	create := usersCreate()
	create.Indexes = []IndexOperation{
		{Name: "name_idx", Kind: Add, Columns: []string{"username"}},
		{Name: "pair_idx", Kind: Add, Columns: []string{"id", "username"}},
	}
	alter := TableOperation{
		Name:    "users",
		Kind:    Alter,
		Columns: []ColumnOperation{col("username", Drop, nil)},
	}

	got := mustApply(t, create, alter).(TableOperation)

	if len(got.Columns) != 1 || got.Columns[0].Name != "id" {
		t.Fatalf("Columns = %#v, want only id", got.Columns)
	}
	if _, ok := got.Index("name_idx"); ok {
		t.Error("name_idx should be removed once its only column is dropped")
	}
	pair, ok := got.Index("pair_idx")
	if !ok {
		t.Fatal("pair_idx should survive")
	}
	if diff := cmp.Diff([]string{"id"}, pair.Columns); diff != "" {
		t.Errorf("pair_idx columns mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_CreateRenamesColumn(t *testing.T) {
	create := usersCreate()
	create.Indexes = []IndexOperation{{Name: "name_idx", Kind: Add, Columns: []string{"username"}}}
	alter := TableOperation{
		Name:    "users",
		Kind:    Alter,
		Columns: []ColumnOperation{col("username", Change, Options{"new_name": "login", "after": "id"})},
	}

	got := mustApply(t, create, alter).(TableOperation)

	want := TableOperation{
		Name: "users",
		Kind: Create,
		Columns: []ColumnOperation{
			col("id", Add, Options{"type": "uuid", "primary": true}),
			col("login", Add, Options{"type": "string", "length": 64, "null": false}),
		},
		Indexes: []IndexOperation{{Name: "name_idx", Kind: Add, Columns: []string{"login"}}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_AlterMerges(t *testing.T) {
	first := TableOperation{
		Name: "users",
		Kind: Alter,
		Columns: []ColumnOperation{
			col("email", Add, Options{"type": "string"}),
			col("age", Modify, Options{"type": "integer"}),
			col("legacy", Drop, nil),
		},
		Indexes: []IndexOperation{
			{Name: "email_idx", Kind: Add, Columns: []string{"email"}},
		},
	}
	second := TableOperation{
		Name: "users",
		Kind: Alter,
		Columns: []ColumnOperation{
			col("email", Drop, nil),
			col("phone", Add, Options{"type": "string"}),
			col("age", Modify, Options{"type": "decimal"}),
			col("nickname", Modify, Options{"length": 32}),
			col("status", Drop, nil),
		},
		Indexes: []IndexOperation{
			{Name: "old_idx", Kind: Drop},
		},
	}

	got := mustApply(t, first, second)

	want := TableOperation{
		Name: "users",
		Kind: Alter,
		Columns: []ColumnOperation{
			col("legacy", Drop, nil),
			col("phone", Add, Options{"type": "string"}),
			col("age", Modify, Options{"type": "decimal"}),
			col("nickname", Modify, Options{"length": 32}),
			col("status", Drop, nil),
		},
		Indexes: []IndexOperation{
			{Name: "old_idx", Kind: Drop},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_AlterModifyKeepsAddKind(t *testing.T) {
	first := TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Add, Options{"type": "string"})}}
	second := TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Modify, Options{"type": "text"})}}

	got := mustApply(t, first, second).(TableOperation)

	if diff := cmp.Diff([]ColumnOperation{col("email", Add, Options{"type": "text"})}, got.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_AlterIndexAddThenDropCancels(t *testing.T) {
	first := TableOperation{Name: "users", Kind: Alter, Indexes: []IndexOperation{{Name: "email_idx", Kind: Add, Columns: []string{"email"}}}}
	second := TableOperation{Name: "users", Kind: Alter, Indexes: []IndexOperation{{Name: "email_idx", Kind: Drop}}}

	got := mustApply(t, first, second).(TableOperation)

	if len(got.Indexes) != 0 {
		t.Errorf("Indexes = %#v, want none", got.Indexes)
	}
}

func TestTableApply_AlterThenDropReplaces(t *testing.T) {
	first := TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Add, Options{"type": "string"})}}
	drop := TableOperation{Name: "users", Kind: Drop}

	got := mustApply(t, first, drop)

	if diff := cmp.Diff(Operation(drop), got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableApply_GroupingDoesNotMatter(t *testing.T) {
	a := TableOperation{Name: "users", Kind: Create, Columns: []ColumnOperation{col("id", Add, Options{"type": "integer"})}}
	b := TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Add, Options{"type": "string"})}}
	cases := map[string]TableOperation{
		"positioned add": {Name: "users", Kind: Alter, Columns: []ColumnOperation{col("name", Add, Options{"type": "string", "after": "id"})}},
		"drop":           {Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Drop, nil)}},
		"modify":         {Name: "users", Kind: Alter, Columns: []ColumnOperation{col("email", Modify, Options{"type": "text"})}},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			left := mustApply(t, mustApply(t, a, b).(TableOperation), c)
			right := mustApply(t, a, mustApply(t, b, c))
			if diff := cmp.Diff(left, right, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("(a·b)·c != a·(b·c) (-left +right):\n%s", diff)
			}
		})
	}
}

func TestTableApply_DoesNotMutateInputs(t *testing.T) {
	create := usersCreate()
	alter := TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{col("username", Modify, Options{"first": true, "length": 10})}}

	_ = mustApply(t, create, alter)

	if diff := cmp.Diff(usersCreate(), create); diff != "" {
		t.Errorf("current mutated (-want +got):\n%s", diff)
	}
	if !alter.Columns[0].Options.Has("first") {
		t.Error("incoming options mutated: first was stripped in place")
	}
}

func TestTableReverse(t *testing.T) {
	original := TableOperation{
		Name: "users",
		Kind: Create,
		Columns: []ColumnOperation{
			col("id", Add, Options{"type": "uuid", "primary": true}),
			col("username", Add, Options{"type": "string", "length": 64}),
			col("bio", Add, Options{"type": "text"}),
		},
		Indexes: []IndexOperation{{Name: "name_idx", Kind: Add, Columns: []string{"username"}}},
	}

	tests := []struct {
		name     string
		op       TableOperation
		original Operation
		want     Operation
		wantErr  error
	}{
		{
			name: "create becomes drop",
			op:   original,
			want: TableOperation{Name: "users", Kind: Drop},
		},
		{
			name:     "drop restores original",
			op:       TableOperation{Name: "users", Kind: Drop},
			original: original,
			want:     original,
		},
		{
			name: "alter adding a column drops exactly that column",
			op: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("email", Add, Options{"type": "string"}),
			}},
			original: original,
			want: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("email", Drop, nil),
			}},
		},
		{
			// the original column record is restored unchanged, kind included
			name: "dropped column restores the original record",
			op: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("bio", Drop, nil),
			}},
			original: original,
			want: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("bio", Add, Options{"type": "text"}),
			}},
		},
		{
			name: "modify restores original options",
			op: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("username", Modify, Options{"type": "string", "length": 255}),
			}},
			original: original,
			want: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("username", Modify, Options{"type": "string", "length": 64}),
			}},
		},
		{
			name: "change renames back",
			op: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("username", Change, Options{"new_name": "login", "type": "string", "length": 64}),
			}},
			original: original,
			want: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("login", Change, Options{"new_name": "username", "type": "string", "length": 64}),
			}},
		},
		{
			name: "indexes",
			op: TableOperation{Name: "users", Kind: Alter, Indexes: []IndexOperation{
				{Name: "bio_idx", Kind: Add, Columns: []string{"bio"}},
				{Name: "name_idx", Kind: Drop},
			}},
			original: original,
			want: TableOperation{Name: "users", Kind: Alter, Indexes: []IndexOperation{
				{Name: "bio_idx", Kind: Drop},
				{Name: "name_idx", Kind: Add, Columns: []string{"username"}},
			}},
		},
		{
			name: "dropping an unknown column",
			op: TableOperation{Name: "users", Kind: Alter, Columns: []ColumnOperation{
				col("ghost", Drop, nil),
			}},
			original: original,
			wantErr:  ErrCannotRevertMissingEntity,
		},
		{
			name: "dropping an unknown index",
			op: TableOperation{Name: "users", Kind: Alter, Indexes: []IndexOperation{
				{Name: "ghost_idx", Kind: Drop},
			}},
			original: original,
			wantErr:  ErrCannotRevertMissingEntity,
		},
		{
			name:    "alter without original",
			op:      TableOperation{Name: "users", Kind: Alter},
			wantErr: ErrCannotRevertMissingEntity,
		},
		{
			name:     "original for another table",
			op:       TableOperation{Name: "users", Kind: Alter},
			original: TableOperation{Name: "orders", Kind: Create},
			wantErr:  ErrIncompatibleEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Reverse(tt.original)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Reverse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Reverse() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Reverse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
