package operation

// ColumnOperation is one column change inside a TableOperation.
type ColumnOperation struct {
	Name    string
	Kind    Kind
	Options Options
}

// IndexOperation is one index change inside a TableOperation.
type IndexOperation struct {
	Name    string
	Kind    Kind
	Columns []string
	Options Options
}

// Unique reports whether the index enforces uniqueness.
func (i IndexOperation) Unique() bool {
	return i.Options.Bool("unique")
}

func (c ColumnOperation) clone() ColumnOperation {
	return ColumnOperation{Name: c.Name, Kind: c.Kind, Options: c.Options.Clone()}
}

func (i IndexOperation) clone() IndexOperation {
	return IndexOperation{
		Name:    i.Name,
		Kind:    i.Kind,
		Columns: append([]string(nil), i.Columns...),
		Options: i.Options.Clone(),
	}
}

func cloneColumns(columns []ColumnOperation) []ColumnOperation {
	out := make([]ColumnOperation, 0, len(columns))
	for _, c := range columns {
		out = append(out, c.clone())
	}
	return out
}

func cloneIndexes(indexes []IndexOperation) []IndexOperation {
	out := make([]IndexOperation, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, i.clone())
	}
	return out
}

func findColumn(columns []ColumnOperation, name string) int {
	for i, c := range columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func findIndex(indexes []IndexOperation, name string) int {
	for i, ix := range indexes {
		if ix.Name == name {
			return i
		}
	}
	return -1
}

func removeColumnAt(columns []ColumnOperation, i int) []ColumnOperation {
	out := make([]ColumnOperation, 0, len(columns)-1)
	out = append(out, columns[:i]...)
	return append(out, columns[i+1:]...)
}

func insertColumnAt(columns []ColumnOperation, i int, c ColumnOperation) []ColumnOperation {
	out := make([]ColumnOperation, 0, len(columns)+1)
	out = append(out, columns[:i]...)
	out = append(out, c)
	return append(out, columns[i:]...)
}

func removeIndexAt(indexes []IndexOperation, i int) []IndexOperation {
	out := make([]IndexOperation, 0, len(indexes)-1)
	out = append(out, indexes[:i]...)
	return append(out, indexes[i+1:]...)
}
