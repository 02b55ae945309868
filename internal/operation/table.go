package operation

// TableOperation creates, alters or drops a table.
type TableOperation struct {
	Name    string
	Kind    Kind
	Columns []ColumnOperation
	Indexes []IndexOperation
}

func (t TableOperation) Entity() string { return t.Name }
func (t TableOperation) Action() Kind   { return t.Kind }
func (t TableOperation) Type() string   { return "table" }

// Column returns the column operation named name.
func (t TableOperation) Column(name string) (ColumnOperation, bool) {
	if i := findColumn(t.Columns, name); i >= 0 {
		return t.Columns[i], true
	}
	return ColumnOperation{}, false
}

// Index returns the index operation named name.
func (t TableOperation) Index(name string) (IndexOperation, bool) {
	if i := findIndex(t.Indexes, name); i >= 0 {
		return t.Indexes[i], true
	}
	return IndexOperation{}, false
}

// Apply merges next into t.
func (t TableOperation) Apply(next Operation) (Operation, error) {
	n, ok := next.(TableOperation)
	if !ok || n.Name != t.Name {
		return nil, incompatible(t, next)
	}
	if t.Kind == Drop {
		return nil, alreadyDropped(t)
	}

	if t.Kind == Create {
		switch n.Kind {
		case Create:
			return nil, recreate(t)
		case Drop:
			return nil, nil
		}
		return t.spliceCreate(n), nil
	}

	switch n.Kind {
	case Drop:
		return n, nil
	case Create:
		return nil, recreate(t)
	}
	return t.mergeAlter(n), nil
}

// spliceCreate folds an alteration into a pending CREATE: the result is still
// a CREATE whose column list reflects positioning hints.
func (t TableOperation) spliceCreate(n TableOperation) TableOperation {
	columns := cloneColumns(t.Columns)
	renamed := map[string]string{}

	for _, c := range n.Columns {
		offset := len(columns)
		if c.Options.Bool("first") {
			offset = 0
		} else if after := c.Options.String("after"); after != "" {
			if i := findColumn(columns, after); i >= 0 {
				offset = i + 1
			}
		}

		var existing Options
		if i := findColumn(columns, c.Name); i >= 0 {
			existing = columns[i].Options
			columns = removeColumnAt(columns, i)
			if i < offset {
				offset--
			}
		}
		if c.Kind == Drop {
			continue
		}

		opts := existing.Merge(c.Options).Without("first", "after")
		name := c.Name
		if c.Kind == Change {
			if newName := opts.String("new_name"); newName != "" {
				renamed[c.Name] = newName
				name = newName
			}
			opts = opts.Without("new_name")
		}
		columns = insertColumnAt(columns, offset, ColumnOperation{Name: name, Kind: Add, Options: opts})
	}

	indexes := cloneIndexes(t.Indexes)
	for _, ix := range n.Indexes {
		if i := findIndex(indexes, ix.Name); i >= 0 {
			indexes = removeIndexAt(indexes, i)
		}
		if ix.Kind == Add {
			indexes = append(indexes, ix.clone())
		}
	}
	indexes = renameIndexColumns(indexes, renamed)

	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c.Name] = true
	}
	return TableOperation{
		Name:    t.Name,
		Kind:    Create,
		Columns: columns,
		Indexes: pruneIndexes(indexes, func(col string) bool { return present[col] }),
	}
}

// mergeAlter folds two alterations of an existing table.
func (t TableOperation) mergeAlter(n TableOperation) TableOperation {
	columns := cloneColumns(t.Columns)
	gone := map[string]bool{}
	renamed := map[string]string{}

	for _, c := range n.Columns {
		var previous Kind
		var previousOpts Options
		if i := findColumn(columns, c.Name); i >= 0 {
			previous = columns[i].Kind
			previousOpts = columns[i].Options
			columns = removeColumnAt(columns, i)
		}

		switch c.Kind {
		case Drop:
			gone[c.Name] = true
			if previous == Add {
				continue
			}
			columns = append(columns, c.clone())
		case Modify:
			kind := previous
			if kind == "" {
				kind = Modify
			}
			columns = append(columns, ColumnOperation{Name: c.Name, Kind: kind, Options: c.Options.Clone()})
		case Change:
			if previous == Add {
				// the column is new in this window: fold the rename into the ADD
				opts := previousOpts.Merge(c.Options)
				name := c.Name
				if newName := opts.String("new_name"); newName != "" {
					name = newName
					renamed[c.Name] = newName
				}
				columns = append(columns, ColumnOperation{Name: name, Kind: Add, Options: opts.Without("new_name")})
				continue
			}
			columns = append(columns, c.clone())
		default:
			delete(gone, c.Name)
			columns = append(columns, c.clone())
		}
	}

	indexes := cloneIndexes(t.Indexes)
	for _, ix := range n.Indexes {
		var previous Kind
		if i := findIndex(indexes, ix.Name); i >= 0 {
			previous = indexes[i].Kind
			indexes = removeIndexAt(indexes, i)
		}
		if ix.Kind == Drop && previous == Add {
			continue
		}
		indexes = append(indexes, ix.clone())
	}
	indexes = renameIndexColumns(indexes, renamed)

	return TableOperation{
		Name:    t.Name,
		Kind:    t.Kind,
		Columns: columns,
		Indexes: pruneIndexes(indexes, func(col string) bool { return !gone[col] }),
	}
}

// pruneIndexes restricts every index to the columns that keep exists, and
// discards ADD indexes left without columns.
func pruneIndexes(indexes []IndexOperation, keep func(string) bool) []IndexOperation {
	out := make([]IndexOperation, 0, len(indexes))
	for _, ix := range indexes {
		if ix.Kind == Drop {
			out = append(out, ix)
			continue
		}
		columns := make([]string, 0, len(ix.Columns))
		for _, col := range ix.Columns {
			if keep(col) {
				columns = append(columns, col)
			}
		}
		if len(columns) == 0 {
			continue
		}
		ix.Columns = columns
		out = append(out, ix)
	}
	return out
}

func renameIndexColumns(indexes []IndexOperation, renamed map[string]string) []IndexOperation {
	if len(renamed) == 0 {
		return indexes
	}
	for i := range indexes {
		for j, col := range indexes[i].Columns {
			if newName, ok := renamed[col]; ok {
				indexes[i].Columns[j] = newName
			}
		}
	}
	return indexes
}

// Reverse returns the operation undoing t. original is the reduced table
// state right before t.
func (t TableOperation) Reverse(original Operation) (Operation, error) {
	if err := checkOriginal(t, original); err != nil {
		return nil, err
	}
	switch t.Kind {
	case Create:
		return TableOperation{Name: t.Name, Kind: Drop}, nil
	case Drop:
		return original, nil
	}

	o, ok := original.(TableOperation)
	if !ok {
		return nil, missing(t, "table", t.Name)
	}

	columns := make([]ColumnOperation, 0, len(t.Columns))
	for _, c := range t.Columns {
		prev, found := o.Column(c.Name)
		switch c.Kind {
		case Add:
			columns = append(columns, ColumnOperation{Name: c.Name, Kind: Drop})
		case Drop:
			if !found {
				return nil, missing(t, "column", c.Name)
			}
			columns = append(columns, prev.clone())
		case Modify:
			if !found {
				return nil, missing(t, "column", c.Name)
			}
			columns = append(columns, ColumnOperation{Name: c.Name, Kind: Modify, Options: prev.Options.Without("first", "after")})
		case Change:
			if !found {
				return nil, missing(t, "column", c.Name)
			}
			current := c.Options.String("new_name")
			if current == "" {
				current = c.Name
			}
			opts := prev.Options.Without("first", "after", "new_name").Merge(Options{"new_name": c.Name})
			columns = append(columns, ColumnOperation{Name: current, Kind: Change, Options: opts})
		}
	}

	indexes := make([]IndexOperation, 0, len(t.Indexes))
	for _, ix := range t.Indexes {
		switch ix.Kind {
		case Add:
			indexes = append(indexes, IndexOperation{Name: ix.Name, Kind: Drop})
		case Drop:
			prev, found := o.Index(ix.Name)
			if !found {
				return nil, missing(t, "index", ix.Name)
			}
			indexes = append(indexes, prev.clone())
		}
	}

	return TableOperation{Name: t.Name, Kind: Alter, Columns: columns, Indexes: indexes}, nil
}
