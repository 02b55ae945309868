package operation

// DataUse declares how a routine touches data.
type DataUse string

const (
	ContainsSQL     DataUse = "contains_sql"
	NoSQL           DataUse = "no_sql"
	ReadsSQLData    DataUse = "reads_sql_data"
	ModifiesSQLData DataUse = "modifies_sql_data"
)

// Language is the routine body language.
type Language string

const (
	SQL     Language = "sql"
	PlPgSQL Language = "plpgsql"
)

// ParameterOperation declares one routine parameter.
type ParameterOperation struct {
	Name    string
	Options Options
}

// VariableOperation declares one local routine variable.
type VariableOperation struct {
	Name    string
	Options Options
}

// ReturnTypeOperation declares a function's return type.
type ReturnTypeOperation struct {
	Type    string
	Options Options
}

// TypeOptions returns the options describing the return type, with the
// type keyword under "type".
func (r ReturnTypeOperation) TypeOptions() Options {
	return r.Options.Merge(Options{"type": r.Type})
}

func cloneParameters(params []ParameterOperation) []ParameterOperation {
	if params == nil {
		return nil
	}
	out := make([]ParameterOperation, 0, len(params))
	for _, p := range params {
		out = append(out, ParameterOperation{Name: p.Name, Options: p.Options.Clone()})
	}
	return out
}

func cloneVariables(vars []VariableOperation) []VariableOperation {
	if vars == nil {
		return nil
	}
	out := make([]VariableOperation, 0, len(vars))
	for _, v := range vars {
		out = append(out, VariableOperation{Name: v.Name, Options: v.Options.Clone()})
	}
	return out
}

// FunctionOperation creates, replaces or drops a stored function.
type FunctionOperation struct {
	Name          string
	Kind          Kind
	ReturnType    ReturnTypeOperation
	Deterministic bool
	DataUse       DataUse
	Language      Language
	Parameters    []ParameterOperation
	Variables     []VariableOperation
	Body          string
}

func (f FunctionOperation) Entity() string { return f.Name }
func (f FunctionOperation) Action() Kind   { return f.Kind }
func (f FunctionOperation) Type() string   { return "function" }

func (f FunctionOperation) withKind(kind Kind) FunctionOperation {
	f.Kind = kind
	f.ReturnType = ReturnTypeOperation{Type: f.ReturnType.Type, Options: f.ReturnType.Options.Clone()}
	f.Parameters = cloneParameters(f.Parameters)
	f.Variables = cloneVariables(f.Variables)
	return f
}

// Apply merges next into f. A replacement overwrites the whole definition
// while keeping f's kind.
func (f FunctionOperation) Apply(next Operation) (Operation, error) {
	n, ok := next.(FunctionOperation)
	if !ok || n.Name != f.Name {
		return nil, incompatible(f, next)
	}
	if f.Kind == Drop {
		return nil, alreadyDropped(f)
	}
	switch n.Kind {
	case Create:
		return nil, recreate(f)
	case Drop:
		return nil, nil
	}
	return n.withKind(f.Kind), nil
}

// Reverse returns the operation undoing f.
func (f FunctionOperation) Reverse(original Operation) (Operation, error) {
	if err := checkOriginal(f, original); err != nil {
		return nil, err
	}
	switch f.Kind {
	case Create:
		return FunctionOperation{Name: f.Name, Kind: Drop}, nil
	case Drop:
		return original, nil
	}
	o, ok := original.(FunctionOperation)
	if !ok {
		return nil, nil
	}
	return o.withKind(Replace), nil
}

// ProcedureOperation creates or drops a stored procedure.
type ProcedureOperation struct {
	Name          string
	Kind          Kind
	Deterministic bool
	DataUse       DataUse
	Language      Language
	InParameters  []ParameterOperation
	OutParameters []ParameterOperation
	Body          string
}

func (p ProcedureOperation) Entity() string { return p.Name }
func (p ProcedureOperation) Action() Kind   { return p.Kind }
func (p ProcedureOperation) Type() string   { return "procedure" }

// Apply merges next into p.
func (p ProcedureOperation) Apply(next Operation) (Operation, error) {
	n, ok := next.(ProcedureOperation)
	if !ok || n.Name != p.Name {
		return nil, incompatible(p, next)
	}
	if p.Kind == Drop {
		return nil, alreadyDropped(p)
	}
	switch n.Kind {
	case Create:
		return nil, recreate(p)
	case Drop:
		return nil, nil
	}
	n.Kind = p.Kind
	n.InParameters = cloneParameters(n.InParameters)
	n.OutParameters = cloneParameters(n.OutParameters)
	return n, nil
}

// Reverse returns the operation undoing p.
func (p ProcedureOperation) Reverse(original Operation) (Operation, error) {
	if err := checkOriginal(p, original); err != nil {
		return nil, err
	}
	switch p.Kind {
	case Create:
		return ProcedureOperation{Name: p.Name, Kind: Drop}, nil
	case Drop:
		return original, nil
	}
	return original, nil
}
