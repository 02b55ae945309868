// Package migration loads migrations from YAML definition files. Each file
// is one version holding exactly one table, view, function, procedure or
// exec section; SQL bodies are text/templates rendered with the params the
// history was created with.
package migration

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nethalo/dbshift/internal/operation"
)

var (
	ErrInvalidDefinition = errors.New("invalid migration definition")
	ErrMissingContextKey = errors.New("missing context key")
)

// attributes is a YAML mapping carrying a name (and optionally a kind)
// next to free-form options.
type attributes map[string]any

// UnmarshalYAML keeps keys that YAML resolves to null, so that an unquoted
// `null: false` option survives as the "null" key.
func (a *attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(attributes, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: expected a scalar key", k.Line)
		}
		key := k.Value
		if k.Tag == "!!null" {
			key = "null"
		}
		if _, dup := out[key]; dup {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, key)
		}
		var value any
		if err := v.Decode(&value); err != nil {
			return err
		}
		out[key] = value
	}
	*a = out
	return nil
}

func (a attributes) name() string {
	if s, ok := a["name"].(string); ok {
		return s
	}
	return ""
}

func (a attributes) kind() string {
	if s, ok := a["kind"].(string); ok {
		return s
	}
	return ""
}

func (a attributes) options(drop ...string) operation.Options {
	opts := operation.Options{}
	for k, v := range a {
		opts[k] = v
	}
	for _, k := range append([]string{"name", "kind"}, drop...) {
		delete(opts, k)
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

type tableSection struct {
	Name    string       `yaml:"name"`
	Kind    string       `yaml:"kind"`
	Columns []attributes `yaml:"columns"`
	Indexes []attributes `yaml:"indexes"`
}

type viewSection struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	Body string `yaml:"body"`
}

type functionSection struct {
	Name          string       `yaml:"name"`
	Kind          string       `yaml:"kind"`
	Returns       attributes   `yaml:"returns"`
	Deterministic bool         `yaml:"deterministic"`
	DataUse       string       `yaml:"data_use"`
	Language      string       `yaml:"language"`
	Parameters    []attributes `yaml:"parameters"`
	Variables     []attributes `yaml:"variables"`
	Body          string       `yaml:"body"`
}

type procedureSection struct {
	Name          string       `yaml:"name"`
	Kind          string       `yaml:"kind"`
	Deterministic bool         `yaml:"deterministic"`
	DataUse       string       `yaml:"data_use"`
	Language      string       `yaml:"language"`
	In            []attributes `yaml:"in"`
	Out           []attributes `yaml:"out"`
	Body          string       `yaml:"body"`
}

type execSection struct {
	Name string `yaml:"name"`
	Body string `yaml:"body"`
}

type document struct {
	Description string            `yaml:"description"`
	Table       *tableSection     `yaml:"table"`
	View        *viewSection      `yaml:"view"`
	Function    *functionSection  `yaml:"function"`
	Procedure   *procedureSection `yaml:"procedure"`
	Exec        *execSection      `yaml:"exec"`
}

// Definition is one parsed migration file. It implements history.Migration.
type Definition struct {
	Version     string
	Path        string
	Description string

	doc  document
	body *body
}

// Parse decodes a definition for version from YAML.
func Parse(version string, data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, version, err)
	}

	d := &Definition{Version: version, Description: doc.Description, doc: doc}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", version, err)
	}

	var source string
	switch {
	case doc.View != nil:
		source = doc.View.Body
	case doc.Function != nil:
		source = doc.Function.Body
	case doc.Procedure != nil:
		source = doc.Procedure.Body
	case doc.Exec != nil:
		source = doc.Exec.Body
	}
	if source != "" {
		b, err := parseBody(version, source)
		if err != nil {
			return nil, err
		}
		d.body = b
	}
	return d, nil
}

func (d *Definition) validate() error {
	sections := 0
	for _, present := range []bool{d.doc.Table != nil, d.doc.View != nil, d.doc.Function != nil, d.doc.Procedure != nil, d.doc.Exec != nil} {
		if present {
			sections++
		}
	}
	if sections != 1 {
		return fmt.Errorf("%w: want exactly one of table, view, function, procedure or exec, got %d", ErrInvalidDefinition, sections)
	}

	switch {
	case d.doc.Table != nil:
		if d.doc.Table.Name == "" {
			return fmt.Errorf("%w: table without name", ErrInvalidDefinition)
		}
		for i, c := range d.doc.Table.Columns {
			if c.name() == "" {
				return fmt.Errorf("%w: column %d of table %s has no name", ErrInvalidDefinition, i, d.doc.Table.Name)
			}
		}
		for i, ix := range d.doc.Table.Indexes {
			if ix.name() == "" {
				return fmt.Errorf("%w: index %d of table %s has no name", ErrInvalidDefinition, i, d.doc.Table.Name)
			}
		}
	case d.doc.View != nil:
		if d.doc.View.Name == "" {
			return fmt.Errorf("%w: view without name", ErrInvalidDefinition)
		}
	case d.doc.Function != nil:
		if d.doc.Function.Name == "" {
			return fmt.Errorf("%w: function without name", ErrInvalidDefinition)
		}
	case d.doc.Procedure != nil:
		if d.doc.Procedure.Name == "" {
			return fmt.Errorf("%w: procedure without name", ErrInvalidDefinition)
		}
	case d.doc.Exec != nil:
		if strings.TrimSpace(d.doc.Exec.Body) == "" {
			return fmt.Errorf("%w: exec without body", ErrInvalidDefinition)
		}
	}
	return nil
}

// ExpectedContextKeys returns the params the SQL body reads, sorted.
func (d *Definition) ExpectedContextKeys() []string {
	return d.body.keys()
}

// Operation renders the definition into an operation.
func (d *Definition) Operation(params map[string]any) (operation.Operation, error) {
	var missing []string
	for _, k := range d.ExpectedContextKeys() {
		if _, ok := params[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingContextKey, strings.Join(missing, ", "))
	}

	rendered, err := d.body.render(params)
	if err != nil {
		return nil, err
	}

	switch {
	case d.doc.Table != nil:
		return d.table()
	case d.doc.View != nil:
		kind, err := parseKind(d.doc.View.Kind, operation.Create, operation.Create, operation.Alter, operation.Drop)
		if err != nil {
			return nil, err
		}
		return operation.ViewOperation{Name: d.doc.View.Name, Kind: kind, Body: rendered}, nil
	case d.doc.Function != nil:
		return d.function(rendered)
	case d.doc.Procedure != nil:
		return d.procedure(rendered)
	}

	name := d.doc.Exec.Name
	if name == "" {
		name = d.Version
	}
	return operation.ExecOperation{Name: name, Body: rendered}, nil
}

// parseKind maps s onto one of allowed, or def when s is empty.
func parseKind(s string, def operation.Kind, allowed ...operation.Kind) (operation.Kind, error) {
	if s == "" {
		return def, nil
	}
	k := operation.Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if k == a {
			return k, nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	return "", fmt.Errorf("%w: kind %q not one of %s", ErrInvalidDefinition, s, strings.Join(names, ", "))
}

func (d *Definition) table() (operation.Operation, error) {
	t := d.doc.Table
	kind, err := parseKind(t.Kind, operation.Create, operation.Create, operation.Alter, operation.Drop)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t.Name, err)
	}
	op := operation.TableOperation{Name: t.Name, Kind: kind}
	if kind == operation.Drop {
		return op, nil
	}

	for _, c := range t.Columns {
		ck, err := parseKind(c.kind(), operation.Add, operation.Add, operation.Modify, operation.Change, operation.Drop)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", t.Name, c.name(), err)
		}
		if kind == operation.Create && ck != operation.Add {
			return nil, fmt.Errorf("%w: table %s is created, column %s cannot be %s", ErrInvalidDefinition, t.Name, c.name(), ck)
		}
		op.Columns = append(op.Columns, operation.ColumnOperation{Name: c.name(), Kind: ck, Options: c.options()})
	}

	for _, ix := range t.Indexes {
		ik, err := parseKind(ix.kind(), operation.Add, operation.Add, operation.Drop)
		if err != nil {
			return nil, fmt.Errorf("table %s index %s: %w", t.Name, ix.name(), err)
		}
		op.Indexes = append(op.Indexes, operation.IndexOperation{
			Name:    ix.name(),
			Kind:    ik,
			Columns: operation.Options(ix).Strings("columns"),
			Options: ix.options("columns"),
		})
	}
	return op, nil
}

func parameters(defs []attributes) []operation.ParameterOperation {
	var out []operation.ParameterOperation
	for _, p := range defs {
		out = append(out, operation.ParameterOperation{Name: p.name(), Options: p.options()})
	}
	return out
}

func variables(defs []attributes) []operation.VariableOperation {
	var out []operation.VariableOperation
	for _, v := range defs {
		out = append(out, operation.VariableOperation{Name: v.name(), Options: v.options()})
	}
	return out
}

func dataUse(s string) (operation.DataUse, error) {
	switch u := operation.DataUse(strings.ToLower(s)); u {
	case "", operation.ContainsSQL, operation.NoSQL, operation.ReadsSQLData, operation.ModifiesSQLData:
		return u, nil
	}
	return "", fmt.Errorf("%w: data_use %q", ErrInvalidDefinition, s)
}

func language(s string) (operation.Language, error) {
	switch l := operation.Language(strings.ToLower(s)); l {
	case "", operation.SQL, operation.PlPgSQL:
		return l, nil
	}
	return "", fmt.Errorf("%w: language %q", ErrInvalidDefinition, s)
}

func (d *Definition) function(rendered string) (operation.Operation, error) {
	f := d.doc.Function
	kind, err := parseKind(f.Kind, operation.Create, operation.Create, operation.Replace, operation.Drop)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", f.Name, err)
	}
	if kind == operation.Drop {
		return operation.FunctionOperation{Name: f.Name, Kind: kind}, nil
	}

	use, err := dataUse(f.DataUse)
	if err != nil {
		return nil, err
	}
	lang, err := language(f.Language)
	if err != nil {
		return nil, err
	}
	returnType, _ := f.Returns["type"].(string)
	if returnType == "" {
		return nil, fmt.Errorf("%w: function %s has no return type", ErrInvalidDefinition, f.Name)
	}

	return operation.FunctionOperation{
		Name:          f.Name,
		Kind:          kind,
		ReturnType:    operation.ReturnTypeOperation{Type: returnType, Options: f.Returns.options("type")},
		Deterministic: f.Deterministic,
		DataUse:       use,
		Language:      lang,
		Parameters:    parameters(f.Parameters),
		Variables:     variables(f.Variables),
		Body:          rendered,
	}, nil
}

func (d *Definition) procedure(rendered string) (operation.Operation, error) {
	p := d.doc.Procedure
	kind, err := parseKind(p.Kind, operation.Create, operation.Create, operation.Drop)
	if err != nil {
		return nil, fmt.Errorf("procedure %s: %w", p.Name, err)
	}
	if kind == operation.Drop {
		return operation.ProcedureOperation{Name: p.Name, Kind: kind}, nil
	}

	use, err := dataUse(p.DataUse)
	if err != nil {
		return nil, err
	}
	lang, err := language(p.Language)
	if err != nil {
		return nil, err
	}
	return operation.ProcedureOperation{
		Name:          p.Name,
		Kind:          kind,
		Deterministic: p.Deterministic,
		DataUse:       use,
		Language:      lang,
		InParameters:  parameters(p.In),
		OutParameters: parameters(p.Out),
		Body:          rendered,
	}, nil
}

// Summary describes the definition, e.g. "table users (create)".
func (d *Definition) Summary() string {
	switch {
	case d.doc.Table != nil:
		return fmt.Sprintf("table %s (%s)", d.doc.Table.Name, orDefault(d.doc.Table.Kind, "create"))
	case d.doc.View != nil:
		return fmt.Sprintf("view %s (%s)", d.doc.View.Name, orDefault(d.doc.View.Kind, "create"))
	case d.doc.Function != nil:
		return fmt.Sprintf("function %s (%s)", d.doc.Function.Name, orDefault(d.doc.Function.Kind, "create"))
	case d.doc.Procedure != nil:
		return fmt.Sprintf("procedure %s (%s)", d.doc.Procedure.Name, orDefault(d.doc.Procedure.Kind, "create"))
	}
	return fmt.Sprintf("exec %s", orDefault(d.doc.Exec.Name, d.Version))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return strings.ToLower(s)
}

// sortedVersions returns the keys of defs in lexical order.
func sortedVersions(defs map[string]*Definition) []string {
	out := make([]string, 0, len(defs))
	for v := range defs {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
