package migration

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
	"text/template/parse"
)

// body is a templated SQL fragment rendered with the history params.
type body struct {
	source string
	tmpl   *template.Template
}

func parseBody(name, source string) (*body, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, name, err)
	}
	return &body{source: source, tmpl: t}, nil
}

func (b *body) render(params map[string]any) (string, error) {
	if b == nil {
		return "", nil
	}
	if params == nil {
		params = map[string]any{}
	}
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("rendering %s: %w", b.tmpl.Name(), err)
	}
	return buf.String(), nil
}

// keys returns the top-level context keys the template reads.
func (b *body) keys() []string {
	if b == nil || b.tmpl.Tree == nil {
		return nil
	}
	seen := map[string]bool{}
	collectKeys(b.tmpl.Tree.Root, seen)
	for _, t := range b.tmpl.Templates() {
		if t != b.tmpl && t.Tree != nil {
			collectKeys(t.Tree.Root, seen)
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// collectKeys walks n recording fields read from the root context. Inside
// range and with blocks dot is rebound, so only $-rooted fields count there.
func collectKeys(n parse.Node, seen map[string]bool) {
	walk(n, seen, true)
}

func walk(n parse.Node, seen map[string]bool, rootDot bool) {
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			walk(c, seen, rootDot)
		}
	case *parse.ActionNode:
		walk(n.Pipe, seen, rootDot)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			walk(c, seen, rootDot)
		}
	case *parse.CommandNode:
		for _, a := range n.Args {
			walk(a, seen, rootDot)
		}
	case *parse.FieldNode:
		if rootDot && len(n.Ident) > 0 {
			seen[n.Ident[0]] = true
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = true
		}
	case *parse.ChainNode:
		walk(n.Node, seen, rootDot)
	case *parse.IfNode:
		walk(n.Pipe, seen, rootDot)
		walk(n.List, seen, rootDot)
		walk(n.ElseList, seen, rootDot)
	case *parse.RangeNode:
		walk(n.Pipe, seen, rootDot)
		walk(n.List, seen, false)
		walk(n.ElseList, seen, rootDot)
	case *parse.WithNode:
		walk(n.Pipe, seen, rootDot)
		walk(n.List, seen, false)
		walk(n.ElseList, seen, rootDot)
	case *parse.TemplateNode:
		walk(n.Pipe, seen, rootDot)
	}
}
