package operation

// ExecOperation runs a raw statement. It can be reduced (the later body wins)
// but has no rollback counterpart.
type ExecOperation struct {
	Name string
	Body string
}

func (e ExecOperation) Entity() string { return e.Name }
func (e ExecOperation) Action() Kind   { return Execute }
func (e ExecOperation) Type() string   { return "exec" }

// Apply keeps the name of e and the body of next.
func (e ExecOperation) Apply(next Operation) (Operation, error) {
	n, ok := next.(ExecOperation)
	if !ok || n.Name != e.Name || n.Action() != Execute {
		return nil, incompatible(e, next)
	}
	return ExecOperation{Name: e.Name, Body: n.Body}, nil
}
