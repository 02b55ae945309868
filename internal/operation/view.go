package operation

// ViewOperation creates, alters or drops a view.
type ViewOperation struct {
	Name string
	Kind Kind
	Body string
}

func (v ViewOperation) Entity() string { return v.Name }
func (v ViewOperation) Action() Kind   { return v.Kind }
func (v ViewOperation) Type() string   { return "view" }

// Apply merges next into v. The result keeps v's kind and takes next's body.
func (v ViewOperation) Apply(next Operation) (Operation, error) {
	n, ok := next.(ViewOperation)
	if !ok || n.Name != v.Name {
		return nil, incompatible(v, next)
	}
	if v.Kind == Drop {
		return nil, alreadyDropped(v)
	}
	switch n.Kind {
	case Create:
		return nil, recreate(v)
	case Drop:
		if v.Kind == Create {
			return nil, nil
		}
		return n, nil
	}
	return ViewOperation{Name: v.Name, Kind: v.Kind, Body: n.Body}, nil
}

// Reverse returns the operation undoing v. An ALTER without a known prior
// definition has nothing to return to and yields nil.
func (v ViewOperation) Reverse(original Operation) (Operation, error) {
	if err := checkOriginal(v, original); err != nil {
		return nil, err
	}
	switch v.Kind {
	case Create:
		return ViewOperation{Name: v.Name, Kind: Drop}, nil
	case Drop:
		return original, nil
	}
	o, ok := original.(ViewOperation)
	if !ok {
		return nil, nil
	}
	return ViewOperation{Name: v.Name, Kind: Alter, Body: o.Body}, nil
}
