package operation

import (
	"errors"
	"fmt"
)

// Kind is the lifecycle transition an operation applies to its entity.
type Kind string

const (
	Create  Kind = "create"
	Alter   Kind = "alter"
	Drop    Kind = "drop"
	Add     Kind = "add"
	Modify  Kind = "modify"
	Change  Kind = "change"
	Replace Kind = "replace"
	Execute Kind = "execute"
)

// Operation describes one schema change to one named entity.
// Implementations are values and are never mutated after construction.
type Operation interface {
	// Entity returns the name of the entity the operation targets.
	Entity() string
	// Action returns the lifecycle transition.
	Action() Kind
	// Type names the entity variant ("table", "view", ...).
	Type() string
}

// Reducible operations can absorb a later operation on the same entity.
// A nil Operation with a nil error means the two cancel out.
type Reducible interface {
	Operation
	Apply(next Operation) (Operation, error)
}

// Reversible operations can produce their rollback counterpart given the
// entity state immediately before them (nil when unknown).
type Reversible interface {
	Operation
	Reverse(original Operation) (Operation, error)
}

var (
	ErrIncompatibleEntity        = errors.New("incompatible entity")
	ErrCannotRecreate            = errors.New("cannot recreate existing entity")
	ErrEntityAlreadyDropped      = errors.New("entity already dropped")
	ErrCannotRevertMissingEntity = errors.New("cannot revert missing entity")
	ErrIrreversible              = errors.New("operation is not reversible")
)

func incompatible(current, next Operation) error {
	return fmt.Errorf("%w: %s %q cannot combine with %s %q",
		ErrIncompatibleEntity, current.Type(), current.Entity(), next.Type(), next.Entity())
}

func alreadyDropped(op Operation) error {
	return fmt.Errorf("%w: %s %q", ErrEntityAlreadyDropped, op.Type(), op.Entity())
}

func recreate(op Operation) error {
	return fmt.Errorf("%w: %s %q", ErrCannotRecreate, op.Type(), op.Entity())
}

func missing(op Operation, what, name string) error {
	return fmt.Errorf("%w: %s %q has no prior %s %q", ErrCannotRevertMissingEntity, op.Type(), op.Entity(), what, name)
}

// checkOriginal verifies that original, when given, targets the same entity.
func checkOriginal(op, original Operation) error {
	if original != nil && (original.Entity() != op.Entity() || original.Type() != op.Type()) {
		return incompatible(op, original)
	}
	return nil
}

// Key identifies an entity across operations.
type Key struct {
	Type string
	Name string
}

// KeyOf returns the entity key of op.
func KeyOf(op Operation) Key {
	return Key{Type: op.Type(), Name: op.Entity()}
}

// Reduce folds ops into their net effect per entity. Surviving operations are
// returned in the order their entity was first seen; an entity whose
// operations cancel out is removed and re-enters at the end if seen again.
// Entities are keyed by type and name, so a table and a view sharing a name
// are folded separately.
func Reduce(ops []Operation) ([]Operation, error) {
	var order []Key
	current := make(map[Key]Operation, len(ops))

	for _, op := range ops {
		key := KeyOf(op)
		existing, ok := current[key]
		if !ok {
			current[key] = op
			order = append(order, key)
			continue
		}

		reducible, ok := existing.(Reducible)
		if !ok {
			return nil, incompatible(existing, op)
		}
		merged, err := reducible.Apply(op)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			delete(current, key)
			order = removeKey(order, key)
			continue
		}
		current[key] = merged
	}

	out := make([]Operation, 0, len(order))
	for _, key := range order {
		out = append(out, current[key])
	}
	return out, nil
}

func removeKey(keys []Key, key Key) []Key {
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Invert returns the rollback counterpart of op given its prior state.
func Invert(op, original Operation) (Operation, error) {
	reversible, ok := op.(Reversible)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrIrreversible, op.Type(), op.Entity())
	}
	return reversible.Reverse(original)
}
