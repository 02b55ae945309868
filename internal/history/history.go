// Package history keeps an ordered registry of versioned migrations and
// walks it forward (Play) or backward (Rewind).
package history

import (
	"fmt"

	"github.com/nethalo/dbshift/internal/operation"
)

// Migration produces the operation for one version. params carries the
// caller's template context.
type Migration interface {
	Operation(params map[string]any) (operation.Operation, error)
}

// MigrationFunc adapts a function to the Migration interface.
type MigrationFunc func(params map[string]any) (operation.Operation, error)

// Operation calls f(params).
func (f MigrationFunc) Operation(params map[string]any) (operation.Operation, error) {
	return f(params)
}

// Static returns a Migration that always produces op.
func Static(op operation.Operation) Migration {
	return MigrationFunc(func(map[string]any) (operation.Operation, error) { return op, nil })
}

// Step is one operation of a traversal. Version is empty when the steps
// were reduced, since a folded operation no longer belongs to one version.
type Step struct {
	Version   string
	Operation operation.Operation
}

// History is an insertion-ordered registry of migrations.
type History struct {
	params     map[string]any
	versions   []string
	migrations map[string]Migration
}

// New returns an empty History whose migrations are produced with params.
func New(params map[string]any) *History {
	return &History{
		params:     params,
		migrations: make(map[string]Migration),
	}
}

// Add registers m under version. Registering an existing version replaces
// its migration but keeps its position.
func (h *History) Add(version string, m Migration) {
	if _, ok := h.migrations[version]; !ok {
		h.versions = append(h.versions, version)
	}
	h.migrations[version] = m
}

// Versions returns the registered versions in registration order.
func (h *History) Versions() []string {
	return append([]string(nil), h.versions...)
}

// Has reports whether version is registered.
func (h *History) Has(version string) bool {
	_, ok := h.migrations[version]
	return ok
}

// Len returns the number of registered versions.
func (h *History) Len() int { return len(h.versions) }

func (h *History) index(version string) int {
	if version == "" {
		return -1
	}
	for i, v := range h.versions {
		if v == version {
			return i
		}
	}
	return -1
}

func (h *History) produce(version string) (operation.Operation, error) {
	op, err := h.migrations[version].Operation(h.params)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", version, err)
	}
	if op == nil {
		return nil, fmt.Errorf("version %s: migration produced no operation", version)
	}
	return op, nil
}

// PlayWindow returns the versions Play(from, to) walks: from the first
// occurrence of from (or the start when from is empty or unknown) through
// the first occurrence of to (or the end when to is empty or unknown).
func (h *History) PlayWindow(from, to string) []string {
	start := h.index(from)
	if start < 0 {
		start = 0
	}
	end := h.index(to)
	if end < 0 {
		end = len(h.versions) - 1
	}
	if end < start {
		return nil
	}
	return append([]string(nil), h.versions[start:end+1]...)
}

// RewindWindow returns the versions Rewind(from, to) walks, most recent
// first: every version after to (or from the start when to is empty or
// unknown) up to and including from (or the last version when from is
// empty or unknown).
func (h *History) RewindWindow(from, to string) []string {
	end := h.index(from)
	if end < 0 {
		end = len(h.versions) - 1
	}
	start := h.index(to) + 1
	if end < start {
		return nil
	}
	out := make([]string, 0, end-start+1)
	for i := end; i >= start; i-- {
		out = append(out, h.versions[i])
	}
	return out
}

// Play returns the operations of the versions in PlayWindow(from, to) in
// registration order. With reduce, operations on the same entity are folded
// and the resulting steps carry no version.
func (h *History) Play(from, to string, reduce bool) ([]Step, error) {
	var steps []Step
	for _, v := range h.PlayWindow(from, to) {
		op, err := h.produce(v)
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Version: v, Operation: op})
	}
	if reduce {
		return Reduce(steps)
	}
	return steps, nil
}

// Rewind returns the rollback operations of the versions in
// RewindWindow(from, to), most recent first. Each operation is reversed
// against the reduced state of its entity just before that version.
func (h *History) Rewind(from, to string, reduce bool) ([]Step, error) {
	return h.RewindOnly(from, to, nil, reduce)
}

// RewindOnly is Rewind restricted to the window versions accepted by
// include; a nil include accepts every version. Skipped versions are not
// reversed but still count as prior state for the ones that are.
func (h *History) RewindOnly(from, to string, include func(version string) bool, reduce bool) ([]Step, error) {
	var window []string
	for _, v := range h.RewindWindow(from, to) {
		if include == nil || include(v) {
			window = append(window, v)
		}
	}
	if len(window) == 0 {
		return nil, nil
	}

	// Every version up to the newest one in the window is needed to
	// reconstruct prior state.
	last := h.index(window[0])
	ops := make([]operation.Operation, last+1)
	for i := 0; i <= last; i++ {
		op, err := h.produce(h.versions[i])
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}

	steps := make([]Step, 0, len(window))
	for _, v := range window {
		i := h.index(v)
		original, err := priorState(ops[:i], operation.KeyOf(ops[i]))
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", v, err)
		}
		reversed, err := operation.Invert(ops[i], original)
		if err != nil {
			return nil, fmt.Errorf("version %s: %w", v, err)
		}
		if reversed == nil {
			continue
		}
		steps = append(steps, Step{Version: v, Operation: reversed})
	}
	if reduce {
		return Reduce(steps)
	}
	return steps, nil
}

// priorState folds the operations on key and returns the net operation,
// or nil when the entity has no surviving history.
func priorState(ops []operation.Operation, key operation.Key) (operation.Operation, error) {
	var same []operation.Operation
	for _, op := range ops {
		if operation.KeyOf(op) == key {
			same = append(same, op)
		}
	}
	if len(same) == 0 {
		return nil, nil
	}
	reduced, err := operation.Reduce(same)
	if err != nil {
		return nil, err
	}
	if len(reduced) != 1 {
		return nil, nil
	}
	return reduced[0], nil
}

// Reduce folds the operations of steps per entity. The resulting steps
// carry no version.
func Reduce(steps []Step) ([]Step, error) {
	ops := make([]operation.Operation, 0, len(steps))
	for _, s := range steps {
		ops = append(ops, s.Operation)
	}
	reduced, err := operation.Reduce(ops)
	if err != nil {
		return nil, err
	}
	out := make([]Step, 0, len(reduced))
	for _, op := range reduced {
		out = append(out, Step{Operation: op})
	}
	return out, nil
}
