// Package handler renders the operations of a history window and executes
// them one at a time against a database connection.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nethalo/dbshift/internal/builder"
	"github.com/nethalo/dbshift/internal/history"
	"github.com/nethalo/dbshift/internal/operation"
)

// Connection executes SQL for the handler.
type Connection interface {
	// DriverName returns the database/sql driver name, used to select
	// the statement builder.
	DriverName() string
	// Execute runs sql and returns the number of affected rows.
	Execute(ctx context.Context, sql string) (int64, error)
}

// Statement is one rendered operation of a plan.
type Statement struct {
	Version   string // empty when the plan was reduced
	Operation operation.Operation
	SQL       string // empty when there is nothing to execute
}

// Result is the outcome of executing one Statement.
type Result struct {
	Version      string
	Entity       string
	Success      bool
	Skipped      bool
	SQL          string
	RowsAffected int64
	Duration     time.Duration
	Error        *DriverError
}

// Planner renders history windows without touching a database.
type Planner struct {
	history *history.History
	builder builder.Builder
}

// NewPlanner returns a Planner rendering with b.
func NewPlanner(h *history.History, b builder.Builder) *Planner {
	return &Planner{history: h, builder: b}
}

// Builder returns the statement builder in use.
func (p *Planner) Builder() builder.Builder { return p.builder }

func appliedSet(applied []string) map[string]bool {
	set := make(map[string]bool, len(applied))
	for _, v := range applied {
		set[v] = true
	}
	return set
}

// firstPending returns the first registered version not in applied.
func (p *Planner) firstPending(applied map[string]bool) (string, bool) {
	for _, v := range p.history.Versions() {
		if !applied[v] {
			return v, true
		}
	}
	return "", false
}

// lastApplied returns the most recently registered version in applied.
func (p *Planner) lastApplied(applied map[string]bool) (string, bool) {
	versions := p.history.Versions()
	for i := len(versions) - 1; i >= 0; i-- {
		if applied[versions[i]] {
			return versions[i], true
		}
	}
	return "", false
}

// PendingVersions returns the versions Migrate would apply, in order.
func (p *Planner) PendingVersions(applied []string, target string) []string {
	set := appliedSet(applied)
	from, ok := p.firstPending(set)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range p.history.PlayWindow(from, target) {
		if !set[v] {
			out = append(out, v)
		}
	}
	return out
}

// RewindVersions returns the versions Rollback would revert, most recent
// first. Every applied version after target is reverted; an empty target
// reverts everything.
func (p *Planner) RewindVersions(applied []string, target string) []string {
	set := appliedSet(applied)
	from, ok := p.lastApplied(set)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range p.history.RewindWindow(from, target) {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

// PlanMigrate renders the operations that bring the database from applied
// up to target (or the last version when target is empty).
func (p *Planner) PlanMigrate(applied []string, target string, reduce bool) ([]Statement, error) {
	set := appliedSet(applied)
	from, ok := p.firstPending(set)
	if !ok {
		return nil, nil
	}
	steps, err := p.history.Play(from, target, false)
	if err != nil {
		return nil, err
	}
	return p.render(keep(steps, func(v string) bool { return !set[v] }), reduce)
}

// PlanRollback renders the operations that revert every applied version
// after target, most recent first. Unapplied versions in the window are
// never reversed, so an unapplied exec does not block the rollback.
func (p *Planner) PlanRollback(applied []string, target string, reduce bool) ([]Statement, error) {
	set := appliedSet(applied)
	from, ok := p.lastApplied(set)
	if !ok {
		return nil, nil
	}
	steps, err := p.history.RewindOnly(from, target, func(v string) bool { return set[v] }, false)
	if err != nil {
		return nil, err
	}
	return p.render(steps, reduce)
}

func keep(steps []history.Step, want func(version string) bool) []history.Step {
	out := steps[:0:0]
	for _, s := range steps {
		if want(s.Version) {
			out = append(out, s)
		}
	}
	return out
}

func (p *Planner) render(steps []history.Step, reduce bool) ([]Statement, error) {
	if reduce {
		var err error
		if steps, err = history.Reduce(steps); err != nil {
			return nil, err
		}
	}
	out := make([]Statement, 0, len(steps))
	for _, s := range steps {
		sql, err := p.builder.Build(s.Operation)
		if err != nil {
			if s.Version != "" {
				return nil, fmt.Errorf("version %s: %w", s.Version, err)
			}
			return nil, fmt.Errorf("%s %s: %w", s.Operation.Type(), s.Operation.Entity(), err)
		}
		out = append(out, Statement{Version: s.Version, Operation: s.Operation, SQL: sql})
	}
	return out, nil
}

// Handler executes plans sequentially and stops at the first failure. No
// transaction spans a run; statements that succeeded stay applied.
type Handler struct {
	*Planner
	conn   Connection
	logger *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger runs are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New returns a Handler executing through conn with the builder matching
// conn's driver.
func New(h *history.History, conn Connection, opts ...Option) (*Handler, error) {
	b, err := builder.ForDriver(conn.DriverName())
	if err != nil {
		return nil, err
	}
	hd := &Handler{
		Planner: NewPlanner(h, b),
		conn:    conn,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(hd)
	}
	return hd, nil
}

// Migrate applies the pending versions up to target. Rendering errors are
// returned before anything executes; a failing statement ends the run and
// is reported in the last Result.
func (h *Handler) Migrate(ctx context.Context, applied []string, target string, reduce bool) ([]Result, error) {
	stmts, err := h.PlanMigrate(applied, target, reduce)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, "migrate", stmts)
}

// Rollback reverts the applied versions after target, most recent first.
func (h *Handler) Rollback(ctx context.Context, applied []string, target string, reduce bool) ([]Result, error) {
	stmts, err := h.PlanRollback(applied, target, reduce)
	if err != nil {
		return nil, err
	}
	return h.run(ctx, "rollback", stmts)
}

func (h *Handler) run(ctx context.Context, direction string, stmts []Statement) ([]Result, error) {
	log := h.logger.With("run_id", uuid.NewString(), "direction", direction, "dialect", h.builder.Dialect())
	log.Info("run started", "operations", len(stmts))

	results := make([]Result, 0, len(stmts))
	for _, st := range stmts {
		if err := ctx.Err(); err != nil {
			log.Warn("run interrupted", "completed", len(results), "error", err)
			return results, err
		}

		res := Result{Version: st.Version, Entity: st.Operation.Entity(), SQL: st.SQL}
		if st.SQL == "" {
			res.Success, res.Skipped = true, true
			log.Debug("nothing to execute", "version", st.Version, "entity", res.Entity)
			results = append(results, res)
			continue
		}

		start := time.Now()
		rows, err := h.conn.Execute(ctx, st.SQL)
		res.Duration = time.Since(start)
		if err != nil {
			res.Error = NewDriverError(err)
			results = append(results, res)
			log.Error("statement failed",
				"version", st.Version,
				"entity", res.Entity,
				"sql", st.SQL,
				"code", res.Error.Code,
				"error", res.Error.Message,
			)
			return results, nil
		}

		res.Success = true
		res.RowsAffected = rows
		results = append(results, res)
		log.Info("statement applied",
			"version", st.Version,
			"entity", res.Entity,
			"rows", rows,
			"duration", res.Duration,
		)
	}

	log.Info("run finished", "operations", len(results))
	return results, nil
}

// Failed reports whether any result failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return true
		}
	}
	return false
}

// Completed returns the versions of window a run fully applied, given the
// results and the error it returned. Versions that rendered to nothing
// count as done once a later version ran or the run finished. A reduced
// run has no per-version results, so it completes all or nothing.
func Completed(window []string, results []Result, runErr error, reduced bool) []string {
	if runErr == nil && !Failed(results) {
		return append([]string(nil), window...)
	}
	if reduced {
		return nil
	}

	var done []string
	ri := 0
	for _, v := range window {
		if ri >= len(results) {
			break
		}
		if results[ri].Version != v {
			// Produced no statement; a later version already ran.
			done = append(done, v)
			continue
		}
		if !results[ri].Success {
			break
		}
		done = append(done, v)
		ri++
	}
	return done
}
