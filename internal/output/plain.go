package output

import (
	"fmt"
	"io"

	"github.com/nethalo/dbshift/internal/database"
)

// PlainRenderer produces unformatted text output safe for piping.
type PlainRenderer struct {
	w io.Writer
}

func (r *PlainRenderer) RenderPlan(plan *Plan) {
	fmt.Fprintf(r.w, "=== dbshift — %s plan ===\n\n", plan.Direction)
	fmt.Fprintf(r.w, "Dialect:       %s\n", plan.Dialect)
	fmt.Fprintf(r.w, "Target:        %s\n", orLatest(plan.Target))
	fmt.Fprintf(r.w, "Reduced:       %v\n", plan.Reduced)
	fmt.Fprintf(r.w, "Statements:    %d\n", len(plan.Steps))

	for _, s := range plan.Steps {
		fmt.Fprintf(r.w, "\n--- %s %s ---\n", versionLabel(s.Version), s.Summary)
		if s.SQL == "" {
			fmt.Fprintln(r.w, "(no statement)")
		} else {
			fmt.Fprintln(r.w, s.SQL)
		}
		if s.Note != "" {
			fmt.Fprintf(r.w, "-- %s\n", s.Note)
		}
	}
}

func (r *PlainRenderer) RenderReport(report *Report) {
	fmt.Fprintf(r.w, "=== dbshift — %s ===\n\n", report.Direction)
	for _, res := range report.Results {
		fmt.Fprintf(r.w, "%-8s %s %s", resultStatus(res), versionLabel(res.Version), res.Entity)
		if !res.Skipped {
			fmt.Fprintf(r.w, " (%s rows, %s)", formatNumber(res.RowsAffected), formatDuration(res.Duration))
		}
		fmt.Fprintln(r.w)
		if res.Error != nil {
			fmt.Fprintf(r.w, "ERROR: %s\n", res.Error)
			fmt.Fprintf(r.w, "%s\n", res.SQL)
		}
	}
	fmt.Fprintln(r.w)

	outcome := "completed"
	if report.Failed() {
		outcome = "failed"
	}
	fmt.Fprintf(r.w, "Dialect:       %s\n", report.Dialect)
	fmt.Fprintf(r.w, "Outcome:       %s\n", outcome)
	fmt.Fprintf(r.w, "Versions:      %s\n", joinOrNone(report.Recorded))
	if report.Err != nil {
		fmt.Fprintf(r.w, "Error:         %s\n", report.Err)
	}
}

func (r *PlainRenderer) RenderStatus(rows []StatusRow) {
	fmt.Fprintf(r.w, "=== dbshift — Status ===\n\n")
	for _, row := range rows {
		state := "pending"
		if row.Applied {
			state = "applied"
		}
		if row.Description != "" {
			fmt.Fprintf(r.w, "%-8s %s  %s\n", state, row.Version, row.Description)
		} else {
			fmt.Fprintf(r.w, "%-8s %s\n", state, row.Version)
		}
	}
	fmt.Fprintf(r.w, "\nApplied:       %d/%d\n", appliedCount(rows), len(rows))
}

func (r *PlainRenderer) RenderServerInfo(conn Connection, info *database.ServerInfo) {
	fmt.Fprintf(r.w, "=== dbshift — Connection Info ===\n\n")
	fmt.Fprintf(r.w, "Connected to:  %s\n", conn.address())
	fmt.Fprintf(r.w, "Driver:        %s\n", info.Driver)
	fmt.Fprintf(r.w, "Version:       %s\n", info.Version.String())
	fmt.Fprintf(r.w, "Database:      %s\n", orNone(info.Database))
	fmt.Fprintf(r.w, "Read only:     %v\n", info.ReadOnly)
}
