package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/nethalo/dbshift/internal/database"
)

// MarkdownRenderer produces markdown output for documentation/tickets.
type MarkdownRenderer struct {
	w io.Writer
}

func (r *MarkdownRenderer) RenderPlan(plan *Plan) {
	fmt.Fprintf(r.w, "# dbshift — %s plan\n\n", plan.Direction)
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Dialect | %s |\n", plan.Dialect)
	fmt.Fprintf(r.w, "| Target | %s |\n", orLatest(plan.Target))
	fmt.Fprintf(r.w, "| Reduced | %v |\n", plan.Reduced)
	fmt.Fprintf(r.w, "| Statements | %d |\n\n", len(plan.Steps))

	for _, s := range plan.Steps {
		fmt.Fprintf(r.w, "## %s — %s\n\n", versionLabel(s.Version), s.Summary)
		if s.SQL == "" {
			fmt.Fprintf(r.w, "*No statement.*\n\n")
		} else {
			fmt.Fprintf(r.w, "```sql\n%s\n```\n\n", s.SQL)
		}
		if s.Note != "" {
			fmt.Fprintf(r.w, "> %s\n\n", s.Note)
		}
	}
}

func (r *MarkdownRenderer) RenderReport(report *Report) {
	icon, outcome := "✅", "Completed"
	if report.Failed() {
		icon, outcome = "❌", "Failed"
	}
	fmt.Fprintf(r.w, "# dbshift — %s\n\n", report.Direction)
	fmt.Fprintf(r.w, "**%s %s** on %s\n\n", icon, outcome, report.Dialect)
	if report.Err != nil {
		fmt.Fprintf(r.w, "**Error:** %s\n\n", report.Err)
	}

	fmt.Fprintf(r.w, "| Version | Entity | Status | Rows | Duration |\n|---|---|---|---|---|\n")
	for _, res := range report.Results {
		fmt.Fprintf(r.w, "| %s | `%s` | %s | %s | %s |\n",
			versionLabel(res.Version), res.Entity, resultStatus(res), formatNumber(res.RowsAffected), formatDuration(res.Duration))
	}
	fmt.Fprintln(r.w)

	for _, res := range report.Results {
		if res.Error == nil {
			continue
		}
		fmt.Fprintf(r.w, "## Failure in %s\n\n", versionLabel(res.Version))
		fmt.Fprintf(r.w, "%s\n\n```sql\n%s\n```\n\n", res.Error, res.SQL)
	}

	if len(report.Recorded) > 0 {
		fmt.Fprintf(r.w, "**Versions:** %s\n", strings.Join(report.Recorded, ", "))
	}
}

func (r *MarkdownRenderer) RenderStatus(rows []StatusRow) {
	fmt.Fprintf(r.w, "# dbshift — Status\n\n")
	fmt.Fprintf(r.w, "| Version | Applied | Description |\n|---|---|---|\n")
	for _, row := range rows {
		applied := "no"
		if row.Applied {
			applied = "yes"
		}
		fmt.Fprintf(r.w, "| `%s` | %s | %s |\n", row.Version, applied, row.Description)
	}
	fmt.Fprintf(r.w, "\n%d of %d applied.\n", appliedCount(rows), len(rows))
}

func (r *MarkdownRenderer) RenderServerInfo(conn Connection, info *database.ServerInfo) {
	fmt.Fprintf(r.w, "# dbshift — Connection Info\n\n")
	fmt.Fprintf(r.w, "| Property | Value |\n|---|---|\n")
	fmt.Fprintf(r.w, "| Host | `%s` |\n", conn.address())
	fmt.Fprintf(r.w, "| Driver | %s |\n", info.Driver)
	fmt.Fprintf(r.w, "| Version | %s |\n", info.Version.String())
	fmt.Fprintf(r.w, "| Database | %s |\n", orNone(info.Database))
	fmt.Fprintf(r.w, "| Read only | %v |\n", info.ReadOnly)
}
