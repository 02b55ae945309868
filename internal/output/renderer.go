package output

import (
	"io"
	"time"

	"github.com/nethalo/dbshift/internal/database"
	"github.com/nethalo/dbshift/internal/handler"
)

// Plan is a rendered but not executed migration or rollback.
type Plan struct {
	Direction string // "migrate" or "rollback"
	Dialect   string
	Target    string
	Reduced   bool
	Steps     []PlanStep
}

// PlanStep is one statement of a Plan.
type PlanStep struct {
	Version string
	Summary string // e.g. "table users (create)"
	SQL     string
	Note    string // parser annotation, MySQL only
}

// Report is the outcome of an executed run.
type Report struct {
	Direction string
	Dialect   string
	Results   []handler.Result
	Recorded  []string // versions added to or removed from the version table
	Err       error
}

// Failed reports whether the run failed or was interrupted.
func (r *Report) Failed() bool {
	return r.Err != nil || handler.Failed(r.Results)
}

// StatusRow is one known version and whether it is applied.
type StatusRow struct {
	Version     string
	Description string
	Applied     bool
}

// Connection identifies the server a command talked to.
type Connection struct {
	Host   string
	Port   int
	Socket string
}

func (c Connection) address() string {
	if c.Socket != "" {
		return c.Socket
	}
	return hostPort(c.Host, c.Port)
}

// Renderer defines the output interface.
type Renderer interface {
	RenderPlan(plan *Plan)
	RenderReport(report *Report)
	RenderStatus(rows []StatusRow)
	RenderServerInfo(conn Connection, info *database.ServerInfo)
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format string, w io.Writer) Renderer {
	switch format {
	case "json":
		return &JSONRenderer{w: w}
	case "markdown":
		return &MarkdownRenderer{w: w}
	case "plain":
		return &PlainRenderer{w: w}
	default:
		return &TextRenderer{w: w}
	}
}

func resultStatus(r handler.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Success:
		return "ok"
	}
	return "failed"
}

func versionLabel(v string) string {
	if v == "" {
		return "(reduced)"
	}
	return v
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func appliedCount(rows []StatusRow) int {
	n := 0
	for _, r := range rows {
		if r.Applied {
			n++
		}
	}
	return n
}
