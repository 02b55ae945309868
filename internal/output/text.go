package output

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nethalo/dbshift/internal/database"
	"github.com/nethalo/dbshift/internal/handler"
)

const boxWidth = 72

// TextRenderer produces Lip Gloss styled terminal output.
type TextRenderer struct {
	w io.Writer
}

func (r *TextRenderer) RenderPlan(plan *Plan) {
	fmt.Fprintln(r.w)

	header := TitleStyle.Render(fmt.Sprintf("dbshift — %s plan", plan.Direction))
	lines := []string{
		r.labelValue("Dialect:", plan.Dialect),
		r.labelValue("Target:", orLatest(plan.Target)),
		r.labelValue("Reduced:", fmt.Sprintf("%v", plan.Reduced)),
		r.labelValue("Statements:", strconv.Itoa(len(plan.Steps))),
	}
	fmt.Fprintln(r.w, BoxStyle.Width(boxWidth).Render(header+"\n"+strings.Join(lines, "\n")))

	if len(plan.Steps) == 0 {
		fmt.Fprintln(r.w, MutedText.Render("Nothing to do."))
		fmt.Fprintln(r.w)
		return
	}

	for _, s := range plan.Steps {
		var content strings.Builder
		content.WriteString(TitleStyle.Render(versionLabel(s.Version)) + " " + s.Summary + "\n")
		if s.SQL == "" {
			content.WriteString(MutedText.Render("(no statement)"))
		} else {
			content.WriteString(SQLStyle.Render(s.SQL))
		}
		if s.Note != "" {
			content.WriteString("\n" + MutedText.Render(s.Note))
		}
		fmt.Fprintln(r.w, PendingBoxStyle.Width(boxWidth).Render(content.String()))
	}
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderReport(report *Report) {
	fmt.Fprintln(r.w)

	for _, res := range report.Results {
		var icon string
		var style lipgloss.Style
		switch {
		case res.Skipped:
			icon, style = IconSkipped, BoxStyle
		case res.Success:
			icon, style = IconApplied, AppliedBoxStyle
		default:
			icon, style = IconFailed, FailedBoxStyle
		}

		lines := []string{
			icon + " " + TitleStyle.Render(versionLabel(res.Version)) + " " + res.Entity,
			r.labelValue("Status:", r.colorStatus(res)),
		}
		if !res.Skipped {
			lines = append(lines,
				r.labelValue("Rows affected:", formatNumber(res.RowsAffected)),
				r.labelValue("Duration:", formatDuration(res.Duration)),
			)
		}
		if res.Error != nil {
			lines = append(lines, r.labelValue("Error:", FailedText.Render(res.Error.Error())))
		}
		if res.SQL != "" {
			lines = append(lines, "", SQLStyle.Render(res.SQL))
		}
		fmt.Fprintln(r.w, style.Width(boxWidth).Render(strings.Join(lines, "\n")))
	}

	title := TitleStyle.Render(fmt.Sprintf("dbshift — %s", report.Direction))
	var summary []string
	summary = append(summary, r.labelValue("Dialect:", report.Dialect))
	summary = append(summary, r.labelValue("Executed:", strconv.Itoa(len(report.Results))))
	summary = append(summary, r.labelValue("Versions:", joinOrNone(report.Recorded)))

	style := AppliedBoxStyle
	outcome := AppliedText.Render(IconApplied + " Completed")
	if report.Failed() {
		style = FailedBoxStyle
		outcome = FailedText.Render(IconFailed + " Failed")
		if report.Err != nil {
			summary = append(summary, r.labelValue("Error:", report.Err.Error()))
		}
	}
	fmt.Fprintln(r.w, style.Width(boxWidth).Render(title+"\n"+outcome+"\n"+strings.Join(summary, "\n")))
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderStatus(rows []StatusRow) {
	fmt.Fprintln(r.w)

	title := TitleStyle.Render("dbshift — Status")
	lines := []string{
		r.labelValue("Versions:", strconv.Itoa(len(rows))),
		r.labelValue("Applied:", strconv.Itoa(appliedCount(rows))),
		r.labelValue("Pending:", strconv.Itoa(len(rows)-appliedCount(rows))),
		"",
	}
	for _, row := range rows {
		mark := PendingText.Render(IconPending + " pending")
		if row.Applied {
			mark = AppliedText.Render(IconApplied + " applied")
		}
		line := mark + "  " + row.Version
		if row.Description != "" {
			line += " " + MutedText.Render(row.Description)
		}
		lines = append(lines, line)
	}
	fmt.Fprintln(r.w, BoxStyle.Width(boxWidth).Render(title+"\n"+strings.Join(lines, "\n")))
	fmt.Fprintln(r.w)
}

func (r *TextRenderer) RenderServerInfo(conn Connection, info *database.ServerInfo) {
	fmt.Fprintln(r.w)

	lines := []string{
		r.labelValue("Connected to:", conn.address()),
		r.labelValue("Driver:", info.Driver),
		r.labelValue("Server version:", info.Version.String()),
		r.labelValue("Database:", orNone(info.Database)),
		r.labelValue("Read only:", fmt.Sprintf("%v", info.ReadOnly)),
	}
	if !info.Version.SupportsRenameColumn() {
		lines = append(lines, PendingText.Render("RENAME COLUMN unsupported; column renames need a type"))
	}

	style := AppliedBoxStyle
	if info.ReadOnly {
		style = PendingBoxStyle
	}
	title := TitleStyle.Render("dbshift — Connection Info")
	fmt.Fprintln(r.w, style.Width(boxWidth).Render(title+"\n"+strings.Join(lines, "\n")))
	fmt.Fprintln(r.w)
}

// helpers

func (r *TextRenderer) labelValue(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func (r *TextRenderer) colorStatus(res handler.Result) string {
	s := resultStatus(res)
	switch s {
	case "ok":
		return AppliedText.Render(s)
	case "failed":
		return FailedText.Render(s)
	}
	return MutedText.Render(s)
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func orLatest(target string) string {
	if target == "" {
		return "latest"
	}
	return target
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var result strings.Builder
	if neg {
		result.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
