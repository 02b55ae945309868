package output

import (
	"encoding/json"
	"io"

	"github.com/nethalo/dbshift/internal/database"
)

// JSONRenderer produces machine-readable JSON output.
type JSONRenderer struct {
	w io.Writer
}

type jsonPlan struct {
	Direction string         `json:"direction"`
	Dialect   string         `json:"dialect"`
	Target    string         `json:"target,omitempty"`
	Reduced   bool           `json:"reduced"`
	Steps     []jsonPlanStep `json:"statements"`
}

type jsonPlanStep struct {
	Version string `json:"version,omitempty"`
	Summary string `json:"summary"`
	SQL     string `json:"sql"`
	Note    string `json:"note,omitempty"`
}

type jsonReport struct {
	Direction string       `json:"direction"`
	Dialect   string       `json:"dialect"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	Recorded  []string     `json:"versions"`
	Results   []jsonResult `json:"results"`
}

type jsonResult struct {
	Version      string     `json:"version,omitempty"`
	Entity       string     `json:"entity"`
	Status       string     `json:"status"`
	SQL          string     `json:"sql,omitempty"`
	RowsAffected int64      `json:"rows_affected"`
	DurationMS   float64    `json:"duration_ms"`
	Error        *jsonError `json:"error,omitempty"`
}

type jsonError struct {
	Code    string `json:"code,omitempty"`
	SubCode string `json:"sub_code,omitempty"`
	Message string `json:"message"`
}

type jsonStatus struct {
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Applied     bool   `json:"applied"`
}

func (r *JSONRenderer) encode(v any) {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func (r *JSONRenderer) RenderPlan(plan *Plan) {
	out := jsonPlan{
		Direction: plan.Direction,
		Dialect:   plan.Dialect,
		Target:    plan.Target,
		Reduced:   plan.Reduced,
		Steps:     []jsonPlanStep{},
	}
	for _, s := range plan.Steps {
		out.Steps = append(out.Steps, jsonPlanStep(s))
	}
	r.encode(out)
}

func (r *JSONRenderer) RenderReport(report *Report) {
	out := jsonReport{
		Direction: report.Direction,
		Dialect:   report.Dialect,
		Success:   !report.Failed(),
		Recorded:  append([]string{}, report.Recorded...),
		Results:   []jsonResult{},
	}
	if report.Err != nil {
		out.Error = report.Err.Error()
	}
	for _, res := range report.Results {
		jr := jsonResult{
			Version:      res.Version,
			Entity:       res.Entity,
			Status:       resultStatus(res),
			SQL:          res.SQL,
			RowsAffected: res.RowsAffected,
			DurationMS:   float64(res.Duration.Microseconds()) / 1000,
		}
		if res.Error != nil {
			jr.Error = &jsonError{Code: res.Error.Code, SubCode: res.Error.SubCode, Message: res.Error.Message}
		}
		out.Results = append(out.Results, jr)
	}
	r.encode(out)
}

func (r *JSONRenderer) RenderStatus(rows []StatusRow) {
	out := make([]jsonStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, jsonStatus(row))
	}
	r.encode(map[string]any{
		"applied":  appliedCount(rows),
		"total":    len(rows),
		"versions": out,
	})
}

func (r *JSONRenderer) RenderServerInfo(conn Connection, info *database.ServerInfo) {
	out := map[string]any{
		"driver":    info.Driver,
		"version":   info.Version.String(),
		"flavor":    info.Version.Flavor,
		"database":  info.Database,
		"read_only": info.ReadOnly,
	}
	if conn.Socket != "" {
		out["socket"] = conn.Socket
	} else {
		out["host"] = conn.Host
		out["port"] = conn.Port
	}
	r.encode(out)
}
