package api

import (
	"encoding/json"
	"html/template"
	"net/http"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/pipeline"
)

type dashboardData struct {
	Leads    *leadscoring.Result
	Pipeline *pipelinehealth.Report
	Churn    *churnrisk.Result
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>CRM Analytics Dashboard</title>
  <style>
    body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2rem; color: #1b2733; }
    h1 { font-size: 1.5rem; }
    .cards { display: flex; gap: 1rem; flex-wrap: wrap; }
    .card { border: 1px solid #d6dde4; border-radius: 8px; padding: 1rem 1.5rem; min-width: 260px; }
    .card h2 { font-size: 1.1rem; margin-top: 0; }
    .big { font-size: 2rem; font-weight: 600; }
    .muted { color: #64748b; font-size: 0.85rem; }
    table { border-collapse: collapse; margin-top: 0.5rem; }
    td, th { padding: 0.15rem 0.75rem 0.15rem 0; text-align: left; }
    .warn { color: #b45309; }
    .empty { color: #94a3b8; font-style: italic; }
  </style>
</head>
<body>
  <h1>CRM Analytics Dashboard</h1>
  <div class="cards">
    <div class="card">
      <h2>Lead Scoring</h2>
      {{if .Leads}}
        <div class="big">{{.Leads.TotalLeads}} leads</div>
        <div class="muted">average score {{printf "%.1f" .Leads.AverageScore}}</div>
        <table>
          <tr><th>Tier</th><th>Count</th></tr>
          <tr><td>Critical</td><td>{{index .Leads.Distribution "Critical"}}</td></tr>
          <tr><td>High</td><td>{{index .Leads.Distribution "High"}}</td></tr>
          <tr><td>Medium</td><td>{{index .Leads.Distribution "Medium"}}</td></tr>
          <tr><td>Low</td><td>{{index .Leads.Distribution "Low"}}</td></tr>
        </table>
      {{else}}
        <p class="empty">No lead scoring results yet.</p>
      {{end}}
    </div>
    <div class="card">
      <h2>Pipeline Health</h2>
      {{if .Pipeline}}
        <div class="big">{{printf "%.1f" .Pipeline.Score}} / 100</div>
        <div class="muted">{{.Pipeline.Rating}} &middot; coverage {{printf "%.1f" .Pipeline.CoverageRatio}}x &middot; win rate {{printf "%.1f" .Pipeline.WinRate}}%</div>
        {{range .Pipeline.RiskIndicators}}<p class="warn">{{.}}</p>{{end}}
      {{else}}
        <p class="empty">No pipeline health results yet.</p>
      {{end}}
    </div>
    <div class="card">
      <h2>Churn Risk</h2>
      {{if .Churn}}
        <div class="big">{{index .Churn.Breakdown "High"}} high risk</div>
        <div class="muted">of {{.Churn.TotalAccounts}} accounts &middot; revenue at risk ${{printf "%.0f" .Churn.RevenueAtRisk}}</div>
      {{else}}
        <p class="empty">No churn prediction results yet.</p>
      {{end}}
    </div>
  </div>
</body>
</html>
`))

// handleDashboard renders the latest cached results. A missing result
// for any engine renders an empty card, never an error page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{}

	if raw, err := s.latestResult(r, pipeline.ActionLeadScoring); err == nil {
		var leads leadscoring.Result
		if json.Unmarshal(raw, &leads) == nil {
			data.Leads = &leads
		}
	}
	if raw, err := s.latestResult(r, pipeline.ActionPipelineHealth); err == nil {
		var report pipelinehealth.Report
		if json.Unmarshal(raw, &report) == nil {
			data.Pipeline = &report
		}
	}
	if raw, err := s.latestResult(r, pipeline.ActionChurn); err == nil {
		var churn churnrisk.Result
		if json.Unmarshal(raw, &churn) == nil {
			data.Churn = &churn
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Error("Dashboard render failed", nil)
	}
}
