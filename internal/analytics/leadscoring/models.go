package leadscoring

import "time"

// SignalScores is the per-signal breakdown behind a lead's composite
// score. Every value sits in [0, 100].
type SignalScores struct {
	CompanySize    float64 `json:"company_size"`
	Engagement     float64 `json:"engagement"`
	IndustryMatch  float64 `json:"industry_match"`
	Budget         float64 `json:"budget"`
	Responsiveness float64 `json:"responsiveness"`
	EmailActivity  float64 `json:"email_activity"`
}

// ScoredLead is one lead with its composite score and priority tier.
type ScoredLead struct {
	LeadID  string       `json:"lead_id"`
	Name    string       `json:"name"`
	Company string       `json:"company"`
	Email   string       `json:"email,omitempty"`
	Score   float64      `json:"score"`
	Tier    string       `json:"tier"`
	Signals SignalScores `json:"signals"`
}

// Result is the full output of one scoring pass.
type Result struct {
	AnalysisType string         `json:"analysis_type"`
	GeneratedAt  time.Time      `json:"generated_at"`
	TotalLeads   int            `json:"total_leads"`
	AverageScore float64        `json:"average_score"`
	Distribution map[string]int `json:"tier_distribution"`
	Leads        []ScoredLead   `json:"leads"`
}

// Priority tiers, ordered hottest first.
const (
	TierCritical = "Critical"
	TierHigh     = "High"
	TierMedium   = "Medium"
	TierLow      = "Low"
)
