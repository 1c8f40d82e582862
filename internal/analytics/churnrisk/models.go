package churnrisk

import "time"

// SignalScores is the per-signal breakdown behind an account's risk
// score. Every value sits in [0, 1] before weighting.
type SignalScores struct {
	CaseVolume      float64 `json:"case_volume"`
	EngagementDecay float64 `json:"engagement_decay"`
	RevenueExposure float64 `json:"revenue_exposure"`
	Satisfaction    float64 `json:"satisfaction"`
}

// ScoredAccount is one account with its churn risk score and level.
type ScoredAccount struct {
	AccountID       string       `json:"account_id"`
	Name            string       `json:"name"`
	RiskScore       float64      `json:"churn_risk_score"`
	RiskLevel       string       `json:"churn_risk_level"`
	OpenCases       int          `json:"open_cases"`
	AverageCSAT     float64      `json:"average_csat,omitempty"`
	AnnualRevenue   float64      `json:"annual_revenue,omitempty"`
	DaysSinceActive float64      `json:"days_since_activity,omitempty"`
	Signals         SignalScores `json:"signals"`
	RiskFactors     []string     `json:"risk_factors"`
}

// Result is the full output of one churn prediction pass.
type Result struct {
	AnalysisType   string          `json:"analysis_type"`
	GeneratedAt    time.Time       `json:"generated_at"`
	TotalAccounts  int             `json:"total_accounts"`
	MedianRevenue  float64         `json:"median_revenue"`
	Breakdown      map[string]int  `json:"risk_breakdown"`
	RevenueAtRisk  float64         `json:"revenue_at_risk"`
	HighRiskIDs    []string        `json:"high_risk_account_ids"`
	Accounts       []ScoredAccount `json:"accounts"`
}

// Risk levels.
const (
	LevelHigh   = "High"
	LevelMedium = "Medium"
	LevelLow    = "Low"
)
