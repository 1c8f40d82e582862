package pipelinehealth

import "time"

// FactorScores holds the four raw health factors, each on a 0-100 scale
// before being weighted into the composite.
type FactorScores struct {
	Coverage     float64 `json:"coverage"`
	Distribution float64 `json:"distribution"`
	WinRate      float64 `json:"win_rate"`
	Velocity     float64 `json:"velocity"`
}

// StageMetrics summarizes the open pipeline within one stage.
type StageMetrics struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Forecast buckets open opportunity value by close probability.
type Forecast struct {
	Commit   float64 `json:"commit"`
	BestCase float64 `json:"best_case"`
	Pipeline float64 `json:"pipeline"`
	Weighted float64 `json:"weighted"`
}

// Report is the composite health assessment for one opportunity snapshot.
type Report struct {
	AnalysisType       string                  `json:"analysis_type"`
	GeneratedAt        time.Time               `json:"generated_at"`
	TotalOpportunities int                     `json:"total_opportunities"`
	OpenCount          int                     `json:"open_count"`
	ClosedWonCount     int                     `json:"closed_won_count"`
	ClosedLostCount    int                     `json:"closed_lost_count"`
	OpenPipelineValue  float64                 `json:"open_pipeline_value"`
	CoverageRatio      float64                 `json:"coverage_ratio"`
	WinRate            float64                 `json:"win_rate"`
	VelocityDays       float64                 `json:"velocity_days"`
	StageDistribution  map[string]StageMetrics `json:"stage_distribution"`
	Factors            FactorScores            `json:"factors"`
	Score              float64                 `json:"score"`
	Rating             string                  `json:"rating"`
	Forecast           Forecast                `json:"forecast"`
	RiskIndicators     []string                `json:"risk_indicators"`
	Recommendations    []string                `json:"recommendations"`
}

// Rating labels for the composite score.
const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingFair      = "Fair"
	RatingPoor      = "Poor"
)
