// Package churnrisk estimates how likely each account is to churn,
// from support case load, engagement recency, revenue exposure, and
// customer satisfaction. Pure computation over a pre-validated
// configuration; the only cross-account input is the run's median
// revenue.
package churnrisk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

type Predictor struct {
	cfg config.ChurnRiskConfig
	log logger.Logger
	now func() time.Time
}

func NewPredictor(cfg config.ChurnRiskConfig, log logger.Logger) *Predictor {
	return &Predictor{cfg: cfg, log: log, now: time.Now}
}

// Predict scores every account. Accounts with no cases and no recorded
// activity still get a score from the signals that are present.
func (p *Predictor) Predict(accounts []models.Account, cases []models.Case) *Result {
	result := &Result{
		AnalysisType: "churn_prediction",
		GeneratedAt:  p.now().UTC(),
		TotalAccounts: len(accounts),
		Breakdown: map[string]int{
			LevelHigh:   0,
			LevelMedium: 0,
			LevelLow:    0,
		},
		HighRiskIDs: []string{},
		Accounts:    make([]ScoredAccount, 0, len(accounts)),
	}

	casesByAccount := groupCases(cases)
	result.MedianRevenue = medianRevenue(accounts)

	for _, acct := range accounts {
		scored := p.scoreAccount(acct, casesByAccount[acct.ID], result.MedianRevenue)
		result.Breakdown[scored.RiskLevel]++
		if scored.RiskLevel == LevelHigh {
			result.HighRiskIDs = append(result.HighRiskIDs, scored.AccountID)
			result.RevenueAtRisk += scored.AnnualRevenue
		}
		result.Accounts = append(result.Accounts, scored)
	}

	p.log.Info("Churn prediction complete", map[string]interface{}{
		"total_accounts":  result.TotalAccounts,
		"high_risk":       result.Breakdown[LevelHigh],
		"revenue_at_risk": result.RevenueAtRisk,
	})
	return result
}

func (p *Predictor) scoreAccount(acct models.Account, accountCases []models.Case, median float64) ScoredAccount {
	scored := ScoredAccount{
		AccountID:   acct.ID,
		Name:        acct.Name,
		RiskFactors: []string{},
	}

	for _, c := range accountCases {
		if c.IsOpen() {
			scored.OpenCases++
		}
	}
	scored.AverageCSAT = averageCSAT(accountCases)
	if acct.AnnualRevenue != nil {
		scored.AnnualRevenue = *acct.AnnualRevenue
	}
	if acct.LastActivityDate != nil {
		scored.DaysSinceActive = math.Max(0, p.now().UTC().Sub(*acct.LastActivityDate).Hours()/24)
	}

	scored.Signals = SignalScores{
		CaseVolume:      math.Min(1, float64(scored.OpenCases)/p.cfg.HighCaseVolume),
		EngagementDecay: p.decaySignal(acct.LastActivityDate, scored.DaysSinceActive),
		RevenueExposure: exposureSignal(scored.AnnualRevenue, median),
		Satisfaction:    p.satisfactionSignal(accountCases, scored.AverageCSAT),
	}

	w := p.cfg.Weights
	score := scored.Signals.CaseVolume*w.CaseVolume +
		scored.Signals.EngagementDecay*w.EngagementDecay +
		scored.Signals.RevenueExposure*w.RevenueExposure +
		scored.Signals.Satisfaction*w.Satisfaction

	scored.RiskScore = math.Round(clamp01(score)*1000) / 1000
	scored.RiskLevel = p.levelFor(scored.RiskScore)
	p.collectRiskFactors(&scored)
	return scored
}

func (p *Predictor) decaySignal(lastActivity *time.Time, days float64) float64 {
	if lastActivity == nil {
		return 0
	}
	return math.Min(1, days/p.cfg.StalenessDays)
}

// exposureSignal saturates at twice the run's median revenue: losing a
// customer twice the size of the typical one is treated as a full-weight
// exposure. Higher revenue means higher risk weight, not distress.
func exposureSignal(revenue, median float64) float64 {
	if revenue <= 0 || median <= 0 {
		return 0
	}
	return math.Min(1, revenue/(2*median))
}

func (p *Predictor) satisfactionSignal(accountCases []models.Case, avgCSAT float64) float64 {
	if len(accountCases) == 0 || avgCSAT == 0 {
		return p.cfg.NeutralSatisfaction
	}
	return clamp01(1 - (avgCSAT-1)/4)
}

// levelFor: exactly at the high threshold is Medium, not High; exactly
// at the low threshold is Medium, not Low.
func (p *Predictor) levelFor(score float64) string {
	switch {
	case score > p.cfg.HighThreshold:
		return LevelHigh
	case score < p.cfg.LowThreshold:
		return LevelLow
	default:
		return LevelMedium
	}
}

func (p *Predictor) collectRiskFactors(scored *ScoredAccount) {
	if scored.Signals.CaseVolume >= 1 {
		scored.RiskFactors = append(scored.RiskFactors,
			fmt.Sprintf("High open case volume: %d open cases", scored.OpenCases))
	}
	if scored.Signals.EngagementDecay >= 1 {
		scored.RiskFactors = append(scored.RiskFactors,
			fmt.Sprintf("No activity for %.0f days", scored.DaysSinceActive))
	}
	if scored.AverageCSAT > 0 && scored.AverageCSAT < 3 {
		scored.RiskFactors = append(scored.RiskFactors,
			fmt.Sprintf("Low satisfaction: average CSAT %.1f", scored.AverageCSAT))
	}
	if scored.Signals.RevenueExposure >= 1 {
		scored.RiskFactors = append(scored.RiskFactors,
			"Major account: revenue well above the customer base median")
	}
}

func groupCases(cases []models.Case) map[string][]models.Case {
	grouped := make(map[string][]models.Case)
	for _, c := range cases {
		if c.AccountID == "" {
			continue
		}
		grouped[c.AccountID] = append(grouped[c.AccountID], c)
	}
	return grouped
}

func averageCSAT(accountCases []models.Case) float64 {
	var sum float64
	var n int
	for _, c := range accountCases {
		if c.SatisfactionScore != nil {
			sum += *c.SatisfactionScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}

func medianRevenue(accounts []models.Account) float64 {
	revenues := make([]float64, 0, len(accounts))
	for _, acct := range accounts {
		if acct.AnnualRevenue != nil && *acct.AnnualRevenue > 0 {
			revenues = append(revenues, *acct.AnnualRevenue)
		}
	}
	if len(revenues) == 0 {
		return 0
	}
	sort.Float64s(revenues)
	mid := len(revenues) / 2
	if len(revenues)%2 == 1 {
		return revenues[mid]
	}
	return (revenues[mid-1] + revenues[mid]) / 2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
