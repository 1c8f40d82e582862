// Package pipelinehealth grades an opportunity snapshot on four factors
// (coverage, stage distribution, win rate, velocity), each worth a
// quarter of the composite score. Pure computation over a pre-validated
// configuration.
package pipelinehealth

import (
	"fmt"
	"math"
	"time"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

type Analyzer struct {
	cfg config.PipelineHealthConfig
	log logger.Logger
}

func NewAnalyzer(cfg config.PipelineHealthConfig, log logger.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, log: log}
}

// Analyze builds the composite health report. An empty snapshot yields a
// zero-score report with a "no data" recommendation, never an error.
func (a *Analyzer) Analyze(opps []models.Opportunity) *Report {
	report := &Report{
		AnalysisType:       "pipeline_health",
		GeneratedAt:        time.Now().UTC(),
		TotalOpportunities: len(opps),
		StageDistribution:  map[string]StageMetrics{},
		WinRate:            a.cfg.NeutralWinRate,
		RiskIndicators:     []string{},
		Recommendations:    []string{},
	}

	if len(opps) == 0 {
		report.Rating = RatingPoor
		report.Recommendations = append(report.Recommendations,
			"No opportunity data available; verify the CRM sync before acting on this report")
		return report
	}

	var (
		openAmount  float64
		earlyAmount float64
		daysTotal   float64
		daysCount   int
	)
	early := a.earlyStages()

	for _, opp := range opps {
		if opp.IsClosed {
			if opp.IsWon {
				report.ClosedWonCount++
			} else {
				report.ClosedLostCount++
			}
			continue
		}

		report.OpenCount++
		amount := opp.AmountOrZero()
		openAmount += amount

		sm := report.StageDistribution[opp.StageName]
		sm.Count++
		sm.Amount += amount
		report.StageDistribution[opp.StageName] = sm

		if early[opp.StageName] {
			earlyAmount += amount
		}
		if opp.DaysInStage != nil {
			daysTotal += *opp.DaysInStage
			daysCount++
		}

		a.bucketForecast(&report.Forecast, opp, amount)
	}

	report.OpenPipelineValue = openAmount
	report.CoverageRatio = round2(openAmount / a.cfg.QuotaTarget)
	if daysCount > 0 {
		report.VelocityDays = round2(daysTotal / float64(daysCount))
	}

	report.Factors = FactorScores{
		Coverage:     clamp(100*openAmount/a.cfg.QuotaTarget, 0, 100),
		Distribution: a.distributionFactor(earlyAmount, openAmount),
		WinRate:      a.winRateFactor(report.ClosedWonCount, report.ClosedLostCount),
		Velocity:     a.velocityFactor(report.VelocityDays, daysCount),
	}
	report.WinRate = round2(report.Factors.WinRate)

	f := report.Factors
	report.Score = round2(
		clamp(f.Coverage/4, 0, 25) +
			clamp(f.Distribution/4, 0, 25) +
			clamp(f.WinRate/4, 0, 25) +
			clamp(f.Velocity/4, 0, 25))
	report.Rating = ratingFor(report.Score)

	a.assessRisks(report, earlyAmount, openAmount)

	a.log.Info("Pipeline health assessment complete", map[string]interface{}{
		"score":          report.Score,
		"rating":         report.Rating,
		"open_count":     report.OpenCount,
		"coverage_ratio": report.CoverageRatio,
		"risks":          len(report.RiskIndicators),
	})
	return report
}

func (a *Analyzer) earlyStages() map[string]bool {
	early := make(map[string]bool, a.cfg.EarlyStageCount)
	for i, stage := range a.cfg.Stages {
		if i >= a.cfg.EarlyStageCount {
			break
		}
		early[stage] = true
	}
	return early
}

// distributionFactor penalizes open value concentrated in the earliest
// stages. No open pipeline at all is the worst case, not a neutral one.
func (a *Analyzer) distributionFactor(earlyAmount, openAmount float64) float64 {
	if openAmount <= 0 {
		return 0
	}
	return clamp(100-100*earlyAmount/openAmount, 0, 100)
}

// winRateFactor is neutral when nothing has closed yet, so a brand-new
// pipeline is not graded on a win rate it cannot have.
func (a *Analyzer) winRateFactor(won, lost int) float64 {
	closed := won + lost
	if closed == 0 {
		return a.cfg.NeutralWinRate
	}
	return 100 * float64(won) / float64(closed)
}

func (a *Analyzer) velocityFactor(avgDays float64, sampled int) float64 {
	if sampled == 0 {
		return 0
	}
	overrun := math.Max(0, (avgDays-a.cfg.TargetVelocityDays)/a.cfg.TargetVelocityDays)
	return clamp(100-100*overrun, 0, 100)
}

// bucketForecast assigns one open deal's amount to a forecast category
// by its close probability. Probabilities are on the CRM's 0-100 scale.
func (a *Analyzer) bucketForecast(f *Forecast, opp models.Opportunity, amount float64) {
	var probability float64
	if opp.Probability != nil {
		probability = *opp.Probability
	}

	switch {
	case probability >= a.cfg.CommitProbability:
		f.Commit += amount
	case probability >= a.cfg.BestCaseProbability:
		f.BestCase += amount
	default:
		f.Pipeline += amount
	}
	f.Weighted += amount * probability / 100
}

func (a *Analyzer) assessRisks(report *Report, earlyAmount, openAmount float64) {
	t := a.cfg.RiskThresholds
	f := report.Factors

	if f.Coverage < t.Coverage {
		report.RiskIndicators = append(report.RiskIndicators,
			fmt.Sprintf("Low pipeline coverage: %.1fx of quota target", report.CoverageRatio))
		report.Recommendations = append(report.Recommendations,
			"Increase top-of-funnel activity to rebuild pipeline coverage")
	}
	if f.Distribution < t.Distribution {
		pct := 0.0
		if openAmount > 0 {
			pct = 100 * earlyAmount / openAmount
		}
		report.RiskIndicators = append(report.RiskIndicators,
			fmt.Sprintf("Pipeline concentrated in early stages: %.0f%% of open value", pct))
		report.Recommendations = append(report.Recommendations,
			"Focus on advancing early-stage deals to later stages")
	}
	if f.WinRate < t.WinRate {
		report.RiskIndicators = append(report.RiskIndicators,
			fmt.Sprintf("Win rate below target: %.1f%%", f.WinRate))
		report.Recommendations = append(report.Recommendations,
			"Review lost-deal reasons and tighten qualification criteria")
	}
	if f.Velocity < t.Velocity {
		report.RiskIndicators = append(report.RiskIndicators,
			fmt.Sprintf("Deals moving slowly: average %.0f days in stage", report.VelocityDays))
		report.Recommendations = append(report.Recommendations,
			"Identify stalled deals and schedule next-step meetings")
	}
}

func ratingFor(score float64) string {
	switch {
	case score >= 80:
		return RatingExcellent
	case score >= 60:
		return RatingGood
	case score >= 40:
		return RatingFair
	default:
		return RatingPoor
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
