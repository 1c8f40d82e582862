// Package leadscoring ranks open leads by a weighted composite of six
// behavioral and firmographic signals. The scorer is pure computation:
// it never fails at runtime because its configuration is validated once
// at load time.
package leadscoring

import (
	"math"
	"strings"
	"time"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

type Scorer struct {
	cfg config.LeadScoringConfig
	log logger.Logger
}

func NewScorer(cfg config.LeadScoringConfig, log logger.Logger) *Scorer {
	return &Scorer{cfg: cfg, log: log}
}

// Score computes composite scores and tiers for every lead. A lead with
// no usable signals scores 0 and lands in the Low tier rather than being
// dropped, so downstream consumers always see the full population.
func (s *Scorer) Score(leads []models.Lead) *Result {
	result := &Result{
		AnalysisType: "lead_scoring",
		GeneratedAt:  time.Now().UTC(),
		TotalLeads:   len(leads),
		Distribution: map[string]int{
			TierCritical: 0,
			TierHigh:     0,
			TierMedium:   0,
			TierLow:      0,
		},
		Leads: make([]ScoredLead, 0, len(leads)),
	}

	var total float64
	for _, lead := range leads {
		scored := s.scoreLead(lead)
		total += scored.Score
		result.Distribution[scored.Tier]++
		result.Leads = append(result.Leads, scored)
	}

	if len(leads) > 0 {
		result.AverageScore = math.Round(total/float64(len(leads))*100) / 100
	}

	s.log.Info("Lead scoring complete", map[string]interface{}{
		"total_leads":   result.TotalLeads,
		"average_score": result.AverageScore,
		"critical":      result.Distribution[TierCritical],
		"high":          result.Distribution[TierHigh],
	})
	return result
}

func (s *Scorer) scoreLead(lead models.Lead) ScoredLead {
	signals := SignalScores{
		CompanySize:    logScale(lead.NumberOfEmployees, s.cfg.EmployeeCap),
		Engagement:     s.engagementScore(lead),
		IndustryMatch:  s.industryScore(lead.Industry),
		Budget:         logScale(lead.AnnualRevenue, s.cfg.RevenueCap),
		Responsiveness: s.responsivenessScore(lead.DaysSinceLastActivity),
		EmailActivity:  linearScale(lead.EmailOpens, s.cfg.EmailOpensRef),
	}

	w := s.cfg.Weights
	composite := signals.CompanySize*w.CompanySize +
		signals.Engagement*w.Engagement +
		signals.IndustryMatch*w.IndustryMatch +
		signals.Budget*w.Budget +
		signals.Responsiveness*w.Responsiveness +
		signals.EmailActivity*w.EmailActivity

	score := clamp(math.Round(composite*100)/100, 0, 100)

	name := strings.TrimSpace(lead.FirstName + " " + lead.LastName)

	return ScoredLead{
		LeadID:  lead.ID,
		Name:    name,
		Company: lead.Company,
		Email:   lead.Email,
		Score:   score,
		Tier:    s.tierFor(score),
		Signals: signals,
	}
}

// logScale compresses wide-range magnitudes (headcount, revenue) so the
// difference between 10 and 100 matters more than between 9000 and 10000.
func logScale(value *float64, ref float64) float64 {
	if value == nil || *value <= 0 {
		return 0
	}
	score := 100 * math.Log1p(*value) / math.Log1p(ref)
	return clamp(score, 0, 100)
}

func linearScale(value *float64, ref float64) float64 {
	if value == nil || *value <= 0 {
		return 0
	}
	return clamp(*value/ref*100, 0, 100)
}

// engagementScore blends website visits (60%) and content downloads (40%),
// each saturating at its configured reference volume.
func (s *Scorer) engagementScore(lead models.Lead) float64 {
	var visits, downloads float64
	if lead.WebsiteVisits != nil {
		visits = clamp(*lead.WebsiteVisits/s.cfg.VisitsRef, 0, 1)
	}
	if lead.ContentDownloads != nil {
		downloads = clamp(*lead.ContentDownloads/s.cfg.DownloadsRef, 0, 1)
	}
	return visits*60 + downloads*40
}

func (s *Scorer) industryScore(industry string) float64 {
	if industry == "" {
		return 0
	}
	for _, target := range s.cfg.TargetIndustries {
		if strings.EqualFold(industry, target) {
			return 100
		}
	}
	return s.cfg.NonTargetScore
}

// responsivenessScore decays linearly with the age of the last activity.
// A lead with no recorded activity at all gets no credit.
func (s *Scorer) responsivenessScore(days *float64) float64 {
	if days == nil {
		return 0
	}
	return clamp(100*(1-*days/s.cfg.StalenessDays), 0, 100)
}

func (s *Scorer) tierFor(score float64) string {
	switch {
	case score >= s.cfg.CriticalThreshold:
		return TierCritical
	case score >= s.cfg.HighThreshold:
		return TierHigh
	case score >= s.cfg.MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
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
