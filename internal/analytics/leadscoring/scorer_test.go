package leadscoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

func testConfig() config.LeadScoringConfig {
	return config.LeadScoringConfig{
		Weights: config.LeadWeights{
			CompanySize:    0.20,
			Engagement:     0.25,
			IndustryMatch:  0.15,
			Budget:         0.20,
			Responsiveness: 0.10,
			EmailActivity:  0.10,
		},
		TargetIndustries:  []string{"Technology", "Finance", "Healthcare", "Manufacturing"},
		NonTargetScore:    40,
		EmployeeCap:       10000,
		RevenueCap:        100_000_000,
		VisitsRef:         50,
		DownloadsRef:      10,
		StalenessDays:     60,
		EmailOpensRef:     30,
		CriticalThreshold: 80,
		HighThreshold:     60,
		MediumThreshold:   40,
	}
}

func fptr(v float64) *float64 { return &v }

func TestScoreHotLead(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score([]models.Lead{{
		ID:                    "00Qhot",
		FirstName:             "Dana",
		LastName:              "Reyes",
		Company:               "Vertex Systems",
		Industry:              "Technology",
		NumberOfEmployees:     fptr(5000),
		AnnualRevenue:         fptr(50_000_000),
		WebsiteVisits:         fptr(45),
		ContentDownloads:      fptr(8),
		DaysSinceLastActivity: fptr(2),
		EmailOpens:            fptr(25),
	}})

	require.Len(t, result.Leads, 1)
	lead := result.Leads[0]

	assert.InDelta(t, 92.24, lead.Score, 0.01)
	assert.Equal(t, TierCritical, lead.Tier)
	assert.Equal(t, "Dana Reyes", lead.Name)
	assert.InDelta(t, 100, lead.Signals.IndustryMatch, 0.001)
	assert.InDelta(t, 86, lead.Signals.Engagement, 0.001)
	assert.Equal(t, 1, result.Distribution[TierCritical])
}

func TestScoreColdLead(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score([]models.Lead{{
		ID:                    "00Qcold",
		Company:               "Corner Shop",
		Industry:              "Retail",
		NumberOfEmployees:     fptr(20),
		AnnualRevenue:         fptr(200_000),
		WebsiteVisits:         fptr(2),
		ContentDownloads:      fptr(0),
		DaysSinceLastActivity: fptr(45),
		EmailOpens:            fptr(1),
	}})

	lead := result.Leads[0]
	assert.InDelta(t, 29.30, lead.Score, 0.01)
	assert.Equal(t, TierLow, lead.Tier)
	assert.InDelta(t, 40, lead.Signals.IndustryMatch, 0.001)
}

func TestScoreLeadWithNoSignals(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score([]models.Lead{{ID: "00Qempty", Company: "Unknown Inc"}})

	lead := result.Leads[0]
	assert.Equal(t, 0.0, lead.Score)
	assert.Equal(t, TierLow, lead.Tier)
	assert.Equal(t, SignalScores{}, lead.Signals)
}

func TestSignalsSaturate(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score([]models.Lead{{
		ID:                    "00Qmax",
		Industry:              "Finance",
		NumberOfEmployees:     fptr(1_000_000),
		AnnualRevenue:         fptr(10_000_000_000),
		WebsiteVisits:         fptr(5000),
		ContentDownloads:      fptr(500),
		DaysSinceLastActivity: fptr(0),
		EmailOpens:            fptr(900),
	}})

	lead := result.Leads[0]
	assert.Equal(t, 100.0, lead.Score)
	assert.Equal(t, 100.0, lead.Signals.CompanySize)
	assert.Equal(t, 100.0, lead.Signals.Budget)
	assert.Equal(t, 100.0, lead.Signals.EmailActivity)
}

func TestTierBoundariesInclusive(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	tests := []struct {
		score float64
		tier  string
	}{
		{100, TierCritical},
		{80, TierCritical},
		{79.99, TierHigh},
		{60, TierHigh},
		{59.99, TierMedium},
		{40, TierMedium},
		{39.99, TierLow},
		{0, TierLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tier, s.tierFor(tt.score), "score %.2f", tt.score)
	}
}

func TestIndustryMatchCaseInsensitive(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	assert.Equal(t, 100.0, s.industryScore("technology"))
	assert.Equal(t, 100.0, s.industryScore("HEALTHCARE"))
	assert.Equal(t, 40.0, s.industryScore("Retail"))
	assert.Equal(t, 0.0, s.industryScore(""))
}

func TestScoreDistributionAndAverage(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score([]models.Lead{
		{ID: "a"},
		{ID: "b", Industry: "Technology", NumberOfEmployees: fptr(5000), AnnualRevenue: fptr(50_000_000),
			WebsiteVisits: fptr(45), ContentDownloads: fptr(8), DaysSinceLastActivity: fptr(2), EmailOpens: fptr(25)},
	})

	assert.Equal(t, 2, result.TotalLeads)

	var sum int
	for _, n := range result.Distribution {
		sum += n
	}
	assert.Equal(t, 2, sum)
	assert.InDelta(t, 46.12, result.AverageScore, 0.01)
}

func TestScoreEmptyInput(t *testing.T) {
	s := NewScorer(testConfig(), logger.Nop())

	result := s.Score(nil)
	assert.Equal(t, 0, result.TotalLeads)
	assert.Equal(t, 0.0, result.AverageScore)
	assert.Empty(t, result.Leads)
}
