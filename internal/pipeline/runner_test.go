package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/automation/notifications"
	"salesforce-analytics/internal/automation/writeback"
	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
	"salesforce-analytics/internal/salesforce"
)

func fptr(v float64) *float64 { return &v }

func engineConfigs() (config.LeadScoringConfig, config.PipelineHealthConfig, config.ChurnRiskConfig) {
	lead := config.LeadScoringConfig{
		Weights: config.LeadWeights{
			CompanySize: 0.20, Engagement: 0.25, IndustryMatch: 0.15,
			Budget: 0.20, Responsiveness: 0.10, EmailActivity: 0.10,
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
	health := config.PipelineHealthConfig{
		Stages:              []string{"Prospecting", "Qualification", "Proposal", "Negotiation"},
		EarlyStageCount:     2,
		QuotaTarget:         1_000_000,
		TargetVelocityDays:  30,
		CommitProbability:   90,
		BestCaseProbability: 50,
		NeutralWinRate:      50,
		RiskThresholds: config.PipelineThresholds{
			Coverage: 50, Distribution: 50, WinRate: 40, Velocity: 50,
		},
	}
	churn := config.ChurnRiskConfig{
		Weights: config.ChurnWeights{
			CaseVolume: 0.30, EngagementDecay: 0.25, RevenueExposure: 0.25, Satisfaction: 0.20,
		},
		HighCaseVolume:      5,
		StalenessDays:       90,
		NeutralSatisfaction: 0.5,
		HighThreshold:       0.6,
		LowThreshold:        0.3,
	}
	return lead, health, churn
}

func testRunner(source salesforce.RecordSource) *Runner {
	lead, health, churn := engineConfigs()
	log := logger.Nop()
	return NewRunner(RunnerOptions{
		Source:    source,
		Scorer:    leadscoring.NewScorer(lead, log),
		Analyzer:  pipelinehealth.NewAnalyzer(health, log),
		Predictor: churnrisk.NewPredictor(churn, log),
		Writeback: writeback.NewService(source, log),
		Notifier:  notifications.NewService(log, notifications.NewLogChannel(log)),
		Logger:    log,
	})
}

func TestRunFullAnalysis(t *testing.T) {
	mock := salesforce.NewMockSource(42)
	runner := testRunner(mock)

	result, err := runner.Run(context.Background(), ActionFull)
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 200, result.LeadsScored)
	assert.Equal(t, 150, result.OpportunitiesAnalyzed)
	assert.Equal(t, 100, result.AccountsScored)
	assert.Greater(t, result.HealthScore, 0.0)

	// scores written back for every lead and account
	assert.Equal(t, 200, result.Writeback.LeadsUpdated)
	assert.Equal(t, 100, result.Writeback.AccountsUpdated)
	assert.Equal(t, 0, result.Writeback.Errors)

	// tasks only for hot leads and high-risk accounts
	hot := result.Leads.Distribution[leadscoring.TierCritical] +
		result.Leads.Distribution[leadscoring.TierHigh]
	expected := hot + result.Churn.Breakdown[churnrisk.LevelHigh]
	assert.Equal(t, expected, result.Writeback.TasksCreated)
	assert.Len(t, mock.RecordedTasks(), expected)
}

func TestRunSingleEngineActions(t *testing.T) {
	mock := salesforce.NewMockSource(42)
	runner := testRunner(mock)
	ctx := context.Background()

	leads, err := runner.Run(ctx, ActionLeadScoring)
	require.NoError(t, err)
	assert.NotNil(t, leads.Leads)
	assert.Nil(t, leads.Pipeline)
	assert.Nil(t, leads.Churn)
	// no writeback outside full runs
	assert.Equal(t, 0, leads.Writeback.LeadsUpdated)

	health, err := runner.Run(ctx, ActionPipelineHealth)
	require.NoError(t, err)
	assert.Nil(t, health.Leads)
	assert.NotNil(t, health.Pipeline)

	churnResult, err := runner.Run(ctx, ActionChurn)
	require.NoError(t, err)
	assert.NotNil(t, churnResult.Churn)
	assert.Equal(t, 100, churnResult.AccountsScored)
}

func TestRunIdempotentScoring(t *testing.T) {
	runner := testRunner(salesforce.NewMockSource(7))
	ctx := context.Background()

	first, err := runner.Run(ctx, ActionLeadScoring)
	require.NoError(t, err)
	second, err := runner.Run(ctx, ActionLeadScoring)
	require.NoError(t, err)

	assert.Equal(t, first.Leads.Leads, second.Leads.Leads)
	assert.Equal(t, first.Leads.Distribution, second.Leads.Distribution)
}

// scriptedSource returns fixed collections.
type scriptedSource struct {
	*salesforce.MockSource
	leads    []models.Lead
	accounts []models.Account
	cases    []models.Case
}

func (s *scriptedSource) GetLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	return s.leads, nil
}

func (s *scriptedSource) GetOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	return nil, nil
}

func (s *scriptedSource) GetAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	return s.accounts, nil
}

func (s *scriptedSource) GetCases(ctx context.Context, limit int) ([]models.Case, error) {
	return s.cases, nil
}

func TestRunEndToEndScenarios(t *testing.T) {
	activity := time.Now().UTC().AddDate(0, 0, -400)
	source := &scriptedSource{
		MockSource: salesforce.NewMockSource(1),
		leads: []models.Lead{
			{
				ID: "00Qhot", Company: "Hot Co", Industry: "Technology",
				NumberOfEmployees: fptr(5000), AnnualRevenue: fptr(2_000_000),
				WebsiteVisits: fptr(50), ContentDownloads: fptr(10),
				DaysSinceLastActivity: fptr(1), EmailOpens: fptr(20),
			},
			{
				ID: "00Qcold", Company: "Cold Co", Industry: "Retail",
				NumberOfEmployees: fptr(10), AnnualRevenue: fptr(10_000),
				WebsiteVisits: fptr(0), ContentDownloads: fptr(0),
				DaysSinceLastActivity: fptr(200), EmailOpens: fptr(0),
			},
			{ID: "00Qnull"},
		},
		accounts: []models.Account{
			{ID: "A1", Name: "Churner", AnnualRevenue: fptr(3_000_000), LastActivityDate: &activity},
			{ID: "A2", AnnualRevenue: fptr(1_000_000)},
			{ID: "A3", AnnualRevenue: fptr(1_000_000)},
		},
	}
	for i := 0; i < 10; i++ {
		source.cases = append(source.cases, models.Case{
			ID: "C" + string(rune('a'+i)), AccountID: "A1",
			Status: "Working", SatisfactionScore: fptr(1),
		})
	}

	runner := testRunner(source)
	result, err := runner.Run(context.Background(), ActionFull)
	require.NoError(t, err)

	byID := map[string]leadscoring.ScoredLead{}
	for _, lead := range result.Leads.Leads {
		byID[lead.LeadID] = lead
	}
	assert.Equal(t, leadscoring.TierCritical, byID["00Qhot"].Tier)
	assert.Equal(t, leadscoring.TierLow, byID["00Qcold"].Tier)
	assert.Equal(t, 0.0, byID["00Qnull"].Score)
	assert.Equal(t, leadscoring.TierLow, byID["00Qnull"].Tier)

	require.Len(t, result.Churn.Accounts, 3)
	assert.Equal(t, churnrisk.LevelHigh, result.Churn.Accounts[0].RiskLevel)
	assert.Contains(t, result.Churn.HighRiskIDs, "A1")
}

// Dirty field values must never abort a run: the schema only checks
// structure, and the engines clip whatever range violations get through.
func TestRunToleratesOutOfRangeFieldValues(t *testing.T) {
	badCSAT := 7.0
	source := &scriptedSource{
		MockSource: salesforce.NewMockSource(1),
		leads: []models.Lead{
			{ID: "00Qdirty", Company: "Dirty Data Ltd", DaysSinceLastActivity: fptr(-3)},
		},
		accounts: []models.Account{
			{ID: "Adirty", Name: "Overjoyed Inc", AnnualRevenue: fptr(1_000_000)},
		},
		cases: []models.Case{
			{ID: "Cdirty", AccountID: "Adirty", Status: "Working", SatisfactionScore: &badCSAT},
		},
	}
	runner := testRunner(source)

	result, err := runner.Run(context.Background(), ActionFull)
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	// a negative activity age clips to full responsiveness credit
	require.Len(t, result.Leads.Leads, 1)
	assert.Equal(t, 100.0, result.Leads.Leads[0].Signals.Responsiveness)

	// CSAT above the 1-5 band clips to zero dissatisfaction
	require.Len(t, result.Churn.Accounts, 1)
	assert.Equal(t, 0.0, result.Churn.Accounts[0].Signals.Satisfaction)
}

func TestParseAction(t *testing.T) {
	for _, action := range []string{ActionLeadScoring, ActionPipelineHealth, ActionChurn, ActionFull} {
		got, err := ParseAction(action)
		require.NoError(t, err)
		assert.Equal(t, action, got)
	}

	_, err := ParseAction("everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}
