// Package pipeline orchestrates one analytics run: fetch a CRM
// snapshot, run the requested engines, persist the results, write
// scores back, and notify. Runs are synchronous and single threaded;
// one invocation processes one full snapshot.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/automation/notifications"
	"salesforce-analytics/internal/automation/writeback"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/common/metrics"
	"salesforce-analytics/internal/events"
	"salesforce-analytics/internal/models"
	"salesforce-analytics/internal/salesforce"
	"salesforce-analytics/internal/storage"
)

// Actions a run can execute.
const (
	ActionLeadScoring    = "lead_scoring"
	ActionPipelineHealth = "pipeline_health"
	ActionChurn          = "churn_prediction"
	ActionFull           = "full_analysis"
)

// fetchLimit bounds each record query; the reference scale is a few
// hundred records per run.
const fetchLimit = 500

// Sinks are the optional result consumers. Any of them may be nil;
// sink failures are logged and never fail the run.
type Sinks struct {
	Store   *storage.S3Store
	Cache   *storage.Cache
	History *storage.RunHistory
	Index   *storage.SearchIndex
}

// Runner executes analytics runs against one record source.
type Runner struct {
	source    salesforce.RecordSource
	scorer    *leadscoring.Scorer
	analyzer  *pipelinehealth.Analyzer
	predictor *churnrisk.Predictor
	sinks     Sinks
	writeback *writeback.Service
	notifier  *notifications.Service
	producer  *events.Producer
	log       logger.Logger
}

type RunnerOptions struct {
	Source    salesforce.RecordSource
	Scorer    *leadscoring.Scorer
	Analyzer  *pipelinehealth.Analyzer
	Predictor *churnrisk.Predictor
	Sinks     Sinks
	Writeback *writeback.Service
	Notifier  *notifications.Service
	Producer  *events.Producer
	Logger    logger.Logger
}

func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:    opts.Source,
		scorer:    opts.Scorer,
		analyzer:  opts.Analyzer,
		predictor: opts.Predictor,
		sinks:     opts.Sinks,
		writeback: opts.Writeback,
		notifier:  opts.Notifier,
		producer:  opts.Producer,
		log:       opts.Logger,
	}
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID                 string            `json:"run_id"`
	Action                string            `json:"action"`
	Status                string            `json:"status"`
	StartedAt             time.Time         `json:"started_at"`
	DurationMS            int64             `json:"duration_ms"`
	LeadsScored           int               `json:"leads_scored"`
	OpportunitiesAnalyzed int               `json:"opportunities_analyzed"`
	AccountsScored        int               `json:"accounts_scored"`
	HealthScore           float64           `json:"health_score"`
	CriticalLeads         int               `json:"critical_leads"`
	HighRiskAccounts      int               `json:"high_risk_accounts"`
	StoredKeys            []string          `json:"stored_keys,omitempty"`
	Writeback             writeback.Summary `json:"writeback"`

	// engine outputs, populated per action
	Leads    *leadscoring.Result    `json:"-"`
	Pipeline *pipelinehealth.Report `json:"-"`
	Churn    *churnrisk.Result      `json:"-"`
}

// Run executes one action end to end. Only fetch and validation
// failures abort a run; every downstream collaborator failure is
// logged and the run continues.
func (r *Runner) Run(ctx context.Context, action string) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:     uuid.NewString(),
		Action:    action,
		Status:    "success",
		StartedAt: start.UTC(),
	}

	r.log.Info("Starting analytics run", map[string]interface{}{
		"run_id": result.RunID,
		"action": action,
	})

	snap, err := r.fetch(ctx, action)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(action, "error").Inc()
		return nil, err
	}
	if err := salesforce.ValidateSnapshot(snap); err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(action, "error").Inc()
		return nil, err
	}

	r.runEngines(action, snap, result)
	r.persist(ctx, action, result)

	if action == ActionFull && r.writeback != nil {
		var leads []leadscoring.ScoredLead
		var accounts []churnrisk.ScoredAccount
		if result.Leads != nil {
			leads = result.Leads.Leads
		}
		if result.Churn != nil {
			accounts = result.Churn.Accounts
		}
		result.Writeback = r.writeback.RunFull(ctx, leads, accounts)
	}

	if action == ActionFull && r.notifier != nil {
		r.notifier.SendDailySummary(ctx, notifications.RunSummaryInput{
			RunID:    result.RunID,
			Leads:    result.Leads,
			Pipeline: result.Pipeline,
			Churn:    result.Churn,
		})
	}

	result.DurationMS = time.Since(start).Milliseconds()
	r.publishEvent(ctx, result)
	r.recordHistory(ctx, result)

	metrics.AnalysisRunsTotal.WithLabelValues(action, "success").Inc()
	metrics.AnalysisRunDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	r.log.Info("Analytics run complete", map[string]interface{}{
		"run_id":      result.RunID,
		"action":      action,
		"duration_ms": result.DurationMS,
	})
	return result, nil
}

func (r *Runner) fetch(ctx context.Context, action string) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error

	if action == ActionLeadScoring || action == ActionFull {
		if snap.Leads, err = r.source.GetLeads(ctx, fetchLimit); err != nil {
			return snap, err
		}
	}
	if action == ActionPipelineHealth || action == ActionFull {
		if snap.Opportunities, err = r.source.GetOpportunities(ctx, fetchLimit); err != nil {
			return snap, err
		}
	}
	if action == ActionChurn || action == ActionFull {
		if snap.Accounts, err = r.source.GetAccounts(ctx, fetchLimit); err != nil {
			return snap, err
		}
		if snap.Cases, err = r.source.GetCases(ctx, fetchLimit); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (r *Runner) runEngines(action string, snap models.Snapshot, result *RunResult) {
	if action == ActionLeadScoring || action == ActionFull {
		result.Leads = r.scorer.Score(snap.Leads)
		result.LeadsScored = result.Leads.TotalLeads
		result.CriticalLeads = result.Leads.Distribution[leadscoring.TierCritical]
		metrics.RecordsScored.WithLabelValues("lead_scoring").Add(float64(result.LeadsScored))
	}
	if action == ActionPipelineHealth || action == ActionFull {
		result.Pipeline = r.analyzer.Analyze(snap.Opportunities)
		result.OpportunitiesAnalyzed = result.Pipeline.TotalOpportunities
		result.HealthScore = result.Pipeline.Score
		metrics.RecordsScored.WithLabelValues("pipeline_health").Add(float64(result.OpportunitiesAnalyzed))
	}
	if action == ActionChurn || action == ActionFull {
		result.Churn = r.predictor.Predict(snap.Accounts, snap.Cases)
		result.AccountsScored = result.Churn.TotalAccounts
		result.HighRiskAccounts = result.Churn.Breakdown[churnrisk.LevelHigh]
		metrics.RecordsScored.WithLabelValues("churn_prediction").Add(float64(result.AccountsScored))
	}
}

// persist writes each produced result to the configured sinks.
func (r *Runner) persist(ctx context.Context, action string, result *RunResult) {
	type output struct {
		analysisType string
		payload      interface{}
	}
	var outputs []output
	if result.Leads != nil {
		outputs = append(outputs, output{ActionLeadScoring, result.Leads})
	}
	if result.Pipeline != nil {
		outputs = append(outputs, output{ActionPipelineHealth, result.Pipeline})
	}
	if result.Churn != nil {
		outputs = append(outputs, output{ActionChurn, result.Churn})
	}

	for _, out := range outputs {
		if r.sinks.Store != nil {
			key, err := r.sinks.Store.StoreAnalytics(ctx, result.RunID, out.analysisType, out.payload)
			if err != nil {
				metrics.SinkWrites.WithLabelValues("s3", "error").Inc()
				r.log.WithError(err).Warn("Result store write failed", map[string]interface{}{
					"analysis_type": out.analysisType,
				})
			} else {
				metrics.SinkWrites.WithLabelValues("s3", "success").Inc()
				result.StoredKeys = append(result.StoredKeys, key)
			}
		}
		if r.sinks.Cache != nil {
			if err := r.sinks.Cache.SetLatest(ctx, out.analysisType, out.payload); err != nil {
				metrics.SinkWrites.WithLabelValues("redis", "error").Inc()
				r.log.WithError(err).Warn("Result cache write failed", map[string]interface{}{
					"analysis_type": out.analysisType,
				})
			} else {
				metrics.SinkWrites.WithLabelValues("redis", "success").Inc()
			}
		}
	}

	if r.sinks.Index != nil {
		if result.Leads != nil {
			if err := r.sinks.Index.IndexScoredLeads(ctx, result.RunID, result.Leads.Leads); err != nil {
				metrics.SinkWrites.WithLabelValues("elasticsearch", "error").Inc()
				r.log.WithError(err).Warn("Lead index write failed", nil)
			} else {
				metrics.SinkWrites.WithLabelValues("elasticsearch", "success").Inc()
			}
		}
		if result.Churn != nil {
			if err := r.sinks.Index.IndexScoredAccounts(ctx, result.RunID, result.Churn.Accounts); err != nil {
				metrics.SinkWrites.WithLabelValues("elasticsearch", "error").Inc()
				r.log.WithError(err).Warn("Account index write failed", nil)
			} else {
				metrics.SinkWrites.WithLabelValues("elasticsearch", "success").Inc()
			}
		}
	}
}

func (r *Runner) publishEvent(ctx context.Context, result *RunResult) {
	if r.producer == nil {
		return
	}
	err := r.producer.Publish(ctx, events.RunEvent{
		RunID:          result.RunID,
		Action:         result.Action,
		Status:         result.Status,
		LeadsScored:    result.LeadsScored,
		AccountsScored: result.AccountsScored,
		HealthScore:    result.HealthScore,
		CriticalLeads:  result.CriticalLeads,
		HighRiskCount:  result.HighRiskAccounts,
		DurationMS:     result.DurationMS,
	})
	if err != nil {
		r.log.WithError(err).Warn("Run event publish failed", map[string]interface{}{
			"run_id": result.RunID,
		})
	}
}

func (r *Runner) recordHistory(ctx context.Context, result *RunResult) {
	if r.sinks.History == nil {
		return
	}
	location := ""
	if len(result.StoredKeys) > 0 {
		location = result.StoredKeys[0]
	}
	err := r.sinks.History.Record(ctx, storage.RunRecord{
		RunID:          result.RunID,
		Action:         result.Action,
		Status:         result.Status,
		LeadsScored:    result.LeadsScored,
		AccountsScored: result.AccountsScored,
		HealthScore:    result.HealthScore,
		DurationMS:     result.DurationMS,
		S3Location:     location,
	})
	if err != nil {
		r.log.WithError(err).Warn("Run history insert failed", map[string]interface{}{
			"run_id": result.RunID,
		})
	}
}

// ValidAction reports whether action names a supported run type.
func ValidAction(action string) bool {
	switch action {
	case ActionLeadScoring, ActionPipelineHealth, ActionChurn, ActionFull:
		return true
	}
	return false
}

// ParseAction normalizes and validates an action string.
func ParseAction(action string) (string, error) {
	if !ValidAction(action) {
		return "", fmt.Errorf("unknown action %q (valid: %s, %s, %s, %s)",
			action, ActionLeadScoring, ActionPipelineHealth, ActionChurn, ActionFull)
	}
	return action, nil
}
