// Package writeback pushes computed scores back into the CRM and opens
// follow-up tasks for the records that need human attention. Per-record
// failures are logged and counted; one bad record never aborts a batch.
package writeback

import (
	"context"
	"fmt"
	"time"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/common/metrics"
	"salesforce-analytics/internal/models"
	"salesforce-analytics/internal/salesforce"
)

type Service struct {
	source salesforce.RecordSource
	log    logger.Logger
	now    func() time.Time
}

func NewService(source salesforce.RecordSource, log logger.Logger) *Service {
	return &Service{source: source, log: log, now: time.Now}
}

// Summary counts what one writeback pass accomplished.
type Summary struct {
	LeadsUpdated    int `json:"leads_updated"`
	AccountsUpdated int `json:"accounts_updated"`
	TasksCreated    int `json:"tasks_created"`
	Errors          int `json:"errors"`
}

// UpdateLeadScores writes score and priority onto every scored lead.
func (s *Service) UpdateLeadScores(ctx context.Context, leads []leadscoring.ScoredLead) (updated, failed int) {
	stamp := s.now().UTC().Format(time.RFC3339)
	for _, lead := range leads {
		fields := map[string]interface{}{
			"Lead_Score__c":    lead.Score,
			"Lead_Priority__c": lead.Tier,
			"Score_Updated__c": stamp,
		}
		if err := s.source.UpdateRecord(ctx, "Lead", lead.LeadID, fields); err != nil {
			failed++
			metrics.WritebackUpdates.WithLabelValues("Lead", "error").Inc()
			s.log.WithError(err).Warn("Lead score writeback failed", map[string]interface{}{
				"lead_id": lead.LeadID,
			})
			continue
		}
		updated++
		metrics.WritebackUpdates.WithLabelValues("Lead", "success").Inc()
	}
	return updated, failed
}

// UpdateChurnRisk writes risk score and level onto every scored account.
func (s *Service) UpdateChurnRisk(ctx context.Context, accounts []churnrisk.ScoredAccount) (updated, failed int) {
	stamp := s.now().UTC().Format(time.RFC3339)
	for _, acct := range accounts {
		fields := map[string]interface{}{
			"Churn_Risk_Score__c": acct.RiskScore,
			"Churn_Risk_Level__c": acct.RiskLevel,
			"Risk_Updated__c":     stamp,
		}
		if err := s.source.UpdateRecord(ctx, "Account", acct.AccountID, fields); err != nil {
			failed++
			metrics.WritebackUpdates.WithLabelValues("Account", "error").Inc()
			s.log.WithError(err).Warn("Churn risk writeback failed", map[string]interface{}{
				"account_id": acct.AccountID,
			})
			continue
		}
		updated++
		metrics.WritebackUpdates.WithLabelValues("Account", "success").Inc()
	}
	return updated, failed
}

// CreateFollowUpTasks opens a task for every Critical or High tier lead.
// Critical leads get a next-day due date, High tier gets three days.
func (s *Service) CreateFollowUpTasks(ctx context.Context, leads []leadscoring.ScoredLead) (created, failed int) {
	for _, lead := range leads {
		var due time.Time
		var priority string
		switch lead.Tier {
		case leadscoring.TierCritical:
			due = s.now().UTC().AddDate(0, 0, 1)
			priority = "High"
		case leadscoring.TierHigh:
			due = s.now().UTC().AddDate(0, 0, 3)
			priority = "Normal"
		default:
			continue
		}

		task := models.Task{
			WhoID:        lead.LeadID,
			Subject:      fmt.Sprintf("Follow up: %s lead %s (score %.0f)", lead.Tier, lead.Company, lead.Score),
			Description:  fmt.Sprintf("Lead scored %.2f and landed in the %s tier. Reach out promptly.", lead.Score, lead.Tier),
			Priority:     priority,
			Status:       "Not Started",
			ActivityDate: due.Format("2006-01-02"),
			Type:         "Call",
		}
		if _, err := s.source.CreateTask(ctx, task); err != nil {
			failed++
			s.log.WithError(err).Warn("Follow-up task creation failed", map[string]interface{}{
				"lead_id": lead.LeadID,
			})
			continue
		}
		created++
	}
	return created, failed
}

// CreateInterventionTasks opens a retention task for every high-risk account.
func (s *Service) CreateInterventionTasks(ctx context.Context, accounts []churnrisk.ScoredAccount) (created, failed int) {
	for _, acct := range accounts {
		if acct.RiskLevel != churnrisk.LevelHigh {
			continue
		}

		description := fmt.Sprintf("Churn risk score %.3f.", acct.RiskScore)
		for _, factor := range acct.RiskFactors {
			description += " " + factor + "."
		}

		task := models.Task{
			WhatID:       acct.AccountID,
			Subject:      fmt.Sprintf("Churn intervention: %s", acct.Name),
			Description:  description,
			Priority:     "High",
			Status:       "Not Started",
			ActivityDate: s.now().UTC().AddDate(0, 0, 1).Format("2006-01-02"),
			Type:         "Other",
		}
		if _, err := s.source.CreateTask(ctx, task); err != nil {
			failed++
			s.log.WithError(err).Warn("Intervention task creation failed", map[string]interface{}{
				"account_id": acct.AccountID,
			})
			continue
		}
		created++
	}
	return created, failed
}

// RunFull performs score updates and task creation for one full run.
func (s *Service) RunFull(ctx context.Context, leads []leadscoring.ScoredLead, accounts []churnrisk.ScoredAccount) Summary {
	var sum Summary

	updated, failed := s.UpdateLeadScores(ctx, leads)
	sum.LeadsUpdated = updated
	sum.Errors += failed

	updated, failed = s.UpdateChurnRisk(ctx, accounts)
	sum.AccountsUpdated = updated
	sum.Errors += failed

	created, failed := s.CreateFollowUpTasks(ctx, leads)
	sum.TasksCreated += created
	sum.Errors += failed

	created, failed = s.CreateInterventionTasks(ctx, accounts)
	sum.TasksCreated += created
	sum.Errors += failed

	s.log.Info("Writeback complete", map[string]interface{}{
		"leads_updated":    sum.LeadsUpdated,
		"accounts_updated": sum.AccountsUpdated,
		"tasks_created":    sum.TasksCreated,
		"errors":           sum.Errors,
	})
	return sum
}
