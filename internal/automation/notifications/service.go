// Package notifications fans alerts and run summaries out to the
// configured channels. Channel failures are logged and counted, never
// propagated: a dead webhook must not fail an analytics run.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/common/metrics"
)

type Service struct {
	channels []Channel
	log      logger.Logger
}

// NewService wires the given channels. The log channel should always be
// included so every alert leaves a trace even with all else disabled.
func NewService(log logger.Logger, channels ...Channel) *Service {
	return &Service{channels: channels, log: log}
}

// SendAlert delivers the alert on every channel. Returns the number of
// channels that succeeded.
func (s *Service) SendAlert(ctx context.Context, alert Alert) int {
	var delivered int
	for _, ch := range s.channels {
		if err := ch.Send(ctx, alert); err != nil {
			metrics.NotificationsSent.WithLabelValues(ch.Name(), "error").Inc()
			s.log.WithError(err).Warn("Notification channel failed", map[string]interface{}{
				"channel": ch.Name(),
				"subject": alert.Subject,
			})
			continue
		}
		metrics.NotificationsSent.WithLabelValues(ch.Name(), "success").Inc()
		delivered++
	}
	return delivered
}

// RunSummaryInput collects the engine outputs a daily summary reports on.
// Any of the fields may be nil when the corresponding engine did not run.
type RunSummaryInput struct {
	RunID    string
	Leads    *leadscoring.Result
	Pipeline *pipelinehealth.Report
	Churn    *churnrisk.Result
}

// SendDailySummary renders the run summary and delivers it on every
// channel. Severity escalates when critical leads or high churn risk
// are present.
func (s *Service) SendDailySummary(ctx context.Context, input RunSummaryInput) int {
	message := RenderSummary(input)
	severity := "info"
	if (input.Leads != nil && input.Leads.Distribution[leadscoring.TierCritical] > 0) ||
		(input.Churn != nil && input.Churn.Breakdown[churnrisk.LevelHigh] > 0) {
		severity = "warning"
	}

	return s.SendAlert(ctx, Alert{
		Severity: severity,
		Subject:  "Daily CRM analytics summary",
		Message:  message,
	})
}

// RenderSummary builds the human-readable daily summary text.
func RenderSummary(input RunSummaryInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analytics run %s\n", input.RunID)

	if input.Leads != nil {
		fmt.Fprintf(&b, "\nLead scoring: %d leads, average score %.1f\n",
			input.Leads.TotalLeads, input.Leads.AverageScore)
		fmt.Fprintf(&b, "  Critical: %d, High: %d, Medium: %d, Low: %d\n",
			input.Leads.Distribution[leadscoring.TierCritical],
			input.Leads.Distribution[leadscoring.TierHigh],
			input.Leads.Distribution[leadscoring.TierMedium],
			input.Leads.Distribution[leadscoring.TierLow])
	}

	if input.Pipeline != nil {
		fmt.Fprintf(&b, "\nPipeline health: %.1f (%s), coverage %.1fx, win rate %.1f%%\n",
			input.Pipeline.Score, input.Pipeline.Rating,
			input.Pipeline.CoverageRatio, input.Pipeline.WinRate)
		for _, risk := range input.Pipeline.RiskIndicators {
			fmt.Fprintf(&b, "  Risk: %s\n", risk)
		}
		for _, rec := range input.Pipeline.Recommendations {
			fmt.Fprintf(&b, "  Recommendation: %s\n", rec)
		}
	}

	if input.Churn != nil {
		fmt.Fprintf(&b, "\nChurn risk: %d accounts, %d high risk, revenue at risk $%.0f\n",
			input.Churn.TotalAccounts,
			input.Churn.Breakdown[churnrisk.LevelHigh],
			input.Churn.RevenueAtRisk)
	}

	return b.String()
}
