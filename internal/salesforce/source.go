// Package salesforce provides the CRM record source for the analytics
// pipeline: a live REST client and a deterministic mock generator behind a
// single interface.
package salesforce

import (
	"context"

	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

// RecordSource abstracts where CRM records come from. The pipeline, the
// writeback service, and the API server all consume this interface so the
// mock generator can stand in for a live org.
type RecordSource interface {
	GetLeads(ctx context.Context, limit int) ([]models.Lead, error)
	GetOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error)
	GetAccounts(ctx context.Context, limit int) ([]models.Account, error)
	GetCases(ctx context.Context, limit int) ([]models.Case, error)

	UpdateRecord(ctx context.Context, object, recordID string, fields map[string]interface{}) error
	CreateTask(ctx context.Context, task models.Task) (string, error)
}

// NewSource returns the configured record source. Mock mode never touches
// the network and needs no credentials.
func NewSource(cfg config.SalesforceConfig, log logger.Logger) (RecordSource, error) {
	if cfg.UseMock {
		log.Info("Using mock record source", map[string]interface{}{
			"seed": cfg.MockSeed,
		})
		return NewMockSource(cfg.MockSeed), nil
	}

	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}
