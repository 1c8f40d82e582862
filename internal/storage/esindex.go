package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

// SearchIndex bulk-indexes scored records per run so sales ops can
// query them ad hoc outside the dashboard.
type SearchIndex struct {
	client *elasticsearch.Client
	cfg    config.ElasticsearchConfig
	log    logger.Logger
}

func NewSearchIndex(client *elasticsearch.Client, cfg config.ElasticsearchConfig, log logger.Logger) *SearchIndex {
	return &SearchIndex{client: client, cfg: cfg, log: log}
}

// IndexScoredLeads bulk-indexes one run's scored leads, keyed by lead ID
// so reruns overwrite rather than duplicate.
func (si *SearchIndex) IndexScoredLeads(ctx context.Context, runID string, leads []leadscoring.ScoredLead) error {
	if len(leads) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, lead := range leads {
		doc := struct {
			leadscoring.ScoredLead
			RunID string `json:"run_id"`
		}{ScoredLead: lead, RunID: runID}
		if err := appendBulkOp(&buf, si.cfg.LeadIndex, lead.LeadID, doc); err != nil {
			return stderrors.NewIndexWriteFailedError(si.cfg.LeadIndex, err)
		}
	}
	return si.bulk(ctx, si.cfg.LeadIndex, &buf, len(leads))
}

// IndexScoredAccounts bulk-indexes one run's churn-scored accounts.
func (si *SearchIndex) IndexScoredAccounts(ctx context.Context, runID string, accounts []churnrisk.ScoredAccount) error {
	if len(accounts) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, acct := range accounts {
		doc := struct {
			churnrisk.ScoredAccount
			RunID string `json:"run_id"`
		}{ScoredAccount: acct, RunID: runID}
		if err := appendBulkOp(&buf, si.cfg.AccountIndex, acct.AccountID, doc); err != nil {
			return stderrors.NewIndexWriteFailedError(si.cfg.AccountIndex, err)
		}
	}
	return si.bulk(ctx, si.cfg.AccountIndex, &buf, len(accounts))
}

func appendBulkOp(buf *bytes.Buffer, index, id string, doc interface{}) error {
	meta := map[string]map[string]string{
		"index": {"_index": index, "_id": id},
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	docLine, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	buf.Write(metaLine)
	buf.WriteByte('\n')
	buf.Write(docLine)
	buf.WriteByte('\n')
	return nil
}

func (si *SearchIndex) bulk(ctx context.Context, index string, body io.Reader, docs int) error {
	res, err := si.client.Bulk(body,
		si.client.Bulk.WithContext(ctx),
		si.client.Bulk.WithIndex(index),
	)
	if err != nil {
		return stderrors.NewIndexWriteFailedError(index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return stderrors.NewIndexWriteFailedError(index, fmt.Errorf("bulk request failed: %s", res.Status()))
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return stderrors.NewIndexWriteFailedError(index, err)
	}
	if result.Errors {
		return stderrors.NewIndexWriteFailedError(index, fmt.Errorf("bulk response contained item errors"))
	}

	si.log.Debug("Indexed scored records", map[string]interface{}{
		"index": index,
		"docs":  docs,
	})
	return nil
}
