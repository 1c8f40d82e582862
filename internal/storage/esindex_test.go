package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

func testSearchIndex(t *testing.T, handler http.HandlerFunc) *SearchIndex {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return NewSearchIndex(client, config.ElasticsearchConfig{
		Enabled:      true,
		LeadIndex:    "scored-leads",
		AccountIndex: "scored-accounts",
	}, logger.Nop())
}

func TestIndexScoredLeadsBulkPayload(t *testing.T) {
	var body string
	si := testSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":false,"items":[]}`))
	})

	err := si.IndexScoredLeads(context.Background(), "run-1", []leadscoring.ScoredLead{
		{LeadID: "00Q1", Score: 92.24, Tier: "Critical"},
		{LeadID: "00Q2", Score: 15, Tier: "Low"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"00Q1"`)
	assert.Contains(t, lines[1], `"run_id":"run-1"`)
	assert.Contains(t, lines[2], `"_id":"00Q2"`)
}

func TestIndexScoredLeadsItemErrors(t *testing.T) {
	si := testSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":true,"items":[]}`))
	})

	err := si.IndexScoredLeads(context.Background(), "run-1", []leadscoring.ScoredLead{
		{LeadID: "00Q1"},
	})
	require.Error(t, err)

	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeIndexWriteFailed, se.Code)
}

func TestIndexScoredLeadsEmptyInputIsNoop(t *testing.T) {
	si := testSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	})
	assert.NoError(t, si.IndexScoredLeads(context.Background(), "run-1", nil))
}
