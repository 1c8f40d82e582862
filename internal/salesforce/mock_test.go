package salesforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/models"
)

func TestMockSourceDeterministic(t *testing.T) {
	a := NewMockSource(42)
	b := NewMockSource(42)

	assert.Equal(t, a.leads, b.leads)
	assert.Equal(t, a.opportunities, b.opportunities)
	assert.Equal(t, a.accounts, b.accounts)
	assert.Equal(t, a.cases, b.cases)
}

func TestMockSourceDifferentSeeds(t *testing.T) {
	a := NewMockSource(1)
	b := NewMockSource(2)

	assert.NotEqual(t, a.leads[0].ID, b.leads[0].ID)
}

func TestMockSourceGetLeads(t *testing.T) {
	m := NewMockSource(7)
	ctx := context.Background()

	leads, err := m.GetLeads(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, leads, 50)

	all, err := m.GetLeads(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, mockLeadCount)

	over, err := m.GetLeads(ctx, mockLeadCount*2)
	require.NoError(t, err)
	assert.Len(t, over, mockLeadCount)
}

func TestMockSourceCasesReferenceAccounts(t *testing.T) {
	m := NewMockSource(7)

	accountIDs := make(map[string]bool, len(m.accounts))
	for _, acct := range m.accounts {
		accountIDs[acct.ID] = true
	}
	for _, c := range m.cases {
		assert.True(t, accountIDs[c.AccountID], "case %s references unknown account %s", c.ID, c.AccountID)
	}
}

func TestMockSourceProfileMix(t *testing.T) {
	m := NewMockSource(7)

	var withIndustry, sparse int
	for _, l := range m.leads {
		if l.Industry != "" {
			withIndustry++
		}
		if l.NumberOfEmployees == nil && l.AnnualRevenue == nil {
			sparse++
		}
	}

	// roughly 80% of leads carry an industry, roughly 20% are near-empty
	assert.Greater(t, withIndustry, mockLeadCount/2)
	assert.Greater(t, sparse, mockLeadCount/10)
	assert.Less(t, sparse, mockLeadCount/2)
}

func TestMockSourceRecordsWriteback(t *testing.T) {
	m := NewMockSource(7)
	ctx := context.Background()

	err := m.UpdateRecord(ctx, "Lead", "00Qabc", map[string]interface{}{"Rating": "Hot"})
	require.NoError(t, err)

	taskID, err := m.CreateTask(ctx, models.Task{
		WhoID:   "00Qabc",
		Subject: "Follow up with hot lead",
		Status:  "Not Started",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, taskID)

	updates := m.RecordedUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "Lead", updates[0].Object)
	assert.Equal(t, "00Qabc", updates[0].RecordID)
	assert.Equal(t, "Hot", updates[0].Fields["Rating"])

	tasks := m.RecordedTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Follow up with hot lead", tasks[0].Subject)
	assert.Equal(t, taskID, tasks[0].ID)
}
