package salesforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/models"
)

func TestValidateSnapshotAcceptsMockData(t *testing.T) {
	m := NewMockSource(42)
	require.NoError(t, ValidateSnapshot(m.Snapshot()))
}

func TestValidateSnapshotRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name string
		snap models.Snapshot
	}{
		{
			name: "lead missing id",
			snap: models.Snapshot{
				Leads:         []models.Lead{{Company: "No ID Inc"}},
				Opportunities: []models.Opportunity{},
				Accounts:      []models.Account{},
				Cases:         []models.Case{},
			},
		},
		{
			name: "account with empty id",
			snap: models.Snapshot{
				Leads:         []models.Lead{},
				Opportunities: []models.Opportunity{},
				Accounts:      []models.Account{{ID: "", Name: "Anonymous"}},
				Cases:         []models.Case{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshot(tt.snap)
			require.Error(t, err)

			se, ok := err.(*stderrors.StandardError)
			require.True(t, ok)
			assert.Equal(t, stderrors.ErrCodeDatasetInvalid, se.Code)
			assert.False(t, se.Retryable)
		})
	}
}

// Out-of-range values pass validation; the engines clip them instead of
// the run aborting on a single dirty field.
func TestValidateSnapshotAcceptsOutOfRangeValues(t *testing.T) {
	neg := -5.0
	negDays := -3.0
	badCSAT := 7.0
	bigProb := 140.0

	snap := models.Snapshot{
		Leads: []models.Lead{
			{ID: "00Q1", NumberOfEmployees: &neg, DaysSinceLastActivity: &negDays},
		},
		Opportunities: []models.Opportunity{{ID: "0061", Probability: &bigProb}},
		Accounts:      []models.Account{{ID: "0011", AnnualRevenue: &neg}},
		Cases:         []models.Case{{ID: "5001", SatisfactionScore: &badCSAT}},
	}
	assert.NoError(t, ValidateSnapshot(snap))
}

func TestValidateSnapshotAllowsMissingOptionalFields(t *testing.T) {
	snap := models.Snapshot{
		Leads:         []models.Lead{{ID: "00Q1"}},
		Opportunities: []models.Opportunity{{ID: "0061"}},
		Accounts:      []models.Account{{ID: "0011"}},
		Cases:         []models.Case{{ID: "5001"}},
	}
	assert.NoError(t, ValidateSnapshot(snap))
}
