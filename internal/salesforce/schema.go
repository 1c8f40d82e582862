package salesforce

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/models"
)

// snapshotSchema guards the structural boundary between record fetching
// and the engines: every record needs an Id, and every signal that is
// present must carry its declared type. Value ranges are deliberately not
// checked here; the engines clip out-of-range numerics (a negative
// activity age, a CSAT outside its band) to safe values, so a bad field
// never aborts a run.
const snapshotSchema = `{
  "type": "object",
  "required": ["leads", "opportunities", "accounts", "cases"],
  "properties": {
    "leads": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["Id"],
        "properties": {
          "Id": {"type": "string", "minLength": 1},
          "NumberOfEmployees": {"type": "number"},
          "AnnualRevenue": {"type": "number"},
          "Website_Visits__c": {"type": "number"},
          "Content_Downloads__c": {"type": "number"},
          "Days_Since_Last_Activity__c": {"type": "number"},
          "Email_Opens__c": {"type": "number"}
        }
      }
    },
    "opportunities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["Id"],
        "properties": {
          "Id": {"type": "string", "minLength": 1},
          "Amount": {"type": "number"},
          "Probability": {"type": "number"},
          "Days_In_Stage__c": {"type": "number"}
        }
      }
    },
    "accounts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["Id"],
        "properties": {
          "Id": {"type": "string", "minLength": 1},
          "AnnualRevenue": {"type": "number"}
        }
      }
    },
    "cases": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["Id"],
        "properties": {
          "Id": {"type": "string", "minLength": 1},
          "Customer_Satisfaction__c": {"type": "number"}
        }
      }
    }
  }
}`

// ValidateSnapshot checks a fetched dataset against the snapshot schema.
// Empty collections are valid; a query can legitimately return no records.
func ValidateSnapshot(snap models.Snapshot) error {
	if snap.Leads == nil {
		snap.Leads = []models.Lead{}
	}
	if snap.Opportunities == nil {
		snap.Opportunities = []models.Opportunity{}
	}
	if snap.Accounts == nil {
		snap.Accounts = []models.Account{}
	}
	if snap.Cases == nil {
		snap.Cases = []models.Case{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return stderrors.NewDatasetInvalidError(fmt.Sprintf("failed to marshal snapshot: %s", err))
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(snapshotSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return stderrors.NewDatasetInvalidError(fmt.Sprintf("schema evaluation failed: %s", err))
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return stderrors.NewDatasetInvalidError(strings.Join(msgs, "; "))
	}
	return nil
}
