package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesforce-analytics/internal/models"
)

// MockSource generates realistic CRM data without a live org. The same
// seed always yields the same dataset, so runs are reproducible and the
// engine outputs are stable across restarts.
//
// Lead quality follows a fixed profile mix so the scoring distribution
// covers all four tiers: hot leads are large, engaged, target-industry
// companies; dead leads are mostly empty records.
type MockSource struct {
	mu sync.Mutex

	leads         []models.Lead
	opportunities []models.Opportunity
	accounts      []models.Account
	cases         []models.Case

	// writeback activity recorded for inspection in tests
	updates []RecordedUpdate
	tasks   []models.Task
}

// RecordedUpdate is one UpdateRecord call captured by the mock.
type RecordedUpdate struct {
	Object   string
	RecordID string
	Fields   map[string]interface{}
}

const (
	mockLeadCount    = 200
	mockOppCount     = 150
	mockAccountCount = 100
)

var (
	mockTargetIndustries = []string{"Technology", "Finance", "Healthcare", "Manufacturing"}
	mockOtherIndustries  = []string{"Retail", "Education", "Hospitality", "Agriculture", "Media"}
	mockStages           = []string{"Prospecting", "Qualification", "Proposal", "Negotiation", "Closed Won", "Closed Lost"}
	mockFirstNames       = []string{"Alex", "Jordan", "Sam", "Casey", "Morgan", "Taylor", "Riley", "Quinn", "Avery", "Drew"}
	mockLastNames        = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Martinez", "Lopez"}
	mockCompanySuffixes  = []string{"Corp", "Inc", "LLC", "Group", "Systems", "Labs", "Partners", "Holdings"}
	mockCaseSubjects     = []string{
		"Login issues after update",
		"Billing discrepancy on invoice",
		"Feature request: export to CSV",
		"Integration sync failing",
		"Performance degradation reported",
		"Password reset not working",
	}
)

// NewMockSource builds the full dataset up front from the given seed.
func NewMockSource(seed int64) *MockSource {
	rng := rand.New(rand.NewSource(seed))
	m := &MockSource{}
	m.accounts = generateAccounts(rng)
	m.leads = generateLeads(rng)
	m.opportunities = generateOpportunities(rng, m.accounts)
	m.cases = generateCases(rng, m.accounts)
	return m
}

func fptr(v float64) *float64 { return &v }

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

func mockID(rng *rand.Rand, prefix string) string {
	// Salesforce IDs are 18 chars with a 3-char object prefix
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 15)
	for i := range b {
		b[i] = chars[rng.Intn(len(chars))]
	}
	return prefix + string(b)
}

func generateLeads(rng *rand.Rand) []models.Lead {
	leads := make([]models.Lead, 0, mockLeadCount)
	for i := 0; i < mockLeadCount; i++ {
		first := pick(rng, mockFirstNames)
		last := pick(rng, mockLastNames)
		company := fmt.Sprintf("%s %s", pick(rng, mockLastNames), pick(rng, mockCompanySuffixes))

		lead := models.Lead{
			ID:          mockID(rng, "00Q"),
			FirstName:   first,
			LastName:    last,
			Company:     company,
			Email:       fmt.Sprintf("%s.%s@%s.example.com", first, last, uuid.NewString()[:8]),
			Status:      "Open - Not Contacted",
			LeadSource:  pick(rng, []string{"Web", "Referral", "Trade Show", "Cold Call", "Partner"}),
			CreatedDate: time.Now().UTC().AddDate(0, 0, -rng.Intn(180)).Format(time.RFC3339),
		}

		// profile mix: 20% hot, 30% warm, 30% cold, 20% dead
		switch roll := rng.Float64(); {
		case roll < 0.20: // hot
			lead.Industry = pick(rng, mockTargetIndustries)
			lead.NumberOfEmployees = fptr(float64(1000 + rng.Intn(9000)))
			lead.AnnualRevenue = fptr(float64(10_000_000 + rng.Intn(90_000_000)))
			lead.WebsiteVisits = fptr(float64(30 + rng.Intn(50)))
			lead.ContentDownloads = fptr(float64(5 + rng.Intn(10)))
			lead.DaysSinceLastActivity = fptr(float64(rng.Intn(5)))
			lead.EmailOpens = fptr(float64(20 + rng.Intn(20)))
		case roll < 0.50: // warm
			lead.Industry = pick(rng, append(mockTargetIndustries, mockOtherIndustries...))
			lead.NumberOfEmployees = fptr(float64(200 + rng.Intn(800)))
			lead.AnnualRevenue = fptr(float64(1_000_000 + rng.Intn(9_000_000)))
			lead.WebsiteVisits = fptr(float64(10 + rng.Intn(20)))
			lead.ContentDownloads = fptr(float64(2 + rng.Intn(4)))
			lead.DaysSinceLastActivity = fptr(float64(5 + rng.Intn(15)))
			lead.EmailOpens = fptr(float64(8 + rng.Intn(12)))
		case roll < 0.80: // cold
			lead.Industry = pick(rng, mockOtherIndustries)
			lead.NumberOfEmployees = fptr(float64(10 + rng.Intn(190)))
			lead.AnnualRevenue = fptr(float64(100_000 + rng.Intn(900_000)))
			lead.WebsiteVisits = fptr(float64(rng.Intn(10)))
			lead.ContentDownloads = fptr(float64(rng.Intn(2)))
			lead.DaysSinceLastActivity = fptr(float64(20 + rng.Intn(40)))
			lead.EmailOpens = fptr(float64(rng.Intn(8)))
		default: // dead: sparse records with almost everything missing
			if rng.Float64() < 0.3 {
				lead.DaysSinceLastActivity = fptr(float64(60 + rng.Intn(120)))
			}
		}

		leads = append(leads, lead)
	}
	return leads
}

func generateAccounts(rng *rand.Rand) []models.Account {
	accounts := make([]models.Account, 0, mockAccountCount)
	for i := 0; i < mockAccountCount; i++ {
		last := time.Now().UTC().AddDate(0, 0, -rng.Intn(120))
		acct := models.Account{
			ID:                mockID(rng, "001"),
			Name:              fmt.Sprintf("%s %s", pick(rng, mockLastNames), pick(rng, mockCompanySuffixes)),
			Industry:          pick(rng, append(mockTargetIndustries, mockOtherIndustries...)),
			AnnualRevenue:     fptr(float64(500_000 + rng.Intn(50_000_000))),
			NumberOfEmployees: fptr(float64(10 + rng.Intn(5000))),
			Type:              pick(rng, []string{"Customer", "Customer - Direct", "Customer - Channel"}),
			BillingCountry:    pick(rng, []string{"USA", "Canada", "UK", "Germany", "Australia"}),
			LastActivityDate:  &last,
			CreatedDate:       time.Now().UTC().AddDate(0, -rng.Intn(36), 0).Format(time.RFC3339),
		}

		// a slice of accounts goes quiet, which drives engagement decay
		if rng.Float64() < 0.25 {
			stale := time.Now().UTC().AddDate(0, 0, -(90 + rng.Intn(180)))
			acct.LastActivityDate = &stale
		}
		accounts = append(accounts, acct)
	}
	return accounts
}

func generateOpportunities(rng *rand.Rand, accounts []models.Account) []models.Opportunity {
	opps := make([]models.Opportunity, 0, mockOppCount)
	for i := 0; i < mockOppCount; i++ {
		stage := pick(rng, mockStages)
		closed := stage == "Closed Won" || stage == "Closed Lost"

		var probability float64
		switch stage {
		case "Prospecting":
			probability = 10
		case "Qualification":
			probability = 30
		case "Proposal":
			probability = 55
		case "Negotiation":
			probability = float64(70 + rng.Intn(25))
		case "Closed Won":
			probability = 100
		case "Closed Lost":
			probability = 0
		}

		opp := models.Opportunity{
			ID:          mockID(rng, "006"),
			Name:        fmt.Sprintf("%s - New Business", pick(rng, mockCompanySuffixes)),
			AccountID:   accounts[rng.Intn(len(accounts))].ID,
			StageName:   stage,
			Amount:      fptr(float64(10_000 + rng.Intn(490_000))),
			Probability: fptr(probability),
			CloseDate:   time.Now().UTC().AddDate(0, rng.Intn(6), 0).Format("2006-01-02"),
			Type:        pick(rng, []string{"New Business", "Existing Business", "Renewal"}),
			DaysInStage: fptr(float64(rng.Intn(90))),
			IsClosed:    closed,
			IsWon:       stage == "Closed Won",
			CreatedDate: time.Now().UTC().AddDate(0, 0, -rng.Intn(180)).Format(time.RFC3339),
		}
		opps = append(opps, opp)
	}
	return opps
}

func generateCases(rng *rand.Rand, accounts []models.Account) []models.Case {
	var cases []models.Case
	num := 1000
	for _, acct := range accounts {
		// stale accounts attract more open cases and worse satisfaction
		stale := acct.LastActivityDate != nil &&
			time.Since(*acct.LastActivityDate) > 90*24*time.Hour

		count := rng.Intn(3)
		if stale {
			count = 2 + rng.Intn(5)
		}

		for i := 0; i < count; i++ {
			closed := rng.Float64() < 0.5
			status := "Working"
			if closed {
				status = "Closed"
			}

			csat := float64(3 + rng.Intn(3)) // 3-5 for healthy accounts
			if stale {
				csat = float64(1 + rng.Intn(3)) // 1-3 for troubled ones
			}

			cases = append(cases, models.Case{
				ID:                mockID(rng, "500"),
				CaseNumber:        fmt.Sprintf("%08d", num),
				AccountID:         acct.ID,
				Subject:           pick(rng, mockCaseSubjects),
				Status:            status,
				Priority:          pick(rng, []string{"Low", "Medium", "High"}),
				Type:              pick(rng, []string{"Problem", "Question", "Feature Request"}),
				Origin:            pick(rng, []string{"Email", "Web", "Phone"}),
				IsClosed:          closed,
				SatisfactionScore: fptr(csat),
				CreatedDate:       time.Now().UTC().AddDate(0, 0, -rng.Intn(90)).Format(time.RFC3339),
			})
			num++
		}
	}
	return cases
}

func (m *MockSource) GetLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	return m.leads[:clampLen(limit, len(m.leads))], nil
}

func (m *MockSource) GetOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	return m.opportunities[:clampLen(limit, len(m.opportunities))], nil
}

func (m *MockSource) GetAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	return m.accounts[:clampLen(limit, len(m.accounts))], nil
}

func (m *MockSource) GetCases(ctx context.Context, limit int) ([]models.Case, error) {
	return m.cases[:clampLen(limit, len(m.cases))], nil
}

func clampLen(limit, n int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}

// UpdateRecord records the update in memory instead of touching a CRM.
func (m *MockSource) UpdateRecord(ctx context.Context, object, recordID string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, RecordedUpdate{Object: object, RecordID: recordID, Fields: fields})
	return nil
}

// CreateTask records the task in memory and returns a generated ID.
func (m *MockSource) CreateTask(ctx context.Context, task models.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = "00T" + uuid.NewString()[:15]
	m.tasks = append(m.tasks, task)
	return task.ID, nil
}

// RecordedUpdates returns a copy of all captured writeback updates.
func (m *MockSource) RecordedUpdates() []RecordedUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

// RecordedTasks returns a copy of all captured task creations.
func (m *MockSource) RecordedTasks() []models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Snapshot returns the full generated dataset.
func (m *MockSource) Snapshot() models.Snapshot {
	return models.Snapshot{
		Leads:         m.leads,
		Opportunities: m.opportunities,
		Accounts:      m.accounts,
		Cases:         m.cases,
	}
}

// ExportJSON writes the full dataset to a file for offline inspection.
func (m *MockSource) ExportJSON(path string) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}
