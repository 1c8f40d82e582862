// internal/models/records.go
package models

import "time"

// CRM record snapshots. Field names follow the Salesforce REST contract,
// including the __c suffix on custom fields. Optional numeric fields are
// pointers so an absent CRM value is distinguishable from zero; the engines
// treat nil as the lowest/neutral normalized value rather than erroring.

// Lead is a prospective customer record prior to conversion.
type Lead struct {
	ID                    string   `json:"Id"`
	FirstName             string   `json:"FirstName,omitempty"`
	LastName              string   `json:"LastName,omitempty"`
	Company               string   `json:"Company,omitempty"`
	Email                 string   `json:"Email,omitempty"`
	Status                string   `json:"Status,omitempty"`
	LeadSource            string   `json:"LeadSource,omitempty"`
	Industry              string   `json:"Industry,omitempty"`
	Rating                string   `json:"Rating,omitempty"`
	NumberOfEmployees     *float64 `json:"NumberOfEmployees,omitempty"`
	AnnualRevenue         *float64 `json:"AnnualRevenue,omitempty"`
	WebsiteVisits         *float64 `json:"Website_Visits__c,omitempty"`
	ContentDownloads      *float64 `json:"Content_Downloads__c,omitempty"`
	DaysSinceLastActivity *float64 `json:"Days_Since_Last_Activity__c,omitempty"`
	EmailOpens            *float64 `json:"Email_Opens__c,omitempty"`
	CreatedDate           string   `json:"CreatedDate,omitempty"`
}

// Opportunity is an in-progress sales deal associated with an Account.
type Opportunity struct {
	ID          string   `json:"Id"`
	Name        string   `json:"Name,omitempty"`
	AccountID   string   `json:"AccountId,omitempty"`
	StageName   string   `json:"StageName,omitempty"`
	Amount      *float64 `json:"Amount,omitempty"`
	Probability *float64 `json:"Probability,omitempty"` // 0-100 scale
	CloseDate   string   `json:"CloseDate,omitempty"`
	Type        string   `json:"Type,omitempty"`
	DaysInStage *float64 `json:"Days_In_Stage__c,omitempty"`
	IsClosed    bool     `json:"IsClosed"`
	IsWon       bool     `json:"IsWon"`
	CreatedDate string   `json:"CreatedDate,omitempty"`
}

// AmountOrZero returns the deal amount, defaulting a missing value to 0.
func (o Opportunity) AmountOrZero() float64 {
	if o.Amount == nil {
		return 0
	}
	return *o.Amount
}

// Account is a customer or prospective customer organization.
type Account struct {
	ID                string     `json:"Id"`
	Name              string     `json:"Name,omitempty"`
	Industry          string     `json:"Industry,omitempty"`
	AnnualRevenue     *float64   `json:"AnnualRevenue,omitempty"`
	NumberOfEmployees *float64   `json:"NumberOfEmployees,omitempty"`
	Type              string     `json:"Type,omitempty"`
	Rating            string     `json:"Rating,omitempty"`
	BillingCountry    string     `json:"BillingCountry,omitempty"`
	LastActivityDate  *time.Time `json:"LastActivityDate,omitempty"`
	CreatedDate       string     `json:"CreatedDate,omitempty"`
}

// Case is a support ticket associated with exactly one Account.
type Case struct {
	ID                string   `json:"Id"`
	CaseNumber        string   `json:"CaseNumber,omitempty"`
	AccountID         string   `json:"AccountId,omitempty"`
	Subject           string   `json:"Subject,omitempty"`
	Status            string   `json:"Status,omitempty"`
	Priority          string   `json:"Priority,omitempty"`
	Type              string   `json:"Type,omitempty"`
	Origin            string   `json:"Origin,omitempty"`
	IsClosed          bool     `json:"IsClosed"`
	SatisfactionScore *float64 `json:"Customer_Satisfaction__c,omitempty"` // CSAT, 1-5
	CreatedDate       string   `json:"CreatedDate,omitempty"`
}

// IsOpen reports whether the case still counts toward open case volume.
func (c Case) IsOpen() bool {
	return !c.IsClosed && c.Status != "Closed"
}

// Task is a follow-up activity created in the CRM by the writeback service.
type Task struct {
	ID           string `json:"Id,omitempty"`
	WhoID        string `json:"WhoId,omitempty"`  // lead or contact
	WhatID       string `json:"WhatId,omitempty"` // account or opportunity
	Subject      string `json:"Subject"`
	Description  string `json:"Description,omitempty"`
	Priority     string `json:"Priority,omitempty"`
	Status       string `json:"Status,omitempty"`
	ActivityDate string `json:"ActivityDate,omitempty"`
	Type         string `json:"Type,omitempty"`
}

// Snapshot is one full set of input collections for a run.
type Snapshot struct {
	Leads         []Lead        `json:"leads"`
	Opportunities []Opportunity `json:"opportunities"`
	Accounts      []Account     `json:"accounts"`
	Cases         []Case        `json:"cases"`
}
