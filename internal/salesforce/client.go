package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/models"
)

// Client is a live Salesforce REST client. Authentication uses the
// SOAP login endpoint with username + password + security token, which
// yields a session ID valid for subsequent REST calls.
type Client struct {
	cfg        config.SalesforceConfig
	log        logger.Logger
	httpClient *http.Client

	// set by login; instanceURL comes from the serverUrl in the login response
	sessionID   string
	instanceURL string
}

type loginEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		LoginResponse struct {
			Result struct {
				ServerURL string `xml:"serverUrl"`
				SessionID string `xml:"sessionId"`
			} `xml:"result"`
		} `xml:"loginResponse"`
	} `xml:"Body"`
}

type queryResponse struct {
	TotalSize      int             `json:"totalSize"`
	Done           bool            `json:"done"`
	NextRecordsURL string          `json:"nextRecordsUrl,omitempty"`
	Records        json.RawMessage `json:"records"`
}

type createResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Errors  []struct {
		Message    string `json:"message"`
		StatusCode string `json:"statusCode"`
	} `json:"errors"`
}

// NewClient authenticates against the configured org and returns a ready
// client. Login failure is non-retryable.
func NewClient(cfg config.SalesforceConfig, log logger.Logger) (*Client, error) {
	c := &Client{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
	}

	if err := c.login(context.Background()); err != nil {
		return nil, stderrors.NewSalesforceAuthFailedError(err)
	}

	log.Info("Salesforce session established", map[string]interface{}{
		"instance_url": c.instanceURL,
		"api_version":  cfg.APIVersion,
	})
	return c, nil
}

const loginBody = `<?xml version="1.0" encoding="utf-8"?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xmlns:env="http://schemas.xmlsoap.org/soap/envelope/"
    xmlns:urn="urn:partner.soap.sforce.com">
  <env:Body>
    <urn:login>
      <urn:username>%s</urn:username>
      <urn:password>%s</urn:password>
    </urn:login>
  </env:Body>
</env:Envelope>`

func (c *Client) login(ctx context.Context) error {
	loginURL := fmt.Sprintf("https://%s.salesforce.com/services/Soap/u/%s",
		c.cfg.Domain, c.cfg.APIVersion)

	body := fmt.Sprintf(loginBody,
		xmlEscape(c.cfg.Username),
		xmlEscape(c.cfg.Password+c.cfg.SecurityToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute login request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope loginEnvelope
	if err := xml.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}

	result := envelope.Body.LoginResponse.Result
	if result.SessionID == "" || result.ServerURL == "" {
		return fmt.Errorf("login response missing session")
	}

	c.sessionID = result.SessionID

	// serverUrl points at the SOAP endpoint; the REST base is its host
	parsed, err := url.Parse(result.ServerURL)
	if err != nil {
		return fmt.Errorf("failed to parse server url: %w", err)
	}
	c.instanceURL = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	return nil
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// query runs a SOQL statement and accumulates all pages into out, which
// must be a pointer to a slice of records.
func (c *Client) query(ctx context.Context, object, soql string, out interface{}) error {
	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s",
		c.instanceURL, c.cfg.APIVersion, url.QueryEscape(soql))

	var pages []json.RawMessage
	for endpoint != "" {
		page, next, err := c.queryPage(ctx, endpoint)
		if err != nil {
			return stderrors.NewSalesforceQueryFailedError(object, err)
		}
		pages = append(pages, page)
		if next == "" {
			break
		}
		endpoint = c.instanceURL + next
	}

	// merge all record arrays into a single JSON array before decoding
	merged := mergeRecordPages(pages)
	if err := json.Unmarshal(merged, out); err != nil {
		return stderrors.NewSalesforceQueryFailedError(object,
			fmt.Errorf("failed to decode records: %w", err))
	}
	return nil
}

func (c *Client) queryPage(ctx context.Context, endpoint string) (json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("query failed (status %d): %s", resp.StatusCode, string(body))
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal query response: %w", err)
	}
	return qr.Records, qr.NextRecordsURL, nil
}

func mergeRecordPages(pages []json.RawMessage) json.RawMessage {
	if len(pages) == 1 {
		return pages[0]
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for _, page := range pages {
		trimmed := bytes.TrimSpace(page)
		trimmed = bytes.TrimPrefix(trimmed, []byte("["))
		trimmed = bytes.TrimSuffix(trimmed, []byte("]"))
		if len(trimmed) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.Write(trimmed)
		first = false
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// GetLeads fetches unconverted leads, newest first.
func (c *Client) GetLeads(ctx context.Context, limit int) ([]models.Lead, error) {
	soql := fmt.Sprintf(`SELECT Id, FirstName, LastName, Company, Email, Status,
		LeadSource, Industry, Rating, NumberOfEmployees, AnnualRevenue,
		Website_Visits__c, Content_Downloads__c, Days_Since_Last_Activity__c,
		Email_Opens__c, CreatedDate
		FROM Lead WHERE IsConverted = false
		ORDER BY CreatedDate DESC LIMIT %d`, limit)

	var leads []models.Lead
	if err := c.query(ctx, "Lead", soql, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// GetOpportunities fetches recent opportunities, open and closed.
func (c *Client) GetOpportunities(ctx context.Context, limit int) ([]models.Opportunity, error) {
	soql := fmt.Sprintf(`SELECT Id, Name, AccountId, StageName, Amount, Probability,
		CloseDate, Type, Days_In_Stage__c, IsClosed, IsWon, CreatedDate
		FROM Opportunity
		ORDER BY CreatedDate DESC LIMIT %d`, limit)

	var opps []models.Opportunity
	if err := c.query(ctx, "Opportunity", soql, &opps); err != nil {
		return nil, err
	}
	return opps, nil
}

// GetAccounts fetches customer accounts.
func (c *Client) GetAccounts(ctx context.Context, limit int) ([]models.Account, error) {
	soql := fmt.Sprintf(`SELECT Id, Name, Industry, AnnualRevenue, NumberOfEmployees,
		Type, Rating, BillingCountry, LastActivityDate, CreatedDate
		FROM Account
		ORDER BY CreatedDate DESC LIMIT %d`, limit)

	var accounts []models.Account
	if err := c.query(ctx, "Account", soql, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetCases fetches recent support cases.
func (c *Client) GetCases(ctx context.Context, limit int) ([]models.Case, error) {
	soql := fmt.Sprintf(`SELECT Id, CaseNumber, AccountId, Subject, Status, Priority,
		Type, Origin, IsClosed, Customer_Satisfaction__c, CreatedDate
		FROM Case
		ORDER BY CreatedDate DESC LIMIT %d`, limit)

	var cases []models.Case
	if err := c.query(ctx, "Case", soql, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// UpdateRecord patches fields on an existing record.
func (c *Client) UpdateRecord(ctx context.Context, object, recordID string, fields map[string]interface{}) error {
	endpoint := fmt.Sprintf("%s/services/data/v%s/sobjects/%s/%s",
		c.instanceURL, c.cfg.APIVersion, object, recordID)

	jsonData, err := json.Marshal(fields)
	if err != nil {
		return stderrors.NewRecordUpdateFailedError(object, recordID,
			fmt.Errorf("failed to marshal fields: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return stderrors.NewRecordUpdateFailedError(object, recordID,
			fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stderrors.NewRecordUpdateFailedError(object, recordID,
			fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return stderrors.NewRecordUpdateFailedError(object, recordID,
			fmt.Errorf("update failed (status %d): %s", resp.StatusCode, string(body)))
	}
	return nil
}

// CreateTask creates a follow-up Task record and returns its ID.
func (c *Client) CreateTask(ctx context.Context, task models.Task) (string, error) {
	endpoint := fmt.Sprintf("%s/services/data/v%s/sobjects/Task",
		c.instanceURL, c.cfg.APIVersion)

	relatedID := task.WhoID
	if relatedID == "" {
		relatedID = task.WhatID
	}

	jsonData, err := json.Marshal(task)
	if err != nil {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("failed to marshal task: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusCreated {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("create failed (status %d): %s", resp.StatusCode, string(body)))
	}

	var cr createResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", stderrors.NewTaskCreateFailedError(relatedID,
			fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if !cr.Success {
		msg := "unknown error"
		if len(cr.Errors) > 0 {
			msg = cr.Errors[0].Message
		}
		return "", stderrors.NewTaskCreateFailedError(relatedID, fmt.Errorf("%s", msg))
	}
	return cr.ID, nil
}
