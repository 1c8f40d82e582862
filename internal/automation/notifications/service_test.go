package notifications

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/common/logger"
)

type fakeChannel struct {
	name  string
	err   error
	sent  []Alert
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(ctx context.Context, alert Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

func TestSendAlertFansOut(t *testing.T) {
	a := &fakeChannel{name: "a"}
	b := &fakeChannel{name: "b"}
	svc := NewService(logger.Nop(), a, b)

	delivered := svc.SendAlert(context.Background(), Alert{
		Severity: "info",
		Subject:  "test",
		Message:  "hello",
	})

	assert.Equal(t, 2, delivered)
	require.Len(t, a.sent, 1)
	require.Len(t, b.sent, 1)
	assert.Equal(t, "hello", a.sent[0].Message)
}

func TestSendAlertContinuesPastFailures(t *testing.T) {
	broken := &fakeChannel{name: "broken", err: errors.New("unreachable")}
	working := &fakeChannel{name: "working"}
	svc := NewService(logger.Nop(), broken, working)

	delivered := svc.SendAlert(context.Background(), Alert{Subject: "test"})

	assert.Equal(t, 1, delivered)
	assert.Len(t, working.sent, 1)
}

func TestSendDailySummarySeverity(t *testing.T) {
	ch := &fakeChannel{name: "capture"}
	svc := NewService(logger.Nop(), ch)

	svc.SendDailySummary(context.Background(), RunSummaryInput{
		RunID: "run-1",
		Leads: &leadscoring.Result{
			TotalLeads:   10,
			Distribution: map[string]int{leadscoring.TierCritical: 2},
		},
	})
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "warning", ch.sent[0].Severity)

	svc.SendDailySummary(context.Background(), RunSummaryInput{
		RunID: "run-2",
		Leads: &leadscoring.Result{
			TotalLeads:   10,
			Distribution: map[string]int{leadscoring.TierLow: 10},
		},
	})
	require.Len(t, ch.sent, 2)
	assert.Equal(t, "info", ch.sent[1].Severity)
}

func TestRenderSummary(t *testing.T) {
	text := RenderSummary(RunSummaryInput{
		RunID: "run-1",
		Leads: &leadscoring.Result{
			TotalLeads:   150,
			AverageScore: 48.3,
			Distribution: map[string]int{
				leadscoring.TierCritical: 12,
				leadscoring.TierHigh:     30,
				leadscoring.TierMedium:   58,
				leadscoring.TierLow:      50,
			},
		},
		Pipeline: &pipelinehealth.Report{
			Score:          62.5,
			Rating:         pipelinehealth.RatingGood,
			CoverageRatio:  2.1,
			WinRate:        55,
			RiskIndicators: []string{"Deals moving slowly: average 45 days in stage"},
			Recommendations: []string{
				"Identify stalled deals and schedule next-step meetings",
			},
		},
		Churn: &churnrisk.Result{
			TotalAccounts: 80,
			Breakdown:     map[string]int{churnrisk.LevelHigh: 7},
			RevenueAtRisk: 4_500_000,
		},
	})

	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "150 leads, average score 48.3")
	assert.Contains(t, text, "Critical: 12")
	assert.Contains(t, text, "62.5 (Good)")
	assert.Contains(t, text, "Risk: Deals moving slowly")
	assert.Contains(t, text, "Recommendation: Identify stalled deals")
	assert.Contains(t, text, "7 high risk")
	assert.Contains(t, text, "$4500000")
}

func TestRenderSummarySkipsMissingSections(t *testing.T) {
	text := RenderSummary(RunSummaryInput{RunID: "run-3"})
	assert.Contains(t, text, "run-3")
	assert.NotContains(t, text, "Lead scoring")
	assert.NotContains(t, text, "Pipeline health")
	assert.NotContains(t, text, "Churn risk")
}

func TestWebhookChannel(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		received = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 5*time.Second)
	err := ch.Send(context.Background(), Alert{
		Severity: "warning",
		Subject:  "Pipeline risk",
		Message:  "coverage below target",
	})
	require.NoError(t, err)
	assert.Contains(t, received, "coverage below target")
}

func TestWebhookChannelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 5*time.Second)
	err := ch.Send(context.Background(), Alert{Subject: "test"})
	require.Error(t, err)
}

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, nil
}

func TestEmailChannel(t *testing.T) {
	api := &fakeSES{}
	ch := NewEmailChannel(api, "analytics@example.com", []string{"sales-ops@example.com"})

	err := ch.Send(context.Background(), Alert{
		Severity: "warning",
		Subject:  "Critical leads waiting",
		Message:  "12 leads in the Critical tier",
	})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	input := api.inputs[0]
	assert.Equal(t, "analytics@example.com", *input.Source)
	assert.Equal(t, []string{"sales-ops@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Subject.Data, "[warning]")
}

type fakeSNS struct {
	inputs []*sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, nil
}

func TestSMSChannelTruncates(t *testing.T) {
	api := &fakeSNS{}
	ch := NewSMSChannel(api, "ANALYTICS", []string{"+15550001111", "+15550002222"})

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	err := ch.Send(context.Background(), Alert{Subject: "Alert", Message: string(long)})
	require.NoError(t, err)
	require.Len(t, api.inputs, 2)
	assert.LessOrEqual(t, len(*api.inputs[0].Message), 160)
}

func TestSMSChannelTruncatesOnRuneBoundary(t *testing.T) {
	api := &fakeSNS{}
	ch := NewSMSChannel(api, "ANALYTICS", []string{"+15550001111"})

	// every rune is multibyte, so a byte-indexed cut would split one
	long := strings.Repeat("é", 300)

	err := ch.Send(context.Background(), Alert{Subject: "Alerte", Message: long})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	msg := *api.inputs[0].Message
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, 160, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
}
