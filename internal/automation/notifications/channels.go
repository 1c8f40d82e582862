package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/httpclient"
	"salesforce-analytics/internal/common/logger"
)

// Alert is one outbound notification. Severity is informational only;
// channels may use it for formatting or routing.
type Alert struct {
	Severity string `json:"severity"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// Channel delivers an alert over one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// --- log channel, always on ---

type logChannel struct {
	log logger.Logger
}

func NewLogChannel(log logger.Logger) Channel {
	return &logChannel{log: log}
}

func (c *logChannel) Name() string { return "log" }

func (c *logChannel) Send(ctx context.Context, alert Alert) error {
	c.log.Info("ALERT: "+alert.Subject, map[string]interface{}{
		"severity": alert.Severity,
		"message":  alert.Message,
	})
	return nil
}

// --- SES email channel ---

type sesAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type emailChannel struct {
	api        sesAPI
	fromEmail  string
	recipients []string
}

func NewEmailChannel(api sesAPI, fromEmail string, recipients []string) Channel {
	return &emailChannel{api: api, fromEmail: fromEmail, recipients: recipients}
}

func (c *emailChannel) Name() string { return "email" }

func (c *emailChannel) Send(ctx context.Context, alert Alert) error {
	_, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(c.fromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: c.recipients,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data:    awssdk.String(fmt.Sprintf("[%s] %s", alert.Severity, alert.Subject)),
				Charset: awssdk.String("UTF-8"),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data:    awssdk.String(alert.Message),
					Charset: awssdk.String("UTF-8"),
				},
			},
		},
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError("email", err)
	}
	return nil
}

// --- SNS SMS channel ---

type snsAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type smsChannel struct {
	api          snsAPI
	senderID     string
	phoneNumbers []string
}

func NewSMSChannel(api snsAPI, senderID string, phoneNumbers []string) Channel {
	return &smsChannel{api: api, senderID: senderID, phoneNumbers: phoneNumbers}
}

func (c *smsChannel) Name() string { return "sms" }

func (c *smsChannel) Send(ctx context.Context, alert Alert) error {
	// SMS has no subject line; keep it to one compact message. Truncate
	// on runes so a multibyte character is never cut mid-sequence.
	text := fmt.Sprintf("%s: %s", alert.Subject, alert.Message)
	if runes := []rune(text); len(runes) > 160 {
		text = string(runes[:157]) + "..."
	}

	for _, number := range c.phoneNumbers {
		input := &sns.PublishInput{
			PhoneNumber: awssdk.String(number),
			Message:     awssdk.String(text),
		}
		if c.senderID != "" {
			input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
				"AWS.SNS.SMS.SenderID": {
					DataType:    awssdk.String("String"),
					StringValue: awssdk.String(c.senderID),
				},
			}
		}
		if _, err := c.api.Publish(ctx, input); err != nil {
			return stderrors.NewNotificationSendFailedError("sms", err)
		}
	}
	return nil
}

// --- webhook channel ---

type webhookChannel struct {
	url        string
	httpClient *httpclient.Client
}

func NewWebhookChannel(url string, timeout time.Duration) Channel {
	return &webhookChannel{
		url:        url,
		httpClient: httpclient.NewClient(timeout),
	}
}

func (c *webhookChannel) Name() string { return "webhook" }

func (c *webhookChannel) Send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(map[string]string{
		"severity": alert.Severity,
		"subject":  alert.Subject,
		"text":     alert.Message,
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError("webhook", err)
	}

	resp, err := c.httpClient.PostJSON(ctx, c.url, payload)
	if err != nil {
		return stderrors.NewNotificationSendFailedError("webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return stderrors.NewNotificationSendFailedError("webhook",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}
