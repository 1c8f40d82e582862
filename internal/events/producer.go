// Package events publishes run lifecycle events to Kafka so other
// systems (BI loaders, alert routers) can react to completed analyses
// without polling the API.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"salesforce-analytics/internal/common/config"
	stderrors "salesforce-analytics/internal/common/errors"
	"salesforce-analytics/internal/common/logger"
)

// RunEvent is the payload published after each analytics run.
type RunEvent struct {
	RunID          string    `json:"run_id"`
	Action         string    `json:"action"`
	Status         string    `json:"status"`
	LeadsScored    int       `json:"leads_scored"`
	AccountsScored int       `json:"accounts_scored"`
	HealthScore    float64   `json:"health_score"`
	CriticalLeads  int       `json:"critical_leads"`
	HighRiskCount  int       `json:"high_risk_accounts"`
	DurationMS     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes run events to a single topic, keyed by run ID.
type Producer struct {
	writer kafkaWriter
	topic  string
	log    logger.Logger
}

func NewProducer(cfg config.EventsConfig, log logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: writer, topic: cfg.Topic, log: log}
}

// Publish sends one run event. The caller treats failures as
// log-and-continue; losing an event never fails the run.
func (p *Producer) Publish(ctx context.Context, event RunEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return stderrors.NewEventPublishFailedError(p.topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
	})
	if err != nil {
		return stderrors.NewEventPublishFailedError(p.topic, err)
	}

	p.log.Debug("Published run event", map[string]interface{}{
		"topic":  p.topic,
		"run_id": event.RunID,
		"status": event.Status,
	})
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
