// cmd/analytics-runner/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/automation/notifications"
	"salesforce-analytics/internal/automation/writeback"
	"salesforce-analytics/internal/common/aws"
	"salesforce-analytics/internal/common/config"
	"salesforce-analytics/internal/common/database"
	"salesforce-analytics/internal/common/logger"
	"salesforce-analytics/internal/common/observability"
	"salesforce-analytics/internal/events"
	"salesforce-analytics/internal/pipeline"
	"salesforce-analytics/internal/salesforce"
	"salesforce-analytics/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	action := flag.String("action", pipeline.ActionFull, "analysis to run: lead_scoring, pipeline_health, churn_prediction or full_analysis")
	export := flag.String("export", "", "write the seeded mock dataset as JSON to this path and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting analytics runner",
		zap.String("action", *action),
		zap.Bool("use_mock", cfg.Salesforce.UseMock),
	)

	if *export != "" {
		mock := salesforce.NewMockSource(cfg.Salesforce.MockSeed)
		if err := mock.ExportJSON(*export); err != nil {
			zapLog.Fatal("dataset export failed", zap.Error(err))
		}
		zapLog.Info("Mock dataset exported", zap.String("path", *export))
		return
	}

	if _, err := pipeline.ParseAction(*action); err != nil {
		zapLog.Fatal("invalid action", zap.Error(err))
	}

	obs := observability.New("analytics-runner")
	defer obs.Shutdown()

	ctx := context.Background()

	source, err := salesforce.NewSource(cfg.Salesforce, log)
	if err != nil {
		zapLog.Fatal("record source init failed", zap.Error(err))
	}

	runner := buildRunner(ctx, cfg, source, log, zapLog)

	start := time.Now()
	result, err := runner.Run(ctx, *action)
	obs.RecordRunDuration(ctx, time.Since(start), *action)
	if err != nil {
		obs.RecordRun(ctx, *action, "error")
		zapLog.Fatal("analytics run failed", zap.Error(err))
	}
	obs.RecordRun(ctx, *action, result.Status)

	zapLog.Info("Run finished",
		zap.String("run_id", result.RunID),
		zap.Int("leads_scored", result.LeadsScored),
		zap.Int("opportunities_analyzed", result.OpportunitiesAnalyzed),
		zap.Int("accounts_scored", result.AccountsScored),
		zap.Int64("duration_ms", result.DurationMS),
	)
}

// buildRunner wires the engines plus every enabled sink. Sink
// initialization failures are logged and the sink is skipped; a run
// with no sinks still scores and reports.
func buildRunner(ctx context.Context, cfg *config.Config, source salesforce.RecordSource, log logger.Logger, zapLog *zap.Logger) *pipeline.Runner {
	var sinks pipeline.Sinks

	if cfg.Storage.S3.Enabled {
		s3c, err := aws.NewS3Client(ctx, cfg.Storage.S3.Region)
		if err != nil {
			zapLog.Warn("S3 client init failed, result store disabled", zap.Error(err))
		} else {
			sinks.Store = storage.NewS3Store(s3c, cfg.Storage.S3, log)
		}
	}

	if cfg.Database.Redis.Address != "" {
		var rc *database.RedisClient
		err := retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, result cache disabled", zap.Error(err))
		} else {
			sinks.Cache = storage.NewCache(rc.Client, cfg.Database.Redis, log)
		}
	}

	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Warn("postgres unavailable, run history disabled", zap.Error(err))
		} else {
			sinks.History = storage.NewRunHistory(pg.DB, log)
		}
	}

	if cfg.Database.Elasticsearch.Enabled {
		var esc *database.ElasticsearchClient
		err := retryWithBackoff(func() error {
			var err error
			esc, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esc.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search index disabled", zap.Error(err))
		} else {
			sinks.Index = storage.NewSearchIndex(esc.Client, cfg.Database.Elasticsearch, log)
		}
	}

	var producer *events.Producer
	if cfg.Events.Enabled {
		producer = events.NewProducer(cfg.Events, log)
	}

	return pipeline.NewRunner(pipeline.RunnerOptions{
		Source:    source,
		Scorer:    leadscoring.NewScorer(cfg.Analytics.LeadScoring, log),
		Analyzer:  pipelinehealth.NewAnalyzer(cfg.Analytics.PipelineHealth, log),
		Predictor: churnrisk.NewPredictor(cfg.Analytics.ChurnRisk, log),
		Sinks:     sinks,
		Writeback: writeback.NewService(source, log),
		Notifier:  notifications.NewService(log, buildChannels(ctx, cfg, log, zapLog)...),
		Producer:  producer,
		Logger:    log,
	})
}

func buildChannels(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) []notifications.Channel {
	channels := []notifications.Channel{notifications.NewLogChannel(log)}

	if cfg.Notifications.Email.Enabled {
		sesc, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SES client init failed, email channel disabled", zap.Error(err))
		} else {
			channels = append(channels, notifications.NewEmailChannel(
				sesc, cfg.Notifications.Email.FromEmail, cfg.Notifications.Email.Recipients))
		}
	}

	if cfg.Notifications.SMS.Enabled {
		snsc, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SNS client init failed, sms channel disabled", zap.Error(err))
		} else {
			channels = append(channels, notifications.NewSMSChannel(
				snsc, cfg.Notifications.SMS.SenderID, cfg.Notifications.SMS.PhoneNumbers))
		}
	}

	if cfg.Notifications.Webhook.Enabled {
		channels = append(channels, notifications.NewWebhookChannel(
			cfg.Notifications.Webhook.URL,
			config.GetDuration(cfg.Notifications.Webhook.Timeout)))
	}

	return channels
}
