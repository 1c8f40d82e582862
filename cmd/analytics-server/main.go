// cmd/analytics-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"salesforce-analytics/internal/analytics/churnrisk"
	"salesforce-analytics/internal/analytics/leadscoring"
	"salesforce-analytics/internal/analytics/pipelinehealth"
	"salesforce-analytics/internal/api"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting analytics server",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("use_mock", cfg.Salesforce.UseMock),
	)

	obs := observability.New("analytics-server")
	defer obs.Shutdown()

	ctx := context.Background()

	source, err := salesforce.NewSource(cfg.Salesforce, log)
	if err != nil {
		zapLog.Fatal("record source init failed", zap.Error(err))
	}

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
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, result cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
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
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Warn("postgres unavailable, run history disabled", zap.Error(err))
		} else {
			defer pg.Close()
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
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search index disabled", zap.Error(err))
		} else {
			sinks.Index = storage.NewSearchIndex(esc.Client, cfg.Database.Elasticsearch, log)
		}
	}

	var producer *events.Producer
	if cfg.Events.Enabled {
		producer = events.NewProducer(cfg.Events, log)
		defer producer.Close()
	}

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

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Source:    source,
		Scorer:    leadscoring.NewScorer(cfg.Analytics.LeadScoring, log),
		Analyzer:  pipelinehealth.NewAnalyzer(cfg.Analytics.PipelineHealth, log),
		Predictor: churnrisk.NewPredictor(cfg.Analytics.ChurnRisk, log),
		Sinks:     sinks,
		Writeback: writeback.NewService(source, log),
		Notifier:  notifications.NewService(log, channels...),
		Producer:  producer,
		Logger:    log,
	})

	opts := api.ServerOptions{
		Config:  cfg.Dashboard,
		Logger:  log,
		History: nil,
		Trigger: runner,
	}
	if sinks.Cache != nil {
		opts.Results = sinks.Cache
	}
	if sinks.Store != nil {
		opts.Fallback = sinks.Store
	}
	if sinks.History != nil {
		opts.History = sinks.History
	}
	server := api.NewServer(opts)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		zapLog.Fatal("server failed", zap.Error(err))
	case sig := <-sigCh:
		zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Analytics server stopped gracefully")
}
