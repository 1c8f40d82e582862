// internal/common/config/loader.go
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like SF_USERNAME, S3_BUCKET
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env in a few likely locations so the binary works from
// the repo root, a cmd directory, or a test package.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig picks up the well-known env variable names when the
// YAML left a credential empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Salesforce.Username == "" {
		if val := os.Getenv("SF_USERNAME"); val != "" {
			cfg.Salesforce.Username = val
		}
	}
	if cfg.Salesforce.Password == "" {
		if val := os.Getenv("SF_PASSWORD"); val != "" {
			cfg.Salesforce.Password = val
		}
	}
	if cfg.Salesforce.SecurityToken == "" {
		if val := os.Getenv("SF_SECURITY_TOKEN"); val != "" {
			cfg.Salesforce.SecurityToken = val
		}
	}
	if cfg.Storage.S3.Bucket == "" {
		if val := os.Getenv("S3_BUCKET"); val != "" {
			cfg.Storage.S3.Bucket = val
		}
	}
	if cfg.Notifications.Webhook.URL == "" {
		if val := os.Getenv("ALERT_WEBHOOK_URL"); val != "" {
			cfg.Notifications.Webhook.URL = val
			cfg.Notifications.Webhook.Enabled = true
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesforce-analytics"
	}

	// Salesforce defaults
	if cfg.Salesforce.Domain == "" {
		cfg.Salesforce.Domain = "login"
	}
	if cfg.Salesforce.APIVersion == "" {
		cfg.Salesforce.APIVersion = "59.0"
	}
	if cfg.Salesforce.MockSeed == 0 {
		cfg.Salesforce.MockSeed = 42
	}
	if cfg.Salesforce.Timeout == 0 {
		cfg.Salesforce.Timeout = 30000
	}

	// Lead scoring defaults mirror the documented weighting model.
	ls := &cfg.Analytics.LeadScoring
	if ls.Weights.Sum() == 0 {
		ls.Weights = LeadWeights{
			CompanySize:    0.20,
			Engagement:     0.25,
			IndustryMatch:  0.15,
			Budget:         0.20,
			Responsiveness: 0.10,
			EmailActivity:  0.10,
		}
	}
	if len(ls.TargetIndustries) == 0 {
		ls.TargetIndustries = []string{"Technology", "Finance", "Healthcare", "Consulting"}
	}
	if ls.NonTargetScore == 0 {
		ls.NonTargetScore = 40
	}
	if ls.EmployeeCap == 0 {
		ls.EmployeeCap = 10000
	}
	if ls.RevenueCap == 0 {
		ls.RevenueCap = 100000000
	}
	if ls.VisitsRef == 0 {
		ls.VisitsRef = 50
	}
	if ls.DownloadsRef == 0 {
		ls.DownloadsRef = 10
	}
	if ls.StalenessDays == 0 {
		ls.StalenessDays = 60
	}
	if ls.EmailOpensRef == 0 {
		ls.EmailOpensRef = 30
	}
	if ls.CriticalThreshold == 0 {
		ls.CriticalThreshold = 80
	}
	if ls.HighThreshold == 0 {
		ls.HighThreshold = 60
	}
	if ls.MediumThreshold == 0 {
		ls.MediumThreshold = 40
	}

	ph := &cfg.Analytics.PipelineHealth
	if len(ph.Stages) == 0 {
		ph.Stages = []string{
			"Prospecting", "Qualification", "Needs Analysis",
			"Proposal", "Negotiation", "Closed Won", "Closed Lost",
		}
	}
	if ph.EarlyStageCount == 0 {
		ph.EarlyStageCount = 2
	}
	if ph.QuotaTarget == 0 {
		ph.QuotaTarget = 500000
	}
	if ph.TargetVelocityDays == 0 {
		ph.TargetVelocityDays = 30
	}
	if ph.CommitProbability == 0 {
		ph.CommitProbability = 90
	}
	if ph.BestCaseProbability == 0 {
		ph.BestCaseProbability = 50
	}
	if ph.NeutralWinRate == 0 {
		ph.NeutralWinRate = 50
	}
	if ph.RiskThresholds == (PipelineThresholds{}) {
		ph.RiskThresholds = PipelineThresholds{
			Coverage:     60,
			Distribution: 50,
			WinRate:      30,
			Velocity:     50,
		}
	}

	cr := &cfg.Analytics.ChurnRisk
	if cr.Weights.Sum() == 0 {
		cr.Weights = ChurnWeights{
			CaseVolume:      0.30,
			EngagementDecay: 0.25,
			RevenueExposure: 0.25,
			Satisfaction:    0.20,
		}
	}
	if cr.HighCaseVolume == 0 {
		cr.HighCaseVolume = 5
	}
	if cr.StalenessDays == 0 {
		cr.StalenessDays = 90
	}
	if cr.NeutralSatisfaction == 0 {
		cr.NeutralSatisfaction = 0.5
	}
	if cr.HighThreshold == 0 {
		cr.HighThreshold = 0.6
	}
	if cr.LowThreshold == 0 {
		cr.LowThreshold = 0.3
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.TTL == 0 {
		cfg.Database.Redis.TTL = 86400
	}
	if cfg.Database.Elasticsearch.LeadIndex == "" {
		cfg.Database.Elasticsearch.LeadIndex = "analytics-leads"
	}
	if cfg.Database.Elasticsearch.AccountIndex == "" {
		cfg.Database.Elasticsearch.AccountIndex = "analytics-accounts"
	}

	// Storage defaults
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "eu-west-1"
	}
	if cfg.Storage.S3.Prefix == "" {
		cfg.Storage.S3.Prefix = "analytics"
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "analytics-runs"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = cfg.Storage.S3.Region
	}
	if cfg.Notifications.Webhook.Timeout == 0 {
		cfg.Notifications.Webhook.Timeout = 10000
	}

	// Dashboard defaults
	if cfg.Dashboard.Host == "" {
		cfg.Dashboard.Host = "0.0.0.0"
	}
	if cfg.Dashboard.Port == 0 {
		cfg.Dashboard.Port = 5001
	}
	if cfg.Dashboard.ReadTimeout == 0 {
		cfg.Dashboard.ReadTimeout = 15000
	}
	if cfg.Dashboard.WriteTimeout == 0 {
		cfg.Dashboard.WriteTimeout = 15000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

const weightTolerance = 1e-6

// validateConfig validates critical configuration fields. Analytics settings
// get a hard check here so the engines never have to re-validate per call.
func validateConfig(cfg *Config) error {
	ls := cfg.Analytics.LeadScoring
	if math.Abs(ls.Weights.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("analytics.lead_scoring.weights must sum to 1.0, got %.6f", ls.Weights.Sum())
	}
	if ls.StalenessDays <= 0 || ls.EmployeeCap <= 0 || ls.RevenueCap <= 0 ||
		ls.VisitsRef <= 0 || ls.DownloadsRef <= 0 || ls.EmailOpensRef <= 0 {
		return fmt.Errorf("analytics.lead_scoring normalization caps must be positive")
	}
	if !(ls.CriticalThreshold > ls.HighThreshold && ls.HighThreshold > ls.MediumThreshold && ls.MediumThreshold > 0) {
		return fmt.Errorf("analytics.lead_scoring priority thresholds must be strictly decreasing and positive")
	}

	ph := cfg.Analytics.PipelineHealth
	if ph.QuotaTarget <= 0 {
		return fmt.Errorf("analytics.pipeline_health.quota_target must be positive")
	}
	if ph.TargetVelocityDays <= 0 {
		return fmt.Errorf("analytics.pipeline_health.target_velocity_days must be positive")
	}
	if len(ph.Stages) < 2 {
		return fmt.Errorf("analytics.pipeline_health.stages requires at least two stages")
	}
	if ph.EarlyStageCount <= 0 || ph.EarlyStageCount >= len(ph.Stages) {
		return fmt.Errorf("analytics.pipeline_health.early_stage_count must be within the stage sequence")
	}
	if ph.NeutralWinRate < 0 || ph.NeutralWinRate > 100 {
		return fmt.Errorf("analytics.pipeline_health.neutral_win_rate must be in [0,100]")
	}

	cr := cfg.Analytics.ChurnRisk
	if math.Abs(cr.Weights.Sum()-1.0) > weightTolerance {
		return fmt.Errorf("analytics.churn_risk.weights must sum to 1.0, got %.6f", cr.Weights.Sum())
	}
	if cr.HighCaseVolume <= 0 || cr.StalenessDays <= 0 {
		return fmt.Errorf("analytics.churn_risk thresholds must be positive")
	}
	if !(cr.HighThreshold > cr.LowThreshold && cr.LowThreshold > 0 && cr.HighThreshold < 1) {
		return fmt.Errorf("analytics.churn_risk risk level thresholds must satisfy 0 < low < high < 1")
	}

	if cfg.Storage.S3.Enabled && cfg.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when storage.s3.enabled")
	}
	if cfg.Events.Enabled && len(cfg.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers is required when events.enabled")
	}
	if cfg.Notifications.Email.Enabled && cfg.Notifications.Email.FromEmail == "" {
		return fmt.Errorf("notifications.email.from_email is required when email alerts are enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
