// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Salesforce    SalesforceConfig   `mapstructure:"salesforce"`
	Analytics     AnalyticsConfig    `mapstructure:"analytics"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Events        EventsConfig       `mapstructure:"events"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Dashboard     DashboardConfig    `mapstructure:"dashboard"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// SalesforceConfig holds credentials and mode selection for the record source.
type SalesforceConfig struct {
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	SecurityToken string `mapstructure:"security_token"`
	Domain        string `mapstructure:"domain"` // "login" for prod, "test" for sandbox
	APIVersion    string `mapstructure:"api_version"`
	UseMock       bool   `mapstructure:"use_mock"`
	MockSeed      int64  `mapstructure:"mock_seed"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

// AnalyticsConfig holds every weight, cap, and threshold the three engines
// consume. Validated once at load time; the engines assume it is sound.
type AnalyticsConfig struct {
	LeadScoring    LeadScoringConfig    `mapstructure:"lead_scoring"`
	PipelineHealth PipelineHealthConfig `mapstructure:"pipeline_health"`
	ChurnRisk      ChurnRiskConfig      `mapstructure:"churn_risk"`
}

type LeadScoringConfig struct {
	Weights           LeadWeights `mapstructure:"weights"`
	TargetIndustries  []string    `mapstructure:"target_industries"`
	NonTargetScore    float64     `mapstructure:"non_target_score"`    // partial credit for a known, non-target industry
	EmployeeCap       float64     `mapstructure:"employee_cap"`        // log-scale reference for company size
	RevenueCap        float64     `mapstructure:"revenue_cap"`         // log-scale reference for budget
	VisitsRef         float64     `mapstructure:"visits_ref"`          // visits at which the visit component saturates
	DownloadsRef      float64     `mapstructure:"downloads_ref"`       // downloads at which the download component saturates
	StalenessDays     float64     `mapstructure:"staleness_days"`      // responsiveness decays to 0 at this age
	EmailOpensRef     float64     `mapstructure:"email_opens_ref"`     // opens at which email activity saturates
	CriticalThreshold float64     `mapstructure:"critical_threshold"`  // inclusive lower bounds
	HighThreshold     float64     `mapstructure:"high_threshold"`
	MediumThreshold   float64     `mapstructure:"medium_threshold"`
}

type LeadWeights struct {
	CompanySize    float64 `mapstructure:"company_size"`
	Engagement     float64 `mapstructure:"engagement"`
	IndustryMatch  float64 `mapstructure:"industry_match"`
	Budget         float64 `mapstructure:"budget"`
	Responsiveness float64 `mapstructure:"responsiveness"`
	EmailActivity  float64 `mapstructure:"email_activity"`
}

// Sum returns the total of all lead signal weights.
func (w LeadWeights) Sum() float64 {
	return w.CompanySize + w.Engagement + w.IndustryMatch + w.Budget + w.Responsiveness + w.EmailActivity
}

type PipelineHealthConfig struct {
	Stages             []string           `mapstructure:"stages"`      // ordered pipeline stage sequence
	EarlyStageCount    int                `mapstructure:"early_stage_count"` // how many leading stages count as "early"
	QuotaTarget        float64            `mapstructure:"quota_target"`
	TargetVelocityDays float64            `mapstructure:"target_velocity_days"`
	CommitProbability  float64            `mapstructure:"commit_probability"`    // 0-100 scale
	BestCaseProbability float64           `mapstructure:"best_case_probability"` // 0-100 scale
	NeutralWinRate     float64            `mapstructure:"neutral_win_rate"` // factor value when no deals have closed
	RiskThresholds     PipelineThresholds `mapstructure:"risk_thresholds"`
}

// PipelineThresholds are per-factor floors (0-100 scale) below which a risk
// indicator is emitted.
type PipelineThresholds struct {
	Coverage     float64 `mapstructure:"coverage"`
	Distribution float64 `mapstructure:"distribution"`
	WinRate      float64 `mapstructure:"win_rate"`
	Velocity     float64 `mapstructure:"velocity"`
}

type ChurnRiskConfig struct {
	Weights             ChurnWeights `mapstructure:"weights"`
	HighCaseVolume      float64      `mapstructure:"high_case_volume"` // open cases at which the volume signal saturates
	StalenessDays       float64      `mapstructure:"staleness_days"`   // engagement decay saturates at this age
	NeutralSatisfaction float64      `mapstructure:"neutral_satisfaction"` // unit-scale signal for accounts without cases
	HighThreshold       float64      `mapstructure:"high_threshold"`   // strictly above => High
	LowThreshold        float64      `mapstructure:"low_threshold"`    // strictly below => Low
}

type ChurnWeights struct {
	CaseVolume      float64 `mapstructure:"case_volume"`
	EngagementDecay float64 `mapstructure:"engagement_decay"`
	RevenueExposure float64 `mapstructure:"revenue_exposure"`
	Satisfaction    float64 `mapstructure:"satisfaction"`
}

// Sum returns the total of all churn signal weights.
func (w ChurnWeights) Sum() float64 {
	return w.CaseVolume + w.EngagementDecay + w.RevenueExposure + w.Satisfaction
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	LeadIndex string   `mapstructure:"lead_index"`
	AccountIndex string `mapstructure:"account_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds to keep the latest results cached
}

// StorageConfig holds result sink settings.
type StorageConfig struct {
	S3 S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// EventsConfig holds settings for the Kafka run-event stream.
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// NotificationConfig holds settings for all alert channels.
type NotificationConfig struct {
	Email struct {
		Enabled    bool     `mapstructure:"enabled"`
		FromEmail  string   `mapstructure:"from_email"`
		Recipients []string `mapstructure:"recipients"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled      bool     `mapstructure:"enabled"`
		SenderID     string   `mapstructure:"sender_id"`
		PhoneNumbers []string `mapstructure:"phone_numbers"`
	} `mapstructure:"sms"`
	Webhook struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"webhook"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// DashboardConfig holds settings for the API/dashboard server.
type DashboardConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
