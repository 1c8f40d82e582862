// internal/common/config/loader_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultedConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults_AnalyticsWeights(t *testing.T) {
	cfg := defaultedConfig()

	assert.InDelta(t, 1.0, cfg.Analytics.LeadScoring.Weights.Sum(), weightTolerance)
	assert.InDelta(t, 1.0, cfg.Analytics.ChurnRisk.Weights.Sum(), weightTolerance)
	assert.Equal(t, 0.20, cfg.Analytics.LeadScoring.Weights.CompanySize)
	assert.Equal(t, 0.30, cfg.Analytics.ChurnRisk.Weights.CaseVolume)
}

func TestApplyDefaults_Thresholds(t *testing.T) {
	cfg := defaultedConfig()

	assert.Equal(t, 80.0, cfg.Analytics.LeadScoring.CriticalThreshold)
	assert.Equal(t, 60.0, cfg.Analytics.LeadScoring.HighThreshold)
	assert.Equal(t, 40.0, cfg.Analytics.LeadScoring.MediumThreshold)
	assert.Equal(t, 0.6, cfg.Analytics.ChurnRisk.HighThreshold)
	assert.Equal(t, 0.3, cfg.Analytics.ChurnRisk.LowThreshold)
	assert.Equal(t, 500000.0, cfg.Analytics.PipelineHealth.QuotaTarget)
	assert.Len(t, cfg.Analytics.PipelineHealth.Stages, 7)
}

func TestValidateConfig_DefaultsAreValid(t *testing.T) {
	cfg := defaultedConfig()
	require.NoError(t, validateConfig(cfg))
}

func TestValidateConfig_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "lead weights not summing to one",
			mutate: func(c *Config) {
				c.Analytics.LeadScoring.Weights.CompanySize = 0.5
			},
		},
		{
			name: "churn weights not summing to one",
			mutate: func(c *Config) {
				c.Analytics.ChurnRisk.Weights.Satisfaction = 0.9
			},
		},
		{
			name: "negative staleness threshold",
			mutate: func(c *Config) {
				c.Analytics.LeadScoring.StalenessDays = -10
			},
		},
		{
			name: "inverted priority thresholds",
			mutate: func(c *Config) {
				c.Analytics.LeadScoring.HighThreshold = 90
			},
		},
		{
			name: "zero quota target",
			mutate: func(c *Config) {
				c.Analytics.PipelineHealth.QuotaTarget = -1
			},
		},
		{
			name: "churn high threshold below low",
			mutate: func(c *Config) {
				c.Analytics.ChurnRisk.HighThreshold = 0.2
			},
		},
		{
			name: "early stage count outside sequence",
			mutate: func(c *Config) {
				c.Analytics.PipelineHealth.EarlyStageCount = 9
			},
		},
		{
			name: "s3 enabled without bucket",
			mutate: func(c *Config) {
				c.Storage.S3.Enabled = true
				c.Storage.S3.Bucket = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultedConfig()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "localhost", Port: 5432, Database: "analytics",
		User: "sf", Password: "secret", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=sf password=secret dbname=analytics sslmode=disable",
		p.GetDSN(),
	)
}
