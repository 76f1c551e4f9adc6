package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("QUANT_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "quant-options-lab", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 60*time.Second, cfg.API.WriteTimeout)
	assert.Equal(t, 0.05, cfg.Pricing.RiskFreeRate)
	assert.Equal(t, 100_000, cfg.Pricing.Trials)
	assert.Equal(t, 252, cfg.Pricing.PathSteps)
	assert.Equal(t, 4, cfg.Pricing.Workers)
	assert.Nil(t, cfg.Pricing.Seed)
	assert.Equal(t, 0.95, cfg.Risk.ConfidenceLevel)
	assert.Equal(t, 252.0, cfg.Risk.PeriodsPerYear)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Metrics.Interval)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
pricing:
  trials: 5000
  seed: 42
risk:
  confidence_level: 0.99
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, 5000, cfg.Pricing.Trials)
	require.NotNil(t, cfg.Pricing.Seed)
	assert.Equal(t, int64(42), *cfg.Pricing.Seed)
	assert.Equal(t, 0.99, cfg.Risk.ConfidenceLevel)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched keys keep defaults
	assert.Equal(t, "pricing.requests", cfg.Kafka.RequestTopic)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "pricing:\n  workers: 2\n")
	t.Setenv("QUANT_PRICING_WORKERS", "8")
	t.Setenv("QUANT_PRICING_SEED", "7")
	t.Setenv("QUANT_APP_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Pricing.Workers)
	require.NotNil(t, cfg.Pricing.Seed)
	assert.Equal(t, int64(7), *cfg.Pricing.Seed)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	for name, body := range map[string]string{
		"confidence": "risk:\n  confidence_level: 1.5\n",
		"trials":     "pricing:\n  trials: 0\n",
		"port":       "api:\n  port: 70000\n",
		"brokers":    "kafka:\n  enabled: true\n  brokers: []\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "pricing.results", cfg.Kafka.ResultTopic)
	assert.Equal(t, 1_000_000, cfg.API.MaxPathPoints)
}
