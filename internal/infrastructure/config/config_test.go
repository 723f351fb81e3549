package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8130", cfg.Server.Port)
	assert.Equal(t, 1, cfg.Scheduler.BackgroundConcurrencyLevel)
	assert.Equal(t, 3, cfg.Scheduler.BackgroundInteractiveConcurrencyLevel)
	assert.Equal(t, 60, cfg.Scheduler.YieldTimeoutSeconds)
	assert.True(t, cfg.RateLimit.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ACTIVITYD_PORT", "9000")
	t.Setenv("ACTIVITYD_BACKGROUND_CONCURRENCY", "0")
	t.Setenv("ACTIVITYD_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 0, cfg.Scheduler.BackgroundConcurrencyLevel, "0 means unlimited")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.BackgroundConcurrencyLevel = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scheduler.YieldTimeoutSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("ACTIVITYD_YIELD_TIMEOUT_SECONDS", "-5")
	cfg := LoadOrDefault()
	assert.Equal(t, 60, cfg.Scheduler.YieldTimeoutSeconds)
}
