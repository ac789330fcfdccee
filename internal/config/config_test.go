package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "safevend")
	t.Setenv("DB_NAME", "safevend")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 2*time.Second, cfg.PaySim.Delay)
	assert.Zero(t, cfg.PaySim.FailureRate)
	assert.Equal(t, 30*time.Second, cfg.Worker.WatchdogInterval)
	assert.Equal(t, 2*time.Minute, cfg.Worker.WatchdogStaleAfter)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PAYSIM_DELAY", "50ms")
	t.Setenv("PAYSIM_FAILURE_RATE", "0.25")
	t.Setenv("WATCHDOG_STALE_AFTER", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.PaySim.Delay)
	assert.Equal(t, 0.25, cfg.PaySim.FailureRate)
	assert.Equal(t, 5*time.Minute, cfg.Worker.WatchdogStaleAfter)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing database settings", func(t *testing.T) {
		t.Setenv("DB_HOST", "")
		t.Setenv("JWT_SECRET", "test-secret")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "safevend")
		t.Setenv("DB_NAME", "safevend")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("failure rate out of range", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PAYSIM_FAILURE_RATE", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PAYSIM_DELAY", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
