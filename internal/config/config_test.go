package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, env := range envBindings {
		t.Setenv(env, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "fleetfuel:transaction_events", cfg.Redis.EventsKey)
	assert.Equal(t, 5*time.Minute, cfg.Webhook.MaxSkew)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("WEBHOOK_MAX_SKEW", "30s")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Berlin")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 90*time.Second, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "s3cret", cfg.Webhook.Secret)
	assert.Equal(t, 30*time.Second, cfg.Webhook.MaxSkew)
	assert.Equal(t, "Europe/Berlin", cfg.DefaultTimezone)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("Port", func(t *testing.T) {
		t.Setenv("DB_PORT", "fifty")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PORT")
	})

	t.Run("Skew", func(t *testing.T) {
		t.Setenv("WEBHOOK_MAX_SKEW", "soon")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBHOOK_MAX_SKEW")
	})

	t.Run("Timezone", func(t *testing.T) {
		t.Setenv("DEFAULT_TIMEZONE", "Nowhere/Special")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("MissingSecretOutsideDevelopment", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("WEBHOOK_SECRET", "")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "WEBHOOK_SECRET")
	})
}
