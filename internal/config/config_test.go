package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("ANALYTICS_TOP_PROGRAMS", "3")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "gym_app", cfg.Database.Name)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Analytics.TopPrograms)
	assert.Equal(t, 10, cfg.Analytics.TopCoaches)
	assert.Equal(t, 7, cfg.Analytics.RecentUsers)
	assert.Equal(t, 30, cfg.Analytics.StatsWindow)
	assert.Equal(t, "@every 1h", cfg.Jobs.DriftAuditSchedule)
	assert.Equal(t, 20, cfg.RateLimit.AuthPerMinute)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.S3.UseSSL)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
database:
  driver: mongo
  name: gym_test
jwt:
  secret: from-file
  expiration: 30m
jobs:
  drift_audit_schedule: ""
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "gym_test", cfg.Database.Name)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.Empty(t, cfg.Jobs.DriftAuditSchedule)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig(t.TempDir())
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("DATABASE_DRIVER", "postgres")
		_, err := LoadConfig(t.TempDir())
		require.Error(t, err)
	})
}
