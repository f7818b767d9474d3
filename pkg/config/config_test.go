package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "allow", cfg.Enrollment.WithdrawGradedPolicy)
	assert.Equal(t, 1, cfg.Enrollment.PersistenceRetries)
	assert.Equal(t, 500, cfg.Batch.MaxSize)
	assert.Equal(t, 24*time.Hour, cfg.Batch.ResultTTL)
	assert.Equal(t, time.Minute, cfg.Availability.CacheTTL)
	assert.Equal(t, "file://migrations", cfg.Migrations.Path)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENROLLMENT_WITHDRAW_GRADED_POLICY", "DENY")
	t.Setenv("ENROLLMENT_PERSISTENCE_RETRIES", "3")
	t.Setenv("AVAILABILITY_CACHE_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "deny", cfg.Enrollment.WithdrawGradedPolicy)
	assert.Equal(t, 3, cfg.Enrollment.PersistenceRetries)
	assert.Equal(t, 30*time.Second, cfg.Availability.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENROLLMENT_WITHDRAW_GRADED_POLICY", "maybe")

	_, err := Load()
	require.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.URL())
	assert.Contains(t, cfg.DSN(), "dbname=n")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
