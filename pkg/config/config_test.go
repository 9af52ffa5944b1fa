package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// disableAuth keeps Load from failing validation in tests that do not care
// about the JWKS settings.
func disableAuth(t *testing.T) {
	t.Setenv("AUTH_ENABLE_VERIFICATION", "false")
}

func TestLoad_Defaults(t *testing.T) {
	disableAuth(t)

	cfg, err := Load("test-version")

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "leadwerk.events", cfg.NATS.Subject)
	assert.Equal(t, "10.00", cfg.Billing.DefaultLeadPrice)
	assert.False(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.Interval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	disableAuth(t)
	t.Setenv("PORT", "9999")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPASSWORD", "secret")
	t.Setenv("SWEEPER_ENABLED", "true")
	t.Setenv("SWEEPER_INTERVAL", "5m")

	cfg, err := Load("v1")

	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval)
}

func TestLoad_VerificationRequiresJWKSURL(t *testing.T) {
	t.Setenv("AUTH_ENABLE_VERIFICATION", "true")
	t.Setenv("AUTH_JWKS_URL", "")

	_, err := Load("v1")

	assert.ErrorContains(t, err, "jwks_url")
}

func TestLoad_VerificationWithJWKSURL(t *testing.T) {
	t.Setenv("AUTH_ENABLE_VERIFICATION", "true")
	t.Setenv("AUTH_JWKS_URL", "https://auth.example.com/.well-known/jwks.json")

	cfg, err := Load("v1")

	require.NoError(t, err)
	assert.True(t, cfg.Auth.EnableVerification)
}

func TestLoad_SweeperIntervalValidation(t *testing.T) {
	disableAuth(t)
	t.Setenv("SWEEPER_ENABLED", "true")
	t.Setenv("SWEEPER_INTERVAL", "0s")

	_, err := Load("v1")

	assert.ErrorContains(t, err, "sweeper interval")
}

func TestLoad_YAMLFile(t *testing.T) {
	disableAuth(t)

	dir := t.TempDir()
	yaml := `
port: "8123"
env: staging
database:
  host: yaml-db
  port: 5433
sweeper:
  enabled: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := Load("v1")

	require.NoError(t, err)
	assert.Equal(t, "8123", cfg.Port)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "yaml-db", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
}

func TestLoad_EnvWinsOverYAML(t *testing.T) {
	disableAuth(t)
	t.Setenv("PGHOST", "env-db")

	dir := t.TempDir()
	yaml := "database:\n  host: yaml-db\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := Load("v1")

	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.Database.Host)
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "leadwerk",
		Password: "pw",
		Database: "leadwerk_engine",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=leadwerk password=pw dbname=leadwerk_engine sslmode=disable",
		db.ConnectionString())
}
