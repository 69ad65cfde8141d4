package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VS_DB_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, "visit-scheduler:events", cfg.RedisStream)
	assert.Equal(t, "587", cfg.SMTP.Port)
	assert.Equal(t, "visits.db", filepath.Base(cfg.DBPath))
	assert.False(t, cfg.SMTP.IsConfigured())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VS_PORT", "9090")
	t.Setenv("VS_DB_PATH", "/tmp/x.db")
	t.Setenv("VS_DEV_MODE", "true")
	t.Setenv("VS_TOKEN_TTL", "1h")
	t.Setenv("VS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("VS_SMTP_HOST", "smtp.example.com")
	t.Setenv("VS_SMTP_FROM", "visites@example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.SMTP.IsConfigured())
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VS_ADMIN_EMAIL=admin@example.com\nVS_REDIS_ADDR=localhost:6379\n"), 0o600))

	// godotenv sets process env; make sure the test leaves it clean.
	t.Setenv("VS_ADMIN_EMAIL", "")
	t.Setenv("VS_REDIS_ADDR", "")
	require.NoError(t, os.Unsetenv("VS_ADMIN_EMAIL"))
	require.NoError(t, os.Unsetenv("VS_REDIS_ADDR"))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Port: 8080, Timezone: "Europe/Paris", TokenTTL: time.Minute}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"prod without secret", func(c *Config) {}, true},
		{"prod with secret", func(c *Config) { c.JWTSecret = "s" }, false},
		{"dev without secret", func(c *Config) { c.DevMode = true }, false},
		{"bad port", func(c *Config) { c.JWTSecret = "s"; c.Port = 0 }, true},
		{"bad timezone", func(c *Config) { c.JWTSecret = "s"; c.Timezone = "Mars/Olympus" }, true},
		{"zero ttl", func(c *Config) { c.JWTSecret = "s"; c.TokenTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.JWTSecret)
		})
	}
}

func TestLocation(t *testing.T) {
	c := Config{Timezone: "Europe/Paris"}
	assert.Equal(t, "Europe/Paris", c.Location().String())

	c.Timezone = "Nowhere/Land"
	assert.Equal(t, time.UTC, c.Location())
}
