// Package config loads server configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "VS"

// Config holds server configuration.
type Config struct {
	Port           int
	DBPath         string
	DevMode        bool
	BaseURL        string // e.g. http://localhost:8080
	Timezone       string // slot dates and times are local to this zone
	AdminEmail     string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string

	SMTP SMTPConfig
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Load reads configuration. Values in envFile (if it exists) are loaded into
// the process environment first; variables already set are not overridden.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := Config{
		Port:           v.GetInt("port"),
		DBPath:         v.GetString("db_path"),
		DevMode:        v.GetBool("dev_mode"),
		BaseURL:        v.GetString("base_url"),
		Timezone:       v.GetString("timezone"),
		AdminEmail:     v.GetString("admin_email"),
		JWTSecret:      v.GetString("jwt_secret"),
		TokenTTL:       v.GetDuration("token_ttl"),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),
		RedisStream:    v.GetString("redis_stream"),
		SMTP: SMTPConfig{
			Host: v.GetString("smtp_host"),
			Port: v.GetString("smtp_port"),
			User: v.GetString("smtp_user"),
			Pass: v.GetString("smtp_pass"),
			From: v.GetString("smtp_from"),
		},
	}

	if cfg.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "")
	v.SetDefault("dev_mode", false)
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("timezone", "Europe/Paris")
	v.SetDefault("admin_email", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 15*time.Minute)
	v.SetDefault("allowed_origins", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", "visit-scheduler:events")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", "587")
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_pass", "")
	v.SetDefault("smtp_from", "")
}

// devJWTSecret signs tokens in dev mode when no secret is configured.
const devJWTSecret = "dev-only-insecure-secret"

// Validate checks the configuration and fills dev-mode fallbacks.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.TokenTTL)
	}
	if c.JWTSecret == "" {
		if !c.DevMode {
			return fmt.Errorf("%s_JWT_SECRET is required outside dev mode", EnvPrefix)
		}
		c.JWTSecret = devJWTSecret
	}
	return nil
}

// Location returns the configured time zone. Call Validate first.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".visit-scheduler", "visits.db"), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
