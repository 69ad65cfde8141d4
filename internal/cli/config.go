package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig is what "vs login" persists for later commands.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	// Timezone names the zone new slot rows default to, e.g. Europe/Paris.
	Timezone string `yaml:"timezone,omitempty"`
}

// configPath returns $VS_CONFIG or ~/.config/vs/config.yaml.
func configPath() (string, error) {
	if p := os.Getenv("VS_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vs", "config.yaml"), nil
}

// loadConfig reads the CLI config. A missing file yields the zero config.
func loadConfig() (CLIConfig, error) {
	var cfg CLIConfig

	path, err := configPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes the config with owner-only permissions since it holds
// the API key.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// getServerURL resolves VS_SERVER_URL, then the config, then the default.
func getServerURL() string {
	if v := os.Getenv("VS_SERVER_URL"); v != "" {
		return v
	}
	if cfg, err := loadConfig(); err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// getAPIKey resolves VS_API_KEY, then the config.
func getAPIKey() string {
	if v := os.Getenv("VS_API_KEY"); v != "" {
		return v
	}
	cfg, _ := loadConfig()
	return cfg.APIKey
}

// cliLocation resolves VS_TIMEZONE, then the config, falling back to the
// local zone.
func cliLocation() *time.Location {
	name := os.Getenv("VS_TIMEZONE")
	if name == "" {
		cfg, _ := loadConfig()
		name = cfg.Timezone
	}
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
