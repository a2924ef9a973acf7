// Package config implements TOML configuration loading, validation, and
// path resolution for bankdash. It supports a three-layer override chain:
// defaults -> config file -> environment variables, with CLI flags applied
// by the command layer on top.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	Cache   CacheConfig   `toml:"cache"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

// APIConfig locates the banking backend. Mode selects the fetcher: "proxy"
// targets the dashboard's own proxy routes with cookie forwarding, "direct"
// targets the upstream API with bearer tokens only.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	Mode           string `toml:"mode"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ProbePath      string `toml:"probe_path"`
	RefreshPath    string `toml:"refresh_path"`
	LoginPath      string `toml:"login_path"`
	LogoutPath     string `toml:"logout_path"`
	BanksPath      string `toml:"banks_path"`
}

// CacheConfig controls the resource cache.
type CacheConfig struct {
	TTLMinutes  int  `toml:"ttl_minutes"`
	DiskEnabled bool `toml:"disk_enabled"`
}

// SyncConfig controls sync behavior.
type SyncConfig struct {
	DefaultBank     string `toml:"default_bank"`
	IntervalSeconds int    `toml:"interval_seconds"` // watch mode
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Mode:           "proxy",
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			TTLMinutes:  5,
			DiskEnabled: true,
		},
		Sync: SyncConfig{
			IntervalSeconds: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns the per-user config file location,
// honoring XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}

		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, "bankdash", "config.toml")
}

// DefaultDataDir returns the per-user data directory (credential file,
// cache database), honoring XDG_DATA_HOME.
func DefaultDataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}

		base = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(base, "bankdash")
}

// EnvOverrides are the environment variables recognized at resolve time.
type EnvOverrides struct {
	ConfigPath string
	BaseURL    string
	DataDir    string
}

// ReadEnvOverrides reads the recognized environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv("BANKDASH_CONFIG"),
		BaseURL:    os.Getenv("BANKDASH_API_URL"),
		DataDir:    os.Getenv("BANKDASH_DATA_DIR"),
	}
}

// CLIOverrides are the flag-level overrides the command layer passes in.
type CLIOverrides struct {
	ConfigPath string
	BaseURL    string
	DataDir    string
}

// Resolved is the effective configuration after the override chain.
type Resolved struct {
	Config     *Config
	ConfigPath string
	BaseURL    string
	DataDir    string
	CachePath  string
	TTL        time.Duration
	Timeout    time.Duration
	LogLevel   string
}
