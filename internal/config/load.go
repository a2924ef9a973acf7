package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors: silently ignoring a typo
// in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. Supports the zero-config
// first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// validate rejects values the rest of the program cannot work with.
func validate(cfg *Config) error {
	switch cfg.API.Mode {
	case "proxy", "direct":
	default:
		return fmt.Errorf("api.mode must be \"proxy\" or \"direct\", got %q", cfg.API.Mode)
	}

	if cfg.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("cache.ttl_minutes must be positive, got %d", cfg.Cache.TTLMinutes)
	}

	if cfg.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", cfg.API.TimeoutSeconds)
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	return nil
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI values.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.API.BaseURL
	if env.BaseURL != "" {
		baseURL = env.BaseURL
	}

	if cli.BaseURL != "" {
		baseURL = cli.BaseURL
	}

	dataDir := DefaultDataDir()
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	if cli.DataDir != "" {
		dataDir = cli.DataDir
	}

	return &Resolved{
		Config:     cfg,
		ConfigPath: cfgPath,
		BaseURL:    baseURL,
		DataDir:    dataDir,
		CachePath:  filepath.Join(dataDir, "cache.db"),
		TTL:        time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		LogLevel:   cfg.Logging.Level,
	}, nil
}
