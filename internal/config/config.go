// ABOUTME: Configuration loading and parsing for fold-ledger
// ABOUTME: Supports YAML files with environment variable expansion and sane defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete fold-ledger configuration
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Identity IdentityConfig `yaml:"identity"`
	Remotes  RemotesConfig  `yaml:"remotes"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StoreConfig holds message store configuration
type StoreConfig struct {
	Path string `yaml:"path"`
}

// IdentityConfig holds identity storage configuration
type IdentityConfig struct {
	// Dir is where the .seed file lives. Kept separate from the store so
	// the seed is never carried along when the store file is copied or
	// synced.
	Dir string `yaml:"dir"`
}

// RemotesConfig points at the TOML remotes manifest
type RemotesConfig struct {
	Manifest string `yaml:"manifest"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// A missing file yields the defaults rather than an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dataDir := dataHome()
	return &Config{
		Store:    StoreConfig{Path: filepath.Join(dataDir, "fold-ledger", "ledger.db")},
		Identity: IdentityConfig{Dir: filepath.Join(configHome(), "fold-ledger")},
		Remotes:  RemotesConfig{Manifest: filepath.Join(configHome(), "fold-ledger", "remotes.toml")},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns the path to the fold-ledger config file.
// Priority: FOLD_LEDGER_CONFIG env var > XDG_CONFIG_HOME/fold-ledger/config.yaml > ~/.config/fold-ledger/config.yaml
func DefaultPath() string {
	if envPath := os.Getenv("FOLD_LEDGER_CONFIG"); envPath != "" {
		return envPath
	}
	return filepath.Join(configHome(), "fold-ledger", "config.yaml")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Identity.Dir == "" {
		return fmt.Errorf("identity.dir is required")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}

	return nil
}
