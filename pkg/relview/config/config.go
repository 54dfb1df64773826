// Package config loads the relview configuration from file,
// environment and .env, in that order of increasing precedence
// below flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// GitHubConfig configures the release ingestion API.
type GitHubConfig struct {
	API   string `mapstructure:"api"`
	Token string `mapstructure:"token"`
}

// S3Config carries object-storage credentials for s3:// targets.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// SyncConfig configures the download pipeline.
type SyncConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	Retries     int `mapstructure:"retries"`
}

// BuildConfig configures the site build collaborator.
type BuildConfig struct {
	Command []string `mapstructure:"command"`
}

// JournalConfig configures the per-run sync journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config is the application configuration.
type Config struct {
	Sync    SyncConfig    `mapstructure:"sync"`
	Build   BuildConfig   `mapstructure:"build"`
	Journal JournalConfig `mapstructure:"journal"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	S3      S3Config      `mapstructure:"s3"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load reads the configuration. Precedence, lowest first: built-in
// defaults, $XDG_CONFIG_HOME/relview/config.yaml, a .env file in the
// working directory, RELVIEW_* environment variables. A GITHUB_TOKEN
// variable is honored as a fallback token.
func Load() (*Config, error) {
	// .env feeds the process environment before viper reads it; a
	// missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())

	v.SetEnvPrefix("RELVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalDir()
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sync.concurrency", DefaultConcurrency)
	v.SetDefault("sync.retries", DefaultRetries)

	v.SetDefault("build.command", DefaultBuildCommand)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.retention_days", DefaultRetentionDays)

	v.SetDefault("github.api", DefaultGitHubAPI)

	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
}

// Dir returns the configuration directory,
// $XDG_CONFIG_HOME/relview.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, "relview")
}

// DefaultJournalDir returns where sync journal entries live,
// $XDG_STATE_HOME/relview/journal.
func DefaultJournalDir() string {
	return filepath.Join(xdg.StateHome, "relview", "journal")
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// WriteDefault creates a commented default config file. It does
// nothing if a config file already exists.
func WriteDefault() error {
	if err := EnsureDir(); err != nil {
		return err
	}

	configPath := filepath.Join(Dir(), "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Release Viewer Configuration

# Download pipeline settings
sync:
  # Parallel downloads per run
  concurrency: %d
  # Retries per file before it is reported as failed
  retries: %d

# Site build collaborator invoked after a sync
build:
  command:
    - %s

# Journal of past sync runs
journal:
  enabled: true
  path: %s
  retention_days: %d

# Release ingestion API
github:
  api: %s
  # Token can also come from RELVIEW_GITHUB_TOKEN or GITHUB_TOKEN
  token: ""

# Object-storage credentials for s3:// download targets
s3:
  endpoint: ""
  access_key: ""
  secret_key: ""
  region: ""
  use_ssl: true

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/relview/relview.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    github: info
    fetch: info
    mirror: info
    transfer: info
`, DefaultConcurrency, DefaultRetries, DefaultBuildCommand[0],
		DefaultJournalDir(), DefaultRetentionDays, DefaultGitHubAPI)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}
