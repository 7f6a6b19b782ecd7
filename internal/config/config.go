// Package config provides configuration management for the Notion table exporter.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notiontable/pkg/utils"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AllPages is the num_pages sentinel meaning "fetch until the API reports no more pages".
const AllPages = -1

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSONL    = "jsonl"
	FormatSQLite   = "sqlite"
	FormatPostgres = "postgres"
	FormatMySQL    = "mysql"
	FormatMongo    = "mongo"
)

// Write modes for database sinks.
const (
	ModeReplace = "replace"
	ModeAppend  = "append"
)

// Configuration validation errors.
var (
	ErrInvalidBaseURL           = errors.New("notion.base_url must be an absolute http(s) URL")
	ErrMissingVersion           = errors.New("notion.version is required")
	ErrMissingDatabaseID        = errors.New("notion.database_id is required")
	ErrInvalidDatabaseID        = errors.New("notion.database_id must be a UUID with or without dashes")
	ErrInvalidNumPages          = errors.New("notion.num_pages must be -1 (all) or at least 1")
	ErrInvalidPageSize          = errors.New("notion.page_size must be between 1 and 100")
	ErrInvalidPageDelay         = errors.New("notion.page_delay_ms must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidOutputFormat      = errors.New("output.format must be one of: markdown, csv, jsonl, sqlite, postgres, mysql, mongo")
	ErrInvalidOutputMode        = errors.New("output.mode must be 'replace' or 'append'")
	ErrMissingOutputTable       = errors.New("output.table is required for database formats")
	ErrMissingOutputPath        = errors.New("output.path is required for database formats")
	ErrInvalidMaxCellWidth      = errors.New("output.max_cell_width must be non-negative")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Config represents the complete exporter configuration.
type Config struct {
	Notion   NotionConfig   `yaml:"notion"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// NotionConfig contains API and pagination settings.
type NotionConfig struct {
	BaseURL     string      `yaml:"base_url"`
	Version     string      `yaml:"version"`
	DatabaseID  string      `yaml:"database_id"`
	Retry       RetryPolicy `yaml:"retry"`
	NumPages    int         `yaml:"num_pages"`
	PageSize    int         `yaml:"page_size"`
	PageDelayMs int         `yaml:"page_delay_ms"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where the table is written.
// Path is a file path for file formats and a DSN/URI for database formats.
type OutputConfig struct {
	Format       string `yaml:"format"`
	Path         string `yaml:"path"`
	Table        string `yaml:"table"`
	Database     string `yaml:"database"`
	Mode         string `yaml:"mode"`
	MaxCellWidth int    `yaml:"max_cell_width"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig holds an optional cron expression for repeated exports.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// Credentials holds secrets read from the environment.
type Credentials struct {
	// Secret is the integration token sent as a bearer token.
	Secret string `envconfig:"NOTION_SECRET" required:"true"`
}

// Default returns the configuration used when no file overrides a field.
func Default() *Config {
	return &Config{
		Notion: NotionConfig{
			BaseURL:     "https://api.notion.com/v1",
			Version:     "2022-06-28",
			NumPages:    AllPages,
			PageSize:    100,
			PageDelayMs: 500,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
		},
		Output: OutputConfig{
			Format:       FormatMarkdown,
			Table:        "notion_pages",
			Database:     "notion",
			Mode:         ModeReplace,
			MaxCellWidth: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default().
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig validates the configuration and writes it as YAML to path,
// creating the parent directory when needed. Credentials are never written.
func (c *Config) SaveConfig(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadCredentials reads credentials from the environment, loading a .env file
// from the working directory first when one exists.
func LoadCredentials() (*Credentials, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal; only a present but unreadable one is worth a warning.
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	return &creds, nil
}

// Validate validates the configuration. The database id is optional here
// because it may be supplied later (for example on the command line).
func (c *Config) Validate() error {
	if !utils.NewHTTPHelper().IsValidURL(c.Notion.BaseURL) {
		return ErrInvalidBaseURL
	}

	if c.Notion.Version == "" {
		return ErrMissingVersion
	}

	if c.Notion.DatabaseID != "" {
		if _, err := NormalizeDatabaseID(c.Notion.DatabaseID); err != nil {
			return err
		}
	}

	if c.Notion.NumPages != AllPages && c.Notion.NumPages < 1 {
		return ErrInvalidNumPages
	}

	if c.Notion.PageSize < 1 || c.Notion.PageSize > 100 {
		return ErrInvalidPageSize
	}

	if c.Notion.PageDelayMs < 0 {
		return ErrInvalidPageDelay
	}

	// Validate retry policy
	if c.Notion.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Notion.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Notion.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Notion.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if err := c.Output.Validate(); err != nil {
		return err
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// Validate checks the output section.
func (o *OutputConfig) Validate() error {
	switch o.Format {
	case FormatMarkdown, FormatCSV, FormatJSONL:
	case FormatSQLite, FormatPostgres, FormatMySQL, FormatMongo:
		if o.Table == "" {
			return ErrMissingOutputTable
		}
	default:
		return ErrInvalidOutputFormat
	}

	if o.Mode != ModeReplace && o.Mode != ModeAppend {
		return ErrInvalidOutputMode
	}

	if o.MaxCellWidth < 0 {
		return ErrInvalidMaxCellWidth
	}

	return nil
}

// IsDatabase reports whether the output format writes to a database.
func (o *OutputConfig) IsDatabase() bool {
	switch o.Format {
	case FormatSQLite, FormatPostgres, FormatMySQL, FormatMongo:
		return true
	}

	return false
}

// NormalizeDatabaseID accepts a database id with or without dashes, or a
// database URL ending in the id, and returns the dashed lowercase form.
func NormalizeDatabaseID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingDatabaseID
	}

	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}

	if i := strings.LastIndexAny(id, "/-"); i >= 0 && len(id)-i-1 == 32 {
		// Shared links look like https://www.notion.so/<workspace>/<title>-<32 hex>?v=...
		id = id[i+1:]
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDatabaseID, id)
	}

	return parsed.String(), nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// PageDelay returns the minimum interval between two page requests.
func (n *NotionConfig) PageDelay() time.Duration {
	return time.Duration(n.PageDelayMs) * time.Millisecond
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Database: %s, NumPages: %d, MaxAttempts: %d, Output: %s}",
		c.Notion.DatabaseID,
		c.Notion.NumPages,
		c.Notion.Retry.MaxAttempts,
		c.Output.Format,
	)
}
