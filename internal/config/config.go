// Package config provides configuration management for capledger.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/capledger/capledger/internal/buckets"
)

// Config holds the complete application configuration.
type Config struct {
	Planning PlanningConfig `toml:"planning"`
	Report   ReportConfig   `toml:"report"`
	Display  DisplayConfig  `toml:"display"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// PlanningConfig sets the planning horizon.
type PlanningConfig struct {
	// CurrentDate is the start of the horizon. Empty means today.
	CurrentDate string `toml:"current_date"`
	HorizonDays int    `toml:"horizon_days"`
}

// ReportConfig controls capacity report bucketing.
type ReportConfig struct {
	Bucket    buckets.Type `toml:"bucket"`
	WeekStart string       `toml:"week_start"`
}

// DisplayConfig controls TUI appearance.
type DisplayConfig struct {
	ColorScheme ColorScheme `toml:"color_scheme"`
	DateFormat  string      `toml:"date_format"`
}

// ColorScheme defines the terminal color palette.
type ColorScheme string

const (
	ColorSchemeDefault    ColorScheme = "default"
	ColorSchemeMonochrome ColorScheme = "monochrome"
	ColorSchemeSolarized  ColorScheme = "solarized"
)

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      LogLevel `toml:"level"`
	File       string   `toml:"file"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BackupBeforeExport  bool   `toml:"backup_before_export"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	ListenAddr            string `toml:"listen_addr"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Planning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("planning: %w", err))
	}

	if err := c.Report.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("report: %w", err))
	}

	if err := c.Display.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the planning configuration is valid.
func (p *PlanningConfig) Validate() error {
	var errs []error

	if p.CurrentDate != "" {
		if _, err := time.Parse(time.RFC3339, p.CurrentDate); err != nil {
			errs = append(errs, fmt.Errorf("invalid current_date format (expected RFC3339): %w", err))
		}
	}

	if p.HorizonDays < 1 {
		errs = append(errs, errors.New("horizon_days must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the report configuration is valid.
func (r *ReportConfig) Validate() error {
	var errs []error

	if !r.Bucket.Valid() {
		errs = append(errs, fmt.Errorf("invalid bucket: %s", r.Bucket))
	}

	if r.WeekStart != "" {
		if _, err := buckets.ParseWeekday(r.WeekStart); err != nil {
			errs = append(errs, fmt.Errorf("invalid week_start: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the display configuration is valid.
func (d *DisplayConfig) Validate() error {
	validSchemes := map[ColorScheme]bool{
		ColorSchemeDefault:    true,
		ColorSchemeMonochrome: true,
		ColorSchemeSolarized:  true,
	}

	if !validSchemes[d.ColorScheme] && d.ColorScheme != "" {
		return fmt.Errorf("invalid color_scheme: %s", d.ColorScheme)
	}

	return nil
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}

	if !validLevels[l.Level] && l.Level != "" {
		errs = append(errs, fmt.Errorf("invalid log level: %s", l.Level))
	}

	if l.MaxSizeMB < 0 {
		errs = append(errs, errors.New("max_size_mb must be non-negative"))
	}

	if l.MaxBackups < 0 {
		errs = append(errs, errors.New("max_backups must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if d.BackupRetentionDays < 0 {
		errs = append(errs, errors.New("backup_retention_days must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the server configuration is valid.
func (s *ServerConfig) Validate() error {
	var errs []error

	if s.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}

	if s.RequestTimeoutSeconds < 0 {
		errs = append(errs, errors.New("request_timeout_seconds must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Planning: PlanningConfig{
			CurrentDate: "",
			HorizonDays: 90,
		},
		Report: ReportConfig{
			Bucket:    buckets.Week,
			WeekStart: "monday",
		},
		Display: DisplayConfig{
			ColorScheme: ColorSchemeDefault,
			DateFormat:  "2006-01-02",
		},
		Logging: LoggingConfig{
			Level:      LogLevelInfo,
			File:       "logs/capledger.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Database: DatabaseConfig{
			Path:                "capledger.db",
			BackupBeforeExport:  true,
			BackupRetentionDays: 30,
		},
		Server: ServerConfig{
			ListenAddr:            "127.0.0.1:8080",
			RequestTimeoutSeconds: 30,
		},
	}
}

// CurrentDateTime returns the start of the planning horizon. An empty
// current_date means the start of today in UTC.
func (p *PlanningConfig) CurrentDateTime() (time.Time, error) {
	if p.CurrentDate == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse(time.RFC3339, p.CurrentDate)
}

// Horizon returns the start and end of the planning horizon.
func (p *PlanningConfig) Horizon() (time.Time, time.Time, error) {
	start, err := p.CurrentDateTime()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, p.HorizonDays), nil
}

// Weekday returns the configured first day of the week, Monday by default.
func (r *ReportConfig) Weekday() time.Weekday {
	if d, err := buckets.ParseWeekday(r.WeekStart); err == nil {
		return d
	}
	return time.Monday
}

// RequestTimeout returns the HTTP request timeout.
func (s *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}
