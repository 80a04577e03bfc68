// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config with defaults; Load layers file and env on top.
// - Keys are flat snake_case so env vars map onto them directly.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"time"

	"github.com/okian/arcadeboard/internal/domain/ranking"
)

// Key fallback strategies for rows with neither profile URL nor name.
const (
	KeyFallbackUUID       = "uuid"
	KeyFallbackPositional = "positional"
)

// DeadlineLayout is the accepted deadline format (RFC 3339).
const DeadlineLayout = time.RFC3339

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Source locates the dataset: a file path, an http(s) URL,
	// s3://bucket/key, or "-" for stdin.
	Source string `koanf:"source" validate:"required"`

	// RefreshInterval re-reads the dataset periodically. Zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`

	// FetchTimeout bounds one load cycle.
	FetchTimeout time.Duration `koanf:"fetch_timeout" validate:"gt=0"`

	// MaxDatasetBytes caps the size of the dataset resource.
	MaxDatasetBytes int64 `koanf:"max_dataset_bytes" validate:"gt=0"`

	// Deadline is the campaign end shown by the countdown.
	Deadline string `koanf:"deadline" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`

	// Column titles of the dataset.
	NameColumn         string `koanf:"name_column" validate:"required"`
	SkillBadgesColumn  string `koanf:"skill_badges_column" validate:"required"`
	ArcadePointsColumn string `koanf:"arcade_points_column" validate:"required"`
	ProfileURLColumn   string `koanf:"profile_url_column" validate:"required"`

	// PlaceholderName is displayed for rows without a name.
	PlaceholderName string `koanf:"placeholder_name" validate:"required"`

	// KeyFallback is "uuid" (random per load) or "positional" (row-N).
	KeyFallback string `koanf:"key_fallback" validate:"oneof=uuid positional"`

	// ReloadRatePerMinute limits POST /reload. Zero or less disables the limit.
	ReloadRatePerMinute float64 `koanf:"reload_rate_per_minute"`
	ReloadBurst         int     `koanf:"reload_burst" validate:"gte=1"`

	// S3 compatible object storage, used when Source is s3://bucket/key.
	S3Endpoint        string `koanf:"s3_endpoint" validate:"omitempty,url"`
	S3Region          string `koanf:"s3_region"`
	S3AccessKeyID     string `koanf:"s3_access_key_id" validate:"required_with=S3SecretAccessKey"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key" validate:"required_with=S3AccessKeyID"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// New creates a Config holding the defaults.
func New() *Config {
	cols := ranking.DefaultColumns()
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Source:              "data/leaderboard.csv",
		FetchTimeout:        15 * time.Second,
		MaxDatasetBytes:     32 << 20,
		Deadline:            "2025-10-31T23:59:59Z",
		NameColumn:          cols.Name,
		SkillBadgesColumn:   cols.SkillBadges,
		ArcadePointsColumn:  cols.ArcadePoints,
		ProfileURLColumn:    cols.ProfileURL,
		PlaceholderName:     ranking.DefaultPlaceholderName,
		KeyFallback:         KeyFallbackUUID,
		ReloadRatePerMinute: 6,
		ReloadBurst:         2,
		S3Region:            "auto",
		ShutdownTimeout:     30 * time.Second,
	}
}

// DeadlineTime returns the parsed deadline. Load validates the format, so the
// zero time is only returned for a Config that was never validated.
func (c *Config) DeadlineTime() time.Time {
	t, err := time.Parse(DeadlineLayout, c.Deadline)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Columns returns the configured column mapping.
func (c *Config) Columns() ranking.Columns {
	return ranking.Columns{
		Name:         c.NameColumn,
		SkillBadges:  c.SkillBadgesColumn,
		ArcadePoints: c.ArcadePointsColumn,
		ProfileURL:   c.ProfileURLColumn,
	}
}

// NormalizerOptions translates the ranking related settings.
func (c *Config) NormalizerOptions() []ranking.Option {
	fallback := ranking.RandomKey
	if c.KeyFallback == KeyFallbackPositional {
		fallback = ranking.PositionalKey
	}
	return []ranking.Option{
		ranking.WithColumns(c.Columns()),
		ranking.WithPlaceholderName(c.PlaceholderName),
		ranking.WithKeyFallback(fallback),
	}
}
