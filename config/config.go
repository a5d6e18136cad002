// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// ErrInvalidConfig is returned when loaded configuration fails validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// validate holds the shared validator instance for Config structs.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all configuration for the preparation pipeline.
type Config struct {
	// Slicing settings
	SliceDurationMS int `env:"SLICE_DURATION_MS, default=200" json:"slice_duration_ms" validate:"gt=0"`

	// Mouth crop settings
	MouthHeight    int     `env:"MOUTH_HEIGHT, default=128" json:"mouth_height" validate:"gt=0"`
	MouthWidth     int     `env:"MOUTH_WIDTH, default=128" json:"mouth_width" validate:"gt=0"`
	VerticalAnchor float64 `env:"VERTICAL_ANCHOR, default=0.7" json:"vertical_anchor" validate:"gt=0,lt=1"`

	// Spectrogram settings
	Mel       bool    `env:"MEL, default=false" json:"mel"`
	MelBands  int     `env:"MEL_BANDS, default=80" json:"mel_bands" validate:"gt=0"`
	FreqMinHz float64 `env:"FREQ_MIN_HZ, default=0" json:"freq_min_hz" validate:"gte=0"`
	FreqMaxHz float64 `env:"FREQ_MAX_HZ, default=8000" json:"freq_max_hz" validate:"gt=0,gtfield=FreqMinHz"`

	// Mixing settings
	NoiseSNRDB float64 `env:"NOISE_SNR_DB, default=0" json:"noise_snr_db"`

	// Processing settings
	Workers int `env:"WORKERS, default=8" json:"workers" validate:"gt=0"`

	// Storage settings
	TempDir string `env:"TEMP_DIR, default=/tmp/avprep" json:"temp_dir"`

	// External tool settings. Empty values resolve via PATH.
	FFmpegPath  string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// Every field has a default, so Load only fails on unparseable values.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent: positive
// sizes, a vertical anchor inside the frame and a frequency band whose upper
// edge lies above the lower one.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{SliceDurationMS: %d, MouthHeight: %d, MouthWidth: %d, VerticalAnchor: %.2f, Mel: %t, MelBands: %d, FreqMinHz: %.0f, FreqMaxHz: %.0f, NoiseSNRDB: %.1f, Workers: %d, TempDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.SliceDurationMS,
		c.MouthHeight,
		c.MouthWidth,
		c.VerticalAnchor,
		c.Mel,
		c.MelBands,
		c.FreqMinHz,
		c.FreqMaxHz,
		c.NoiseSNRDB,
		c.Workers,
		c.TempDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
