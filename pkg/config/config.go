package config

import (
	"time"

	"github.com/makeroftools/perspective/pkg/errors"
)

// Config is the configuration of a conversion run. Every section can be
// set from YAML; the CLI layers flags and PERSPECTIVE_* variables on top.
type Config struct {
	// Logging controls the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	// Input describes where record batches come from
	Input InputConfig `yaml:"input" json:"input"`
	// Output describes how materialized tables are written
	Output OutputConfig `yaml:"output" json:"output"`
	// Metrics controls the prometheus collector
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	// Tracing controls OpenTelemetry spans
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding is json or console
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// InputConfig describes the record batch source.
type InputConfig struct {
	// Path of the input file; "-" or empty reads stdin
	Path string `yaml:"path" json:"path"`
	// Format is auto, arrow-stream, arrow-file or parquet
	Format string `yaml:"format" json:"format"`
	// Compression is auto, none, gzip, snappy, s2, zstd or lz4
	Compression string `yaml:"compression" json:"compression"`
	// BatchSize is the number of rows per record batch read from Parquet
	BatchSize int64 `yaml:"batch_size" json:"batch_size"`
}

// OutputConfig describes the JSON output.
type OutputConfig struct {
	// Path of the output file; "-" or empty writes stdout
	Path string `yaml:"path" json:"path"`
	// Layout is columns or rows
	Layout string `yaml:"layout" json:"layout"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
	// Timezone is the IANA zone dates are materialized in; empty or "Local"
	// uses the process zone
	Timezone string `yaml:"timezone" json:"timezone"`
}

// MetricsConfig contains prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	// Textfile is written in the prometheus text format when the run ends
	Textfile string `yaml:"textfile" json:"textfile"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	// SamplingRate controls trace sampling (0.0-1.0)
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Input: InputConfig{
			Format:      "auto",
			Compression: "auto",
			BatchSize:   64 * 1024,
		},
		Output: OutputConfig{
			Layout:   "columns",
			Timezone: "Local",
		},
		Metrics: MetricsConfig{
			Namespace: "perspective",
		},
		Tracing: TracingConfig{
			ServiceName:  "perspective",
			SamplingRate: 1.0,
		},
	}
}

// Validate checks that every enumerated setting holds a known value.
func (c *Config) Validate() error {
	if !oneOf(c.Input.Format, "auto", "arrow-stream", "arrow-file", "parquet") {
		return invalid("input.format", c.Input.Format)
	}
	if !oneOf(c.Input.Compression, "auto", "none", "gzip", "snappy", "s2", "zstd", "lz4") {
		return invalid("input.compression", c.Input.Compression)
	}
	if c.Input.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "input.batch_size must be positive")
	}
	if !oneOf(c.Output.Layout, "columns", "rows") {
		return invalid("output.layout", c.Output.Layout)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New(errors.ErrorTypeConfig, "tracing.sampling_rate must be between 0 and 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Output.Timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Output.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Output.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output.timezone").
			WithDetail("timezone", c.Output.Timezone)
	}
	return loc, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func invalid(key, value string) error {
	return errors.Newf(errors.ErrorTypeConfig, "unknown %s %q", key, value)
}
