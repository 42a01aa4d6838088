package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/facescan/internal/annotate"
	"github.com/MeKo-Tech/facescan/internal/batch"
	"github.com/MeKo-Tech/facescan/internal/estimator"
	"github.com/MeKo-Tech/facescan/internal/localizer"
	"github.com/MeKo-Tech/facescan/internal/models"
)

// Config represents the complete configuration for facescan. It is loaded
// from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Batch run settings for the analyze command
	Analyze AnalyzeConfig `mapstructure:"analyze" yaml:"analyze" json:"analyze"`

	// Attribute estimation backend
	Estimator estimator.Config `mapstructure:"estimator" yaml:"estimator" json:"estimator"`

	// Face detection used for cropping and bounding boxes
	Localizer localizer.Config `mapstructure:"localizer" yaml:"localizer" json:"localizer"`

	// Heatmap and bounding-box output
	Annotate annotate.Config `mapstructure:"annotate" yaml:"annotate" json:"annotate"`

	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// AnalyzeConfig contains input discovery and export settings.
type AnalyzeConfig struct {
	InputDir        string   `mapstructure:"input_dir" yaml:"input_dir" json:"input_dir"`
	OutputFile      string   `mapstructure:"output_file" yaml:"output_file" json:"output_file"`
	Format          string   `mapstructure:"format" yaml:"format" json:"format"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	ExcludePatterns []string `mapstructure:"exclude" yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Quiet           bool     `mapstructure:"quiet" yaml:"quiet" json:"quiet"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// Default values for the analyze command.
const (
	DefaultInputDir   = "faceimages"
	DefaultOutputFile = "results.csv"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Verbose:   false,
		Analyze: AnalyzeConfig{
			InputDir:   DefaultInputDir,
			OutputFile: DefaultOutputFile,
			Format:     batch.FormatCSV,
		},
		Estimator: estimator.DefaultConfig(),
		Localizer: localizer.DefaultConfig(),
		Annotate:  annotate.DefaultConfig(),
	}
}

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{batch.FormatCSV, batch.FormatJSON, batch.FormatYAML}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Analyze.Format != "" && !slices.Contains(validFormats, c.Analyze.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Analyze.Format, strings.Join(validFormats, ", "))
	}
	if strings.TrimSpace(c.Analyze.InputDir) == "" {
		return errors.New("analyze.input_dir must not be empty")
	}

	if err := c.Estimator.Validate(); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	if err := c.Localizer.Validate(); err != nil {
		return fmt.Errorf("localizer: %w", err)
	}
	if err := c.Annotate.Validate(); err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	return nil
}

// ToBatchConfig converts the analyze settings for the batch runner.
func (c *Config) ToBatchConfig() batch.Config {
	return batch.Config{
		InputDir:        c.Analyze.InputDir,
		OutputFile:      c.Analyze.OutputFile,
		Format:          c.Analyze.Format,
		Recursive:       c.Analyze.Recursive,
		ExcludePatterns: c.Analyze.ExcludePatterns,
		Quiet:           c.Analyze.Quiet,
	}
}

// AnnotateDir returns the configured annotation directory, or the directory
// derived from the input directory.
func (c *Config) AnnotateDir() string {
	if c.Annotate.Dir != "" {
		return c.Annotate.Dir
	}
	return annotate.DefaultDir(c.Analyze.InputDir)
}
