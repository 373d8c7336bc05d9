package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/chosenoffset/attest/pkg/attest"
)

// Config holds the settings for the attest CLI and its dashboard.
type Config struct {
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Operators OperatorsConfig `yaml:"operators"`
}

// LimitsConfig mirrors attest.Limits. Zero values keep the defaults.
type LimitsConfig struct {
	MaxSentenceLength  int    `yaml:"max_sentence_length"`
	MaxTokens          int    `yaml:"max_tokens"`
	MaxAssertions      int    `yaml:"max_assertions"`
	MaxCachedSentences int    `yaml:"max_cached_sentences"`
	MaxEvaluationTime  string `yaml:"max_evaluation_time"` // e.g. "500ms"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type DashboardConfig struct {
	Port int `yaml:"port"`
}

type OperatorsConfig struct {
	// Standard registers contains, starts with, ends with and divides.
	Standard bool `yaml:"standard"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	limits := attest.DefaultLimits()
	return &Config{
		Limits: LimitsConfig{
			MaxSentenceLength:  limits.MaxSentenceLength,
			MaxTokens:          limits.MaxTokens,
			MaxAssertions:      limits.MaxAssertions,
			MaxCachedSentences: limits.MaxCachedSentences,
			MaxEvaluationTime:  limits.MaxEvaluationTime.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Dashboard: DashboardConfig{
			Port: 9090,
		},
		Operators: OperatorsConfig{
			Standard: true,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("ATTEST_DASHBOARD_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("ATTEST_DASHBOARD_PORT: %w", err)
		}
		c.Dashboard.Port = p
	}
	if level := os.Getenv("ATTEST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate checks values that would otherwise fail later and further from
// the file that set them.
func (c *Config) Validate() error {
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard port %d out of range", c.Dashboard.Port)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging format %q: want json or console", c.Logging.Format)
	}
	if _, err := c.Limits.evaluationTime(); err != nil {
		return err
	}
	return nil
}

func (l LimitsConfig) evaluationTime() (time.Duration, error) {
	if l.MaxEvaluationTime == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.MaxEvaluationTime)
	if err != nil {
		return 0, fmt.Errorf("max_evaluation_time: %w", err)
	}
	return d, nil
}

// EngineLimits converts the limits section, filling zero fields from
// attest.DefaultLimits.
func (c *Config) EngineLimits() (*attest.Limits, error) {
	limits := attest.DefaultLimits()
	if c.Limits.MaxSentenceLength > 0 {
		limits.MaxSentenceLength = c.Limits.MaxSentenceLength
	}
	if c.Limits.MaxTokens > 0 {
		limits.MaxTokens = c.Limits.MaxTokens
	}
	if c.Limits.MaxAssertions > 0 {
		limits.MaxAssertions = c.Limits.MaxAssertions
	}
	if c.Limits.MaxCachedSentences > 0 {
		limits.MaxCachedSentences = c.Limits.MaxCachedSentences
	}
	d, err := c.Limits.evaluationTime()
	if err != nil {
		return nil, err
	}
	if d > 0 {
		limits.MaxEvaluationTime = d
	}
	return limits, nil
}

// BuildLogger creates the zap logger described by the logging section.
// verbose forces debug level.
func (c *Config) BuildLogger(verbose bool) (*zap.Logger, error) {
	var zc zap.Config
	if c.Logging.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	return zc.Build()
}
