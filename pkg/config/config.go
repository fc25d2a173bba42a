package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultFileName = "config.yaml"

// Environment variables consulted after the config file is applied.
const (
	EnvDataRoot = "DAGGER_DATA_ROOT"
	EnvAgentDir = "DAGGER_AGENT_DIR"
)

// Pacing modes for the capture loop.
const (
	PacingSpin  = "spin"
	PacingSleep = "sleep"
)

// Config captures the user-adjustable knobs for recording and dataset preparation.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Capture CaptureConfig `yaml:"capture"`
	Dagger  DaggerConfig  `yaml:"dagger"`
	Agent   AgentConfig   `yaml:"agent"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	DataRoot   string `yaml:"data_root"`
	AgentDir   string `yaml:"agent_dir"`
	DatasetDir string `yaml:"dataset_dir"`
}

// Region is a capture rectangle in screen coordinates. The zero value means full screen.
type Region struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

// Empty reports whether the region is unset.
func (r Region) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// CaptureConfig controls the fixed-rate acquisition loop.
type CaptureConfig struct {
	RateHz      float64 `yaml:"rate_hz"`
	FrameFormat string  `yaml:"frame_format"`
	JPEGQuality int     `yaml:"jpeg_quality"`
	Region      Region  `yaml:"region"`
	ResetCursor bool    `yaml:"reset_cursor"`
	CancelKey   string  `yaml:"cancel_key"`
	Pacing      string  `yaml:"pacing"`
}

// DaggerConfig controls the aggregation loop.
type DaggerConfig struct {
	CountdownSeconds int `yaml:"countdown_seconds"`
}

// AgentConfig describes how the autonomous agent process is launched.
type AgentConfig struct {
	Command           string   `yaml:"command"`
	Args              []string `yaml:"args"`
	PlayBudgetSeconds int      `yaml:"play_budget_seconds"`
}

// DatasetConfig controls label discretization and dataset assembly.
type DatasetConfig struct {
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	Channels           int     `yaml:"channels"`
	TimeSteps          int     `yaml:"time_steps"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	TestFraction       float64 `yaml:"test_fraction"`
	Seed               int64   `yaml:"seed"`
	ActionSpaceX       []int   `yaml:"action_space_x"`
	ActionSpaceY       []int   `yaml:"action_space_y"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultActionSpaceX is the horizontal motion vocabulary.
var DefaultActionSpaceX = []int{-300, -200, -150, -100, -50, -25, -10, -5, -1, 0, 1, 5, 10, 50, 100, 150, 200, 300}

// DefaultActionSpaceY is the vertical motion vocabulary.
var DefaultActionSpaceY = []int{-100, -50, -25, -10, -5, -1, 0, 1, 5, 10, 25, 50, 100}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DataRoot:   "data",
			AgentDir:   "agent",
			DatasetDir: "dataset",
		},
		Capture: CaptureConfig{
			RateHz:      15,
			FrameFormat: "jpg",
			JPEGQuality: 90,
			CancelKey:   "q",
			Pacing:      PacingSpin,
		},
		Dagger: DaggerConfig{
			CountdownSeconds: 3,
		},
		Agent: AgentConfig{
			Command:           "",
			PlayBudgetSeconds: 0,
		},
		Dataset: DatasetConfig{
			Width:              25,
			Height:             25,
			Channels:           3,
			TimeSteps:          0,
			ValidationFraction: 0.2,
			TestFraction:       0.2,
			Seed:               42,
			ActionSpaceX:       append([]int(nil), DefaultActionSpaceX...),
			ActionSpaceY:       append([]int(nil), DefaultActionSpaceY...),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = os.LookupEnv

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "decode config file %q", candidate)
		}
		cfg.Source = candidate
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
	default:
		return cfg, errors.Wrapf(err, "open config file %q", candidate)
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := lookupEnv(EnvDataRoot); ok && strings.TrimSpace(v) != "" {
		c.Paths.DataRoot = v
	}
	if v, ok := lookupEnv(EnvAgentDir); ok && strings.TrimSpace(v) != "" {
		c.Paths.AgentDir = v
	}
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataRoot) == "" {
		return errors.New("paths.data_root must not be empty")
	}
	if strings.TrimSpace(c.Paths.DatasetDir) == "" {
		return errors.New("paths.dataset_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Capture.RateHz <= 0 {
		return errors.New("capture.rate_hz must be positive")
	}
	switch c.Capture.FrameFormat {
	case "jpg", "png":
	default:
		return fmt.Errorf("capture.frame_format %q unsupported (jpg, png)", c.Capture.FrameFormat)
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return errors.New("capture.jpeg_quality must be within 1..100")
	}
	if c.Capture.Region != (Region{}) && c.Capture.Region.Empty() {
		return fmt.Errorf("capture.region %+v must have right > left and bottom > top", c.Capture.Region)
	}
	if len(c.Capture.CancelKey) != 1 {
		return fmt.Errorf("capture.cancel_key %q must be a single character", c.Capture.CancelKey)
	}
	if _, err := NormalizePacing(c.Capture.Pacing); err != nil {
		return err
	}

	if c.Dagger.CountdownSeconds < 0 {
		return errors.New("dagger.countdown_seconds must not be negative")
	}
	if c.Agent.PlayBudgetSeconds < 0 {
		return errors.New("agent.play_budget_seconds must not be negative")
	}

	if c.Dataset.Width <= 0 || c.Dataset.Height <= 0 {
		return errors.New("dataset.width and dataset.height must be positive")
	}
	if c.Dataset.Channels != 1 && c.Dataset.Channels != 3 {
		return errors.New("dataset.channels must be 1 or 3")
	}
	if c.Dataset.TimeSteps < 0 {
		return errors.New("dataset.time_steps must not be negative")
	}
	v, t := c.Dataset.ValidationFraction, c.Dataset.TestFraction
	if v < 0 || t < 0 || v+t >= 1 {
		return fmt.Errorf("dataset fractions invalid: validation=%.3f test=%.3f (each >= 0, sum < 1)", v, t)
	}
	if err := validateBins("dataset.action_space_x", c.Dataset.ActionSpaceX); err != nil {
		return err
	}
	if err := validateBins("dataset.action_space_y", c.Dataset.ActionSpaceY); err != nil {
		return err
	}

	return nil
}

func validateBins(name string, bins []int) error {
	if len(bins) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	zero := false
	for i, b := range bins {
		if b == 0 {
			zero = true
		}
		if i > 0 && b <= bins[i-1] {
			return fmt.Errorf("%s must be strictly increasing (index %d)", name, i)
		}
	}
	if !zero {
		return fmt.Errorf("%s must contain 0", name)
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Paths.DataRoot = cleanPath(c.Paths.DataRoot, defaults.Paths.DataRoot)
	c.Paths.AgentDir = cleanPath(c.Paths.AgentDir, defaults.Paths.AgentDir)
	c.Paths.DatasetDir = cleanPath(c.Paths.DatasetDir, defaults.Paths.DatasetDir)

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	c.Capture.FrameFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Capture.FrameFormat)), ".")
	if c.Capture.FrameFormat == "jpeg" {
		c.Capture.FrameFormat = "jpg"
	}
	if c.Capture.FrameFormat == "" {
		c.Capture.FrameFormat = defaults.Capture.FrameFormat
	}
	if c.Capture.JPEGQuality == 0 {
		c.Capture.JPEGQuality = defaults.Capture.JPEGQuality
	}
	if strings.TrimSpace(c.Capture.CancelKey) == "" {
		c.Capture.CancelKey = defaults.Capture.CancelKey
	}
	c.Capture.CancelKey = strings.ToLower(strings.TrimSpace(c.Capture.CancelKey))
	if pacing, err := NormalizePacing(c.Capture.Pacing); err == nil {
		c.Capture.Pacing = pacing
	}

	if c.Dataset.Channels == 0 {
		c.Dataset.Channels = defaults.Dataset.Channels
	}
	if len(c.Dataset.ActionSpaceX) == 0 {
		c.Dataset.ActionSpaceX = defaults.Dataset.ActionSpaceX
	}
	if len(c.Dataset.ActionSpaceY) == 0 {
		c.Dataset.ActionSpaceY = defaults.Dataset.ActionSpaceY
	}
}

func cleanPath(value, fallback string) string {
	cleaned := filepath.Clean(strings.TrimSpace(value))
	if cleaned == "." || cleaned == "" {
		return fallback
	}
	return cleaned
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

// NormalizePacing validates capture pacing identifiers.
func NormalizePacing(pacing string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(pacing)) {
	case "", PacingSpin, "busy":
		return PacingSpin, nil
	case PacingSleep, "block":
		return PacingSleep, nil
	default:
		return "", fmt.Errorf("unsupported capture pacing %q", pacing)
	}
}
