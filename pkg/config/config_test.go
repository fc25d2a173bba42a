package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Paths.DataRoot)
	assert.Equal(t, "<defaults>", cfg.Source)
	assert.Equal(t, 15.0, cfg.Capture.RateHz)
	assert.Equal(t, PacingSpin, cfg.Capture.Pacing)
	assert.Equal(t, 3, cfg.Dagger.CountdownSeconds)
	assert.Equal(t, DefaultActionSpaceX, cfg.Dataset.ActionSpaceX)
	assert.Equal(t, DefaultActionSpaceY, cfg.Dataset.ActionSpaceY)
	assert.Equal(t, int64(42), cfg.Dataset.Seed)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	withEnv(t, nil)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `paths:
  data_root: recordings
  agent_dir: models
capture:
  rate_hz: 20
  frame_format: PNG
  region:
    left: 10
    top: 20
    right: 810
    bottom: 620
  reset_cursor: true
  cancel_key: E
  pacing: sleep
dagger:
  countdown_seconds: 5
agent:
  command: python
  args: [agent_playing_script.py, --headless]
  play_budget_seconds: 30
dataset:
  width: 64
  height: 48
  channels: 1
  time_steps: 4
  validation_fraction: 0.1
  test_fraction: 0.3
  seed: 7
  action_space_x: [-10, 0, 10]
logging:
  level: DEBUG
  format: console
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "recordings", cfg.Paths.DataRoot)
	assert.Equal(t, "models", cfg.Paths.AgentDir)
	assert.Equal(t, 20.0, cfg.Capture.RateHz)
	assert.Equal(t, "png", cfg.Capture.FrameFormat)
	assert.Equal(t, Region{Left: 10, Top: 20, Right: 810, Bottom: 620}, cfg.Capture.Region)
	assert.True(t, cfg.Capture.ResetCursor)
	assert.Equal(t, "e", cfg.Capture.CancelKey)
	assert.Equal(t, PacingSleep, cfg.Capture.Pacing)
	assert.Equal(t, 5, cfg.Dagger.CountdownSeconds)
	assert.Equal(t, "python", cfg.Agent.Command)
	assert.Equal(t, []string{"agent_playing_script.py", "--headless"}, cfg.Agent.Args)
	assert.Equal(t, 30, cfg.Agent.PlayBudgetSeconds)
	assert.Equal(t, 64, cfg.Dataset.Width)
	assert.Equal(t, 48, cfg.Dataset.Height)
	assert.Equal(t, 1, cfg.Dataset.Channels)
	assert.Equal(t, 4, cfg.Dataset.TimeSteps)
	assert.Equal(t, []int{-10, 0, 10}, cfg.Dataset.ActionSpaceX)
	assert.Equal(t, DefaultActionSpaceY, cfg.Dataset.ActionSpaceY)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, cfgPath, cfg.Source)
}

func TestEnvOverridesPaths(t *testing.T) {
	withEnv(t, map[string]string{EnvDataRoot: "/srv/dagger", EnvAgentDir: "/srv/agent"})
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("paths:\n  data_root: ignored\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "/srv/dagger", cfg.Paths.DataRoot)
	assert.Equal(t, "/srv/agent", cfg.Paths.AgentDir)
}

func TestUnknownKeyReturnsError(t *testing.T) {
	withEnv(t, nil)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("capture:\n  unsupported: true\n"), 0o644))

	_, err := Load(cfgPath)
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"rate":          func(c *Config) { c.Capture.RateHz = 0 },
		"fractions":     func(c *Config) { c.Dataset.ValidationFraction = 0.6; c.Dataset.TestFraction = 0.4 },
		"no zero bin":   func(c *Config) { c.Dataset.ActionSpaceX = []int{-1, 1} },
		"unsorted bins": func(c *Config) { c.Dataset.ActionSpaceY = []int{0, 5, 5} },
		"region":        func(c *Config) { c.Capture.Region = Region{Left: 100, Right: 50, Bottom: 10} },
		"channels":      func(c *Config) { c.Dataset.Channels = 2 },
		"cancel key":    func(c *Config) { c.Capture.CancelKey = "esc" },
		"frame format":  func(c *Config) { c.Capture.FrameFormat = "tiff" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
