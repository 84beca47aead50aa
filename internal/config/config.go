package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the runtime configuration model and full
// YAML-based load/save behavior, including first-run config creation
// and 0600 permissions. The scheduling policy itself lives in a
// separate document (internal/policy); this config only describes
// where things are and how the pipeline runs.

// ICSConfig describes a single ICS subscription used as a read source
// for the calendar snapshot.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// OracleConfig controls the suggestion oracle call.
type OracleConfig struct {
	// Model is the generative model identifier (e.g. "gemini-2.0-flash").
	Model string `yaml:"model" json:"model"`

	// Temperature is the determinism knob passed to the oracle.
	// Lower values make repeated runs more reproducible.
	Temperature float32 `yaml:"temperature" json:"temperature"`

	// MaxOutputTokens bounds the oracle response size.
	MaxOutputTokens int32 `yaml:"max_output_tokens" json:"max_output_tokens"`
}

// WriterConfig describes the calendar write target.
type WriterConfig struct {
	// CalendarID is the Google Calendar to create events in.
	// "primary" targets the authenticated user's default calendar.
	CalendarID string `yaml:"calendar_id" json:"calendar_id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API (daemon mode).
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the oracle is told to schedule in
	// (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// PolicyPath is the path to the scheduling policy YAML document.
	PolicyPath string `yaml:"policy" json:"policy"`

	// RunCron is a cron-style schedule string (e.g. "0 6 * * *") used
	// for periodic pipeline runs in daemon mode.
	RunCron string `yaml:"run_cron" json:"run_cron"`

	// LookbackDays / LookaheadDays bound the calendar snapshot window
	// relative to the run's current instant.
	LookbackDays  int `yaml:"lookback_days" json:"lookback_days"`
	LookaheadDays int `yaml:"lookahead_days" json:"lookahead_days"`

	// ICS is the list of subscribed read sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// Oracle configures the suggestion oracle.
	Oracle OracleConfig `yaml:"oracle" json:"oracle"`

	// Writer configures the calendar write target.
	Writer WriterConfig `yaml:"writer" json:"writer"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8099",
		Timezone:      "America/New_York",
		PolicyPath:    "policy.yaml",
		RunCron:       "0 6 * * *",
		LookbackDays:  1,
		LookaheadDays: 7,
		ICS:           []ICSConfig{},
		Oracle: OracleConfig{
			Model:           "gemini-2.0-flash",
			Temperature:     0.2,
			MaxOutputTokens: 4096,
		},
		Writer: WriterConfig{
			CalendarID: "primary",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8099"
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.PolicyPath == "" {
		c.PolicyPath = "policy.yaml"
	}
	if c.RunCron == "" {
		c.RunCron = "0 6 * * *"
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 1
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = 7
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gemini-2.0-flash"
	}
	if c.Oracle.Temperature < 0 {
		c.Oracle.Temperature = 0
	}
	if c.Oracle.MaxOutputTokens <= 0 {
		c.Oracle.MaxOutputTokens = 4096
	}
	if c.Writer.CalendarID == "" {
		c.Writer.CalendarID = "primary"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".tempo-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
