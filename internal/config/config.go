// Package config loads the cronpilot.json configuration file and
// applies environment overrides. The task source token is the only
// required value; everything else has a usable default.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// DefaultFileName is the configuration file searched for in the
// project root when no --config flag is given.
const DefaultFileName = "cronpilot.json"

// ErrMissingToken is returned by Validate when no task source token is
// configured. It is fatal: the process must exit before any scheduling
// or polling happens.
var ErrMissingToken = errors.New("task source token not configured")

// Config represents the cronpilot.json configuration file.
type Config struct {
	// Token authenticates against the task source API. Overridden by
	// the TODOIST_TOKEN environment variable.
	Token string `json:"token,omitempty"`

	// IntervalSeconds is the polling interval used both by continuous
	// mode and by the installed OS scheduler job.
	IntervalSeconds int `json:"interval_seconds"`

	// Workspace is the code-context directory handed to the agent CLI.
	Workspace string `json:"workspace"`

	// AgentBin is the external agent executable.
	AgentBin string `json:"agent_bin"`

	// Preamble is prefixed to every instruction sent to the agent.
	// Empty means the built-in preamble.
	Preamble string `json:"preamble,omitempty"`

	// LogDir holds stdout/stderr redirection files for scheduled runs.
	LogDir string `json:"log_dir"`

	// CleanLogDir holds the per-day conversation log files.
	CleanLogDir string `json:"clean_log_dir"`

	// APIBaseURL overrides the task source endpoint (tests only).
	APIBaseURL string `json:"api_base_url,omitempty"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		IntervalSeconds: 300,
		Workspace:       ".",
		AgentBin:        "cursor-agent",
		LogDir:          "logs",
		CleanLogDir:     "clean_logs",
	}
}

// Load reads the configuration file at path, falling back to defaults
// when the file does not exist, then applies environment overrides.
// A missing file is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays recognized environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("TODOIST_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("CRONPILOT_AGENT_BIN"); v != "" {
		c.AgentBin = v
	}
	if v := os.Getenv("CRONPILOT_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.IntervalSeconds = secs
		}
	}
}

// Validate checks the configuration and returns user-friendly error
// messages with hints, mirroring what first-run users need to fix.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w\n\nHint: get a token from https://todoist.com/app/settings/integrations/developer and either:\n  - set TODOIST_TOKEN in the environment, or\n  - add \"token\": \"...\" to %s", ErrMissingToken, DefaultFileName)
	}

	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("configuration error: invalid 'interval_seconds' value: %d\n\nHint: the interval must be a positive number of seconds, e.g.:\n  \"interval_seconds\": 300", c.IntervalSeconds)
	}

	if c.AgentBin == "" {
		return fmt.Errorf("configuration error: empty 'agent_bin' field\n\nHint: specify the agent executable:\n  \"agent_bin\": \"cursor-agent\"")
	}

	return nil
}

// SaveToFile writes the configuration as indented JSON with 0600
// permissions (the token is a credential).
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}
