package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultAnswerer   = "echo"
	DefaultWorkers    = 4
	DefaultFailPolicy = "failfast"
	DefaultLogFormat  = "json"
	DefaultLogLevel   = "info"
)

// projectFileNames are checked in order in the working directory.
var projectFileNames = []string{"queryplan.toml", ".queryplan.toml"}

// Config holds the full runtime configuration for a run.
type Config struct {
	// PlanPath is the plan file or directory to execute.
	PlanPath string `toml:"plan_path"`

	// Answerer names the built-in answering capability to use.
	Answerer string `toml:"answerer"`

	// Workers bounds how many queries of a single wave run concurrently.
	Workers int `toml:"workers"`

	// FailPolicy decides what happens to later waves once a query fails.
	FailPolicy string `toml:"fail_policy"`

	// StatusPort serves run progress over HTTP when greater than zero.
	StatusPort int `toml:"status_port"`

	LogFormat string `toml:"log_format"`
	LogLevel  string `toml:"log_level"`

	// DryRun prints the wave schedule without answering anything. It is a
	// per-invocation choice, so it has no config file representation.
	DryRun bool `toml:"-"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		Answerer:   DefaultAnswerer,
		Workers:    DefaultWorkers,
		FailPolicy: DefaultFailPolicy,
		LogFormat:  DefaultLogFormat,
		LogLevel:   DefaultLogLevel,
	}
}

// FindProjectFile looks for a project config file in the current directory.
// It returns the empty string when none exists.
func FindProjectFile() string {
	for _, name := range projectFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadFile merges values from a TOML file over the receiver. Fields absent
// from the file keep their current values; keys the model does not know are
// an error rather than a silent no-op.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("loading config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s has unknown keys: %v", path, undecoded)
	}
	return nil
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("status_port must be between 0 and 65535, got %d", c.StatusPort)
	}
	return nil
}

// ExpandPath expands environment variables and a leading ~ in a path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}

	expanded := os.ExpandEnv(p)
	if expanded == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return home
	}
	if strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, expanded[2:])
	}
	return expanded
}
