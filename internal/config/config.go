// Package config holds skillrouter configuration, loaded from
// .skillrouter/config.yaml in the workspace. A missing file yields the
// defaults; a malformed file is an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all skillrouter configuration.
type Config struct {
	// SkillsDir is the directory of <skill>/SKILL.md definitions.
	SkillsDir string `yaml:"skills_dir"`

	// Learning configures the usage-learning store.
	Learning LearningConfig `yaml:"learning"`

	// History configures the decision-history database.
	History HistoryConfig `yaml:"history"`

	// Execution configures the external skill call.
	Execution ExecutionConfig `yaml:"execution"`

	// Safety configures validation defaults.
	Safety SafetyConfig `yaml:"safety"`

	// Logging controls the category file loggers.
	Logging LoggingConfig `yaml:"logging"`
}

// LearningConfig configures the learning store.
type LearningConfig struct {
	// Path of the learning JSON file. Defaults to
	// <workspace>/.skillrouter/learning.json.
	Path string `yaml:"path"`
}

// HistoryConfig configures the decision log.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path of the SQLite file. Defaults to
	// <workspace>/.skillrouter/history.db.
	Path string `yaml:"path"`
}

// ExecutionConfig configures skill execution.
type ExecutionConfig struct {
	// Timeout for one external skill call, e.g. "2m".
	Timeout string `yaml:"timeout"`
}

// ParsedTimeout returns the execution timeout, falling back to zero when
// unset or unparseable (the router then applies its own default).
func (e ExecutionConfig) ParsedTimeout() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// SafetyConfig configures validation defaults.
type SafetyConfig struct {
	// ProtectedBranches on which destructive skills are blocked.
	ProtectedBranches []string `yaml:"protected_branches"`
}

// LoggingConfig controls debug file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// Default returns the configuration used when no config file exists,
// rooted at the given workspace.
func Default(workspace string) Config {
	return Config{
		SkillsDir: filepath.Join(workspace, "skills"),
		Learning: LearningConfig{
			Path: filepath.Join(workspace, ".skillrouter", "learning.json"),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(workspace, ".skillrouter", "history.db"),
		},
		Execution: ExecutionConfig{
			Timeout: "2m",
		},
		Safety: SafetyConfig{
			ProtectedBranches: []string{"main", "master"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads <workspace>/.skillrouter/config.yaml, layering it over the
// defaults. A missing file is not an error.
func Load(workspace string) (Config, error) {
	cfg := Default(workspace)

	path := filepath.Join(workspace, ".skillrouter", "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(cfg.Safety.ProtectedBranches) == 0 {
		cfg.Safety.ProtectedBranches = []string{"main", "master"}
	}
	return cfg, nil
}
