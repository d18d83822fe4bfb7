package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/recall-go/internal/infra/confloader"
	"github.com/yndnr/recall-go/internal/telemetry/logger"
)

// Output formats.
var outputFormats = []string{"table", "json", "yaml"}

// Load reads the configuration at path (the default path when empty) and
// merges RECALL_* variables and overrides on top. A missing file is not an
// error. Overrides use dotted keys, e.g. {"backend.url": "..."}.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithDefaults(defaults(cfg)),
		confloader.WithConfigFile(path, true),
		confloader.WithOverrides(overrides),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Dir = expandHome(cfg.Storage.Dir)
	cfg.Bridge.Socket = expandHome(cfg.Bridge.Socket)
	cfg.Backend.CAFile = expandHome(cfg.Backend.CAFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// defaults flattens cfg so the loader merges the file over it key by key.
func defaults(cfg *CLIConfig) map[string]any {
	return map[string]any{
		"backend.url":            cfg.Backend.URL,
		"backend.timeout":        cfg.Backend.Timeout.String(),
		"backend.max_attempts":   cfg.Backend.MaxAttempts,
		"backend.base_delay":     cfg.Backend.BaseDelay.String(),
		"backend.call_budget":    cfg.Backend.CallBudget.String(),
		"backend.rate_limit":     cfg.Backend.RateLimit,
		"backend.ca_file":        cfg.Backend.CAFile,
		"auth.refresh_threshold": cfg.Auth.RefreshThreshold.String(),
		"storage.dir":            cfg.Storage.Dir,
		"storage.ephemeral":      cfg.Storage.Ephemeral,
		"bridge.socket":          cfg.Bridge.Socket,
		"bridge.timeout":         cfg.Bridge.Timeout.String(),
		"log.level":              cfg.Log.Level,
		"log.format":             cfg.Log.Format,
		"output":                 cfg.Output,
	}
}

// Validate checks value ranges.
func (c *CLIConfig) Validate() error {
	if c.Backend.MaxAttempts < 1 {
		return fmt.Errorf("backend.max_attempts must be at least 1")
	}
	if c.Backend.Timeout <= 0 || c.Backend.BaseDelay <= 0 {
		return fmt.Errorf("backend.timeout and backend.base_delay must be positive")
	}
	if c.Backend.CallBudget < 0 {
		return fmt.Errorf("backend.call_budget must not be negative")
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must not be negative")
	}
	if c.Auth.RefreshThreshold <= 0 {
		return fmt.Errorf("auth.refresh_threshold must be positive")
	}
	if !c.Storage.Ephemeral && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required")
	}
	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if !ValidOutput(c.Output) {
		return fmt.Errorf("output %q is not one of %s", c.Output, strings.Join(outputFormats, ", "))
	}
	return nil
}

// ValidOutput reports whether format is a known output format.
func ValidOutput(format string) bool {
	for _, f := range outputFormats {
		if format == f {
			return true
		}
	}
	return false
}

// Save writes cfg as YAML with mode 0600, creating the directory.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
