package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/recall-go/internal/cli/connection"
	"github.com/yndnr/recall-go/internal/infra/buildinfo"
)

// CLIConfig is the configuration of recall-cli.
type CLIConfig struct {
	Backend BackendConfig `koanf:"backend" yaml:"backend"`
	Auth    AuthConfig    `koanf:"auth" yaml:"auth"`
	Storage StorageConfig `koanf:"storage" yaml:"storage"`
	Bridge  BridgeConfig  `koanf:"bridge" yaml:"bridge"`
	Log     LogConfig     `koanf:"log" yaml:"log"`

	// Output is the default output format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`
}

// BackendConfig configures the request engine.
type BackendConfig struct {
	// URL is the configured backend origin. Empty uses the compiled default.
	URL         string        `koanf:"url" yaml:"url,omitempty"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxAttempts int           `koanf:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay" yaml:"base_delay"`
	CallBudget  time.Duration `koanf:"call_budget" yaml:"call_budget"`
	// RateLimit caps outbound requests per second; 0 disables it.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	// CAFile adds a PEM bundle to the trusted roots.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`
}

// AuthConfig configures session refresh.
type AuthConfig struct {
	RefreshThreshold time.Duration `koanf:"refresh_threshold" yaml:"refresh_threshold"`
}

// StorageConfig configures the credential store.
type StorageConfig struct {
	Dir string `koanf:"dir" yaml:"dir"`
	// Ephemeral keeps the session in memory only.
	Ephemeral bool `koanf:"ephemeral" yaml:"ephemeral"`
}

// BridgeConfig configures the page channel.
type BridgeConfig struct {
	Socket  string        `koanf:"socket" yaml:"socket"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// DefaultDir returns ~/.recall.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".recall")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "cli.yaml")
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	dir := DefaultDir()
	return &CLIConfig{
		Backend: BackendConfig{
			Timeout:     connection.DefaultAttemptTimeout,
			MaxAttempts: connection.DefaultMaxAttempts,
			BaseDelay:   connection.DefaultBaseDelay,
			CallBudget:  connection.DefaultCallBudget,
		},
		Auth:    AuthConfig{RefreshThreshold: connection.DefaultRefreshThreshold},
		Storage: StorageConfig{Dir: filepath.Join(dir, "data")},
		Bridge: BridgeConfig{
			Socket:  filepath.Join(dir, "page.sock"),
			Timeout: connection.DefaultBridgeTimeout,
		},
		Log:    LogConfig{Level: "warn", Format: "text"},
		Output: "table",
	}
}

// BackendURL returns the configured origin, or the compiled default.
func (c *CLIConfig) BackendURL() string {
	if c.Backend.URL != "" {
		return connection.NormalizeURL(c.Backend.URL)
	}
	return buildinfo.DefaultBackendURL()
}

// KeyFile returns the path of the token sealing key.
func (c *CLIConfig) KeyFile() string {
	return filepath.Join(filepath.Dir(c.Storage.Dir), "keyfile")
}

// HistoryFile returns the REPL history path.
func (c *CLIConfig) HistoryFile() string {
	return filepath.Join(filepath.Dir(c.Storage.Dir), "history")
}

// EngineConfig converts the backend settings for connection.NewEngine.
func (c *CLIConfig) EngineConfig() connection.EngineConfig {
	return connection.EngineConfig{
		AttemptTimeout:   c.Backend.Timeout,
		MaxAttempts:      c.Backend.MaxAttempts,
		BaseDelay:        c.Backend.BaseDelay,
		CallBudget:       c.Backend.CallBudget,
		RefreshThreshold: c.Auth.RefreshThreshold,
		RateLimit:        c.Backend.RateLimit,
	}
}
