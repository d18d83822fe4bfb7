// Package connection provides backend communication for recall-cli.
package connection

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// OverrideSource supplies the user's backend override, "" when unset.
type OverrideSource interface {
	BackendOverride(ctx context.Context) (string, error)
}

// Manager resolves the backend base URL for every request.
//
// Precedence, highest first: a pinned URL (the --server flag), the user's
// settings override, the configured default.
type Manager struct {
	mu         sync.RWMutex
	pinned     string
	defaultURL string
	override   OverrideSource
	logger     *slog.Logger
}

// NewManager creates a resolver. override may be nil.
func NewManager(defaultURL string, override OverrideSource) *Manager {
	return &Manager{
		defaultURL: NormalizeURL(defaultURL),
		override:   override,
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger used to report override lookup failures.
func (m *Manager) SetLogger(l *slog.Logger) {
	m.logger = l
}

// Pin forces every request to url regardless of settings. Empty unpins.
func (m *Manager) Pin(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned = NormalizeURL(url)
}

// SetDefault replaces the configured default, e.g. after a config reload.
func (m *Manager) SetDefault(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultURL = NormalizeURL(url)
}

// Default returns the configured default base URL.
func (m *Manager) Default() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultURL
}

// BaseURL returns the base URL to use now.
func (m *Manager) BaseURL(ctx context.Context) string {
	m.mu.RLock()
	pinned, def := m.pinned, m.defaultURL
	m.mu.RUnlock()

	if pinned != "" {
		return pinned
	}
	if m.override != nil {
		o, err := m.override.BackendOverride(ctx)
		if err != nil {
			m.logger.Warn("backend override unavailable, using default", "error", err)
		} else if o != "" {
			return NormalizeURL(o)
		}
	}
	return def
}

// NormalizeURL adds a missing scheme and strips trailing slashes.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimRight(u, "/")
}
