package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Settings defaults and bounds.
const (
	DefaultDailyGoal = 5
	MinDailyGoal     = 1
	MaxDailyGoal     = 50

	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Settings are the user preferences persisted next to the session.
// BackendURL, when set, overrides the configured backend origin.
type Settings struct {
	DailyGoal     int    `json:"dailyGoal" yaml:"daily_goal"`
	Theme         string `json:"theme" yaml:"theme"`
	Notifications bool   `json:"notifications" yaml:"notifications"`
	BackendURL    string `json:"backendUrl" yaml:"backend_url"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		DailyGoal: DefaultDailyGoal,
		Theme:     ThemeDark,
	}
}

// Validate checks the settings values.
func (s Settings) Validate() error {
	if s.DailyGoal < MinDailyGoal || s.DailyGoal > MaxDailyGoal {
		return ErrInvalidArgument.WithDetails(fmt.Sprintf("daily goal must be between %d and %d", MinDailyGoal, MaxDailyGoal))
	}
	if s.Theme != ThemeDark && s.Theme != ThemeLight {
		return ErrInvalidArgument.WithDetails("theme must be dark or light")
	}
	if s.BackendURL != "" {
		u, err := url.Parse(s.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidArgument.WithDetails("backend url must be an absolute http(s) url")
		}
	}
	return nil
}

// SettingKeys lists the names accepted by Set, in display order.
var SettingKeys = []string{"daily_goal", "theme", "notifications", "backend_url"}

// Get returns a single setting rendered as a string.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "daily_goal":
		return strconv.Itoa(s.DailyGoal), nil
	case "theme":
		return s.Theme, nil
	case "notifications":
		return strconv.FormatBool(s.Notifications), nil
	case "backend_url":
		return s.BackendURL, nil
	}
	return "", ErrInvalidArgument.WithDetails("unknown setting: " + key)
}

// Set parses value into the named setting and validates the result.
func (s *Settings) Set(key, value string) error {
	next := *s
	value = strings.TrimSpace(value)
	switch key {
	case "daily_goal":
		n, err := strconv.Atoi(value)
		if err != nil {
			return ErrInvalidArgument.WithDetails("daily goal must be a number")
		}
		next.DailyGoal = n
	case "theme":
		next.Theme = strings.ToLower(value)
	case "notifications":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return ErrInvalidArgument.WithDetails("notifications must be true or false")
		}
		next.Notifications = b
	case "backend_url":
		next.BackendURL = strings.TrimRight(value, "/")
	default:
		return ErrInvalidArgument.WithDetails("unknown setting: " + key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*s = next
	return nil
}
