// Package navigation implements the session and screen state machine of
// recall-cli.
//
// The Controller gates screens on session validity. It starts in Loading,
// validates a stored session with exactly one backend call, and moves to
// Unauthenticated whenever the request engine reports an expired session.
// Screen data loads asynchronously; a result is applied only if the session
// and the screen's load generation are still the ones that started it.
package navigation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned for events the current state does not accept.
var ErrInvalidTransition = errors.New("invalid navigation transition")

// State is the top-level navigation state.
type State int

const (
	StateLoading State = iota
	StateUnauthenticated
	StateAuthenticated
	StateSettings
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateSettings:
		return "settings"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Screen identifies an authenticated screen.
type Screen int

const (
	ScreenPrimaryAction Screen = iota
	ScreenDashboard
	ScreenProblems
	ScreenStats
	ScreenPatterns
)

// Screens lists every screen in tab order.
var Screens = []Screen{ScreenPrimaryAction, ScreenDashboard, ScreenProblems, ScreenStats, ScreenPatterns}

func (s Screen) String() string {
	switch s {
	case ScreenPrimaryAction:
		return "analyze"
	case ScreenDashboard:
		return "dashboard"
	case ScreenProblems:
		return "problems"
	case ScreenStats:
		return "stats"
	case ScreenPatterns:
		return "patterns"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// Cached reports whether the screen keeps its first successful load.
// The dashboard reloads on every visit; the primary action loads nothing.
func (s Screen) Cached() bool {
	return s == ScreenProblems || s == ScreenStats || s == ScreenPatterns
}

// Loads reports whether entering the screen fetches data.
func (s Screen) Loads() bool {
	return s != ScreenPrimaryAction
}

// ParseScreen resolves a screen name or its tab shortcut ("1".."4").
func ParseScreen(name string) (Screen, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "analyze", "home":
		return ScreenPrimaryAction, nil
	case "dashboard", "1":
		return ScreenDashboard, nil
	case "problems", "2":
		return ScreenProblems, nil
	case "stats", "3":
		return ScreenStats, nil
	case "patterns", "patterns-detail", "4":
		return ScreenPatterns, nil
	}
	return 0, fmt.Errorf("unknown screen %q", name)
}

// Event names used in transition errors.
const (
	eventInit     = "init"
	eventLogin    = "login"
	eventLogout   = "logout"
	eventExpire   = "session_expired"
	eventNavigate = "navigate"
	eventSettings = "open_settings"
	eventBack     = "back"
	eventRetry    = "retry"
)

func invalid(event string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, s)
}
