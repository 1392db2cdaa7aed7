package models

import (
	"fmt"
	"strings"
)

// Theme is the user's appearance choice
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme accepts a theme name case-insensitively. An empty value selects ThemeSystem.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeSystem, "":
		return ThemeSystem, nil
	default:
		return "", fmt.Errorf("unknown theme: %q", s)
	}
}

// Preferences holds the user's persisted settings
type Preferences struct {
	Theme                Theme `json:"theme"`
	NotificationsEnabled bool  `json:"notifications_enabled"`
	ScanHistoryEnabled   bool  `json:"scan_history_enabled"`
}

// DefaultPreferences returns the settings used before the user changes anything.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                ThemeSystem,
		NotificationsEnabled: true,
		ScanHistoryEnabled:   true,
	}
}
