package store

import (
	"context"
	"sync"

	"github.com/franckalain/eatsmarty/internal/models"
)

// SettingsKey is the document key of the preferences
const SettingsKey = "eatsmarty-settings"

// SettingsStore holds the user's preferences
type SettingsStore struct {
	mu        sync.Mutex
	persister Persister
	prefs     models.Preferences
	subs      subscribers[models.Preferences]
}

// NewSettingsStore creates a store with default preferences backed by p
func NewSettingsStore(p Persister) *SettingsStore {
	return &SettingsStore{
		persister: p,
		prefs:     models.DefaultPreferences(),
	}
}

// Load reads the persisted preferences. Fields missing from the document keep
// their defaults; an unknown theme falls back to the system theme.
func (s *SettingsStore) Load(ctx context.Context) error {
	prefs := models.DefaultPreferences()
	found, err := loadJSON(ctx, s.persister, SettingsKey, &prefs)
	if err != nil || !found {
		return err
	}
	if theme, err := models.ParseTheme(string(prefs.Theme)); err == nil {
		prefs.Theme = theme
	} else {
		prefs.Theme = models.ThemeSystem
	}

	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()
	return nil
}

// Get returns the current preferences
func (s *SettingsStore) Get() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// ScanHistoryEnabled reports whether resolved products go into the recent list
func (s *SettingsStore) ScanHistoryEnabled() bool {
	return s.Get().ScanHistoryEnabled
}

// SetTheme changes the theme
func (s *SettingsStore) SetTheme(ctx context.Context, theme models.Theme) error {
	return s.Update(ctx, func(p *models.Preferences) {
		p.Theme = theme
	})
}

// SetNotificationsEnabled toggles notifications
func (s *SettingsStore) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return s.Update(ctx, func(p *models.Preferences) {
		p.NotificationsEnabled = enabled
	})
}

// SetScanHistoryEnabled toggles scan history recording
func (s *SettingsStore) SetScanHistoryEnabled(ctx context.Context, enabled bool) error {
	return s.Update(ctx, func(p *models.Preferences) {
		p.ScanHistoryEnabled = enabled
	})
}

// Update applies fn to a copy of the preferences, validates and saves the
// result, then notifies subscribers.
func (s *SettingsStore) Update(ctx context.Context, fn func(*models.Preferences)) error {
	s.mu.Lock()
	next := s.prefs
	fn(&next)
	theme, err := models.ParseTheme(string(next.Theme))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next.Theme = theme

	if err := saveJSON(ctx, s.persister, SettingsKey, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.prefs = next
	s.mu.Unlock()

	s.subs.notify(next)
	return nil
}

// Subscribe registers fn to receive the preferences after every successful
// update. The returned func unsubscribes.
func (s *SettingsStore) Subscribe(fn func(models.Preferences)) func() {
	return s.subs.add(fn)
}
