// Package theme tracks the presentation theme and reports changes to it.
//
// Rendered surfaces re-render when the theme changes, so bindings
// subscribe to Service.OnChange as one of their inbound streams.
package theme

import (
	"errors"
	"sort"
	"sync"

	"github.com/dshills/richview/internal/notify"
)

// ErrUnknownTheme is returned when selecting a theme that is not registered.
var ErrUnknownTheme = errors.New("unknown theme")

// Theme describes how rendered content is presented.
type Theme struct {
	// Name is the registry key, e.g. "dark".
	Name string

	// Dark is true for light-on-dark themes.
	Dark bool

	// Foreground and Background are "#rrggbb" colors.
	Foreground string
	Background string

	// Accent colors headings and links.
	Accent string

	// GlamourStyle names the glamour standard style used for terminal previews.
	GlamourStyle string
}

// Built-in themes.
var (
	Dark = Theme{
		Name:         "dark",
		Dark:         true,
		Foreground:   "#d4d4d4",
		Background:   "#1e1e1e",
		Accent:       "#569cd6",
		GlamourStyle: "dark",
	}
	Light = Theme{
		Name:         "light",
		Foreground:   "#1e1e1e",
		Background:   "#ffffff",
		Accent:       "#0451a5",
		GlamourStyle: "light",
	}
	HighContrast = Theme{
		Name:         "high-contrast",
		Dark:         true,
		Foreground:   "#ffffff",
		Background:   "#000000",
		Accent:       "#ffff00",
		GlamourStyle: "notty",
	}
)

// Service holds the registered themes and the current selection.
// It is safe for concurrent use.
type Service struct {
	mu      sync.RWMutex
	themes  map[string]Theme
	current Theme
	changes *notify.Notifier[Theme]
}

// NewService creates a service with the built-in themes, starting with Dark.
func NewService() *Service {
	s := &Service{
		themes:  make(map[string]Theme),
		current: Dark,
		changes: notify.New[Theme](),
	}
	for _, t := range []Theme{Dark, Light, HighContrast} {
		s.themes[t.Name] = t
	}
	return s
}

// Register adds or replaces a theme.
func (s *Service) Register(t Theme) {
	s.mu.Lock()
	s.themes[t.Name] = t
	s.mu.Unlock()
}

// Get returns a theme by name.
func (s *Service) Get(name string) (Theme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.themes[name]
	return t, ok
}

// Current returns the selected theme.
func (s *Service) Current() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set selects a theme by name and notifies observers when it changed.
func (s *Service) Set(name string) error {
	s.mu.Lock()
	t, ok := s.themes[name]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownTheme
	}
	if t == s.current {
		s.mu.Unlock()
		return nil
	}
	s.current = t
	s.mu.Unlock()

	s.changes.Notify(t)
	return nil
}

// OnChange registers fn for theme changes.
func (s *Service) OnChange(fn func(Theme)) notify.Subscription {
	return s.changes.Subscribe(fn)
}

// Names returns all registered theme names in sorted order.
func (s *Service) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.themes))
	for name := range s.themes {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}
