// Package prefs handles TUI preferences persistence.
// Preferences are stored in ~/.config/bookclub/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/bookclub/internal/shared"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for the admin TUI.
type Prefs struct {
	Theme   string `toml:"theme"`
	LastTab string `toml:"last_tab"`
}

const (
	defaultPrefsPath = "~/.config/bookclub/prefs.toml"
	DefaultTheme     = "violet"
	defaultTab       = "books"
)

// Default returns the preferences used when none are saved.
func Default() Prefs {
	return Prefs{Theme: DefaultTheme, LastTab: defaultTab}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path, falling back to defaults when the file is missing or unreadable.
// Missing fields keep their defaults.
func Load(path string) Prefs {
	p := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return p
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			shared.NewLogger(nil).Debug("unreadable prefs, using defaults", "path", resolved, "error", err)
		}
		return p
	}

	if err := toml.Unmarshal(data, &p); err != nil {
		return Default()
	}

	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = DefaultTheme
	}
	if strings.TrimSpace(p.LastTab) == "" {
		p.LastTab = defaultTab
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return shared.ExpandPath(path)
}
