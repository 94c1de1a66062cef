package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrefs(t *testing.T) {
	t.Run("Missing File Uses Defaults", func(t *testing.T) {
		p := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if p != Default() {
			t.Errorf("expected defaults, got %+v", p)
		}
	})

	t.Run("Save And Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "prefs.toml")
		want := Prefs{Theme: "mono", LastTab: "schedules"}

		if err := Save(path, want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if got := Load(path); got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("Partial File Keeps Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")
		if err := os.WriteFile(path, []byte("last_tab = \"users\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		p := Load(path)
		if p.LastTab != "users" || p.Theme != DefaultTheme {
			t.Errorf("unexpected prefs %+v", p)
		}
	})

	t.Run("Malformed File Uses Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")
		if err := os.WriteFile(path, []byte("theme = [unterminated"), 0o644); err != nil {
			t.Fatal(err)
		}
		if p := Load(path); p != Default() {
			t.Errorf("expected defaults, got %+v", p)
		}
	})

	t.Run("Default Path", func(t *testing.T) {
		if DefaultPath() != "~/.config/bookclub/prefs.toml" {
			t.Errorf("unexpected default path %s", DefaultPath())
		}
	})
}
