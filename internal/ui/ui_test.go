package ui

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/bookclub/internal/prefs"
	"github.com/desertthunder/bookclub/internal/resource"
	"github.com/desertthunder/bookclub/internal/services"
	"github.com/desertthunder/bookclub/internal/shared"
)

type stubAPI struct {
	mu     sync.Mutex
	getErr error
	rows   map[string][]any
	writes []string
}

func newStubAPI() *stubAPI {
	return &stubAPI{rows: map[string][]any{
		"/books": {
			map[string]any{"id": "b1", "title": "Dune", "author": "Herbert", "status": "active", "rating": 4.5},
			map[string]any{"id": "b2", "title": "Emma", "author": "Austen", "status": "archived", "rating": nil},
		},
		"/users":     {map[string]any{"id": "u1", "name": "Ann", "status": "active"}},
		"/bookclubs": {},
		"/schedules": {},
	}}
}

func (s *stubAPI) Get(_ context.Context, path string, _ url.Values, _ bool) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.rows[path], nil
}

func (s *stubAPI) record(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, method+" "+path)
}

func (s *stubAPI) Post(_ context.Context, path string, _ any, _ bool) (any, error) {
	s.record("POST", path)
	return map[string]any{}, nil
}

func (s *stubAPI) Put(_ context.Context, path string, _ any, _ bool) (any, error) {
	s.record("PUT", path)
	return map[string]any{}, nil
}

func (s *stubAPI) Delete(_ context.Context, path string, _ bool) error {
	s.record("DELETE", path)
	return nil
}

func newTestModel(t *testing.T, api resource.API, p prefs.Prefs, path string) *Model {
	t.Helper()
	return NewModel(context.Background(), Options{
		API:       api,
		Prefs:     p,
		PrefsPath: path,
		Logger:    shared.NewLogger(io.Discard),
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msg to the model and returns the message produced by the resulting command.
func drive(m *Model, msg tea.Msg) tea.Msg {
	_, cmd := m.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestModel(t *testing.T) {
	t.Run("Restores Last Tab", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Prefs{LastTab: "users"}, "")
		if got := m.current().mgr.Kind().Name; got != "users" {
			t.Errorf("expected users tab, got %s", got)
		}
	})

	t.Run("Loads Into Table", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Default(), "")
		if !strings.Contains(m.View(), "Loading") {
			t.Errorf("expected loading view before first load")
		}

		m.Update(m.load(0)())

		p := m.current()
		if p.mgr.Status() != resource.Ready {
			t.Fatalf("expected ready, got %v", p.mgr.Status())
		}
		if got := len(p.table.Rows()); got != 2 {
			t.Errorf("expected 2 table rows, got %d", got)
		}
		view := m.View()
		if !strings.Contains(view, "Dune") {
			t.Errorf("expected table to show Dune, got %q", view)
		}
		if !strings.Contains(view, "Avg rating") || !strings.Contains(view, "4.50") {
			t.Errorf("expected average card, got %q", view)
		}
	})

	t.Run("Drops Stale Loads", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Default(), "")
		first := m.load(0)
		second := m.load(0)

		m.Update(first())
		if m.current().mgr.Status() != resource.Loading {
			t.Errorf("stale result should not settle the page")
		}
		m.Update(second())
		if m.current().mgr.Status() != resource.Ready {
			t.Errorf("expected ready after latest load")
		}
	})

	t.Run("Shows Error With Retry", func(t *testing.T) {
		api := newStubAPI()
		api.getErr = errors.New("boom")
		m := newTestModel(t, api, prefs.Default(), "")
		m.Update(m.load(0)())

		view := m.View()
		if !strings.Contains(view, "boom") || !strings.Contains(view, "retry") {
			t.Errorf("expected error with retry hint, got %q", view)
		}

		api.getErr = nil
		m.Update(drive(m, runes("r")))
		if m.current().mgr.Status() != resource.Ready {
			t.Errorf("expected retry to load, got %v", m.current().mgr.Status())
		}
	})

	t.Run("Hints Login When Unauthenticated", func(t *testing.T) {
		api := newStubAPI()
		api.getErr = shared.ErrNotAuthenticated
		m := newTestModel(t, api, prefs.Default(), "")
		m.Update(m.load(0)())

		if !strings.Contains(m.View(), "auth login") {
			t.Errorf("expected login hint, got %q", m.View())
		}
	})

	t.Run("Search Filters Rows", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Default(), "")
		m.Update(m.load(0)())

		m.Update(runes("/"))
		if !m.searching {
			t.Fatal("expected search mode")
		}
		for _, r := range "emma" {
			m.Update(runes(string(r)))
		}
		if got := len(m.current().table.Rows()); got != 1 {
			t.Errorf("expected 1 row after search, got %d", got)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.searching || len(m.current().table.Rows()) != 2 {
			t.Errorf("expected escape to clear the search")
		}
	})

	t.Run("Sort Keys Toggle Column", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Default(), "")
		m.Update(m.load(0)())

		m.Update(runes("1"))
		if got := m.current().mgr.View().Sort(); got.Key != "title" || got.Direction != resource.Ascending {
			t.Errorf("expected title ascending, got %+v", got)
		}
		m.Update(runes("1"))
		if got := m.current().mgr.View().Sort(); got.Direction != resource.Descending {
			t.Errorf("expected descending after second press, got %+v", got)
		}
		if first := m.current().table.Rows()[0][0]; first != "Emma" {
			t.Errorf("expected Emma first, got %s", first)
		}
	})

	t.Run("Add Submits And Reloads", func(t *testing.T) {
		api := newStubAPI()
		m := newTestModel(t, api, prefs.Default(), "")
		m.Update(m.load(0)())

		m.Update(runes("a"))
		if m.current().mgr.Controller().State() != resource.AddOpen || m.form == nil {
			t.Fatal("expected add form")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.current().mgr.Controller().FieldErrors()["title"] == "" {
			t.Errorf("expected validation error for empty title")
		}

		for _, r := range "Ubik" {
			m.Update(runes(string(r)))
		}
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		for _, r := range "Dick" {
			m.Update(runes(string(r)))
		}

		reload := drive(m, drive(m, tea.KeyMsg{Type: tea.KeyEnter}))
		if len(api.writes) != 1 || api.writes[0] != "POST /books" {
			t.Errorf("expected POST /books, got %v", api.writes)
		}
		if m.form != nil || m.current().mgr.Controller().State() != resource.Closed {
			t.Errorf("expected form closed after save")
		}
		if reload == nil {
			t.Fatal("expected reload after save")
		}
		m.Update(reload)
		if m.current().mgr.Status() != resource.Ready {
			t.Errorf("expected ready after reload")
		}
	})

	t.Run("Failed Save Keeps Form Open", func(t *testing.T) {
		api := newStubAPI()
		m := newTestModel(t, api, prefs.Default(), "")
		m.Update(m.load(0)())

		m.Update(runes("a"))
		for _, r := range "Ubik" {
			m.Update(runes(string(r)))
		}
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		for _, r := range "Dick" {
			m.Update(runes(string(r)))
		}
		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
			t.Fatal("expected save command")
		}
		if !m.saving {
			t.Error("expected saving while the request is in flight")
		}

		_, cmd := m.Update(mutatedMsg(0, &services.APIError{
			StatusCode: 409,
			Method:     "POST",
			Path:       "/books",
			Message:    "Title already exists",
		}))
		if cmd != nil {
			t.Error("expected no reload after a failed save")
		}

		ctrl := m.current().mgr.Controller()
		if m.saving {
			t.Error("expected saving cleared")
		}
		if m.form == nil || ctrl.State() != resource.AddOpen {
			t.Fatalf("expected add form to stay open, got %v", ctrl.State())
		}
		draft := ctrl.Draft()
		if draft["title"] != "Ubik" || draft["author"] != "Dick" {
			t.Errorf("expected draft kept, got %v", draft)
		}
		if ctrl.Err() != "Title already exists" {
			t.Errorf("expected server message, got %q", ctrl.Err())
		}
		if !strings.Contains(m.View(), "Title already exists") {
			t.Errorf("expected error in form view")
		}
	})

	t.Run("Delete Confirms", func(t *testing.T) {
		api := newStubAPI()
		m := newTestModel(t, api, prefs.Default(), "")
		m.Update(m.load(0)())

		m.Update(runes("d"))
		if m.current().mgr.Controller().State() != resource.ConfirmDeleteOpen {
			t.Fatal("expected delete confirmation")
		}
		if !strings.Contains(m.View(), "Dune") {
			t.Errorf("expected confirmation to name the row")
		}

		m.Update(runes("n"))
		if m.current().mgr.Controller().State() != resource.Closed {
			t.Errorf("expected n to cancel")
		}

		m.Update(runes("d"))
		drive(m, drive(m, runes("y")))
		if len(api.writes) != 1 || api.writes[0] != "DELETE /books/b1" {
			t.Errorf("expected DELETE /books/b1, got %v", api.writes)
		}
	})

	t.Run("Switching Tabs Loads Once", func(t *testing.T) {
		m := newTestModel(t, newStubAPI(), prefs.Default(), "")
		m.Update(m.load(0)())

		msg := drive(m, tea.KeyMsg{Type: tea.KeyTab})
		if msg == nil {
			t.Fatal("expected load for idle tab")
		}
		m.Update(msg)
		if m.current().mgr.Kind().Name != "users" || m.current().mgr.Status() != resource.Ready {
			t.Errorf("expected users tab ready")
		}

		m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab}); cmd != nil {
			t.Errorf("expected no reload for a ready tab")
		}
	})

	t.Run("Quit Saves Prefs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prefs.toml")
		m := newTestModel(t, newStubAPI(), prefs.Default(), path)
		m.Update(m.load(0)())

		m.Update(runes("t"))
		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}

		saved := prefs.Load(path)
		if saved.Theme != m.palette.Name() || saved.Theme == prefs.DefaultTheme {
			t.Errorf("expected cycled theme saved, got %q", saved.Theme)
		}
		if saved.LastTab != "users" {
			t.Errorf("expected users tab saved, got %q", saved.LastTab)
		}
		if m.ctx.Err() == nil {
			t.Errorf("expected context cancelled on quit")
		}
	})
}
