package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/bookclub/internal/session"
	"github.com/desertthunder/bookclub/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSessionRepository(t *testing.T) {
	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		value, ok, err := repo.Get(session.KeyToken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected missing key, got %q", value)
		}
	})

	t.Run("Set Then Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		if err := repo.Set(session.KeyToken, "abc"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		value, ok, err := repo.Get(session.KeyToken)
		if err != nil || !ok {
			t.Fatalf("expected stored value, got ok=%v err=%v", ok, err)
		}
		if value != "abc" {
			t.Errorf("expected abc, got %s", value)
		}
	})

	t.Run("Last Write Wins", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		_ = repo.Set(session.KeyToken, "first")
		_ = repo.Set(session.KeyToken, "second")

		value, _, _ := repo.Get(session.KeyToken)
		if value != "second" {
			t.Errorf("expected second, got %s", value)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM session_values").Scan(&count); err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected a single row, got %d", count)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		_ = repo.Set(session.KeyUser, "{}")
		if err := repo.Delete(session.KeyUser); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, ok, _ := repo.Get(session.KeyUser); ok {
			t.Error("expected key to be gone")
		}
		if err := repo.Delete(session.KeyUser); err != nil {
			t.Errorf("deleting absent key should succeed, got %v", err)
		}
	})

	t.Run("Backs Session Service", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		svc := session.NewService(repo)
		if err := svc.Update("tok", map[string]any{"id": "u1", "username": "ada"}); err != nil {
			t.Fatalf("update failed: %v", err)
		}

		reopened := session.NewService(NewSessionRepository(db))
		user, err := reopened.User()
		if err != nil {
			t.Fatalf("failed to read user: %v", err)
		}
		if user["username"] != "ada" {
			t.Errorf("expected persisted user, got %v", user)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewSessionRepository(db)
		if _, _, err := repo.Get(session.KeyToken); err == nil {
			t.Error("expected error on closed database")
		}
		if err := repo.Set(session.KeyToken, "x"); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestSessionEvents(t *testing.T) {
	t.Run("Recorder Writes History", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		svc := session.NewService(repo)
		var recErr error
		svc.Subscribe(repo.Recorder(func(err error) { recErr = err }))

		_ = svc.Update("tok", map[string]any{"username": "ada"})
		_ = svc.Clear()

		if recErr != nil {
			t.Fatalf("unexpected record error: %v", recErr)
		}

		events, err := repo.Events(10)
		if err != nil {
			t.Fatalf("failed to list events: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Kind != "logout" || events[1].Kind != "login" {
			t.Errorf("expected newest first, got %s then %s", events[0].Kind, events[1].Kind)
		}
		if events[1].Subject != "ada" {
			t.Errorf("expected subject ada, got %q", events[1].Subject)
		}
	})
}
