package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/bookclub/internal/session"
	"github.com/desertthunder/bookclub/internal/shared"
)

var _ session.Store = (*SessionRepository)(nil)

// SessionRepository implements [session.Store] over the session_values table.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Get returns the value stored under key.
func (r *SessionRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM session_values WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session value: %w", err)
	}
	return value, true, nil
}

// Set upserts key. The last write wins.
func (r *SessionRepository) Set(key, value string) error {
	query := `
		INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, r.now()); err != nil {
		return fmt.Errorf("failed to save session value: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *SessionRepository) Delete(key string) error {
	if _, err := r.db.Exec(`DELETE FROM session_values WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// SessionEvent is one row of the login/logout history.
type SessionEvent struct {
	ID        string
	Kind      string
	Subject   string
	CreatedAt time.Time
}

// RecordEvent appends a history entry.
func (r *SessionRepository) RecordEvent(kind, subject string) error {
	query := `INSERT INTO session_events (id, kind, subject, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, shared.GenerateID(), kind, subject, r.now()); err != nil {
		return fmt.Errorf("failed to record session event: %w", err)
	}
	return nil
}

// Events returns the most recent history entries, newest first.
func (r *SessionRepository) Events(limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, kind, subject, created_at
		FROM session_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.Subject, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

// Recorder returns a subscriber that writes every session change to the history table.
// Recording failures are passed to onErr; they never block the session change itself.
func (r *SessionRepository) Recorder(onErr func(error)) func(session.Event) {
	return func(e session.Event) {
		subject := ""
		if e.User != nil {
			for _, k := range []string{"username", "email", "name", "id"} {
				if v, ok := e.User[k].(string); ok && v != "" {
					subject = v
					break
				}
			}
		}
		if err := r.RecordEvent(e.Kind.String(), subject); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
