package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// activePointer is the session row name for the "most recently active
// project" pointer. A single-row table rather than a column per concern, so
// future durable client state can reuse the table.
const activePointer = "active_project"

// SessionRepository persists the durable session pointer.
//
// Implements the store's SessionStore interface.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Active returns the active project id, and whether one is set.
func (r *SessionRepository) Active() (string, bool, error) {
	query := `SELECT project_id FROM sessions WHERE name = ?`

	var projectID string
	err := r.db.QueryRow(query, activePointer).Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session: %w", err)
	}

	return projectID, true, nil
}

// SetActive stores the given project id as the active pointer.
func (r *SessionRepository) SetActive(projectID string) error {
	if projectID == "" {
		return fmt.Errorf("project id is empty")
	}

	query := `
		INSERT INTO sessions (name, project_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET project_id = excluded.project_id, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, activePointer, projectID, time.Now()); err != nil {
		return fmt.Errorf("failed to store session pointer: %w", err)
	}

	return nil
}

// Clear removes the active pointer. Clearing an absent pointer is a no-op.
func (r *SessionRepository) Clear() error {
	query := `DELETE FROM sessions WHERE name = ?`

	if _, err := r.db.Exec(query, activePointer); err != nil {
		return fmt.Errorf("failed to clear session pointer: %w", err)
	}

	return nil
}
