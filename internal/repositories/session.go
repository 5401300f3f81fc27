package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flowbeat/internal/models"
	"flowbeat/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.FlowSession] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, sequence, user_id, started_at, ended_at, focus, playlist_id, metrics,
		created_at, updated_at, deleted_at`

// Create inserts a new session into the database with generated ID and sequence
func (r *SessionRepository) Create(session *models.FlowSession) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sessions (id, sequence, user_id, started_at, ended_at, focus, playlist_id, metrics, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var endedAt any
	if session.EndedAt() != nil {
		endedAt = *session.EndedAt()
	}

	_, err = r.db.Exec(query, id, sequence, session.UserID(), session.StartedAt(), endedAt,
		session.Focus(), session.PlaylistID(), string(session.Metrics()),
		session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.FlowSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.FlowSession, error) {
	var (
		id         string
		sequence   int
		userID     string
		startedAt  time.Time
		endedAt    sql.NullTime
		focus      string
		playlistID string
		metrics    string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &startedAt, &endedAt, &focus, &playlistID, &metrics,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	session := models.NewFlowSession(sequence, userID, focus)
	session.SetID(id)
	session.SetStartedAt(startedAt)
	if endedAt.Valid {
		session.SetEndedAt(&endedAt.Time)
	}
	session.SetPlaylistID(playlistID)
	session.SetMetrics(json.RawMessage(metrics))
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.FlowSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	var endedAt any
	if session.EndedAt() != nil {
		endedAt = *session.EndedAt()
	}

	query := `
		UPDATE sessions
		SET ended_at = ?, focus = ?, playlist_id = ?, metrics = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, endedAt, session.Focus(), session.PlaylistID(),
		string(session.Metrics()), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already deleted: %s", session.ID())
	}

	return nil
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: "user_id" (string), "limit" (int).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.FlowSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`

	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY started_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.FlowSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}
