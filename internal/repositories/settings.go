package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flowbeat/internal/models"
)

// SettingsRepository persists per-user settings documents.
//
// Settings are an upsert-only JSON document keyed by user id, so this does not
// implement the generic [models.Repository] interface.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new [SettingsRepository] with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a user's settings document. A user without stored settings
// gets an empty document rather than an error.
func (r *SettingsRepository) Get(userID string) (*models.Settings, error) {
	query := `SELECT user_id, document, updated_at FROM settings WHERE user_id = ?`

	var (
		uid       string
		document  string
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, userID).Scan(&uid, &document, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.Settings{UserID: userID, Document: json.RawMessage("{}")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	return &models.Settings{
		UserID:    uid,
		Document:  json.RawMessage(document),
		UpdatedAt: updatedAt,
	}, nil
}

// Put stores a user's settings document, replacing any existing one.
func (r *SettingsRepository) Put(userID string, document json.RawMessage) error {
	if len(document) == 0 {
		document = json.RawMessage("{}")
	}
	if !json.Valid(document) {
		return fmt.Errorf("settings document must be valid JSON")
	}

	query := `
		INSERT INTO settings (user_id, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, userID, string(document), time.Now()); err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}

	return nil
}
