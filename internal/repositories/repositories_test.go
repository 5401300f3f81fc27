package repositories

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"flowbeat/internal/models"
	"flowbeat/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		err := repo.Create(user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}

		if retrieved.Email() != user.Email() {
			t.Errorf("expected email %s, got %s", user.Email(), retrieved.Email())
		}

		if retrieved.Tokens().Connected() {
			t.Error("new user should not be connected to spotify")
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.GetByEmail("test@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		retrieved.SetPhoneNumber("+15551234567")
		if err := repo.Update(retrieved); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		updated, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get updated user: %v", err)
		}
		if updated.PhoneNumber() != "+15551234567" {
			t.Errorf("expected phone +15551234567, got %s", updated.PhoneNumber())
		}
	})

	t.Run("UpdateSpotifyTokens", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		tokens := models.TokenState{
			AccessToken:  "access123",
			RefreshToken: "refresh456",
			Expiry:       expiry,
		}

		if err := repo.UpdateSpotifyTokens(user.ID(), tokens); err != nil {
			t.Fatalf("failed to update tokens: %v", err)
		}

		retrieved, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		got := retrieved.Tokens()
		if got.AccessToken != "access123" {
			t.Errorf("expected access token access123, got %s", got.AccessToken)
		}
		if got.RefreshToken != "refresh456" {
			t.Errorf("expected refresh token refresh456, got %s", got.RefreshToken)
		}
		if !got.Connected() {
			t.Error("user with refresh token should be connected")
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}

		if err := repo.UpdateSpotifyTokens("missing-id", tokens); err == nil {
			t.Error("expected error for unknown user")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		_, err := repo.Get(user.ID())
		if err == nil {
			t.Error("expected error when getting deleted user")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)

		users := []*models.User{
			models.NewUser(0, "user1@example.com", "User One"),
			models.NewUser(0, "user2@example.com", "User Two"),
			models.NewUser(0, "user3@example.com", "User Three"),
		}

		for _, user := range users {
			if err := repo.Create(user); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		retrieved, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}

		if len(retrieved) != 3 {
			t.Errorf("expected 3 users, got %d", len(retrieved))
		}

		filtered, err := repo.List(map[string]any{"email": "user2@example.com"})
		if err != nil {
			t.Fatalf("failed to list filtered users: %v", err)
		}

		if len(filtered) != 1 {
			t.Errorf("expected 1 user, got %d", len(filtered))
		}

		if len(filtered) > 0 && filtered[0].Email() != "user2@example.com" {
			t.Errorf("expected user2@example.com, got %s", filtered[0].Email())
		}
	})
}

func TestSessionRepository(t *testing.T) {
	newTestUser := func(t *testing.T, db *sql.DB) *models.User {
		t.Helper()
		repo := NewUserRepository(db)
		user := models.NewUser(0, "test@example.com", "Test User")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		return user
	}

	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := newTestUser(t, db)
		repo := NewSessionRepository(db)
		session := models.NewFlowSession(0, user.ID(), "deep-work")

		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		retrieved, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}

		if retrieved.UserID() != user.ID() {
			t.Errorf("expected user ID %s, got %s", user.ID(), retrieved.UserID())
		}

		if retrieved.Focus() != "deep-work" {
			t.Errorf("expected focus 'deep-work', got %s", retrieved.Focus())
		}

		if retrieved.EndedAt() != nil {
			t.Error("new session should not have an end time")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := newTestUser(t, db)
		repo := NewSessionRepository(db)
		session := models.NewFlowSession(0, user.ID(), "creative")

		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		ended := session.StartedAt().Add(25 * time.Minute)
		session.SetEndedAt(&ended)
		session.SetPlaylistID("playlist123")
		session.SetMetrics(json.RawMessage(`{"tabSwitches": 4}`))

		if err := repo.Update(session); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}

		retrieved, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}

		if retrieved.EndedAt() == nil {
			t.Fatal("expected session end time to be set")
		}
		if retrieved.PlaylistID() != "playlist123" {
			t.Errorf("expected playlist ID playlist123, got %s", retrieved.PlaylistID())
		}

		var metrics map[string]any
		if err := json.Unmarshal(retrieved.Metrics(), &metrics); err != nil {
			t.Fatalf("metrics should be valid JSON: %v", err)
		}
		if metrics["tabSwitches"] != float64(4) {
			t.Errorf("expected tabSwitches 4, got %v", metrics["tabSwitches"])
		}
	})

	t.Run("List By User", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := newTestUser(t, db)
		repo := NewSessionRepository(db)

		for i := 0; i < 3; i++ {
			session := models.NewFlowSession(0, user.ID(), "deep-work")
			session.SetStartedAt(time.Now().Add(time.Duration(-i) * time.Hour))
			if err := repo.Create(session); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		sessions, err := repo.List(map[string]any{"user_id": user.ID()})
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}

		if len(sessions) != 3 {
			t.Errorf("expected 3 sessions, got %d", len(sessions))
		}

		limited, err := repo.List(map[string]any{"user_id": user.ID(), "limit": 2})
		if err != nil {
			t.Fatalf("failed to list limited sessions: %v", err)
		}

		if len(limited) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(limited))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		user := newTestUser(t, db)
		repo := NewSessionRepository(db)
		session := models.NewFlowSession(0, user.ID(), "relaxation")

		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.Delete(session.ID()); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}

		if _, err := repo.Get(session.ID()); err == nil {
			t.Error("expected error when getting deleted session")
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	userRepo := NewUserRepository(db)
	user := models.NewUser(0, "test@example.com", "Test User")
	if err := userRepo.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	repo := NewSettingsRepository(db)

	t.Run("Get Without Stored Settings", func(t *testing.T) {
		settings, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}

		if string(settings.Document) != "{}" {
			t.Errorf("expected empty document, got %s", settings.Document)
		}
	})

	t.Run("Put And Get", func(t *testing.T) {
		doc := json.RawMessage(`{"theme": "dark", "defaultFocus": "deep-work"}`)

		if err := repo.Put(user.ID(), doc); err != nil {
			t.Fatalf("failed to store settings: %v", err)
		}

		settings, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}

		var parsed map[string]any
		if err := json.Unmarshal(settings.Document, &parsed); err != nil {
			t.Fatalf("stored document should be valid JSON: %v", err)
		}
		if parsed["theme"] != "dark" {
			t.Errorf("expected theme dark, got %v", parsed["theme"])
		}
	})

	t.Run("Put Replaces Existing", func(t *testing.T) {
		if err := repo.Put(user.ID(), json.RawMessage(`{"theme": "light"}`)); err != nil {
			t.Fatalf("failed to replace settings: %v", err)
		}

		settings, err := repo.Get(user.ID())
		if err != nil {
			t.Fatalf("failed to get settings: %v", err)
		}

		var parsed map[string]any
		if err := json.Unmarshal(settings.Document, &parsed); err != nil {
			t.Fatalf("stored document should be valid JSON: %v", err)
		}
		if parsed["theme"] != "light" {
			t.Errorf("expected theme light, got %v", parsed["theme"])
		}
		if _, ok := parsed["defaultFocus"]; ok {
			t.Error("replaced document should not retain old keys")
		}
	})

	t.Run("Put Rejects Invalid JSON", func(t *testing.T) {
		if err := repo.Put(user.ID(), json.RawMessage(`{"broken"`)); err == nil {
			t.Error("expected error for invalid JSON document")
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seq1, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}

	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	// Get second sequence
	seq2, err := NextSequence(db, "users")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}

	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	sessionSeq, err := NextSequence(db, "sessions")
	if err != nil {
		t.Fatalf("failed to get session sequence: %v", err)
	}

	if sessionSeq != 1 {
		t.Errorf("expected first session sequence to be 1, got %d", sessionSeq)
	}
}
