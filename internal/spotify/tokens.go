package spotify

import (
	"context"
	"fmt"
	"time"

	"flowbeat/internal/models"
	"flowbeat/internal/shared"
	"github.com/charmbracelet/log"
)

// TokenStore persists refreshed token state back onto the owning user record.
type TokenStore interface {
	UpdateSpotifyTokens(id string, tokens models.TokenState) error
}

// Refresher exchanges a refresh token for a new token state.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenState, error)
}

// TokenManager mediates access-token reads for external calls.
//
// It refreshes synchronously when the stored token has expired and persists
// the result through the store's single token write path. No mutual exclusion
// is applied: two concurrent requests that both observe an expired token will
// both refresh, and the last write wins. The provider tolerates redundant
// refreshes, so this is accepted.
type TokenManager struct {
	store     TokenStore
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time
}

// NewTokenManager creates a TokenManager backed by the given store and refresher.
func NewTokenManager(store TokenStore, refresher Refresher, logger *log.Logger) *TokenManager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenManager{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// ValidToken returns an access token usable for catalog calls on behalf of user.
//
// Returns [shared.ErrNotConnected] when the user has no stored refresh token,
// and [shared.ErrTokenRefreshFailed] when the exchange fails; the caller
// decides whether that aborts the request. On a successful refresh the user's
// in-memory record and the persisted row are both updated.
func (m *TokenManager) ValidToken(ctx context.Context, user *models.User) (string, error) {
	tokens := user.Tokens()

	if !tokens.Connected() {
		return "", fmt.Errorf("%w: user %s", shared.ErrNotConnected, user.ID())
	}

	if !tokens.Expired(m.now()) {
		return tokens.AccessToken, nil
	}

	m.logger.Debug("access token expired, refreshing", "user", user.ID())

	refreshed, err := m.refresher.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return "", err
	}

	user.SetTokens(refreshed)
	if err := m.store.UpdateSpotifyTokens(user.ID(), refreshed); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	return refreshed.AccessToken, nil
}
