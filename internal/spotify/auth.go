package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flowbeat/internal/models"
	"flowbeat/internal/shared"
	"golang.org/x/oauth2"
)

// refreshTimeout bounds the token-exchange call, shorter than catalog calls
// because a slow refresh stalls the whole pipeline.
const refreshTimeout = 5 * time.Second

// Authenticator handles the OAuth authorization-code flow and refresh-token exchange.
type Authenticator struct {
	config     *oauth2.Config
	tokenURL   string
	httpClient *http.Client
}

// NewAuthenticator creates an Authenticator for the given client credentials.
func NewAuthenticator(clientID, clientSecret, redirectURI string) (*Authenticator, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3001/api/spotify/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-top-read",
			"playlist-read-private",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &Authenticator{
		config:     config,
		tokenURL:   tokenURL,
		httpClient: http.DefaultClient,
	}, nil
}

// AuthURL returns the authorization URL for user login.
// The state token should identify the connecting user and be verified on callback.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a fresh token state.
func (a *Authenticator) Exchange(ctx context.Context, code string) (models.TokenState, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return models.TokenState{}, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}

	return models.TokenState{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// Refresh performs the refresh-token grant against the token-exchange endpoint.
//
// The provider may rotate the refresh token; when it does not, the previous
// one is carried forward.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (models.TokenState, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.TokenState{}, fmt.Errorf("failed to create refresh request: %w", err)
	}

	req.SetBasicAuth(a.config.ClientID, a.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.TokenState{}, fmt.Errorf("%w: %v", shared.ErrTokenRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.TokenState{}, fmt.Errorf("%w: status %d", shared.ErrTokenRefreshFailed, resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.TokenState{}, fmt.Errorf("%w: decode: %v", shared.ErrTokenRefreshFailed, err)
	}

	state := models.TokenState{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}
	if state.RefreshToken == "" {
		state.RefreshToken = refreshToken
	}

	return state, nil
}
