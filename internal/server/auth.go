package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"flowbeat/internal/models"
)

// TokenClaims are the API's JWT claims. TokenType distinguishes access
// tokens from refresh tokens and the Spotify connect state token.
type TokenClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// AuthTokens is an issued access/refresh token pair.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) signToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &TokenClaims{
		UserID:    user.ID(),
		Email:     user.Email(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *Server) issueTokens(user *models.User) (AuthTokens, error) {
	access, err := s.signToken(user, "access", s.accessTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	refresh, err := s.signToken(user, "refresh", s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}
	return AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// parseToken validates a signed token and checks its typ claim.
func (s *Server) parseToken(raw, wantType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TokenType != wantType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Registration is idempotent on email: an existing account just gets
	// a fresh token pair.
	user, err := s.users.GetByEmail(body.Email)
	if err != nil {
		user = models.NewUser(0, body.Email, body.Name)
		if err := user.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.users.Create(user); err != nil {
			s.logger.Error("failed to create user", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create account")
			return
		}
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    user.ID(),
			"email": user.Email(),
			"name":  user.Name(),
		},
		"tokens": tokens,
	})
}

func (s *Server) handleRefreshAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := s.parseToken(body.RefreshToken, "refresh")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := s.users.Get(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		s.logger.Error("failed to issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}
