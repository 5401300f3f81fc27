package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"flowbeat/internal/spotify"
)

const (
	connectStateTTL   = 10 * time.Minute
	topTracksCacheTTL = 5 * time.Minute
)

// handleSpotifyConnect returns the authorization URL the client should open.
// The state parameter is a short-lived signed token naming the user, so the
// callback can bind the authorization code to an account without a session.
func (s *Server) handleSpotifyConnect(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	state, err := s.signToken(user, "oauth", connectStateTTL)
	if err != nil {
		s.logger.Error("failed to sign connect state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": s.authenticator.AuthURL(state)})
}

func (s *Server) handleSpotifyCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		writeError(w, http.StatusBadRequest, "authorization declined: "+errParam)
		return
	}

	claims, err := s.parseToken(query.Get("state"), "oauth")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	tokens, err := s.authenticator.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("token exchange failed", "user", claims.UserID, "error", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	if err := s.users.UpdateSpotifyTokens(claims.UserID, tokens); err != nil {
		s.logger.Error("failed to persist tokens", "user", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save authorization")
		return
	}

	s.logger.Info("spotify account connected", "user", claims.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"connected": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	token, err := s.tokens.ValidToken(r.Context(), user)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	tracks, err := s.catalog.SearchTracks(r.Context(), token, query, limit)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// handlePlaybackState reports what the user's player is doing right now.
// An idle player reports is_playing false with no device or item.
func (s *Server) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	token, err := s.tokens.ValidToken(r.Context(), user)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	state, err := s.catalog.Playback(r.Context(), token)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handlePlaybackControl forwards a player command: play, pause, next,
// previous, seek, or volume. Position carries milliseconds for seek and a
// percent for volume.
func (s *Server) handlePlaybackControl(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var req struct {
		Action    string   `json:"action"`
		TrackURIs []string `json:"trackUris"`
		DeviceID  string   `json:"deviceId"`
		Position  int      `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.tokens.ValidToken(r.Context(), user)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	cmd := spotify.PlaybackCommand{
		Action:    req.Action,
		TrackURIs: req.TrackURIs,
		DeviceID:  req.DeviceID,
		Position:  req.Position,
	}
	if err := s.catalog.ControlPlayback(r.Context(), token, cmd); err != nil {
		s.translatePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTopTracks serves the user's most-played tracks, cached briefly so
// repeated dashboard loads skip the upstream call. The pipeline itself never
// reads this cache.
func (s *Server) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	cacheKey := "top-tracks:" + user.ID()

	if s.cache != nil {
		cached, err := s.cache.Get(r.Context(), cacheKey).Bytes()
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("top tracks cache read failed", "error", err)
		}
	}

	token, err := s.tokens.ValidToken(r.Context(), user)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	result, err := s.catalog.TopTracks(r.Context(), token, 20)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	payload, err := json.Marshal(map[string]any{"tracks": result.Items, "total": result.Total})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode tracks")
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cacheKey, payload, topTracksCacheTTL).Err(); err != nil {
			s.logger.Warn("top tracks cache write failed", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
