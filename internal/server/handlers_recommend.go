package server

import (
	"context"
	"errors"
	"net/http"

	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
)

const (
	defaultTargetCount = 10
	maxTargetCount     = 50
)

// translatePipelineError maps pipeline failures onto stable HTTP statuses.
// Upstream flakiness that reaches this point is a 502; only missing
// authorization surfaces as a 4xx.
func (s *Server) translatePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotConnected):
		writeError(w, http.StatusForbidden, "spotify account not connected")
	case errors.Is(err, shared.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	case errors.Is(err, shared.ErrTokenRefreshFailed):
		writeError(w, http.StatusBadGateway, "spotify authorization could not be refreshed")
	default:
		s.logger.Error("pipeline failed", "error", err)
		writeError(w, http.StatusBadGateway, "recommendation service unavailable")
	}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var body struct {
		Context string `json:"context"`
		Count   int    `json:"count"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Context == "" {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}
	if body.Count <= 0 {
		body.Count = defaultTargetCount
	}
	if body.Count > maxTargetCount {
		body.Count = maxTargetCount
	}

	result, err := s.engine.Generate(r.Context(), user, body.Context, body.Count)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	if result.Fallback != nil {
		writeJSON(w, http.StatusOK, result.Fallback)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":      result.Tracks,
		"explanation": result.Explanation,
	})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var body struct {
		Context  string   `json:"context"`
		Current  []string `json:"current"`
		Feedback string   `json:"feedback"`
		Count    int      `json:"count"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Context == "" {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}
	if body.Feedback == "" {
		writeError(w, http.StatusBadRequest, "feedback is required")
		return
	}
	if body.Count <= 0 {
		body.Count = defaultTargetCount
	}
	if body.Count > maxTargetCount {
		body.Count = maxTargetCount
	}

	result, err := s.engine.Refine(r.Context(), user, body.Context, body.Current, body.Feedback, body.Count)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	if result.Fallback != nil {
		writeJSON(w, http.StatusOK, result.Fallback)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":      result.Tracks,
		"explanation": result.Explanation,
	})
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Tracks      []struct {
			ID  string `json:"id"`
			URI string `json:"uri"`
		} `json:"tracks"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(body.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "tracks are required")
		return
	}

	tracks := make([]spotify.Track, len(body.Tracks))
	for i, t := range body.Tracks {
		if t.URI == "" {
			writeError(w, http.StatusBadRequest, "every track needs a uri")
			return
		}
		tracks[i] = spotify.Track{ID: t.ID, URI: t.URI}
	}

	playlist, err := s.engine.Materialize(r.Context(), user, body.Name, body.Description, tracks)
	if err != nil {
		s.translatePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":   playlist.ID,
		"name": playlist.Name,
		"uri":  playlist.URI,
		"url":  playlist.ExternalURLs.Spotify,
	})
}
