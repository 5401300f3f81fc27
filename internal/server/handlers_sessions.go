package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"flowbeat/internal/models"
)

type sessionResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	StartedAt  time.Time       `json:"startedAt"`
	EndedAt    *time.Time      `json:"endedAt,omitempty"`
	Focus      string          `json:"focus"`
	PlaylistID string          `json:"playlistId,omitempty"`
	Metrics    json.RawMessage `json:"metrics"`
}

func sessionToResponse(session *models.FlowSession) sessionResponse {
	return sessionResponse{
		ID:         session.ID(),
		UserID:     session.UserID(),
		StartedAt:  session.StartedAt(),
		EndedAt:    session.EndedAt(),
		Focus:      session.Focus(),
		PlaylistID: session.PlaylistID(),
		Metrics:    session.Metrics(),
	}
}

// ownedSession loads a session and checks it belongs to the authenticated
// user. A nil return means the response has already been written.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request, userID string) *models.FlowSession {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	if session.UserID() != userID {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return session
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var body struct {
		Focus      string          `json:"focus"`
		PlaylistID string          `json:"playlistId"`
		Metrics    json.RawMessage `json:"metrics"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := models.NewFlowSession(0, user.ID(), strings.TrimSpace(body.Focus))
	session.SetPlaylistID(body.PlaylistID)
	if len(body.Metrics) > 0 {
		session.SetMetrics(body.Metrics)
	}

	if err := s.sessions.Create(session); err != nil {
		s.logger.Error("failed to create session", "user", user.ID(), "error", err)
		writeError(w, http.StatusBadRequest, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sessionToResponse(session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	criteria := map[string]any{"user_id": user.ID()}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		criteria["limit"] = limit
	}

	sessions, err := s.sessions.List(criteria)
	if err != nil {
		s.logger.Error("failed to list sessions", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	responses := make([]sessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = sessionToResponse(session)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": responses})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	session := s.ownedSession(w, r, user.ID())
	if session == nil {
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(session))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	session := s.ownedSession(w, r, user.ID())
	if session == nil {
		return
	}

	var body struct {
		Ended      bool            `json:"ended"`
		PlaylistID *string         `json:"playlistId"`
		Metrics    json.RawMessage `json:"metrics"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Ended && session.EndedAt() == nil {
		now := s.now()
		session.SetEndedAt(&now)
	}
	if body.PlaylistID != nil {
		session.SetPlaylistID(*body.PlaylistID)
	}
	if len(body.Metrics) > 0 {
		session.SetMetrics(body.Metrics)
	}

	if err := s.sessions.Update(session); err != nil {
		s.logger.Error("failed to update session", "session", session.ID(), "error", err)
		writeError(w, http.StatusBadRequest, "failed to update session")
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	session := s.ownedSession(w, r, user.ID())
	if session == nil {
		return
	}

	if err := s.sessions.Delete(session.ID()); err != nil {
		s.logger.Error("failed to delete session", "session", session.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
