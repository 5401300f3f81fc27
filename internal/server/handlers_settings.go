package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	settings, err := s.settings.Get(user.ID())
	if err != nil {
		s.logger.Error("failed to load settings", "user", user.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"settings": settings.Document})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	var document json.RawMessage
	if err := decodeJSON(r, &document); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.settings.Put(user.ID(), document); err != nil {
		writeError(w, http.StatusBadRequest, "settings must be a JSON document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"settings": document})
}
