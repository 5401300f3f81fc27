package server

import (
	"errors"
	"net/http"

	"flowbeat/internal/shared"
)

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	if s.sandbox == nil {
		writeError(w, http.StatusServiceUnavailable, "sandbox is not configured")
		return
	}

	var body struct {
		Language string `json:"language"`
		Code     string `json:"code"`
		Stdin    string `json:"stdin"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	result, err := s.sandbox.Execute(r.Context(), body.Language, body.Code, body.Stdin)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("sandbox execution failed", "user", user.ID(), "error", err)
		writeError(w, http.StatusBadGateway, "execution failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
