package server

import (
	"errors"
	"net/http"

	"flowbeat/internal/shared"
)

func (s *Server) handleMessagingStatus(w http.ResponseWriter, r *http.Request) {
	if user := s.requestUser(w, r); user == nil {
		return
	}

	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging is not configured")
		return
	}

	status, err := s.bridge.Ready(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "messaging bridge unavailable")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSendReport(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, "messaging is not configured")
		return
	}

	if user.PhoneNumber() == "" {
		writeError(w, http.StatusBadRequest, "no phone number on this account")
		return
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.bridge.Send(r.Context(), user.PhoneNumber(), body.Message); err != nil {
		switch {
		case errors.Is(err, shared.ErrMissingArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, shared.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "messaging bridge unavailable")
		default:
			s.logger.Error("failed to send report", "user", user.ID(), "error", err)
			writeError(w, http.StatusBadGateway, "failed to send report")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}
