package server

import "net/http"

func (s *Server) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	var body struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Kind == "" || body.Name == "" {
		writeError(w, http.StatusBadRequest, "kind and name are required")
		return
	}

	key, url, err := s.storage.PresignPut(r.Context(), user.ID(), body.Kind, body.Name)
	if err != nil {
		s.logger.Error("failed to presign upload", "user", user.ID(), "error", err)
		writeError(w, http.StatusBadGateway, "failed to presign upload")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) handlePresignDownload(w http.ResponseWriter, r *http.Request) {
	user := s.requestUser(w, r)
	if user == nil {
		return
	}

	if s.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Keys are prefixed per user; refuse to sign someone else's object.
	if !ownsKey(user.ID(), body.Key) {
		writeError(w, http.StatusForbidden, "key does not belong to this account")
		return
	}

	url, err := s.storage.PresignGet(r.Context(), body.Key)
	if err != nil {
		s.logger.Error("failed to presign download", "user", user.ID(), "error", err)
		writeError(w, http.StatusBadGateway, "failed to presign download")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func ownsKey(userID, key string) bool {
	prefix := "users/" + userID + "/"
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}
