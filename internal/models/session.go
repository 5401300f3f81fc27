package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlowSession represents one focus session: when it ran, what the user was
// working on, and the playlist that soundtracked it. Activity metrics are an
// opaque JSON document produced by the client.
type FlowSession struct {
	id         string
	sequence   int
	userID     string
	startedAt  time.Time
	endedAt    *time.Time
	focus      string
	playlistID string
	metrics    json.RawMessage
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewFlowSession creates a session for the given user starting now.
func NewFlowSession(sequence int, userID, focus string) *FlowSession {
	now := time.Now()
	return &FlowSession{
		sequence:  sequence,
		userID:    userID,
		startedAt: now,
		focus:     focus,
		metrics:   json.RawMessage("{}"),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *FlowSession) ID() string               { return s.id }
func (s *FlowSession) Sequence() int            { return s.sequence }
func (s *FlowSession) UserID() string           { return s.userID }
func (s *FlowSession) StartedAt() time.Time     { return s.startedAt }
func (s *FlowSession) EndedAt() *time.Time      { return s.endedAt }
func (s *FlowSession) Focus() string            { return s.focus }
func (s *FlowSession) PlaylistID() string       { return s.playlistID }
func (s *FlowSession) Metrics() json.RawMessage { return s.metrics }
func (s *FlowSession) CreatedAt() time.Time     { return s.createdAt }
func (s *FlowSession) UpdatedAt() time.Time     { return s.updatedAt }
func (s *FlowSession) DeletedAt() *time.Time    { return s.deletedAt }

func (s *FlowSession) SetID(id string)              { s.id = id }
func (s *FlowSession) SetStartedAt(ts time.Time)    { s.startedAt = ts }
func (s *FlowSession) SetEndedAt(ts *time.Time)     { s.endedAt = ts }
func (s *FlowSession) SetPlaylistID(id string)      { s.playlistID = id }
func (s *FlowSession) SetMetrics(m json.RawMessage) { s.metrics = m }
func (s *FlowSession) SetCreatedAt(ts time.Time)    { s.createdAt = ts }
func (s *FlowSession) SetUpdatedAt(ts time.Time)    { s.updatedAt = ts }
func (s *FlowSession) SetDeletedAt(ts *time.Time)   { s.deletedAt = ts }

// Validate checks required session fields.
func (s *FlowSession) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("session user id is required")
	}
	if s.startedAt.IsZero() {
		return fmt.Errorf("session start time is required")
	}
	if s.endedAt != nil && s.endedAt.Before(s.startedAt) {
		return fmt.Errorf("session end time precedes start time")
	}
	if len(s.metrics) > 0 && !json.Valid(s.metrics) {
		return fmt.Errorf("session metrics must be valid JSON")
	}
	return nil
}
