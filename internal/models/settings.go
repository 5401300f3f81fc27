package models

import (
	"encoding/json"
	"time"
)

// Settings is a per-user preferences document stored as opaque JSON.
// It is keyed by user id rather than carrying its own identity.
type Settings struct {
	UserID    string
	Document  json.RawMessage
	UpdatedAt time.Time
}
