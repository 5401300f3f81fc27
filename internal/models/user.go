package models

import (
	"fmt"
	"strings"
	"time"
)

// TokenState holds a user's Spotify OAuth tokens.
//
// It is a plain value: the token manager decides validity, the user repository
// persists changes through a single update path. Concurrent refreshes for the
// same user are last-write-wins.
type TokenState struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Connected reports whether the user has completed the Spotify connect flow.
func (t TokenState) Connected() bool {
	return t.RefreshToken != ""
}

// Expired reports whether the access token needs a refresh before use.
func (t TokenState) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// User represents an account holding profile data and Spotify token state.
type User struct {
	id          string
	sequence    int
	email       string
	name        string
	phoneNumber string
	tokens      TokenState
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewUser creates a user with the given sequence number, email and display name.
func NewUser(sequence int, email, name string) *User {
	now := time.Now()
	return &User{
		sequence:  sequence,
		email:     strings.ToLower(strings.TrimSpace(email)),
		name:      strings.TrimSpace(name),
		createdAt: now,
		updatedAt: now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Email() string         { return u.email }
func (u *User) Name() string          { return u.name }
func (u *User) PhoneNumber() string   { return u.phoneNumber }
func (u *User) Tokens() TokenState    { return u.tokens }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)             { u.id = id }
func (u *User) SetPhoneNumber(phone string) { u.phoneNumber = phone }
func (u *User) SetTokens(t TokenState)      { u.tokens = t }
func (u *User) SetCreatedAt(ts time.Time)   { u.createdAt = ts }
func (u *User) SetUpdatedAt(ts time.Time)   { u.updatedAt = ts }
func (u *User) SetDeletedAt(ts *time.Time)  { u.deletedAt = ts }

// Validate checks required user fields.
func (u *User) Validate() error {
	if u.email == "" {
		return fmt.Errorf("user email is required")
	}
	if !strings.Contains(u.email, "@") {
		return fmt.Errorf("user email is invalid: %s", u.email)
	}
	if u.name == "" {
		return fmt.Errorf("user name is required")
	}
	return nil
}
