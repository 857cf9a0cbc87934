// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

type (
	// UserID identifies a logged-in user. A user may hold several live
	// connections at once (multi-tab), all sharing one UserID.
	UserID string

	// ConnID identifies a single transport-layer connection.
	ConnID string
)

type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(name string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &User{ID: UserID(uuid.NewString()), Name: name}, nil
}

// NewConnID assigns the transport-scoped identifier for a fresh connection.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// PresenceEntry is the read-only view of one online user.
type PresenceEntry struct {
	UserID UserID `json:"userId"`
	Name   string `json:"displayName"`
}
