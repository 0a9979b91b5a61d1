// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxParticipantIDLen = 64
	MaxUsernameLen      = 50
)

var (
	ErrEmptyParticipantID   = errors.New("participant id empty")
	ErrParticipantIDTooLong = errors.New("participant id too long")
	ErrUsernameTooLong      = errors.New("username too long")
	ErrInvalidRole          = errors.New("invalid role")
)

// Role distinguishes the single sharing side from its viewers.
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleClient
}

// Participant is the identity record kept by the registry. The transport
// handle lives next to it in the registry entry, never here.
type Participant struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Username string `json:"username,omitempty"`
}

// NewParticipant avoids ad-hoc struct literals in adapters and keeps the
// field limits in one place.
func NewParticipant(id string, role Role, username string) (Participant, error) {
	if len(id) == 0 {
		return Participant{}, ErrEmptyParticipantID
	}
	if len(id) > MaxParticipantIDLen {
		return Participant{}, ErrParticipantIDTooLong
	}
	if !role.Valid() {
		return Participant{}, ErrInvalidRole
	}
	if len(username) > MaxUsernameLen {
		return Participant{}, ErrUsernameTooLong
	}
	return Participant{ID: id, Role: role, Username: username}, nil
}
