package app

import "errors"

var (
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrUnknownParticipant  = errors.New("unknown participant")
	// ErrCallInProgress is returned when a call is initiated towards a callee
	// that already has a non-idle session. The existing session is untouched.
	ErrCallInProgress = errors.New("call already in progress")
	ErrTargetNotFound = errors.New("target not found")
	ErrInvalidMessage = errors.New("invalid message")
)
