package app

import (
	"encoding/json"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

// Outbound event shapes. Every frame carries a "type" discriminator; payload
// fields match what the host and client apps consume.

const (
	EventRegistered         = "registered"
	EventClientList         = "client-list"
	EventClientJoinRequest  = "client-join-request"
	EventCallClient         = "call-client"
	EventCallAccepted       = "call-accepted"
	EventCallCancelled      = "call-cancelled"
	EventCallEnded          = "call-ended"
	EventError              = "error"
	EventHostDisconnected   = "host-disconnected"
	EventClientDisconnected = "client-disconnected"
)

// Error codes surfaced in error events.
const (
	CodeTargetNotFound     = "TARGET_NOT_FOUND"
	CodeUnknownParticipant = "UNKNOWN_PARTICIPANT"
	CodeCallInProgress     = "CALL_IN_PROGRESS"
	CodeRegistrationFailed = "REGISTRATION_FAILED"
)

type registeredEvent struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Role    domain.Role `json:"role"`
}

type clientListEvent struct {
	Type    string    `json:"type"`
	Clients []Summary `json:"clients"`
}

type clientJoinRequestEvent struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

type callEvent struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type callEndedEvent struct {
	Type   string `json:"type"`
	From   string `json:"from"`
	Reason string `json:"reason,omitempty"`
}

type negotiationEvent struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type hostDisconnectedEvent struct {
	Type   string `json:"type"`
	HostID string `json:"hostId"`
}

type clientDisconnectedEvent struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}
