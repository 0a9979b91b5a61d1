package domain

// CallState is the lifecycle state of one invitation attempt.
// Keep values stable, they show up in logs and the stats API.
type CallState string

const (
	CallIdle      CallState = "idle"
	CallRinging   CallState = "calling"
	CallAccepted  CallState = "accepted"
	CallConnected CallState = "connected"
)

// CallSession pairs a caller with a callee for the duration of one
// invitation/negotiation attempt. It references participants by id only.
type CallSession struct {
	Status   CallState
	CallerID string
	CalleeID string
}

// Involves reports whether id is either side of the session.
func (s CallSession) Involves(id string) bool {
	return s.CallerID == id || s.CalleeID == id
}

// PeerOf returns the other side of the session, or "" when id is neither.
func (s CallSession) PeerOf(id string) string {
	switch id {
	case s.CallerID:
		return s.CalleeID
	case s.CalleeID:
		return s.CallerID
	}
	return ""
}
