package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

// CallTable tracks invitation lifecycles, one session per callee id.
// Sessions reference participants by id only; the registry owns the records.
type CallTable struct {
	mu       sync.Mutex
	sessions map[string]*domain.CallSession // keyed by callee id
}

func NewCallTable() *CallTable {
	return &CallTable{
		sessions: make(map[string]*domain.CallSession),
	}
}

// Initiate creates a session at CALLING. A callee with an existing non-idle
// session rejects the attempt without touching that session.
func (t *CallTable) Initiate(callerID, calleeID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sessions[calleeID]; ok && s.Status != domain.CallIdle {
		return ErrCallInProgress
	}
	t.sessions[calleeID] = &domain.CallSession{
		Status:   domain.CallRinging,
		CallerID: callerID,
		CalleeID: calleeID,
	}
	log.Info().Str("module", "app.calls").Str("caller", callerID).Str("callee", calleeID).Msg("call initiated")
	return nil
}

// Accept moves a CALLING session to ACCEPTED. Both ids must match; anything
// else is a stale accept (caller already cancelled) and is a logged no-op.
func (t *CallTable) Accept(calleeID, callerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[calleeID]
	if !ok || s.Status != domain.CallRinging || s.CallerID != callerID {
		log.Warn().Str("module", "app.calls").Str("caller", callerID).Str("callee", calleeID).Msg("accept without matching session")
		return false
	}
	s.Status = domain.CallAccepted
	return true
}

// End discards the session between the two ids, whichever of them is the
// callee. It returns the removed session so the caller can notify the peer.
// Ending an already-idle pair is a no-op.
func (t *CallTable) End(a, b string) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, calleeID := range []string{a, b} {
		s, ok := t.sessions[calleeID]
		if !ok || s.Status == domain.CallIdle {
			continue
		}
		if s.Involves(a) && s.Involves(b) {
			delete(t.sessions, calleeID)
			return *s, true
		}
	}
	return domain.CallSession{}, false
}

// NoteNegotiation marks the session between the two ids CONNECTED once the
// first negotiation message flows after acceptance. Relay calls this on every
// forward; it only has an effect on an ACCEPTED session.
func (t *CallTable) NoteNegotiation(a, b string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, calleeID := range []string{a, b} {
		s, ok := t.sessions[calleeID]
		if !ok || s.Status != domain.CallAccepted {
			continue
		}
		if s.Involves(a) && s.Involves(b) {
			s.Status = domain.CallConnected
			log.Info().Str("module", "app.calls").Str("caller", s.CallerID).Str("callee", s.CalleeID).Msg("call connected")
			return true
		}
	}
	return false
}

// DropParticipant discards every session referencing id and returns them so
// the disconnect cascade can notify the surviving peers.
func (t *CallTable) DropParticipant(id string) []domain.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	var dropped []domain.CallSession
	for calleeID, s := range t.sessions {
		if s.Involves(id) {
			dropped = append(dropped, *s)
			delete(t.sessions, calleeID)
		}
	}
	return dropped
}

// ActiveFor returns the non-idle session targeting calleeID, if any.
func (t *CallTable) ActiveFor(calleeID string) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[calleeID]
	if !ok || s.Status == domain.CallIdle {
		return domain.CallSession{}, false
	}
	return *s, true
}

// ActiveCount reports the number of live sessions, for the stats endpoint.
func (t *CallTable) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.sessions {
		if s.Status != domain.CallIdle {
			n++
		}
	}
	return n
}
