package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/core"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

// Orchestrator wires the registry, the call table and presence fan-out.
// Every mutating operation runs behind one mutex, so no two mutations of the
// same participant's state are ever in flight together. Channel sends stay
// best-effort and never block the lock holder for long: TrySend drops on
// backpressure instead of waiting.
type Orchestrator struct {
	mu       sync.Mutex
	Registry *Registry
	Calls    *CallTable
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		Registry: NewRegistry(),
		Calls:    NewCallTable(),
	}
}

func (o *Orchestrator) emit(conn core.SignalConnection, v any) {
	if conn == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orchestrator").Msg("emit marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Msg("emit dropped")
	}
}

// Join registers the participant and runs the presence side effects: a
// registered ack to the joiner, a join notice plus roster push to hosts for
// a new client, and an immediate roster push to a new host.
func (o *Orchestrator) Join(p domain.Participant, conn core.SignalConnection) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.Registry.Register(p, conn); err != nil {
		o.emit(conn, errorEvent{Type: EventError, Code: CodeRegistrationFailed, Message: err.Error()})
		return err
	}
	o.emit(conn, registeredEvent{Type: EventRegistered, Success: true, Role: p.Role})

	switch p.Role {
	case domain.RoleClient:
		notice := clientJoinRequestEvent{Type: EventClientJoinRequest, ClientID: p.ID, Username: p.Username}
		for _, h := range o.Registry.snapshotByRole(domain.RoleHost) {
			o.emit(h.Conn, notice)
		}
		o.broadcastRoster()
	case domain.RoleHost:
		o.emit(conn, clientListEvent{Type: EventClientList, Clients: o.Registry.ListByRole(domain.RoleClient)})
	}
	return nil
}

// broadcastRoster pushes the full client roster to every host as a single
// roster-replace event. Callers hold o.mu.
func (o *Orchestrator) broadcastRoster() {
	roster := o.Registry.ListByRole(domain.RoleClient)
	ev := clientListEvent{Type: EventClientList, Clients: roster}
	for _, h := range o.Registry.snapshotByRole(domain.RoleHost) {
		o.emit(h.Conn, ev)
	}
}

// InitiateCall starts ringing the callee. Conflicts and unknown ids are
// reported back to the caller as error events and never disturb existing
// sessions.
func (o *Orchestrator) InitiateCall(callerID, calleeID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, callerConn, callerOK := o.Registry.Lookup(callerID)
	_, calleeConn, calleeOK := o.Registry.Lookup(calleeID)
	if !callerOK || !calleeOK {
		log.Warn().Str("module", "app.orchestrator").Str("caller", callerID).Str("callee", calleeID).Msg("call to unknown participant")
		o.emit(callerConn, errorEvent{Type: EventError, Code: CodeUnknownParticipant, Message: "participant not registered"})
		return ErrUnknownParticipant
	}
	if err := o.Calls.Initiate(callerID, calleeID); err != nil {
		o.emit(callerConn, errorEvent{Type: EventError, Code: CodeCallInProgress, Message: "callee already in a call"})
		return err
	}
	o.emit(calleeConn, callEvent{Type: EventCallClient, From: callerID})
	return nil
}

// AcceptCall confirms a ringing call. A stale accept (no matching CALLING
// session) is a no-op; the table already logged it.
func (o *Orchestrator) AcceptCall(calleeID, callerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Calls.Accept(calleeID, callerID) {
		return
	}
	_, callerConn, ok := o.Registry.Lookup(callerID)
	if !ok {
		return
	}
	o.emit(callerConn, callEvent{Type: EventCallAccepted, From: calleeID})
}

// CancelOrEnd tears down the session between byID and peerID from any
// non-idle state and tells the other party. Idempotent.
func (o *Orchestrator) CancelOrEnd(byID, peerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.Calls.End(byID, peerID)
	if !ok {
		return
	}
	other := sess.PeerOf(byID)
	_, conn, ok := o.Registry.Lookup(other)
	if !ok {
		return
	}
	if sess.Status != domain.CallConnected {
		o.emit(conn, callEvent{Type: EventCallCancelled, From: byID})
		return
	}
	o.emit(conn, callEndedEvent{Type: EventCallEnded, From: byID})
}

// Relay forwards a negotiation message verbatim. The payload is never
// inspected beyond presence. An unknown target is reported back to the
// sender as a recoverable error event; malformed input is dropped quietly.
func (o *Orchestrator) Relay(kind, from, to string, payload json.RawMessage) error {
	if from == "" || to == "" || len(payload) == 0 {
		log.Warn().Str("module", "app.orchestrator").Str("kind", kind).Str("from", from).Str("to", to).Msg("invalid negotiation message dropped")
		return ErrInvalidMessage
	}
	_, fromConn, ok := o.Registry.Lookup(from)
	if !ok {
		log.Warn().Str("module", "app.orchestrator").Str("kind", kind).Str("from", from).Msg("negotiation from unregistered sender dropped")
		return ErrUnknownParticipant
	}
	_, toConn, ok := o.Registry.Lookup(to)
	if !ok {
		log.Warn().Str("module", "app.orchestrator").Str("kind", kind).Str("from", from).Str("to", to).Msg("negotiation target not found")
		o.emit(fromConn, errorEvent{Type: EventError, Code: CodeTargetNotFound, Message: "target client not found"})
		return ErrTargetNotFound
	}

	o.emit(toConn, negotiationEvent{Type: kind, From: from, Payload: payload})
	o.Calls.NoteNegotiation(from, to)
	return nil
}

// OnDisconnect runs the cascade for a lost channel: registry removal, role
// fan-out, roster refresh and call teardown, in that order. The removal is
// keyed to the channel that actually closed: after a re-registration replaced
// the entry, the old channel's exit matches nothing and the whole cascade is
// skipped. A nil conn removes unconditionally. Every notification is
// best-effort; a dead peer never stops the cleanup.
func (o *Orchestrator) OnDisconnect(id string, conn core.SignalConnection) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var (
		p       domain.Participant
		removed bool
	)
	if conn == nil {
		p, removed = o.Registry.Remove(id)
	} else {
		p, removed = o.Registry.RemoveIfConn(id, conn)
	}
	if !removed {
		log.Info().Str("module", "app.orchestrator").Str("id", id).Msg("disconnect for unregistered channel, nothing to do")
		return
	}
	switch p.Role {
	case domain.RoleHost:
		ev := hostDisconnectedEvent{Type: EventHostDisconnected, HostID: id}
		for _, c := range o.Registry.snapshotByRole(domain.RoleClient) {
			o.emit(c.Conn, ev)
		}
	case domain.RoleClient:
		ev := clientDisconnectedEvent{Type: EventClientDisconnected, ClientID: id}
		for _, h := range o.Registry.snapshotByRole(domain.RoleHost) {
			o.emit(h.Conn, ev)
		}
		o.broadcastRoster()
	}

	for _, sess := range o.Calls.DropParticipant(id) {
		peer := sess.PeerOf(id)
		_, conn, ok := o.Registry.Lookup(peer)
		if !ok {
			continue
		}
		o.emit(conn, callEndedEvent{Type: EventCallEnded, From: id, Reason: "user-disconnected"})
	}
	log.Info().Str("module", "app.orchestrator").Str("id", id).Msg("disconnect cascade complete")
}
