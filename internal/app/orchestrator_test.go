package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/core"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

// fakeConn captures every frame sent to a participant so tests can assert on
// the exact event stream.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("connection closed")
	}
	cp := make(core.Frame, len(fr))
	copy(cp, fr)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(fr, &m); err != nil {
			t.Fatalf("frame %q: %v", fr, err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) countType(t *testing.T, eventType string) int {
	t.Helper()
	n := 0
	for _, ev := range f.events(t) {
		if ev["type"] == eventType {
			n++
		}
	}
	return n
}

func (f *fakeConn) lastOfType(t *testing.T, eventType string) map[string]any {
	t.Helper()
	var found map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == eventType {
			found = ev
		}
	}
	if found == nil {
		t.Fatalf("no %q event, got %v", eventType, f.events(t))
	}
	return found
}

func join(t *testing.T, o *Orchestrator, id string, role domain.Role, username string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	p := mustParticipant(t, id, role, username)
	if err := o.Join(p, conn); err != nil {
		t.Fatalf("Join(%s): %v", id, err)
	}
	return conn
}

func TestOrchestrator_HostJoinGetsImmediateRoster(t *testing.T) {
	o := NewOrchestrator()

	join(t, o, "c1", domain.RoleClient, "alice")
	h1 := join(t, o, "h1", domain.RoleHost, "presenter")

	reg := h1.lastOfType(t, EventRegistered)
	if reg["success"] != true || reg["role"] != "host" {
		t.Fatalf("registered event=%v", reg)
	}

	roster := h1.lastOfType(t, EventClientList)
	clients, ok := roster["clients"].([]any)
	if !ok || len(clients) != 1 {
		t.Fatalf("client-list=%v, want exactly [c1]", roster)
	}
	entry := clients[0].(map[string]any)
	if entry["clientId"] != "c1" || entry["username"] != "alice" {
		t.Fatalf("roster entry=%v", entry)
	}
}

func TestOrchestrator_ClientJoinNotifiesHostsAndRefreshesRoster(t *testing.T) {
	o := NewOrchestrator()

	h1 := join(t, o, "h1", domain.RoleHost, "")
	join(t, o, "c1", domain.RoleClient, "alice")

	notice := h1.lastOfType(t, EventClientJoinRequest)
	if notice["clientId"] != "c1" || notice["username"] != "alice" {
		t.Fatalf("client-join-request=%v", notice)
	}
	roster := h1.lastOfType(t, EventClientList)
	if clients := roster["clients"].([]any); len(clients) != 1 {
		t.Fatalf("client-list after join=%v", roster)
	}
}

func TestOrchestrator_RosterTracksJoinsAndDisconnects(t *testing.T) {
	o := NewOrchestrator()

	h1 := join(t, o, "h1", domain.RoleHost, "")
	c1 := join(t, o, "c1", domain.RoleClient, "a")
	join(t, o, "c2", domain.RoleClient, "b")
	o.OnDisconnect("c1", c1)
	join(t, o, "c3", domain.RoleClient, "c")

	roster := h1.lastOfType(t, EventClientList)
	clients := roster["clients"].([]any)
	wantIDs := []string{"c2", "c3"}
	if len(clients) != len(wantIDs) {
		t.Fatalf("roster=%v, want ids %v", clients, wantIDs)
	}
	for i, want := range wantIDs {
		if clients[i].(map[string]any)["clientId"] != want {
			t.Fatalf("roster[%d]=%v, want %s", i, clients[i], want)
		}
	}

	if got := h1.countType(t, EventClientDisconnected); got != 1 {
		t.Fatalf("client-disconnected count=%d, want 1", got)
	}
}

func TestOrchestrator_CallLifecycleScenario(t *testing.T) {
	o := NewOrchestrator()

	c1 := join(t, o, "c1", domain.RoleClient, "alice")
	h1 := join(t, o, "h1", domain.RoleHost, "presenter")

	if err := o.InitiateCall("h1", "c1"); err != nil {
		t.Fatalf("InitiateCall: %v", err)
	}
	invite := c1.lastOfType(t, EventCallClient)
	if invite["from"] != "h1" {
		t.Fatalf("call-client=%v, want from h1", invite)
	}

	// A second attempt before acceptance is rejected without touching state.
	if err := o.InitiateCall("h1", "c1"); err != ErrCallInProgress {
		t.Fatalf("second InitiateCall err=%v, want %v", err, ErrCallInProgress)
	}
	errEv := h1.lastOfType(t, EventError)
	if errEv["code"] != CodeCallInProgress {
		t.Fatalf("error event=%v, want code %s", errEv, CodeCallInProgress)
	}
	if got := c1.countType(t, EventCallClient); got != 1 {
		t.Fatalf("callee saw %d invites, want 1", got)
	}

	o.AcceptCall("c1", "h1")
	accepted := h1.lastOfType(t, EventCallAccepted)
	if accepted["from"] != "c1" {
		t.Fatalf("call-accepted=%v, want from c1", accepted)
	}

	o.OnDisconnect("h1", h1)
	down := c1.lastOfType(t, EventHostDisconnected)
	if down["hostId"] != "h1" {
		t.Fatalf("host-disconnected=%v", down)
	}
	ended := c1.lastOfType(t, EventCallEnded)
	if ended["from"] != "h1" || ended["reason"] != "user-disconnected" {
		t.Fatalf("call-ended=%v", ended)
	}

	// The session was reset, so c1 can be called again.
	join(t, o, "h2", domain.RoleHost, "")
	if err := o.InitiateCall("h2", "c1"); err != nil {
		t.Fatalf("fresh InitiateCall after disconnect: %v", err)
	}
}

func TestOrchestrator_InitiateCallUnknownParticipant(t *testing.T) {
	o := NewOrchestrator()
	h1 := join(t, o, "h1", domain.RoleHost, "")

	if err := o.InitiateCall("h1", "ghost"); err != ErrUnknownParticipant {
		t.Fatalf("InitiateCall err=%v, want %v", err, ErrUnknownParticipant)
	}
	ev := h1.lastOfType(t, EventError)
	if ev["code"] != CodeUnknownParticipant {
		t.Fatalf("error event=%v", ev)
	}
}

func TestOrchestrator_StaleAcceptIsNoOp(t *testing.T) {
	o := NewOrchestrator()
	join(t, o, "c1", domain.RoleClient, "")
	h1 := join(t, o, "h1", domain.RoleHost, "")

	// No call was ever initiated; the accept must change nothing.
	o.AcceptCall("c1", "h1")
	if got := h1.countType(t, EventCallAccepted); got != 0 {
		t.Fatalf("caller saw %d call-accepted events, want 0", got)
	}
}

func TestOrchestrator_CancelNotifiesThePeer(t *testing.T) {
	o := NewOrchestrator()
	c1 := join(t, o, "c1", domain.RoleClient, "")
	h1 := join(t, o, "h1", domain.RoleHost, "")

	if err := o.InitiateCall("h1", "c1"); err != nil {
		t.Fatalf("InitiateCall: %v", err)
	}
	o.CancelOrEnd("h1", "c1")
	cancelled := c1.lastOfType(t, EventCallCancelled)
	if cancelled["from"] != "h1" {
		t.Fatalf("call-cancelled=%v", cancelled)
	}

	// Cancellation is idempotent.
	o.CancelOrEnd("h1", "c1")
	if got := c1.countType(t, EventCallCancelled); got != 1 {
		t.Fatalf("call-cancelled count=%d, want 1", got)
	}

	// Once the call is connected the teardown event is call-ended, sent to
	// the caller when the callee hangs up.
	if err := o.InitiateCall("h1", "c1"); err != nil {
		t.Fatalf("re-InitiateCall: %v", err)
	}
	o.AcceptCall("c1", "h1")
	if err := o.Relay("offer", "h1", "c1", json.RawMessage(`{"sdp":"x"}`)); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	o.CancelOrEnd("c1", "h1")
	ended := h1.lastOfType(t, EventCallEnded)
	if ended["from"] != "c1" {
		t.Fatalf("call-ended=%v", ended)
	}
}

func TestOrchestrator_RelayFidelity(t *testing.T) {
	o := NewOrchestrator()
	join(t, o, "h1", domain.RoleHost, "")
	c1 := join(t, o, "c1", domain.RoleClient, "")

	payload := json.RawMessage(`{"sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1","type":"offer"}`)
	if err := o.Relay("offer", "h1", "c1", payload); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	if got := c1.countType(t, "offer"); got != 1 {
		t.Fatalf("callee received %d offer frames, want 1", got)
	}
	ev := c1.lastOfType(t, "offer")
	if ev["from"] != "h1" {
		t.Fatalf("offer from=%v, want h1", ev["from"])
	}

	// The forwarded payload must be byte-identical to what was sent.
	c1.mu.Lock()
	raw := c1.frames[len(c1.frames)-1]
	c1.mu.Unlock()
	var fwd struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &fwd); err != nil {
		t.Fatalf("unmarshal forwarded frame: %v", err)
	}
	if !bytes.Equal(fwd.Payload, payload) {
		t.Fatalf("payload=%s, want byte-identical %s", fwd.Payload, payload)
	}
}

func TestOrchestrator_RelayUnknownTargetSurfacesErrorToSender(t *testing.T) {
	o := NewOrchestrator()
	h1 := join(t, o, "h1", domain.RoleHost, "")

	err := o.Relay("ice-candidate", "h1", "ghost", json.RawMessage(`{"candidate":"..."}`))
	if err != ErrTargetNotFound {
		t.Fatalf("Relay err=%v, want %v", err, ErrTargetNotFound)
	}
	ev := h1.lastOfType(t, EventError)
	if ev["code"] != CodeTargetNotFound {
		t.Fatalf("error event=%v, want code %s", ev, CodeTargetNotFound)
	}
}

func TestOrchestrator_RelayDropsMalformedMessagesSilently(t *testing.T) {
	o := NewOrchestrator()
	h1 := join(t, o, "h1", domain.RoleHost, "")
	c1 := join(t, o, "c1", domain.RoleClient, "")

	if err := o.Relay("offer", "h1", "c1", nil); err != ErrInvalidMessage {
		t.Fatalf("Relay with nil payload err=%v, want %v", err, ErrInvalidMessage)
	}
	if err := o.Relay("offer", "", "c1", json.RawMessage(`{}`)); err != ErrInvalidMessage {
		t.Fatalf("Relay with empty from err=%v, want %v", err, ErrInvalidMessage)
	}
	if err := o.Relay("offer", "ghost", "c1", json.RawMessage(`{}`)); err != ErrUnknownParticipant {
		t.Fatalf("Relay from unregistered sender err=%v, want %v", err, ErrUnknownParticipant)
	}

	if got := c1.countType(t, "offer"); got != 0 {
		t.Fatalf("callee received %d frames from dropped messages", got)
	}
	if got := h1.countType(t, EventError); got != 0 {
		t.Fatalf("sender received %d error events for dropped messages, want 0", got)
	}
}

func TestOrchestrator_RelayMarksAcceptedCallConnected(t *testing.T) {
	o := NewOrchestrator()
	join(t, o, "h1", domain.RoleHost, "")
	join(t, o, "c1", domain.RoleClient, "")

	if err := o.InitiateCall("h1", "c1"); err != nil {
		t.Fatalf("InitiateCall: %v", err)
	}
	o.AcceptCall("c1", "h1")
	if err := o.Relay("offer", "h1", "c1", json.RawMessage(`{"sdp":"x"}`)); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	s, ok := o.Calls.ActiveFor("c1")
	if !ok || s.Status != domain.CallConnected {
		t.Fatalf("session=(%+v,%v), want connected", s, ok)
	}
}

func TestOrchestrator_HostDisconnectCascade(t *testing.T) {
	o := NewOrchestrator()

	h1 := join(t, o, "h1", domain.RoleHost, "")
	clients := make([]*fakeConn, 0, 3)
	for _, id := range []string{"c1", "c2", "c3"} {
		clients = append(clients, join(t, o, id, domain.RoleClient, ""))
	}

	if err := o.InitiateCall("h1", "c2"); err != nil {
		t.Fatalf("InitiateCall: %v", err)
	}

	o.OnDisconnect("h1", h1)

	for i, c := range clients {
		if got := c.countType(t, EventHostDisconnected); got != 1 {
			t.Fatalf("client %d saw %d host-disconnected events, want 1", i, got)
		}
	}
	if got := o.Calls.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount=%d after cascade, want 0", got)
	}
	ended := clients[1].lastOfType(t, EventCallEnded)
	if ended["reason"] != "user-disconnected" {
		t.Fatalf("call-ended=%v", ended)
	}
}

func TestOrchestrator_CascadeSurvivesDeadPeerChannels(t *testing.T) {
	o := NewOrchestrator()

	h1 := join(t, o, "h1", domain.RoleHost, "")
	dead := join(t, o, "c1", domain.RoleClient, "")
	alive := join(t, o, "c2", domain.RoleClient, "")
	dead.fail = true

	o.OnDisconnect("h1", h1)

	// The dead channel must not stop the rest of the cascade.
	if got := alive.countType(t, EventHostDisconnected); got != 1 {
		t.Fatalf("surviving client saw %d host-disconnected events, want 1", got)
	}
	if _, _, ok := o.Registry.Lookup("h1"); ok {
		t.Fatal("host still registered after cascade")
	}
}

func TestOrchestrator_StaleChannelCloseKeepsReplacedRegistration(t *testing.T) {
	o := NewOrchestrator()

	h1 := join(t, o, "h1", domain.RoleHost, "")
	old := join(t, o, "c1", domain.RoleClient, "alice")
	fresh := join(t, o, "c1", domain.RoleClient, "alice")

	// The replaced channel's read loop still exits and reports the shared
	// id; that must not touch the live registration.
	o.OnDisconnect("c1", old)

	_, conn, ok := o.Registry.Lookup("c1")
	if !ok || conn != fresh {
		t.Fatalf("Lookup after stale close=(%v,%v), want the replacement channel", conn, ok)
	}
	if got := h1.countType(t, EventClientDisconnected); got != 0 {
		t.Fatalf("host saw %d client-disconnected events, want 0", got)
	}
	roster := h1.lastOfType(t, EventClientList)
	if clients := roster["clients"].([]any); len(clients) != 1 {
		t.Fatalf("roster after stale close=%v, want c1 still listed", roster)
	}

	// The real channel's close is the one that evicts.
	o.OnDisconnect("c1", fresh)
	if _, _, ok := o.Registry.Lookup("c1"); ok {
		t.Fatal("participant still registered after live channel close")
	}
	if got := h1.countType(t, EventClientDisconnected); got != 1 {
		t.Fatalf("host saw %d client-disconnected events, want 1", got)
	}
}
