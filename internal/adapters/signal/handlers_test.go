package signal

import (
	"testing"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/app"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/config"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/core"
)

func newTestController() *SignalWSController {
	return NewSignalWSController(app.NewOrchestrator(), app.NewAdmissionGate(0), &config.Config{})
}

func newTestConn() *WsSignalConn {
	return &WsSignalConn{send: make(chan core.Frame, 32)}
}

func TestHandleJoin_BindsChannelToID(t *testing.T) {
	ctl := newTestController()
	conn := newTestConn()

	ctl.handleJoin("sid-1", conn, []byte(`{"type":"join","clientId":"c1","role":"client","username":"alice"}`))

	if conn.participantID != "c1" {
		t.Fatalf("participantID=%q, want c1", conn.participantID)
	}
	if _, _, ok := ctl.Orch.Registry.Lookup("c1"); !ok {
		t.Fatal("c1 not registered after join")
	}
}

func TestHandleJoin_DropsDifferentIDOnBoundChannel(t *testing.T) {
	ctl := newTestController()
	conn := newTestConn()

	ctl.handleJoin("sid-1", conn, []byte(`{"type":"join","clientId":"c1","role":"client"}`))
	ctl.handleJoin("sid-1", conn, []byte(`{"type":"join","clientId":"c2","role":"client"}`))

	if conn.participantID != "c1" {
		t.Fatalf("participantID=%q, want the original binding c1", conn.participantID)
	}
	if _, _, ok := ctl.Orch.Registry.Lookup("c2"); ok {
		t.Fatal("second id registered on an already-bound channel")
	}
	if _, _, ok := ctl.Orch.Registry.Lookup("c1"); !ok {
		t.Fatal("original registration lost")
	}
}

func TestHandleJoin_SameIDRejoinRefreshesRegistration(t *testing.T) {
	ctl := newTestController()
	conn := newTestConn()

	ctl.handleJoin("sid-1", conn, []byte(`{"type":"join","clientId":"c1","role":"client","username":"alice"}`))
	ctl.handleJoin("sid-1", conn, []byte(`{"type":"join","clientId":"c1","role":"client","username":"alice2"}`))

	if conn.participantID != "c1" {
		t.Fatalf("participantID=%q, want c1", conn.participantID)
	}
	p, _, ok := ctl.Orch.Registry.Lookup("c1")
	if !ok || p.Username != "alice2" {
		t.Fatalf("Lookup=(%+v,%v), want refreshed username alice2", p, ok)
	}
}
