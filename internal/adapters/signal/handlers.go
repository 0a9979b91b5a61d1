package signal

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

// validate enforces the closed set of inbound message shapes. Anything that
// fails here is dropped with a warning, never answered.
var validate = validator.New()

func (ctl *SignalWSController) handleSignal(sid string, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(sid, c, data)
	case "call-client":
		ctl.handleCallClient(sid, data)
	case "call-accepted":
		ctl.handleCallAccepted(sid, data)
	case "cancel-call":
		ctl.handleCancelCall(sid, data)
	case "offer", "answer", "ice-candidate":
		ctl.handleNegotiation(sid, env.Type, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

type joinPayload struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId" validate:"required,max=64"`
	Role     string `json:"role" validate:"required,oneof=host client"`
	Username string `json:"username" validate:"omitempty,max=50"`
}

func (ctl *SignalWSController) handleJoin(sid string, conn *WsSignalConn, data []byte) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("bad join payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("invalid registration data")
		return
	}

	participant, err := domain.NewParticipant(p.ClientID, domain.Role(p.Role), p.Username)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("invalid registration data")
		return
	}

	// A channel binds to one id for its lifetime. A later join with a
	// different id would orphan the first registration, so it is dropped.
	if conn.participantID != "" && conn.participantID != p.ClientID {
		log.Warn().Str("module", "signal").Str("sid", sid).Str("bound", conn.participantID).Str("id", p.ClientID).Msg("join with different id on bound channel dropped")
		return
	}

	log.Info().Str("module", "signal").Str("sid", sid).Str("id", p.ClientID).Str("role", p.Role).Msg("join")
	if err := ctl.Orch.Join(participant, conn); err != nil {
		return
	}
	conn.participantID = p.ClientID
}

type callPayload struct {
	Type string `json:"type"`
	To   string `json:"to" validate:"required"`
	From string `json:"from" validate:"required"`
}

func (ctl *SignalWSController) decodeCall(sid string, data []byte) (callPayload, bool) {
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("bad call payload")
		return p, false
	}
	if err := validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("invalid call payload")
		return p, false
	}
	return p, true
}

func (ctl *SignalWSController) handleCallClient(sid string, data []byte) {
	p, ok := ctl.decodeCall(sid, data)
	if !ok {
		return
	}
	_ = ctl.Orch.InitiateCall(p.From, p.To)
}

func (ctl *SignalWSController) handleCallAccepted(sid string, data []byte) {
	p, ok := ctl.decodeCall(sid, data)
	if !ok {
		return
	}
	// from is the accepting callee, to the original caller.
	ctl.Orch.AcceptCall(p.From, p.To)
}

func (ctl *SignalWSController) handleCancelCall(sid string, data []byte) {
	p, ok := ctl.decodeCall(sid, data)
	if !ok {
		return
	}
	ctl.Orch.CancelOrEnd(p.From, p.To)
}

type negotiationPayload struct {
	Type    string          `json:"type"`
	To      string          `json:"to"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *SignalWSController) handleNegotiation(sid, kind string, data []byte) {
	var p negotiationPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Str("kind", kind).Msg("bad negotiation payload")
		return
	}
	// Field presence is the relay's concern; it drops or replies as needed.
	_ = ctl.Orch.Relay(kind, p.From, p.To, p.Payload)
}
