// Package signal is the WebSocket adapter for the signaling core. It owns
// the upgrade, the read/write pumps and the envelope decoding; all state
// lives behind the orchestrator.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/app"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/config"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Orch    *app.Orchestrator
	Gate    *app.AdmissionGate
	Cfg     *config.Config
	limiter *MessageRateLimiter
}

func NewSignalWSController(orch *app.Orchestrator, gate *app.AdmissionGate, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch:    orch,
		Gate:    gate,
		Cfg:     cfg,
		limiter: NewMessageRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	// participantID is the id bound by a successful join. Only the readPump
	// goroutine writes it.
	participantID string

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal admits, upgrades and starts the pumps for one channel. The
// admission gate runs before the upgrade so an over-limit channel never
// reaches the registry.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")

	if !ctl.Gate.Acquire() {
		log.Warn().Str("module", "signal").Str("sid", sid).Msg("connection limit reached, refusing channel")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "connection limit reached"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.Gate.Release()
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("sid", sid).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
