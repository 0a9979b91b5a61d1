package request

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 5 * time.Second

var (
	ErrNoTransport    = errors.New("transport not set")
	ErrRequestTimeout = errors.New("request timed out")
	ErrErrorResponse  = errors.New("request rejected")
)

// SendFunc delivers a request to the peer frame. It must not block.
type SendFunc func(Request) error

// Manager sends requests and matches responses to them by request id.
// Unmatched or late responses are discarded.
type Manager struct {
	send    SendFunc
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Response
}

func NewManager(send SendFunc, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		send:    send,
		timeout: timeout,
		pending: make(map[string]chan Response),
	}
}

// Do sends a request and waits for its response. A pending request that sees
// no response within the timeout is discarded and reported as such; a late
// response for it is dropped by HandleResponse.
func (m *Manager) Do(ctx context.Context, reqType string, payload json.RawMessage) (Response, error) {
	if m.send == nil {
		return Response{}, ErrNoTransport
	}
	req := NewRequest(reqType, payload)

	ch := make(chan Response, 1)
	m.mu.Lock()
	m.pending[req.RequestID] = ch
	m.mu.Unlock()

	if err := m.send(req); err != nil {
		m.discard(req.RequestID)
		return Response{}, err
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Status == StatusError {
			return res, ErrErrorResponse
		}
		return res, nil
	case <-timer.C:
		m.discard(req.RequestID)
		return Response{}, ErrRequestTimeout
	case <-ctx.Done():
		m.discard(req.RequestID)
		return Response{}, ctx.Err()
	}
}

// HandleResponse routes a response to its pending request. It reports false
// for responses nothing is waiting on.
func (m *Manager) HandleResponse(res Response) bool {
	m.mu.Lock()
	ch, ok := m.pending[res.RequestID]
	if ok {
		delete(m.pending, res.RequestID)
	}
	m.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "request").Str("requestId", res.RequestID).Msg("response without pending request")
		return false
	}
	ch <- res
	return true
}

func (m *Manager) discard(requestID string) {
	m.mu.Lock()
	delete(m.pending, requestID)
	m.mu.Unlock()
}

// PendingCount reports how many requests are awaiting responses.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
