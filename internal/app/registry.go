package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/core"
	"github.com/kanxoramesh/ScreenShare-WebRTC/internal/domain"
)

type registryEntry struct {
	participant domain.Participant
	conn        core.SignalConnection
}

// Registry is the sole owner of participant records and their channels.
// All mutation goes through its methods; callers only ever see copies.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	order   []string // registration order; re-registration keeps the slot
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
	}
}

// Summary is the roster view of a participant, shaped for the client-list
// event.
type Summary struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
}

// snap pairs an id with its channel for fan-out without holding the lock.
type snap struct {
	ID   string
	Conn core.SignalConnection
}

// Register records a participant. A duplicate id replaces the existing entry
// (last write wins) without closing the previous channel; the original
// registration position is kept so rosters stay stable.
func (r *Registry) Register(p domain.Participant, conn core.SignalConnection) error {
	if p.ID == "" {
		return ErrInvalidRegistration
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	} else {
		log.Warn().Str("module", "app.registry").Str("id", p.ID).Msg("duplicate registration, replacing entry")
	}
	r.entries[p.ID] = &registryEntry{participant: p, conn: conn}
	log.Info().Str("module", "app.registry").Str("id", p.ID).Str("role", string(p.Role)).Msg("registered")
	return nil
}

// Lookup returns a copy of the participant and its channel.
func (r *Registry) Lookup(id string) (domain.Participant, core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.Participant{}, nil, false
	}
	return e.participant, e.conn, true
}

// Remove deletes the entry for id. Idempotent.
func (r *Registry) Remove(id string) (domain.Participant, bool) {
	return r.removeMatching(id, nil)
}

// RemoveIfConn deletes the entry for id only while conn is still the
// registered channel. A stale channel whose entry was replaced by a
// last-write-wins re-registration matches nothing and removes nothing.
func (r *Registry) RemoveIfConn(id string, conn core.SignalConnection) (domain.Participant, bool) {
	return r.removeMatching(id, conn)
}

// removeMatching evicts id when conn is nil or is the stored channel.
func (r *Registry) removeMatching(id string, conn core.SignalConnection) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.Participant{}, false
	}
	if conn != nil && e.conn != conn {
		log.Info().Str("module", "app.registry").Str("id", id).Msg("stale channel for replaced entry, keeping registration")
		return domain.Participant{}, false
	}
	delete(r.entries, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "app.registry").Str("id", id).Msg("removed")
	return e.participant, true
}

// ListByRole returns roster summaries in registration order.
func (r *Registry) ListByRole(role domain.Role) []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok || e.participant.Role != role {
			continue
		}
		out = append(out, Summary{ClientID: id, Username: e.participant.Username})
	}
	return out
}

// snapshotByRole captures the channels of every participant with the given
// role so fan-out can run without the registry lock.
func (r *Registry) snapshotByRole(role domain.Role) []snap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]snap, 0, len(r.order))
	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok || e.participant.Role != role {
			continue
		}
		out = append(out, snap{ID: id, Conn: e.conn})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
