package app

import "sync"

// AdmissionGate caps the number of concurrent signaling channels. The HTTP
// adapter consults it before upgrading, so an over-limit channel is refused
// before any join reaches the registry.
type AdmissionGate struct {
	mu     sync.Mutex
	max    int // <= 0 means unlimited
	active int
}

func NewAdmissionGate(max int) *AdmissionGate {
	return &AdmissionGate{max: max}
}

// Acquire claims a slot. The caller must Release exactly once when the
// channel goes away, whether or not a join ever happened.
func (g *AdmissionGate) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.max > 0 && g.active >= g.max {
		return false
	}
	g.active++
	return true
}

func (g *AdmissionGate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active > 0 {
		g.active--
	}
}

func (g *AdmissionGate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
