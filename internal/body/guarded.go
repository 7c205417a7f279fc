package body

import "sync"

// Guarded serialises access to a Body shared between goroutines. Removal
// reads and writes both relation sets in several steps, so one lock covers
// each whole call, including reads that rebuild a cache.
type Guarded struct {
	mu   sync.Mutex
	body *Body
}

func NewGuarded(b *Body) *Guarded {
	return &Guarded{body: b}
}

func (g *Guarded) DisplayList() []DisplayEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]DisplayEntry(nil), g.body.DisplayList()...)
}

func (g *Guarded) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.body.Snapshot()
}

// With runs fn while holding the lock.
func (g *Guarded) With(fn func(b *Body)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.body)
}
