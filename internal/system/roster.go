package system

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/core/event"
)

// Roster indexes live bodies by creature key for readers outside the
// simulation goroutine. It follows BodyBuilt and BodyDestroyed events, so it
// lags the simulation by one tick.
type Roster struct {
	mu     sync.RWMutex
	bodies map[string]*body.Guarded
}

func NewRoster(deps *Deps) *Roster {
	r := &Roster{bodies: make(map[string]*body.Guarded)}
	event.Subscribe(deps.Bus, func(e event.BodyBuilt) {
		g, ok := deps.Bodies.Get(e.Entity)
		if !ok {
			return // destroyed before the event was delivered
		}
		r.mu.Lock()
		r.bodies[e.Key] = g
		r.mu.Unlock()
	})
	event.Subscribe(deps.Bus, func(e event.BodyDestroyed) {
		r.mu.Lock()
		delete(r.bodies, e.Key)
		r.mu.Unlock()
	})
	return r
}

// Keys returns the creature keys in order.
func (r *Roster) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.bodies))
	for k := range r.bodies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Roster) Get(key string) (*body.Guarded, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.bodies[key]
	return g, ok
}

// ServeHTTP lists the live creatures, or with ?key= prints one body's
// display list; &format=dot switches to a Graphviz map.
func (r *Roster) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	key := req.URL.Query().Get("key")
	if key == "" {
		for _, k := range r.Keys() {
			fmt.Fprintln(w, k)
		}
		return
	}
	g, ok := r.Get(key)
	if !ok {
		http.Error(w, "unknown creature "+key, http.StatusNotFound)
		return
	}
	if req.URL.Query().Get("format") == "dot" {
		var err error
		g.With(func(b *body.Body) { err = b.WriteDOT(w) })
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	for _, e := range g.DisplayList() {
		fmt.Fprintln(w, e.Text)
	}
}
