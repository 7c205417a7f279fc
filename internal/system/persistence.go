package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/component"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	"github.com/rmdgo/anatomy/internal/core/event"
	coresys "github.com/rmdgo/anatomy/internal/core/system"
	"github.com/rmdgo/anatomy/internal/persist"
	"github.com/rmdgo/anatomy/internal/telemetry"
)

// SnapshotStore saves body snapshots. Implemented by persist.BodyRepo.
type SnapshotStore interface {
	Save(ctx context.Context, key string, s body.Snapshot) error
}

// Journal records applied removals. Implemented by persist.JournalRepo.
type Journal interface {
	Append(ctx context.Context, entries []persist.JournalEntry) error
	MarkFlushed(ctx context.Context, run, key string, through int64) error
}

// PersistenceSystem journals every removal and saves the snapshots of
// changed creatures every interval ticks. A creature whose body was destroyed
// is saved in the same tick, before cleanup drops it. Phase 3 (Persist).
//
// Journal entries carry the id of the run that wrote them; a save only
// flushes entries of its own run. Entries an earlier run wrote after its
// last save stay pending, since no snapshot holds those removals.
type PersistenceSystem struct {
	deps      *Deps
	run       string
	store     SnapshotStore
	journal   Journal
	metrics   *telemetry.Metrics // optional
	interval  int                // save every N ticks, 0 = only destroyed bodies and SaveAll
	tick      int64
	tickCount int
	pending   []persist.JournalEntry
	saved     map[string]int64 // key -> tick of the last saved snapshot
}

func NewPersistenceSystem(deps *Deps, store SnapshotStore, journal Journal, m *telemetry.Metrics, intervalTicks int) *PersistenceSystem {
	s := &PersistenceSystem{
		deps:     deps,
		run:      uuid.NewString(),
		store:    store,
		journal:  journal,
		metrics:  m,
		interval: intervalTicks,
		saved:    make(map[string]int64),
	}
	event.Subscribe(deps.Bus, func(e event.PartsRemoved) {
		s.pending = append(s.pending, persist.JournalEntry{
			Run:       s.run,
			BodyKey:   e.Key,
			Tick:      e.Tick,
			Target:    e.Target,
			Removed:   len(e.Removal.Removed),
			Pruned:    len(e.Removal.Pruned),
			Destroyed: e.Removal.BodyDestroyed,
		})
	})
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Run returns the id stamped on this run's journal entries.
func (s *PersistenceSystem) Run() string { return s.run }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tick++
	s.flushJournal()

	s.tickCount++
	due := s.interval > 0 && s.tickCount >= s.interval
	if due {
		s.tickCount = 0
	}
	s.save(func(c *component.Creature, destroyed bool) bool {
		return c.Dirty && (due || destroyed)
	})
}

// SaveAll persists every creature immediately, ignoring dirty flags.
// Called for graceful shutdown.
func (s *PersistenceSystem) SaveAll() {
	s.flushJournal()
	s.save(func(*component.Creature, bool) bool { return true })
}

func (s *PersistenceSystem) flushJournal() {
	if len(s.pending) == 0 {
		return
	}
	// Removals are delivered a tick late; those already covered by a saved
	// snapshot go in flushed.
	for i := range s.pending {
		e := &s.pending[i]
		e.Flushed = e.Tick <= s.saved[e.BodyKey]
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.journal.Append(ctx, s.pending); err != nil {
		s.deps.Log.Error("journal write failed", zap.Int("entries", len(s.pending)), zap.Error(err))
		return
	}
	s.pending = s.pending[:0]
}

func (s *PersistenceSystem) save(want func(c *component.Creature, destroyed bool) bool) {
	count := 0
	ecs.Each2(s.deps.Creatures, s.deps.Bodies, func(_ ecs.EntityID, c *component.Creature, g *body.Guarded) {
		var destroyed bool
		g.With(func(b *body.Body) { destroyed = b.Destroyed() })
		if !want(c, destroyed) {
			return
		}
		snap := g.Snapshot()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.store.Save(ctx, c.Key, snap); err != nil {
			s.deps.Log.Error("snapshot save failed", zap.String("creature", c.Key), zap.Error(err))
			return
		}
		s.saved[c.Key] = s.tick
		if err := s.journal.MarkFlushed(ctx, s.run, c.Key, s.tick); err != nil {
			s.deps.Log.Error("journal flush failed", zap.String("creature", c.Key), zap.Error(err))
		}
		c.Dirty = false
		count++
		if s.metrics != nil {
			s.metrics.SnapshotsSaved.Inc()
		}
	})
	if count > 0 {
		s.deps.Log.Debug("snapshots saved", zap.Int("count", count), zap.Int64("tick", s.tick))
	}
}
