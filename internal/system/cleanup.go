package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/rmdgo/anatomy/internal/core/system"
)

// CleanupSystem flushes the deferred creature destruction queue at tick end.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	deps *Deps
}

func NewCleanupSystem(deps *Deps) *CleanupSystem {
	return &CleanupSystem{deps: deps}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, id := range s.deps.World.FlushDestroyQueue() {
		s.deps.Log.Debug("creature removed", zap.Stringer("entity", id))
	}
}
