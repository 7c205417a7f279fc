package system

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/component"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	"github.com/rmdgo/anatomy/internal/core/event"
	coresys "github.com/rmdgo/anatomy/internal/core/system"
)

// TargetChooser decides which part a hit severs and how bad the result was.
// Implemented by scripting.Engine.
type TargetChooser interface {
	ChooseTarget(cands []body.Candidate, rng *rand.Rand) (body.Candidate, bool)
	Severity(r body.Removal) float64
}

// WeightedChooser picks by absolute surface and scores by parts removed.
type WeightedChooser struct{}

func (WeightedChooser) ChooseTarget(cands []body.Candidate, rng *rand.Rand) (body.Candidate, bool) {
	return body.ChooseWeighted(cands, rng)
}

func (WeightedChooser) Severity(r body.Removal) float64 { return float64(len(r.Removed)) }

// DismemberSystem lands at most one hit per creature per tick. A hit
// removes the chosen part and everything downstream of it. Phase 1 (Update).
type DismemberSystem struct {
	deps    *Deps
	chooser TargetChooser
	rng     *rand.Rand
	chance  float64 // probability of a hit per creature per tick
	tick    int64
}

func NewDismemberSystem(deps *Deps, chooser TargetChooser, rng *rand.Rand, chance float64) *DismemberSystem {
	if chooser == nil {
		chooser = WeightedChooser{}
	}
	return &DismemberSystem{deps: deps, chooser: chooser, rng: rng, chance: chance}
}

func (s *DismemberSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *DismemberSystem) Update(_ time.Duration) {
	s.tick++
	ecs.Each2(s.deps.Creatures, s.deps.Bodies, func(id ecs.EntityID, c *component.Creature, g *body.Guarded) {
		if s.rng.Float64() >= s.chance {
			return
		}
		g.With(func(b *body.Body) {
			s.hit(id, c, b)
		})
	})
}

func (s *DismemberSystem) hit(id ecs.EntityID, c *component.Creature, b *body.Body) {
	if b.Destroyed() {
		return
	}
	target, ok := s.chooser.ChooseTarget(b.Candidates(), s.rng)
	if !ok {
		return
	}

	kinds := map[body.Kind]int{target.Kind: 1}
	for _, pid := range b.Downstream(target.ID) {
		kinds[b.Get(pid).Kind]++
	}

	res, err := b.Remove(target.ID)
	if err != nil {
		s.deps.Log.Error("dismember failed",
			zap.String("creature", c.Key), zap.String("part", target.LogicalID), zap.Error(err))
		return
	}
	if res.Empty() {
		return
	}
	kinds[body.KindContainer] += len(res.Pruned)

	severity := s.chooser.Severity(res)
	c.Removals++
	c.Severity += severity
	c.Dirty = true

	event.Emit(s.deps.Bus, event.PartsRemoved{
		Entity:   id,
		Key:      c.Key,
		Tick:     s.tick,
		Target:   target.LogicalID,
		Removal:  res,
		Kinds:    kinds,
		Severity: severity,
	})
	s.deps.Log.Info("part severed",
		zap.String("creature", c.Key),
		zap.String("part", target.Name),
		zap.Int("removed", len(res.Removed)),
		zap.Int("pruned", len(res.Pruned)),
		zap.Float64("severity", severity),
	)

	if res.BodyDestroyed {
		event.Emit(s.deps.Bus, event.BodyDestroyed{Entity: id, Key: c.Key, Tick: s.tick})
		s.deps.World.MarkForDestruction(id)
		s.deps.Log.Info("body destroyed", zap.String("creature", c.Key), zap.Int64("tick", s.tick))
	}
}
