package system

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/component"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	"github.com/rmdgo/anatomy/internal/core/event"
	"github.com/rmdgo/anatomy/internal/data"
)

// Deps is the state shared by all simulation systems.
type Deps struct {
	World     *ecs.World
	Creatures *ecs.PtrComponentStore[component.Creature]
	Bodies    *ecs.PtrComponentStore[body.Guarded]
	Bus       *event.Bus
	Log       *zap.Logger
}

func NewDeps(log *zap.Logger) *Deps {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Deps{
		World:     ecs.NewWorld(),
		Creatures: ecs.NewPtrComponentStore[component.Creature](),
		Bodies:    ecs.NewPtrComponentStore[body.Guarded](),
		Bus:       event.NewBus(),
		Log:       log,
	}
	d.World.Registry().Register(d.Creatures)
	d.World.Registry().Register(d.Bodies)
	return d
}

// Spawn builds a body from def and gives it to a new creature.
func (d *Deps) Spawn(def *data.BodyDefinition, tick int64) (ecs.EntityID, error) {
	b, err := body.Build(def, d.Log)
	if err != nil {
		return 0, fmt.Errorf("spawn %s: %w", def.Name, err)
	}
	id := d.World.CreateEntity()
	d.adopt(id, fmt.Sprintf("%s-%s", def.Name, id), b, tick)
	return id, nil
}

// Adopt gives an existing body, typically restored from a snapshot, to a
// new creature stored under key.
func (d *Deps) Adopt(key string, b *body.Body, tick int64) ecs.EntityID {
	id := d.World.CreateEntity()
	d.adopt(id, key, b, tick)
	return id
}

func (d *Deps) adopt(id ecs.EntityID, key string, b *body.Body, tick int64) {
	d.Creatures.Set(id, &component.Creature{
		Key:     key,
		Species: b.Name(),
		Born:    tick,
	})
	d.Bodies.Set(id, body.NewGuarded(b))
	event.Emit(d.Bus, event.BodyBuilt{Entity: id, Key: key, Parts: b.Len()})
	d.Log.Debug("creature spawned", zap.String("key", key), zap.Int("parts", b.Len()))

	if b.Destroyed() {
		d.World.MarkForDestruction(id)
	}
}
