package event

import (
	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/core/ecs"
)

// BodyBuilt is emitted when a creature receives a body, built or restored.
type BodyBuilt struct {
	Entity ecs.EntityID
	Key    string
	Parts  int
}

// PartsRemoved is emitted for every removal that erased something.
type PartsRemoved struct {
	Entity   ecs.EntityID
	Key      string
	Tick     int64
	Target   string // logical id
	Removal  body.Removal
	Kinds    map[body.Kind]int // erased parts per kind
	Severity float64
}

// BodyDestroyed is emitted when a creature's last part is gone.
type BodyDestroyed struct {
	Entity ecs.EntityID
	Key    string
	Tick   int64
}
