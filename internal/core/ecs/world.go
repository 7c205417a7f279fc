package ecs

// World owns the creature pool, the component registry and the deferred
// destruction queue. Creatures whose body is gone are marked during the tick
// and flushed by the cleanup system at its end.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		queued:   make(map[EntityID]struct{}),
	}
}

func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Marking the
// same entity twice queues it once.
func (w *World) MarkForDestruction(id EntityID) {
	if _, ok := w.queued[id]; ok {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending returns the number of entities waiting for cleanup.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and clears their components.
// Returns the destroyed ids in marking order.
func (w *World) FlushDestroyQueue() []EntityID {
	flushed := make([]EntityID, 0, len(w.destroyQueue))
	for _, id := range w.destroyQueue {
		if w.pool.Alive(id) {
			w.registry.RemoveAll(id)
			w.pool.Destroy(id)
			flushed = append(flushed, id)
		}
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	return flushed
}
