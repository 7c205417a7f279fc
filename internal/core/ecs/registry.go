package ecs

// Registry tracks the component stores of a World.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
