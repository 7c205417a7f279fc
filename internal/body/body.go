package body

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Body owns every Part of one creature through a single store keyed by
// unique id. Containment and connector edges are ids into that store, so
// the Body alone decides when a Part stops existing.
//
// A Body is not safe for concurrent use; see Guarded.
type Body struct {
	name    string
	parts   map[uuid.UUID]*Part
	root    uuid.UUID
	catalog *Catalog
	log     *zap.Logger

	// Derived caches, invalidated by every structural mutation.
	byLogical    map[string]uuid.UUID
	indexFresh   bool
	display      []DisplayEntry
	displayFresh bool

	destroyed bool
}

func newBody(name string, catalog *Catalog, log *zap.Logger) *Body {
	if log == nil {
		log = zap.NewNop()
	}
	return &Body{
		name:    name,
		parts:   make(map[uuid.UUID]*Part, 64),
		catalog: catalog,
		log:     log,
	}
}

// Name returns the name of the body definition this body was built from.
func (b *Body) Name() string { return b.name }

// Catalog returns the tissue catalog shared by all organs of this body.
func (b *Body) Catalog() *Catalog { return b.catalog }

// Len returns the number of live parts.
func (b *Body) Len() int { return len(b.parts) }

// Destroyed reports whether nothing is left of the body.
func (b *Body) Destroyed() bool { return b.destroyed }

// Get returns the part with the given unique id, or nil if absent.
func (b *Body) Get(id uuid.UUID) *Part {
	return b.parts[id]
}

// Root returns the top of the containment tree, or nil once destroyed.
func (b *Body) Root() *Part {
	return b.parts[b.root]
}

// GetByLogicalID returns the part declared with the given logical id, or
// nil. The logical-id index is refreshed automatically if a mutation has
// happened since it was last built. When several live parts share a logical
// id the first one in depth-first order wins.
func (b *Body) GetByLogicalID(id string) *Part {
	if !b.indexFresh {
		b.RefreshIndex()
	}
	uid, ok := b.byLogical[id]
	if !ok {
		return nil
	}
	return b.parts[uid]
}

// RefreshIndex rebuilds the logical-id index from the store.
func (b *Body) RefreshIndex() {
	idx := make(map[string]uuid.UUID, len(b.parts))
	b.walk(func(p *Part, _ int) {
		if _, seen := idx[p.LogicalID]; !seen {
			idx[p.LogicalID] = p.ID
		}
	})
	// Parts not yet linked into the tree (mid-build) are indexed too.
	for id, p := range b.parts {
		if _, seen := idx[p.LogicalID]; !seen {
			idx[p.LogicalID] = id
		}
	}
	b.byLogical = idx
	b.indexFresh = true
}

// Each calls fn for every live part in depth-first containment order.
func (b *Body) Each(fn func(p *Part, depth int)) {
	b.walk(fn)
}

// Organs returns every live organ in depth-first order.
func (b *Body) Organs() []*Part {
	var out []*Part
	b.walk(func(p *Part, _ int) {
		if p.IsOrgan() {
			out = append(out, p)
		}
	})
	return out
}

func (b *Body) walk(fn func(p *Part, depth int)) {
	root := b.parts[b.root]
	if root == nil {
		return
	}
	var visit func(p *Part, depth int)
	visit = func(p *Part, depth int) {
		fn(p, depth)
		for _, cid := range p.Children {
			if c := b.parts[cid]; c != nil {
				visit(c, depth+1)
			}
		}
	}
	visit(root, 0)
}

func (b *Body) invalidate() {
	b.indexFresh = false
	b.displayFresh = false
	b.display = nil
}

func (b *Body) store(p *Part) {
	b.parts[p.ID] = p
	b.invalidate()
}

// Validate checks the registry invariants: a single containment tree rooted
// at the root container with mutual parent/child edges and no empty
// containers, and a connector forest whose connector and connectee edges are
// mutual inverses.
func (b *Body) Validate() error {
	if b.destroyed {
		if len(b.parts) != 0 {
			return fmt.Errorf("destroyed body still holds %d parts", len(b.parts))
		}
		return nil
	}
	root := b.parts[b.root]
	if root == nil {
		return fmt.Errorf("root %s not in store", b.root)
	}
	if !root.IsContainer() {
		return fmt.Errorf("root %s is not a body part", root.LogicalID)
	}
	if root.ContainerID != uuid.Nil {
		return fmt.Errorf("root %s has a container", root.LogicalID)
	}

	reached := make(map[uuid.UUID]bool, len(b.parts))
	var visit func(p *Part) error
	visit = func(p *Part) error {
		if reached[p.ID] {
			return fmt.Errorf("part %s reached twice", p.LogicalID)
		}
		reached[p.ID] = true
		if p.IsContainer() {
			if len(p.Children) == 0 {
				return fmt.Errorf("body part %s is empty", p.LogicalID)
			}
			for _, cid := range p.Children {
				c := b.parts[cid]
				if c == nil {
					return fmt.Errorf("body part %s: child %s not in store", p.LogicalID, cid)
				}
				if c.ContainerID != p.ID {
					return fmt.Errorf("part %s: container edge does not match %s", c.LogicalID, p.LogicalID)
				}
				if err := visit(c); err != nil {
					return err
				}
			}
		} else if len(p.Children) != 0 {
			return fmt.Errorf("organ %s has children", p.LogicalID)
		}
		return nil
	}
	if err := visit(root); err != nil {
		return err
	}
	if len(reached) != len(b.parts) {
		return fmt.Errorf("%d parts unreachable from root", len(b.parts)-len(reached))
	}

	for _, p := range b.parts {
		if p.Kind != KindContainer && p.Kind != KindOrgan {
			return fmt.Errorf("part %s has unknown kind %d", p.LogicalID, int(p.Kind))
		}
		if !p.IsOrgan() {
			if p.ConnectorID != uuid.Nil || len(p.Connectees) != 0 {
				return fmt.Errorf("body part %s has connector edges", p.LogicalID)
			}
			continue
		}
		if len(p.Composition) == 0 {
			return fmt.Errorf("organ %s has no tissues", p.LogicalID)
		}
		if p.ConnectorID != uuid.Nil {
			c := b.parts[p.ConnectorID]
			if c == nil || !c.IsOrgan() {
				return fmt.Errorf("organ %s: connector %s is not a live organ", p.LogicalID, p.ConnectorID)
			}
			if !slices.Contains(c.Connectees, p.ID) {
				return fmt.Errorf("organ %s missing from connectees of %s", p.LogicalID, c.LogicalID)
			}
		}
		for _, eid := range p.Connectees {
			e := b.parts[eid]
			if e == nil || e.ConnectorID != p.ID {
				return fmt.Errorf("organ %s: connectee %s does not point back", p.LogicalID, eid)
			}
		}
		// Walking upstream must reach a root organ within len(parts) steps.
		cur, steps := p, 0
		for cur.ConnectorID != uuid.Nil {
			cur = b.parts[cur.ConnectorID]
			steps++
			if cur == nil {
				return fmt.Errorf("organ %s: broken connector chain", p.LogicalID)
			}
			if steps > len(b.parts) {
				return fmt.Errorf("organ %s: connector cycle", p.LogicalID)
			}
		}
	}
	return nil
}
