package body

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/data"
)

// CompositionRecord is a composition entry with the tissue referenced by
// logical id.
type CompositionRecord struct {
	Tissue      string
	Weight      float64
	DisplayName string
	DisplayID   string
}

// PartRecord is the persisted form of one part. Connectees are not stored;
// they are the inverse of ConnectorID and rebuilt on restore.
type PartRecord struct {
	ID          uuid.UUID
	Kind        Kind
	LogicalID   string
	Name        string
	Surface     float64
	ContainerID uuid.UUID
	Position    int // index among the container's children
	ConnectorID uuid.UUID
	Stump       bool
	Composition []CompositionRecord
}

// Snapshot is the persisted state of a Body. Tissues are kept separately and
// referenced by logical id.
type Snapshot struct {
	Name    string
	RootID  uuid.UUID
	Tissues []data.TissueDef
	Parts   []PartRecord
}

// Snapshot captures the current state of the body. Parts are listed in
// depth-first order.
func (b *Body) Snapshot() Snapshot {
	s := Snapshot{Name: b.name, RootID: b.root}
	for _, t := range b.catalog.All() {
		s.Tissues = append(s.Tissues, data.TissueDef{
			ID:         t.ID,
			Name:       t.Name,
			Pain:       t.Pain,
			BloodFlow:  t.BloodFlow,
			Resistance: t.Resistance,
			Impairment: t.Impairment,
		})
	}
	b.walk(func(p *Part, _ int) {
		r := PartRecord{
			ID:          p.ID,
			Kind:        p.Kind,
			LogicalID:   p.LogicalID,
			Name:        p.Name,
			Surface:     p.Surface,
			ContainerID: p.ContainerID,
			ConnectorID: p.ConnectorID,
			Stump:       p.Stump,
		}
		if c := b.parts[p.ContainerID]; c != nil {
			for i, cid := range c.Children {
				if cid == p.ID {
					r.Position = i
				}
			}
		}
		for _, e := range p.Composition {
			r.Composition = append(r.Composition, CompositionRecord{
				Tissue:      e.Tissue.ID,
				Weight:      e.Weight,
				DisplayName: e.DisplayName,
				DisplayID:   e.DisplayID,
			})
		}
		s.Parts = append(s.Parts, r)
	})
	return s
}

// Restore rebuilds a Body from a snapshot. Compositions are stored already
// expanded, so symmetry is not applied again. The result is validated; a
// snapshot that breaks a registry invariant is rejected as a whole.
func Restore(s Snapshot, log *zap.Logger) (*Body, error) {
	catalog, err := NewCatalog(s.Tissues)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.Name, err)
	}
	b := newBody(s.Name, catalog, log)
	if s.RootID == uuid.Nil {
		if len(s.Parts) != 0 {
			return nil, fmt.Errorf("restore %s: parts without root: %w", s.Name, ErrCorruptSnapshot)
		}
		b.destroyed = true
		return b, nil
	}
	b.root = s.RootID

	for _, r := range s.Parts {
		if _, dup := b.parts[r.ID]; dup {
			return nil, fmt.Errorf("restore %s: part %s twice: %w", s.Name, r.ID, ErrCorruptSnapshot)
		}
		p := &Part{
			ID:          r.ID,
			Kind:        r.Kind,
			LogicalID:   r.LogicalID,
			Name:        r.Name,
			Surface:     r.Surface,
			ContainerID: r.ContainerID,
			ConnectorID: r.ConnectorID,
			Stump:       r.Stump,
		}
		for _, cr := range r.Composition {
			t, err := catalog.Resolve(cr.Tissue)
			if err != nil {
				return nil, fmt.Errorf("restore %s: organ %s: %w", s.Name, r.LogicalID, err)
			}
			p.Composition = append(p.Composition, CompositionEntry{
				Tissue:      t,
				Weight:      cr.Weight,
				DisplayName: cr.DisplayName,
				DisplayID:   cr.DisplayID,
			})
		}
		b.parts[p.ID] = p
	}

	ordered := append([]PartRecord(nil), s.Parts...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	for _, r := range ordered {
		if r.ContainerID != uuid.Nil {
			c := b.parts[r.ContainerID]
			if c == nil {
				return nil, fmt.Errorf("restore %s: part %s: container %s: %w", s.Name, r.LogicalID, r.ContainerID, ErrDanglingReference)
			}
			c.addChild(r.ID)
		}
	}
	for _, r := range s.Parts {
		if r.ConnectorID != uuid.Nil {
			c := b.parts[r.ConnectorID]
			if c == nil {
				return nil, fmt.Errorf("restore %s: organ %s: connector %s: %w", s.Name, r.LogicalID, r.ConnectorID, ErrDanglingReference)
			}
			c.addConnectee(r.ID)
		}
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("restore %s: %v: %w", s.Name, err, ErrCorruptSnapshot)
	}
	return b, nil
}
