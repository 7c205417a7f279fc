package body

import (
	"strings"

	"github.com/google/uuid"
)

// IndentUnit prefixes display text once per level of depth.
const IndentUnit = "  "

// DisplayEntry is one line of the flattened part list shown by a body
// browser. Depth 0 is the root body part.
type DisplayEntry struct {
	ID    uuid.UUID
	Text  string
	Depth int
	Kind  Kind
}

// DisplayList returns the body as a depth-first list of entries. The list is
// cached until the next structural mutation; callers must not modify it.
func (b *Body) DisplayList() []DisplayEntry {
	if b.displayFresh {
		return b.display
	}
	list := make([]DisplayEntry, 0, len(b.parts))
	b.walk(func(p *Part, depth int) {
		list = append(list, DisplayEntry{
			ID:    p.ID,
			Text:  strings.Repeat(IndentUnit, depth) + p.Name,
			Depth: depth,
			Kind:  p.Kind,
		})
	})
	b.display = list
	b.displayFresh = true
	return list
}

// TissueView is one composition entry as shown in a detail view.
type TissueView struct {
	ID     string
	Name   string
	Weight float64
}

// Detail holds everything a detail view of one part shows.
type Detail struct {
	ID            uuid.UUID
	LogicalID     string
	Name          string
	Kind          Kind
	Surface       float64
	Absolute      float64
	ContainerName string
	ConnectorName string
	Connectees    []string
	Stump         bool
	Tissues       []TissueView
}

// NoConnector is shown as the connector of a root organ.
const NoConnector = "none (root)"

// Inspect describes the part with the given id.
func (b *Body) Inspect(id uuid.UUID) (Detail, bool) {
	p := b.parts[id]
	if p == nil {
		return Detail{}, false
	}
	d := Detail{
		ID:        p.ID,
		LogicalID: p.LogicalID,
		Name:      p.Name,
		Kind:      p.Kind,
		Surface:   p.Surface,
		Absolute:  b.AbsoluteSurface(id),
	}
	if c := b.parts[p.ContainerID]; c != nil {
		d.ContainerName = c.Name
	}
	if !p.IsOrgan() {
		return d, true
	}
	d.ConnectorName = NoConnector
	if c := b.parts[p.ConnectorID]; c != nil {
		d.ConnectorName = c.Name
	}
	for _, eid := range p.Connectees {
		if e := b.parts[eid]; e != nil {
			d.Connectees = append(d.Connectees, e.Name)
		}
	}
	d.Stump = p.Stump
	for _, e := range p.Composition {
		d.Tissues = append(d.Tissues, TissueView{ID: e.ID(), Name: e.Name(), Weight: e.Weight})
	}
	return d, true
}

// AbsoluteSurface returns the fraction of the whole body's surface the part
// covers: the product of relative surfaces from the part up to, but not
// including, the root. It is 0 for unknown ids.
func (b *Body) AbsoluteSurface(id uuid.UUID) float64 {
	p := b.parts[id]
	if p == nil {
		return 0
	}
	s := 1.0
	for p != nil && p.ID != b.root {
		s *= p.Surface
		p = b.parts[p.ContainerID]
	}
	return s
}
