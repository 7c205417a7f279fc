package body

import (
	"slices"

	"github.com/google/uuid"
)

// Kind distinguishes the two part variants.
type Kind uint8

const (
	KindContainer Kind = iota // body part holding sub-parts or organs
	KindOrgan                 // leaf with tissues and connector edges
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "body part"
	case KindOrgan:
		return "organ"
	}
	return "unknown"
}

// Part is a node of the body. Which fields are meaningful depends on Kind.
// All edges are unique ids into the owning Body; a Part never points at
// another Part directly.
//
// Surface is relative to the immediate container, not to the whole body.
type Part struct {
	ID          uuid.UUID
	LogicalID   string
	Name        string
	Surface     float64
	Kind        Kind
	ContainerID uuid.UUID // uuid.Nil for the root

	// container
	Children []uuid.UUID

	// organ
	Composition []CompositionEntry
	ConnectorID uuid.UUID // uuid.Nil for root organs
	Connectees  []uuid.UUID
	Stump       bool
}

func newContainer(logicalID, name string, surface float64) *Part {
	return &Part{
		ID:        uuid.New(),
		LogicalID: logicalID,
		Name:      name,
		Surface:   surface,
		Kind:      KindContainer,
	}
}

func newOrgan(logicalID, name string, surface float64, comp []CompositionEntry) *Part {
	return &Part{
		ID:          uuid.New(),
		LogicalID:   logicalID,
		Name:        name,
		Surface:     surface,
		Kind:        KindOrgan,
		Composition: comp,
	}
}

func (p *Part) IsContainer() bool { return p.Kind == KindContainer }
func (p *Part) IsOrgan() bool     { return p.Kind == KindOrgan }

// IsRootOrgan reports whether the organ has no connector.
func (p *Part) IsRootOrgan() bool {
	return p.Kind == KindOrgan && p.ConnectorID == uuid.Nil
}

func (p *Part) addChild(id uuid.UUID) {
	p.Children = append(p.Children, id)
}

func (p *Part) removeChild(id uuid.UUID) bool {
	i := slices.Index(p.Children, id)
	if i < 0 {
		return false
	}
	p.Children = slices.Delete(p.Children, i, i+1)
	return true
}

func (p *Part) addConnectee(id uuid.UUID) {
	if !slices.Contains(p.Connectees, id) {
		p.Connectees = append(p.Connectees, id)
	}
}

func (p *Part) removeConnectee(id uuid.UUID) bool {
	i := slices.Index(p.Connectees, id)
	if i < 0 {
		return false
	}
	p.Connectees = slices.Delete(p.Connectees, i, i+1)
	return true
}
