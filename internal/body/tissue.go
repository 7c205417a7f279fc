package body

import (
	"fmt"
	"sort"

	"github.com/rmdgo/anatomy/internal/data"
)

// Tissue is a catalog archetype such as skin or bone. Tissues are
// generalised: the muscle of the right leg is the same Tissue as the muscle
// of the head. Never copied once loaded; composition entries point at it.
type Tissue struct {
	ID         string
	Name       string
	Pain       float64 // pain caused when destroyed
	BloodFlow  float64 // blood loss when destroyed
	Resistance float64 // how much it slows an intruding object
	Impairment float64 // how much damage to it impairs the owner
}

// Catalog is the tissue table of one body.
type Catalog struct {
	byID map[string]*Tissue
}

// NewCatalog loads the catalog once from tissue definitions.
func NewCatalog(defs []data.TissueDef) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Tissue, len(defs))}
	for i := range defs {
		d := &defs[i]
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("tissue #%d: id and name are mandatory: %w", i, ErrMalformedDefinition)
		}
		if !(d.Pain >= 0) || !(d.BloodFlow >= 0) || !(d.Resistance >= 0) || !(d.Impairment >= 0) {
			return nil, fmt.Errorf("tissue %s: negative or NaN property: %w", d.ID, ErrMalformedDefinition)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("tissue %s: %w", d.ID, ErrDuplicateTissueID)
		}
		c.byID[d.ID] = &Tissue{
			ID:         d.ID,
			Name:       d.Name,
			Pain:       d.Pain,
			BloodFlow:  d.BloodFlow,
			Resistance: d.Resistance,
			Impairment: d.Impairment,
		}
	}
	return c, nil
}

// Resolve returns the tissue with the given id.
func (c *Catalog) Resolve(id string) (*Tissue, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("tissue %q: %w", id, ErrUnknownTissue)
	}
	return t, nil
}

// Count returns the number of tissues loaded.
func (c *Catalog) Count() int {
	return len(c.byID)
}

// All returns the tissues sorted by id.
func (c *Catalog) All() []*Tissue {
	out := make([]*Tissue, 0, len(c.byID))
	for _, t := range c.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
