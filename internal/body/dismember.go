package body

import (
	"math/rand"

	"github.com/google/uuid"
)

// Candidate is a part that can be chosen as a dismemberment target.
type Candidate struct {
	ID        uuid.UUID
	LogicalID string
	Name      string
	Kind      Kind
	Depth     int
	Surface   float64 // absolute
}

// Candidates lists every removable part (everything but the root) in
// depth-first order.
func (b *Body) Candidates() []Candidate {
	var out []Candidate
	b.walk(func(p *Part, depth int) {
		if depth == 0 {
			return
		}
		out = append(out, Candidate{
			ID:        p.ID,
			LogicalID: p.LogicalID,
			Name:      p.Name,
			Kind:      p.Kind,
			Depth:     depth,
			Surface:   b.AbsoluteSurface(p.ID),
		})
	})
	return out
}

// ChooseWeighted picks a candidate with probability proportional to its
// absolute surface. When every surface is zero the pick is uniform.
// Returns false for an empty list.
func ChooseWeighted(cands []Candidate, rng *rand.Rand) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	var total float64
	for _, c := range cands {
		total += c.Surface
	}
	if total <= 0 {
		return cands[rng.Intn(len(cands))], true
	}
	roll := rng.Float64() * total
	for _, c := range cands {
		roll -= c.Surface
		if roll < 0 {
			return c, true
		}
	}
	return cands[len(cands)-1], true
}

// RemoveRandom removes one part chosen by ChooseWeighted.
func (b *Body) RemoveRandom(rng *rand.Rand) (Removal, error) {
	c, ok := ChooseWeighted(b.Candidates(), rng)
	if !ok {
		return Removal{}, nil
	}
	return b.Remove(c.ID)
}
