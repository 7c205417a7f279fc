package body

import (
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Removal reports what a Remove call erased.
type Removal struct {
	Target uuid.UUID
	// Removed lists every erased part: the target, its downstream closure
	// and any pruned body parts, in erasure order.
	Removed []uuid.UUID
	// Pruned lists body parts erased because their last child went away.
	Pruned []uuid.UUID
	// Stumped lists surviving organs that lost a connectee.
	Stumped []uuid.UUID
	// BodyDestroyed is set when pruning reached the root.
	BodyDestroyed bool
}

// Empty reports whether nothing was removed.
func (r Removal) Empty() bool { return len(r.Removed) == 0 }

// Remove erases a part together with everything downstream of it: for a
// body part its children, for an organ its connectees, transitively across
// both relations. Surviving parts lose their edges to erased ones, surviving
// connectors are marked as stumps, and body parts left empty are removed in
// turn.
//
// Removing an id that does not exist is a no-op. The root body part cannot
// be removed; use DestroyAll.
func (b *Body) Remove(id uuid.UUID) (Removal, error) {
	p := b.parts[id]
	if p == nil {
		return Removal{}, nil
	}
	if id == b.root {
		return Removal{}, ErrCannotRemoveRoot
	}
	res := Removal{Target: id}
	b.remove(p, &res)
	b.invalidate()

	b.log.Debug("part removed",
		zap.String("part", p.LogicalID),
		zap.Int("removed", len(res.Removed)),
		zap.Int("pruned", len(res.Pruned)),
		zap.Bool("body_destroyed", res.BodyDestroyed),
	)
	return res, nil
}

// RemoveByLogicalID removes the live part declared with the given logical id.
func (b *Body) RemoveByLogicalID(id string) (Removal, error) {
	p := b.GetByLogicalID(id)
	if p == nil {
		return Removal{}, nil
	}
	return b.Remove(p.ID)
}

// DestroyAll erases the whole body.
func (b *Body) DestroyAll() Removal {
	res := Removal{Target: b.root, BodyDestroyed: !b.destroyed}
	b.walk(func(p *Part, _ int) {
		res.Removed = append(res.Removed, p.ID)
	})
	clear(b.parts)
	b.root = uuid.Nil
	b.destroyed = true
	b.invalidate()
	b.log.Debug("body destroyed", zap.String("body", b.name), zap.Int("removed", len(res.Removed)))
	return res
}

func (b *Body) remove(p *Part, res *Removal) {
	doomed := b.downstream(p)
	inDoom := make(map[uuid.UUID]bool, len(doomed))
	for _, id := range doomed {
		inDoom[id] = true
	}

	// Cut every edge from a surviving part to a doomed one. Downstream
	// organs may sit in other body parts, so this covers the whole closure
	// and not only the target's siblings.
	var touched []uuid.UUID
	for _, id := range doomed {
		q := b.parts[id]
		if c := b.parts[q.ContainerID]; c != nil && !inDoom[c.ID] {
			if c.removeChild(q.ID) && !slices.Contains(touched, c.ID) {
				touched = append(touched, c.ID)
			}
		}
		if q.IsOrgan() && q.ConnectorID != uuid.Nil {
			if conn := b.parts[q.ConnectorID]; conn != nil && !inDoom[conn.ID] {
				conn.removeConnectee(q.ID)
				conn.Stump = true
				if !slices.Contains(res.Stumped, conn.ID) {
					res.Stumped = append(res.Stumped, conn.ID)
				}
			}
		}
	}

	for _, id := range doomed {
		delete(b.parts, id)
		res.Removed = append(res.Removed, id)
	}

	for _, cid := range touched {
		c := b.parts[cid]
		if c == nil || len(c.Children) > 0 {
			continue
		}
		res.Pruned = append(res.Pruned, c.ID)
		if c.ID == b.root {
			delete(b.parts, c.ID)
			res.Removed = append(res.Removed, c.ID)
			b.root = uuid.Nil
			b.destroyed = true
			res.BodyDestroyed = true
			continue
		}
		b.remove(c, res)
	}
}

// downstream returns p followed by its transitive closure over children
// and connectees, each id once.
func (b *Body) downstream(p *Part) []uuid.UUID {
	seen := map[uuid.UUID]bool{p.ID: true}
	out := []uuid.UUID{p.ID}
	for i := 0; i < len(out); i++ {
		q := b.parts[out[i]]
		next := q.Children
		if q.IsOrgan() {
			next = q.Connectees
		}
		for _, id := range next {
			if seen[id] || b.parts[id] == nil {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Downstream returns the unique ids that Remove(id) would erase together
// with id, not counting body parts pruned afterwards.
func (b *Body) Downstream(id uuid.UUID) []uuid.UUID {
	p := b.parts[id]
	if p == nil {
		return nil
	}
	return b.downstream(p)[1:]
}
