package body

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/data"
)

// containerLink is a pending containment edge recorded during descent.
type containerLink struct {
	child  uuid.UUID
	parent uuid.UUID
}

// connectorLink is a pending connector edge. The connector is known only by
// logical id until every organ exists.
type connectorLink struct {
	organ     uuid.UUID
	connector string
}

type builder struct {
	body       *Body
	seen       map[string]string // logical id -> path of first declaration
	containers []containerLink
	connectors []connectorLink
}

// Build constructs a Body from a body definition. Construction runs in two
// phases: a depth-first descent creates every part and records pending
// edges, then a resolution pass links them. Connectors may therefore name
// organs declared later in the file.
//
// Any failure abandons the whole body; no partially linked Body is returned.
func Build(def *data.BodyDefinition, log *zap.Logger) (*Body, error) {
	if def == nil {
		return nil, fmt.Errorf("nil definition: %w", ErrMalformedDefinition)
	}
	catalog, err := NewCatalog(def.Tissues)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	b := &builder{
		body: newBody(def.Name, catalog, log),
		seen: make(map[string]string),
	}

	root, err := b.descend(&def.Body, uuid.Nil, def.Body.ID)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	b.body.root = root

	if err := b.link(); err != nil {
		return nil, fmt.Errorf("build %s: %w", def.Name, err)
	}
	if err := b.body.Validate(); err != nil {
		return nil, fmt.Errorf("build %s: %v: %w", def.Name, err, ErrMalformedDefinition)
	}

	b.body.log.Debug("body built",
		zap.String("body", def.Name),
		zap.Int("parts", b.body.Len()),
		zap.Int("tissues", catalog.Count()),
	)
	return b.body, nil
}

// descend creates the container for def and everything below it.
func (b *builder) descend(def *data.PartDef, parent uuid.UUID, path string) (uuid.UUID, error) {
	if def.ID == "" || def.Name == "" {
		return uuid.Nil, fmt.Errorf("body part %q: id and name are mandatory: %w", path, ErrMalformedDefinition)
	}
	if len(def.Parts) > 0 && len(def.Organs) > 0 {
		return uuid.Nil, fmt.Errorf("body part %s holds both body parts and organs: %w", path, ErrMalformedDefinition)
	}
	if len(def.Parts) == 0 && len(def.Organs) == 0 {
		return uuid.Nil, fmt.Errorf("body part %s: no body part and no organ definition: %w", path, ErrMalformedDefinition)
	}
	if err := b.claim(def.ID, path); err != nil {
		return uuid.Nil, err
	}

	c := newContainer(def.ID, def.Name, def.Surface)
	b.body.store(c)
	if parent != uuid.Nil {
		b.containers = append(b.containers, containerLink{child: c.ID, parent: parent})
	}
	b.body.log.Debug("body part created",
		zap.String("id", def.ID), zap.String("name", def.Name), zap.Float64("surface", def.Surface))

	for i := range def.Parts {
		sub := &def.Parts[i]
		if _, err := b.descend(sub, c.ID, path+"/"+sub.ID); err != nil {
			return uuid.Nil, err
		}
	}
	for i := range def.Organs {
		if err := b.organ(&def.Organs[i], c.ID, path); err != nil {
			return uuid.Nil, err
		}
	}
	return c.ID, nil
}

func (b *builder) organ(def *data.OrganDef, parent uuid.UUID, path string) error {
	path = path + "/" + def.ID
	if def.ID == "" || def.Name == "" || def.Connector == "" {
		return fmt.Errorf("organ %q: id, name and connector are mandatory: %w", path, ErrMalformedDefinition)
	}
	if err := b.claim(def.ID, path); err != nil {
		return err
	}
	comp, err := resolveComposition(b.body.catalog, def.Tissue)
	if err != nil {
		return fmt.Errorf("organ %s: %w", path, err)
	}

	o := newOrgan(def.ID, def.Name, def.Surface, comp)
	b.body.store(o)
	b.containers = append(b.containers, containerLink{child: o.ID, parent: parent})
	if !def.IsRoot() {
		b.connectors = append(b.connectors, connectorLink{organ: o.ID, connector: def.Connector})
	}
	b.body.log.Debug("organ created",
		zap.String("id", def.ID),
		zap.String("connector", def.Connector),
		zap.Int("tissues", len(comp)),
		zap.Bool("symmetrical", def.Tissue.Symmetrical),
	)
	return nil
}

// claim reserves a logical id; connectors are resolved by logical id, so
// two parts sharing one would make linking ambiguous.
func (b *builder) claim(id, path string) error {
	if data.IsRootMarker(id) {
		return fmt.Errorf("part id %s at %s is reserved for root organs: %w", id, path, ErrMalformedDefinition)
	}
	if first, dup := b.seen[id]; dup {
		return fmt.Errorf("part id %s declared at %s and %s: %w", id, first, path, ErrMalformedDefinition)
	}
	b.seen[id] = path
	return nil
}

// link resolves the pending edges recorded by descend.
func (b *builder) link() error {
	body := b.body
	for _, l := range b.containers {
		child, parent := body.Get(l.child), body.Get(l.parent)
		if child == nil || parent == nil {
			return fmt.Errorf("container link %s -> %s: %w", l.child, l.parent, ErrDanglingReference)
		}
		child.ContainerID = parent.ID
		parent.addChild(child.ID)
	}

	body.RefreshIndex()
	for _, l := range b.connectors {
		organ := body.Get(l.organ)
		if organ == nil {
			return fmt.Errorf("connector link %s: %w", l.organ, ErrDanglingReference)
		}
		conn := body.GetByLogicalID(l.connector)
		if conn == nil {
			return fmt.Errorf("organ %s: connector %q: %w", organ.LogicalID, l.connector, ErrDanglingReference)
		}
		if !conn.IsOrgan() {
			return fmt.Errorf("organ %s: connector %s is a body part: %w", organ.LogicalID, conn.LogicalID, ErrMalformedDefinition)
		}
		if conn.ID == organ.ID {
			return fmt.Errorf("organ %s connects to itself: %w", organ.LogicalID, ErrMalformedDefinition)
		}
		organ.ConnectorID = conn.ID
		conn.addConnectee(organ.ID)
		body.log.Debug("organ linked",
			zap.String("organ", organ.LogicalID), zap.String("connector", conn.LogicalID))
	}
	body.invalidate()
	return nil
}
