package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/data"
)

// ErrSnapshotNotFound is returned by Load for an unknown key.
var ErrSnapshotNotFound = errors.New("body snapshot not found")

type bodyRow struct {
	Key       string `db:"body_key"`
	Name      string `db:"name"`
	RootID    string `db:"root_id"`
	Destroyed bool   `db:"destroyed"`
}

type tissueRow struct {
	ID         string  `db:"tissue_id"`
	Name       string  `db:"name"`
	Pain       float64 `db:"pain"`
	BloodFlow  float64 `db:"blood_flow"`
	Resistance float64 `db:"resistance"`
	Impairment float64 `db:"impairment"`
}

type partRow struct {
	ID          string  `db:"part_id"`
	Seq         int     `db:"seq"`
	Kind        int     `db:"kind"`
	LogicalID   string  `db:"logical_id"`
	Name        string  `db:"name"`
	Surface     float64 `db:"surface"`
	ContainerID string  `db:"container_id"`
	Position    int     `db:"position"`
	ConnectorID string  `db:"connector_id"`
	Stump       bool    `db:"is_stump"`
}

type organTissueRow struct {
	PartID      string  `db:"part_id"`
	Seq         int     `db:"seq"`
	TissueID    string  `db:"tissue_id"`
	Weight      float64 `db:"weight"`
	DisplayName string  `db:"display_name"`
	DisplayID   string  `db:"display_id"`
}

// BodyRepo stores body snapshots under a caller-chosen key.
type BodyRepo struct {
	db *DB
}

func NewBodyRepo(db *DB) *BodyRepo {
	return &BodyRepo{db: db}
}

// Save replaces whatever is stored under key with s.
func (r *BodyRepo) Save(ctx context.Context, key string, s body.Snapshot) error {
	tx, err := r.db.X.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: begin: %w", key, err)
	}
	defer tx.Rollback()

	if err := r.deleteTx(ctx, tx, key); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO bodies (body_key, name, root_id, destroyed) VALUES (?, ?, ?, ?)`),
		key, s.Name, idString(s.RootID), s.RootID == uuid.Nil,
	); err != nil {
		return fmt.Errorf("save %s: insert body: %w", key, err)
	}

	insTissue := tx.Rebind(`INSERT INTO body_tissues
		(body_key, tissue_id, name, pain, blood_flow, resistance, impairment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, t := range s.Tissues {
		if _, err := tx.ExecContext(ctx, insTissue,
			key, t.ID, t.Name, t.Pain, t.BloodFlow, t.Resistance, t.Impairment,
		); err != nil {
			return fmt.Errorf("save %s: insert tissue %s: %w", key, t.ID, err)
		}
	}

	insPart := tx.Rebind(`INSERT INTO body_parts
		(body_key, part_id, seq, kind, logical_id, name, surface, container_id, position, connector_id, is_stump)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	insOrganTissue := tx.Rebind(`INSERT INTO body_organ_tissues
		(body_key, part_id, seq, tissue_id, weight, display_name, display_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, p := range s.Parts {
		if _, err := tx.ExecContext(ctx, insPart,
			key, idString(p.ID), i, int(p.Kind), p.LogicalID, p.Name, p.Surface,
			idString(p.ContainerID), p.Position, idString(p.ConnectorID), p.Stump,
		); err != nil {
			return fmt.Errorf("save %s: insert part %s: %w", key, p.LogicalID, err)
		}
		for j, c := range p.Composition {
			if _, err := tx.ExecContext(ctx, insOrganTissue,
				key, idString(p.ID), j, c.Tissue, c.Weight, c.DisplayName, c.DisplayID,
			); err != nil {
				return fmt.Errorf("save %s: insert composition of %s: %w", key, p.LogicalID, err)
			}
		}
	}

	return tx.Commit()
}

// Load reads the snapshot stored under key.
func (r *BodyRepo) Load(ctx context.Context, key string) (body.Snapshot, error) {
	var s body.Snapshot
	x := r.db.X

	var br bodyRow
	err := x.GetContext(ctx, &br, x.Rebind(
		`SELECT body_key, name, root_id, destroyed FROM bodies WHERE body_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("load %s: %w", key, ErrSnapshotNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("load %s: %w", key, err)
	}
	s.Name = br.Name
	if s.RootID, err = parseID(br.RootID); err != nil {
		return s, fmt.Errorf("load %s: root: %w", key, err)
	}

	var tissues []tissueRow
	if err := x.SelectContext(ctx, &tissues, x.Rebind(
		`SELECT tissue_id, name, pain, blood_flow, resistance, impairment
		 FROM body_tissues WHERE body_key = ? ORDER BY tissue_id`), key); err != nil {
		return s, fmt.Errorf("load %s: tissues: %w", key, err)
	}
	for _, t := range tissues {
		s.Tissues = append(s.Tissues, data.TissueDef{
			ID: t.ID, Name: t.Name, Pain: t.Pain, BloodFlow: t.BloodFlow,
			Resistance: t.Resistance, Impairment: t.Impairment,
		})
	}

	var comps []organTissueRow
	if err := x.SelectContext(ctx, &comps, x.Rebind(
		`SELECT part_id, seq, tissue_id, weight, display_name, display_id
		 FROM body_organ_tissues WHERE body_key = ? ORDER BY part_id, seq`), key); err != nil {
		return s, fmt.Errorf("load %s: compositions: %w", key, err)
	}
	byPart := make(map[string][]body.CompositionRecord)
	for _, c := range comps {
		byPart[c.PartID] = append(byPart[c.PartID], body.CompositionRecord{
			Tissue: c.TissueID, Weight: c.Weight, DisplayName: c.DisplayName, DisplayID: c.DisplayID,
		})
	}

	var parts []partRow
	if err := x.SelectContext(ctx, &parts, x.Rebind(
		`SELECT part_id, seq, kind, logical_id, name, surface, container_id, position, connector_id, is_stump
		 FROM body_parts WHERE body_key = ? ORDER BY seq`), key); err != nil {
		return s, fmt.Errorf("load %s: parts: %w", key, err)
	}
	for _, p := range parts {
		rec := body.PartRecord{
			Kind:        body.Kind(p.Kind),
			LogicalID:   p.LogicalID,
			Name:        p.Name,
			Surface:     p.Surface,
			Position:    p.Position,
			Stump:       p.Stump,
			Composition: byPart[p.ID],
		}
		if rec.ID, err = parseID(p.ID); err != nil {
			return s, fmt.Errorf("load %s: part %s: %w", key, p.LogicalID, err)
		}
		if rec.ContainerID, err = parseID(p.ContainerID); err != nil {
			return s, fmt.Errorf("load %s: part %s container: %w", key, p.LogicalID, err)
		}
		if rec.ConnectorID, err = parseID(p.ConnectorID); err != nil {
			return s, fmt.Errorf("load %s: part %s connector: %w", key, p.LogicalID, err)
		}
		s.Parts = append(s.Parts, rec)
	}
	return s, nil
}

// List returns all stored keys in order.
func (r *BodyRepo) List(ctx context.Context) ([]string, error) {
	var keys []string
	if err := r.db.X.SelectContext(ctx, &keys, `SELECT body_key FROM bodies ORDER BY body_key`); err != nil {
		return nil, fmt.Errorf("list bodies: %w", err)
	}
	return keys, nil
}

// Delete removes the snapshot stored under key. Unknown keys are ignored.
func (r *BodyRepo) Delete(ctx context.Context, key string) error {
	tx, err := r.db.X.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete %s: begin: %w", key, err)
	}
	defer tx.Rollback()
	if err := r.deleteTx(ctx, tx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return tx.Commit()
}

// deleteTx clears child tables first so it works whether or not the
// connection enforces ON DELETE CASCADE.
func (r *BodyRepo) deleteTx(ctx context.Context, tx *sqlx.Tx, key string) error {
	for _, table := range []string{"body_organ_tissues", "body_parts", "body_tissues", "bodies"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE body_key = ?`), key); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
