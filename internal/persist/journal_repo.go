package persist

import (
	"context"
	"fmt"
)

// JournalEntry records one applied removal. Ticks count from the start of
// the run that wrote the entry, so they only compare within one run.
type JournalEntry struct {
	Run       string `db:"run_id"`
	BodyKey   string `db:"body_key"`
	Tick      int64  `db:"tick"`
	Target    string `db:"target"` // logical id of the removed part
	Removed   int    `db:"removed"`
	Pruned    int    `db:"pruned"`
	Destroyed bool   `db:"destroyed"`
	Flushed   bool   `db:"flushed"` // already covered by a saved snapshot
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append writes a batch of entries in a single transaction.
func (r *JournalRepo) Append(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.X.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO removal_journal (run_id, body_key, tick, target, removed, pruned, destroyed, flushed)
			 VALUES (:run_id, :body_key, :tick, :target, :removed, :pruned, :destroyed, :flushed)`, e,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit()
}

// MarkFlushed marks the pending entries that run wrote for key, up to and
// including tick through, as covered by a saved snapshot. Entries of other
// runs are left alone.
func (r *JournalRepo) MarkFlushed(ctx context.Context, run, key string, through int64) error {
	_, err := r.db.X.ExecContext(ctx, r.db.X.Rebind(
		`UPDATE removal_journal SET flushed = TRUE
		 WHERE run_id = ? AND body_key = ? AND tick <= ? AND flushed = FALSE`), run, key, through)
	if err != nil {
		return fmt.Errorf("journal flush %s: %w", key, err)
	}
	return nil
}

// Pending returns the entries of key not yet covered by a snapshot, oldest
// first.
func (r *JournalRepo) Pending(ctx context.Context, key string) ([]JournalEntry, error) {
	var out []JournalEntry
	err := r.db.X.SelectContext(ctx, &out, r.db.X.Rebind(
		`SELECT run_id, body_key, tick, target, removed, pruned, destroyed, flushed
		 FROM removal_journal WHERE body_key = ? AND flushed = FALSE ORDER BY id`), key)
	if err != nil {
		return nil, fmt.Errorf("journal pending %s: %w", key, err)
	}
	return out, nil
}
