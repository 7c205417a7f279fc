package persist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/config"
	"github.com/rmdgo/anatomy/internal/data"
)

const armDef = `
name: arm
tissues:
  - { id: BONE, name: Bone, pain: 0.5, blood_flow: 0.1, resistance: 0.9, impairment: 0.7 }
  - { id: SKIN, name: Skin, pain: 0.8, blood_flow: 0.2, resistance: 0.1, impairment: 0.1 }
body:
  id: BODY
  name: Body
  surface: 1
  body_parts:
    - id: TORSO
      name: Torso
      surface: 0.6
      organs:
        - id: CHEST
          name: Chest
          surface: 1
          connector: _ROOT
          organ_tissue:
            tissues: [{ tissue: SKIN, hit_prob: 1 }]
    - id: ARM
      name: Arm
      surface: 0.4
      organs:
        - id: UPPER_ARM
          name: Upper arm
          surface: 0.5
          connector: CHEST
          organ_tissue:
            symmetrical: true
            tissues:
              - { tissue: SKIN, hit_prob: 0.2 }
              - { tissue: BONE, hit_prob: 0.6, name: Humerus, custom_id: HUMERUS }
        - id: HAND
          name: Hand
          surface: 0.5
          connector: UPPER_ARM
          organ_tissue:
            tissues: [{ tissue: BONE, hit_prob: 1 }]
`

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: DialectSQLite, DSN: filepath.Join(t.TempDir(), "test.db")}
	db, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	return db
}

func buildArm(t *testing.T) *body.Body {
	t.Helper()
	def, err := data.ParseBodyDefinition([]byte(armDef))
	if err != nil {
		t.Fatal(err)
	}
	b, err := body.Build(def, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBodyRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewBodyRepo(openTestDB(t))
	b := buildArm(t)

	arm := b.GetByLogicalID("UPPER_ARM")
	if _, err := b.Remove(arm.ID); err != nil {
		t.Fatal(err)
	}
	want := b.Snapshot()

	if err := repo.Save(ctx, "creature-1", want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx, "creature-1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}

	restored, err := body.Restore(got, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(b.DisplayList(), restored.DisplayList()); diff != "" {
		t.Errorf("restored display list (-want +got):\n%s", diff)
	}
}

func TestBodyRepoOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := NewBodyRepo(openTestDB(t))
	b := buildArm(t)

	if err := repo.Save(ctx, "k", b.Snapshot()); err != nil {
		t.Fatal(err)
	}
	b.DestroyAll()
	if err := repo.Save(ctx, "k", b.Snapshot()); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Parts) != 0 {
		t.Errorf("overwritten snapshot still has %d parts", len(got.Parts))
	}
	restored, err := body.Restore(got, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if !restored.Destroyed() {
		t.Errorf("restored body should be destroyed")
	}
}

func TestBodyRepoListDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewBodyRepo(openTestDB(t))
	s := buildArm(t).Snapshot()

	for _, k := range []string{"b", "a", "c"} {
		if err := repo.Save(ctx, k, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "never-saved"); err != nil {
		t.Fatal(err)
	}
	keys, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "c"}, keys); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}

	if _, err := repo.Load(ctx, "b"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load deleted key: err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestJournalRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewJournalRepo(openTestDB(t))

	entries := []JournalEntry{
		{Run: "r1", BodyKey: "x", Tick: 1, Target: "HAND", Removed: 1},
		{Run: "r1", BodyKey: "y", Tick: 1, Target: "ARM", Removed: 2, Pruned: 1},
		{Run: "r1", BodyKey: "x", Tick: 2, Target: "CHEST", Removed: 3, Pruned: 2, Destroyed: true},
	}
	if err := repo.Append(ctx, entries); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, nil); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Pending(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]JournalEntry{entries[0], entries[2]}, got); diff != "" {
		t.Errorf("Pending (-want +got):\n%s", diff)
	}

	if err := repo.MarkFlushed(ctx, "r1", "x", 1); err != nil {
		t.Fatal(err)
	}
	got, err = repo.Pending(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]JournalEntry{entries[2]}, got); diff != "" {
		t.Errorf("Pending after flush through tick 1 (-want +got):\n%s", diff)
	}

	// A later run counts ticks from zero again and must not flush r1's rows.
	if err := repo.MarkFlushed(ctx, "r2", "x", 5); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Pending(ctx, "x"); len(got) != 1 {
		t.Errorf("pending after another run's flush = %v, want r1's tick 2 entry", got)
	}

	late := JournalEntry{Run: "r1", BodyKey: "x", Tick: 2, Target: "HEAD", Removed: 1, Flushed: true}
	if err := repo.Append(ctx, []JournalEntry{late}); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkFlushed(ctx, "r1", "x", 2); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Pending(ctx, "x"); len(got) != 0 {
		t.Errorf("pending after full flush = %v", got)
	}
	if got, _ := repo.Pending(ctx, "y"); len(got) != 1 {
		t.Errorf("other body's entries touched: %v", got)
	}
}
