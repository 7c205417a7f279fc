package system

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/rmdgo/anatomy/internal/body"
	"github.com/rmdgo/anatomy/internal/config"
	"github.com/rmdgo/anatomy/internal/core/ecs"
	coresys "github.com/rmdgo/anatomy/internal/core/system"
	"github.com/rmdgo/anatomy/internal/data"
	"github.com/rmdgo/anatomy/internal/persist"
	"github.com/rmdgo/anatomy/internal/telemetry"
)

const armDef = `
name: arm
tissues:
  - { id: BONE, name: Bone, pain: 0.5, blood_flow: 0.1, resistance: 0.9, impairment: 0.7 }
body:
  id: BODY
  name: Body
  surface: 1
  body_parts:
    - id: TORSO
      name: Torso
      surface: 0.6
      organs:
        - { id: CHEST, name: Chest, surface: 1, connector: _ROOT, organ_tissue: { tissues: [{ tissue: BONE, hit_prob: 1 }] } }
    - id: ARM
      name: Arm
      surface: 0.4
      organs:
        - { id: UPPER_ARM, name: Upper arm, surface: 0.5, connector: CHEST, organ_tissue: { tissues: [{ tissue: BONE, hit_prob: 1 }] } }
        - { id: HAND, name: Hand, surface: 0.5, connector: UPPER_ARM, organ_tissue: { tissues: [{ tissue: BONE, hit_prob: 1 }] } }
`

func armDefinition(t *testing.T) *data.BodyDefinition {
	t.Helper()
	def, err := data.ParseBodyDefinition([]byte(armDef))
	if err != nil {
		t.Fatal(err)
	}
	return def
}

// scripted picks the given logical ids in order.
type scripted struct{ picks []string }

func (s *scripted) ChooseTarget(cands []body.Candidate, _ *rand.Rand) (body.Candidate, bool) {
	if len(s.picks) == 0 {
		return body.Candidate{}, false
	}
	want := s.picks[0]
	s.picks = s.picks[1:]
	for _, c := range cands {
		if c.LogicalID == want {
			return c, true
		}
	}
	return body.Candidate{}, false
}

func (s *scripted) Severity(r body.Removal) float64 { return float64(len(r.Removed)) }

type memStore struct{ saved map[string]body.Snapshot }

func (m *memStore) Save(_ context.Context, key string, s body.Snapshot) error {
	m.saved[key] = s
	return nil
}

type memJournal struct{ entries []persist.JournalEntry }

func (m *memJournal) Append(_ context.Context, entries []persist.JournalEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memJournal) MarkFlushed(_ context.Context, run, key string, through int64) error {
	for i := range m.entries {
		if e := &m.entries[i]; e.Run == run && e.BodyKey == key && e.Tick <= through {
			e.Flushed = true
		}
	}
	return nil
}

type harness struct {
	deps    *Deps
	runner  *coresys.Runner
	metrics *telemetry.Metrics
	store   *memStore
	journal *memJournal
	persist *PersistenceSystem
	roster  *Roster
}

func newHarness(chooser TargetChooser, interval int) *harness {
	h := &harness{
		deps:    NewDeps(zap.NewNop()),
		runner:  coresys.NewRunner(),
		metrics: telemetry.New(),
		store:   &memStore{saved: make(map[string]body.Snapshot)},
		journal: &memJournal{},
	}
	h.persist = NewPersistenceSystem(h.deps, h.store, h.journal, h.metrics, interval)
	h.roster = NewRoster(h.deps)
	h.runner.Register(NewCleanupSystem(h.deps))
	h.runner.Register(h.persist)
	h.runner.Register(NewMetricsSystem(h.deps, h.metrics))
	h.runner.Register(NewDismemberSystem(h.deps, chooser, rand.New(rand.NewSource(42)), 1))
	h.runner.Register(NewEventDispatchSystem(h.deps.Bus))
	return h
}

func TestDismemberLifecycle(t *testing.T) {
	h := newHarness(&scripted{picks: []string{"HAND", "UPPER_ARM", "CHEST"}}, 3)
	id, err := h.deps.Spawn(armDefinition(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	const key = "arm-0.0"

	h.runner.Tick(time.Millisecond)
	if diff := cmp.Diff([]string{key}, h.roster.Keys()); diff != "" {
		t.Fatalf("roster after tick 1 (-want +got):\n%s", diff)
	}
	c, _ := h.deps.Creatures.Get(id)
	if c.Key != key || c.Removals != 1 || !c.Dirty {
		t.Errorf("creature after tick 1 = %+v", c)
	}

	srv := httptest.NewServer(h.roster)
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL + "/?key=" + key)
	if err != nil {
		t.Fatal(err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(page), "    Upper arm") || strings.Contains(string(page), "Hand") {
		t.Errorf("roster page:\n%s", page)
	}
	resp, err = srv.Client().Get(srv.URL + "/?format=dot&key=" + key)
	if err != nil {
		t.Fatal(err)
	}
	page, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.HasPrefix(string(page), "digraph G {") {
		t.Errorf("roster dot page:\n%s", page)
	}
	resp, err = srv.Client().Get(srv.URL + "/?key=nobody")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown creature status = %d, want 404", resp.StatusCode)
	}

	h.runner.Tick(time.Millisecond)
	h.runner.Tick(time.Millisecond)
	if h.deps.World.Alive(id) || h.deps.Creatures.Len() != 0 {
		t.Fatalf("creature survived a destroyed body")
	}
	snap, ok := h.store.saved[key]
	if !ok || snap.RootID != uuid.Nil || len(snap.Parts) != 0 {
		t.Errorf("final snapshot = %+v, %v; want destroyed body", snap, ok)
	}

	h.runner.Tick(time.Millisecond)
	if len(h.roster.Keys()) != 0 {
		t.Errorf("roster still lists %v", h.roster.Keys())
	}

	run := h.persist.Run()
	want := []persist.JournalEntry{
		{Run: run, BodyKey: key, Tick: 1, Target: "HAND", Removed: 1, Flushed: true},
		{Run: run, BodyKey: key, Tick: 2, Target: "UPPER_ARM", Removed: 2, Pruned: 1, Flushed: true},
		{Run: run, BodyKey: key, Tick: 3, Target: "CHEST", Removed: 3, Pruned: 2, Destroyed: true, Flushed: true},
	}
	if diff := cmp.Diff(want, h.journal.entries); diff != "" {
		t.Errorf("journal (-want +got):\n%s", diff)
	}

	m := h.metrics
	for name, tc := range map[string]struct{ got, want float64 }{
		"built":      {testutil.ToFloat64(m.BodiesBuilt), 1},
		"removals":   {testutil.ToFloat64(m.Removals), 3},
		"organs":     {testutil.ToFloat64(m.PartsRemoved.WithLabelValues("organ")), 3},
		"containers": {testutil.ToFloat64(m.PartsRemoved.WithLabelValues("body part")), 3},
		"pruned":     {testutil.ToFloat64(m.PartsPruned), 3},
		"destroyed":  {testutil.ToFloat64(m.BodiesDestroyed), 1},
		"live":       {testutil.ToFloat64(m.LiveCreatures), 0},
		"saved":      {testutil.ToFloat64(m.SnapshotsSaved), 1},
	} {
		if tc.got != tc.want {
			t.Errorf("%s = %v, want %v", name, tc.got, tc.want)
		}
	}
}

func TestRandomDismemberKeepsBodiesValid(t *testing.T) {
	h := newHarness(nil, 2)
	def := armDefinition(t)
	for i := 0; i < 3; i++ {
		if _, err := h.deps.Spawn(def, 0); err != nil {
			t.Fatal(err)
		}
	}
	for tick := 0; tick < 50 && h.deps.Creatures.Len() > 0; tick++ {
		h.runner.Tick(time.Millisecond)
		h.deps.Bodies.Each(func(_ ecs.EntityID, g *body.Guarded) {
			g.With(func(b *body.Body) {
				if err := b.Validate(); err != nil {
					t.Fatalf("tick %d: %v", tick, err)
				}
			})
		})
	}
	if n := h.deps.Creatures.Len(); n != 0 {
		t.Errorf("%d creatures survived 50 certain hits", n)
	}
	if len(h.store.saved) != 3 {
		t.Errorf("saved %d snapshots, want 3", len(h.store.saved))
	}
}

func TestSaveAllIgnoresDirty(t *testing.T) {
	h := newHarness(&scripted{}, 0)
	def := armDefinition(t)
	for i := 0; i < 2; i++ {
		if _, err := h.deps.Spawn(def, 0); err != nil {
			t.Fatal(err)
		}
	}
	h.runner.Tick(time.Millisecond)
	if len(h.store.saved) != 0 {
		t.Fatalf("clean creatures saved without interval: %v", h.store.saved)
	}
	h.persist.SaveAll()
	if len(h.store.saved) != 2 {
		t.Errorf("SaveAll saved %d, want 2", len(h.store.saved))
	}
}

func TestAdoptDestroyedBody(t *testing.T) {
	h := newHarness(&scripted{}, 0)
	b, err := body.Build(armDefinition(t), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	b.DestroyAll()
	id := h.deps.Adopt("arm-old", b, 0)
	if h.deps.World.Pending() != 1 {
		t.Fatalf("destroyed body not queued")
	}
	h.runner.Tick(time.Millisecond)
	if h.deps.World.Alive(id) {
		t.Errorf("creature with destroyed body still alive")
	}
}

// stored wires the simulation systems to sqlite-backed repos, the way a
// single process run does.
type stored struct {
	deps    *Deps
	runner  *coresys.Runner
	persist *PersistenceSystem
}

func newStored(db *persist.DB, chooser TargetChooser, interval int) *stored {
	s := &stored{deps: NewDeps(zap.NewNop()), runner: coresys.NewRunner()}
	s.persist = NewPersistenceSystem(s.deps, persist.NewBodyRepo(db), persist.NewJournalRepo(db), nil, interval)
	s.runner.Register(NewEventDispatchSystem(s.deps.Bus))
	s.runner.Register(NewDismemberSystem(s.deps, chooser, rand.New(rand.NewSource(1)), 1))
	s.runner.Register(s.persist)
	s.runner.Register(NewCleanupSystem(s.deps))
	return s
}

func TestResumeKeepsEarlierRunPending(t *testing.T) {
	ctx := context.Background()
	db, err := persist.Open(ctx, config.DatabaseConfig{
		Driver: persist.DialectSQLite,
		DSN:    filepath.Join(t.TempDir(), "anatomy.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	journal := persist.NewJournalRepo(db)
	const key = "arm-0.0"

	// First run saves every third tick and stops after journaling a
	// removal that no snapshot holds.
	first := newStored(db, &scripted{picks: []string{"HAND", "-", "-", "UPPER_ARM"}}, 3)
	if _, err := first.deps.Spawn(armDefinition(t), 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		first.runner.Tick(time.Millisecond)
	}
	pending, err := journal.Pending(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	lost := persist.JournalEntry{Run: first.persist.Run(), BodyKey: key, Tick: 4, Target: "UPPER_ARM", Removed: 2, Pruned: 1}
	if diff := cmp.Diff([]persist.JournalEntry{lost}, pending); diff != "" {
		t.Fatalf("pending after first run (-want +got):\n%s", diff)
	}

	// Second run resumes from the tick 3 snapshot, removes a part and
	// saves past tick 4.
	second := newStored(db, &scripted{picks: []string{"UPPER_ARM"}}, 0)
	n, err := Resume(ctx, second.deps, persist.NewBodyRepo(db))
	if err != nil || n != 1 {
		t.Fatalf("Resume = %d, %v; want 1 body", n, err)
	}
	id := second.deps.Creatures.IDs()[0]
	g, _ := second.deps.Bodies.Get(id)
	g.With(func(b *body.Body) {
		if b.GetByLogicalID("UPPER_ARM") == nil || b.GetByLogicalID("HAND") != nil {
			t.Errorf("resumed body does not match the tick 3 snapshot")
		}
	})
	for i := 0; i < 5; i++ {
		second.runner.Tick(time.Millisecond)
	}
	second.persist.SaveAll()

	pending, err = journal.Pending(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]persist.JournalEntry{lost}, pending); diff != "" {
		t.Errorf("pending after second run (-want +got):\n%s", diff)
	}
}
