package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rsbalchii/anchoros/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "anchoros.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesMigrationsIdempotently(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "anchoros.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
}

func TestUpsertCompounds_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	compounds := []*model.Compound{
		{ID: "c1", Path: "/a/b.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, MolecularSignature: 42, Body: "hello world", Bucket: "notes"},
	}
	if err := s.UpsertCompounds(ctx, compounds); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	body, err := s.ReadCompoundBody(ctx, "c1", 0, 5)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if body != "hello" {
		t.Errorf("expected %q, got %q", "hello", body)
	}

	// Re-upserting with changed content should update in place, not duplicate.
	compounds[0].Body = "goodbye world"
	if err := s.UpsertCompounds(ctx, compounds); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	body, err = s.ReadCompoundBody(ctx, "c1", 0, 7)
	if err != nil {
		t.Fatalf("read body after update: %v", err)
	}
	if body != "goodbye" {
		t.Errorf("expected updated body %q, got %q", "goodbye", body)
	}
}

func TestReadCompoundBody_ClampsOutOfRangeOffsets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1, Provenance: model.ProvenanceInternal, Body: "short", Bucket: "notes"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	body, err := s.ReadCompoundBody(ctx, "c1", 0, 999)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if body != "short" {
		t.Errorf("expected clamped read to return full body, got %q", body)
	}
}

func TestSearchFTS_MatchesAndRespectsBucketFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1, Provenance: model.ProvenanceInternal, Body: "the rocket launched successfully", Bucket: "journal"},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2, Provenance: model.ProvenanceInternal, Body: "a completely different topic about gardening", Bucket: "notes"},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.SearchFTS(ctx, "rocket", nil, nil, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].CompoundID != "c1" {
		t.Fatalf("expected single hit on c1, got %+v", hits)
	}

	hits, err = s.SearchFTS(ctx, "rocket", []string{"notes"}, nil, 10)
	if err != nil {
		t.Fatalf("bucket-filtered search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits when restricted to a bucket the match isn't in, got %+v", hits)
	}
}

func TestWalk_TraversesSharedTags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1, Provenance: model.ProvenanceInternal, Body: "a", Bucket: "notes"},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2, Provenance: model.ProvenanceInternal, Body: "b", Bucket: "notes"},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}
	if err := s.UpsertAtoms(ctx, []*model.Atom{
		{ID: "atom-rocket", Label: "rocket", Type: model.AtomConcept, Weight: 1},
		{ID: "atom-launch", Label: "launch", Type: model.AtomConcept, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert atoms: %v", err)
	}
	if err := s.UpsertTags(ctx, []model.TagRow{
		{AtomID: "atom-rocket", Tag: "space", Bucket: "notes"},
		{AtomID: "atom-launch", Tag: "space", Bucket: "notes"},
	}); err != nil {
		t.Fatalf("upsert tags: %v", err)
	}
	if err := s.UpsertEdges(ctx, []model.Edge{
		{SourceID: "c1", TargetID: "atom-rocket", Relation: model.RelationHasTag, Weight: 1},
		{SourceID: "c2", TargetID: "atom-launch", Relation: model.RelationHasTag, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert edges: %v", err)
	}

	hits, err := s.Walk(ctx, []string{"atom-rocket"}, nil, 10, 1)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	var sawC1, sawC2 bool
	for _, h := range hits {
		if h.CompoundID == "c1" {
			sawC1 = true
		}
		if h.CompoundID == "c2" {
			sawC2 = true
		}
	}
	if !sawC1 {
		t.Errorf("expected walk to include the seed atom's own compound c1, got %+v", hits)
	}
	if !sawC2 {
		t.Errorf("expected walk to reach c2 via the shared 'space' tag, got %+v", hits)
	}
}

func TestPositionsFor_ReturnsOffsetsByLabel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1, Provenance: model.ProvenanceInternal, Body: "rocket science is hard, rocket fuel is expensive", Bucket: "notes"},
	}); err != nil {
		t.Fatalf("upsert compound: %v", err)
	}
	if err := s.UpsertAtomPositions(ctx, []model.AtomPosition{
		{CompoundID: "c1", AtomLabel: "rocket", ByteOffset: 0},
		{CompoundID: "c1", AtomLabel: "rocket", ByteOffset: 25},
	}); err != nil {
		t.Fatalf("upsert positions: %v", err)
	}

	positions, err := s.PositionsFor(ctx, "c1", []string{"rocket"})
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if got := positions["rocket"]; len(got) != 2 || got[0] != 0 || got[1] != 25 {
		t.Errorf("expected offsets [0 25], got %v", got)
	}
}

func TestSourceByPath_NilWhenUnseen(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.SourceByPath(ctx, "/never/seen.md")
	if err != nil {
		t.Fatalf("source by path: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for unseen path, got %+v", rec)
	}

	if err := s.UpsertSource(ctx, model.SourceRecord{Path: "/a.md", Hash: "abc123", TotalAtoms: 3, LastIngest: 100}); err != nil {
		t.Fatalf("upsert source: %v", err)
	}
	rec, err = s.SourceByPath(ctx, "/a.md")
	if err != nil {
		t.Fatalf("source by path after upsert: %v", err)
	}
	if rec == nil || rec.Hash != "abc123" || rec.TotalAtoms != 3 {
		t.Errorf("expected matching source record, got %+v", rec)
	}
}
