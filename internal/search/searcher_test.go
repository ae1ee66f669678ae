package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "anchoros.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSearch_AnchorMatchIsRanked(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "the rocket launched successfully", Bucket: "journal", MolecularSignature: 1},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2000, Provenance: model.ProvenanceInternal, Body: "a completely different topic about gardening", Bucket: "notes", MolecularSignature: 0xFFFFFFFFFFFFFFFF},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "rocket"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].CompoundID != "c1" {
		t.Fatalf("expected single anchor hit on c1, got %+v", results)
	}
}

func TestSearch_ORFallbackWhenANDYieldsNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "rocket fuel", Bucket: "journal", MolecularSignature: 1},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2000, Provenance: model.ProvenanceInternal, Body: "gardening soil", Bucket: "notes", MolecularSignature: 0xFFFF},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	// "rocket soil" matches no compound under AND semantics, but both terms
	// individually match one compound each under the OR fallback.
	results, err := searcher.Search(ctx, Request{Query: "rocket soil"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected OR fallback to surface both compounds, got %+v", results)
	}
}

func TestSearch_WalkExpandsViaSharedTags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "the rocket launched", Bucket: "journal", MolecularSignature: 1},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2000, Provenance: model.ProvenanceInternal, Body: "fuel tank schematics", Bucket: "journal", MolecularSignature: 0xABCDEF0123456789},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}
	if err := s.UpsertAtoms(ctx, []*model.Atom{
		{ID: "atom-rocket", Label: "#rocket", Type: model.AtomConcept, Weight: 1},
		{ID: "atom-fuel", Label: "#fuel", Type: model.AtomConcept, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert atoms: %v", err)
	}
	if err := s.UpsertTags(ctx, []model.TagRow{
		{AtomID: "atom-rocket", Tag: "space", Bucket: "journal"},
		{AtomID: "atom-fuel", Tag: "space", Bucket: "journal"},
	}); err != nil {
		t.Fatalf("upsert tags: %v", err)
	}
	if err := s.UpsertEdges(ctx, []model.Edge{
		{SourceID: "c1", TargetID: "atom-rocket", Relation: model.RelationHasTag, Weight: 1},
		{SourceID: "c2", TargetID: "atom-fuel", Relation: model.RelationHasTag, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert edges: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "rocket"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var sawWalkOnly bool
	for _, r := range results {
		if r.CompoundID == "c2" {
			sawWalkOnly = true
		}
	}
	if !sawWalkOnly {
		t.Fatalf("expected walk phase to pull in c2 via the shared 'space' tag, got %+v", results)
	}
}

func TestSearch_ExplicitTagsSeedWalkWithoutTextMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "unrelated prose with no query terms", Bucket: "journal", MolecularSignature: 1},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}
	if err := s.UpsertAtoms(ctx, []*model.Atom{
		{ID: "atom-rocket", Label: "#rocket", Type: model.AtomConcept, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert atoms: %v", err)
	}
	if err := s.UpsertEdges(ctx, []model.Edge{
		{SourceID: "c1", TargetID: "atom-rocket", Relation: model.RelationHasTag, Weight: 1},
	}); err != nil {
		t.Fatalf("upsert edges: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "zzzznomatch", Tags: []string{"rocket"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].CompoundID != "c1" {
		t.Fatalf("expected explicit tag to seed the walk and surface c1, got %+v", results)
	}
}

func TestSearch_ProvenanceFilterExcludesExternal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "rocket internal", Bucket: "journal", MolecularSignature: 1},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceExternal, Body: "rocket external", Bucket: "journal", MolecularSignature: 2},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "rocket", Provenance: "internal"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].CompoundID != "c1" {
		t.Fatalf("expected provenance filter to exclude external hit, got %+v", results)
	}
}

func TestSearch_HammingDedupCollapsesNearDuplicateSignatures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Signatures 0 and 1 differ by a single bit (Hamming distance 1), well
	// within the dedup threshold, so only the higher-scored of the two
	// should survive.
	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "rocket launch report one", Bucket: "journal", MolecularSignature: 0},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 2000, Provenance: model.ProvenanceInternal, Body: "rocket launch report two", Bucket: "journal", MolecularSignature: 1},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "rocket launch report"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected near-duplicate signatures to collapse to one result, got %+v", results)
	}
}

func TestSearch_EarliestIntentOrdersAscendingByTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 5000, Provenance: model.ProvenanceInternal, Body: "rocket event alpha", Bucket: "journal", MolecularSignature: 1},
		{ID: "c2", Path: "/b.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "rocket event beta", Bucket: "journal", MolecularSignature: 0xFFFF},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "earliest rocket event"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both events, got %+v", results)
	}
	if results[0].CompoundID != "c2" {
		t.Fatalf("expected earliest-intent ordering to rank the older timestamp first, got %+v", results)
	}
}

func TestSearch_EmptyQueryWithNoTagsReturnsNoResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompounds(ctx, []*model.Compound{
		{ID: "c1", Path: "/a.md", TimestampUnixMilli: 1000, Provenance: model.ProvenanceInternal, Body: "anything at all", Bucket: "journal", MolecularSignature: 1},
	}); err != nil {
		t.Fatalf("upsert compounds: %v", err)
	}

	searcher := New(s, config.Defaults())
	results, err := searcher.Search(ctx, Request{Query: "the a of"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected a stopword-only query to yield no results, got %+v", results)
	}
}
