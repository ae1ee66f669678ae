// Package search implements the Tag-Walker: parse a free-text query,
// anchor it against full text, walk outward across shared tags, score
// and deduplicate the combined candidate set.
package search

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/store"
)

const (
	provenanceBoostInternal = 3.0
	provenanceBoostOther    = 1.0
	tagOverlapWeight        = 0.2
	timeDecayHalfLifeDays   = 30.0
	maxPerHop               = 50
	walkRadius              = 1
	hammingDedupThreshold   = 3
	// walkOnlyBaseScore is the fts_score assigned to a compound reached only
	// through the walk phase when there is no anchor hit. With anchor hits,
	// a walk-only compound instead gets half the lowest anchor score, so its
	// base score sits below every genuine text match's.
	walkOnlyBaseScore = 1.0
)

// Request is the searcher's input.
type Request struct {
	Query      string
	Buckets    []string
	Tags       []string
	MaxChars   int
	Provenance string // "internal", "external", "all", or "" (= all)
}

// Result is one scored, deduplicated candidate the inflator will expand.
type Result struct {
	CompoundID         string
	Path               string
	Bucket             string
	Provenance         model.Provenance
	TimestampUnixMilli int64
	MolecularSignature uint64
	Score              float64
}

// Searcher runs the anchor-then-walk pipeline against a Store.
type Searcher struct {
	store *store.Store
	cfg   config.Config
}

// New builds a Searcher bound to st. cfg is stored on the Searcher; Search
// does not read it and applies no anchor/walk char budget split.
func New(st *store.Store, cfg config.Config) *Searcher {
	return &Searcher{store: st, cfg: cfg}
}

// Search runs the full pipeline and returns results ordered by descending
// score, ties broken by timestamp (ascending when the "earliest" intent is
// present, descending otherwise).
func (s *Searcher) Search(ctx context.Context, req Request) ([]Result, error) {
	parsed := ParseQuery(req.Query)
	provenances := provenanceFilter(req.Provenance)

	anchorQuery := parsed.FTSQuery(true)
	var hits []store.SearchHit
	if anchorQuery != "" {
		var err error
		hits, err = s.store.SearchFTS(ctx, anchorQuery, req.Buckets, provenances, 50)
		if err != nil {
			return nil, fmt.Errorf("anchor search: %w", err)
		}
		if len(hits) == 0 {
			hits, err = s.store.SearchFTS(ctx, parsed.FTSQuery(false), req.Buckets, provenances, 50)
			if err != nil {
				return nil, fmt.Errorf("fuzzy anchor search: %w", err)
			}
		}
	}

	results := make(map[string]*Result, len(hits))
	tagOverlap := make(map[string]int)

	for _, hit := range hits {
		results[hit.CompoundID] = &Result{
			CompoundID:         hit.CompoundID,
			Path:               hit.Path,
			Bucket:             hit.Bucket,
			Provenance:         hit.Provenance,
			TimestampUnixMilli: hit.TimestampUnixMilli,
			MolecularSignature: hit.MolecularSignature,
			Score:              -hit.Rank,
		}
	}

	walkBase := walkOnlyBaseScore
	for _, hit := range hits {
		if half := -hit.Rank / 2; half > 0 && half < walkBase {
			walkBase = half
		}
	}

	seedAtomIDs, err := s.seedAtomsFor(ctx, hits)
	if err != nil {
		return nil, fmt.Errorf("collect seed atoms: %w", err)
	}
	if len(req.Tags) > 0 {
		explicit, err := s.store.AtomsByLabel(ctx, req.Tags)
		if err != nil {
			return nil, fmt.Errorf("resolve explicit tags: %w", err)
		}
		for _, a := range explicit {
			seedAtomIDs = append(seedAtomIDs, a.ID)
		}
	}

	if len(seedAtomIDs) > 0 {
		walkHits, err := s.store.Walk(ctx, seedAtomIDs, req.Buckets, maxPerHop, walkRadius)
		if err != nil {
			return nil, fmt.Errorf("walk: %w", err)
		}
		for _, wh := range walkHits {
			tagOverlap[wh.CompoundID]++
			if _, exists := results[wh.CompoundID]; exists {
				continue
			}
			compound, err := s.store.CompoundByID(ctx, wh.CompoundID)
			if err != nil {
				return nil, fmt.Errorf("lookup walk candidate: %w", err)
			}
			if compound == nil {
				continue
			}
			results[wh.CompoundID] = &Result{
				CompoundID:         compound.CompoundID,
				Path:               compound.Path,
				Bucket:             compound.Bucket,
				Provenance:         compound.Provenance,
				TimestampUnixMilli: compound.TimestampUnixMilli,
				MolecularSignature: compound.MolecularSignature,
				Score:              walkBase,
			}
		}
	}

	now := time.Now().UnixMilli()
	var scored []Result
	for id, r := range results {
		overlap := tagOverlap[id]
		provBoost := provenanceBoostOther
		if r.Provenance == model.ProvenanceInternal {
			provBoost = provenanceBoostInternal
		}
		decay := timeDecay(now, r.TimestampUnixMilli)
		r.Score = r.Score * provBoost * (1 + float64(overlap)*tagOverlapWeight) * decay
		scored = append(scored, *r)
	}

	deduped := dedupeBySignature(scored)
	sortResults(deduped, parsed.Intent)
	return deduped, nil
}

func (s *Searcher) seedAtomsFor(ctx context.Context, hits []store.SearchHit) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, hit := range hits {
		atoms, err := s.store.AtomsForCompound(ctx, hit.CompoundID)
		if err != nil {
			return nil, err
		}
		for _, a := range atoms {
			if !seen[a.ID] {
				seen[a.ID] = true
				ids = append(ids, a.ID)
			}
		}
	}
	return ids, nil
}

func provenanceFilter(requested string) []string {
	switch requested {
	case "", "all":
		return nil
	case "internal":
		return []string{string(model.ProvenanceInternal)}
	case "external":
		return []string{string(model.ProvenanceExternal)}
	default:
		return nil
	}
}

// timeDecay implements 1 / (1 + days_since(timestamp)/30).
func timeDecay(nowMilli, timestampMilli int64) float64 {
	if timestampMilli <= 0 {
		return 1.0
	}
	daysSince := float64(nowMilli-timestampMilli) / (1000 * 60 * 60 * 24)
	if daysSince < 0 {
		daysSince = 0
	}
	return 1.0 / (1.0 + daysSince/timeDecayHalfLifeDays)
}

// dedupeBySignature collapses results whose molecular_signature Hamming
// distance is within hammingDedupThreshold, keeping the highest-scored
// representative of each cluster.
func dedupeBySignature(in []Result) []Result {
	kept := make([]Result, 0, len(in))
	for _, r := range in {
		merged := false
		for i := range kept {
			if hamming(kept[i].MolecularSignature, r.MolecularSignature) <= hammingDedupThreshold {
				if r.Score > kept[i].Score {
					kept[i] = r
				}
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, r)
		}
	}
	return kept
}

func hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func sortResults(results []Result, intent Intent) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if intent == IntentEarliest {
			return results[i].TimestampUnixMilli < results[j].TimestampUnixMilli
		}
		return results[i].TimestampUnixMilli > results[j].TimestampUnixMilli
	})
}
