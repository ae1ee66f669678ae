// Package engine wires the atomizer, scheduler, searcher, and inflator
// into the boundary contract an external CLI or HTTP façade consumes:
// ingest, search, molecule_search, bucket/tag listing, watch-path
// management, and atom lifecycle operations.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rsbalchii/anchoros/internal/atomize"
	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/inflate"
	"github.com/rsbalchii/anchoros/internal/logging"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/scheduler"
	"github.com/rsbalchii/anchoros/internal/search"
	"github.com/rsbalchii/anchoros/internal/store"
	"github.com/rsbalchii/anchoros/internal/tagextract"
)

// Engine is the single object an external façade holds: it owns the
// store and every pipeline stage built on top of it.
type Engine struct {
	Root      string
	Cfg       config.Config
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Searcher  *search.Searcher
	Extractor *tagextract.Extractor
}

// Open resolves configuration for root, opens the store, and builds the
// full pipeline. concurrency bounds the scheduler's per-file fan-out
// (0 = default to number of CPUs, applied by the scheduler itself).
func Open(root string, concurrency int) (*Engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Root = root

	st, err := store.Open(filepath.Join(root, "anchoros.db"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	catalog, err := config.Catalog(config.KeywordCatalogPath(root))
	if err != nil {
		logging.Get(logging.CategoryTag).Warn("load keyword catalog: %v", err)
	}
	extractor := tagextract.New(catalog)
	atomizer := atomize.New(extractor, cfg)

	sched, err := scheduler.New(root, atomizer, st, cfg, concurrency)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	return &Engine{
		Root:      root,
		Cfg:       cfg,
		Store:     st,
		Scheduler: sched,
		Searcher:  search.New(st, cfg),
		Extractor: extractor,
	}, nil
}

// Close releases the underlying store (and, if the watcher is running,
// stops it).
func (e *Engine) Close() error {
	_ = e.Scheduler.Stop()
	return e.Store.Close()
}

// StartWatching begins the filesystem watcher; safe to skip for
// one-shot CLI invocations that only ingest or search.
func (e *Engine) StartWatching(ctx context.Context) error {
	return e.Scheduler.Start(ctx)
}

// IngestResult is the ingest boundary operation's response.
type IngestResult struct {
	ID      string
	Status  string // "success", "skipped", "error"
	Message string
}

// Ingest runs raw content logically located at path through the
// dedup -> atomize -> persist pipeline, retrying transient storage
// failures with bounded backoff before surfacing a StorageFatal error.
func (e *Engine) Ingest(ctx context.Context, path string, raw []byte, bucketOverride string) (IngestResult, error) {
	if path == "" {
		return IngestResult{}, validationErr("ingest requires a non-empty path")
	}
	if len(raw) == 0 {
		return IngestResult{}, validationErr("ingest requires non-empty content for %s", path)
	}

	correlationID := uuid.NewString()
	log := logging.Get(logging.CategoryBoundary)
	log.Debug("ingest[%s] start path=%s", correlationID, path)

	mtime := time.Now()
	var outcome scheduler.IngestOutcome
	err := withRetry(ctx, func() error {
		var innerErr error
		outcome, innerErr = e.Scheduler.IngestNow(ctx, path, raw, mtime, bucketOverride)
		return innerErr
	})
	if err != nil {
		log.Error("ingest[%s] failed path=%s: %v", correlationID, path, err)
		if ctx.Err() != nil {
			return IngestResult{Status: "error", Message: err.Error()}, &Error{Kind: KindCancelled, Err: err}
		}
		return IngestResult{Status: "error", Message: err.Error()}, fatalErr(err)
	}
	log.Debug("ingest[%s] done path=%s status=%s", correlationID, path, outcome.Status)
	return IngestResult{ID: outcome.CompoundID, Status: outcome.Status, Message: outcome.Message}, nil
}

// SearchRequest mirrors the boundary's search({ query, buckets?, tags?,
// max_chars, provenance? }) input.
type SearchRequest struct {
	Query      string
	Buckets    []string
	Tags       []string
	MaxChars   int
	Provenance string
}

// SearchResultItem is one entry in a SearchResponse.
type SearchResultItem struct {
	ID         string
	Content    string
	Source     string
	Timestamp  int64
	Bucket     string
	Provenance model.Provenance
	Score      float64
}

// SearchResponse is the boundary's { context, results[] } shape.
type SearchResponse struct {
	Context string
	Results []SearchResultItem
}

// Search runs the Tag-Walker pipeline and inflates the scored results
// into a bounded context string. An empty result set is a valid
// response, never an error.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if req.Query == "" && len(req.Tags) == 0 {
		return SearchResponse{}, validationErr("search requires a query or explicit tags")
	}

	correlationID := uuid.NewString()
	logging.Get(logging.CategoryBoundary).Debug("search[%s] query=%q buckets=%v tags=%v", correlationID, req.Query, req.Buckets, req.Tags)

	results, err := e.Searcher.Search(ctx, search.Request{
		Query:      req.Query,
		Buckets:    req.Buckets,
		Tags:       req.Tags,
		MaxChars:   req.MaxChars,
		Provenance: req.Provenance,
	})
	if err != nil {
		if ctx.Err() != nil {
			return SearchResponse{}, &Error{Kind: KindTimeout, Err: err}
		}
		return SearchResponse{}, fatalErr(err)
	}
	if len(results) == 0 {
		return SearchResponse{}, nil
	}

	parsed := search.ParseQuery(req.Query)
	terms := append(append([]string(nil), parsed.Terms...), req.Tags...)

	contextStr, fragments, err := inflate.Inflate(ctx, e.Store, e.Cfg, results, terms, req.MaxChars)
	if err != nil {
		// Partial success: the caller still gets the anchor/walk scores
		// even if inflation couldn't complete within its deadline.
		logging.Get(logging.CategorySearch).Warn("inflate: %v", err)
		return e.responseFromResults(results), nil
	}

	items := make([]SearchResultItem, 0, len(fragments))
	for _, f := range fragments {
		items = append(items, SearchResultItem{
			ID:         f.CompoundID,
			Content:    f.Content,
			Source:     f.Path,
			Timestamp:  f.TimestampUnixMilli,
			Bucket:     f.Bucket,
			Provenance: f.Provenance,
			Score:      f.Score,
		})
	}
	return SearchResponse{Context: contextStr, Results: items}, nil
}

func (e *Engine) responseFromResults(results []search.Result) SearchResponse {
	items := make([]SearchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, SearchResultItem{
			ID:         r.CompoundID,
			Source:     r.Path,
			Timestamp:  r.TimestampUnixMilli,
			Bucket:     r.Bucket,
			Provenance: r.Provenance,
			Score:      r.Score,
		})
	}
	return SearchResponse{Results: items}
}

var moleculeSentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// MoleculeSearch runs Search once per sentence of query and unions the
// results, keeping the highest score seen for any compound returned by
// more than one sentence.
func (e *Engine) MoleculeSearch(ctx context.Context, query string, maxChars int) (SearchResponse, error) {
	sentences := moleculeSentenceBoundary.Split(query, -1)
	merged := make(map[string]SearchResultItem)
	var context string

	for _, sentence := range sentences {
		if sentence == "" {
			continue
		}
		resp, err := e.Search(ctx, SearchRequest{Query: sentence, MaxChars: maxChars})
		if err != nil {
			return SearchResponse{}, err
		}
		if context == "" {
			context = resp.Context
		}
		for _, item := range resp.Results {
			if existing, ok := merged[item.ID]; !ok || item.Score > existing.Score {
				merged[item.ID] = item
			}
		}
	}

	items := make([]SearchResultItem, 0, len(merged))
	for _, item := range merged {
		items = append(items, item)
	}
	return SearchResponse{Context: context, Results: items}, nil
}

// ListBuckets returns every distinct bucket currently stored.
func (e *Engine) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := e.Store.ListBuckets(ctx)
	if err != nil {
		return nil, fatalErr(err)
	}
	return buckets, nil
}

// ListTags returns every distinct tag currently stored, optionally
// restricted to buckets.
func (e *Engine) ListTags(ctx context.Context, buckets []string) ([]string, error) {
	tags, err := e.Store.ListTags(ctx, buckets)
	if err != nil {
		return nil, fatalErr(err)
	}
	return tags, nil
}

// AddWatchPath, RemoveWatchPath, and ListWatchPaths expose the
// scheduler's live watch-set management at the boundary.
func (e *Engine) AddWatchPath(path string) error {
	if err := e.Scheduler.AddWatchPath(path); err != nil {
		return fatalErr(err)
	}
	return nil
}

func (e *Engine) RemoveWatchPath(path string) error {
	if err := e.Scheduler.RemoveWatchPath(path); err != nil {
		return fatalErr(err)
	}
	return nil
}

func (e *Engine) ListWatchPaths() ([]string, error) {
	uc, err := config.LoadUserConfig(config.UserSettingsPath(e.Root))
	if err != nil {
		return nil, fatalErr(err)
	}
	if uc.Watcher == nil {
		return nil, nil
	}
	return uc.Watcher.ExtraPaths, nil
}

// QuarantineAtom excludes a compound from search results without
// deleting it.
func (e *Engine) QuarantineAtom(ctx context.Context, id string) error {
	return e.setQuarantine(ctx, id, true)
}

// RestoreAtom reverses a prior QuarantineAtom.
func (e *Engine) RestoreAtom(ctx context.Context, id string) error {
	return e.setQuarantine(ctx, id, false)
}

func (e *Engine) setQuarantine(ctx context.Context, id string, quarantined bool) error {
	if id == "" {
		return validationErr("id is required")
	}
	err := withRetry(ctx, func() error {
		return e.Store.SetCompoundQuarantined(ctx, id, quarantined)
	})
	if err != nil {
		return notFoundErr("%s: %w", id, err)
	}
	return nil
}

// UpdateAtomContent rewrites a compound's body, re-fingerprints it, and
// re-derives its atom_positions index from the current content.
func (e *Engine) UpdateAtomContent(ctx context.Context, id, content string) error {
	if id == "" {
		return validationErr("id is required")
	}
	if content == "" {
		return validationErr("content must not be empty")
	}

	err := withRetry(ctx, func() error {
		return e.Store.UpdateCompoundBody(ctx, id, content)
	})
	if err != nil {
		return notFoundErr("%s: %w", id, err)
	}

	labels, err := e.Store.AtomsForCompound(ctx, id)
	if err != nil {
		return fatalErr(err)
	}
	var positions []store.AtomPositionInput
	for _, atom := range labels {
		for _, off := range findAllOffsets(content, atom.Label) {
			positions = append(positions, store.AtomPositionInput{AtomLabel: atom.Label, ByteOffset: off})
		}
	}
	if err := withRetry(ctx, func() error {
		return e.Store.ReplaceAtomPositions(ctx, id, positions)
	}); err != nil {
		return fatalErr(err)
	}
	return nil
}

// findAllOffsets returns every non-overlapping byte offset at which
// label occurs in body.
func findAllOffsets(body, label string) []int {
	var offsets []int
	start := 0
	for {
		idx := strings.Index(body[start:], label)
		if idx < 0 {
			break
		}
		offsets = append(offsets, start+idx)
		start += idx + len(label)
	}
	return offsets
}
