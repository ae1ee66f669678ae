// Package scheduler watches the configured inbox directories and feeds
// stable, newly-changed files into the atomizer and store.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/rsbalchii/anchoros/internal/atomize"
	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/logging"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/store"
)

// defaultAllowedExtensions is the ingest allow-list when the caller doesn't
// override it.
var defaultAllowedExtensions = map[string]bool{
	".md": true, ".txt": true, ".yaml": true, ".yml": true, ".csv": true, ".json": true,
}

const pollInterval = 100 * time.Millisecond

// Scheduler watches a configured set of directories (plus the two fixed
// inbox roots), debounces writes until the file size/mtime have settled,
// dedups by content hash, and runs the atomizer/store write path per file.
type Scheduler struct {
	root         string
	atomizer     *atomize.Atomizer
	store        *store.Store
	cfg          config.Config
	allowedExts  map[string]bool
	concurrency  int

	watcher *fsnotify.Watcher

	mu         sync.Mutex
	candidates map[string]*stability
	pathLocks  sync.Map // path -> *sync.Mutex

	group  *errgroup.Group
	cancel context.CancelFunc
}

type stability struct {
	size    int64
	modTime time.Time
	since   time.Time
}

// New builds a Scheduler rooted at root. cfg supplies the stability window,
// extra watch paths, and concurrency cap (default: number of CPUs).
func New(root string, a *atomize.Atomizer, st *store.Store, cfg config.Config, concurrency int) (*Scheduler, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Scheduler{
		root:        root,
		atomizer:    a,
		store:       st,
		cfg:         cfg,
		allowedExts: defaultAllowedExtensions,
		concurrency: concurrency,
		watcher:     w,
		candidates:  make(map[string]*stability),
	}, nil
}

// Start adds the two fixed inbox roots plus any configured extra paths to
// the watcher and launches the event/poll loop in a background goroutine.
// Start is non-blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	group.SetLimit(s.concurrency)
	s.group = group

	fixedRoots := []string{
		filepath.Join(s.root, "inbox"),
		filepath.Join(s.root, "external-inbox"),
	}
	for _, dir := range append(fixedRoots, s.cfg.WatcherExtraPaths...) {
		if err := s.addWatchDir(dir); err != nil {
			logging.Get(logging.CategoryScheduler).Warn("watch %s: %v", dir, err)
		}
	}

	go s.run(groupCtx)
	return nil
}

// Stop cancels the run loop and waits for in-flight ingests to finish.
func (s *Scheduler) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		s.group.Wait()
	}
	return s.watcher.Close()
}

func (s *Scheduler) addWatchDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}
	return s.watcher.Add(dir)
}

// AddWatchPath adds path to the live watcher and persists it to
// user_settings.json so it survives a restart.
func (s *Scheduler) AddWatchPath(path string) error {
	if err := s.addWatchDir(path); err != nil {
		return err
	}
	return config.AddWatchPath(s.root, path)
}

// RemoveWatchPath removes path from the live watcher and persists the
// removal.
func (s *Scheduler) RemoveWatchPath(path string) error {
	if err := s.watcher.Remove(path); err != nil {
		logging.Get(logging.CategoryScheduler).Warn("remove watch %s: %v", path, err)
	}
	return config.RemoveWatchPath(s.root, path)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryScheduler).Error("watcher error: %v", err)
		case <-ticker.C:
			s.pollCandidates(ctx)
		}
	}
}

func (s *Scheduler) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// addDir: watch the new directory too so files placed inside it are seen.
		if err := s.watcher.Add(event.Name); err != nil {
			logging.Get(logging.CategoryScheduler).Warn("watch new dir %s: %v", event.Name, err)
		}
		return
	}
	if !s.allowedExts[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	s.mu.Lock()
	s.candidates[event.Name] = &stability{size: info.Size(), modTime: info.ModTime(), since: time.Now()}
	s.mu.Unlock()
}

func (s *Scheduler) pollCandidates(ctx context.Context) {
	s.mu.Lock()
	stableThreshold := time.Duration(s.cfg.WatcherStabilityMS) * time.Millisecond
	if stableThreshold <= 0 {
		stableThreshold = 2 * time.Second
	}
	now := time.Now()
	var ready []string
	for path, st := range s.candidates {
		info, err := os.Stat(path)
		if err != nil {
			delete(s.candidates, path)
			continue
		}
		if info.Size() != st.size || !info.ModTime().Equal(st.modTime) {
			s.candidates[path] = &stability{size: info.Size(), modTime: info.ModTime(), since: now}
			continue
		}
		if now.Sub(st.since) >= stableThreshold {
			ready = append(ready, path)
			delete(s.candidates, path)
		}
	}
	s.mu.Unlock()

	for _, path := range ready {
		path := path
		s.group.Go(func() error {
			s.ingestPath(ctx, path)
			return nil
		})
	}
}

func (s *Scheduler) lockFor(path string) *sync.Mutex {
	actual, _ := s.pathLocks.LoadOrStore(path, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// ingestPath runs the full dedup-check -> atomize -> persist sequence for a
// single stable file discovered by the watcher.
func (s *Scheduler) ingestPath(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logging.Get(logging.CategoryScheduler).Warn("read %s: %v", path, err)
		return
	}
	info, err := os.Stat(path)
	var mtime time.Time
	if err == nil {
		mtime = info.ModTime()
	}

	outcome, err := s.IngestNow(ctx, path, raw, mtime, "")
	if err != nil {
		logging.Get(logging.CategoryScheduler).Error("ingest %s: %v", path, err)
		return
	}
	logging.Get(logging.CategoryScheduler).Debug("ingest %s: %s", path, outcome.Status)
}

// IngestOutcome reports what happened to one direct or watcher-driven
// ingest call.
type IngestOutcome struct {
	Status     string // "success", "skipped", or "error"
	CompoundID string
	Message    string
}

// IngestNow runs the dedup-check -> atomize -> persist sequence for raw
// bytes logically located at path, serialized per-path via lockFor so a
// direct boundary call and a watcher-driven event on the same file never
// race. Both the scheduler's own event loop and the engine's direct
// ingest boundary operation share this single code path. bucketOverride,
// when non-empty, replaces the path-derived bucket (the boundary's
// explicit buckets[] argument); provenance is still derived from path.
func (s *Scheduler) IngestNow(ctx context.Context, path string, raw []byte, mtime time.Time, bucketOverride string) (IngestOutcome, error) {
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	hash := sha256.Sum256(raw)
	hashHex := hex.EncodeToString(hash[:])

	existing, err := s.store.SourceByPath(ctx, path)
	if err != nil {
		return IngestOutcome{Status: "error", Message: err.Error()}, fmt.Errorf("check source %s: %w", path, err)
	}
	if existing != nil && existing.Hash == hashHex {
		return IngestOutcome{Status: "skipped", Message: "unchanged content"}, nil
	}

	bucket, provenance := DeriveBucketProvenance(s.root, path)
	if rb, rp, ok := matchBucketRule(s.cfg.BucketRules, s.root, path); ok {
		bucket = rb
		if rp != "" {
			provenance = model.Provenance(rp)
		}
	}
	if bucketOverride != "" {
		bucket = bucketOverride
	}
	result, err := s.atomizer.Atomize(path, raw, provenance, bucket, mtime)
	if err != nil {
		return IngestOutcome{Status: "error", Message: err.Error()}, fmt.Errorf("atomize %s: %w", path, err)
	}

	if err := s.Persist(ctx, result); err != nil {
		return IngestOutcome{Status: "error", Message: err.Error()}, fmt.Errorf("persist %s: %w", path, err)
	}

	if err := s.store.UpsertSource(ctx, model.SourceRecord{
		Path:       path,
		Hash:       hashHex,
		TotalAtoms: len(result.Atoms),
		LastIngest: time.Now().UnixMilli(),
	}); err != nil {
		logging.Get(logging.CategoryScheduler).Error("upsert source %s: %v", path, err)
	}

	return IngestOutcome{Status: "success", CompoundID: result.Compound.ID}, nil
}

// Persist writes the atomizer's output in the order atoms -> tags ->
// molecules -> edges -> compound -> atom positions, each in ≤50-row
// batches via the store's own chunking.
func (s *Scheduler) Persist(ctx context.Context, result *atomize.Result) error {
	if err := s.store.UpsertAtoms(ctx, result.Atoms); err != nil {
		return err
	}
	if err := s.store.UpsertTags(ctx, result.Tags); err != nil {
		return err
	}
	if err := s.store.UpsertMolecules(ctx, result.Compound.Molecules); err != nil {
		return err
	}
	if err := s.store.UpsertEdges(ctx, result.Edges); err != nil {
		return err
	}
	if err := s.store.UpsertCompounds(ctx, []*model.Compound{result.Compound}); err != nil {
		return err
	}
	if err := s.store.UpsertAtomPositions(ctx, result.Positions); err != nil {
		return err
	}
	return nil
}
