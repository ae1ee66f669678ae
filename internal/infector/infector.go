// Package infector implements the Tag Infector: a background convergence
// pass that re-applies the keyword catalog against every stored atom so
// that tags catch up when the catalog changes after initial ingestion.
package infector

import (
	"context"
	"fmt"

	"github.com/rsbalchii/anchoros/internal/logging"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/store"
	"github.com/rsbalchii/anchoros/internal/tagextract"
)

const defaultBatchSize = 50

// Infector re-applies tagextract.Extractor.ContentTags against every
// stored atom, streamed in id-ordered batches.
type Infector struct {
	store     *store.Store
	extractor *tagextract.Extractor
	batchSize int
}

// New builds an Infector bound to st, using extractor for the current
// keyword catalog.
func New(st *store.Store, extractor *tagextract.Extractor) *Infector {
	return &Infector{store: st, extractor: extractor, batchSize: defaultBatchSize}
}

// Stats summarizes one Run.
type Stats struct {
	AtomsVisited int
	TagsAdded    int
}

// Run streams every stored atom in id order, recomputes its tag set from
// the current keyword catalog, and upserts any tags that are missing.
// It yields at every batch boundary so a long catalog-change convergence
// pass never starves other work.
func (inf *Infector) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	log := logging.Get(logging.CategoryStore)
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		atoms, err := inf.store.AtomsPage(ctx, cursor, inf.batchSize)
		if err != nil {
			return stats, fmt.Errorf("page atoms: %w", err)
		}
		if len(atoms) == 0 {
			break
		}

		added, err := inf.reconcileBatch(ctx, atoms)
		if err != nil {
			log.Error("infector batch after cursor %q failed: %v", cursor, err)
			return stats, fmt.Errorf("reconcile batch after %q: %w", cursor, err)
		}
		stats.AtomsVisited += len(atoms)
		stats.TagsAdded += added
		cursor = atoms[len(atoms)-1].ID
	}
	return stats, nil
}

// reconcileBatch recomputes each atom's tag set and upserts any tag the
// atom doesn't already carry, scoped to every bucket the atom currently
// appears in.
func (inf *Infector) reconcileBatch(ctx context.Context, atoms []model.Atom) (int, error) {
	var newRows []model.TagRow

	for _, atom := range atoms {
		computed := inf.extractor.ContentTags(atom.Label)
		if len(computed) == 0 {
			continue
		}
		existing, err := inf.store.TagsForAtom(ctx, atom.ID)
		if err != nil {
			return 0, fmt.Errorf("existing tags for %s: %w", atom.ID, err)
		}
		buckets, err := inf.store.BucketsForAtom(ctx, atom.ID)
		if err != nil {
			return 0, fmt.Errorf("buckets for %s: %w", atom.ID, err)
		}
		for _, label := range computed {
			tag := bareLabel(label)
			if existing[tag] {
				continue
			}
			for _, bucket := range buckets {
				newRows = append(newRows, model.TagRow{AtomID: atom.ID, Tag: tag, Bucket: bucket})
			}
		}
	}

	if len(newRows) == 0 {
		return 0, nil
	}
	if err := inf.store.UpsertTags(ctx, newRows); err != nil {
		return 0, fmt.Errorf("upsert reconciled tags: %w", err)
	}
	return len(newRows), nil
}

func bareLabel(label string) string {
	if len(label) > 0 && label[0] == '#' {
		return label[1:]
	}
	return label
}
