package atomize

import (
	"testing"
	"time"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/tagextract"
)

func newTestAtomizer() *Atomizer {
	extractor := tagextract.New(&config.KeywordCatalog{})
	return New(extractor, config.Defaults())
}

func TestAtomize_ProducesOneProseMoleculeWithExtractedTimestamp(t *testing.T) {
	a := newTestAtomizer()
	raw := []byte(`{"response_content":"Alpha beta gamma.", "timestamp":"2024-01-01T00:00:00Z"}`)

	result, err := a.Atomize("inbox/notes/alpha.json", raw, model.ProvenanceInternal, "notes", time.Time{})
	if err != nil {
		t.Fatalf("atomize: %v", err)
	}

	if len(result.Compound.Molecules) != 1 {
		t.Fatalf("expected exactly one molecule, got %d", len(result.Compound.Molecules))
	}
	mol := result.Compound.Molecules[0]
	if mol.Type != model.MoleculeProse {
		t.Errorf("expected prose molecule, got %s", mol.Type)
	}
	if result.Compound.MolecularSignature == 0 {
		t.Error("expected non-zero molecular signature")
	}
	if mol.TimestampUnixMilli != 1704067200000 {
		t.Errorf("expected timestamp 1704067200000, got %d", mol.TimestampUnixMilli)
	}
}

func TestAtomize_IdenticalContentAndPathYieldsSameCompoundID(t *testing.T) {
	a := newTestAtomizer()
	raw := []byte("repeated content for dedup check")

	r1, err := a.Atomize("inbox/a.txt", raw, model.ProvenanceInternal, "inbox", time.Now())
	if err != nil {
		t.Fatalf("atomize first: %v", err)
	}
	r2, err := a.Atomize("inbox/a.txt", raw, model.ProvenanceInternal, "inbox", time.Now())
	if err != nil {
		t.Fatalf("atomize second: %v", err)
	}
	if r1.Compound.ID != r2.Compound.ID {
		t.Errorf("expected identical compound ids for identical content+path, got %s != %s", r1.Compound.ID, r2.Compound.ID)
	}
}

func TestAtomize_DataMoleculeExtractsNumericValue(t *testing.T) {
	a := newTestAtomizer()
	raw := []byte(`name,weight
widget,12.5kg`)

	result, err := a.Atomize("inbox/data/widget.csv", raw, model.ProvenanceInternal, "data", time.Now())
	if err != nil {
		t.Fatalf("atomize: %v", err)
	}
	var sawNumeric bool
	for _, mol := range result.Compound.Molecules {
		if mol.NumericValue != nil {
			sawNumeric = true
		}
	}
	if !sawNumeric {
		t.Error("expected at least one molecule with an extracted numeric value")
	}
}

func TestAtomize_ArchivePathWeightsAtomsLower(t *testing.T) {
	a := newTestAtomizer()
	raw := []byte("some archived project note")

	result, err := a.Atomize("history/old-project/note.md", raw, model.ProvenanceInternal, "history", time.Now())
	if err != nil {
		t.Fatalf("atomize: %v", err)
	}
	var sawArchiveWeight bool
	for _, atom := range result.Atoms {
		if atom.Weight == model.ArchiveWeight {
			sawArchiveWeight = true
		}
	}
	if !sawArchiveWeight {
		t.Error("expected at least one atom weighted at ArchiveWeight under a history/ path")
	}
}
