// Package model holds the entities shared across the atomization pipeline,
// the store, and the searcher: Compound, Molecule, Atom, plus the
// relational Tag/Edge/AtomPosition/Source rows.
package model

// Provenance distinguishes user-sovereign content from scraped/imported
// content. The legacy "system" value is a dead branch and is mapped to
// Internal wherever it would otherwise appear.
type Provenance string

const (
	ProvenanceInternal Provenance = "internal"
	ProvenanceExternal Provenance = "external"
)

// MoleculeType is the splitter's type-aware partition.
type MoleculeType string

const (
	MoleculeProse MoleculeType = "prose"
	MoleculeCode  MoleculeType = "code"
	MoleculeData  MoleculeType = "data"
)

// AtomType distinguishes path/extension-derived system atoms from
// content-derived concept atoms.
type AtomType string

const (
	AtomSystem  AtomType = "system"
	AtomConcept AtomType = "concept"
)

// ArchiveWeight is applied to atoms discovered beneath history/ or archive/.
const ArchiveWeight = 0.5

// DefaultWeight is applied to every other atom.
const DefaultWeight = 1.0

// BodyTruncationSentinel is appended when a body exceeds a configured
// byte ceiling.
const BodyTruncationSentinel = "\n...[TRUNCATED]"

// Compound is one ingested file version.
type Compound struct {
	ID                 string
	Path               string
	TimestampUnixMilli  int64
	Provenance         Provenance
	MolecularSignature uint64
	Body               string
	Bucket             string
	Molecules          []*Molecule
	Atoms              []*Atom
}

// Molecule is a semantic segment with an exact byte range into the owning
// compound's body.
type Molecule struct {
	ID                 string
	CompoundID         string
	Sequence           int
	Content            string
	Type               MoleculeType
	StartByte          int
	EndByte            int
	NumericValue       *float64
	NumericUnit        string
	MolecularSignature uint64
	TimestampUnixMilli  int64
	Atoms              []*Atom
}

// Atom is a tag/concept node.
type Atom struct {
	ID     string
	Label  string
	Type   AtomType
	Weight float64
}

// TagRow is the associative layer the Tag-Walker traverses.
type TagRow struct {
	AtomID string
	Tag    string
	Bucket string
}

// Edge links a compound to an atom (currently only "has_tag").
type Edge struct {
	SourceID string
	TargetID string
	Relation string
	Weight   float64
}

const RelationHasTag = "has_tag"

// AtomPosition is the lazy-inflation index: where label appears within a
// compound's body.
type AtomPosition struct {
	CompoundID string
	AtomLabel  string
	ByteOffset int
}

// SourceRecord is the ingestion scheduler's per-path dedup memory.
type SourceRecord struct {
	Path        string
	Hash        string
	TotalAtoms  int
	LastIngest  int64
}
