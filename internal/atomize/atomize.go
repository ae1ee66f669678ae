// Package atomize orchestrates sanitize, split, tagextract, and fingerprint
// into the full (compound, molecules[], atoms[]) tree a single ingested
// file produces.
package atomize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/rsbalchii/anchoros/internal/config"
	"github.com/rsbalchii/anchoros/internal/fingerprint"
	"github.com/rsbalchii/anchoros/internal/model"
	"github.com/rsbalchii/anchoros/internal/sanitize"
	"github.com/rsbalchii/anchoros/internal/split"
	"github.com/rsbalchii/anchoros/internal/tagextract"
)

// maxPositionsPerAtom bounds how many byte offsets get recorded per atom
// label within one compound, so a common word doesn't blow up the
// atom_positions table.
const maxPositionsPerAtom = 50

// metadataTimestampPattern finds a JSON "timestamp" wrapper value in the raw
// bytes; sanitize drops that pair from the cleaned body.
var metadataTimestampPattern = regexp.MustCompile(`"timestamp"\s*:\s*"([^"]*)"`)

// Atomizer turns sanitized file content into the persisted entity graph.
type Atomizer struct {
	extractor        *tagextract.Extractor
	maxMoleculeBytes int
	maxBodyBytes     int
}

// New builds an Atomizer bounded by cfg's molecule/body size ceilings.
func New(extractor *tagextract.Extractor, cfg config.Config) *Atomizer {
	return &Atomizer{
		extractor:        extractor,
		maxMoleculeBytes: cfg.MaxMoleculeBytes,
		maxBodyBytes:     cfg.MaxBodyBytes,
	}
}

// Result bundles the entity tree plus the flattened rows the store
// persists independently of the nested Compound shape.
type Result struct {
	Compound  *model.Compound
	Atoms     []*model.Atom
	Tags      []model.TagRow
	Edges     []model.Edge
	Positions []model.AtomPosition
}

// Atomize runs the full pipeline for one file: sanitize the raw bytes,
// compute the compound id, split into molecules, extract atoms per
// molecule, and assemble timestamps via the rolling fallback hierarchy.
func (a *Atomizer) Atomize(path string, raw []byte, provenance model.Provenance, bucket string, mtime time.Time) (*Result, error) {
	cleaned := sanitize.Sanitize(string(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("atomize %s: empty after sanitization", path)
	}

	compoundID := compoundID(cleaned, path)
	signature := fingerprint.Fingerprint(cleaned)

	body := cleaned
	if a.maxBodyBytes > 0 && len(body) > a.maxBodyBytes {
		body = body[:a.maxBodyBytes] + model.BodyTruncationSentinel
	}

	systemLabels, archiveWeighted := tagextract.SystemTags(path)

	hint := split.DetectType(path, cleaned)
	fragments := split.SplitWithPath(path, cleaned, hint, a.maxMoleculeBytes)

	atomsByID := make(map[string]*model.Atom)
	tagSeen := make(map[model.TagRow]bool)
	positionLabels := make(map[string]bool)

	var molecules []*model.Molecule
	var rolling int64
	if m := metadataTimestampPattern.FindStringSubmatch(string(raw)); m != nil {
		if ts, ok := extractTimestamp(m[1]); ok {
			rolling = ts
		}
	}

	for seq, frag := range fragments {
		molType := model.MoleculeType(frag.Type)

		contentLabels := a.extractor.ContentTags(frag.Content)
		allLabels := append(append([]string{}, systemLabels...), contentLabels...)

		for _, label := range allLabels {
			atom := tagextract.ToAtom(label, labelAtomType(label), archiveWeighted)
			atomsByID[atom.ID] = atom
			positionLabels[label] = true
			tagSeen[model.TagRow{AtomID: atom.ID, Tag: bucketTag(label), Bucket: bucket}] = true
		}

		ts, sawInContent := extractTimestamp(frag.Content)
		if sawInContent {
			rolling = ts
		}
		molTimestamp := resolveTimestamp(rolling, mtime)

		var numericValue *float64
		var numericUnit string
		if molType == model.MoleculeData {
			if v, unit, ok := extractNumeric(frag.Content); ok {
				numericValue = &v
				numericUnit = unit
			}
		}

		molecules = append(molecules, &model.Molecule{
			ID:                 fmt.Sprintf("%s-%d", compoundID, seq),
			CompoundID:         compoundID,
			Sequence:           seq,
			Content:            frag.Content,
			Type:               molType,
			StartByte:          frag.StartByte,
			EndByte:            frag.EndByte,
			NumericValue:       numericValue,
			NumericUnit:        numericUnit,
			MolecularSignature: fingerprint.Fingerprint(frag.Content),
			TimestampUnixMilli: molTimestamp,
		})
	}

	compoundTimestamp := resolveTimestamp(rolling, mtime)
	if len(molecules) > 0 {
		compoundTimestamp = molecules[0].TimestampUnixMilli
	}

	compound := &model.Compound{
		ID:                 compoundID,
		Path:               path,
		TimestampUnixMilli: compoundTimestamp,
		Provenance:         provenance,
		MolecularSignature: signature,
		Body:               body,
		Bucket:             bucket,
		Molecules:          molecules,
	}

	atoms := make([]*model.Atom, 0, len(atomsByID))
	for _, atom := range atomsByID {
		atoms = append(atoms, atom)
	}
	compound.Atoms = atoms

	var tags []model.TagRow
	for row := range tagSeen {
		tags = append(tags, row)
	}

	var edges []model.Edge
	for _, atom := range atoms {
		edges = append(edges, model.Edge{
			SourceID: compoundID,
			TargetID: atom.ID,
			Relation: model.RelationHasTag,
			Weight:   atom.Weight,
		})
	}

	positions := positionsInBody(compoundID, body, positionLabels)

	return &Result{
		Compound:  compound,
		Atoms:     atoms,
		Tags:      tags,
		Edges:     edges,
		Positions: positions,
	}, nil
}

// compoundID derives the compound's identity from the cleaned body and its
// source path, so re-ingesting identical bytes at the same path always
// resolves to the same id.
func compoundID(cleaned, path string) string {
	h := xxhash.Sum64String(cleaned + "\x00" + path)
	return fmt.Sprintf("%016x", h)
}

// resolveTimestamp applies steps 2-3 of the fallback hierarchy: file mtime,
// then wall clock, used whenever no in-content timestamp has been seen yet.
func resolveTimestamp(rolling int64, mtime time.Time) int64 {
	if rolling != 0 {
		return rolling
	}
	if !mtime.IsZero() {
		return mtime.UnixMilli()
	}
	return time.Now().UnixMilli()
}

// labelAtomType classifies a label as system (path/extension-derived,
// recognizable by its fixed vocabulary) or concept (everything content
// extracts).
func labelAtomType(label string) model.AtomType {
	switch {
	case strings.HasPrefix(label, "#project:"), label == "#src", label == "#docs",
		label == "#test", label == "#code", label == "#doc", label == "#config", label == "#Archive":
		return model.AtomSystem
	default:
		return model.AtomConcept
	}
}

// bucketTag strips the leading '#' so stored tags are bare labels; the atom
// itself keeps the '#' in its Label for display.
func bucketTag(label string) string {
	return strings.TrimPrefix(label, "#")
}

// positionsInBody finds byte offsets for each label's bare text within
// body, capped per label so a common word's positions don't balloon the
// index.
func positionsInBody(compoundID, body string, labels map[string]bool) []model.AtomPosition {
	var positions []model.AtomPosition
	lowerBody := strings.ToLower(body)

	for label := range labels {
		needle := strings.ToLower(strings.TrimPrefix(strings.SplitN(label, ":", 2)[0], "#"))
		if needle == "" {
			continue
		}
		count := 0
		start := 0
		for count < maxPositionsPerAtom {
			idx := strings.Index(lowerBody[start:], needle)
			if idx < 0 {
				break
			}
			offset := start + idx
			positions = append(positions, model.AtomPosition{
				CompoundID: compoundID,
				AtomLabel:  label,
				ByteOffset: offset,
			})
			start = offset + len(needle)
			count++
		}
	}
	return positions
}
