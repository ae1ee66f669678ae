package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rsbalchii/anchoros/internal/model"
)

// ReadCompoundBody returns the byte slice [startByte, endByte) of a
// compound's body. Offsets are clamped to the body's actual length so a
// stale position index never panics a caller.
func (s *Store) ReadCompoundBody(ctx context.Context, compoundID string, startByte, endByte int) (string, error) {
	var body string
	row := s.db.QueryRowContext(ctx, `SELECT compound_body FROM compounds WHERE id = ?`, compoundID)
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("compound %s not found", compoundID)
		}
		return "", fmt.Errorf("read compound body %s: %w", compoundID, err)
	}
	if startByte < 0 {
		startByte = 0
	}
	if endByte > len(body) {
		endByte = len(body)
	}
	if startByte > endByte {
		startByte = endByte
	}
	return body[startByte:endByte], nil
}

// SearchHit is one full-text match against compounds_fts, carrying enough
// of the compound row for the searcher to score and the inflator to read.
type SearchHit struct {
	CompoundID         string
	Bucket             string
	Path               string
	Provenance         model.Provenance
	TimestampUnixMilli int64
	MolecularSignature uint64
	Rank               float64
}

// SearchFTS runs an FTS5 MATCH query over compound bodies, optionally
// restricted to a set of buckets and/or provenance values, and returns
// hits ordered by FTS5's bm25 rank (lower is more relevant).
func (s *Store) SearchFTS(ctx context.Context, query string, buckets []string, provenances []string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	args := []interface{}{query}
	sqlQuery := `SELECT c.id, c.bucket, c.path, c.provenance, c.timestamp_unix_milli, c.molecular_signature, bm25(compounds_fts) AS rank
		FROM compounds_fts
		JOIN compounds c ON c.rowid = compounds_fts.rowid
		WHERE compounds_fts MATCH ? AND c.quarantined = 0`
	if len(buckets) > 0 {
		placeholders := make([]string, len(buckets))
		for i, b := range buckets {
			placeholders[i] = "?"
			args = append(args, b)
		}
		sqlQuery += fmt.Sprintf(" AND c.bucket IN (%s)", strings.Join(placeholders, ","))
	}
	if len(provenances) > 0 {
		placeholders := make([]string, len(provenances))
		for i, p := range provenances {
			placeholders[i] = "?"
			args = append(args, p)
		}
		sqlQuery += fmt.Sprintf(" AND c.provenance IN (%s)", strings.Join(placeholders, ","))
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search fts: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var provenance string
		if err := rows.Scan(&h.CompoundID, &h.Bucket, &h.Path, &provenance, &h.TimestampUnixMilli, &h.MolecularSignature, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan fts hit: %w", err)
		}
		h.Provenance = model.Provenance(provenance)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// CompoundByID fetches a single compound's scoring-relevant fields by id,
// used by the searcher when a tag walk reaches a compound that never
// matched the FTS anchor phase directly.
func (s *Store) CompoundByID(ctx context.Context, compoundID string) (*SearchHit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, bucket, path, provenance, timestamp_unix_milli, molecular_signature
		FROM compounds WHERE id = ? AND quarantined = 0`, compoundID)
	var h SearchHit
	var provenance string
	if err := row.Scan(&h.CompoundID, &h.Bucket, &h.Path, &provenance, &h.TimestampUnixMilli, &h.MolecularSignature); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("compound by id %s: %w", compoundID, err)
	}
	h.Provenance = model.Provenance(provenance)
	return &h, nil
}

// AtomsForCompound returns the atoms tagged against compoundID via the
// has_tag edge, used by the searcher to seed the walk phase from an
// anchor's own tag set.
func (s *Store) AtomsForCompound(ctx context.Context, compoundID string) ([]model.Atom, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT a.id, a.label, a.type, a.weight
		FROM edges e
		JOIN atoms a ON a.id = e.target_id
		WHERE e.source_id = ? AND e.relation = ?`, compoundID, model.RelationHasTag)
	if err != nil {
		return nil, fmt.Errorf("atoms for compound %s: %w", compoundID, err)
	}
	defer rows.Close()

	var atoms []model.Atom
	for rows.Next() {
		var a model.Atom
		var atomType string
		if err := rows.Scan(&a.ID, &a.Label, &atomType, &a.Weight); err != nil {
			return nil, fmt.Errorf("scan atom for compound: %w", err)
		}
		a.Type = model.AtomType(atomType)
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// AtomsByLabel resolves explicit tag labels (case-insensitive, leading '#'
// optional) to their atom rows, used when a caller supplies explicit tags
// alongside a free-text query.
func (s *Store) AtomsByLabel(ctx context.Context, labels []string) ([]model.Atom, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(labels))
	args := make([]interface{}, len(labels))
	for i, label := range labels {
		placeholders[i] = "?"
		if !strings.HasPrefix(label, "#") {
			label = "#" + label
		}
		args[i] = label
	}
	query := fmt.Sprintf(`SELECT id, label, type, weight FROM atoms WHERE label COLLATE NOCASE IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("atoms by label: %w", err)
	}
	defer rows.Close()

	var atoms []model.Atom
	for rows.Next() {
		var a model.Atom
		var atomType string
		if err := rows.Scan(&a.ID, &a.Label, &atomType, &a.Weight); err != nil {
			return nil, fmt.Errorf("scan atom by label: %w", err)
		}
		a.Type = model.AtomType(atomType)
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// AtomsPage returns up to limit atoms with id > afterID, ordered by id,
// for cursor-paginated streaming passes such as the tag infector's.
func (s *Store) AtomsPage(ctx context.Context, afterID string, limit int) ([]model.Atom, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, type, weight FROM atoms
		WHERE id > ? ORDER BY id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("atoms page: %w", err)
	}
	defer rows.Close()

	var atoms []model.Atom
	for rows.Next() {
		var a model.Atom
		var atomType string
		if err := rows.Scan(&a.ID, &a.Label, &atomType, &a.Weight); err != nil {
			return nil, fmt.Errorf("scan atoms page: %w", err)
		}
		a.Type = model.AtomType(atomType)
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// TagsForAtom returns the set of tag strings currently recorded for
// atomID, used by the tag infector to diff against a freshly computed
// tag set.
func (s *Store) TagsForAtom(ctx context.Context, atomID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM tags WHERE atom_id = ?`, atomID)
	if err != nil {
		return nil, fmt.Errorf("tags for atom %s: %w", atomID, err)
	}
	defer rows.Close()

	tags := make(map[string]bool)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag for atom: %w", err)
		}
		tags[tag] = true
	}
	return tags, rows.Err()
}

// BucketsForAtom returns the distinct buckets of compounds the atom is
// tagged against via has_tag edges, used by the tag infector to scope
// freshly computed tags to the buckets the atom actually appears in.
func (s *Store) BucketsForAtom(ctx context.Context, atomID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT c.bucket
		FROM edges e
		JOIN compounds c ON c.id = e.source_id
		WHERE e.target_id = ? AND e.relation = ?`, atomID, model.RelationHasTag)
	if err != nil {
		return nil, fmt.Errorf("buckets for atom %s: %w", atomID, err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan bucket for atom: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// SearchAtomsFTS matches atom labels directly against atoms_fts. The
// searcher's anchor step queries compound bodies through SearchFTS and
// does not call it.
func (s *Store) SearchAtomsFTS(ctx context.Context, query string, limit int) ([]model.Atom, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT a.id, a.label, a.type, a.weight
		FROM atoms_fts
		JOIN atoms a ON a.rowid = atoms_fts.rowid
		WHERE atoms_fts MATCH ?
		ORDER BY bm25(atoms_fts) LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search atoms fts: %w", err)
	}
	defer rows.Close()

	var atoms []model.Atom
	for rows.Next() {
		var a model.Atom
		var atomType string
		if err := rows.Scan(&a.ID, &a.Label, &atomType, &a.Weight); err != nil {
			return nil, fmt.Errorf("scan atom hit: %w", err)
		}
		a.Type = model.AtomType(atomType)
		atoms = append(atoms, a)
	}
	return atoms, rows.Err()
}

// WalkHit is one compound reached during a tag walk, annotated with the
// atom that led to it and how many hops away it was found.
type WalkHit struct {
	CompoundID string
	AtomID     string
	Hop        int
}

// Walk performs a breadth-first traversal outward from seedAtomIDs across
// shared tags: hop 0 is every compound directly tagged with a seed atom;
// each subsequent hop follows atoms that co-occur (share a tag) with atoms
// already visited, up to maxPerHop co-occurring atoms pulled in per
// frontier atom and radius hops deep. buckets, when non-empty, restricts
// every hop to compounds in those buckets.
func (s *Store) Walk(ctx context.Context, seedAtomIDs []string, buckets []string, maxPerHop, radius int) ([]WalkHit, error) {
	if len(seedAtomIDs) == 0 || radius < 0 {
		return nil, nil
	}
	visitedAtoms := make(map[string]bool, len(seedAtomIDs))
	frontier := append([]string(nil), seedAtomIDs...)
	for _, id := range frontier {
		visitedAtoms[id] = true
	}

	var hits []WalkHit
	seenCompounds := make(map[string]bool)

	for hop := 0; hop <= radius && len(frontier) > 0; hop++ {
		if err := ctx.Err(); err != nil {
			return hits, err
		}
		compoundsThisHop, err := s.compoundsForAtoms(ctx, frontier, buckets)
		if err != nil {
			return hits, err
		}
		for atomID, compoundIDs := range compoundsThisHop {
			for _, cid := range compoundIDs {
				if seenCompounds[cid] {
					continue
				}
				seenCompounds[cid] = true
				hits = append(hits, WalkHit{CompoundID: cid, AtomID: atomID, Hop: hop})
			}
		}

		if hop == radius {
			break
		}
		nextFrontier, err := s.coOccurringAtoms(ctx, frontier, visitedAtoms, maxPerHop)
		if err != nil {
			return hits, err
		}
		for _, id := range nextFrontier {
			visitedAtoms[id] = true
		}
		frontier = nextFrontier
	}
	return hits, nil
}

// compoundsForAtoms returns, per atom id, the compounds tagged with it
// (via the has_tag edge), restricted to buckets when non-empty.
func (s *Store) compoundsForAtoms(ctx context.Context, atomIDs []string, buckets []string) (map[string][]string, error) {
	if len(atomIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(atomIDs))
	args := make([]interface{}, 0, len(atomIDs)+len(buckets)+1)
	for i, id := range atomIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT e.target_id, c.id FROM edges e
		JOIN compounds c ON c.id = e.source_id
		WHERE e.relation = ? AND c.quarantined = 0 AND e.target_id IN (%s)`, strings.Join(placeholders, ","))
	args = append([]interface{}{model.RelationHasTag}, args...)
	if len(buckets) > 0 {
		bp := make([]string, len(buckets))
		for i, b := range buckets {
			bp[i] = "?"
			args = append(args, b)
		}
		query += fmt.Sprintf(" AND c.bucket IN (%s)", strings.Join(bp, ","))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("walk compounds for atoms: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var atomID, compoundID string
		if err := rows.Scan(&atomID, &compoundID); err != nil {
			return nil, fmt.Errorf("scan walk row: %w", err)
		}
		result[atomID] = append(result[atomID], compoundID)
	}
	return result, rows.Err()
}

// coOccurringAtoms finds atoms that share a tag bucket with any atom in
// frontier, excluding atoms already visited, capped at maxPerHop per
// frontier atom.
func (s *Store) coOccurringAtoms(ctx context.Context, frontier []string, visited map[string]bool, maxPerHop int) ([]string, error) {
	if maxPerHop <= 0 {
		maxPerHop = 10
	}
	var next []string
	seen := make(map[string]bool)
	for _, atomID := range frontier {
		rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT t2.atom_id
			FROM tags t1
			JOIN tags t2 ON t1.tag = t2.tag AND t1.bucket = t2.bucket
			WHERE t1.atom_id = ? AND t2.atom_id != ?
			LIMIT ?`, atomID, atomID, maxPerHop)
		if err != nil {
			return nil, fmt.Errorf("co-occurring atoms: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan co-occurring atom: %w", err)
			}
			if !visited[id] && !seen[id] {
				seen[id] = true
				next = append(next, id)
			}
		}
		rows.Close()
	}
	return next, nil
}

// PositionsFor returns, for each requested atom label, the byte offsets at
// which it appears within compoundID's body, used by the context inflator
// to seed outward expansion.
func (s *Store) PositionsFor(ctx context.Context, compoundID string, atomLabels []string) (map[string][]int, error) {
	if len(atomLabels) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(atomLabels))
	args := make([]interface{}, 0, len(atomLabels)+1)
	args = append(args, compoundID)
	for i, label := range atomLabels {
		placeholders[i] = "?"
		args = append(args, label)
	}
	query := fmt.Sprintf(`SELECT atom_label, byte_offset FROM atom_positions
		WHERE compound_id = ? AND atom_label IN (%s)
		ORDER BY byte_offset`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("positions for %s: %w", compoundID, err)
	}
	defer rows.Close()

	result := make(map[string][]int)
	for rows.Next() {
		var label string
		var offset int
		if err := rows.Scan(&label, &offset); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result[label] = append(result[label], offset)
	}
	return result, rows.Err()
}
