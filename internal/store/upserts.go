package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rsbalchii/anchoros/internal/logging"
	"github.com/rsbalchii/anchoros/internal/model"
)

// UpsertCompounds writes compounds in batches of at most maxBatchRows,
// yielding to ctx between batches.
func (s *Store) UpsertCompounds(ctx context.Context, compounds []*model.Compound) error {
	for _, batch := range chunk(compounds, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertCompoundBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertCompoundBatch(batch []*model.Compound) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*7)
	for _, c := range batch {
		placeholders = append(placeholders, "(?,?,?,?,?,?,?)")
		args = append(args, c.ID, c.Path, c.TimestampUnixMilli, string(c.Provenance), c.MolecularSignature, c.Body, c.Bucket)
	}
	query := fmt.Sprintf(`INSERT INTO compounds (id, path, timestamp_unix_milli, provenance, molecular_signature, compound_body, bucket)
		VALUES %s
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path, timestamp_unix_milli=excluded.timestamp_unix_milli,
			provenance=excluded.provenance, molecular_signature=excluded.molecular_signature,
			compound_body=excluded.compound_body, bucket=excluded.bucket`, strings.Join(placeholders, ","))
	return s.exec("upsert compounds", query, args...)
}

// UpsertMolecules writes molecules in batches.
func (s *Store) UpsertMolecules(ctx context.Context, molecules []*model.Molecule) error {
	for _, batch := range chunk(molecules, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertMoleculeBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertMoleculeBatch(batch []*model.Molecule) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*11)
	for _, m := range batch {
		placeholders = append(placeholders, "(?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args, m.ID, m.CompoundID, m.Sequence, m.Content, string(m.Type),
			m.StartByte, m.EndByte, m.NumericValue, m.NumericUnit, m.MolecularSignature, m.TimestampUnixMilli)
	}
	query := fmt.Sprintf(`INSERT INTO molecules
		(id, compound_id, sequence, content, type, start_byte, end_byte, numeric_value, numeric_unit, molecular_signature, timestamp_unix_milli)
		VALUES %s
		ON CONFLICT(id) DO UPDATE SET
			compound_id=excluded.compound_id, sequence=excluded.sequence, content=excluded.content,
			type=excluded.type, start_byte=excluded.start_byte, end_byte=excluded.end_byte,
			numeric_value=excluded.numeric_value, numeric_unit=excluded.numeric_unit,
			molecular_signature=excluded.molecular_signature, timestamp_unix_milli=excluded.timestamp_unix_milli`,
		strings.Join(placeholders, ","))
	return s.exec("upsert molecules", query, args...)
}

// UpsertAtoms writes atoms in batches, idempotent under atom id.
func (s *Store) UpsertAtoms(ctx context.Context, atoms []*model.Atom) error {
	for _, batch := range chunk(atoms, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertAtomBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertAtomBatch(batch []*model.Atom) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*4)
	for _, a := range batch {
		placeholders = append(placeholders, "(?,?,?,?)")
		args = append(args, a.ID, a.Label, string(a.Type), a.Weight)
	}
	query := fmt.Sprintf(`INSERT INTO atoms (id, label, type, weight)
		VALUES %s
		ON CONFLICT(id) DO UPDATE SET label=excluded.label, type=excluded.type, weight=excluded.weight`,
		strings.Join(placeholders, ","))
	return s.exec("upsert atoms", query, args...)
}

// UpsertTags writes tag rows in batches.
func (s *Store) UpsertTags(ctx context.Context, rows []model.TagRow) error {
	for _, batch := range chunk(rows, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertTagBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertTagBatch(batch []model.TagRow) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*3)
	for _, t := range batch {
		placeholders = append(placeholders, "(?,?,?)")
		args = append(args, t.AtomID, t.Tag, t.Bucket)
	}
	query := fmt.Sprintf(`INSERT INTO tags (atom_id, tag, bucket) VALUES %s
		ON CONFLICT(atom_id, tag, bucket) DO NOTHING`, strings.Join(placeholders, ","))
	return s.exec("upsert tags", query, args...)
}

// UpsertEdges writes has_tag (and future relation) edges in batches.
func (s *Store) UpsertEdges(ctx context.Context, edges []model.Edge) error {
	for _, batch := range chunk(edges, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertEdgeBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertEdgeBatch(batch []model.Edge) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*4)
	for _, e := range batch {
		placeholders = append(placeholders, "(?,?,?,?)")
		args = append(args, e.SourceID, e.TargetID, e.Relation, e.Weight)
	}
	query := fmt.Sprintf(`INSERT INTO edges (source_id, target_id, relation, weight) VALUES %s
		ON CONFLICT(source_id, target_id, relation) DO UPDATE SET weight=excluded.weight`,
		strings.Join(placeholders, ","))
	return s.exec("upsert edges", query, args...)
}

// UpsertAtomPositions writes the lazy-inflation index in batches.
func (s *Store) UpsertAtomPositions(ctx context.Context, positions []model.AtomPosition) error {
	for _, batch := range chunk(positions, maxBatchRows) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.upsertAtomPositionBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertAtomPositionBatch(batch []model.AtomPosition) error {
	if len(batch) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*3)
	for _, p := range batch {
		placeholders = append(placeholders, "(?,?,?)")
		args = append(args, p.CompoundID, p.AtomLabel, p.ByteOffset)
	}
	query := fmt.Sprintf(`INSERT INTO atom_positions (compound_id, atom_label, byte_offset) VALUES %s`,
		strings.Join(placeholders, ","))
	return s.exec("upsert atom positions", query, args...)
}

// UpsertSource records a single source row; sources are keyed one-per-path
// so there is no batching concern here.
func (s *Store) UpsertSource(ctx context.Context, rec model.SourceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.exec("upsert source", `INSERT INTO sources (path, hash, total_atoms, last_ingest)
		VALUES (?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET hash=excluded.hash, total_atoms=excluded.total_atoms, last_ingest=excluded.last_ingest`,
		rec.Path, rec.Hash, rec.TotalAtoms, rec.LastIngest)
}

// SourceByPath returns the dedup record for path, or nil if unseen.
func (s *Store) SourceByPath(ctx context.Context, path string) (*model.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT path, hash, total_atoms, last_ingest FROM sources WHERE path = ?`, path)
	var rec model.SourceRecord
	if err := row.Scan(&rec.Path, &rec.Hash, &rec.TotalAtoms, &rec.LastIngest); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}
	return &rec, nil
}

// exec runs a batch write, logging and wrapping failures as store errors.
// Per the failure semantics, a batch failure is the caller's signal to skip
// the remaining work for that file; it never panics or retries itself here
// (retry-with-backoff for transient failures lives in the caller, which can
// tell a transient conflict from a schema violation).
func (s *Store) exec(op, query string, args ...interface{}) error {
	if _, err := s.db.Exec(query, args...); err != nil {
		logging.Get(logging.CategoryStore).Error("%s failed: %v", op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
