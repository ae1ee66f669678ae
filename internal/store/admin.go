package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rsbalchii/anchoros/internal/fingerprint"
)

// SetCompoundQuarantined flips a compound's quarantined flag. A
// quarantined compound is excluded from FTS and tag-walk results but
// remains stored, so it can be restored without re-ingestion.
func (s *Store) SetCompoundQuarantined(ctx context.Context, compoundID string, quarantined bool) error {
	flag := 0
	if quarantined {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE compounds SET quarantined = ? WHERE id = ?`, flag, compoundID)
	if err != nil {
		return fmt.Errorf("set compound quarantined: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set compound quarantined rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("compound %s not found", compoundID)
	}
	return nil
}

// UpdateCompoundBody rewrites a compound's body in place and recomputes
// its molecular signature, used by update_atom_content at the boundary.
func (s *Store) UpdateCompoundBody(ctx context.Context, compoundID, body string) error {
	signature := fingerprint.Fingerprint(body)
	res, err := s.db.ExecContext(ctx, `UPDATE compounds SET compound_body = ?, molecular_signature = ? WHERE id = ?`, body, signature, compoundID)
	if err != nil {
		return fmt.Errorf("update compound body: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update compound body rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("compound %s not found", compoundID)
	}
	return nil
}

// ListBuckets returns every distinct bucket currently present in
// compounds.
func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT bucket FROM compounds ORDER BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// ListTags returns every distinct tag currently present, optionally
// restricted to a set of buckets.
func (s *Store) ListTags(ctx context.Context, buckets []string) ([]string, error) {
	query := `SELECT DISTINCT tag FROM tags`
	var args []interface{}
	if len(buckets) > 0 {
		placeholders := make([]string, len(buckets))
		for i, b := range buckets {
			placeholders[i] = "?"
			args = append(args, b)
		}
		query += fmt.Sprintf(` WHERE bucket IN (%s)`, strings.Join(placeholders, ","))
	}
	query += ` ORDER BY tag`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CompoundBody returns a compound's full body, used when re-fingerprinting
// or re-emitting positions for an edited compound.
func (s *Store) CompoundBody(ctx context.Context, compoundID string) (string, error) {
	var body string
	row := s.db.QueryRowContext(ctx, `SELECT compound_body FROM compounds WHERE id = ?`, compoundID)
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("compound %s not found", compoundID)
		}
		return "", fmt.Errorf("compound body %s: %w", compoundID, err)
	}
	return body, nil
}

// ReplaceAtomPositions deletes every recorded position for compoundID and
// inserts fresh ones, used after update_atom_content re-derives offsets.
func (s *Store) ReplaceAtomPositions(ctx context.Context, compoundID string, positions []AtomPositionInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM atom_positions WHERE compound_id = ?`, compoundID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear positions: %w", err)
	}
	for _, p := range positions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO atom_positions (compound_id, atom_label, byte_offset) VALUES (?, ?, ?)`,
			compoundID, p.AtomLabel, p.ByteOffset); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert position: %w", err)
		}
	}
	return tx.Commit()
}

// AtomPositionInput is a (label, offset) pair for ReplaceAtomPositions.
type AtomPositionInput struct {
	AtomLabel  string
	ByteOffset int
}
