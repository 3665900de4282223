package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/thermoflow/thermoflow/internal/chem"
	"github.com/thermoflow/thermoflow/internal/record"
)

// Query narrows a record search beyond the mandatory formula match.
type Query struct {
	Formula string
	// Phase restricts results to one phase when non-nil.
	Phase *record.Phase
	// Overlaps restricts results to records intersecting the range
	// when non-nil.
	Overlaps *record.TRange
}

// Search returns all records for a formula, in deterministic order.
// Implements the resolver's RecordSource interface.
func (s *Store) Search(ctx context.Context, formula string) ([]*record.Record, error) {
	return s.Select(ctx, Query{Formula: formula})
}

// Select runs a narrowed record query. Results are always ordered by
// (tmin, tmax, phase, reliability rank, id) so repeated queries are
// byte-stable regardless of insertion order.
func (s *Store) Select(ctx context.Context, q Query) ([]*record.Record, error) {
	sqlText, params := buildQuery(q)
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// buildQuery compiles a Query into parameterized SQL. Values are never
// interpolated into the statement text.
func buildQuery(q Query) (string, []any) {
	var (
		where  = []string{"formula = ?"}
		params = []any{chem.Normalize(q.Formula)}
	)
	if q.Phase != nil {
		where = append(where, "phase = ?")
		params = append(params, string(*q.Phase))
	}
	if q.Overlaps != nil {
		where = append(where, "tmin <= ? AND tmax >= ?")
		params = append(params, q.Overlaps.Max, q.Overlaps.Min)
	}
	sqlText := `
		SELECT formula, phase, tmin, tmax, h298, s298,
		       f1, f2, f3, f4, f5, f6,
		       reliability_class, melting_point, boiling_point
		FROM records
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY tmin ASC, tmax ASC, phase ASC,
		         CASE reliability_class WHEN 0 THEN 10 ELSE reliability_class END ASC,
		         id ASC`
	return sqlText, params
}

// Insert stores one record.
func (s *Store) Insert(ctx context.Context, r *record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (formula, phase, tmin, tmax, h298, s298,
		                     f1, f2, f3, f4, f5, f6,
		                     reliability_class, melting_point, boiling_point)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chem.Normalize(r.Formula), string(r.Phase), r.Tmin, r.Tmax, r.H298, r.S298,
		r.Coeffs[0], r.Coeffs[1], r.Coeffs[2], r.Coeffs[3], r.Coeffs[4], r.Coeffs[5],
		r.ReliabilityClass, nullable(r.MeltingPoint), nullable(r.BoilingPoint),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", r.Key(), err)
	}
	return nil
}

// InsertBatch stores records atomically: either every record lands or
// none do.
func (s *Store) InsertBatch(ctx context.Context, recs []*record.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (formula, phase, tmin, tmax, h298, s298,
		                     f1, f2, f3, f4, f5, f6,
		                     reliability_class, melting_point, boiling_point)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			chem.Normalize(r.Formula), string(r.Phase), r.Tmin, r.Tmax, r.H298, r.S298,
			r.Coeffs[0], r.Coeffs[1], r.Coeffs[2], r.Coeffs[3], r.Coeffs[4], r.Coeffs[5],
			r.ReliabilityClass, nullable(r.MeltingPoint), nullable(r.BoilingPoint),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Formulas returns the distinct formulas present, sorted.
func (s *Store) Formulas(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT formula FROM records ORDER BY formula ASC")
	if err != nil {
		return nil, fmt.Errorf("query formulas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan formula: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (*record.Record, error) {
	var (
		r          record.Record
		phaseLabel string
		mp, bp     sql.NullFloat64
	)
	err := rows.Scan(&r.Formula, &phaseLabel, &r.Tmin, &r.Tmax, &r.H298, &r.S298,
		&r.Coeffs[0], &r.Coeffs[1], &r.Coeffs[2], &r.Coeffs[3], &r.Coeffs[4], &r.Coeffs[5],
		&r.ReliabilityClass, &mp, &bp)
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	r.Phase = record.ParsePhase(phaseLabel)
	if mp.Valid {
		v := mp.Float64
		r.MeltingPoint = &v
	}
	if bp.Valid {
		v := bp.Float64
		r.BoilingPoint = &v
	}
	return &r, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
