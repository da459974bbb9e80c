package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jask/mtxshell/internal/database"
)

// MatrixRepo handles the catalog index.
type MatrixRepo struct {
	db *sql.DB
}

func NewMatrixRepo(db *sql.DB) *MatrixRepo { return &MatrixRepo{db: db} }

const matrixColumns = `id, group_name, name, n_rows, n_cols, nnz, dtype, is_2d3d, is_spd, pattern_symmetry, numerical_symmetry, kind`

const upsertMatrix = `
	INSERT INTO matrices(` + matrixColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 group_name=excluded.group_name,
	 name=excluded.name,
	 n_rows=excluded.n_rows,
	 n_cols=excluded.n_cols,
	 nnz=excluded.nnz,
	 dtype=excluded.dtype,
	 is_2d3d=excluded.is_2d3d,
	 is_spd=excluded.is_spd,
	 pattern_symmetry=excluded.pattern_symmetry,
	 numerical_symmetry=excluded.numerical_symmetry,
	 kind=excluded.kind;
	`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, e execer, m Matrix) error {
	_, err := e.ExecContext(ctx, upsertMatrix,
		m.ID, m.Group, m.Name, m.Rows, m.Cols, m.NNZ, m.DType,
		m.Is2D3D, m.IsSPD, m.PatternSymmetry, m.NumericalSymmetry, m.Kind)
	return err
}

// ReplaceAll swaps the whole index for ms in one transaction.
func (r *MatrixRepo) ReplaceAll(ctx context.Context, ms []Matrix) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matrices`); err != nil {
			return err
		}
		for _, m := range ms {
			if err := upsert(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *MatrixRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matrices`).Scan(&n)
	return n, err
}

// Get returns the matrix with the given id, or sql.ErrNoRows.
func (r *MatrixRepo) Get(ctx context.Context, id int) (Matrix, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matrixColumns+` FROM matrices WHERE id = ?`, id)
	return scanMatrix(row)
}

// Search returns matrices matching c ordered by id.
func (r *MatrixRepo) Search(ctx context.Context, c Criteria) ([]Matrix, error) {
	var where []string
	var args []any
	bound := func(col string, b *Bounds) {
		if b == nil {
			return
		}
		where = append(where, col+" BETWEEN ? AND ?")
		args = append(args, b.Min, b.Max)
	}
	bound("n_rows", c.RowBounds)
	bound("n_cols", c.ColBounds)
	bound("nnz", c.NNZBounds)
	if c.IsSPD != nil {
		where = append(where, "is_spd = ?")
		args = append(args, *c.IsSPD)
	}
	if c.Is2D3D != nil {
		where = append(where, "is_2d3d = ?")
		args = append(args, *c.Is2D3D)
	}
	if c.DType != "" {
		where = append(where, "dtype = ?")
		args = append(args, c.DType)
	}
	if c.Group != "" {
		where = append(where, "group_name LIKE ?")
		args = append(args, "%"+c.Group+"%")
	}
	if c.Kind != "" {
		where = append(where, "kind LIKE ?")
		args = append(args, "%"+c.Kind+"%")
	}

	q := `SELECT ` + matrixColumns + ` FROM matrices`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	if c.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, c.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Matrix
	for rows.Next() {
		m, err := scanMatrix(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetMeta records a catalog-level fact such as the index date.
func (r *MatrixRepo) SetMeta(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO catalog_meta(key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value;
	`, key, value)
	return err
}

// Meta returns the stored value for key and whether it was present.
func (r *MatrixRepo) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatrix(s scanner) (Matrix, error) {
	var m Matrix
	err := s.Scan(&m.ID, &m.Group, &m.Name, &m.Rows, &m.Cols, &m.NNZ, &m.DType,
		&m.Is2D3D, &m.IsSPD, &m.PatternSymmetry, &m.NumericalSymmetry, &m.Kind)
	return m, err
}
