package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/mtxshell/internal/database"
	"github.com/jask/mtxshell/internal/database/repository"
)

func setupRepo(t *testing.T) (*repository.MatrixRepo, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewMatrixRepo(db), ctx
}

func seed() []repository.Matrix {
	return []repository.Matrix{
		{ID: 1, Group: "HB", Name: "1138_bus", Rows: 1138, Cols: 1138, NNZ: 4054, DType: "real", IsSPD: true, Kind: "power network problem"},
		{ID: 2, Group: "HB", Name: "494_bus", Rows: 494, Cols: 494, NNZ: 1666, DType: "real", IsSPD: true, Kind: "power network problem"},
		{ID: 23, Group: "HB", Name: "bcsstk01", Rows: 48, Cols: 48, NNZ: 400, DType: "real", IsSPD: true, Kind: "structural problem"},
		{ID: 400, Group: "Pajek", Name: "GD95_a", Rows: 36, Cols: 36, NNZ: 57, DType: "binary", Kind: "directed graph"},
		{ID: 900, Group: "Bai", Name: "qc324", Rows: 324, Cols: 324, NNZ: 26730, DType: "complex", Is2D3D: true, Kind: "electromagnetics problem"},
	}
}

func TestMatrixRepoReplaceAllAndCount(t *testing.T) {
	t.Parallel()
	repo, ctx := setupRepo(t)

	require.NoError(t, repo.ReplaceAll(ctx, seed()))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.NoError(t, repo.ReplaceAll(ctx, seed()[:2]))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMatrixRepoGet(t *testing.T) {
	t.Parallel()
	repo, ctx := setupRepo(t)
	require.NoError(t, repo.ReplaceAll(ctx, seed()))

	m, err := repo.Get(ctx, 23)
	require.NoError(t, err)
	require.Equal(t, "bcsstk01", m.Name)
	require.True(t, m.IsSPD)
	require.False(t, m.Is2D3D)

	_, err = repo.Get(ctx, 9999)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMatrixRepoSearch(t *testing.T) {
	t.Parallel()
	repo, ctx := setupRepo(t)
	require.NoError(t, repo.ReplaceAll(ctx, seed()))

	yes := true
	cases := []struct {
		name string
		c    repository.Criteria
		want []int
	}{
		{name: "all", c: repository.Criteria{}, want: []int{1, 2, 23, 400, 900}},
		{name: "limit", c: repository.Criteria{Limit: 2}, want: []int{1, 2}},
		{name: "row bounds inclusive", c: repository.Criteria{RowBounds: &repository.Bounds{Min: 36, Max: 48}}, want: []int{23, 400}},
		{name: "nnz bounds", c: repository.Criteria{NNZBounds: &repository.Bounds{Min: 1000, Max: 5000}}, want: []int{1, 2}},
		{name: "dtype", c: repository.Criteria{DType: "binary"}, want: []int{400}},
		{name: "group substring", c: repository.Criteria{Group: "paj"}, want: []int{400}},
		{name: "kind substring", c: repository.Criteria{Kind: "structural"}, want: []int{23}},
		{name: "2d3d flag", c: repository.Criteria{Is2D3D: &yes}, want: []int{900}},
		{name: "spd and cols", c: repository.Criteria{IsSPD: &yes, ColBounds: &repository.Bounds{Min: 0, Max: 500}}, want: []int{2, 23}},
	}
	for _, tc := range cases {
		got, err := repo.Search(ctx, tc.c)
		require.NoError(t, err, tc.name)
		ids := make([]int, 0, len(got))
		for _, m := range got {
			ids = append(ids, m.ID)
		}
		require.Equal(t, tc.want, ids, tc.name)
	}
}

func TestMatrixRepoMeta(t *testing.T) {
	t.Parallel()
	repo, ctx := setupRepo(t)

	_, ok, err := repo.Meta(ctx, "index_date")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SetMeta(ctx, "index_date", "2024-01-01"))
	require.NoError(t, repo.SetMeta(ctx, "index_date", "2025-06-30"))
	v, ok, err := repo.Meta(ctx, "index_date")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2025-06-30", v)
}

func TestMatrixCellsMatchColumns(t *testing.T) {
	t.Parallel()
	m := seed()[2]
	require.Len(t, m.Cells(), len(repository.Columns()))
	require.Equal(t, []string{"23", "HB", "bcsstk01", "48", "48", "400", "real", "false", "true"}, m.Cells())
}
