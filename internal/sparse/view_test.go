package sparse

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// fiveByFive is a 5x5 matrix with 6 nonzeros stored out of row order.
func fiveByFive() *Coordinate {
	return &Coordinate{
		Rows: 5, Cols: 5,
		Row: []int{0, 1, 3, 0, 4, 2},
		Col: []int{0, 1, 4, 2, 4, 3},
		Val: []float64{1, 2, 3, 4, 5, 6},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range FormatNames() {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		require.Equal(t, name, f.String())
	}
	f, err := ParseFormat("CSR")
	require.NoError(t, err)
	require.Equal(t, CSR, f)

	_, err = ParseFormat("dia")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFromCoordinateCOOCopies(t *testing.T) {
	m := fiveByFive()
	v, err := FromCoordinate(m, COO)
	require.NoError(t, err)
	require.Equal(t, "row", v.ArrayName(SelRow))
	require.Equal(t, m.Row, v.Ints(SelRow))
	require.Equal(t, m.Col, v.Ints(SelCol))
	require.Equal(t, m.Val, v.Values())

	m.Val[0] = 99
	require.Equal(t, 1.0, v.Values()[0], "view must not alias its source")
}

func TestFromCoordinateCSR(t *testing.T) {
	v, err := FromCoordinate(fiveByFive(), CSR)
	require.NoError(t, err)
	require.Equal(t, CSR, v.Format())
	require.True(t, v.IsOffset(SelRow))
	require.False(t, v.IsOffset(SelCol))
	require.Equal(t, "row_offset", v.ArrayName(SelRow))
	require.Equal(t, []int{0, 2, 3, 4, 5, 6}, v.Ints(SelRow))
	require.Equal(t, []int{0, 2, 1, 3, 4, 4}, v.Ints(SelCol))
	require.Equal(t, []float64{1, 4, 2, 6, 3, 5}, v.Values())
}

func TestFromCoordinateCSC(t *testing.T) {
	v, err := FromCoordinate(fiveByFive(), CSC)
	require.NoError(t, err)
	require.True(t, v.IsOffset(SelCol))
	require.Equal(t, "col_offset", v.ArrayName(SelCol))
	require.Equal(t, []int{0, 1, 2, 3, 4, 6}, v.Ints(SelCol))
	require.Equal(t, []int{0, 1, 0, 2, 3, 4}, v.Ints(SelRow))
	require.Equal(t, []float64{1, 2, 4, 6, 3, 5}, v.Values())
}

func TestFromCoordinateEmpty(t *testing.T) {
	m := &Coordinate{Rows: 3, Cols: 4}
	csr, err := FromCoordinate(m, CSR)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 0, 0}, csr.Ints(SelRow))
	require.Empty(t, csr.Ints(SelCol))
	require.Empty(t, csr.Values())

	csc, err := FromCoordinate(m, CSC)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0, 0, 0, 0}, csc.Ints(SelCol))
	require.Zero(t, csc.NNZ())
}

func TestFromCoordinateRejectsInvalid(t *testing.T) {
	bad := []*Coordinate{
		nil,
		{Rows: -1, Cols: 2},
		{Rows: 2, Cols: 2, Row: []int{0}, Col: []int{0, 1}, Val: []float64{1}},
		{Rows: 2, Cols: 2, Row: []int{2}, Col: []int{0}, Val: []float64{1}},
		{Rows: 2, Cols: 2, Row: []int{0}, Col: []int{-1}, Val: []float64{1}},
	}
	for i, m := range bad {
		_, err := FromCoordinate(m, CSR)
		require.ErrorIs(t, err, ErrInvalidMatrix, "case %d", i)
	}
	_, err := FromCoordinate(fiveByFive(), Format(9))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func randomCoordinate(rng *rand.Rand) *Coordinate {
	m := &Coordinate{Rows: 1 + rng.Intn(30), Cols: 1 + rng.Intn(30)}
	nnz := rng.Intn(m.Rows * m.Cols)
	for p := 0; p < nnz; p++ {
		m.Row = append(m.Row, rng.Intn(m.Rows))
		m.Col = append(m.Col, rng.Intn(m.Cols))
		m.Val = append(m.Val, float64(rng.Intn(1000))/8)
	}
	return m
}

func TestConversionPreservesValues(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		m := randomCoordinate(rng)
		want := append([]float64(nil), m.Val...)
		sort.Float64s(want)
		var wantSum float64
		for _, x := range m.Val {
			wantSum += x
		}

		for _, f := range []Format{COO, CSR, CSC} {
			v, err := FromCoordinate(m, f)
			require.NoError(t, err)
			require.Equal(t, m.NNZ(), v.NNZ())
			if m.NNZ() == 0 {
				continue
			}
			mi := NewMetaInfo("rand", "market", m)
			s, err := v.Range(SelValue, mi.Bound(f, SelValue), 0, mi.NNZ)
			require.NoError(t, err)
			got := append([]float64(nil), s.Values...)
			sort.Float64s(got)
			require.Equal(t, want, got, "format %v", f)

			var sum float64
			for _, x := range s.Values {
				sum += x
			}
			require.InDelta(t, wantSum, sum, 1e-9)
		}
	}
}

func TestCompressedOffsetsAreMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 100; iter++ {
		m := randomCoordinate(rng)
		for _, tc := range []struct {
			f   Format
			sel Selector
			n   int
		}{{CSR, SelRow, m.Rows}, {CSC, SelCol, m.Cols}} {
			v, err := FromCoordinate(m, tc.f)
			require.NoError(t, err)
			off := v.Ints(tc.sel)
			require.Len(t, off, tc.n+1)
			require.Zero(t, off[0])
			require.Equal(t, m.NNZ(), off[tc.n])
			require.True(t, sort.IntsAreSorted(off))
		}
	}
}

func TestCSRKeepsUpstreamOrderWithinRow(t *testing.T) {
	m := &Coordinate{
		Rows: 2, Cols: 4,
		Row: []int{1, 0, 1, 1},
		Col: []int{3, 2, 0, 1},
		Val: []float64{10, 20, 30, 40},
	}
	v, err := FromCoordinate(m, CSR)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 4}, v.Ints(SelRow))
	require.Equal(t, []int{2, 3, 0, 1}, v.Ints(SelCol))
	require.Equal(t, []float64{20, 10, 30, 40}, v.Values())
}

func TestMetaInfo(t *testing.T) {
	mi := NewMetaInfo("five.mtx", "market", fiveByFive())
	require.Equal(t, 5, mi.Rows)
	require.Equal(t, 5, mi.Cols)
	require.Equal(t, 6, mi.NNZ)
	require.InDelta(t, 1.2, mi.NNZPerRow, 1e-12)
	require.Equal(t, []string{"five.mtx", "market", "5", "5", "6", "1.200"}, mi.Cells())
	require.Len(t, mi.Columns(), len(mi.Cells()))

	require.Equal(t, 5, mi.Bound(CSR, SelRow))
	require.Equal(t, 6, mi.Bound(CSR, SelCol))
	require.Equal(t, 5, mi.Bound(CSC, SelCol))
	require.Equal(t, 6, mi.Bound(CSC, SelRow))
	require.Equal(t, 6, mi.Bound(COO, SelRow))

	empty := NewMetaInfo("e", "market", &Coordinate{})
	require.Zero(t, empty.NNZPerRow)
}
