package sparse

import (
	"fmt"
	"slices"
	"strings"
)

// Format is a storage layout.
type Format int

const (
	COO Format = iota
	CSR
	CSC
)

var formatNames = [...]string{COO: "coo", CSR: "csr", CSC: "csc"}

func (f Format) String() string {
	if f < COO || f > CSC {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// ParseFormat accepts "coo", "csr" or "csc" in any case.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownFormat)
}

// FormatNames lists the accepted layout names.
func FormatNames() []string { return []string{"csr", "coo", "csc"} }

// Selector picks one of a view's three arrays.
type Selector int

const (
	SelRow Selector = iota
	SelCol
	SelValue
)

// Verb is the session command that reads the selector's array.
func (s Selector) Verb() string {
	switch s {
	case SelRow:
		return "r"
	case SelCol:
		return "c"
	default:
		return "v"
	}
}

// Selectors lists every selector in verb order.
func Selectors() []Selector { return []Selector{SelRow, SelCol, SelValue} }

type array struct {
	name   string
	ints   []int
	vals   []float64
	offset bool // length is bound+1
}

func (a *array) len() int {
	if a.vals != nil {
		return len(a.vals)
	}
	return len(a.ints)
}

func (a *array) at(i int) float64 {
	if a.vals != nil {
		return a.vals[i]
	}
	return float64(a.ints[i])
}

// View is an immutable layout of a matrix's nonzero structure.
type View struct {
	format     Format
	rows, cols int
	nnz        int
	arrays     [3]array
}

// FromCoordinate derives a view in layout f. Compressed layouts group
// entries by row (CSR) or column (CSC) keeping the upstream order within a
// group; nothing is re-sorted.
func FromCoordinate(m *Coordinate, f Format) (*View, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	v := &View{format: f, rows: m.Rows, cols: m.Cols, nnz: m.NNZ()}
	switch f {
	case COO:
		v.arrays = [3]array{
			{name: "row", ints: slices.Clone(m.Row)},
			{name: "col", ints: slices.Clone(m.Col)},
			{name: "value", vals: slices.Clone(m.Val)},
		}
	case CSR:
		off, idx, val := compress(m.Rows, m.Row, m.Col, m.Val)
		v.arrays = [3]array{
			{name: "row_offset", ints: off, offset: true},
			{name: "col_index", ints: idx},
			{name: "value", vals: val},
		}
	case CSC:
		off, idx, val := compress(m.Cols, m.Col, m.Row, m.Val)
		v.arrays = [3]array{
			{name: "row_index", ints: idx},
			{name: "col_offset", ints: off, offset: true},
			{name: "value", vals: val},
		}
	default:
		return nil, fmt.Errorf("%v: %w", f, ErrUnknownFormat)
	}
	return v, nil
}

// compress is a stable counting sort of the entries by key into n buckets.
// It returns the n+1 prefix offsets and the regrouped other/value arrays.
func compress(n int, key, other []int, val []float64) ([]int, []int, []float64) {
	off := make([]int, n+1)
	for _, k := range key {
		off[k+1]++
	}
	for i := 0; i < n; i++ {
		off[i+1] += off[i]
	}
	next := slices.Clone(off[:n])
	idx := make([]int, len(key))
	out := make([]float64, len(key))
	for p, k := range key {
		q := next[k]
		idx[q] = other[p]
		out[q] = val[p]
		next[k]++
	}
	return off, idx, out
}

func (v *View) Format() Format { return v.format }
func (v *View) Shape() (rows, cols int) { return v.rows, v.cols }
func (v *View) NNZ() int { return v.nnz }

// ArrayName returns the name of the array behind sel, e.g. "row_offset".
func (v *View) ArrayName(sel Selector) string { return v.arrays[sel].name }

// IsOffset reports whether sel addresses a compressed offset array.
func (v *View) IsOffset(sel Selector) bool { return v.arrays[sel].offset }

// Len returns the physical length of the array behind sel.
func (v *View) Len(sel Selector) int { return v.arrays[sel].len() }

// Ints returns a copy of an index or offset array; nil for the value array.
func (v *View) Ints(sel Selector) []int { return slices.Clone(v.arrays[sel].ints) }

// Values returns a copy of the value array.
func (v *View) Values() []float64 { return slices.Clone(v.arrays[SelValue].vals) }
