package sparse

import "strconv"

// MetaInfo summarises a loaded matrix. Its Rows, Cols and NNZ are the bound
// source for range queries.
type MetaInfo struct {
	Name      string
	Format    string // source file format, e.g. "market"
	Rows      int
	Cols      int
	NNZ       int
	NNZPerRow float64
}

func NewMetaInfo(name, format string, m *Coordinate) MetaInfo {
	mi := MetaInfo{
		Name:   name,
		Format: format,
		Rows:   m.Rows,
		Cols:   m.Cols,
		NNZ:    m.NNZ(),
	}
	if m.Rows > 0 {
		mi.NNZPerRow = float64(mi.NNZ) / float64(m.Rows)
	}
	return mi
}

// Bound returns the logical length of the array sel addresses in layout f:
// rows for a row-offset array, cols for a column-offset array, nnz otherwise.
func (mi MetaInfo) Bound(f Format, sel Selector) int {
	switch {
	case f == CSR && sel == SelRow:
		return mi.Rows
	case f == CSC && sel == SelCol:
		return mi.Cols
	default:
		return mi.NNZ
	}
}

func (mi MetaInfo) Columns() []string {
	return []string{"name", "format", "rows", "cols", "nnz", "nnz/row"}
}

func (mi MetaInfo) Cells() []string {
	return []string{
		mi.Name,
		mi.Format,
		strconv.Itoa(mi.Rows),
		strconv.Itoa(mi.Cols),
		strconv.Itoa(mi.NNZ),
		strconv.FormatFloat(mi.NNZPerRow, 'f', 3, 64),
	}
}
