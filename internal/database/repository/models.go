package repository

import (
	"strconv"
)

// Data types a catalog matrix can carry.
const (
	DTypeReal    = "real"
	DTypeComplex = "complex"
	DTypeBinary  = "binary"
)

// Matrix represents one catalog entry. Two matrices are the same entity
// iff their IDs match.
type Matrix struct {
	ID                int
	Group             string
	Name              string
	Rows              int
	Cols              int
	NNZ               int
	DType             string
	Is2D3D            bool
	IsSPD             bool
	PatternSymmetry   float64
	NumericalSymmetry float64
	Kind              string
}

// Columns returns the table header matching Cells.
func Columns() []string {
	return []string{"Id", "Group", "Name", "Rows", "Cols", "NNZ", "DType", "2D/3D", "SPD"}
}

// Cells returns the displayed attributes of m in Columns order.
// Symmetry and kind stay out of the table; they are searchable only.
func (m Matrix) Cells() []string {
	return []string{
		strconv.Itoa(m.ID),
		m.Group,
		m.Name,
		strconv.Itoa(m.Rows),
		strconv.Itoa(m.Cols),
		strconv.Itoa(m.NNZ),
		m.DType,
		strconv.FormatBool(m.Is2D3D),
		strconv.FormatBool(m.IsSPD),
	}
}

// Bounds is an inclusive [Min, Max] filter.
type Bounds struct {
	Min int
	Max int
}

// Criteria filters catalog searches. Nil/zero fields do not constrain.
type Criteria struct {
	RowBounds *Bounds
	ColBounds *Bounds
	NNZBounds *Bounds
	IsSPD     *bool
	Is2D3D    *bool
	DType     string
	Group     string
	Kind      string
	Limit     int
}
