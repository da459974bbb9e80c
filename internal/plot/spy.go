// Package plot draws sparsity patterns as text.
package plot

import (
	"errors"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/jask/mtxshell/internal/sparse"
)

// Dot marks a cell holding at least one nonzero.
const Dot = '•'

const blank = ' '

// ErrCanvas is returned for a non-positive canvas size.
var ErrCanvas = errors.New("plot: canvas must be at least 1x1")

// Occupancy maps every nonzero of m onto a width x height grid and returns
// the set of occupied cells, numbered row-major.
func Occupancy(m *sparse.Coordinate, width, height int) (*roaring.Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrCanvas
	}
	cells := roaring.New()
	if m.Rows == 0 || m.Cols == 0 {
		return cells, nil
	}
	for p := range m.Row {
		y := m.Row[p] * height / m.Rows
		x := m.Col[p] * width / m.Cols
		cells.Add(uint32(y*width + x))
	}
	return cells, nil
}

// Spy renders the sparsity pattern of m into height lines of width cells.
// The canvas shrinks to the matrix shape when the matrix is smaller.
func Spy(m *sparse.Coordinate, width, height int) ([]string, error) {
	if m.Cols > 0 && m.Cols < width {
		width = m.Cols
	}
	if m.Rows > 0 && m.Rows < height {
		height = m.Rows
	}
	cells, err := Occupancy(m, width, height)
	if err != nil {
		return nil, err
	}
	lines := make([]string, height)
	var b strings.Builder
	for y := range height {
		b.Reset()
		for x := range width {
			if cells.Contains(uint32(y*width + x)) {
				b.WriteRune(Dot)
			} else {
				b.WriteRune(blank)
			}
		}
		lines[y] = b.String()
	}
	return lines, nil
}

// Density returns the share of canvas cells that are occupied.
func Density(cells *roaring.Bitmap, width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	return float64(cells.GetCardinality()) / float64(width*height)
}
