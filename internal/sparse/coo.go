// Package sparse holds the in-memory sparse matrix model: a coordinate
// matrix as read from disk, and immutable views over it in coordinate,
// compressed-row or compressed-column layout with bounded array queries.
package sparse

import "fmt"

// Coordinate is a sparse matrix as parallel (row, col, value) triples.
type Coordinate struct {
	Rows, Cols int
	Row, Col   []int
	Val        []float64
}

// NNZ returns the number of stored entries.
func (m *Coordinate) NNZ() int { return len(m.Val) }

// Validate checks shape and index consistency.
func (m *Coordinate) Validate() error {
	if m == nil {
		return fmt.Errorf("nil matrix: %w", ErrInvalidMatrix)
	}
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("shape %dx%d: %w", m.Rows, m.Cols, ErrInvalidMatrix)
	}
	if len(m.Row) != len(m.Val) || len(m.Col) != len(m.Val) {
		return fmt.Errorf("array lengths row=%d col=%d val=%d: %w", len(m.Row), len(m.Col), len(m.Val), ErrInvalidMatrix)
	}
	for p := range m.Val {
		if m.Row[p] < 0 || m.Row[p] >= m.Rows || m.Col[p] < 0 || m.Col[p] >= m.Cols {
			return fmt.Errorf("entry %d at (%d, %d) outside %dx%d: %w", p, m.Row[p], m.Col[p], m.Rows, m.Cols, ErrInvalidMatrix)
		}
	}
	return nil
}
