package service

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jask/mtxshell/internal/database/repository"
)

// maxIndexPrealloc caps the capacity taken on trust from the count line.
const maxIndexPrealloc = 1 << 16

// Index is a parsed collection index.
type Index struct {
	Date     string
	Matrices []repository.Matrix
}

// ParseIndex reads the collection's ssstats.csv: a matrix count line, a
// date line, then one row per matrix:
//
//	group, name, rows, cols, nnz, isReal, isBinary, isND, posdef, psym, nsym, kind[, ...]
//
// Ids are 1-based row ordinals, as the collection numbers them.
func ParseIndex(r io.Reader) (Index, error) {
	br := bufio.NewReader(r)
	countLine, err := br.ReadString('\n')
	if err != nil {
		return Index{}, fmt.Errorf("index count line: %w", err)
	}
	want, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil {
		return Index{}, fmt.Errorf("index count line %q: %w", strings.TrimSpace(countLine), err)
	}
	if want < 0 {
		return Index{}, fmt.Errorf("index count %d is negative", want)
	}
	dateLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return Index{}, fmt.Errorf("index date line: %w", err)
	}

	idx := Index{Date: strings.TrimSpace(dateLine), Matrices: make([]repository.Matrix, 0, min(want, maxIndexPrealloc))}
	csvr := csv.NewReader(br)
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1
	line := 2
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Index{}, fmt.Errorf("index line %d: %w", line, err)
		}
		m, err := parseIndexRow(rec)
		if err != nil {
			return Index{}, fmt.Errorf("index line %d: %w", line, err)
		}
		m.ID = len(idx.Matrices) + 1
		idx.Matrices = append(idx.Matrices, m)
	}
	if len(idx.Matrices) != want {
		return Index{}, fmt.Errorf("index lists %d matrices, header says %d", len(idx.Matrices), want)
	}
	return idx, nil
}

func parseIndexRow(rec []string) (repository.Matrix, error) {
	if len(rec) < 12 {
		return repository.Matrix{}, fmt.Errorf("expected 12 columns, got %d", len(rec))
	}
	var m repository.Matrix
	m.Group, m.Name = rec[0], rec[1]
	ints := []*int{&m.Rows, &m.Cols, &m.NNZ}
	for i, dst := range ints {
		v, err := strconv.Atoi(rec[2+i])
		if err != nil {
			return m, fmt.Errorf("column %d: %w", 3+i, err)
		}
		*dst = v
	}
	flags := make([]bool, 4) // isReal, isBinary, isND, posdef
	for i := range flags {
		v, err := strconv.Atoi(rec[5+i])
		if err != nil {
			return m, fmt.Errorf("column %d: %w", 6+i, err)
		}
		flags[i] = v != 0
	}
	switch {
	case flags[1]:
		m.DType = repository.DTypeBinary
	case flags[0]:
		m.DType = repository.DTypeReal
	default:
		m.DType = repository.DTypeComplex
	}
	m.Is2D3D, m.IsSPD = flags[2], flags[3]

	var err error
	if m.PatternSymmetry, err = strconv.ParseFloat(rec[9], 64); err != nil {
		return m, fmt.Errorf("pattern symmetry: %w", err)
	}
	if m.NumericalSymmetry, err = strconv.ParseFloat(rec[10], 64); err != nil {
		return m, fmt.Errorf("numerical symmetry: %w", err)
	}
	m.Kind = rec[11]
	return m, nil
}
