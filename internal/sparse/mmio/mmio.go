// Package mmio reads Matrix Market coordinate files into a
// sparse.Coordinate.
package mmio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jask/mtxshell/internal/sparse"
)

// ErrFormat is returned for malformed or unsupported Matrix Market input.
var ErrFormat = errors.New("mmio: bad matrix market file")

const banner = "%%matrixmarket"

// maxPrealloc caps the capacity taken on trust from the size line.
const maxPrealloc = 1 << 20

// fits reports whether entries <= rows*cols without forming the product.
func fits(entries, rows, cols int) bool {
	if entries == 0 {
		return true
	}
	if rows == 0 || cols == 0 {
		return false
	}
	return (entries-1)/cols < rows
}

// Header is the parsed banner line.
type Header struct {
	Object   string // matrix
	Layout   string // coordinate | array
	Field    string // real | integer | pattern | complex
	Symmetry string // general | symmetric | skew-symmetric | hermitian
}

func parseHeader(line string) (Header, error) {
	f := strings.Fields(strings.ToLower(line))
	if len(f) != 5 || f[0] != banner {
		return Header{}, fmt.Errorf("banner %q: %w", line, ErrFormat)
	}
	h := Header{Object: f[1], Layout: f[2], Field: f[3], Symmetry: f[4]}
	if h.Object != "matrix" {
		return h, fmt.Errorf("object %q: %w", h.Object, ErrFormat)
	}
	if h.Layout != "coordinate" {
		return h, fmt.Errorf("layout %q not supported: %w", h.Layout, ErrFormat)
	}
	switch h.Field {
	case "real", "double", "integer", "pattern":
	default:
		return h, fmt.Errorf("field %q not supported: %w", h.Field, ErrFormat)
	}
	switch h.Symmetry {
	case "general", "symmetric", "skew-symmetric", "hermitian":
	default:
		return h, fmt.Errorf("symmetry %q: %w", h.Symmetry, ErrFormat)
	}
	return h, nil
}

// Read parses a coordinate Matrix Market stream. Symmetric, skew-symmetric
// and hermitian storage is expanded so both triangles are present; pattern
// entries get the value 1.
func Read(r io.Reader) (*sparse.Coordinate, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read banner: %w", err)
		}
		return nil, fmt.Errorf("empty input: %w", ErrFormat)
	}
	h, err := parseHeader(sc.Text())
	if err != nil {
		return nil, err
	}

	lineNo := 1
	var size []string
	for sc.Scan() {
		lineNo++
		t := strings.TrimSpace(sc.Text())
		if t == "" || strings.HasPrefix(t, "%") {
			continue
		}
		size = strings.Fields(t)
		break
	}
	if len(size) != 3 {
		return nil, fmt.Errorf("line %d: size line: %w", lineNo, ErrFormat)
	}
	rows, err1 := strconv.Atoi(size[0])
	cols, err2 := strconv.Atoi(size[1])
	entries, err3 := strconv.Atoi(size[2])
	if err := errors.Join(err1, err2, err3); err != nil || rows < 0 || cols < 0 || entries < 0 {
		return nil, fmt.Errorf("line %d: size line %q: %w", lineNo, strings.Join(size, " "), ErrFormat)
	}

	if !fits(entries, rows, cols) {
		return nil, fmt.Errorf("line %d: %d entries exceed a %dx%d matrix: %w", lineNo, entries, rows, cols, ErrFormat)
	}

	m := &sparse.Coordinate{Rows: rows, Cols: cols}
	capHint := min(entries, maxPrealloc)
	if h.Symmetry != "general" {
		capHint *= 2
	}
	m.Row = make([]int, 0, capHint)
	m.Col = make([]int, 0, capHint)
	m.Val = make([]float64, 0, capHint)

	want := 3
	if h.Field == "pattern" {
		want = 2
	}
	read := 0
	for read < entries && sc.Scan() {
		lineNo++
		t := strings.TrimSpace(sc.Text())
		if t == "" || strings.HasPrefix(t, "%") {
			continue
		}
		f := strings.Fields(t)
		if len(f) < want {
			return nil, fmt.Errorf("line %d: expected %d fields: %w", lineNo, want, ErrFormat)
		}
		i, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, fmt.Errorf("line %d row: %w", lineNo, ErrFormat)
		}
		j, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, fmt.Errorf("line %d col: %w", lineNo, ErrFormat)
		}
		if i < 1 || i > rows || j < 1 || j > cols {
			return nil, fmt.Errorf("line %d: entry (%d, %d) outside %dx%d: %w", lineNo, i, j, rows, cols, ErrFormat)
		}
		v := 1.0
		if h.Field != "pattern" {
			v, err = strconv.ParseFloat(f[2], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d value %q: %w", lineNo, f[2], ErrFormat)
			}
		}
		i, j = i-1, j-1
		m.Row = append(m.Row, i)
		m.Col = append(m.Col, j)
		m.Val = append(m.Val, v)
		if i != j {
			switch h.Symmetry {
			case "symmetric", "hermitian":
				m.Row, m.Col, m.Val = append(m.Row, j), append(m.Col, i), append(m.Val, v)
			case "skew-symmetric":
				m.Row, m.Col, m.Val = append(m.Row, j), append(m.Col, i), append(m.Val, -v)
			}
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	if read != entries {
		return nil, fmt.Errorf("expected %d entries, found %d: %w", entries, read, ErrFormat)
	}
	return m, nil
}

