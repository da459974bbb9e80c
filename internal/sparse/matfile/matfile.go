// Package matfile reads the sparse matrix out of a MATLAB level 5 MAT-file,
// the layout the SuiteSparse collection ships its .mat files in. Files are
// expected to hold a Problem struct whose A field is the matrix; failing
// that, the first sparse array found is used.
package matfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/jask/mtxshell/internal/sparse"
)

var (
	// ErrFormat is returned for input that is not a readable level 5 MAT-file.
	ErrFormat = errors.New("matfile: bad mat file")
	// ErrNoSparse is returned when the file holds no sparse array.
	ErrNoSparse = errors.New("matfile: no sparse matrix in file")
)

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
)

// Array classes.
const (
	mxCELL   = 1
	mxSTRUCT = 2
	mxSPARSE = 5
)

const (
	headerLen   = 128
	flagComplex = 0x0800
	flagLogical = 0x0200
)

type array struct {
	class   int
	complex bool
	logical bool
	name    string
	dims    []int

	ir, jc []int
	pr     []float64

	fieldNames []string
	fields     []*array // len(fieldNames) per struct element, element-major
	cells      []*array
}

type decoder struct {
	order binary.ByteOrder
}

// Read decodes a MAT-file and returns its matrix in coordinate form.
func Read(r io.Reader) (*sparse.Coordinate, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mat file: %w", err)
	}
	d, err := readHeader(buf)
	if err != nil {
		return nil, err
	}
	vars, err := d.elements(buf[headerLen:])
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		if a := pick(v); a != nil {
			return a.coordinate()
		}
	}
	return nil, ErrNoSparse
}

func readHeader(buf []byte) (*decoder, error) {
	if len(buf) < headerLen {
		return nil, fmt.Errorf("short header: %w", ErrFormat)
	}
	text := string(buf[:116])
	if !strings.HasPrefix(text, "MATLAB") {
		return nil, fmt.Errorf("missing MATLAB signature: %w", ErrFormat)
	}
	d := &decoder{}
	switch string(buf[126:128]) {
	case "IM":
		d.order = binary.LittleEndian
	case "MI":
		d.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("endian indicator %q: %w", buf[126:128], ErrFormat)
	}
	if v := d.order.Uint16(buf[124:126]); v != 0x0100 {
		// 0x0200 marks an HDF5 based v7.3 file
		return nil, fmt.Errorf("version 0x%04x not supported (save with -v7 or older): %w", v, ErrFormat)
	}
	return d, nil
}

// tag splits one data element off buf.
func (d *decoder) tag(buf []byte) (typ uint32, data, rest []byte, err error) {
	if len(buf) < 8 {
		return 0, nil, nil, fmt.Errorf("truncated element tag: %w", ErrFormat)
	}
	first := d.order.Uint32(buf)
	if small := first >> 16; small != 0 {
		// small data element: 2 byte size, 2 byte type, 4 bytes of data
		if small > 4 {
			return 0, nil, nil, fmt.Errorf("small element of %d bytes: %w", small, ErrFormat)
		}
		return first & 0xffff, buf[4 : 4+small], buf[8:], nil
	}
	n := int(d.order.Uint32(buf[4:]))
	if n < 0 || 8+n > len(buf) {
		return 0, nil, nil, fmt.Errorf("element of %d bytes overruns file: %w", n, ErrFormat)
	}
	data = buf[8 : 8+n]
	end := 8 + n
	if first != miCOMPRESSED {
		end += (8 - n%8) % 8
	}
	if end > len(buf) {
		end = len(buf)
	}
	return first, data, buf[end:], nil
}

// elements decodes the top-level variables of buf.
func (d *decoder) elements(buf []byte) ([]*array, error) {
	var out []*array
	for len(buf) > 0 {
		typ, data, rest, err := d.tag(buf)
		if err != nil {
			return nil, err
		}
		buf = rest
		switch typ {
		case miCOMPRESSED:
			zr, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("inflate: %w", err)
			}
			raw, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("inflate: %w", err)
			}
			inner, err := d.elements(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case miMATRIX:
			a, err := d.matrix(data)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		default:
			return nil, fmt.Errorf("unexpected top-level element type %d: %w", typ, ErrFormat)
		}
	}
	return out, nil
}

// child decodes one nested miMATRIX element.
func (d *decoder) child(buf []byte) (*array, []byte, error) {
	typ, data, rest, err := d.tag(buf)
	if err != nil {
		return nil, nil, err
	}
	if typ != miMATRIX {
		return nil, nil, fmt.Errorf("nested element type %d: %w", typ, ErrFormat)
	}
	a, err := d.matrix(data)
	return a, rest, err
}

func (d *decoder) matrix(buf []byte) (*array, error) {
	a := &array{}
	if len(buf) == 0 {
		return a, nil
	}
	typ, flags, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flags) < 8 {
		return nil, fmt.Errorf("array flags: %w", ErrFormat)
	}
	f := d.order.Uint32(flags)
	a.class = int(f & 0xff)
	a.complex = f&flagComplex != 0
	a.logical = f&flagLogical != 0

	typ, dims, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	if a.dims, err = d.ints(typ, dims); err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	_, name, buf, err := d.tag(buf)
	if err != nil {
		return nil, err
	}
	a.name = string(name)

	switch a.class {
	case mxSPARSE:
		return a, d.sparse(a, buf)
	case mxSTRUCT:
		return a, d.structure(a, buf)
	case mxCELL:
		for range a.numel() {
			c, rest, err := d.child(buf)
			if err != nil {
				return nil, err
			}
			a.cells = append(a.cells, c)
			buf = rest
		}
	}
	// numeric and char arrays are not needed
	return a, nil
}

func (d *decoder) sparse(a *array, buf []byte) error {
	typ, ir, buf, err := d.tag(buf)
	if err != nil {
		return err
	}
	if a.ir, err = d.ints(typ, ir); err != nil {
		return fmt.Errorf("row indices: %w", err)
	}
	typ, jc, buf, err := d.tag(buf)
	if err != nil {
		return err
	}
	if a.jc, err = d.ints(typ, jc); err != nil {
		return fmt.Errorf("column offsets: %w", err)
	}
	if len(buf) == 0 {
		return nil
	}
	typ, pr, _, err := d.tag(buf)
	if err != nil {
		return err
	}
	a.pr, err = d.floats(typ, pr)
	return err
}

func (d *decoder) structure(a *array, buf []byte) error {
	typ, fl, buf, err := d.tag(buf)
	if err != nil {
		return err
	}
	lens, err := d.ints(typ, fl)
	if err != nil || len(lens) != 1 || lens[0] <= 0 {
		return fmt.Errorf("field name length: %w", ErrFormat)
	}
	width := lens[0]
	_, names, buf, err := d.tag(buf)
	if err != nil {
		return err
	}
	for i := 0; i+width <= len(names); i += width {
		a.fieldNames = append(a.fieldNames, strings.TrimRight(string(names[i:i+width]), "\x00"))
	}
	for range a.numel() * len(a.fieldNames) {
		c, rest, err := d.child(buf)
		if err != nil {
			return err
		}
		a.fields = append(a.fields, c)
		buf = rest
	}
	return nil
}

func (a *array) numel() int {
	if len(a.dims) == 0 {
		return 0
	}
	n := 1
	for _, x := range a.dims {
		n *= x
	}
	return n
}

// pick finds the matrix of interest below a: a sparse field named A wins,
// otherwise the first sparse array in depth-first order.
func pick(a *array) *array {
	if a == nil {
		return nil
	}
	switch a.class {
	case mxSPARSE:
		return a
	case mxSTRUCT:
		for i, name := range a.fieldNames {
			if name == "A" && i < len(a.fields) && a.fields[i].class == mxSPARSE {
				return a.fields[i]
			}
		}
		for _, f := range a.fields {
			if s := pick(f); s != nil {
				return s
			}
		}
	case mxCELL:
		for _, c := range a.cells {
			if s := pick(c); s != nil {
				return s
			}
		}
	}
	return nil
}

func (a *array) coordinate() (*sparse.Coordinate, error) {
	if a.complex {
		return nil, fmt.Errorf("complex sparse matrix %q not supported: %w", a.name, ErrFormat)
	}
	if len(a.dims) != 2 {
		return nil, fmt.Errorf("sparse array with %d dimensions: %w", len(a.dims), ErrFormat)
	}
	rows, cols := a.dims[0], a.dims[1]
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("sparse array shape %dx%d: %w", rows, cols, ErrFormat)
	}
	if len(a.jc) != cols+1 {
		return nil, fmt.Errorf("column offsets: have %d, want %d: %w", len(a.jc), cols+1, ErrFormat)
	}
	if a.jc[0] != 0 {
		return nil, fmt.Errorf("column offsets start at %d: %w", a.jc[0], ErrFormat)
	}
	for j := range cols {
		if a.jc[j] > a.jc[j+1] {
			return nil, fmt.Errorf("column %d offsets [%d, %d): %w", j, a.jc[j], a.jc[j+1], ErrFormat)
		}
	}
	nnz := a.jc[cols]
	if nnz > len(a.ir) || (!a.logical && nnz > len(a.pr)) {
		return nil, fmt.Errorf("nnz %d exceeds stored entries: %w", nnz, ErrFormat)
	}
	m := &sparse.Coordinate{
		Rows: rows,
		Cols: cols,
		Row:  make([]int, 0, nnz),
		Col:  make([]int, 0, nnz),
		Val:  make([]float64, 0, nnz),
	}
	for j := range cols {
		for p := a.jc[j]; p < a.jc[j+1]; p++ {
			v := 1.0
			if p < len(a.pr) {
				v = a.pr[p]
			}
			m.Row = append(m.Row, a.ir[p])
			m.Col = append(m.Col, j)
			m.Val = append(m.Val, v)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *decoder) ints(typ uint32, data []byte) ([]int, error) {
	fs, err := d.floats(typ, data)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out, nil
}

func (d *decoder) floats(typ uint32, data []byte) ([]float64, error) {
	var width int
	switch typ {
	case miINT8, miUINT8:
		width = 1
	case miINT16, miUINT16:
		width = 2
	case miINT32, miUINT32, miSINGLE:
		width = 4
	case miDOUBLE, miINT64, miUINT64:
		width = 8
	default:
		return nil, fmt.Errorf("numeric element type %d: %w", typ, ErrFormat)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%d bytes is not a multiple of %d: %w", len(data), width, ErrFormat)
	}
	out := make([]float64, len(data)/width)
	for i := range out {
		b := data[i*width:]
		switch typ {
		case miINT8:
			out[i] = float64(int8(b[0]))
		case miUINT8:
			out[i] = float64(b[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(b)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(b))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(b)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(b))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(b)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(b))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(b)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(b))
		}
	}
	return out, nil
}
