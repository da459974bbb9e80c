package service

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/klauspost/compress/gzip"

	"github.com/jask/mtxshell/internal/sparse"
	"github.com/jask/mtxshell/internal/sparse/matfile"
	"github.com/jask/mtxshell/internal/sparse/mmio"
)

// ErrParse is returned when a matrix file is readable but malformed.
var ErrParse = errors.New("malformed matrix file")

// SourceFormat is an on-disk matrix file format.
type SourceFormat string

const (
	SourceMarket      SourceFormat = "market"
	SourceProprietary SourceFormat = "proprietary"
)

// SourceFormats lists the accepted source format names.
func SourceFormats() []string { return []string{string(SourceMarket), string(SourceProprietary)} }

func ParseSourceFormat(s string) (SourceFormat, error) {
	for _, f := range SourceFormats() {
		if strings.EqualFold(s, f) {
			return SourceFormat(f), nil
		}
	}
	return "", fmt.Errorf("unknown source format %q (want one of %s)", s, strings.Join(SourceFormats(), ", "))
}

// MatrixLoader reads matrix files from a filesystem.
type MatrixLoader struct {
	FS billy.Filesystem
}

// Load reads p in format f. A .gz suffix is inflated transparently. It
// returns the matrix and its summary.
func (l MatrixLoader) Load(f SourceFormat, p string) (*sparse.Coordinate, sparse.MetaInfo, error) {
	file, err := l.FS.Open(p)
	if err != nil {
		return nil, sparse.MetaInfo{}, fmt.Errorf("open matrix: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(p, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, sparse.MetaInfo{}, fmt.Errorf("%s: %w: %v", p, ErrParse, err)
		}
		defer zr.Close()
		r = zr
	}

	var m *sparse.Coordinate
	switch f {
	case SourceMarket:
		m, err = mmio.Read(r)
	case SourceProprietary:
		m, err = matfile.Read(r)
	default:
		return nil, sparse.MetaInfo{}, fmt.Errorf("unknown source format %q", f)
	}
	if err != nil {
		if errors.Is(err, mmio.ErrFormat) || errors.Is(err, matfile.ErrFormat) ||
			errors.Is(err, matfile.ErrNoSparse) || errors.Is(err, sparse.ErrInvalidMatrix) {
			return nil, sparse.MetaInfo{}, fmt.Errorf("%s: %w: %w", p, ErrParse, err)
		}
		return nil, sparse.MetaInfo{}, fmt.Errorf("read %s: %w", p, err)
	}
	return m, sparse.NewMetaInfo(path.Base(p), string(f), m), nil
}
