package service

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/jask/mtxshell/internal/database/repository"
)

// DownloadFormat is a distribution format of the collection.
type DownloadFormat string

const (
	FormatMarket      DownloadFormat = "market"      // Matrix Market, tar.gz
	FormatCompressed  DownloadFormat = "compressed"  // Rutherford-Boeing, tar.gz
	FormatProprietary DownloadFormat = "proprietary" // MATLAB .mat
)

// DownloadFormats lists the accepted format names.
func DownloadFormats() []string {
	return []string{string(FormatMarket), string(FormatCompressed), string(FormatProprietary)}
}

func ParseDownloadFormat(s string) (DownloadFormat, error) {
	for _, f := range DownloadFormats() {
		if strings.EqualFold(s, f) {
			return DownloadFormat(f), nil
		}
	}
	return "", fmt.Errorf("unknown download format %q (want one of %s)", s, strings.Join(DownloadFormats(), ", "))
}

// location returns the URL path below the collection root and the file name.
func (f DownloadFormat) location(m repository.Matrix) (string, string) {
	switch f {
	case FormatCompressed:
		return "RB/" + m.Group + "/" + m.Name + ".tar.gz", m.Name + ".tar.gz"
	case FormatProprietary:
		return "mat/" + m.Group + "/" + m.Name + ".mat", m.Name + ".mat"
	default:
		return "MM/" + m.Group + "/" + m.Name + ".tar.gz", m.Name + ".tar.gz"
	}
}

// DownloadOptions controls a batch download.
type DownloadOptions struct {
	Format  DownloadFormat
	Extract bool
	Dest    billy.Filesystem
}

// Transfer is the outcome for one matrix of a batch.
type Transfer struct {
	Matrix repository.Matrix
	Files  []string // paths written below Dest
	Err    error
}

// Download fetches every matrix into opts.Dest. A failure for one matrix
// does not stop the batch; failures are joined into the returned error and
// recorded per Transfer.
func (s *CatalogService) Download(ctx context.Context, ms []repository.Matrix, opts DownloadOptions) ([]Transfer, error) {
	if opts.Dest == nil {
		return nil, errors.New("download: no destination")
	}
	batch := uuid.NewString()
	s.Log.Info("download started", "batch", batch, "matrices", len(ms), "format", opts.Format)
	out := make([]Transfer, 0, len(ms))
	var errs []error
	for _, m := range ms {
		t := Transfer{Matrix: m}
		t.Files, t.Err = s.downloadOne(ctx, m, batch, opts)
		if t.Err != nil {
			t.Err = fmt.Errorf("%s/%s: %w", m.Group, m.Name, t.Err)
			errs = append(errs, t.Err)
			s.Log.Error("download failed", "batch", batch, "matrix", m.Name, "err", t.Err)
		} else {
			s.Log.Info("downloaded", "batch", batch, "matrix", m.Name, "files", len(t.Files))
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

func (s *CatalogService) downloadOne(ctx context.Context, m repository.Matrix, batch string, opts DownloadOptions) ([]string, error) {
	rel, name := opts.Format.location(m)
	body, err := s.get(ctx, s.baseURL+"/"+rel)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// stream into a batch-private part file, then move it into place
	part := name + "." + batch + ".part"
	f, err := opts.Dest.Create(part)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", part, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = opts.Dest.Remove(part)
		return nil, &TransferError{URL: s.baseURL + "/" + rel, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = opts.Dest.Remove(part)
		return nil, fmt.Errorf("close %s: %w", part, err)
	}
	_ = opts.Dest.Remove(name)
	if err := opts.Dest.Rename(part, name); err != nil {
		return nil, fmt.Errorf("rename %s: %w", part, err)
	}
	files := []string{name}

	if opts.Extract && strings.HasSuffix(name, ".tar.gz") {
		extracted, err := ExtractTarGz(opts.Dest, name)
		if err != nil {
			return files, fmt.Errorf("extract %s: %w", name, err)
		}
		files = append(files, extracted...)
	}
	return files, nil
}

// ExtractTarGz unpacks archive (a path on fs) next to it and returns the
// paths of the regular files written. Entries escaping the destination are
// rejected.
func ExtractTarGz(fs billy.Filesystem, archive string) ([]string, error) {
	f, err := fs.Open(archive)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dir := path.Dir(archive)
	var files []string
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, err
		}
		clean := path.Clean(hdr.Name)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return files, fmt.Errorf("archive entry %q escapes destination", hdr.Name)
		}
		target := path.Join(dir, clean)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
		case tar.TypeReg:
			if err := fs.MkdirAll(path.Dir(target), 0o755); err != nil {
				return files, err
			}
			w, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return files, err
			}
			if _, err := io.Copy(w, tr); err != nil {
				w.Close()
				return files, err
			}
			if err := w.Close(); err != nil {
				return files, err
			}
			files = append(files, target)
		}
	}
}
