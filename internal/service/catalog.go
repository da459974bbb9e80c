package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/jask/mtxshell/internal/database/repository"
)

// ErrTransfer matches every *TransferError.
var ErrTransfer = errors.New("transfer failed")

// TransferError reports one failed HTTP exchange with the collection.
type TransferError struct {
	URL    string
	Status int // 0 when no response arrived
	Err    error
}

func (e *TransferError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

const metaIndexDate = "index_date"

// CatalogOptions configures a CatalogService.
type CatalogOptions struct {
	BaseURL           string
	IndexURL          string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// CatalogService searches the collection index and fetches matrix files.
// The index is pulled once, on first use, into the in-memory repository.
type CatalogService struct {
	Matrices *repository.MatrixRepo
	Client   *http.Client
	Limiter  *rate.Limiter
	Log      *log.Logger

	baseURL  string
	indexURL string

	mu     sync.Mutex
	loaded bool
}

func NewCatalogService(repo *repository.MatrixRepo, opts CatalogOptions, logger *log.Logger) *CatalogService {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CatalogService{
		Matrices: repo,
		Client:   &http.Client{Timeout: opts.Timeout},
		Limiter:  rate.NewLimiter(limit, 1),
		Log:      logger,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		indexURL: opts.IndexURL,
	}
}

// get performs a rate-limited GET. The caller closes the body.
func (s *CatalogService) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := s.Limiter.Wait(ctx); err != nil {
		return nil, &TransferError{URL: url, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransferError{URL: url, Err: err}
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, &TransferError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &TransferError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// Refresh downloads the collection index and replaces the local copy.
func (s *CatalogService) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *CatalogService) refreshLocked(ctx context.Context) (int, error) {
	body, err := s.get(ctx, s.indexURL)
	if err != nil {
		return 0, fmt.Errorf("fetch index: %w", err)
	}
	defer body.Close()
	idx, err := ParseIndex(body)
	if err != nil {
		return 0, fmt.Errorf("parse index: %w", err)
	}
	if err := s.Matrices.ReplaceAll(ctx, idx.Matrices); err != nil {
		return 0, fmt.Errorf("store index: %w", err)
	}
	if err := s.Matrices.SetMeta(ctx, metaIndexDate, idx.Date); err != nil {
		return 0, fmt.Errorf("store index date: %w", err)
	}
	s.loaded = true
	s.Log.Debug("catalog index loaded", "matrices", len(idx.Matrices), "date", idx.Date)
	return len(idx.Matrices), nil
}

func (s *CatalogService) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	_, err := s.refreshLocked(ctx)
	return err
}

// Search returns index entries matching c, loading the index first if needed.
func (s *CatalogService) Search(ctx context.Context, c repository.Criteria) ([]repository.Matrix, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	ms, err := s.Matrices.Search(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return ms, nil
}

// IndexDate returns the date line of the loaded index, if any.
func (s *CatalogService) IndexDate(ctx context.Context) (string, bool, error) {
	return s.Matrices.Meta(ctx, metaIndexDate)
}
