package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/jask/mtxshell/internal/config"
	"github.com/jask/mtxshell/internal/database/repository"
	"github.com/jask/mtxshell/internal/service"
	"github.com/jask/mtxshell/internal/sparse"
)

type fakeCatalog struct {
	matrices   []repository.Matrix
	fail       map[int]bool
	searched   []repository.Criteria
	downloaded []repository.Matrix
	lastOpts   service.DownloadOptions
}

func (f *fakeCatalog) Search(_ context.Context, c repository.Criteria) ([]repository.Matrix, error) {
	f.searched = append(f.searched, c)
	out := f.matrices
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}

func (f *fakeCatalog) Download(_ context.Context, ms []repository.Matrix, opts service.DownloadOptions) ([]service.Transfer, error) {
	f.lastOpts = opts
	var errs []error
	out := make([]service.Transfer, 0, len(ms))
	for _, m := range ms {
		f.downloaded = append(f.downloaded, m)
		t := service.Transfer{Matrix: m}
		if f.fail[m.ID] {
			t.Err = fmt.Errorf("%s: %w", m.Name, service.ErrTransfer)
			errs = append(errs, t.Err)
		} else {
			t.Files = []string{m.Name + ".tar.gz"}
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

var (
	bcsstk01 = repository.Matrix{ID: 3, Group: "HB", Name: "bcsstk01", Rows: 48, Cols: 48, NNZ: 400, DType: "real", IsSPD: true}
	west0067 = repository.Matrix{ID: 9, Group: "HB", Name: "west0067", Rows: 67, Cols: 67, NNZ: 294, DType: "real"}
)

func fiveByFive() *sparse.Coordinate {
	return &sparse.Coordinate{
		Rows: 5, Cols: 5,
		Row: []int{0, 1, 3, 0, 4, 2},
		Col: []int{0, 1, 4, 2, 4, 3},
		Val: []float64{1, 2, 3, 4, 5, 6},
	}
}

type harness struct {
	s       *Session
	out     *bytes.Buffer
	logs    *bytes.Buffer
	catalog *fakeCatalog
	ctx     context.Context
}

func (h *harness) run(line string) {
	h.out.Reset()
	h.logs.Reset()
	h.s.Dispatch(h.ctx, line)
}

func (h *harness) output() string { return ansi.Strip(h.out.String()) }

func newHarness(t *testing.T, format sparse.Format) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	cfg := config.Config{
		Search:   config.SearchConfig{Limit: 10},
		Download: config.DownloadConfig{Dest: ".", Format: "market"},
		UI:       config.UIConfig{Prompt: ">> ", Columns: 10},
	}
	var out, logs bytes.Buffer
	h := &harness{out: &out, logs: &logs, catalog: &fakeCatalog{}, ctx: ctx}

	opts := Options{
		Config:  cfg,
		Out:     &out,
		Log:     log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel}),
		Catalog: h.catalog,
		OpenDest: func(path string) (billy.Filesystem, error) {
			if path == "missing" {
				return nil, errors.New("no such directory")
			}
			return memfs.New(), nil
		},
		Clear: func() { out.WriteString("<cleared>") },
	}
	if format >= 0 {
		coo := fiveByFive()
		v, err := sparse.FromCoordinate(coo, format)
		require.NoError(t, err)
		opts.Matrix = &Matrix{Coordinate: coo, View: v, Meta: sparse.NewMetaInfo("five", "market", coo)}
	}
	h.s = NewSession(opts)
	return h
}

const catalogOnly sparse.Format = -1

// cellRows returns the cell text of every table row in out, in order.
func cellRows(out string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "│") {
			rows = append(rows, strings.Fields(strings.ReplaceAll(line, "│", " ")))
		}
	}
	return rows
}

func TestScenarioReadRowOffsets(t *testing.T) {
	t.Parallel()
	h := newHarness(t, sparse.CSR)

	t.Log("Step 1: read the whole row offset array")
	h.run("r --range 0 6")
	out := h.output()
	require.Contains(t, out, "row_offset")
	require.Equal(t, [][]string{
		{"0", "1", "2", "3", "4", "5"},
		{"0", "2", "3", "4", "5", "6"},
	}, cellRows(out))
	require.Empty(t, h.logs.String())

	t.Log("Step 2: one past the end is rejected with usage")
	h.run("r --range 0 7")
	require.Contains(t, h.output(), "usage: r")
	require.Contains(t, h.logs.String(), "outside")
}

func TestScenarioAppendMissingKeepsCartEmpty(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)

	h.run("append --id 7")
	require.Contains(t, h.logs.String(), "not in the cache")
	require.Equal(t, 0, h.s.Cart.Size())
}

func TestScenarioAppendThenRemove(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.s.Cache.Add(bcsstk01)

	h.run("append --name bcsstk01")
	require.Equal(t, 1, h.s.Cart.Size())
	m, err := h.s.Cart.GetByID(3)
	require.NoError(t, err)
	require.Equal(t, "bcsstk01", m.Name)

	h.run("remove --id 3")
	require.Equal(t, 0, h.s.Cart.Size())
	require.Equal(t, 1, h.s.Cache.Size(), "cache is untouched by cart edits")
}

func TestScenarioDownloadEmptiesCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.s.Cart.Add(bcsstk01)
	h.s.Cart.Add(west0067)

	h.run("download --format compressed --extract")
	require.Len(t, h.catalog.downloaded, 2)
	require.Equal(t, service.FormatCompressed, h.catalog.lastOpts.Format)
	require.True(t, h.catalog.lastOpts.Extract)
	require.Contains(t, h.output(), "bcsstk01 -> bcsstk01.tar.gz")

	h.run("list")
	require.Contains(t, h.logs.String(), "matrix cart is empty")
}

func TestDownloadKeepsFailedRecords(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.catalog.fail = map[int]bool{9: true}
	h.s.Cart.Add(bcsstk01)
	h.s.Cart.Add(west0067)

	h.run("download")
	require.Equal(t, []string{"west0067"}, h.s.Cart.Names())
	require.Contains(t, h.logs.String(), "download failed")
}

func TestDownloadRejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.s.Cart.Add(bcsstk01)

	t.Log("Step 1: bad destination never reaches the catalog")
	h.run("download --dest missing")
	require.Contains(t, h.output(), "usage: download")
	require.Contains(t, h.logs.String(), "resource unavailable")
	require.Empty(t, h.catalog.downloaded)

	t.Log("Step 2: unknown format")
	h.run("download -f zip")
	require.Contains(t, h.output(), "usage: download")
	require.Empty(t, h.catalog.downloaded)
	require.Equal(t, 1, h.s.Cart.Size())

	t.Log("Step 3: empty cart warns")
	h.s.Cart.Clear()
	h.run("download")
	require.Contains(t, h.logs.String(), "matrix cart is empty")
	require.Empty(t, h.catalog.downloaded)
}

func TestSearchCachesResults(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.catalog.matrices = []repository.Matrix{bcsstk01, west0067}

	h.run("search -r 10 100 --isspd true -d real -g HB")
	require.Len(t, h.catalog.searched, 1)
	c := h.catalog.searched[0]
	require.Equal(t, &repository.Bounds{Min: 10, Max: 100}, c.RowBounds)
	require.Nil(t, c.ColBounds)
	require.NotNil(t, c.IsSPD)
	require.True(t, *c.IsSPD)
	require.Nil(t, c.Is2D3D)
	require.Equal(t, "real", c.DType)
	require.Equal(t, "HB", c.Group)
	require.Equal(t, 10, c.Limit)

	require.Contains(t, h.output(), "bcsstk01")
	require.Equal(t, []string{"bcsstk01", "west0067"}, h.s.Cache.Names())

	h.run("cache")
	require.Contains(t, h.output(), "west0067")
}

func TestSearchFalseFlag(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)

	h.run("search --is2d3d=false")
	require.Len(t, h.catalog.searched, 1)
	require.NotNil(t, h.catalog.searched[0].Is2D3D)
	require.False(t, *h.catalog.searched[0].Is2D3D)
}

func TestSearchRejections(t *testing.T) {
	t.Parallel()
	for _, line := range []string{
		"search -r 10",
		"search -r 100 10",
		"search -n -1 5",
		"search -d float",
		"search -l 0",
		"search extra",
		"search --nope",
	} {
		t.Run(line, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, catalogOnly)
			h.run(line)
			require.Contains(t, h.output(), "usage: search")
			require.Empty(t, h.catalog.searched)
		})
	}
}

func TestLookupExclusivity(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.s.Cache.Add(bcsstk01)

	h.run("append --id 3 --name bcsstk01")
	require.Contains(t, h.output(), "usage: append")
	require.Contains(t, h.logs.String(), "mutually exclusive")

	h.run("add")
	require.Contains(t, h.output(), "usage: append")
	require.Equal(t, 0, h.s.Cart.Size())
}

func TestAppendSuggestsCachedName(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	h.s.Cache.Add(bcsstk01)

	h.run("append -n bcsstk02")
	require.Contains(t, h.logs.String(), "bcsstk01")
	require.Equal(t, 0, h.s.Cart.Size())
}

func TestReadIndexAndRangeExclusive(t *testing.T) {
	t.Parallel()
	h := newHarness(t, sparse.CSC)

	h.run("c -i 1 -r 0 2")
	require.Contains(t, h.output(), "usage: c")

	h.run("c")
	require.Contains(t, h.output(), "usage: c")

	h.run("c -i 4")
	require.Contains(t, h.output(), "col_offset")

	h.run("v --index 6")
	require.Contains(t, h.output(), "usage: v")
}

func TestMatrixCommandsNeedMatrix(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)
	for _, verb := range []string{"r", "c", "v", "info", "spy"} {
		_, ok := h.s.Commands().Lookup(verb)
		require.False(t, ok, verb)
	}
	for _, c := range h.s.Commands().All() {
		require.Equal(t, ScopeCatalog, c.Spec().Scope, c.Spec().Name)
	}

	t.Log("Step 2: a loaded matrix adds every matrix-scoped verb")
	h = newHarness(t, sparse.COO)
	for _, verb := range []string{"r", "c", "v", "info", "spy", "search", "help"} {
		_, ok := h.s.Commands().Lookup(verb)
		require.True(t, ok, verb)
	}
	h.run("info")
	out := h.output()
	require.Contains(t, out, "five")
	require.Contains(t, out, "layout coo 5x5:")

	h.run("spy -W 5 -H 5")
	require.Equal(t, 6, strings.Count(h.output(), "•"))
	require.Contains(t, h.output(), "5x5 cells, 24.0% occupied")

	h.run("spy -W 0")
	require.Contains(t, h.output(), "usage: spy")
}

func TestUnknownVerbShowsHelp(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)

	h.run("serch")
	require.Contains(t, h.output(), "commands")
	require.Contains(t, h.logs.String(), "suggest=search")

	h.run("   ")
	require.Contains(t, h.output(), "download")

	h.run("help download")
	require.Contains(t, h.output(), "usage: download")

	h.run("HELP")
	require.Contains(t, h.output(), "commands")
}

func TestClearAndExit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, catalogOnly)

	h.run("clear")
	require.Equal(t, "<cleared>", h.out.String())
	require.False(t, h.s.Done())

	h.run("quit")
	require.True(t, h.s.Done())
}

type errReader struct{}

func (errReader) ReadLine(context.Context, string) (string, error) {
	return "", errors.New("tty gone")
}

func TestRunStopsAtExitOrEOF(t *testing.T) {
	t.Parallel()

	t.Log("Step 1: exit ends the loop before later lines")
	h := newHarness(t, catalogOnly)
	h.s.Cache.Add(bcsstk01)
	err := h.s.Run(h.ctx, NewScannerReader(strings.NewReader("exit\nappend -i 3\n")))
	require.NoError(t, err)
	require.Equal(t, 0, h.s.Cart.Size())

	t.Log("Step 2: EOF is a clean exit")
	h = newHarness(t, catalogOnly)
	h.s.Cache.Add(bcsstk01)
	err = h.s.Run(h.ctx, NewScannerReader(strings.NewReader("append -i 3")))
	require.NoError(t, err)
	require.Equal(t, 1, h.s.Cart.Size())

	t.Log("Step 3: a failing reader is reported")
	err = h.s.Run(h.ctx, errReader{})
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
}

func TestScopeAvailable(t *testing.T) {
	t.Parallel()
	require.True(t, ScopeCatalog.Available(false))
	require.True(t, ScopeCatalog.Available(true))
	require.False(t, ScopeMatrix.Available(false))
	require.True(t, ScopeMatrix.Available(true))
	require.False(t, Scope("").Available(true))
}
