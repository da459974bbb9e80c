package shell

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/agnivade/levenshtein"
	"github.com/go-git/go-billy/v5"
	"github.com/spf13/pflag"

	"github.com/jask/mtxshell/internal/database/repository"
	"github.com/jask/mtxshell/internal/registry"
	"github.com/jask/mtxshell/internal/render"
	"github.com/jask/mtxshell/internal/service"
)

var dtypes = []string{repository.DTypeReal, repository.DTypeComplex, repository.DTypeBinary}

// ---------------------------------------------------------------------------
// search
// ---------------------------------------------------------------------------

type searchCmd struct {
	limit int
}

type searchInv struct {
	rows, cols, nnz pairFlag
	spd, twoD       bool
	dtype           string
	group           string
	kind            string
	limit           int

	criteria repository.Criteria
}

func (searchCmd) Spec() Spec {
	return Spec{Name: "search", Summary: "search the collection and cache the results", Scope: ScopeCatalog}
}

func (c searchCmd) flags(a *searchInv) *pflag.FlagSet {
	fs := newFlagSet("search")
	fs.VarP(&a.rows, "rowbounds", "r", "row count between `lo hi`, inclusive")
	fs.VarP(&a.cols, "colbounds", "c", "column count between `lo hi`, inclusive")
	fs.VarP(&a.nnz, "nzbounds", "n", "nonzero count between `lo hi`, inclusive")
	fs.BoolVar(&a.spd, "isspd", false, "only symmetric positive definite matrices (=false for the others)")
	fs.BoolVar(&a.twoD, "is2d3d", false, "only matrices from 2D/3D discretizations (=false for the others)")
	fs.StringVarP(&a.dtype, "dtype", "d", "", "element type: real, complex or binary")
	fs.StringVarP(&a.group, "group", "g", "", "group name contains `text`")
	fs.StringVarP(&a.kind, "kind", "k", "", "problem kind contains `text`")
	fs.IntVarP(&a.limit, "limit", "l", c.limit, "maximum number of results")
	return fs
}

func (c searchCmd) Usage() string {
	return usageText(c.Spec(), "[options]", c.flags(&searchInv{}))
}

func (c searchCmd) Parse(argv []string) (Invocation, error) {
	a := &searchInv{}
	fs := c.flags(a)
	if err := parseFlags(fs, argv, 0); err != nil {
		return nil, err
	}
	crit := repository.Criteria{
		DType: a.dtype,
		Group: a.group,
		Kind:  a.kind,
		Limit: a.limit,
	}
	for _, p := range []struct {
		f   *pairFlag
		dst **repository.Bounds
	}{{&a.rows, &crit.RowBounds}, {&a.cols, &crit.ColBounds}, {&a.nnz, &crit.NNZBounds}} {
		if p.f.set {
			*p.dst = &repository.Bounds{Min: p.f.lo, Max: p.f.hi}
		}
	}
	if fs.Changed("isspd") {
		crit.IsSPD = &a.spd
	}
	if fs.Changed("is2d3d") {
		crit.Is2D3D = &a.twoD
	}
	a.criteria = crit
	return a, nil
}

func (a *searchInv) Validate(context.Context, *Session) error {
	c := a.criteria
	for name, b := range map[string]*repository.Bounds{"rowbounds": c.RowBounds, "colbounds": c.ColBounds, "nzbounds": c.NNZBounds} {
		if b == nil {
			continue
		}
		if b.Min < 0 || b.Min > b.Max {
			return validationError("--%s %d %d: want 0 <= lo <= hi", name, b.Min, b.Max)
		}
	}
	if c.DType != "" && !slices.Contains(dtypes, c.DType) {
		return validationError("--dtype %q: want one of real, complex, binary", c.DType)
	}
	if c.Limit <= 0 {
		return validationError("--limit %d: must be positive", c.Limit)
	}
	return nil
}

func (a *searchInv) Execute(ctx context.Context, s *Session) error {
	ms, err := s.catalog.Search(ctx, a.criteria)
	if err != nil {
		return fmt.Errorf("search catalog: %w", err)
	}
	if len(ms) == 0 {
		s.log.Info("no matrices matched")
		return nil
	}
	s.println(render.Matrices(ms))
	for _, m := range ms {
		s.Cache.Add(m)
	}
	return nil
}

// ---------------------------------------------------------------------------
// append / remove
// ---------------------------------------------------------------------------

// LookupKey selects a record by id or by name, never both.
type LookupKey struct {
	ID     int
	Name   string
	ByName bool
}

func (k LookupKey) String() string {
	if k.ByName {
		return "name " + strconv.Quote(k.Name)
	}
	return "id " + strconv.Itoa(k.ID)
}

func (k LookupKey) get(r *registry.Registry) (repository.Matrix, error) {
	if k.ByName {
		return r.GetByName(k.Name)
	}
	return r.GetByID(k.ID)
}

func (k LookupKey) remove(r *registry.Registry) {
	if k.ByName {
		r.RemoveByName(k.Name)
		return
	}
	r.RemoveByID(k.ID)
}

func lookupFlags(name string, id *int, n *string) *pflag.FlagSet {
	fs := newFlagSet(name)
	fs.IntVarP(id, "id", "i", 0, "matrix id")
	fs.StringVarP(n, "name", "n", "", "matrix name")
	return fs
}

func parseLookup(name string, argv []string) (LookupKey, error) {
	var k LookupKey
	fs := lookupFlags(name, &k.ID, &k.Name)
	if err := parseFlags(fs, argv, 0); err != nil {
		return k, err
	}
	byID, byName := fs.Changed("id"), fs.Changed("name")
	switch {
	case byID && byName:
		return k, validationError("--id and --name are mutually exclusive")
	case !byID && !byName:
		return k, usageError("one of --id or --name is required")
	}
	k.ByName = byName
	return k, nil
}

type appendCmd struct{}

func (appendCmd) Spec() Spec {
	return Spec{Name: "append", Aliases: []string{"add"}, Summary: "move a cached matrix into the cart", Scope: ScopeCatalog}
}

func (c appendCmd) Usage() string {
	var id int
	var name string
	return usageText(c.Spec(), "(--id N | --name NAME)", lookupFlags("append", &id, &name))
}

func (appendCmd) Parse(argv []string) (Invocation, error) {
	k, err := parseLookup("append", argv)
	if err != nil {
		return nil, err
	}
	return appendInv{key: k}, nil
}

type appendInv struct{ key LookupKey }

func (appendInv) Validate(context.Context, *Session) error { return nil }

func (a appendInv) Execute(_ context.Context, s *Session) error {
	m, err := a.key.get(s.Cache)
	if errors.Is(err, registry.ErrNotFound) {
		kv := []any{"key", a.key.String()}
		if a.key.ByName {
			if near := closest(a.key.Name, s.Cache.Names()); near != "" {
				kv = append(kv, "suggest", near)
			}
		}
		s.log.Warn("matrix is not in the cache; search for it first", kv...)
		return nil
	}
	if err != nil {
		return err
	}
	s.Cart.Add(m)
	return nil
}

// closest returns the candidate within suggestion distance of name.
func closest(name string, candidates []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

type removeCmd struct{}

func (removeCmd) Spec() Spec {
	return Spec{Name: "remove", Summary: "drop a matrix from the cart", Scope: ScopeCatalog}
}

func (c removeCmd) Usage() string {
	var id int
	var name string
	return usageText(c.Spec(), "(--id N | --name NAME)", lookupFlags("remove", &id, &name))
}

func (removeCmd) Parse(argv []string) (Invocation, error) {
	k, err := parseLookup("remove", argv)
	if err != nil {
		return nil, err
	}
	return removeInv{key: k}, nil
}

type removeInv struct{ key LookupKey }

func (removeInv) Validate(context.Context, *Session) error { return nil }

func (r removeInv) Execute(_ context.Context, s *Session) error {
	r.key.remove(s.Cart)
	return nil
}

// ---------------------------------------------------------------------------
// list / cache
// ---------------------------------------------------------------------------

// showCmd prints one of the session registries.
type showCmd struct {
	spec  Spec
	empty string
	which func(*Session) *registry.Registry
}

func (c showCmd) Spec() Spec { return c.spec }

func (c showCmd) Usage() string { return usageText(c.spec, "", nil) }

func (c showCmd) Parse(argv []string) (Invocation, error) {
	if err := parseFlags(newFlagSet(c.spec.Name), argv, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (showCmd) Validate(context.Context, *Session) error { return nil }

func (c showCmd) Execute(_ context.Context, s *Session) error {
	r := c.which(s)
	if r.Size() == 0 {
		s.log.Warn(c.empty)
		return nil
	}
	s.println(render.Matrices(r.Values()))
	return nil
}

type listCmd struct{ showCmd }

type cacheCmd struct{ showCmd }

func newListCmd() listCmd {
	return listCmd{showCmd{
		spec:  Spec{Name: "list", Summary: "show the cart", Scope: ScopeCatalog},
		empty: "matrix cart is empty",
		which: func(s *Session) *registry.Registry { return s.Cart },
	}}
}

func newCacheCmd() cacheCmd {
	return cacheCmd{showCmd{
		spec:  Spec{Name: "cache", Summary: "show every matrix found this session", Scope: ScopeCatalog},
		empty: "matrix cache is empty",
		which: func(s *Session) *registry.Registry { return s.Cache },
	}}
}

// ---------------------------------------------------------------------------
// download
// ---------------------------------------------------------------------------

type downloadCmd struct {
	format string
	dest   string
}

type downloadInv struct {
	formatName string
	extract    bool
	destPath   string

	format service.DownloadFormat
	dest   billy.Filesystem
}

func (downloadCmd) Spec() Spec {
	return Spec{Name: "download", Summary: "download every matrix in the cart, then empty it", Scope: ScopeCatalog}
}

func (c downloadCmd) flags(a *downloadInv) *pflag.FlagSet {
	fs := newFlagSet("download")
	fs.StringVarP(&a.formatName, "format", "f", c.format, "market, compressed or proprietary")
	fs.BoolVarP(&a.extract, "extract", "e", false, "unpack downloaded archives")
	fs.StringVarP(&a.destPath, "dest", "d", c.dest, "existing destination `directory`")
	return fs
}

func (c downloadCmd) Usage() string {
	return usageText(c.Spec(), "[options]", c.flags(&downloadInv{}))
}

func (c downloadCmd) Parse(argv []string) (Invocation, error) {
	a := &downloadInv{}
	if err := parseFlags(c.flags(a), argv, 0); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *downloadInv) Validate(_ context.Context, s *Session) error {
	f, err := service.ParseDownloadFormat(a.formatName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	dest, err := s.openDest(a.destPath)
	if err != nil {
		return resourceError("destination %q: %v", a.destPath, err)
	}
	a.format, a.dest = f, dest
	return nil
}

func (a *downloadInv) Execute(ctx context.Context, s *Session) error {
	if s.Cart.Size() == 0 {
		s.log.Warn("matrix cart is empty")
		return nil
	}
	transfers, err := s.catalog.Download(ctx, s.Cart.Values(), service.DownloadOptions{
		Format:  a.format,
		Extract: a.extract,
		Dest:    a.dest,
	})
	for _, t := range transfers {
		if t.Err != nil {
			continue
		}
		s.Cart.RemoveByID(t.Matrix.ID)
		for _, f := range t.Files {
			s.println(fmt.Sprintf("%s -> %s", t.Matrix.Name, f))
		}
	}
	if err != nil {
		return fmt.Errorf("%d of %d left in cart: %w", s.Cart.Size(), len(transfers), err)
	}
	return nil
}
