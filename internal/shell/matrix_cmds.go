package shell

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"github.com/jask/mtxshell/internal/plot"
	"github.com/jask/mtxshell/internal/render"
	"github.com/jask/mtxshell/internal/sparse"
)

var selectorSummaries = map[sparse.Selector]string{
	sparse.SelRow:   "read the row index or row offset array",
	sparse.SelCol:   "read the column index or column offset array",
	sparse.SelValue: "read the value array",
}

// Target addresses a read: a single index or a half-open range.
type Target struct {
	Index   int
	Lo, Hi  int
	IsRange bool
}

type readCmd struct {
	sel sparse.Selector
}

type readInv struct {
	sel    sparse.Selector
	target Target
}

func (c readCmd) Spec() Spec {
	return Spec{Name: c.sel.Verb(), Summary: selectorSummaries[c.sel], Scope: ScopeMatrix}
}

func (c readCmd) flags(idx *int, rng *pairFlag) *pflag.FlagSet {
	fs := newFlagSet(c.sel.Verb())
	fs.IntVarP(idx, "index", "i", 0, "read one element")
	fs.VarP(rng, "range", "r", "read elements `lo hi`, hi exclusive")
	return fs
}

func (c readCmd) Usage() string {
	var idx int
	var rng pairFlag
	return usageText(c.Spec(), "(--index I | --range LO HI)", c.flags(&idx, &rng))
}

func (c readCmd) Parse(argv []string) (Invocation, error) {
	var idx int
	var rng pairFlag
	fs := c.flags(&idx, &rng)
	if err := parseFlags(fs, argv, 0); err != nil {
		return nil, err
	}
	byIndex := fs.Changed("index")
	switch {
	case byIndex && rng.set:
		return nil, validationError("--index and --range are mutually exclusive")
	case !byIndex && !rng.set:
		return nil, usageError("one of --index or --range is required")
	}
	t := Target{Index: idx}
	if rng.set {
		t = Target{Lo: rng.lo, Hi: rng.hi, IsRange: true}
	}
	return readInv{sel: c.sel, target: t}, nil
}

func (r readInv) bound(s *Session) int {
	return s.matrix.Meta.Bound(s.matrix.View.Format(), r.sel)
}

func (r readInv) Validate(_ context.Context, s *Session) error {
	if s.matrix == nil {
		return resourceError("no matrix loaded")
	}
	v, bound := s.matrix.View, r.bound(s)
	var err error
	if r.target.IsRange {
		err = v.CheckRange(r.sel, bound, r.target.Lo, r.target.Hi)
	} else {
		err = v.CheckIndex(r.sel, bound, r.target.Index)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (r readInv) Execute(_ context.Context, s *Session) error {
	v, bound := s.matrix.View, r.bound(s)
	var (
		sl  sparse.Slice
		err error
	)
	if r.target.IsRange {
		sl, err = v.Range(r.sel, bound, r.target.Lo, r.target.Hi)
	} else {
		sl, err = v.Index(r.sel, bound, r.target.Index)
	}
	if err != nil {
		return err
	}
	s.println(render.Slice(sl, s.cfg.UI.Columns))
	return nil
}

type infoCmd struct{}

func (infoCmd) Spec() Spec {
	return Spec{Name: "info", Summary: "show the loaded matrix summary", Scope: ScopeMatrix}
}

func (c infoCmd) Usage() string { return usageText(c.Spec(), "", nil) }

func (c infoCmd) Parse(argv []string) (Invocation, error) {
	if err := parseFlags(newFlagSet("info"), argv, 0); err != nil {
		return nil, err
	}
	return c, nil
}

func (infoCmd) Validate(_ context.Context, s *Session) error {
	if s.matrix == nil {
		return resourceError("no matrix loaded")
	}
	return nil
}

func (infoCmd) Execute(_ context.Context, s *Session) error {
	s.println(render.Meta(s.matrix.Meta))
	v := s.matrix.View
	rows, cols := v.Shape()
	s.println(fmt.Sprintf("layout %s %dx%d: %s[%d] %s[%d] %s[%d]", v.Format(), rows, cols,
		v.ArrayName(sparse.SelRow), v.Len(sparse.SelRow),
		v.ArrayName(sparse.SelCol), v.Len(sparse.SelCol),
		v.ArrayName(sparse.SelValue), v.Len(sparse.SelValue)))
	return nil
}

// Default spy canvas.
const (
	spyWidth  = 60
	spyHeight = 30
)

type spyCmd struct{}

type spyInv struct {
	width, height int
}

func (spyCmd) Spec() Spec {
	return Spec{Name: "spy", Summary: "plot the sparsity pattern", Scope: ScopeMatrix}
}

func (spyCmd) flags(a *spyInv) *pflag.FlagSet {
	fs := newFlagSet("spy")
	fs.IntVarP(&a.width, "width", "W", spyWidth, "canvas width in cells")
	fs.IntVarP(&a.height, "height", "H", spyHeight, "canvas height in cells")
	return fs
}

func (c spyCmd) Usage() string {
	return usageText(c.Spec(), "[options]", c.flags(&spyInv{}))
}

func (c spyCmd) Parse(argv []string) (Invocation, error) {
	a := &spyInv{}
	if err := parseFlags(c.flags(a), argv, 0); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *spyInv) Validate(_ context.Context, s *Session) error {
	if s.matrix == nil {
		return resourceError("no matrix loaded")
	}
	if a.width <= 0 || a.height <= 0 {
		return validationError("canvas %dx%d: both sides must be positive", a.width, a.height)
	}
	return nil
}

func (a *spyInv) Execute(_ context.Context, s *Session) error {
	coo := s.matrix.Coordinate
	lines, err := plot.Spy(coo, a.width, a.height)
	if err != nil {
		return err
	}
	s.println(render.Plot(s.matrix.Meta.Name, lines, plot.Dot))

	// Spy shrinks the canvas to the matrix shape
	h := len(lines)
	w := 0
	if h > 0 {
		w = utf8.RuneCountInString(lines[0])
	}
	cells, err := plot.Occupancy(coo, w, h)
	if err != nil {
		return err
	}
	s.println(fmt.Sprintf("%dx%d cells, %.1f%% occupied", w, h, 100*plot.Density(cells, w, h)))
	return nil
}
