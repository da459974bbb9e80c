// Package shell is the interactive session: it reads command lines,
// resolves them to commands and runs each through parse, validate and
// execute against the session state.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jask/mtxshell/internal/config"
	"github.com/jask/mtxshell/internal/database/repository"
	"github.com/jask/mtxshell/internal/registry"
	"github.com/jask/mtxshell/internal/render"
	"github.com/jask/mtxshell/internal/service"
	"github.com/jask/mtxshell/internal/sparse"
)

// Catalog is the remote collection as the session sees it.
type Catalog interface {
	Search(ctx context.Context, c repository.Criteria) ([]repository.Matrix, error)
	Download(ctx context.Context, ms []repository.Matrix, opts service.DownloadOptions) ([]service.Transfer, error)
}

// Matrix is the matrix loaded at startup together with the view the read
// commands address.
type Matrix struct {
	Coordinate *sparse.Coordinate
	View       *sparse.View
	Meta       sparse.MetaInfo
}

// Options configures a Session. Out and Catalog are required.
type Options struct {
	Config  config.Config
	Out     io.Writer
	Log     *log.Logger
	Catalog Catalog
	Matrix  *Matrix

	// OpenDest opens a download destination; it fails when path is not an
	// existing directory. Defaults to OpenDirectory.
	OpenDest func(path string) (billy.Filesystem, error)
	// Clear clears the terminal. Defaults to writing the erase sequence to Out.
	Clear func()
}

// Session is the state one interactive run works on.
type Session struct {
	cfg      config.Config
	out      io.Writer
	log      *log.Logger
	catalog  Catalog
	openDest func(string) (billy.Filesystem, error)
	clear    func()

	Cache *registry.Registry // every search result this session
	Cart  *registry.Registry // staged for download

	matrix   *Matrix
	commands *CommandRegistry
	done     bool
}

func NewSession(opts Options) *Session {
	s := &Session{
		cfg:      opts.Config,
		out:      opts.Out,
		log:      opts.Log,
		catalog:  opts.Catalog,
		openDest: opts.OpenDest,
		clear:    opts.Clear,
		Cache:    registry.New(),
		Cart:     registry.New(),
		matrix:   opts.Matrix,
	}
	if s.log == nil {
		s.log = log.New(io.Discard)
	}
	if s.openDest == nil {
		s.openDest = OpenDirectory
	}
	if s.clear == nil {
		s.clear = func() { fmt.Fprint(s.out, ansi.CursorHomePosition+ansi.EraseEntireScreen) }
	}

	cmds := []Command{
		searchCmd{limit: s.cfg.Search.Limit},
		appendCmd{},
		removeCmd{},
		newListCmd(),
		newCacheCmd(),
		downloadCmd{format: s.cfg.Download.Format, dest: s.cfg.Download.Dest},
	}
	for _, sel := range sparse.Selectors() {
		cmds = append(cmds, readCmd{sel: sel})
	}
	cmds = append(cmds, infoCmd{}, spyCmd{}, helpCmd{}, clearCmd{}, exitCmd{})

	s.commands = NewCommandRegistry()
	for _, c := range cmds {
		if c.Spec().Scope.Available(s.matrix != nil) {
			s.commands.Register(c)
		}
	}
	return s
}

// OpenDirectory opens path as a download destination.
func OpenDirectory(path string) (billy.Filesystem, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return osfs.New(path), nil
}

// Commands returns the session's command registry.
func (s *Session) Commands() *CommandRegistry { return s.commands }

// Matrix returns the loaded matrix, or nil in a catalog-only session.
func (s *Session) Matrix() *Matrix { return s.matrix }

// Done reports whether exit was requested.
func (s *Session) Done() bool { return s.done }

func (s *Session) println(text string) {
	fmt.Fprintln(s.out, text)
}

// Run reads and dispatches lines until exit or end of input. Only a failing
// line reader ends the loop with an error.
func (s *Session) Run(ctx context.Context, in LineReader) error {
	for !s.done {
		line, err := in.ReadLine(ctx, s.cfg.UI.Prompt)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		s.Dispatch(ctx, line)
	}
	return nil
}

// Dispatch runs one command line. Rejected invocations print the command's
// usage; operational failures are logged. Neither ends the session.
func (s *Session) Dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		s.printHelp()
		return
	}
	verb := strings.ToLower(fields[0])
	cmd, ok := s.commands.Lookup(verb)
	if !ok {
		s.printHelp()
		if sug := s.commands.Suggest(verb); len(sug) > 0 {
			s.log.Warn("unknown command", "verb", verb, "suggest", sug[0])
		} else {
			s.log.Warn("unknown command", "verb", verb)
		}
		return
	}

	inv, err := cmd.Parse(fields[1:])
	if err == nil {
		err = inv.Validate(ctx, s)
	}
	if err != nil {
		if errors.Is(err, ErrUsage) {
			s.log.Debug("rejected", "verb", verb, "err", err)
		} else {
			s.log.Warn("rejected", "verb", verb, "err", err)
		}
		s.println(cmd.Usage())
		return
	}

	if err := inv.Execute(ctx, s); err != nil {
		s.log.Error(verb+" failed", "err", err)
	}
}

func (s *Session) printHelp() {
	entries := make([]render.HelpEntry, 0, len(s.commands.All()))
	for _, c := range s.commands.All() {
		spec := c.Spec()
		key := spec.Name
		if len(spec.Aliases) > 0 {
			key += ", " + strings.Join(spec.Aliases, ", ")
		}
		entries = append(entries, render.HelpEntry{Key: key, Desc: spec.Summary})
	}
	title := "commands"
	if s.matrix != nil {
		title = fmt.Sprintf("commands (%s loaded as %s)", s.matrix.Meta.Name, s.matrix.View.Format())
	}
	s.println(render.Help(title, entries))
	s.println("\nRun 'help <command>' for its options.")
}
