package shell

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Scope says when a command is available.
type Scope string

const (
	ScopeCatalog Scope = "catalog" // always
	ScopeMatrix  Scope = "matrix"  // only with a loaded matrix
)

// Available reports whether a command in scope sc can run in a session
// that does or does not hold a matrix.
func (sc Scope) Available(hasMatrix bool) bool {
	switch sc {
	case ScopeCatalog:
		return true
	case ScopeMatrix:
		return hasMatrix
	}
	return false
}

// Spec describes a command for lookup and help.
type Spec struct {
	Name    string
	Aliases []string
	Summary string
	Scope   Scope
}

// Command is one verb of the session. Parse builds a fresh invocation for
// every line, so commands themselves hold no per-line state.
type Command interface {
	Spec() Spec
	Usage() string
	Parse(argv []string) (Invocation, error)
}

// Invocation is a parsed command line. Validate checks the arguments
// against session state without changing it; Execute performs the effect
// and only fails operationally.
type Invocation interface {
	Validate(ctx context.Context, s *Session) error
	Execute(ctx context.Context, s *Session) error
}

// maxSuggestDistance bounds "did you mean" suggestions.
const maxSuggestDistance = 2

// CommandRegistry resolves verbs and aliases to commands.
type CommandRegistry struct {
	commands []Command
	byName   map[string]Command
}

func NewCommandRegistry(cmds ...Command) *CommandRegistry {
	r := &CommandRegistry{byName: make(map[string]Command)}
	for _, c := range cmds {
		r.Register(c)
	}
	return r
}

// Register adds c under its name and aliases. Registering a taken name is
// a programming error.
func (r *CommandRegistry) Register(c Command) {
	spec := c.Spec()
	for _, key := range append([]string{spec.Name}, spec.Aliases...) {
		if _, dup := r.byName[key]; dup {
			panic(fmt.Sprintf("shell: command %q registered twice", key))
		}
		r.byName[key] = c
	}
	r.commands = append(r.commands, c)
}

// All returns the commands in registration order.
func (r *CommandRegistry) All() []Command {
	if r == nil {
		return nil
	}
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

func (r *CommandRegistry) Lookup(verb string) (Command, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.byName[verb]
	return c, ok
}

// Suggest returns the registered names closest to verb, nearest first.
func (r *CommandRegistry) Suggest(verb string) []string {
	if r == nil || verb == "" {
		return nil
	}
	type match struct {
		name string
		dist int
	}
	var ms []match
	for name := range r.byName {
		d := levenshtein.ComputeDistance(strings.ToLower(verb), name)
		if d <= maxSuggestDistance && d < max(len(name), len(verb)) {
			ms = append(ms, match{name, d})
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].dist != ms[j].dist {
			return ms[i].dist < ms[j].dist
		}
		return ms[i].name < ms[j].name
	})
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.name
	}
	return out
}
