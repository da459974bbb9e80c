package shell

import (
	"context"
	"strings"
)

type helpCmd struct{}

type helpInv struct{ verb string }

func (helpCmd) Spec() Spec {
	return Spec{Name: "help", Aliases: []string{"h", "?"}, Summary: "list commands, or show one command's usage", Scope: ScopeCatalog}
}

func (c helpCmd) Usage() string { return usageText(c.Spec(), "[command]", nil) }

func (helpCmd) Parse(argv []string) (Invocation, error) {
	fs := newFlagSet("help")
	if err := parseFlags(fs, argv, 1); err != nil {
		return nil, err
	}
	return helpInv{verb: strings.ToLower(fs.Arg(0))}, nil
}

func (helpInv) Validate(context.Context, *Session) error { return nil }

func (h helpInv) Execute(_ context.Context, s *Session) error {
	if h.verb == "" {
		s.printHelp()
		return nil
	}
	if cmd, ok := s.commands.Lookup(h.verb); ok {
		s.println(cmd.Usage())
		return nil
	}
	s.printHelp()
	kv := []any{"verb", h.verb}
	if sug := s.commands.Suggest(h.verb); len(sug) > 0 {
		kv = append(kv, "suggest", sug[0])
	}
	s.log.Warn("unknown command", kv...)
	return nil
}

// noArgs is the shared Parse for commands that take nothing.
func noArgs(name string, argv []string, inv Invocation) (Invocation, error) {
	if err := parseFlags(newFlagSet(name), argv, 0); err != nil {
		return nil, err
	}
	return inv, nil
}

type clearCmd struct{}

func (clearCmd) Spec() Spec {
	return Spec{Name: "clear", Aliases: []string{"cls"}, Summary: "clear the screen", Scope: ScopeCatalog}
}

func (c clearCmd) Usage() string                           { return usageText(c.Spec(), "", nil) }
func (c clearCmd) Parse(argv []string) (Invocation, error) { return noArgs("clear", argv, c) }
func (clearCmd) Validate(context.Context, *Session) error  { return nil }

func (clearCmd) Execute(_ context.Context, s *Session) error {
	s.clear()
	return nil
}

type exitCmd struct{}

func (exitCmd) Spec() Spec {
	return Spec{Name: "exit", Aliases: []string{"quit", "q"}, Summary: "leave the session", Scope: ScopeCatalog}
}

func (c exitCmd) Usage() string                           { return usageText(c.Spec(), "", nil) }
func (c exitCmd) Parse(argv []string) (Invocation, error) { return noArgs("exit", argv, c) }
func (exitCmd) Validate(context.Context, *Session) error  { return nil }

func (exitCmd) Execute(_ context.Context, s *Session) error {
	s.done = true
	return nil
}
