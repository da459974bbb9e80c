package shell

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const pairType = "pair"

// pairFlag is a two-integer option given as "lo hi" or "lo,hi".
type pairFlag struct {
	lo, hi int
	set    bool
}

func (p *pairFlag) String() string {
	if !p.set {
		return ""
	}
	return fmt.Sprintf("%d,%d", p.lo, p.hi)
}

func (p *pairFlag) Set(s string) error {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return fmt.Errorf("want two integers, got %q", s)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return err
	}
	hi, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return err
	}
	p.lo, p.hi, p.set = lo, hi, true
	return nil
}

func (p *pairFlag) Type() string { return pairType }

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false
	return fs
}

func lookupFlag(fs *pflag.FlagSet, tok string) *pflag.Flag {
	switch {
	case strings.HasPrefix(tok, "--"):
		return fs.Lookup(tok[2:])
	case len(tok) == 2 && tok[0] == '-':
		return fs.ShorthandLookup(tok[1:])
	}
	return nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// foldArgs rewrites "--opt lo hi" for pair options into "--opt=lo,hi" and
// "--flag true|false" for boolean options into "--flag=true|false", so the
// flag parser sees one token per value.
func foldArgs(fs *pflag.FlagSet, argv []string) []string {
	out := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "--" {
			return append(out, argv[i:]...)
		}
		f := lookupFlag(fs, tok)
		if f == nil {
			out = append(out, tok)
			continue
		}
		switch f.Value.Type() {
		case pairType:
			if i+2 < len(argv) && isInt(argv[i+1]) && isInt(argv[i+2]) {
				out = append(out, "--"+f.Name+"="+argv[i+1]+","+argv[i+2])
				i += 2
				continue
			}
		case "bool":
			if i+1 < len(argv) {
				if _, err := strconv.ParseBool(argv[i+1]); err == nil {
					out = append(out, "--"+f.Name+"="+argv[i+1])
					i++
					continue
				}
			}
		}
		out = append(out, tok)
	}
	return out
}

// parseFlags parses argv into fs. Positional arguments are rejected unless
// maxArgs allows them.
func parseFlags(fs *pflag.FlagSet, argv []string, maxArgs int) error {
	if err := fs.Parse(foldArgs(fs, argv)); err != nil {
		return usageError("%v", err)
	}
	if fs.NArg() > maxArgs {
		return usageError("unexpected argument %q", fs.Arg(maxArgs))
	}
	return nil
}

func usageText(spec Spec, synopsis string, fs *pflag.FlagSet) string {
	var b strings.Builder
	b.WriteString("usage: " + spec.Name)
	if synopsis != "" {
		b.WriteString(" " + synopsis)
	}
	b.WriteString("\n\n" + spec.Summary + "\n")
	if len(spec.Aliases) > 0 {
		b.WriteString("aliases: " + strings.Join(spec.Aliases, ", ") + "\n")
	}
	if fs != nil && fs.HasFlags() {
		b.WriteString("\noptions:\n" + fs.FlagUsages())
	}
	return strings.TrimRight(b.String(), "\n")
}
