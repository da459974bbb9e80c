package shell

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestFoldArgs(t *testing.T) {
	t.Parallel()
	var p pairFlag
	var b bool
	var n int
	fs := newFlagSet("t")
	fs.VarP(&p, "range", "r", "")
	fs.BoolVarP(&b, "extract", "e", false, "")
	fs.IntVarP(&n, "limit", "l", 0, "")

	cases := map[string][]string{
		"-r 1 5":            {"--range=1,5"},
		"--range 1 5 -l 3":  {"--range=1,5", "-l", "3"},
		"-r 1":              {"-r", "1"},
		"-e true -l 2":      {"--extract=true", "-l", "2"},
		"-e -l 2":           {"-e", "-l", "2"},
		"-- -r 1 2":         {"--", "-r", "1", "2"},
		"pos -r -3 -1 tail": {"pos", "--range=-3,-1", "tail"},
	}
	for in, want := range cases {
		require.Equal(t, want, foldArgs(fs, strings.Fields(in)), in)
	}
}

func TestParseFlagsWrapsUsage(t *testing.T) {
	t.Parallel()
	var p pairFlag
	fs := newFlagSet("t")
	fs.VarP(&p, "range", "r", "")

	require.NoError(t, parseFlags(fs, []string{"-r", "2", "4"}, 0))
	require.True(t, p.set)
	require.Equal(t, 2, p.lo)
	require.Equal(t, 4, p.hi)
	require.Equal(t, "2,4", p.String())

	fs = newFlagSet("t")
	fs.VarP(&pairFlag{}, "range", "r", "")
	err := parseFlags(fs, []string{"-r", "x", "4"}, 0)
	require.ErrorIs(t, err, ErrUsage)

	err = parseFlags(newFlagSet("t"), []string{"a", "b"}, 1)
	require.ErrorIs(t, err, ErrUsage)
	require.Contains(t, err.Error(), `"b"`)
}

func TestCommandRegistry(t *testing.T) {
	t.Parallel()
	r := NewCommandRegistry(searchCmd{}, appendCmd{}, helpCmd{}, exitCmd{})

	c, ok := r.Lookup("add")
	require.True(t, ok)
	require.Equal(t, "append", c.Spec().Name)

	_, ok = r.Lookup("nope")
	require.False(t, ok)

	require.Equal(t, []string{"search"}, r.Suggest("serach"))
	require.Equal(t, "exit", r.Suggest("exti")[0])
	require.Empty(t, r.Suggest("zzzzzzzz"))

	require.Len(t, r.All(), 4)
	require.Panics(t, func() { r.Register(exitCmd{}) })
}

func TestUsageTextListsFlags(t *testing.T) {
	t.Parallel()
	u := searchCmd{limit: 25}.Usage()
	require.True(t, strings.HasPrefix(u, "usage: search [options]"))
	require.Contains(t, u, "--rowbounds")
	require.Contains(t, u, "(default 25)")

	u = appendCmd{}.Usage()
	require.Contains(t, u, "aliases: add")
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func typed(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func step(m promptModel, msg tea.Msg) promptModel {
	next, _ := m.Update(msg)
	return next.(promptModel)
}

func TestPromptModelHistory(t *testing.T) {
	t.Parallel()
	m := newPromptModel(">> ", []string{"search", "list"})

	m = step(m, typed("dow"))
	require.Equal(t, "dow", m.input.Value())

	m = step(m, key(tea.KeyUp))
	require.Equal(t, "list", m.input.Value())
	m = step(m, key(tea.KeyUp))
	require.Equal(t, "search", m.input.Value())
	m = step(m, key(tea.KeyUp))
	require.Equal(t, "search", m.input.Value())

	m = step(m, key(tea.KeyDown))
	m = step(m, key(tea.KeyDown))
	require.Equal(t, "dow", m.input.Value(), "draft comes back after history")

	m = step(m, key(tea.KeyCtrlC))
	require.Empty(t, m.input.Value())
	require.False(t, m.done)

	m = step(m, typed("exit"))
	m = step(m, key(tea.KeyEnter))
	require.True(t, m.done)
	require.False(t, m.eof)
	require.Equal(t, ">> exit\n", m.View())
}

func TestPromptModelCtrlD(t *testing.T) {
	t.Parallel()
	m := newPromptModel(">> ", nil)

	m = step(m, typed("x"))
	m = step(m, key(tea.KeyCtrlD))
	require.False(t, m.eof, "ctrl+d only ends input on an empty line")

	m = step(m, key(tea.KeyCtrlC))
	m = step(m, key(tea.KeyCtrlD))
	require.True(t, m.eof)
}

func TestScannerReader(t *testing.T) {
	t.Parallel()
	r := NewScannerReader(strings.NewReader("one\ntwo\n"))
	ctx := context.Background()

	line, err := r.ReadLine(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "one", line)
	line, err = r.ReadLine(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "two", line)
	_, err = r.ReadLine(ctx, "")
	require.True(t, errors.Is(err, io.EOF))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewScannerReader(strings.NewReader("x")).ReadLine(cctx, "")
	require.ErrorIs(t, err, context.Canceled)
}
