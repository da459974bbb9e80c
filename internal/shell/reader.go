package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// LineReader supplies command lines to a session. io.EOF ends the session
// the same way exit does.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// ScannerReader reads lines from a non-interactive stream without echoing
// a prompt.
type ScannerReader struct {
	sc *bufio.Scanner
}

func NewScannerReader(r io.Reader) *ScannerReader {
	return &ScannerReader{sc: bufio.NewScanner(r)}
}

func (r *ScannerReader) ReadLine(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

// PromptReader edits each line in a small terminal program with history.
// Ctrl+D on an empty line is end of input; Ctrl+C discards the line.
type PromptReader struct {
	in      io.Reader
	out     io.Writer
	history []string
}

func NewPromptReader(in io.Reader, out io.Writer) *PromptReader {
	return &PromptReader{in: in, out: out}
}

func (p *PromptReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	prog := tea.NewProgram(newPromptModel(prompt, p.history),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	m := final.(promptModel)
	if m.eof {
		return "", io.EOF
	}
	line := m.input.Value()
	if strings.TrimSpace(line) != "" {
		p.history = append(p.history, line)
	}
	return line, nil
}

type promptModel struct {
	input   textinput.Model
	history []string
	pos     int    // index into history; len(history) is the draft
	draft   string // what was typed before browsing history
	done    bool
	eof     bool
}

func newPromptModel(prompt string, history []string) promptModel {
	inp := textinput.New()
	inp.Prompt = prompt
	inp.Focus()
	return promptModel{input: inp, history: history, pos: len(history)}
}

func (m promptModel) Init() tea.Cmd { return textinput.Blink }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.done, m.eof = true, true
				return m, tea.Quit
			}
		case tea.KeyCtrlC:
			m.input.SetValue("")
			m.pos = len(m.history)
			return m, nil
		case tea.KeyUp:
			if m.pos > 0 {
				if m.pos == len(m.history) {
					m.draft = m.input.Value()
				}
				m.pos--
				m.input.SetValue(m.history[m.pos])
				m.input.CursorEnd()
			}
			return m, nil
		case tea.KeyDown:
			if m.pos < len(m.history) {
				m.pos++
				if m.pos == len(m.history) {
					m.input.SetValue(m.draft)
				} else {
					m.input.SetValue(m.history[m.pos])
				}
				m.input.CursorEnd()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		if m.eof {
			return m.input.Prompt + "\n"
		}
		return m.input.Prompt + m.input.Value() + "\n"
	}
	return m.input.View()
}
