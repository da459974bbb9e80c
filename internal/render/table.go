// Package render turns catalog records, matrix summaries and array slices
// into terminal tables.
package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/mtxshell/internal/database/repository"
	"github.com/jask/mtxshell/internal/sparse"
)

// maxCellWidth caps any single cell; longer text is truncated.
const maxCellWidth = 40

// truncate shortens s to width cells, appending "…" if truncated.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// Table renders headers and rows as a bordered table.
func Table(headers []string, rows [][]string) string {
	body := make([][]string, len(rows))
	for i, r := range rows {
		body[i] = make([]string, len(r))
		for j, c := range r {
			body[i][j] = truncate(c, maxCellWidth)
		}
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(body...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		})
	return t.Render()
}

// Matrices renders catalog records. An empty slice renders as "".
func Matrices(ms []repository.Matrix) string {
	if len(ms) == 0 {
		return ""
	}
	rows := make([][]string, len(ms))
	for i, m := range ms {
		rows[i] = m.Cells()
	}
	return Table(repository.Columns(), rows)
}

// Meta renders a matrix summary as a one-row table.
func Meta(mi sparse.MetaInfo) string {
	return Table(mi.Columns(), [][]string{mi.Cells()})
}

// Number formats an array value: integral values print without a fraction.
func Number(v float64) string {
	if v < 1e15 && v > -1e15 && v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Slice renders a query result as label/value row pairs, columns cells wide.
func Slice(s sparse.Slice, columns int) string {
	if columns <= 0 {
		columns = 10
	}
	var blocks []string
	blocks = append(blocks, titleStyle.Render(s.Array))
	for start := 0; start < len(s.Values); start += columns {
		end := min(start+columns, len(s.Values))
		labels := make([]string, 0, end-start)
		values := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			labels = append(labels, strconv.Itoa(s.Labels[i]))
			values = append(values, truncate(Number(s.Values[i]), maxCellWidth))
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(borderStyle).
			BorderRow(true).
			Rows(labels, values).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == 0 {
					return labelStyle
				}
				return valueStyle
			})
		blocks = append(blocks, t.Render())
	}
	return strings.Join(blocks, "\n")
}

// HelpEntry is one line of a command listing.
type HelpEntry struct {
	Key  string
	Desc string
}

// Help renders a titled two-column command listing.
func Help(title string, entries []HelpEntry) string {
	width := 0
	for _, e := range entries {
		width = max(width, ansi.StringWidth(e.Key))
	}
	lines := []string{titleStyle.Render(title)}
	for _, e := range entries {
		pad := strings.Repeat(" ", width-ansi.StringWidth(e.Key))
		lines = append(lines, "  "+helpKeyStyle.Render(e.Key)+pad+"  "+helpDescStyle.Render(e.Desc))
	}
	return strings.Join(lines, "\n")
}

// Plot frames pre-drawn plot lines under a title, colouring set cells.
func Plot(title string, lines []string, dot rune) string {
	styled := make([]string, len(lines))
	for i, l := range lines {
		var b strings.Builder
		for _, r := range l {
			if r == dot {
				b.WriteString(spyDotStyle.Render(string(r)))
			} else {
				b.WriteRune(r)
			}
		}
		styled[i] = b.String()
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSurface2).
		Render(strings.Join(styled, "\n"))
	return titleStyle.Render(title) + "\n" + box
}
