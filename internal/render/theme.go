package render

import "github.com/charmbracelet/lipgloss"

// ---------------------------------------------------------------------------
// Catppuccin Mocha palette, true-color hex values
// https://catppuccin.com/palette
// ---------------------------------------------------------------------------

const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface2 lipgloss.Color = "#585b70"
)

// ---------------------------------------------------------------------------
// Semantic color aliases
// ---------------------------------------------------------------------------

const (
	colorBrand   = colorPink
	colorFocus   = colorLavender
	colorError   = colorRed
	colorWarning = colorYellow
	colorInfo    = colorTeal
	colorDebug   = colorBlue
)

// PaletteColors returns every color the renderer uses, for tests.
func PaletteColors() []lipgloss.Color {
	return []lipgloss.Color{
		colorPink, colorRed, colorPeach, colorYellow,
		colorGreen, colorTeal, colorBlue, colorLavender,
		colorText, colorSubtext0, colorOverlay1, colorSurface2,
	}
}

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	borderStyle = lipgloss.NewStyle().Foreground(colorSurface2)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSubtext0).
				Bold(true).
				Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)

	// index labels above range values
	labelStyle = lipgloss.NewStyle().
			Foreground(colorOverlay1).
			Padding(0, 1)

	valueStyle = lipgloss.NewStyle().Foreground(colorPeach).Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorFocus).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0)

	spyDotStyle = lipgloss.NewStyle().Foreground(colorGreen)
)
