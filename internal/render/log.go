package render

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// NewLogger returns the session logger. Operational messages go to w
// (stderr in the binary); command output never does.
func NewLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: false,
	})
	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = levelStyle("DEBUG", colorDebug)
	styles.Levels[log.InfoLevel] = levelStyle("INFO", colorInfo)
	styles.Levels[log.WarnLevel] = levelStyle("WARN", colorWarning)
	styles.Levels[log.ErrorLevel] = levelStyle("ERROR", colorError)
	logger.SetStyles(styles)
	return logger, nil
}

func levelStyle(label string, c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().SetString(label).Bold(true).MaxWidth(5).Foreground(c)
}
