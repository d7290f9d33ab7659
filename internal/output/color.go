// Package output provides styled terminal rendering helpers for smilecoach.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for good scores and improvements.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for low scores and regressions.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for middling scores.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")

	// ColorAccent is used for coaching text.
	ColorAccent = lipgloss.Color("#f48fb1")
)

// Styles provides reusable lipgloss styles.
var (
	StyleHeader  lipgloss.Style
	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleBold    lipgloss.Style
	StyleAccent  lipgloss.Style

	// StyleLabel is used for metric labels.
	StyleLabel lipgloss.Style
	// StyleValue is used for metric values.
	StyleValue lipgloss.Style
)

func init() {
	colorStyles()
}

func colorStyles() {
	StyleHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold = lipgloss.NewStyle().Bold(true)
	StyleAccent = lipgloss.NewStyle().Foreground(ColorAccent).Italic(true)
	StyleLabel = lipgloss.NewStyle().Width(24)
	StyleValue = lipgloss.NewStyle().Bold(true).Width(12)
}

// noColor tracks whether color output is disabled.
var noColor bool

// SetNoColor disables or enables color output globally.
func SetNoColor(disabled bool) {
	noColor = disabled
	if !disabled {
		colorStyles()
		return
	}
	plain := lipgloss.NewStyle()
	StyleHeader = plain
	StyleSuccess = plain
	StyleError = plain
	StyleWarning = plain
	StyleMuted = plain
	StyleBold = plain
	StyleAccent = plain
	StyleLabel = plain.Width(24)
	StyleValue = plain.Width(12)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// ConfigureColor applies a color mode: "always", "never" or "auto". Auto
// disables color when stdout is not a terminal or NO_COLOR is set.
func ConfigureColor(mode string) {
	switch mode {
	case "always":
		SetNoColor(false)
	case "never":
		SetNoColor(true)
	default:
		SetNoColor(!stdoutIsTerminal() || os.Getenv("NO_COLOR") != "")
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
