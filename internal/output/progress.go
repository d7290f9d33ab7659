package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ScoreBar renders a visual bar for a 0-100 score.
// Example: "████████░░ 80/100"
func ScoreBar(score int, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := min(max(score*width/100, 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %s", ScoreStyle(score).Render(bar), StyleMuted.Render(fmt.Sprintf("%d/100", score)))
}

// ScoreStyle picks the style for a 0-100 score.
func ScoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return StyleSuccess
	case score >= 40:
		return StyleWarning
	}
	return StyleError
}

// TrendArrowPercent returns a styled trend indicator for a percent change.
// Nil renders a dash.
func TrendArrowPercent(delta *int) string {
	if delta == nil || *delta == 0 {
		return StyleMuted.Render("─")
	}
	if *delta > 0 {
		return StyleSuccess.Render(fmt.Sprintf("▲ +%d%%", *delta))
	}
	return StyleError.Render(fmt.Sprintf("▼ %d%%", *delta))
}

// Section returns a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}
