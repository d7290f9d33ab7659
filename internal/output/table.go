package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column is one table column's layout.
type column struct {
	header string
	width  int
	right  bool
}

// Table renders rows under bold headers with a muted rule. Numeric columns
// can be right-aligned.
type Table struct {
	cols []column
	rows [][]string
}

// NewTable creates a new table with the given column headers.
func NewTable(headers ...string) *Table {
	cols := make([]column, len(headers))
	for i, h := range headers {
		cols[i] = column{header: h, width: visualLen(h)}
	}
	return &Table{cols: cols}
}

// AlignRight right-aligns the given column indexes.
func (t *Table) AlignRight(idx ...int) *Table {
	for _, i := range idx {
		if i >= 0 && i < len(t.cols) {
			t.cols[i].right = true
		}
	}
	return t
}

// AddRow adds a row. Missing values render empty and extra values are
// dropped.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.cols))
	for i := range t.cols {
		if i < len(values) {
			row[i] = values[i]
		}
		if n := visualLen(row[i]); n > t.cols[i].width {
			t.cols[i].width = n
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the formatted table as a string.
func (t *Table) Render() string {
	if len(t.cols) == 0 {
		return ""
	}

	var sb strings.Builder
	line := func(cell func(i int, c column) string) {
		for i, c := range t.cols {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell(i, c))
		}
		sb.WriteString("\n")
	}

	line(func(_ int, c column) string { return StyleHeader.Render(align(c.header, c.width, c.right)) })
	line(func(_ int, c column) string { return StyleMuted.Render(strings.Repeat("─", c.width)) })
	for _, row := range t.rows {
		line(func(i int, c column) string { return align(row[i], c.width, c.right) })
	}
	return sb.String()
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return t.Render()
}

// Print writes the table to stdout.
func (t *Table) Print() {
	fmt.Print(t.Render())
}

func align(s string, width int, right bool) string {
	if right {
		return padLeft(s, width)
	}
	return pad(s, width)
}

// pad right-pads a string to the given visible width.
func pad(s string, width int) string {
	n := visualLen(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func padLeft(s string, width int) string {
	n := visualLen(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

// visualLen is the printed width of s, ignoring ANSI escape sequences.
func visualLen(s string) int {
	return lipgloss.Width(s)
}
