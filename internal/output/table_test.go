package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderLines(t *testing.T, tbl *Table) []string {
	t.Helper()
	SetNoColor(true)
	t.Cleanup(func() { SetNoColor(false) })
	return strings.Split(strings.TrimRight(tbl.Render(), "\n"), "\n")
}

func TestVisualLen(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain", "hello", 5},
		{"empty", "", 0},
		{"bold", "\x1b[1mhello\x1b[0m", 5},
		{"color", "\x1b[31mred\x1b[0m", 3},
		{"nested sequences", "\x1b[1m\x1b[34mblue bold\x1b[0m", 9},
		{"arrow", "good → better", 13},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, visualLen(tc.input))
		})
	}
}

func TestPad(t *testing.T) {
	assert.Equal(t, "hi   ", pad("hi", 5))
	assert.Equal(t, "   hi", padLeft("hi", 5))
	assert.Equal(t, "toolong", pad("toolong", 3), "no truncation")
	assert.Equal(t, "\x1b[31m92\x1b[0m ", pad("\x1b[31m92\x1b[0m", 3), "escape codes take no width")
}

func TestTable_Render(t *testing.T) {
	tbl := NewTable("Name", "Score")
	tbl.AddRow("Alice", "95")
	tbl.AddRow("Bob", "87")
	assert.Equal(t, 2, tbl.Len())

	lines := renderLines(t, tbl)
	require.Len(t, lines, 4, "header, rule and two rows")
	assert.Equal(t, "Name   Score", lines[0])
	assert.Equal(t, "─────  ─────", lines[1])
	assert.Equal(t, "Alice  95   ", lines[2])
	assert.Equal(t, "Bob    87   ", lines[3])
}

func TestTable_AlignRight(t *testing.T) {
	tbl := NewTable("Day", "Best").AlignRight(1, 7)
	tbl.AddRow("Mon", "9")
	tbl.AddRow("Tue", "100")

	lines := renderLines(t, tbl)
	assert.Equal(t, "Mon     9", lines[2])
	assert.Equal(t, "Tue   100", lines[3])
}

func TestTable_RaggedRows(t *testing.T) {
	tbl := NewTable("A", "B")
	tbl.AddRow("only")
	tbl.AddRow("x", "y", "dropped")

	lines := renderLines(t, tbl)
	assert.Equal(t, "only   ", lines[2])
	assert.Equal(t, "x     y", lines[3])
	assert.NotContains(t, tbl.Render(), "dropped")
}

func TestTable_Empty(t *testing.T) {
	assert.Empty(t, NewTable().Render())
	assert.Len(t, renderLines(t, NewTable("Only")), 2)
}

func TestTable_String(t *testing.T) {
	tbl := NewTable("Col1")
	tbl.AddRow("Val1")
	assert.Equal(t, tbl.Render(), tbl.String())
}

func TestSetNoColor(t *testing.T) {
	SetNoColor(true)
	assert.NotContains(t, StyleHeader.Render("test"), "\x1b[")
	assert.True(t, IsNoColor())

	SetNoColor(false)
	assert.False(t, IsNoColor())
}
