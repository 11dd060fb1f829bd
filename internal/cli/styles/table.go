package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows under a header as aligned columns. Column widths track
// the widest cell; no wrapping is attempted.
type Table struct {
	theme   *Theme
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(theme *Theme, headers ...string) *Table {
	return &Table{theme: theme, headers: headers}
}

// AddRow appends one row. Short rows are padded with empty cells.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Render produces the final string, or an empty-state hint when no rows
// were added.
func (t *Table) Render() string {
	if len(t.rows) == 0 {
		return t.theme.Subtle.Render("(none)")
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	for i, h := range t.headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(t.theme.Subtitle.Render(pad(h, widths[i])))
	}
	b.WriteString("\n")
	for i := range t.headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(t.theme.Subtle.Render(strings.Repeat("-", widths[i])))
	}
	for _, row := range t.rows {
		b.WriteString("\n")
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(t.theme.Normal.Render(pad(cell, widths[i])))
		}
	}
	return b.String()
}

// KeyValues renders label/value pairs with aligned labels.
func KeyValues(theme *Theme, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(theme.Subtle.Render(pad(p[0]+":", width+1)))
		b.WriteString(" ")
		b.WriteString(theme.Normal.Render(p[1]))
	}
	return b.String()
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
