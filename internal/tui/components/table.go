// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
	Align lipgloss.Position
}

// Table is a scrolling table with a selected row. Rows can be marked,
// for instance to flag overloaded buckets.
type Table struct {
	columns     []Column
	rows        [][]string
	marked      map[int]bool
	selected    int
	offset      int
	visibleRows int
	focused     bool

	headerStyle   lipgloss.Style
	rowStyle      lipgloss.Style
	rowAltStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	markedStyle   lipgloss.Style
	borderStyle   lipgloss.Style

	footer string
}

// NewTable creates a new table with the given columns.
func NewTable(columns []Column) *Table {
	return &Table{
		columns:       columns,
		rows:          [][]string{},
		marked:        map[int]bool{},
		visibleRows:   10,
		headerStyle:   lipgloss.NewStyle().Bold(true),
		rowStyle:      lipgloss.NewStyle(),
		rowAltStyle:   lipgloss.NewStyle().Faint(true),
		selectedStyle: lipgloss.NewStyle().Reverse(true),
		markedStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")),
		borderStyle:   lipgloss.NewStyle().Faint(true),
	}
}

// SetRows replaces the table data and clears the marks. The selection is
// kept when still in range.
func (t *Table) SetRows(rows [][]string) {
	t.rows = rows
	t.marked = map[int]bool{}
	if t.selected >= len(rows) {
		t.selected = max(len(rows)-1, 0)
	}
	if t.offset > t.selected {
		t.offset = t.selected
	}
}

// Mark flags a row for highlighting.
func (t *Table) Mark(row int) {
	t.marked[row] = true
}

// IsMarked reports whether a row is flagged.
func (t *Table) IsMarked(row int) bool {
	return t.marked[row]
}

// SetFooter sets a line shown under the rows, such as paging info.
func (t *Table) SetFooter(s string) {
	t.footer = s
}

// SetVisibleRows sets the number of visible rows.
func (t *Table) SetVisibleRows(n int) {
	if n < 1 {
		n = 1
	}
	t.visibleRows = n
}

// SetStyles sets the table styles.
func (t *Table) SetStyles(header, row, rowAlt, selected, marked, border lipgloss.Style) {
	t.headerStyle = header
	t.rowStyle = row
	t.rowAltStyle = rowAlt
	t.selectedStyle = selected
	t.markedStyle = marked
	t.borderStyle = border
}

// Focus sets the table focus state. Only a focused table shows its
// selection.
func (t *Table) Focus(focused bool) {
	t.focused = focused
}

// Selected returns the currently selected row index.
func (t *Table) Selected() int {
	return t.selected
}

// SelectedRow returns the currently selected row data.
func (t *Table) SelectedRow() []string {
	if t.selected >= 0 && t.selected < len(t.rows) {
		return t.rows[t.selected]
	}
	return nil
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() {
	if t.selected > 0 {
		t.selected--
		if t.selected < t.offset {
			t.offset = t.selected
		}
	}
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() {
	if t.selected < len(t.rows)-1 {
		t.selected++
		if t.selected >= t.offset+t.visibleRows {
			t.offset = t.selected - t.visibleRows + 1
		}
	}
}

// PageUp moves up one page.
func (t *Table) PageUp() {
	t.selected -= t.visibleRows
	if t.selected < 0 {
		t.selected = 0
	}
	if t.selected < t.offset {
		t.offset = t.selected
	}
}

// PageDown moves down one page.
func (t *Table) PageDown() {
	t.selected += t.visibleRows
	if t.selected >= len(t.rows) {
		t.selected = len(t.rows) - 1
	}
	if t.selected < 0 {
		t.selected = 0
	}
	if t.selected >= t.offset+t.visibleRows {
		t.offset = t.selected - t.visibleRows + 1
	}
}

// GoToTop goes to the first row.
func (t *Table) GoToTop() {
	t.selected = 0
	t.offset = 0
}

// GoToBottom goes to the last row.
func (t *Table) GoToBottom() {
	if len(t.rows) > 0 {
		t.selected = len(t.rows) - 1
		t.offset = max(t.selected-t.visibleRows+1, 0)
	}
}

// Render renders the table.
func (t *Table) Render() string {
	var b strings.Builder

	totalWidth := 0
	for _, col := range t.columns {
		totalWidth += col.Width + 3
	}

	b.WriteString(t.renderRow(t.headers(), t.headerStyle))
	b.WriteString("\n")
	b.WriteString(t.borderStyle.Render(strings.Repeat("-", totalWidth)))
	b.WriteString("\n")

	end := min(t.offset+t.visibleRows, len(t.rows))
	for i := t.offset; i < end; i++ {
		var style lipgloss.Style
		switch {
		case i == t.selected && t.focused:
			style = t.selectedStyle
		case t.marked[i]:
			style = t.markedStyle
		case (i-t.offset)%2 == 1:
			style = t.rowAltStyle
		default:
			style = t.rowStyle
		}
		b.WriteString(t.renderRow(t.rows[i], style))
		b.WriteString("\n")
	}

	if t.footer != "" {
		b.WriteString(t.borderStyle.Render(strings.Repeat("-", totalWidth)))
		b.WriteString("\n")
		b.WriteString(t.borderStyle.Render(t.footer))
	} else if len(t.rows) > t.visibleRows {
		b.WriteString(t.borderStyle.Render(fmt.Sprintf("rows %d-%d of %d", t.offset+1, end, len(t.rows))))
	}

	return b.String()
}

func (t *Table) headers() []string {
	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = col.Title
	}
	return headers
}

func (t *Table) renderRow(cells []string, style lipgloss.Style) string {
	parts := make([]string, len(t.columns))
	for i, col := range t.columns {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}

		runes := []rune(cell)
		if len(runes) > col.Width && col.Width > 0 {
			cell = string(runes[:col.Width-1]) + "…"
		}

		pad := col.Width - len([]rune(cell))
		switch col.Align {
		case lipgloss.Right:
			cell = strings.Repeat(" ", max(pad, 0)) + cell
		case lipgloss.Center:
			left := max(pad, 0) / 2
			cell = strings.Repeat(" ", left) + cell + strings.Repeat(" ", max(pad, 0)-left)
		default:
			cell += strings.Repeat(" ", max(pad, 0))
		}
		parts[i] = style.Render(cell)
	}
	return " " + strings.Join(parts, " | ") + " "
}

// Empty returns true if the table has no rows.
func (t *Table) Empty() bool {
	return len(t.rows) == 0
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}
