package notes

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MaxCellWidth caps the padding of a column.
const MaxCellWidth = 100

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Table renders a markdown table. Cells are escaped and padded to the column
// width measured in terminal cells. align may be shorter than headers;
// missing entries are left aligned. No headers yields "".
func Table(headers []string, rows [][]string, align []Align) string {
	cols := len(headers)
	if cols == 0 {
		return ""
	}

	widths := make([]int, cols)
	cells := make([][]string, 0, len(rows)+1)
	add := func(row []string) {
		out := make([]string, cols)
		for i := range out {
			if i < len(row) {
				out[i] = escapeCell(row[i])
			}
			widths[i] = min(MaxCellWidth, max(widths[i], lipgloss.Width(out[i]), 3))
		}
		cells = append(cells, out)
	}
	add(headers)
	for _, row := range rows {
		add(row)
	}

	alignOf := func(i int) Align {
		if i < len(align) {
			return align[i]
		}
		return AlignLeft
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i, cell := range row {
			b.WriteString(" " + pad(cell, widths[i], alignOf(i)) + " |")
		}
		b.WriteString("\n")
	}

	writeRow(cells[0])
	b.WriteString("|")
	for i, w := range widths {
		b.WriteString(" " + rule(w, alignOf(i)) + " |")
	}
	b.WriteString("\n")
	for _, row := range cells[1:] {
		writeRow(row)
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func pad(s string, width int, a Align) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	switch a {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

func rule(width int, a Align) string {
	switch a {
	case AlignCenter:
		return ":" + strings.Repeat("-", width-2) + ":"
	case AlignRight:
		return strings.Repeat("-", width-1) + ":"
	default:
		return strings.Repeat("-", width)
	}
}
