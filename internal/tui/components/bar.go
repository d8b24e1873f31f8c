package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BarStyles colors a utilization bar by how full it is.
type BarStyles struct {
	Low  lipgloss.Style
	High lipgloss.Style
	Over lipgloss.Style
}

// Bar renders value/limit as a text bar of the given width. Ratios above
// 0.85 use the High style and ratios above 1 the Over style.
func Bar(value, limit float64, width int, styles BarStyles) string {
	ratio := 0.0
	switch {
	case limit > 0:
		ratio = value / limit
	case value > 0:
		ratio = 2
	}

	barWidth := max(width-2, 4)
	filled := int(min(max(ratio, 0), 1) * float64(barWidth))
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

	switch {
	case ratio > 1:
		return styles.Over.Render(bar)
	case ratio > 0.85:
		return styles.High.Render(bar)
	default:
		return styles.Low.Render(bar)
	}
}
