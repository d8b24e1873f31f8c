// Package tui provides the terminal user interface for browsing capacity
// reports.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/tui/components"
)

// Theme contains all style definitions for the TUI.
type Theme struct {
	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color
	ErrorColor     lipgloss.Color
	WarningColor   lipgloss.Color
	SuccessColor   lipgloss.Color
	MutedColor     lipgloss.Color

	Base lipgloss.Style

	// Color styles (for direct use)
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Accent    lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style

	// Component styles
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Box       lipgloss.Style
	Selected  lipgloss.Style
	Alert     lipgloss.Style
	AlertWarn lipgloss.Style
	AlertCrit lipgloss.Style

	// Table styles
	TableHeader lipgloss.Style
	TableRow    lipgloss.Style
	TableRowAlt lipgloss.Style
	TableMarked lipgloss.Style

	StatusDivider lipgloss.Style
}

// NewTheme creates a new theme based on the color scheme configuration.
func NewTheme(scheme config.ColorScheme) *Theme {
	switch scheme {
	case config.ColorSchemeMonochrome:
		return newMonochromeTheme()
	case config.ColorSchemeSolarized:
		return newSolarizedTheme()
	default:
		return newDefaultTheme()
	}
}

func newDefaultTheme() *Theme {
	return buildTheme(
		lipgloss.Color("#7DCFFF"), // primary
		lipgloss.Color("#7AA2F7"), // secondary
		lipgloss.Color("#BB9AF7"), // accent
		lipgloss.Color("#565F89"), // muted
		lipgloss.Color("#F7768E"), // error
		lipgloss.Color("#E0AF68"), // warning
		lipgloss.Color("#9ECE6A"), // success
	)
}

func newMonochromeTheme() *Theme {
	return buildTheme(
		lipgloss.Color("#FFFFFF"),
		lipgloss.Color("#AAAAAA"),
		lipgloss.Color("#FFFFFF"),
		lipgloss.Color("#666666"),
		lipgloss.Color("#FFFFFF"),
		lipgloss.Color("#DDDDDD"),
		lipgloss.Color("#FFFFFF"),
	)
}

func newSolarizedTheme() *Theme {
	return buildTheme(
		lipgloss.Color("#268BD2"),
		lipgloss.Color("#2AA198"),
		lipgloss.Color("#6C71C4"),
		lipgloss.Color("#586E75"),
		lipgloss.Color("#DC322F"),
		lipgloss.Color("#B58900"),
		lipgloss.Color("#859900"),
	)
}

func buildTheme(primary, secondary, accent, muted, errorColor, warningColor, successColor lipgloss.Color) *Theme {
	t := &Theme{
		PrimaryColor:   primary,
		SecondaryColor: secondary,
		AccentColor:    accent,
		MutedColor:     muted,
		ErrorColor:     errorColor,
		WarningColor:   warningColor,
		SuccessColor:   successColor,
	}

	t.Base = lipgloss.NewStyle().Foreground(primary)

	t.Primary = lipgloss.NewStyle().Foreground(primary)
	t.Secondary = lipgloss.NewStyle().Foreground(secondary)
	t.Accent = lipgloss.NewStyle().Foreground(accent)
	t.Error = lipgloss.NewStyle().Foreground(errorColor)
	t.Warning = lipgloss.NewStyle().Foreground(warningColor)
	t.Success = lipgloss.NewStyle().Foreground(successColor)
	t.Muted = lipgloss.NewStyle().Foreground(muted)

	t.Header = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true).
		Padding(0, 1)

	t.Footer = lipgloss.NewStyle().
		Foreground(secondary).
		Padding(0, 1)

	t.Title = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true).
		Padding(0, 1)

	t.Subtitle = lipgloss.NewStyle().
		Foreground(primary).
		Padding(0, 1)

	t.Label = lipgloss.NewStyle().Foreground(secondary)
	t.Value = lipgloss.NewStyle().Foreground(primary)

	t.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondary).
		Padding(0, 1)

	t.Selected = lipgloss.NewStyle().
		Reverse(true).
		Bold(true)

	t.Alert = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true)

	t.AlertWarn = lipgloss.NewStyle().
		Foreground(warningColor).
		Bold(true)

	t.AlertCrit = lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	t.TableHeader = lipgloss.NewStyle().
		Foreground(accent).
		Bold(true)
	t.TableRow = lipgloss.NewStyle().Foreground(primary)
	t.TableRowAlt = lipgloss.NewStyle().Foreground(secondary)
	t.TableMarked = lipgloss.NewStyle().Foreground(errorColor).Bold(true)

	t.StatusDivider = lipgloss.NewStyle().
		Foreground(muted).
		SetString(" │ ")

	return t
}

// StyleTable applies the theme to a table.
func (t *Theme) StyleTable(table *components.Table) {
	table.SetStyles(t.TableHeader, t.TableRow, t.TableRowAlt, t.Selected, t.TableMarked, t.Muted)
}

// Box characters for drawing
const (
	BoxHorizontal       = "─"
	BoxDoubleHorizontal = "═"
)

// DrawHorizontalLine draws a horizontal line.
func (t *Theme) DrawHorizontalLine(width int) string {
	return t.Secondary.Render(strings.Repeat(BoxHorizontal, max(width, 0)))
}

// DrawDoubleLine draws a double horizontal line.
func (t *Theme) DrawDoubleLine(width int) string {
	return t.Primary.Render(strings.Repeat(BoxDoubleHorizontal, max(width, 0)))
}
