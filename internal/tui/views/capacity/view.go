// Package capacity provides the TUI views for resources and their
// capacity reports.
package capacity

import (
	"context"

	"github.com/charmbracelet/lipgloss"

	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/tui/components"
)

// Service is the part of the capacity service the views read from.
type Service interface {
	Resources(ctx context.Context) ([]capacity.ResourceSummary, error)
	Events(ctx context.Context, name string) ([]capacity.EventView, error)
	ResourcePlan(ctx context.Context, name string, req capacity.ReportRequest) ([]models.ResourcePlanRow, error)
}

// Styles holds the styles the views render with.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Error lipgloss.Style
	Help  lipgloss.Style
	Bar   components.BarStyles
}

// DefaultStyles returns unstyled defaults, used in tests.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true),
		Label: lipgloss.NewStyle(),
		Value: lipgloss.NewStyle(),
		Error: lipgloss.NewStyle(),
		Help:  lipgloss.NewStyle().Faint(true),
	}
}
