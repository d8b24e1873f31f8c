package capacity

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/tui/components"
	"github.com/capledger/capledger/internal/util"
)

// ResourcesView lists the resources of the model.
type ResourcesView struct {
	service   Service
	styles    Styles
	table     *components.Table
	resources []capacity.ResourceSummary
	events    []capacity.EventView
	err       error
	loading   bool
}

// NewResourcesView creates a new resource list view.
func NewResourcesView(service Service, styles Styles) *ResourcesView {
	columns := []components.Column{
		{Title: "Resource", Width: 20},
		{Title: "Kind", Width: 8},
		{Title: "Maximum", Width: 9, Align: lipgloss.Right},
		{Title: "Calendar", Width: 16},
		{Title: "Location", Width: 12},
		{Title: "Setup", Width: 10},
		{Title: "Loads", Width: 5, Align: lipgloss.Right},
		{Title: "Events", Width: 6, Align: lipgloss.Right},
	}

	table := components.NewTable(columns)
	table.SetVisibleRows(20)
	table.Focus(true)

	return &ResourcesView{
		service: service,
		styles:  styles,
		table:   table,
	}
}

// Table exposes the table for styling.
func (v *ResourcesView) Table() *components.Table {
	return v.table
}

// Load fetches the resources.
func (v *ResourcesView) Load(ctx context.Context) error {
	v.loading = true
	v.err = nil

	resources, err := v.service.Resources(ctx)
	v.loading = false
	if err != nil {
		v.err = err
		return err
	}
	v.resources = resources

	rows := make([][]string, len(resources))
	for i, r := range resources {
		maximum := fmt.Sprintf("%g", r.Maximum)
		if r.MaximumCalendar != "" || r.Kind == "buckets" {
			maximum = "-"
		}
		rows[i] = []string{
			r.Name,
			r.Kind,
			maximum,
			dash(r.MaximumCalendar),
			dash(r.Location),
			dash(r.Setup),
			fmt.Sprintf("%d", r.Loads),
			fmt.Sprintf("%d", r.Events),
		}
	}
	v.table.SetRows(rows)
	return nil
}

// LoadEvents fetches the timeline of the selected resource.
func (v *ResourcesView) LoadEvents(ctx context.Context) error {
	sel := v.Selected()
	if sel == nil {
		v.events = nil
		return nil
	}
	events, err := v.service.Events(ctx, sel.Name)
	if err != nil {
		v.err = err
		return err
	}
	v.events = events
	return nil
}

// SetVisibleRows sizes the table to the available height.
func (v *ResourcesView) SetVisibleRows(n int) {
	v.table.SetVisibleRows(n)
}

// MoveUp moves the selection up.
func (v *ResourcesView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *ResourcesView) MoveDown() {
	v.table.MoveDown()
}

// Selected returns the currently selected resource.
func (v *ResourcesView) Selected() *capacity.ResourceSummary {
	idx := v.table.Selected()
	if idx >= 0 && idx < len(v.resources) {
		return &v.resources[idx]
	}
	return nil
}

// Render renders the resource list.
func (v *ResourcesView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("═══ RESOURCES ═══"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.styles.Label.Render("Loading..."))
		b.WriteString("\n")
	case v.table.Empty():
		b.WriteString(v.styles.Label.Render("No resources found."))
		b.WriteString("\n")
	default:
		b.WriteString(v.table.Render())
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Up/Down:Select  Enter:Timeline  p:Plan  d:Delete plans  D:Incl. locked  X:Delete resource"))
	return b.String()
}

// RenderDetail renders the selected resource with its timeline.
func (v *ResourcesView) RenderDetail(height int) string {
	r := v.Selected()
	if r == nil {
		return v.styles.Label.Render("No resource selected")
	}

	label := v.styles.Label.Width(18)
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("═══ " + strings.ToUpper(r.Name) + " ═══"))
	b.WriteString("\n\n")
	b.WriteString(label.Render("Kind:") + " " + v.styles.Value.Render(r.Kind) + "\n")
	b.WriteString(label.Render("Maximum:") + " " + v.styles.Value.Render(fmt.Sprintf("%g", r.Maximum)) + "\n")
	b.WriteString(label.Render("Capacity calendar:") + " " + v.styles.Value.Render(dash(r.MaximumCalendar)) + "\n")
	b.WriteString(label.Render("Availability:") + " " + v.styles.Value.Render(dash(r.Available)) + "\n")
	b.WriteString(label.Render("Setup matrix:") + " " + v.styles.Value.Render(dash(r.SetupMatrix)) + "\n")
	b.WriteString(label.Render("Initial setup:") + " " + v.styles.Value.Render(dash(r.Setup)) + "\n")
	b.WriteString("\n")

	b.WriteString(v.styles.Title.Render("TIMELINE"))
	b.WriteString("\n")
	limit := max(height-12, 3)
	for i, e := range v.events {
		if i == limit {
			b.WriteString(v.styles.Label.Render(fmt.Sprintf("  ... %d more events", len(v.events)-limit)))
			b.WriteString("\n")
			break
		}
		b.WriteString("  " + formatEvent(e) + "\n")
	}
	if len(v.events) == 0 {
		b.WriteString(v.styles.Label.Render("  No events."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Esc:Back  p:Plan"))
	return b.String()
}

func formatEvent(e capacity.EventView) string {
	date := util.FormatDateTime(e.Date)
	if e.OperationPlan == "" {
		return fmt.Sprintf("%-19s  %-14s  value %-8g onhand %g", date, e.Kind, e.Value, e.Onhand)
	}
	side := "end"
	if e.IsStart {
		side = "start"
	}
	return fmt.Sprintf("%-19s  %-14s  %+-8g onhand %-6g %s %s (%s)", date, e.Kind, e.Quantity, e.Onhand, e.Operation, e.OperationPlan, side)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
