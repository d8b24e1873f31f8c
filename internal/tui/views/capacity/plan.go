package capacity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/capledger/capledger/internal/buckets"
	"github.com/capledger/capledger/internal/models"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/tui/components"
)

// PlanView shows the capacity report of one resource.
type PlanView struct {
	service  Service
	styles   Styles
	table    *components.Table
	resource string
	req      capacity.ReportRequest
	rows     []models.ResourcePlanRow
	err      error
}

// NewPlanView creates a capacity report view over the given request.
func NewPlanView(service Service, styles Styles, req capacity.ReportRequest) *PlanView {
	columns := []components.Column{
		{Title: "Bucket", Width: 16},
		{Title: "Available", Width: 10, Align: lipgloss.Right},
		{Title: "Unavail.", Width: 9, Align: lipgloss.Right},
		{Title: "Setup", Width: 8, Align: lipgloss.Right},
		{Title: "Load", Width: 10, Align: lipgloss.Right},
		{Title: "Free", Width: 10, Align: lipgloss.Right},
		{Title: "Utilization", Width: 22},
	}

	table := components.NewTable(columns)
	table.SetVisibleRows(20)
	table.Focus(true)

	return &PlanView{
		service: service,
		styles:  styles,
		table:   table,
		req:     req,
	}
}

// Table exposes the table for styling.
func (v *PlanView) Table() *components.Table {
	return v.table
}

// SetResource selects the resource to report on.
func (v *PlanView) SetResource(name string) {
	if name != v.resource {
		v.table.GoToTop()
	}
	v.resource = name
}

// Resource returns the resource reported on.
func (v *PlanView) Resource() string {
	return v.resource
}

// Request returns the current report request.
func (v *PlanView) Request() capacity.ReportRequest {
	return v.req
}

// CycleBucket switches to the next bucket type.
func (v *PlanView) CycleBucket() {
	types := buckets.Types()
	i := slices.Index(types, v.req.Bucket)
	v.req.Bucket = types[(i+1)%len(types)]
	v.table.GoToTop()
}

// Shift moves the horizon by its own length, backwards when n is negative.
func (v *PlanView) Shift(n int) {
	d := v.req.End.Sub(v.req.Start)
	v.req.Start = v.req.Start.Add(time.Duration(n) * d)
	v.req.End = v.req.End.Add(time.Duration(n) * d)
}

// Load computes the report.
func (v *PlanView) Load(ctx context.Context) error {
	v.err = nil
	v.rows = nil
	if v.resource == "" {
		v.table.SetRows(nil)
		return nil
	}

	rows, err := v.service.ResourcePlan(ctx, v.resource, v.req)
	if err != nil {
		v.err = err
		v.table.SetRows(nil)
		return err
	}
	v.rows = rows

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			buckets.Label(v.req.Bucket, r.Start),
			fmt.Sprintf("%.2f", r.Available),
			fmt.Sprintf("%.2f", r.Unavailable),
			fmt.Sprintf("%.2f", r.Setup),
			fmt.Sprintf("%.2f", r.Load),
			fmt.Sprintf("%.2f", r.Free),
			components.Bar(r.Load+r.Setup, r.Available, 20, v.styles.Bar),
		}
	}
	v.table.SetRows(cells)
	for i, r := range rows {
		if r.Overloaded() {
			v.table.Mark(i)
		}
	}
	v.table.SetFooter(v.summary())
	return nil
}

// Rows returns the rows of the last report.
func (v *PlanView) Rows() []models.ResourcePlanRow {
	return v.rows
}

func (v *PlanView) summary() string {
	var avail, load, setup float64
	overloaded := 0
	for _, r := range v.rows {
		avail += r.Available
		load += r.Load
		setup += r.Setup
		if r.Overloaded() {
			overloaded++
		}
	}
	s := fmt.Sprintf("%d buckets | available %.1f | load %.1f | setup %.1f", len(v.rows), avail, load, setup)
	if overloaded > 0 {
		s += fmt.Sprintf(" | %d overloaded", overloaded)
	}
	return s
}

// SetVisibleRows sizes the table to the available height.
func (v *PlanView) SetVisibleRows(n int) {
	v.table.SetVisibleRows(n)
}

// MoveUp moves the selection up.
func (v *PlanView) MoveUp() {
	v.table.MoveUp()
}

// MoveDown moves the selection down.
func (v *PlanView) MoveDown() {
	v.table.MoveDown()
}

// Render renders the report.
func (v *PlanView) Render(width, height int) string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("═══ CAPACITY PLAN ═══"))
	b.WriteString("\n\n")

	if v.resource == "" {
		b.WriteString(v.styles.Label.Render("No resource selected. Pick one in the resource list (F3)."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(v.styles.Label.Render("Resource: ") + v.styles.Value.Render(v.resource))
	b.WriteString(v.styles.Label.Render("   Bucket: ") + v.styles.Value.Render(string(v.req.Bucket)))
	b.WriteString(v.styles.Label.Render("   Horizon: ") + v.styles.Value.Render(
		v.req.Start.Format("2006-01-02")+" - "+v.req.End.Format("2006-01-02")))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case v.table.Empty():
		b.WriteString(v.styles.Label.Render("No buckets in horizon."))
		b.WriteString("\n")
	default:
		b.WriteString(v.table.Render())
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("Up/Down:Scroll  b:Bucket  [/]:Shift horizon  x:Export  Esc:Back"))
	return b.String()
}
