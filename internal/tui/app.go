package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/capledger/capledger/internal/config"
	"github.com/capledger/capledger/internal/database"
	"github.com/capledger/capledger/internal/planning"
	"github.com/capledger/capledger/internal/services/capacity"
	"github.com/capledger/capledger/internal/tui/components"
	capviews "github.com/capledger/capledger/internal/tui/views/capacity"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// MaxContentWidth is the maximum width for content display
const MaxContentWidth = 120

// chromeLines is the height taken by header, alert bar and footer.
const chromeLines = 6

// Module represents a view module in the application.
type Module string

const (
	ModuleDashboard Module = "dashboard"
	ModuleResources Module = "resources"
	ModulePlan      Module = "plan"
	ModuleHelp      Module = "help"
)

// App is the main Bubble Tea application model.
type App struct {
	// Dependencies
	db     *database.DB
	config *config.Config
	svc    *capacity.Service

	// Views
	resourcesView *capviews.ResourcesView
	planView      *capviews.PlanView

	// UI state
	theme       *Theme
	keys        KeyMap
	width       int
	height      int
	ready       bool
	quitting    bool
	showConfirm bool
	confirm     confirmAction

	// Current view
	currentModule  Module
	previousModule Module
	showDetail     bool // Show the timeline of the selected resource

	// Alerts
	alerts []Alert

	// Dashboard figures
	summaries  []capacity.ResourceSummary
	overloaded map[string]int
	lastExport *capacity.ExportResult
}

// Alert represents a status message.
type Alert struct {
	Level   AlertLevel
	Message string
	Time    time.Time
}

// AlertLevel indicates the severity of an alert.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertCritical
)

// confirmAction is the action a confirmation dialog guards.
type confirmAction struct {
	kind     confirmKind
	resource string
}

type confirmKind int

const (
	confirmQuit confirmKind = iota
	confirmDeletePlans
	confirmDeleteLocked
	confirmDeleteResource
)

// New creates a new App instance.
func New(db *database.DB, cfg *config.Config, svc *capacity.Service) *App {
	theme := NewTheme(cfg.Display.ColorScheme)
	styles := viewStyles(theme)

	req, err := svc.DefaultRequest()
	app := &App{
		db:            db,
		config:        cfg,
		svc:           svc,
		resourcesView: capviews.NewResourcesView(svc, styles),
		planView:      capviews.NewPlanView(svc, styles, req),
		theme:         theme,
		keys:          DefaultKeyMap(),
		currentModule: ModuleDashboard,
		alerts:        []Alert{},
		overloaded:    map[string]int{},
	}
	theme.StyleTable(app.resourcesView.Table())
	theme.StyleTable(app.planView.Table())
	if err != nil {
		app.AddAlert(AlertWarning, "Invalid planning horizon: "+err.Error())
	}
	return app
}

func viewStyles(t *Theme) capviews.Styles {
	return capviews.Styles{
		Title: t.Title,
		Label: t.Label,
		Value: t.Value,
		Error: t.Error,
		Help:  t.Muted,
		Bar: components.BarStyles{
			Low:  t.Success,
			High: t.Warning,
			Over: t.Error,
		},
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		a.loadResources(),
		a.loadDashboard(),
	)
}

type resourcesLoadedMsg struct {
	err error
}

type eventsLoadedMsg struct {
	err error
}

type planLoadedMsg struct {
	err error
}

type dashboardMsg struct {
	summaries  []capacity.ResourceSummary
	overloaded map[string]int
	err        error
}

type modelReloadedMsg struct {
	err error
}

type exportDoneMsg struct {
	result *capacity.ExportResult
	err    error
}

type deleteDoneMsg struct {
	action confirmAction
	count  int
	err    error
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.updateViewDimensions()
		return a, nil

	case resourcesLoadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load resources: "+msg.err.Error())
		}
		return a, nil

	case eventsLoadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load timeline: "+msg.err.Error())
		}
		return a, nil

	case planLoadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to compute plan: "+msg.err.Error())
		}
		return a, nil

	case dashboardMsg:
		if msg.err != nil {
			a.AddAlert(AlertWarning, "Failed to load dashboard: "+msg.err.Error())
			return a, nil
		}
		a.summaries = msg.summaries
		a.overloaded = msg.overloaded
		return a, nil

	case modelReloadedMsg:
		if msg.err != nil {
			a.AddAlert(AlertCritical, "Failed to reload model: "+msg.err.Error())
			return a, nil
		}
		a.AddAlert(AlertInfo, "Model reloaded")
		return a, a.refresh()

	case exportDoneMsg:
		if msg.err != nil {
			a.AddAlert(AlertCritical, "Export failed: "+msg.err.Error())
			return a, nil
		}
		a.lastExport = msg.result
		a.AddAlert(AlertInfo, fmt.Sprintf("Exported %d rows for %d resources", msg.result.Rows, msg.result.Resources))
		return a, a.loadResources()

	case deleteDoneMsg:
		if msg.err != nil {
			a.AddAlert(AlertCritical, "Delete failed: "+msg.err.Error())
			return a, a.refresh()
		}
		if msg.action.kind == confirmDeleteResource {
			a.AddAlert(AlertInfo, "Resource "+msg.action.resource+" deleted")
			a.showDetail = false
			if a.planView.Resource() == msg.action.resource {
				a.planView.SetResource("")
			}
		} else {
			a.AddAlert(AlertInfo, fmt.Sprintf("Deleted %d operation plans of %s", msg.count, msg.action.resource))
		}
		return a, a.refresh()
	}

	return a, nil
}

// updateViewDimensions sizes the tables to the terminal.
func (a *App) updateViewDimensions() {
	rows := max(ContentHeight(a.height, chromeLines)-8, 5)
	a.resourcesView.SetVisibleRows(rows)
	a.planView.SetVisibleRows(rows)
}

// handleKeyPress processes key press events.
func (a *App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle confirmation first (modal takes priority)
	if a.showConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			a.showConfirm = false
			if a.confirm.kind == confirmQuit {
				a.quitting = true
				return a, tea.Quit
			}
			return a, a.runDelete(a.confirm)
		case "n", "N", "esc":
			a.showConfirm = false
			return a, nil
		}
		return a, nil
	}

	if a.keys.IsQuit(msg) {
		a.askConfirm(confirmAction{kind: confirmQuit})
		return a, nil
	}

	// Function key navigation (always available)
	if a.keys.IsFunctionKey(msg) {
		switch a.keys.GetFunctionKeyModule(msg) {
		case ModuleHelp:
			a.openHelp()
		case ModuleDashboard:
			a.currentModule = ModuleDashboard
			a.showDetail = false
			return a, a.loadDashboard()
		case ModuleResources:
			a.currentModule = ModuleResources
			a.showDetail = false
			return a, a.loadResources()
		case ModulePlan:
			return a, a.openPlan()
		}
		return a, nil
	}

	if a.keys.Help.Matches(msg) {
		a.openHelp()
		return a, nil
	}

	if a.keys.Back.Matches(msg) {
		switch {
		case a.showDetail:
			a.showDetail = false
		case a.currentModule == ModuleHelp && a.previousModule != "":
			a.currentModule = a.previousModule
			a.previousModule = ""
		case a.currentModule == ModulePlan:
			a.currentModule = ModuleResources
		}
		return a, nil
	}

	if a.keys.Reload.Matches(msg) {
		return a, a.reloadModel()
	}

	switch a.currentModule {
	case ModuleResources:
		return a.handleResourceKeys(msg)
	case ModulePlan:
		return a.handlePlanKeys(msg)
	}
	return a, nil
}

func (a *App) openHelp() {
	if a.currentModule != ModuleHelp {
		a.previousModule = a.currentModule
	}
	a.currentModule = ModuleHelp
}

// openPlan switches to the plan module, reporting on the selected resource
// when none is chosen yet.
func (a *App) openPlan() tea.Cmd {
	a.currentModule = ModulePlan
	a.showDetail = false
	if sel := a.resourcesView.Selected(); sel != nil && a.planView.Resource() == "" {
		a.planView.SetResource(sel.Name)
	}
	return a.loadPlan()
}

func (a *App) askConfirm(action confirmAction) {
	a.confirm = action
	a.showConfirm = true
}

// handleResourceKeys handles key presses in the resources module.
func (a *App) handleResourceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := a.resourcesView.Selected()

	switch {
	case a.keys.Plan.Matches(msg):
		if sel != nil {
			a.planView.SetResource(sel.Name)
			a.currentModule = ModulePlan
			a.showDetail = false
			return a, a.loadPlan()
		}
		return a, nil
	case a.keys.DeletePlans.Matches(msg):
		if sel != nil {
			a.askConfirm(confirmAction{kind: confirmDeletePlans, resource: sel.Name})
		}
		return a, nil
	case a.keys.DeleteLocked.Matches(msg):
		if sel != nil {
			a.askConfirm(confirmAction{kind: confirmDeleteLocked, resource: sel.Name})
		}
		return a, nil
	case a.keys.DeleteResource.Matches(msg):
		if sel != nil {
			a.askConfirm(confirmAction{kind: confirmDeleteResource, resource: sel.Name})
		}
		return a, nil
	case a.keys.Export.Matches(msg):
		return a, a.export()
	}

	if a.showDetail {
		return a, nil
	}

	switch {
	case a.keys.Up.Matches(msg):
		a.resourcesView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.resourcesView.MoveDown()
	case a.keys.PageUp.Matches(msg):
		a.resourcesView.Table().PageUp()
	case a.keys.PageDown.Matches(msg):
		a.resourcesView.Table().PageDown()
	case a.keys.Select.Matches(msg):
		if sel != nil {
			a.showDetail = true
			return a, a.loadEvents()
		}
	}
	return a, nil
}

// handlePlanKeys handles key presses in the plan module.
func (a *App) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.Up.Matches(msg):
		a.planView.MoveUp()
	case a.keys.Down.Matches(msg):
		a.planView.MoveDown()
	case a.keys.PageUp.Matches(msg):
		a.planView.Table().PageUp()
	case a.keys.PageDown.Matches(msg):
		a.planView.Table().PageDown()
	case a.keys.CycleBucket.Matches(msg):
		a.planView.CycleBucket()
		return a, a.loadPlan()
	case a.keys.ShiftBack.Matches(msg):
		a.planView.Shift(-1)
		return a, a.loadPlan()
	case a.keys.ShiftForward.Matches(msg):
		a.planView.Shift(1)
		return a, a.loadPlan()
	case a.keys.Export.Matches(msg):
		return a, a.export()
	case a.keys.DeletePlans.Matches(msg):
		if r := a.planView.Resource(); r != "" {
			a.askConfirm(confirmAction{kind: confirmDeletePlans, resource: r})
		}
	case a.keys.DeleteLocked.Matches(msg):
		if r := a.planView.Resource(); r != "" {
			a.askConfirm(confirmAction{kind: confirmDeleteLocked, resource: r})
		}
	}
	return a, nil
}

// loadResources loads the resource list.
func (a *App) loadResources() tea.Cmd {
	return func() tea.Msg {
		return resourcesLoadedMsg{err: a.resourcesView.Load(context.Background())}
	}
}

// loadEvents loads the timeline of the selected resource.
func (a *App) loadEvents() tea.Cmd {
	return func() tea.Msg {
		return eventsLoadedMsg{err: a.resourcesView.LoadEvents(context.Background())}
	}
}

// loadPlan computes the report of the plan view.
func (a *App) loadPlan() tea.Cmd {
	return func() tea.Msg {
		return planLoadedMsg{err: a.planView.Load(context.Background())}
	}
}

// loadDashboard counts the overloaded buckets of every resource over the
// current horizon.
func (a *App) loadDashboard() tea.Cmd {
	req := a.planView.Request()
	return func() tea.Msg {
		ctx := context.Background()
		summaries, err := a.svc.Resources(ctx)
		if err != nil {
			return dashboardMsg{err: err}
		}
		overloaded := make(map[string]int, len(summaries))
		for _, s := range summaries {
			rows, err := a.svc.ResourcePlan(ctx, s.Name, req)
			if err != nil {
				return dashboardMsg{err: fmt.Errorf("resource %s: %w", s.Name, err)}
			}
			for i := range rows {
				if rows[i].Overloaded() {
					overloaded[s.Name]++
				}
			}
		}
		return dashboardMsg{summaries: summaries, overloaded: overloaded}
	}
}

// refresh reloads every view after the model changed.
func (a *App) refresh() tea.Cmd {
	cmds := []tea.Cmd{a.loadResources(), a.loadDashboard()}
	if a.planView.Resource() != "" {
		cmds = append(cmds, a.loadPlan())
	}
	if a.showDetail {
		cmds = append(cmds, a.loadEvents())
	}
	return tea.Batch(cmds...)
}

// reloadModel rebuilds the planning model from the database.
func (a *App) reloadModel() tea.Cmd {
	return func() tea.Msg {
		return modelReloadedMsg{err: a.svc.LoadModel(context.Background())}
	}
}

// export writes the reports of every resource over the current horizon.
func (a *App) export() tea.Cmd {
	req := a.planView.Request()
	return func() tea.Msg {
		res, err := a.svc.ExportPlans(context.Background(), req)
		return exportDoneMsg{result: res, err: err}
	}
}

// runDelete performs a confirmed delete.
func (a *App) runDelete(action confirmAction) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		switch action.kind {
		case confirmDeleteResource:
			return deleteDoneMsg{action: action, err: a.svc.DeleteResource(ctx, action.resource)}
		default:
			n, err := a.svc.DeleteOperationPlans(ctx, action.resource, action.kind == confirmDeleteLocked)
			return deleteDoneMsg{action: action, count: n, err: err}
		}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.quitting {
		return a.theme.Title.Render("capledger shutting down...")
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")

	b.WriteString(a.renderAlertBar())
	b.WriteString("\n")

	contentHeight := ContentHeight(a.height, chromeLines)
	if a.showConfirm {
		b.WriteString(a.renderConfirmDialog(contentHeight))
	} else {
		b.WriteString(a.renderContent(contentHeight))
	}

	b.WriteString("\n")
	b.WriteString(a.renderFooter())

	return b.String()
}

// renderHeader renders the top header bar.
func (a *App) renderHeader() string {
	title := fmt.Sprintf("CAPLEDGER v%s", Version)

	req := a.planView.Request()
	info := fmt.Sprintf("%d RESOURCES | %s - %s | %s",
		len(a.summaries),
		a.formatDate(req.Start),
		a.formatDate(req.End),
		strings.ToUpper(string(req.Bucket)),
	)

	spacing := max(a.width-lipgloss.Width(title)-lipgloss.Width(info)-4, 1)

	header := a.theme.Header.Render(title) +
		strings.Repeat(" ", spacing) +
		a.theme.Header.Render(info)

	return header + "\n" + a.theme.DrawDoubleLine(a.width)
}

func (a *App) formatDate(t time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return t.Format(a.config.Display.DateFormat)
}

// renderAlertBar renders the most recent alert.
func (a *App) renderAlertBar() string {
	var alertText string
	if len(a.alerts) > 0 {
		alert := a.alerts[0]
		switch alert.Level {
		case AlertCritical:
			alertText = a.theme.AlertCrit.Render("ERROR: " + alert.Message)
		case AlertWarning:
			alertText = a.theme.AlertWarn.Render("WARNING: " + alert.Message)
		default:
			alertText = a.theme.Alert.Render("INFO: " + alert.Message)
		}
	} else {
		alertText = a.theme.Muted.Render("Ready")
	}

	module := a.theme.Value.Render(strings.ToUpper(string(a.currentModule)))
	return module + a.theme.StatusDivider.Render() + alertText
}

// renderContent renders the main content area based on current module.
func (a *App) renderContent(height int) string {
	contentWidth := ContentWidth(a.width, 40, MaxContentWidth)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Top)

	contentStyle := lipgloss.NewStyle().
		Width(contentWidth)

	return style.Render(contentStyle.Render(a.getModuleContent(contentWidth, height)))
}

// getModuleContent returns the content for the current module.
func (a *App) getModuleContent(width, height int) string {
	switch a.currentModule {
	case ModuleResources:
		if a.showDetail {
			return a.resourcesView.RenderDetail(height)
		}
		return a.resourcesView.Render(width, height)
	case ModulePlan:
		return a.planView.Render(width, height)
	case ModuleHelp:
		return a.renderHelp()
	default:
		return a.renderDashboard(width)
	}
}

// renderDashboard renders the model overview.
func (a *App) renderDashboard(width int) string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ CAPACITY OVERVIEW ═══"))
	b.WriteString("\n\n")

	kinds := map[string]int{}
	loads, events := 0, 0
	for _, s := range a.summaries {
		kinds[s.Kind]++
		loads += s.Loads
		events += s.Events
	}

	var model strings.Builder
	model.WriteString(fmt.Sprintf("Database:     %s\n", Truncate(a.db.Path(), 24)))
	model.WriteString(fmt.Sprintf("Resources:    %d\n", len(a.summaries)))
	for _, k := range planning.ResourceKinds() {
		model.WriteString(fmt.Sprintf("  %-10s  %d\n", string(k)+":", kinds[string(k)]))
	}
	model.WriteString(fmt.Sprintf("Loads:        %d\n", loads))
	model.WriteString(fmt.Sprintf("Events:       %d", events))

	var capa strings.Builder
	total := 0
	for _, s := range a.summaries {
		n := a.overloaded[s.Name]
		if n == 0 {
			continue
		}
		total += n
		capa.WriteString(a.theme.Error.Render(fmt.Sprintf("%-16s %3d overloaded", Truncate(s.Name, 16), n)))
		capa.WriteString("\n")
	}
	if total == 0 {
		capa.WriteString(a.theme.Success.Render("No overloaded buckets"))
		capa.WriteString("\n")
	}
	req := a.planView.Request()
	capa.WriteString(a.theme.Muted.Render(fmt.Sprintf("Horizon %s - %s, %s buckets",
		a.formatDate(req.Start), a.formatDate(req.End), req.Bucket)))

	panelWidth := max((width-2)/2, 30)
	b.WriteString(SideBySide(
		a.theme.Panel("MODEL", model.String(), panelWidth),
		a.theme.Panel("CAPACITY", capa.String(), panelWidth),
		width, 2,
	))
	b.WriteString("\n\n")

	b.WriteString(a.theme.Subtitle.Render("LAST EXPORT"))
	b.WriteString("\n")
	if a.lastExport == nil {
		b.WriteString(a.theme.Muted.Render("  No export in this session. Press x in the resource or plan view."))
	} else {
		line := fmt.Sprintf("  %d rows for %d resources", a.lastExport.Rows, a.lastExport.Resources)
		if a.lastExport.Backup != "" {
			line += ", backup " + a.lastExport.Backup
		}
		b.WriteString(a.theme.Value.Render(line))
	}
	b.WriteString("\n")

	return b.String()
}

// renderHelp renders the help screen.
func (a *App) renderHelp() string {
	var b strings.Builder

	b.WriteString(a.theme.Title.Render("═══ HELP ═══"))
	b.WriteString("\n\n")

	b.WriteString(a.theme.Subtitle.Render("NAVIGATION"))
	b.WriteString("\n\n")

	navItems := [][2]string{
		{"F1 ?", "Help"},
		{"F2", "Dashboard"},
		{"F3", "Resources"},
		{"F4", "Capacity plan"},
		{"F10 q", "Quit"},
	}
	for _, item := range navItems {
		b.WriteString(a.theme.Primary.Render(fmt.Sprintf("    %-8s  %s", item[0], item[1])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.theme.Subtitle.Render("CONTROLS"))
	b.WriteString("\n\n")

	ctrlItems := [][2]string{
		{"Up/Down", "Navigate"},
		{"PgUp/Dn", "Page navigation"},
		{"Enter", "Show timeline"},
		{"Esc", "Back/Cancel"},
		{"p", "Plan of selected resource"},
		{"b", "Cycle bucket type"},
		{"[ ]", "Shift horizon"},
		{"x", "Export reports"},
		{"d", "Delete unlocked plans"},
		{"D", "Delete all plans"},
		{"X", "Delete resource"},
		{"r", "Reload model"},
	}
	for _, item := range ctrlItems {
		b.WriteString(a.theme.Primary.Render(fmt.Sprintf("    %-8s  %s", item[0], item[1])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(a.theme.Muted.Render("Press Esc to return"))

	return b.String()
}

// renderConfirmDialog renders the confirmation dialog.
func (a *App) renderConfirmDialog(height int) string {
	title, question := "CONFIRM EXIT", "Are you sure you want to exit?"
	switch a.confirm.kind {
	case confirmDeletePlans:
		title = "CONFIRM DELETE"
		question = fmt.Sprintf("Delete the unlocked operation plans of %s?", a.confirm.resource)
	case confirmDeleteLocked:
		title = "CONFIRM DELETE"
		question = fmt.Sprintf("Delete ALL operation plans of %s, locked ones included?", a.confirm.resource)
	case confirmDeleteResource:
		title = "CONFIRM DELETE"
		question = fmt.Sprintf("Delete resource %s and its plans?", a.confirm.resource)
	}

	dialog := a.theme.Box.Render(
		a.theme.Title.Render(title) + "\n\n" +
			a.theme.Base.Render(question) + "\n\n" +
			a.theme.Label.Render("[Y]es  [N]o"),
	)

	style := lipgloss.NewStyle().
		Width(a.width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(dialog)
}

// renderFooter renders the bottom status bar.
func (a *App) renderFooter() string {
	return a.theme.DrawHorizontalLine(a.width) + "\n" +
		a.theme.Footer.Render(a.keys.StatusBarHelp(a.width))
}

// AddAlert adds a new alert to the display.
func (a *App) AddAlert(level AlertLevel, message string) {
	a.alerts = append([]Alert{{
		Level:   level,
		Message: message,
		Time:    time.Now(),
	}}, a.alerts...)

	// Keep only last 10 alerts
	if len(a.alerts) > 10 {
		a.alerts = a.alerts[:10]
	}
}

// ClearAlerts removes all alerts.
func (a *App) ClearAlerts() {
	a.alerts = []Alert{}
}

// Run starts the TUI application.
func Run(ctx context.Context, db *database.DB, cfg *config.Config, svc *capacity.Service) error {
	app := New(db, cfg, svc)

	p := tea.NewProgram(app, tea.WithAltScreen())

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
