// Package planning holds the capacity model: resources with their event
// timelines, the operations and operation plans that load them, and the
// bucketed capacity report.
//
// A Model and everything reachable from it is not safe for concurrent use.
// Callers that share a model between goroutines must serialize access.
package planning

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/capledger/capledger/internal/calendar"
	"github.com/capledger/capledger/internal/util"
)

// Location is a site that may carry its own availability calendar.
type Location struct {
	Name      string
	Available *calendar.Calendar
}

// Model is the registry of all planning objects.
type Model struct {
	calendars  map[string]*calendar.Calendar
	locations  map[string]*Location
	matrices   map[string]*SetupMatrix
	resources  map[string]*Resource
	operations map[string]Operation
	items      map[string]*Item
	loads      map[Operation][]*Load
	plans      map[string]*OperationPlan
	changeover *ChangeoverOperation
	ids        *util.IDGenerator
}

// NewModel creates an empty model. The changeover operation is registered
// up front since every resource with a setup matrix shares it.
func NewModel() *Model {
	m := &Model{
		calendars:  make(map[string]*calendar.Calendar),
		locations:  make(map[string]*Location),
		matrices:   make(map[string]*SetupMatrix),
		resources:  make(map[string]*Resource),
		operations: make(map[string]Operation),
		items:      make(map[string]*Item),
		loads:      make(map[Operation][]*Load),
		plans:      make(map[string]*OperationPlan),
		ids:        util.NewIDGenerator(),
	}
	m.changeover = &ChangeoverOperation{name: ChangeoverName}
	m.operations[ChangeoverName] = m.changeover
	return m
}

// ===== CALENDARS / LOCATIONS / MATRICES =====

// AddCalendar registers a calendar under its name.
func (m *Model) AddCalendar(c *calendar.Calendar) error {
	if c == nil || c.Name == "" {
		return dataErrorf("calendar", "name is required")
	}
	if _, ok := m.calendars[c.Name]; ok {
		return dataErrorf(c.Name, "calendar already exists")
	}
	m.calendars[c.Name] = c
	return nil
}

// Calendar looks up a calendar by name.
func (m *Model) Calendar(name string) (*calendar.Calendar, error) {
	c, ok := m.calendars[name]
	if !ok {
		return nil, notFound("calendar", name)
	}
	return c, nil
}

// AddLocation registers a location.
func (m *Model) AddLocation(l *Location) error {
	if l == nil || l.Name == "" {
		return dataErrorf("location", "name is required")
	}
	if _, ok := m.locations[l.Name]; ok {
		return dataErrorf(l.Name, "location already exists")
	}
	m.locations[l.Name] = l
	return nil
}

// Location looks up a location by name.
func (m *Model) Location(name string) (*Location, error) {
	l, ok := m.locations[name]
	if !ok {
		return nil, notFound("location", name)
	}
	return l, nil
}

// AddSetupMatrix registers a setup matrix.
func (m *Model) AddSetupMatrix(sm *SetupMatrix) error {
	if sm == nil || sm.Name == "" {
		return dataErrorf("setup matrix", "name is required")
	}
	if _, ok := m.matrices[sm.Name]; ok {
		return dataErrorf(sm.Name, "setup matrix already exists")
	}
	m.matrices[sm.Name] = sm
	return nil
}

// SetupMatrix looks up a setup matrix by name.
func (m *Model) SetupMatrix(name string) (*SetupMatrix, error) {
	sm, ok := m.matrices[name]
	if !ok {
		return nil, notFound("setup matrix", name)
	}
	return sm, nil
}

// ===== RESOURCES =====

// AddResource creates a resource of the given kind.
func (m *Model) AddResource(name string, kind ResourceKind) (*Resource, error) {
	if name == "" {
		return nil, dataErrorf("resource", "name is required")
	}
	if !kind.Valid() {
		return nil, dataErrorf(name, "unknown resource kind %q", kind)
	}
	if _, ok := m.resources[name]; ok {
		return nil, dataErrorf(name, "resource already exists")
	}
	r := &Resource{name: name, kind: kind, model: m}
	m.resources[name] = r
	return r, nil
}

// Resource looks up a resource by name.
func (m *Model) Resource(name string) (*Resource, error) {
	r, ok := m.resources[name]
	if !ok {
		return nil, notFound("resource", name)
	}
	return r, nil
}

// Resources returns all resources sorted by name.
func (m *Model) Resources() []*Resource {
	out := slices.Collect(maps.Values(m.resources))
	slices.SortFunc(out, func(a, b *Resource) int { return cmp.Compare(a.name, b.name) })
	return out
}

// DeleteResource destroys a resource. Every operation plan loading it is
// deleted, locked ones included, and item supplier and distribution
// records pointing at it lose their resource reference.
func (m *Model) DeleteResource(name string) error {
	r, ok := m.resources[name]
	if !ok {
		return notFound("resource", name)
	}
	r.destroy()
	delete(m.resources, name)
	return nil
}

// ===== OPERATIONS / LOADS =====

// AddOperation registers an operation under its name.
func (m *Model) AddOperation(op Operation) error {
	if op == nil || op.Name() == "" {
		return dataErrorf("operation", "name is required")
	}
	if _, ok := m.operations[op.Name()]; ok {
		return dataErrorf(op.Name(), "operation already exists")
	}
	m.operations[op.Name()] = op
	return nil
}

// Operation looks up an operation by name.
func (m *Model) Operation(name string) (Operation, error) {
	op, ok := m.operations[name]
	if !ok {
		return nil, notFound("operation", name)
	}
	return op, nil
}

// Changeover returns the shared changeover operation.
func (m *Model) Changeover() *ChangeoverOperation {
	return m.changeover
}

// AddLoad makes an operation consume capacity on a resource. A non-empty
// setup means the resource must be in that setup state while loaded.
func (m *Model) AddLoad(op Operation, r *Resource, quantity float64, setup string) (*Load, error) {
	if op == nil || r == nil {
		return nil, logicErrorf("load requires an operation and a resource")
	}
	if r.model != m {
		return nil, dataErrorf(r.name, "resource does not belong to this model")
	}
	if quantity < 0 {
		return nil, dataErrorf(op.Name(), "load quantity must be non-negative, got %g", quantity)
	}
	l := &Load{operation: op, resource: r, Quantity: quantity, Setup: setup}
	m.loads[op] = append(m.loads[op], l)
	r.loads = append(r.loads, l)
	return l, nil
}

// Loads returns the loads of an operation.
func (m *Model) Loads(op Operation) []*Load {
	return slices.Clone(m.loads[op])
}

// ===== ITEMS =====

// AddItem registers an item.
func (m *Model) AddItem(name string) (*Item, error) {
	if name == "" {
		return nil, dataErrorf("item", "name is required")
	}
	if _, ok := m.items[name]; ok {
		return nil, dataErrorf(name, "item already exists")
	}
	it := &Item{Name: name}
	m.items[name] = it
	return it, nil
}

// Item looks up an item by name.
func (m *Model) Item(name string) (*Item, error) {
	it, ok := m.items[name]
	if !ok {
		return nil, notFound("item", name)
	}
	return it, nil
}

// Items returns all items sorted by name.
func (m *Model) Items() []*Item {
	out := slices.Collect(maps.Values(m.items))
	slices.SortFunc(out, func(a, b *Item) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// ===== OPERATION PLANS =====

// PlanInput describes an operation plan to create.
type PlanInput struct {
	ID        string
	Operation Operation
	Quantity  float64
	// Start and End bound the plan. When one of them is zero the operation
	// computes it from the other.
	Start  time.Time
	End    time.Time
	Locked bool
	// Loads overrides the loads registered for the operation.
	Loads []*Load
}

// CreateOperationPlan instantiates an operation and loads its resources.
func (m *Model) CreateOperationPlan(in PlanInput) (*OperationPlan, error) {
	if in.Operation == nil {
		return nil, logicErrorf("operation plan requires an operation")
	}
	name := in.Operation.Name()
	if registered, ok := m.operations[name]; !ok || registered != in.Operation {
		return nil, notFound("operation", name)
	}
	if in.Quantity < 0 {
		return nil, dataErrorf(name, "quantity must be non-negative, got %g", in.Quantity)
	}
	if in.Start.IsZero() && in.End.IsZero() {
		return nil, dataErrorf(name, "start or end date is required")
	}
	if !in.Start.IsZero() && !in.End.IsZero() && in.End.Before(in.Start) {
		return nil, dataErrorf(name, "end %s before start %s",
			util.FormatDateTime(in.End), util.FormatDateTime(in.Start))
	}
	if in.ID == "" {
		in.ID = m.ids.NewID()
	}
	if _, ok := m.plans[in.ID]; ok {
		return nil, dataErrorf(in.ID, "operation plan already exists")
	}
	loads := in.Loads
	if loads == nil {
		loads = m.loads[in.Operation]
	}
	for _, l := range loads {
		if l.resource == nil || l.resource.model != m {
			return nil, dataErrorf(name, "load refers to a resource outside this model")
		}
		if l.operation != in.Operation {
			return nil, dataErrorf(name, "load of operation %s cannot be used by this operation", l.operation.Name())
		}
	}

	p := &OperationPlan{
		id:        in.ID,
		operation: in.Operation,
		quantity:  in.Quantity,
		start:     in.Start,
		end:       in.End,
		locked:    in.Locked,
	}
	switch {
	case p.start.IsZero():
		p.start = p.end
	case p.end.IsZero():
		p.end = p.start
	}
	m.plans[p.id] = p
	for _, l := range loads {
		p.addLoadPlans(l)
	}

	moved := false
	switch {
	case in.Start.IsZero() || in.Operation.IsChangeover():
		moved = p.Restore(in.Operation.SetOperationPlanParameters(p, p.quantity, util.InfinitePast, p.end, true, false))
	case in.End.IsZero():
		moved = p.Restore(in.Operation.SetOperationPlanParameters(p, p.quantity, p.start, util.InfiniteFuture, false, false))
	}
	if in.Operation.IsChangeover() && !moved {
		// A new changeover alters the setup state seen by later ones.
		for _, lp := range p.loadplans {
			if !lp.start {
				lp.Resource().UpdateSetups(lp)
			}
		}
	}
	return p, nil
}

// OperationPlan looks up an operation plan by identifier.
func (m *Model) OperationPlan(id string) (*OperationPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, notFound("operation plan", id)
	}
	return p, nil
}

// OperationPlans returns the plans of an operation, or of all operations
// when op is nil, sorted by start date and identifier.
func (m *Model) OperationPlans(op Operation) []*OperationPlan {
	var out []*OperationPlan
	for _, p := range m.plans {
		if op == nil || p.operation == op {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b *OperationPlan) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return out
}

// DeleteOperationPlan removes a single plan and its capacity events.
func (m *Model) DeleteOperationPlan(id string) error {
	p, ok := m.plans[id]
	if !ok {
		return notFound("operation plan", id)
	}
	m.deletePlan(p)
	return nil
}

// deleteOperationPlans removes the plans of an operation, skipping locked
// ones unless deleteLocked is set. It returns the number deleted.
func (m *Model) deleteOperationPlans(op Operation, deleteLocked bool) int {
	n := 0
	for _, p := range m.OperationPlans(op) {
		if p.locked && !deleteLocked {
			continue
		}
		m.deletePlan(p)
		n++
	}
	return n
}

func (m *Model) deletePlan(p *OperationPlan) {
	var touched []*Resource
	for _, lp := range p.loadplans {
		r := lp.Resource()
		r.timeline.Erase(lp.event)
		r.setChanged()
		if !slices.Contains(touched, r) {
			touched = append(touched, r)
		}
	}
	p.loadplans = nil
	delete(m.plans, p.id)
	slog.Debug("operation plan deleted", "id", p.id, "operation", p.operation.Name())

	if p.operation.IsChangeover() {
		for _, r := range touched {
			r.UpdateSetups(nil)
		}
	}
}
