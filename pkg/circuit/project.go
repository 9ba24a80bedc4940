package circuit

import "fmt"

// Metadata is a project's title-block and page-settings bag, carried
// forward unchanged unless a caller explicitly edits it (spec.md 3,
// "Project... a metadata bag").
type Metadata struct {
	Title    string
	Date     string
	Revision string
	Company  string
	Comments [4]string
	Paper    string
}

// SheetInstance is one instantiation of a Sheet within a parent: the same
// Sheet may be instantiated more than once, each instance contributing
// its own reference-designator path (spec.md 3).
type SheetInstance struct {
	UUID     UUID
	Sheet    *Sheet
	Position Position
	Path     string // e.g. "/3f2a.../"
	Page     string
}

// Sheet owns an ordered sequence of components, labels, power symbols,
// wires, and child sheet instances. A Sheet may be instantiated more than
// once by distinct SheetInstance references in a parent (spec.md 3).
type Sheet struct {
	UUID     UUID
	Name     string
	Filename string // relative path, e.g. "Amp.kicad_sch"

	Components   []*Component
	PowerSymbols []*Component // reference starts with "#PWR"; see Component.IsPowerSymbol
	Labels       []*Label
	Wires        []*Wire
	Ports        []*HierarchicalPort
	Children     []*SheetInstance
}

// NewSheet constructs a sheet with a freshly-minted UUID.
func NewSheet(name, filename string) *Sheet {
	return &Sheet{UUID: NewUUID(), Name: name, Filename: filename}
}

// addComponent appends a component to the sheet's Components, or to
// PowerSymbols for a power symbol. It does not check the project-wide
// reference-uniqueness invariant (spec.md 3); Project.AddComponent checks
// it before calling this method.
func (s *Sheet) addComponent(c *Component) {
	if c.IsPowerSymbol() {
		s.PowerSymbols = append(s.PowerSymbols, c)
	} else {
		s.Components = append(s.Components, c)
	}
}

// AllComponents returns both ordinary components and power symbols, in
// the order the writer should emit them (ordinary components first, by
// convention matching the teacher's own schematic.Symbols ordering).
func (s *Sheet) AllComponents() []*Component {
	out := make([]*Component, 0, len(s.Components)+len(s.PowerSymbols))
	out = append(out, s.Components...)
	out = append(out, s.PowerSymbols...)
	return out
}

// Project owns a tree of sheets rooted at a single top sheet, a metadata
// bag, and (once computed) a NetIndex. One Project corresponds to one
// on-disk KiCad project directory (spec.md 3).
type Project struct {
	Root     *Sheet
	Metadata Metadata

	// sheetsByUUID indexes every sheet reachable from Root, including
	// Root itself, so sheet lookup by uuid (the synchronizer's primary
	// match key, spec.md 4.6) never needs a tree walk.
	sheetsByUUID map[UUID]*Sheet

	index *NetIndex
}

// NewProject constructs an empty project with the given root sheet.
func NewProject(root *Sheet) *Project {
	p := &Project{Root: root, sheetsByUUID: map[UUID]*Sheet{root.UUID: root}}
	return p
}

// NewProjectFromTree constructs a Project from an already-assembled sheet
// tree — the shape a multi-file reader produces by recursively resolving
// (sheet ...) references across files before a Project exists to call
// AddSheet on. Every reachable sheet is indexed by uuid up front, the same
// invariant AddSheet maintains incrementally.
func NewProjectFromTree(root *Sheet) *Project {
	p := &Project{Root: root, sheetsByUUID: make(map[UUID]*Sheet)}
	for _, sh := range p.Sheets() {
		p.sheetsByUUID[sh.UUID] = sh
	}
	return p
}

// Sheets returns every sheet reachable from the root, in a stable
// depth-first order (root first).
func (p *Project) Sheets() []*Sheet {
	var out []*Sheet
	var walk func(s *Sheet)
	walk = func(s *Sheet) {
		out = append(out, s)
		for _, inst := range s.Children {
			walk(inst.Sheet)
		}
	}
	walk(p.Root)
	return out
}

// SheetByUUID looks up a sheet by its stable identity.
func (p *Project) SheetByUUID(id UUID) (*Sheet, bool) {
	s, ok := p.sheetsByUUID[id]
	return s, ok
}

// AddSheet registers a child sheet instance under parent, after checking
// that instantiating it would not create a hierarchy cycle (spec.md 3,
// "acyclic with respect to hierarchy").
func (p *Project) AddSheet(parent *Sheet, child *Sheet, pos Position) (*SheetInstance, error) {
	if p.wouldCycle(parent, child) {
		return nil, fmt.Errorf("invariant violation: instantiating sheet %q under %q would create a hierarchy cycle", child.Name, parent.Name)
	}
	inst := &SheetInstance{UUID: NewUUID(), Sheet: child, Position: pos}
	parent.Children = append(parent.Children, inst)
	p.sheetsByUUID[child.UUID] = child
	p.index = nil // structural change invalidates the cached net index
	return inst, nil
}

// wouldCycle reports whether child already appears as an ancestor of
// parent (including parent itself), which would make instantiating it
// under parent circular.
func (p *Project) wouldCycle(parent, child *Sheet) bool {
	if parent.UUID == child.UUID {
		return true
	}
	seen := make(map[UUID]bool)
	var ancestorContains func(s *Sheet, target UUID) bool
	ancestorContains = func(s *Sheet, target UUID) bool {
		if seen[s.UUID] {
			return false
		}
		seen[s.UUID] = true
		if s.UUID == target {
			return true
		}
		for _, inst := range s.Children {
			if ancestorContains(inst.Sheet, target) {
				return true
			}
		}
		return false
	}
	return ancestorContains(child, parent.UUID)
}

// AddComponent inserts c into sheet after enforcing the project-wide
// unique-reference invariant (spec.md 3, 7). Returns ErrReferenceConflict
// if another component already uses c.Reference.
func (p *Project) AddComponent(sheet *Sheet, c *Component) error {
	if existing, sameSheet := p.findReference(c.Reference); existing != nil {
		return &ErrReferenceConflict{Reference: c.Reference, Sheets: []string{sameSheet}}
	}
	sheet.addComponent(c)
	p.index = nil
	return nil
}

func (p *Project) findReference(ref string) (*Component, string) {
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			if c.Reference == ref {
				return c, sh.Name
			}
		}
	}
	return nil, ""
}

// RemoveComponent removes c from sheet and invalidates the cached net
// index so the next NetIndex() call recomputes connectivity without the
// removed component's pins.
func (p *Project) RemoveComponent(sheet *Sheet, c *Component) {
	filter := func(list []*Component) []*Component {
		out := list[:0]
		for _, x := range list {
			if x.UUID != c.UUID {
				out = append(out, x)
			}
		}
		return out
	}
	sheet.Components = filter(sheet.Components)
	sheet.PowerSymbols = filter(sheet.PowerSymbols)
	p.index = nil
}

// ErrReferenceConflict is returned when inserting a component whose
// reference designator is already in use elsewhere in the project
// (spec.md 7, ErrorKind::ReferenceConflict). It is fatal to the
// operation that raised it; the caller must rename.
type ErrReferenceConflict struct {
	Reference string
	Sheets    []string
}

func (e *ErrReferenceConflict) Error() string {
	return fmt.Sprintf("reference %q already in use", e.Reference)
}
