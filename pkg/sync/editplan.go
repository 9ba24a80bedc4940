// Package sync implements the Synchronizer: it diffs a freshly generated
// circuit.Sheet against one lifted from disk and produces an EditPlan that
// transforms the old into the new while disturbing as few user-visible
// bytes as possible (spec.md 4.6 — "this is the core of the core").
package sync

import "github.com/OpenTraceLab/kicadsync/pkg/circuit"

// Op is one edit-plan operation. Concrete types below implement it as a
// marker; the writer type-switches on the concrete Op to decide how to
// touch the preserved tree (spec.md 4.6, "Edit plan").
type Op interface {
	op()
}

// PreserveComponent means no action: the writer reuses the component's
// preserved bytes unchanged.
type PreserveComponent struct {
	UUID circuit.UUID
}

// UpdateComponentAttributes rewrites only the listed fields; anything
// absent from Changes is carried forward from the preserved tree
// (spec.md 4.6, "Position preservation").
type UpdateComponentAttributes struct {
	UUID    circuit.UUID
	Changes map[string]string // property key -> new value
}

// RelinkPin changes which net a pin belongs to.
type RelinkPin struct {
	UUID      circuit.UUID
	PinNumber string
	NewNet    string
}

// InsertComponent adds a new entity with no preserved-tree counterpart.
type InsertComponent struct {
	Component *circuit.Component
}

// RemoveComponent deletes a component and orphans its net memberships.
type RemoveComponent struct {
	UUID circuit.UUID
}

// InsertLabel adds a new label.
type InsertLabel struct {
	Label *circuit.Label
}

// RemoveLabel deletes a label, either because the caller removed it or as
// a cascade from a pin removal that left its net unlabeled elsewhere
// (spec.md 9, the cascading-RemoveLabel open question).
type RemoveLabel struct {
	UUID   circuit.UUID
	Reason string
}

// MoveLabel repositions a label without changing its text.
type MoveLabel struct {
	UUID        circuit.UUID
	NewPosition circuit.Position
}

// RenameNet rewrites every label and hierarchical port whose text equals
// OldName to NewName.
type RenameNet struct {
	OldName, NewName string
}

// InsertSheet adds a new child sheet instance.
type InsertSheet struct {
	Instance *circuit.SheetInstance
}

// RemoveSheet removes a child sheet instance (spec.md 4.6). Apply removes
// it unconditionally; it does not check whether the removal strands named
// nets.
type RemoveSheet struct {
	UUID circuit.UUID
}

// UpdateSheetPort renames a hierarchical port on an existing sheet
// without touching the sheet's other entities.
type UpdateSheetPort struct {
	SheetUUID circuit.UUID
	PortName  string
	NewName   string
}

func (PreserveComponent) op()         {}
func (UpdateComponentAttributes) op() {}
func (RelinkPin) op()                 {}
func (InsertComponent) op()           {}
func (RemoveComponent) op()           {}
func (InsertLabel) op()               {}
func (RemoveLabel) op()               {}
func (MoveLabel) op()                 {}
func (RenameNet) op()                 {}
func (InsertSheet) op()               {}
func (RemoveSheet) op()               {}
func (UpdateSheetPort) op()           {}

// EditPlan is the ordered sequence of operations the synchronizer
// produces, plus any non-fatal warnings raised while building it
// (spec.md 4.6, 7).
type EditPlan struct {
	Ops      []Op
	Warnings []circuit.Warning
}
