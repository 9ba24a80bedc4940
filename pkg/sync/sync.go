package sync

import (
	"fmt"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/symbollib"
)

// ErrUnknownSymbol is fatal: a component's lib_id does not resolve in the
// symbol library (spec.md 7, ErrorKind::UnknownSymbol).
type ErrUnknownSymbol struct {
	LibID string
}

func (e *ErrUnknownSymbol) Error() string { return fmt.Sprintf("unknown symbol: %q", e.LibID) }

// Synchronizer diffs an old (on-disk) sheet against a new (target) sheet
// and produces an EditPlan (spec.md 4.6).
type Synchronizer struct {
	Library *symbollib.Library
}

// New constructs a Synchronizer backed by lib. When lib is non-nil, Diff
// fails with ErrUnknownSymbol for any target lib_id it cannot resolve.
func New(lib *symbollib.Library) *Synchronizer {
	return &Synchronizer{Library: lib}
}

// Diff compares old against target and returns the EditPlan that carries
// old toward target's semantics.
func (s *Synchronizer) Diff(old, target *circuit.Sheet) (*EditPlan, error) {
	plan := &EditPlan{}

	oldByUUID := indexComponentsByUUID(old)
	oldByRef := indexComponentsByReference(old)
	matchedOld := make(map[circuit.UUID]bool)
	matchedTarget := make(map[circuit.UUID]bool)

	oldAll := old.AllComponents()
	targetAll := target.AllComponents()

	// Matching phase, in priority order: uuid, then reference, then
	// fingerprint among what remains (spec.md 4.6, "Matching phase").
	pairs := make(map[circuit.UUID]*circuit.Component) // target uuid -> matched old component

	for _, nc := range targetAll {
		if oc, ok := oldByUUID[nc.UUID]; ok && !matchedOld[oc.UUID] {
			pairs[nc.UUID] = oc
			matchedOld[oc.UUID] = true
			matchedTarget[nc.UUID] = true
		}
	}
	for _, nc := range targetAll {
		if matchedTarget[nc.UUID] {
			continue
		}
		if oc, ok := oldByRef[nc.Reference]; ok && !matchedOld[oc.UUID] {
			pairs[nc.UUID] = oc
			matchedOld[oc.UUID] = true
			matchedTarget[nc.UUID] = true
		}
	}
	// Fingerprint pass over whatever remains unmatched on both sides.
	remainingOldByFingerprint := make(map[string]*circuit.Component)
	for _, oc := range oldAll {
		if !matchedOld[oc.UUID] {
			remainingOldByFingerprint[circuit.Fingerprint(oc)] = oc
		}
	}
	for _, nc := range targetAll {
		if matchedTarget[nc.UUID] {
			continue
		}
		if oc, ok := remainingOldByFingerprint[circuit.Fingerprint(nc)]; ok && !matchedOld[oc.UUID] {
			pairs[nc.UUID] = oc
			matchedOld[oc.UUID] = true
			matchedTarget[nc.UUID] = true
		}
	}

	if s.Library != nil {
		for _, nc := range targetAll {
			if _, err := s.Library.Lookup(nc.LibID); err != nil {
				return nil, &ErrUnknownSymbol{LibID: nc.LibID}
			}
		}
	}

	// Unmatched old components become deletions.
	for _, oc := range oldAll {
		if !matchedOld[oc.UUID] {
			plan.Ops = append(plan.Ops, RemoveComponent{UUID: oc.UUID})
		}
	}

	// Matched or unmatched-new components become Preserve/Update/Insert.
	for _, nc := range targetAll {
		oc, matched := pairs[nc.UUID]
		if !matched {
			plan.Ops = append(plan.Ops, InsertComponent{Component: nc})
			continue
		}
		changes := diffComponentAttributes(oc, nc)
		if len(changes) == 0 {
			plan.Ops = append(plan.Ops, PreserveComponent{UUID: oc.UUID})
		} else {
			plan.Ops = append(plan.Ops, UpdateComponentAttributes{UUID: oc.UUID, Changes: changes})
		}
		// Diff emits no RelinkPin ops: a changed pin count is reported,
		// and no pin is relinked or disconnected here.
		if oldPinCountMismatch(oc, nc) {
			plan.Warnings = append(plan.Warnings, circuit.Warning{Message: fmt.Sprintf(
				"component %q: pin count changed underfoot from %d to %d", nc.Reference, len(oc.Pins), len(nc.Pins))})
		}
	}

	diffLabels(old, target, matchedOld, pairs, plan)
	diffSheets(old, target, plan)

	return plan, nil
}

// diffSheets matches child sheet instances by uuid, the same primary key
// components match on (spec.md 4.6's matching phase generalizes to sheet
// instances too: "Sheet instances match by uuid"). Unmatched old children
// become RemoveSheet; unmatched target children become InsertSheet.
// Matched pairs are compared port-by-port in declaration order: a port
// whose name changed at the same position becomes an UpdateSheetPort
// rather than a remove+insert, so the writer can rewrite just that one
// pin in place.
func diffSheets(old, target *circuit.Sheet, plan *EditPlan) {
	oldByUUID := make(map[circuit.UUID]*circuit.SheetInstance)
	for _, inst := range old.Children {
		oldByUUID[inst.UUID] = inst
	}
	targetByUUID := make(map[circuit.UUID]*circuit.SheetInstance)
	for _, inst := range target.Children {
		targetByUUID[inst.UUID] = inst
	}

	for _, inst := range old.Children {
		if _, ok := targetByUUID[inst.UUID]; !ok {
			plan.Ops = append(plan.Ops, RemoveSheet{UUID: inst.UUID})
		}
	}
	for _, inst := range target.Children {
		oldInst, ok := oldByUUID[inst.UUID]
		if !ok {
			plan.Ops = append(plan.Ops, InsertSheet{Instance: inst})
			continue
		}
		for i, port := range inst.Sheet.Ports {
			if i >= len(oldInst.Sheet.Ports) {
				break
			}
			if oldName := oldInst.Sheet.Ports[i].Name; oldName != port.Name {
				plan.Ops = append(plan.Ops, UpdateSheetPort{SheetUUID: inst.UUID, PortName: oldName, NewName: port.Name})
			}
		}
	}
}

func indexComponentsByUUID(sh *circuit.Sheet) map[circuit.UUID]*circuit.Component {
	out := make(map[circuit.UUID]*circuit.Component)
	for _, c := range sh.AllComponents() {
		out[c.UUID] = c
	}
	return out
}

func indexComponentsByReference(sh *circuit.Sheet) map[string]*circuit.Component {
	out := make(map[string]*circuit.Component)
	for _, c := range sh.AllComponents() {
		out[c.Reference] = c
	}
	return out
}

// diffComponentAttributes returns only the fields target actually
// specifies that differ from old — position/rotation/unit and any
// user-only properties absent from target are never included, so the
// writer carries them forward untouched (spec.md 4.6, "Restricted-diff
// attribute application").
func diffComponentAttributes(old, target *circuit.Component) map[string]string {
	changes := make(map[string]string)
	if old.Reference != target.Reference && target.Reference != "" {
		changes[circuit.PropReference] = target.Reference
	}
	if old.Value() != target.Value() && target.Value() != "" {
		changes[circuit.PropValue] = target.Value()
	}
	if old.Footprint() != target.Footprint() && target.Footprint() != "" {
		changes[circuit.PropFootprint] = target.Footprint()
	}
	return changes
}

func oldPinCountMismatch(old, target *circuit.Component) bool {
	return len(old.Pins) != len(target.Pins)
}

// diffLabels matches labels by (kind, position, text). Every old label
// absent from target becomes a RemoveLabel; when no target pin still
// names the label's net, the op's Reason records it as a cascade
// (spec.md 9). An old label that target still contains is kept, even if
// its net has no pins left.
func diffLabels(old, target *circuit.Sheet, matchedOld map[circuit.UUID]bool, pairs map[circuit.UUID]*circuit.Component, plan *EditPlan) {
	targetLabelKey := make(map[string]*circuit.Label)
	for _, l := range target.Labels {
		targetLabelKey[labelKey(l)] = l
	}
	oldLabelKey := make(map[string]*circuit.Label)
	for _, l := range old.Labels {
		oldLabelKey[labelKey(l)] = l
	}

	for _, l := range target.Labels {
		if _, ok := oldLabelKey[labelKey(l)]; !ok {
			plan.Ops = append(plan.Ops, InsertLabel{Label: l})
		}
	}

	// Determine which net names still have at least one surviving pin in
	// target; removing an old label whose net has none is recorded as a
	// cascade.
	survivingNetNames := make(map[string]bool)
	for _, c := range target.AllComponents() {
		for _, pin := range c.Pins {
			if pin.NetName != "" {
				survivingNetNames[pin.NetName] = true
			}
		}
	}

	for _, l := range old.Labels {
		if _, stillPresent := targetLabelKey[labelKey(l)]; stillPresent {
			continue
		}
		if survivingNetNames[l.Text] {
			// The caller's new model still wires something to this net
			// name elsewhere; simple textual removal, not a cascade.
			plan.Ops = append(plan.Ops, RemoveLabel{UUID: l.UUID, Reason: "removed by caller"})
			continue
		}
		plan.Ops = append(plan.Ops, RemoveLabel{UUID: l.UUID, Reason: fmt.Sprintf(
			"net %q has no surviving pins; cascading removal of its label", l.Text)})
	}
}

func labelKey(l *circuit.Label) string {
	return fmt.Sprintf("%d|%.4f|%.4f|%s", l.Kind, l.Position.X, l.Position.Y, l.Text)
}
