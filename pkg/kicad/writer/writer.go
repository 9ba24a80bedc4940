// Package writer projects a circuit.Sheet back into a KiCad S-expression
// tree and formats it through sexpcodec. It implements the three-tier
// strategy from spec.md 4.5:
//
//  1. An entity with a PreservedTree node and nothing changed: emit the
//     original node by reference (formatter copies its bytes verbatim).
//  2. An entity whose attributes changed but not its shape: a new node
//     mirroring the original child order, reusing unchanged grandchildren
//     by reference and re-emitting only the changed ones in fresh style.
//  3. A brand-new entity: fully fresh-style nodes.
package writer

import (
	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/reader"
	"github.com/OpenTraceLab/kicadsync/pkg/sexpcodec"
	"github.com/OpenTraceLab/kicadsync/pkg/sync"
)

// CurrentVersion is emitted as the (version N) atom when generating a
// fresh schematic with no preserved tree to carry a version forward from
// (spec.md 6: "when creating a fresh project, it emits the current
// supported version").
const CurrentVersion = 20231120

// GenerateSchematic builds an entirely fresh-style .kicad_sch tree from
// sheet, with no preserved tree to reuse. Used by the generate() entry
// point (spec.md 2, "generate: CircuitModel -> KicadWriter -> SexprCodec
// -> files").
func GenerateSchematic(sheet *circuit.Sheet) []byte {
	root := sexpcodec.NewList(
		sexpcodec.NewSymbol("kicad_sch"),
		sexpcodec.NewList(sexpcodec.NewSymbol("version"), sexpcodec.NewInt(CurrentVersion)),
		sexpcodec.NewList(sexpcodec.NewSymbol("generator"), sexpcodec.NewString("kicadsync")),
		sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(sheet.UUID))),
		sexpcodec.NewList(sexpcodec.NewSymbol("paper"), sexpcodec.NewString("A4")),
	)
	for _, c := range sheet.AllComponents() {
		root.Append(freshComponentNode(c))
	}
	for _, l := range sheet.Labels {
		root.Append(freshLabelNode(l))
	}
	for _, w := range sheet.Wires {
		root.Append(freshWireNode(w))
	}
	return sexpcodec.Format(root)
}

// WriteSchematic applies plan to pt, producing the formatted bytes of the
// resulting .kicad_sch. Entities plan does not mention are carried
// forward from pt unchanged (they simply never appear in plan.Ops because
// the synchronizer only emits ops for entities it touched or that need
// explicit preservation as PreserveComponent).
func WriteSchematic(pt *reader.PreservedTree, plan *sync.EditPlan) ([]byte, error) {
	newRoot := sexpcodec.NewList(pt.Root.Items[0]) // reuse "kicad_sch" head symbol by reference
	for _, item := range pt.Root.Items[1:] {
		if list, ok := item.(*sexpcodec.List); ok {
			if head, ok := list.HeadSymbol(); ok {
				switch head {
				case "symbol", "label", "global_label", "hierarchical_label", "wire", "sheet":
					continue // rebuilt below from pt.Order, not carried verbatim here
				}
			}
		}
		newRoot.Append(item)
	}

	removedComponents := make(map[circuit.UUID]bool)
	removedLabels := make(map[circuit.UUID]bool)
	removedSheets := make(map[circuit.UUID]bool)
	updates := make(map[circuit.UUID]map[string]string)
	sheetPortRenames := make(map[circuit.UUID]map[string]string)

	for _, op := range plan.Ops {
		switch v := op.(type) {
		case sync.RemoveComponent:
			removedComponents[v.UUID] = true
		case sync.RemoveLabel:
			removedLabels[v.UUID] = true
		case sync.UpdateComponentAttributes:
			updates[v.UUID] = v.Changes
		case sync.RemoveSheet:
			removedSheets[v.UUID] = true
		case sync.UpdateSheetPort:
			if sheetPortRenames[v.SheetUUID] == nil {
				sheetPortRenames[v.SheetUUID] = make(map[string]string)
			}
			sheetPortRenames[v.SheetUUID][v.PortName] = v.NewName
		}
	}

	for _, uuid := range pt.Order {
		if node, ok := pt.Components[uuid]; ok {
			if removedComponents[uuid] {
				continue
			}
			if changes, ok := updates[uuid]; ok {
				newRoot.Append(partiallyRewrittenComponentNode(node, changes))
			} else {
				newRoot.Append(node) // PreserveComponent: byte-identical reuse
			}
			continue
		}
		if node, ok := pt.Labels[uuid]; ok {
			if !removedLabels[uuid] {
				newRoot.Append(node)
			}
			continue
		}
		if node, ok := pt.Wires[uuid]; ok {
			newRoot.Append(node)
			continue
		}
		if node, ok := pt.Sheets[uuid]; ok {
			if removedSheets[uuid] {
				continue
			}
			if renames, ok := sheetPortRenames[uuid]; ok {
				newRoot.Append(partiallyRewrittenSheetNode(node, renames))
			} else {
				newRoot.Append(node)
			}
			continue
		}
	}

	for _, op := range plan.Ops {
		switch v := op.(type) {
		case sync.InsertComponent:
			newRoot.Append(freshComponentNode(v.Component))
		case sync.InsertLabel:
			newRoot.Append(freshLabelNode(v.Label))
		case sync.InsertSheet:
			newRoot.Append(freshSheetNode(v.Instance))
		}
	}

	out := sexpcodec.Format(newRoot)
	// The trivia before the root's closing paren (typically a newline)
	// belongs to no child node, so it is copied from the original source.
	if n := len(pt.Root.Items); n > 0 && len(out) > 0 {
		closing := pt.Tree.Source[pt.Root.Items[n-1].Span().End : pt.Root.Span().End-1]
		out = append(append(out[:len(out)-1:len(out)-1], closing...), ')')
	}
	out = append(out, pt.Tree.Trailing...)
	return out, nil
}

// partiallyRewrittenComponentNode mirrors original's child order, copying
// every child by reference except the `property` children named in
// changes, which are rebuilt fresh with the new value (spec.md 4.5, tier
// 2: "same child order... copying unchanged grandchildren by reference").
func partiallyRewrittenComponentNode(original *sexpcodec.List, changes map[string]string) *sexpcodec.List {
	out := sexpcodec.NewList()
	for _, item := range original.Items {
		if prop, ok := item.(*sexpcodec.List); ok {
			if head, ok := prop.HeadSymbol(); ok && head == "property" {
				if key, ok := sexpcodec.String(prop, 1); ok {
					if newVal, changed := changes[key]; changed {
						out.Append(rewrittenPropertyNode(prop, newVal))
						continue
					}
				}
			}
		}
		out.Append(item)
	}
	return out
}

// partiallyRewrittenSheetNode mirrors original's child order, rebuilding
// only the `pin` children whose name is a key of renames (spec.md 4.6,
// UpdateSheetPort: "edits a hierarchical port's name... without touching
// the sheet's other entities").
func partiallyRewrittenSheetNode(original *sexpcodec.List, renames map[string]string) *sexpcodec.List {
	out := sexpcodec.NewList()
	for _, item := range original.Items {
		if pin, ok := item.(*sexpcodec.List); ok {
			if head, ok := pin.HeadSymbol(); ok && head == "pin" {
				if name, ok := sexpcodec.String(pin, 1); ok {
					if newName, renamed := renames[name]; renamed {
						out.Append(rewrittenPinNameNode(pin, newName))
						continue
					}
				}
			}
		}
		out.Append(item)
	}
	return out
}

// rewrittenPinNameNode keeps everything about a sheet pin except its name
// atom, which is replaced in fresh style.
func rewrittenPinNameNode(original *sexpcodec.List, newName string) *sexpcodec.List {
	out := sexpcodec.NewList()
	for i, item := range original.Items {
		if i == 1 { // (pin "OldName" shape ...) — index 1 is the name atom
			out.Append(sexpcodec.NewString(newName))
			continue
		}
		out.Append(item)
	}
	return out
}

// rewrittenPropertyNode keeps everything about a property node except its
// value atom, which is replaced in fresh style.
func rewrittenPropertyNode(original *sexpcodec.List, newValue string) *sexpcodec.List {
	out := sexpcodec.NewList()
	for i, item := range original.Items {
		if i == 2 { // (property "Key" "OldValue" ...) — index 2 is the value atom
			out.Append(sexpcodec.NewString(newValue))
			continue
		}
		out.Append(item)
	}
	return out
}

func freshComponentNode(c *circuit.Component) *sexpcodec.List {
	n := sexpcodec.NewList(
		sexpcodec.NewSymbol("symbol"),
		sexpcodec.NewList(sexpcodec.NewSymbol("lib_id"), sexpcodec.NewString(c.LibID)),
		atNode(c.Placement.Position, c.Placement.Rotation),
	)
	if m := c.Placement.Mirror.String(); m != "" {
		n.Append(sexpcodec.NewList(sexpcodec.NewSymbol("mirror"), sexpcodec.NewSymbol(m)))
	}
	n.Append(sexpcodec.NewList(sexpcodec.NewSymbol("unit"), sexpcodec.NewInt(int64(c.Placement.Unit))))
	n.Append(sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(c.UUID))))
	for _, prop := range c.Properties {
		n.Append(sexpcodec.NewList(
			sexpcodec.NewSymbol("property"),
			sexpcodec.NewString(prop.Key),
			sexpcodec.NewString(prop.Value),
			atNode(prop.Position, prop.Angle),
		))
	}
	for _, pin := range c.Pins {
		n.Append(sexpcodec.NewList(sexpcodec.NewSymbol("pin"), sexpcodec.NewString(pin.Number)))
	}
	return n
}

func freshLabelNode(l *circuit.Label) *sexpcodec.List {
	head := "label"
	switch l.Kind {
	case circuit.LabelGlobal:
		head = "global_label"
	case circuit.LabelHierarchical:
		head = "hierarchical_label"
	}
	n := sexpcodec.NewList(
		sexpcodec.NewSymbol(head),
		sexpcodec.NewString(l.Text),
		atNode(l.Position, l.Angle),
		sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(l.UUID))),
	)
	return n
}

func freshWireNode(w *circuit.Wire) *sexpcodec.List {
	pts := sexpcodec.NewList(sexpcodec.NewSymbol("pts"))
	for _, p := range w.Points {
		pts.Append(sexpcodec.NewList(sexpcodec.NewSymbol("xy"), sexpcodec.NewFloat(p.X), sexpcodec.NewFloat(p.Y)))
	}
	return sexpcodec.NewList(
		sexpcodec.NewSymbol("wire"),
		pts,
		sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(w.UUID))),
	)
}

// freshSheetNode builds a (sheet ...) symbol block for a newly inserted
// child sheet instance, in the shape reader.readSheetSymbol expects on
// the next read: position, uuid, Sheetname/Sheetfile properties, and one
// (pin ...) per hierarchical port the child sheet declares.
func freshSheetNode(inst *circuit.SheetInstance) *sexpcodec.List {
	n := sexpcodec.NewList(
		sexpcodec.NewSymbol("sheet"),
		atNode(inst.Position, circuit.Rotation0),
		sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(inst.UUID))),
		sexpcodec.NewList(sexpcodec.NewSymbol("property"), sexpcodec.NewString("Sheetname"), sexpcodec.NewString(inst.Sheet.Name)),
		sexpcodec.NewList(sexpcodec.NewSymbol("property"), sexpcodec.NewString("Sheetfile"), sexpcodec.NewString(inst.Sheet.Filename)),
	)
	for _, port := range inst.Sheet.Ports {
		n.Append(sexpcodec.NewList(
			sexpcodec.NewSymbol("pin"),
			sexpcodec.NewString(port.Name),
			sexpcodec.NewSymbol(port.Electric.String()),
			atNode(port.Position, circuit.Rotation0),
			sexpcodec.NewList(sexpcodec.NewSymbol("uuid"), sexpcodec.NewSymbol(string(port.UUID))),
		))
	}
	return n
}

func atNode(pos circuit.Position, rot circuit.Rotation) *sexpcodec.List {
	return sexpcodec.NewList(
		sexpcodec.NewSymbol("at"),
		sexpcodec.NewFloat(pos.X),
		sexpcodec.NewFloat(pos.Y),
		sexpcodec.NewInt(int64(rot)),
	)
}
