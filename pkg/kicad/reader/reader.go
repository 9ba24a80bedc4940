// Package reader lifts a parsed KiCad schematic S-expression tree into the
// canonical circuit model, recording a PreservedTree link back to every
// entity's originating subtree so the writer can reuse untouched bytes
// (spec.md 4.4). Token handling is structural: only the tokens the core
// modifies are interpreted; any other top-level list stays uninterpreted
// in PreservedTree.Root, from which the writer copies it through.
//
// Grounded on the teacher's pkg/kicad/schematic/parser.go (parseSymbols,
// parseLabels, parseSheets, ...), generalized from sexp.FindNode/FindAllNode
// to sexpcodec.Field/Fields and from a flat per-file Schematic struct to
// circuit.Sheet entries inside the shared Project graph.
package reader

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/sexpcodec"
)

// MinSupportedVersion is the oldest schematic file-format version this
// reader accepts (KiCad 6.0), matching the teacher's own floor
// (pkg/kicad/schematic/parser.go MinSupportedVersion).
const MinSupportedVersion = 20211014

// PreservedTree is the untouched parsed tree retained alongside a lifted
// Sheet, plus indices from entity uuid back to the originating subtree
// (spec.md 3, "PreservedTree").
type PreservedTree struct {
	Tree    *sexpcodec.Tree
	Root    *sexpcodec.List
	Version int64

	Components map[circuit.UUID]*sexpcodec.List
	Labels     map[circuit.UUID]*sexpcodec.List
	Sheets     map[circuit.UUID]*sexpcodec.List
	Wires      map[circuit.UUID]*sexpcodec.List

	// Order is the document order of every recognised top-level entity,
	// by uuid, so the writer can emit unchanged entities in original
	// order (spec.md 5, "writer emits entities in the original
	// S-expression order of old").
	Order []circuit.UUID

	// SheetRefs describes every (sheet ...) symbol on this page: the
	// child .kicad_sch this page instantiates, by filename, plus the
	// hierarchical ports it exposes. The child's own content lives in a
	// separate file (spec.md 6, "Persisted state layout"), so resolving
	// and recursively reading it is the orchestrator's job
	// (pkg/kicadio), not this package's.
	SheetRefs []SheetRef
}

// SheetRef is one (sheet ...) instantiation on a page: enough to locate
// and load the child file and to register a circuit.SheetInstance once
// it has been read.
type SheetRef struct {
	UUID     circuit.UUID
	Name     string
	Filename string
	Position circuit.Position
	Ports    []*circuit.HierarchicalPort
}

// ReadSchematic parses source as a .kicad_sch file and lifts it into a
// circuit.Sheet, returning the PreservedTree link needed for
// format-preserving writes.
func ReadSchematic(source []byte) (*circuit.Sheet, *PreservedTree, error) {
	tree, err := sexpcodec.Parse(source)
	if err != nil {
		return nil, nil, err
	}
	root, ok := tree.Root.(*sexpcodec.List)
	if !ok {
		return nil, nil, fmt.Errorf("malformed schematic: root is not a list")
	}
	if head, _ := root.HeadSymbol(); head != "kicad_sch" {
		return nil, nil, fmt.Errorf("not a KiCad schematic file: expected 'kicad_sch', got %q", head)
	}

	pt := &PreservedTree{
		Tree:       tree,
		Root:       root,
		Components: make(map[circuit.UUID]*sexpcodec.List),
		Labels:     make(map[circuit.UUID]*sexpcodec.List),
		Sheets:     make(map[circuit.UUID]*sexpcodec.List),
		Wires:      make(map[circuit.UUID]*sexpcodec.List),
	}

	if verNode, ok := sexpcodec.Field(root, "version"); ok {
		if v, ok := sexpcodec.Int(verNode, 1); ok {
			pt.Version = v
			if v < MinSupportedVersion {
				return nil, nil, fmt.Errorf("unsupported KiCad schematic version: %d (minimum required: %d)", v, MinSupportedVersion)
			}
		}
	}

	sheet := &circuit.Sheet{Filename: ""}
	if uuidNode, ok := sexpcodec.Field(root, "uuid"); ok {
		if s, ok := sexpcodec.String(uuidNode, 1); ok {
			sheet.UUID = circuit.UUID(s)
		}
	}
	if sheet.UUID == "" {
		sheet.UUID = circuit.NewUUID()
	}

	for _, symNode := range sexpcodec.Fields(root, "symbol") {
		c := readComponent(symNode)
		if c.IsPowerSymbol() {
			sheet.PowerSymbols = append(sheet.PowerSymbols, c)
		} else {
			sheet.Components = append(sheet.Components, c)
		}
		pt.Components[c.UUID] = symNode
		pt.Order = append(pt.Order, c.UUID)
	}

	for _, ln := range sexpcodec.Fields(root, "label") {
		l := readLabel(ln, circuit.LabelLocal)
		sheet.Labels = append(sheet.Labels, l)
		pt.Labels[l.UUID] = ln
		pt.Order = append(pt.Order, l.UUID)
	}
	for _, ln := range sexpcodec.Fields(root, "global_label") {
		l := readLabel(ln, circuit.LabelGlobal)
		sheet.Labels = append(sheet.Labels, l)
		pt.Labels[l.UUID] = ln
		pt.Order = append(pt.Order, l.UUID)
	}
	for _, ln := range sexpcodec.Fields(root, "hierarchical_label") {
		l := readLabel(ln, circuit.LabelHierarchical)
		sheet.Labels = append(sheet.Labels, l)
		pt.Labels[l.UUID] = ln
		pt.Order = append(pt.Order, l.UUID)
	}

	for _, wn := range sexpcodec.Fields(root, "wire") {
		w := readWire(wn)
		sheet.Wires = append(sheet.Wires, w)
		pt.Wires[w.UUID] = wn
		pt.Order = append(pt.Order, w.UUID)
	}

	for _, sn := range sexpcodec.Fields(root, "sheet") {
		ref := readSheetSymbol(sn)
		sheet.Ports = append(sheet.Ports, ref.Ports...)
		pt.SheetRefs = append(pt.SheetRefs, ref)
		// The (sheet ...) node itself is not the child sheet's content
		// (that lives in a separate file, per spec.md 6); it is recorded
		// by uuid so the writer can preserve the sheet-instance block.
		if ref.UUID != "" {
			pt.Sheets[ref.UUID] = sn
			pt.Order = append(pt.Order, ref.UUID)
		}
	}

	// The loops above collect entities kind by kind; sort them back into
	// the order their nodes appear in the source.
	startOf := make(map[circuit.UUID]int, len(pt.Order))
	for _, m := range []map[circuit.UUID]*sexpcodec.List{pt.Components, pt.Labels, pt.Wires, pt.Sheets} {
		for id, n := range m {
			startOf[id] = n.Span().Start
		}
	}
	sort.SliceStable(pt.Order, func(i, j int) bool { return startOf[pt.Order[i]] < startOf[pt.Order[j]] })

	return sheet, pt, nil
}

func readComponent(node *sexpcodec.List) *circuit.Component {
	c := &circuit.Component{}

	if libNode, ok := sexpcodec.Field(node, "lib_id"); ok {
		c.LibID, _ = sexpcodec.String(libNode, 1)
	}
	if uuidNode, ok := sexpcodec.Field(node, "uuid"); ok {
		s, _ := sexpcodec.String(uuidNode, 1)
		c.UUID = circuit.UUID(s)
	}
	if c.UUID == "" {
		c.UUID = circuit.NewUUID()
	}

	c.Placement = readPlacement(node)

	for _, pn := range sexpcodec.Fields(node, "property") {
		c.Properties = append(c.Properties, readProperty(pn))
	}
	for i := range c.Properties {
		if c.Properties[i].Key == circuit.PropReference {
			c.Reference = c.Properties[i].Value
		}
	}

	for _, pinNode := range sexpcodec.Fields(node, "pin") {
		number, _ := sexpcodec.String(pinNode, 1)
		c.Pins = append(c.Pins, circuit.PinConnection{Number: number})
	}

	return c
}

func readPlacement(node *sexpcodec.List) circuit.Placement {
	var p circuit.Placement
	if at, ok := sexpcodec.Field(node, "at"); ok {
		x, _ := sexpcodec.Float(at, 1)
		y, _ := sexpcodec.Float(at, 2)
		angle, _ := sexpcodec.Float(at, 3)
		p.Position = circuit.Position{X: x, Y: y}
		p.Rotation = circuit.ParseRotation(int(angle))
		p.Assigned = true
	}
	if mirrorNode, ok := sexpcodec.Field(node, "mirror"); ok {
		s, _ := sexpcodec.String(mirrorNode, 1)
		p.Mirror = circuit.ParseMirror(s)
	}
	if unitNode, ok := sexpcodec.Field(node, "unit"); ok {
		u, _ := sexpcodec.Int(unitNode, 1)
		p.Unit = int(u)
	} else {
		p.Unit = 1
	}
	return p
}

func readProperty(node *sexpcodec.List) circuit.Property {
	prop := circuit.Property{}
	prop.Key, _ = sexpcodec.String(node, 1)
	prop.Value, _ = sexpcodec.String(node, 2)
	if idNode, ok := sexpcodec.Field(node, "id"); ok {
		id, _ := sexpcodec.Int(idNode, 1)
		prop.ID = int(id)
	}
	if at, ok := sexpcodec.Field(node, "at"); ok {
		x, _ := sexpcodec.Float(at, 1)
		y, _ := sexpcodec.Float(at, 2)
		angle, _ := sexpcodec.Float(at, 3)
		prop.Position = circuit.Position{X: x, Y: y}
		prop.Angle = circuit.ParseRotation(int(angle))
	}
	if effects, ok := sexpcodec.Field(node, "effects"); ok {
		prop.Hidden = hasSymbol(effects, "hide")
	}
	return prop
}

func readLabel(node *sexpcodec.List, kind circuit.LabelKind) *circuit.Label {
	l := &circuit.Label{Kind: kind}
	l.Text, _ = sexpcodec.String(node, 1)
	if uuidNode, ok := sexpcodec.Field(node, "uuid"); ok {
		s, _ := sexpcodec.String(uuidNode, 1)
		l.UUID = circuit.UUID(s)
	}
	if l.UUID == "" {
		l.UUID = circuit.NewUUID()
	}
	if at, ok := sexpcodec.Field(node, "at"); ok {
		x, _ := sexpcodec.Float(at, 1)
		y, _ := sexpcodec.Float(at, 2)
		angle, _ := sexpcodec.Float(at, 3)
		l.Position = circuit.Position{X: x, Y: y}
		l.Angle = circuit.ParseRotation(int(angle))
	}
	if effects, ok := sexpcodec.Field(node, "effects"); ok {
		if justify, ok := sexpcodec.Field(effects, "justify"); ok {
			if h, ok := sexpcodec.String(justify, 1); ok {
				l.Justify.Horizontal = h
			}
			l.Justify.Mirror = hasSymbol(justify, "mirror")
		}
	}
	return l
}

func readWire(node *sexpcodec.List) *circuit.Wire {
	w := &circuit.Wire{}
	if uuidNode, ok := sexpcodec.Field(node, "uuid"); ok {
		s, _ := sexpcodec.String(uuidNode, 1)
		w.UUID = circuit.UUID(s)
	}
	if w.UUID == "" {
		w.UUID = circuit.NewUUID()
	}
	if pts, ok := sexpcodec.Field(node, "pts"); ok {
		for _, xy := range sexpcodec.Fields(pts, "xy") {
			x, _ := sexpcodec.Float(xy, 1)
			y, _ := sexpcodec.Float(xy, 2)
			w.Points = append(w.Points, circuit.Position{X: x, Y: y})
		}
	}
	return w
}

// readSheetSymbol lifts one (sheet ...) block: the hierarchical ports it
// declares plus enough of its own identity (uuid, name, child filename,
// position) for the orchestrator to resolve and load the child page.
func readSheetSymbol(node *sexpcodec.List) SheetRef {
	ref := SheetRef{}
	if uuidNode, ok := sexpcodec.Field(node, "uuid"); ok {
		s, _ := sexpcodec.String(uuidNode, 1)
		ref.UUID = circuit.UUID(s)
	}
	if at, ok := sexpcodec.Field(node, "at"); ok {
		x, _ := sexpcodec.Float(at, 1)
		y, _ := sexpcodec.Float(at, 2)
		ref.Position = circuit.Position{X: x, Y: y}
	}
	for _, pn := range sexpcodec.Fields(node, "property") {
		key, _ := sexpcodec.String(pn, 1)
		value, _ := sexpcodec.String(pn, 2)
		switch key {
		case "Sheetname":
			ref.Name = value
		case "Sheetfile":
			ref.Filename = value
		}
	}
	for _, pinNode := range sexpcodec.Fields(node, "pin") {
		port := &circuit.HierarchicalPort{UUID: circuit.NewUUID()}
		port.Name, _ = sexpcodec.String(pinNode, 1)
		shape, _ := sexpcodec.String(pinNode, 2)
		port.Electric = circuit.ParseElectricalType(shape)
		if at, ok := sexpcodec.Field(pinNode, "at"); ok {
			x, _ := sexpcodec.Float(at, 1)
			y, _ := sexpcodec.Float(at, 2)
			port.Position = circuit.Position{X: x, Y: y}
		}
		if uuidNode, ok := sexpcodec.Field(pinNode, "uuid"); ok {
			s, _ := sexpcodec.String(uuidNode, 1)
			if s != "" {
				port.UUID = circuit.UUID(s)
			}
		}
		ref.Ports = append(ref.Ports, port)
	}
	return ref
}

// hasSymbol reports whether any direct child atom of n is the bare,
// unquoted symbol name (spec.md 9's typed node API replacing runtime
// type checks: this is the one allowed structural probe).
func hasSymbol(n sexpcodec.Node, name string) bool {
	l, ok := n.(*sexpcodec.List)
	if !ok {
		return false
	}
	for _, item := range l.Items {
		if a, ok := item.(*sexpcodec.Atom); ok && !a.Quoted && a.Text == name {
			return true
		}
	}
	return false
}
