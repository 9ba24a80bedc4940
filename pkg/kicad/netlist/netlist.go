// Package netlist renders a circuit.Project's net index into KiCad's
// `.net` S-expression format, the fixed (export (components ...) (nets
// ...)) shape EDA/PCB tools consume downstream (spec.md 6: "the writer
// MAY additionally render a .net netlist export in KiCad's own netlist
// S-expression format"). Unlike the schematic writer, a netlist has no
// preserved counterpart to diff against: it is always built fresh from
// the current circuit model.
package netlist

import (
	"sort"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/sexpcodec"
)

// FormatVersion is the netlist format version KiCad's own eeschema
// exporter currently emits.
const FormatVersion = "E"

// Export derives a `.net` document from p's current components and net
// index. It rebuilds the net index if the project has been mutated since
// the last build, so callers never need to call RebuildNetIndex
// themselves first.
func Export(p *circuit.Project) ([]byte, error) {
	idx, err := p.NetIndex()
	if err != nil {
		return nil, err
	}

	root := sexpcodec.NewList(
		sexpcodec.NewSymbol("export"),
		sexpcodec.NewList(sexpcodec.NewSymbol("version"), sexpcodec.NewString(FormatVersion)),
	)
	byUUID := make(map[circuit.UUID]*circuit.Component)
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			byUUID[c.UUID] = c
		}
	}

	root.Append(designNode(p))
	root.Append(componentsNode(p))
	root.Append(netsNode(idx, byUUID))

	return sexpcodec.Format(root), nil
}

// designNode carries the project's title-block metadata, the only part
// of Metadata a downstream PCB tool reads out of a netlist.
func designNode(p *circuit.Project) *sexpcodec.List {
	return sexpcodec.NewList(
		sexpcodec.NewSymbol("design"),
		sexpcodec.NewList(sexpcodec.NewSymbol("source"), sexpcodec.NewString(p.Root.Filename)),
		sexpcodec.NewList(sexpcodec.NewSymbol("date"), sexpcodec.NewString(p.Metadata.Date)),
		sexpcodec.NewList(sexpcodec.NewSymbol("tool"), sexpcodec.NewString("kicadsync")),
	)
}

// componentsNode lists every non-power component across every sheet, in
// reference order, each annotated with its value and footprint
// (spec.md 6's footprint reference-designator sync depends on a PCB tool
// being able to look a ref up here).
func componentsNode(p *circuit.Project) *sexpcodec.List {
	node := sexpcodec.NewList(sexpcodec.NewSymbol("components"))
	var all []*circuit.Component
	for _, sh := range p.Sheets() {
		all = append(all, sh.Components...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Reference < all[j].Reference })
	for _, c := range all {
		comp := sexpcodec.NewList(
			sexpcodec.NewSymbol("comp"),
			sexpcodec.NewList(sexpcodec.NewSymbol("ref"), sexpcodec.NewString(c.Reference)),
			sexpcodec.NewList(sexpcodec.NewSymbol("value"), sexpcodec.NewString(c.Value())),
		)
		if fp := c.Footprint(); fp != "" {
			comp.Append(sexpcodec.NewList(sexpcodec.NewSymbol("footprint"), sexpcodec.NewString(fp)))
		}
		node.Append(comp)
	}
	return node
}

// netsNode lists every net in the index, each with a stable numeric code
// (assigned in sorted-name order, since circuit.NetIndex itself does not
// number nets) and one (node (ref ...) (pin ...)) per connected pin.
func netsNode(idx *circuit.NetIndex, byUUID map[circuit.UUID]*circuit.Component) *sexpcodec.List {
	node := sexpcodec.NewList(sexpcodec.NewSymbol("nets"))
	names := idx.NetNames()
	for code, name := range names {
		net, ok := idx.Net(name)
		if !ok {
			continue
		}
		n := sexpcodec.NewList(
			sexpcodec.NewSymbol("net"),
			sexpcodec.NewList(sexpcodec.NewSymbol("code"), sexpcodec.NewInt(int64(code+1))),
			sexpcodec.NewList(sexpcodec.NewSymbol("name"), sexpcodec.NewString(name)),
		)
		pins := append([]circuit.PinRef(nil), net.Pins...)
		sort.Slice(pins, func(i, j int) bool { return pins[i].String() < pins[j].String() })
		for _, ref := range pins {
			comp, ok := byUUID[ref.Component]
			if !ok {
				continue
			}
			n.Append(sexpcodec.NewList(
				sexpcodec.NewSymbol("node"),
				sexpcodec.NewList(sexpcodec.NewSymbol("ref"), sexpcodec.NewString(comp.Reference)),
				sexpcodec.NewList(sexpcodec.NewSymbol("pin"), sexpcodec.NewString(ref.Pin)),
			))
		}
		node.Append(n)
	}
	return node
}
