package sync

import "github.com/OpenTraceLab/kicadsync/pkg/circuit"

// Apply executes plan against old and returns the resulting sheet. This is
// the in-memory counterpart of the writer's byte-level apply: it is what
// lets the synchronizer's own tests assert on the resulting circuit model
// without round-tripping through the codec (spec.md 6, "apply(EditPlan)
// -> Project").
func Apply(plan *EditPlan, old *circuit.Sheet) *circuit.Sheet {
	byUUID := make(map[circuit.UUID]*circuit.Component)
	for _, c := range old.AllComponents() {
		cp := *c
		cp.Properties = append([]circuit.Property(nil), c.Properties...)
		cp.Pins = append([]circuit.PinConnection(nil), c.Pins...)
		byUUID[c.UUID] = &cp
	}
	removed := make(map[circuit.UUID]bool)
	var inserted []*circuit.Component

	labelByUUID := make(map[circuit.UUID]*circuit.Label)
	for _, l := range old.Labels {
		cp := *l
		labelByUUID[l.UUID] = &cp
	}
	removedLabels := make(map[circuit.UUID]bool)
	var insertedLabels []*circuit.Label

	removedSheets := make(map[circuit.UUID]bool)
	var insertedSheets []*circuit.SheetInstance
	portRenames := make(map[circuit.UUID]map[string]string)
	netRenames := make(map[string]string)

	for _, op := range plan.Ops {
		switch v := op.(type) {
		case PreserveComponent:
			// no-op
		case UpdateComponentAttributes:
			c, ok := byUUID[v.UUID]
			if !ok {
				continue
			}
			if ref, ok := v.Changes[circuit.PropReference]; ok {
				c.Reference = ref
			}
			for key, val := range v.Changes {
				c.SetProperty(key, val)
			}
		case RelinkPin:
			c, ok := byUUID[v.UUID]
			if !ok {
				continue
			}
			if pin, ok := c.Pin(v.PinNumber); ok {
				pin.NetName = v.NewNet
			}
		case InsertComponent:
			inserted = append(inserted, v.Component)
		case RemoveComponent:
			removed[v.UUID] = true
		case InsertLabel:
			insertedLabels = append(insertedLabels, v.Label)
		case RemoveLabel:
			removedLabels[v.UUID] = true
		case MoveLabel:
			if l, ok := labelByUUID[v.UUID]; ok {
				l.Position = v.NewPosition
			}
		case RenameNet:
			for _, l := range labelByUUID {
				if l.Text == v.OldName {
					l.Text = v.NewName
				}
			}
			netRenames[v.OldName] = v.NewName
		case InsertSheet:
			insertedSheets = append(insertedSheets, v.Instance)
		case RemoveSheet:
			removedSheets[v.UUID] = true
		case UpdateSheetPort:
			if portRenames[v.SheetUUID] == nil {
				portRenames[v.SheetUUID] = make(map[string]string)
			}
			portRenames[v.SheetUUID][v.PortName] = v.NewName
		}
	}

	result := &circuit.Sheet{
		UUID:     old.UUID,
		Name:     old.Name,
		Filename: old.Filename,
		Wires:    old.Wires,
		Ports:    old.Ports,
	}
	if len(netRenames) > 0 {
		result.Ports = make([]*circuit.HierarchicalPort, len(old.Ports))
		for i, p := range old.Ports {
			result.Ports[i] = p
			if newName, ok := netRenames[p.Name]; ok {
				pc := *p
				pc.Name = newName
				result.Ports[i] = &pc
			}
		}
	}
	for _, inst := range old.Children {
		if removedSheets[inst.UUID] {
			continue
		}
		renames, ok := portRenames[inst.UUID]
		if !ok {
			result.Children = append(result.Children, inst)
			continue
		}
		childSheet := *inst.Sheet
		childSheet.Ports = make([]*circuit.HierarchicalPort, len(inst.Sheet.Ports))
		for i, p := range inst.Sheet.Ports {
			if newName, renamed := renames[p.Name]; renamed {
				pc := *p
				pc.Name = newName
				childSheet.Ports[i] = &pc
			} else {
				childSheet.Ports[i] = p
			}
		}
		instCopy := *inst
		instCopy.Sheet = &childSheet
		result.Children = append(result.Children, &instCopy)
	}
	result.Children = append(result.Children, insertedSheets...)
	for uuid, c := range byUUID {
		if removed[uuid] {
			continue
		}
		if c.IsPowerSymbol() {
			result.PowerSymbols = append(result.PowerSymbols, c)
		} else {
			result.Components = append(result.Components, c)
		}
	}
	result.Components = append(result.Components, filterNewComponents(inserted, false)...)
	result.PowerSymbols = append(result.PowerSymbols, filterNewComponents(inserted, true)...)

	for uuid, l := range labelByUUID {
		if removedLabels[uuid] {
			continue
		}
		result.Labels = append(result.Labels, l)
	}
	result.Labels = append(result.Labels, insertedLabels...)

	return result
}

func filterNewComponents(cs []*circuit.Component, power bool) []*circuit.Component {
	var out []*circuit.Component
	for _, c := range cs {
		if c.IsPowerSymbol() == power {
			out = append(out, c)
		}
	}
	return out
}
