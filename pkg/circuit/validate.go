package circuit

import "fmt"

// Validate checks a Project's invariants and returns accumulated warnings
// without adding, removing or editing any entity; if no net index is
// cached it builds one, which republishes each pin's NetName (spec.md 6:
// "a validate() -> Vec<Warning>"
// supplement to the programmatic surface). Fatal structural problems
// (hierarchy cycles) are returned as an error; everything else becomes a
// Warning so a caller can inspect a freshly-built Project before ever
// calling sync.
func (p *Project) Validate() ([]Warning, error) {
	var warnings []Warning

	seenRefs := make(map[string]bool)
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			if seenRefs[c.Reference] {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("duplicate reference %q", c.Reference)})
			}
			seenRefs[c.Reference] = true

			if !c.IsPowerSymbol() && c.Value() == "" {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("component %q has no value", c.Reference)})
			}
			if c.IsPowerSymbol() && c.Value() == "" {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("power symbol %q names no net", c.Reference)})
			}
			if !c.Placement.Assigned {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("component %q placed at origin; external placement required", c.Reference)})
			}
		}

		seenPortNames := make(map[string]int)
		for _, port := range sh.Ports {
			seenPortNames[port.Name]++
		}
		for _, inst := range sh.Children {
			for _, childPort := range inst.Sheet.Ports {
				if seenPortNames[childPort.Name] == 0 {
					warnings = append(warnings, Warning{Message: fmt.Sprintf(
						"hierarchical port %q on sheet %q has no matching parent-side port on %q", childPort.Name, inst.Sheet.Name, sh.Name)})
				}
			}
		}
	}

	if _, err := p.checkHierarchyAcyclicCopy(); err != nil {
		return warnings, err
	}

	idx, err := p.NetIndex()
	if err != nil {
		return warnings, err
	}
	warnings = append(warnings, idx.Warnings...)

	return warnings, nil
}

// checkHierarchyAcyclicCopy re-exposes the acyclicity check used inside
// RebuildNetIndex so Validate can run it without forcing a full net
// rebuild first.
func (p *Project) checkHierarchyAcyclicCopy() (struct{}, error) {
	return struct{}{}, p.checkHierarchyAcyclic()
}
