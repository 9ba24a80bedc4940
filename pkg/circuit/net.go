package circuit

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// Net is a named equivalence class over pins (spec.md 3). Membership is
// never stored on Component; a Net only ever exists as the output of
// (*Project).RebuildNetIndex.
type Net struct {
	Name  string
	Scope NetScope
	Pins  []PinRef
}

// PinRef identifies one pin by the owning component's uuid and the pin's
// verbatim number, rather than by arena index (spec.md 9 suggests a
// ComponentIdx/pin_index arena; a uuid-keyed ref is used instead because
// components are addressed by uuid everywhere else in this model and a
// slice-index arena would invalidate on removal).
type PinRef struct {
	Component UUID
	Pin       string
}

func (r PinRef) String() string { return fmt.Sprintf("%s-%s", r.Component, r.Pin) }

// Warning is a non-fatal issue surfaced by net indexing, validation, or
// synchronization (spec.md 7: "Warnings... accumulate in a Vec<Warning>
// attached to the returned object and do not interrupt the operation").
type Warning struct {
	Message string
}

func (w Warning) String() string { return w.Message }

// NetIndex is the derived connectivity graph: every non-unconnected pin
// resolves to exactly one Net (spec.md 3, 8 "Net coverage").
type NetIndex struct {
	nets    map[string]*Net
	pinNet  map[PinRef]string
	Warnings []Warning
}

// NetNames returns every net name, sorted for deterministic iteration.
func (idx *NetIndex) NetNames() []string {
	names := make([]string, 0, len(idx.nets))
	for name := range idx.nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Net looks up a net by name.
func (idx *NetIndex) Net(name string) (*Net, bool) {
	n, ok := idx.nets[name]
	return n, ok
}

// NetOf reports which net a pin belongs to, if indexed.
func (idx *NetIndex) NetOf(ref PinRef) (string, bool) {
	name, ok := idx.pinNet[ref]
	return name, ok
}

// RebuildNetIndex recomputes the project's NetIndex from scratch and
// overwrites each PinConnection.NetName with the pin's resolved net name
// (spec.md 3, 4.3). It implements the five-step algorithm from spec.md 4.3:
//
//  1. group pins by construction-time net name,
//  2. union with same-text labels,
//  3. promote power-symbol values and global labels to project-wide nets,
//  4. bridge hierarchical ports by name across sheet boundaries,
//  5. assign stable names to anonymous nets.
func (p *Project) RebuildNetIndex() (*NetIndex, error) {
	if err := p.checkHierarchyAcyclic(); err != nil {
		return nil, err
	}

	uf := newUnionFind()
	idx := &NetIndex{nets: make(map[string]*Net), pinNet: make(map[PinRef]string)}

	// Step 1: group pins by the net name assigned at construction time.
	// A pin with NetName == "" is its own singleton group until joined by
	// a label or hierarchical bridge below.
	netNameOf := make(map[PinRef]string)
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			for _, pin := range c.Pins {
				if pin.Electric == ElecUnconnected {
					continue
				}
				ref := PinRef{Component: c.UUID, Pin: pin.Number}
				uf.find(ref.String())
				if pin.NetName != "" {
					netNameOf[ref] = pin.NetName
				}
			}
		}
	}

	// Step 2: union pins that share a construction-time net name.
	byConstructionName := make(map[string][]PinRef)
	for ref, name := range netNameOf {
		byConstructionName[name] = append(byConstructionName[name], ref)
	}
	for _, refs := range byConstructionName {
		for i := 1; i < len(refs); i++ {
			uf.union(refs[0].String(), refs[i].String())
		}
	}

	// Step 2 (continued): union with labels sharing the same text within
	// a sheet. A label joins every pin on its sheet whose construction-
	// time net name equals the label's text (spec.md 4.3 step 2: "all
	// pins... that carry a label of the same text join that net").
	for _, sh := range p.Sheets() {
		for _, lbl := range sh.Labels {
			var matched []PinRef
			for ref, name := range netNameOf {
				if name != lbl.Text {
					continue
				}
				if !sheetOwnsPin(sh, ref, p) {
					continue
				}
				matched = append(matched, ref)
			}
			for i := 1; i < len(matched); i++ {
				uf.union(matched[0].String(), matched[i].String())
			}
		}
	}

	// Step 3: promote power-symbol values and global labels to
	// project-wide names. When two different promoted names land on one
	// group, the first one assigned is kept, with a warning. A promoted
	// name always takes precedence over the group's construction-time
	// (local) name in step 5; a global/local clash is not reported.
	globalGroupName := make(map[string]string) // union-find root -> global name
	for _, sh := range p.Sheets() {
		for _, c := range sh.PowerSymbols {
			value := c.Value()
			if value == "" {
				continue
			}
			for _, pin := range c.Pins {
				ref := PinRef{Component: c.UUID, Pin: pin.Number}
				root := uf.find(ref.String())
				if existing, ok := globalGroupName[root]; ok && existing != value {
					idx.Warnings = append(idx.Warnings, Warning{Message: fmt.Sprintf(
						"power net collision: group already named %q, power symbol %s names %q; keeping %q", existing, c.Reference, value, existing)})
					continue
				}
				globalGroupName[root] = value
			}
		}
		for _, lbl := range sh.Labels {
			if lbl.Kind != LabelGlobal {
				continue
			}
			for ref, name := range netNameOf {
				if name != lbl.Text || !sheetOwnsPin(sh, ref, p) {
					continue
				}
				root := uf.find(ref.String())
				if existing, ok := globalGroupName[root]; ok && existing != lbl.Text {
					idx.Warnings = append(idx.Warnings, Warning{Message: fmt.Sprintf(
						"global label collision: group already named %q, global label names %q; keeping %q", existing, lbl.Text, existing)})
					continue
				}
				globalGroupName[root] = lbl.Text
			}
		}
	}

	// Step 4: hierarchical ports named N on a sheet bridge to nets named
	// N inside that sheet's child instances, unioning the parent-side
	// group with every pin the child resolves to that name.
	for _, sh := range p.Sheets() {
		for _, port := range sh.Ports {
			parentRoot := groupKeyForName(netNameOf, uf, sh, port.Name, p)
			for _, inst := range sh.Children {
				childRoot := groupKeyForName(netNameOf, uf, inst.Sheet, port.Name, p)
				if parentRoot != "" && childRoot != "" {
					uf.union(parentRoot, childRoot)
				}
			}
		}
	}

	// Step 5: assign final names. Groups with a promoted global name use
	// it; groups with a plain construction-time name use the
	// lexicographically first one seen; fully anonymous groups get
	// Net-({RefA-PinA}) using the lexicographically smallest pin ref.
	groupRefs := make(map[string][]PinRef)
	for ref := range netNameOf {
		root := uf.find(ref.String())
		groupRefs[root] = append(groupRefs[root], ref)
	}
	// Also include pins that never got a construction-time name at all
	// (still need to appear as their own singleton anonymous nets).
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			for _, pin := range c.Pins {
				if pin.Electric == ElecUnconnected {
					continue
				}
				ref := PinRef{Component: c.UUID, Pin: pin.Number}
				root := uf.find(ref.String())
				if _, ok := groupRefs[root]; !ok {
					groupRefs[root] = append(groupRefs[root], ref)
				}
			}
		}
	}

	for root, refs := range groupRefs {
		var name string
		scope := ScopeLocal
		if g, ok := globalGroupName[root]; ok {
			name = g
			scope = ScopeGlobal
		} else if constructed := firstConstructedName(refs, netNameOf); constructed != "" {
			name = constructed
		} else {
			name = anonymousNetName(refs)
		}
		net, exists := idx.nets[name]
		if !exists {
			net = &Net{Name: name, Scope: scope}
			idx.nets[name] = net
		}
		net.Pins = append(net.Pins, refs...)
		for _, ref := range refs {
			idx.pinNet[ref] = name
		}
	}

	// Publish the resolved net names back onto each PinConnection
	// (component.go's PinConnection doc comment).
	for _, sh := range p.Sheets() {
		for _, c := range sh.AllComponents() {
			for i := range c.Pins {
				ref := PinRef{Component: c.UUID, Pin: c.Pins[i].Number}
				if name, ok := idx.pinNet[ref]; ok {
					c.Pins[i].NetName = name
				}
			}
		}
	}

	p.index = idx
	return idx, nil
}

// NetIndex returns the cached NetIndex, rebuilding it if the project has
// been structurally mutated since the last build.
func (p *Project) NetIndex() (*NetIndex, error) {
	if p.index != nil {
		return p.index, nil
	}
	return p.RebuildNetIndex()
}

func sheetOwnsPin(sh *Sheet, ref PinRef, p *Project) bool {
	for _, c := range sh.AllComponents() {
		if c.UUID == ref.Component {
			return true
		}
	}
	return false
}

// groupKeyForName returns the union-find root for some pin in sheet whose
// construction-time net name equals name, or "" if none is found.
func groupKeyForName(netNameOf map[PinRef]string, uf *unionFind, sh *Sheet, name string, p *Project) string {
	for ref, n := range netNameOf {
		if n != name {
			continue
		}
		if !sheetOwnsPin(sh, ref, p) {
			continue
		}
		return uf.find(ref.String())
	}
	return ""
}

func firstConstructedName(refs []PinRef, netNameOf map[PinRef]string) string {
	var names []string
	for _, ref := range refs {
		if n, ok := netNameOf[ref]; ok && n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// anonymousNetName names a group Net-(<uuid>-<pin>) after the
// lexicographically smallest PinRef string in the group (spec.md 4.3
// step 5). The component's uuid stands where KiCad's own names use the
// reference designator.
func anonymousNetName(refs []PinRef) string {
	strs := make([]string, len(refs))
	for i, r := range refs {
		strs[i] = r.String()
	}
	sort.Strings(strs)
	return fmt.Sprintf("Net-(%s)", strs[0])
}

// checkHierarchyAcyclic walks the sheet tree with a dense bitset marking
// visited/in-progress sheets, the constant-memory way to do cycle
// detection over an integer-indexed graph (spec.md 3: "the graph of
// nets×sheets×ports is acyclic with respect to hierarchy").
func (p *Project) checkHierarchyAcyclic() error {
	sheets := p.Sheets()
	indexOf := make(map[UUID]uint)
	for i, sh := range sheets {
		indexOf[sh.UUID] = uint(i)
	}
	visited := bitset.New(uint(len(sheets)))
	inStack := bitset.New(uint(len(sheets)))

	var walk func(sh *Sheet) error
	walk = func(sh *Sheet) error {
		i := indexOf[sh.UUID]
		if inStack.Test(i) {
			return &ErrInvariantViolation{Description: fmt.Sprintf("hierarchy cycle detected at sheet %q", sh.Name)}
		}
		if visited.Test(i) {
			return nil
		}
		visited.Set(i)
		inStack.Set(i)
		for _, inst := range sh.Children {
			if err := walk(inst.Sheet); err != nil {
				return err
			}
		}
		inStack.Clear(i)
		return nil
	}
	return walk(p.Root)
}

// ErrInvariantViolation indicates a bug in the caller's construction of
// the model, never an expected user-facing failure (spec.md 7,
// ErrorKind::InvariantViolation: "surfaced, never swallowed").
type ErrInvariantViolation struct {
	Description string
}

func (e *ErrInvariantViolation) Error() string {
	return "invariant violation: " + e.Description
}

// unionFind is a plain union-by-rank/path-compression disjoint-set over
// string keys, used to group pins and labels into net-equivalence
// classes before final naming.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string), rank: make(map[string]int)}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
