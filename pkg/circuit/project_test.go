package circuit

import "testing"

func TestAddSheetRegistersInstanceAndIndex(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)
	amp := NewSheet("Amp", "Amp.kicad_sch")

	inst, err := p.AddSheet(root, amp, Position{X: 50, Y: 50})
	if err != nil {
		t.Fatal(err)
	}
	if inst.Sheet != amp {
		t.Fatal("expected instance to reference the child sheet")
	}
	if _, ok := p.SheetByUUID(amp.UUID); !ok {
		t.Fatal("expected child sheet to be indexed by uuid")
	}
	if len(p.Sheets()) != 2 {
		t.Fatalf("expected 2 sheets reachable, got %d", len(p.Sheets()))
	}
}

func TestRemoveComponentInvalidatesNetIndex(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)
	r1 := newTestComponent("R1", "Device:R", "10k",
		PinConnection{Number: "1", NetName: "VCC", Electric: ElecPassive})
	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}
	if _, err := p.NetIndex(); err != nil {
		t.Fatal(err)
	}

	p.RemoveComponent(root, r1)
	idx, err := p.NetIndex()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.Net("VCC"); ok {
		t.Error("expected VCC net to be gone after its only member was removed")
	}
}

func TestValidateWarnsOnUnplacedComponent(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)
	r1 := newTestComponent("R1", "Device:R", "10k",
		PinConnection{Number: "1", Electric: ElecPassive})
	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}

	warnings, err := p.Validate()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range warnings {
		if w.Message != "" && w.Message == `component "R1" placed at origin; external placement required` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unplaced-component warning, got %v", warnings)
	}
}

func TestValidateWarnsOnMissingValue(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)
	r1 := &Component{UUID: NewUUID(), Reference: "R1", LibID: "Device:R", Placement: Placement{Assigned: true}}
	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}

	warnings, err := p.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for a component with no value")
	}
}
