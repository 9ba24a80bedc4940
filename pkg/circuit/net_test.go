package circuit

import "testing"

func newTestComponent(ref, libID, value string, pins ...PinConnection) *Component {
	return &Component{
		UUID:       NewUUID(),
		Reference:  ref,
		LibID:      libID,
		Properties: []Property{{Key: PropValue, Value: value}},
		Pins:       pins,
	}
}

func TestNetIndexGroupsPinsByConstructionName(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)

	r1 := newTestComponent("R1", "Device:R", "10k",
		PinConnection{Number: "1", NetName: "VCC", Electric: ElecPassive},
		PinConnection{Number: "2", NetName: "GND", Electric: ElecPassive})
	r2 := newTestComponent("R2", "Device:R", "47k",
		PinConnection{Number: "1", NetName: "VCC", Electric: ElecPassive},
		PinConnection{Number: "2", NetName: "GND", Electric: ElecPassive})

	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}
	if err := p.AddComponent(root, r2); err != nil {
		t.Fatal(err)
	}

	idx, err := p.RebuildNetIndex()
	if err != nil {
		t.Fatal(err)
	}

	vcc, ok := idx.Net("VCC")
	if !ok {
		t.Fatal("expected VCC net")
	}
	if len(vcc.Pins) != 2 {
		t.Errorf("expected 2 pins on VCC, got %d", len(vcc.Pins))
	}

	gnd, ok := idx.Net("GND")
	if !ok {
		t.Fatal("expected GND net")
	}
	if len(gnd.Pins) != 2 {
		t.Errorf("expected 2 pins on GND, got %d", len(gnd.Pins))
	}

	if r1.Pins[0].NetName != "VCC" {
		t.Errorf("expected r1 pin 1 NetName to be published as VCC, got %q", r1.Pins[0].NetName)
	}
}

func TestNetIndexPromotesPowerSymbolToGlobalNet(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)

	r1 := newTestComponent("R1", "Device:R", "10k",
		PinConnection{Number: "1", NetName: "VCC", Electric: ElecPassive})
	pwr := newTestComponent("#PWR01", "power:VCC", "VCC",
		PinConnection{Number: "1", NetName: "VCC", Electric: ElecPowerIn})

	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}
	if err := p.AddComponent(root, pwr); err != nil {
		t.Fatal(err)
	}

	idx, err := p.RebuildNetIndex()
	if err != nil {
		t.Fatal(err)
	}
	net, ok := idx.Net("VCC")
	if !ok {
		t.Fatal("expected VCC net")
	}
	if net.Scope != ScopeGlobal {
		t.Errorf("expected VCC net to be promoted to global scope, got %v", net.Scope)
	}
}

func TestNetIndexAssignsAnonymousNetName(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)

	r1 := newTestComponent("R1", "Device:R", "10k",
		PinConnection{Number: "1", Electric: ElecPassive})

	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}

	idx, err := p.RebuildNetIndex()
	if err != nil {
		t.Fatal(err)
	}
	expected := "Net-(" + string(r1.UUID) + "-1)"
	if _, ok := idx.Net(expected); !ok {
		names := idx.NetNames()
		t.Fatalf("expected anonymous net %q, have %v", expected, names)
	}
}

func TestHierarchyCycleDetected(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)
	child := NewSheet("child", "child.kicad_sch")

	if _, err := p.AddSheet(root, child, Position{}); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AddSheet(child, root, Position{}); err == nil {
		t.Fatal("expected cycle error when instantiating root under its own child")
	}
}

func TestReferenceUniquenessEnforced(t *testing.T) {
	root := NewSheet("root", "root.kicad_sch")
	p := NewProject(root)

	r1 := newTestComponent("R1", "Device:R", "10k")
	r1dup := newTestComponent("R1", "Device:R", "1k")

	if err := p.AddComponent(root, r1); err != nil {
		t.Fatal(err)
	}
	err := p.AddComponent(root, r1dup)
	if err == nil {
		t.Fatal("expected reference conflict error")
	}
	if _, ok := err.(*ErrReferenceConflict); !ok {
		t.Errorf("expected *ErrReferenceConflict, got %T", err)
	}
}
