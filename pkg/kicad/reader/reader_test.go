package reader

import "testing"

const sampleSchematic = `(kicad_sch
  (version 20231120)
  (generator "eeschema")
  (uuid 5f8b1c2a-0000-0000-0000-000000000001)
  (paper "A4")
  (symbol (lib_id "Device:R") (at 100 50 0) (unit 1)
    (uuid 5f8b1c2a-0000-0000-0000-000000000002)
    (property "Reference" "R1" (at 102 48 0))
    (property "Value" "10k" (at 102 52 0))
  )
  (symbol (lib_id "power:VCC") (at 100 20 0) (unit 1)
    (uuid 5f8b1c2a-0000-0000-0000-000000000003)
    (property "Reference" "#PWR01" (at 100 18 0))
    (property "Value" "VCC" (at 100 22 0))
  )
  (wire (pts (xy 100 50) (xy 120 50))
    (uuid 5f8b1c2a-0000-0000-0000-000000000004)
  )
  (global_label "VCC" (shape input) (at 100 20 0)
    (uuid 5f8b1c2a-0000-0000-0000-000000000005)
  )
)`

func TestReadSchematicLiftsComponentsAndPreservesTree(t *testing.T) {
	sheet, pt, err := ReadSchematic([]byte(sampleSchematic))
	if err != nil {
		t.Fatalf("ReadSchematic: %v", err)
	}
	if len(sheet.Components) != 1 {
		t.Fatalf("expected 1 ordinary component, got %d", len(sheet.Components))
	}
	if len(sheet.PowerSymbols) != 1 {
		t.Fatalf("expected 1 power symbol, got %d", len(sheet.PowerSymbols))
	}
	r1 := sheet.Components[0]
	if r1.Reference != "R1" || r1.Value() != "10k" {
		t.Errorf("unexpected R1: reference=%q value=%q", r1.Reference, r1.Value())
	}
	if !r1.Placement.Assigned || r1.Placement.Position.X != 100 {
		t.Errorf("unexpected placement: %+v", r1.Placement)
	}

	if _, ok := pt.Components[r1.UUID]; !ok {
		t.Error("expected a PreservedTree entry for R1's uuid")
	}

	if len(sheet.Wires) != 1 {
		t.Fatalf("expected 1 wire, got %d", len(sheet.Wires))
	}
	if len(sheet.Labels) != 1 || sheet.Labels[0].Text != "VCC" {
		t.Fatalf("expected 1 global label VCC, got %+v", sheet.Labels)
	}
	if pt.Version != 20231120 {
		t.Errorf("expected version 20231120, got %d", pt.Version)
	}
}

func TestReadSchematicRejectsUnsupportedVersion(t *testing.T) {
	src := `(kicad_sch (version 20200101))`
	_, _, err := ReadSchematic([]byte(src))
	if err == nil {
		t.Fatal("expected an error for an unsupported version")
	}
}

func TestReadSchematicRejectsWrongRoot(t *testing.T) {
	src := `(kicad_pcb (version 20231120))`
	_, _, err := ReadSchematic([]byte(src))
	if err == nil {
		t.Fatal("expected an error for a non-schematic root")
	}
}
