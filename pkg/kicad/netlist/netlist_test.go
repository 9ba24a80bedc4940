package netlist

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
)

func TestExportListsComponentsAndNets(t *testing.T) {
	sheet := circuit.NewSheet("root", "root.kicad_sch")
	p := circuit.NewProject(sheet)

	r1 := &circuit.Component{
		UUID:      circuit.NewUUID(),
		Reference: "R1",
		LibID:     "Device:R",
		Properties: []circuit.Property{
			{Key: circuit.PropValue, Value: "10k"},
			{Key: circuit.PropFootprint, Value: "Resistor_SMD:R_0603"},
		},
		Pins: []circuit.PinConnection{
			{Number: "1", NetName: "VCC"},
			{Number: "2", NetName: "GND"},
		},
	}
	r2 := &circuit.Component{
		UUID:      circuit.NewUUID(),
		Reference: "R2",
		LibID:     "Device:R",
		Properties: []circuit.Property{
			{Key: circuit.PropValue, Value: "47k"},
		},
		Pins: []circuit.PinConnection{
			{Number: "1", NetName: "VCC"},
			{Number: "2", NetName: "GND"},
		},
	}
	if err := p.AddComponent(sheet, r1); err != nil {
		t.Fatal(err)
	}
	if err := p.AddComponent(sheet, r2); err != nil {
		t.Fatal(err)
	}

	out, err := Export(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)

	for _, want := range []string{
		`(ref "R1")`, `(ref "R2")`,
		`(value "10k")`, `(value "47k")`,
		`(footprint "Resistor_SMD:R_0603")`,
		`(name "VCC")`, `(name "GND")`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("expected netlist to contain %s, got:\n%s", want, s)
		}
	}
}

func TestExportOmitsFootprintWhenUnset(t *testing.T) {
	sheet := circuit.NewSheet("root", "root.kicad_sch")
	p := circuit.NewProject(sheet)
	r1 := &circuit.Component{
		UUID:       circuit.NewUUID(),
		Reference:  "R1",
		LibID:      "Device:R",
		Properties: []circuit.Property{{Key: circuit.PropValue, Value: "10k"}},
	}
	if err := p.AddComponent(sheet, r1); err != nil {
		t.Fatal(err)
	}

	out, err := Export(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "footprint") {
		t.Errorf("expected no footprint field when Footprint is unset, got:\n%s", out)
	}
}
