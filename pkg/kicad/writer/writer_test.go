package writer

import (
	"strings"
	"testing"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/reader"
	"github.com/OpenTraceLab/kicadsync/pkg/sync"
)

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
)`

func TestWriteSchematicPreservesUnchangedComponentByteForByte(t *testing.T) {
	sheet, pt, err := reader.ReadSchematic([]byte(sampleSchematic))
	if err != nil {
		t.Fatal(err)
	}
	// A plan that only preserves the sheet's one component.
	plan := &sync.EditPlan{Ops: []sync.Op{sync.PreserveComponent{UUID: sheet.Components[0].UUID}}}

	out, err := WriteSchematic(pt, plan)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != sampleSchematic {
		t.Errorf("expected byte-identical round trip, got:\n%s", out)
	}
}

func TestWriteSchematicRewritesOnlyChangedProperty(t *testing.T) {
	sheet, pt, err := reader.ReadSchematic([]byte(sampleSchematic))
	if err != nil {
		t.Fatal(err)
	}
	plan := &sync.EditPlan{Ops: []sync.Op{sync.UpdateComponentAttributes{
		UUID:    sheet.Components[0].UUID,
		Changes: map[string]string{circuit.PropValue: "47k"},
	}}}

	out, err := WriteSchematic(pt, plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), `"47k"`) {
		t.Errorf("expected new value 47k in output, got:\n%s", out)
	}
	if !strings.Contains(string(out), `(at 102 52 0)`) {
		t.Errorf("expected the Value property's original position to survive unchanged, got:\n%s", out)
	}
	if !strings.Contains(string(out), `"R1"`) {
		t.Errorf("expected Reference property untouched, got:\n%s", out)
	}
}

func TestWriteSchematicAppendsInsertedComponent(t *testing.T) {
	_, pt, err := reader.ReadSchematic([]byte(sampleSchematic))
	if err != nil {
		t.Fatal(err)
	}
	r2 := &circuit.Component{
		UUID:      circuit.NewUUID(),
		Reference: "R2",
		LibID:     "Device:R",
		Placement: circuit.Placement{Assigned: true, Position: circuit.Position{X: 150, Y: 50}},
		Properties: []circuit.Property{
			{Key: circuit.PropReference, Value: "R2"},
			{Key: circuit.PropValue, Value: "47k"},
		},
	}
	plan := &sync.EditPlan{Ops: []sync.Op{
		sync.PreserveComponent{},
		sync.InsertComponent{Component: r2},
	}}

	out, err := WriteSchematic(pt, plan)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "Device:R") || !strings.Contains(string(out), `"R2"`) {
		t.Errorf("expected inserted R2 symbol in output, got:\n%s", out)
	}
}
