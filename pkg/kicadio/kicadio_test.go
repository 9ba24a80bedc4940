package kicadio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const rootSchematic = `(kicad_sch
  (version 20231120)
  (generator "eeschema")
  (uuid 5f8b1c2a-0000-0000-0000-000000000001)
  (paper "A4")
  (symbol (lib_id "Device:R") (at 100 50 0) (unit 1)
    (uuid 5f8b1c2a-0000-0000-0000-000000000002)
    (property "Reference" "R1" (at 102 48 0))
    (property "Value" "10k" (at 102 52 0))
  )
  (sheet (at 50 50 0)
    (uuid 5f8b1c2a-0000-0000-0000-000000000003)
    (property "Sheetname" "Amp")
    (property "Sheetfile" "Amp.kicad_sch")
  )
)`

const childSchematic = `(kicad_sch
  (version 20231120)
  (generator "eeschema")
  (uuid 5f8b1c2a-0000-0000-0000-000000000010)
  (paper "A4")
  (symbol (lib_id "Device:R") (at 20 20 0) (unit 1)
    (uuid 5f8b1c2a-0000-0000-0000-000000000011)
    (property "Reference" "R2" (at 22 18 0))
    (property "Value" "1k" (at 22 22 0))
  )
)`

const proFile = `(kicad_project)`

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"demo.kicad_pro": proFile,
		"demo.kicad_sch": rootSchematic,
		"Amp.kicad_sch":  childSchematic,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadProjectResolvesHierarchy(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	l, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Project.Root.Components) != 1 {
		t.Fatalf("expected 1 component on root sheet, got %d", len(l.Project.Root.Components))
	}
	if len(l.Project.Root.Children) != 1 {
		t.Fatalf("expected 1 child sheet instance, got %d", len(l.Project.Root.Children))
	}
	child := l.Project.Root.Children[0].Sheet
	if len(child.Components) != 1 || child.Components[0].Reference != "R2" {
		t.Fatalf("expected child sheet to carry R2, got %+v", child.Components)
	}
	if _, ok := l.Sheets["demo.kicad_sch"]; !ok {
		t.Error("expected PreservedTree for root sheet")
	}
	if _, ok := l.Sheets["Amp.kicad_sch"]; !ok {
		t.Error("expected PreservedTree for child sheet")
	}
	if _, ok := l.Opaque["demo.kicad_pro"]; !ok {
		t.Error("expected demo.kicad_pro to be loaded as opaque")
	}
}

func TestSaveProjectRoundTripsUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	l, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}

	report := SaveProject(l, nil, nil)
	if report.Err != nil {
		t.Fatalf("unexpected write errors: %v", report.Err)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("expected no failed files, got %v", report.Failed)
	}

	got, err := os.ReadFile(filepath.Join(dir, "demo.kicad_sch"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != rootSchematic {
		t.Errorf("expected byte-identical round trip for root sheet, got:\n%s", got)
	}

	gotPro, err := os.ReadFile(filepath.Join(dir, "demo.kicad_pro"))
	if err != nil {
		t.Fatal(err)
	}
	if string(gotPro) != proFile {
		t.Errorf("expected byte-identical round trip for opaque .kicad_pro, got:\n%s", gotPro)
	}
}

func TestSaveProjectAppliesFootprintRenames(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	pcb := `(kicad_pcb (footprint "Resistor_SMD:R_0603" (property "Reference" "R1" (at 0 0))))`
	if err := os.WriteFile(filepath.Join(dir, "demo.kicad_pcb"), []byte(pcb), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}

	report := SaveProject(l, nil, map[string]string{"R1": "R10"})
	if report.Err != nil {
		t.Fatalf("unexpected write errors: %v", report.Err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "demo.kicad_pcb"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `"R10"`) {
		t.Errorf("expected renamed footprint reference R10, got:\n%s", got)
	}
}
