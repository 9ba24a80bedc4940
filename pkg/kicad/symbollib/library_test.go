package symbollib

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleResistorLib = `(kicad_symbol_lib (version 20231120) (generator kicad_symbol_editor)
  (symbol "Device:R"
    (property "Reference" "R" (at 2.032 0 90))
    (property "Value" "R" (at 0 0 90))
    (property "Footprint" "Resistor_SMD:R_0603_1608Metric" (at -1.778 0 90))
    (symbol "R_0_1"
      (rectangle (start -1.016 -2.54) (end 1.016 2.54))
    )
    (symbol "R_1_1"
      (pin passive line (at 0 3.81 270) (length 1.27)
        (name "1") (number "1"))
      (pin passive line (at 0 -3.81 90) (length 1.27)
        (name "2") (number "2"))
    )
  )
)`

func TestLookupResolvesSymbolAndPins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Device.kicad_sym"), []byte(sampleResistorLib), 0o644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary([]string{dir})
	def, err := lib.Lookup("Device:R")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if def.UnitCount != 1 {
		t.Errorf("expected UnitCount 1, got %d", def.UnitCount)
	}
	if def.DefaultFootprint != "Resistor_SMD:R_0603_1608Metric" {
		t.Errorf("unexpected default footprint: %q", def.DefaultFootprint)
	}
	if def.PinCount() != 2 {
		t.Fatalf("expected 2 pins, got %d", def.PinCount())
	}
	p1, ok := def.Pin("1")
	if !ok || p1.Electric != "passive" {
		t.Errorf("pin 1 = %+v, ok=%v", p1, ok)
	}
}

func TestLookupMissingLibrary(t *testing.T) {
	lib := NewLibrary([]string{t.TempDir()})
	_, err := lib.Lookup("Nonexistent:Thing")
	if err == nil {
		t.Fatal("expected error for missing library")
	}
	var notFound *ErrLibraryNotFound
	if !asErrLibraryNotFound(err, &notFound) {
		t.Fatalf("expected *ErrLibraryNotFound, got %T", err)
	}
}

func asErrLibraryNotFound(err error, target **ErrLibraryNotFound) bool {
	if e, ok := err.(*ErrLibraryNotFound); ok {
		*target = e
		return true
	}
	return false
}

func TestCacheAvoidsReparsing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Device.kicad_sym"), []byte(sampleResistorLib), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := NewLibrary([]string{dir})
	d1, err := lib.Lookup("Device:R")
	if err != nil {
		t.Fatal(err)
	}
	d2, err := lib.Lookup("Device:R")
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Error("expected cached lookup to return the same *SymbolDefinition")
	}
}
