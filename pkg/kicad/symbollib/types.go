// Package symbollib loads KiCad .kicad_sym library files and resolves
// lib_id references ("Device:R") to symbol definitions: pin layout, unit
// count, default footprint (spec.md 4.2).
//
// It is deliberately independent of package circuit: a SymbolDefinition
// describes a library's own textual pin types exactly as KiCad writes
// them ("input", "power_in", ...) rather than circuit.ElectricalType, so
// that neither package needs to import the other. Callers that need a
// circuit.ElectricalType translate the text with
// circuit.ParseElectricalType.
package symbollib

// PinDef is one pin on a library symbol, exactly as declared in the
// .kicad_sym file.
type PinDef struct {
	Number   string
	Name     string
	Electric string // KiCad's own pin-type text: input, output, power_in, ...
	Position Position
	Angle    float64
	Unit     int // which symbol unit this pin belongs to (1..N)
}

// Position is a 2D coordinate in millimeters.
type Position struct {
	X, Y float64
}

// SymbolDefinition is everything the synchronizer and writer need to know
// about a library symbol: how many units it has, what its pins are, and
// what footprint a freshly-placed instance should default to.
type SymbolDefinition struct {
	LibID            string // "Device:R"
	UnitCount        int
	DefaultFootprint string
	pins             []PinDef
}

// Pins returns the symbol's pins in declaration order.
func (s *SymbolDefinition) Pins() []PinDef {
	return s.pins
}

// PinCount returns the number of pins across all units.
func (s *SymbolDefinition) PinCount() int {
	return len(s.pins)
}

// Pin looks up a pin by its verbatim number string.
func (s *SymbolDefinition) Pin(number string) (PinDef, bool) {
	for _, p := range s.pins {
		if p.Number == number {
			return p, true
		}
	}
	return PinDef{}, false
}
