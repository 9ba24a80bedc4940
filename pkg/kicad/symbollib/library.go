package symbollib

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/OpenTraceLab/kicadsync/pkg/sexpcodec"
)

// Library resolves lib_id references to SymbolDefinitions, loading
// .kicad_sym files lazily and caching by (path, content hash) so a file
// is only ever parsed once per distinct content within a session
// (spec.md 4.2). The read-often/write-rarely discipline described there
// is a plain sync.RWMutex: many goroutines may call Lookup concurrently,
// but loading a not-yet-seen library takes the exclusive lock just long
// enough to parse it and publish the result.
type Library struct {
	searchPaths []string

	mu      sync.RWMutex
	byLibID map[string]*SymbolDefinition // "Device:R" -> definition
	byCache map[string]bool              // (path, hash) keys already merged in
}

// NewLibrary constructs an empty Library that will search searchPaths (in
// order) for .kicad_sym files when a lib_id is first requested from each
// library name.
func NewLibrary(searchPaths []string) *Library {
	return &Library{
		searchPaths: searchPaths,
		byLibID:     make(map[string]*SymbolDefinition),
		byCache:     make(map[string]bool),
	}
}

// ErrLibraryNotFound is returned by Lookup when no .kicad_sym file could
// be found for the library named in a lib_id (spec.md 4.2,
// ErrorKind::LibraryNotFound).
type ErrLibraryNotFound struct {
	LibID         string
	SearchedPaths []string
}

func (e *ErrLibraryNotFound) Error() string {
	return fmt.Sprintf("library not found for %q (searched: %s)", e.LibID, strings.Join(e.SearchedPaths, ", "))
}

// Lookup resolves a "library:symbol" lib_id to its SymbolDefinition,
// loading and caching the owning .kicad_sym file on first use.
func (l *Library) Lookup(libID string) (*SymbolDefinition, error) {
	l.mu.RLock()
	if def, ok := l.byLibID[libID]; ok {
		l.mu.RUnlock()
		return def, nil
	}
	l.mu.RUnlock()

	libName, _, ok := splitLibID(libID)
	if !ok {
		return nil, fmt.Errorf("malformed lib_id %q: expected \"library:symbol\"", libID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Another goroutine may have loaded it while we waited for the lock.
	if def, ok := l.byLibID[libID]; ok {
		return def, nil
	}

	path, data, err := l.findAndRead(libName)
	if err != nil {
		return nil, &ErrLibraryNotFound{LibID: libID, SearchedPaths: l.searchPaths}
	}

	cacheKey := path + "#" + contentHash(data)
	if !l.byCache[cacheKey] {
		defs, err := parseSymbolLibrary(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		for name, def := range defs {
			l.byLibID[libName+":"+name] = def
		}
		l.byCache[cacheKey] = true
	}

	def, ok := l.byLibID[libID]
	if !ok {
		return nil, &ErrLibraryNotFound{LibID: libID, SearchedPaths: l.searchPaths}
	}
	return def, nil
}

func (l *Library) findAndRead(libName string) (string, []byte, error) {
	for _, dir := range l.searchPaths {
		path := dir + "/" + libName + ".kicad_sym"
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
	}
	return "", nil, fmt.Errorf("no .kicad_sym found for %q", libName)
}

func splitLibID(libID string) (lib, symbol string, ok bool) {
	i := strings.IndexByte(libID, ':')
	if i < 0 {
		return "", "", false
	}
	return libID[:i], libID[i+1:], true
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// parseSymbolLibrary parses a .kicad_sym file's bytes into its symbol
// definitions, keyed by bare symbol name (no library prefix). Field
// extraction follows the teacher's schematic.parseLibSymbol /
// parseSymbolUnit / parsePin (pkg/kicad/schematic/parser.go), adapted to
// sexpcodec.Node and to standalone library files (top-level
// `(kicad_symbol_lib ...)` rather than an embedded `lib_symbols` block).
func parseSymbolLibrary(data []byte) (map[string]*SymbolDefinition, error) {
	tree, err := sexpcodec.Parse(data)
	if err != nil {
		return nil, err
	}
	root := tree.Root
	if h, ok := root.(*sexpcodec.List); ok {
		if head, _ := h.HeadSymbol(); head != "kicad_symbol_lib" {
			return nil, fmt.Errorf("not a KiCad symbol library: root is %q", head)
		}
	}

	out := make(map[string]*SymbolDefinition)
	for _, symNode := range sexpcodec.Fields(root, "symbol") {
		def := parseSymbolDefinition(symNode)
		name := def.LibID
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[i+1:]
		}
		out[name] = def
	}
	return out, nil
}

func parseSymbolDefinition(node *sexpcodec.List) *SymbolDefinition {
	def := &SymbolDefinition{}
	def.LibID, _ = sexpcodec.String(node, 1)

	for _, prop := range sexpcodec.Fields(node, "property") {
		key, _ := sexpcodec.String(prop, 1)
		val, _ := sexpcodec.String(prop, 2)
		if key == "Footprint" {
			def.DefaultFootprint = val
		}
	}

	units := sexpcodec.Fields(node, "symbol")
	if len(units) == 0 {
		// Single-unit symbols sometimes inline pins directly rather than
		// nesting a child "symbol" unit.
		collectPins(node, 1, def)
		def.UnitCount = 1
		return def
	}
	maxUnit := 0
	for _, unit := range units {
		unitNum := unitSuffixNumber(unit)
		if unitNum > maxUnit {
			maxUnit = unitNum
		}
		collectPins(unit, unitNum, def)
	}
	if maxUnit == 0 {
		maxUnit = 1
	}
	def.UnitCount = maxUnit
	return def
}

// unitSuffixNumber extracts the unit number from a unit symbol's name,
// which KiCad writes as "<name>_<unit>_<style>", e.g. "R_1_1".
func unitSuffixNumber(unit *sexpcodec.List) int {
	name, _ := sexpcodec.String(unit, 1)
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 1
	}
	n, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || n == 0 {
		return 1
	}
	return n
}

func collectPins(node *sexpcodec.List, unit int, def *SymbolDefinition) {
	for _, pinNode := range sexpcodec.Fields(node, "pin") {
		pin := PinDef{Unit: unit}
		pin.Electric, _ = sexpcodec.String(pinNode, 1)

		if at, ok := sexpcodec.Field(pinNode, "at"); ok {
			x, _ := sexpcodec.Float(at, 1)
			y, _ := sexpcodec.Float(at, 2)
			angle, _ := sexpcodec.Float(at, 3)
			pin.Position = Position{X: x, Y: y}
			pin.Angle = angle
		}
		if name, ok := sexpcodec.Field(pinNode, "name"); ok {
			pin.Name, _ = sexpcodec.String(name, 1)
		}
		if number, ok := sexpcodec.Field(pinNode, "number"); ok {
			pin.Number, _ = sexpcodec.String(number, 1)
		}
		def.pins = append(def.pins, pin)
	}
}
