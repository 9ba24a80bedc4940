package kicadio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/reader"
)

// opaqueNames are the project-directory files the core round-trips
// without interpreting, when present (spec.md 6).
var opaqueNames = []string{"kicad_pcb", "kicad_pro", "sym-lib-table", "fp-lib-table"}

// Loaded bundles a circuit.Project with everything SaveProject needs to
// write it back: the PreservedTree for every .kicad_sch page, keyed by
// its filename relative to Dir, and every opaque passthrough file found
// alongside it.
type Loaded struct {
	Project *circuit.Project
	Dir     string

	Sheets map[string]*reader.PreservedTree
	Opaque map[string]*OpaqueFile
}

// LoadProject reads the root schematic in dir into a circuit.Project,
// recursively resolving hierarchical sheet references across .kicad_sch
// files, and loads the opaque files named in opaqueNames
// (spec.md 6, "Persisted state layout"; programmatic surface
// "load_project(dir) -> Project | ErrorKind").
func LoadProject(dir string) (*Loaded, error) {
	rootFile, err := findRootSchematic(dir)
	if err != nil {
		return nil, err
	}

	l := &Loaded{
		Dir:    dir,
		Sheets: make(map[string]*reader.PreservedTree),
		Opaque: make(map[string]*OpaqueFile),
	}

	root, err := loadSheetRecursive(dir, rootFile, l.Sheets, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	l.Project = circuit.NewProjectFromTree(root)

	for _, name := range opaqueNames {
		var path string
		switch name {
		case "sym-lib-table", "fp-lib-table":
			path = matchByExactName(dir, name)
		default:
			path = matchByExtension(dir, name)
		}
		if path == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			return nil, &ErrIO{Path: path, Cause: err}
		}
		opq, err := loadOpaque(path, data)
		if err != nil {
			return nil, err
		}
		l.Opaque[path] = opq
	}

	return l, nil
}

// loadSheetRecursive reads filename and every (sheet ...) page it
// transitively references, guarding against the same file being visited
// twice in one branch (a hierarchy cycle, which RebuildNetIndex would
// also reject, but failing fast here gives a clearer path in the error).
func loadSheetRecursive(dir, filename string, sheets map[string]*reader.PreservedTree, visiting map[string]bool) (*circuit.Sheet, error) {
	if visiting[filename] {
		return nil, &circuit.ErrInvariantViolation{Description: fmt.Sprintf("hierarchy cycle revisits %q", filename)}
	}
	visiting[filename] = true
	defer delete(visiting, filename)

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return nil, &ErrIO{Path: filename, Cause: err}
	}
	sheet, pt, err := reader.ReadSchematic(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	sheet.Filename = filename
	sheets[filename] = pt

	for _, ref := range pt.SheetRefs {
		if ref.Filename == "" {
			continue
		}
		child, err := loadSheetRecursive(dir, ref.Filename, sheets, visiting)
		if err != nil {
			return nil, err
		}
		child.Name = ref.Name
		sheet.Children = append(sheet.Children, &circuit.SheetInstance{
			UUID:     ref.UUID,
			Sheet:    child,
			Position: ref.Position,
			Page:     ref.Name,
		})
	}
	return sheet, nil
}

// findRootSchematic locates the root page: the .kicad_sch sharing a base
// name with the directory's .kicad_pro file, falling back to the sole
// .kicad_sch present when no .kicad_pro exists.
func findRootSchematic(dir string) (string, error) {
	if pro := matchByExtension(dir, "kicad_pro"); pro != "" {
		root := strings.TrimSuffix(pro, filepath.Ext(pro)) + ".kicad_sch"
		if _, err := os.Stat(filepath.Join(dir, root)); err == nil {
			return root, nil
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &ErrIO{Path: dir, Cause: err}
	}
	var schematics []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".kicad_sch") {
			schematics = append(schematics, e.Name())
		}
	}
	if len(schematics) == 1 {
		return schematics[0], nil
	}
	return "", fmt.Errorf("cannot determine root schematic in %s: found %d .kicad_sch files", dir, len(schematics))
}

// matchByExtension returns the first directory entry whose name ends in
// "."+ext, or "" if none exists.
func matchByExtension(dir, ext string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), "."+ext) {
			return e.Name()
		}
	}
	return ""
}

// matchByExactName returns the first directory entry named exactly name
// (sym-lib-table and fp-lib-table carry no file extension), or "" if none
// exists.
func matchByExactName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		return name
	}
	return ""
}

// ErrIO wraps a filesystem failure with the path that caused it
// (spec.md 7, ErrorKind::IoError).
type ErrIO struct {
	Path  string
	Cause error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("io error on %s: %v", e.Path, e.Cause)
}

func (e *ErrIO) Unwrap() error { return e.Cause }
