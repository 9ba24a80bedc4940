// Package kicadio is the thin orchestration layer spec.md 6 names
// load_project/save_project: it resolves a KiCad project directory's
// files into a circuit.Project (recursively following hierarchical sheet
// references across files), and commits writes back to disk atomically,
// file by file.
package kicadio

import (
	"fmt"

	"github.com/OpenTraceLab/kicadsync/pkg/sexpcodec"
)

// OpaqueFile is a file the core round-trips through the codec without
// structural interpretation (spec.md 6: ".kicad_pcb... treated as opaque
// for the core's purposes", ".kicad_pro... read and rewritten in preserve
// mode", plus sym-lib-table/fp-lib-table, which share the same S-expression
// grammar). Loading one costs nothing beyond a parse; saving it unmodified
// reproduces the source byte for byte because nothing inside ever becomes
// fresh.
type OpaqueFile struct {
	Path string
	Tree *sexpcodec.Tree
}

// loadOpaque parses path's contents as a bare S-expression document,
// without interpreting any of its structure.
func loadOpaque(path string, data []byte) (*OpaqueFile, error) {
	tree, err := sexpcodec.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &OpaqueFile{Path: path, Tree: tree}, nil
}

// Bytes renders o back to its current (possibly rewritten) form.
func (o *OpaqueFile) Bytes() []byte {
	return sexpcodec.FormatTree(o.Tree)
}

// RenameFootprintReferences rewrites every `(property "Reference" V)` (or
// legacy `(fp_text reference V ...)`) footprint designator inside a
// `.kicad_pcb` OpaqueFile according to renames (old ref -> new ref),
// leaving every other footprint untouched (spec.md 6: "Only component
// footprint reference designators may be updated in sync with schematic
// renames"). Footprints whose current reference is not a key of renames
// are left exactly as parsed, including their original bytes.
//
// A parsed node that nothing touches formats by re-slicing its original
// byte span (sexpcodec/format.go), so mutating a (property ...) list's
// Items in place would be invisible to Format: the unchanged ancestor
// would still just copy its original bytes verbatim. Renaming therefore
// rebuilds a fresh wrapper at every level from the changed leaf up to the
// root — the same tier-2 partial-rewrite technique kicad/writer uses for
// changed component properties — reusing every untouched sibling node by
// reference.
func (o *OpaqueFile) RenameFootprintReferences(renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	root, ok := o.Tree.Root.(*sexpcodec.List)
	if !ok {
		return
	}
	if rewritten, changed := rewriteFootprints(root, renames); changed {
		o.Tree.Root = rewritten
	}
}

// rewriteFootprints mirrors root's child order, rebuilding only the
// `footprint` children that contain a renamed reference.
func rewriteFootprints(root *sexpcodec.List, renames map[string]string) (*sexpcodec.List, bool) {
	changed := false
	out := sexpcodec.NewList()
	for _, item := range root.Items {
		if fp, ok := item.(*sexpcodec.List); ok {
			if head, ok := fp.HeadSymbol(); ok && head == "footprint" {
				if rewritten, didChange := renameOneFootprint(fp, renames); didChange {
					out.Append(rewritten)
					changed = true
					continue
				}
			}
		}
		out.Append(item)
	}
	return out, changed
}

// renameOneFootprint rebuilds fp's child order, replacing only the
// reference-designator node(s) named in renames.
func renameOneFootprint(fp *sexpcodec.List, renames map[string]string) (*sexpcodec.List, bool) {
	changed := false
	out := sexpcodec.NewList()
	for _, item := range fp.Items {
		list, ok := item.(*sexpcodec.List)
		if !ok {
			out.Append(item)
			continue
		}
		head, _ := list.HeadSymbol()
		switch head {
		case "property":
			if key, ok := sexpcodec.String(list, 1); ok && key == "Reference" {
				if old, ok := sexpcodec.String(list, 2); ok {
					if newRef, renamed := renames[old]; renamed {
						out.Append(rewriteValueAtom(list, newRef))
						changed = true
						continue
					}
				}
			}
		case "fp_text":
			if kind, ok := sexpcodec.String(list, 1); ok && kind == "reference" {
				if old, ok := sexpcodec.String(list, 2); ok {
					if newRef, renamed := renames[old]; renamed {
						out.Append(rewriteValueAtom(list, newRef))
						changed = true
						continue
					}
				}
			}
		}
		out.Append(item)
	}
	return out, changed
}

// rewriteValueAtom rebuilds a two-headed node ((head key OLD ...)) with
// its value atom (index 2) replaced, mirroring every other child by
// reference — the same shape (property "Reference" V) and (fp_text
// reference V) both share.
func rewriteValueAtom(original *sexpcodec.List, newValue string) *sexpcodec.List {
	out := sexpcodec.NewList()
	for i, item := range original.Items {
		if i == 2 {
			out.Append(sexpcodec.NewString(newValue))
			continue
		}
		out.Append(item)
	}
	return out
}
