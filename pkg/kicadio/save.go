package kicadio

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/writer"
	"github.com/OpenTraceLab/kicadsync/pkg/sync"
)

// WriteReport enumerates which files a SaveProject call touched and which
// it did not, so a caller can tell a clean save from a partial one
// (spec.md 7: "the WriteReport enumerates which files were and were not
// touched").
type WriteReport struct {
	Written []string
	Failed  []string
	Err     error
}

// SaveProject writes every sheet in l back to its .kicad_sch file,
// applying plans[filename] if present (spec.md 4.6, "writer emits
// entities in the original order... inserted entities appended in new
// order"), then rewrites every opaque passthrough file — renaming
// footprint references on the .kicad_pcb when footprintRenames is
// non-empty. A sheet with no plan is rewritten with every component
// preserved.
//
// Per spec.md 7's failure semantics, a fatal error during plan
// construction must prevent any write; by the time SaveProject runs, that
// decision has already been made by the caller, so SaveProject's own
// failure mode is strictly an IoError partway through an otherwise
// sound plan: every file is attempted, each one that fails is reported
// Failed and the rest Written.
func SaveProject(l *Loaded, plans map[string]*sync.EditPlan, footprintRenames map[string]string) *WriteReport {
	report := &WriteReport{}

	for filename, pt := range l.Sheets {
		plan := plans[filename]
		if plan == nil {
			plan = &sync.EditPlan{}
			for uuid := range pt.Components {
				plan.Ops = append(plan.Ops, sync.PreserveComponent{UUID: uuid})
			}
		}
		out, err := writer.WriteSchematic(pt, plan)
		if err != nil {
			report.Failed = append(report.Failed, filename)
			report.Err = multierr.Append(report.Err, &ErrIO{Path: filename, Cause: err})
			continue
		}
		if err := writeAtomic(filepath.Join(l.Dir, filename), out); err != nil {
			report.Failed = append(report.Failed, filename)
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		report.Written = append(report.Written, filename)
	}

	for path, opq := range l.Opaque {
		if len(footprintRenames) > 0 && filepath.Ext(path) == ".kicad_pcb" {
			opq.RenameFootprintReferences(footprintRenames)
		}
		if err := writeAtomic(filepath.Join(l.Dir, path), opq.Bytes()); err != nil {
			report.Failed = append(report.Failed, path)
			report.Err = multierr.Append(report.Err, err)
			continue
		}
		report.Written = append(report.Written, path)
	}

	return report
}

// writeAtomic writes data to path by first writing to a sibling temp file
// and renaming it into place, so a crash mid-write never leaves a
// truncated project file on disk (spec.md 5, "Commit ... atomic per
// file").
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &ErrIO{Path: path, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ErrIO{Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &ErrIO{Path: path, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &ErrIO{Path: path, Cause: err}
	}
	return nil
}
