package driver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"autoplugin/internal/ctxlog"
	"autoplugin/internal/diag"
	"autoplugin/internal/pipeline"
	"autoplugin/internal/scan"
	"autoplugin/internal/state"
	"autoplugin/internal/synth"
)

// OutputStatus tells what happened to the generated file of a package.
type OutputStatus uint8

const (
	// OutputNone means the package has no plugin entry and no old output.
	OutputNone OutputStatus = iota
	OutputUnchanged
	OutputWritten
	// OutputRemoved means an old generated file was deleted.
	OutputRemoved
	// OutputStale means check mode found the file out of date.
	OutputStale
	// OutputSkipped means errors in the package prevented generation.
	OutputSkipped
)

func (s OutputStatus) String() string {
	switch s {
	case OutputUnchanged:
		return "unchanged"
	case OutputWritten:
		return "written"
	case OutputRemoved:
		return "removed"
	case OutputStale:
		return "stale"
	case OutputSkipped:
		return "skipped"
	}
	return "none"
}

// PackageResult describes one package directory after the pass.
type PackageResult struct {
	Dir      string
	Package  string
	Mode     scan.EntryKind
	Units    []state.Unit
	Routines []synth.Routine
	Output   string
	Content  []byte
	Status   OutputStatus
}

func (p *Pass) generate(ctx context.Context, ps *pkgState) PackageResult {
	log := ctxlog.FromContext(ctx)
	out := filepath.Join(ps.dir, p.opts.output())
	res := PackageResult{
		Dir:      ps.rel,
		Package:  ps.name,
		Mode:     ps.mode,
		Units:    ps.units,
		Routines: ps.routines,
		Output:   out,
	}
	outRel := p.rel(out)

	if p.packageHasErrors(ps) {
		res.Status = OutputSkipped
		return res
	}

	if len(ps.routines) == 0 {
		if !isGenerated(out) {
			return res
		}
		if p.opts.Check {
			ps.bag.Add(diag.NewUnit(diag.SevError, diag.GenStale, outRel,
				fmt.Sprintf("%s is no longer needed, run autoplugin generate", outRel)))
			res.Status = OutputStale
			return res
		}
		if err := os.Remove(out); err != nil {
			ps.bag.Add(diag.NewUnit(diag.SevError, diag.IOWriteFileError, outRel, err.Error()))
			return res
		}
		log.Info("removed stale generated file", "file", outRel)
		res.Status = OutputRemoved
		return res
	}

	for _, fr := range ps.files {
		pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageGenerate, Status: pipeline.StatusWorking})
	}
	file := synth.File{Package: ps.name, APIImport: p.opts.APIImport, Routines: ps.routines}
	content, err := file.Generate()
	if err != nil {
		code := diag.GenFormatFailed
		if errors.Is(err, synth.ErrImportConflict) || errors.Is(err, synth.ErrRoutineClash) {
			code = diag.GenConflict
		}
		ps.bag.Add(diag.NewUnit(diag.SevError, code, string(ps.unit), err.Error()))
		res.Status = OutputSkipped
		return res
	}
	res.Content = content

	existing, err := os.ReadFile(out)
	if err == nil && bytes.Equal(existing, content) {
		res.Status = OutputUnchanged
		return res
	}
	if p.opts.Check {
		ps.bag.Add(diag.NewUnit(diag.SevError, diag.GenStale, outRel,
			fmt.Sprintf("%s is out of date, run autoplugin generate", outRel)))
		res.Status = OutputStale
		return res
	}
	if err := os.WriteFile(out, content, 0o644); err != nil {
		ps.bag.Add(diag.NewUnit(diag.SevError, diag.IOWriteFileError, outRel, err.Error()))
		res.Status = OutputSkipped
		return res
	}
	log.Info("wrote generated file", "file", outRel, "routines", len(ps.routines))
	res.Status = OutputWritten
	return res
}

func (p *Pass) packageHasErrors(ps *pkgState) bool {
	if ps.bag.HasErrors() {
		return true
	}
	for _, fr := range ps.files {
		if fr.bag.HasErrors() {
			return true
		}
	}
	return false
}

// isGenerated reports whether path exists and starts with the generated
// code header.
func isGenerated(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		_ = f.Close()
	}()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return bytes.Equal(bytes.TrimRight([]byte(line), "\r\n"), []byte(synth.Header))
}
