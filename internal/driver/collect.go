package driver

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode"
	"unicode/utf8"

	"autoplugin/internal/diag"
	"autoplugin/internal/resolve"
	"autoplugin/internal/scan"
	"autoplugin/internal/source"
	"autoplugin/internal/state"
	"autoplugin/internal/synth"
)

const (
	defaultInitName = "initAutoPlugin"
	defaultApp      = "app"
	fileInitSuffix  = "AutoPlugin"
)

type pkgState struct {
	dir      string
	rel      string
	unit     state.Unit
	name     string
	files    []*fileResult
	mode     scan.EntryKind
	entries  []entryRef
	routines []synth.Routine
	units    []state.Unit
	// names are the top-level identifiers of the whole package.
	names []string
	bag   *diag.Bag
}

type entryRef struct {
	file  *fileResult
	entry *scan.Entry
}

// collect feeds every file of one package into the store. Files are
// visited in path order so duplicate reports do not depend on timing.
func (p *Pass) collect(ps *pkgState) {
	var scanned []*fileResult
	for _, fr := range ps.files {
		if fr.res == nil {
			continue
		}
		if ps.name == "" {
			ps.name = fr.res.Package
		}
		if fr.res.Package != ps.name {
			diag.ReportError(diag.BagReporter{Bag: fr.bag}, diag.ScanGoSyntax, source.Span{File: fr.id},
				fmt.Sprintf("package %s does not match package %s of %s", fr.res.Package, ps.name, ps.unit)).Emit()
			continue
		}
		scanned = append(scanned, fr)
		ps.names = append(ps.names, fr.res.Names...)
	}

	ps.mode = packageMode(scanned)
	switch ps.mode {
	case scan.EntryFunc:
		for _, fr := range scanned {
			p.collectFile(ps, fr)
		}
	default:
		ps.mode = scan.EntryPackage
		for _, fr := range scanned {
			p.collectIntoPackage(ps, ps.unit, fr)
		}
		if _, ok := p.Store.Peek(ps.unit); ok || len(ps.entries) > 0 {
			ps.units = append(ps.units, ps.unit)
		}
	}
}

// packageMode is EntryPackage as soon as one file annotates its package
// clause, EntryFunc when only functions carry plugin markers.
func packageMode(files []*fileResult) scan.EntryKind {
	mode := scan.EntryKind(0)
	for _, fr := range files {
		switch fr.res.Mode() {
		case scan.EntryPackage:
			return scan.EntryPackage
		case scan.EntryFunc:
			mode = scan.EntryFunc
		}
	}
	return mode
}

func (p *Pass) collectIntoPackage(ps *pkgState, unit state.Unit, fr *fileResult) {
	reporter := diag.BagReporter{Bag: fr.bag}
	r := resolve.New(fr.res.Imports, ps.names, reporter)
	for i := range fr.res.Tuples {
		p.contribute(unit, r, &fr.res.Tuples[i], reporter)
	}
	for i := range fr.res.Entries {
		e := &fr.res.Entries[i]
		if e.Kind == scan.EntryFunc {
			diag.ReportError(reporter, diag.ScanConflictingMode, e.Site,
				fmt.Sprintf("plugin function %s conflicts with the package plugin marker of %s", e.Func, ps.unit)).Emit()
			continue
		}
		ps.entries = append(ps.entries, entryRef{file: fr, entry: e})
	}
}

// collectFile processes one file as its own unit, in source order: a
// marker below the plugin function reaches an already finalized unit.
func (p *Pass) collectFile(ps *pkgState, fr *fileResult) {
	steps := fr.res.Steps()
	if len(steps) == 0 {
		return
	}
	unit := state.Unit(fr.rel)
	ps.units = append(ps.units, unit)
	reporter := diag.BagReporter{Bag: fr.bag}
	r := resolve.New(fr.res.Imports, ps.names, reporter)
	for _, step := range steps {
		if step.Tuple != nil {
			p.contribute(unit, r, step.Tuple, reporter)
			continue
		}
		name := fileRoutineName(step.Entry.Func)
		if rt, ok := p.finalize(unit, step.Entry, name, reporter); ok {
			ps.routines = append(ps.routines, rt)
		}
	}
}

// fileRoutineName is the default routine of a file unit. It stays
// unexported whatever the case of the plugin function.
func fileRoutineName(fn string) string {
	r, size := utf8.DecodeRuneInString(fn)
	return string(unicode.ToLower(r)) + fn[size:] + fileInitSuffix
}

// packageUnits names the package unit of every directory. The pass root
// is named after its directory, unless a subdirectory already uses that
// name.
func packageUnits(root string, rels []string) []state.Unit {
	rootUnit := state.Unit(filepath.Base(root))
	for _, rel := range rels {
		if state.Unit(rel) == rootUnit {
			rootUnit = "."
			break
		}
	}
	units := make([]state.Unit, len(rels))
	for i, rel := range rels {
		units[i] = state.Unit(rel)
		if rel == "." {
			units[i] = rootUnit
		}
	}
	return units
}

// finalizePackage closes the package unit at its first entry. Further
// entries are reported.
func (p *Pass) finalizePackage(ps *pkgState) {
	if ps.mode != scan.EntryPackage {
		return
	}
	for _, ref := range ps.entries {
		reporter := diag.BagReporter{Bag: ref.file.bag}
		if rt, ok := p.finalize(ps.unit, ref.entry, defaultInitName, reporter); ok {
			ps.routines = append(ps.routines, rt)
		}
	}
}

func (p *Pass) contribute(unit state.Unit, r *resolve.Resolver, t *scan.Tuple, reporter diag.Reporter) {
	specs, ok := r.Resolve(t)
	if !ok {
		return
	}
	for _, spec := range specs {
		err := p.Store.Contribute(unit, spec, t.Site)
		if err == nil {
			continue
		}
		var cerr *state.ContributeError
		if !errors.As(err, &cerr) {
			diag.ReportError(reporter, diag.UnitInfo, t.Site, err.Error()).Emit()
			continue
		}
		switch {
		case errors.Is(err, state.ErrDuplicate):
			diag.ReportError(reporter, diag.UnitDuplicate, t.Site, err.Error()).
				WithNote(cerr.First, fmt.Sprintf("%s %s first declared here", spec.Category, spec.Expr())).
				Emit()
		case errors.Is(err, state.ErrPluginAlreadyRegistered):
			diag.ReportError(reporter, diag.UnitAlreadyFinalized, t.Site, err.Error()).
				WithNote(cerr.First, "plugin entry is here").
				Emit()
		}
	}
}

func (p *Pass) finalize(unit state.Unit, e *scan.Entry, defaultName string, reporter diag.Reporter) (synth.Routine, bool) {
	snap, err := p.Store.Finalize(unit, e.Site)
	if err != nil {
		var ferr *state.FinalizeError
		b := diag.ReportError(reporter, diag.UnitFinalizeTwice, e.Site,
			fmt.Sprintf("%s declares a second plugin entry", unit))
		if errors.As(err, &ferr) {
			b.WithNote(ferr.First, "first plugin entry is here")
		}
		b.Emit()
		return synth.Routine{}, false
	}
	rt := synth.Routine{Name: defaultName, App: defaultApp, Snapshot: snap}
	if e.Plugin != nil {
		if e.Plugin.InitName != "" {
			rt.Name = e.Plugin.InitName
		}
		if e.Plugin.App != "" {
			rt.App = e.Plugin.App
		}
	}
	return rt, true
}
