package scan

import (
	"errors"
	"fmt"
	"sort"

	"fortio.org/safecast"

	"autoplugin/internal/diag"
	"autoplugin/internal/marker"
	"autoplugin/internal/source"
)

// Decl is a tagged declaration as the resolver sees it.
type Decl struct {
	Name       string
	Kind       DeclKind
	TypeParams []string
	Span       source.Span
}

// Tuple is one (declaration, category, arguments) triple. A declaration
// carrying several markers yields several tuples.
type Tuple struct {
	Decl       *Decl
	Category   marker.Category
	Annotation marker.Annotation
	Site       source.Span
}

// EntryKind tells where a plugin entry annotation sits.
type EntryKind uint8

const (
	// EntryPackage is a plugin marker on the package clause: the whole
	// package directory is one unit.
	EntryPackage EntryKind = iota + 1
	// EntryFunc is a plugin marker on a function: the file is the unit.
	EntryFunc
)

func (k EntryKind) String() string {
	switch k {
	case EntryPackage:
		return "package"
	case EntryFunc:
		return "file"
	}
	return "unknown"
}

// Entry is a synthesis entry annotation.
type Entry struct {
	Kind   EntryKind
	Func   string
	Plugin *marker.Plugin
	Site   source.Span
}

// Result is the classified content of one file.
type Result struct {
	File    source.FileID
	Package string
	Imports []Import
	// Names are the top-level identifiers the file declares.
	Names   []string
	Tuples  []Tuple
	Entries []Entry
}

// Mode returns the entry kind declared by this file, or zero if the file
// has no entry annotation.
func (r *Result) Mode() EntryKind {
	if len(r.Entries) == 0 {
		return 0
	}
	return r.Entries[0].Kind
}

// Step is one item of a file in source order: exactly one of Tuple and
// Entry is set.
type Step struct {
	Tuple *Tuple
	Entry *Entry
}

// Steps interleaves tuples and entries by source position.
func (r *Result) Steps() []Step {
	steps := make([]Step, 0, len(r.Tuples)+len(r.Entries))
	for i := range r.Tuples {
		steps = append(steps, Step{Tuple: &r.Tuples[i]})
	}
	for i := range r.Entries {
		steps = append(steps, Step{Entry: &r.Entries[i]})
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].start() < steps[j].start()
	})
	return steps
}

func (s Step) start() uint32 {
	if s.Tuple != nil {
		return s.Tuple.Site.Start
	}
	return s.Entry.Site.Start
}

// Classify parses every marker of raw and validates it against the
// declaration it sits on. A bad marker is reported and dropped; the rest
// of the file keeps going.
func Classify(id source.FileID, raw *Raw, reporter diag.Reporter) *Result {
	res := &Result{
		File:    id,
		Package: raw.Package,
		Imports: raw.Imports,
		Names:   raw.Names,
	}

	for _, m := range raw.PackageMarkers {
		site := source.Span{File: id, Start: m.Start, End: m.End}
		ann, ok := parseMarker(id, m, reporter)
		if !ok {
			continue
		}
		p, isPlugin := ann.(*marker.Plugin)
		if !isPlugin {
			diag.ReportError(reporter, diag.ScanMisplaced, site,
				fmt.Sprintf("%s marker cannot annotate the package clause", ann.Verb())).Emit()
			continue
		}
		res.Entries = append(res.Entries, Entry{Kind: EntryPackage, Plugin: p, Site: site})
	}

	for i := range raw.Decls {
		rd := &raw.Decls[i]
		decl := &Decl{
			Name:       rd.Name,
			Kind:       rd.Kind,
			TypeParams: rd.TypeParams,
			Span:       source.Span{File: id, Start: rd.Start, End: rd.End},
		}
		for _, m := range rd.Markers {
			site := source.Span{File: id, Start: m.Start, End: m.End}
			ann, ok := parseMarker(id, m, reporter)
			if !ok {
				continue
			}
			if p, isPlugin := ann.(*marker.Plugin); isPlugin {
				if entry, ok := funcEntry(decl, p, site, reporter); ok {
					res.Entries = append(res.Entries, entry)
				}
				continue
			}
			cat, _ := marker.CategoryOf(ann)
			if !placementOK(decl, cat, site, reporter) || !genericsOK(decl, ann, site, reporter) {
				continue
			}
			res.Tuples = append(res.Tuples, Tuple{Decl: decl, Category: cat, Annotation: ann, Site: site})
		}
	}

	for _, m := range raw.Orphans {
		diag.ReportError(reporter, diag.ScanMisplaced, source.Span{File: id, Start: m.Start, End: m.End},
			"marker is not attached to a declaration, it must sit in the doc comment directly above one").Emit()
	}

	res.Entries = dropConflicting(res.Entries, reporter)
	return res
}

func parseMarker(id source.FileID, m RawMarker, reporter diag.Reporter) (marker.Annotation, bool) {
	ann, err := marker.Parse(m.Text)
	if err == nil {
		return ann, true
	}
	site := source.Span{File: id, Start: m.Start, End: m.End}

	var unknown *marker.UnknownVerbError
	if errors.As(err, &unknown) {
		diag.ReportError(reporter, diag.ScanUnknownMarker, site, err.Error()).Emit()
		return nil, false
	}
	var perr *marker.ParseError
	if errors.As(err, &perr) {
		if off, convErr := safecast.Conv[uint32](perr.Offset); convErr == nil && m.Start+off < m.End {
			site.Start += off
		}
	}
	diag.ReportError(reporter, diag.ScanParse, site, err.Error()).Emit()
	return nil, false
}

func funcEntry(decl *Decl, p *marker.Plugin, site source.Span, reporter diag.Reporter) (Entry, bool) {
	if decl.Kind != DeclFunc {
		diag.ReportError(reporter, diag.ScanMisplaced, site,
			fmt.Sprintf("plugin marker belongs on the package clause or on a function, %s is %s", decl.Name, decl.Kind.noun())).Emit()
		return Entry{}, false
	}
	if len(decl.TypeParams) > 0 {
		diag.ReportError(reporter, diag.ScanMisplaced, site,
			fmt.Sprintf("plugin function %s cannot be generic", decl.Name)).Emit()
		return Entry{}, false
	}
	return Entry{Kind: EntryFunc, Func: decl.Name, Plugin: p, Site: site}, true
}

func placementOK(decl *Decl, cat marker.Category, site source.Span, reporter diag.Reporter) bool {
	want, allowed := DeclType, "type declarations"
	if cat.OnFunc() {
		want, allowed = DeclFunc, "functions"
	}
	if decl.Kind == want {
		return true
	}
	diag.ReportError(reporter, diag.ScanMisplaced, site,
		fmt.Sprintf("%s is only allowed on %s, %s is %s", cat, allowed, decl.Name, decl.Kind.noun())).Emit()
	return false
}

func genericsOK(decl *Decl, ann marker.Annotation, site source.Span, reporter diag.Reporter) bool {
	want := len(decl.TypeParams)
	insts := marker.GenericsOf(ann)
	switch {
	case want > 0 && len(insts) == 0:
		diag.ReportError(reporter, diag.ScanGenericArity, site,
			fmt.Sprintf("%s %s is generic, list its instantiations with generics(...)", decl.Kind, decl.Name)).Emit()
		return false
	case want == 0 && len(insts) > 0:
		diag.ReportError(reporter, diag.ScanGenericArity, site,
			fmt.Sprintf("%s %s is not generic, remove generics(...)", decl.Kind, decl.Name)).Emit()
		return false
	}
	for _, inst := range insts {
		if len(inst) != want {
			diag.ReportError(reporter, diag.ScanGenericArity, site,
				fmt.Sprintf("%s %s has %d type parameters, generics(...) lists %d", decl.Kind, decl.Name, want, len(inst))).Emit()
			return false
		}
	}
	return true
}

// dropConflicting keeps the package entries when a file mixes both kinds.
func dropConflicting(entries []Entry, reporter diag.Reporter) []Entry {
	hasPackage := false
	for _, e := range entries {
		if e.Kind == EntryPackage {
			hasPackage = true
			break
		}
	}
	if !hasPackage {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Kind == EntryFunc {
			diag.ReportError(reporter, diag.ScanConflictingMode, e.Site,
				fmt.Sprintf("plugin function %s conflicts with the package plugin marker", e.Func)).Emit()
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
