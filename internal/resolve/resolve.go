// Package resolve turns scanned tuples into canonical target specs.
package resolve

import (
	"fmt"
	"go/ast"
	"sort"

	"autoplugin/internal/diag"
	"autoplugin/internal/marker"
	"autoplugin/internal/scan"
	"autoplugin/internal/target"
)

// Resolver expands the tuples of one file. It knows the file's import
// table so qualified names can be imported by the generated code, and
// the package's top-level names so selectors on package variables are
// told apart from missing imports.
type Resolver struct {
	imports  map[string]string
	declared map[string]bool
	reporter diag.Reporter
}

// New returns a resolver for a file with the given imports, inside a
// package declaring the given top-level names.
func New(imports []scan.Import, declared []string, reporter diag.Reporter) *Resolver {
	r := &Resolver{
		imports:  make(map[string]string, len(imports)),
		declared: make(map[string]bool, len(declared)),
		reporter: reporter,
	}
	for _, imp := range imports {
		r.imports[imp.Name] = imp.Path
	}
	for _, name := range declared {
		r.declared[name] = true
	}
	return r
}

// Resolve returns one spec per generic instantiation, or a single bare
// spec when the marker lists none. Duplicates are kept; the store rejects
// them. The second result is false when the tuple was reported and must
// be skipped.
func (r *Resolver) Resolve(t *scan.Tuple) ([]target.Spec, bool) {
	insts := marker.GenericsOf(t.Annotation)

	var sched *target.Schedule
	var schedImports []target.Import
	if sys, ok := t.Annotation.(*marker.System); ok {
		for _, e := range scheduleExprs(sys) {
			if q, ok := r.unknownQualifier(e, r.declared); ok {
				diag.ReportError(r.reporter, diag.ScanParse, t.Site,
					fmt.Sprintf("%s uses package %s which this file does not import", target.Render(e), q)).Emit()
				return nil, false
			}
		}
		sched, schedImports = r.schedule(sys)
	}

	if len(insts) == 0 {
		return []target.Spec{r.spec(t, nil, sched, schedImports)}, true
	}

	specs := make([]target.Spec, 0, len(insts))
	for _, inst := range insts {
		args := make([]string, len(inst))
		for i, e := range inst {
			if q, ok := r.unknownQualifier(e, nil); ok {
				diag.ReportError(r.reporter, diag.ScanParse, t.Site,
					fmt.Sprintf("generic argument %s uses package %s which this file does not import", target.Render(e), q)).Emit()
				return nil, false
			}
			args[i] = target.Render(e)
		}
		imps := append(r.qualifiers(inst...), schedImports...)
		specs = append(specs, r.spec(t, args, sched, imps))
	}
	return specs, true
}

func (r *Resolver) spec(t *scan.Tuple, args []string, sched *target.Schedule, imps []target.Import) target.Spec {
	s := target.Spec{
		Category: t.Category,
		Path:     t.Decl.Name,
		Args:     args,
		Schedule: sched,
		Imports:  dedupImports(imps),
	}
	if t.Category == marker.AutoName {
		s.Name = target.DisplayName(s.Path, args)
	}
	return s
}

func (r *Resolver) schedule(sys *marker.System) (*target.Schedule, []target.Import) {
	sched := &target.Schedule{
		Schedule: target.Render(sys.Schedule),
		After:    renderAll(sys.After),
		Before:   renderAll(sys.Before),
		RunIf:    target.Render(sys.RunIf),
		InSet:    target.Render(sys.InSet),
	}
	return sched, r.qualifiers(scheduleExprs(sys)...)
}

// scheduleExprs lists the set expressions of a system marker.
func scheduleExprs(sys *marker.System) []ast.Expr {
	var exprs []ast.Expr
	for _, e := range []ast.Expr{sys.Schedule, sys.RunIf, sys.InSet} {
		if e != nil {
			exprs = append(exprs, e)
		}
	}
	exprs = append(exprs, sys.After...)
	return append(exprs, sys.Before...)
}

// qualifiers lists imported packages the expressions refer to.
func (r *Resolver) qualifiers(exprs ...ast.Expr) []target.Import {
	var out []target.Import
	for _, e := range exprs {
		if e == nil {
			continue
		}
		ast.Inspect(e, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			if id, ok := sel.X.(*ast.Ident); ok {
				if p, ok := r.imports[id.Name]; ok {
					out = append(out, target.Import{Name: id.Name, Path: p})
				}
			}
			return true
		})
	}
	return out
}

// unknownQualifier finds an x.Name reference whose x is not an imported
// package. Type arguments can only select from packages; value
// expressions may also select from the names in local.
func (r *Resolver) unknownQualifier(e ast.Expr, local map[string]bool) (string, bool) {
	var bad string
	ast.Inspect(e, func(n ast.Node) bool {
		if bad != "" {
			return false
		}
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if id, ok := sel.X.(*ast.Ident); ok {
			if _, known := r.imports[id.Name]; !known && !local[id.Name] {
				bad = id.Name
			}
		}
		return true
	})
	return bad, bad != ""
}

func renderAll(exprs []ast.Expr) []string {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = target.Render(e)
	}
	return out
}

func dedupImports(imps []target.Import) []target.Import {
	if len(imps) == 0 {
		return nil
	}
	sort.Slice(imps, func(i, j int) bool {
		if imps[i].Path != imps[j].Path {
			return imps[i].Path < imps[j].Path
		}
		return imps[i].Name < imps[j].Name
	})
	out := imps[:1]
	for _, imp := range imps[1:] {
		if imp != out[len(out)-1] {
			out = append(out, imp)
		}
	}
	return out
}
