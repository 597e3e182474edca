// Package synth renders finalized unit snapshots as Go source.
package synth

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"

	"autoplugin/internal/marker"
	"autoplugin/internal/state"
	"autoplugin/internal/target"
)

const (
	// Header marks the output as generated for go vet and linters.
	Header = "// Code generated by autoplugin. DO NOT EDIT."
	// DefaultAPIImport is the import path of the registration API.
	DefaultAPIImport = "autoplugin/api"
	// apiName is the qualifier the generated file binds the API to.
	apiName = "autoplugin"
)

var (
	ErrImportConflict = errors.New("conflicting imports")
	ErrRoutineClash   = errors.New("routine name clash")
)

// Routine is one generated initialization function.
type Routine struct {
	Name     string
	App      string
	Snapshot state.Snapshot
}

// File is one generated source file holding every routine of a package.
type File struct {
	Package   string
	APIImport string
	Routines  []Routine
}

// Generate renders f. Output depends only on f: routines are ordered by
// unit, statements by category and key.
func (f *File) Generate() ([]byte, error) {
	routines := append([]Routine(nil), f.Routines...)
	sort.Slice(routines, func(i, j int) bool {
		return routines[i].Snapshot.Unit < routines[j].Snapshot.Unit
	})
	seen := make(map[string]state.Unit, len(routines))
	for _, r := range routines {
		if prev, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: routine %s generated for both %s and %s", ErrRoutineClash, r.Name, prev, r.Snapshot.Unit)
		}
		seen[r.Name] = r.Snapshot.Unit
	}

	apiImport := f.APIImport
	if apiImport == "" {
		apiImport = DefaultAPIImport
	}
	imports, err := collectImports(routines, apiImport)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(Header + "\n\n")
	buf.WriteString("//go:build !ignore_autogenerated\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", f.Package)
	writeImports(&buf, imports)
	for _, r := range routines {
		buf.WriteString("\n")
		writeRoutine(&buf, r)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("format generated code: %w", err)
	}
	return out, nil
}

// Body renders only the statements of r, one per line. Used by previews.
func (r Routine) Body() []string {
	var lines []string
	for _, group := range r.Snapshot.Categories {
		for _, spec := range group.Specs {
			lines = append(lines, statement(app(r), spec))
		}
	}
	return lines
}

func app(r Routine) string {
	if r.App == "" {
		return "app"
	}
	return r.App
}

func writeRoutine(buf *bytes.Buffer, r Routine) {
	handle := app(r)
	fmt.Fprintf(buf, "// %s registers the autoplugin targets of %s.\n", r.Name, r.Snapshot.Unit)
	fmt.Fprintf(buf, "func %s(%s %s.App) {\n", r.Name, handle, apiName)
	first := true
	for _, group := range r.Snapshot.Categories {
		if len(group.Specs) == 0 {
			continue
		}
		if !first {
			buf.WriteString("\n")
		}
		first = false
		fmt.Fprintf(buf, "// %s\n", group.Category.Title())
		for _, spec := range group.Specs {
			buf.WriteString(statement(handle, spec))
			buf.WriteString("\n")
		}
	}
	buf.WriteString("}\n")
}

func statement(handle string, spec target.Spec) string {
	typeOf := "reflect.TypeFor[" + spec.Expr() + "]()"
	switch spec.Category {
	case marker.RegisterType:
		return handle + ".RegisterType(" + typeOf + ")"
	case marker.RegisterStateType:
		return handle + ".RegisterStateType(" + typeOf + ")"
	case marker.AddEvent:
		return handle + ".AddEvent(" + typeOf + ")"
	case marker.InitResource:
		return handle + ".InitResource(" + typeOf + ")"
	case marker.InitState:
		return handle + ".InitState(" + typeOf + ")"
	case marker.AutoName:
		return handle + ".RegisterRequiredName(" + typeOf + ", func() string { return " + strconv.Quote(spec.Name) + " })"
	case marker.AddSystem:
		return handle + ".AddSystem(" + strings.Join(systemArgs(spec), ", ") + ")"
	}
	panic(fmt.Sprintf("synth: unhandled category %v", spec.Category))
}

func systemArgs(spec target.Spec) []string {
	sched := spec.Schedule
	if sched == nil {
		sched = &target.Schedule{}
	}
	args := []string{sched.Schedule, spec.Expr()}
	if len(sched.After) > 0 {
		args = append(args, apiName+".After("+strings.Join(sched.After, ", ")+")")
	}
	if len(sched.Before) > 0 {
		args = append(args, apiName+".Before("+strings.Join(sched.Before, ", ")+")")
	}
	if sched.RunIf != "" {
		args = append(args, apiName+".RunIf("+sched.RunIf+")")
	}
	if sched.InSet != "" {
		args = append(args, apiName+".InSet("+sched.InSet+")")
	}
	return args
}

// collectImports returns name -> path for every package the routines use.
func collectImports(routines []Routine, apiImport string) (map[string]string, error) {
	imports := map[string]string{apiName: apiImport}
	add := func(name, path string) error {
		if prev, ok := imports[name]; ok && prev != path {
			return fmt.Errorf("%w: %s names both %q and %q", ErrImportConflict, name, prev, path)
		}
		imports[name] = path
		return nil
	}
	for _, r := range routines {
		for _, group := range r.Snapshot.Categories {
			if len(group.Specs) > 0 && group.Category != marker.AddSystem {
				if err := add("reflect", "reflect"); err != nil {
					return nil, err
				}
			}
			for _, spec := range group.Specs {
				for _, imp := range spec.Imports {
					if err := add(imp.Name, imp.Path); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return imports, nil
}

func writeImports(buf *bytes.Buffer, imports map[string]string) {
	var std, other []string
	for name, path := range imports {
		line := strconv.Quote(path)
		if name != defaultName(path) {
			line = name + " " + line
		}
		if name != apiName && isStd(path) {
			std = append(std, line)
		} else {
			other = append(other, line)
		}
	}
	sort.Slice(std, func(i, j int) bool { return importPath(std[i]) < importPath(std[j]) })
	sort.Slice(other, func(i, j int) bool { return importPath(other[i]) < importPath(other[j]) })

	buf.WriteString("import (\n")
	for _, l := range std {
		buf.WriteString(l + "\n")
	}
	if len(std) > 0 && len(other) > 0 {
		buf.WriteString("\n")
	}
	for _, l := range other {
		buf.WriteString(l + "\n")
	}
	buf.WriteString(")\n")
}

func importPath(line string) string {
	return line[strings.IndexByte(line, '"'):]
}

func defaultName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isStd(path string) bool {
	first := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		first = path[:i]
	}
	return !strings.Contains(first, ".")
}
