package target

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/text/unicode/norm"

	"autoplugin/internal/marker"
)

// Schedule holds the serialized scheduling parameters of an AddSystem
// target. Every field is a canonical Go expression.
type Schedule struct {
	Schedule string
	After    []string
	Before   []string
	RunIf    string
	InSet    string
}

// Import is a package the rendered expressions of a spec refer to.
type Import struct {
	Name string
	Path string
}

// Spec is the canonical identity of one registration target: a
// declaration, possibly instantiated, tagged for one category.
type Spec struct {
	Category marker.Category
	Path     string
	Args     []string
	Schedule *Schedule
	// Name is the AutoName display name, fixed when the spec is resolved.
	Name string
	// Imports lists package qualifiers the rendered expressions use.
	Imports []Import
}

// Render prints e the way every target key is built: go/types spacing,
// NFC-normalized identifiers.
func Render(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return norm.NFC.String(types.ExprString(e))
}

// Instantiate renders path with its type arguments, e.g. Pair[string, int].
func Instantiate(path string, args []string) string {
	if len(args) == 0 {
		return path
	}
	return path + "[" + strings.Join(args, ", ") + "]"
}

// DisplayName derives the AutoName value: the last segment of path plus
// the type arguments in source order.
func DisplayName(path string, args []string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return Instantiate(path, args)
}

// Expr is the Go expression naming the target in generated code.
func (s Spec) Expr() string {
	return Instantiate(s.Path, s.Args)
}

// Key is the canonical rendering used for equality and ordering within
// a category.
func (s Spec) Key() string {
	if s.Schedule == nil {
		return s.Expr()
	}
	return s.Expr() + " " + s.Schedule.String()
}

// String serializes the parameters as `@schedule after(a, b) before(c)
// run_if(expr) in_set(s)`, omitting empty clauses.
func (s Schedule) String() string {
	var b strings.Builder
	b.WriteString("@")
	b.WriteString(s.Schedule)
	writeList := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString(" " + name + "(")
		b.WriteString(strings.Join(items, ", "))
		b.WriteString(")")
	}
	writeList("after", s.After)
	writeList("before", s.Before)
	if s.RunIf != "" {
		writeList("run_if", []string{s.RunIf})
	}
	if s.InSet != "" {
		writeList("in_set", []string{s.InSet})
	}
	return b.String()
}
