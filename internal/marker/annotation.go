package marker

import "go/ast"

const (
	// Prefix starts every marker line in a doc comment.
	Prefix = "//autoplugin:"
	// PluginVerb names the synthesis entry annotation.
	PluginVerb = "plugin"
)

// Annotation is the closed set of markers a declaration can carry:
// *Target, *System and *Plugin.
type Annotation interface {
	Verb() string
	isAnnotation()
}

// Instantiation is one generics(...) group: the type arguments of a single
// instantiation, in source order.
type Instantiation []ast.Expr

// Target tags a type declaration for one of the type-based categories.
type Target struct {
	Category Category
	Generics []Instantiation
}

// System tags a function for AddSystem together with its scheduling
// parameters. Expressions are kept verbatim.
type System struct {
	Generics []Instantiation
	Schedule ast.Expr
	After    []ast.Expr
	Before   []ast.Expr
	RunIf    ast.Expr
	InSet    ast.Expr
}

// Plugin is the synthesis entry annotation. Empty fields mean defaults.
type Plugin struct {
	InitName string
	App      string
}

func (t *Target) Verb() string { return t.Category.String() }
func (*System) Verb() string   { return AddSystem.String() }
func (*Plugin) Verb() string   { return PluginVerb }

func (*Target) isAnnotation() {}
func (*System) isAnnotation() {}
func (*Plugin) isAnnotation() {}

// CategoryOf returns the registration category of a, or false for the
// plugin entry.
func CategoryOf(a Annotation) (Category, bool) {
	switch a := a.(type) {
	case *Target:
		return a.Category, true
	case *System:
		return AddSystem, true
	}
	return 0, false
}

// GenericsOf returns the instantiations requested by a.
func GenericsOf(a Annotation) []Instantiation {
	switch a := a.(type) {
	case *Target:
		return a.Generics
	case *System:
		return a.Generics
	}
	return nil
}
