package marker

import "fmt"

// Category is one of the fixed registration kinds. The declaration order
// is the order in which generated routines register targets: state types
// must exist before states are registered against them, so callers rely
// on it instead of source order.
type Category uint8

const (
	RegisterType Category = iota
	RegisterStateType
	AddEvent
	InitResource
	InitState
	AutoName
	AddSystem

	numCategories
)

// Categories lists every category in emission order.
var Categories = [numCategories]Category{
	RegisterType,
	RegisterStateType,
	AddEvent,
	InitResource,
	InitState,
	AutoName,
	AddSystem,
}

var categoryVerbs = [numCategories]string{
	RegisterType:      "register_type",
	RegisterStateType: "register_state_type",
	AddEvent:          "add_event",
	InitResource:      "init_resource",
	InitState:         "init_state",
	AutoName:          "auto_name",
	AddSystem:         "add_system",
}

var categoryTitles = [numCategories]string{
	RegisterType:      "register types",
	RegisterStateType: "register state types",
	AddEvent:          "add events",
	InitResource:      "init resources",
	InitState:         "init states",
	AutoName:          "auto names",
	AddSystem:         "add systems",
}

// String returns the marker verb, e.g. "register_type".
func (c Category) String() string {
	if c >= numCategories {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryVerbs[c]
}

// Title is the human label used for comments in generated code.
func (c Category) Title() string {
	if c >= numCategories {
		return c.String()
	}
	return categoryTitles[c]
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c < numCategories
}

// OnFunc reports whether the category tags function declarations rather
// than type declarations.
func (c Category) OnFunc() bool {
	return c == AddSystem
}

// CategoryFromVerb maps a marker verb back to its category.
func CategoryFromVerb(verb string) (Category, bool) {
	for i, v := range categoryVerbs {
		if v == verb {
			return Category(i), true
		}
	}
	return 0, false
}
