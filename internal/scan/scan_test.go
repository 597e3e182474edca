package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/diag"
	"autoplugin/internal/marker"
	"autoplugin/internal/source"
)

func scanSource(t *testing.T, src string) (*Result, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("game.go", []byte(src))
	bag := diag.NewBag(100)
	res, ok := Scan(fs.Get(id), diag.BagReporter{Bag: bag})
	require.True(t, ok, "unexpected syntax errors: %v", bag.Items())
	return res, bag
}

func categories(res *Result) []marker.Category {
	out := make([]marker.Category, 0, len(res.Tuples))
	for _, tp := range res.Tuples {
		out = append(out, tp.Category)
	}
	return out
}

func TestScanCollectsTaggedDeclarations(t *testing.T) {
	res, bag := scanSource(t, `// Package game wires things.
//
//autoplugin:plugin(init_name = setup)
package game

import (
	"time"
	mth "example.com/math/v2"
)

// Score is the player score.
//
//autoplugin:register_type
//autoplugin:init_resource
type Score struct{ At time.Time }

type untagged struct{}

type (
	//autoplugin:add_event
	Hit struct{}

	//autoplugin:register_type(generics(bool), generics(mth.Vec))
	Test[T any] struct{ v T }
)

//autoplugin:add_system(schedule = Update, after = [input, physics])
func move() {}

func (Score) Method() {}
`)
	require.Equal(t, 0, bag.Len(), "%v", bag.Items())

	assert.Equal(t, "game", res.Package)
	assert.Equal(t, []Import{{Name: "time", Path: "time"}, {Name: "mth", Path: "example.com/math/v2"}}, res.Imports)
	assert.Equal(t, []marker.Category{
		marker.RegisterType, marker.InitResource, marker.AddEvent, marker.RegisterType, marker.AddSystem,
	}, categories(res))

	assert.Equal(t, "Score", res.Tuples[0].Decl.Name)
	assert.Same(t, res.Tuples[0].Decl, res.Tuples[1].Decl, "markers on one declaration share it")
	assert.Equal(t, []string{"T"}, res.Tuples[3].Decl.TypeParams)
	assert.Equal(t, DeclFunc, res.Tuples[4].Decl.Kind)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, EntryPackage, res.Mode())
	assert.Equal(t, "setup", res.Entries[0].Plugin.InitName)
}

func TestScanFileModeSteps(t *testing.T) {
	res, bag := scanSource(t, `package game

//autoplugin:register_type
type A struct{}

//autoplugin:plugin
func Plugin() {}

//autoplugin:register_type
type B struct{}
`)
	require.Equal(t, 0, bag.Len())
	assert.Equal(t, EntryFunc, res.Mode())

	steps := res.Steps()
	require.Len(t, steps, 3)
	assert.Equal(t, "A", steps[0].Tuple.Decl.Name)
	assert.Equal(t, "Plugin", steps[1].Entry.Func)
	assert.Equal(t, "B", steps[2].Tuple.Decl.Name)
}

func TestScanReportsBadMarkers(t *testing.T) {
	res, bag := scanSource(t, `package game

//autoplugin:register_type(generics(bool)
//autoplugin:init_resource
type A struct{}

//autoplugin:frobnicate
type B struct{}

//autoplugin:add_system(schedule = Update)
type C struct{}

//autoplugin:register_type
func d() {}

//autoplugin:register_type
type E[T any] struct{}

//autoplugin:register_type(generics(int))
type F struct{}

//autoplugin:register_type(generics(int, bool))
type G[T any] struct{}
`)
	codes := make([]diag.Code, 0, bag.Len())
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
		assert.Equal(t, diag.SevError, d.Severity)
	}
	assert.Equal(t, []diag.Code{
		diag.ScanParse,
		diag.ScanUnknownMarker,
		diag.ScanMisplaced,
		diag.ScanMisplaced,
		diag.ScanGenericArity,
		diag.ScanGenericArity,
		diag.ScanGenericArity,
	}, codes)

	// the well-formed marker on A survives its broken sibling
	require.Len(t, res.Tuples, 1)
	assert.Equal(t, "A", res.Tuples[0].Decl.Name)
	assert.Equal(t, marker.InitResource, res.Tuples[0].Category)
}

func TestScanReportsMarkersOnMethodsAndValues(t *testing.T) {
	res, bag := scanSource(t, `package game

type Mover struct{}

//autoplugin:add_system(schedule = Update)
func (*Mover) Move() {}

//autoplugin:init_resource
var Config = struct{}{}

const (
	//autoplugin:register_type
	Speed = 3
	Slow  = 1
)

//autoplugin:plugin
func (Mover) Plugin() {}
`)
	assert.Empty(t, res.Tuples)
	assert.Empty(t, res.Entries)

	var msgs []string
	for _, d := range bag.Items() {
		assert.Equal(t, diag.ScanMisplaced, d.Code)
		msgs = append(msgs, d.Message)
	}
	assert.Equal(t, []string{
		"add_system is only allowed on functions, Mover.Move is a method",
		"init_resource is only allowed on type declarations, Config is a var or const",
		"register_type is only allowed on type declarations, Speed is a var or const",
		"plugin marker belongs on the package clause or on a function, Mover.Plugin is a method",
	}, msgs)
}

func TestScanReportsOrphanMarkers(t *testing.T) {
	res, bag := scanSource(t, `package game

//autoplugin:register_type

type A struct{}

type B struct{} //autoplugin:register_type

func run() {
	//autoplugin:add_event
}

//autoplugin:init_resource
type C struct{}
`)
	require.Len(t, res.Tuples, 1)
	assert.Equal(t, "C", res.Tuples[0].Decl.Name)

	require.Equal(t, 3, bag.Len())
	var starts []uint32
	for _, d := range bag.Items() {
		assert.Equal(t, diag.ScanMisplaced, d.Code)
		assert.Contains(t, d.Message, "not attached to a declaration")
		starts = append(starts, d.Primary.Start)
	}
	assert.IsIncreasing(t, starts)
}

func TestScanConflictingEntries(t *testing.T) {
	res, bag := scanSource(t, `//autoplugin:plugin
package game

//autoplugin:plugin
func Plugin() {}

//autoplugin:plugin
type T struct{}
`)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, EntryPackage, res.Entries[0].Kind)

	var codes []diag.Code
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	assert.ElementsMatch(t, []diag.Code{diag.ScanMisplaced, diag.ScanConflictingMode}, codes)
}

func TestScanSyntaxError(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("broken.go", []byte("package game\n\nfunc {\n"))
	bag := diag.NewBag(100)
	_, ok := Scan(fs.Get(id), diag.BagReporter{Bag: bag})
	assert.False(t, ok)
	require.NotZero(t, bag.Len())
	assert.Equal(t, diag.ScanGoSyntax, bag.Items()[0].Code)
}

func TestDefaultQualifier(t *testing.T) {
	assert.Equal(t, "time", defaultQualifier("time"))
	assert.Equal(t, "msgpack", defaultQualifier("github.com/vmihailenco/msgpack/v5"))
	assert.Equal(t, "yaml", defaultQualifier("gopkg.in/yaml.v3"))
	assert.Equal(t, "runewidth", defaultQualifier("github.com/mattn/go-runewidth"))
}
