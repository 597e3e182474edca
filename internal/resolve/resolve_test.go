package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/diag"
	"autoplugin/internal/marker"
	"autoplugin/internal/scan"
	"autoplugin/internal/source"
	"autoplugin/internal/target"
)

func tuples(t *testing.T, src string) (*scan.Result, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("game.go", []byte(src))
	bag := diag.NewBag(100)
	res, ok := scan.Scan(fs.Get(id), diag.BagReporter{Bag: bag})
	require.True(t, ok)
	require.Equal(t, 0, bag.Len(), "%v", bag.Items())
	return res, bag
}

func resolveAll(t *testing.T, src string) ([]target.Spec, *diag.Bag) {
	t.Helper()
	res, bag := tuples(t, src)
	r := New(res.Imports, res.Names, diag.BagReporter{Bag: bag})
	var out []target.Spec
	for i := range res.Tuples {
		specs, ok := r.Resolve(&res.Tuples[i])
		if ok {
			out = append(out, specs...)
		}
	}
	return out, bag
}

func TestResolveBare(t *testing.T) {
	specs, _ := resolveAll(t, `package game

//autoplugin:register_type
type Score struct{}
`)
	require.Len(t, specs, 1)
	assert.Equal(t, target.Spec{Category: marker.RegisterType, Path: "Score"}, specs[0])
}

func TestResolveOneSpecPerInstantiation(t *testing.T) {
	specs, _ := resolveAll(t, `package game

//autoplugin:register_type(generics(bool))
//autoplugin:register_type(generics(uint32), generics(bool))
type Test[T any] struct{}
`)
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.Key())
	}
	assert.Equal(t, []string{"Test[bool]", "Test[uint32]", "Test[bool]"}, keys, "no dedup before the store")
}

func TestResolveAutoName(t *testing.T) {
	specs, _ := resolveAll(t, `package game

//autoplugin:auto_name(generics(bool))
type Test[T any] struct{}

//autoplugin:auto_name
type Plain struct{}
`)
	require.Len(t, specs, 2)
	assert.Equal(t, "Test[bool]", specs[0].Name)
	assert.Equal(t, "Plain", specs[1].Name)
}

func TestResolveImportsQualifiers(t *testing.T) {
	specs, _ := resolveAll(t, `package game

import (
	"time"
	sch "example.com/engine/schedule"
)

//autoplugin:register_type(generics(time.Duration, map[string]*time.Time))
type Pair[A, B any] struct{}

//autoplugin:add_system(schedule = sch.Update, run_if = sch.Every(time.Second))
func tick() {}
`)
	require.Len(t, specs, 2)
	assert.Equal(t, []target.Import{{Name: "time", Path: "time"}}, specs[0].Imports)
	assert.Equal(t, "Pair[time.Duration, map[string]*time.Time]", specs[0].Key())

	assert.Equal(t, []target.Import{
		{Name: "sch", Path: "example.com/engine/schedule"},
		{Name: "time", Path: "time"},
	}, specs[1].Imports)
	assert.Equal(t, "tick @sch.Update run_if(sch.Every(time.Second))", specs[1].Key())
}

func TestResolveUnknownQualifier(t *testing.T) {
	specs, bag := resolveAll(t, `package game

//autoplugin:register_type(generics(vec.Vec3))
type Box[T any] struct{}
`)
	assert.Empty(t, specs)
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, diag.ScanParse, bag.Items()[0].Code)
	assert.Contains(t, bag.Items()[0].Message, "package vec")
}

func TestResolveUnknownScheduleQualifier(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   string
	}{
		{"schedule", "schedule = sched.Update", "package sched"},
		{"after", "schedule = Update, after = [input, phys.Step]", "package phys"},
		{"before", "schedule = Update, before = [render.Draw]", "package render"},
		{"run_if", "schedule = Update, run_if = cond.Every(2)", "package cond"},
		{"in_set", "schedule = Update, in_set = sets.Movement", "package sets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			specs, bag := resolveAll(t, "package game\n\n//autoplugin:add_system("+tt.marker+")\nfunc move() {}\n")
			assert.Empty(t, specs)
			require.Equal(t, 1, bag.Len())
			assert.Equal(t, diag.ScanParse, bag.Items()[0].Code)
			assert.Contains(t, bag.Items()[0].Message, tt.want)
		})
	}
}

func TestResolveScheduleSelectsPackageVariable(t *testing.T) {
	specs, bag := resolveAll(t, `package game

var sets = struct{ Movement int }{}

//autoplugin:add_system(schedule = Update, in_set = sets.Movement)
func move() {}
`)
	assert.Zero(t, bag.Len(), "%v", bag.Items())
	require.Len(t, specs, 1)
	assert.Equal(t, "sets.Movement", specs[0].Schedule.InSet)
	assert.Empty(t, specs[0].Imports)
}
