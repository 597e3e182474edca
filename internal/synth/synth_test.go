package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/marker"
	"autoplugin/internal/source"
	"autoplugin/internal/state"
	"autoplugin/internal/target"
)

func snapshot(t *testing.T, unit state.Unit, specs ...target.Spec) state.Snapshot {
	t.Helper()
	s := state.New()
	for _, sp := range specs {
		require.NoError(t, s.Contribute(unit, sp, source.Span{}))
	}
	snap, err := s.Finalize(unit, source.Span{})
	require.NoError(t, err)
	return snap
}

const wantGame = `// Code generated by autoplugin. DO NOT EDIT.

//go:build !ignore_autogenerated

package game

import (
	"reflect"
	"time"

	autoplugin "autoplugin/api"
)

// initAutoPlugin registers the autoplugin targets of game.
func initAutoPlugin(app autoplugin.App) {
	// register types
	app.RegisterType(reflect.TypeFor[Score]())
	app.RegisterType(reflect.TypeFor[Test[bool]]())
	app.RegisterType(reflect.TypeFor[Test[time.Duration]]())

	// add events
	app.AddEvent(reflect.TypeFor[Hit]())

	// auto names
	app.RegisterRequiredName(reflect.TypeFor[Test[bool]](), func() string { return "Test[bool]" })

	// add systems
	app.AddSystem(Update, move, autoplugin.After(input, physics), autoplugin.RunIf(enabled))
}
`

func gameSpecs() []target.Spec {
	return []target.Spec{
		{Category: marker.AddSystem, Path: "move", Schedule: &target.Schedule{
			Schedule: "Update", After: []string{"input", "physics"}, RunIf: "enabled",
		}},
		{Category: marker.RegisterType, Path: "Test", Args: []string{"time.Duration"},
			Imports: []target.Import{{Name: "time", Path: "time"}}},
		{Category: marker.AutoName, Path: "Test", Args: []string{"bool"}, Name: "Test[bool]"},
		{Category: marker.AddEvent, Path: "Hit"},
		{Category: marker.RegisterType, Path: "Test", Args: []string{"bool"}},
		{Category: marker.RegisterType, Path: "Score"},
	}
}

func TestGenerateGolden(t *testing.T) {
	f := &File{
		Package:  "game",
		Routines: []Routine{{Name: "initAutoPlugin", Snapshot: snapshot(t, "game", gameSpecs()...)}},
	}
	out, err := f.Generate()
	require.NoError(t, err)
	assert.Equal(t, wantGame, string(out))
}

func TestGenerateIsDeterministic(t *testing.T) {
	specs := gameSpecs()
	reversed := make([]target.Spec, len(specs))
	for i, sp := range specs {
		reversed[len(specs)-1-i] = sp
	}
	a := &File{Package: "game", Routines: []Routine{{Name: "initAutoPlugin", Snapshot: snapshot(t, "game", specs...)}}}
	b := &File{Package: "game", Routines: []Routine{{Name: "initAutoPlugin", Snapshot: snapshot(t, "game", reversed...)}}}

	outA, err := a.Generate()
	require.NoError(t, err)
	outB, err := b.Generate()
	require.NoError(t, err)
	assert.Equal(t, string(outA), string(outB))
}

func TestGenerateFileModeRoutines(t *testing.T) {
	f := &File{
		Package:   "game",
		APIImport: "example.com/engine/api",
		Routines: []Routine{
			{Name: "zPluginAutoPlugin", App: "a", Snapshot: snapshot(t, "game/z.go",
				target.Spec{Category: marker.InitState, Path: "Mode"})},
			{Name: "aPluginAutoPlugin", App: "a", Snapshot: snapshot(t, "game/a.go")},
		},
	}
	out, err := f.Generate()
	require.NoError(t, err)
	assert.Equal(t, `// Code generated by autoplugin. DO NOT EDIT.

//go:build !ignore_autogenerated

package game

import (
	"reflect"

	autoplugin "example.com/engine/api"
)

// aPluginAutoPlugin registers the autoplugin targets of game/a.go.
func aPluginAutoPlugin(a autoplugin.App) {
}

// zPluginAutoPlugin registers the autoplugin targets of game/z.go.
func zPluginAutoPlugin(a autoplugin.App) {
	// init states
	a.InitState(reflect.TypeFor[Mode]())
}
`, string(out))
}

func TestGenerateRejectsNameClash(t *testing.T) {
	f := &File{
		Package: "game",
		Routines: []Routine{
			{Name: "setup", Snapshot: snapshot(t, "game/a.go")},
			{Name: "setup", Snapshot: snapshot(t, "game/b.go")},
		},
	}
	_, err := f.Generate()
	require.ErrorIs(t, err, ErrRoutineClash)
	assert.Contains(t, err.Error(), "routine setup")
}

func TestGenerateImportConflict(t *testing.T) {
	f := &File{
		Package: "game",
		Routines: []Routine{{Name: "setup", Snapshot: snapshot(t, "game",
			target.Spec{Category: marker.RegisterType, Path: "A", Args: []string{"v.X"},
				Imports: []target.Import{{Name: "v", Path: "example.com/one/v"}}},
			target.Spec{Category: marker.RegisterType, Path: "A", Args: []string{"v.Y"},
				Imports: []target.Import{{Name: "v", Path: "example.com/two/v"}}},
		)}},
	}
	_, err := f.Generate()
	require.ErrorIs(t, err, ErrImportConflict)
}

func TestRoutineBody(t *testing.T) {
	r := Routine{Name: "setup", App: "world", Snapshot: snapshot(t, "game",
		target.Spec{Category: marker.InitResource, Path: "Score"},
		target.Spec{Category: marker.AddSystem, Path: "tick", Schedule: &target.Schedule{Schedule: "Update", InSet: "Core"}},
	)}
	assert.Equal(t, []string{
		"world.InitResource(reflect.TypeFor[Score]())",
		"world.AddSystem(Update, tick, autoplugin.InSet(Core))",
	}, r.Body())
}
