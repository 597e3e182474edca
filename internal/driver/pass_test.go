package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/diag"
	"autoplugin/internal/finalcheck"
	"autoplugin/internal/marker"
	"autoplugin/internal/observ"
	"autoplugin/internal/pipeline"
	"autoplugin/internal/project"
	"autoplugin/internal/scancache"
	"autoplugin/internal/state"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func run(t *testing.T, root string, opts Options) *Result {
	t.Helper()
	res, err := NewPass(root, opts).Run(context.Background())
	require.NoError(t, err)
	return res
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func readOutput(t *testing.T, root, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, dir, project.DefaultOutput))
	require.NoError(t, err)
	return string(data)
}

const gameDoc = `//autoplugin:plugin
package game
`

const gameTypes = `package game

//autoplugin:register_type
//autoplugin:init_resource
type Score struct{ Value int }

//autoplugin:add_event
type Hit struct{}
`

const wantGameOutput = `// Code generated by autoplugin. DO NOT EDIT.

//go:build !ignore_autogenerated

package game

import (
	"reflect"

	autoplugin "autoplugin/api"
)

// initAutoPlugin registers the autoplugin targets of game.
func initAutoPlugin(app autoplugin.App) {
	// register types
	app.RegisterType(reflect.TypeFor[Score]())

	// add events
	app.AddEvent(reflect.TypeFor[Hit]())

	// init resources
	app.InitResource(reflect.TypeFor[Score]())
}
`

func TestPassPackageMode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
	})

	res := run(t, root, Options{})
	assert.False(t, res.Bag.HasErrors(), codes(res.Bag))
	require.Len(t, res.Packages, 1)

	pkg := res.Packages[0]
	assert.Equal(t, "game", pkg.Dir)
	assert.Equal(t, OutputWritten, pkg.Status)
	assert.Equal(t, []state.Unit{"game"}, pkg.Units)
	assert.Equal(t, wantGameOutput, readOutput(t, root, "game"))

	again := run(t, root, Options{})
	assert.Equal(t, OutputUnchanged, again.Packages[0].Status)
	assert.Equal(t, wantGameOutput, readOutput(t, root, "game"))
}

func TestPassFileModeLateContribution(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/plugin.go": `package game

//autoplugin:register_type
type Early struct{}

//autoplugin:plugin
func Plugin() {}

//autoplugin:register_type
type Late struct{}
`,
	})

	res := run(t, root, Options{})
	require.True(t, res.Bag.HasErrors())
	assert.Equal(t, []diag.Code{diag.UnitAlreadyFinalized}, codes(res.Bag))

	d := res.Bag.Items()[0]
	assert.Equal(t, "plugin already registered above, move plugin fn to the bottom of the file", d.Message)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "plugin entry is here", d.Notes[0].Msg)

	assert.Equal(t, OutputSkipped, res.Packages[0].Status)
	assert.NoFileExists(t, filepath.Join(root, "game", project.DefaultOutput))

	snap, ok := res.Store.Peek("game/plugin.go")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Len())
}

func TestPassFileModeRoutines(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/a.go": `package game

//autoplugin:init_state
type Mode int

//autoplugin:plugin(app = a)
func Modes() {}
`,
		"game/b.go": `package game

//autoplugin:add_system(schedule = Update)
func move() {}

//autoplugin:plugin
func Movement() {}
`,
	})

	res := run(t, root, Options{})
	assert.False(t, res.Bag.HasErrors(), codes(res.Bag))
	out := readOutput(t, root, "game")
	assert.Contains(t, out, "func modesAutoPlugin(a autoplugin.App) {")
	assert.Contains(t, out, "\ta.InitState(reflect.TypeFor[Mode]())")
	assert.Contains(t, out, "func movementAutoPlugin(app autoplugin.App) {")
	assert.Contains(t, out, "\tapp.AddSystem(Update, move)")
	assert.Less(t, strings.Index(out, "modesAutoPlugin"), strings.Index(out, "movementAutoPlugin"))
	assert.Equal(t, []state.Unit{"game/a.go", "game/b.go"}, res.Packages[0].Units)
}

func TestFileRoutineName(t *testing.T) {
	assert.Equal(t, "pluginAutoPlugin", fileRoutineName("plugin"))
	assert.Equal(t, "pluginAutoPlugin", fileRoutineName("Plugin"))
	assert.Equal(t, "éclairAutoPlugin", fileRoutineName("Éclair"))
}

func TestPassFileModeKeepsExplicitName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/a.go": `package game

//autoplugin:register_type
type A struct{}

//autoplugin:plugin(init_name = RegisterA)
func Plugin() {}
`,
	})

	res := run(t, root, Options{})
	assert.False(t, res.Bag.HasErrors(), codes(res.Bag))
	assert.Contains(t, readOutput(t, root, "game"), "func RegisterA(app autoplugin.App) {")
}

func TestPassDuplicate(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go": gameDoc,
		"game/a.go": `package game

//autoplugin:register_type(generics(bool), generics(uint32))
type Test[T any] struct{ V T }
`,
		"game/c.go": `package game

//autoplugin:register_type(generics(uint32))
//autoplugin:register_type(generics(uint32))
type Other[T any] struct{ V T }
`,
	})

	res := run(t, root, Options{})
	assert.Equal(t, []diag.Code{diag.UnitDuplicate}, codes(res.Bag))
	d := res.Bag.Items()[0]
	assert.Equal(t, "duplicate attribute", d.Message)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "register_type Other[uint32] first declared here", d.Notes[0].Msg)

	snap, ok := res.Store.Peek("game")
	require.True(t, ok)
	assert.Len(t, snap.Categories[marker.RegisterType].Specs, 3)
}

func TestPassFinalizeTwice(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/a.go": `//autoplugin:plugin
package game
`,
		"game/b.go": `//autoplugin:plugin(init_name = other)
package game
`,
	})

	res := run(t, root, Options{})
	assert.Equal(t, []diag.Code{diag.UnitFinalizeTwice}, codes(res.Bag))
	d := res.Bag.Items()[0]
	assert.Equal(t, "game declares a second plugin entry", d.Message)
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "first plugin entry is here", d.Notes[0].Msg)
}

func TestPassMissingFinalize(t *testing.T) {
	files := map[string]string{
		"game/types.go": gameTypes,
		"plain/plain.go": `package plain

func Helper() {}
`,
	}

	tests := []struct {
		mode finalcheck.Mode
		sev  diag.Severity
		want int
	}{
		{finalcheck.ModeOff, 0, 0},
		{finalcheck.ModeInfo, diag.SevInfo, 1},
		{finalcheck.ModeWarning, diag.SevWarning, 1},
		{finalcheck.ModeError, diag.SevError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			root := writeTree(t, files)
			res := run(t, root, Options{Missing: tt.mode})
			require.Equal(t, tt.want, res.Bag.Len())
			if tt.want == 0 {
				return
			}
			d := res.Bag.Items()[0]
			assert.Equal(t, diag.UnitMissingFinalize, d.Code)
			assert.Equal(t, tt.sev, d.Severity)
			assert.Equal(t, "missing #[auto_plugin(...)] attribute in file: game", d.Message)
			assert.Equal(t, "game", d.Subject)
		})
	}
}

func TestPassCheckMode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
	})

	res := run(t, root, Options{Check: true})
	assert.Equal(t, []diag.Code{diag.GenStale}, codes(res.Bag))
	assert.Equal(t, OutputStale, res.Packages[0].Status)
	assert.NoFileExists(t, filepath.Join(root, "game", project.DefaultOutput))

	run(t, root, Options{})
	res = run(t, root, Options{Check: true})
	assert.Zero(t, res.Bag.Len())
	assert.Equal(t, OutputUnchanged, res.Packages[0].Status)
}

func TestPassRemovesStaleOutput(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
	})
	run(t, root, Options{})

	require.NoError(t, os.Remove(filepath.Join(root, "game", "doc.go")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "game", "types.go"), []byte("package game\n"), 0o644))

	res := run(t, root, Options{Check: true})
	assert.Equal(t, []diag.Code{diag.GenStale}, codes(res.Bag))

	res = run(t, root, Options{})
	assert.Equal(t, OutputRemoved, res.Packages[0].Status)
	assert.NoFileExists(t, filepath.Join(root, "game", project.DefaultOutput))
}

func TestPassKeepsForeignOutput(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/types.go":                 "package game\n",
		"game/" + project.DefaultOutput: "package game\n\n// hand written\n",
	})

	res := run(t, root, Options{})
	assert.Equal(t, OutputNone, res.Packages[0].Status)
	assert.FileExists(t, filepath.Join(root, "game", project.DefaultOutput))
}

func TestPassScanCache(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
	})
	cache, err := scancache.OpenDir(t.TempDir())
	require.NoError(t, err)

	first := run(t, root, Options{Cache: cache})
	assert.Equal(t, OutputWritten, first.Packages[0].Status)

	sink := &pipeline.RecordingSink{}
	timer := observ.NewTimer()
	second := run(t, root, Options{Cache: cache, Progress: sink, Timer: timer, Timings: true})
	assert.Equal(t, OutputUnchanged, second.Packages[0].Status)
	assert.Equal(t, wantGameOutput, readOutput(t, root, "game"))

	last, ok := sink.Last("game/types.go")
	require.True(t, ok)
	assert.Equal(t, pipeline.StatusDone, last.Status)

	found := false
	for _, phase := range timer.Report().Phases {
		if phase.Name == "scan" {
			found = true
			assert.Equal(t, "2 cached", phase.Note)
		}
	}
	assert.True(t, found)
	assert.Equal(t, []diag.Code{diag.ObsTimings}, codes(second.Bag))
}

func TestPassExcludeDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":       gameDoc,
		"game/types.go":     gameTypes,
		"gen/types.go":      gameTypes,
		"testdata/types.go": gameTypes,
		"_skip/types.go":    gameTypes,
	})

	res := run(t, root, Options{Exclude: project.ExcludeConfig{Dirs: []string{"gen"}}})
	assert.Zero(t, res.Bag.Len(), codes(res.Bag))
	require.Len(t, res.Packages, 1)
	assert.Equal(t, "game", res.Packages[0].Dir)
}

func TestPassIgnoresFilesExcludedByBuildConstraints(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
		"game/gen.go": `//go:build ignore

package main

//autoplugin:register_type
type Generator struct{}

func main() {}
`,
	})

	res := run(t, root, Options{})
	assert.Zero(t, res.Bag.Len(), codes(res.Bag))
	require.Len(t, res.Packages, 1)
	assert.Equal(t, OutputWritten, res.Packages[0].Status)
	assert.Equal(t, wantGameOutput, readOutput(t, root, "game"))
}

func TestPassReportsMarkersOnMethodsAndValues(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go": gameDoc,
		"game/mover.go": `package game

type Mover struct{}

//autoplugin:add_system(schedule = Update)
func (Mover) Move() {}

//autoplugin:init_resource
var Config = Mover{}

//autoplugin:register_type

type Detached struct{}
`,
	})

	res := run(t, root, Options{})
	assert.Equal(t, []diag.Code{diag.ScanMisplaced, diag.ScanMisplaced, diag.ScanMisplaced}, codes(res.Bag))
	assert.Equal(t, OutputSkipped, res.Packages[0].Status)
	assert.NoFileExists(t, filepath.Join(root, "game", project.DefaultOutput))
}

func TestPassRootPackageUnitName(t *testing.T) {
	root := writeTree(t, map[string]string{
		"types.go": gameTypes,
	})
	name := filepath.Base(root)

	res := run(t, root, Options{Missing: finalcheck.ModeWarning})
	require.Equal(t, 1, res.Bag.Len(), codes(res.Bag))
	d := res.Bag.Items()[0]
	assert.Equal(t, diag.UnitMissingFinalize, d.Code)
	assert.Equal(t, name, d.Subject)
	assert.Equal(t, "missing #[auto_plugin(...)] attribute in file: "+name, d.Message)
	assert.Equal(t, ".", res.Packages[0].Dir)
}

func TestPackageUnits(t *testing.T) {
	assert.Equal(t, []state.Unit{"game", "ai"}, packageUnits("/src/game", []string{".", "ai"}))
	assert.Equal(t, []state.Unit{".", "game"}, packageUnits("/src/game", []string{".", "game"}))
}

func TestPassSyntaxErrorSkipsPackage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"game/doc.go":   gameDoc,
		"game/types.go": gameTypes,
		"game/bad.go":   "package game\n\nfunc {\n",
	})

	res := run(t, root, Options{})
	assert.Contains(t, codes(res.Bag), diag.ScanGoSyntax)
	assert.Equal(t, OutputSkipped, res.Packages[0].Status)
	assert.NoFileExists(t, filepath.Join(root, "game", project.DefaultOutput))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := project.DefaultConfig().Generate
	cfg.MissingPlugin = "error"
	cfg.Jobs = 3

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, finalcheck.ModeError, opts.Missing)
	assert.Equal(t, 3, opts.Jobs)
	assert.Equal(t, []string{"testdata", "vendor"}, opts.Exclude.Dirs)

	cfg.MissingPlugin = "loud"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
