package driver

import (
	"go/build"

	"autoplugin/internal/finalcheck"
	"autoplugin/internal/observ"
	"autoplugin/internal/pipeline"
	"autoplugin/internal/project"
	"autoplugin/internal/scancache"
)

// Options controls one pass.
type Options struct {
	// Jobs bounds parallel scanning; zero means GOMAXPROCS.
	Jobs           int
	MaxDiagnostics int
	// Output is the generated file name in every package directory.
	Output    string
	APIImport string
	Missing   finalcheck.Mode
	// Exclude names directories the walk never enters.
	Exclude project.ExcludeConfig
	// Build decides which files belong to a package. Nil means
	// build.Default.
	Build *build.Context
	// Check compares generated output with what is on disk instead of
	// writing it.
	Check bool
	// Timings appends an ObsTimings diagnostic with the phase report.
	Timings bool

	Cache    *scancache.Cache
	Progress pipeline.ProgressSink
	Timer    *observ.Timer
	OnPhase  PhaseObserver
}

// OptionsFromConfig fills Options from a decoded autoplugin.toml. Fields
// the config cannot express are left zero.
func OptionsFromConfig(cfg project.GenerateConfig) (Options, error) {
	mode, err := finalcheck.ParseMode(cfg.MissingPlugin)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Jobs:      cfg.Jobs,
		Output:    cfg.Output,
		APIImport: cfg.APIImport,
		Missing:   mode,
		Exclude:   cfg.Exclude,
	}, nil
}

func (o Options) output() string {
	if o.Output == "" {
		return project.DefaultOutput
	}
	return o.Output
}

func (o Options) buildContext() *build.Context {
	if o.Build == nil {
		return &build.Default
	}
	return o.Build
}
