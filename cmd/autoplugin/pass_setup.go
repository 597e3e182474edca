package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"autoplugin/internal/ctxlog"
	"autoplugin/internal/driver"
	"autoplugin/internal/finalcheck"
	"autoplugin/internal/observ"
	"autoplugin/internal/project"
	"autoplugin/internal/scancache"
)

const cacheApp = "autoplugin"

// passSetup is everything a command needs to run one pass.
type passSetup struct {
	root     string
	manifest *project.Manifest
	opts     driver.Options
}

func addPassFlags(cmd *cobra.Command) {
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto, overrides [generate].jobs)")
	cmd.Flags().String("missing-plugin", "", "severity for units without plugin entry (off|info|warning|error)")
	cmd.Flags().Bool("cache", false, "reuse scan results from the user cache directory")
	cmd.Flags().Bool("no-cache", false, "disable the scan cache even if autoplugin.toml enables it")
}

// preparePass resolves the root directory, loads autoplugin.toml and
// applies flag overrides. Without an argument the directory holding
// autoplugin.toml is the root, or the working directory when none exists.
func preparePass(cmd *cobra.Command, args []string) (*passSetup, error) {
	log := ctxlog.FromContext(cmd.Context())

	start := "."
	if len(args) > 0 {
		start = args[0]
	}
	st, err := os.Stat(start)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", start)
	}

	manifest, found, err := project.LoadManifest(start)
	if err != nil {
		return nil, err
	}
	root := start
	if found && len(args) == 0 {
		root = manifest.Root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if found {
		log.Debug("loaded config", "path", manifest.Path)
	}

	opts, err := driver.OptionsFromConfig(manifest.Config.Generate)
	if err != nil {
		if found {
			return nil, fmt.Errorf("%s: %w", manifest.Path, err)
		}
		return nil, err
	}

	if cmd.Flags().Changed("jobs") {
		if opts.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("missing-plugin") {
		value, err := cmd.Flags().GetString("missing-plugin")
		if err != nil {
			return nil, err
		}
		if opts.Missing, err = finalcheck.ParseMode(value); err != nil {
			return nil, err
		}
	}

	opts.MaxDiagnostics, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		opts.Timer = observ.NewTimer()
	}

	useCache := manifest.Config.Generate.Cache
	if on, _ := cmd.Flags().GetBool("cache"); on {
		useCache = true
	}
	if off, _ := cmd.Flags().GetBool("no-cache"); off {
		useCache = false
	}
	if useCache {
		cache, err := scancache.Open(cacheApp)
		if err != nil {
			log.Warn("scan cache disabled", "error", err)
		} else {
			opts.Cache = cache
			log.Debug("scan cache enabled", "dir", cache.Dir())
		}
	}

	return &passSetup{root: root, manifest: manifest, opts: opts}, nil
}

func (s *passSetup) run(cmd *cobra.Command) (*driver.Result, error) {
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	res, err := driver.NewPass(s.root, s.opts).Run(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("pass failed: %w", err)
	}
	return res, nil
}
