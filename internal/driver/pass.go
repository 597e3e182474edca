// Package driver runs one pass over a directory tree: load, scan,
// collect into the store, finalize, generate and check.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"autoplugin/internal/ctxlog"
	"autoplugin/internal/diag"
	"autoplugin/internal/finalcheck"
	"autoplugin/internal/pipeline"
	"autoplugin/internal/project"
	"autoplugin/internal/scan"
	"autoplugin/internal/scancache"
	"autoplugin/internal/source"
	"autoplugin/internal/state"
)

// Pass owns the state of one run. A Pass is used once.
type Pass struct {
	root    string
	opts    Options
	Store   *state.Store
	FileSet *source.FileSet

	timings pipeline.Timings
}

// Result is the outcome of a pass.
type Result struct {
	Root     string
	FileSet  *source.FileSet
	Store    *state.Store
	Bag      *diag.Bag
	Packages []PackageResult
	// Timings holds the wall time of every staged phase.
	Timings pipeline.Timings
}

type fileResult struct {
	path   string
	rel    string
	id     source.FileID
	loaded bool
	cached bool
	res    *scan.Result
	bag    *diag.Bag
}

// NewPass prepares a pass rooted at root.
func NewPass(root string, opts Options) *Pass {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Pass{
		root:    root,
		opts:    opts,
		Store:   state.New(),
		FileSet: source.NewFileSetWithBase(root),
	}
}

// Run executes the pass. The returned error covers walk failures and
// cancellation only; everything about the sources is in Result.Bag.
func (p *Pass) Run(ctx context.Context) (*Result, error) {
	log := ctxlog.FromContext(ctx)

	end := p.beginPhase("walk")
	dirs, err := listPackages(p.root, p.opts.output(), p.opts.Exclude, p.opts.buildContext())
	if err != nil {
		end("failed")
		return nil, fmt.Errorf("walk %s: %w", p.root, err)
	}
	rels := make([]string, len(dirs))
	for i, d := range dirs {
		rels[i] = p.rel(d.Dir)
	}
	units := packageUnits(p.root, rels)
	pkgs := make([]*pkgState, len(dirs))
	var files []*fileResult
	for i, d := range dirs {
		ps := &pkgState{dir: d.Dir, rel: rels[i], unit: units[i], bag: diag.NewBag(p.opts.MaxDiagnostics)}
		for _, path := range d.Files {
			fr := &fileResult{path: path, rel: p.rel(path), bag: diag.NewBag(p.opts.MaxDiagnostics)}
			ps.files = append(ps.files, fr)
			files = append(files, fr)
			pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageLoad, Status: pipeline.StatusQueued})
		}
		pkgs[i] = ps
	}
	end(fmt.Sprintf("%d packages, %d files", len(dirs), len(files)))
	log.Debug("walked source tree", "root", p.root, "packages", len(dirs), "files", len(files))

	end = p.beginPhase("load")
	p.loadAll(files)
	end("")

	end = p.beginPhase("scan")
	if err := p.scanAll(ctx, files); err != nil {
		end("canceled")
		return nil, err
	}
	cached := 0
	for _, fr := range files {
		if fr.cached {
			cached++
		}
	}
	end(fmt.Sprintf("%d cached", cached))

	end = p.beginPhase("collect")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.jobs(len(pkgs)))
	for _, ps := range pkgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.collect(ps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		end("canceled")
		return nil, err
	}
	end("")

	end = p.beginPhase("finalize")
	for _, ps := range pkgs {
		p.finalizePackage(ps)
	}
	end(fmt.Sprintf("%d units", len(p.Store.Units())))

	end = p.beginPhase("generate")
	results := make([]PackageResult, 0, len(pkgs))
	for _, ps := range pkgs {
		results = append(results, p.generate(ctx, ps))
	}
	end("")

	end = p.beginPhase("check")
	checkBag := diag.NewBag(p.opts.MaxDiagnostics)
	missing := finalcheck.Report(p.Store, p.opts.Missing, diag.BagReporter{Bag: checkBag})
	end(fmt.Sprintf("%d unfinalized", missing))
	if missing > 0 {
		log.Debug("units without plugin entry", "count", missing, "mode", p.opts.Missing.String())
	}

	bag := diag.NewBag(p.opts.MaxDiagnostics)
	for _, fr := range files {
		bag.Merge(fr.bag)
	}
	for _, ps := range pkgs {
		bag.Merge(ps.bag)
	}
	bag.Merge(checkBag)
	// one marker expanding to the same spec twice is reported once
	bag.Dedup()
	if p.opts.Timings {
		report := p.opts.Timer.Report()
		appendTimingDiagnostic(bag, timingPayload{TotalMS: report.TotalMS, Phases: report.Phases})
	}

	for _, fr := range files {
		status := pipeline.StatusDone
		switch {
		case fr.bag.HasErrors():
			status = pipeline.StatusError
		case fr.res == nil || (len(fr.res.Tuples) == 0 && len(fr.res.Entries) == 0):
			status = pipeline.StatusSkipped
		}
		pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageWrite, Status: status})
	}

	return &Result{
		Root:     p.root,
		FileSet:  p.FileSet,
		Store:    p.Store,
		Bag:      bag,
		Packages: results,
		Timings:  p.timings,
	}, nil
}

func (p *Pass) loadAll(files []*fileResult) {
	for _, fr := range files {
		pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageLoad, Status: pipeline.StatusWorking})
		id, err := p.FileSet.Load(fr.path)
		if err != nil {
			fr.bag.Add(diag.NewUnit(diag.SevError, diag.IOLoadFileError, fr.rel, err.Error()))
			pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: err})
			continue
		}
		fr.id, fr.loaded = id, true
	}
}

func (p *Pass) scanAll(ctx context.Context, files []*fileResult) error {
	if len(files) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.jobs(len(files)))
	for _, fr := range files {
		if !fr.loaded {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			pipeline.Emit(p.opts.Progress, pipeline.Event{File: fr.rel, Stage: pipeline.StageScan, Status: pipeline.StatusWorking})
			fr.res = p.scanFile(gctx, fr)
			return nil
		})
	}
	return g.Wait()
}

// scanFile classifies one file, reusing cached marker data when the
// content is unchanged. Only files that parsed cleanly are cached.
func (p *Pass) scanFile(ctx context.Context, fr *fileResult) *scan.Result {
	log := ctxlog.FromContext(ctx)
	f := p.FileSet.Get(fr.id)
	reporter := diag.BagReporter{Bag: fr.bag}

	key := scancache.Key(project.Digest(f.Hash))
	raw, ok, err := p.opts.Cache.Get(key)
	if err != nil {
		log.Debug("scan cache read failed", "file", fr.rel, "error", err)
	}
	if ok {
		fr.cached = true
		return scan.Classify(fr.id, raw, reporter)
	}

	parsed, ok := scan.ParseFile(f, reporter)
	if !ok {
		return nil
	}
	if p.opts.Cache != nil {
		if err := p.opts.Cache.Put(key, fr.rel, &parsed); err != nil {
			log.Warn("scan cache write failed", "file", fr.rel, "error", err)
		}
	}
	return scan.Classify(fr.id, &parsed, reporter)
}

func (p *Pass) jobs(n int) int {
	jobs := p.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(min(jobs, n), 1)
}

// rel renders path relative to the pass root with forward slashes.
func (p *Pass) rel(path string) string {
	r, err := filepath.Rel(p.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}
