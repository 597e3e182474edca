package driver

import (
	"time"

	"autoplugin/internal/pipeline"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a pass phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted during Pass.Run.
type PhaseObserver func(PhaseEvent)

// phaseStages maps pass phases onto the pipeline stages shown by progress
// sinks. The walk has no stage of its own.
var phaseStages = map[string]pipeline.Stage{
	"load":     pipeline.StageLoad,
	"scan":     pipeline.StageScan,
	"collect":  pipeline.StageContribute,
	"finalize": pipeline.StageFinalize,
	"generate": pipeline.StageGenerate,
	"check":    pipeline.StageCheck,
}

func (p *Pass) beginPhase(name string) func(note string) {
	idx := p.opts.Timer.Begin(name)
	start := time.Now()
	stage, staged := phaseStages[name]
	if staged {
		pipeline.Emit(p.opts.Progress, pipeline.Event{Stage: stage, Status: pipeline.StatusWorking})
	}
	if p.opts.OnPhase != nil {
		p.opts.OnPhase(PhaseEvent{Name: name, Status: PhaseStart})
	}
	return func(note string) {
		elapsed := time.Since(start)
		p.opts.Timer.End(idx, note)
		if staged {
			p.timings.Add(stage, elapsed)
		}
		if p.opts.OnPhase != nil {
			p.opts.OnPhase(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: elapsed})
		}
	}
}
