package pipeline

import "time"

// Stage describes a high-level phase of a pass.
type Stage string

const (
	// StageLoad reads a file from disk.
	StageLoad Stage = "load"
	// StageScan parses a file and classifies its markers.
	StageScan Stage = "scan"
	// StageContribute feeds resolved specs into the store.
	StageContribute Stage = "contribute"
	// StageFinalize closes units at their plugin entry.
	StageFinalize Stage = "finalize"
	// StageGenerate renders the generated source.
	StageGenerate Stage = "generate"
	// StageWrite writes the generated file.
	StageWrite Stage = "write"
	// StageCheck runs the missing plugin check.
	StageCheck Stage = "check"
)

// Stages lists every stage in pass order.
var Stages = []Stage{StageLoad, StageScan, StageContribute, StageFinalize, StageGenerate, StageWrite, StageCheck}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusSkipped indicates the file carried no markers.
	StatusSkipped Status = "skipped"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the overall pass when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Add accumulates a duration for the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
