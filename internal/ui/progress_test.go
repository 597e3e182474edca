package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoplugin/internal/pipeline"
)

func TestProgressModelAppliesEvents(t *testing.T) {
	events := make(chan pipeline.Event)
	model := NewProgressModel("generate", []string{"a.go", "b.go"}, events)
	m, ok := model.(*progressModel)
	require.True(t, ok)

	m.applyEvent(pipeline.Event{File: "a.go", Stage: pipeline.StageScan, Status: pipeline.StatusWorking})
	assert.Equal(t, "scanning", m.items[0].status)
	assert.Equal(t, 0, m.finished)

	m.applyEvent(pipeline.Event{File: "a.go", Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "a.go", Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	m.applyEvent(pipeline.Event{File: "b.go", Stage: pipeline.StageScan, Status: pipeline.StatusSkipped})
	m.applyEvent(pipeline.Event{File: "unknown.go", Stage: pipeline.StageScan, Status: pipeline.StatusDone})
	assert.Equal(t, 2, m.finished)

	m.applyEvent(pipeline.Event{Stage: pipeline.StageCheck, Status: pipeline.StatusWorking})
	assert.Equal(t, "checking", m.stageLabel)

	view := m.View()
	assert.Contains(t, view, "generate 2/2 (checking)")
	assert.Contains(t, view, "a.go")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("x", 30), 10)
	assert.Equal(t, "xxxxxxx...", got)
	assert.Equal(t, "xx", truncate("xxxxx", 2))
	assert.Equal(t, "界界界...", truncate(strings.Repeat("界", 20), 10))
}

func TestProgressModelDiscoversQueuedFiles(t *testing.T) {
	m := NewProgressModel("check", nil, nil).(*progressModel)

	m.applyEvent(pipeline.Event{File: "game/a.go", Stage: pipeline.StageLoad, Status: pipeline.StatusQueued})
	m.applyEvent(pipeline.Event{File: "game/b.go", Stage: pipeline.StageScan, Status: pipeline.StatusWorking})
	require.Len(t, m.items, 1)
	assert.Equal(t, "queued", m.items[0].status)

	m.applyEvent(pipeline.Event{File: "game/a.go", Stage: pipeline.StageWrite, Status: pipeline.StatusDone})
	assert.Equal(t, 1, m.finished)
	assert.Contains(t, m.View(), "check 1/1")
}
