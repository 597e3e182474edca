package observ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("scan")
	tm.End(idx, "12 files")
	tm.End(tm.Begin("generate"), "")
	tm.End(42, "ignored")

	rep := tm.Report()
	require.Len(t, rep.Phases, 2)
	assert.Equal(t, "scan", rep.Phases[0].Name)
	assert.Equal(t, "12 files", rep.Phases[0].Note)
	assert.GreaterOrEqual(t, rep.TotalMS, rep.Phases[0].DurationMS)
	assert.Empty(t, rep.Phases[1].Note)
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	assert.Equal(t, -1, tm.Begin("x"))
	tm.End(0, "")
	assert.Equal(t, Report{}, tm.Report())
}
