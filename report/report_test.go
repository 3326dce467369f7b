package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/report"
	"gopkg.in/yaml.v2"
)

func snapshot(step int32, queues ...int32) *entity.Snapshot {
	s := &entity.Snapshot{
		RunID: "run",
		Step:  step,
		T:     float64(step) / 10,
		Phases: []entity.PhaseView{
			{Approaches: []string{"north", "south"}},
			{Approaches: []string{"east", "west"}},
		},
		Throughput:          step / 10,
		ThroughputPerMinute: 6,
	}
	for i, id := range []string{"north", "south"} {
		s.Approaches = append(s.Approaches, entity.ApproachView{ID: id, QueueLength: queues[i]})
	}
	return s
}

func record(r *report.Recorder) {
	r.RecordAllocation(signal.Allocation{Cycle: 1, T: 2, Greens: []float64{20, 40}, Loads: []float64{1, 3},
		Snapshot: entity.LoadSnapshot{Source: "dummy", Counts: map[string]entity.ClassCounts{"north": {1, 0, 0}}}})
	r.RecordAllocation(signal.Allocation{Cycle: 2, T: 72, Greens: []float64{30, 30}, Loads: []float64{2, 2},
		Snapshot: entity.LoadSnapshot{Source: "detector", Degraded: true}})
	for step := int32(0); step < 40; step++ {
		r.RecordSnapshot(snapshot(step, step/10, 1))
	}
}

func TestRecorder(t *testing.T) {
	r := report.NewRecorder(10)
	record(r)
	// 暂停时同一步重复发布
	r.RecordSnapshot(snapshot(30, 9, 9))

	assert.Equal(t, []string{"north", "south"}, r.Approaches())
	cycles := r.Cycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, int32(1), cycles[0].Vehicles)
	assert.True(t, cycles[1].Degraded)

	samples := r.Samples()
	require.Len(t, samples, 4)
	assert.Equal(t, []int32{0, 10, 20, 30}, []int32{samples[0].Step, samples[1].Step, samples[2].Step, samples[3].Step})
	assert.Equal(t, []int32{3, 1}, samples[3].Queues)
}

func TestSummary(t *testing.T) {
	r := report.NewRecorder(10)
	assert.Zero(t, r.Summary().Cycles)
	record(r)

	s := r.Summary()
	assert.Equal(t, "run", s.RunID)
	assert.Equal(t, 2, s.Cycles)
	assert.Equal(t, 1, s.DegradedCycles)
	require.Len(t, s.Phases, 2)
	assert.InDelta(t, 25, s.Phases[0].Green.Mean, 1e-9)
	assert.InDelta(t, 7.0710678, s.Phases[0].Green.StdDev, 1e-6)
	assert.InDelta(t, 30, s.Phases[0].Green.Max, 1e-9)
	assert.InDelta(t, 2.5, s.Phases[1].Load.Mean, 1e-9)
	assert.InDelta(t, 1.5, s.Queues["north"].Mean, 1e-9)
	assert.InDelta(t, 3, s.Queues["north"].Max, 1e-9)
	assert.Zero(t, s.Queues["south"].StdDev)
	assert.Equal(t, int32(3), s.Throughput)
	assert.InDelta(t, 3.9, s.Duration, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, r.WriteSummary(&buf))
	var decoded report.Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s, decoded)
}

func TestWriteHTML(t *testing.T) {
	r := report.NewRecorder(10)
	var buf bytes.Buffer
	assert.ErrorIs(t, r.WriteHTML(&buf), report.ErrNoData)

	record(r)
	require.NoError(t, r.WriteHTML(&buf))
	html := buf.String()
	assert.Contains(t, html, "Green time per cycle")
	assert.Contains(t, html, "P0(north,south)")
	assert.Contains(t, html, "P1(east,west)")
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := report.NewRecorder(10)
	record(r)
	require.NoError(t, r.WriteAll(dir))

	png, err := os.ReadFile(filepath.Join(dir, "queues.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
	for _, name := range []string{"report.html", "summary.yaml"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	// 没有数据时只输出摘要
	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, report.NewRecorder(1).WriteAll(empty))
	_, err = os.Stat(filepath.Join(empty, "queues.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(empty, "summary.yaml"))
	assert.NoError(t, err)
}
