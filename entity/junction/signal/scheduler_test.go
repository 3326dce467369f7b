package signal_test

import (
	"testing"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"golang.org/x/exp/rand"
)

const dt = .5

// fixedSource 总是返回相同车辆数的负载源
type fixedSource struct {
	counts  map[string]entity.ClassCounts
	samples int64
}

func (s *fixedSource) Name() string { return "fixed" }
func (s *fixedSource) Sample() entity.LoadSnapshot {
	s.samples++
	return entity.LoadSnapshot{Seq: s.samples, Counts: s.counts, Source: s.Name()}
}
func (s *fixedSource) Reset() {}
func (s *fixedSource) Close() {}

func twoPhaseConfig(t *testing.T) *config.RuntimeConfig {
	rc, err := config.NewRuntimeConfig(config.Config{
		Junction: config.Junction{
			ID: 7,
			Approaches: []config.Approach{
				{ID: "a", Entry: config.Point{X: 0, Y: 100}, StopLine: config.Point{X: 0, Y: 10}},
				{ID: "b", Entry: config.Point{X: 100, Y: 0}, StopLine: config.Point{X: 10, Y: 0}},
			},
			Phases: []config.Phase{
				{Approaches: []string{"a"}, MinGreen: 10, MaxGreen: 60},
				{Approaches: []string{"b"}, MinGreen: 10, MaxGreen: 60},
			},
		},
		Signal: config.Signal{GreenTotal: 80, Amber: 3, AllRed: 2},
	})
	require.NoError(t, err)
	return rc
}

func newScheduler(t *testing.T, counts map[string]entity.ClassCounts) (*signal.Scheduler, *fixedSource) {
	src := &fixedSource{counts: counts}
	l, err := signal.New(twoPhaseConfig(t), src, nil)
	require.NoError(t, err)
	return l, src
}

type step struct {
	phase int
	sub   entity.SubState
}

// transitions 推进信号机并记录每次子状态切换
func transitions(l *signal.Scheduler, ticks int) ([]step, map[step]float64) {
	cur := step{l.State().PhaseIndex, l.State().Sub}
	seq := []step{cur}
	duration := map[step]float64{}
	for range ticks {
		l.Update(dt)
		next := step{l.State().PhaseIndex, l.State().Sub}
		duration[cur] += dt
		if next != cur {
			seq = append(seq, next)
			cur = next
		}
	}
	return seq, duration
}

func TestInitialState(t *testing.T) {
	l, src := newScheduler(t, nil)
	s := l.State()
	assert.Equal(t, 0, s.PhaseIndex)
	assert.Equal(t, entity.SubStateAllRed, s.Sub)
	assert.Equal(t, int32(0), s.Cycle)
	assert.Equal(t, 2., s.Remaining)
	assert.Equal(t, []float64{40, 40}, l.Greens())
	assert.Equal(t, 0, l.NextPhase())
	assert.Equal(t, int64(0), src.samples)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("a"))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("b"))
}

func TestCycle(t *testing.T) {
	l, src := newScheduler(t, map[string]entity.ClassCounts{
		"a": {300, 0, 0},
		"b": {60, 10, 5}, // 60 + 25 + 15 = 100
	})
	var allocations []signal.Allocation
	l.OnAllocate(func(a signal.Allocation) { allocations = append(allocations, a) })

	// 全红2秒 + 相位0绿60黄3全红2 + 相位1绿20黄3全红2 + 1秒
	seq, duration := transitions(l, int((2+65+25+1)/dt))
	assert.Equal(t, []step{
		{0, entity.SubStateAllRed},
		{0, entity.SubStateGreen},
		{0, entity.SubStateAmber},
		{1, entity.SubStateAllRed},
		{1, entity.SubStateGreen},
		{1, entity.SubStateAmber},
		{0, entity.SubStateAllRed},
		{0, entity.SubStateGreen},
	}, seq)
	assert.Equal(t, 60., duration[step{0, entity.SubStateGreen}]-1)
	assert.Equal(t, 20., duration[step{1, entity.SubStateGreen}])
	assert.Equal(t, 3., duration[step{0, entity.SubStateAmber}])
	assert.Equal(t, 2., duration[step{1, entity.SubStateAllRed}])

	assert.Equal(t, int32(2), l.State().Cycle)
	assert.Equal(t, int64(2), src.samples)
	require.Len(t, allocations, 2)
	assert.Equal(t, int32(1), allocations[0].Cycle)
	assert.Equal(t, []float64{300, 100}, allocations[0].Loads)
	assert.InDeltaSlice(t, []float64{60, 20}, allocations[0].Greens, 1e-9)
	assert.Equal(t, "fixed", allocations[0].Snapshot.Source)
}

func TestLights(t *testing.T) {
	l, _ := newScheduler(t, nil)
	l.Update(2) // -> GREEN(0)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, l.Light("a"))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("b"))
	assert.Equal(t, int32(0), l.ProgramIndex())
	assert.Equal(t, 1, l.NextPhase())

	require.True(t, l.Skip())
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_YELLOW, l.Light("a"))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("b"))
	assert.Equal(t, int32(1), l.ProgramIndex())

	l.Update(3) // -> ALL_RED(1)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("a"))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("b"))
	assert.Equal(t, int32(2), l.ProgramIndex())
	assert.Equal(t, 1, l.NextPhase())

	l.Update(2) // -> GREEN(1)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light("a"))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, l.Light("b"))
	assert.Equal(t, int32(3), l.ProgramIndex())
}

func TestSkip(t *testing.T) {
	l, _ := newScheduler(t, nil)
	assert.False(t, l.Skip(), "skip in ALL_RED")
	assert.Equal(t, entity.SubStateAllRed, l.State().Sub)

	l.Update(2)
	require.Equal(t, entity.SubStateGreen, l.State().Sub)
	require.True(t, l.Skip())
	s := l.State()
	assert.Equal(t, entity.SubStateAmber, s.Sub)
	assert.Equal(t, 0, s.PhaseIndex)
	assert.Equal(t, 3., s.Remaining)

	assert.False(t, l.Skip(), "skip in AMBER")
	assert.Equal(t, 3., l.State().Remaining)

	seq, _ := transitions(l, int(5/dt))
	assert.Equal(t, []step{
		{0, entity.SubStateAmber},
		{1, entity.SubStateAllRed},
		{1, entity.SubStateGreen},
	}, seq)
}

func TestReset(t *testing.T) {
	l, _ := newScheduler(t, map[string]entity.ClassCounts{"a": {3, 0, 0}})
	transitions(l, 400)
	require.NotEqual(t, int32(0), l.State().Cycle)
	l.Reset()
	s := l.State()
	assert.Equal(t, entity.SignalState{PhaseIndex: 0, Sub: entity.SubStateAllRed, Remaining: 2, Total: 2, Cycle: 0}, s)
}

func TestPrime(t *testing.T) {
	l, src := newScheduler(t, map[string]entity.ClassCounts{"a": {300, 0, 0}, "b": {100, 0, 0}})
	var allocations []signal.Allocation
	l.OnAllocate(func(a signal.Allocation) { allocations = append(allocations, a) })
	l.Prime(entity.LoadSnapshot{Seq: 1, Source: "initial", Counts: map[string]entity.ClassCounts{
		"a": {10, 0, 0},
		"b": {10, 0, 0},
	}})

	l.Update(2) // -> GREEN(0)，使用指定的快照
	require.Len(t, allocations, 1)
	assert.Equal(t, int64(0), src.samples)
	assert.Equal(t, "initial", allocations[0].Snapshot.Source)
	assert.Equal(t, []float64{40, 40}, l.Greens())

	// 第二个周期重新采样
	transitions(l, int(90/dt))
	require.Len(t, allocations, 2)
	assert.Equal(t, int64(1), src.samples)
	assert.InDeltaSlice(t, []float64{60, 20}, l.Greens(), 1e-9)

	// 重置丢弃尚未使用的快照
	l.Prime(entity.LoadSnapshot{Source: "initial"})
	l.Reset()
	l.Update(2)
	assert.Equal(t, int64(2), src.samples)
	assert.Equal(t, "fixed", l.Snapshot().Source)
}

func TestProgram(t *testing.T) {
	l, _ := newScheduler(t, map[string]entity.ClassCounts{"a": {300, 0, 0}, "b": {100, 0, 0}})
	l.Update(2)
	tl := l.Program()
	assert.Equal(t, int32(7), tl.JunctionId)
	require.Len(t, tl.Phases, 6)
	assert.InDelta(t, 60, tl.Phases[0].Duration, 1e-9)
	assert.Equal(t, 3., tl.Phases[1].Duration)
	assert.Equal(t, 2., tl.Phases[2].Duration)
	assert.InDelta(t, 20, tl.Phases[3].Duration, 1e-9)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_GREEN, mapv2.LightState_LIGHT_STATE_RED}, tl.Phases[0].States)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_YELLOW, mapv2.LightState_LIGHT_STATE_RED}, tl.Phases[1].States)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED, mapv2.LightState_LIGHT_STATE_RED}, tl.Phases[2].States)
	assert.Equal(t, []mapv2.LightState{mapv2.LightState_LIGHT_STATE_RED, mapv2.LightState_LIGHT_STATE_GREEN}, tl.Phases[3].States)
}

// 任意的跳过、重置与推进序列下，放行的进口道都属于同一相位，且绿灯之后一定经过黄灯与全红
func TestRandomCommands(t *testing.T) {
	l, _ := newScheduler(t, map[string]entity.ClassCounts{"a": {5, 1, 0}, "b": {2, 0, 1}})
	r := rand.New(rand.NewSource(7))
	prev := l.State()
	for range 20000 {
		switch r.Intn(100) {
		case 0:
			l.Reset()
		case 1, 2, 3:
			l.Skip()
		default:
			l.Update(dt)
		}
		cur := l.State()
		greenA := l.Light("a") == mapv2.LightState_LIGHT_STATE_GREEN
		greenB := l.Light("b") == mapv2.LightState_LIGHT_STATE_GREEN
		require.False(t, greenA && greenB)
		if cur.Sub == entity.SubStateGreen && prev.Sub != entity.SubStateGreen {
			require.Equal(t, entity.SubStateAllRed, prev.Sub, "GREEN entered from %v", prev)
		}
		if cur.Sub == entity.SubStateGreen && prev.Sub == entity.SubStateGreen {
			require.Equal(t, prev.PhaseIndex, cur.PhaseIndex, "GREEN(%d) -> GREEN(%d)", prev.PhaseIndex, cur.PhaseIndex)
		}
		prev = cur
	}
}

func TestOverlappingPreset(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{Junction: config.Junction{Type: 3}})
	require.NoError(t, err)
	l, err := signal.New(rc, &fixedSource{}, nil)
	require.NoError(t, err)
	require.Len(t, l.Phases(), 3)
	assert.True(t, l.InPhase(config.East, 0))
	assert.True(t, l.InPhase(config.East, 1))
	assert.False(t, l.InPhase(config.East, 2))
	assert.False(t, l.InPhase(config.East, 3))
	assert.False(t, l.InPhase("missing", 0))

	l.Update(2)
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, l.Light(config.North))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_GREEN, l.Light(config.East))
	assert.Equal(t, mapv2.LightState_LIGHT_STATE_RED, l.Light(config.South))
}
