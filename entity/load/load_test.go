package load_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/detect"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/load"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/input"
)

var (
	approaches = []string{"north", "south"}
	bounds     = config.DummyLoad{
		Car:   config.CountRange{Min: 0, Max: 6},
		Bus:   config.CountRange{Min: 1, Max: 2},
		Truck: config.CountRange{Min: 0, Max: 0},
	}
)

func TestDummy(t *testing.T) {
	d := load.NewDummy(approaches, bounds, 42)
	first := make([]entity.LoadSnapshot, 50)
	for i := range first {
		s := d.Sample()
		assert.Equal(t, int64(i+1), s.Seq)
		assert.False(t, s.Degraded)
		assert.Equal(t, "dummy", s.Source)
		require.Len(t, s.Counts, 2)
		for _, c := range s.Counts {
			assert.GreaterOrEqual(t, c[entity.VehicleClassCar], int32(0))
			assert.LessOrEqual(t, c[entity.VehicleClassCar], int32(6))
			assert.Contains(t, []int32{1, 2}, c[entity.VehicleClassBus])
			assert.Equal(t, int32(0), c[entity.VehicleClassTruck])
		}
		first[i] = s
	}

	// 同一种子、Reset之后序列相同
	other := load.NewDummy(approaches, bounds, 42)
	d.Reset()
	for i := range first {
		assert.Equal(t, first[i], d.Sample())
		assert.Equal(t, first[i], other.Sample())
	}
}

func TestReplay(t *testing.T) {
	r := load.NewReplay([]input.Record{
		{Approaches: map[string]input.ClassRecord{"north": {Car: 1}}},
		{Approaches: map[string]input.ClassRecord{"north": {Bus: 2}}},
	})
	assert.Equal(t, entity.ClassCounts{1, 0, 0}, r.Sample().Get("north"))
	assert.Equal(t, entity.ClassCounts{0, 2, 0}, r.Sample().Get("north"))
	s := r.Sample()
	assert.Equal(t, entity.ClassCounts{1, 0, 0}, s.Get("north"), "wraps around")
	assert.Equal(t, int64(3), s.Seq)
	r.Reset()
	s = r.Sample()
	assert.Equal(t, int64(1), s.Seq)
	assert.Equal(t, entity.ClassCounts{1, 0, 0}, s.Get("north"))
	assert.Panics(t, func() { load.NewReplay(nil) })
}

type counter map[string]entity.ClassCounts

func (c counter) QueuedCounts() map[string]entity.ClassCounts { return c }

func TestQueue(t *testing.T) {
	q := load.NewQueue(counter{"north": {3, 1, 0}})
	s := q.Sample()
	assert.Equal(t, "queue", s.Source)
	assert.Equal(t, int32(4), s.Total())
}

// stubDetector 按调用序号返回结果，release非nil时等待其关闭
type stubDetector struct {
	calls   atomic.Int32
	fail    atomic.Bool
	release chan struct{}
}

func (d *stubDetector) Detect(ctx context.Context, image []byte, contentType string) ([]detect.Detection, error) {
	d.calls.Add(1)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, errors.Join(detect.ErrDetectionUnavailable, ctx.Err())
		}
	}
	if d.fail.Load() {
		return nil, detect.ErrDetectionUnavailable
	}
	return []detect.Detection{
		{Class: "car", Confidence: .9},
		{Class: "truck", Confidence: .8},
		{Class: "car", Confidence: .1},
	}, nil
}

func frames(t *testing.T) config.DetectorLoad {
	dir := t.TempDir()
	c := config.DetectorLoad{Confidence: .25, Frames: map[string][]string{}}
	for _, id := range approaches {
		path := filepath.Join(dir, id+".jpg")
		require.NoError(t, os.WriteFile(path, []byte("frame"), 0o644))
		c.Frames[id] = []string{path}
	}
	return c
}

func newDetectorSource(t *testing.T, d detect.Detector) *load.DetectorSource {
	s, err := load.NewDetectorSource(d, approaches, frames(t), load.NewDummy(approaches, bounds, 1))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestDetectorSource(t *testing.T) {
	d := &stubDetector{}
	s := newDetectorSource(t, d)

	first := s.Sample()
	assert.True(t, first.Degraded, "no detection has completed")
	assert.Equal(t, "detector", first.Source)

	var got entity.LoadSnapshot
	require.Eventually(t, func() bool {
		got = s.Sample()
		return !got.Degraded
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, entity.ClassCounts{1, 0, 1}, got.Get("north"))
	assert.Equal(t, entity.ClassCounts{1, 0, 1}, got.Get("south"))

	// 检测失败后降级，恢复后重新使用检测结果
	d.fail.Store(true)
	require.Eventually(t, func() bool { return s.Sample().Degraded }, time.Second, 5*time.Millisecond)
	d.fail.Store(false)
	require.Eventually(t, func() bool { return !s.Sample().Degraded }, time.Second, 5*time.Millisecond)
}

func TestDetectorSourceNeverBlocks(t *testing.T) {
	d := &stubDetector{release: make(chan struct{})}
	s := newDetectorSource(t, d)

	start := time.Now()
	for range 100 {
		assert.True(t, s.Sample().Degraded)
	}
	assert.Less(t, time.Since(start), time.Second)
	// 每个进口道一次调用，请求未完成前不会发起新请求
	require.Eventually(t, func() bool { return d.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	// Reset之后到达的结果被丢弃
	s.Reset()
	close(d.release)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.Sample().Degraded, "late result discarded")
	require.Eventually(t, func() bool { return !s.Sample().Degraded }, time.Second, 5*time.Millisecond)
}

func TestDetectorSourceClose(t *testing.T) {
	d := &stubDetector{release: make(chan struct{})}
	s := newDetectorSource(t, d)
	s.Sample()
	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the request in flight")
	}
	assert.True(t, s.Sample().Degraded)
}

func TestDetectorSourceMissingFrames(t *testing.T) {
	_, err := load.NewDetectorSource(&stubDetector{}, approaches, config.DetectorLoad{}, load.NewDummy(approaches, bounds, 1))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	rc, err := config.NewRuntimeConfig(config.Config{Junction: config.Junction{Type: 4}})
	require.NoError(t, err)
	s, err := load.New(rc, nil)
	require.NoError(t, err)
	assert.Equal(t, "dummy", s.Name())
	assert.Len(t, s.Sample().Counts, 4)

	rc.All.Load.Mode = config.LoadModeQueue
	_, err = load.New(rc, nil)
	assert.Error(t, err)
	s, err = load.New(rc, counter{})
	require.NoError(t, err)
	assert.Equal(t, "queue", s.Name())

	rc.All.Load.Mode = "camera"
	_, err = load.New(rc, nil)
	assert.Error(t, err)
}
