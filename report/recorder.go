// 仿真报告：记录每个周期的配时结果与按步采样的排队情况，
// 仿真结束后输出HTML图表、PNG曲线与统计摘要
package report

import (
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
)

// CycleRecord 一个周期的配时记录
type CycleRecord struct {
	Cycle    int32     `yaml:"cycle"`
	T        float64   `yaml:"t"`
	Greens   []float64 `yaml:"greens"`
	Loads    []float64 `yaml:"loads"`
	Source   string    `yaml:"source"`
	Degraded bool      `yaml:"degraded"`
	Vehicles int32     `yaml:"vehicles"` // 负载快照中的车辆总数
}

// Sample 一次排队采样
type Sample struct {
	Step       int32
	T          float64
	Queues     []int32 // 各进口道停车线前的车辆数，顺序同Recorder.Approaches
	Waiting    int32
	Throughput int32
	Spawned    int32
}

// Recorder 报告记录器
// 功能：通过信号机的配时回调记录周期，通过快照回调按固定步数间隔采样
// 说明：两个回调都在仿真主循环中调用，读取方法可以在任意协程中调用
type Recorder struct {
	mtx sync.Mutex

	interval   int32
	approaches []string
	phases     [][]string
	lastStep   int32

	cycles  []CycleRecord
	samples []Sample
	last    *entity.Snapshot
}

// NewRecorder 创建报告记录器
// 参数：interval-采样间隔步数，小于1时按1处理
func NewRecorder(interval int32) *Recorder {
	return &Recorder{interval: max(interval, 1), lastStep: -1}
}

// RecordAllocation 记录一个周期的配时结果，注册到signal.Scheduler.OnAllocate
func (r *Recorder) RecordAllocation(a signal.Allocation) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.cycles = append(r.cycles, CycleRecord{
		Cycle:    a.Cycle,
		T:        a.T,
		Greens:   append([]float64(nil), a.Greens...),
		Loads:    append([]float64(nil), a.Loads...),
		Source:   a.Snapshot.Source,
		Degraded: a.Snapshot.Degraded,
		Vehicles: a.Snapshot.Total(),
	})
}

// RecordSnapshot 按采样间隔记录快照，注册到task.Context.OnSnapshot
// 说明：暂停期间重复发布的同一步只记录一次
func (r *Recorder) RecordSnapshot(s *entity.Snapshot) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.last = s
	if r.approaches == nil {
		r.approaches = lo.Map(s.Approaches, func(a entity.ApproachView, _ int) string { return a.ID })
		r.phases = lo.Map(s.Phases, func(p entity.PhaseView, _ int) []string { return p.Approaches })
	}
	if s.Step == r.lastStep || s.Step%r.interval != 0 {
		return
	}
	r.lastStep = s.Step
	r.samples = append(r.samples, Sample{
		Step:       s.Step,
		T:          s.T,
		Queues:     lo.Map(s.Approaches, func(a entity.ApproachView, _ int) int32 { return a.QueueLength }),
		Waiting:    s.Waiting,
		Throughput: s.Throughput,
		Spawned:    s.Spawned,
	})
}

// Approaches 进口道ID（采样中Queues的顺序）
func (r *Recorder) Approaches() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]string(nil), r.approaches...)
}

// Cycles 已记录的周期
func (r *Recorder) Cycles() []CycleRecord {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]CycleRecord(nil), r.cycles...)
}

// Samples 已记录的排队采样
func (r *Recorder) Samples() []Sample {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]Sample(nil), r.samples...)
}
