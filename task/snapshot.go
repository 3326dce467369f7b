package task

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
)

// publish 生成并发布只读快照
// 功能：汇总信号机、路口与统计数据，原子替换已发布的快照，然后依次调用快照回调
// 说明：只在仿真主循环中调用
func (ctx *Context) publish() {
	stats := ctx.junction.Stats()
	greens := ctx.scheduler.Greens()
	loads := ctx.scheduler.Loads()
	s := &entity.Snapshot{
		RunID:        ctx.runID,
		Step:         ctx.clock.InternalStep,
		T:            ctx.clock.T,
		Paused:       ctx.paused,
		Signal:       ctx.scheduler.State(),
		Program:      ctx.scheduler.Program(),
		ProgramIndex: ctx.scheduler.ProgramIndex(),
		Phases: lo.Map(ctx.scheduler.Phases(), func(p signal.Phase, i int) entity.PhaseView {
			return entity.PhaseView{
				Approaches: append([]string(nil), p.Approaches...),
				Green:      greens[i],
				Load:       loads[i],
			}
		}),
		NextPhase:  ctx.scheduler.NextPhase(),
		Approaches: ctx.junction.ApproachViews(ctx.scheduler),
		Vehicles:   ctx.junction.VehicleViews(),
		Load:       ctx.scheduler.Snapshot().Clone(),
		Throughput: stats.Throughput,
		Spawned:    stats.Spawned,
		Waiting:    ctx.junction.Waiting(),
	}
	if elapsed := ctx.clock.T - ctx.statsStartT; elapsed > 0 {
		s.ThroughputPerMinute = float64(stats.Throughput) / elapsed * 60
	}
	ctx.published.Store(s)
	ctx.clock.Publish()
	for _, f := range ctx.onSnapshot {
		f(s)
	}
}

// Published 最近一次发布的快照，仿真尚未初始化时返回nil
// 说明：可以在任意协程中调用，返回的快照不得修改
func (ctx *Context) Published() *entity.Snapshot {
	return ctx.published.Load()
}
