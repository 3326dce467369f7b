package task

import (
	"flag"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction"
)

const (
	SelfName = "signal" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// 暂停时等待控制指令的超时，超时后重新检查关闭状态
const pausePollInterval = 100 * time.Millisecond

// prepare 准备阶段，每步执行一次
// 功能：在仿真步边界执行控制指令并推进时钟
// 返回：本步是否推进（暂停或已结束时返回false）
// 算法说明：
// 1. 按提交顺序执行缓冲区中的全部控制指令
// 2. 暂停或收到结束指令时不推进时钟，暂停后或暂停期间执行了指令时发布带暂停标记的快照
// 3. 更新时钟：增加内部步数并计算当前时间
// 4. 心跳日志：定期输出步数、仿真时间、信号状态与排队情况
func (ctx *Context) prepare() bool {
	applied := ctx.drainCommands()
	if ctx.terminated {
		return false
	}
	if ctx.paused {
		// 暂停期间的重置与跳过也要立即反映到快照
		if p := ctx.Published(); applied || p == nil || !p.Paused {
			ctx.publish()
		}
		return false
	}
	ctx.clock.Advance()

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		queues := lo.Map(ctx.junction.Approaches(), func(a *junction.Approach, _ int) int32 {
			return a.QueueLength()
		})
		log.Infof(
			"STEP: %d(%d:%d:%.2f) signal=%v queues=%v waiting=%d %v",
			ctx.clock.InternalStep,
			hour, minute, second,
			ctx.scheduler.State(), queues, ctx.junction.Waiting(), ctx.junction.Stats(),
		)
	}
	return true
}

// update 更新阶段，每步执行一次
// 功能：按固定顺序推进生成、信号机与路口，然后发布快照
// 算法说明：
// 1. 生成到达时刻不晚于当前时间的车辆
// 2. 信号机推进dt，必要时开始新周期并重新配时
// 3. 路口读取本步灯色，推进所有车辆
// 4. 把本周期负载快照同步到各进口道并发布快照
func (ctx *Context) update() {
	dt := ctx.clock.DT
	ctx.spawner.update(ctx.clock.T)
	ctx.scheduler.Update(dt)
	ctx.junction.Update(dt, ctx.scheduler)
	ctx.junction.SetLoad(ctx.scheduler.Snapshot())
	ctx.publish()
}

// Step 执行一个仿真步（不与syncer同步）
// 功能：执行准备与更新阶段，用于测试或由外部驱动
// 返回：仿真是否可以继续（未收到结束指令且未到结束步）
func (ctx *Context) Step() bool {
	if ctx.prepare() {
		ctx.update()
	}
	return !ctx.terminated && !ctx.clock.IsLastStep()
}

// waitCommand 暂停期间阻塞等待下一条控制指令
// 说明：指令执行后仍处于暂停时立即发布快照
func (ctx *Context) waitCommand() {
	select {
	case cmd := <-ctx.commands:
		ctx.apply(cmd)
		if ctx.paused && !ctx.terminated {
			ctx.publish()
		}
	case <-time.After(pausePollInterval):
	}
}

// pacer 实时模式下按墙上时钟控制仿真节奏
type pacer struct {
	enabled bool
	period  time.Duration // 每步对应的墙上时间
	start   time.Time
	steps   int64
}

func newPacer(realtime bool, dt, speedup float64) *pacer {
	return &pacer{
		enabled: realtime,
		period:  time.Duration(dt / speedup * float64(time.Second)),
		start:   time.Now(),
	}
}

// wait 等待到本步对应的墙上时间；未推进的步重置计时起点
func (p *pacer) wait(advanced bool) {
	if !p.enabled {
		return
	}
	if !advanced {
		p.start, p.steps = time.Now(), 0
		return
	}
	p.steps++
	if d := time.Until(p.start.Add(time.Duration(p.steps) * p.period)); d > 0 {
		time.Sleep(d)
	}
}

// Run 运行
// 算法说明：
// 1. 初始化并与syncer完成第一次同步
// 2. 每步依次执行准备阶段、通知syncer准备完成、更新阶段、与syncer同步
// 3. 暂停时不推进仿真时间，阻塞等待控制指令
// 4. 收到结束指令、到达结束步、syncer要求关闭或上下文关闭时退出，释放资源
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	// init syncer
	if ctx.sidecar != nil {
		ctx.sidecar.Step(false)
	}
	p := newPacer(ctx.runtimeConfig.C.Realtime, ctx.clock.DT, ctx.runtimeConfig.C.Speedup)
	for {
		advanced := ctx.prepare()
		// 通知准备阶段完成
		if ctx.sidecar != nil {
			log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
			ctx.sidecar.NotifyStepReady()
		}
		if advanced {
			ctx.update()
			log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		} else if ctx.paused && !ctx.terminated {
			ctx.waitCommand()
		}
		last := ctx.terminated || ctx.clock.IsLastStep()
		close := false
		if ctx.sidecar != nil {
			close = ctx.sidecar.Step(last)
		}
		if close || last || ctx.stopping.Load() || ctx.closed.Load() {
			break
		}
		p.wait(advanced)
	}
	log.Infof("engine complete at step %d: %v, %.1f veh/min",
		ctx.clock.InternalStep, ctx.junction.Stats(), ctx.Published().ThroughputPerMinute)
	ctx.Close()
}

// Terminate 请求结束仿真，可以在任意协程中调用
// 说明：指令缓冲区已满时直接标记退出，主循环在当前步结束后退出
func (ctx *Context) Terminate() {
	if !ctx.Submit(entity.CommandTerminate) {
		ctx.stopping.Store(true)
	}
}
