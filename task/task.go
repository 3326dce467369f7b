package task

import (
	"fmt"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/google/uuid"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/clock"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/load"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// 控制指令缓冲区大小
const commandBuffer = 64

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：信号机、路口与负载源只在仿真主循环中访问；其他协程通过Submit提交指令、通过Published读取快照
type Context struct {
	// 运行ID
	runID string
	// 关闭指令
	closed atomic.Bool
	// 退出请求（指令无法进入缓冲区时使用）
	stopping atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 辅助程序，提供RPC服务并与syncer同步步进，可以为nil（只通过Step推进）
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	// 是否由本上下文启动了sidecar服务
	serving bool

	// 路口（进口道与车辆）
	junction *junction.Junction
	// 信号机
	scheduler *signal.Scheduler
	// 负载源
	source entity.ILoadSource
	// 车辆生成
	spawner *spawner

	// 控制指令
	commands   chan entity.Command
	paused     bool
	terminated bool

	// 统计起点（重置时更新）
	statsStartT float64
	// 最近一次发布的快照
	published atomic.Pointer[entity.Snapshot]
	// 快照回调，在仿真主循环中调用
	onSnapshot []func(*entity.Snapshot)
}

// NewContext 创建新的仿真任务上下文
// 功能：根据运行时配置创建仿真所需的全部组件，并注册RPC服务
// 参数：
//   - rc: 运行时配置（已通过校验）
//   - sidecar: sidecar实例，为nil时不提供RPC服务
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：初始化完成的Context实例，负载源或信号机无法创建时返回错误
// 算法说明：
// 1. 创建时钟与路口
// 2. 按配置创建负载源（queue模式以路口为排队计数来源）
// 3. 创建信号机与车辆生成器
// 4. 注册ClockService与TrafficLightService，启动sidecar服务（如果需要）
func NewContext(rc *config.RuntimeConfig, sidecar *syncer.Sidecar, startSidecarServe bool) (*Context, error) {
	ctx := &Context{
		runID:          uuid.NewString(),
		runtimeConfig:  rc,
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
		commands:       make(chan entity.Command, commandBuffer),
	}
	ctx.clock = clock.New(rc.C.Step)
	ctx.junction = junction.New(rc)

	source, err := load.New(rc, ctx.junction)
	if err != nil {
		return nil, fmt.Errorf("create load source: %w", err)
	}
	ctx.source = source
	scheduler, err := signal.New(rc, source, func() float64 { return ctx.clock.T })
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx.scheduler = scheduler
	ctx.spawner = newSpawner(rc, ctx.junction, scheduler)

	if sidecar != nil {
		ctx.clock.Register(sidecar)
		signal.NewService(ctx.junction.ID(), ctx).Register(sidecar)
		// sidecar协程，用于提供RPC服务
		if startSidecarServe {
			ctx.serving = true
			go func() {
				if err := sidecar.Serve(); err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	log.Infof("run %s: junction %d with %d approaches, load source %s",
		ctx.runID, ctx.junction.ID(), len(ctx.junction.Approaches()), source.Name())
	return ctx, nil
}

func (ctx *Context) RunID() string {
	return ctx.runID
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Junction() *junction.Junction {
	return ctx.junction
}

func (ctx *Context) Scheduler() *signal.Scheduler {
	return ctx.scheduler
}

// OnSnapshot 注册快照回调，每次发布快照后在仿真主循环中调用
func (ctx *Context) OnSnapshot(f func(*entity.Snapshot)) {
	ctx.onSnapshot = append(ctx.onSnapshot, f)
}

// Init 初始化仿真状态
// 功能：重置时钟，按配置生成初始排队（第一个周期使用同一份负载快照）并安排第一批车辆到达，发布初始快照
func (ctx *Context) Init() {
	ctx.clock.Init()
	ctx.statsStartT = ctx.clock.T
	if ctx.runtimeConfig.InitialQueue {
		snapshot := ctx.source.Sample()
		ctx.junction.SetLoad(snapshot)
		ctx.junction.SeedQueue(snapshot.Counts, ctx.runtimeConfig.All.Spawn.MaxInitialQueue)
		// 第一个周期沿用同一次检测结果
		ctx.scheduler.Prime(snapshot)
	}
	ctx.spawner.reset(ctx.clock.T)
	ctx.publish()
}

// Close 释放资源
// 说明：可以重复调用
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	ctx.source.Close()
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
	}
	if ctx.serving {
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
