package task

import "github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"

// Submit 提交控制指令
// 功能：指令进入缓冲区，在下一个仿真步边界按提交顺序生效，可以在任意协程中调用
// 返回：缓冲区已满或仿真已结束时丢弃指令并返回false
func (ctx *Context) Submit(cmd entity.Command) bool {
	if ctx.closed.Load() {
		return false
	}
	select {
	case ctx.commands <- cmd:
		return true
	default:
		log.Warnf("command buffer full, drop %v", cmd)
		return false
	}
}

// drainCommands 执行缓冲区中的全部指令，不阻塞
// 返回：是否执行了至少一条指令
func (ctx *Context) drainCommands() bool {
	applied := false
	for {
		select {
		case cmd := <-ctx.commands:
			ctx.apply(cmd)
			applied = true
		default:
			return applied
		}
	}
}

// apply 执行一条控制指令
// 说明：
// 1. 重置：信号机回到（相位0，全红，周期0），清除所有车辆与统计，负载源丢弃在途结果；时钟继续走
// 2. 跳过：只在GREEN时生效
// 3. 结束：当前步完成后退出主循环
func (ctx *Context) apply(cmd entity.Command) {
	log.Infof("step %d: apply command %v", ctx.clock.InternalStep, cmd)
	switch cmd {
	case entity.CommandTogglePause:
		ctx.paused = !ctx.paused
	case entity.CommandPause:
		ctx.paused = true
	case entity.CommandResume:
		ctx.paused = false
	case entity.CommandReset:
		ctx.scheduler.Reset()
		ctx.junction.Clear()
		ctx.source.Reset()
		ctx.spawner.reset(ctx.clock.T)
		ctx.statsStartT = ctx.clock.T
	case entity.CommandSkip:
		ctx.scheduler.Skip()
	case entity.CommandTerminate:
		ctx.terminated = true
	default:
		log.Warnf("unknown command %v", cmd)
	}
}

// Paused 仿真是否处于暂停状态（仿真主循环内使用）
func (ctx *Context) Paused() bool {
	return ctx.paused
}

// Terminated 是否已收到结束指令（仿真主循环内使用）
func (ctx *Context) Terminated() bool {
	return ctx.terminated
}
