package entity

import (
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/clock"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig
}

// entity/load的依赖倒置
type ILoadSource interface {
	Name() string         // 负载源名称
	Sample() LoadSnapshot // 获取负载快照，不阻塞
	Reset()               // 丢弃尚未返回的结果
	Close()               // 释放资源
}

// entity/junction/signal的依赖倒置，供车辆读取信号
type ISignalGetter interface {
	State() SignalState                      // 当前信号机状态
	Light(approach string) mapv2.LightState  // 进口道当前灯色
	InPhase(approach string, phase int) bool // 进口道是否属于指定相位
}

// entity/junction的依赖倒置，供基于排队的负载源读取
type IQueueCounter interface {
	QueuedCounts() map[string]ClassCounts // 各进口道停车线前的分车型车辆数
}

// task的依赖倒置，供RPC服务与控制台使用
type ISimulation interface {
	Published() *Snapshot    // 最近一次发布的快照
	Submit(cmd Command) bool // 提交控制指令，在下一个仿真步边界生效
}
