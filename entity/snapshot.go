package entity

import (
	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// VehicleView 车辆的只读视图
type VehicleView struct {
	ID             int32
	Approach       string
	Class          VehicleClass
	State          VehicleState
	S              float64        // 车头沿进口道行驶的距离（米）
	DistanceToStop float64        // 车头到停车线的距离（米），越线后为负
	V              float64        // 速度（米/秒）
	A              float64        // 加速度（米/秒²）
	Length         float64        // 车长（米）
	XY             geometry.Point // 车头坐标
	Heading        float64        // 行驶方向（弧度）
}

// ApproachView 进口道的只读视图
type ApproachView struct {
	ID          string
	Light       mapv2.LightState
	Entry       geometry.Point
	StopLine    geometry.Point
	QueueLength int32       // 停车线前的车辆数
	Waiting     int32       // 处于QUEUED状态的车辆数
	Released    int32       // 累计越过停车线的车辆数
	Throughput  int32       // 累计驶出路口的车辆数
	Spawned     int32       // 累计生成的车辆数
	Load        ClassCounts // 最近一次负载快照中的车辆数
}

// PhaseView 相位的只读视图
type PhaseView struct {
	Approaches []string
	Green      float64 // 本周期分配的绿灯时间（秒）
	Load       float64 // 本周期计算分配时使用的加权负载
}

// Snapshot 渲染与统计用的只读快照
// 功能：每个仿真步的准备阶段生成一次，发布后不再修改
// 说明：所有切片与map都是独立副本，Program构建后不再修改，读者可以在任意协程中读取
type Snapshot struct {
	RunID  string
	Step   int32
	T      float64
	Paused bool

	Signal       SignalState
	Program      *mapv2.TrafficLight // 本周期信控程序视图，不得修改
	ProgramIndex int32               // 当前状态在Program中的下标
	Phases       []PhaseView
	NextPhase    int // 下一个放行的相位
	Approaches   []ApproachView
	Vehicles     []VehicleView

	Load LoadSnapshot // 最近一次用于配时的负载快照

	Throughput          int32   // 累计驶出路口的车辆数
	ThroughputPerMinute float64 // 平均每分钟驶出的车辆数
	Spawned             int32   // 累计生成的车辆数
	Waiting             int32   // 当前排队车辆总数
}
