package vehicle

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/container"
)

// Node 车辆在进口道队列中的节点，S为车头沿进口道行驶的距离
type Node = container.ListNode[*Vehicle]

// Queue 车辆队列，头部为最靠前的车辆
type Queue = container.List[*Vehicle]

// Env 车辆单步更新所需的环境信息
type Env struct {
	Leader *Vehicle         // 前车（同一进口道上更靠前的车辆），没有时为nil，必须已完成本步更新
	StopS  float64          // 停车线位置（沿进口道的距离）
	ExitS  float64          // 车头到达该位置时车尾驶出路口
	Light  mapv2.LightState // 本进口道当前灯色
	DT     float64          // 时间步长（秒）
}

// Vehicle 车辆
// 功能：保存一辆车的运动学状态，按IDM跟车模型与停车线规则逐步推进
// 说明：车辆由所在进口道的队列独占，越过停车线后转入路口内列表，驶出后删除
type Vehicle struct {
	id       int32
	approach string
	params   Params
	node     *Node

	v, a      float64
	state     entity.VehicleState
	committed bool             // 黄灯时已决定继续通过
	lastLight mapv2.LightState // 上一步看到的灯色
}

// New 创建车辆
// 参数：id-车辆ID，approach-所在进口道，params-模型参数，s-车头位置，v-初速度
func New(id int32, approach string, params Params, s, v float64) *Vehicle {
	veh := &Vehicle{
		id:       id,
		approach: approach,
		params:   params,
		v:        v,
	}
	veh.node = &Node{S: s, Value: veh}
	veh.state = lo.Ternary(v < params.QueueSpeed, entity.VehicleStateQueued, entity.VehicleStateApproaching)
	return veh
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle{id=%d %s %v s=%.2f v=%.2f %v}", v.id, v.approach, v.params.Class, v.node.S, v.v, v.state)
}

func (v *Vehicle) ID() int32                  { return v.id }
func (v *Vehicle) Approach() string           { return v.approach }
func (v *Vehicle) Class() entity.VehicleClass { return v.params.Class }
func (v *Vehicle) Params() Params             { return v.params }
func (v *Vehicle) Node() *Node                { return v.node }
func (v *Vehicle) S() float64                 { return v.node.S }
func (v *Vehicle) V() float64                 { return v.v }
func (v *Vehicle) A() float64                 { return v.a }
func (v *Vehicle) Length() float64            { return v.params.Length }
func (v *Vehicle) State() entity.VehicleState { return v.state }
func (v *Vehicle) Committed() bool            { return v.committed }

// Rear 车尾位置
func (v *Vehicle) Rear() float64 {
	return v.node.S - v.params.Length
}

// GapTo 本车车头到前车车尾的距离
func (v *Vehicle) GapTo(leader *Vehicle) float64 {
	return leader.Rear() - v.node.S
}

// View 车辆只读视图（不含平面坐标）
func (v *Vehicle) View(stopS float64) entity.VehicleView {
	return entity.VehicleView{
		ID:             v.id,
		Approach:       v.approach,
		Class:          v.params.Class,
		State:          v.state,
		S:              v.node.S,
		DistanceToStop: stopS - v.node.S,
		V:              v.v,
		A:              v.a,
		Length:         v.params.Length,
	}
}

// Update 车辆单步更新
// 功能：计算加速度并推进位置，返回更新后的状态
// 参数：env-环境信息
// 返回：更新后的车辆状态
// 算法说明：
// 1. 跟车策略：有前车时按IDM跟随前车，否则向巡航速度加速
// 2. 停车线策略：未越线时根据灯色决定停车或通过（黄灯可以决定继续通过，决定在本次黄灯内不再改变，黄灯结束时仍未越线则作废）
// 3. 按加速度推进速度与位置
// 4. 位置约束：与前车保持不小于最小车距，未获准通行时不越过停车线
// 5. 根据位置与速度更新状态
func (v *Vehicle) Update(env Env) entity.VehicleState {
	if v.state == entity.VehicleStateDeparted {
		return v.state
	}
	if v.state != entity.VehicleStateReleased && env.Light != mapv2.LightState_LIGHT_STATE_YELLOW {
		// 通过决定只在本次黄灯内有效
		v.committed = false
	}
	ac := Action{A: mathutil.INF}
	ac.Update(v.policyCarFollow(env.Leader))
	if v.state != entity.VehicleStateReleased {
		ac.Update(v.policyStopLine(env))
	}
	if ac.Commit && !v.committed {
		v.committed = true
		log.Debugf("%v commits to cross on amber", v)
	}
	ac.A = lo.Clamp(ac.A, v.params.MaxBrakingA, v.params.MaxA)

	newV, d := computeVAndDistance(v.v, ac.A, env.DT)
	s := v.node.S + d
	if env.Leader != nil {
		if limit := env.Leader.Rear() - v.params.MinGap; s > limit {
			s = limit
			newV = math.Min(newV, env.Leader.v)
		}
	}
	if v.state != entity.VehicleStateReleased && !v.mayCross(env.Light) && s > env.StopS {
		s = env.StopS
		newV = 0
	}
	v.v, v.a, v.node.S = newV, ac.A, s
	v.lastLight = env.Light

	switch {
	case v.state == entity.VehicleStateReleased || s > env.StopS:
		v.state = lo.Ternary(s >= env.ExitS, entity.VehicleStateDeparted, entity.VehicleStateReleased)
	case newV < v.params.QueueSpeed:
		v.state = entity.VehicleStateQueued
	default:
		v.state = entity.VehicleStateApproaching
	}
	return v.state
}

// mayCross 当前灯色下是否允许越过停车线
func (v *Vehicle) mayCross(light mapv2.LightState) bool {
	switch light {
	case mapv2.LightState_LIGHT_STATE_GREEN:
		return true
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		return v.committed
	default:
		return false
	}
}
