package entity

import (
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// SubState 相位内的子状态
type SubState int32

const (
	SubStateGreen  SubState = iota // 当前相位放行
	SubStateAmber                  // 当前相位黄灯
	SubStateAllRed                 // 全红清空，PhaseIndex为即将放行的相位
)

func (s SubState) String() string {
	switch s {
	case SubStateGreen:
		return "GREEN"
	case SubStateAmber:
		return "AMBER"
	case SubStateAllRed:
		return "ALL_RED"
	default:
		return fmt.Sprintf("SubState(%d)", int32(s))
	}
}

// SignalState 信号机状态
type SignalState struct {
	PhaseIndex int      // 当前相位（ALL_RED时为下一个放行的相位）
	Sub        SubState // 子状态
	Remaining  float64  // 当前子状态剩余时间（秒）
	Total      float64  // 当前子状态总时长（秒）
	Cycle      int32    // 已开始的周期数，0表示第一个周期尚未开始
}

func (s SignalState) String() string {
	return fmt.Sprintf("Signal{phase=%d %v remaining=%.1f/%.1f cycle=%d}", s.PhaseIndex, s.Sub, s.Remaining, s.Total, s.Cycle)
}

// Light 给定进口道是否属于当前相位时的灯色
// 说明：只有当前相位的进口道在GREEN/AMBER时分别为绿灯/黄灯，其余一律红灯
func (s SignalState) Light(inPhase bool) mapv2.LightState {
	if !inPhase || s.Sub == SubStateAllRed {
		return mapv2.LightState_LIGHT_STATE_RED
	}
	if s.Sub == SubStateGreen {
		return mapv2.LightState_LIGHT_STATE_GREEN
	}
	return mapv2.LightState_LIGHT_STATE_YELLOW
}
