package vehicle

import (
	"git.fiblab.net/general/common/v2/mathutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// policyCarFollow 跟车策略
// 功能：根据前车信息计算跟车加速度，没有前车时按巡航速度行驶
func (v *Vehicle) policyCarFollow(leader *Vehicle) (ac Action) {
	if leader == nil {
		ac.A = v.follow(0, mathutil.INF)
		return
	}
	ac.A = v.follow(leader.v, v.GapTo(leader))
	return
}

// policyStopLine 停车线策略
// 功能：根据本进口道灯色决定是否在停车线前停车
// 算法说明：
// 1. 绿灯：不受约束
// 2. 黄灯：已决定通过的车辆不受约束；黄灯开始时仍在行驶且无法以最大减速度在停车线前刹停，
// 或距停车线不超过决策距离的车辆决定通过；其余车辆减速停车，黄灯期间不再重新决策
// 3. 红灯：减速停车
func (v *Vehicle) policyStopLine(env Env) (ac Action) {
	ac.A = mathutil.INF
	distance := env.StopS - v.node.S
	switch env.Light {
	case mapv2.LightState_LIGHT_STATE_GREEN:
	case mapv2.LightState_LIGHT_STATE_YELLOW:
		if v.committed {
			return
		}
		if v.lastLight != mapv2.LightState_LIGHT_STATE_YELLOW && v.v >= v.params.QueueSpeed &&
			(v.params.StoppingDistance(v.v) > distance || distance <= v.params.CommitDistance) {
			ac.Commit = true
			return
		}
		ac.A = v.stop(distance, env.DT)
	default:
		ac.A = v.stop(distance, env.DT)
	}
	return
}
