package vehicle

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
)

const (
	idmTheta    = 4 // IDM模型参数
	stopLineGap = 1 // 停车时车头与停车线保持的距离（米）
)

// Action 车辆动作
type Action struct {
	A      float64 // 加速度（米/秒²）
	Commit bool    // 黄灯时决定继续通过停车线
}

// Update 更新车辆动作
// 功能：加速度取所有动作中的最小值（最保守的制动），通过决定取或
func (a *Action) Update(others ...Action) {
	for _, o := range others {
		if o.A < a.A {
			a.A = o.A
		}
		a.Commit = a.Commit || o.Commit
	}
}

// followImpl 跟车模型核心实现
// 功能：实现智能驾驶模型(IDM)的跟车逻辑
// 参数：selfV-本车速度，targetV-目标速度，aheadV-前车速度，distance-车距，minGap-最小车距，headway-安全车头时距
// 返回：计算得到的加速度（米/秒²）
// 算法说明：
// 1. 距离小于等于0时紧急制动
// 2. 期望车距：s_star = minGap + max(0, v*headway + v*(v-v_ahead)/(2*sqrt(a*b)))
// 3. 加速度：a = maxA * (1 - (v/targetV)^4 - (s_star/distance)^2)
// 4. 限制加速度在制动和加速范围内
func (v *Vehicle) followImpl(
	selfV, targetV, aheadV, distance, minGap, headway float64,
) float64 {
	p := v.params
	var acc float64
	if distance <= 0 {
		acc = -mathutil.INF
	} else {
		// https://en.wikipedia.org/wiki/Intelligent_driver_model
		sStar := minGap + math.Max(
			0,
			selfV*headway+selfV*(selfV-aheadV)/2/math.Sqrt(-p.UsualBrakingA*p.MaxA),
		)
		acc = p.MaxA * (1 - math.Pow(selfV/targetV, idmTheta) - math.Pow(sStar/distance, 2))
	}
	return lo.Clamp(acc, p.MaxBrakingA, p.MaxA)
}

// follow 以巡航速度为目标跟随前车
func (v *Vehicle) follow(aheadV, distance float64) float64 {
	return v.followImpl(v.v, v.params.CruiseV, aheadV, distance, v.params.MinGap, v.params.Headway)
}

// stop 在指定距离内刹停
// 说明：停车时按时间步长预判，不使用跟车的headway
func (v *Vehicle) stop(distance, dt float64) float64 {
	return v.followImpl(v.v, v.params.CruiseV, 0, distance, stopLineGap, dt)
}

// computeVAndDistance 匀加速运动一个时间步后的速度与行驶距离
// 说明：速度减到0时按刹停计算距离
func computeVAndDistance(v, a, dt float64) (float64, float64) {
	dv := a * dt
	if v+dv < 0 {
		return 0, v * v / 2 / -a
	}
	return v + dv, (v + dv/2) * dt
}
