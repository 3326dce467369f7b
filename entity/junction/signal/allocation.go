package signal

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

// 浮点比较容差（秒）
const eps = 1e-9

var (
	ErrInfeasible = errors.New("signal: green total cannot satisfy phase bounds")
)

// Bounds 相位绿灯时间上下限（秒）
type Bounds struct {
	Min float64
	Max float64
}

func (b Bounds) clamp(g float64) float64 {
	return lo.Clamp(g, b.Min, b.Max)
}

// Allocate 按负载分配各相位绿灯时间
// 功能：将周期总绿灯时间按各相位加权负载比例分配，并满足每个相位的上下限
// 参数：loads-各相位加权负载，bounds-各相位绿灯上下限，gTotal-周期总绿灯时间
// 返回：各相位绿灯时间，总和严格等于gTotal；输入不可行时返回ErrInfeasible
// 算法说明：
// 1. 所有相位初始为自由相位，剩余预算为gTotal
// 2. 剩余预算按自由相位的负载比例分配；自由相位负载之和为0时平均分配
// 3. 计算越界量 excess = Σ(g - clamp(g))：
// excess>0 时把超过上限的相位固定在上限；excess<0 时把低于下限的相位固定在下限；
// excess=0 时把所有越界相位固定在对应边界
// 4. 从剩余预算中扣除新固定的相位，重复2-3直到没有越界相位
// 5. 最后一个自由相位取总预算减去其余相位之和，消除浮点累计误差
// 说明：每轮至少固定一个相位，因此最多迭代len(loads)轮
func Allocate(loads []float64, bounds []Bounds, gTotal float64) ([]float64, error) {
	n := len(loads)
	if n == 0 || n != len(bounds) {
		return nil, fmt.Errorf("%w: %d loads with %d bounds", ErrInfeasible, n, len(bounds))
	}
	sumMin, sumMax := 0., 0.
	for i, b := range bounds {
		if b.Min < 0 || b.Min > b.Max {
			return nil, fmt.Errorf("%w: phase %d bounds [%v, %v]", ErrInfeasible, i, b.Min, b.Max)
		}
		sumMin += b.Min
		sumMax += b.Max
	}
	if gTotal < sumMin-eps || gTotal > sumMax+eps {
		return nil, fmt.Errorf("%w: green total %v outside [%v, %v]", ErrInfeasible, gTotal, sumMin, sumMax)
	}

	green := make([]float64, n)
	fixed := make([]bool, n)
	remaining := gTotal
	for {
		free := lo.Filter(lo.Range(n), func(i int, _ int) bool { return !fixed[i] })
		if len(free) == 0 {
			break
		}
		weight := lo.SumBy(free, func(i int) float64 { return math.Max(loads[i], 0) })
		for _, i := range free {
			if weight > 0 {
				green[i] = remaining * math.Max(loads[i], 0) / weight
			} else {
				green[i] = remaining / float64(len(free))
			}
		}
		excess := lo.SumBy(free, func(i int) float64 { return green[i] - bounds[i].clamp(green[i]) })
		violated := false
		for _, i := range free {
			g := green[i]
			over, under := g > bounds[i].Max, g < bounds[i].Min
			if !over && !under {
				continue
			}
			if (excess > 0 && over) || (excess < 0 && under) || excess == 0 {
				green[i] = bounds[i].clamp(g)
				fixed[i] = true
				remaining -= green[i]
				violated = true
			}
		}
		if !violated {
			// 最后一个自由相位吸收舍入误差
			last := free[len(free)-1]
			green[last] = gTotal - lo.Sum(green) + green[last]
			break
		}
	}
	return green, nil
}
