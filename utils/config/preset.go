package config

import "fmt"

// 预设路口进口道ID
const (
	North = "north"
	South = "south"
	East  = "east"
	West  = "west"
)

// 右侧通行时车道中心线相对道路中心线的偏移（米）
const laneOffset = 1.75

// presetApproach 生成预设进口道
// 参数：id-进口道ID，dx/dy-从路口中心指向进口道外侧的单位向量，length-进口道长度，half-路口半宽
// 说明：车辆从外侧驶向中心，行驶方向的右侧即车道所在一侧
func presetApproach(id string, dx, dy, length, half float64) Approach {
	// 行驶方向为(-dx, -dy)，其右侧为(-dy, dx)
	ox, oy := -dy*laneOffset, dx*laneOffset
	return Approach{
		ID:       id,
		Entry:    Point{X: dx*(half+length) + ox, Y: dy*(half+length) + oy},
		StopLine: Point{X: dx*half + ox, Y: dy*half + oy},
	}
}

// ApplyPreset 按路口类型生成进口道与相位
// 功能：展开3路口与4路口预设，覆盖显式配置中的进口道与相位
// 参数：j-路口配置（原地修改）
// 返回：不支持的路口类型返回ErrConfigurationInvalid
// 说明：
// 4路口：南北直行一个相位，东西直行一个相位
// 3路口：北东、东南、南北三个相位，同一进口道出现在两个相位中
func ApplyPreset(j *Junction) error {
	half := j.Extent / 2
	n := presetApproach(North, 0, 1, j.ApproachLength, half)
	s := presetApproach(South, 0, -1, j.ApproachLength, half)
	e := presetApproach(East, 1, 0, j.ApproachLength, half)
	w := presetApproach(West, -1, 0, j.ApproachLength, half)
	switch j.Type {
	case 4:
		j.Approaches = []Approach{n, s, e, w}
		j.Phases = []Phase{
			{Approaches: []string{North, South}},
			{Approaches: []string{East, West}},
		}
		j.Overlapping = false
	case 3:
		j.Approaches = []Approach{n, e, s}
		j.Phases = []Phase{
			{Approaches: []string{North, East}},
			{Approaches: []string{East, South}},
			{Approaches: []string{South, North}},
		}
		j.Overlapping = true
	default:
		return fmt.Errorf("%w: unsupported junction type %d (want 3 or 4)", ErrConfigurationInvalid, j.Type)
	}
	return nil
}
