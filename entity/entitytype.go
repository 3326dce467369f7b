package entity

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// VehicleClass 车型
type VehicleClass int32

const (
	VehicleClassCar VehicleClass = iota
	VehicleClassBus
	VehicleClassTruck

	NumVehicleClasses = 3
)

// AllVehicleClasses 所有车型，按枚举值排序
var AllVehicleClasses = [NumVehicleClasses]VehicleClass{VehicleClassCar, VehicleClassBus, VehicleClassTruck}

func (c VehicleClass) String() string {
	switch c {
	case VehicleClassCar:
		return "car"
	case VehicleClassBus:
		return "bus"
	case VehicleClassTruck:
		return "truck"
	default:
		return fmt.Sprintf("VehicleClass(%d)", int32(c))
	}
}

// ParseVehicleClass 将检测器或回放数据中的类别名转换为车型
// 说明：大小写不敏感，不认识的类别返回false
func ParseVehicleClass(name string) (VehicleClass, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "car":
		return VehicleClassCar, true
	case "bus":
		return VehicleClassBus, true
	case "truck":
		return VehicleClassTruck, true
	default:
		return 0, false
	}
}

// ClassCounts 各车型的车辆数，下标为VehicleClass
type ClassCounts [NumVehicleClasses]int32

// Total 车辆总数
func (c ClassCounts) Total() int32 {
	var total int32
	for _, n := range c {
		total += n
	}
	return total
}

// Weighted 加权负载：Σ count(class) × weight(class)
func (c ClassCounts) Weighted(weights [NumVehicleClasses]float64) float64 {
	load := 0.
	for i, n := range c {
		load += float64(n) * weights[i]
	}
	return load
}

func (c ClassCounts) String() string {
	return fmt.Sprintf("car=%d bus=%d truck=%d", c[VehicleClassCar], c[VehicleClassBus], c[VehicleClassTruck])
}

// VehicleState 车辆状态
// 状态只能按 APPROACHING -> QUEUED -> RELEASED -> DEPARTED 方向推进，
// 其中APPROACHING与QUEUED之间可以随车速来回切换，RELEASED之后不可回退
type VehicleState int32

const (
	VehicleStateApproaching VehicleState = iota // 驶向停车线
	VehicleStateQueued                          // 在停车线前排队（低速或静止）
	VehicleStateReleased                        // 已越过停车线，在路口内
	VehicleStateDeparted                        // 已驶出路口
)

func (s VehicleState) String() string {
	switch s {
	case VehicleStateApproaching:
		return "APPROACHING"
	case VehicleStateQueued:
		return "QUEUED"
	case VehicleStateReleased:
		return "RELEASED"
	case VehicleStateDeparted:
		return "DEPARTED"
	default:
		return fmt.Sprintf("VehicleState(%d)", int32(s))
	}
}

// LoadSnapshot 某一时刻各进口道的分车型车辆数
// 说明：Degraded为true表示检测失败后由随机负载源代替
type LoadSnapshot struct {
	Seq      int64                  // 快照序号，单调递增
	Counts   map[string]ClassCounts // 进口道ID -> 分车型车辆数
	Degraded bool                   // 是否为降级结果
	Source   string                 // 产生快照的负载源名称
}

// Get 获取某进口道的车辆数，不存在时为零
func (s LoadSnapshot) Get(approach string) ClassCounts {
	return s.Counts[approach]
}

// Clone 复制快照，Counts为独立的map
func (s LoadSnapshot) Clone() LoadSnapshot {
	if s.Counts != nil {
		s.Counts = lo.Assign(s.Counts)
	}
	return s
}

// Total 所有进口道车辆总数
func (s LoadSnapshot) Total() int32 {
	var total int32
	for _, c := range s.Counts {
		total += c.Total()
	}
	return total
}
