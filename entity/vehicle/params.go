package vehicle

import (
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// Params 车辆模型参数
// 功能：合并车型参数与所有车辆共用的跟车参数
type Params struct {
	Class         entity.VehicleClass
	Length        float64 // 车长（米）
	CruiseV       float64 // 巡航速度（米/秒）
	MaxA          float64 // 最大加速度（米/秒²）
	UsualBrakingA float64 // 舒适减速度（米/秒²，负数）
	MaxBrakingA   float64 // 最大减速度（米/秒²，负数）

	MinGap         float64 // 最小车距（米）
	Headway        float64 // 安全车头时距（秒）
	QueueSpeed     float64 // 低于该速度视为排队（米/秒）
	CommitDistance float64 // 黄灯时距停车线小于该距离则继续通行（米）
}

// NewParams 从配置构造指定车型的参数
func NewParams(c config.Vehicle, class entity.VehicleClass) Params {
	var vc config.VehicleClass
	switch class {
	case entity.VehicleClassCar:
		vc = c.Car
	case entity.VehicleClassBus:
		vc = c.Bus
	case entity.VehicleClassTruck:
		vc = c.Truck
	default:
		log.Panicf("unknown vehicle class %v", class)
	}
	return Params{
		Class:          class,
		Length:         vc.Length,
		CruiseV:        vc.CruiseV,
		MaxA:           vc.MaxA,
		UsualBrakingA:  vc.UsualBrakingA,
		MaxBrakingA:    vc.MaxBrakingA,
		MinGap:         c.MinGap,
		Headway:        c.Headway,
		QueueSpeed:     c.QueueSpeed,
		CommitDistance: c.CommitDistance,
	}
}

// NewParamsTable 构造所有车型的参数表，下标为VehicleClass
func NewParamsTable(c config.Vehicle) [entity.NumVehicleClasses]Params {
	var table [entity.NumVehicleClasses]Params
	for _, class := range entity.AllVehicleClasses {
		table[class] = NewParams(c, class)
	}
	return table
}

// StoppingDistance 以最大减速度从速度v刹停所需的距离
func (p Params) StoppingDistance(v float64) float64 {
	return v * v / 2 / -p.MaxBrakingA
}
