package input

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
)

// ClassRecord 一个进口道的分车型车辆数
type ClassRecord struct {
	Car   int32 `yaml:"car" bson:"car"`
	Bus   int32 `yaml:"bus" bson:"bus"`
	Truck int32 `yaml:"truck" bson:"truck"`
}

// Record 一条回放负载记录
// 说明：YAML文件与MongoDB文档使用相同的字段名
type Record struct {
	T          float64                `yaml:"t" bson:"t"`                   // 记录时间（秒），只用于排序
	Approaches map[string]ClassRecord `yaml:"approaches" bson:"approaches"` // 进口道ID -> 车辆数
}

// Counts 转换为进口道ID到分车型车辆数的映射
func (r Record) Counts() map[string]entity.ClassCounts {
	return lo.MapValues(r.Approaches, func(c ClassRecord, _ string) entity.ClassCounts {
		var counts entity.ClassCounts
		counts[entity.VehicleClassCar] = c.Car
		counts[entity.VehicleClassBus] = c.Bus
		counts[entity.VehicleClassTruck] = c.Truck
		return counts
	})
}

// check 检查车辆数非负
func (r Record) check() error {
	for id, c := range r.Approaches {
		if c.Car < 0 || c.Bus < 0 || c.Truck < 0 {
			return fmt.Errorf("negative count for approach %s: %+v", id, c)
		}
	}
	return nil
}
