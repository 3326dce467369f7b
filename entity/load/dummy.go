package load

import (
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/randengine"
)

// Dummy 随机负载源
// 功能：每个进口道每种车型的车辆数在配置的闭区间内均匀抽取
// 说明：同一种子产生相同的快照序列，Reset后从头重复；不能跨协程并发调用
type Dummy struct {
	approaches []string
	bounds     [entity.NumVehicleClasses]config.CountRange
	seed       uint64

	generator *randengine.Engine
	seq       int64
}

// NewDummy 创建随机负载源
// 参数：approaches-进口道ID，c-各车型车辆数范围，seed-随机种子
func NewDummy(approaches []string, c config.DummyLoad, seed uint64) *Dummy {
	d := &Dummy{
		approaches: approaches,
		seed:       seed,
	}
	d.bounds[entity.VehicleClassCar] = c.Car
	d.bounds[entity.VehicleClassBus] = c.Bus
	d.bounds[entity.VehicleClassTruck] = c.Truck
	d.Reset()
	return d
}

func (d *Dummy) Name() string {
	return config.LoadModeDummy
}

// Sample 抽取一次负载快照
func (d *Dummy) Sample() entity.LoadSnapshot {
	counts := make(map[string]entity.ClassCounts, len(d.approaches))
	for _, id := range d.approaches {
		var c entity.ClassCounts
		for class, r := range d.bounds {
			c[class] = d.generator.IntRangeSafe(r.Min, r.Max)
		}
		counts[id] = c
	}
	d.seq++
	return entity.LoadSnapshot{Seq: d.seq, Counts: counts, Source: d.Name()}
}

// Reset 重新以初始种子开始
func (d *Dummy) Reset() {
	d.generator = randengine.New(d.seed)
	d.seq = 0
}

func (d *Dummy) Close() {}
