package junction

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/parallel"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/randengine"
)

// 初始排队头车车头与停车线的距离（米）
const queueHeadGap = 1

// Junction 路口
// 功能：持有进口道拓扑与所有存活车辆，负责车辆生成、逐步推进与统计
// 说明：不同进口道之间的车辆互不影响，Update按进口道并行推进
type Junction struct {
	id         int32
	approaches []*Approach          // 按配置顺序
	data       map[string]*Approach // 进口道ID->进口道
	params     [entity.NumVehicleClasses]vehicle.Params
	minGap     float64

	nextID    int32
	generator *randengine.Engine
}

// New 根据运行时配置创建路口
// 功能：创建所有进口道与车型参数表
// 参数：rc-运行时配置（已通过校验）
// 返回：初始化完成的路口
func New(rc *config.RuntimeConfig) *Junction {
	c := rc.All
	j := &Junction{
		id: c.Junction.ID,
		approaches: lo.Map(c.Junction.Approaches, func(a config.Approach, _ int) *Approach {
			return newApproach(a, c.Junction.Extent)
		}),
		params:    vehicle.NewParamsTable(c.Vehicle),
		minGap:    c.Vehicle.MinGap,
		generator: randengine.New(uint64(c.Junction.ID) + c.Load.Seed),
	}
	j.data = lo.SliceToMap(j.approaches, func(a *Approach) (string, *Approach) {
		return a.id, a
	})
	return j
}

func (j *Junction) String() string {
	return fmt.Sprintf("Junction{id=%d approaches=%d vehicles=%d %v}", j.id, len(j.approaches), j.Len(), j.Stats())
}

// ID 获取路口ID
func (j *Junction) ID() int32 {
	return j.id
}

// Approaches 获取所有进口道（按配置顺序）
func (j *Junction) Approaches() []*Approach {
	return j.approaches
}

// Approach 根据ID获取进口道
func (j *Junction) Approach(id string) (*Approach, bool) {
	a, ok := j.data[id]
	return a, ok
}

// Params 获取车型参数
func (j *Junction) Params(class entity.VehicleClass) vehicle.Params {
	return j.params[class]
}

// TrySpawn 在进口道生成点生成一辆车
// 功能：生成点处有足够空间时在队尾加入新车
// 参数：approach-进口道ID，class-车型
// 返回：新车辆，空间不足时返回nil与false
// 算法说明：
// 1. 队尾车辆车尾到生成点的距离不小于最小车距才允许生成
// 2. 初速度不超过巡航速度，并保证以舒适减速度能在与队尾车辆的多余间距内降到队尾车速
func (j *Junction) TrySpawn(approach string, class entity.VehicleClass) (*vehicle.Vehicle, bool) {
	a, ok := j.data[approach]
	if !ok {
		log.Panicf("no approach %s in junction %d", approach, j.id)
	}
	p := j.params[class]
	tail, ok := a.canSpawn(j.minGap)
	if !ok {
		return nil, false
	}
	v := p.CruiseV
	if tail != nil {
		extra := tail.Rear() - j.minGap
		v = math.Min(v, tail.V()+math.Sqrt(2*-p.UsualBrakingA*extra))
	}
	veh := vehicle.New(j.nextID, approach, p, 0, v)
	j.nextID++
	a.add(veh)
	return veh, true
}

// SeedQueue 在停车线前生成静止的初始排队
// 功能：按各进口道的分车型车辆数，从停车线开始向后以最小车距排列静止车辆
// 参数：counts-进口道ID->分车型车辆数，max-每个进口道的车辆数上限
// 返回：生成的车辆总数
// 说明：车型顺序随机打乱；进口道长度不足时多余的车辆不生成
func (j *Junction) SeedQueue(counts map[string]entity.ClassCounts, max int32) int32 {
	var total int32
	for _, a := range j.approaches {
		classes := make([]entity.VehicleClass, 0)
		for _, class := range entity.AllVehicleClasses {
			for range counts[a.id][class] {
				classes = append(classes, class)
			}
		}
		j.generator.Shuffle(len(classes), func(x, y int) {
			classes[x], classes[y] = classes[y], classes[x]
		})
		if int32(len(classes)) > max {
			classes = classes[:max]
		}
		s := a.stopS - queueHeadGap
		if last := a.queue.Last(); last != nil {
			s = last.Value.Rear() - j.minGap
		}
		for _, class := range classes {
			p := j.params[class]
			if s-p.Length < 0 {
				break
			}
			a.add(vehicle.New(j.nextID, a.id, p, s, 0))
			j.nextID++
			total++
			s -= p.Length + j.minGap
		}
	}
	log.Infof("seeded %d queued vehicles", total)
	return total
}

// SetLoad 记录最近一次负载快照，供只读视图展示
func (j *Junction) SetLoad(snapshot entity.LoadSnapshot) {
	for _, a := range j.approaches {
		a.load = snapshot.Get(a.id)
	}
}

// Update 推进所有车辆一个时间步
// 功能：先读取各进口道灯色，再按进口道并行推进车辆
// 参数：dt-时间步长，lights-信号机（本步状态已经更新完毕）
// 返回：本步驶出路口的车辆数
func (j *Junction) Update(dt float64, lights ILightGetter) int32 {
	before := j.Stats().Throughput
	states := lo.Map(j.approaches, func(a *Approach, _ int) mapv2.LightState {
		return lights.Light(a.id)
	})
	parallel.GoFor(lo.Range(len(j.approaches)), func(i int) {
		j.approaches[i].update(dt, states[i])
	})
	return j.Stats().Throughput - before
}

// Clear 删除所有车辆并清空统计
func (j *Junction) Clear() {
	for _, a := range j.approaches {
		a.clear()
	}
	j.nextID = 0
}

// Len 存活车辆数
func (j *Junction) Len() int {
	return lo.SumBy(j.approaches, func(a *Approach) int {
		return a.queue.Len() + a.inJunction.Len()
	})
}

// Stats 所有进口道的累计统计
func (j *Junction) Stats() (s Stats) {
	for _, a := range j.approaches {
		s.add(a.stats)
	}
	return
}

// Waiting 处于QUEUED状态的车辆总数
func (j *Junction) Waiting() int32 {
	return lo.SumBy(j.approaches, func(a *Approach) int32 { return a.waiting() })
}

// QueuedCounts 各进口道停车线前的分车型车辆数
func (j *Junction) QueuedCounts() map[string]entity.ClassCounts {
	return lo.SliceToMap(j.approaches, func(a *Approach) (string, entity.ClassCounts) {
		return a.id, a.queuedCounts()
	})
}

// ApproachViews 所有进口道的只读视图
func (j *Junction) ApproachViews(lights ILightGetter) []entity.ApproachView {
	return lo.Map(j.approaches, func(a *Approach, _ int) entity.ApproachView {
		return a.view(lights.Light(a.id))
	})
}

// VehicleViews 所有车辆的只读视图
func (j *Junction) VehicleViews() []entity.VehicleView {
	return lo.Flatten(parallel.GoMap(j.approaches, func(a *Approach) []entity.VehicleView {
		return a.vehicleViews()
	}))
}
