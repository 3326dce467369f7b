package junction

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// 车距校验容差（米）
const gapEps = 1e-6

// Approach 进口道
// 功能：保存进口道几何与车辆，按先进先出顺序推进车辆
// 说明：车辆沿中心线 entry -> stop line -> 路口内部 行驶，S为车头到entry的距离；
// 停车线前的车辆在queue中，越过停车线后转入inJunction，驶出路口后删除
type Approach struct {
	id string

	line           []geometry.Point             // 中心线：生成点、停车线、路口出口
	lineLengths    []float64                    // 中心线各点的累计长度
	lineDirections []geometry.PolylineDirection // 中心线各段方向
	stopS          float64                      // 停车线位置
	extent         float64                      // 路口内部通行距离

	queue      vehicle.Queue // 停车线前的车辆，头部最靠近停车线
	inJunction vehicle.Queue // 已越过停车线、尚未驶出的车辆

	load  entity.ClassCounts // 最近一次负载快照中的车辆数
	stats Stats
}

// newApproach 根据配置创建进口道
func newApproach(c config.Approach, extent float64) *Approach {
	entry := geometry.Point{X: c.Entry.X, Y: c.Entry.Y}
	stop := geometry.Point{X: c.StopLine.X, Y: c.StopLine.Y}
	length := math.Hypot(stop.X-entry.X, stop.Y-entry.Y)
	exit := geometry.Point{
		X: stop.X + (stop.X-entry.X)/length*extent,
		Y: stop.Y + (stop.Y-entry.Y)/length*extent,
	}
	a := &Approach{
		id:         c.ID,
		line:       []geometry.Point{entry, stop, exit},
		extent:     extent,
		queue:      vehicle.Queue{ID: fmt.Sprintf("approach %s queue", c.ID)},
		inJunction: vehicle.Queue{ID: fmt.Sprintf("approach %s in junction", c.ID)},
	}
	a.lineLengths = geometry.GetPolylineLengths2D(a.line)
	a.lineDirections = geometry.GetPolylineDirections(a.line)
	a.stopS = a.lineLengths[1]
	return a
}

func (a *Approach) String() string {
	return fmt.Sprintf("Approach{%s queue=%d in_junction=%d %v}", a.id, a.queue.Len(), a.inJunction.Len(), a.stats)
}

func (a *Approach) ID() string { return a.id }

// StopS 停车线位置（沿进口道的距离）
func (a *Approach) StopS() float64 { return a.stopS }

// Entry 生成点坐标
func (a *Approach) Entry() geometry.Point { return a.line[0] }

// StopLine 停车线坐标
func (a *Approach) StopLine() geometry.Point { return a.line[1] }

// Stats 累计统计
func (a *Approach) Stats() Stats { return a.stats }

// Load 最近一次负载快照中的车辆数
func (a *Approach) Load() entity.ClassCounts { return a.load }

// QueueLength 停车线前的车辆数
func (a *Approach) QueueLength() int32 { return int32(a.queue.Len()) }

// Vehicles 本进口道所有车辆，从最靠前的路口内车辆到队尾
func (a *Approach) Vehicles() []*vehicle.Vehicle {
	return append(a.inJunction.Values(), a.queue.Values()...)
}

// exitS 车头到达该位置时车尾驶出路口
func (a *Approach) exitS(v *vehicle.Vehicle) float64 {
	return a.stopS + a.extent + v.Length()
}

// leaderOf 获取车辆的前车
// 说明：停车线前的头车以路口内最后一辆车为前车，两者S坐标相同
func (a *Approach) leaderOf(node *vehicle.Node) *vehicle.Vehicle {
	if prev := node.Prev(); prev != nil {
		return prev.Value
	}
	if node.Parent() == &a.queue {
		if last := a.inJunction.Last(); last != nil {
			return last.Value
		}
	}
	return nil
}

// DirectionByS 根据S坐标计算行驶方向
func (a *Approach) DirectionByS(s float64) geometry.PolylineDirection {
	if i := sort.SearchFloat64s(a.lineLengths, s); i == 0 {
		return a.lineDirections[0]
	} else if i >= len(a.lineLengths) {
		return a.lineDirections[len(a.lineDirections)-1]
	} else {
		return a.lineDirections[i-1]
	}
}

// PositionByS 将S坐标转换为xy坐标
// 说明：超出中心线的部分沿最后一段方向外推
func (a *Approach) PositionByS(s float64) geometry.Point {
	n := len(a.lineLengths)
	i := sort.SearchFloat64s(a.lineLengths, s)
	switch {
	case i == 0:
		return a.line[0]
	case i >= n:
		i = n - 1
	}
	sHigh, sLow := a.lineLengths[i], a.lineLengths[i-1]
	k := (s - sLow) / (sHigh - sLow)
	if k < 0 {
		log.Panicf("junction: PositionByS(), bad k %v. sHigh=%f, sLow=%f, s=%f", k, sHigh, sLow, s)
	}
	return geometry.Blend(a.line[i-1], a.line[i], k)
}

// canSpawn 生成点处是否有足够空间
// 返回：队尾车辆（可能为nil）与是否可以生成
func (a *Approach) canSpawn(minGap float64) (*vehicle.Vehicle, bool) {
	last := a.queue.Last()
	if last == nil {
		return nil, true
	}
	return last.Value, last.Value.Rear() >= minGap
}

// add 将车辆加入队尾
func (a *Approach) add(v *vehicle.Vehicle) {
	a.queue.PushBack(v.Node())
	a.stats.Spawned++
}

// update 推进本进口道的所有车辆一个时间步
// 功能：按从前到后的顺序更新车辆，越线的车辆转入路口内列表，驶出的车辆删除
// 参数：dt-时间步长，light-本进口道当前灯色
// 算法说明：
// 1. 先更新路口内车辆（前车已完成本步更新），驶出路口的车辆删除并计入通过量
// 2. 再从头到尾更新停车线前车辆，头车越线后立即转入路口内列表队尾，后车以其为前车
// 3. 最后校验相邻车辆之间的最小车距
func (a *Approach) update(dt float64, light mapv2.LightState) {
	for node := a.inJunction.First(); node != nil; {
		next := node.Next()
		v := node.Value
		state := v.Update(vehicle.Env{
			Leader: a.leaderOf(node),
			StopS:  a.stopS,
			ExitS:  a.exitS(v),
			Light:  light,
			DT:     dt,
		})
		if state == entity.VehicleStateDeparted {
			a.inJunction.Remove(node)
			a.stats.Throughput++
			log.Debugf("%v departed from approach %s", v, a.id)
		}
		node = next
	}
	for node := a.queue.First(); node != nil; {
		next := node.Next()
		v := node.Value
		state := v.Update(vehicle.Env{
			Leader: a.leaderOf(node),
			StopS:  a.stopS,
			ExitS:  a.exitS(v),
			Light:  light,
			DT:     dt,
		})
		switch state {
		case entity.VehicleStateReleased:
			a.queue.Remove(node)
			a.inJunction.PushBack(node)
			a.stats.Released++
		case entity.VehicleStateDeparted:
			// 一个时间步内越过整个路口，只在dt极大时发生
			a.queue.Remove(node)
			a.stats.Released++
			a.stats.Throughput++
		}
		node = next
	}
	a.checkGap()
}

// checkGap 校验相邻车辆之间的车距不小于最小车距
func (a *Approach) checkGap() {
	var leader *vehicle.Vehicle
	for _, list := range []*vehicle.Queue{&a.inJunction, &a.queue} {
		for node := list.First(); node != nil; node = node.Next() {
			v := node.Value
			if leader != nil {
				if gap := v.GapTo(leader); gap < v.Params().MinGap-gapEps {
					log.Panicf("junction: gap %v between %v and leader %v below minimum %v", gap, v, leader, v.Params().MinGap)
				}
			}
			leader = v
		}
	}
}

// clear 删除所有车辆并清空统计
func (a *Approach) clear() {
	a.queue.Clear()
	a.inJunction.Clear()
	a.stats = Stats{}
	a.load = entity.ClassCounts{}
}

// queuedCounts 停车线前的分车型车辆数
func (a *Approach) queuedCounts() (counts entity.ClassCounts) {
	for node := a.queue.First(); node != nil; node = node.Next() {
		counts[node.Value.Class()]++
	}
	return
}

// waiting 处于QUEUED状态的车辆数
func (a *Approach) waiting() (n int32) {
	for node := a.queue.First(); node != nil; node = node.Next() {
		if node.Value.State() == entity.VehicleStateQueued {
			n++
		}
	}
	return
}

// view 进口道只读视图
func (a *Approach) view(light mapv2.LightState) entity.ApproachView {
	return entity.ApproachView{
		ID:          a.id,
		Light:       light,
		Entry:       a.Entry(),
		StopLine:    a.StopLine(),
		QueueLength: a.QueueLength(),
		Waiting:     a.waiting(),
		Released:    a.stats.Released,
		Throughput:  a.stats.Throughput,
		Spawned:     a.stats.Spawned,
		Load:        a.load,
	}
}

// vehicleViews 本进口道所有车辆的只读视图（含平面坐标）
func (a *Approach) vehicleViews() []entity.VehicleView {
	views := make([]entity.VehicleView, 0, a.queue.Len()+a.inJunction.Len())
	for _, v := range a.Vehicles() {
		view := v.View(a.stopS)
		view.XY = a.PositionByS(view.S)
		view.Heading = a.DirectionByS(view.S).Direction
		views = append(views, view)
	}
	return views
}
