package task

import (
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity/junction/signal"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/container"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/randengine"
)

const (
	retryInterval = .5  // 生成点被占用时重试的间隔（秒）
	waveFrequency = 0.5 // 到达率波动的角频率（弧度/秒）
)

// arrival 一次车辆到达事件
type arrival struct {
	approach string
	class    entity.VehicleClass
	drawn    bool // 车型已确定（replay模式），否则到达时按负载快照的车型比例抽取
}

// spawner 车辆生成器
// 功能：维护各进口道的下一次到达事件，到达时在进口道生成点生成车辆
// 说明：
// 1. poisson模式：每个进口道到达间隔服从指数分布，到达率由最近一次配时使用的负载快照决定并随时间波动
// 2. replay模式：每个周期开始时把负载快照中的车辆数均匀分布在该周期内到达
type spawner struct {
	mode           string
	junction       *junction.Junction
	scheduler      *signal.Scheduler
	seed           uint64
	ratePerVehicle float64 // 辆/分钟
	minRate        float64 // 辆/分钟
	maxRate        float64 // 辆/分钟
	waveAmplitude  float64
	mix            []float64 // 默认车型比例
	clearance      float64   // 每个周期的黄灯与全红总时长

	offsets   map[string]float64 // 各进口道波动的相位偏移
	events    *container.PriorityQueue[arrival]
	generator *randengine.Engine
}

func newSpawner(rc *config.RuntimeConfig, j *junction.Junction, scheduler *signal.Scheduler) *spawner {
	c := rc.All
	n := len(j.Approaches())
	s := &spawner{
		mode:           c.Spawn.Mode,
		junction:       j,
		scheduler:      scheduler,
		seed:           c.Load.Seed + 1,
		ratePerVehicle: c.Spawn.RatePerVehicle,
		minRate:        c.Spawn.MinRate,
		maxRate:        c.Spawn.MaxRate,
		waveAmplitude:  rc.WaveAmplitude,
		mix:            []float64{c.Vehicle.Car.Mix, c.Vehicle.Bus.Mix, c.Vehicle.Truck.Mix},
		clearance:      float64(len(c.Junction.Phases)) * (c.Signal.Amber + c.Signal.AllRed),
		offsets:        make(map[string]float64, n),
		events:         container.NewPriorityQueue[arrival](),
	}
	for i, a := range j.Approaches() {
		s.offsets[a.ID()] = 2 * math.Pi * float64(i) / float64(n)
	}
	if s.mode == config.SpawnModeReplay {
		scheduler.OnAllocate(s.scheduleCycle)
	}
	return s
}

// rate 进口道当前的到达率（辆/秒）
// 算法说明：
// 1. 基础到达率 = clamp(负载快照中该进口道车辆数 × rate_per_vehicle, min_rate, max_rate)（辆/分钟）
// 2. 乘以波动因子 1 + wave_amplitude × sin(0.5t + k)，k为进口道的相位偏移
func (s *spawner) rate(approach string, t float64) float64 {
	total := float64(s.scheduler.Snapshot().Get(approach).Total())
	base := lo.Clamp(total*s.ratePerVehicle, s.minRate, s.maxRate)
	wave := 1 + s.waveAmplitude*math.Sin(waveFrequency*t+s.offsets[approach])
	return math.Max(base*wave, 0) / 60
}

// drawClass 按负载快照中该进口道的车型比例抽取车型，快照为空时使用默认比例
func (s *spawner) drawClass(approach string) entity.VehicleClass {
	counts := s.scheduler.Snapshot().Get(approach)
	weights := s.mix
	if counts.Total() > 0 {
		weights = lo.Map(counts[:], func(n int32, _ int) float64 { return float64(n) })
	}
	return entity.AllVehicleClasses[s.generator.DiscreteDistribution(weights)]
}

// schedulePoisson 安排进口道的下一次随机到达
func (s *spawner) schedulePoisson(approach string, t float64) {
	rate := s.rate(approach, t)
	if rate <= 0 {
		s.events.HeapPush(arrival{approach: approach}, t+retryInterval)
		return
	}
	s.events.HeapPush(arrival{approach: approach}, t+s.generator.Exp(rate))
}

// scheduleCycle 把本周期负载快照中的车辆数均匀安排在周期内到达（replay模式）
func (s *spawner) scheduleCycle(a signal.Allocation) {
	length := lo.Sum(a.Greens) + s.clearance
	for _, approach := range s.junction.Approaches() {
		counts := a.Snapshot.Get(approach.ID())
		classes := make([]entity.VehicleClass, 0, counts.Total())
		for _, class := range entity.AllVehicleClasses {
			for range counts[class] {
				classes = append(classes, class)
			}
		}
		s.generator.Shuffle(len(classes), func(i, j int) { classes[i], classes[j] = classes[j], classes[i] })
		interval := length / float64(len(classes)+1)
		for i, class := range classes {
			s.events.HeapPush(arrival{approach: approach.ID(), class: class, drawn: true}, a.T+interval*float64(i+1))
		}
	}
}

// reset 清空到达事件并重新安排
func (s *spawner) reset(t float64) {
	s.events.Clear()
	s.generator = randengine.New(s.seed)
	if s.mode == config.SpawnModePoisson {
		for _, a := range s.junction.Approaches() {
			s.schedulePoisson(a.ID(), t)
		}
	}
}

// update 处理到达时刻不晚于t的所有事件
// 返回：本步生成的车辆数
func (s *spawner) update(t float64) (spawned int) {
	for s.events.Len() > 0 && s.events.FirstPriority() <= t {
		e, at := s.events.HeapPop()
		if !e.drawn {
			e.class = s.drawClass(e.approach)
		}
		if _, ok := s.junction.TrySpawn(e.approach, e.class); !ok {
			// 生成点被占用，稍后重试同一辆车
			e.drawn = true
			s.events.HeapPush(e, t+retryInterval)
			continue
		}
		spawned++
		if s.mode == config.SpawnModePoisson {
			s.schedulePoisson(e.approach, math.Max(at, t))
		}
	}
	return
}
