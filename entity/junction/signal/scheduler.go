// 提供自适应信号配时
// 相位按固定顺序轮转，每个周期开始时根据负载快照重新分配各相位绿灯时间，
// 相位之间固定经过黄灯与全红
package signal

import (
	"fmt"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// Phase 相位
type Phase struct {
	Approaches []string // 放行的进口道
	Bounds     Bounds   // 绿灯时间上下限
}

// Allocation 一个周期的配时结果
type Allocation struct {
	Cycle    int32               // 周期序号（从1开始）
	T        float64             // 周期开始的仿真时间（秒）
	Greens   []float64           // 各相位绿灯时间
	Loads    []float64           // 各相位加权负载
	Snapshot entity.LoadSnapshot // 使用的负载快照
}

// Scheduler 信号机
// 功能：保存信号机状态，按时间步推进 GREEN -> AMBER -> ALL_RED -> 下一相位GREEN 的状态机
// 说明：状态只由Update、Skip、Reset修改，三者都只在仿真步内调用
type Scheduler struct {
	junctionID int32
	approaches []string          // 所有进口道（配置顺序）
	phases     []Phase           // 相位（轮转顺序）
	inPhase    map[string][]bool // 进口道 -> 是否属于各相位
	weights    [entity.NumVehicleClasses]float64
	gTotal     float64
	amber      float64
	allRed     float64

	source entity.ILoadSource
	now    func() float64 // 当前仿真时间，用于记录配时

	state    entity.SignalState
	greens   []float64
	loads    []float64
	snapshot entity.LoadSnapshot
	primed   *entity.LoadSnapshot // 下一次配时直接使用的快照，用后清除
	program  *mapv2.TrafficLight  // 当前周期的信控程序视图，构建后不再修改

	onAllocate []func(Allocation)
}

// New 创建信号机
// 功能：根据运行时配置构建相位并设置初始状态（全红，相位0，周期0）
// 参数：rc-运行时配置，source-负载源，now-当前仿真时间
// 返回：信号机，相位引用未知进口道时返回错误
func New(rc *config.RuntimeConfig, source entity.ILoadSource, now func() float64) (*Scheduler, error) {
	j := rc.All.Junction
	s := rc.All.Signal
	l := &Scheduler{
		junctionID: j.ID,
		approaches: lo.Map(j.Approaches, func(a config.Approach, _ int) string { return a.ID }),
		inPhase:    make(map[string][]bool),
		weights:    [entity.NumVehicleClasses]float64{s.Weights.Car, s.Weights.Bus, s.Weights.Truck},
		gTotal:     s.GreenTotal,
		amber:      s.Amber,
		allRed:     s.AllRed,
		source:     source,
		now:        now,
	}
	known := lo.SliceToMap(l.approaches, func(id string) (string, string) { return id, id })
	for i, p := range j.Phases {
		ids, failed := utils.Find(known, nil, p.Approaches)
		if len(failed) > 0 {
			return nil, fmt.Errorf("phase %d references unknown approaches %v", i, failed)
		}
		l.phases = append(l.phases, Phase{
			Approaches: ids,
			Bounds:     Bounds{Min: p.MinGreen, Max: p.MaxGreen},
		})
	}
	for _, id := range l.approaches {
		l.inPhase[id] = make([]bool, len(l.phases))
	}
	for i, p := range l.phases {
		for _, id := range p.Approaches {
			l.inPhase[id][i] = true
		}
	}
	// 第一个周期开始前按零负载（平均分配）展示配时
	l.loads = make([]float64, len(l.phases))
	greens, err := Allocate(l.loads, l.bounds(), l.gTotal)
	if err != nil {
		return nil, err
	}
	l.greens = greens
	l.program = l.buildProgram()
	l.Reset()

	v := rc.All.Vehicle
	for i, vc := range []config.VehicleClass{v.Car, v.Bus, v.Truck} {
		if need := vc.CruiseV / 2 / -vc.MaxBrakingA; l.amber < need {
			log.Warnf("amber %.1fs is shorter than %.1fs recommended for %v at cruise speed",
				l.amber, need, entity.AllVehicleClasses[i])
		}
	}
	return l, nil
}

func (l *Scheduler) bounds() []Bounds {
	return lo.Map(l.phases, func(p Phase, _ int) Bounds { return p.Bounds })
}

// OnAllocate 注册配时回调，每个周期重新分配绿灯时间后调用
func (l *Scheduler) OnAllocate(f func(Allocation)) {
	l.onAllocate = append(l.onAllocate, f)
}

// Prime 指定下一次配时使用的负载快照
// 说明：初始排队与第一个周期使用同一次检测结果，下一次配时不再采样负载源
func (l *Scheduler) Prime(snapshot entity.LoadSnapshot) {
	l.primed = &snapshot
}

// Reset 重置信号机状态为（相位0，全红，周期0）
func (l *Scheduler) Reset() {
	l.primed = nil
	l.state = entity.SignalState{
		PhaseIndex: 0,
		Sub:        entity.SubStateAllRed,
		Remaining:  l.allRed,
		Total:      l.allRed,
		Cycle:      0,
	}
}

// Skip 立即结束当前相位的绿灯
// 功能：GREEN时立即进入本相位的AMBER，之后仍然经过ALL_RED才进入下一相位
// 返回：是否生效，AMBER与ALL_RED时不做任何处理
func (l *Scheduler) Skip() bool {
	if l.state.Sub != entity.SubStateGreen {
		log.Debugf("skip ignored in %v", l.state.Sub)
		return false
	}
	log.Infof("skip phase %d with %.1fs green remaining", l.state.PhaseIndex, l.state.Remaining)
	l.state.Sub = entity.SubStateAmber
	l.state.Remaining = l.amber
	l.state.Total = l.amber
	return true
}

// Update 推进信号机状态
// 功能：倒计时减少dt，归零时进入下一个子状态，每步最多切换一次
// 参数：dt-时间步长
// 算法说明：
// 1. GREEN(p) -> AMBER(p)：剩余时间为黄灯时间
// 2. AMBER(p) -> ALL_RED：相位序号指向下一相位，剩余时间为全红时间
// 3. ALL_RED -> GREEN(p)：若p为0则周期数加1，采样负载快照并重新分配绿灯时间；剩余时间为p的绿灯时间
// 4. 超出的时间计入下一子状态
func (l *Scheduler) Update(dt float64) {
	s := &l.state
	s.Remaining -= dt
	if s.Remaining > 0 {
		return
	}
	switch s.Sub {
	case entity.SubStateGreen:
		s.Sub = entity.SubStateAmber
		s.Remaining += l.amber
		s.Total = l.amber
	case entity.SubStateAmber:
		s.Sub = entity.SubStateAllRed
		s.PhaseIndex = (s.PhaseIndex + 1) % len(l.phases)
		s.Remaining += l.allRed
		s.Total = l.allRed
	case entity.SubStateAllRed:
		if s.PhaseIndex == 0 {
			s.Cycle++
			l.allocate()
		}
		s.Sub = entity.SubStateGreen
		s.Remaining += l.greens[s.PhaseIndex]
		s.Total = l.greens[s.PhaseIndex]
	}
	if s.Remaining <= 0 {
		log.Warnf("signal of junction %d remaining time %f <= 0", l.junctionID, s.Remaining)
	}
	l.checkInvariant()
}

// allocate 采样负载快照并重新分配绿灯时间
func (l *Scheduler) allocate() {
	if l.primed != nil {
		l.snapshot, l.primed = *l.primed, nil
	} else {
		l.snapshot = l.source.Sample()
	}
	if l.snapshot.Degraded {
		log.Warnf("cycle %d uses degraded load from %s", l.state.Cycle, l.snapshot.Source)
	}
	l.loads = lo.Map(l.phases, func(p Phase, _ int) float64 {
		return lo.SumBy(p.Approaches, func(id string) float64 {
			return l.snapshot.Get(id).Weighted(l.weights)
		})
	})
	greens, err := Allocate(l.loads, l.bounds(), l.gTotal)
	if err != nil {
		// 启动时已校验，不应发生
		log.Panicf("cycle %d: %v", l.state.Cycle, err)
	}
	l.greens = greens
	l.program = l.buildProgram()
	log.Infof("cycle %d: loads=%.1f greens=%.1f (%s seq=%d)",
		l.state.Cycle, l.loads, l.greens, l.snapshot.Source, l.snapshot.Seq)
	a := Allocation{
		Cycle:    l.state.Cycle,
		Greens:   append([]float64(nil), l.greens...),
		Loads:    append([]float64(nil), l.loads...),
		Snapshot: l.snapshot,
	}
	if l.now != nil {
		a.T = l.now()
	}
	for _, f := range l.onAllocate {
		f(a)
	}
}

// checkInvariant 检查放行的进口道全部属于同一相位
func (l *Scheduler) checkInvariant() {
	var permissive []string
	for _, id := range l.approaches {
		if l.Light(id) != mapv2.LightState_LIGHT_STATE_RED {
			permissive = append(permissive, id)
		}
	}
	if len(permissive) == 0 {
		return
	}
	if l.state.Sub == entity.SubStateAllRed {
		log.Panicf("approaches %v are not red during ALL_RED", permissive)
	}
	for _, id := range permissive {
		if !l.inPhase[id][l.state.PhaseIndex] {
			log.Panicf("approach %s is permissive outside phase %d", id, l.state.PhaseIndex)
		}
	}
}

// State 当前信号机状态
func (l *Scheduler) State() entity.SignalState {
	return l.state
}

// InPhase 进口道是否属于指定相位
func (l *Scheduler) InPhase(approach string, phase int) bool {
	in, ok := l.inPhase[approach]
	return ok && phase >= 0 && phase < len(in) && in[phase]
}

// Light 进口道当前灯色
func (l *Scheduler) Light(approach string) mapv2.LightState {
	return l.state.Light(l.InPhase(approach, l.state.PhaseIndex))
}

// NextPhase 下一个放行的相位
func (l *Scheduler) NextPhase() int {
	if l.state.Sub == entity.SubStateAllRed {
		return l.state.PhaseIndex
	}
	return (l.state.PhaseIndex + 1) % len(l.phases)
}

// Phases 相位定义
func (l *Scheduler) Phases() []Phase {
	return l.phases
}

// Greens 本周期各相位绿灯时间
func (l *Scheduler) Greens() []float64 {
	return append([]float64(nil), l.greens...)
}

// Loads 本周期各相位加权负载
func (l *Scheduler) Loads() []float64 {
	return append([]float64(nil), l.loads...)
}

// Snapshot 本周期使用的负载快照
func (l *Scheduler) Snapshot() entity.LoadSnapshot {
	return l.snapshot
}

// Program 本周期的信控程序视图
// 说明：返回的消息在下一次分配前不会被修改，调用方不得修改
func (l *Scheduler) Program() *mapv2.TrafficLight {
	return l.program
}

// ProgramIndex 当前状态在信控程序视图中的下标
func (l *Scheduler) ProgramIndex() int32 {
	n := len(l.phases)
	switch l.state.Sub {
	case entity.SubStateGreen:
		return int32(3 * l.state.PhaseIndex)
	case entity.SubStateAmber:
		return int32(3*l.state.PhaseIndex + 1)
	default:
		// 全红属于上一相位
		return int32(3*((l.state.PhaseIndex+n-1)%n) + 2)
	}
}

// buildProgram 构建信控程序视图
// 功能：每个相位依次生成绿灯、黄灯、全红三个程序相位，灯色按进口道配置顺序排列
func (l *Scheduler) buildProgram() *mapv2.TrafficLight {
	tl := &mapv2.TrafficLight{
		JunctionId: l.junctionID,
		Phases:     make([]*mapv2.Phase, 0, 3*len(l.phases)),
	}
	for i := range l.phases {
		green := make([]mapv2.LightState, len(l.approaches))
		amber := make([]mapv2.LightState, len(l.approaches))
		allRed := make([]mapv2.LightState, len(l.approaches))
		for j, id := range l.approaches {
			green[j] = mapv2.LightState_LIGHT_STATE_RED
			amber[j] = mapv2.LightState_LIGHT_STATE_RED
			allRed[j] = mapv2.LightState_LIGHT_STATE_RED
			if l.inPhase[id][i] {
				green[j] = mapv2.LightState_LIGHT_STATE_GREEN
				amber[j] = mapv2.LightState_LIGHT_STATE_YELLOW
			}
		}
		tl.Phases = append(tl.Phases,
			&mapv2.Phase{Duration: l.greens[i], States: green},
			&mapv2.Phase{Duration: l.amber, States: amber},
			&mapv2.Phase{Duration: l.allRed, States: allRed},
		)
	}
	return tl
}
