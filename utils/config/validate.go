package config

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrConfigurationInvalid 配置不合法，启动时致命
	ErrConfigurationInvalid = errors.New("configuration invalid")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfigurationInvalid}, args...)...)
}

// Validate 校验配置
// 功能：在仿真开始前检查配置的一致性，所有问题合并为一个错误返回
// 参数：c-已补全默认值的配置
// 返回：nil表示合法，否则为errors.Join得到的错误，每一项都包含ErrConfigurationInvalid并指明出错的相位或进口道
// 算法说明：
// 1. 检查时间步长
// 2. 检查进口道ID唯一且几何长度为正
// 3. 检查相位非空、引用的进口道存在、绿灯上下限合法
// 4. 检查每个进口道恰好属于一个相位（允许重叠时至少属于一个）
// 5. 检查总绿灯时间可以在上下限之间分配
// 6. 检查过渡时间、权重、负载源、车型与生成参数
func Validate(c Config) error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	if c.Control.Step.Interval <= 0 {
		add(invalid("control.step.interval must be positive, got %v", c.Control.Step.Interval))
	}
	if c.Control.Step.Total < 0 {
		add(invalid("control.step.total must not be negative, got %d", c.Control.Step.Total))
	}

	// 进口道
	j := c.Junction
	if len(j.Approaches) == 0 {
		add(invalid("junction has no approaches"))
	}
	approaches := make(map[string]struct{}, len(j.Approaches))
	for i, a := range j.Approaches {
		if a.ID == "" {
			add(invalid("approach %d has an empty id", i))
			continue
		}
		if _, ok := approaches[a.ID]; ok {
			add(invalid("approach %q is defined twice", a.ID))
			continue
		}
		approaches[a.ID] = struct{}{}
		if math.Hypot(a.StopLine.X-a.Entry.X, a.StopLine.Y-a.Entry.Y) <= 0 {
			add(invalid("approach %q has zero length", a.ID))
		}
	}
	if j.Extent <= 0 {
		add(invalid("junction.extent must be positive, got %v", j.Extent))
	}

	// 相位
	if len(j.Phases) == 0 {
		add(invalid("junction has no phases"))
	}
	servedBy := make(map[string]int, len(approaches))
	sumMin, sumMax := 0., 0.
	for i, p := range j.Phases {
		if len(p.Approaches) == 0 {
			add(invalid("phase %d has no approaches", i))
		}
		seen := make(map[string]struct{}, len(p.Approaches))
		for _, id := range p.Approaches {
			if _, ok := approaches[id]; !ok {
				add(invalid("phase %d references unknown approach %q", i, id))
				continue
			}
			if _, ok := seen[id]; ok {
				add(invalid("phase %d lists approach %q twice", i, id))
				continue
			}
			seen[id] = struct{}{}
			if prev, ok := servedBy[id]; ok && !j.Overlapping {
				add(invalid("approach %q is served by phases %d and %d", id, prev, i))
				continue
			}
			servedBy[id] = i
		}
		if p.MinGreen <= 0 {
			add(invalid("phase %d: min_green must be positive, got %v", i, p.MinGreen))
		}
		if p.MinGreen > p.MaxGreen {
			add(invalid("phase %d: min_green %v > max_green %v", i, p.MinGreen, p.MaxGreen))
		}
		sumMin += p.MinGreen
		sumMax += p.MaxGreen
	}
	for _, a := range j.Approaches {
		if _, ok := servedBy[a.ID]; !ok && a.ID != "" {
			add(invalid("approach %q is not served by any phase", a.ID))
		}
	}

	// 信号
	s := c.Signal
	if len(j.Phases) > 0 && (s.GreenTotal < sumMin || s.GreenTotal > sumMax) {
		add(invalid("signal.green_total %v is outside [sum(min_green)=%v, sum(max_green)=%v]", s.GreenTotal, sumMin, sumMax))
	}
	if s.Amber <= 0 {
		add(invalid("signal.amber must be positive, got %v", s.Amber))
	}
	if s.AllRed <= 0 {
		add(invalid("signal.all_red must be positive, got %v", s.AllRed))
	}
	if s.Weights.Car < 0 || s.Weights.Bus < 0 || s.Weights.Truck < 0 {
		add(invalid("signal.weights must not be negative, got %+v", s.Weights))
	}

	// 负载源
	l := c.Load
	for name, r := range map[string]CountRange{"car": l.Dummy.Car, "bus": l.Dummy.Bus, "truck": l.Dummy.Truck} {
		if r.Min < 0 || r.Min > r.Max {
			add(invalid("load.dummy.%s range [%d, %d] is invalid", name, r.Min, r.Max))
		}
	}
	switch l.Mode {
	case LoadModeDummy, LoadModeQueue:
	case LoadModeDetector:
		if l.Detector.Endpoint == "" {
			add(invalid("load.detector.endpoint is required in detector mode"))
		}
		if l.Detector.Timeout <= 0 {
			add(invalid("load.detector.timeout must be positive, got %v", l.Detector.Timeout))
		}
		for _, a := range j.Approaches {
			if len(l.Detector.Frames[a.ID]) == 0 {
				add(invalid("approach %q has no detector frames", a.ID))
			}
		}
		for id := range l.Detector.Frames {
			if _, ok := approaches[id]; !ok {
				add(invalid("load.detector.frames references unknown approach %q", id))
			}
		}
	case LoadModeReplay:
		in := l.Replay.Input
		if in.File == "" && (l.Replay.URI == "" || in.DB == "" || in.Col == "") {
			add(invalid("load.replay needs a file or uri/db/col"))
		}
	default:
		add(invalid("unknown load.mode %q", l.Mode))
	}

	// 车辆
	v := c.Vehicle
	if v.MinGap <= 0 {
		add(invalid("vehicle.min_gap must be positive, got %v", v.MinGap))
	}
	if v.Headway < 0 {
		add(invalid("vehicle.headway must not be negative, got %v", v.Headway))
	}
	for name, vc := range map[string]VehicleClass{"car": v.Car, "bus": v.Bus, "truck": v.Truck} {
		if vc.Length <= 0 || vc.CruiseV <= 0 || vc.MaxA <= 0 {
			add(invalid("vehicle.%s: length, cruise_v and max_a must be positive", name))
		}
		if vc.UsualBrakingA >= 0 || vc.MaxBrakingA > vc.UsualBrakingA {
			add(invalid("vehicle.%s: need max_braking_a <= usual_braking_a < 0, got %v and %v", name, vc.MaxBrakingA, vc.UsualBrakingA))
		}
		if vc.Mix < 0 {
			add(invalid("vehicle.%s: mix must not be negative", name))
		}
	}

	// 生成
	sp := c.Spawn
	if sp.Mode != SpawnModePoisson && sp.Mode != SpawnModeReplay {
		add(invalid("unknown spawn.mode %q", sp.Mode))
	}
	if sp.MinRate < 0 || sp.MinRate > sp.MaxRate {
		add(invalid("spawn rate range [%v, %v] is invalid", sp.MinRate, sp.MaxRate))
	}
	if sp.MaxInitialQueue < 0 {
		add(invalid("spawn.max_initial_queue must not be negative"))
	}

	return errors.Join(errs...)
}
