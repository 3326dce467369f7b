package config

import "github.com/samber/lo"

// 默认参数
const (
	defaultInterval       = 0.1
	defaultApproachLength = 120.
	defaultExtent         = 30.
	defaultGreenTotal     = 60.
	defaultAmber          = 3.
	defaultAllRed         = 2.
	defaultMinGreen       = 6.
	defaultMaxGreen       = 45.
	defaultTimeout        = 5.
	defaultConfidence     = .25
	defaultMinGap         = 2.
	defaultHeadway        = 1.5
	defaultQueueSpeed     = 1.
	defaultCommitDistance = 2.
	defaultRatePerVehicle = 4.
	defaultMinRate        = 8.
	defaultMaxRate        = 25.
	defaultWaveAmplitude  = .3
	defaultMaxInitQueue   = 12
)

// 负载源与生成模式
const (
	LoadModeDummy    = "dummy"
	LoadModeDetector = "detector"
	LoadModeReplay   = "replay"
	LoadModeQueue    = "queue"

	SpawnModePoisson = "poisson"
	SpawnModeReplay  = "replay"
)

// RuntimeConfig 运行时配置
// 功能：存储补全默认值、展开路口预设并通过校验后的配置
// 说明：仿真各模块只读取RuntimeConfig，不直接读取YAML结构
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置

	WaveAmplitude float64 // 到达率波动幅度
	InitialQueue  bool    // 启动时是否生成初始排队
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：补全默认值，展开路口预设，并校验配置
// 参数：config-原始配置对象
// 返回：运行时配置，配置不合法时返回包含ErrConfigurationInvalid的错误
// 算法说明：
// 1. 补全控制、信号、负载源、车辆与生成参数的默认值
// 2. 根据junction.type展开3/4路口预设
// 3. 为未指定绿灯上下限的相位填入信号默认值
// 4. 执行Validate校验
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{
		WaveAmplitude: defaultWaveAmplitude,
		InitialQueue:  true,
	}
	fillDefaults(&config)
	if config.Junction.Type != 0 {
		if err := ApplyPreset(&config.Junction); err != nil {
			return nil, err
		}
	}
	for i := range config.Junction.Phases {
		p := &config.Junction.Phases[i]
		if p.MinGreen == 0 {
			p.MinGreen = config.Signal.MinGreen
		}
		if p.MaxGreen == 0 {
			p.MaxGreen = config.Signal.MaxGreen
		}
	}
	if config.Spawn.WaveAmplitude != nil {
		rc.WaveAmplitude = *config.Spawn.WaveAmplitude
	}
	if config.Spawn.InitialQueue != nil {
		rc.InitialQueue = *config.Spawn.InitialQueue
	}
	if err := Validate(config); err != nil {
		return nil, err
	}
	rc.All = config
	rc.C = config.Control
	return rc, nil
}

// fillDefaults 补全默认值（原地修改）
func fillDefaults(c *Config) {
	if c.Control.Step.Interval == 0 {
		c.Control.Step.Interval = defaultInterval
	}
	if c.Control.Speedup == 0 {
		c.Control.Speedup = 1
	}

	j := &c.Junction
	j.ApproachLength = lo.Ternary(j.ApproachLength == 0, defaultApproachLength, j.ApproachLength)
	j.Extent = lo.Ternary(j.Extent == 0, defaultExtent, j.Extent)

	s := &c.Signal
	s.GreenTotal = lo.Ternary(s.GreenTotal == 0, defaultGreenTotal, s.GreenTotal)
	s.Amber = lo.Ternary(s.Amber == 0, defaultAmber, s.Amber)
	s.AllRed = lo.Ternary(s.AllRed == 0, defaultAllRed, s.AllRed)
	s.MinGreen = lo.Ternary(s.MinGreen == 0, defaultMinGreen, s.MinGreen)
	s.MaxGreen = lo.Ternary(s.MaxGreen == 0, defaultMaxGreen, s.MaxGreen)
	if s.Weights == (ClassWeights{}) {
		s.Weights = ClassWeights{Car: 1, Bus: 2.5, Truck: 3}
	}

	l := &c.Load
	if l.Mode == "" {
		l.Mode = LoadModeDummy
	}
	if l.Dummy == (DummyLoad{}) {
		l.Dummy = DummyLoad{
			Car:   CountRange{Min: 0, Max: 6},
			Bus:   CountRange{Min: 0, Max: 2},
			Truck: CountRange{Min: 0, Max: 2},
		}
	}
	l.Detector.Timeout = lo.Ternary(l.Detector.Timeout == 0, defaultTimeout, l.Detector.Timeout)
	l.Detector.Confidence = lo.Ternary(l.Detector.Confidence == 0, defaultConfidence, l.Detector.Confidence)

	v := &c.Vehicle
	v.MinGap = lo.Ternary(v.MinGap == 0, defaultMinGap, v.MinGap)
	v.Headway = lo.Ternary(v.Headway == 0, defaultHeadway, v.Headway)
	v.QueueSpeed = lo.Ternary(v.QueueSpeed == 0, defaultQueueSpeed, v.QueueSpeed)
	v.CommitDistance = lo.Ternary(v.CommitDistance == 0, defaultCommitDistance, v.CommitDistance)
	if v.Car == (VehicleClass{}) {
		v.Car = VehicleClass{Length: 4.5, CruiseV: 13.9, MaxA: 2.6, UsualBrakingA: -4.5, MaxBrakingA: -9, Mix: .8}
	}
	if v.Bus == (VehicleClass{}) {
		v.Bus = VehicleClass{Length: 12, CruiseV: 11.1, MaxA: 1.2, UsualBrakingA: -3, MaxBrakingA: -6, Mix: .1}
	}
	if v.Truck == (VehicleClass{}) {
		v.Truck = VehicleClass{Length: 10, CruiseV: 11.1, MaxA: 1, UsualBrakingA: -3, MaxBrakingA: -6, Mix: .1}
	}

	sp := &c.Spawn
	if sp.Mode == "" {
		sp.Mode = SpawnModePoisson
	}
	sp.RatePerVehicle = lo.Ternary(sp.RatePerVehicle == 0, defaultRatePerVehicle, sp.RatePerVehicle)
	sp.MinRate = lo.Ternary(sp.MinRate == 0, defaultMinRate, sp.MinRate)
	sp.MaxRate = lo.Ternary(sp.MaxRate == 0, defaultMaxRate, sp.MaxRate)
	if sp.MaxInitialQueue == 0 {
		sp.MaxInitialQueue = defaultMaxInitQueue
	}
}
