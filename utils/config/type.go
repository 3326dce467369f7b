package config

// InputPath 指定输入数据来源的配置（MongoDB、文件系统）
// 功能：定义回放数据的输入路径，支持MongoDB数据库和文件系统两种数据源
// 说明：文件优先级高于MongoDB
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB）
}

// GetDb 获取数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 获取集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：Total为0表示不限步数，直到收到终止指令
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数（0表示不限）
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
type Control struct {
	Step     ControlStep `yaml:"step"`
	Realtime bool        `yaml:"realtime,omitempty"` // 是否按墙上时钟节奏推进
	Speedup  float64     `yaml:"speedup,omitempty"`  // 实时模式下的加速倍数
}

// Point 平面坐标（米）
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Approach 进口道配置
// 功能：定义一个进口道的ID与几何位置
// 说明：车辆沿Entry->StopLine方向行驶，越过StopLine即进入路口
type Approach struct {
	ID       string `yaml:"id"`        // 进口道ID
	Entry    Point  `yaml:"entry"`     // 车辆生成点
	StopLine Point  `yaml:"stop_line"` // 停车线位置
}

// Phase 相位配置
// 功能：定义一个相位包含的进口道以及绿灯时长上下限
// 说明：MinGreen/MaxGreen为0时使用Signal中的默认值
type Phase struct {
	Approaches []string `yaml:"approaches"`          // 该相位放行的进口道
	MinGreen   float64  `yaml:"min_green,omitempty"` // 最短绿灯时间（秒）
	MaxGreen   float64  `yaml:"max_green,omitempty"` // 最长绿灯时间（秒）
}

// Junction 路口配置
// 功能：定义路口拓扑，可以使用预设（3/4路口）或显式给出进口道与相位
type Junction struct {
	ID             int32      `yaml:"id"`                        // 路口ID，RPC接口使用
	Type           int32      `yaml:"type,omitempty"`            // 预设路口类型：3或4，0表示显式配置
	ApproachLength float64    `yaml:"approach_length,omitempty"` // 预设路口的进口道长度（米）
	Extent         float64    `yaml:"extent,omitempty"`          // 路口内部通行距离（米）
	Approaches     []Approach `yaml:"approaches,omitempty"`      // 进口道
	Phases         []Phase    `yaml:"phases,omitempty"`          // 相位（按顺序轮转）
	Overlapping    bool       `yaml:"overlapping,omitempty"`     // 是否允许进口道出现在多个相位中
}

// ClassWeights 各车型在负载计算中的权重
type ClassWeights struct {
	Car   float64 `yaml:"car"`
	Bus   float64 `yaml:"bus"`
	Truck float64 `yaml:"truck"`
}

// Signal 信号配时配置
// 功能：定义周期总绿灯时间、过渡时间、默认绿灯上下限与车型权重
type Signal struct {
	GreenTotal float64      `yaml:"green_total"`         // 一个周期内所有相位绿灯时间之和（秒）
	Amber      float64      `yaml:"amber"`               // 黄灯时间（秒）
	AllRed     float64      `yaml:"all_red"`             // 全红时间（秒）
	MinGreen   float64      `yaml:"min_green,omitempty"` // 默认最短绿灯（秒）
	MaxGreen   float64      `yaml:"max_green,omitempty"` // 默认最长绿灯（秒）
	Weights    ClassWeights `yaml:"weights"`             // 车型权重
}

// CountRange 整数闭区间
type CountRange struct {
	Min int32 `yaml:"min"`
	Max int32 `yaml:"max"`
}

// DummyLoad 随机负载源配置
type DummyLoad struct {
	Car   CountRange `yaml:"car"`
	Bus   CountRange `yaml:"bus"`
	Truck CountRange `yaml:"truck"`
}

// DetectorLoad 检测器负载源配置
// 功能：定义外部检测服务地址、超时、置信度阈值与各进口道的画面来源
type DetectorLoad struct {
	Endpoint   string              `yaml:"endpoint"`             // 检测服务地址
	Timeout    float64             `yaml:"timeout,omitempty"`    // 单次请求超时（秒）
	Confidence float64             `yaml:"confidence,omitempty"` // 置信度阈值
	Frames     map[string][]string `yaml:"frames"`               // 进口道ID -> 图像文件列表（轮流使用）
}

// ReplayLoad 回放负载源配置
type ReplayLoad struct {
	URI   string    `yaml:"uri,omitempty"` // MongoDB连接字符串
	Input InputPath `yaml:"input"`         // 回放数据来源
}

// Load 负载源配置
type Load struct {
	Mode     string       `yaml:"mode"`               // dummy|detector|replay|queue
	Seed     uint64       `yaml:"seed,omitempty"`     // 随机种子
	Dummy    DummyLoad    `yaml:"dummy,omitempty"`    // 随机负载源参数（也是检测器降级时的参数）
	Detector DetectorLoad `yaml:"detector,omitempty"` // 检测器参数
	Replay   ReplayLoad   `yaml:"replay,omitempty"`   // 回放参数
}

// VehicleClass 车型参数
type VehicleClass struct {
	Length        float64 `yaml:"length"`          // 车长（米）
	CruiseV       float64 `yaml:"cruise_v"`        // 巡航速度（米/秒）
	MaxA          float64 `yaml:"max_a"`           // 最大加速度（米/秒²）
	UsualBrakingA float64 `yaml:"usual_braking_a"` // 舒适减速度（米/秒²，负数）
	MaxBrakingA   float64 `yaml:"max_braking_a"`   // 最大减速度（米/秒²，负数）
	Mix           float64 `yaml:"mix"`             // 默认车型占比
}

// Vehicle 车辆模型配置
type Vehicle struct {
	MinGap         float64      `yaml:"min_gap"`                   // 最小车距（米）
	Headway        float64      `yaml:"headway"`                   // 安全车头时距（秒）
	QueueSpeed     float64      `yaml:"queue_speed,omitempty"`     // 低于该速度视为排队（米/秒）
	CommitDistance float64      `yaml:"commit_distance,omitempty"` // 黄灯时距停车线小于该距离则继续通行（米）
	Car            VehicleClass `yaml:"car"`
	Bus            VehicleClass `yaml:"bus"`
	Truck          VehicleClass `yaml:"truck"`
}

// Spawn 车辆生成配置
type Spawn struct {
	Mode            string   `yaml:"mode"`                       // poisson|replay
	RatePerVehicle  float64  `yaml:"rate_per_vehicle,omitempty"` // 每个检测车辆对应的到达率（辆/分钟）
	MinRate         float64  `yaml:"min_rate,omitempty"`         // 到达率下限（辆/分钟）
	MaxRate         float64  `yaml:"max_rate,omitempty"`         // 到达率上限（辆/分钟）
	WaveAmplitude   *float64 `yaml:"wave_amplitude,omitempty"`   // 到达率波动幅度（缺省0.3）
	InitialQueue    *bool    `yaml:"initial_queue,omitempty"`    // 启动时按首个负载快照生成排队车辆（缺省true）
	MaxInitialQueue int32    `yaml:"max_initial_queue,omitempty"` // 每个进口道初始排队上限
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
type Config struct {
	Control  Control  `yaml:"control"`  // 模拟过程控制
	Junction Junction `yaml:"junction"` // 路口
	Signal   Signal   `yaml:"signal"`   // 信号配时
	Load     Load     `yaml:"load"`     // 负载源
	Vehicle  Vehicle  `yaml:"vehicle"`  // 车辆模型
	Spawn    Spawn    `yaml:"spawn"`    // 车辆生成
}
