package clock

import (
	"fmt"
	"math"
	"sync/atomic"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真系统的时间推进
// 说明：仿真暂停时时钟不前进；T只在仿真主循环中写入，RPC读取的是Publish后的副本
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每个模拟步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)，END<=START表示不限

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前内部步数

	published atomic.Uint64 // 对外发布的T（float64位模式）
}

// New 根据配置创建新的时钟实例
// 参数：stepConfig-控制步配置
// 返回：初始化完成的时钟实例
// 说明：Total为0时END_STEP等于START_STEP，表示不限步数
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 初始化时钟状态
// 说明：重置内部步数为起始步，重新计算当前时间
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
	c.Publish()
}

// Advance 前进一步
func (c *Clock) Advance() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Publish 发布当前时间供其他协程读取
func (c *Clock) Publish() {
	c.published.Store(math.Float64bits(c.T))
}

// Published 读取最近一次发布的时间
func (c *Clock) Published() float64 {
	return math.Float64frombits(c.published.Load())
}

// Unlimited 是否不限步数
func (c *Clock) Unlimited() bool {
	return c.END_STEP <= c.START_STEP
}

// IsLastStep 下一步是否已超出模拟区间
func (c *Clock) IsLastStep() bool {
	return !c.Unlimited() && c.InternalStep+1 >= c.END_STEP
}

// String 获取时钟的字符串表示
// 返回：格式化的时间字符串（HH:MM:SS）
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
