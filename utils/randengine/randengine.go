// 随机数引擎，包装了golang.org/x/exp/rand，提供仿真中常用的随机数生成方法
package randengine

import (
	"flag"
	"log"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成功能
// 说明：同一种子产生相同序列；带Safe后缀的方法可以跨协程调用
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 功能：以seed+rand.seed_offset为种子初始化随机数引擎
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// DiscreteDistribution 按给定权重生成随机下标（非线程安全）
// 功能：根据权重数组生成离散分布的随机数
// 参数：weight-权重数组，每个元素表示对应索引的概率权重
// 返回：随机生成的索引值（0到len(weight)-1）
// 算法说明：
// 1. 计算总权重
// 2. 在[0, 总权重)范围内生成随机数
// 3. 累积权重直到超过随机数，返回该下标
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	log.Panicf("randengine: DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}

// IntRange 在闭区间[min, max]内均匀生成整数（非线程安全）
// 说明：max < min时返回min
func (e *Engine) IntRange(min, max int32) int32 {
	if max <= min {
		return min
	}
	return min + e.Int31n(max-min+1)
}

// IntRangeSafe 在闭区间[min, max]内均匀生成整数（线程安全）
func (e *Engine) IntRangeSafe(min, max int32) int32 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.IntRange(min, max)
}

// Exp 生成服从指数分布的随机间隔（非线程安全）
// 参数：rate-事件发生率（次/秒），必须为正
// 返回：到下一次事件的时间间隔（秒）
func (e *Engine) Exp(rate float64) float64 {
	return e.ExpFloat64() / rate
}
