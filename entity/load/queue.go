package load

import (
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
)

// Queue 基于排队的负载源
// 功能：以仿真中各进口道停车线前的车辆数作为负载，不依赖外部检测
// 说明：只能在仿真主循环中调用（读取路口状态）
type Queue struct {
	counter entity.IQueueCounter
	seq     int64
}

// NewQueue 创建基于排队的负载源
func NewQueue(counter entity.IQueueCounter) *Queue {
	return &Queue{counter: counter}
}

func (q *Queue) Name() string {
	return config.LoadModeQueue
}

// Sample 统计当前排队车辆数
func (q *Queue) Sample() entity.LoadSnapshot {
	q.seq++
	return entity.LoadSnapshot{Seq: q.seq, Counts: q.counter.QueuedCounts(), Source: q.Name()}
}

func (q *Queue) Reset() {
	q.seq = 0
}

func (q *Queue) Close() {}
