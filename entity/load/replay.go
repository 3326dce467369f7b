package load

import (
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/input"
)

// Replay 回放负载源
// 功能：按顺序返回预先记录的负载，到达末尾后从头循环
type Replay struct {
	records []input.Record
	next    int
	seq     int64
}

// NewReplay 创建回放负载源
// 参数：records-负载记录（非空）
func NewReplay(records []input.Record) *Replay {
	if len(records) == 0 {
		log.Panic("load: replay without records")
	}
	return &Replay{records: records}
}

func (r *Replay) Name() string {
	return config.LoadModeReplay
}

// Sample 返回下一条记录
func (r *Replay) Sample() entity.LoadSnapshot {
	rec := r.records[r.next]
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		log.Debugf("replay wraps after %d records", len(r.records))
	}
	r.seq++
	return entity.LoadSnapshot{Seq: r.seq, Counts: rec.Counts(), Source: r.Name()}
}

// Reset 回到第一条记录
func (r *Replay) Reset() {
	r.next = 0
	r.seq = 0
}

func (r *Replay) Close() {}
