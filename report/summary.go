package report

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v2"
)

// Distribution 均值与标准差
type Distribution struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
	Max    float64 `yaml:"max"`
}

func distribution(x []float64) Distribution {
	if len(x) == 0 {
		return Distribution{}
	}
	d := Distribution{Max: lo.Max(x)}
	if len(x) == 1 {
		d.Mean = x[0]
		return d
	}
	d.Mean, d.StdDev = stat.MeanStdDev(x, nil)
	return d
}

// PhaseSummary 单个相位的配时统计
type PhaseSummary struct {
	Approaches []string     `yaml:"approaches"`
	Green      Distribution `yaml:"green"`
	Load       Distribution `yaml:"load"`
}

// Summary 仿真统计摘要
type Summary struct {
	RunID               string                  `yaml:"run_id"`
	Duration            float64                 `yaml:"duration"` // 最后一次快照的仿真时间（秒）
	Cycles              int                     `yaml:"cycles"`
	DegradedCycles      int                     `yaml:"degraded_cycles"`
	Phases              []PhaseSummary          `yaml:"phases"`
	Queues              map[string]Distribution `yaml:"queues"`
	Throughput          int32                   `yaml:"throughput"`
	ThroughputPerMinute float64                 `yaml:"throughput_per_minute"`
	Spawned             int32                   `yaml:"spawned"`
}

// Summary 计算统计摘要
// 算法说明：
// 1. 各相位绿灯时间与加权负载在所有周期上的均值、标准差与最大值
// 2. 各进口道排队长度在所有采样上的均值、标准差与最大值
// 3. 吞吐量取最后一次快照
func (r *Recorder) Summary() Summary {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	s := Summary{
		Cycles:         len(r.cycles),
		DegradedCycles: lo.CountBy(r.cycles, func(c CycleRecord) bool { return c.Degraded }),
		Queues:         make(map[string]Distribution, len(r.approaches)),
	}
	for i, approaches := range r.phases {
		s.Phases = append(s.Phases, PhaseSummary{
			Approaches: approaches,
			Green:      distribution(lo.Map(r.cycles, func(c CycleRecord, _ int) float64 { return c.Greens[i] })),
			Load:       distribution(lo.Map(r.cycles, func(c CycleRecord, _ int) float64 { return c.Loads[i] })),
		})
	}
	for i, id := range r.approaches {
		s.Queues[id] = distribution(lo.Map(r.samples, func(x Sample, _ int) float64 { return float64(x.Queues[i]) }))
	}
	if r.last != nil {
		s.RunID = r.last.RunID
		s.Duration = r.last.T
		s.Throughput = r.last.Throughput
		s.ThroughputPerMinute = r.last.ThroughputPerMinute
		s.Spawned = r.last.Spawned
	}
	return s
}

// WriteSummary 以YAML格式输出统计摘要
func (r *Recorder) WriteSummary(w io.Writer) error {
	data, err := yaml.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = w.Write(data)
	return err
}
