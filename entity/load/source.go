// 负载源：按配置选择一种实现，为信号机提供各进口道的分车型车辆数
package load

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/detect"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/config"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/input"
)

// New 根据配置创建负载源
// 功能：按load.mode在启动时选择一种负载源，运行期间不再切换
// 参数：rc-运行时配置，queue-排队计数接口（仅queue模式使用，可以为nil）
// 返回：负载源，配置或数据不可用时返回错误
func New(rc *config.RuntimeConfig, queue entity.IQueueCounter) (entity.ILoadSource, error) {
	c := rc.All.Load
	approaches := lo.Map(rc.All.Junction.Approaches, func(a config.Approach, _ int) string { return a.ID })
	switch c.Mode {
	case config.LoadModeDummy:
		return NewDummy(approaches, c.Dummy, c.Seed), nil
	case config.LoadModeDetector:
		d := detect.NewHTTPDetector(c.Detector.Endpoint, time.Duration(c.Detector.Timeout*float64(time.Second)))
		return NewDetectorSource(d, approaches, c.Detector, NewDummy(approaches, c.Dummy, c.Seed))
	case config.LoadModeReplay:
		records, err := input.LoadReplay(c.Replay)
		if err != nil {
			return nil, err
		}
		return NewReplay(records), nil
	case config.LoadModeQueue:
		if queue == nil {
			return nil, fmt.Errorf("load: mode %s needs a queue counter", c.Mode)
		}
		return NewQueue(queue), nil
	default:
		return nil, fmt.Errorf("load: unknown mode %q", c.Mode)
	}
}
