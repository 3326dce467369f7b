// 车辆检测边界：把一帧图像交给外部检测服务，得到带类别与置信度的检测框
package detect

import (
	"context"
	"errors"

	"github.com/tsinghua-fib-lab/adaptive-signal-sim/entity"
)

var (
	// ErrDetectionUnavailable 检测服务不可用（网络错误、超时、返回格式错误）
	// 调用方应当降级而不是终止仿真
	ErrDetectionUnavailable = errors.New("detection unavailable")
)

// Detection 单个检测框
type Detection struct {
	Class      string     `json:"class"`      // 类别名（car/bus/truck，其余类别忽略）
	Confidence float64    `json:"confidence"` // 置信度
	Box        [4]float64 `json:"box"`        // 像素坐标 x1, y1, x2, y2
}

// Detector 检测器接口
type Detector interface {
	// Detect 检测一帧图像，错误均包装ErrDetectionUnavailable
	Detect(ctx context.Context, image []byte, contentType string) ([]Detection, error)
}

// Count 按车型统计检测框数量
// 参数：dets-检测框，minConfidence-置信度阈值（低于阈值的检测框忽略）
func Count(dets []Detection, minConfidence float64) entity.ClassCounts {
	var counts entity.ClassCounts
	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		if class, ok := entity.ParseVehicleClass(d.Class); ok {
			counts[class]++
		}
	}
	return counts
}
